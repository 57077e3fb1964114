package inmemory

import (
	"context"
	"sync"

	"github.com/ettgrid/measurements-syncer/pkg/checkpointer"
	"github.com/ettgrid/measurements-syncer/pkg/slidingwindow"
)

var _ checkpointer.Store = (*WindowRepository)(nil)

// WindowRepository is a thread-safe in-memory implementation of checkpointer.Store.
// Windows are stored and returned as deep copies, so callers never share slices
// with the repository.
type WindowRepository struct {
	mu      sync.Mutex
	windows map[string]slidingwindow.Window
}

// NewWindowRepository creates a repository pre-populated with seed.
func NewWindowRepository(seed ...slidingwindow.Window) *WindowRepository {
	r := &WindowRepository{
		windows: make(map[string]slidingwindow.Window, len(seed)),
	}
	for _, w := range seed {
		r.windows[w.GSRN] = w.Clone()
	}
	return r
}

func (r *WindowRepository) Initialize(context.Context) error {
	return nil
}

func (r *WindowRepository) Load(ctx context.Context, gsrn string) (slidingwindow.Window, bool, error) {
	if err := ctx.Err(); err != nil {
		return slidingwindow.Window{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.windows[gsrn]
	if !ok {
		return slidingwindow.Window{}, false, nil
	}
	return w.Clone(), true, nil
}

func (r *WindowRepository) Save(ctx context.Context, w slidingwindow.Window) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := w.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows[w.GSRN] = w.Clone()
	return nil
}

func (r *WindowRepository) Delete(ctx context.Context, gsrn string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.windows, gsrn)
	return nil
}

// Snapshot returns copies of every stored window keyed by GSRN.
func (r *WindowRepository) Snapshot() map[string]slidingwindow.Window {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]slidingwindow.Window, len(r.windows))
	for gsrn, w := range r.windows {
		out[gsrn] = w.Clone()
	}
	return out
}
