package checkpointer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ettgrid/measurements-syncer/pkg/metrics"
	"github.com/ettgrid/measurements-syncer/pkg/slidingwindow"
)

// ErrStaleWindow is returned by Save when the store already holds a window
// with a later synchronization point for the same GSRN. Nothing was written.
var ErrStaleWindow = errors.New("stored window is ahead of the saved one")

// Store abstracts window-state persistence across different data stores. Windows are keyed
// by GSRN; a later Save for the same GSRN replaces the earlier one.
type Store interface {
	// Initialize ensures the underlying storage is ready (creates tables, schemas, etc.). This
	// should be idempotent and safe to call multiple times.
	Initialize(ctx context.Context) error

	// Load retrieves the latest window for a metering point. If none has been saved, exists is
	// false and the returned window is the zero value.
	Load(ctx context.Context, gsrn string) (w slidingwindow.Window, exists bool, err error)

	// Save persists w, replacing any previous window with the same GSRN. Stores
	// that refuse to move a synchronization point backwards return ErrStaleWindow.
	Save(ctx context.Context, w slidingwindow.Window) error

	// Delete removes the window for a metering point. Deleting a missing window is not an error.
	Delete(ctx context.Context, gsrn string) error
}

// SaveWithRetry persists w, retrying failed writes up to cfg.MaxRetries times.
// ErrStaleWindow is returned at once since retrying cannot change the outcome.
//
// Returns an error if every attempt fails or ctx is cancelled before a write succeeds.
func SaveWithRetry(
	ctx context.Context,
	store Store,
	w slidingwindow.Window,
	cfg Config,
	m *metrics.Metrics,
) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("save window %s: %w", w.GSRN, err)
		}

		writeCtx, cancel := context.WithTimeout(ctx, cfg.WriteTimeout)
		lastErr = store.Save(writeCtx, w)
		cancel()
		m.RecordCheckpointWrite(lastErr)

		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrStaleWindow) {
			return fmt.Errorf("save window %s: %w", w.GSRN, lastErr)
		}
		// Check if error was due to context cancellation
		if ctx.Err() != nil {
			return fmt.Errorf("save window %s: %w", w.GSRN, ctx.Err())
		}

		// Don't sleep after the last attempt
		if attempt < cfg.MaxRetries {
			select {
			case <-time.After(cfg.RetryBackoff):
			case <-ctx.Done():
				return fmt.Errorf("save window %s: %w", w.GSRN, ctx.Err())
			}
		}
	}

	return fmt.Errorf("failed to save window %s (sync point: %d) after %d attempts: %w",
		w.GSRN, w.SynchronizationPoint, cfg.MaxRetries+1, lastErr)
}
