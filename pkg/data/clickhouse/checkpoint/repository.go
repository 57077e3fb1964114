package checkpoint

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/ettgrid/measurements-syncer/pkg/checkpointer"
	"github.com/ettgrid/measurements-syncer/pkg/clickhouse"
	"github.com/ettgrid/measurements-syncer/pkg/slidingwindow"
)

//go:embed queries/create-table.sql
var createTableQuery string

//go:embed queries/write-window.sql
var writeWindowQuery string

//go:embed queries/read-window.sql
var readWindowQuery string

//go:embed queries/delete-window.sql
var deleteWindowQuery string

var _ checkpointer.Store = (*Repository)(nil)

// Repository persists sliding windows in ClickHouse. Every Save appends a row.
// ReplacingMergeTree keeps the row with the highest synchronization point per
// GSRN, the last written one on ties, and reads apply the same order so
// unmerged parts are never observed. A stale Save is therefore accepted but
// never wins over a window that is further ahead. Unlike the PostgreSQL store
// it does not report ErrStaleWindow, since detecting it would need a read
// before every write.
type Repository struct {
	client    clickhouse.Client
	cluster   string
	database  string
	tableName string
	now       func() time.Time
}

func NewRepository(client clickhouse.Client, cluster, database, tableName string) (*Repository, error) {
	if client == nil {
		return nil, errors.New("invalid clickhouse client: must not be nil")
	}
	if database == "" || tableName == "" {
		return nil, errors.New("invalid table: database and table name must not be empty")
	}
	return &Repository{
		client:    client,
		cluster:   cluster,
		database:  database,
		tableName: tableName,
		now:       time.Now,
	}, nil
}

func (r *Repository) onCluster() string {
	if r.cluster == "" {
		return ""
	}
	return "ON CLUSTER " + r.cluster
}

// Initialize ensures the window table exists.
// Schema:
//   - gsrn: String (sorting key)
//   - synchronization_point: Int64
//   - missing_from, missing_to: Array(Int64), parallel arrays of interval bounds
//   - updated_at: DateTime64(6), breaks ties between rows at the same synchronization point
func (r *Repository) Initialize(ctx context.Context) error {
	query := fmt.Sprintf(createTableQuery, r.database, r.tableName, r.onCluster())
	if err := r.client.Conn().Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create window table: %w", err)
	}
	return nil
}

func (r *Repository) Save(ctx context.Context, w slidingwindow.Window) error {
	row := toRow(w)
	query := fmt.Sprintf(writeWindowQuery, r.database, r.tableName)
	err := r.client.Conn().Exec(ctx, query,
		row.GSRN, row.SynchronizationPoint, row.MissingFrom, row.MissingTo, r.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write window %s: %w", w.GSRN, err)
	}
	return nil
}

func (r *Repository) Load(ctx context.Context, gsrn string) (slidingwindow.Window, bool, error) {
	var row windowRow
	query := fmt.Sprintf(readWindowQuery, r.database, r.tableName)
	err := r.client.Conn().
		QueryRow(ctx, query, gsrn).
		Scan(&row.GSRN, &row.SynchronizationPoint, &row.MissingFrom, &row.MissingTo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return slidingwindow.Window{}, false, nil
		}
		return slidingwindow.Window{}, false, fmt.Errorf("failed to read window %s: %w", gsrn, err)
	}

	w, err := row.toWindow()
	if err != nil {
		return slidingwindow.Window{}, false, err
	}
	return w, true, nil
}

func (r *Repository) Delete(ctx context.Context, gsrn string) error {
	query := fmt.Sprintf(deleteWindowQuery, r.database, r.tableName, r.onCluster())
	if err := r.client.Conn().Exec(ctx, query, gsrn); err != nil {
		return fmt.Errorf("failed to delete window %s: %w", gsrn, err)
	}
	return nil
}
