package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campusctl/edt-api/internal/models"
)

// ChangeFeedRepository persists the append-only occupancy change log.
// Appends happen inside the same transaction as the occupancy mutation
// they record; the version sequence is the feed table's bigserial key.
type ChangeFeedRepository struct {
	db *sqlx.DB
}

// NewChangeFeedRepository creates a new change feed repository.
func NewChangeFeedRepository(db *sqlx.DB) *ChangeFeedRepository {
	return &ChangeFeedRepository{db: db}
}

// AppendTx records a mutation and fills the entry's assigned version
// and timestamp.
func (r *ChangeFeedRepository) AppendTx(ctx context.Context, tx *sqlx.Tx, entry *models.ChangeEntry) error {
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	const query = `INSERT INTO occupancy_changes (occupancy_id, operation, occurred_at, details)
VALUES ($1, $2, $3, $4) RETURNING version`
	if err := tx.GetContext(ctx, &entry.Version, query, entry.OccupancyID, entry.Operation, entry.OccurredAt, entry.Details); err != nil {
		return fmt.Errorf("append change entry: %w", err)
	}
	return nil
}

// ChangeFeedQuery selects feed entries after a cursor. AfterVersion
// wins when both cursors are set.
type ChangeFeedQuery struct {
	AfterVersion int64
	Since        *time.Time
	Limit        int
}

// Since returns entries after the cursor in ascending version order.
func (r *ChangeFeedRepository) Since(ctx context.Context, q ChangeFeedQuery) ([]models.ChangeEntry, error) {
	conditions := []string{}
	args := []interface{}{}

	if q.AfterVersion > 0 {
		conditions = append(conditions, fmt.Sprintf("version > $%d", len(args)+1))
		args = append(args, q.AfterVersion)
	} else if q.Since != nil {
		conditions = append(conditions, fmt.Sprintf("occurred_at > $%d", len(args)+1))
		args = append(args, q.Since.UTC())
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 25
	}

	query := fmt.Sprintf(`SELECT version, occupancy_id, operation, occurred_at, details FROM occupancy_changes%s ORDER BY version ASC LIMIT %d`, where, limit)
	var entries []models.ChangeEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("read change feed: %w", err)
	}
	return entries, nil
}

// LatestVersion returns the highest assigned feed version, zero when
// the log is empty.
func (r *ChangeFeedRepository) LatestVersion(ctx context.Context) (int64, error) {
	const query = `SELECT COALESCE(MAX(version), 0) FROM occupancy_changes`
	var version int64
	if err := r.db.GetContext(ctx, &version, query); err != nil {
		return 0, fmt.Errorf("latest feed version: %w", err)
	}
	return version, nil
}

// PruneBefore drops entries older than the cutoff and reports how many
// were removed.
func (r *ChangeFeedRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM occupancy_changes WHERE occurred_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune change feed: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune change feed rows affected: %w", err)
	}
	return removed, nil
}
