package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ViewRepo struct {
	pool *pgxpool.Pool
}

func NewViewRepo(pool *pgxpool.Pool) *ViewRepo {
	return &ViewRepo{pool: pool}
}

// Upsert refreshes the last-shown timestamp for the (viewer, seen) pair.
func (r *ViewRepo) Upsert(ctx context.Context, viewerUserID, seenUserID int64, at time.Time) error {
	if viewerUserID <= 0 || seenUserID <= 0 || viewerUserID == seenUserID {
		return fmt.Errorf("invalid profile view payload")
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO profile_views (
	viewer_user_id,
	seen_user_id,
	last_shown_at
) VALUES ($1, $2, $3)
ON CONFLICT (viewer_user_id, seen_user_id) DO UPDATE SET
	last_shown_at = EXCLUDED.last_shown_at
`, viewerUserID, seenUserID, at.UTC()); err != nil {
		return fmt.Errorf("upsert profile view: %w", err)
	}

	return nil
}

// DeleteOlderThan prunes view rows that predate the cutoff. The ledger is a
// soft re-surfacing hint, so losing old rows is harmless.
func (r *ViewRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if cutoff.IsZero() {
		return 0, fmt.Errorf("cutoff is required")
	}
	if r.pool == nil {
		return 0, nil
	}

	result, err := r.pool.Exec(ctx, `
DELETE FROM profile_views
WHERE last_shown_at < $1
`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete stale profile views: %w", err)
	}

	return result.RowsAffected(), nil
}
