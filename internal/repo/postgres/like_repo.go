package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LikeRepo struct {
	pool *pgxpool.Pool
}

func NewLikeRepo(pool *pgxpool.Pool) *LikeRepo {
	return &LikeRepo{pool: pool}
}

// LockPair takes a transaction-scoped advisory lock on the unordered user
// pair. Concurrent likes between the same two users serialize on it, so the
// second transaction always sees the first one's edge when it checks for
// the reciprocal like.
func (r *LikeRepo) LockPair(ctx context.Context, tx pgx.Tx, userID, targetID int64) error {
	if userID <= 0 || targetID <= 0 {
		return fmt.Errorf("invalid like pair")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
SELECT pg_advisory_xact_lock(
	hashtextextended(least($1::bigint, $2::bigint)::text || ':' || greatest($1::bigint, $2::bigint)::text, 0)
)
`, userID, targetID); err != nil {
		return fmt.Errorf("lock like pair: %w", err)
	}

	return nil
}

// Create inserts the directed like edge. Returns false when the edge
// already exists; a repeat like is a no-op, not a failure.
func (r *LikeRepo) Create(ctx context.Context, tx pgx.Tx, fromUserID, toUserID int64) (bool, error) {
	if fromUserID <= 0 || toUserID <= 0 || fromUserID == toUserID {
		return false, fmt.Errorf("invalid like payload")
	}
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	result, err := tx.Exec(ctx, `
INSERT INTO likes (
	from_user_id,
	to_user_id,
	created_at
) VALUES ($1, $2, NOW())
ON CONFLICT (from_user_id, to_user_id) DO NOTHING
`, fromUserID, toUserID)
	if err != nil {
		return false, fmt.Errorf("create like: %w", err)
	}

	return result.RowsAffected() > 0, nil
}
