package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNoCandidate = errors.New("no candidate available")

type CandidateRepo struct {
	pool *pgxpool.Pool
}

func NewCandidateRepo(pool *pgxpool.Pool) *CandidateRepo {
	return &CandidateRepo{pool: pool}
}

// CandidateQuery narrows the candidate pool. Zero values disable the
// corresponding constraint. ShownCutoff, when set, excludes candidates the
// viewer has already been shown after that instant.
type CandidateQuery struct {
	ViewerUserID int64
	IsAdult      bool
	AgeMin       int
	AgeMax       int
	SameCity     string
	OtherCity    string
	ShownCutoff  *time.Time
}

// PickRandom returns one uniformly random profile satisfying the query.
// Blocked profiles and targets of the viewer's open reports never qualify.
func (r *CandidateRepo) PickRandom(ctx context.Context, q CandidateQuery) (ProfileRecord, error) {
	if q.ViewerUserID <= 0 {
		return ProfileRecord{}, fmt.Errorf("invalid viewer user id")
	}
	if r.pool == nil {
		return ProfileRecord{}, fmt.Errorf("postgres pool is nil")
	}

	var rec ProfileRecord
	err := r.pool.QueryRow(ctx, `
SELECT
	p.user_id,
	COALESCE(p.username, ''),
	COALESCE(p.display_name, ''),
	COALESCE(p.age, 0),
	COALESCE(p.is_adult, FALSE),
	COALESCE(p.gender, ''),
	COALESCE(p.gender_detail, ''),
	COALESCE(p.city, ''),
	COALESCE(p.bio, ''),
	COALESCE(p.photo_file_id, ''),
	COALESCE(p.age_preference, ''),
	COALESCE(p.blocked, FALSE),
	COALESCE(p.block_reason, ''),
	p.created_at,
	p.updated_at
FROM profiles p
WHERE
	p.user_id <> $1
	AND COALESCE(p.blocked, FALSE) = FALSE
	AND COALESCE(p.is_adult, FALSE) = $2
	AND NOT EXISTS (
		SELECT 1
		FROM reports rp
		WHERE rp.reporter_user_id = $1
			AND rp.target_user_id = p.user_id
			AND rp.status = 'open'
	)
	AND ($3::int = 0 OR COALESCE(p.age, 0) >= $3)
	AND ($4::int = 0 OR COALESCE(p.age, 0) <= $4)
	AND ($5::text = '' OR COALESCE(p.city, '') = '' OR LOWER(p.city) = LOWER($5))
	AND ($6::text = '' OR (COALESCE(p.city, '') <> '' AND LOWER(p.city) <> LOWER($6)))
	AND (
		$7::timestamptz IS NULL
		OR NOT EXISTS (
			SELECT 1
			FROM profile_views v
			WHERE v.viewer_user_id = $1
				AND v.seen_user_id = p.user_id
				AND v.last_shown_at > $7
		)
	)
ORDER BY RANDOM()
LIMIT 1
`,
		q.ViewerUserID,
		q.IsAdult,
		q.AgeMin,
		q.AgeMax,
		q.SameCity,
		q.OtherCity,
		q.ShownCutoff,
	).Scan(
		&rec.UserID,
		&rec.Username,
		&rec.DisplayName,
		&rec.Age,
		&rec.IsAdult,
		&rec.Gender,
		&rec.GenderDetail,
		&rec.City,
		&rec.Bio,
		&rec.PhotoFileID,
		&rec.AgePreference,
		&rec.Blocked,
		&rec.BlockReason,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProfileRecord{}, ErrNoCandidate
		}
		return ProfileRecord{}, fmt.Errorf("pick random candidate: %w", err)
	}

	return rec, nil
}
