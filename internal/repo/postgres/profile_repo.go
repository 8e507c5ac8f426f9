package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrProfileNotFound = errors.New("profile not found")

type ProfileRepo struct {
	pool *pgxpool.Pool
}

type ProfileRecord struct {
	UserID        int64
	Username      string
	DisplayName   string
	Age           int
	IsAdult       bool
	Gender        string
	GenderDetail  string
	City          string
	Bio           string
	PhotoFileID   string
	AgePreference string
	Blocked       bool
	BlockReason   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

// Upsert writes the mutable profile fields. The blocked flag and block
// reason are owned by moderation and are never touched here.
func (r *ProfileRepo) Upsert(ctx context.Context, rec ProfileRecord) error {
	if rec.UserID <= 0 {
		return fmt.Errorf("invalid profile payload")
	}
	if strings.TrimSpace(rec.DisplayName) == "" {
		return fmt.Errorf("profile display name is required")
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO profiles (
	user_id,
	username,
	display_name,
	age,
	is_adult,
	gender,
	gender_detail,
	city,
	bio,
	photo_file_id,
	age_preference,
	blocked,
	block_reason,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, FALSE, '', NOW(), NOW())
ON CONFLICT (user_id) DO UPDATE SET
	username = EXCLUDED.username,
	display_name = EXCLUDED.display_name,
	age = EXCLUDED.age,
	is_adult = EXCLUDED.is_adult,
	gender = EXCLUDED.gender,
	gender_detail = EXCLUDED.gender_detail,
	city = EXCLUDED.city,
	bio = EXCLUDED.bio,
	photo_file_id = EXCLUDED.photo_file_id,
	age_preference = EXCLUDED.age_preference,
	updated_at = NOW()
`,
		rec.UserID,
		strings.TrimSpace(rec.Username),
		strings.TrimSpace(rec.DisplayName),
		rec.Age,
		rec.IsAdult,
		rec.Gender,
		strings.TrimSpace(rec.GenderDetail),
		strings.TrimSpace(rec.City),
		strings.TrimSpace(rec.Bio),
		strings.TrimSpace(rec.PhotoFileID),
		strings.TrimSpace(rec.AgePreference),
	); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}

	return nil
}

func (r *ProfileRepo) GetByUserID(ctx context.Context, userID int64) (ProfileRecord, error) {
	if userID <= 0 {
		return ProfileRecord{}, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return ProfileRecord{}, fmt.Errorf("postgres pool is nil")
	}

	var rec ProfileRecord
	err := r.pool.QueryRow(ctx, `
SELECT
	user_id,
	COALESCE(username, ''),
	COALESCE(display_name, ''),
	COALESCE(age, 0),
	COALESCE(is_adult, FALSE),
	COALESCE(gender, ''),
	COALESCE(gender_detail, ''),
	COALESCE(city, ''),
	COALESCE(bio, ''),
	COALESCE(photo_file_id, ''),
	COALESCE(age_preference, ''),
	COALESCE(blocked, FALSE),
	COALESCE(block_reason, ''),
	created_at,
	updated_at
FROM profiles
WHERE user_id = $1
`, userID).Scan(
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
			return ProfileRecord{}, ErrProfileNotFound
		}
		return ProfileRecord{}, fmt.Errorf("get profile: %w", err)
	}

	return rec, nil
}

func (r *ProfileRepo) SetBlocked(ctx context.Context, tx pgx.Tx, userID int64, reason string) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	result, err := tx.Exec(ctx, `
UPDATE profiles
SET
	blocked = TRUE,
	block_reason = $2,
	updated_at = NOW()
WHERE user_id = $1
`, userID, strings.TrimSpace(reason))
	if err != nil {
		return fmt.Errorf("set profile blocked: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrProfileNotFound
	}

	return nil
}
