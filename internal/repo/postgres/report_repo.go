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

var (
	ErrDuplicateOpenReport = errors.New("open report already exists")
	ErrReportNotFound      = errors.New("report not found")
	ErrReportDecided       = errors.New("report already decided")
)

type ReportRepo struct {
	pool *pgxpool.Pool
}

type ReportRecord struct {
	ID             int64
	ReporterUserID int64
	TargetUserID   int64
	Reason         string
	Details        string
	EvidenceKey    string
	Status         string
	Decision       string
	DecidedBy      int64
	DecidedAt      *time.Time
	CreatedAt      time.Time
}

func NewReportRepo(pool *pgxpool.Pool) *ReportRepo {
	return &ReportRepo{pool: pool}
}

// Create files a new open report. A partial unique index on
// (reporter_user_id, target_user_id) WHERE status = 'open' rejects a second
// open report for the same pair; that conflict maps to ErrDuplicateOpenReport.
func (r *ReportRepo) Create(ctx context.Context, tx pgx.Tx, reporterUserID, targetUserID int64, reason, details, evidenceKey string) (int64, error) {
	if reporterUserID <= 0 || targetUserID <= 0 || reporterUserID == targetUserID {
		return 0, fmt.Errorf("invalid report payload")
	}
	if strings.TrimSpace(reason) == "" {
		return 0, fmt.Errorf("report reason is required")
	}
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}

	var reportID int64
	err := tx.QueryRow(ctx, `
INSERT INTO reports (
	reporter_user_id,
	target_user_id,
	reason,
	details,
	evidence_key,
	status,
	created_at
) VALUES ($1, $2, $3, $4, $5, 'open', NOW())
ON CONFLICT (reporter_user_id, target_user_id) WHERE status = 'open' DO NOTHING
RETURNING id
`, reporterUserID, targetUserID, strings.ToLower(strings.TrimSpace(reason)), strings.TrimSpace(details), strings.TrimSpace(evidenceKey)).Scan(&reportID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrDuplicateOpenReport
		}
		return 0, fmt.Errorf("create report: %w", err)
	}

	return reportID, nil
}

func (r *ReportRepo) GetByID(ctx context.Context, reportID int64) (ReportRecord, error) {
	if reportID <= 0 {
		return ReportRecord{}, fmt.Errorf("invalid report id")
	}
	if r.pool == nil {
		return ReportRecord{}, fmt.Errorf("postgres pool is nil")
	}

	var rec ReportRecord
	err := r.pool.QueryRow(ctx, `
SELECT
	id,
	reporter_user_id,
	target_user_id,
	COALESCE(reason, ''),
	COALESCE(details, ''),
	COALESCE(evidence_key, ''),
	status,
	COALESCE(decision, ''),
	COALESCE(decided_by, 0),
	decided_at,
	created_at
FROM reports
WHERE id = $1
`, reportID).Scan(
		&rec.ID,
		&rec.ReporterUserID,
		&rec.TargetUserID,
		&rec.Reason,
		&rec.Details,
		&rec.EvidenceKey,
		&rec.Status,
		&rec.Decision,
		&rec.DecidedBy,
		&rec.DecidedAt,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ReportRecord{}, ErrReportNotFound
		}
		return ReportRecord{}, fmt.Errorf("get report: %w", err)
	}

	return rec, nil
}

// Decide applies the decision only while the report is still open, so the
// first decision wins without a read-then-write race. The decided record is
// returned so the caller can run the enforcement side effects.
func (r *ReportRepo) Decide(ctx context.Context, tx pgx.Tx, reportID int64, decision string, decidedBy int64) (ReportRecord, error) {
	if reportID <= 0 || decidedBy <= 0 {
		return ReportRecord{}, fmt.Errorf("invalid decision payload")
	}
	if strings.TrimSpace(decision) == "" {
		return ReportRecord{}, fmt.Errorf("decision is required")
	}
	if tx == nil {
		return ReportRecord{}, fmt.Errorf("transaction is required")
	}

	var rec ReportRecord
	err := tx.QueryRow(ctx, `
UPDATE reports
SET
	status = 'decided',
	decision = $2,
	decided_by = $3,
	decided_at = NOW()
WHERE id = $1 AND status = 'open'
RETURNING
	id,
	reporter_user_id,
	target_user_id,
	COALESCE(reason, ''),
	COALESCE(details, ''),
	COALESCE(evidence_key, ''),
	status,
	COALESCE(decision, ''),
	COALESCE(decided_by, 0),
	decided_at,
	created_at
`, reportID, strings.ToLower(strings.TrimSpace(decision)), decidedBy).Scan(
		&rec.ID,
		&rec.ReporterUserID,
		&rec.TargetUserID,
		&rec.Reason,
		&rec.Details,
		&rec.EvidenceKey,
		&rec.Status,
		&rec.Decision,
		&rec.DecidedBy,
		&rec.DecidedAt,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var status string
			lookupErr := tx.QueryRow(ctx, `
SELECT status
FROM reports
WHERE id = $1
`, reportID).Scan(&status)
			if lookupErr != nil {
				if errors.Is(lookupErr, pgx.ErrNoRows) {
					return ReportRecord{}, ErrReportNotFound
				}
				return ReportRecord{}, fmt.Errorf("lookup report status: %w", lookupErr)
			}
			return ReportRecord{}, ErrReportDecided
		}
		return ReportRecord{}, fmt.Errorf("decide report: %w", err)
	}

	return rec, nil
}

func (r *ReportRepo) ListOpen(ctx context.Context, limit int) ([]ReportRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if r.pool == nil {
		return []ReportRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	id,
	reporter_user_id,
	target_user_id,
	COALESCE(reason, ''),
	COALESCE(details, ''),
	COALESCE(evidence_key, ''),
	status,
	COALESCE(decision, ''),
	COALESCE(decided_by, 0),
	decided_at,
	created_at
FROM reports
WHERE status = 'open'
ORDER BY created_at ASC, id ASC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list open reports: %w", err)
	}
	defer rows.Close()

	items := make([]ReportRecord, 0, limit)
	for rows.Next() {
		var rec ReportRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.ReporterUserID,
			&rec.TargetUserID,
			&rec.Reason,
			&rec.Details,
			&rec.EvidenceKey,
			&rec.Status,
			&rec.Decision,
			&rec.DecidedBy,
			&rec.DecidedAt,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan open report: %w", err)
		}
		items = append(items, rec)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate open reports: %w", rows.Err())
	}

	return items, nil
}
