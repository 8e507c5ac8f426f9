package moderation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/commie294/T4t/internal/domain/enums"
	"github.com/commie294/T4t/internal/domain/model"
	pgrepo "github.com/commie294/T4t/internal/repo/postgres"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrNotRegistered   = errors.New("profile is not registered")
	ErrDuplicateReport = errors.New("open report already filed")
	ErrReportNotFound  = errors.New("report not found")
	ErrAlreadyDecided  = errors.New("report already decided")
	ErrUnauthorized    = errors.New("decision not authorized")
)

type ReportStore interface {
	Create(ctx context.Context, tx pgx.Tx, reporterUserID, targetUserID int64, reason, details, evidenceKey string) (int64, error)
	GetByID(ctx context.Context, reportID int64) (pgrepo.ReportRecord, error)
	Decide(ctx context.Context, tx pgx.Tx, reportID int64, decision string, decidedBy int64) (pgrepo.ReportRecord, error)
	ListOpen(ctx context.Context, limit int) ([]pgrepo.ReportRecord, error)
}

type ProfileStore interface {
	GetByUserID(ctx context.Context, userID int64) (pgrepo.ProfileRecord, error)
	SetBlocked(ctx context.Context, tx pgx.Tx, userID int64, reason string) error
}

// EvidenceArchiver copies a reported photo into durable storage and returns
// the object key. A nil archiver disables evidence collection.
type EvidenceArchiver interface {
	Archive(ctx context.Context, fileID string) (string, error)
}

// Notifier delivers plain text messages, e.g. telling a user about the
// decision taken against them.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

// AdminNotifier posts a report card to the admin chat with the decision
// controls attached. When absent the plain Notifier is used instead.
type AdminNotifier interface {
	NotifyReport(ctx context.Context, chatID int64, text string, reportID int64) error
}

type Config struct {
	// AdminChatID is the only chat allowed to decide reports.
	AdminChatID int64
}

type Dependencies struct {
	Pool     *pgxpool.Pool
	Reports  ReportStore
	Profiles ProfileStore
	Evidence EvidenceArchiver
	Notifier Notifier
	Admin    AdminNotifier

	// RunTx overrides the transaction runner. Tests use it to drive the
	// service against in-memory stores.
	RunTx func(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}

type ReportInput struct {
	ReporterUserID int64
	TargetUserID   int64
	Reason         enums.ReportReason
	Details        string
	EvidenceFileID string
}

type Service struct {
	reports  ReportStore
	profiles ProfileStore
	evidence EvidenceArchiver
	notifier Notifier
	admin    AdminNotifier
	cfg      Config
	logger   *zap.Logger

	runTx func(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}

func NewService(deps Dependencies, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		reports:  deps.Reports,
		profiles: deps.Profiles,
		evidence: deps.Evidence,
		notifier: deps.Notifier,
		admin:    deps.Admin,
		cfg:      cfg,
		logger:   logger,
		runTx:    deps.RunTx,
	}
	if s.runTx == nil {
		s.runTx = func(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, deps.Pool, fn)
		}
	}
	return s
}

// FileReport opens a report against the target. Evidence archiving is best
// effort: a failed upload files the report without the attachment. The admin
// chat is notified after the report is committed.
func (s *Service) FileReport(ctx context.Context, in ReportInput) (model.Report, error) {
	if in.ReporterUserID <= 0 || in.TargetUserID <= 0 || in.ReporterUserID == in.TargetUserID {
		return model.Report{}, ErrValidation
	}
	if in.Reason == "" {
		return model.Report{}, ErrValidation
	}

	if _, err := s.loadProfile(ctx, in.ReporterUserID); err != nil {
		return model.Report{}, err
	}
	if _, err := s.loadProfile(ctx, in.TargetUserID); err != nil {
		return model.Report{}, err
	}

	evidenceKey := ""
	if in.EvidenceFileID != "" && s.evidence != nil {
		key, err := s.evidence.Archive(ctx, in.EvidenceFileID)
		if err != nil {
			s.logger.Warn("evidence archive failed",
				zap.Int64("reporter_user_id", in.ReporterUserID),
				zap.Error(err),
			)
		} else {
			evidenceKey = key
		}
	}

	var reportID int64
	err := s.runTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		id, err := s.reports.Create(ctx, tx, in.ReporterUserID, in.TargetUserID, string(in.Reason), in.Details, evidenceKey)
		if err != nil {
			return err
		}
		reportID = id
		return nil
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrDuplicateOpenReport) {
			return model.Report{}, ErrDuplicateReport
		}
		return model.Report{}, fmt.Errorf("file report: %w", err)
	}

	rec, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return model.Report{}, fmt.Errorf("load filed report: %w", err)
	}
	report := mapRecord(rec)

	s.notifyAdmin(ctx, report)

	return report, nil
}

// Decide closes an open report. Only the configured admin chat may decide,
// and the first decision wins. A block decision also flags the target's
// profile inside the same transaction.
func (s *Service) Decide(ctx context.Context, adminID, reportID int64, decision enums.ReportDecision) (model.Report, error) {
	if adminID <= 0 || reportID <= 0 {
		return model.Report{}, ErrValidation
	}
	switch decision {
	case enums.ReportDecisionBlock, enums.ReportDecisionWarn, enums.ReportDecisionDismiss:
	default:
		return model.Report{}, ErrValidation
	}
	if adminID != s.cfg.AdminChatID {
		return model.Report{}, ErrUnauthorized
	}

	var rec pgrepo.ReportRecord
	err := s.runTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		decided, err := s.reports.Decide(ctx, tx, reportID, string(decision), adminID)
		if err != nil {
			return err
		}
		rec = decided

		if decision == enums.ReportDecisionBlock {
			if err := s.profiles.SetBlocked(ctx, tx, rec.TargetUserID, rec.Reason); err != nil {
				return fmt.Errorf("block reported profile: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, pgrepo.ErrReportNotFound):
			return model.Report{}, ErrReportNotFound
		case errors.Is(err, pgrepo.ErrReportDecided):
			return model.Report{}, ErrAlreadyDecided
		}
		return model.Report{}, fmt.Errorf("decide report: %w", err)
	}

	report := mapRecord(rec)
	s.notifyDecision(ctx, report)

	return report, nil
}

func (s *Service) GetReport(ctx context.Context, reportID int64) (model.Report, error) {
	if reportID <= 0 {
		return model.Report{}, ErrValidation
	}

	rec, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrReportNotFound) {
			return model.Report{}, ErrReportNotFound
		}
		return model.Report{}, fmt.Errorf("get report: %w", err)
	}

	return mapRecord(rec), nil
}

func (s *Service) ListOpenReports(ctx context.Context, limit int) ([]model.Report, error) {
	records, err := s.reports.ListOpen(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list open reports: %w", err)
	}

	reports := make([]model.Report, 0, len(records))
	for _, rec := range records {
		reports = append(reports, mapRecord(rec))
	}
	return reports, nil
}

func (s *Service) loadProfile(ctx context.Context, userID int64) (pgrepo.ProfileRecord, error) {
	rec, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrProfileNotFound) {
			return pgrepo.ProfileRecord{}, ErrNotRegistered
		}
		return pgrepo.ProfileRecord{}, fmt.Errorf("load profile: %w", err)
	}
	return rec, nil
}

func (s *Service) notifyAdmin(ctx context.Context, report model.Report) {
	if s.cfg.AdminChatID <= 0 {
		return
	}

	text := fmt.Sprintf("Новая жалоба:\nОт пользователя ID %d на пользователя ID %d. Причина: %s",
		report.ReporterUserID, report.TargetUserID, reasonText(report))

	var err error
	switch {
	case s.admin != nil:
		err = s.admin.NotifyReport(ctx, s.cfg.AdminChatID, text, report.ID)
	case s.notifier != nil:
		err = s.notifier.Notify(ctx, s.cfg.AdminChatID, text)
	}
	if err != nil {
		s.logger.Warn("admin report notification failed",
			zap.Int64("report_id", report.ID),
			zap.Error(err),
		)
	}
}

func (s *Service) notifyDecision(ctx context.Context, report model.Report) {
	if s.notifier == nil {
		return
	}

	var text string
	switch report.Decision {
	case enums.ReportDecisionBlock:
		text = "Ваша анкета заблокирована за нарушение правил сервиса."
	case enums.ReportDecisionWarn:
		text = "Вам вынесено предупреждение за нарушение правил сервиса."
	default:
		return
	}

	if err := s.notifier.Notify(ctx, report.TargetUserID, text); err != nil {
		s.logger.Warn("decision notification failed",
			zap.Int64("report_id", report.ID),
			zap.Int64("target_user_id", report.TargetUserID),
			zap.Error(err),
		)
	}
}

func reasonText(report model.Report) string {
	if report.Details != "" {
		return report.Details
	}
	return string(report.Reason)
}

func mapRecord(rec pgrepo.ReportRecord) model.Report {
	return model.Report{
		ID:             rec.ID,
		ReporterUserID: rec.ReporterUserID,
		TargetUserID:   rec.TargetUserID,
		Reason:         enums.ReportReason(rec.Reason),
		Details:        rec.Details,
		EvidenceKey:    rec.EvidenceKey,
		Status:         enums.ReportStatus(rec.Status),
		Decision:       enums.ReportDecision(rec.Decision),
		DecidedBy:      rec.DecidedBy,
		DecidedAt:      rec.DecidedAt,
		CreatedAt:      rec.CreatedAt,
	}
}
