package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/commie294/T4t/internal/domain/enums"
	pgrepo "github.com/commie294/T4t/internal/repo/postgres"
)

const testAdminChatID int64 = 9000

type memReportStore struct {
	nextID  int64
	reports map[int64]pgrepo.ReportRecord
}

func newMemReportStore() *memReportStore {
	return &memReportStore{nextID: 1, reports: make(map[int64]pgrepo.ReportRecord)}
}

func (m *memReportStore) Create(_ context.Context, _ pgx.Tx, reporterUserID, targetUserID int64, reason, details, evidenceKey string) (int64, error) {
	for _, rec := range m.reports {
		if rec.ReporterUserID == reporterUserID && rec.TargetUserID == targetUserID && rec.Status == "open" {
			return 0, pgrepo.ErrDuplicateOpenReport
		}
	}
	id := m.nextID
	m.nextID++
	m.reports[id] = pgrepo.ReportRecord{
		ID:             id,
		ReporterUserID: reporterUserID,
		TargetUserID:   targetUserID,
		Reason:         reason,
		Details:        details,
		EvidenceKey:    evidenceKey,
		Status:         "open",
		CreatedAt:      time.Now().UTC(),
	}
	return id, nil
}

func (m *memReportStore) GetByID(_ context.Context, reportID int64) (pgrepo.ReportRecord, error) {
	rec, ok := m.reports[reportID]
	if !ok {
		return pgrepo.ReportRecord{}, pgrepo.ErrReportNotFound
	}
	return rec, nil
}

func (m *memReportStore) Decide(_ context.Context, _ pgx.Tx, reportID int64, decision string, decidedBy int64) (pgrepo.ReportRecord, error) {
	rec, ok := m.reports[reportID]
	if !ok {
		return pgrepo.ReportRecord{}, pgrepo.ErrReportNotFound
	}
	if rec.Status != "open" {
		return pgrepo.ReportRecord{}, pgrepo.ErrReportDecided
	}
	now := time.Now().UTC()
	rec.Status = "decided"
	rec.Decision = decision
	rec.DecidedBy = decidedBy
	rec.DecidedAt = &now
	m.reports[reportID] = rec
	return rec, nil
}

func (m *memReportStore) ListOpen(_ context.Context, _ int) ([]pgrepo.ReportRecord, error) {
	var open []pgrepo.ReportRecord
	for id := int64(1); id < m.nextID; id++ {
		if rec, ok := m.reports[id]; ok && rec.Status == "open" {
			open = append(open, rec)
		}
	}
	return open, nil
}

type memModProfileStore struct {
	records map[int64]pgrepo.ProfileRecord
}

func (m *memModProfileStore) GetByUserID(_ context.Context, userID int64) (pgrepo.ProfileRecord, error) {
	rec, ok := m.records[userID]
	if !ok {
		return pgrepo.ProfileRecord{}, pgrepo.ErrProfileNotFound
	}
	return rec, nil
}

func (m *memModProfileStore) SetBlocked(_ context.Context, _ pgx.Tx, userID int64, reason string) error {
	rec, ok := m.records[userID]
	if !ok {
		return pgrepo.ErrProfileNotFound
	}
	rec.Blocked = true
	rec.BlockReason = reason
	m.records[userID] = rec
	return nil
}

type fakeArchiver struct {
	calls int
	err   error
}

func (f *fakeArchiver) Archive(_ context.Context, fileID string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "evidence/" + fileID + ".jpg", nil
}

type captureNotifier struct {
	sent map[int64][]string
	err  error
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{sent: make(map[int64][]string)}
}

func (n *captureNotifier) Notify(_ context.Context, userID int64, text string) error {
	if n.err != nil {
		return n.err
	}
	n.sent[userID] = append(n.sent[userID], text)
	return nil
}

type captureAdminNotifier struct {
	cards []struct {
		chatID   int64
		text     string
		reportID int64
	}
}

func (n *captureAdminNotifier) NotifyReport(_ context.Context, chatID int64, text string, reportID int64) error {
	n.cards = append(n.cards, struct {
		chatID   int64
		text     string
		reportID int64
	}{chatID, text, reportID})
	return nil
}

type fixture struct {
	svc      *Service
	reports  *memReportStore
	profiles *memModProfileStore
	archiver *fakeArchiver
	notifier *captureNotifier
}

func newFixture() *fixture {
	f := &fixture{
		reports: newMemReportStore(),
		profiles: &memModProfileStore{records: map[int64]pgrepo.ProfileRecord{
			1: {UserID: 1, DisplayName: "Алекс"},
			2: {UserID: 2, DisplayName: "Женя"},
		}},
		archiver: &fakeArchiver{},
		notifier: newCaptureNotifier(),
	}
	f.svc = NewService(Dependencies{
		Reports:  f.reports,
		Profiles: f.profiles,
		Evidence: f.archiver,
		Notifier: f.notifier,
		RunTx: func(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
			return fn(ctx, nil)
		},
	}, Config{AdminChatID: testAdminChatID}, nil)
	return f
}

func validReport() ReportInput {
	return ReportInput{
		ReporterUserID: 1,
		TargetUserID:   2,
		Reason:         enums.ReportReasonOther,
		Details:        "фейковая анкета",
		EvidenceFileID: "photo-77",
	}
}

func TestFileReportArchivesEvidenceAndNotifiesAdmin(t *testing.T) {
	f := newFixture()

	report, err := f.svc.FileReport(context.Background(), validReport())
	if err != nil {
		t.Fatalf("file report: %v", err)
	}
	if report.Status != enums.ReportStatusOpen {
		t.Fatalf("expected open report, got %s", report.Status)
	}
	if report.EvidenceKey != "evidence/photo-77.jpg" {
		t.Fatalf("unexpected evidence key: %q", report.EvidenceKey)
	}

	cards := f.notifier.sent[testAdminChatID]
	if len(cards) != 1 {
		t.Fatalf("expected one admin card, got %d", len(cards))
	}
	if !strings.Contains(cards[0], "фейковая анкета") {
		t.Fatalf("admin card must carry the reason text: %q", cards[0])
	}
}

func TestFileReportPrefersAdminCardWithDecisionControls(t *testing.T) {
	f := newFixture()
	admin := &captureAdminNotifier{}
	f.svc.admin = admin

	report, err := f.svc.FileReport(context.Background(), validReport())
	if err != nil {
		t.Fatalf("file report: %v", err)
	}

	if len(admin.cards) != 1 {
		t.Fatalf("expected one admin card, got %d", len(admin.cards))
	}
	card := admin.cards[0]
	if card.chatID != testAdminChatID || card.reportID != report.ID {
		t.Fatalf("unexpected admin card: %+v", card)
	}
	if len(f.notifier.sent[testAdminChatID]) != 0 {
		t.Fatalf("plain notifier must stay quiet when the card notifier is set")
	}
}

func TestFileReportSurvivesArchiveFailure(t *testing.T) {
	f := newFixture()
	f.archiver.err = errors.New("storage unavailable")

	report, err := f.svc.FileReport(context.Background(), validReport())
	if err != nil {
		t.Fatalf("file report with failing archiver: %v", err)
	}
	if report.EvidenceKey != "" {
		t.Fatalf("failed archive must leave the report without evidence, got %q", report.EvidenceKey)
	}
}

func TestFileReportDuplicateOpen(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.FileReport(ctx, validReport()); err != nil {
		t.Fatalf("first report: %v", err)
	}
	if _, err := f.svc.FileReport(ctx, validReport()); !errors.Is(err, ErrDuplicateReport) {
		t.Fatalf("expected ErrDuplicateReport, got %v", err)
	}
}

func TestFileReportAfterDecisionReopens(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.svc.FileReport(ctx, validReport())
	if err != nil {
		t.Fatalf("first report: %v", err)
	}
	if _, err := f.svc.Decide(ctx, testAdminChatID, first.ID, enums.ReportDecisionDismiss); err != nil {
		t.Fatalf("decide first report: %v", err)
	}

	// Only an open report blocks a new filing for the same pair.
	if _, err := f.svc.FileReport(ctx, validReport()); err != nil {
		t.Fatalf("report after decision: %v", err)
	}
}

func TestFileReportGuards(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	in := validReport()
	in.TargetUserID = in.ReporterUserID
	if _, err := f.svc.FileReport(ctx, in); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for self-report, got %v", err)
	}

	in = validReport()
	in.Reason = ""
	if _, err := f.svc.FileReport(ctx, in); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty reason, got %v", err)
	}

	in = validReport()
	in.TargetUserID = 99
	if _, err := f.svc.FileReport(ctx, in); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered for missing target, got %v", err)
	}
}

func TestDecideBlockFlagsProfileAndNotifiesTarget(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	filed, err := f.svc.FileReport(ctx, validReport())
	if err != nil {
		t.Fatalf("file report: %v", err)
	}

	decided, err := f.svc.Decide(ctx, testAdminChatID, filed.ID, enums.ReportDecisionBlock)
	if err != nil {
		t.Fatalf("decide report: %v", err)
	}
	if decided.Status != enums.ReportStatusDecided || decided.Decision != enums.ReportDecisionBlock {
		t.Fatalf("unexpected decided report: %+v", decided)
	}
	if decided.DecidedBy != testAdminChatID || decided.DecidedAt == nil {
		t.Fatalf("decision audit fields missing: %+v", decided)
	}

	target := f.profiles.records[2]
	if !target.Blocked {
		t.Fatalf("block decision must flag the target profile")
	}

	notes := f.notifier.sent[2]
	if len(notes) != 1 || !strings.Contains(notes[0], "заблокирована") {
		t.Fatalf("unexpected target notification: %+v", notes)
	}
}

func TestDecideWarnKeepsProfileActive(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	filed, err := f.svc.FileReport(ctx, validReport())
	if err != nil {
		t.Fatalf("file report: %v", err)
	}
	if _, err := f.svc.Decide(ctx, testAdminChatID, filed.ID, enums.ReportDecisionWarn); err != nil {
		t.Fatalf("decide report: %v", err)
	}

	if f.profiles.records[2].Blocked {
		t.Fatalf("warn decision must not block the profile")
	}
	notes := f.notifier.sent[2]
	if len(notes) != 1 || !strings.Contains(notes[0], "предупреждение") {
		t.Fatalf("unexpected target notification: %+v", notes)
	}
}

func TestDecideFirstDecisionWins(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	filed, err := f.svc.FileReport(ctx, validReport())
	if err != nil {
		t.Fatalf("file report: %v", err)
	}
	if _, err := f.svc.Decide(ctx, testAdminChatID, filed.ID, enums.ReportDecisionDismiss); err != nil {
		t.Fatalf("first decision: %v", err)
	}
	if _, err := f.svc.Decide(ctx, testAdminChatID, filed.ID, enums.ReportDecisionBlock); !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("expected ErrAlreadyDecided, got %v", err)
	}

	if f.profiles.records[2].Blocked {
		t.Fatalf("losing decision must not run its side effects")
	}
}

func TestDecideAuthorization(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	filed, err := f.svc.FileReport(ctx, validReport())
	if err != nil {
		t.Fatalf("file report: %v", err)
	}

	if _, err := f.svc.Decide(ctx, 123, filed.ID, enums.ReportDecisionBlock); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := f.svc.Decide(ctx, testAdminChatID, 404, enums.ReportDecisionBlock); !errors.Is(err, ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound, got %v", err)
	}
	if _, err := f.svc.Decide(ctx, testAdminChatID, filed.ID, enums.ReportDecision("ban")); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown decision, got %v", err)
	}
}

func TestListOpenReports(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.profiles.records[3] = pgrepo.ProfileRecord{UserID: 3, DisplayName: "Ким"}
	for _, target := range []int64{2, 3} {
		in := validReport()
		in.TargetUserID = target
		in.Details = fmt.Sprintf("report on %d", target)
		if _, err := f.svc.FileReport(ctx, in); err != nil {
			t.Fatalf("file report on %d: %v", target, err)
		}
	}

	open, err := f.svc.ListOpenReports(ctx, 10)
	if err != nil {
		t.Fatalf("list open reports: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("expected two open reports, got %d", len(open))
	}

	if _, err := f.svc.Decide(ctx, testAdminChatID, open[0].ID, enums.ReportDecisionDismiss); err != nil {
		t.Fatalf("decide report: %v", err)
	}
	open, err = f.svc.ListOpenReports(ctx, 10)
	if err != nil {
		t.Fatalf("list open reports: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("decided report must leave the queue, got %d", len(open))
	}
}
