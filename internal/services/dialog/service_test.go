package dialog

import (
	"context"
	"errors"
	"testing"
)

type memStore struct {
	states map[int64]State
}

func newMemStore() *memStore {
	return &memStore{states: make(map[int64]State)}
}

func (m *memStore) Get(_ context.Context, userID int64) (State, error) {
	state, ok := m.states[userID]
	if !ok {
		return State{}, ErrStateNotFound
	}
	return state, nil
}

func (m *memStore) Put(_ context.Context, userID int64, state State) error {
	m.states[userID] = state
	return nil
}

func (m *memStore) Delete(_ context.Context, userID int64) error {
	delete(m.states, userID)
	return nil
}

type commitRecorder struct {
	failures   int
	calls      int
	lastUserID int64
	lastKind   Kind
	lastValues map[string]string
}

func (c *commitRecorder) commit(_ context.Context, userID int64, kind Kind, values map[string]string) error {
	c.calls++
	if c.failures > 0 {
		c.failures--
		return errors.New("storage unavailable")
	}
	c.lastUserID = userID
	c.lastKind = kind
	c.lastValues = map[string]string{}
	for k, v := range values {
		c.lastValues[k] = v
	}
	return nil
}

func advanceText(t *testing.T, svc *Service, userID int64, text string) Result {
	t.Helper()
	res, err := svc.Advance(context.Background(), userID, Input{Text: text})
	if err != nil {
		t.Fatalf("advance with %q: %v", text, err)
	}
	return res
}

func TestRegistrationAdultFullPath(t *testing.T) {
	store := newMemStore()
	rec := &commitRecorder{}
	svc := NewService(store, rec.commit)
	ctx := context.Background()

	prompt, err := svc.Begin(ctx, 100, KindRegistration, map[string]string{KeyUsername: "alexfox"})
	if err != nil {
		t.Fatalf("begin registration: %v", err)
	}
	if prompt.Text == "" {
		t.Fatalf("expected first prompt text")
	}

	advanceText(t, svc, 100, "Алекс")
	advanceText(t, svc, 100, "25")

	res := advanceText(t, svc, 100, "26-35")
	if len(res.Prompt.Options) != 4 {
		t.Fatalf("expected gender keyboard after age preference, got %+v", res.Prompt)
	}

	advanceText(t, svc, 100, "Другое")
	advanceText(t, svc, 100, "агендер")

	res, err = svc.Advance(ctx, 100, Input{PhotoFileID: "photo-abc"})
	if err != nil {
		t.Fatalf("advance with photo: %v", err)
	}
	if res.Committed {
		t.Fatalf("dialogue must not commit at photo step")
	}

	advanceText(t, svc, 100, "Люблю горы и настолки")

	final := advanceText(t, svc, 100, "Any")
	if !final.Committed {
		t.Fatalf("expected commit at city step, got %+v", final)
	}

	if rec.lastUserID != 100 || rec.lastKind != KindRegistration {
		t.Fatalf("unexpected commit target: user=%d kind=%s", rec.lastUserID, rec.lastKind)
	}
	want := map[string]string{
		KeyUsername:      "alexfox",
		KeyName:          "Алекс",
		KeyAge:           "25",
		KeyAgePreference: "26-35",
		KeyGender:        "other",
		KeyGenderDetail:  "агендер",
		KeyPhoto:         "photo-abc",
		KeyBio:           "Люблю горы и настолки",
		KeyCity:          "",
	}
	for k, v := range want {
		if rec.lastValues[k] != v {
			t.Fatalf("committed value %s = %q, want %q", k, rec.lastValues[k], v)
		}
	}

	if _, ok := store.states[100]; ok {
		t.Fatalf("scratch state must be released after commit")
	}
}

func TestRegistrationMinorSkipsAgePreference(t *testing.T) {
	store := newMemStore()
	rec := &commitRecorder{}
	svc := NewService(store, rec.commit)

	if _, err := svc.Begin(context.Background(), 200, KindRegistration, nil); err != nil {
		t.Fatalf("begin registration: %v", err)
	}

	advanceText(t, svc, 200, "Женя")
	res := advanceText(t, svc, 200, "17")
	if len(res.Prompt.Options) != 4 {
		t.Fatalf("minor must go straight to gender keyboard, got %+v", res.Prompt)
	}
	if store.states[200].Step != "gender" {
		t.Fatalf("unexpected step for minor: %s", store.states[200].Step)
	}
}

func TestAgeStepRepromptsAndNeverAdvances(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, (&commitRecorder{}).commit)

	if _, err := svc.Begin(context.Background(), 300, KindRegistration, nil); err != nil {
		t.Fatalf("begin registration: %v", err)
	}
	advanceText(t, svc, 300, "Ким")

	for _, input := range []string{"15", "101", "0", "сто", "-5"} {
		res := advanceText(t, svc, 300, input)
		if res.Committed {
			t.Fatalf("invalid age %q must not commit", input)
		}
		if store.states[300].Step != "age" {
			t.Fatalf("invalid age %q advanced the dialogue to %s", input, store.states[300].Step)
		}
		if res.Prompt.Text == "" {
			t.Fatalf("expected re-prompt text for %q", input)
		}
	}

	advanceText(t, svc, 300, "16")
	if store.states[300].Step != "gender" {
		t.Fatalf("age 16 must advance to gender, got %s", store.states[300].Step)
	}
}

func TestBeginRejectsSecondDialogue(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, (&commitRecorder{}).commit)
	ctx := context.Background()

	if _, err := svc.Begin(ctx, 400, KindRegistration, nil); err != nil {
		t.Fatalf("begin first dialogue: %v", err)
	}
	if _, err := svc.Begin(ctx, 400, KindReport, nil); !errors.Is(err, ErrAlreadyInDialogue) {
		t.Fatalf("expected ErrAlreadyInDialogue, got %v", err)
	}

	if err := svc.Cancel(ctx, 400); err != nil {
		t.Fatalf("cancel dialogue: %v", err)
	}
	if _, err := svc.Begin(ctx, 400, KindReport, map[string]string{KeyReportedID: "555"}); err != nil {
		t.Fatalf("begin after cancel: %v", err)
	}
}

func TestCancelWithoutDialogueSucceeds(t *testing.T) {
	svc := NewService(newMemStore(), (&commitRecorder{}).commit)
	if err := svc.Cancel(context.Background(), 999); err != nil {
		t.Fatalf("cancel without open dialogue: %v", err)
	}
}

func TestCommitFailureKeepsDialogueAtTerminalStep(t *testing.T) {
	store := newMemStore()
	rec := &commitRecorder{failures: 1}
	svc := NewService(store, rec.commit)
	ctx := context.Background()

	if _, err := svc.Begin(ctx, 500, KindReport, map[string]string{KeyReportedID: "42"}); err != nil {
		t.Fatalf("begin report: %v", err)
	}
	advanceText(t, svc, 500, "спам и оскорбления")

	if _, err := svc.Advance(ctx, 500, Input{Text: "Пропустить"}); err == nil {
		t.Fatalf("expected commit failure to surface")
	}

	state, ok := store.states[500]
	if !ok {
		t.Fatalf("scratch state must survive a failed commit")
	}
	if state.Step != stepCommit {
		t.Fatalf("dialogue must park at the commit step, got %s", state.Step)
	}

	// Retry with arbitrary input re-runs only the commit.
	res, err := svc.Advance(ctx, 500, Input{Text: "что угодно"})
	if err != nil {
		t.Fatalf("retry commit: %v", err)
	}
	if !res.Committed {
		t.Fatalf("expected successful commit on retry")
	}
	if rec.calls != 2 {
		t.Fatalf("expected exactly two commit attempts, got %d", rec.calls)
	}
	if rec.lastValues[KeyReason] != "спам и оскорбления" || rec.lastValues[KeyReportedID] != "42" {
		t.Fatalf("unexpected committed report values: %+v", rec.lastValues)
	}
}

func TestReportFlowWithEvidencePhoto(t *testing.T) {
	store := newMemStore()
	rec := &commitRecorder{}
	svc := NewService(store, rec.commit)
	ctx := context.Background()

	if _, err := svc.Begin(ctx, 600, KindReport, map[string]string{KeyReportedID: "77"}); err != nil {
		t.Fatalf("begin report: %v", err)
	}
	advanceText(t, svc, 600, "фейковая анкета")

	res, err := svc.Advance(ctx, 600, Input{PhotoFileID: "evidence-1"})
	if err != nil {
		t.Fatalf("advance with evidence: %v", err)
	}
	if !res.Committed {
		t.Fatalf("expected commit after evidence")
	}
	if rec.lastValues[KeyEvidence] != "evidence-1" {
		t.Fatalf("unexpected evidence value: %q", rec.lastValues[KeyEvidence])
	}
}

func TestEditProfileAgeBranch(t *testing.T) {
	store := newMemStore()
	rec := &commitRecorder{}
	svc := NewService(store, rec.commit)
	ctx := context.Background()

	if _, err := svc.Begin(ctx, 700, KindEditProfile, map[string]string{KeyIsAdult: "true"}); err != nil {
		t.Fatalf("begin edit: %v", err)
	}

	advanceText(t, svc, 700, "Возраст")
	res := advanceText(t, svc, 700, "29")
	if !res.Committed {
		t.Fatalf("expected commit after single-field edit")
	}
	if rec.lastValues[KeyField] != KeyAge || rec.lastValues[KeyValue] != "29" {
		t.Fatalf("unexpected edit commit values: %+v", rec.lastValues)
	}
}

func TestEditProfileGenderOtherBranch(t *testing.T) {
	store := newMemStore()
	rec := &commitRecorder{}
	svc := NewService(store, rec.commit)
	ctx := context.Background()

	if _, err := svc.Begin(ctx, 800, KindEditProfile, nil); err != nil {
		t.Fatalf("begin edit: %v", err)
	}

	advanceText(t, svc, 800, "Пол")
	advanceText(t, svc, 800, "Другое")
	res := advanceText(t, svc, 800, "квир")
	if !res.Committed {
		t.Fatalf("expected commit after gender detail")
	}
	if rec.lastValues[KeyGender] != "other" || rec.lastValues[KeyGenderDetail] != "квир" {
		t.Fatalf("unexpected gender edit values: %+v", rec.lastValues)
	}
}

func TestAdvanceWithoutDialogue(t *testing.T) {
	svc := NewService(newMemStore(), (&commitRecorder{}).commit)
	if _, err := svc.Advance(context.Background(), 1, Input{Text: "привет"}); !errors.Is(err, ErrNoDialogue) {
		t.Fatalf("expected ErrNoDialogue, got %v", err)
	}
}

func TestActiveReflectsOpenDialogue(t *testing.T) {
	svc := NewService(newMemStore(), (&commitRecorder{}).commit)
	ctx := context.Background()

	active, err := svc.Active(ctx, 900)
	if err != nil || active {
		t.Fatalf("expected no active dialogue, got active=%v err=%v", active, err)
	}

	if _, err := svc.Begin(ctx, 900, KindRegistration, nil); err != nil {
		t.Fatalf("begin registration: %v", err)
	}

	active, err = svc.Active(ctx, 900)
	if err != nil || !active {
		t.Fatalf("expected active dialogue, got active=%v err=%v", active, err)
	}
}
