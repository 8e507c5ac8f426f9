package dialog

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrAlreadyInDialogue = errors.New("dialogue already open")
	ErrNoDialogue        = errors.New("no open dialogue")
	ErrUnknownDialogue   = errors.New("unknown dialogue kind")
	ErrStateNotFound     = errors.New("dialog state not found")
)

type Kind string

const (
	KindRegistration Kind = "registration"
	KindEditProfile  Kind = "edit_profile"
	KindReport       Kind = "report"
)

// stepCommit marks a dialogue whose answers are all collected but whose
// storage commit has not succeeded yet. Advancing from here retries the
// commit without re-asking anything.
const stepCommit = "commit"

// State is the per-user scratch record. It lives outside the process so an
// open dialogue survives a restart.
type State struct {
	Kind      Kind              `json:"kind"`
	Step      string            `json:"step"`
	Values    map[string]string `json:"values"`
	StartedAt time.Time         `json:"started_at"`
}

// Input is one user answer: plain text or a photo reference.
type Input struct {
	Text        string
	PhotoFileID string
}

// Prompt is what the user should be asked next. Options, when present, are
// rendered as a one-time reply keyboard, one button per entry.
type Prompt struct {
	Text    string
	Options []string
}

type Result struct {
	Prompt    Prompt
	Committed bool
}

type Store interface {
	Get(ctx context.Context, userID int64) (State, error)
	Put(ctx context.Context, userID int64, state State) error
	Delete(ctx context.Context, userID int64) error
}

// CommitFunc persists all collected answers as one unit.
type CommitFunc func(ctx context.Context, userID int64, kind Kind, values map[string]string) error

type Service struct {
	store  Store
	commit CommitFunc
	flows  map[Kind]flow
	now    func() time.Time
}

func NewService(store Store, commit CommitFunc) *Service {
	return &Service{
		store:  store,
		commit: commit,
		flows:  builtinFlows(),
		now:    time.Now,
	}
}

// Begin opens the named dialogue at its first step. Seed values let the
// caller inject context the dialogue itself never asks for, e.g. the
// reported user id or the viewer's username.
func (s *Service) Begin(ctx context.Context, userID int64, kind Kind, seed map[string]string) (Prompt, error) {
	if userID <= 0 {
		return Prompt{}, ErrValidation
	}

	fl, ok := s.flows[kind]
	if !ok {
		return Prompt{}, ErrUnknownDialogue
	}

	if _, err := s.store.Get(ctx, userID); err == nil {
		return Prompt{}, ErrAlreadyInDialogue
	} else if !errors.Is(err, ErrStateNotFound) {
		return Prompt{}, fmt.Errorf("load dialog state: %w", err)
	}

	values := make(map[string]string, len(seed))
	for k, v := range seed {
		values[k] = v
	}

	state := State{
		Kind:      kind,
		Step:      fl.first,
		Values:    values,
		StartedAt: s.now().UTC(),
	}
	if err := s.store.Put(ctx, userID, state); err != nil {
		return Prompt{}, fmt.Errorf("save dialog state: %w", err)
	}

	return fl.steps[fl.first].prompt(values), nil
}

// Advance validates the input against the current step. Invalid input
// re-prompts without advancing; a valid terminal answer commits all scratch
// values atomically. A failed commit leaves the dialogue parked at the
// commit step so the next Advance retries it.
func (s *Service) Advance(ctx context.Context, userID int64, in Input) (Result, error) {
	if userID <= 0 {
		return Result{}, ErrValidation
	}

	state, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrStateNotFound) {
			return Result{}, ErrNoDialogue
		}
		return Result{}, fmt.Errorf("load dialog state: %w", err)
	}

	fl, ok := s.flows[state.Kind]
	if !ok {
		return Result{}, ErrUnknownDialogue
	}

	if state.Step == stepCommit {
		return s.finish(ctx, userID, fl, state)
	}

	step, ok := fl.steps[state.Step]
	if !ok {
		return Result{}, fmt.Errorf("dialog %q has no step %q", state.Kind, state.Step)
	}

	updates, errText := step.validate(in, state.Values)
	if errText != "" {
		return Result{Prompt: Prompt{Text: errText}}, nil
	}
	for k, v := range updates {
		state.Values[k] = v
	}

	nextID := step.next(state.Values)
	state.Step = nextID
	if err := s.store.Put(ctx, userID, state); err != nil {
		return Result{}, fmt.Errorf("save dialog state: %w", err)
	}

	if nextID == stepCommit {
		return s.finish(ctx, userID, fl, state)
	}

	return Result{Prompt: fl.steps[nextID].prompt(state.Values)}, nil
}

// Cancel discards the scratch state unconditionally, including when no
// dialogue is open.
func (s *Service) Cancel(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return ErrValidation
	}
	if err := s.store.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete dialog state: %w", err)
	}
	return nil
}

// Active reports whether the user has an open dialogue.
func (s *Service) Active(ctx context.Context, userID int64) (bool, error) {
	if userID <= 0 {
		return false, ErrValidation
	}
	if _, err := s.store.Get(ctx, userID); err != nil {
		if errors.Is(err, ErrStateNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load dialog state: %w", err)
	}
	return true, nil
}

func (s *Service) finish(ctx context.Context, userID int64, fl flow, state State) (Result, error) {
	if s.commit == nil {
		return Result{}, fmt.Errorf("dialog commit is not configured")
	}

	if err := s.commit(ctx, userID, state.Kind, state.Values); err != nil {
		return Result{}, fmt.Errorf("commit dialogue %q: %w", state.Kind, err)
	}

	if err := s.store.Delete(ctx, userID); err != nil {
		return Result{}, fmt.Errorf("release dialog state: %w", err)
	}

	return Result{
		Prompt:    Prompt{Text: fl.done(state.Values)},
		Committed: true,
	}, nil
}
