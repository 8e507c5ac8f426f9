package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/commie294/T4t/internal/domain/enums"
	"github.com/commie294/T4t/internal/domain/model"
	"github.com/commie294/T4t/internal/domain/rules"
	pgrepo "github.com/commie294/T4t/internal/repo/postgres"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrNotRegistered = errors.New("profile is not registered")
	ErrBlocked       = errors.New("profile is blocked")
	ErrNoCandidates  = errors.New("no candidates available")
)

type ProfileStore interface {
	GetByUserID(ctx context.Context, userID int64) (pgrepo.ProfileRecord, error)
}

type CandidateStore interface {
	PickRandom(ctx context.Context, q pgrepo.CandidateQuery) (pgrepo.ProfileRecord, error)
}

type ViewStore interface {
	Upsert(ctx context.Context, viewerUserID, seenUserID int64, at time.Time) error
}

type Config struct {
	// ViewCooldown is the re-surfacing window: candidates shown within it
	// are skipped on the first pass and come back only when the pool is
	// otherwise empty.
	ViewCooldown time.Duration
}

type Dependencies struct {
	Profiles   ProfileStore
	Candidates CandidateStore
	Views      ViewStore
}

type Service struct {
	profiles   ProfileStore
	candidates CandidateStore
	views      ViewStore
	cfg        Config
	now        func() time.Time
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.ViewCooldown <= 0 {
		cfg.ViewCooldown = 24 * time.Hour
	}
	return &Service{
		profiles:   deps.Profiles,
		candidates: deps.Candidates,
		views:      deps.Views,
		cfg:        cfg,
		now:        time.Now,
	}
}

// NextCandidate picks one eligible profile for the requester. Recency is a
// soft preference: if excluding recently shown profiles empties the pool,
// the query runs again without that exclusion before giving up.
func (s *Service) NextCandidate(ctx context.Context, requesterID int64, mode enums.CityMode) (model.Profile, error) {
	if requesterID <= 0 {
		return model.Profile{}, ErrValidation
	}

	requester, err := s.profiles.GetByUserID(ctx, requesterID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrProfileNotFound) {
			return model.Profile{}, ErrNotRegistered
		}
		return model.Profile{}, fmt.Errorf("load requester profile: %w", err)
	}
	if requester.Blocked {
		return model.Profile{}, ErrBlocked
	}

	query := s.buildQuery(requester, mode)

	cutoff := s.now().UTC().Add(-s.cfg.ViewCooldown)
	query.ShownCutoff = &cutoff

	candidate, err := s.candidates.PickRandom(ctx, query)
	if errors.Is(err, pgrepo.ErrNoCandidate) {
		query.ShownCutoff = nil
		candidate, err = s.candidates.PickRandom(ctx, query)
	}
	if err != nil {
		if errors.Is(err, pgrepo.ErrNoCandidate) {
			return model.Profile{}, ErrNoCandidates
		}
		return model.Profile{}, fmt.Errorf("pick candidate: %w", err)
	}

	if err := s.views.Upsert(ctx, requesterID, candidate.UserID, s.now().UTC()); err != nil {
		return model.Profile{}, fmt.Errorf("record profile view: %w", err)
	}

	return mapRecord(candidate), nil
}

func (s *Service) buildQuery(requester pgrepo.ProfileRecord, mode enums.CityMode) pgrepo.CandidateQuery {
	query := pgrepo.CandidateQuery{
		ViewerUserID: requester.UserID,
		IsAdult:      requester.IsAdult,
	}

	if requester.IsAdult && requester.AgePreference != "" {
		if bucket, ok := rules.ParseAgeBucket(requester.AgePreference); ok {
			query.AgeMin = bucket.Min
			query.AgeMax = bucket.Max
		}
	}

	switch mode {
	case enums.CityModeSame:
		query.SameCity = requester.City
	case enums.CityModeOther:
		query.OtherCity = requester.City
	}

	return query
}

func mapRecord(rec pgrepo.ProfileRecord) model.Profile {
	return model.Profile{
		UserID:        rec.UserID,
		Username:      rec.Username,
		DisplayName:   rec.DisplayName,
		Age:           rec.Age,
		IsAdult:       rec.IsAdult,
		Gender:        enums.Gender(rec.Gender),
		GenderDetail:  rec.GenderDetail,
		City:          rec.City,
		Bio:           rec.Bio,
		PhotoFileID:   rec.PhotoFileID,
		AgePreference: rec.AgePreference,
		Blocked:       rec.Blocked,
		BlockReason:   rec.BlockReason,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}
