package interactions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	pgrepo "github.com/commie294/T4t/internal/repo/postgres"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrNotRegistered = errors.New("profile is not registered")
	ErrBlocked       = errors.New("profile is blocked")
	ErrTargetBlocked = errors.New("target profile is blocked")
	ErrAlreadyLiked  = errors.New("like already recorded")
)

type ProfileStore interface {
	GetByUserID(ctx context.Context, userID int64) (pgrepo.ProfileRecord, error)
}

type LikeStore interface {
	// LockPair serializes concurrent likes on the same unordered pair for
	// the lifetime of the transaction.
	LockPair(ctx context.Context, tx pgx.Tx, userID, targetID int64) error
	Create(ctx context.Context, tx pgx.Tx, fromUserID, toUserID int64) (bool, error)
}

type MatchStore interface {
	CreateIfMutualLike(ctx context.Context, tx pgx.Tx, userID, targetID int64) (bool, error)
	ListForUser(ctx context.Context, userID int64, limit int) ([]pgrepo.MatchRecord, error)
}

// Notifier delivers a plain text message to a user. Delivery failures after
// a committed match are logged and swallowed.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

type Dependencies struct {
	Pool     *pgxpool.Pool
	Profiles ProfileStore
	Likes    LikeStore
	Matches  MatchStore
	Notifier Notifier

	// RunTx overrides the transaction runner. Tests use it to drive the
	// service against in-memory stores.
	RunTx func(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}

// MatchView is one row of a user's match listing, resolved to the
// counterpart's display profile.
type MatchView struct {
	MatchID       int64
	CounterpartID int64
	Username      string
	DisplayName   string
	Age           int
	City          string
	CreatedAt     time.Time
}

type Service struct {
	profiles ProfileStore
	likes    LikeStore
	matches  MatchStore
	notifier Notifier
	logger   *zap.Logger

	runTx func(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}

func NewService(deps Dependencies, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		profiles: deps.Profiles,
		likes:    deps.Likes,
		matches:  deps.Matches,
		notifier: deps.Notifier,
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

// Like records a directed like and promotes the pair to a match when the
// reciprocal like already exists. Both writes happen in one transaction so
// a mutual like can never produce a like without its match.
func (s *Service) Like(ctx context.Context, userID, targetID int64) (bool, error) {
	if userID <= 0 || targetID <= 0 || userID == targetID {
		return false, ErrValidation
	}

	requester, err := s.loadProfile(ctx, userID)
	if err != nil {
		return false, err
	}
	if requester.Blocked {
		return false, ErrBlocked
	}

	target, err := s.loadProfile(ctx, targetID)
	if err != nil {
		return false, err
	}
	if target.Blocked {
		return false, ErrTargetBlocked
	}

	var matched bool
	err = s.runTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		// Both directions of a near-simultaneous mutual like must see each
		// other; without the pair lock two READ COMMITTED snapshots could
		// each miss the other's uncommitted insert and promote no match.
		if err := s.likes.LockPair(ctx, tx, userID, targetID); err != nil {
			return fmt.Errorf("lock like pair: %w", err)
		}

		created, err := s.likes.Create(ctx, tx, userID, targetID)
		if err != nil {
			return fmt.Errorf("create like: %w", err)
		}
		if !created {
			return ErrAlreadyLiked
		}

		matched, err = s.matches.CreateIfMutualLike(ctx, tx, userID, targetID)
		if err != nil {
			return fmt.Errorf("promote mutual like: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyLiked) {
			return false, ErrAlreadyLiked
		}
		return false, err
	}

	if matched {
		s.notifyMatch(ctx, userID, target.DisplayName)
		s.notifyMatch(ctx, targetID, requester.DisplayName)
	}

	return matched, nil
}

// ListMatches returns the user's matches, newest first. Counterparts that
// were blocked after the match are not listed.
func (s *Service) ListMatches(ctx context.Context, userID int64, limit int) ([]MatchView, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}

	if _, err := s.loadProfile(ctx, userID); err != nil {
		return nil, err
	}

	records, err := s.matches.ListForUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}

	views := make([]MatchView, 0, len(records))
	for _, rec := range records {
		views = append(views, MatchView{
			MatchID:       rec.ID,
			CounterpartID: rec.CounterpartID,
			Username:      rec.Username,
			DisplayName:   rec.DisplayName,
			Age:           rec.Age,
			City:          rec.City,
			CreatedAt:     rec.CreatedAt,
		})
	}

	return views, nil
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

func (s *Service) notifyMatch(ctx context.Context, userID int64, counterpartName string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, "У вас мэтч с "+counterpartName+"!"); err != nil {
		s.logger.Warn("match notification failed",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}
}
