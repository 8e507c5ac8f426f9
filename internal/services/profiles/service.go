package profiles

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/commie294/T4t/internal/domain/enums"
	"github.com/commie294/T4t/internal/domain/model"
	"github.com/commie294/T4t/internal/domain/rules"
	"github.com/commie294/T4t/internal/pkg/validate"
	pgrepo "github.com/commie294/T4t/internal/repo/postgres"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrNotRegistered = errors.New("profile is not registered")
	ErrUnknownField  = errors.New("unknown profile field")
)

type Store interface {
	Upsert(ctx context.Context, rec pgrepo.ProfileRecord) error
	GetByUserID(ctx context.Context, userID int64) (pgrepo.ProfileRecord, error)
}

// Input carries everything a registration dialogue collects.
type Input struct {
	Username      string
	DisplayName   string
	Age           int
	Gender        enums.Gender
	GenderDetail  string
	City          string
	Bio           string
	PhotoFileID   string
	AgePreference string
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Save validates and persists a full profile. The adult flag is always
// derived from the age here so it can never drift.
func (s *Service) Save(ctx context.Context, userID int64, in Input) (model.Profile, error) {
	if userID <= 0 {
		return model.Profile{}, ErrValidation
	}
	if !validate.Required(in.DisplayName) {
		return model.Profile{}, ErrValidation
	}
	if !rules.ValidAge(in.Age) {
		return model.Profile{}, ErrValidation
	}
	if !validate.Required(in.PhotoFileID) {
		return model.Profile{}, ErrValidation
	}

	isAdult := rules.IsAdult(in.Age)
	pref := strings.TrimSpace(in.AgePreference)
	if pref != "" {
		if !isAdult {
			return model.Profile{}, ErrValidation
		}
		if _, ok := rules.ParseAgeBucket(pref); !ok {
			return model.Profile{}, ErrValidation
		}
	}

	rec := pgrepo.ProfileRecord{
		UserID:        userID,
		Username:      strings.TrimSpace(in.Username),
		DisplayName:   strings.TrimSpace(in.DisplayName),
		Age:           in.Age,
		IsAdult:       isAdult,
		Gender:        string(in.Gender),
		GenderDetail:  strings.TrimSpace(in.GenderDetail),
		City:          strings.TrimSpace(in.City),
		Bio:           strings.TrimSpace(in.Bio),
		PhotoFileID:   strings.TrimSpace(in.PhotoFileID),
		AgePreference: pref,
	}
	if err := s.store.Upsert(ctx, rec); err != nil {
		return model.Profile{}, fmt.Errorf("save profile: %w", err)
	}

	return s.Get(ctx, userID)
}

func (s *Service) Get(ctx context.Context, userID int64) (model.Profile, error) {
	if userID <= 0 {
		return model.Profile{}, ErrValidation
	}

	rec, err := s.store.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrProfileNotFound) {
			return model.Profile{}, ErrNotRegistered
		}
		return model.Profile{}, fmt.Errorf("get profile: %w", err)
	}

	return mapRecord(rec), nil
}

// UpdateField applies a single-field edit from the edit dialogue. Editing
// the age re-derives the adult flag and drops the age preference when the
// profile leaves the adult partition.
func (s *Service) UpdateField(ctx context.Context, userID int64, field, value string) (model.Profile, error) {
	if userID <= 0 {
		return model.Profile{}, ErrValidation
	}

	rec, err := s.store.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrProfileNotFound) {
			return model.Profile{}, ErrNotRegistered
		}
		return model.Profile{}, fmt.Errorf("load profile for edit: %w", err)
	}

	value = strings.TrimSpace(value)
	switch field {
	case "name":
		if value == "" {
			return model.Profile{}, ErrValidation
		}
		rec.DisplayName = value
	case "age":
		age, convErr := strconv.Atoi(value)
		if convErr != nil || !rules.ValidAge(age) {
			return model.Profile{}, ErrValidation
		}
		rec.Age = age
		rec.IsAdult = rules.IsAdult(age)
		if !rec.IsAdult {
			rec.AgePreference = ""
		}
	case "city":
		rec.City = value
	case "photo_file_id":
		if value == "" {
			return model.Profile{}, ErrValidation
		}
		rec.PhotoFileID = value
	case "bio":
		if value == "" {
			return model.Profile{}, ErrValidation
		}
		rec.Bio = value
	case "age_preference":
		if !rec.IsAdult {
			return model.Profile{}, ErrValidation
		}
		if _, ok := rules.ParseAgeBucket(value); !ok {
			return model.Profile{}, ErrValidation
		}
		rec.AgePreference = value
	default:
		return model.Profile{}, ErrUnknownField
	}

	if err := s.store.Upsert(ctx, rec); err != nil {
		return model.Profile{}, fmt.Errorf("save edited profile: %w", err)
	}

	return mapRecord(rec), nil
}

// UpdateGender replaces the gender label and its free-text detail together.
func (s *Service) UpdateGender(ctx context.Context, userID int64, gender enums.Gender, detail string) (model.Profile, error) {
	if userID <= 0 || gender == "" {
		return model.Profile{}, ErrValidation
	}

	rec, err := s.store.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrProfileNotFound) {
			return model.Profile{}, ErrNotRegistered
		}
		return model.Profile{}, fmt.Errorf("load profile for edit: %w", err)
	}

	rec.Gender = string(gender)
	rec.GenderDetail = strings.TrimSpace(detail)
	if gender != enums.GenderOther {
		rec.GenderDetail = ""
	}

	if err := s.store.Upsert(ctx, rec); err != nil {
		return model.Profile{}, fmt.Errorf("save edited profile: %w", err)
	}

	return mapRecord(rec), nil
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
