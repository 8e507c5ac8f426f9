package model

import (
	"time"

	"github.com/commie294/T4t/internal/domain/enums"
)

type Profile struct {
	UserID        int64        `json:"user_id"`
	Username      string       `json:"username"`
	DisplayName   string       `json:"display_name"`
	Age           int          `json:"age"`
	IsAdult       bool         `json:"is_adult"`
	Gender        enums.Gender `json:"gender"`
	GenderDetail  string       `json:"gender_detail"`
	City          string       `json:"city"`
	Bio           string       `json:"bio"`
	PhotoFileID   string       `json:"photo_file_id"`
	AgePreference string       `json:"age_preference"`
	Blocked       bool         `json:"blocked"`
	BlockReason   string       `json:"block_reason"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}
