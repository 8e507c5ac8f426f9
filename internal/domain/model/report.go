package model

import (
	"time"

	"github.com/commie294/T4t/internal/domain/enums"
)

type Report struct {
	ID             int64                `json:"id"`
	ReporterUserID int64                `json:"reporter_user_id"`
	TargetUserID   int64                `json:"target_user_id"`
	Reason         enums.ReportReason   `json:"reason"`
	Details        string               `json:"details"`
	EvidenceKey    string               `json:"evidence_key"`
	Status         enums.ReportStatus   `json:"status"`
	Decision       enums.ReportDecision `json:"decision"`
	DecidedBy      int64                `json:"decided_by"`
	DecidedAt      *time.Time           `json:"decided_at"`
	CreatedAt      time.Time            `json:"created_at"`
}
