package dto

import (
	"time"

	"github.com/commie294/T4t/internal/domain/model"
)

type ReportResponse struct {
	ID             int64      `json:"id"`
	ReporterUserID int64      `json:"reporter_user_id"`
	TargetUserID   int64      `json:"target_user_id"`
	Reason         string     `json:"reason"`
	Details        string     `json:"details,omitempty"`
	EvidenceKey    string     `json:"evidence_key,omitempty"`
	EvidenceURL    string     `json:"evidence_url,omitempty"`
	Status         string     `json:"status"`
	Decision       string     `json:"decision,omitempty"`
	DecidedBy      int64      `json:"decided_by,omitempty"`
	DecidedAt      *time.Time `json:"decided_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type ReportListResponse struct {
	Reports []ReportResponse `json:"reports"`
}

type DecisionRequest struct {
	Decision string `json:"decision"`
}

func NewReportResponse(report model.Report) ReportResponse {
	return ReportResponse{
		ID:             report.ID,
		ReporterUserID: report.ReporterUserID,
		TargetUserID:   report.TargetUserID,
		Reason:         string(report.Reason),
		Details:        report.Details,
		EvidenceKey:    report.EvidenceKey,
		Status:         string(report.Status),
		Decision:       string(report.Decision),
		DecidedBy:      report.DecidedBy,
		DecidedAt:      report.DecidedAt,
		CreatedAt:      report.CreatedAt,
	}
}
