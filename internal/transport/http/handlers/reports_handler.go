package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/commie294/T4t/internal/domain/enums"
	"github.com/commie294/T4t/internal/domain/model"
	modsvc "github.com/commie294/T4t/internal/services/moderation"
	"github.com/commie294/T4t/internal/transport/http/dto"
	httperrors "github.com/commie294/T4t/internal/transport/http/errors"
)

const evidenceLinkTTL = 15 * time.Minute

// Presigner hands out temporary download links for archived evidence.
type Presigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// ReportsHandler is the ops surface over the moderation queue. Decisions
// taken here are attributed to the configured admin chat.
type ReportsHandler struct {
	service     *modsvc.Service
	presigner   Presigner
	adminChatID int64
}

func NewReportsHandler(service *modsvc.Service, presigner Presigner, adminChatID int64) *ReportsHandler {
	return &ReportsHandler{
		service:     service,
		presigner:   presigner,
		adminChatID: adminChatID,
	}
}

func (h *ReportsHandler) ListOpen(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "MODERATION_SERVICE_UNAVAILABLE", "moderation service is unavailable")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeBadRequest(w, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		limit = n
	}

	reports, err := h.service.ListOpenReports(r.Context(), limit)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to list open reports")
		return
	}

	resp := dto.ReportListResponse{Reports: make([]dto.ReportResponse, 0, len(reports))}
	for _, report := range reports {
		resp.Reports = append(resp.Reports, h.toResponse(r.Context(), report))
	}

	httperrors.Write(w, http.StatusOK, resp)
}

func (h *ReportsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "MODERATION_SERVICE_UNAVAILABLE", "moderation service is unavailable")
		return
	}

	reportID, ok := parseReportID(w, r)
	if !ok {
		return
	}

	report, err := h.service.GetReport(r.Context(), reportID)
	if err != nil {
		if errors.Is(err, modsvc.ErrReportNotFound) {
			httperrors.Write(w, http.StatusNotFound, httperrors.APIError{
				Code:    "REPORT_NOT_FOUND",
				Message: "report not found",
			})
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load report")
		return
	}

	httperrors.Write(w, http.StatusOK, h.toResponse(r.Context(), report))
}

func (h *ReportsHandler) Decide(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "MODERATION_SERVICE_UNAVAILABLE", "moderation service is unavailable")
		return
	}

	reportID, ok := parseReportID(w, r)
	if !ok {
		return
	}

	var req dto.DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "INVALID_BODY", "request body must be valid json")
		return
	}

	report, err := h.service.Decide(r.Context(), h.adminChatID, reportID, enums.ReportDecision(req.Decision))
	if err != nil {
		switch {
		case errors.Is(err, modsvc.ErrValidation):
			writeBadRequest(w, "INVALID_DECISION", "decision must be block, warn or dismiss")
		case errors.Is(err, modsvc.ErrReportNotFound):
			httperrors.Write(w, http.StatusNotFound, httperrors.APIError{
				Code:    "REPORT_NOT_FOUND",
				Message: "report not found",
			})
		case errors.Is(err, modsvc.ErrAlreadyDecided):
			httperrors.Write(w, http.StatusConflict, httperrors.APIError{
				Code:    "ALREADY_DECIDED",
				Message: "report is already decided",
			})
		case errors.Is(err, modsvc.ErrUnauthorized):
			writeUnauthorized(w, "UNAUTHORIZED", "decision not authorized")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to decide report")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, h.toResponse(r.Context(), report))
}

func (h *ReportsHandler) toResponse(ctx context.Context, report model.Report) dto.ReportResponse {
	resp := dto.NewReportResponse(report)
	if h.presigner != nil && report.EvidenceKey != "" {
		if link, err := h.presigner.PresignGet(ctx, report.EvidenceKey, evidenceLinkTTL); err == nil {
			resp.EvidenceURL = link
		}
	}
	return resp
}

func parseReportID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, "INVALID_REPORT_ID", "report id must be a positive integer")
		return 0, false
	}
	return id, true
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{Code: code, Message: message})
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{Code: code, Message: message})
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{Code: code, Message: message})
}
