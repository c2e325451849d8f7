package handler

import (
	"net/http"
	"sort"

	"pollgen/internal/model"
	"pollgen/internal/service"

	"github.com/gorilla/mux"
)

// ReportHandler serves persisted session reports.
type ReportHandler struct {
	reportSvc *service.ReportService
}

// NewReportHandler creates a new report handler.
func NewReportHandler(reportSvc *service.ReportService) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc}
}

// rankedResult decorates a stored result with its display-time rank.
type rankedResult struct {
	Rank int `json:"rank"`
	model.StudentResult
}

// Get handles GET /v1/reports/{sessionId}
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	report, err := h.reportSvc.GetReport(r.Context(), mux.Vars(r)["sessionId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// Rank is derived at read time, never stored.
	sorted := make([]model.StudentResult, len(report.StudentResults))
	copy(sorted, report.StudentResults)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TotalPoints > sorted[j].TotalPoints
	})

	results := make([]rankedResult, len(sorted))
	for i, res := range sorted {
		results[i] = rankedResult{Rank: i + 1, StudentResult: res}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":             report.ID,
		"sessionId":      report.SessionID,
		"sessionName":    report.SessionName,
		"sessionEndedAt": report.SessionEndedAt,
		"studentResults": results,
	})
}
