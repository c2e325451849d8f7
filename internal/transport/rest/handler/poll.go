package handler

import (
	"encoding/json"
	"net/http"

	"pollgen/internal/service"
	"pollgen/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
)

// PollHandler handles poll definition endpoints.
type PollHandler struct {
	pollSvc *service.PollService
}

// NewPollHandler creates a new poll handler.
func NewPollHandler(pollSvc *service.PollService) *PollHandler {
	return &PollHandler{pollSvc: pollSvc}
}

// Create handles POST /v1/rooms/{code}/polls
func (h *PollHandler) Create(w http.ResponseWriter, r *http.Request) {
	hostID := middleware.GetHostID(r.Context())

	var in service.CreatePollInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	poll, err := h.pollSvc.CreatePoll(r.Context(), hostID, mux.Vars(r)["code"], in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, poll)
}

// List handles GET /v1/rooms/{code}/polls
func (h *PollHandler) List(w http.ResponseWriter, r *http.Request) {
	hostID := middleware.GetHostID(r.Context())

	polls, err := h.pollSvc.ListPolls(r.Context(), hostID, mux.Vars(r)["code"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"polls": polls})
}

// Delete handles DELETE /v1/rooms/{code}/polls/{pollId}
func (h *PollHandler) Delete(w http.ResponseWriter, r *http.Request) {
	hostID := middleware.GetHostID(r.Context())
	vars := mux.Vars(r)

	if err := h.pollSvc.DeletePoll(r.Context(), hostID, vars["code"], vars["pollId"]); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
