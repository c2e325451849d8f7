package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"pollgen/internal/cache"
	"pollgen/internal/model"
	"pollgen/internal/service"
	"pollgen/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
)

// RoomHandler handles room endpoints.
type RoomHandler struct {
	roomSvc     *service.RoomService
	reportSvc   *service.ReportService
	leaderboard cache.LeaderboardCache
}

// NewRoomHandler creates a new room handler.
func NewRoomHandler(roomSvc *service.RoomService, reportSvc *service.ReportService, leaderboard cache.LeaderboardCache) *RoomHandler {
	return &RoomHandler{
		roomSvc:     roomSvc,
		reportSvc:   reportSvc,
		leaderboard: leaderboard,
	}
}

// CreateRoomRequest is the request body for creating a room.
type CreateRoomRequest struct {
	Name string `json:"name"`
}

// Create handles POST /v1/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	hostID := middleware.GetHostID(r.Context())

	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	room, err := h.roomSvc.CreateRoom(r.Context(), hostID, req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"room":        room,
		"displayCode": model.FormatCode(room.Code),
	})
}

// GetActive handles GET /v1/rooms/active
func (h *RoomHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	hostID := middleware.GetHostID(r.Context())

	room, err := h.roomSvc.GetActiveRoomForHost(r.Context(), hostID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// Get handles GET /v1/rooms/{code}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	room, err := h.roomSvc.GetRoomByCode(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// JoinRequest is the request body for joining a room.
type JoinRequest struct {
	Name string `json:"name"`
}

// Join handles POST /v1/rooms/{code}/join
func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.roomSvc.JoinRoom(r.Context(), mux.Vars(r)["code"], req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// End handles POST /v1/rooms/{code}/end
func (h *RoomHandler) End(w http.ResponseWriter, r *http.Request) {
	hostID := middleware.GetHostID(r.Context())

	report, err := h.reportSvc.EndSession(r.Context(), mux.Vars(r)["code"], hostID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Leaderboard handles GET /v1/rooms/{code}/leaderboard
func (h *RoomHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	code := model.NormalizeCode(mux.Vars(r)["code"])

	top := 20
	if s := r.URL.Query().Get("top"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			top = n
		}
	}

	entries, err := h.leaderboard.GetTop(r.Context(), code, top)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]interface{}{"leaderboard": entries}
	// A student passes their own id to learn their rank even when they
	// fall outside the requested top slice.
	if sid := r.URL.Query().Get("studentId"); sid != "" {
		rank, err := h.leaderboard.GetRank(r.Context(), code, sid)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["rank"] = rank
	}
	writeJSON(w, http.StatusOK, resp)
}
