package rest

import (
	"net/http"
	"os"

	"pollgen/internal/cache"
	"pollgen/internal/service"
	"pollgen/internal/transport/rest/handler"
	"pollgen/internal/transport/rest/middleware"
	"pollgen/internal/transport/ws"

	"github.com/gorilla/mux"
)

// Container holds all dependencies for the router.
type Container struct {
	AuthService   *service.AuthService
	RoomService   *service.RoomService
	PollService   *service.PollService
	ReportService *service.ReportService
	Leaderboard   cache.LeaderboardCache
	WSHandler     *ws.Handler
}

// NewRouter creates the API router with all endpoints.
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	authHandler := handler.NewAuthHandler(c.AuthService)
	roomHandler := handler.NewRoomHandler(c.RoomService, c.ReportService, c.Leaderboard)
	pollHandler := handler.NewPollHandler(c.PollService)
	reportHandler := handler.NewReportHandler(c.ReportService)

	authMW := middleware.NewAuthMiddleware(c.AuthService)

	r.Use(corsMiddleware)

	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	v1.HandleFunc("/rooms/{code}/join", roomHandler.Join).Methods("POST", "OPTIONS")

	// WebSocket routes (token in query param)
	v1.HandleFunc("/ws/rooms/{code}/host", c.WSHandler.HostWS).Methods("GET")
	v1.HandleFunc("/ws/rooms/{code}/student", c.WSHandler.StudentWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Host routes
	hostRoutes := v1.NewRoute().Subrouter()
	hostRoutes.Use(authMW.RequireHost)

	hostRoutes.HandleFunc("/rooms", roomHandler.Create).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/rooms/active", roomHandler.GetActive).Methods("GET", "OPTIONS")
	hostRoutes.HandleFunc("/rooms/{code}", roomHandler.Get).Methods("GET", "OPTIONS")
	hostRoutes.HandleFunc("/rooms/{code}/polls", pollHandler.Create).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/rooms/{code}/polls", pollHandler.List).Methods("GET", "OPTIONS")
	hostRoutes.HandleFunc("/rooms/{code}/polls/{pollId}", pollHandler.Delete).Methods("DELETE", "OPTIONS")
	hostRoutes.HandleFunc("/rooms/{code}/end", roomHandler.End).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/rooms/{code}/leaderboard", roomHandler.Leaderboard).Methods("GET", "OPTIONS")

	// Report fetch is open to any authenticated identity so students
	// can load their standings after session-ended.
	reportRoutes := v1.NewRoute().Subrouter()
	reportRoutes.Use(authMW.RequireIdentity)
	reportRoutes.HandleFunc("/reports/{sessionId}", reportHandler.Get).Methods("GET", "OPTIONS")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
