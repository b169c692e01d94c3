package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"dumbal/internal/service"
	"dumbal/internal/transport/rest/handler"
	"dumbal/internal/transport/rest/middleware"
	"dumbal/internal/transport/ws"
)

// Container holds all dependencies for the router.
type Container struct {
	GameService   *service.GameService
	PlayerService *service.PlayerService
	AuthService   *service.AuthService
	WSHub         *ws.Hub
	Dispatcher    *ws.Dispatcher
}

// NewRouter creates the API router with all endpoints.
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	gameHandler := handler.NewGameHandler(c.GameService)
	playerHandler := handler.NewPlayerHandler(c.PlayerService)
	wsHandler := ws.NewHandler(c.WSHub, c.Dispatcher, c.AuthService)
	authMw := middleware.NewAuthMiddleware(c.AuthService)

	r.Use(corsMiddleware)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	v1 := r.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/games", gameHandler.Create).Methods("POST", "OPTIONS")
	v1.HandleFunc("/games", gameHandler.List).Methods("GET", "OPTIONS")
	v1.HandleFunc("/games/live", gameHandler.Live).Methods("GET", "OPTIONS")
	v1.HandleFunc("/games/{id}", gameHandler.Get).Methods("GET", "OPTIONS")
	v1.HandleFunc("/games/{id}", gameHandler.Delete).Methods("DELETE", "OPTIONS")
	v1.HandleFunc("/games/{id}/players", gameHandler.GetPlayers).Methods("GET", "OPTIONS")
	v1.HandleFunc("/leaderboard", gameHandler.Leaderboard).Methods("GET", "OPTIONS")
	v1.HandleFunc("/leaderboard/{playerId}", gameHandler.Rank).Methods("GET", "OPTIONS")

	// Session-authenticated state snapshot
	v1.Handle("/games/{id}/state",
		authMw.RequireSession(http.HandlerFunc(playerHandler.GetState))).Methods("GET", "OPTIONS")

	// WebSocket action channel (token in query param, optional)
	v1.HandleFunc("/ws", wsHandler.ServeWS).Methods("GET")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
