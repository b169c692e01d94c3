package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"dumbal/internal/service"
)

// GameHandler exposes game management over REST. Gameplay itself runs
// over the websocket action channel; these endpoints cover creation,
// lookups and the archive.
type GameHandler struct {
	gameSvc *service.GameService
}

// NewGameHandler creates a new game handler.
func NewGameHandler(gameSvc *service.GameService) *GameHandler {
	return &GameHandler{gameSvc: gameSvc}
}

// CreateGameRequest is the request body for creating a game.
type CreateGameRequest struct {
	PointsLimit int `json:"pointsLimit"`
}

// Create handles POST /v1/games
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	gameID, err := h.gameSvc.Create(r.Context(), req.PointsLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"gameId": gameID})
}

// Get handles GET /v1/games/{id}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	record, err := h.gameSvc.Record(r.Context(), gameID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// GetPlayers handles GET /v1/games/{id}/players
func (h *GameHandler) GetPlayers(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	players, err := h.gameSvc.Players(r.Context(), gameID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, players)
}

// List handles GET /v1/games?limit=n
func (h *GameHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := int64(20)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	records, err := h.gameSvc.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// Leaderboard handles GET /v1/leaderboard?limit=n
func (h *GameHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	entries, err := h.gameSvc.Leaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// Rank handles GET /v1/leaderboard/{playerId}
func (h *GameHandler) Rank(w http.ResponseWriter, r *http.Request) {
	playerID := mux.Vars(r)["playerId"]

	rank, err := h.gameSvc.PlayerRank(r.Context(), playerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rank < 0 {
		writeError(w, http.StatusNotFound, "player has no recorded wins")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"playerId": playerID,
		"rank":     rank,
	})
}

// Live handles GET /v1/games/live
func (h *GameHandler) Live(w http.ResponseWriter, r *http.Request) {
	ids, err := h.gameSvc.LiveGames(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ids == nil {
		ids = []string{}
	}

	writeJSON(w, http.StatusOK, ids)
}

// Delete handles DELETE /v1/games/{id}
func (h *GameHandler) Delete(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	if err := h.gameSvc.Delete(r.Context(), gameID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
