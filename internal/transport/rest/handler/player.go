package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"dumbal/internal/gameerr"
	"dumbal/internal/service"
	"dumbal/internal/transport/rest/middleware"
)

// PlayerHandler exposes the per-player state snapshot over REST, for
// clients that want to poll instead of holding a websocket open. The
// identity comes from the session token, never from the request.
type PlayerHandler struct {
	playerSvc *service.PlayerService
}

// NewPlayerHandler creates a new player handler.
func NewPlayerHandler(playerSvc *service.PlayerService) *PlayerHandler {
	return &PlayerHandler{playerSvc: playerSvc}
}

// GetState handles GET /v1/games/{id}/state
func (h *PlayerHandler) GetState(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]
	if middleware.GetGameID(r.Context()) != gameID {
		writeError(w, http.StatusForbidden, "session token does not match this game")
		return
	}
	playerID := middleware.GetPlayerID(r.Context())

	state, err := h.playerSvc.GameState(r.Context(), gameID, playerID)
	if err != nil {
		if gameerr.Is(err, gameerr.NotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, state)
}
