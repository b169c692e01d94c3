package model

import "github.com/golang-jwt/jwt/v5"

// SessionClaims are JWT claims binding a player identity to one game.
// Issued on join, optionally presented again on rejoin so a
// reconnecting client can prove it owns the player id.
type SessionClaims struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
	jwt.RegisteredClaims
}
