package model

import "time"

// Stage is the coarse phase of a game. Exactly one stage is
// active at a time; the stored value is authoritative.
type Stage string

const (
	StageSettingUp     Stage = "Setting Up"
	StagePlayingCards  Stage = "Playing Cards"
	StagePickingCard   Stage = "Picking Card"
	StageBetweenRounds Stage = "Round Done"
	StageComplete      Stage = "Game Complete"
)

const (
	// MinPlayers is the fewest players a game can start with.
	MinPlayers = 2
	// MaxPlayers is the join capacity of a game.
	MaxPlayers = 6
	// DefaultPointsLimit eliminates a player once their cumulative
	// score reaches it, unless the game was created with another limit.
	DefaultPointsLimit = 50
	// HandSize is the number of cards dealt to each player per round.
	HandSize = 5
	// EndRoundThreshold is the highest hand total that may call the round.
	EndRoundThreshold = 5
	// TotalCards is the size of a full deck.
	TotalCards = 52
)

// GameStatus tracks a game's archive record through its lifetime.
type GameStatus string

const (
	GameCreated  GameStatus = "created"
	GameActive   GameStatus = "active"
	GameFinished GameStatus = "finished"
)

// GameRecord is the durable per-game document kept in MongoDB.
// Live round state lives in the key-value store; this record only
// carries what outlives the game.
type GameRecord struct {
	ID           string         `json:"id" bson:"_id"`
	Status       GameStatus     `json:"status" bson:"status"`
	PointsLimit  int            `json:"pointsLimit" bson:"pointsLimit"`
	Players      []string       `json:"players" bson:"players"`
	Winner       string         `json:"winner,omitempty" bson:"winner,omitempty"`
	FinalScores  map[string]int `json:"finalScores,omitempty" bson:"finalScores,omitempty"`
	RoundsPlayed int            `json:"roundsPlayed" bson:"roundsPlayed"`
	CreatedAt    time.Time      `json:"createdAt" bson:"createdAt"`
	StartedAt    *time.Time     `json:"startedAt,omitempty" bson:"startedAt,omitempty"`
	CompletedAt  *time.Time     `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
}
