package model

// GameState is the canonical state-sync snapshot assembled for one
// player. It is sent on demand and on rejoin; hands of other players
// are never included, only their card counts.
type GameState struct {
	GameID       string            `json:"gameId"`
	PlayerID     string            `json:"playerId"`
	Players      []string          `json:"players"`
	Scores       []map[string]int  `json:"scores"`
	RoundNumber  *int              `json:"roundNumber"`
	Stage        Stage             `json:"stage"`
	Cards        []Card            `json:"cards"`
	Ready        map[string]bool   `json:"ready"`
	RoundEndedBy string            `json:"roundEndedBy,omitempty"`
	RoundLeader  string            `json:"roundLeader,omitempty"`
	ActivePlayer string            `json:"activePlayer,omitempty"`
	Discard      map[string][]Card `json:"discard"`
	Out          []string          `json:"out"`
	CardCounts   map[string]int    `json:"cardCounts"`
}

// RoundDetails describes a freshly dealt round. CardsByPlayer holds
// each still-in player's new hand and must only ever be delivered
// per-recipient.
type RoundDetails struct {
	ActivePlayer  string            `json:"activePlayer"`
	Stage         Stage             `json:"stage"`
	RoundNumber   int               `json:"roundNumber"`
	CardsByPlayer map[string][]Card `json:"-"`
	CardCounts    map[string]int    `json:"cardCounts"`
}

// TurnDetails describes a turn advancement.
type TurnDetails struct {
	ActivePlayer string `json:"activePlayer"`
	Stage        Stage  `json:"stage"`
}

// PlayResult is returned after a successful card play.
type PlayResult struct {
	PlayerID string `json:"playerId"`
	Cards    []Card `json:"cards"`
	Stage    Stage  `json:"stage"`
	Count    int    `json:"count"`
}

// RoundResult is returned after a round is called. Out lists every
// player at or over the points limit once this round's scores land.
type RoundResult struct {
	RoundEndedBy string            `json:"roundEndedBy"`
	Scores       map[string]int    `json:"scores"`
	Discard      map[string][]Card `json:"discard"`
	Stage        Stage             `json:"stage"`
	Out          []string          `json:"out"`
}

// JoinResult is returned to a player that joined (or re-entered) a game.
type JoinResult struct {
	PlayerID string   `json:"playerId"`
	Players  []string `json:"players"`
	Token    string   `json:"token,omitempty"`
}
