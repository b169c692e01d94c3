package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"dumbal/internal/cache"
	"dumbal/internal/model"
	"dumbal/internal/rules"
)

// memStore is an in-memory GameStore for tests. Same defaults as the
// Redis implementation: missing keys read back as typed zero values.
type memStore struct {
	mu sync.Mutex

	games       map[string]bool
	stage       map[string]model.Stage
	pointsLimit map[string]int
	round       map[string]*int
	active      map[string]string
	leader      map[string]string
	endedBy     map[string]string
	players     map[string][]string
	deck        map[string][]model.Card
	scores      map[string][]map[string]int

	cards   map[string][]model.Card
	discard map[string][]model.Card
	sockets map[string]string
	out     map[string]bool
	ready   map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		games:       make(map[string]bool),
		stage:       make(map[string]model.Stage),
		pointsLimit: make(map[string]int),
		round:       make(map[string]*int),
		active:      make(map[string]string),
		leader:      make(map[string]string),
		endedBy:     make(map[string]string),
		players:     make(map[string][]string),
		deck:        make(map[string][]model.Card),
		scores:      make(map[string][]map[string]int),
		cards:       make(map[string][]model.Card),
		discard:     make(map[string][]model.Card),
		sockets:     make(map[string]string),
		out:         make(map[string]bool),
		ready:       make(map[string]bool),
	}
}

func pk(gameID, playerID string) string {
	return fmt.Sprintf("%s/%s", gameID, playerID)
}

func (s *memStore) AddGame(_ context.Context, gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[gameID] = true
	s.stage[gameID] = model.StageSettingUp
	return nil
}

func (s *memStore) GameExists(_ context.Context, gameID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.stage[gameID]
	return ok, nil
}

func (s *memStore) DeleteGame(_ context.Context, gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	players := s.players[gameID]
	delete(s.games, gameID)
	delete(s.stage, gameID)
	delete(s.pointsLimit, gameID)
	delete(s.round, gameID)
	delete(s.active, gameID)
	delete(s.leader, gameID)
	delete(s.endedBy, gameID)
	delete(s.players, gameID)
	delete(s.deck, gameID)
	delete(s.scores, gameID)
	for _, p := range players {
		key := pk(gameID, p)
		delete(s.cards, key)
		delete(s.discard, key)
		delete(s.sockets, key)
		delete(s.out, key)
		delete(s.ready, key)
	}
	return nil
}

func (s *memStore) ListGames(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id := range s.games {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *memStore) GetStage(_ context.Context, gameID string) (model.Stage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stage, ok := s.stage[gameID]; ok {
		return stage, nil
	}
	return model.StageSettingUp, nil
}

func (s *memStore) SetStage(_ context.Context, gameID string, stage model.Stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage[gameID] = stage
	return nil
}

func (s *memStore) GetPointsLimit(_ context.Context, gameID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit, ok := s.pointsLimit[gameID]; ok {
		return limit, nil
	}
	return model.DefaultPointsLimit, nil
}

func (s *memStore) SetPointsLimit(_ context.Context, gameID string, limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pointsLimit[gameID] = limit
	return nil
}

func (s *memStore) GetRoundNumber(_ context.Context, gameID string) (*int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round[gameID], nil
}

func (s *memStore) SetRoundNumber(_ context.Context, gameID string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.round[gameID] = &n
	return nil
}

func (s *memStore) GetActivePlayer(_ context.Context, gameID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[gameID], nil
}

func (s *memStore) SetActivePlayer(_ context.Context, gameID, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[gameID] = playerID
	return nil
}

func (s *memStore) GetRoundLeader(_ context.Context, gameID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leader[gameID], nil
}

func (s *memStore) SetRoundLeader(_ context.Context, gameID, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leader[gameID] = playerID
	return nil
}

func (s *memStore) GetRoundEndedBy(_ context.Context, gameID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endedBy[gameID], nil
}

func (s *memStore) SetRoundEndedBy(_ context.Context, gameID, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endedBy[gameID] = playerID
	return nil
}

func (s *memStore) GetPlayers(_ context.Context, gameID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.players[gameID]...), nil
}

func (s *memStore) SetPlayers(_ context.Context, gameID string, players []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[gameID] = append([]string{}, players...)
	return nil
}

func (s *memStore) AddPlayer(_ context.Context, gameID, playerID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[gameID] = append(s.players[gameID], playerID)
	return len(s.players[gameID]), nil
}

func (s *memStore) PlayerExists(_ context.Context, gameID, playerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.players[gameID] {
		if p == playerID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) GetPlayersStillIn(_ context.Context, gameID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stillInLocked(gameID), nil
}

func (s *memStore) stillInLocked(gameID string) []string {
	stillIn := []string{}
	for _, p := range s.players[gameID] {
		if !s.out[pk(gameID, p)] {
			stillIn = append(stillIn, p)
		}
	}
	return stillIn
}

func (s *memStore) GetDeck(_ context.Context, gameID string) ([]model.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Card{}, s.deck[gameID]...), nil
}

func (s *memStore) SetDeck(_ context.Context, gameID string, cards []model.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deck[gameID] = append([]model.Card{}, cards...)
	return nil
}

func (s *memStore) GetScores(_ context.Context, gameID string) ([]map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]int{}, s.scores[gameID]...), nil
}

func (s *memStore) SetScores(_ context.Context, gameID string, scores []map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[gameID] = append([]map[string]int{}, scores...)
	return nil
}

func (s *memStore) AddRoundScores(_ context.Context, gameID string, round map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[gameID] = append(s.scores[gameID], round)
	return nil
}

func (s *memStore) GetPlayerCards(_ context.Context, gameID, playerID string) ([]model.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Card{}, s.cards[pk(gameID, playerID)]...), nil
}

func (s *memStore) SetPlayerCards(_ context.Context, gameID, playerID string, cards []model.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards[pk(gameID, playerID)] = append([]model.Card{}, cards...)
	return nil
}

func (s *memStore) AddToPlayerCards(_ context.Context, gameID, playerID string, cards []model.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pk(gameID, playerID)
	s.cards[key] = append(s.cards[key], cards...)
	return nil
}

func (s *memStore) RemoveFromPlayerCards(_ context.Context, gameID, playerID string, cards []model.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pk(gameID, playerID)
	s.cards[key] = rules.RemoveCards(s.cards[key], cards)
	return nil
}

func (s *memStore) GetPlayerDiscard(_ context.Context, gameID, playerID string) ([]model.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Card{}, s.discard[pk(gameID, playerID)]...), nil
}

func (s *memStore) SetPlayerDiscard(_ context.Context, gameID, playerID string, cards []model.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discard[pk(gameID, playerID)] = append([]model.Card{}, cards...)
	return nil
}

func (s *memStore) GetPlayerSocket(_ context.Context, gameID, playerID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sockets[pk(gameID, playerID)], nil
}

func (s *memStore) SetPlayerSocket(_ context.Context, gameID, playerID, socketID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets[pk(gameID, playerID)] = socketID
	return nil
}

func (s *memStore) GetPlayerOut(_ context.Context, gameID, playerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out[pk(gameID, playerID)], nil
}

func (s *memStore) SetPlayerOut(_ context.Context, gameID, playerID string, out bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out[pk(gameID, playerID)] = out
	return nil
}

func (s *memStore) GetPlayerReady(_ context.Context, gameID, playerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready[pk(gameID, playerID)], nil
}

func (s *memStore) SetPlayerReady(_ context.Context, gameID, playerID string, ready bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready[pk(gameID, playerID)] = ready
	return nil
}

func (s *memStore) CardsForPlayersStillIn(_ context.Context, gameID string) (map[string][]model.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cardsByPlayer := make(map[string][]model.Card)
	for _, p := range s.stillInLocked(gameID) {
		cardsByPlayer[p] = append([]model.Card{}, s.cards[pk(gameID, p)]...)
	}
	return cardsByPlayer, nil
}

func (s *memStore) DiscardForPlayers(_ context.Context, gameID string) (map[string][]model.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	discardByPlayer := make(map[string][]model.Card)
	for _, p := range s.players[gameID] {
		discardByPlayer[p] = append([]model.Card{}, s.discard[pk(gameID, p)]...)
	}
	return discardByPlayer, nil
}

func (s *memStore) ReadyForPlayers(_ context.Context, gameID string) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	readyByPlayer := make(map[string]bool)
	for _, p := range s.players[gameID] {
		readyByPlayer[p] = s.ready[pk(gameID, p)]
	}
	return readyByPlayer, nil
}

func (s *memStore) CardCountsForPlayersStillIn(_ context.Context, gameID string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int)
	for _, p := range s.stillInLocked(gameID) {
		counts[p] = len(s.cards[pk(gameID, p)])
	}
	return counts, nil
}

func (s *memStore) ClearReadyForPlayers(_ context.Context, gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.players[gameID] {
		s.ready[pk(gameID, p)] = false
	}
	return nil
}

func (s *memStore) ClearDiscardForPlayers(_ context.Context, gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.players[gameID] {
		s.discard[pk(gameID, p)] = nil
	}
	return nil
}

// memRepo is an in-memory GameRepo for tests.
type memRepo struct {
	mu      sync.Mutex
	records map[string]*model.GameRecord
}

func newMemRepo() *memRepo {
	return &memRepo{records: make(map[string]*model.GameRecord)}
}

func (r *memRepo) Create(_ context.Context, record *model.GameRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *record
	r.records[record.ID] = &cp
	return nil
}

func (r *memRepo) GetByID(_ context.Context, gameID string) (*model.GameRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[gameID]
	if !ok {
		return nil, nil
	}
	cp := *record
	return &cp, nil
}

func (r *memRepo) Update(_ context.Context, record *model.GameRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *record
	r.records[record.ID] = &cp
	return nil
}

func (r *memRepo) Delete(_ context.Context, gameID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, gameID)
	return nil
}

func (r *memRepo) ListRecent(_ context.Context, limit int64) ([]*model.GameRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var records []*model.GameRecord
	for _, record := range r.records {
		cp := *record
		records = append(records, &cp)
		if int64(len(records)) >= limit {
			break
		}
	}
	return records, nil
}

// memLeaderboard is an in-memory Leaderboard for tests.
type memLeaderboard struct {
	mu   sync.Mutex
	wins map[string]int
}

func newMemLeaderboard() *memLeaderboard {
	return &memLeaderboard{wins: make(map[string]int)}
}

func (l *memLeaderboard) RecordWin(_ context.Context, playerID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.wins[playerID]++
	return nil
}

func (l *memLeaderboard) Top(_ context.Context, limit int) ([]cache.LeaderboardEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var entries []cache.LeaderboardEntry
	for playerID, wins := range l.wins {
		entries = append(entries, cache.LeaderboardEntry{PlayerID: playerID, Wins: wins})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Wins > entries[j].Wins })
	for i := range entries {
		entries[i].Rank = i + 1
	}
	if limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}

func (l *memLeaderboard) Rank(_ context.Context, playerID string) (int64, error) {
	entries, _ := l.Top(context.Background(), len(l.wins))
	for _, e := range entries {
		if e.PlayerID == playerID {
			return int64(e.Rank), nil
		}
	}
	return -1, nil
}

// newTestServices wires the engines against in-memory fakes.
func newTestServices() (*GameService, *PlayerService, *memStore, *memRepo) {
	store := newMemStore()
	repo := newMemRepo()
	gameSvc := NewGameService(store, repo, newMemLeaderboard())
	playerSvc := NewPlayerService(store, gameSvc, NewAuthService())
	return gameSvc, playerSvc, store, repo
}
