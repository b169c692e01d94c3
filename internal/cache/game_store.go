package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"dumbal/internal/model"
	"dumbal/internal/rules"
)

// GameStore is the key-addressed persistent store for all game and
// player state. One record per field; a missing key reads back as a
// typed default. Per-key writes are atomic, nothing spans keys.
type GameStore interface {
	AddGame(ctx context.Context, gameID string) error
	GameExists(ctx context.Context, gameID string) (bool, error)
	DeleteGame(ctx context.Context, gameID string) error
	ListGames(ctx context.Context) ([]string, error)

	GetStage(ctx context.Context, gameID string) (model.Stage, error)
	SetStage(ctx context.Context, gameID string, stage model.Stage) error
	GetPointsLimit(ctx context.Context, gameID string) (int, error)
	SetPointsLimit(ctx context.Context, gameID string, limit int) error
	GetRoundNumber(ctx context.Context, gameID string) (*int, error)
	SetRoundNumber(ctx context.Context, gameID string, n int) error
	GetActivePlayer(ctx context.Context, gameID string) (string, error)
	SetActivePlayer(ctx context.Context, gameID, playerID string) error
	GetRoundLeader(ctx context.Context, gameID string) (string, error)
	SetRoundLeader(ctx context.Context, gameID, playerID string) error
	GetRoundEndedBy(ctx context.Context, gameID string) (string, error)
	SetRoundEndedBy(ctx context.Context, gameID, playerID string) error

	GetPlayers(ctx context.Context, gameID string) ([]string, error)
	SetPlayers(ctx context.Context, gameID string, players []string) error
	AddPlayer(ctx context.Context, gameID, playerID string) (int, error)
	PlayerExists(ctx context.Context, gameID, playerID string) (bool, error)
	GetPlayersStillIn(ctx context.Context, gameID string) ([]string, error)

	GetDeck(ctx context.Context, gameID string) ([]model.Card, error)
	SetDeck(ctx context.Context, gameID string, cards []model.Card) error

	GetScores(ctx context.Context, gameID string) ([]map[string]int, error)
	SetScores(ctx context.Context, gameID string, scores []map[string]int) error
	AddRoundScores(ctx context.Context, gameID string, round map[string]int) error

	GetPlayerCards(ctx context.Context, gameID, playerID string) ([]model.Card, error)
	SetPlayerCards(ctx context.Context, gameID, playerID string, cards []model.Card) error
	AddToPlayerCards(ctx context.Context, gameID, playerID string, cards []model.Card) error
	RemoveFromPlayerCards(ctx context.Context, gameID, playerID string, cards []model.Card) error
	GetPlayerDiscard(ctx context.Context, gameID, playerID string) ([]model.Card, error)
	SetPlayerDiscard(ctx context.Context, gameID, playerID string, cards []model.Card) error
	GetPlayerSocket(ctx context.Context, gameID, playerID string) (string, error)
	SetPlayerSocket(ctx context.Context, gameID, playerID, socketID string) error
	GetPlayerOut(ctx context.Context, gameID, playerID string) (bool, error)
	SetPlayerOut(ctx context.Context, gameID, playerID string, out bool) error
	GetPlayerReady(ctx context.Context, gameID, playerID string) (bool, error)
	SetPlayerReady(ctx context.Context, gameID, playerID string, ready bool) error

	CardsForPlayersStillIn(ctx context.Context, gameID string) (map[string][]model.Card, error)
	DiscardForPlayers(ctx context.Context, gameID string) (map[string][]model.Card, error)
	ReadyForPlayers(ctx context.Context, gameID string) (map[string]bool, error)
	CardCountsForPlayersStillIn(ctx context.Context, gameID string) (map[string]int, error)
	ClearReadyForPlayers(ctx context.Context, gameID string) error
	ClearDiscardForPlayers(ctx context.Context, gameID string) error
}

type gameStore struct {
	client *redis.Client
}

// NewGameStore creates a Redis-backed game store.
func NewGameStore(client *redis.Client) GameStore {
	return &gameStore{client: client}
}

const gamesSetKey = "games"

func (s *gameStore) key(gameID, field string) string {
	return fmt.Sprintf("games/%s/%s", gameID, field)
}

func (s *gameStore) playerKey(gameID, playerID, field string) string {
	return fmt.Sprintf("games/%s/players/%s/%s", gameID, playerID, field)
}

// getString reads a plain string key, mapping a missing key to "".
func (s *gameStore) getString(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

// setOrDelete writes a plain string key, deleting it for the empty
// value so that absence keeps meaning "null".
func (s *gameStore) setOrDelete(ctx context.Context, key, val string) error {
	if val == "" {
		return s.client.Del(ctx, key).Err()
	}
	return s.client.Set(ctx, key, val, 0).Err()
}

// getJSON decodes a JSON key into v, reporting whether the key existed.
func (s *gameStore) getJSON(ctx context.Context, key string, v any) (bool, error) {
	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *gameStore) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, 0).Err()
}

func (s *gameStore) getBool(ctx context.Context, key string) (bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return b, nil
}

func (s *gameStore) AddGame(ctx context.Context, gameID string) error {
	if err := s.client.SAdd(ctx, gamesSetKey, gameID).Err(); err != nil {
		return err
	}
	return s.SetStage(ctx, gameID, model.StageSettingUp)
}

// GameExists checks for the stage key, which is written at creation
// and removed only by deletion.
func (s *gameStore) GameExists(ctx context.Context, gameID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(gameID, "stage")).Result()
	return n > 0, err
}

// DeleteGame removes every key under the game's namespace and the id
// from the games set, pipelined into one round trip.
func (s *gameStore) DeleteGame(ctx context.Context, gameID string) error {
	keys, err := s.client.Keys(ctx, fmt.Sprintf("games/%s*", gameID)).Result()
	if err != nil {
		return err
	}
	pipe := s.client.Pipeline()
	for _, key := range keys {
		pipe.Del(ctx, key)
	}
	pipe.SRem(ctx, gamesSetKey, gameID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *gameStore) ListGames(ctx context.Context) ([]string, error) {
	return s.client.SMembers(ctx, gamesSetKey).Result()
}

func (s *gameStore) GetStage(ctx context.Context, gameID string) (model.Stage, error) {
	val, err := s.getString(ctx, s.key(gameID, "stage"))
	if err != nil {
		return "", err
	}
	if val == "" {
		return model.StageSettingUp, nil
	}
	return model.Stage(val), nil
}

func (s *gameStore) SetStage(ctx context.Context, gameID string, stage model.Stage) error {
	return s.client.Set(ctx, s.key(gameID, "stage"), string(stage), 0).Err()
}

func (s *gameStore) GetPointsLimit(ctx context.Context, gameID string) (int, error) {
	val, err := s.getString(ctx, s.key(gameID, "points-limit"))
	if err != nil {
		return 0, err
	}
	if val == "" {
		return model.DefaultPointsLimit, nil
	}
	limit, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("decode points limit: %w", err)
	}
	return limit, nil
}

func (s *gameStore) SetPointsLimit(ctx context.Context, gameID string, limit int) error {
	return s.client.Set(ctx, s.key(gameID, "points-limit"), limit, 0).Err()
}

// GetRoundNumber returns nil before the first round has been dealt.
func (s *gameStore) GetRoundNumber(ctx context.Context, gameID string) (*int, error) {
	val, err := s.getString(ctx, s.key(gameID, "round"))
	if err != nil || val == "" {
		return nil, err
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return nil, fmt.Errorf("decode round number: %w", err)
	}
	return &n, nil
}

func (s *gameStore) SetRoundNumber(ctx context.Context, gameID string, n int) error {
	return s.client.Set(ctx, s.key(gameID, "round"), n, 0).Err()
}

func (s *gameStore) GetActivePlayer(ctx context.Context, gameID string) (string, error) {
	return s.getString(ctx, s.key(gameID, "active-player"))
}

func (s *gameStore) SetActivePlayer(ctx context.Context, gameID, playerID string) error {
	return s.setOrDelete(ctx, s.key(gameID, "active-player"), playerID)
}

func (s *gameStore) GetRoundLeader(ctx context.Context, gameID string) (string, error) {
	return s.getString(ctx, s.key(gameID, "round-leader"))
}

func (s *gameStore) SetRoundLeader(ctx context.Context, gameID, playerID string) error {
	return s.setOrDelete(ctx, s.key(gameID, "round-leader"), playerID)
}

func (s *gameStore) GetRoundEndedBy(ctx context.Context, gameID string) (string, error) {
	return s.getString(ctx, s.key(gameID, "round-ended-by"))
}

func (s *gameStore) SetRoundEndedBy(ctx context.Context, gameID, playerID string) error {
	return s.setOrDelete(ctx, s.key(gameID, "round-ended-by"), playerID)
}

// GetPlayers returns player ids in join order, which is turn order.
func (s *gameStore) GetPlayers(ctx context.Context, gameID string) ([]string, error) {
	players := []string{}
	if _, err := s.getJSON(ctx, s.key(gameID, "players"), &players); err != nil {
		return nil, err
	}
	return players, nil
}

func (s *gameStore) SetPlayers(ctx context.Context, gameID string, players []string) error {
	return s.setJSON(ctx, s.key(gameID, "players"), players)
}

func (s *gameStore) AddPlayer(ctx context.Context, gameID, playerID string) (int, error) {
	players, err := s.GetPlayers(ctx, gameID)
	if err != nil {
		return 0, err
	}
	players = append(players, playerID)
	if err := s.SetPlayers(ctx, gameID, players); err != nil {
		return 0, err
	}
	return len(players), nil
}

func (s *gameStore) PlayerExists(ctx context.Context, gameID, playerID string) (bool, error) {
	players, err := s.GetPlayers(ctx, gameID)
	if err != nil {
		return false, err
	}
	for _, p := range players {
		if p == playerID {
			return true, nil
		}
	}
	return false, nil
}

func (s *gameStore) GetPlayersStillIn(ctx context.Context, gameID string) ([]string, error) {
	players, err := s.GetPlayers(ctx, gameID)
	if err != nil {
		return nil, err
	}
	stillIn := make([]string, 0, len(players))
	for _, playerID := range players {
		out, err := s.GetPlayerOut(ctx, gameID, playerID)
		if err != nil {
			return nil, err
		}
		if !out {
			stillIn = append(stillIn, playerID)
		}
	}
	return stillIn, nil
}

func (s *gameStore) GetDeck(ctx context.Context, gameID string) ([]model.Card, error) {
	cards := []model.Card{}
	if _, err := s.getJSON(ctx, s.key(gameID, "cards"), &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

func (s *gameStore) SetDeck(ctx context.Context, gameID string, cards []model.Card) error {
	return s.setJSON(ctx, s.key(gameID, "cards"), cards)
}

func (s *gameStore) GetScores(ctx context.Context, gameID string) ([]map[string]int, error) {
	scores := []map[string]int{}
	if _, err := s.getJSON(ctx, s.key(gameID, "scores"), &scores); err != nil {
		return nil, err
	}
	return scores, nil
}

func (s *gameStore) SetScores(ctx context.Context, gameID string, scores []map[string]int) error {
	return s.setJSON(ctx, s.key(gameID, "scores"), scores)
}

func (s *gameStore) AddRoundScores(ctx context.Context, gameID string, round map[string]int) error {
	scores, err := s.GetScores(ctx, gameID)
	if err != nil {
		return err
	}
	return s.SetScores(ctx, gameID, append(scores, round))
}

func (s *gameStore) GetPlayerCards(ctx context.Context, gameID, playerID string) ([]model.Card, error) {
	cards := []model.Card{}
	if _, err := s.getJSON(ctx, s.playerKey(gameID, playerID, "cards"), &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

func (s *gameStore) SetPlayerCards(ctx context.Context, gameID, playerID string, cards []model.Card) error {
	return s.setJSON(ctx, s.playerKey(gameID, playerID, "cards"), cards)
}

func (s *gameStore) AddToPlayerCards(ctx context.Context, gameID, playerID string, cards []model.Card) error {
	hand, err := s.GetPlayerCards(ctx, gameID, playerID)
	if err != nil {
		return err
	}
	return s.SetPlayerCards(ctx, gameID, playerID, append(hand, cards...))
}

func (s *gameStore) RemoveFromPlayerCards(ctx context.Context, gameID, playerID string, cards []model.Card) error {
	hand, err := s.GetPlayerCards(ctx, gameID, playerID)
	if err != nil {
		return err
	}
	return s.SetPlayerCards(ctx, gameID, playerID, rules.RemoveCards(hand, cards))
}

func (s *gameStore) GetPlayerDiscard(ctx context.Context, gameID, playerID string) ([]model.Card, error) {
	cards := []model.Card{}
	if _, err := s.getJSON(ctx, s.playerKey(gameID, playerID, "discard"), &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

func (s *gameStore) SetPlayerDiscard(ctx context.Context, gameID, playerID string, cards []model.Card) error {
	return s.setJSON(ctx, s.playerKey(gameID, playerID, "discard"), cards)
}

func (s *gameStore) GetPlayerSocket(ctx context.Context, gameID, playerID string) (string, error) {
	return s.getString(ctx, s.playerKey(gameID, playerID, "socket"))
}

func (s *gameStore) SetPlayerSocket(ctx context.Context, gameID, playerID, socketID string) error {
	return s.setOrDelete(ctx, s.playerKey(gameID, playerID, "socket"), socketID)
}

func (s *gameStore) GetPlayerOut(ctx context.Context, gameID, playerID string) (bool, error) {
	return s.getBool(ctx, s.playerKey(gameID, playerID, "out"))
}

func (s *gameStore) SetPlayerOut(ctx context.Context, gameID, playerID string, out bool) error {
	return s.client.Set(ctx, s.playerKey(gameID, playerID, "out"), strconv.FormatBool(out), 0).Err()
}

func (s *gameStore) GetPlayerReady(ctx context.Context, gameID, playerID string) (bool, error) {
	return s.getBool(ctx, s.playerKey(gameID, playerID, "ready"))
}

func (s *gameStore) SetPlayerReady(ctx context.Context, gameID, playerID string, ready bool) error {
	return s.client.Set(ctx, s.playerKey(gameID, playerID, "ready"), strconv.FormatBool(ready), 0).Err()
}

func (s *gameStore) CardsForPlayersStillIn(ctx context.Context, gameID string) (map[string][]model.Card, error) {
	stillIn, err := s.GetPlayersStillIn(ctx, gameID)
	if err != nil {
		return nil, err
	}
	cardsByPlayer := make(map[string][]model.Card, len(stillIn))
	for _, playerID := range stillIn {
		cards, err := s.GetPlayerCards(ctx, gameID, playerID)
		if err != nil {
			return nil, err
		}
		cardsByPlayer[playerID] = cards
	}
	return cardsByPlayer, nil
}

func (s *gameStore) DiscardForPlayers(ctx context.Context, gameID string) (map[string][]model.Card, error) {
	players, err := s.GetPlayers(ctx, gameID)
	if err != nil {
		return nil, err
	}
	discardByPlayer := make(map[string][]model.Card, len(players))
	for _, playerID := range players {
		cards, err := s.GetPlayerDiscard(ctx, gameID, playerID)
		if err != nil {
			return nil, err
		}
		discardByPlayer[playerID] = cards
	}
	return discardByPlayer, nil
}

func (s *gameStore) ReadyForPlayers(ctx context.Context, gameID string) (map[string]bool, error) {
	players, err := s.GetPlayers(ctx, gameID)
	if err != nil {
		return nil, err
	}
	readyByPlayer := make(map[string]bool, len(players))
	for _, playerID := range players {
		ready, err := s.GetPlayerReady(ctx, gameID, playerID)
		if err != nil {
			return nil, err
		}
		readyByPlayer[playerID] = ready
	}
	return readyByPlayer, nil
}

func (s *gameStore) CardCountsForPlayersStillIn(ctx context.Context, gameID string) (map[string]int, error) {
	cardsByPlayer, err := s.CardsForPlayersStillIn(ctx, gameID)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(cardsByPlayer))
	for playerID, cards := range cardsByPlayer {
		counts[playerID] = len(cards)
	}
	return counts, nil
}

func (s *gameStore) ClearReadyForPlayers(ctx context.Context, gameID string) error {
	players, err := s.GetPlayers(ctx, gameID)
	if err != nil {
		return err
	}
	for _, playerID := range players {
		if err := s.SetPlayerReady(ctx, gameID, playerID, false); err != nil {
			return err
		}
	}
	return nil
}

func (s *gameStore) ClearDiscardForPlayers(ctx context.Context, gameID string) error {
	players, err := s.GetPlayers(ctx, gameID)
	if err != nil {
		return err
	}
	for _, playerID := range players {
		if err := s.SetPlayerDiscard(ctx, gameID, playerID, nil); err != nil {
			return err
		}
	}
	return nil
}
