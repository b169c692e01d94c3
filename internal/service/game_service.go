package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"dumbal/internal/cache"
	"dumbal/internal/deck"
	"dumbal/internal/gameerr"
	"dumbal/internal/model"
	"dumbal/internal/repository"
	"dumbal/internal/rules"
)

// GameService is the game lifecycle engine: creation, round start and
// dealing, turn advancement, archival and deletion. All live state is
// read from and written to the store, never held on the service.
type GameService struct {
	store       cache.GameStore
	repo        repository.GameRepo
	leaderboard cache.Leaderboard
}

// NewGameService creates a new game service.
func NewGameService(store cache.GameStore, repo repository.GameRepo, leaderboard cache.Leaderboard) *GameService {
	return &GameService{
		store:       store,
		repo:        repo,
		leaderboard: leaderboard,
	}
}

// Create allocates a new game in the SettingUp stage. A limit of 0
// selects the default points limit.
func (s *GameService) Create(ctx context.Context, pointsLimit int) (string, error) {
	if pointsLimit <= 0 {
		pointsLimit = model.DefaultPointsLimit
	}
	gameID := newGameID()

	if err := s.store.AddGame(ctx, gameID); err != nil {
		return "", fmt.Errorf("register game: %w", err)
	}
	if err := s.store.SetPointsLimit(ctx, gameID, pointsLimit); err != nil {
		return "", fmt.Errorf("set points limit: %w", err)
	}

	record := &model.GameRecord{
		ID:          gameID,
		Status:      model.GameCreated,
		PointsLimit: pointsLimit,
		CreatedAt:   time.Now(),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return "", fmt.Errorf("archive game: %w", err)
	}
	return gameID, nil
}

// IsStarted reports whether the game has left the SettingUp stage.
func (s *GameService) IsStarted(ctx context.Context, gameID string) (bool, error) {
	exists, err := s.store.GameExists(ctx, gameID)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, gameerr.New(gameerr.NotFound, "unable to find a game with id: %s", gameID)
	}
	stage, err := s.store.GetStage(ctx, gameID)
	if err != nil {
		return false, err
	}
	return stage != model.StageSettingUp, nil
}

// Start begins the game by dealing the first round.
func (s *GameService) Start(ctx context.Context, gameID string) (*model.RoundDetails, error) {
	players, err := s.store.GetPlayers(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if len(players) < model.MinPlayers {
		return nil, gameerr.New(gameerr.InsufficientPlayers,
			"at least %d players are required to start the game", model.MinPlayers)
	}

	details, err := s.StartNextRound(ctx, gameID)
	if err != nil {
		return nil, err
	}

	if record, err := s.repo.GetByID(ctx, gameID); err == nil && record != nil {
		now := time.Now()
		record.Status = model.GameActive
		record.Players = players
		record.StartedAt = &now
		if err := s.repo.Update(ctx, record); err != nil {
			log.Printf("archive update failed for game %s: %v", gameID, err)
		}
	}
	return details, nil
}

// StartNextRound rotates the round leader, resets per-round state and
// deals a fresh hand to every player still in. Rejected outside the
// SettingUp and BetweenRounds stages, which also makes it safe when
// two players observe the all-ready condition at once.
func (s *GameService) StartNextRound(ctx context.Context, gameID string) (*model.RoundDetails, error) {
	stage, err := s.store.GetStage(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if stage != model.StageSettingUp && stage != model.StageBetweenRounds {
		return nil, gameerr.New(gameerr.BadTiming,
			"unable to start the next round in the middle of the last one")
	}

	lastLeader, err := s.store.GetRoundLeader(ctx, gameID)
	if err != nil {
		return nil, err
	}
	stillIn, err := s.store.GetPlayersStillIn(ctx, gameID)
	if err != nil {
		return nil, err
	}
	leader := rules.NextPlayer(stillIn, lastLeader)

	lastRound, err := s.store.GetRoundNumber(ctx, gameID)
	if err != nil {
		return nil, err
	}
	roundNumber := 0
	if lastRound != nil {
		roundNumber = *lastRound + 1
	}

	if err := s.store.SetStage(ctx, gameID, model.StagePlayingCards); err != nil {
		return nil, err
	}
	if err := s.store.SetActivePlayer(ctx, gameID, leader); err != nil {
		return nil, err
	}
	if err := s.store.SetRoundLeader(ctx, gameID, leader); err != nil {
		return nil, err
	}
	if err := s.store.SetRoundNumber(ctx, gameID, roundNumber); err != nil {
		return nil, err
	}
	if err := s.store.ClearReadyForPlayers(ctx, gameID); err != nil {
		return nil, err
	}
	if err := s.store.ClearDiscardForPlayers(ctx, gameID); err != nil {
		return nil, err
	}
	if err := s.store.SetRoundEndedBy(ctx, gameID, ""); err != nil {
		return nil, err
	}

	cardsByPlayer, err := s.deal(ctx, gameID, stillIn)
	if err != nil {
		return nil, err
	}

	cardCounts := make(map[string]int, len(cardsByPlayer))
	for playerID, cards := range cardsByPlayer {
		cardCounts[playerID] = len(cards)
	}
	return &model.RoundDetails{
		ActivePlayer:  leader,
		Stage:         model.StagePlayingCards,
		RoundNumber:   roundNumber,
		CardsByPlayer: cardsByPlayer,
		CardCounts:    cardCounts,
	}, nil
}

// deal hands out cards from the front of a fresh shuffled deck and
// persists the remainder as the draw pile.
func (s *GameService) deal(ctx context.Context, gameID string, stillIn []string) (map[string][]model.Card, error) {
	pile := deck.New()
	cardsByPlayer := make(map[string][]model.Card, len(stillIn))
	for _, playerID := range stillIn {
		hand := pile[:model.HandSize]
		pile = pile[model.HandSize:]
		if err := s.store.SetPlayerCards(ctx, gameID, playerID, hand); err != nil {
			return nil, err
		}
		cardsByPlayer[playerID] = hand
	}
	if err := s.store.SetDeck(ctx, gameID, pile); err != nil {
		return nil, err
	}
	return cardsByPlayer, nil
}

// StartNextTurn advances the active player to the next player still
// in and returns to the PlayingCards stage. It does not verify that
// the previous turn's obligations were discharged.
func (s *GameService) StartNextTurn(ctx context.Context, gameID string) (*model.TurnDetails, error) {
	active, err := s.store.GetActivePlayer(ctx, gameID)
	if err != nil {
		return nil, err
	}
	stillIn, err := s.store.GetPlayersStillIn(ctx, gameID)
	if err != nil {
		return nil, err
	}
	next := rules.NextPlayer(stillIn, active)

	if err := s.store.SetStage(ctx, gameID, model.StagePlayingCards); err != nil {
		return nil, err
	}
	if err := s.store.SetActivePlayer(ctx, gameID, next); err != nil {
		return nil, err
	}
	return &model.TurnDetails{
		ActivePlayer: next,
		Stage:        model.StagePlayingCards,
	}, nil
}

// ResetDeck rebuilds the draw pile from a full deck minus every card
// currently held or discarded, and persists it.
func (s *GameService) ResetDeck(ctx context.Context, gameID string) ([]model.Card, error) {
	discards, err := s.store.DiscardForPlayers(ctx, gameID)
	if err != nil {
		return nil, err
	}
	hands, err := s.store.CardsForPlayersStillIn(ctx, gameID)
	if err != nil {
		return nil, err
	}

	var inPlay []model.Card
	for _, cards := range discards {
		inPlay = append(inPlay, cards...)
	}
	for _, cards := range hands {
		inPlay = append(inPlay, cards...)
	}

	pile := deck.Reset(inPlay)
	if err := s.store.SetDeck(ctx, gameID, pile); err != nil {
		return nil, err
	}
	return pile, nil
}

// Players returns the game's players in turn order.
func (s *GameService) Players(ctx context.Context, gameID string) ([]string, error) {
	return s.store.GetPlayers(ctx, gameID)
}

// Record returns the game's archive record.
func (s *GameService) Record(ctx context.Context, gameID string) (*model.GameRecord, error) {
	return s.repo.GetByID(ctx, gameID)
}

// Recent returns the most recently created games from the archive.
func (s *GameService) Recent(ctx context.Context, limit int64) ([]*model.GameRecord, error) {
	return s.repo.ListRecent(ctx, limit)
}

// Delete removes every stored key of the game and its archive record.
func (s *GameService) Delete(ctx context.Context, gameID string) error {
	if err := s.store.DeleteGame(ctx, gameID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, gameID)
}

// Finalize closes out the archive record once the game completes:
// winner, cumulative totals, rounds played.
func (s *GameService) Finalize(ctx context.Context, gameID string) error {
	record, err := s.repo.GetByID(ctx, gameID)
	if err != nil {
		return err
	}
	if record == nil {
		return nil
	}

	players, err := s.store.GetPlayers(ctx, gameID)
	if err != nil {
		return err
	}
	scores, err := s.store.GetScores(ctx, gameID)
	if err != nil {
		return err
	}
	stillIn, err := s.store.GetPlayersStillIn(ctx, gameID)
	if err != nil {
		return err
	}

	now := time.Now()
	record.Status = model.GameFinished
	record.CompletedAt = &now
	record.FinalScores = rules.TotalScores(players, scores)
	record.RoundsPlayed = len(scores)
	if len(stillIn) == 1 {
		record.Winner = stillIn[0]
	} else {
		record.Winner = rules.OverallWinner(players, scores)
	}
	if record.Winner != "" {
		if err := s.leaderboard.RecordWin(ctx, record.Winner); err != nil {
			log.Printf("leaderboard update failed for game %s: %v", gameID, err)
		}
	}
	return s.repo.Update(ctx, record)
}

// Leaderboard returns the all-time wins ranking.
func (s *GameService) Leaderboard(ctx context.Context, limit int) ([]cache.LeaderboardEntry, error) {
	return s.leaderboard.Top(ctx, limit)
}

// PlayerRank returns a player's 1-indexed position on the wins
// leaderboard, or -1 for a player with no recorded wins.
func (s *GameService) PlayerRank(ctx context.Context, playerID string) (int64, error) {
	return s.leaderboard.Rank(ctx, playerID)
}

// LiveGames lists the ids of every game currently held in the store,
// finished or not, in no particular order.
func (s *GameService) LiveGames(ctx context.Context) ([]string, error) {
	return s.store.ListGames(ctx)
}

func newGameID() string {
	return uuid.New().String()[:8]
}
