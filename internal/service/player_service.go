package service

import (
	"context"
	"log"

	"dumbal/internal/cache"
	"dumbal/internal/gameerr"
	"dumbal/internal/model"
	"dumbal/internal/rules"
)

// PlayerService is the player action engine. Every operation resolves
// a (gameID, playerID) pair, validates turn order and stage against
// the store before writing anything, and commits or rejects the
// action as a whole.
type PlayerService struct {
	store   cache.GameStore
	gameSvc *GameService
	authSvc *AuthService
}

// NewPlayerService creates a new player service.
func NewPlayerService(store cache.GameStore, gameSvc *GameService, authSvc *AuthService) *PlayerService {
	return &PlayerService{
		store:   store,
		gameSvc: gameSvc,
		authSvc: authSvc,
	}
}

// Join adds the player to a game during setup, or re-admits a known
// player to a started game. The returned token proves the identity
// on later rejoins.
func (s *PlayerService) Join(ctx context.Context, gameID, playerID, socketID string) (*model.JoinResult, error) {
	players, err := s.store.GetPlayers(ctx, gameID)
	if err != nil {
		return nil, err
	}
	started, err := s.gameSvc.IsStarted(ctx, gameID)
	if err != nil {
		return nil, err
	}

	exists := false
	for _, p := range players {
		if p == playerID {
			exists = true
			break
		}
	}

	if exists && !started {
		return nil, gameerr.New(gameerr.Conflict,
			"the name %s is already in use, please choose a different name", playerID)
	}
	if !started && len(players) >= model.MaxPlayers {
		return nil, gameerr.New(gameerr.Forbidden,
			"the maximum number of players has already joined the game")
	}
	if started {
		if !exists {
			return nil, gameerr.New(gameerr.BadTiming,
				"the game has already started, no new players can be added")
		}
		token, err := s.authSvc.GenerateSessionToken(gameID, playerID)
		if err != nil {
			return nil, err
		}
		return &model.JoinResult{PlayerID: playerID, Players: players, Token: token}, nil
	}

	if _, err := s.store.AddPlayer(ctx, gameID, playerID); err != nil {
		return nil, err
	}
	if err := s.store.SetPlayerSocket(ctx, gameID, playerID, socketID); err != nil {
		return nil, err
	}
	token, err := s.authSvc.GenerateSessionToken(gameID, playerID)
	if err != nil {
		return nil, err
	}
	return &model.JoinResult{
		PlayerID: playerID,
		Players:  append(players, playerID),
		Token:    token,
	}, nil
}

// Rejoin re-binds a known player to a new connection and returns the
// full state snapshot. When claims from a presented session token are
// given, they must match the identity being rejoined.
func (s *PlayerService) Rejoin(ctx context.Context, gameID, playerID, socketID string, claims *model.SessionClaims) (*model.GameState, error) {
	exists, err := s.store.PlayerExists(ctx, gameID, playerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, gameerr.New(gameerr.NotFound, "no player exists with name: %s", playerID)
	}
	if claims != nil && (claims.GameID != gameID || claims.PlayerID != playerID) {
		return nil, gameerr.New(gameerr.Forbidden, "session token does not match this player")
	}
	if err := s.store.SetPlayerSocket(ctx, gameID, playerID, socketID); err != nil {
		return nil, err
	}
	return s.GameState(ctx, gameID, playerID)
}

// PlayCards moves a valid selection from the player's hand to their
// discard and advances the stage to PickingCard.
func (s *PlayerService) PlayCards(ctx context.Context, gameID, playerID string, cardsToPlay []model.Card) (*model.PlayResult, error) {
	active, err := s.store.GetActivePlayer(ctx, gameID)
	if err != nil {
		return nil, err
	}
	stage, err := s.store.GetStage(ctx, gameID)
	if err != nil {
		return nil, err
	}
	hand, err := s.store.GetPlayerCards(ctx, gameID, playerID)
	if err != nil {
		return nil, err
	}

	if playerID != active {
		return nil, gameerr.New(gameerr.NotYourTurn,
			"cannot play cards unless you are the active player, the active player is: %s", active)
	}
	if stage != model.StagePlayingCards {
		return nil, gameerr.New(gameerr.BadTiming, "cannot play cards during %s", stage)
	}
	if !rules.IncludesCards(hand, cardsToPlay) {
		return nil, gameerr.New(gameerr.NotFound,
			"the cards to play do not match the cards in your hand")
	}
	if !rules.IsValidSelection(cardsToPlay) {
		return nil, gameerr.New(gameerr.Forbidden,
			"not a valid play, you may only play a set of the same card or a run of 3 or more")
	}

	if err := s.store.RemoveFromPlayerCards(ctx, gameID, playerID, cardsToPlay); err != nil {
		return nil, err
	}
	if err := s.store.SetPlayerDiscard(ctx, gameID, playerID, cardsToPlay); err != nil {
		return nil, err
	}
	if err := s.store.SetStage(ctx, gameID, model.StagePickingCard); err != nil {
		return nil, err
	}
	return &model.PlayResult{
		PlayerID: playerID,
		Cards:    cardsToPlay,
		Stage:    model.StagePickingCard,
		Count:    len(hand) - len(cardsToPlay),
	}, nil
}

// DrawFromDeck pops the top card of the draw pile into the player's
// hand. An exhausted pile is rebuilt from the out-of-play cards first;
// if nothing is left to rebuild from, the draw is rejected unchanged.
func (s *PlayerService) DrawFromDeck(ctx context.Context, gameID, playerID string) (model.Card, error) {
	var none model.Card
	active, err := s.store.GetActivePlayer(ctx, gameID)
	if err != nil {
		return none, err
	}
	stage, err := s.store.GetStage(ctx, gameID)
	if err != nil {
		return none, err
	}

	if playerID != active {
		return none, gameerr.New(gameerr.NotYourTurn,
			"cannot draw a card unless you are the active player, the active player is: %s", active)
	}
	if stage != model.StagePickingCard {
		return none, gameerr.New(gameerr.BadTiming,
			"cannot draw a card during %s", stage)
	}

	pile, err := s.store.GetDeck(ctx, gameID)
	if err != nil {
		return none, err
	}
	if len(pile) == 0 {
		pile, err = s.gameSvc.ResetDeck(ctx, gameID)
		if err != nil {
			return none, err
		}
		if len(pile) == 0 {
			return none, gameerr.New(gameerr.Forbidden, "the draw pile is exhausted")
		}
	}

	drawn := pile[0]
	if err := s.store.AddToPlayerCards(ctx, gameID, playerID, []model.Card{drawn}); err != nil {
		return none, err
	}
	if err := s.store.SetDeck(ctx, gameID, pile[1:]); err != nil {
		return none, err
	}
	return drawn, nil
}

// DrawFromDiscard takes the given card from the previous player's
// discard into the caller's hand.
func (s *PlayerService) DrawFromDiscard(ctx context.Context, gameID, playerID string, card model.Card) (model.Card, error) {
	var none model.Card
	active, err := s.store.GetActivePlayer(ctx, gameID)
	if err != nil {
		return none, err
	}
	if playerID != active {
		return none, gameerr.New(gameerr.NotYourTurn,
			"cannot pick up a card unless you are the active player, the active player is: %s", active)
	}

	stillIn, err := s.store.GetPlayersStillIn(ctx, gameID)
	if err != nil {
		return none, err
	}
	prev := rules.PreviousPlayer(stillIn, active)

	discard, err := s.store.GetPlayerDiscard(ctx, gameID, prev)
	if err != nil {
		return none, err
	}
	if !rules.IncludesCards(discard, []model.Card{card}) {
		return none, gameerr.New(gameerr.NotFound,
			"cannot pick up card, %s is not in the discard", card.Name())
	}

	if err := s.store.AddToPlayerCards(ctx, gameID, playerID, []model.Card{card}); err != nil {
		return none, err
	}
	if err := s.store.SetPlayerDiscard(ctx, gameID, prev, rules.RemoveCards(discard, []model.Card{card})); err != nil {
		return none, err
	}
	return card, nil
}

// Ready marks the player ready for the next round and reports whether
// every player still in is now ready. Players only ever write their
// own ready slice, so concurrent ready calls are safe; the caller
// that observes all-ready triggers the round start.
func (s *PlayerService) Ready(ctx context.Context, gameID, playerID string) (bool, error) {
	if err := s.store.SetPlayerReady(ctx, gameID, playerID, true); err != nil {
		return false, err
	}
	ready, err := s.store.ReadyForPlayers(ctx, gameID)
	if err != nil {
		return false, err
	}
	stillIn, err := s.store.GetPlayersStillIn(ctx, gameID)
	if err != nil {
		return false, err
	}
	for _, p := range stillIn {
		if !ready[p] {
			return false, nil
		}
	}
	return true, nil
}

// EndRound calls the round. The caller's hand must total 5 or less.
// Scores the round, moves every hand to its discard, eliminates
// players at or over the points limit, and completes the game when a
// single player remains.
func (s *PlayerService) EndRound(ctx context.Context, gameID, playerID string) (*model.RoundResult, error) {
	active, err := s.store.GetActivePlayer(ctx, gameID)
	if err != nil {
		return nil, err
	}
	stage, err := s.store.GetStage(ctx, gameID)
	if err != nil {
		return nil, err
	}
	hand, err := s.store.GetPlayerCards(ctx, gameID, playerID)
	if err != nil {
		return nil, err
	}

	if playerID != active {
		return nil, gameerr.New(gameerr.NotYourTurn, "cannot end the round when it's not your turn")
	}
	if stage != model.StagePlayingCards {
		return nil, gameerr.New(gameerr.BadTiming,
			"the round can only be ended at the beginning of your turn")
	}
	if rules.CardsTotal(hand) > model.EndRoundThreshold {
		return nil, gameerr.New(gameerr.Forbidden,
			"you must have %d or fewer points in hand to end the round", model.EndRoundThreshold)
	}

	cardsByPlayer, err := s.store.CardsForPlayersStillIn(ctx, gameID)
	if err != nil {
		return nil, err
	}
	roundScores := rules.ScoreRound(cardsByPlayer, playerID)

	if err := s.store.SetStage(ctx, gameID, model.StageBetweenRounds); err != nil {
		return nil, err
	}
	if err := s.store.SetRoundEndedBy(ctx, gameID, playerID); err != nil {
		return nil, err
	}
	if err := s.store.AddRoundScores(ctx, gameID, roundScores); err != nil {
		return nil, err
	}
	for pID, cards := range cardsByPlayer {
		if err := s.store.SetPlayerDiscard(ctx, gameID, pID, cards); err != nil {
			return nil, err
		}
		if err := s.store.SetPlayerCards(ctx, gameID, pID, nil); err != nil {
			return nil, err
		}
	}

	players, err := s.store.GetPlayers(ctx, gameID)
	if err != nil {
		return nil, err
	}
	scores, err := s.store.GetScores(ctx, gameID)
	if err != nil {
		return nil, err
	}
	limit, err := s.store.GetPointsLimit(ctx, gameID)
	if err != nil {
		return nil, err
	}

	totals := rules.TotalScores(players, scores)
	var out []string
	for _, pID := range players {
		if totals[pID] >= limit {
			out = append(out, pID)
		}
	}
	for _, pID := range out {
		if err := s.store.SetPlayerOut(ctx, gameID, pID, true); err != nil {
			return nil, err
		}
	}

	nextStage := model.StageBetweenRounds
	if len(players) == len(out)+1 {
		// one player left standing, the game is over
		nextStage = model.StageComplete
		if err := s.store.SetStage(ctx, gameID, nextStage); err != nil {
			return nil, err
		}
		if err := s.gameSvc.Finalize(ctx, gameID); err != nil {
			log.Printf("archive finalize failed for game %s: %v", gameID, err)
		}
	}

	return &model.RoundResult{
		RoundEndedBy: playerID,
		Scores:       roundScores,
		Discard:      cardsByPlayer,
		Stage:        nextStage,
		Out:          out,
	}, nil
}

// Cards returns the player's current hand.
func (s *PlayerService) Cards(ctx context.Context, gameID, playerID string) ([]model.Card, error) {
	return s.store.GetPlayerCards(ctx, gameID, playerID)
}

// GameState assembles the canonical read-only snapshot for a player.
func (s *PlayerService) GameState(ctx context.Context, gameID, playerID string) (*model.GameState, error) {
	scores, err := s.store.GetScores(ctx, gameID)
	if err != nil {
		return nil, err
	}
	roundNumber, err := s.store.GetRoundNumber(ctx, gameID)
	if err != nil {
		return nil, err
	}
	stage, err := s.store.GetStage(ctx, gameID)
	if err != nil {
		return nil, err
	}
	cards, err := s.store.GetPlayerCards(ctx, gameID, playerID)
	if err != nil {
		return nil, err
	}
	ready, err := s.store.ReadyForPlayers(ctx, gameID)
	if err != nil {
		return nil, err
	}
	roundEndedBy, err := s.store.GetRoundEndedBy(ctx, gameID)
	if err != nil {
		return nil, err
	}
	roundLeader, err := s.store.GetRoundLeader(ctx, gameID)
	if err != nil {
		return nil, err
	}
	discard, err := s.store.DiscardForPlayers(ctx, gameID)
	if err != nil {
		return nil, err
	}
	players, err := s.store.GetPlayers(ctx, gameID)
	if err != nil {
		return nil, err
	}
	active, err := s.store.GetActivePlayer(ctx, gameID)
	if err != nil {
		return nil, err
	}
	stillIn, err := s.store.GetPlayersStillIn(ctx, gameID)
	if err != nil {
		return nil, err
	}
	cardCounts, err := s.store.CardCountsForPlayersStillIn(ctx, gameID)
	if err != nil {
		return nil, err
	}

	in := make(map[string]bool, len(stillIn))
	for _, p := range stillIn {
		in[p] = true
	}
	out := []string{}
	for _, p := range players {
		if !in[p] {
			out = append(out, p)
		}
	}

	return &model.GameState{
		GameID:       gameID,
		PlayerID:     playerID,
		Players:      players,
		Scores:       scores,
		RoundNumber:  roundNumber,
		Stage:        stage,
		Cards:        cards,
		Ready:        ready,
		RoundEndedBy: roundEndedBy,
		RoundLeader:  roundLeader,
		ActivePlayer: active,
		Discard:      discard,
		Out:          out,
		CardCounts:   cardCounts,
	}, nil
}
