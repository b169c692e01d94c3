package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"dumbal/internal/gameerr"
	"dumbal/internal/model"
	"dumbal/internal/service"
)

// Action identifies an inbound player action. The set is closed; the
// dispatcher switches over it exhaustively.
type Action string

const (
	ActCreateGame          Action = "create-game"
	ActJoinGame            Action = "join-game"
	ActStartGame           Action = "start-game"
	ActGetState            Action = "get-state"
	ActGetPlayers          Action = "get-players"
	ActPlayCards           Action = "play-cards"
	ActPickCardFromDeck    Action = "pick-card-from-deck"
	ActPickCardFromDiscard Action = "pick-card-from-discard"
	ActEndRound            Action = "end-round"
	ActReadyForNextRound   Action = "ready-for-next-round"
	ActRejoinGame          Action = "rejoin-game"
)

// ActionEnvelope is the inbound message format. Fields beyond Action
// are filled per action kind.
type ActionEnvelope struct {
	Action      Action       `json:"action"`
	GameID      string       `json:"gameId,omitempty"`
	PlayerID    string       `json:"playerId,omitempty"`
	Cards       []model.Card `json:"cards,omitempty"`
	Card        *model.Card  `json:"card,omitempty"`
	PointsLimit int          `json:"pointsLimit,omitempty"`
}

// Emitter is the outbound side of the hub the dispatcher needs.
type Emitter interface {
	JoinRoom(conn *Connection, gameID, playerID string)
	BroadcastToGame(gameID string, event EventType, payload interface{})
	SendToPlayer(gameID, playerID string, event EventType, payload interface{})
	SendToConn(conn *Connection, event EventType, payload interface{})
}

// Dispatcher maps inbound actions onto the engines and engine outputs
// onto broadcast events. Errors never propagate past here: they are
// converted to custom-error events on the originating connection.
type Dispatcher struct {
	emitter   Emitter
	gameSvc   *service.GameService
	playerSvc *service.PlayerService
}

// NewDispatcher creates a new action dispatcher.
func NewDispatcher(emitter Emitter, gameSvc *service.GameService, playerSvc *service.PlayerService) *Dispatcher {
	return &Dispatcher{
		emitter:   emitter,
		gameSvc:   gameSvc,
		playerSvc: playerSvc,
	}
}

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Handle decodes and executes one inbound action.
func (d *Dispatcher) Handle(ctx context.Context, conn *Connection, raw []byte) {
	var env ActionEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// not a rule violation, so no tagged kind; KindOf maps it to
		// the generic Error type
		d.sendError(conn, errors.New("malformed action message"))
		return
	}
	if err := d.dispatch(ctx, conn, &env); err != nil {
		d.sendError(conn, err)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, conn *Connection, env *ActionEnvelope) error {
	switch env.Action {
	case ActCreateGame:
		return d.createGame(ctx, conn, env)
	case ActJoinGame:
		return d.joinGame(ctx, conn, env)
	case ActStartGame:
		return d.startGame(ctx, env)
	case ActGetState:
		return d.getState(ctx, conn, env)
	case ActGetPlayers:
		return d.getPlayers(ctx, conn, env)
	case ActPlayCards:
		return d.playCards(ctx, env)
	case ActPickCardFromDeck:
		return d.pickCardFromDeck(ctx, conn, env)
	case ActPickCardFromDiscard:
		return d.pickCardFromDiscard(ctx, env)
	case ActEndRound:
		return d.endRound(ctx, env)
	case ActReadyForNextRound:
		return d.readyForNextRound(ctx, env)
	case ActRejoinGame:
		return d.rejoinGame(ctx, conn, env)
	default:
		return gameerr.New(gameerr.NotFound, "unknown action: %s", env.Action)
	}
}

func (d *Dispatcher) createGame(ctx context.Context, conn *Connection, env *ActionEnvelope) error {
	gameID, err := d.gameSvc.Create(ctx, env.PointsLimit)
	if err != nil {
		return err
	}
	d.emitter.SendToConn(conn, EvtGameCreated, map[string]string{"gameId": gameID})
	return nil
}

func (d *Dispatcher) joinGame(ctx context.Context, conn *Connection, env *ActionEnvelope) error {
	res, err := d.playerSvc.Join(ctx, env.GameID, env.PlayerID, conn.SocketID)
	if err != nil {
		return err
	}
	d.emitter.JoinRoom(conn, env.GameID, env.PlayerID)
	d.emitter.SendToConn(conn, EvtGameJoined, res)
	d.emitter.BroadcastToGame(env.GameID, EvtPlayersChanged, res.Players)
	return nil
}

func (d *Dispatcher) startGame(ctx context.Context, env *ActionEnvelope) error {
	details, err := d.gameSvc.Start(ctx, env.GameID)
	if err != nil {
		return err
	}
	d.emitRoundStarted(ctx, env.GameID, details)
	return nil
}

func (d *Dispatcher) getState(ctx context.Context, conn *Connection, env *ActionEnvelope) error {
	state, err := d.playerSvc.GameState(ctx, env.GameID, env.PlayerID)
	if err != nil {
		return err
	}
	d.emitter.SendToConn(conn, EvtGameState, state)
	return nil
}

func (d *Dispatcher) getPlayers(ctx context.Context, conn *Connection, env *ActionEnvelope) error {
	players, err := d.gameSvc.Players(ctx, env.GameID)
	if err != nil {
		return err
	}
	d.emitter.SendToConn(conn, EvtPlayers, players)
	return nil
}

func (d *Dispatcher) playCards(ctx context.Context, env *ActionEnvelope) error {
	res, err := d.playerSvc.PlayCards(ctx, env.GameID, env.PlayerID, env.Cards)
	if err != nil {
		return err
	}
	d.emitter.BroadcastToGame(env.GameID, EvtCardsPlayed, res)
	return nil
}

func (d *Dispatcher) pickCardFromDeck(ctx context.Context, conn *Connection, env *ActionEnvelope) error {
	card, err := d.playerSvc.DrawFromDeck(ctx, env.GameID, env.PlayerID)
	if err != nil {
		return err
	}
	d.emitter.SendToConn(conn, EvtCardDrawn, map[string]model.Card{"card": card})

	turn, err := d.gameSvc.StartNextTurn(ctx, env.GameID)
	if err != nil {
		return err
	}
	count, err := d.handCount(ctx, env.GameID, env.PlayerID)
	if err != nil {
		return err
	}
	d.emitter.BroadcastToGame(env.GameID, EvtCardPickedFromDeck, map[string]interface{}{
		"playerId": env.PlayerID,
		"count":    count,
	})
	d.emitter.BroadcastToGame(env.GameID, EvtActivePlayerChanged, turn)
	return nil
}

func (d *Dispatcher) pickCardFromDiscard(ctx context.Context, env *ActionEnvelope) error {
	if env.Card == nil {
		return gameerr.New(gameerr.NotFound, "no card given to pick up")
	}
	card, err := d.playerSvc.DrawFromDiscard(ctx, env.GameID, env.PlayerID, *env.Card)
	if err != nil {
		return err
	}
	turn, err := d.gameSvc.StartNextTurn(ctx, env.GameID)
	if err != nil {
		return err
	}
	count, err := d.handCount(ctx, env.GameID, env.PlayerID)
	if err != nil {
		return err
	}
	d.emitter.BroadcastToGame(env.GameID, EvtCardPickedFromDiscard, map[string]interface{}{
		"playerId": env.PlayerID,
		"card":     card,
		"count":    count,
	})
	d.emitter.BroadcastToGame(env.GameID, EvtActivePlayerChanged, turn)
	return nil
}

func (d *Dispatcher) endRound(ctx context.Context, env *ActionEnvelope) error {
	res, err := d.playerSvc.EndRound(ctx, env.GameID, env.PlayerID)
	if err != nil {
		return err
	}
	d.emitter.BroadcastToGame(env.GameID, EvtRoundComplete, res)
	if res.Stage == model.StageComplete {
		d.emitter.BroadcastToGame(env.GameID, EvtGameComplete, nil)
	}
	return nil
}

func (d *Dispatcher) readyForNextRound(ctx context.Context, env *ActionEnvelope) error {
	allReady, err := d.playerSvc.Ready(ctx, env.GameID, env.PlayerID)
	if err != nil {
		return err
	}
	d.emitter.BroadcastToGame(env.GameID, EvtPlayerReady, env.PlayerID)

	if !allReady {
		return nil
	}
	details, err := d.gameSvc.StartNextRound(ctx, env.GameID)
	if err != nil {
		// a concurrent ready already started the round; nothing to do
		if gameerr.Is(err, gameerr.BadTiming) {
			return nil
		}
		return err
	}
	d.emitRoundStarted(ctx, env.GameID, details)
	return nil
}

func (d *Dispatcher) rejoinGame(ctx context.Context, conn *Connection, env *ActionEnvelope) error {
	state, err := d.playerSvc.Rejoin(ctx, env.GameID, env.PlayerID, conn.SocketID, conn.Claims)
	if err != nil {
		return err
	}
	d.emitter.JoinRoom(conn, env.GameID, env.PlayerID)
	d.emitter.SendToConn(conn, EvtGameState, state)
	return nil
}

// emitRoundStarted delivers the round-started event per recipient so
// each player only ever sees their own hand.
func (d *Dispatcher) emitRoundStarted(ctx context.Context, gameID string, details *model.RoundDetails) {
	players, err := d.gameSvc.Players(ctx, gameID)
	if err != nil {
		log.Printf("round-started fanout for game %s: %v", gameID, err)
		return
	}
	for _, playerID := range players {
		d.emitter.SendToPlayer(gameID, playerID, EvtRoundStarted, map[string]interface{}{
			"activePlayer": details.ActivePlayer,
			"roundNumber":  details.RoundNumber,
			"stage":        details.Stage,
			"cards":        details.CardsByPlayer[playerID],
			"cardCounts":   details.CardCounts,
		})
	}
}

func (d *Dispatcher) handCount(ctx context.Context, gameID, playerID string) (int, error) {
	cards, err := d.playerSvc.Cards(ctx, gameID, playerID)
	if err != nil {
		return 0, err
	}
	return len(cards), nil
}

func (d *Dispatcher) sendError(conn *Connection, err error) {
	d.emitter.SendToConn(conn, EvtError, errorPayload{
		Type:    string(gameerr.KindOf(err)),
		Message: err.Error(),
	})
}
