// Package session coordinates live matches: it owns the per-match
// rooms, validates inbound events against the rules engine, persists
// through the store's version check, and broadcasts the results. All
// rejections go back to the offending subscriber as scoped error
// messages; the shared state never advances on a rejection.
package session

import (
	"context"
	"errors"
	"math/rand"
	"sync"

	"github.com/gammonhub/gammon-server-go/internal/match"
	"github.com/gammonhub/gammon-server-go/internal/rules"
	"github.com/gammonhub/gammon-server-go/internal/settlement"
	"go.uber.org/zap"
)

// Coordinator runs the session channel for every live match. The RNG
// is injected so tests can script dice.
type Coordinator struct {
	store       match.Store
	settler     *settlement.Settler
	logger      *zap.Logger
	saveRetries int

	rngMu sync.Mutex
	rng   *rand.Rand

	mu    sync.Mutex
	rooms map[string]*room
}

// NewCoordinator creates a session coordinator. saveRetries bounds how
// often an event re-runs after losing a store version race.
func NewCoordinator(store match.Store, settler *settlement.Settler, rng *rand.Rand, saveRetries int, logger *zap.Logger) *Coordinator {
	if saveRetries < 1 {
		saveRetries = 1
	}
	return &Coordinator{
		store:       store,
		settler:     settler,
		logger:      logger,
		saveRetries: saveRetries,
		rng:         rng,
		rooms:       make(map[string]*room),
	}
}

// Handle dispatches one inbound event for the subscriber.
func (c *Coordinator) Handle(ctx context.Context, sub Subscriber, ev Event) {
	if ev.MatchID == "" {
		c.sendError(sub, "missing match id")
		return
	}

	switch ev.Type {
	case EventJoinRoom:
		c.handleJoin(ctx, sub, ev.MatchID)
	case EventRollDice:
		c.handleRoll(ctx, sub, ev.MatchID)
	case EventMove:
		c.handleMove(ctx, sub, ev.MatchID, ev.From, ev.To)
	case EventSurrender:
		c.handleSurrender(ctx, sub, ev.MatchID)
	case EventLeaveRoom:
		c.Leave(sub, ev.MatchID)
	default:
		c.sendError(sub, "unknown event type")
	}
}

// Leave detaches the subscriber from the match room and tells the
// remaining members. A disconnect is not a forfeit: the match state is
// untouched.
func (c *Coordinator) Leave(sub Subscriber, matchID string) {
	c.mu.Lock()
	r, ok := c.rooms[matchID]
	c.mu.Unlock()
	if !ok {
		return
	}

	r.mu.Lock()
	_, present := r.subs[sub]
	if present {
		r.remove(sub)
		r.broadcast(Message{Type: MsgPlayerLeft, Payload: PlayerLeftPayload{
			UserID: sub.UserID(),
		}})
		if len(r.subs) == 0 {
			r.closed = true
		}
	}
	closed := r.closed
	r.mu.Unlock()

	if closed {
		c.mu.Lock()
		if c.rooms[matchID] == r {
			delete(c.rooms, matchID)
		}
		c.mu.Unlock()
	}
}

// Disconnect detaches the subscriber from every room it joined.
// Called by the transport when the connection closes.
func (c *Coordinator) Disconnect(sub Subscriber) {
	c.mu.Lock()
	ids := make([]string, 0, len(c.rooms))
	for id := range c.rooms {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	for _, id := range ids {
		c.Leave(sub, id)
	}
}

func (c *Coordinator) room(matchID string) *room {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.rooms[matchID]
	if !ok {
		r = newRoom()
		c.rooms[matchID] = r
	}
	return r
}

// lockRoom returns the match room with its lock held. A room fetched
// just as its last member left may already be closed; in that case the
// registry entry is gone (or about to go) and a fresh room is fetched.
func (c *Coordinator) lockRoom(matchID string) *room {
	for {
		r := c.room(matchID)
		r.mu.Lock()
		if !r.closed {
			return r
		}
		r.mu.Unlock()
	}
}

func (c *Coordinator) sendError(sub Subscriber, msg string) {
	sub.Send(Message{Type: MsgError, Payload: ErrorPayload{Message: msg}})
}

func (c *Coordinator) rollDie() int {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return rules.RollDie(c.rng)
}

func (c *Coordinator) rollDice() [2]int {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return rules.RollDice(c.rng)
}

func (c *Coordinator) handleJoin(ctx context.Context, sub Subscriber, matchID string) {
	m, err := c.store.Get(ctx, matchID)
	if err != nil {
		c.sendError(sub, "match not found")
		return
	}

	role := RoleSpectator
	player := m.PlayerNumber(sub.UserID())
	if player != 0 {
		role = RolePlayer
	}

	r := c.lockRoom(matchID)
	defer r.mu.Unlock()

	r.add(sub)
	sub.Send(Message{Type: MsgJoined, Payload: JoinedPayload{
		Match:  m,
		Role:   role,
		Player: player,
	}})
	r.broadcastExcept(sub, Message{Type: MsgPlayerJoined, Payload: PlayerJoinedPayload{
		UserID: sub.UserID(),
		Role:   role,
	}})

	c.logger.Debug("subscriber joined room",
		zap.String("match_id", matchID),
		zap.String("user_id", sub.UserID()),
		zap.String("role", role),
	)
}

// loadActing loads the match and checks that it is active and that the
// actor is one of its players. Returns the player number, or 0 with an
// error already sent to the subscriber.
func (c *Coordinator) loadActing(ctx context.Context, sub Subscriber, matchID string) (*match.Match, int) {
	m, err := c.store.Get(ctx, matchID)
	if err != nil {
		c.sendError(sub, "match not found")
		return nil, 0
	}
	if m.Status != match.StatusActive {
		c.sendError(sub, "match is not active")
		return nil, 0
	}
	player := m.PlayerNumber(sub.UserID())
	if player == 0 {
		c.sendError(sub, "only players can act")
		return nil, 0
	}
	return m, player
}

// save persists the match, reporting whether the caller should retry
// the whole event after a lost version race.
func (c *Coordinator) save(ctx context.Context, sub Subscriber, m *match.Match) (retry bool, ok bool) {
	err := c.store.Update(ctx, m)
	if err == nil {
		return false, true
	}
	if errors.Is(err, match.ErrConflict) {
		return true, false
	}
	c.logger.Error("failed to save match",
		zap.String("match_id", m.ID),
		zap.Error(err),
	)
	c.sendError(sub, "failed to save game state")
	return false, false
}

func (c *Coordinator) handleRoll(ctx context.Context, sub Subscriber, matchID string) {
	r := c.lockRoom(matchID)
	defer r.mu.Unlock()

	for attempt := 0; attempt < c.saveRetries; attempt++ {
		m, player := c.loadActing(ctx, sub, matchID)
		if m == nil {
			return
		}

		if m.Board.InitialRollPhase {
			if c.rollInitial(ctx, sub, r, m, player) {
				return
			}
			continue
		}

		if player != m.Board.CurrentPlayer {
			c.sendError(sub, "not your turn")
			return
		}
		if len(m.Board.RemainingMoves) > 0 {
			c.sendError(sub, "dice already rolled")
			return
		}

		dice := c.rollDice()
		m.Board.Dice = dice
		m.Board.RemainingMoves = rules.AvailableMoves(dice)

		skipped := 0
		if !rules.HasValidMoves(m.Board, player, m.Board.RemainingMoves, m.Variant) {
			skipped = player
			m.Board.RemainingMoves = nil
			m.Board.CurrentPlayer = rules.SwitchPlayer(player)
		}

		retry, ok := c.save(ctx, sub, m)
		if retry {
			continue
		}
		if !ok {
			return
		}

		r.broadcast(Message{Type: MsgDiceRolled, Payload: DiceRolledPayload{
			Player:         player,
			Dice:           dice,
			RemainingMoves: m.Board.RemainingMoves,
		}})
		if skipped != 0 {
			r.broadcast(Message{Type: MsgTurnSkipped, Payload: TurnSkippedPayload{
				Player:        skipped,
				CurrentPlayer: m.Board.CurrentPlayer,
			}})
		}
		return
	}

	c.sendError(sub, "failed to save game state")
}

// rollInitial handles one single-die roll of the opening phase.
// Returns true when the event is finished, false to retry after a
// version race.
func (c *Coordinator) rollInitial(ctx context.Context, sub Subscriber, r *room, m *match.Match, player int) bool {
	if (player == 1 && m.Board.Player1InitialRoll != 0) ||
		(player == 2 && m.Board.Player2InitialRoll != 0) {
		c.sendError(sub, "you have already rolled")
		return true
	}

	value := c.rollDie()
	if player == 1 {
		m.Board.Player1InitialRoll = value
	} else {
		m.Board.Player2InitialRoll = value
	}

	p1, p2 := m.Board.Player1InitialRoll, m.Board.Player2InitialRoll
	bothRolled := p1 != 0 && p2 != 0
	tie := bothRolled && p1 == p2

	if tie {
		// Same roll: both start over, nothing else changes.
		m.Board.Player1InitialRoll = 0
		m.Board.Player2InitialRoll = 0
	} else if bothRolled {
		if p1 > p2 {
			m.Board.CurrentPlayer = 1
		} else {
			m.Board.CurrentPlayer = 2
		}
		m.Board.Dice = [2]int{p1, p2}
		m.Board.RemainingMoves = rules.AvailableMoves(m.Board.Dice)
		m.Board.InitialRollPhase = false
	}

	retry, ok := c.save(ctx, sub, m)
	if retry {
		return false
	}
	if !ok {
		return true
	}

	r.broadcast(Message{Type: MsgInitialRoll, Payload: InitialRollPayload{Player: player, Value: value}})
	switch {
	case tie:
		r.broadcast(Message{Type: MsgInitialRollTie, Payload: InitialRollTiePayload{Value: value}})
	case bothRolled:
		r.broadcast(Message{Type: MsgInitialRollComplete, Payload: InitialRollCompletePayload{Match: m}})
	}
	return true
}

func (c *Coordinator) handleMove(ctx context.Context, sub Subscriber, matchID string, from, to int) {
	r := c.lockRoom(matchID)
	defer r.mu.Unlock()

	for attempt := 0; attempt < c.saveRetries; attempt++ {
		m, player := c.loadActing(ctx, sub, matchID)
		if m == nil {
			return
		}

		if m.Board.InitialRollPhase {
			c.sendError(sub, "roll the dice first")
			return
		}
		if player != m.Board.CurrentPlayer {
			c.sendError(sub, "not your turn")
			return
		}
		if len(m.Board.RemainingMoves) == 0 {
			c.sendError(sub, "roll the dice first")
			return
		}

		// The first remaining pip that makes the move legal is the one
		// consumed; the player does not pick which die to spend.
		die := -1
		for i, pip := range m.Board.RemainingMoves {
			if rules.ValidMove(m.Board, from, to, player, pip, m.Variant) {
				die = i
				break
			}
		}
		if die == -1 {
			c.sendError(sub, "invalid move")
			return
		}

		next := rules.Apply(m.Board, from, to, player, m.Variant)
		next.RemainingMoves = append(
			append([]int{}, m.Board.RemainingMoves[:die]...),
			m.Board.RemainingMoves[die+1:]...)
		m.Board = next

		won := rules.Winner(m.Board) == player
		skipped := 0
		if won {
			m.Complete(m.PlayerID(player))
		} else if len(m.Board.RemainingMoves) == 0 {
			m.Board.CurrentPlayer = rules.SwitchPlayer(player)
		} else if !rules.HasValidMoves(m.Board, player, m.Board.RemainingMoves, m.Variant) {
			// Leftover pips are dead; the turn passes.
			skipped = player
			m.Board.RemainingMoves = nil
			m.Board.CurrentPlayer = rules.SwitchPlayer(player)
		}

		retry, ok := c.save(ctx, sub, m)
		if retry {
			continue
		}
		if !ok {
			return
		}

		r.broadcast(Message{Type: MsgMoveMade, Payload: MoveMadePayload{
			Player: player,
			From:   from,
			To:     to,
			Match:  m,
		}})
		if skipped != 0 {
			r.broadcast(Message{Type: MsgTurnSkipped, Payload: TurnSkippedPayload{
				Player:        skipped,
				CurrentPlayer: m.Board.CurrentPlayer,
			}})
		}
		if won {
			c.settle(ctx, m)
			r.broadcast(Message{Type: MsgCompleted, Payload: CompletedPayload{
				Winner: m.Winner,
				Reason: ReasonVictory,
				Match:  m,
			}})
		}
		return
	}

	c.sendError(sub, "failed to save game state")
}

func (c *Coordinator) handleSurrender(ctx context.Context, sub Subscriber, matchID string) {
	r := c.lockRoom(matchID)
	defer r.mu.Unlock()

	for attempt := 0; attempt < c.saveRetries; attempt++ {
		m, player := c.loadActing(ctx, sub, matchID)
		if m == nil {
			return
		}

		winner := m.PlayerID(rules.SwitchPlayer(player))
		m.Complete(winner)

		retry, ok := c.save(ctx, sub, m)
		if retry {
			continue
		}
		if !ok {
			return
		}

		c.settle(ctx, m)
		r.broadcast(Message{Type: MsgCompleted, Payload: CompletedPayload{
			Winner: winner,
			Reason: ReasonSurrender,
			Match:  m,
		}})
		return
	}

	c.sendError(sub, "failed to save game state")
}

// settle pays out a completed match. A failure here is recoverable:
// the match stays completed and unsettled and the settlement sweep
// retries it.
func (c *Coordinator) settle(ctx context.Context, m *match.Match) {
	if err := c.settler.Settle(ctx, m); err != nil {
		c.logger.Error("settlement failed, leaving for recovery sweep",
			zap.String("match_id", m.ID),
			zap.Error(err),
		)
	}
}
