package session

import "github.com/gammonhub/gammon-server-go/internal/match"

// EventType tags an inbound session event. The set is closed: anything
// else is rejected at the channel boundary.
type EventType string

const (
	EventJoinRoom  EventType = "join-room"
	EventRollDice  EventType = "roll-dice"
	EventMove      EventType = "move"
	EventSurrender EventType = "surrender"
	EventLeaveRoom EventType = "leave-room"
)

// Valid reports whether the event type is one the coordinator handles.
func (t EventType) Valid() bool {
	switch t {
	case EventJoinRoom, EventRollDice, EventMove, EventSurrender, EventLeaveRoom:
		return true
	}
	return false
}

// Event is one decoded inbound session event. From and To are only
// meaningful for EventMove.
type Event struct {
	Type    EventType `json:"type"`
	MatchID string    `json:"match_id"`
	From    int       `json:"from"`
	To      int       `json:"to"`
}

// Outbound message types.
const (
	MsgJoined              = "joined"
	MsgPlayerJoined        = "player-joined"
	MsgPlayerLeft          = "player-left"
	MsgInitialRoll         = "initial-roll"
	MsgInitialRollTie      = "initial-roll-tie"
	MsgInitialRollComplete = "initial-roll-complete"
	MsgDiceRolled          = "dice-rolled"
	MsgTurnSkipped         = "turn-skipped"
	MsgMoveMade            = "move-made"
	MsgCompleted           = "completed"
	MsgError               = "error"
)

// Message is one outbound session event.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Roles reported on join.
const (
	RolePlayer    = "player"
	RoleSpectator = "spectator"
)

type JoinedPayload struct {
	Match  *match.Match `json:"match"`
	Role   string       `json:"role"`
	Player int          `json:"player,omitempty"`
}

type PlayerJoinedPayload struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type PlayerLeftPayload struct {
	UserID string `json:"user_id"`
}

type InitialRollPayload struct {
	Player int `json:"player"`
	Value  int `json:"value"`
}

type InitialRollTiePayload struct {
	Value int `json:"value"`
}

type InitialRollCompletePayload struct {
	Match *match.Match `json:"match"`
}

type DiceRolledPayload struct {
	Player         int    `json:"player"`
	Dice           [2]int `json:"dice"`
	RemainingMoves []int  `json:"remaining_moves"`
}

type TurnSkippedPayload struct {
	Player        int `json:"player"`
	CurrentPlayer int `json:"current_player"`
}

type MoveMadePayload struct {
	Player int          `json:"player"`
	From   int          `json:"from"`
	To     int          `json:"to"`
	Match  *match.Match `json:"match"`
}

// Completion reasons.
const (
	ReasonVictory   = "victory"
	ReasonSurrender = "surrender"
)

type CompletedPayload struct {
	Winner string       `json:"winner"`
	Reason string       `json:"reason"`
	Match  *match.Match `json:"match"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
