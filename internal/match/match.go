// Package match defines the wagered match wrapping a board state and
// the lifecycle rules around it.
package match

import (
	"errors"
	"time"

	"github.com/gammonhub/gammon-server-go/internal/board"
)

// Status is the lifecycle state of a match.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// MinStake is the smallest allowed wager.
const MinStake = 1.0

var (
	ErrInvalidVariant = errors.New("invalid match variant")
	ErrInvalidStake   = errors.New("stake must be at least the minimum")
	ErrNotJoinable    = errors.New("match is not available for joining")
	ErrOwnMatch       = errors.New("cannot join your own match")
	ErrNotCreator     = errors.New("only the creator can cancel a match")
	ErrNotCancellable = errors.New("only a waiting match can be cancelled")
	ErrNotActive      = errors.New("match is not active")
)

// Match is one wagered game between two players. Board is only
// meaningful once the match is active; Version backs the store's
// optimistic concurrency check.
type Match struct {
	ID      string        `json:"id"`
	Variant board.Variant `json:"variant"`
	Stake   float64       `json:"stake"`

	Player1 string `json:"player1"`
	Player2 string `json:"player2,omitempty"`

	Status  Status `json:"status"`
	Winner  string `json:"winner,omitempty"`
	Settled bool   `json:"settled"`

	Board board.State `json:"board"`

	Version int `json:"version"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// IsPlayer reports whether the user is one of the two registered
// players.
func (m *Match) IsPlayer(userID string) bool {
	return userID != "" && (userID == m.Player1 || userID == m.Player2)
}

// PlayerNumber returns 1 or 2 for a registered player, 0 otherwise.
func (m *Match) PlayerNumber(userID string) int {
	switch {
	case userID != "" && userID == m.Player1:
		return 1
	case userID != "" && userID == m.Player2:
		return 2
	default:
		return 0
	}
}

// PlayerID maps a player number back to the user identity.
func (m *Match) PlayerID(number int) string {
	if number == 1 {
		return m.Player1
	}
	if number == 2 {
		return m.Player2
	}
	return ""
}

// Opponent returns the other registered player's identity.
func (m *Match) Opponent(userID string) string {
	switch userID {
	case m.Player1:
		return m.Player2
	case m.Player2:
		return m.Player1
	default:
		return ""
	}
}

// Clone returns a deep copy of the match, including the board state.
func (m *Match) Clone() *Match {
	c := *m
	c.Board = m.Board.Clone()
	if m.StartedAt != nil {
		t := *m.StartedAt
		c.StartedAt = &t
	}
	if m.CompletedAt != nil {
		t := *m.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// Complete marks the match won by the given player and stamps the
// completion time. The caller persists and settles.
func (m *Match) Complete(winnerID string) {
	m.Status = StatusCompleted
	m.Winner = winnerID
	now := time.Now().UTC()
	m.CompletedAt = &now
}
