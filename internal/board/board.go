// Package board holds the per-match game state for both backgammon
// variants. The state is a plain value with no behavior beyond
// construction, copying, and structural invariant helpers; all rule
// logic lives in internal/rules.
package board

import "time"

// Variant selects the rule set a match is played under.
type Variant string

const (
	// VariantShort is standard backgammon: bar, hitting, mixed start.
	VariantShort Variant = "short"
	// VariantLong is narde: single-stack start, no bar, no hitting.
	VariantLong Variant = "long"
)

// Valid reports whether v is a known variant.
func (v Variant) Valid() bool {
	return v == VariantShort || v == VariantLong
}

// NumPoints is the number of board points.
const NumPoints = 24

// CheckersPerPlayer is the full checker count each player starts with.
const CheckersPerPlayer = 15

// Move is one applied move in a match's audit log.
type Move struct {
	From   int       `json:"from"`
	To     int       `json:"to"`
	Player int       `json:"player"`
	Time   time.Time `json:"time"`
}

// State is the complete board state of one match.
//
// Positions[0..23] represent points 1..24. Positive counts are player 1
// checkers, negative counts are player 2 checkers. Player 1 moves from
// high points to low, player 2 the other way.
type State struct {
	Positions      [NumPoints]int `json:"positions"`
	CurrentPlayer  int            `json:"current_player"`
	Dice           [2]int         `json:"dice"`
	RemainingMoves []int          `json:"remaining_moves"`
	MoveHistory    []Move         `json:"move_history"`

	Player1Bar int `json:"player1_bar"`
	Player2Bar int `json:"player2_bar"`
	Player1Off int `json:"player1_off"`
	Player2Off int `json:"player2_off"`

	// Tie-break sub-state used once per match before regular turns.
	InitialRollPhase   bool `json:"initial_roll_phase"`
	Player1InitialRoll int  `json:"player1_initial_roll"`
	Player2InitialRoll int  `json:"player2_initial_roll"`
}

// New returns the starting state for the given variant.
func New(variant Variant) State {
	s := State{
		CurrentPlayer:    1,
		RemainingMoves:   []int{},
		MoveHistory:      []Move{},
		InitialRollPhase: true,
	}

	if variant == VariantShort {
		// Standard backgammon layout. Player 1 counterclockwise
		// (24 -> 1), player 2 clockwise (1 -> 24).
		s.Positions[23] = 2
		s.Positions[12] = 5
		s.Positions[7] = 3
		s.Positions[5] = 5

		s.Positions[0] = -2
		s.Positions[11] = -5
		s.Positions[16] = -3
		s.Positions[18] = -5
	} else {
		// Narde: all fifteen checkers stacked on the head point.
		s.Positions[23] = CheckersPerPlayer
		s.Positions[11] = -CheckersPerPlayer
	}

	return s
}

// Clone returns a structurally independent copy of the state. The
// positions array copies by value; the slices are duplicated so the
// copy can be mutated without touching the original.
func (s State) Clone() State {
	c := s
	c.RemainingMoves = make([]int, len(s.RemainingMoves))
	copy(c.RemainingMoves, s.RemainingMoves)
	c.MoveHistory = make([]Move, len(s.MoveHistory))
	copy(c.MoveHistory, s.MoveHistory)
	return c
}

// Bar returns the bar count for the given player.
func (s State) Bar(player int) int {
	if player == 1 {
		return s.Player1Bar
	}
	return s.Player2Bar
}

// Off returns the borne-off count for the given player.
func (s State) Off(player int) int {
	if player == 1 {
		return s.Player1Off
	}
	return s.Player2Off
}

// CheckerCount returns the player's total checkers on board, bar and
// off. It must equal CheckersPerPlayer at all times.
func (s State) CheckerCount(player int) int {
	total := s.Bar(player) + s.Off(player)
	for _, n := range s.Positions {
		if player == 1 && n > 0 {
			total += n
		}
		if player == 2 && n < 0 {
			total += -n
		}
	}
	return total
}
