// Package rules implements the move legality and turn logic for both
// backgammon variants as pure functions over board.State snapshots.
// Nothing here performs I/O or mutates its input; the session
// coordinator is the only place that deals with concurrency and
// persistence.
package rules

import (
	"math/rand"
	"time"

	"github.com/gammonhub/gammon-server-go/internal/board"
)

// FromBar is the from-coordinate of a bar entry move.
const FromBar = -1

// Bear-off destinations. Player 1 bears off past point 1, player 2
// past point 24; clients may send either convention.
const (
	BearOffLow  = -1
	BearOffHigh = 24
)

// DieSides is the number of faces on each die.
const DieSides = 6

// RollDie rolls a single die, uniform in 1..DieSides.
func RollDie(rng *rand.Rand) int {
	return rng.Intn(DieSides) + 1
}

// RollDice rolls two independent dice.
func RollDice(rng *rand.Rand) [2]int {
	return [2]int{RollDie(rng), RollDie(rng)}
}

// AvailableMoves derives the pip values a roll grants: four copies on
// doubles, otherwise the two values as rolled.
func AvailableMoves(dice [2]int) []int {
	if dice[0] == dice[1] {
		return []int{dice[0], dice[0], dice[0], dice[0]}
	}
	moves := make([]int, 0, 2)
	for _, d := range dice {
		if d > 0 {
			moves = append(moves, d)
		}
	}
	return moves
}

// direction returns the travel direction along the positions index:
// player 1 moves toward index 0, player 2 toward index 23.
func direction(player int) int {
	if player == 1 {
		return -1
	}
	return 1
}

// isBearOff reports whether to denotes a bear-off destination.
func isBearOff(to int) bool {
	return to == BearOffHigh || to == BearOffLow
}

// ValidMove reports whether moving a checker from from to to with the
// given die value is legal for player under the variant's rule set.
func ValidMove(s board.State, from, to, player, die int, variant board.Variant) bool {
	if variant == board.VariantLong {
		return validMoveLong(s, from, to, player, die)
	}
	return validMoveShort(s, from, to, player, die)
}

// validMoveShort applies the standard backgammon rules: mandatory bar
// entry, blocked points at two or more opposing checkers, hitting
// allowed on a lone blot.
func validMoveShort(s board.State, from, to, player, die int) bool {
	// A checker on the bar must re-enter before any other move.
	if s.Bar(player) > 0 && from != FromBar {
		return false
	}

	if isBearOff(to) {
		return validBearOff(s, from, player, die)
	}

	if from == FromBar {
		if s.Bar(player) == 0 {
			return false
		}
		if player == 1 {
			// Entry lands in the opponent's home board, points 19-24.
			if to != BearOffHigh-die {
				return false
			}
			return s.Positions[to] > -2
		}
		if to != die-1 {
			return false
		}
		return s.Positions[to] < 2
	}

	if !validRegularArithmetic(s, from, to, player, die) {
		return false
	}

	// Destination blocked by a made point; a single blot may be hit.
	if player == 1 {
		return s.Positions[to] > -2
	}
	return s.Positions[to] < 2
}

// validMoveLong applies the narde rules: no bar, and a point occupied
// by any opposing checker is unreachable.
func validMoveLong(s board.State, from, to, player, die int) bool {
	if from == FromBar {
		return false
	}

	if isBearOff(to) {
		return validBearOff(s, from, player, die)
	}

	if !validRegularArithmetic(s, from, to, player, die) {
		return false
	}

	if player == 1 {
		return s.Positions[to] >= 0
	}
	return s.Positions[to] <= 0
}

// validRegularArithmetic checks the shared movement rules: exact pip
// distance, board range, and origin ownership.
func validRegularArithmetic(s board.State, from, to, player, die int) bool {
	if from < 0 || from >= board.NumPoints {
		return false
	}
	if to != from+direction(player)*die {
		return false
	}
	if to < 0 || to >= board.NumPoints {
		return false
	}
	if player == 1 && s.Positions[from] <= 0 {
		return false
	}
	if player == 2 && s.Positions[from] >= 0 {
		return false
	}
	return true
}

// validBearOff checks a bear-off: the player must be eligible, the
// origin must hold their checker inside the home board, and the die
// must match the remaining pips exactly, or exceed them with no
// checker sitting further back in the home board.
func validBearOff(s board.State, from, player, die int) bool {
	if !CanBearOff(s, player) {
		return false
	}

	if player == 1 {
		if from < 0 || from > 5 {
			return false
		}
		if s.Positions[from] <= 0 {
			return false
		}
		needed := from + 1
		if die == needed {
			return true
		}
		if die < needed {
			return false
		}
		for i := from + 1; i <= 5; i++ {
			if s.Positions[i] > 0 {
				return false
			}
		}
		return true
	}

	if from < 18 || from > 23 {
		return false
	}
	if s.Positions[from] >= 0 {
		return false
	}
	needed := board.NumPoints - from
	if die == needed {
		return true
	}
	if die < needed {
		return false
	}
	for i := 18; i < from; i++ {
		if s.Positions[i] < 0 {
			return false
		}
	}
	return true
}

// CanBearOff reports whether the player has no checkers on the bar
// and none outside their home quadrant (points 1-6 for player 1,
// 19-24 for player 2).
func CanBearOff(s board.State, player int) bool {
	if player == 1 {
		if s.Player1Bar > 0 {
			return false
		}
		for i := 6; i < board.NumPoints; i++ {
			if s.Positions[i] > 0 {
				return false
			}
		}
		return true
	}

	if s.Player2Bar > 0 {
		return false
	}
	for i := 0; i < 18; i++ {
		if s.Positions[i] < 0 {
			return false
		}
	}
	return true
}

// Apply returns a new state with the move applied: the origin (or bar)
// decremented, the destination (or off count) incremented, a blot hit
// in the short variant, and the move appended to the history. The
// input state is never mutated.
func Apply(s board.State, from, to, player int, variant board.Variant) board.State {
	next := s.Clone()

	if from == FromBar {
		if player == 1 {
			next.Player1Bar--
		} else {
			next.Player2Bar--
		}
	} else {
		if player == 1 {
			next.Positions[from]--
		} else {
			next.Positions[from]++
		}
	}

	if isBearOff(to) {
		if player == 1 {
			next.Player1Off++
		} else {
			next.Player2Off++
		}
	} else {
		if variant == board.VariantShort {
			// Landing on a lone opposing checker sends it to the bar.
			if player == 1 && next.Positions[to] == -1 {
				next.Positions[to] = 0
				next.Player2Bar++
			} else if player == 2 && next.Positions[to] == 1 {
				next.Positions[to] = 0
				next.Player1Bar++
			}
		}
		if player == 1 {
			next.Positions[to]++
		} else {
			next.Positions[to]--
		}
	}

	next.MoveHistory = append(next.MoveHistory, board.Move{
		From:   from,
		To:     to,
		Player: player,
		Time:   time.Now().UTC(),
	})

	return next
}

// HasValidMoves reports whether any of the remaining pip values allows
// a legal move for the player. When bar entry is mandatory only entry
// moves are considered; otherwise every point holding the player's
// checkers is tried against both a regular destination and a bear-off.
func HasValidMoves(s board.State, player int, remaining []int, variant board.Variant) bool {
	if len(remaining) == 0 {
		return false
	}

	mustEnter := variant == board.VariantShort && s.Bar(player) > 0

	for _, die := range remaining {
		if mustEnter {
			enter := BearOffHigh - die
			if player == 2 {
				enter = die - 1
			}
			if ValidMove(s, FromBar, enter, player, die, variant) {
				return true
			}
			continue
		}

		for from := 0; from < board.NumPoints; from++ {
			hasChecker := (player == 1 && s.Positions[from] > 0) ||
				(player == 2 && s.Positions[from] < 0)
			if !hasChecker {
				continue
			}

			to := from + direction(player)*die
			if to >= 0 && to < board.NumPoints && ValidMove(s, from, to, player, die, variant) {
				return true
			}

			bearTo := BearOffLow
			if player == 2 {
				bearTo = BearOffHigh
			}
			if ValidMove(s, from, bearTo, player, die, variant) {
				return true
			}
		}
	}

	return false
}

// Winner returns the winning player, or 0 while the match is still
// undecided. At most one player can have all checkers off.
func Winner(s board.State) int {
	if s.Player1Off == board.CheckersPerPlayer {
		return 1
	}
	if s.Player2Off == board.CheckersPerPlayer {
		return 2
	}
	return 0
}

// SwitchPlayer toggles the turn between players 1 and 2.
func SwitchPlayer(player int) int {
	if player == 1 {
		return 2
	}
	return 1
}
