package rules_test

import (
	"math/rand"
	"testing"

	"github.com/gammonhub/gammon-server-go/internal/board"
	"github.com/gammonhub/gammon-server-go/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollDiceRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		dice := rules.RollDice(rng)
		for _, d := range dice {
			require.GreaterOrEqual(t, d, 1)
			require.LessOrEqual(t, d, 6)
		}
	}
}

func TestAvailableMoves(t *testing.T) {
	tests := []struct {
		name string
		dice [2]int
		want []int
	}{
		{"doubles yield four moves", [2]int{3, 3}, []int{3, 3, 3, 3}},
		{"doubles of six", [2]int{6, 6}, []int{6, 6, 6, 6}},
		{"non-doubles yield two moves", [2]int{2, 5}, []int{2, 5}},
		{"order preserved", [2]int{6, 1}, []int{6, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rules.AvailableMoves(tt.dice))
		})
	}
}

func TestValidMoveShortRegular(t *testing.T) {
	s := board.New(board.VariantShort)

	tests := []struct {
		name   string
		from   int
		to     int
		player int
		die    int
		want   bool
	}{
		{"player1 opening run", 23, 18, 1, 5, false}, // point 19 holds 5 opposing
		{"player1 to open point", 23, 20, 1, 3, true},
		{"player1 wrong distance", 23, 19, 1, 3, false},
		{"player1 from empty point", 22, 19, 1, 3, false},
		{"player1 from opponent point", 0, 3, 1, 3, false},
		{"player1 wrong direction", 12, 15, 1, 3, false},
		{"player2 to open point", 0, 3, 2, 3, true},
		{"player2 blocked by made point", 0, 5, 2, 5, false},
		{"player2 from empty point", 2, 5, 2, 3, false},
		{"out of range destination", 0, -3, 1, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rules.ValidMove(s, tt.from, tt.to, tt.player, tt.die, board.VariantShort)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidMoveShortHitAllowed(t *testing.T) {
	s := board.New(board.VariantShort)
	// Leave a player 2 blot on point 21 (index 20).
	s.Positions[20] = -1

	assert.True(t, rules.ValidMove(s, 23, 20, 1, 3, board.VariantShort))
}

func TestValidMoveShortBlockedByTwo(t *testing.T) {
	s := board.New(board.VariantShort)
	s.Positions[20] = -2

	assert.False(t, rules.ValidMove(s, 23, 20, 1, 3, board.VariantShort))
}

func TestValidMoveShortBarEntry(t *testing.T) {
	s := board.New(board.VariantShort)
	s.Positions[23] = 1
	s.Player1Bar = 1

	// Bar entry for player 1 lands on 24-die.
	assert.True(t, rules.ValidMove(s, rules.FromBar, 21, 1, 3, board.VariantShort))
	// Wrong destination for the die.
	assert.False(t, rules.ValidMove(s, rules.FromBar, 20, 1, 3, board.VariantShort))
	// Entry blocked by a made point: point 19 (index 18) holds -5.
	assert.False(t, rules.ValidMove(s, rules.FromBar, 18, 1, 6, board.VariantShort))
	// Any non-bar move is rejected while a checker waits on the bar.
	assert.False(t, rules.ValidMove(s, 12, 9, 1, 3, board.VariantShort))
}

func TestValidMoveShortBarEntryPlayer2(t *testing.T) {
	s := board.New(board.VariantShort)
	s.Positions[0] = -1
	s.Player2Bar = 1

	// Player 2 enters on die-1.
	assert.True(t, rules.ValidMove(s, rules.FromBar, 2, 2, 3, board.VariantShort))
	// Point 6 (index 5) is made by player 1.
	assert.False(t, rules.ValidMove(s, rules.FromBar, 5, 2, 6, board.VariantShort))
}

func TestBarEntryRejectedWithEmptyBar(t *testing.T) {
	s := board.New(board.VariantShort)
	require.Zero(t, s.Player1Bar)

	// from = -1 with no checker on the bar is not a legal entry.
	assert.False(t, rules.ValidMove(s, rules.FromBar, 21, 1, 3, board.VariantShort))
}

// homeBoardState puts all player 1 checkers in the home quadrant and
// all player 2 checkers in theirs so both are bear-off eligible.
func homeBoardState() board.State {
	var s board.State
	s.Positions[0] = 5
	s.Positions[3] = 5
	s.Positions[5] = 5
	s.Positions[18] = -5
	s.Positions[20] = -5
	s.Positions[23] = -5
	return s
}

func TestCanBearOff(t *testing.T) {
	s := homeBoardState()
	assert.True(t, rules.CanBearOff(s, 1))
	assert.True(t, rules.CanBearOff(s, 2))

	outside := homeBoardState()
	outside.Positions[5]--
	outside.Positions[10]++
	assert.False(t, rules.CanBearOff(outside, 1))

	onBar := homeBoardState()
	onBar.Positions[0]--
	onBar.Player1Bar = 1
	assert.False(t, rules.CanBearOff(onBar, 1))
}

func TestBearOffPipMatching(t *testing.T) {
	s := homeBoardState()

	tests := []struct {
		name   string
		from   int
		to     int
		player int
		die    int
		want   bool
	}{
		{"player1 exact", 5, rules.BearOffLow, 1, 6, true},
		{"player1 exact low point", 0, rules.BearOffLow, 1, 1, true},
		{"player1 overage with checkers behind", 3, rules.BearOffLow, 1, 6, false},
		{"player1 die too small", 5, rules.BearOffLow, 1, 3, false},
		{"player1 empty origin", 4, rules.BearOffLow, 1, 5, false},
		{"player2 exact", 18, rules.BearOffHigh, 2, 6, true},
		{"player2 overage with checkers behind", 20, rules.BearOffHigh, 2, 6, false},
		{"player2 die too small", 18, rules.BearOffHigh, 2, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rules.ValidMove(s, tt.from, tt.to, tt.player, tt.die, board.VariantShort)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBearOffOverageWithoutCheckersBehind(t *testing.T) {
	var s board.State
	s.Positions[2] = 15
	s.Positions[18] = -15

	// Highest occupied point is 3; a 5 or 6 may bear the checker off.
	assert.True(t, rules.ValidMove(s, 2, rules.BearOffLow, 1, 6, board.VariantShort))
	assert.True(t, rules.ValidMove(s, 2, rules.BearOffLow, 1, 5, board.VariantShort))
	assert.True(t, rules.ValidMove(s, 2, rules.BearOffLow, 1, 3, board.VariantShort))
	assert.False(t, rules.ValidMove(s, 2, rules.BearOffLow, 1, 2, board.VariantShort))
}

func TestBearOffRejectedOutsideHome(t *testing.T) {
	s := board.New(board.VariantShort)
	assert.False(t, rules.ValidMove(s, 5, rules.BearOffLow, 1, 6, board.VariantShort))
}

func TestValidMoveLongNoHitting(t *testing.T) {
	s := board.New(board.VariantLong)

	// Regular move into open space is fine.
	assert.True(t, rules.ValidMove(s, 23, 18, 1, 5, board.VariantLong))

	// A single opposing checker already blocks the point in narde.
	blot := s
	blot.Positions[18] = -1
	assert.False(t, rules.ValidMove(blot, 23, 18, 1, 5, board.VariantLong))

	// And player 2 cannot land on a lone player 1 checker either.
	blot2 := s
	blot2.Positions[14] = 1
	assert.False(t, rules.ValidMove(blot2, 11, 14, 2, 3, board.VariantLong))

	// There is no bar to enter from.
	assert.False(t, rules.ValidMove(s, rules.FromBar, 21, 1, 3, board.VariantLong))
}

func TestApplyRegularMove(t *testing.T) {
	s := board.New(board.VariantShort)

	next := rules.Apply(s, 23, 20, 1, board.VariantShort)

	assert.Equal(t, 1, next.Positions[23])
	assert.Equal(t, 1, next.Positions[20])
	require.Len(t, next.MoveHistory, 1)
	assert.Equal(t, 23, next.MoveHistory[0].From)
	assert.Equal(t, 20, next.MoveHistory[0].To)
	assert.Equal(t, 1, next.MoveHistory[0].Player)

	// Input untouched.
	assert.Equal(t, 2, s.Positions[23])
	assert.Empty(t, s.MoveHistory)

	assert.Equal(t, board.CheckersPerPlayer, next.CheckerCount(1))
	assert.Equal(t, board.CheckersPerPlayer, next.CheckerCount(2))
}

func TestApplyHitSendsBlotToBar(t *testing.T) {
	s := board.New(board.VariantShort)
	s.Positions[20] = -1
	s.Positions[0] = -1 // keep player 2 at 15 checkers

	next := rules.Apply(s, 23, 20, 1, board.VariantShort)

	assert.Equal(t, 1, next.Positions[20])
	assert.Equal(t, 1, next.Player2Bar)
	assert.Equal(t, 0, next.Player1Bar)
	assert.Equal(t, board.CheckersPerPlayer, next.CheckerCount(1))
	assert.Equal(t, board.CheckersPerPlayer, next.CheckerCount(2))
}

func TestApplyNoHitInLongVariant(t *testing.T) {
	s := board.New(board.VariantLong)
	next := rules.Apply(s, 23, 18, 1, board.VariantLong)

	// No mixed-sign point can appear: legality already forbids landing
	// on opposing checkers, and apply never moves anything to a bar.
	assert.Equal(t, 1, next.Positions[18])
	assert.Zero(t, next.Player1Bar)
	assert.Zero(t, next.Player2Bar)
	assert.Equal(t, board.CheckersPerPlayer, next.CheckerCount(1))
	assert.Equal(t, board.CheckersPerPlayer, next.CheckerCount(2))
}

func TestApplyBarEntry(t *testing.T) {
	s := board.New(board.VariantShort)
	s.Positions[23] = 1
	s.Player1Bar = 1

	next := rules.Apply(s, rules.FromBar, 21, 1, board.VariantShort)

	assert.Zero(t, next.Player1Bar)
	assert.Equal(t, 1, next.Positions[21])
	assert.Equal(t, board.CheckersPerPlayer, next.CheckerCount(1))
}

func TestApplyBearOff(t *testing.T) {
	s := homeBoardState()

	next := rules.Apply(s, 5, rules.BearOffLow, 1, board.VariantShort)
	assert.Equal(t, 4, next.Positions[5])
	assert.Equal(t, 1, next.Player1Off)
	assert.Equal(t, board.CheckersPerPlayer, next.CheckerCount(1))

	next2 := rules.Apply(s, 18, rules.BearOffHigh, 2, board.VariantShort)
	assert.Equal(t, -4, next2.Positions[18])
	assert.Equal(t, 1, next2.Player2Off)
	assert.Equal(t, board.CheckersPerPlayer, next2.CheckerCount(2))
}

func TestApplyConservationUnderRandomPlay(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, variant := range []board.Variant{board.VariantShort, board.VariantLong} {
		s := board.New(variant)
		player := 1

		for step := 0; step < 500; step++ {
			dice := rules.RollDice(rng)
			remaining := rules.AvailableMoves(dice)

			for _, die := range remaining {
				moved := false
				for from := -1; from < board.NumPoints && !moved; from++ {
					for _, to := range candidateDestinations(from, player, die) {
						if rules.ValidMove(s, from, to, player, die, variant) {
							s = rules.Apply(s, from, to, player, variant)
							moved = true
							break
						}
					}
				}
			}

			require.Equal(t, board.CheckersPerPlayer, s.CheckerCount(1),
				"player 1 conservation broken at step %d (%s)", step, variant)
			require.Equal(t, board.CheckersPerPlayer, s.CheckerCount(2),
				"player 2 conservation broken at step %d (%s)", step, variant)

			if rules.Winner(s) != 0 {
				break
			}
			player = rules.SwitchPlayer(player)
		}
	}
}

func candidateDestinations(from, player, die int) []int {
	if from == rules.FromBar {
		if player == 1 {
			return []int{rules.BearOffHigh - die}
		}
		return []int{die - 1}
	}
	dir := -1
	if player == 2 {
		dir = 1
	}
	bear := rules.BearOffLow
	if player == 2 {
		bear = rules.BearOffHigh
	}
	return []int{from + dir*die, bear}
}

func TestHasValidMovesRequiresEntry(t *testing.T) {
	s := board.New(board.VariantShort)
	s.Positions[23] = 1
	s.Player1Bar = 1

	// Entry with a 6 lands on index 18, which holds five player 2
	// checkers; entry with a 3 lands on the open index 21.
	assert.False(t, rules.HasValidMoves(s, 1, []int{6}, board.VariantShort))
	assert.True(t, rules.HasValidMoves(s, 1, []int{6, 3}, board.VariantShort))
}

func TestHasValidMovesFullyBlocked(t *testing.T) {
	var s board.State
	// Player 1's lone checker on point 24 can only move by 1..6, all
	// of which are blocked by made points.
	s.Positions[23] = 1
	s.Player1Off = 14
	for i := 17; i <= 22; i++ {
		s.Positions[i] = -2
	}
	s.Positions[0] = -3

	assert.False(t, rules.HasValidMoves(s, 1, []int{1, 2, 3, 4, 5, 6}, board.VariantShort))
	assert.False(t, rules.HasValidMoves(s, 1, nil, board.VariantShort))
}

func TestHasValidMovesBearOffOnly(t *testing.T) {
	var s board.State
	s.Positions[0] = 1
	s.Player1Off = 14
	s.Positions[23] = -15

	assert.True(t, rules.HasValidMoves(s, 1, []int{1}, board.VariantShort))
	assert.True(t, rules.HasValidMoves(s, 1, []int{6}, board.VariantShort))
}

func TestWinner(t *testing.T) {
	var s board.State
	assert.Zero(t, rules.Winner(s))

	s.Player1Off = 15
	assert.Equal(t, 1, rules.Winner(s))

	var s2 board.State
	s2.Player2Off = 15
	assert.Equal(t, 2, rules.Winner(s2))

	var s3 board.State
	s3.Player1Off = 14
	s3.Player2Off = 14
	assert.Zero(t, rules.Winner(s3))
}

func TestSwitchPlayer(t *testing.T) {
	assert.Equal(t, 2, rules.SwitchPlayer(1))
	assert.Equal(t, 1, rules.SwitchPlayer(2))
}
