package match

import (
	"testing"

	"github.com/m-mueller678/as4/internal/config"
	"github.com/stretchr/testify/require"
)

func testRules() config.GameRules {
	return config.GameRules{MaxTurns: 3, TotalPoints: 100}
}

func TestHandleMovePendingUntilBothSubmit(t *testing.T) {
	g := NewGame(testRules(), 1)

	out, err := g.HandleMove(0, 10)
	require.NoError(t, err)
	require.False(t, out.Resolved)

	out, err = g.HandleMove(1, 5)
	require.NoError(t, err)
	require.True(t, out.Resolved)
	require.Equal(t, int8(1), out.Cmp[0])
	require.Equal(t, int8(-1), out.Cmp[1])
	require.False(t, out.Over)
}

func TestHandleMoveDoubleSubmitRejected(t *testing.T) {
	g := NewGame(testRules(), 1)
	_, err := g.HandleMove(0, 10)
	require.NoError(t, err)
	_, err = g.HandleMove(0, 5)
	require.Error(t, err)
}

func TestGameOverOnMaxTurns(t *testing.T) {
	g := NewGame(testRules(), 1)
	for i := 0; i < 3; i++ {
		_, _ = g.HandleMove(0, 1)
		out, err := g.HandleMove(1, 1)
		require.NoError(t, err)
		if i < 2 {
			require.False(t, out.Over)
		} else {
			require.True(t, out.Over)
		}
	}
	require.True(t, g.IsOver())
}

func TestGameOverOnExhaustedPoints(t *testing.T) {
	rules := config.GameRules{MaxTurns: 100, TotalPoints: 10}
	g := NewGame(rules, 1)

	_, _ = g.HandleMove(0, 10)
	out, err := g.HandleMove(1, 3)
	require.NoError(t, err)
	require.True(t, out.Over)
}

func TestOverbudgetWagerRejected(t *testing.T) {
	rules := config.GameRules{MaxTurns: 10, TotalPoints: 5}
	g := NewGame(rules, 1)

	_, err := g.HandleMove(0, 6)
	require.Error(t, err)

	// The rejected move must not have been recorded as pending.
	out, err := g.HandleMove(0, 5)
	require.NoError(t, err)
	require.False(t, out.Resolved)
}

func TestMoveRejectedPastMaxTurns(t *testing.T) {
	g := NewGame(testRules(), 1)
	for i := 0; i < 3; i++ {
		_, err := g.HandleMove(0, 1)
		require.NoError(t, err)
		_, err = g.HandleMove(1, 1)
		require.NoError(t, err)
	}
	require.True(t, g.IsOver())

	_, err := g.HandleMove(0, 1)
	require.Error(t, err)
}

func TestMoveRejectedAfterGameOver(t *testing.T) {
	rules := config.GameRules{MaxTurns: 100, TotalPoints: 10}
	g := NewGame(rules, 1)

	_, err := g.HandleMove(0, 10)
	require.NoError(t, err)
	out, err := g.HandleMove(1, 3)
	require.NoError(t, err)
	require.True(t, out.Over)

	_, err = g.HandleMove(0, 1)
	require.Error(t, err)
}
