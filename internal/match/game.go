package match

import (
	"fmt"
	"sync"

	"github.com/m-mueller678/as4/internal/config"
	"github.com/m-mueller678/as4/internal/protocol"
)

// side is 0 or 1, assigned by slot-id order: the player with the lower
// SlotID is side 0.
type side int

// Game is the shared state of one paired match. It is reached through both
// players' PlayerState.Game pointer and guarded by its own mutex — never by
// the registry lock — so that turn resolution on one game never blocks
// unrelated connections.
type Game struct {
	mu sync.Mutex

	rules     config.GameRules
	code      JoinCode
	turn      uint32
	remaining [2]uint32
	wagers    [2][]uint32 // history of submitted wagers per side
	pending   [2]bool     // whether side has submitted this turn's wager
	current   [2]uint32   // this turn's submitted wager per side, valid iff pending[side]
}

// NewGame creates a fresh Game under the given rules, tagged with the join
// code that paired the two players (kept for the audit record).
func NewGame(rules config.GameRules, code JoinCode) *Game {
	return &Game{
		rules:     rules,
		code:      code,
		remaining: [2]uint32{rules.TotalPoints, rules.TotalPoints},
	}
}

// JoinCode returns the code the two players were paired under.
func (g *Game) JoinCode() JoinCode { return g.code }

// MoveOutcome describes what happened as a result of HandleMove.
type MoveOutcome struct {
	// Resolved is true when both sides had submitted a wager for the
	// current turn and the turn was scored.
	Resolved bool
	// Cmp[s] is the TurnResult sign to send to side s, valid iff Resolved.
	Cmp [2]int8
	// Over is true if the game has concluded (send EndOfGame to both).
	Over bool
}

// HandleMove records a wager from s for the current turn and resolves the
// turn once both sides have submitted. Mirrors the original's
// handle_message dispatch for the Playing state (remaining[s] >= wager and
// |wagers[s]| < maxTurns, else rejected) plus its is_over check immediately
// after resolution.
func (g *Game) HandleMove(s side, wager uint32) (MoveOutcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.isOverLocked() {
		return MoveOutcome{}, fmt.Errorf("match: side %d moved after game over", s)
	}
	if g.pending[s] {
		return MoveOutcome{}, fmt.Errorf("match: side %d already moved this turn", s)
	}
	if uint32(len(g.wagers[s])) >= g.rules.MaxTurns {
		return MoveOutcome{}, fmt.Errorf("match: side %d already submitted %d turns", s, g.rules.MaxTurns)
	}
	if wager > g.remaining[s] {
		return MoveOutcome{}, fmt.Errorf("match: side %d wager %d exceeds remaining %d", s, wager, g.remaining[s])
	}

	g.pending[s] = true
	g.current[s] = wager

	other := otherSide(s)
	if !g.pending[other] {
		return MoveOutcome{}, nil
	}

	// Both sides have moved: resolve the turn.
	a, b := g.current[0], g.current[1]
	g.remaining[0] -= g.current[0]
	g.remaining[1] -= g.current[1]
	g.wagers[0] = append(g.wagers[0], g.current[0])
	g.wagers[1] = append(g.wagers[1], g.current[1])
	g.pending[0], g.pending[1] = false, false
	g.current[0], g.current[1] = 0, 0
	g.turn++

	cmp0 := protocol.Sign(a, b)
	outcome := MoveOutcome{
		Resolved: true,
		Cmp:      [2]int8{cmp0, -cmp0},
		Over:     g.isOverLocked(),
	}
	return outcome, nil
}

// IsOver reports whether the game has concluded: max turns reached or either
// side has exhausted its points.
func (g *Game) IsOver() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.isOverLocked()
}

func (g *Game) isOverLocked() bool {
	if g.turn >= g.rules.MaxTurns {
		return true
	}
	return g.remaining[0] == 0 || g.remaining[1] == 0
}

// Snapshot returns a read-only copy of final state, used for the audit
// record. Safe to call after the game is over.
func (g *Game) Snapshot() (turns uint32, wagers [2][]uint32, remaining [2]uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	w0 := append([]uint32(nil), g.wagers[0]...)
	w1 := append([]uint32(nil), g.wagers[1]...)
	return g.turn, [2][]uint32{w0, w1}, g.remaining
}

func otherSide(s side) side {
	if s == 0 {
		return 1
	}
	return 0
}
