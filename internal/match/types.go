// Package match implements the two-player matchmaking and turn-coordination
// server: a fixed-capacity connection registry, a session state machine per
// connection (Idle/Waiting/Playing), and the Game object the two paired
// players share.
package match

import "github.com/m-mueller678/as4/internal/protocol"

// SlotID addresses an entry in the connection registry.
type SlotID int

// JoinCode identifies a waiting game, handed out by Create and consumed by
// Join.
type JoinCode uint32

// StateKind discriminates the variants of PlayerState.
type StateKind int

const (
	StateIdle StateKind = iota
	StateWaiting
	StatePlaying
)

// PlayerState is the tagged union a connection's session sits in: Idle (no
// game), Waiting(JoinCode) (created a game, waiting for a partner), or
// Playing(partner SlotID, *Game).
type PlayerState struct {
	Kind    StateKind
	Code    JoinCode
	Partner SlotID
	Game    *Game
}

// Idle builds the Idle state.
func Idle() PlayerState { return PlayerState{Kind: StateIdle} }

// Waiting builds the Waiting(code) state.
func Waiting(code JoinCode) PlayerState { return PlayerState{Kind: StateWaiting, Code: code} }

// Playing builds the Playing(partner, game) state.
func Playing(partner SlotID, game *Game) PlayerState {
	return PlayerState{Kind: StatePlaying, Partner: partner, Game: game}
}

// conn bundles a registered connection's stream and its current session
// state. It is the slot-table entry; access is always mediated through
// Server's registry lock.
type conn struct {
	stream *protocol.Stream
	state  PlayerState
}
