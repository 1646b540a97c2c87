package match

import (
	crand "crypto/rand"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/m-mueller678/as4/internal/protocol"
)

// rng is seeded from crypto/rand once at package init so join codes resist
// guessing, while staying on math/rand/v2's fast non-cryptographic path for
// the actual draws — the same split the teacher uses for session IDs.
// Connection goroutines share it, so every draw holds rngMu.
var (
	rngMu sync.Mutex
	rng   = newRNG()
)

func newRNG() *rand.Rand {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic(fmt.Sprintf("match: seeding RNG: %v", err))
	}
	return rand.New(rand.NewChaCha8(seed))
}

// dispatch handles one decoded ClientMessage from the connection in slot id,
// mutating registry/game state as needed and writing any required responses
// directly to the affected streams. It is the Go analogue of the original's
// Server::handle_message, restructured for the mutex-protected
// goroutine-per-connection model instead of single-threaded dispatch.
func (s *Server) dispatch(id SlotID, msg protocol.ClientMessage) error {
	st, ok := s.table.state(id)
	if !ok {
		return fmt.Errorf("match: dispatch on vacant slot %d", id)
	}

	switch st.Kind {
	case StateWaiting:
		// A waiting player sending anything but being joined is a protocol
		// violation: they have no game to act on yet.
		_ = s.sendTo(id, protocol.ProtocolError)
		return fmt.Errorf("match: slot %d sent %s while waiting", id, msg.Tag)

	case StateIdle:
		return s.handleStartMessage(id, msg)

	case StatePlaying:
		return s.handlePlayMessage(id, st, msg)

	default:
		return fmt.Errorf("match: slot %d in unknown state", id)
	}
}

func (s *Server) handleStartMessage(id SlotID, msg protocol.ClientMessage) error {
	switch msg.Tag {
	case protocol.ClientCreate:
		return s.createGame(id)
	case protocol.ClientJoin:
		return s.joinGame(id, JoinCode(msg.Code))
	default:
		_ = s.sendTo(id, protocol.ProtocolError)
		return fmt.Errorf("match: slot %d sent %s while idle", id, msg.Tag)
	}
}

// createGame draws a fresh JoinCode, retrying on collision, reserves it in
// the open-games map, and sends Created(code). If the send fails the code is
// withdrawn from the map again; otherwise the creator's state is set to
// Waiting.
func (s *Server) createGame(id SlotID) error {
	for {
		rngMu.Lock()
		code := JoinCode(rng.Uint32())
		rngMu.Unlock()
		if !s.table.reserveCode(code, id) {
			continue
		}
		if err := s.sendTo(id, protocol.Created(uint32(code))); err != nil {
			s.table.takeCode(code)
			return err
		}
		s.table.setState(id, Waiting(code))
		return nil
	}
}

// joinGame pairs the calling slot with the creator waiting under code,
// starting the game on success and reproducing the original's asymmetric
// failure handling on start: if the creator's Start send fails, the joiner
// gets JoinFail instead; if the joiner's Start send fails after the
// creator's succeeded, the creator is left Playing with no rollback.
func (s *Server) joinGame(joiner SlotID, code JoinCode) error {
	creator, ok := s.table.takeCode(code)
	if !ok {
		return s.sendTo(joiner, protocol.JoinFail)
	}
	return s.startGame(joiner, creator, code)
}

func (s *Server) startGame(joiner, creator SlotID, code JoinCode) error {
	rules := s.cfg.Rules
	start := protocol.Start(protocol.GameRules{NumberTurns: rules.MaxTurns, TotalPoints: rules.TotalPoints})

	if err := s.sendTo(creator, start); err != nil {
		// Creator unreachable: tell the joiner instead of pairing them with
		// a dead connection.
		return s.sendTo(joiner, protocol.JoinFail)
	}

	game := NewGame(rules, code)
	s.table.setState(creator, Playing(joiner, game))

	if err := s.sendTo(joiner, start); err != nil {
		// Per spec: creator is left Playing with no rollback.
		return err
	}
	s.table.setState(joiner, Playing(creator, game))
	return nil
}

func (s *Server) handlePlayMessage(id SlotID, st PlayerState, msg protocol.ClientMessage) error {
	if msg.Tag != protocol.ClientMove {
		_ = s.sendTo(id, protocol.ProtocolError)
		return fmt.Errorf("match: slot %d sent %s while playing", id, msg.Tag)
	}

	mySide := sideOf(id, st.Partner)
	outcome, err := st.Game.HandleMove(mySide, msg.Wager)
	if err != nil {
		_ = s.sendTo(id, protocol.ProtocolError)
		return fmt.Errorf("match: handling move for slot %d: %w", id, err)
	}
	if !outcome.Resolved {
		return nil
	}

	otherID := st.Partner
	otherSt, otherAlive := s.table.state(otherID)
	partnerSide := otherSide(mySide)
	if otherAlive && otherSt.Kind == StatePlaying {
		_ = s.sendTo(otherID, protocol.TurnResult(outcome.Cmp[partnerSide]))
	}
	_ = s.sendTo(id, protocol.TurnResult(outcome.Cmp[mySide]))

	if outcome.Over {
		_ = s.sendTo(id, protocol.EndOfGame)
		if otherAlive {
			_ = s.sendTo(otherID, protocol.EndOfGame)
		}
		s.recordAudit(st.Game)

		// Both slots return to Idle now that the game they were paired on
		// has concluded.
		s.table.setState(id, Idle())
		if otherAlive {
			s.table.setState(otherID, Idle())
		}
	}
	return nil
}

// sideOf reports the calling slot's side in its game: the lower SlotID of
// the pair is side 0.
func sideOf(id, partner SlotID) side {
	if id < partner {
		return 0
	}
	return 1
}
