// Package clientsession is a type-stratified client library for the match
// protocol: the type of value a caller holds tracks which protocol states
// are legal, so illegal calls (e.g. making a move before a game starts) are
// unrepresentable rather than runtime errors.
package clientsession

import (
	"fmt"
	"math/rand/v2"
	"net"
	"time"

	"github.com/m-mueller678/as4/internal/protocol"
)

// dialRetries/dialBaseDelay bound the dial-retry-with-jitter loop used when
// connecting to a server that may not have started accepting yet. This is
// meant for a CLI client racing a freshly-started local server, not to mask
// a genuinely unreachable one.
const (
	dialRetries   = 10
	dialBaseDelay = 20 * time.Millisecond
)

func dialWithRetry(addr string) (net.Conn, error) {
	var conn net.Conn
	var err error
	for attempt := range dialRetries {
		conn, err = net.DialTimeout("tcp", addr, 5*time.Second)
		if err == nil {
			return conn, nil
		}
		if attempt < dialRetries-1 {
			shift := attempt
			if shift > 6 {
				shift = 6
			}
			base := dialBaseDelay << shift
			jitter := time.Duration(rand.IntN(int(base/2) + 1))
			time.Sleep(base + jitter)
		}
	}
	return nil, fmt.Errorf("clientsession: dial %s: %w", addr, err)
}

// NewSession is a freshly connected, idle session: it may Create a game or
// Join one by code.
type NewSession struct {
	stream *protocol.Stream
}

// Dial connects to addr, retrying briefly if the server isn't accepting yet.
func Dial(addr string) (*NewSession, error) {
	conn, err := dialWithRetry(addr)
	if err != nil {
		return nil, err
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
	}
	return &NewSession{stream: protocol.NewStream(conn)}, nil
}

// Close closes the underlying connection.
func (s *NewSession) Close() error { return s.stream.Close() }

// Create asks the server to open a new game and returns a WaitingSession
// holding the join code a partner needs to Join with.
func (s *NewSession) Create() (*WaitingSession, error) {
	if err := s.stream.SendClient(protocol.Create()); err != nil {
		return nil, fmt.Errorf("clientsession: sending Create: %w", err)
	}
	code, err := awaitCreated(s.stream)
	if err != nil {
		return nil, err
	}
	return &WaitingSession{stream: s.stream, code: code}, nil
}

// Join asks the server to pair with the game waiting under code. On success
// it blocks until Start arrives and returns a PlayingSession; JoinFail
// surfaces as ErrJoinFailed.
func (s *NewSession) Join(code uint32) (*PlayingSession, error) {
	if err := s.stream.SendClient(protocol.Join(code)); err != nil {
		return nil, fmt.Errorf("clientsession: sending Join: %w", err)
	}
	return awaitStart(s.stream)
}

func awaitCreated(stream *protocol.Stream) (uint32, error) {
	for {
		msg, err := stream.ReceiveServer()
		if err != nil {
			return 0, fmt.Errorf("clientsession: awaiting Created: %w", err)
		}
		switch msg.Tag {
		case protocol.ServerCreated:
			return msg.JoinCode, nil
		case protocol.ServerProtocolError, protocol.ServerServerError:
			return 0, fmt.Errorf("clientsession: server rejected Create: %s", msg.Tag)
		}
	}
}

func awaitStart(stream *protocol.Stream) (*PlayingSession, error) {
	for {
		msg, err := stream.ReceiveServer()
		if err != nil {
			return nil, fmt.Errorf("clientsession: awaiting Start: %w", err)
		}
		switch msg.Tag {
		case protocol.ServerStart:
			return &PlayingSession{stream: stream, rules: msg.Rules, pointsLeft: msg.Rules.TotalPoints}, nil
		case protocol.ServerJoinFail:
			return nil, ErrJoinFailed
		case protocol.ServerProtocolError, protocol.ServerServerError:
			return nil, fmt.Errorf("clientsession: server rejected Join: %s", msg.Tag)
		}
	}
}

// Sentinel errors returned by session methods so callers can distinguish
// protocol-level outcomes from generic I/O or decode failures.
var (
	// ErrJoinFailed is returned by Join and WaitingSession.Wait when the
	// server responds JoinFail.
	ErrJoinFailed = fmt.Errorf("clientsession: join failed")
	// ErrProtocolError is returned by WaitResult when the server reports
	// that a prior message violated the protocol.
	ErrProtocolError = fmt.Errorf("clientsession: server reported a protocol error")
	// ErrConnectionLost is returned by WaitResult when the partner
	// disconnected mid-game.
	ErrConnectionLost = fmt.Errorf("clientsession: partner disconnected")
)

// WaitingSession holds a created game's join code and may only Wait for a
// partner to join.
type WaitingSession struct {
	stream *protocol.Stream
	code   uint32
}

// Code returns the join code a partner needs to pass to Join.
func (s *WaitingSession) Code() uint32 { return s.code }

// Close closes the underlying connection.
func (s *WaitingSession) Close() error { return s.stream.Close() }

// Wait blocks until a partner joins and the game starts.
func (s *WaitingSession) Wait() (*PlayingSession, error) {
	return awaitStart(s.stream)
}

// PlayingSession holds an active paired game and may submit moves and await
// their results. It mirrors the server-side Game's own bookkeeping
// (remaining points, turn count, wager/result history) so a caller can
// validate a move locally before ever sending it.
type PlayingSession struct {
	stream *protocol.Stream
	rules  protocol.GameRules

	pointsLeft uint32
	guesses    []uint32
	results    []int8
}

// Rules returns the game's configured turn count and starting points.
func (s *PlayingSession) Rules() protocol.GameRules { return s.rules }

// PointsLeft returns this side's remaining wagerable points.
func (s *PlayingSession) PointsLeft() uint32 { return s.pointsLeft }

// MaxTurns returns the configured number of turns in the match.
func (s *PlayingSession) MaxTurns() uint32 { return s.rules.NumberTurns }

// Guesses returns the wagers submitted so far, oldest first.
func (s *PlayingSession) Guesses() []uint32 { return append([]uint32(nil), s.guesses...) }

// Results returns the TurnResult comparisons received so far, oldest first.
func (s *PlayingSession) Results() []int8 { return append([]int8(nil), s.results...) }

// Close closes the underlying connection.
func (s *PlayingSession) Close() error { return s.stream.Close() }

// TurnOutcome is returned by WaitResult.
type TurnOutcome struct {
	// Cmp is -1/0/1: how this session's last wager compared to its partner's.
	Cmp int8
	// Over is true if the game has concluded; no further moves are valid.
	Over bool
}

// Move submits a wager for the current turn, after asserting locally that
// wager does not exceed PointsLeft and that fewer than MaxTurns guesses have
// already been submitted — the same two checks the server itself enforces,
// caught here before a round trip.
func (s *PlayingSession) Move(wager uint32) error {
	if uint32(len(s.guesses)) >= s.rules.NumberTurns {
		return fmt.Errorf("clientsession: already submitted all %d turns", s.rules.NumberTurns)
	}
	if wager > s.pointsLeft {
		return fmt.Errorf("clientsession: wager %d exceeds %d points left", wager, s.pointsLeft)
	}
	if err := s.stream.SendClient(protocol.Move(wager)); err != nil {
		return fmt.Errorf("clientsession: sending Move: %w", err)
	}
	s.guesses = append(s.guesses, wager)
	s.pointsLeft -= wager
	return nil
}

// WaitResult blocks for exactly one server message: a TurnResult for the
// turn just submitted, or an EndOfGame marking the match concluded. Callers
// should loop on WaitResult (submitting a Move between calls) until Over is
// true. ErrConnectionLost and ErrProtocolError are returned as distinct,
// checkable errors rather than folded into a generic one.
func (s *PlayingSession) WaitResult() (TurnOutcome, error) {
	msg, err := s.stream.ReceiveServer()
	if err != nil {
		return TurnOutcome{}, fmt.Errorf("clientsession: awaiting result: %w", err)
	}
	switch msg.Tag {
	case protocol.ServerConnectionLost:
		return TurnOutcome{}, ErrConnectionLost
	case protocol.ServerProtocolError:
		return TurnOutcome{}, ErrProtocolError
	case protocol.ServerTurnResult:
		s.results = append(s.results, msg.Cmp)
		return TurnOutcome{Cmp: msg.Cmp}, nil
	case protocol.ServerEndOfGame:
		return TurnOutcome{Over: true}, nil
	default:
		return TurnOutcome{}, fmt.Errorf("clientsession: unexpected message %s", msg.Tag)
	}
}
