package match

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/m-mueller678/as4/internal/config"
	"github.com/m-mueller678/as4/internal/protocol"
)

func startTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	return startTestServerWithRules(t, config.GameRules{MaxTurns: 5, TotalPoints: 100})
}

func startTestServerWithRules(t *testing.T, rules config.GameRules) (*Server, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := NewServer(config.Server{Rules: rules}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = srv.Serve(ctx, ln)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return srv, ln.Addr().String()
}

func dial(t *testing.T, addr string) *protocol.Stream {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return protocol.NewStream(conn)
}

func TestServerDisconnectNotifiesPartner(t *testing.T) {
	_, addr := startTestServer(t)

	creator := dial(t, addr)
	require.NoError(t, creator.SendClient(protocol.Create()))
	created, err := creator.ReceiveServer()
	require.NoError(t, err)
	require.Equal(t, protocol.ServerCreated, created.Tag)

	joiner := dial(t, addr)
	require.NoError(t, joiner.SendClient(protocol.Join(created.JoinCode)))

	_, err = creator.ReceiveServer() // Start
	require.NoError(t, err)
	_, err = joiner.ReceiveServer() // Start
	require.NoError(t, err)

	require.NoError(t, joiner.Close())

	msg, err := creator.ReceiveServer()
	require.NoError(t, err)
	require.Equal(t, protocol.ServerConnectionLost, msg.Tag)
}

// requireConnectionClosed asserts that the server has closed its end of s,
// per §7's "close the offender" protocol error taxonomy.
func requireConnectionClosed(t *testing.T, s *protocol.Stream) {
	t.Helper()
	_, err := s.ReceiveServer()
	require.Error(t, err)
	require.True(t, errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed),
		"expected the connection to be closed, got: %v", err)
}

func TestServerRefusesProtocolViolationWhileWaiting(t *testing.T) {
	_, addr := startTestServer(t)

	creator := dial(t, addr)
	require.NoError(t, creator.SendClient(protocol.Create()))
	_, err := creator.ReceiveServer()
	require.NoError(t, err)

	require.NoError(t, creator.SendClient(protocol.Move(5)))
	msg, err := creator.ReceiveServer()
	require.NoError(t, err)
	require.Equal(t, protocol.ServerProtocolError, msg.Tag)

	requireConnectionClosed(t, creator)
}

func TestServerRefusesProtocolViolationWhileIdle(t *testing.T) {
	_, addr := startTestServer(t)

	conn := dial(t, addr)
	require.NoError(t, conn.SendClient(protocol.Move(10)))

	msg, err := conn.ReceiveServer()
	require.NoError(t, err)
	require.Equal(t, protocol.ServerProtocolError, msg.Tag)

	requireConnectionClosed(t, conn)
}

func TestServerRejectsOverbudgetMoveAndCloses(t *testing.T) {
	_, addr := startTestServerWithRules(t, config.GameRules{MaxTurns: 5, TotalPoints: 10})

	creator := dial(t, addr)
	require.NoError(t, creator.SendClient(protocol.Create()))
	created, err := creator.ReceiveServer()
	require.NoError(t, err)

	joiner := dial(t, addr)
	require.NoError(t, joiner.SendClient(protocol.Join(created.JoinCode)))

	_, err = creator.ReceiveServer() // Start
	require.NoError(t, err)
	_, err = joiner.ReceiveServer() // Start
	require.NoError(t, err)

	require.NoError(t, creator.SendClient(protocol.Move(11)))
	msg, err := creator.ReceiveServer()
	require.NoError(t, err)
	require.Equal(t, protocol.ServerProtocolError, msg.Tag)

	requireConnectionClosed(t, creator)

	// The partner is notified exactly as on any other disconnect.
	lost, err := joiner.ReceiveServer()
	require.NoError(t, err)
	require.Equal(t, protocol.ServerConnectionLost, lost.Tag)
}

func TestServerReturnsBothSlotsToIdleAfterGameOver(t *testing.T) {
	_, addr := startTestServer(t)

	creator := dial(t, addr)
	require.NoError(t, creator.SendClient(protocol.Create()))
	created, err := creator.ReceiveServer()
	require.NoError(t, err)

	joiner := dial(t, addr)
	require.NoError(t, joiner.SendClient(protocol.Join(created.JoinCode)))

	creatorStart, err := creator.ReceiveServer()
	require.NoError(t, err)
	rules := creatorStart.Rules
	_, err = joiner.ReceiveServer() // Start
	require.NoError(t, err)

	for i := uint32(0); i < rules.NumberTurns; i++ {
		require.NoError(t, creator.SendClient(protocol.Move(1)))
		require.NoError(t, joiner.SendClient(protocol.Move(1)))
		_, err = creator.ReceiveServer() // TurnResult
		require.NoError(t, err)
		_, err = joiner.ReceiveServer() // TurnResult
		require.NoError(t, err)
	}

	end1, err := creator.ReceiveServer()
	require.NoError(t, err)
	require.Equal(t, protocol.ServerEndOfGame, end1.Tag)
	end2, err := joiner.ReceiveServer()
	require.NoError(t, err)
	require.Equal(t, protocol.ServerEndOfGame, end2.Tag)

	// Both slots are Idle again: a fresh Create on the same connection must
	// succeed exactly as it would for a never-used connection.
	require.NoError(t, creator.SendClient(protocol.Create()))
	created2, err := creator.ReceiveServer()
	require.NoError(t, err)
	require.Equal(t, protocol.ServerCreated, created2.Tag)
}
