package match

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/m-mueller678/as4/internal/config"
	"github.com/m-mueller678/as4/internal/protocol"
)

// AuditSink receives a completed game's record. Implementations must not
// block the caller for long; Server invokes it synchronously from the
// goroutine that resolved the final turn, so a slow sink should hand off to
// its own queue (see internal/audit.Writer).
type AuditSink interface {
	Record(game *Game)
}

// Server accepts connections on a listener and runs the matchmaking and
// turn-coordination protocol over each one. It mirrors the teacher's
// gameserver.Server shape (accept loop spawning per-connection goroutines,
// context-cancellation shutdown) with the connection table swapped for the
// fixed-capacity slot registry this protocol needs.
type Server struct {
	cfg   config.Server
	table *slotTable
	audit AuditSink

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a Server. audit may be nil to disable audit recording.
func NewServer(cfg config.Server, audit AuditSink) *Server {
	return &Server{
		cfg:   cfg,
		table: newSlotTable(),
		audit: audit,
	}
}

// Addr returns the address the server is listening on, or nil before Run
// has bound a listener.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run listens on cfg.BindAddress and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.BindAddress)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.BindAddress, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	return s.Serve(ctx, ln)
}

// Serve accepts connections from ln and starts the accept loop. Exposed
// separately from Run for tests that want a fixed or ephemeral listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	wg.Go(func() {
		slog.Info("match server started", "address", ln.Addr())
		s.acceptLoop(ctx, &wg, ln)
	})
	wg.Wait()

	return nil
}

func (s *Server) acceptLoop(ctx context.Context, wg *sync.WaitGroup, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			slog.Error("accept failed", "error", err)
			continue
		}

		if tcpConn, ok := conn.(*net.TCPConn); ok {
			_ = tcpConn.SetNoDelay(true)
		}

		wg.Go(func() {
			s.handleConnection(ctx, conn)
		})
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	stream := protocol.NewStream(conn)
	id, ok := s.table.register(conn0(stream))
	if !ok {
		slog.Warn("connection refused: registry full", "remote", conn.RemoteAddr())
		return
	}
	defer s.disconnect(id)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	slog.Debug("connection accepted", "slot", id, "remote", conn.RemoteAddr())

	for {
		msg, err := stream.ReceiveClient()
		if err != nil {
			if errors.Is(err, io.EOF) {
				slog.Debug("connection closed", "slot", id)
			} else {
				slog.Debug("connection read error", "slot", id, "error", err)
			}
			return
		}

		if err := s.dispatch(id, msg); err != nil {
			slog.Debug("dispatch error, closing connection", "slot", id, "error", err)
			return
		}
	}
}

// sendTo writes a ServerMessage to the stream registered at id. Per §4.3,
// writes are best-effort: a failed write is reported to the caller but never
// retried or queued.
func (s *Server) sendTo(id SlotID, msg protocol.ServerMessage) error {
	stream := s.table.streamOf(id)
	if stream == nil {
		return fmt.Errorf("match: no stream for slot %d", id)
	}
	if err := stream.SendServer(msg); err != nil {
		return fmt.Errorf("match: sending to slot %d: %w", id, err)
	}
	return nil
}

func (s *Server) recordAudit(game *Game) {
	if s.audit == nil {
		return
	}
	s.audit.Record(game)
}

// conn0 is a constructor helper so callers outside this file never build a
// conn literal with a non-Idle zero state by accident.
func conn0(stream *protocol.Stream) *conn {
	return &conn{stream: stream, state: Idle()}
}
