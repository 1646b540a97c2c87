// Package audit records a write-only history of finished games to Postgres.
// It is strictly supplemental: disabled by default, never read back to
// resume a session, and a failing or saturated writer never blocks or fails
// a game in progress.
package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/m-mueller678/as4/internal/match"
)

// queueSize bounds how many finished-game records may be buffered before the
// writer starts dropping them. Chosen generously relative to expected game
// throughput; overflow only happens if Postgres is persistently unreachable.
const queueSize = 256

type record struct {
	joinCode  uint32
	turns     uint32
	wagers    [2][]uint32
	remaining [2]uint32
}

// Writer is a pgx-backed sink for finished_games rows.
type Writer struct {
	pool *pgxpool.Pool
	ch   chan record
}

// New connects to dsn, runs pending migrations, and returns a ready Writer.
// The caller must call Run in a goroutine (or via errgroup) to drain records,
// and Close when shutting down.
func New(ctx context.Context, dsn string) (*Writer, error) {
	if err := runMigrations(ctx, dsn); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("audit: pinging database: %w", err)
	}

	return &Writer{
		pool: pool,
		ch:   make(chan record, queueSize),
	}, nil
}

// Close releases the underlying connection pool.
func (w *Writer) Close() {
	w.pool.Close()
}

// Record implements match.AuditSink. It never blocks: a full queue means the
// record is dropped and logged rather than backpressuring game play.
func (w *Writer) Record(game *match.Game) {
	turns, wagers, remaining := game.Snapshot()
	rec := record{
		joinCode:  uint32(game.JoinCode()),
		turns:     turns,
		wagers:    wagers,
		remaining: remaining,
	}

	select {
	case w.ch <- rec:
	default:
		slog.Warn("audit queue full, dropping record", "join_code", rec.joinCode)
	}
}

// Run drains recorded games into Postgres until ctx is cancelled. Intended
// to run alongside the match server under an errgroup, the way the teacher
// runs its accept loop and other long-lived subsystems as sibling goroutines.
func (w *Writer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case rec := <-w.ch:
			if err := w.insert(ctx, rec); err != nil {
				slog.Error("audit insert failed", "join_code", rec.joinCode, "error", err)
			}
		}
	}
}

func (w *Writer) insert(ctx context.Context, rec record) error {
	w0 := toInt32(rec.wagers[0])
	w1 := toInt32(rec.wagers[1])

	_, err := w.pool.Exec(ctx,
		`INSERT INTO finished_games
			(join_code, turns, wagers_side0, wagers_side1, remaining_side0, remaining_side1)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.joinCode, rec.turns, w0, w1, rec.remaining[0], rec.remaining[1],
	)
	if err != nil {
		return fmt.Errorf("inserting finished game: %w", err)
	}
	return nil
}

func toInt32(u []uint32) []int32 {
	out := make([]int32, len(u))
	for i, v := range u {
		out[i] = int32(v)
	}
	return out
}
