package protocol

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// singleReadConn hands back its entire backing buffer on the first Read
// call, simulating an OS-level read that coalesces more than one framed
// message at once — something net.Pipe (synchronous, 1:1 write/read) cannot
// reproduce.
type singleReadConn struct {
	r *bytes.Reader
}

func (c *singleReadConn) Read(b []byte) (int, error)         { return c.r.Read(b) }
func (c *singleReadConn) Write(b []byte) (int, error)        { return len(b), nil }
func (c *singleReadConn) Close() error                       { return nil }
func (c *singleReadConn) LocalAddr() net.Addr                { return nil }
func (c *singleReadConn) RemoteAddr() net.Addr               { return nil }
func (c *singleReadConn) SetDeadline(t time.Time) error      { return nil }
func (c *singleReadConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *singleReadConn) SetWriteDeadline(t time.Time) error { return nil }

func pipeStreams(t *testing.T) (*Stream, *Stream) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
	})
	return NewStream(a), NewStream(b)
}

func TestSendReceiveClientMessage(t *testing.T) {
	client, server := pipeStreams(t)

	done := make(chan error, 1)
	go func() { done <- client.SendClient(Move(7)) }()

	got, err := server.ReceiveClient()
	require.NoError(t, err)
	require.NoError(t, <-done)
	require.Equal(t, ClientMove, got.Tag)
	require.Equal(t, uint32(7), got.Wager)
}

func TestSendReceiveServerMessage(t *testing.T) {
	client, server := pipeStreams(t)

	rules := GameRules{NumberTurns: 7, TotalPoints: 700}
	done := make(chan error, 1)
	go func() { done <- server.SendServer(Start(rules)) }()

	got, err := client.ReceiveServer()
	require.NoError(t, err)
	require.NoError(t, <-done)
	require.Equal(t, ServerStart, got.Tag)
	require.Equal(t, rules, got.Rules)
}

func TestNullaryRoundTrip(t *testing.T) {
	client, server := pipeStreams(t)

	done := make(chan error, 1)
	go func() { done <- client.SendClient(Create()) }()

	got, err := server.ReceiveClient()
	require.NoError(t, err)
	require.NoError(t, <-done)
	require.Equal(t, ClientCreate, got.Tag)
}

func TestOverflowOnOversizedMessage(t *testing.T) {
	a, b := net.Pipe()
	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
	})
	server := NewStream(b)

	go func() {
		huge := make([]byte, bufCapacity+64)
		for i := range huge {
			huge[i] = 'x'
		}
		_, _ = a.Write(huge)
	}()

	_, err := server.ReceiveClient()
	require.ErrorIs(t, err, ErrOverflow)
}

// TestReceiveDrainsCoalescedMessages proves a single conn.Read that delivers
// two framed messages at once does not strand the second one behind a
// second blocking network read.
func TestReceiveDrainsCoalescedMessages(t *testing.T) {
	first, err := Create().MarshalJSON()
	require.NoError(t, err)
	second, err := Move(7).MarshalJSON()
	require.NoError(t, err)

	var buf bytes.Buffer
	buf.Write(first)
	buf.WriteByte(sentinel)
	buf.Write(second)
	buf.WriteByte(sentinel)

	stream := NewStream(&singleReadConn{r: bytes.NewReader(buf.Bytes())})

	got1, err := stream.ReceiveClient()
	require.NoError(t, err)
	require.Equal(t, ClientCreate, got1.Tag)

	got2, err := stream.ReceiveClient()
	require.NoError(t, err)
	require.Equal(t, ClientMove, got2.Tag)
	require.Equal(t, uint32(7), got2.Wager)
}

func TestSign(t *testing.T) {
	require.Equal(t, int8(-1), Sign(1, 2))
	require.Equal(t, int8(0), Sign(2, 2))
	require.Equal(t, int8(1), Sign(3, 2))
}
