package protocol

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
)

// bufCapacity is the fixed size of the per-connection read buffer. A message
// plus its trailing sentinel that does not fit triggers ErrOverflow rather
// than growing the buffer, matching the simplest compliant choice under §9.
const bufCapacity = 2048

// sentinel terminates every encoded message on the wire.
const sentinel = 0x00

var (
	// ErrOverflow is returned by Receive when a message (plus sentinel) does
	// not fit in the fixed-size read buffer before a sentinel is found.
	ErrOverflow = errors.New("protocol: message exceeds buffer capacity")
)

// DecodeError wraps a JSON decoding failure for a message that was otherwise
// framed correctly (a complete run of bytes up to a sentinel).
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("protocol: decode: %v", e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// Stream frames JSON-tagged-union messages over a net.Conn using a trailing
// 0x00 sentinel byte, mirroring the original implementation's BufStream: a
// growable-in-spirit but here fixed-capacity read buffer that is scanned for
// the sentinel on every read, with leftover bytes shifted to the front.
type Stream struct {
	conn net.Conn
	w    *bufio.Writer
	buf  []byte
	len  int
}

// NewStream wraps conn with sentinel-delimited JSON framing.
func NewStream(conn net.Conn) *Stream {
	return &Stream{
		conn: conn,
		w:    bufio.NewWriter(conn),
		buf:  make([]byte, bufCapacity),
	}
}

// Send encodes v as JSON and writes it followed by the sentinel byte.
func (s *Stream) Send(v json.Marshaler) error {
	b, err := v.MarshalJSON()
	if err != nil {
		return fmt.Errorf("protocol: marshal: %w", err)
	}
	if _, err := s.w.Write(b); err != nil {
		return fmt.Errorf("protocol: write: %w", err)
	}
	if err := s.w.WriteByte(sentinel); err != nil {
		return fmt.Errorf("protocol: write sentinel: %w", err)
	}
	return s.w.Flush()
}

// SendClient writes a ClientMessage.
func (s *Stream) SendClient(m ClientMessage) error { return s.Send(m) }

// SendServer writes a ServerMessage.
func (s *Stream) SendServer(m ServerMessage) error { return s.Send(m) }

// Receive extracts one complete message from the buffer. If a complete frame
// is already buffered it is returned without touching the connection;
// otherwise Receive blocks on the underlying connection for exactly one read
// and scans again. It returns (false, nil) when no sentinel has appeared yet
// ("Pending" in spec terms) — the caller should call Receive again. It
// returns ErrOverflow if the buffer fills without ever producing a sentinel,
// and a *DecodeError if a framed run of bytes fails to unmarshal.
//
// decode is called with the bytes between the buffer start and the sentinel
// (exclusive); it should unmarshal into the caller's message type.
func (s *Stream) Receive(decode func([]byte) error) (bool, error) {
	// A previous Read may have coalesced more than one message into the
	// buffer; always drain what's already buffered before blocking on the
	// network again, or a second framed message can sit unseen behind the
	// first one.
	idx := s.findSentinel()
	if idx < 0 {
		if s.len == len(s.buf) {
			return false, ErrOverflow
		}

		n, err := s.conn.Read(s.buf[s.len:])
		if n > 0 {
			s.len += n
		}
		if err != nil {
			return false, fmt.Errorf("protocol: read: %w", err)
		}

		idx = s.findSentinel()
		if idx < 0 {
			if s.len == len(s.buf) {
				return false, ErrOverflow
			}
			return false, nil
		}
	}

	frame := make([]byte, idx)
	copy(frame, s.buf[:idx])

	remaining := s.len - (idx + 1)
	copy(s.buf, s.buf[idx+1:s.len])
	s.len = remaining

	if err := decode(frame); err != nil {
		return false, &DecodeError{Err: err}
	}
	return true, nil
}

// findSentinel returns the index of the first sentinel byte in the buffered
// region, or -1 if none is present yet.
func (s *Stream) findSentinel() int {
	for i := 0; i < s.len; i++ {
		if s.buf[i] == sentinel {
			return i
		}
	}
	return -1
}

// ReceiveClient reads exactly one ClientMessage, retrying internally on
// Pending reads until a full frame or a terminal error is available.
func (s *Stream) ReceiveClient() (ClientMessage, error) {
	var m ClientMessage
	for {
		ok, err := s.Receive(func(b []byte) error { return json.Unmarshal(b, &m) })
		if err != nil {
			return ClientMessage{}, err
		}
		if ok {
			return m, nil
		}
	}
}

// ReceiveServer reads exactly one ServerMessage, retrying internally on
// Pending reads until a full frame or a terminal error is available.
func (s *Stream) ReceiveServer() (ServerMessage, error) {
	var m ServerMessage
	for {
		ok, err := s.Receive(func(b []byte) error { return json.Unmarshal(b, &m) })
		if err != nil {
			return ServerMessage{}, err
		}
		if ok {
			return m, nil
		}
	}
}

// Close closes the underlying connection.
func (s *Stream) Close() error { return s.conn.Close() }
