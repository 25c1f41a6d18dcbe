package chat

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// ErrHeaderOverflow is returned when a frame header decodes to a body
// length outside [0, MaxBodyLength].
var ErrHeaderOverflow = errors.New("header exceeds max body length")

// Codec is the interface for frame encoding and decoding.
//
// Decode reads from an io.Reader so the implementation can consume
// exactly the bytes of one complete frame. This handles TCP stream
// reassembly by letting the codec control how many bytes are read.
type Codec interface {
	// Decode reads and decodes one complete frame from the reader.
	Decode(r io.Reader) (*Message, error)
	// Encode encodes a message into raw bytes for transmission.
	Encode(m *Message) ([]byte, error)
}

// FrameCodec implements the chat wire format: a fixed 4-byte ASCII
// decimal header carrying the body length, followed by the raw body
// with no trailing delimiter. The fixed-width header lets the reader
// issue a constant-size read before the body length is known.
type FrameCodec struct{}

// Decode reads the 4-byte header, parses the body length, and reads
// exactly that many body bytes. A header outside [0, MaxBodyLength]
// is a protocol error wrapping ErrHeaderOverflow; the connection must
// be closed, there is no resynchronization.
func (FrameCodec) Decode(r io.Reader) (*Message, error) {
	header := make([]byte, HeaderLength)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, errors.Wrap(err, "read header")
	}

	n := parseHeader(header)
	if n < 0 || n > MaxBodyLength {
		return nil, errors.Wrapf(ErrHeaderOverflow, "header %q", header)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, errors.Wrap(err, "read body")
	}

	return &Message{body: body}, nil
}

// Encode writes the body length as a 4-character space-padded decimal
// header followed by the body. SetBody guarantees the length fits in
// the header, so Encode does not re-validate.
func (FrameCodec) Encode(m *Message) ([]byte, error) {
	buf := make([]byte, 0, m.TotalLength())
	buf = append(buf, fmt.Sprintf("%*d", HeaderLength, m.Length())...)
	buf = append(buf, m.body...)
	return buf, nil
}

// parseHeader parses the leading integer of the header: leading spaces
// are skipped, an optional sign and leading digits are honored, and a
// header with no digits yields zero.
func parseHeader(b []byte) int {
	i := 0
	for i < len(b) && (b[i] == ' ' || b[i] == '\t') {
		i++
	}

	sign := 1
	if i < len(b) && (b[i] == '+' || b[i] == '-') {
		if b[i] == '-' {
			sign = -1
		}
		i++
	}

	n := 0
	for i < len(b) && '0' <= b[i] && b[i] <= '9' {
		n = n*10 + int(b[i]-'0')
		i++
	}

	return sign * n
}
