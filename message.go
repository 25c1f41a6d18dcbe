// Package chat implements a small TCP chat service: a length-prefixed
// message framing protocol shared by client and server, a broadcast
// room that replays a bounded backlog to newcomers, and the connection
// handling that ties them together.
package chat

// Framing constants shared by client and server.
const (
	// HeaderLength is the fixed size of the frame header in bytes.
	HeaderLength = 4
	// MaxBodyLength is the maximum size of a message body in bytes.
	MaxBodyLength = 512
)

// Message is a single chat message, in transit or held in the room
// backlog. The body is opaque to the service.
type Message struct {
	body []byte
}

// NewMessage builds a message from body. Bodies longer than
// MaxBodyLength are silently truncated.
func NewMessage(body []byte) *Message {
	m := &Message{}
	m.SetBody(body)
	return m
}

// SetBody stores a copy of body, truncating it to MaxBodyLength.
// Truncation is deliberate and not an error.
func (m *Message) SetBody(body []byte) {
	if len(body) > MaxBodyLength {
		body = body[:MaxBodyLength]
	}
	m.body = append(m.body[:0], body...)
}

// Body returns the raw message data.
func (m *Message) Body() []byte {
	return m.body
}

// Length returns the length of the message body.
func (m *Message) Length() int {
	return len(m.body)
}

// TotalLength returns the size of the encoded frame, header included.
func (m *Message) TotalLength() int {
	return HeaderLength + len(m.body)
}
