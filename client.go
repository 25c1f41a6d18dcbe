package chat

import (
	"context"
	"fmt"
	"io"
	"net"

	"github.com/pkg/errors"
)

// Client is the client half of a chat connection. It mirrors the
// server session: the read loop decodes broadcast frames and prints
// each body to an output writer, one line per message, and Send queues
// console lines for transmission through the same writer pump.
type Client struct {
	conn *Conn
}

// Dial connects to the chat server at addr ("host:port") and returns a
// client whose received message bodies are written to out.
func Dial(addr string, out io.Writer, opt ...Option) (*Client, error) {
	raw, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", addr)
	}
	return NewClient(raw, out, opt...)
}

// NewClient wraps an established connection. Each received message
// body is written to out followed by a newline.
func NewClient(raw net.Conn, out io.Writer, opt ...Option) (*Client, error) {
	opt = append(opt, OnMessageOption(func(message *Message) error {
		if _, err := fmt.Fprintf(out, "%s\n", message.Body()); err != nil {
			return errors.Wrap(err, "write output")
		}
		return nil
	}))

	conn, err := NewConn(raw, opt...)
	if err != nil {
		_ = raw.Close()
		return nil, err
	}

	return &Client{conn: conn}, nil
}

// Run drives the read and write loops until the connection closes or
// the context is canceled.
func (c *Client) Run(ctx context.Context) error {
	return c.conn.Run(ctx)
}

// Send queues one message body for transmission. Bodies longer than
// MaxBodyLength are silently truncated.
func (c *Client) Send(body []byte) error {
	return c.conn.Write(NewMessage(body))
}

// Close closes the connection, aborting the read loop. The input loop
// calls this once the console is exhausted, then waits for Run to
// return. Safe to call multiple times.
func (c *Client) Close() error {
	return c.conn.Close()
}
