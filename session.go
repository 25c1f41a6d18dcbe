package chat

import (
	"context"
	"net"
)

// Session owns one accepted connection for the duration of its room
// membership: it drives the read loop, dispatches decoded messages to
// the room, and queues room broadcasts on its writer.
type Session struct {
	conn *Conn
	room *Room
}

// NewSession binds conn to room. The session's message handler hands
// every decoded message to the room for broadcast; additional options
// may adjust logging or error policy.
func NewSession(conn net.Conn, room *Room, opt ...Option) (*Session, error) {
	s := &Session{room: room}

	opt = append(opt, OnMessageOption(func(message *Message) error {
		room.Deliver(message)
		return nil
	}))

	c, err := NewConn(conn, opt...)
	if err != nil {
		return nil, err
	}

	s.conn = c
	return s, nil
}

// Run joins the room before the first read, drives the connection
// until it terminates, then leaves the room. Any transport or protocol
// error tears the session down exactly once; Leave is idempotent, so a
// racing Close is safe.
func (s *Session) Run(ctx context.Context) error {
	s.room.Join(s)
	err := s.conn.Run(ctx)
	s.room.Leave(s)
	return err
}

// Deliver implements Participant by queueing message on the session's
// outbound writer. A closed connection makes delivery a no-op; the
// session is already on its way out of the room.
func (s *Session) Deliver(message *Message) {
	if err := s.conn.Write(message); err != nil {
		_ = s.conn.Close()
	}
}

// Close closes the session's connection, aborting its read and write
// loops. Safe to call multiple times.
func (s *Session) Close() error {
	return s.conn.Close()
}
