package chat

import "sync"

// DefaultMaxBacklog is the number of recent messages a room retains
// and replays to newly joined participants.
const DefaultMaxBacklog = 100

// Participant is a member of a Room that can receive broadcasts.
// Deliver must not block: implementations queue the message for
// transmission and return immediately.
type Participant interface {
	// Deliver queues message for transmission to the participant.
	Deliver(message *Message)
}

// Room is the shared broadcast hub: it tracks the live set of
// participants, retains a bounded backlog of recent messages, and fans
// every delivered message out to all members and into the backlog.
//
// Join, Leave and Deliver are mutually atomic; concurrent calls never
// corrupt the member set or reorder the backlog.
type Room struct {
	logger Logger

	mu         sync.Mutex
	members    map[Participant]struct{}
	backlog    []*Message
	maxBacklog int
}

// RoomOption configures a Room.
type RoomOption func(*Room)

// RoomBacklogOption sets the number of recent messages retained for
// replay. Values below zero fall back to DefaultMaxBacklog.
func RoomBacklogOption(max int) RoomOption {
	return func(r *Room) {
		if max >= 0 {
			r.maxBacklog = max
		}
	}
}

// RoomLoggerOption sets the logger for the room.
func RoomLoggerOption(logger Logger) RoomOption {
	return func(r *Room) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRoom creates an empty room. One room instance is shared by every
// connection of a server process.
func NewRoom(opts ...RoomOption) *Room {
	r := &Room{
		logger:     defaultLogger(),
		members:    make(map[Participant]struct{}),
		maxBacklog: DefaultMaxBacklog,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Join adds p to the member set and replays the current backlog to it
// in arrival order, before any message delivered after the join.
func (r *Room) Join(p Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.members[p] = struct{}{}
	for _, message := range r.backlog {
		p.Deliver(message)
	}

	r.logger.Debug("participant joined", "members", len(r.members))
}

// Leave removes p from the member set. Idempotent: leaving twice, or
// leaving without having joined, is a no-op.
func (r *Room) Leave(p Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[p]; !ok {
		return
	}

	delete(r.members, p)
	r.logger.Debug("participant left", "members", len(r.members))
}

// Deliver appends message to the backlog, evicting the oldest entries
// past the bound, and fans it out to every current member. The sender
// is a member like any other and receives its own message back; the
// room does not suppress local echo.
func (r *Room) Deliver(message *Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.backlog = append(r.backlog, message)
	for len(r.backlog) > r.maxBacklog {
		r.backlog = r.backlog[1:]
	}

	for p := range r.members {
		p.Deliver(message)
	}
}

// Len returns the current number of members.
func (r *Room) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}
