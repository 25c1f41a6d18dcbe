package chat

import (
	"fmt"
	"sync"
	"testing"
)

// fakeParticipant records delivered messages in order.
type fakeParticipant struct {
	mu   sync.Mutex
	msgs []*Message
}

func (p *fakeParticipant) Deliver(message *Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, message)
}

func (p *fakeParticipant) received() []*Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Message, len(p.msgs))
	copy(out, p.msgs)
	return out
}

func TestRoom_DeliverFansOutToAllMembers(t *testing.T) {
	room := NewRoom(RoomLoggerOption(&mockLogger{}))

	p1 := &fakeParticipant{}
	p2 := &fakeParticipant{}
	room.Join(p1)
	room.Join(p2)

	msg := NewMessage([]byte("hello"))
	room.Deliver(msg)

	// Fan-out reaches every member, the sender included; the room does
	// not suppress local echo.
	for i, p := range []*fakeParticipant{p1, p2} {
		got := p.received()
		if len(got) != 1 {
			t.Fatalf("member %d received %d messages, want 1", i+1, len(got))
		}
		if string(got[0].Body()) != "hello" {
			t.Errorf("member %d body = %q, want %q", i+1, got[0].Body(), "hello")
		}
	}
}

func TestRoom_JoinReplaysBacklog(t *testing.T) {
	room := NewRoom(RoomLoggerOption(&mockLogger{}))

	for i := 1; i <= 3; i++ {
		room.Deliver(NewMessage([]byte(fmt.Sprintf("M%d", i))))
	}

	p := &fakeParticipant{}
	room.Join(p)

	// Replay in arrival order, before anything delivered afterwards.
	room.Deliver(NewMessage([]byte("M4")))

	got := p.received()
	want := []string{"M1", "M2", "M3", "M4"}
	if len(got) != len(want) {
		t.Fatalf("received %d messages, want %d", len(got), len(want))
	}
	for i, w := range want {
		if string(got[i].Body()) != w {
			t.Errorf("message %d = %q, want %q", i, got[i].Body(), w)
		}
	}
}

func TestRoom_BacklogBound(t *testing.T) {
	room := NewRoom(RoomLoggerOption(&mockLogger{}))

	for i := 0; i < 150; i++ {
		room.Deliver(NewMessage([]byte{byte(i)}))
	}

	// Only the last DefaultMaxBacklog messages survive, oldest first.
	p := &fakeParticipant{}
	room.Join(p)

	got := p.received()
	if len(got) != DefaultMaxBacklog {
		t.Fatalf("replayed %d messages, want %d", len(got), DefaultMaxBacklog)
	}
	for i, m := range got {
		if want := byte(50 + i); m.Body()[0] != want {
			t.Fatalf("backlog[%d] = %d, want %d", i, m.Body()[0], want)
		}
	}
}

func TestRoom_BacklogOption(t *testing.T) {
	room := NewRoom(RoomBacklogOption(2), RoomLoggerOption(&mockLogger{}))

	for _, body := range []string{"a", "b", "c"} {
		room.Deliver(NewMessage([]byte(body)))
	}

	p := &fakeParticipant{}
	room.Join(p)

	got := p.received()
	if len(got) != 2 {
		t.Fatalf("replayed %d messages, want 2", len(got))
	}
	if string(got[0].Body()) != "b" || string(got[1].Body()) != "c" {
		t.Errorf("backlog = [%q %q], want [b c]", got[0].Body(), got[1].Body())
	}
}

func TestRoom_LeaveIdempotent(t *testing.T) {
	room := NewRoom(RoomLoggerOption(&mockLogger{}))

	p1 := &fakeParticipant{}
	p2 := &fakeParticipant{}
	room.Join(p1)
	room.Join(p2)

	room.Leave(p1)
	room.Leave(p1) // second leave is a no-op
	room.Leave(&fakeParticipant{}) // never joined

	if room.Len() != 1 {
		t.Fatalf("members = %d, want 1", room.Len())
	}

	// The remaining member is unaffected.
	room.Deliver(NewMessage([]byte("still here")))
	if got := p2.received(); len(got) != 1 {
		t.Errorf("remaining member received %d messages, want 1", len(got))
	}
	if got := p1.received(); len(got) != 0 {
		t.Errorf("departed member received %d messages, want 0", len(got))
	}
}

func TestRoom_DeliverAfterLeaveSkipsMember(t *testing.T) {
	room := NewRoom(RoomLoggerOption(&mockLogger{}))

	p := &fakeParticipant{}
	room.Join(p)
	room.Deliver(NewMessage([]byte("one")))
	room.Leave(p)
	room.Deliver(NewMessage([]byte("two")))

	got := p.received()
	if len(got) != 1 || string(got[0].Body()) != "one" {
		t.Errorf("received %d messages after leave, want only %q", len(got), "one")
	}
}

func TestRoom_ConcurrentDeliver(t *testing.T) {
	room := NewRoom(RoomLoggerOption(&mockLogger{}))

	p := &fakeParticipant{}
	room.Join(p)

	var wg sync.WaitGroup
	const workers, perWorker = 10, 20
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				room.Deliver(NewMessage([]byte("x")))
			}
		}()
	}
	wg.Wait()

	if got := len(p.received()); got != workers*perWorker {
		t.Errorf("received %d messages, want %d", got, workers*perWorker)
	}

	// Backlog stays within its bound under concurrent delivery.
	late := &fakeParticipant{}
	room.Join(late)
	if got := len(late.received()); got != DefaultMaxBacklog {
		t.Errorf("backlog replay = %d messages, want %d", got, DefaultMaxBacklog)
	}
}
