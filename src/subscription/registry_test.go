package subscription

import (
	"chat/src/domain/event"
	"sync"
	"testing"
)

type fakeSink struct {
	id       string
	buf      chan event.ChatEvent
	received []event.ChatEvent
	mu       sync.Mutex
}

func newFakeSink(id string, capacity int) *fakeSink {
	return &fakeSink{id: id, buf: make(chan event.ChatEvent, capacity)}
}

func (f *fakeSink) ConnectionId() string { return f.id }

func (f *fakeSink) Deliver(evt event.ChatEvent) bool {
	select {
	case f.buf <- evt:
		return true
	default:
		return false
	}
}

func TestSubscribeIsIdempotentPerConnection(t *testing.T) {
	r := New()
	sink := newFakeSink("conn-1", 4)

	r.Subscribe("general", sink)
	r.Subscribe("general", sink)

	delivered, dropped := r.Deliver("general", event.ChatEvent{Text: "hi"})
	if delivered != 1 || dropped != 0 {
		t.Fatalf("delivered=%d dropped=%d, want 1/0 (coalesced joins, single delivery)", delivered, dropped)
	}
}

func TestUnsubscribeStopsFutureDelivery(t *testing.T) {
	r := New()
	sink := newFakeSink("conn-1", 4)
	r.Subscribe("general", sink)
	r.Unsubscribe("general", "conn-1")

	delivered, _ := r.Deliver("general", event.ChatEvent{Text: "hi"})
	if delivered != 0 {
		t.Fatalf("delivered = %d, want 0 after unsubscribe", delivered)
	}
}

func TestDropConnectionRemovesFromAllScopes(t *testing.T) {
	r := New()
	sink := newFakeSink("conn-1", 4)
	r.Subscribe("general", sink)
	r.Subscribe("random", sink)

	r.DropConnection("conn-1", []string{"general", "random"})

	for _, scopeId := range []string{"general", "random"} {
		delivered, _ := r.Deliver(scopeId, event.ChatEvent{Text: "hi"})
		if delivered != 0 {
			t.Fatalf("scope %q: delivered = %d, want 0 after dropConnection", scopeId, delivered)
		}
	}
}

func TestDeliverDropsOnBackpressuredSink(t *testing.T) {
	r := New()
	sink := newFakeSink("conn-1", 1)
	r.Subscribe("general", sink)

	r.Deliver("general", event.ChatEvent{Text: "first"})
	delivered, dropped := r.Deliver("general", event.ChatEvent{Text: "second"})

	if delivered != 0 || dropped != 1 {
		t.Fatalf("delivered=%d dropped=%d, want 0/1 for a full buffer", delivered, dropped)
	}
}

func TestDeliverFansOutToMultipleConnections(t *testing.T) {
	r := New()
	a := newFakeSink("conn-a", 2)
	b := newFakeSink("conn-b", 2)
	r.Subscribe("general", a)
	r.Subscribe("general", b)

	delivered, dropped := r.Deliver("general", event.ChatEvent{Text: "hi"})
	if delivered != 2 || dropped != 0 {
		t.Fatalf("delivered=%d dropped=%d, want 2/0", delivered, dropped)
	}
}
