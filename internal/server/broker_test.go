package server

import (
	"encoding/json"
	"testing"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("room")
	defer b.Unsubscribe("room", ch)

	b.Publish("room", map[string]string{"hello": "world"})

	select {
	case data := <-ch:
		var got map[string]string
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if got["hello"] != "world" {
			t.Errorf("unexpected event: %v", got)
		}
	default:
		t.Fatal("expected a buffered event")
	}
}

func TestBrokerGroupIsolation(t *testing.T) {
	b := NewBroker()
	a := b.Subscribe(coopGroup(1))
	other := b.Subscribe(coopGroup(2))
	defer b.Unsubscribe(coopGroup(1), a)
	defer b.Unsubscribe(coopGroup(2), other)

	b.Publish(coopGroup(1), "ping")

	if len(a) != 1 {
		t.Error("expected subscriber of group 1 to receive the event")
	}
	if len(other) != 0 {
		t.Error("expected group 2 to stay quiet")
	}
}

func TestBrokerDropsWhenSlow(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("room")
	defer b.Unsubscribe("room", ch)

	// Overflow the buffer; Publish must never block.
	for i := 0; i < cap(ch)+5; i++ {
		b.Publish("room", i)
	}

	if len(ch) != cap(ch) {
		t.Errorf("expected full buffer of %d, got %d", cap(ch), len(ch))
	}
}

func TestBrokerUnsubscribe(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("room")
	b.Unsubscribe("room", ch)

	b.Publish("room", "after")

	if len(ch) != 0 {
		t.Error("expected no delivery after unsubscribe")
	}
}
