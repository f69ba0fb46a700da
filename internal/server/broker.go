package server

import (
	"encoding/json"
	"strconv"
	"sync"
)

// Group names. A session can belong to several groups at once: the shared
// chat room, one group per coop riddle, and one notification channel per
// user identity.
const chatGroup = "chat"

func coopGroup(riddleID int64) string {
	return "coop:" + strconv.FormatInt(riddleID, 10)
}

func userGroup(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

// Broker is an in-process pub/sub registry: group name → set of subscriber
// channels. Delivery is fire-and-forget, at-most-once; subscribers with a
// full buffer miss the event.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded events published
// to the given group.
func (b *Broker) Subscribe(group string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[group] == nil {
		b.subs[group] = make(map[chan []byte]struct{})
	}
	b.subs[group][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the group's subscribers.
func (b *Broker) Unsubscribe(group string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[group], ch)
	if len(b.subs[group]) == 0 {
		delete(b.subs, group)
	}
	b.mu.Unlock()
}

// Publish sends an event to all subscribers of the given group. Users with
// no live connection simply miss it; there is no inbox or redelivery.
func (b *Broker) Publish(group string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	b.mu.RLock()
	for ch := range b.subs[group] {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}
