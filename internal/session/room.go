package session

import "sync"

// Subscriber receives room broadcasts. Send must not block; the
// websocket client buffers and drops the connection when full.
type Subscriber interface {
	UserID() string
	Send(msg Message)
}

// room is the per-match broadcast group. Its mutex also serializes
// event processing for the match: an event runs read-validate-persist-
// broadcast to completion before the next one starts. A room that
// empties out is marked closed under its own lock before it is removed
// from the coordinator's registry, so a late joiner holding a stale
// pointer can detect it and fetch a fresh room.
type room struct {
	mu     sync.Mutex
	closed bool
	subs   map[Subscriber]struct{}
}

func newRoom() *room {
	return &room{subs: make(map[Subscriber]struct{})}
}

// add registers a subscriber. Callers hold the room lock.
func (r *room) add(sub Subscriber) {
	r.subs[sub] = struct{}{}
}

// remove drops a subscriber and reports how many remain. Callers hold
// the room lock.
func (r *room) remove(sub Subscriber) int {
	delete(r.subs, sub)
	return len(r.subs)
}

// broadcast sends to every subscriber. Callers hold the room lock.
func (r *room) broadcast(msg Message) {
	for sub := range r.subs {
		sub.Send(msg)
	}
}

// broadcastExcept sends to everyone but one subscriber. Callers hold
// the room lock.
func (r *room) broadcastExcept(except Subscriber, msg Message) {
	for sub := range r.subs {
		if sub != except {
			sub.Send(msg)
		}
	}
}
