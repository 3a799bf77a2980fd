package collab

import (
	"sync"

	"github.com/sheetsync/sheetsync/backend/go-services/internal/document"
	"github.com/sheetsync/sheetsync/backend/go-services/pkg/metrics"
)

// Sender delivers an outbound message to one connection. Send must not
// block; implementations report false when the message had to be dropped
// (slow or closing peer).
type Sender interface {
	Send(msg []byte) bool
}

type participant struct {
	connID string
	userID string
	cap    document.Capability
	out    Sender
}

type room struct {
	members map[string]*participant
}

// Registry tracks live rooms and their participants. It holds no permission
// data of its own: capabilities are resolved at join time against the store
// and cached on the participant entry until the connection leaves. Every
// mutation happens synchronously under one lock, so membership changes are
// immediately visible to subsequent relays.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*room
	conns map[string]string // connID -> docID
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*room),
		conns: make(map[string]string),
	}
}

// Join admits a connection into the room for docID, creating the room on
// first join. Multiple connections for the same user are independent
// entries. Returns the room size after joining.
func (r *Registry) Join(docID, connID, userID string, cap document.Capability, out Sender) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[docID]
	if !ok {
		rm = &room{members: make(map[string]*participant)}
		r.rooms[docID] = rm
		metrics.RoomsActive.Inc()
	}
	rm.members[connID] = &participant{connID: connID, userID: userID, cap: cap, out: out}
	r.conns[connID] = docID
	return len(rm.members)
}

// Leave removes the connection from its room, discarding the room when it
// becomes empty. Safe to call for connections that never joined.
func (r *Registry) Leave(connID string) (docID string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	docID, ok = r.conns[connID]
	if !ok {
		return "", false
	}
	delete(r.conns, connID)
	rm := r.rooms[docID]
	delete(rm.members, connID)
	if len(rm.members) == 0 {
		delete(r.rooms, docID)
		metrics.RoomsActive.Dec()
	}
	return docID, true
}

// Lookup returns the room and cached capability of a connection.
func (r *Registry) Lookup(connID string) (docID string, cap document.Capability, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	docID, ok = r.conns[connID]
	if !ok {
		return "", document.CapabilityDenied, false
	}
	return docID, r.rooms[docID].members[connID].cap, true
}

// Relay forwards msg from connID to every other participant in the same
// room. Deltas from connections without edit capability are dropped without
// any feedback to the sender. Returns the number of receivers.
func (r *Registry) Relay(connID string, msg []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	docID, ok := r.conns[connID]
	if !ok {
		return 0
	}
	rm := r.rooms[docID]
	sender := rm.members[connID]
	if !sender.cap.CanEdit() {
		metrics.DeltasDropped.Inc()
		return 0
	}
	n := 0
	for id, p := range rm.members {
		if id == connID {
			continue
		}
		if p.out.Send(msg) {
			n++
		}
	}
	metrics.DeltasRelayed.Inc()
	return n
}

// UserPresent reports whether userID still has at least one connection in
// the room for docID. Used to keep presence entries alive while another tab
// of the same user remains connected.
func (r *Registry) UserPresent(docID, userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[docID]
	if !ok {
		return false
	}
	for _, p := range rm.members {
		if p.userID == userID {
			return true
		}
	}
	return false
}

// RoomSize returns the participant count for docID (0 when no room exists).
func (r *Registry) RoomSize(docID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[docID]
	if !ok {
		return 0
	}
	return len(rm.members)
}
