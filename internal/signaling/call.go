package signaling

import (
	"log/slog"
	"sync"
)

// Call is an active pairing of two users plus routing metadata (§3).
type Call struct {
	// Participants maps Username to the StreamId minted for that
	// participant in this call. Always exactly two entries.
	Participants map[string]uint32

	// SidsRequested counts how many participants have fetched their sid
	// via REQUEST_CALL_STREAM_ID. Terminal value 2 means fully wired.
	SidsRequested int
}

// peerOf returns the other participant's username, given one participant.
func (c *Call) peerOf(username string) (string, bool) {
	for u := range c.Participants {
		if u != username {
			return u, true
		}
	}
	return "", false
}

// otherSid returns the StreamId paired with sid within this call.
func (c *Call) otherSid(sid uint32) (uint32, bool) {
	var self string
	found := false
	for u, s := range c.Participants {
		if s == sid {
			self = u
			found = true
			break
		}
	}
	if !found {
		return 0, false
	}
	for u, s := range c.Participants {
		if u != self {
			return s, true
		}
	}
	return 0, false
}

// CallRegistry is the process-wide list of active calls (component 5).
// Calls are created and removed only by connection handlers; the relay
// loop takes a snapshot under a short lock per datagram (§4.3).
type CallRegistry struct {
	mu    sync.Mutex
	calls []*Call
}

// NewCallRegistry returns an empty registry.
func NewCallRegistry() *CallRegistry {
	return &CallRegistry{}
}

// Create pairs a and b into a new Call with freshly minted, globally unique
// StreamIds and records it. Callers must already have verified that
// neither a nor b is in an active call.
func (cr *CallRegistry) Create(a, b string) *Call {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	sidA := cr.freshSidLocked()
	sidB := cr.freshSidLocked()
	for sidB == sidA {
		sidB = cr.freshSidLocked()
	}
	call := &Call{Participants: map[string]uint32{
		a: sidA,
		b: sidB,
	}}
	cr.calls = append(cr.calls, call)
	slog.Info("call created", "a", a, "b", b, "active_calls", len(cr.calls))
	return call
}

// freshSidLocked returns a StreamId not already bound to any active call.
// Must be called with cr.mu held.
func (cr *CallRegistry) freshSidLocked() uint32 {
	for {
		sid := newStreamID()
		if !cr.sidInUseLocked(sid) {
			return sid
		}
	}
}

func (cr *CallRegistry) sidInUseLocked(sid uint32) bool {
	for _, c := range cr.calls {
		for _, s := range c.Participants {
			if s == sid {
				return true
			}
		}
	}
	return false
}

// FindByUser returns the Call containing username, if any (§4.2 invariant:
// a user appears in at most one Call).
func (cr *CallRegistry) FindByUser(username string) (*Call, bool) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	for _, c := range cr.calls {
		if _, ok := c.Participants[username]; ok {
			return c, true
		}
	}
	return nil, false
}

// InCall reports whether username currently participates in any Call.
func (cr *CallRegistry) InCall(username string) bool {
	_, ok := cr.FindByUser(username)
	return ok
}

// Remove deletes call from the registry.
func (cr *CallRegistry) Remove(call *Call) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	for i, c := range cr.calls {
		if c == call {
			cr.calls = append(cr.calls[:i], cr.calls[i+1:]...)
			slog.Info("call removed", "active_calls", len(cr.calls))
			return
		}
	}
}

// RequestSid returns the sid minted for username within call and increments
// SidsRequested. The second return value is false if username is not a
// participant.
func (cr *CallRegistry) RequestSid(call *Call, username string) (uint32, bool) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	sid, ok := call.Participants[username]
	if !ok {
		return 0, false
	}
	call.SidsRequested++
	return sid, true
}

// Snapshot returns a shallow copy of the active call list, for the relay
// loop's per-datagram pairing lookup (§4.3). The *Call pointers are shared;
// only the slice is copied, so relay reads never race with Create/Remove.
func (cr *CallRegistry) Snapshot() []*Call {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	out := make([]*Call, len(cr.calls))
	copy(out, cr.calls)
	return out
}

// PeerSid scans the active calls for one pairing sid with another StreamId
// and returns that StreamId (§4.3 step 3, §8 invariant 5).
func PeerSid(calls []*Call, sid uint32) (uint32, bool) {
	for _, c := range calls {
		if other, ok := c.otherSid(sid); ok {
			return other, true
		}
	}
	return 0, false
}
