package signaling

import (
	"testing"

	"asciisfu/internal/wire"
)

func TestCallRegistryCreateAssignsDistinctSids(t *testing.T) {
	cr := NewCallRegistry()
	call := cr.Create("alice", "bob")

	if len(call.Participants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(call.Participants))
	}
	if call.Participants["alice"] == call.Participants["bob"] {
		t.Fatal("participants must have distinct stream ids")
	}
}

func TestPeerSid(t *testing.T) {
	cr := NewCallRegistry()
	call := cr.Create("alice", "bob")
	aliceSid := call.Participants["alice"]
	bobSid := call.Participants["bob"]

	snapshot := cr.Snapshot()
	got, ok := PeerSid(snapshot, aliceSid)
	if !ok || got != bobSid {
		t.Fatalf("PeerSid(alice) = %v, %v; want %v, true", got, ok, bobSid)
	}

	got, ok = PeerSid(snapshot, bobSid)
	if !ok || got != aliceSid {
		t.Fatalf("PeerSid(bob) = %v, %v; want %v, true", got, ok, aliceSid)
	}

	if _, ok := PeerSid(snapshot, 0xFFFFFFFF); ok {
		t.Fatal("PeerSid should fail for an unknown sid")
	}
}

func TestCallRegistryRemove(t *testing.T) {
	cr := NewCallRegistry()
	call := cr.Create("alice", "bob")
	cr.Remove(call)

	if _, ok := cr.FindByUser("alice"); ok {
		t.Fatal("expected no call after Remove")
	}
	if len(cr.Snapshot()) != 0 {
		t.Fatal("expected empty snapshot after Remove")
	}
}

func TestRosterRegisterRejectsDuplicate(t *testing.T) {
	r := NewRoster()
	ob1 := NewOutbox()
	ob2 := NewOutbox()

	if !r.Register("alice", ob1) {
		t.Fatal("first registration should succeed")
	}
	if r.Register("alice", ob2) {
		t.Fatal("second registration of the same username should fail")
	}

	got, ok := r.Lookup("alice")
	if !ok || got != ob1 {
		t.Fatal("roster should still point at the first registration's outbox")
	}
}

func TestOutboxDropsOldestOnOverflow(t *testing.T) {
	ob := NewOutbox()
	for i := 0; i < outboxCapacity+5; i++ {
		ob.Push(wire.Bare(byte(i % 2)))
	}
	if len(ob.C()) != outboxCapacity {
		t.Fatalf("queue length = %d, want %d", len(ob.C()), outboxCapacity)
	}
	// Pushes 0..4 were evicted, so the oldest survivor is push 5.
	if first := <-ob.C(); first.Cmd != byte(5%2) {
		t.Fatalf("oldest queued cmd = %d, want %d (push 5)", first.Cmd, byte(5%2))
	}
}
