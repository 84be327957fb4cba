package exports

import "testing"

// TestHubSince verifies incremental event reads by sequence.
func TestHubSince(t *testing.T) {
	hub := NewHub(10)
	hub.Publish(Event{Kind: KindStatus, Message: "1"})
	hub.Publish(Event{Kind: KindStatus, Message: "2"})
	hub.Publish(Event{Kind: KindStatus, Message: "3"})

	events := hub.Since(1)
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].Seq != 2 || events[1].Seq != 3 {
		t.Fatalf("unexpected seqs: %+v", events)
	}
}

// TestHubCapsHistory verifies buffer limit trimming behavior.
func TestHubCapsHistory(t *testing.T) {
	hub := NewHub(2)
	hub.Publish(Event{Kind: KindStatus, Message: "1"})
	hub.Publish(Event{Kind: KindStatus, Message: "2"})
	hub.Publish(Event{Kind: KindStatus, Message: "3"})

	events := hub.Since(0)
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].Message != "2" || events[1].Message != "3" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

// TestHubSubscribeByKind verifies typed delivery and the wildcard kind.
func TestHubSubscribeByKind(t *testing.T) {
	hub := NewHub(10)

	var finished []Event
	var all []Event
	hub.Subscribe(KindFinished, func(e Event) { finished = append(finished, e) })
	hub.Subscribe(KindAll, func(e Event) { all = append(all, e) })

	hub.Publish(Event{Kind: KindSubmitted, Key: "a"})
	hub.Publish(Event{Kind: KindFinished, Key: "a", OutputPath: "a.mp4"})

	if len(finished) != 1 {
		t.Fatalf("finished handler calls = %d, want 1", len(finished))
	}
	if finished[0].OutputPath != "a.mp4" {
		t.Fatalf("unexpected finished event: %+v", finished[0])
	}
	if len(all) != 2 {
		t.Fatalf("wildcard handler calls = %d, want 2", len(all))
	}
}

// TestHubSubscriptionCancel verifies cancelled handlers stop receiving.
func TestHubSubscriptionCancel(t *testing.T) {
	hub := NewHub(10)

	calls := 0
	sub := hub.Subscribe(KindStatus, func(Event) { calls++ })
	hub.Publish(Event{Kind: KindStatus})

	sub.Cancel()
	sub.Cancel()
	hub.Publish(Event{Kind: KindStatus})

	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}
}

// TestHubPublishAssignsSequenceAndTimestamp verifies event stamping.
func TestHubPublishAssignsSequenceAndTimestamp(t *testing.T) {
	hub := NewHub(10)

	first := hub.Publish(Event{Kind: KindSubmitted, Key: "a"})
	second := hub.Publish(Event{Kind: KindSubmitted, Key: "b"})

	if first.Seq != 1 || second.Seq != 2 {
		t.Fatalf("seqs = %d, %d, want 1, 2", first.Seq, second.Seq)
	}
	if first.Timestamp.IsZero() || second.Timestamp.IsZero() {
		t.Fatal("expected timestamps to be set")
	}
}
