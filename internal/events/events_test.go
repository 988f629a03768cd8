package events

import (
	"testing"

	"github.com/san-kum/rigidsync/internal/scene"
)

func TestQueueFlush(t *testing.T) {
	q := NewQueue()
	a := scene.Entity{Index: 1, Generation: 1}
	b := scene.Entity{Index: 2, Generation: 1}

	q.Collision(CollisionEvent{A: a, B: b, Kind: CollisionStarted})
	q.Collision(CollisionEvent{A: a, B: b, Kind: CollisionStopped})
	q.ContactForce(ContactForceEvent{A: a, B: b, TotalForceMag: 12, Threshold: 10})
	if q.Len() != 3 {
		t.Fatalf("Len = %d", q.Len())
	}

	var collisions []CollisionEvent
	var forces []ContactForceEvent
	q.Flush(
		func(ev CollisionEvent) { collisions = append(collisions, ev) },
		func(ev ContactForceEvent) { forces = append(forces, ev) },
	)

	if len(collisions) != 2 {
		t.Fatalf("flushed %d collision events", len(collisions))
	}
	if collisions[0].Kind != CollisionStarted || collisions[1].Kind != CollisionStopped {
		t.Error("collision events delivered out of order")
	}
	if len(forces) != 1 || forces[0].TotalForceMag != 12 {
		t.Errorf("force events = %v", forces)
	}
	if q.Len() != 0 {
		t.Errorf("queue not empty after flush, Len = %d", q.Len())
	}
}

// A callback is allowed to push follow-up events or ask for the queue
// length mid-flush; the pushed events surface on the next flush.
func TestQueueFlushReentrantCallback(t *testing.T) {
	q := NewQueue()
	q.Collision(CollisionEvent{Kind: CollisionStarted})

	seen := 0
	q.Flush(func(CollisionEvent) {
		seen++
		q.Collision(CollisionEvent{Kind: CollisionStopped})
		if n := q.Len(); n != 1 {
			t.Errorf("Len inside callback = %d, want 1", n)
		}
	}, nil)
	if seen != 1 {
		t.Fatalf("callback ran %d times", seen)
	}
	if q.Len() != 1 {
		t.Fatalf("Len after flush = %d, want 1", q.Len())
	}

	var kinds []CollisionKind
	q.Flush(func(ev CollisionEvent) { kinds = append(kinds, ev.Kind) }, nil)
	if len(kinds) != 1 || kinds[0] != CollisionStopped {
		t.Errorf("second flush delivered %v", kinds)
	}
}

func TestQueueFlushNilCallbacks(t *testing.T) {
	q := NewQueue()
	q.Collision(CollisionEvent{})
	q.ContactForce(ContactForceEvent{})

	// Nil callbacks drop the events but still clear the queue.
	q.Flush(nil, nil)
	if q.Len() != 0 {
		t.Errorf("Len = %d after flush", q.Len())
	}
}
