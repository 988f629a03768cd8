// Package events carries collision and contact-force events from the
// engine's callbacks to the host, one batch per physics step.
package events

import (
	"sync"

	"github.com/san-kum/rigidsync/internal/scene"
)

type CollisionKind int

const (
	CollisionStarted CollisionKind = iota
	CollisionStopped
)

type CollisionFlags uint8

const (
	// FlagSensor marks events involving at least one sensor collider.
	FlagSensor CollisionFlags = 1 << iota
	// FlagRemoved marks stop events caused by a collider removal rather
	// than by the shapes separating.
	FlagRemoved
)

// CollisionEvent reports two entities starting or stopping contact. The
// entities are already resolved from engine handles and stay resolvable
// for one step past collider deletion.
type CollisionEvent struct {
	A, B  scene.Entity
	Kind  CollisionKind
	Flags CollisionFlags
}

// ContactForceEvent reports a contact whose total force magnitude exceeded
// the collider's configured threshold.
type ContactForceEvent struct {
	A, B scene.Entity
	// TotalForceMag is the magnitude of the summed contact forces.
	TotalForceMag float64
	// Threshold is the configured limit that was exceeded.
	Threshold float64
}

// Sink receives events as the engine generates them during a step. A
// caller-supplied Sink takes precedence over the world's internal Queue;
// the two are never combined.
type Sink interface {
	Collision(CollisionEvent)
	ContactForce(ContactForceEvent)
}

// Queue is the internal Sink. The engine may invoke callbacks from worker
// threads while a step runs, so writes are guarded by a mutex; the host
// drains the queue exactly once after the step returns.
type Queue struct {
	mu            sync.Mutex
	collisions    []CollisionEvent
	contactForces []ContactForceEvent

	// Drained batches are parked here so their backing arrays can serve a
	// later step.
	spareCollisions    []CollisionEvent
	spareContactForces []ContactForceEvent
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Collision(ev CollisionEvent) {
	q.mu.Lock()
	q.collisions = append(q.collisions, ev)
	q.mu.Unlock()
}

func (q *Queue) ContactForce(ev ContactForceEvent) {
	q.mu.Lock()
	q.contactForces = append(q.contactForces, ev)
	q.mu.Unlock()
}

// Flush hands every queued event to the callbacks. The queued batch is
// swapped out under the lock and delivered after it is released, so a
// callback may push into or inspect the queue without deadlocking.
func (q *Queue) Flush(collision func(CollisionEvent), contactForce func(ContactForceEvent)) {
	q.mu.Lock()
	collisions := q.collisions
	contactForces := q.contactForces
	q.collisions = q.spareCollisions[:0]
	q.contactForces = q.spareContactForces[:0]
	q.mu.Unlock()

	for _, ev := range collisions {
		if collision != nil {
			collision(ev)
		}
	}
	for _, ev := range contactForces {
		if contactForce != nil {
			contactForce(ev)
		}
	}

	q.mu.Lock()
	q.spareCollisions = collisions[:0]
	q.spareContactForces = contactForces[:0]
	q.mu.Unlock()
}

// Len reports the number of undrained events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.collisions) + len(q.contactForces)
}
