// Package sync runs the per-frame passes that keep the scene graph and the
// physics worlds agreeing with each other: mirroring new components into
// the engine, applying authored changes, stepping, and writing simulation
// results back through the hierarchy.
package sync

import (
	"log"

	"github.com/san-kum/rigidsync/internal/events"
	"github.com/san-kum/rigidsync/internal/scene"
	"github.com/san-kum/rigidsync/internal/world"
)

// Pipeline ties one scene registry to a set of worlds and advances them
// together. Passes run in a fixed order each Update:
//
//	removals, inits, user changes, velocity pre-pass, step,
//	transform/velocity writeback, mass writeback, event delivery.
type Pipeline struct {
	Scene  *scene.Registry
	Worlds *world.Registry
	Step   world.StepConfig

	// OnCollision and OnContactForce receive events drained from the
	// worlds' internal queues after each Update. Worlds with an event hook
	// installed bypass the queue and these callbacks.
	OnCollision    func(events.CollisionEvent)
	OnContactForce func(events.ContactForceEvent)

	badWorlds  map[world.ID]bool
	jointFails map[scene.Entity]bool
}

func NewPipeline(reg *scene.Registry, worlds *world.Registry, step world.StepConfig) *Pipeline {
	return &Pipeline{
		Scene:      reg,
		Worlds:     worlds,
		Step:       step,
		badWorlds:  make(map[world.ID]bool),
		jointFails: make(map[scene.Entity]bool),
	}
}

// Update advances every world by elapsed render seconds and synchronizes
// the scene around the step.
func (p *Pipeline) Update(elapsed float64) error {
	p.syncRemovals()
	p.initBodies()
	p.initColliders()
	p.initJoints()
	p.applyUserChanges()
	p.syncVelocities()

	var firstErr error
	p.Worlds.Each(func(w *world.World) {
		if err := w.StepSimulation(p.Step, elapsed); err != nil && firstErr == nil {
			firstErr = err
		}
	})

	p.writeback()
	p.writebackMassProps()
	p.drainEvents()
	return firstErr
}

// worldOf resolves the world an entity is tagged with. A tag pointing at a
// missing world is reported once and the entity is skipped.
func (p *Pipeline) worldOf(e scene.Entity) *world.World {
	id := world.ID(p.Scene.WorldTag(e))
	w, err := p.Worlds.World(id)
	if err != nil {
		if !p.badWorlds[id] {
			log.Printf("sync: %v, entities tagged with it are skipped", err)
			p.badWorlds[id] = true
		}
		return nil
	}
	return w
}

// globalTransform composes the authored transform chain from the root down
// to e.
func (p *Pipeline) globalTransform(e scene.Entity) scene.Transform {
	t, _ := p.Scene.Transform(e)
	if parent, ok := p.Scene.Parent(e); ok {
		return p.globalTransform(parent).Mul(t)
	}
	return t
}

func (p *Pipeline) writebackMassProps() {
	p.Worlds.Each(func(w *world.World) {
		w.EachBody(func(_ world.BodyHandle, rb world.RigidBody, e scene.Entity) bool {
			if rb.Desc.Kind == scene.BodyDynamic {
				p.Scene.SetMassProperties(e, scene.MassProperties{
					Mass:            rb.Body.Mass(),
					CenterOfGravity: rb.Body.CenterOfGravity(),
				})
			}
			return true
		})
	})
}

func (p *Pipeline) drainEvents() {
	p.Worlds.Each(func(w *world.World) {
		w.DrainEvents(
			func(ev events.CollisionEvent) {
				p.updateCollidingEntities(ev)
				if p.OnCollision != nil {
					p.OnCollision(ev)
				}
			},
			func(ev events.ContactForceEvent) {
				if p.OnContactForce != nil {
					p.OnContactForce(ev)
				}
			},
		)
	})
}

// updateCollidingEntities keeps the per-entity contact sets in step with
// the collision event stream.
func (p *Pipeline) updateCollidingEntities(ev events.CollisionEvent) {
	if ev.Kind == events.CollisionStarted {
		p.Scene.AddColliding(ev.A, ev.B)
		p.Scene.AddColliding(ev.B, ev.A)
	} else {
		p.Scene.RemoveColliding(ev.A, ev.B)
		p.Scene.RemoveColliding(ev.B, ev.A)
	}
}
