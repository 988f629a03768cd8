package sync

import (
	"log"

	"github.com/san-kum/rigidsync/internal/scene"
	"github.com/san-kum/rigidsync/internal/world"
)

// initBodies mirrors body descriptors that have no engine body yet. Bodies
// are created at the entity's composed world-space transform.
func (p *Pipeline) initBodies() {
	p.Scene.Each(func(e scene.Entity) {
		desc, has := p.Scene.Body(e)
		if !has {
			return
		}
		w := p.worldOf(e)
		if w == nil {
			return
		}
		if _, exists := w.BodyHandleOf(e); exists {
			return
		}
		vel, _ := p.Scene.Velocity(e)
		if _, err := w.AddBody(e, desc, p.globalTransform(e), vel); err != nil {
			log.Printf("sync: %v", err)
			return
		}
		// The authored initial state was consumed here; keep the change
		// pass from treating it as a later edit. Impulses stay marked so
		// they apply once mass exists.
		p.Scene.ClearChanged(e, scene.ChangedBody|scene.ChangedTransform|scene.ChangedVelocity|scene.ChangedSleeping)
	})
}

// initColliders attaches collider descriptors to the nearest ancestor body
// in the same world, or to the space's static body when there is none.
func (p *Pipeline) initColliders() {
	p.Scene.Each(func(e scene.Entity) {
		desc, has := p.Scene.Collider(e)
		if !has {
			return
		}
		w := p.worldOf(e)
		if w == nil {
			return
		}
		if _, exists := w.ColliderHandleOf(e); exists {
			return
		}

		body, local, found := p.colliderBody(w, e)
		var err error
		if found {
			_, err = w.AddCollider(e, body, desc, local)
		} else {
			_, err = w.AddStaticCollider(e, desc, p.globalTransform(e))
		}
		if err != nil {
			log.Printf("sync: %v", err)
			return
		}
		p.Scene.ClearChanged(e, scene.ChangedCollider)
	})
}

// colliderBody walks from e up to the nearest ancestor (or e itself) that
// owns a body in w, returning the handle and e's transform relative to it.
func (p *Pipeline) colliderBody(w *world.World, e scene.Entity) (world.BodyHandle, scene.Transform, bool) {
	local := scene.Transform{}
	cur := e
	for {
		if h, ok := w.BodyHandleOf(cur); ok {
			return h, local, true
		}
		parent, ok := p.Scene.Parent(cur)
		if !ok {
			return world.BodyHandle{}, scene.Transform{}, false
		}
		t, _ := p.Scene.Transform(cur)
		local = t.Mul(local)
		cur = parent
	}
}

// initJoints creates constraints once both endpoint bodies exist in the
// entity's world. A multibody joint that would close a link loop is
// reported once and skipped.
func (p *Pipeline) initJoints() {
	p.Scene.Each(func(e scene.Entity) {
		desc, has := p.Scene.Joint(e)
		if !has {
			return
		}
		w := p.worldOf(e)
		if w == nil {
			return
		}
		if desc.Multibody {
			if _, exists := w.MultibodyJointOf(e); exists {
				return
			}
		} else {
			if _, exists := w.ImpulseJointOf(e); exists {
				return
			}
		}

		self, okSelf := w.BodyHandleOf(e)
		other, okOther := w.BodyHandleOf(desc.Other)
		if !okSelf || !okOther {
			// Bodies may be created later this frame or next; retry then.
			return
		}

		var err error
		if desc.Multibody {
			_, err = w.AddMultibodyJoint(e, desc, self, other)
		} else {
			_, err = w.AddImpulseJoint(e, desc, self, other)
		}
		if err != nil {
			if !p.jointFails[e] {
				log.Printf("sync: %v", err)
				p.jointFails[e] = true
			}
			return
		}
		delete(p.jointFails, e)
	})
}
