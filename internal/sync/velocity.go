package sync

import (
	"github.com/san-kum/rigidsync/internal/scene"
)

// syncVelocities folds each root's velocity into its descendants' engine
// bodies before the step. Without it, a child hit by its own parent would
// see the parent's full velocity instead of the relative one. The
// writeback pass subtracts the same amount afterwards; authored scene
// velocities are never touched here.
func (p *Pipeline) syncVelocities() {
	p.Scene.Roots(func(root scene.Entity) {
		vel, _ := p.Scene.Velocity(root)
		for _, child := range p.Scene.Children(root) {
			p.syncVelocityRecursively(child, vel)
		}
	})
}

func (p *Pipeline) syncVelocityRecursively(e scene.Entity, parentVel scene.Velocity) {
	vel := parentVel
	if w := p.worldOf(e); w != nil {
		if h, ok := w.BodyHandleOf(e); ok {
			if rb, live := w.RigidBody(h); live {
				rb.Body.SetVelocityVector(rb.Body.Velocity().Add(parentVel.Linear))
				vel = scene.Velocity{
					Linear:  rb.Body.Velocity(),
					Angular: rb.Body.AngularVelocity(),
				}
			}
		}
	}
	for _, child := range p.Scene.Children(e) {
		p.syncVelocityRecursively(child, vel)
	}
}
