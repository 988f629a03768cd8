package sync

import (
	"math"

	"github.com/setanarut/v"

	"github.com/san-kum/rigidsync/internal/scene"
	"github.com/san-kum/rigidsync/internal/world"
)

// transformEps is the tolerance used to tell an authored transform edit
// apart from the echo of the previous writeback.
const transformEps = 1e-6

// applyUserChanges pushes authored component edits into the engine. Body
// kind changes apply before transforms so a teleport lands on the body in
// its new kind. Transform edits that merely echo the last writeback are
// ignored; real edits teleport the body and reset its interpolation.
func (p *Pipeline) applyUserChanges() {
	p.Scene.Each(func(e scene.Entity) {
		mask := p.Scene.ChangedMask(e)
		if mask == 0 && !p.hasPersistentForce(e) {
			return
		}
		w := p.worldOf(e)
		if w == nil {
			return
		}

		if h, ok := w.BodyHandleOf(e); ok {
			rb, live := w.RigidBody(h)
			if !live {
				return
			}

			if mask&scene.ChangedBody != 0 {
				if desc, has := p.Scene.Body(e); has {
					w.UpdateBodyDesc(h, desc)
					rb, _ = w.RigidBody(h)
				}
			}

			// Sleep state goes first; the transform, velocity and impulse
			// edits below wake the body again.
			if mask&scene.ChangedSleeping != 0 && rb.Desc.Kind == scene.BodyDynamic {
				if p.Scene.Sleeping(e) {
					if !rb.Body.IsSleeping() {
						w.Space.Deactivate(rb.Body)
					}
				} else if rb.Body.IsSleeping() {
					rb.Body.Activate()
				}
			}

			if mask&scene.ChangedTransform != 0 {
				global := p.globalTransform(e)
				last, known := w.LastTransformSet(h)
				if !known || !sameTransform(global, last) {
					world.SetBodyPose(rb.Body, global.Translation, global.Rotation)
					rb.Body.Activate()
					if buf, has := w.Interp(h); has {
						buf.Reset()
					}
					w.RecordTransformSet(h, global)
				}
			}

			if mask&scene.ChangedVelocity != 0 && rb.Desc.Kind != scene.BodyFixed {
				vel, _ := p.Scene.Velocity(e)
				rb.Body.SetVelocityVector(vel.Linear)
				rb.Body.SetAngularVelocity(vel.Angular)
				rb.Body.Activate()
			}

			// The engine zeroes forces after each step, so a persistent
			// force is re-applied every frame, not only when it changes.
			if f, _ := p.Scene.Force(e); f.Force != (v.Vec{}) || f.Torque != 0 {
				rb.Body.SetForce(f.Force)
				rb.Body.SetTorque(f.Torque)
				if mask&scene.ChangedForce != 0 {
					rb.Body.Activate()
				}
			}

			if mask&scene.ChangedImpulse != 0 {
				imp, _ := p.Scene.Impulse(e)
				if imp.Impulse != (v.Vec{}) {
					rb.Body.ApplyImpulseAtWorldPoint(imp.Impulse, rb.Body.Position())
				}
				if imp.TorqueImpulse != 0 {
					if moment := rb.Body.Moment(); moment > 0 && moment < math.MaxFloat64 {
						rb.Body.SetAngularVelocity(rb.Body.AngularVelocity() + imp.TorqueImpulse/moment)
					}
				}
				rb.Body.Activate()
				p.Scene.ResetImpulse(e)
			}

			// A disabled body stays in the space but is put to sleep; the
			// writeback pass treats it as a static pivot meanwhile.
			if mask&scene.ChangedDisabled != 0 && rb.Desc.Kind == scene.BodyDynamic {
				if p.Scene.Disabled(e) {
					if !rb.Body.IsSleeping() {
						w.Space.Deactivate(rb.Body)
					}
				} else if rb.Body.IsSleeping() {
					rb.Body.Activate()
				}
			}
		}

		if mask&scene.ChangedCollider != 0 {
			if h, ok := w.ColliderHandleOf(e); ok {
				if desc, has := p.Scene.Collider(e); has {
					w.UpdateColliderMaterial(h, desc)
				}
			}
		}

		p.Scene.ClearChanged(e, mask)
	})
}

func (p *Pipeline) hasPersistentForce(e scene.Entity) bool {
	f, _ := p.Scene.Force(e)
	return f.Force != (v.Vec{}) || f.Torque != 0
}

func sameTransform(a, b scene.Transform) bool {
	return math.Abs(a.Translation.X-b.Translation.X) <= transformEps &&
		math.Abs(a.Translation.Y-b.Translation.Y) <= transformEps &&
		math.Abs(a.Rotation-b.Rotation) <= transformEps
}
