package sync

import (
	"github.com/setanarut/cm"

	"github.com/san-kum/rigidsync/internal/scene"
	"github.com/san-kum/rigidsync/internal/world"
)

// syncRemovals tears down engine objects whose scene side went away: the
// entity despawned, the descriptor component was removed, or the entity
// moved to another world. Joints go first so constraints never outlive
// their bodies, then colliders, then bodies.
//
// It also expires the previous step's deleted-collider entries; removals
// recorded below stay resolvable until this runs again next frame.
func (p *Pipeline) syncRemovals() {
	p.Worlds.Each(func(w *world.World) {
		w.ClearDeletedColliders()

		var goneImpulse, goneMultibody, goneColliders, goneBodies []scene.Entity

		w.EachImpulseJoint(func(_ world.JointHandle, e scene.Entity) bool {
			if desc, ok := p.jointIn(w, e); !ok || desc.Multibody {
				goneImpulse = append(goneImpulse, e)
			}
			return true
		})
		w.EachMultibodyJoint(func(_ world.JointHandle, e scene.Entity) bool {
			if desc, ok := p.jointIn(w, e); !ok || !desc.Multibody {
				goneMultibody = append(goneMultibody, e)
			}
			return true
		})
		w.EachCollider(func(_ world.ColliderHandle, _ *cm.Shape, e scene.Entity) bool {
			if !p.colliderIn(w, e) {
				goneColliders = append(goneColliders, e)
			}
			return true
		})
		w.EachBody(func(_ world.BodyHandle, _ world.RigidBody, e scene.Entity) bool {
			if !p.bodyIn(w, e) {
				goneBodies = append(goneBodies, e)
			}
			return true
		})

		for _, e := range goneImpulse {
			w.RemoveImpulseJoint(e)
		}
		for _, e := range goneMultibody {
			w.RemoveMultibodyJoint(e)
		}
		for _, e := range goneColliders {
			w.RemoveCollider(e)
		}
		for _, e := range goneBodies {
			w.RemoveBody(e)
		}
	})
}

func (p *Pipeline) jointIn(w *world.World, e scene.Entity) (scene.Joint, bool) {
	if !p.Scene.Alive(e) || world.ID(p.Scene.WorldTag(e)) != w.ID {
		return scene.Joint{}, false
	}
	return p.Scene.Joint(e)
}

func (p *Pipeline) colliderIn(w *world.World, e scene.Entity) bool {
	if !p.Scene.Alive(e) || world.ID(p.Scene.WorldTag(e)) != w.ID {
		return false
	}
	_, has := p.Scene.Collider(e)
	return has
}

func (p *Pipeline) bodyIn(w *world.World, e scene.Entity) bool {
	if !p.Scene.Alive(e) || world.ID(p.Scene.WorldTag(e)) != w.ID {
		return false
	}
	_, has := p.Scene.Body(e)
	return has
}
