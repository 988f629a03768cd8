package sync

import (
	"github.com/setanarut/v"

	"github.com/san-kum/rigidsync/internal/scene"
	"github.com/san-kum/rigidsync/internal/world"
)

// wbFrame carries the basis a node hands to its children during the
// writeback walk: the parent's new world transform, how far the parent
// moved this step, the parent's pre-writeback velocity (what the velocity
// pre-pass folded into descendants) and how much the parent's velocity
// changed.
type wbFrame struct {
	entity         scene.Entity
	parentGlobal   scene.Transform
	parentDelta    scene.Transform
	parentVel      scene.Velocity
	parentDeltaVel scene.Velocity
	worldOffset    v.Vec
}

// writeback copies simulated poses and velocities into the scene. Roots
// take the engine pose directly; descendants get a recomputed local
// transform expressed against their parent's new basis, and their engine
// pose and velocity are corrected for the parent motion that was folded in
// before the step. The walk is an explicit worklist so deep hierarchies
// cannot overflow the stack.
func (p *Pipeline) writeback() {
	var stack []wbFrame
	p.Scene.Roots(func(root scene.Entity) {
		global, delta, vel, deltaVel, offset := p.writebackRoot(root)
		for _, child := range p.Scene.Children(root) {
			stack = append(stack, wbFrame{
				entity:         child,
				parentGlobal:   global,
				parentDelta:    delta,
				parentVel:      vel,
				parentDeltaVel: deltaVel,
				worldOffset:    offset,
			})
		}
	})
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		global, delta, vel, deltaVel, offset := p.writebackChild(f)
		for _, child := range p.Scene.Children(f.entity) {
			stack = append(stack, wbFrame{
				entity:         child,
				parentGlobal:   global,
				parentDelta:    delta,
				parentVel:      vel,
				parentDeltaVel: deltaVel,
				worldOffset:    offset,
			})
		}
	}
}

func (p *Pipeline) writebackRoot(e scene.Entity) (scene.Transform, scene.Transform, scene.Velocity, scene.Velocity, v.Vec) {
	t, _ := p.Scene.Transform(e)

	if p.Scene.Disabled(e) {
		// Disabled nodes hold still and act as a static pivot for their
		// subtree.
		return t, scene.Transform{}, scene.Velocity{}, scene.Velocity{}, t.Translation
	}

	w := p.worldOf(e)
	if w == nil {
		return t, scene.Transform{}, scene.Velocity{}, scene.Velocity{}, t.Translation
	}
	h, hasBody := w.BodyHandleOf(e)
	if !hasBody {
		// No body, but the velocity pre-pass still folded this node's
		// authored velocity into descendants; pass the same value down so
		// they can undo it.
		vel, _ := p.Scene.Velocity(e)
		return t, scene.Transform{}, vel, scene.Velocity{}, t.Translation
	}
	rb, live := w.RigidBody(h)
	if !live {
		return t, scene.Transform{}, scene.Velocity{}, scene.Velocity{}, t.Translation
	}

	pose := p.renderPose(w, h, rb)

	parentDelta := scene.Transform{
		Translation: pose.Position.Sub(t.Translation),
		Rotation:    pose.Angle - t.Rotation,
	}
	// The engine rotates about the center of mass while the scene rotates
	// about the origin; fold the difference into the delta so children end
	// up where the engine actually put them.
	com := scene.Rotate(rb.Body.CenterOfGravity(), rb.Body.Angle())
	comDiff := com.Sub(scene.Rotate(com, parentDelta.Rotation))
	parentDelta.Translation = parentDelta.Translation.Sub(comDiff)

	newT := scene.Transform{Translation: pose.Position, Z: t.Z, Rotation: pose.Angle}
	p.Scene.WritebackTransform(e, newT)
	w.RecordTransformSet(h, newT)

	oldVel, _ := p.Scene.Velocity(e)
	newVel := scene.Velocity{Linear: rb.Body.Velocity(), Angular: rb.Body.AngularVelocity()}
	deltaVel := scene.Velocity{Linear: newVel.Linear.Sub(oldVel.Linear)}
	p.Scene.WritebackVelocity(e, newVel)
	p.Scene.WritebackSleeping(e, rb.Body.IsSleeping())

	return newT, parentDelta, oldVel, deltaVel, t.Translation
}

func (p *Pipeline) writebackChild(f wbFrame) (scene.Transform, scene.Transform, scene.Velocity, scene.Velocity, v.Vec) {
	e := f.entity
	t, _ := p.Scene.Transform(e)

	if p.Scene.Disabled(e) {
		return f.parentGlobal.Mul(t), f.parentDelta, scene.Velocity{}, scene.Velocity{}, f.worldOffset
	}

	w := p.worldOf(e)
	var h world.BodyHandle
	hasBody := false
	if w != nil {
		h, hasBody = w.BodyHandleOf(e)
	}
	if !hasBody {
		// Plain hierarchy node: compose its authored transform and hand
		// the parent's basis through unchanged so deeper bodies still see
		// a correct frame.
		return f.parentGlobal.Mul(t), f.parentDelta, f.parentVel, f.parentDeltaVel, f.worldOffset
	}
	rb, live := w.RigidBody(h)
	if !live {
		return f.parentGlobal.Mul(t), f.parentDelta, f.parentVel, f.parentDeltaVel, f.worldOffset
	}

	pose := p.renderPose(w, h, rb)

	// Solve for the local transform that puts the body at its simulated
	// world position once the parent's fresh motion is accounted for:
	// dynamic bodies were moved by the parent's velocity already, so that
	// share of the parent delta is taken back out.
	rel := pose.Position.Sub(f.worldOffset)
	if rb.Desc.Kind == scene.BodyDynamic {
		rel = rel.Sub(f.parentDelta.Translation)
	}
	newLocal := scene.Rotate(scene.Rotate(rel, f.parentDelta.Rotation), -f.parentGlobal.Rotation)

	old := t
	newT := scene.Transform{Translation: newLocal, Z: t.Z}
	p.Scene.WritebackTransform(e, newT)

	invOld := scene.Transform{Translation: old.Translation.Neg(), Z: -old.Z, Rotation: -old.Rotation}
	delta := newT.Mul(invOld)

	global := f.parentGlobal.Mul(newT)
	w.RecordTransformSet(h, global)
	world.SetBodyPose(rb.Body, global.Translation, global.Rotation)

	// Undo the velocity pre-pass, then report a velocity relative to how
	// much the parent's own velocity changed this step.
	oldLin := rb.Body.Velocity()
	myVel := scene.Velocity{Linear: oldLin, Angular: f.parentVel.Angular}
	rb.Body.SetVelocityVector(oldLin.Sub(f.parentVel.Linear))

	newVel := scene.Velocity{Linear: rb.Body.Velocity(), Angular: rb.Body.AngularVelocity()}
	newVel.Linear = newVel.Linear.Sub(f.parentDeltaVel.Linear)

	authored, _ := p.Scene.Velocity(e)
	deltaVel := scene.Velocity{Linear: newVel.Linear.Sub(authored.Linear)}
	p.Scene.WritebackVelocity(e, newVel)
	p.Scene.WritebackSleeping(e, rb.Body.IsSleeping())

	return global, delta, myVel, deltaVel, global.Translation
}

// renderPose is the pose the scene should show for a body: the raw engine
// pose, or in interpolated mode the blend between the poses bracketing
// render time.
func (p *Pipeline) renderPose(w *world.World, h world.BodyHandle, rb world.RigidBody) world.Pose {
	pose := world.Pose{Position: rb.Body.Position(), Angle: rb.Body.Angle()}
	if p.Step.Mode != world.ModeInterpolated {
		return pose
	}
	buf, ok := w.Interp(h)
	if !ok {
		return pose
	}
	if buf.End == nil {
		end := pose
		buf.End = &end
	}
	if blended, ok := buf.Blend((p.Step.Dt + w.SimToRenderTime) / p.Step.Dt); ok {
		return blended
	}
	return pose
}
