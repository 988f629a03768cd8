// Package world owns the engine side of the synchronization layer: one
// World per independent simulation, each wrapping a cm.Space together with
// the entity/handle index, the interpolation buffers, the event plumbing
// and the timestep accumulator.
package world

import (
	"fmt"
	"math"

	"github.com/setanarut/cm"
	"github.com/setanarut/v"

	"github.com/san-kum/rigidsync/internal/events"
	"github.com/san-kum/rigidsync/internal/scene"
)

// All shapes created by this layer share one collision type so a single
// handler pair observes every contact.
const colliderType cm.CollisionType = 1

// SetBodyPose places a body at a world pose. SetTransform alone only
// rewrites the cached matrix and the integrator would never see the move;
// SetPosition and SetAngle update the integrated state. Angle goes first so
// the center-of-mass offset folded into the position uses the new rotation.
func SetBodyPose(body *cm.Body, p v.Vec, angle float64) {
	body.SetAngle(angle)
	body.SetPosition(p)
}

// RigidBody pairs the engine body with the descriptor it was created from.
// The descriptor is kept so kind changes and mass re-accumulation can be
// detected against what the engine currently has.
type RigidBody struct {
	Body *cm.Body
	Desc scene.Body
}

// jointRecord keeps enough around to remove a constraint and to walk the
// multibody link graph without asking the engine.
type jointRecord struct {
	constraint *cm.Constraint
	desc       scene.Joint
	bodyA      BodyHandle
	bodyB      BodyHandle
}

// shapeTag rides on cm.Shape.UserData so engine callbacks can find their
// way back to this layer.
type shapeTag struct {
	world          *World
	handle         ColliderHandle
	events         bool
	forceThreshold float64
}

// World is one isolated simulation. Entities tagged with its id are mirrored
// into its space and nothing else; bodies in different worlds never interact.
type World struct {
	ID    ID
	Space *cm.Space

	// SimToRenderTime is how far simulated time trails render time. Only the
	// interpolated timestep mode maintains it; it is zero or negative after
	// a step.
	SimToRenderTime float64

	bodies          arena[RigidBody]
	colliders       arena[*cm.Shape]
	impulseJoints   arena[jointRecord]
	multibodyJoints arena[jointRecord]

	bodyByEntity           map[scene.Entity]BodyHandle
	colliderByEntity       map[scene.Entity]ColliderHandle
	impulseJointByEntity   map[scene.Entity]JointHandle
	multibodyJointByEntity map[scene.Entity]JointHandle

	// lastTransformSet remembers the scene transform this layer last wrote
	// for each body, so the next sync can tell an authored change from the
	// echo of its own writeback.
	lastTransformSet map[BodyHandle]scene.Transform

	// deletedColliders maps handles of removed colliders to their entities
	// until the step after the removal, so stop events that the removal
	// triggers still resolve to entities.
	deletedColliders map[ColliderHandle]scene.Entity

	interp map[BodyHandle]*InterpBuffer

	queue *events.Queue
	hook  events.Sink
}

func newWorld(id ID, gravity v.Vec) *World {
	space := cm.NewSpace()
	space.SetGravity(gravity)
	space.SleepTimeThreshold = 0.5

	w := &World{
		ID:                     id,
		Space:                  space,
		bodyByEntity:           make(map[scene.Entity]BodyHandle),
		colliderByEntity:       make(map[scene.Entity]ColliderHandle),
		impulseJointByEntity:   make(map[scene.Entity]JointHandle),
		multibodyJointByEntity: make(map[scene.Entity]JointHandle),
		lastTransformSet:       make(map[BodyHandle]scene.Transform),
		deletedColliders:       make(map[ColliderHandle]scene.Entity),
		interp:                 make(map[BodyHandle]*InterpBuffer),
		queue:                  events.NewQueue(),
	}

	handler := space.AddCollisionHandler(colliderType, colliderType)
	handler.BeginFunc = w.onContactBegin
	handler.SeparateFunc = w.onContactSeparate
	handler.PostSolveFunc = w.onContactPostSolve
	return w
}

func (w *World) SetGravity(g v.Vec) { w.Space.SetGravity(g) }

// SetEventHook installs a caller sink that replaces the internal queue for
// as long as it is set. Passing nil restores the queue.
func (w *World) SetEventHook(sink events.Sink) { w.hook = sink }

func (w *World) sink() events.Sink {
	if w.hook != nil {
		return w.hook
	}
	return w.queue
}

// DrainEvents hands queued events to the callbacks. Events delivered to a
// hook never reach the queue.
func (w *World) DrainEvents(collision func(events.CollisionEvent), contactForce func(events.ContactForceEvent)) {
	w.queue.Flush(collision, contactForce)
}

func (w *World) PendingEvents() int { return w.queue.Len() }

// AddBody mirrors a scene body into the space. An entity may own at most
// one body per world.
func (w *World) AddBody(e scene.Entity, desc scene.Body, t scene.Transform, vel scene.Velocity) (BodyHandle, error) {
	if _, dup := w.bodyByEntity[e]; dup {
		return BodyHandle{}, fmt.Errorf("world %d: entity already has a body", w.ID)
	}

	var body *cm.Body
	switch desc.Kind {
	case scene.BodyKinematic:
		body = cm.NewKinematicBody()
	case scene.BodyFixed:
		body = cm.NewStaticBody()
	default:
		// Mass and moment are re-accumulated from shape densities when
		// colliders attach.
		body = cm.NewBody(1, 1)
	}
	SetBodyPose(body, t.Translation, t.Rotation)
	if desc.Kind != scene.BodyFixed {
		body.SetVelocityVector(vel.Linear)
		body.SetAngularVelocity(vel.Angular)
	}
	applyVelocityOverrides(body, desc)
	w.Space.AddBody(body)

	h := BodyHandle(w.bodies.insert(RigidBody{Body: body, Desc: desc}, e))
	w.bodyByEntity[e] = h
	w.lastTransformSet[h] = t
	if desc.Interpolated {
		w.interp[h] = &InterpBuffer{}
	}
	if desc.Sleeping && desc.Kind == scene.BodyDynamic {
		w.Space.Deactivate(body)
	}
	return h, nil
}

// applyVelocityOverrides installs a custom velocity integration when the
// body scales gravity or carries extra damping on top of the space's.
func applyVelocityOverrides(body *cm.Body, desc scene.Body) {
	gs := desc.GravityScale
	lin := clamp01(desc.Damping.Linear)
	ang := clamp01(desc.Damping.Angular)
	if gs == 1 && lin == 0 && ang == 0 {
		return
	}
	body.SetVelocityUpdateFunc(func(b *cm.Body, gravity v.Vec, damping, dt float64) {
		b.UpdateVelocity(gravity.Scale(gs), damping*math.Pow(1-lin, dt), dt)
		if ang != 0 {
			b.SetAngularVelocity(b.AngularVelocity() * math.Pow(1-ang, dt))
		}
	})
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// RemoveBody tears the body down together with anything still attached to
// it: remaining shapes go through the deleted-collider map, remaining
// joints are dropped.
func (w *World) RemoveBody(e scene.Entity) bool {
	h, ok := w.bodyByEntity[e]
	if !ok {
		return false
	}
	w.removeJointsTouching(h)
	w.removeShapesOf(h)

	rb, _ := w.bodies.remove(Handle(h))
	w.Space.RemoveBody(rb.Body)
	delete(w.bodyByEntity, e)
	delete(w.lastTransformSet, h)
	delete(w.interp, h)
	return true
}

func (w *World) removeShapesOf(body BodyHandle) {
	rb, ok := w.bodies.get(Handle(body))
	if !ok {
		return
	}
	var doomed []scene.Entity
	w.colliders.each(func(_ Handle, shape *cm.Shape, owner scene.Entity) bool {
		if shape.Body == rb.Body {
			doomed = append(doomed, owner)
		}
		return true
	})
	for _, owner := range doomed {
		w.RemoveCollider(owner)
	}
}

func (w *World) removeJointsTouching(body BodyHandle) {
	drop := func(a *arena[jointRecord], byEntity map[scene.Entity]JointHandle) {
		var doomed []scene.Entity
		a.each(func(_ Handle, rec jointRecord, owner scene.Entity) bool {
			if rec.bodyA == body || rec.bodyB == body {
				doomed = append(doomed, owner)
			}
			return true
		})
		for _, owner := range doomed {
			if h, ok := byEntity[owner]; ok {
				if rec, removed := a.remove(Handle(h)); removed {
					w.Space.RemoveConstraint(rec.constraint)
				}
				delete(byEntity, owner)
			}
		}
	}
	drop(&w.impulseJoints, w.impulseJointByEntity)
	drop(&w.multibodyJoints, w.multibodyJointByEntity)
}

// AddCollider attaches a shape to an already-created body. The local
// transform places the shape relative to the body for colliders that live
// on child entities of the body's entity.
func (w *World) AddCollider(e scene.Entity, body BodyHandle, desc scene.Collider, local scene.Transform) (ColliderHandle, error) {
	if _, dup := w.colliderByEntity[e]; dup {
		return ColliderHandle{}, fmt.Errorf("world %d: entity already has a collider", w.ID)
	}
	rb, ok := w.bodies.get(Handle(body))
	if !ok {
		return ColliderHandle{}, fmt.Errorf("world %d: collider body handle is stale", w.ID)
	}

	shape := buildShape(rb.Body, desc, local)
	shape.Elasticity = desc.Restitution
	shape.Friction = desc.Friction
	shape.Sensor = desc.Sensor
	shape.Filter = cm.ShapeFilter{
		Group:      desc.Groups.Group,
		Categories: desc.Groups.Categories,
		Mask:       desc.Groups.Mask,
	}
	shape.CollisionType = colliderType
	if desc.Density > 0 && rb.Desc.Kind == scene.BodyDynamic {
		shape.SetDensity(desc.Density)
	}

	h := ColliderHandle(w.colliders.insert(shape, e))
	shape.UserData = &shapeTag{
		world:          w,
		handle:         h,
		events:         desc.ActiveEvents,
		forceThreshold: desc.ContactForceThreshold,
	}
	w.Space.AddShape(shape)
	w.colliderByEntity[e] = h

	if rb.Desc.Kind == scene.BodyDynamic {
		w.applyMassOverrides(rb)
	}
	return h, nil
}

// applyMassOverrides re-applies body-level mass settings that shape
// attachment overwrites: additional mass on top of the density-derived one
// and the rotation lock.
func (w *World) applyMassOverrides(rb RigidBody) {
	if rb.Desc.AdditionalMass > 0 {
		rb.Body.SetMass(rb.Body.Mass() + rb.Desc.AdditionalMass)
	}
	if rb.Desc.LockRotation {
		rb.Body.SetMoment(math.MaxFloat64)
	}
}

func buildShape(body *cm.Body, desc scene.Collider, local scene.Transform) *cm.Shape {
	switch desc.Shape {
	case scene.ShapeBox:
		w, h := desc.HalfExtents.X*2, desc.HalfExtents.Y*2
		if local.Translation == (v.Vec{}) && local.Rotation == 0 {
			return cm.NewBox(body, w, h, desc.Radius)
		}
		verts := []v.Vec{
			{X: -desc.HalfExtents.X, Y: -desc.HalfExtents.Y},
			{X: -desc.HalfExtents.X, Y: desc.HalfExtents.Y},
			{X: desc.HalfExtents.X, Y: desc.HalfExtents.Y},
			{X: desc.HalfExtents.X, Y: -desc.HalfExtents.Y},
		}
		return cm.NewPolygon(body, verts, cm.NewTransformRigid(local.Translation, local.Rotation), desc.Radius)
	case scene.ShapeSegment:
		a := local.Translation.Add(scene.Rotate(desc.A, local.Rotation))
		b := local.Translation.Add(scene.Rotate(desc.B, local.Rotation))
		return cm.NewSegment(body, a, b, desc.Radius)
	default:
		center := local.Translation.Add(scene.Rotate(desc.Offset, local.Rotation))
		return cm.NewCircle(body, desc.Radius, center)
	}
}

// AddStaticCollider attaches a shape that has no body of its own to the
// space's shared static body, placed in world coordinates.
func (w *World) AddStaticCollider(e scene.Entity, desc scene.Collider, global scene.Transform) (ColliderHandle, error) {
	if _, dup := w.colliderByEntity[e]; dup {
		return ColliderHandle{}, fmt.Errorf("world %d: entity already has a collider", w.ID)
	}
	shape := buildShape(w.Space.StaticBody, desc, global)
	shape.Elasticity = desc.Restitution
	shape.Friction = desc.Friction
	shape.Sensor = desc.Sensor
	shape.Filter = cm.ShapeFilter{
		Group:      desc.Groups.Group,
		Categories: desc.Groups.Categories,
		Mask:       desc.Groups.Mask,
	}
	shape.CollisionType = colliderType

	h := ColliderHandle(w.colliders.insert(shape, e))
	shape.UserData = &shapeTag{
		world:          w,
		handle:         h,
		events:         desc.ActiveEvents,
		forceThreshold: desc.ContactForceThreshold,
	}
	w.Space.AddShape(shape)
	w.colliderByEntity[e] = h
	return h, nil
}

// DetachedShape builds a free-standing shape at a world-space pose for
// geometric queries. The backing body is never added to a space; reposition
// it through shape.Body between queries.
func DetachedShape(desc scene.Collider, pose scene.Transform) *cm.Shape {
	body := cm.NewStaticBody()
	SetBodyPose(body, pose.Translation, pose.Rotation)
	shape := buildShape(body, desc, scene.Transform{})
	shape.Filter = cm.ShapeFilter{
		Group:      desc.Groups.Group,
		Categories: desc.Groups.Categories,
		Mask:       desc.Groups.Mask,
	}
	return shape
}

// RemoveCollider detaches the shape and parks its handle in the
// deleted-collider map so late stop events still resolve. The map entry
// lives until ClearDeletedColliders at the end of the following step.
func (w *World) RemoveCollider(e scene.Entity) bool {
	h, ok := w.colliderByEntity[e]
	if !ok {
		return false
	}
	w.deletedColliders[h] = e
	shape, _ := w.colliders.remove(Handle(h))
	w.Space.RemoveShape(shape)
	delete(w.colliderByEntity, e)
	return true
}

func (w *World) DeletedColliderEntity(h ColliderHandle) (scene.Entity, bool) {
	e, ok := w.deletedColliders[h]
	return e, ok
}

// ClearDeletedColliders forgets removals older than one step.
func (w *World) ClearDeletedColliders() {
	clear(w.deletedColliders)
}

// AddImpulseJoint creates a force-based constraint between the entity's
// body and another.
func (w *World) AddImpulseJoint(e scene.Entity, desc scene.Joint, a, b BodyHandle) (JointHandle, error) {
	if _, dup := w.impulseJointByEntity[e]; dup {
		return JointHandle{}, fmt.Errorf("world %d: entity already has an impulse joint", w.ID)
	}
	h, err := w.addJoint(&w.impulseJoints, e, desc, a, b)
	if err != nil {
		return JointHandle{}, err
	}
	w.impulseJointByEntity[e] = h
	return h, nil
}

// AddMultibodyJoint creates a hard kinematic link. Links may not form
// loops; an insert that would close one is rejected.
func (w *World) AddMultibodyJoint(e scene.Entity, desc scene.Joint, a, b BodyHandle) (JointHandle, error) {
	if _, dup := w.multibodyJointByEntity[e]; dup {
		return JointHandle{}, fmt.Errorf("world %d: entity already has a multibody joint", w.ID)
	}
	if w.multibodyLinked(a, b) {
		return JointHandle{}, fmt.Errorf("world %d: multibody joint would close a loop", w.ID)
	}
	h, err := w.addJoint(&w.multibodyJoints, e, desc, a, b)
	if err != nil {
		return JointHandle{}, err
	}
	w.multibodyJointByEntity[e] = h
	return h, nil
}

func (w *World) addJoint(a *arena[jointRecord], e scene.Entity, desc scene.Joint, ha, hb BodyHandle) (JointHandle, error) {
	ra, okA := w.bodies.get(Handle(ha))
	rb, okB := w.bodies.get(Handle(hb))
	if !okA || !okB {
		return JointHandle{}, fmt.Errorf("world %d: joint body handle is stale", w.ID)
	}
	var c *cm.Constraint
	switch desc.Kind {
	case scene.JointPin:
		c = cm.NewPinJoint(ra.Body, rb.Body, desc.AnchorSelf, desc.AnchorOther)
	case scene.JointSlide:
		c = cm.NewSlideJoint(ra.Body, rb.Body, desc.AnchorSelf, desc.AnchorOther, desc.Min, desc.Max)
	default:
		c = cm.NewPivotJoint2(ra.Body, rb.Body, desc.AnchorSelf, desc.AnchorOther)
	}
	if desc.MaxForce > 0 {
		c.SetMaxForce(desc.MaxForce)
	}
	w.Space.AddConstraint(c)
	return JointHandle(a.insert(jointRecord{constraint: c, desc: desc, bodyA: ha, bodyB: hb}, e)), nil
}

// multibodyLinked reports whether a and b are already connected through the
// multibody link graph.
func (w *World) multibodyLinked(a, b BodyHandle) bool {
	if a == b {
		return true
	}
	adj := make(map[BodyHandle][]BodyHandle)
	w.multibodyJoints.each(func(_ Handle, rec jointRecord, _ scene.Entity) bool {
		adj[rec.bodyA] = append(adj[rec.bodyA], rec.bodyB)
		adj[rec.bodyB] = append(adj[rec.bodyB], rec.bodyA)
		return true
	})
	seen := map[BodyHandle]bool{a: true}
	frontier := []BodyHandle{a}
	for len(frontier) > 0 {
		cur := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]
		for _, next := range adj[cur] {
			if next == b {
				return true
			}
			if !seen[next] {
				seen[next] = true
				frontier = append(frontier, next)
			}
		}
	}
	return false
}

func (w *World) RemoveImpulseJoint(e scene.Entity) bool {
	return w.removeJoint(&w.impulseJoints, w.impulseJointByEntity, e)
}

func (w *World) RemoveMultibodyJoint(e scene.Entity) bool {
	return w.removeJoint(&w.multibodyJoints, w.multibodyJointByEntity, e)
}

func (w *World) removeJoint(a *arena[jointRecord], byEntity map[scene.Entity]JointHandle, e scene.Entity) bool {
	h, ok := byEntity[e]
	if !ok {
		return false
	}
	if rec, removed := a.remove(Handle(h)); removed {
		w.Space.RemoveConstraint(rec.constraint)
	}
	delete(byEntity, e)
	return true
}

// Lookups from entity to handle.

func (w *World) BodyHandleOf(e scene.Entity) (BodyHandle, bool) {
	h, ok := w.bodyByEntity[e]
	return h, ok
}

func (w *World) ColliderHandleOf(e scene.Entity) (ColliderHandle, bool) {
	h, ok := w.colliderByEntity[e]
	return h, ok
}

func (w *World) ImpulseJointOf(e scene.Entity) (JointHandle, bool) {
	h, ok := w.impulseJointByEntity[e]
	return h, ok
}

func (w *World) MultibodyJointOf(e scene.Entity) (JointHandle, bool) {
	h, ok := w.multibodyJointByEntity[e]
	return h, ok
}

// Lookups from handle to engine object and owning entity.

func (w *World) RigidBody(h BodyHandle) (RigidBody, bool) {
	return w.bodies.get(Handle(h))
}

func (w *World) BodyEntity(h BodyHandle) (scene.Entity, bool) {
	return w.bodies.owner(Handle(h))
}

func (w *World) ColliderShape(h ColliderHandle) (*cm.Shape, bool) {
	return w.colliders.get(Handle(h))
}

// ColliderEntity resolves a collider handle to its entity, falling back to
// the deleted-collider map for handles removed within the last step.
func (w *World) ColliderEntity(h ColliderHandle) (scene.Entity, bool) {
	if e, ok := w.colliders.owner(Handle(h)); ok {
		return e, ok
	}
	e, ok := w.deletedColliders[h]
	return e, ok
}

// ColliderParent resolves a collider handle to the entity of the body it is
// attached to. Colliders on the space's shared static body have no parent.
func (w *World) ColliderParent(h ColliderHandle) (scene.Entity, bool) {
	shape, ok := w.colliders.get(Handle(h))
	if !ok || shape.Body == w.Space.StaticBody {
		return scene.NoEntity, false
	}
	var parent scene.Entity
	found := false
	w.bodies.each(func(_ Handle, rb RigidBody, e scene.Entity) bool {
		if rb.Body == shape.Body {
			parent = e
			found = true
			return false
		}
		return true
	})
	return parent, found
}

func (w *World) BodyCount() int     { return w.bodies.len() }
func (w *World) ColliderCount() int { return w.colliders.len() }
func (w *World) JointCount() int    { return w.impulseJoints.len() + w.multibodyJoints.len() }

func (w *World) EachBody(f func(BodyHandle, RigidBody, scene.Entity) bool) {
	w.bodies.each(func(h Handle, rb RigidBody, e scene.Entity) bool {
		return f(BodyHandle(h), rb, e)
	})
}

func (w *World) EachCollider(f func(ColliderHandle, *cm.Shape, scene.Entity) bool) {
	w.colliders.each(func(h Handle, shape *cm.Shape, e scene.Entity) bool {
		return f(ColliderHandle(h), shape, e)
	})
}

func (w *World) EachImpulseJoint(f func(JointHandle, scene.Entity) bool) {
	w.impulseJoints.each(func(h Handle, _ jointRecord, e scene.Entity) bool {
		return f(JointHandle(h), e)
	})
}

func (w *World) EachMultibodyJoint(f func(JointHandle, scene.Entity) bool) {
	w.multibodyJoints.each(func(h Handle, _ jointRecord, e scene.Entity) bool {
		return f(JointHandle(h), e)
	})
}

// UpdateBodyDesc applies an authored body descriptor change to an existing
// engine body: kind switches, velocity overrides, interpolation and the
// mass overrides that depend on attached shapes.
func (w *World) UpdateBodyDesc(h BodyHandle, desc scene.Body) {
	s := w.bodies.resolve(Handle(h))
	if s == nil {
		return
	}
	rb := &s.value
	if desc.Kind != rb.Desc.Kind {
		switch desc.Kind {
		case scene.BodyKinematic:
			rb.Body.SetType(cm.Kinematic)
		case scene.BodyFixed:
			rb.Body.SetType(cm.Static)
		default:
			rb.Body.SetType(cm.Dynamic)
		}
	}
	rb.Desc = desc
	applyVelocityOverrides(rb.Body, desc)
	if desc.Kind == scene.BodyDynamic {
		w.applyMassOverrides(*rb)
	}
	w.SetInterpolated(h, desc.Interpolated)
}

// UpdateColliderMaterial applies the non-geometric parts of a collider
// descriptor in place. Geometry is fixed at creation; changing it takes a
// remove and re-add.
func (w *World) UpdateColliderMaterial(h ColliderHandle, desc scene.Collider) {
	shape, ok := w.colliders.get(Handle(h))
	if !ok {
		return
	}
	shape.Elasticity = desc.Restitution
	shape.Friction = desc.Friction
	shape.Sensor = desc.Sensor
	shape.Filter = cm.ShapeFilter{
		Group:      desc.Groups.Group,
		Categories: desc.Groups.Categories,
		Mask:       desc.Groups.Mask,
	}
	if tag, ok := tagOf(shape); ok {
		tag.events = desc.ActiveEvents
		tag.forceThreshold = desc.ContactForceThreshold
	}
	if desc.Density > 0 && shape.Body != nil && shape.Body.Type() == cm.Dynamic {
		shape.SetDensity(desc.Density)
	}
}

// Interp returns the interpolation buffer for a body, if it has one.
func (w *World) Interp(h BodyHandle) (*InterpBuffer, bool) {
	buf, ok := w.interp[h]
	return buf, ok
}

// SetInterpolated adds or removes the body's interpolation buffer.
func (w *World) SetInterpolated(h BodyHandle, on bool) {
	if on {
		if _, ok := w.interp[h]; !ok {
			w.interp[h] = &InterpBuffer{}
		}
	} else {
		delete(w.interp, h)
	}
}

// LastTransformSet reports the scene transform this layer last wrote back
// for the body.
func (w *World) LastTransformSet(h BodyHandle) (scene.Transform, bool) {
	t, ok := w.lastTransformSet[h]
	return t, ok
}

func (w *World) RecordTransformSet(h BodyHandle, t scene.Transform) {
	w.lastTransformSet[h] = t
}

// UpdateQueryStructure refreshes the spatial index so queries issued
// between steps see shapes moved by direct pose writes.
func (w *World) UpdateQueryStructure() {
	w.colliders.each(func(_ Handle, shape *cm.Shape, _ scene.Entity) bool {
		w.Space.ReindexShape(shape)
		return true
	})
}

// Engine collision callbacks. These run inside Space.Step; they only
// resolve entities and push events, never touch the space.

func (w *World) onContactBegin(arb *cm.Arbiter, _ *cm.Space, _ any) bool {
	sa, sb := arb.Shapes()
	ev, ok := w.collisionEvent(sa, sb, events.CollisionStarted)
	if ok {
		w.sink().Collision(ev)
	}
	return true
}

func (w *World) onContactSeparate(arb *cm.Arbiter, _ *cm.Space, _ any) {
	sa, sb := arb.Shapes()
	ev, ok := w.collisionEvent(sa, sb, events.CollisionStopped)
	if ok {
		w.sink().Collision(ev)
	}
}

func (w *World) onContactPostSolve(arb *cm.Arbiter, space *cm.Space, _ any) {
	sa, sb := arb.Shapes()
	ta, okA := tagOf(sa)
	tb, okB := tagOf(sb)
	if !okA || !okB {
		return
	}
	dt := space.TimeStep()
	if dt <= 0 {
		return
	}
	force := arb.TotalImpulse().Mag() / dt

	threshold := 0.0
	if ta.forceThreshold > 0 && force > ta.forceThreshold {
		threshold = ta.forceThreshold
	}
	if tb.forceThreshold > 0 && force > tb.forceThreshold {
		if threshold == 0 || tb.forceThreshold < threshold {
			threshold = tb.forceThreshold
		}
	}
	if threshold == 0 {
		return
	}
	ea, okA := w.ColliderEntity(ta.handle)
	eb, okB := w.ColliderEntity(tb.handle)
	if !okA || !okB {
		return
	}
	w.sink().ContactForce(events.ContactForceEvent{
		A:             ea,
		B:             eb,
		TotalForceMag: force,
		Threshold:     threshold,
	})
}

func (w *World) collisionEvent(sa, sb *cm.Shape, kind events.CollisionKind) (events.CollisionEvent, bool) {
	ta, okA := tagOf(sa)
	tb, okB := tagOf(sb)
	if !okA || !okB {
		return events.CollisionEvent{}, false
	}
	if !ta.events && !tb.events {
		return events.CollisionEvent{}, false
	}
	ea, liveA := w.colliders.owner(Handle(ta.handle))
	eb, liveB := w.colliders.owner(Handle(tb.handle))
	var flags events.CollisionFlags
	if !liveA {
		ea, okA = w.deletedColliders[ta.handle]
		flags |= events.FlagRemoved
	}
	if !liveB {
		eb, okB = w.deletedColliders[tb.handle]
		flags |= events.FlagRemoved
	}
	if !okA || !okB {
		return events.CollisionEvent{}, false
	}
	if sa.Sensor || sb.Sensor {
		flags |= events.FlagSensor
	}
	return events.CollisionEvent{A: ea, B: eb, Kind: kind, Flags: flags}, true
}

func tagOf(s *cm.Shape) (*shapeTag, bool) {
	tag, ok := s.UserData.(*shapeTag)
	return tag, ok
}

// TagHandle extracts the collider handle a shape carries, if the shape was
// created by this layer.
func TagHandle(s *cm.Shape) (ColliderHandle, bool) {
	tag, ok := tagOf(s)
	if !ok {
		return ColliderHandle{}, false
	}
	return tag.handle, true
}
