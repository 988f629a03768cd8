package world

import (
	"math"
	"testing"

	"github.com/setanarut/v"

	"github.com/san-kum/rigidsync/internal/scene"
)

func ent(i uint32) scene.Entity {
	return scene.Entity{Index: i, Generation: 1}
}

func newTestWorld(t *testing.T) *World {
	t.Helper()
	r := NewRegistry(v.Vec{})
	w, err := r.World(DefaultWorld)
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func addBody(t *testing.T, w *World, e scene.Entity) BodyHandle {
	t.Helper()
	h, err := w.AddBody(e, scene.DefaultBody(), scene.Transform{}, scene.Velocity{})
	if err != nil {
		t.Fatal(err)
	}
	return h
}

// The creation pose must land in the integrator's own state, not just the
// cached transform, or the first step snaps the body back to the origin.
func TestAddBodyPoseSurvivesStep(t *testing.T) {
	w := newTestWorld(t)
	h, err := w.AddBody(ent(0), scene.DefaultBody(),
		scene.Transform{Translation: v.Vec{X: 2, Y: 3}},
		scene.Velocity{Linear: v.Vec{X: 1}})
	if err != nil {
		t.Fatal(err)
	}

	w.Space.Step(0.1)

	rb, ok := w.RigidBody(h)
	if !ok {
		t.Fatal("body handle dead after step")
	}
	pos := rb.Body.Position()
	if math.Abs(pos.X-2.1) > 1e-9 || math.Abs(pos.Y-3) > 1e-9 {
		t.Errorf("position after step = %v, want (2.1, 3)", pos)
	}
}

func TestAddBodyDuplicate(t *testing.T) {
	w := newTestWorld(t)
	e := ent(0)
	addBody(t, w, e)

	if _, err := w.AddBody(e, scene.DefaultBody(), scene.Transform{}, scene.Velocity{}); err == nil {
		t.Error("second body for the same entity should be rejected")
	}
	if w.BodyCount() != 1 {
		t.Errorf("BodyCount = %d", w.BodyCount())
	}
}

func TestRemoveBodyCascades(t *testing.T) {
	w := newTestWorld(t)
	a, b := ent(0), ent(1)
	ha := addBody(t, w, a)
	hb := addBody(t, w, b)

	if _, err := w.AddCollider(a, ha, scene.DefaultCollider(), scene.Transform{}); err != nil {
		t.Fatal(err)
	}
	joint := scene.Joint{Kind: scene.JointPivot, Other: b}
	if _, err := w.AddImpulseJoint(a, joint, ha, hb); err != nil {
		t.Fatal(err)
	}

	if !w.RemoveBody(a) {
		t.Fatal("RemoveBody returned false")
	}
	if w.BodyCount() != 1 {
		t.Errorf("BodyCount = %d, want 1", w.BodyCount())
	}
	if w.ColliderCount() != 0 {
		t.Errorf("ColliderCount = %d, want 0", w.ColliderCount())
	}
	if w.JointCount() != 0 {
		t.Errorf("JointCount = %d, want 0", w.JointCount())
	}
	if _, ok := w.BodyHandleOf(a); ok {
		t.Error("removed entity still maps to a body")
	}
	if _, ok := w.RigidBody(ha); ok {
		t.Error("stale body handle still resolves")
	}
}

func TestDeletedColliderResolvesForOneStep(t *testing.T) {
	w := newTestWorld(t)
	e := ent(0)
	h := addBody(t, w, e)
	ch, err := w.AddCollider(e, h, scene.DefaultCollider(), scene.Transform{})
	if err != nil {
		t.Fatal(err)
	}

	if !w.RemoveCollider(e) {
		t.Fatal("RemoveCollider returned false")
	}
	// Stop events delivered after the removal still need the entity.
	if got, ok := w.ColliderEntity(ch); !ok || got != e {
		t.Errorf("ColliderEntity after removal = %v, %v", got, ok)
	}
	if got, ok := w.DeletedColliderEntity(ch); !ok || got != e {
		t.Errorf("DeletedColliderEntity = %v, %v", got, ok)
	}

	w.ClearDeletedColliders()
	if _, ok := w.ColliderEntity(ch); ok {
		t.Error("deleted collider resolved after the grace step")
	}
}

func TestMultibodyLoopRejected(t *testing.T) {
	w := newTestWorld(t)
	a, b, c := ent(0), ent(1), ent(2)
	ha := addBody(t, w, a)
	hb := addBody(t, w, b)
	hc := addBody(t, w, c)

	pivot := func(other scene.Entity) scene.Joint {
		return scene.Joint{Kind: scene.JointPivot, Other: other, Multibody: true}
	}
	if _, err := w.AddMultibodyJoint(a, pivot(b), ha, hb); err != nil {
		t.Fatal(err)
	}
	if _, err := w.AddMultibodyJoint(b, pivot(c), hb, hc); err != nil {
		t.Fatal(err)
	}

	// Closing the chain into a loop is rejected for multibody joints.
	if _, err := w.AddMultibodyJoint(c, pivot(a), hc, ha); err == nil {
		t.Error("multibody loop should be rejected")
	}

	// The same link as an impulse joint is fine.
	if _, err := w.AddImpulseJoint(c, scene.Joint{Kind: scene.JointPivot, Other: a}, hc, ha); err != nil {
		t.Errorf("impulse joint closing the loop: %v", err)
	}
}

func TestUpdateBodyDescKindChange(t *testing.T) {
	w := newTestWorld(t)
	e := ent(0)
	h := addBody(t, w, e)

	desc := scene.DefaultBody()
	desc.Kind = scene.BodyKinematic
	w.UpdateBodyDesc(h, desc)

	rb, ok := w.RigidBody(h)
	if !ok {
		t.Fatal("body handle did not resolve")
	}
	if rb.Desc.Kind != scene.BodyKinematic {
		t.Errorf("desc kind = %v", rb.Desc.Kind)
	}
}

func TestLastTransformSet(t *testing.T) {
	w := newTestWorld(t)
	e := ent(0)
	start := scene.Transform{Translation: v.Vec{X: 1, Y: 2}}
	h, err := w.AddBody(e, scene.DefaultBody(), start, scene.Velocity{})
	if err != nil {
		t.Fatal(err)
	}

	got, ok := w.LastTransformSet(h)
	if !ok || got != start {
		t.Errorf("LastTransformSet = %v, %v", got, ok)
	}

	next := scene.Transform{Translation: v.Vec{X: 5}, Rotation: 0.3}
	w.RecordTransformSet(h, next)
	if got, _ := w.LastTransformSet(h); got != next {
		t.Errorf("after record, LastTransformSet = %v", got)
	}
}

func TestColliderParent(t *testing.T) {
	w := newTestWorld(t)
	bodyEnt, colEnt := ent(0), ent(1)
	h := addBody(t, w, bodyEnt)
	ch, err := w.AddCollider(colEnt, h, scene.DefaultCollider(), scene.Transform{})
	if err != nil {
		t.Fatal(err)
	}

	if got, ok := w.ColliderParent(ch); !ok || got != bodyEnt {
		t.Errorf("ColliderParent = %v, %v, want %v", got, ok, bodyEnt)
	}

	// Colliders on the shared static body have no parent.
	sh, err := w.AddStaticCollider(ent(2), scene.DefaultCollider(), scene.Transform{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := w.ColliderParent(sh); ok {
		t.Error("static collider reported a parent body")
	}
}

func TestColliderLookupRoundTrip(t *testing.T) {
	w := newTestWorld(t)
	e := ent(0)
	h := addBody(t, w, e)
	ch, err := w.AddCollider(e, h, scene.DefaultCollider(), scene.Transform{})
	if err != nil {
		t.Fatal(err)
	}

	if got, ok := w.ColliderHandleOf(e); !ok || got != ch {
		t.Errorf("ColliderHandleOf = %v, %v", got, ok)
	}
	shape, ok := w.ColliderShape(ch)
	if !ok {
		t.Fatal("ColliderShape did not resolve")
	}
	if tagged, ok := TagHandle(shape); !ok || tagged != ch {
		t.Errorf("TagHandle = %v, %v", tagged, ok)
	}
}
