package scene

import (
	"math"
	"testing"

	"github.com/setanarut/v"
)

func TestChangedTracking(t *testing.T) {
	r := NewRegistry()
	e := r.Spawn()

	if r.ChangedMask(e) != 0 {
		t.Fatalf("fresh entity has changed mask %b", r.ChangedMask(e))
	}

	r.SetTransform(e, Transform{Translation: v.Vec{X: 1}})
	r.SetVelocity(e, Velocity{Linear: v.Vec{Y: 2}})
	r.SetBody(e, DefaultBody())
	r.SetCollider(e, DefaultCollider())

	want := ChangedTransform | ChangedVelocity | ChangedBody | ChangedCollider
	if got := r.ChangedMask(e); got != want {
		t.Errorf("changed mask = %b, want %b", got, want)
	}

	r.ClearChanged(e, ChangedTransform|ChangedVelocity)
	if got := r.ChangedMask(e); got != ChangedBody|ChangedCollider {
		t.Errorf("after partial clear, mask = %b", got)
	}
}

func TestWritebackSettersDoNotMark(t *testing.T) {
	r := NewRegistry()
	e := r.Spawn()

	r.WritebackTransform(e, Transform{Translation: v.Vec{X: 4}})
	r.WritebackVelocity(e, Velocity{Angular: 1})
	r.WritebackSleeping(e, true)

	if got := r.ChangedMask(e); got != 0 {
		t.Errorf("writeback setters marked changes: %b", got)
	}
	if tr, _ := r.Transform(e); tr.Translation.X != 4 {
		t.Errorf("writeback transform not stored, X = %g", tr.Translation.X)
	}
	if !r.Sleeping(e) {
		t.Error("writeback sleeping not stored")
	}
}

func TestResetImpulseDoesNotMark(t *testing.T) {
	r := NewRegistry()
	e := r.Spawn()

	r.SetImpulse(e, ExternalImpulse{Impulse: v.Vec{X: 3}})
	r.ClearChanged(e, ChangedImpulse)
	r.ResetImpulse(e)

	if got := r.ChangedMask(e); got != 0 {
		t.Errorf("ResetImpulse marked a change: %b", got)
	}
	if imp, _ := r.Impulse(e); imp.Impulse != (v.Vec{}) {
		t.Errorf("impulse not cleared: %v", imp.Impulse)
	}
}

func TestCollidingSet(t *testing.T) {
	r := NewRegistry()
	a := r.Spawn()
	b := r.Spawn()

	r.AddColliding(a, b)
	if got := r.Colliding(a); len(got) != 1 || got[0] != b {
		t.Fatalf("Colliding(a) = %v", got)
	}
	r.RemoveColliding(a, b)
	if got := r.Colliding(a); got != nil {
		t.Errorf("after remove, Colliding(a) = %v", got)
	}
}

func TestTransformMul(t *testing.T) {
	a := Transform{Translation: v.Vec{X: 1}, Z: 2, Rotation: math.Pi / 2}
	b := Transform{Translation: v.Vec{X: 1}, Z: 1}

	got := a.Mul(b)
	if math.Abs(got.Translation.X-1) > 1e-12 || math.Abs(got.Translation.Y-1) > 1e-12 {
		t.Errorf("Mul translation = %v, want (1, 1)", got.Translation)
	}
	if got.Z != 3 {
		t.Errorf("Mul Z = %g, want 3", got.Z)
	}
	if math.Abs(got.Rotation-math.Pi/2) > 1e-12 {
		t.Errorf("Mul rotation = %g", got.Rotation)
	}
}
