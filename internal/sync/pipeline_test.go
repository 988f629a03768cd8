package sync

import (
	"math"
	"testing"

	"github.com/setanarut/v"

	"github.com/san-kum/rigidsync/internal/events"
	"github.com/san-kum/rigidsync/internal/scene"
	"github.com/san-kum/rigidsync/internal/world"
)

const testDt = 1.0 / 60.0

func fixedPipeline(gravity v.Vec) (*Pipeline, *scene.Registry) {
	reg := scene.NewRegistry()
	worlds := world.NewRegistry(gravity)
	step := world.StepConfig{Mode: world.ModeFixed, Dt: testDt, TimeScale: 1, Substeps: 1}
	return NewPipeline(reg, worlds, step), reg
}

func run(t *testing.T, p *Pipeline, steps int) {
	t.Helper()
	for i := 0; i < steps; i++ {
		if err := p.Update(testDt); err != nil {
			t.Fatal(err)
		}
	}
}

// A parent moving up at 2 with a child authored to move down at 1 relative
// to it: after a second the parent is 2 higher, the child's local offset
// one lower, and its world position one higher.
func TestHierarchyVelocityComposition(t *testing.T) {
	p, reg := fixedPipeline(v.Vec{})

	parent := reg.Spawn()
	reg.SetBody(parent, scene.DefaultBody())
	reg.SetVelocity(parent, scene.Velocity{Linear: v.Vec{Y: 2}})

	child := reg.SpawnChild(parent)
	reg.SetTransform(child, scene.Transform{Translation: v.Vec{Y: 5}})
	reg.SetBody(child, scene.DefaultBody())
	reg.SetVelocity(child, scene.Velocity{Linear: v.Vec{Y: -1}})

	run(t, p, 60)

	pt, _ := reg.Transform(parent)
	if math.Abs(pt.Translation.Y-2) > 1e-5 {
		t.Errorf("parent y = %g, want 2", pt.Translation.Y)
	}
	ct, _ := reg.Transform(child)
	if math.Abs(ct.Translation.Y-4) > 1e-5 {
		t.Errorf("child local y = %g, want 4", ct.Translation.Y)
	}
	if worldY := pt.Translation.Y + ct.Translation.Y; math.Abs(worldY-6) > 1e-5 {
		t.Errorf("child world y = %g, want 6", worldY)
	}

	// Authored velocities survive the round trip unchanged.
	pv, _ := reg.Velocity(parent)
	if math.Abs(pv.Linear.Y-2) > 1e-9 {
		t.Errorf("parent velocity = %g, want 2", pv.Linear.Y)
	}
	cv, _ := reg.Velocity(child)
	if math.Abs(cv.Linear.Y-(-1)) > 1e-9 {
		t.Errorf("child velocity = %g, want -1", cv.Linear.Y)
	}
}

func TestWritebackDoesNotMarkChanges(t *testing.T) {
	p, reg := fixedPipeline(v.Vec{Y: -10})

	e := reg.Spawn()
	reg.SetBody(e, scene.DefaultBody())
	run(t, p, 3)

	if got := reg.ChangedMask(e); got != 0 {
		t.Errorf("changed mask after updates = %b, want 0", got)
	}

	// The echoed transform must not be treated as an authored teleport:
	// motion keeps accumulating instead of restarting from the echo.
	t1, _ := reg.Transform(e)
	run(t, p, 1)
	t2, _ := reg.Transform(e)
	if t2.Translation.Y >= t1.Translation.Y {
		t.Errorf("body stopped falling: %g then %g", t1.Translation.Y, t2.Translation.Y)
	}
}

func TestFreefallVelocity(t *testing.T) {
	p, reg := fixedPipeline(v.Vec{Y: -10})

	e := reg.Spawn()
	reg.SetBody(e, scene.DefaultBody())
	run(t, p, 60)

	vel, _ := reg.Velocity(e)
	if math.Abs(vel.Linear.Y-(-10)) > 1e-6 {
		t.Errorf("velocity after 1s = %g, want -10", vel.Linear.Y)
	}
	tr, _ := reg.Transform(e)
	if tr.Translation.Y >= 0 {
		t.Errorf("body did not fall, y = %g", tr.Translation.Y)
	}
}

func TestAuthoredTransformTeleports(t *testing.T) {
	p, reg := fixedPipeline(v.Vec{})

	e := reg.Spawn()
	reg.SetBody(e, scene.DefaultBody())
	run(t, p, 5)

	reg.SetTransform(e, scene.Transform{Translation: v.Vec{X: 100}})
	run(t, p, 1)

	tr, _ := reg.Transform(e)
	if math.Abs(tr.Translation.X-100) > 1e-9 {
		t.Errorf("teleport not applied, x = %g", tr.Translation.X)
	}
}

func TestFixedBodyStaysPut(t *testing.T) {
	p, reg := fixedPipeline(v.Vec{Y: -10})

	e := reg.Spawn()
	reg.SetTransform(e, scene.Transform{Translation: v.Vec{Y: 3}})
	body := scene.DefaultBody()
	body.Kind = scene.BodyFixed
	reg.SetBody(e, body)
	run(t, p, 30)

	tr, _ := reg.Transform(e)
	if math.Abs(tr.Translation.Y-3) > 1e-9 {
		t.Errorf("fixed body moved to y = %g", tr.Translation.Y)
	}
}

func TestWorldIsolation(t *testing.T) {
	p, reg := fixedPipeline(v.Vec{Y: -10})
	up := p.Worlds.CreateWorld(v.Vec{Y: 10})

	a := reg.Spawn()
	reg.SetBody(a, scene.DefaultBody())

	b := reg.Spawn()
	reg.SetWorldTag(b, int(up))
	reg.SetBody(b, scene.DefaultBody())

	run(t, p, 30)

	va, _ := reg.Velocity(a)
	vb, _ := reg.Velocity(b)
	if va.Linear.Y >= 0 {
		t.Errorf("default-world body velocity = %g, want negative", va.Linear.Y)
	}
	if vb.Linear.Y <= 0 {
		t.Errorf("second-world body velocity = %g, want positive", vb.Linear.Y)
	}

	def, _ := p.Worlds.World(world.DefaultWorld)
	other, _ := p.Worlds.World(up)
	if def.BodyCount() != 1 || other.BodyCount() != 1 {
		t.Errorf("body counts = %d, %d", def.BodyCount(), other.BodyCount())
	}
}

func TestDespawnRemovesEngineObjects(t *testing.T) {
	p, reg := fixedPipeline(v.Vec{})

	e := reg.Spawn()
	reg.SetBody(e, scene.DefaultBody())
	reg.SetCollider(e, scene.DefaultCollider())
	run(t, p, 1)

	w, _ := p.Worlds.World(world.DefaultWorld)
	if w.BodyCount() != 1 || w.ColliderCount() != 1 {
		t.Fatalf("setup counts = %d, %d", w.BodyCount(), w.ColliderCount())
	}

	reg.Despawn(e)
	run(t, p, 1)
	if w.BodyCount() != 0 || w.ColliderCount() != 0 {
		t.Errorf("after despawn, counts = %d, %d", w.BodyCount(), w.ColliderCount())
	}
}

func TestImpulseAppliesOnce(t *testing.T) {
	p, reg := fixedPipeline(v.Vec{})

	e := reg.Spawn()
	reg.SetBody(e, scene.DefaultBody())
	run(t, p, 1)

	reg.SetImpulse(e, scene.ExternalImpulse{Impulse: v.Vec{X: 3}})
	run(t, p, 1)

	vel, _ := reg.Velocity(e)
	if math.Abs(vel.Linear.X-3) > 1e-9 {
		t.Fatalf("velocity after impulse = %g, want 3", vel.Linear.X)
	}

	run(t, p, 1)
	vel, _ = reg.Velocity(e)
	if math.Abs(vel.Linear.X-3) > 1e-9 {
		t.Errorf("impulse applied again, velocity = %g", vel.Linear.X)
	}
}

// A sleep request and a velocity edit in the same frame: the sleep lands
// first, then the velocity edit wakes the body, so it moves.
func TestVelocityEditWakesSleepingBody(t *testing.T) {
	p, reg := fixedPipeline(v.Vec{})

	e := reg.Spawn()
	reg.SetBody(e, scene.DefaultBody())
	run(t, p, 1)

	reg.SetSleeping(e, true)
	reg.SetVelocity(e, scene.Velocity{Linear: v.Vec{X: 5}})
	run(t, p, 10)

	tr, _ := reg.Transform(e)
	if tr.Translation.X <= 0.5 {
		t.Errorf("body stayed asleep, x = %g", tr.Translation.X)
	}
	vel, _ := reg.Velocity(e)
	if math.Abs(vel.Linear.X-5) > 1e-9 {
		t.Errorf("velocity = %g, want 5", vel.Linear.X)
	}
}

func TestPersistentForceAccumulates(t *testing.T) {
	p, reg := fixedPipeline(v.Vec{})

	e := reg.Spawn()
	reg.SetBody(e, scene.DefaultBody())
	reg.SetForce(e, scene.ExternalForce{Force: v.Vec{X: 2}})
	run(t, p, 60)

	// Unit mass under a constant 2 N for one second.
	vel, _ := reg.Velocity(e)
	if math.Abs(vel.Linear.X-2) > 1e-6 {
		t.Errorf("velocity = %g, want 2", vel.Linear.X)
	}
}

func TestInterpolatedWritebackBlends(t *testing.T) {
	reg := scene.NewRegistry()
	worlds := world.NewRegistry(v.Vec{})
	step := world.StepConfig{Mode: world.ModeInterpolated, Dt: 0.1, TimeScale: 1, Substeps: 1}
	p := NewPipeline(reg, worlds, step)

	// A body gliding down at a constant 1: each step moves it exactly
	// Dt further, so the blended poses are exact.
	e := reg.Spawn()
	body := scene.DefaultBody()
	body.Interpolated = true
	reg.SetBody(e, body)
	reg.SetVelocity(e, scene.Velocity{Linear: v.Vec{Y: -1}})

	// Half a step of render time: one physics step runs, the written-back
	// pose is halfway between the pre- and post-step poses.
	if err := p.Update(0.05); err != nil {
		t.Fatal(err)
	}
	tr, _ := reg.Transform(e)
	if math.Abs(tr.Translation.Y-(-0.05)) > 1e-9 {
		t.Errorf("blended y = %g, want -0.05", tr.Translation.Y)
	}

	// Another short frame stays inside the same step and blends further
	// along it without stepping again.
	if err := p.Update(0.03); err != nil {
		t.Fatal(err)
	}
	tr, _ = reg.Transform(e)
	if math.Abs(tr.Translation.Y-(-0.08)) > 1e-9 {
		t.Errorf("blended y = %g, want -0.08", tr.Translation.Y)
	}
}

func TestMassPropertiesWriteback(t *testing.T) {
	p, reg := fixedPipeline(v.Vec{})

	e := reg.Spawn()
	reg.SetBody(e, scene.DefaultBody())
	reg.SetCollider(e, scene.DefaultCollider())
	run(t, p, 1)

	mp, _ := reg.MassProperties(e)
	want := math.Pi * 0.5 * 0.5 // unit density circle, radius 0.5
	if math.Abs(mp.Mass-want) > 1e-6 {
		t.Errorf("mass = %g, want %g", mp.Mass, want)
	}
}

func TestCollisionEventsAndCollidingSets(t *testing.T) {
	p, reg := fixedPipeline(v.Vec{})

	spawnSensor := func(x float64) scene.Entity {
		e := reg.Spawn()
		reg.SetTransform(e, scene.Transform{Translation: v.Vec{X: x}})
		reg.SetBody(e, scene.DefaultBody())
		col := scene.DefaultCollider()
		col.Sensor = true
		col.ActiveEvents = true
		reg.SetCollider(e, col)
		return e
	}
	a := spawnSensor(0)
	b := spawnSensor(0.1)

	var got []events.CollisionEvent
	p.OnCollision = func(ev events.CollisionEvent) { got = append(got, ev) }

	run(t, p, 1)
	if len(got) != 1 || got[0].Kind != events.CollisionStarted {
		t.Fatalf("events after overlap = %v", got)
	}
	if got[0].Flags&events.FlagSensor == 0 {
		t.Error("sensor flag missing on sensor contact")
	}
	if c := reg.Colliding(a); len(c) != 1 || c[0] != b {
		t.Errorf("Colliding(a) = %v", c)
	}

	// Removing a collider produces a stop event that still names both
	// entities, flagged as removal-caused.
	got = nil
	reg.RemoveCollider(b)
	run(t, p, 1)
	if len(got) != 1 || got[0].Kind != events.CollisionStopped {
		t.Fatalf("events after removal = %v", got)
	}
	if got[0].Flags&events.FlagRemoved == 0 {
		t.Error("removal flag missing on removal-caused stop")
	}
	if c := reg.Colliding(a); len(c) != 0 {
		t.Errorf("Colliding(a) after removal = %v", c)
	}
}
