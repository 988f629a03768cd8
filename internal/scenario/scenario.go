// Package scenario builds the ready-made scenes the CLI and TUI run:
// registries, worlds and a pipeline wired together from a Config.
package scenario

import (
	"fmt"

	"github.com/setanarut/v"

	"github.com/san-kum/rigidsync/internal/config"
	"github.com/san-kum/rigidsync/internal/scene"
	"github.com/san-kum/rigidsync/internal/sync"
	"github.com/san-kum/rigidsync/internal/world"
)

// Scenario is a runnable scene with its synchronization pipeline.
type Scenario struct {
	Name     string
	Scene    *scene.Registry
	Worlds   *world.Registry
	Pipeline *sync.Pipeline

	// Tracked entities are the interesting ones to plot or inspect, in
	// creation order.
	Tracked []scene.Entity
}

// Names lists the built-in scenarios.
func Names() []string {
	return []string{"freefall", "stack", "hierarchy", "pendulum"}
}

// Build assembles the scenario named by cfg. The returned pipeline has not
// run yet; the first Update mirrors the scene into the engine.
func Build(cfg *config.Config) (*Scenario, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	step, err := stepConfig(cfg.Timestep)
	if err != nil {
		return nil, err
	}

	reg := scene.NewRegistry()
	worlds := world.NewRegistry(v.Vec{X: cfg.Gravity.X, Y: cfg.Gravity.Y})
	s := &Scenario{
		Name:     cfg.Scenario,
		Scene:    reg,
		Worlds:   worlds,
		Pipeline: sync.NewPipeline(reg, worlds, step),
	}

	switch cfg.Scenario {
	case "freefall":
		s.buildFreefall(cfg.Scene)
	case "stack":
		s.buildStack(cfg.Scene)
	case "hierarchy":
		s.buildHierarchy(cfg.Scene)
	case "pendulum":
		s.buildPendulum(cfg.Scene)
	default:
		return nil, fmt.Errorf("scenario: unknown scenario %q", cfg.Scenario)
	}
	return s, nil
}

// stepConfig maps the yaml timestep block onto the stepper policy.
func stepConfig(t config.TimestepConfig) (world.StepConfig, error) {
	cfg := world.StepConfig{
		Dt:        t.Dt,
		MaxDt:     t.MaxDt,
		TimeScale: t.TimeScale,
		Substeps:  t.Substeps,
	}
	switch t.Mode {
	case "fixed":
		cfg.Mode = world.ModeFixed
	case "variable":
		cfg.Mode = world.ModeVariable
	case "interpolated":
		cfg.Mode = world.ModeInterpolated
	default:
		return world.StepConfig{}, fmt.Errorf("scenario: unknown timestep mode %q", t.Mode)
	}
	return cfg, cfg.Validate()
}

func (s *Scenario) ground(halfWidth float64) scene.Entity {
	e := s.Scene.Spawn()
	body := scene.DefaultBody()
	body.Kind = scene.BodyFixed
	s.Scene.SetBody(e, body)

	col := scene.DefaultCollider()
	col.Shape = scene.ShapeSegment
	col.A = v.Vec{X: -halfWidth}
	col.B = v.Vec{X: halfWidth}
	col.Radius = 0.1
	col.Friction = 0.8
	s.Scene.SetCollider(e, col)
	return e
}

func (s *Scenario) buildFreefall(sc config.SceneConfig) {
	s.ground(40)
	for i := 0; i < sc.Bodies; i++ {
		e := s.Scene.Spawn()
		s.Scene.SetTransform(e, scene.Transform{
			Translation: v.Vec{X: float64(i) * sc.Spacing, Y: sc.DropHeight + float64(i)*sc.Spacing},
		})
		s.Scene.SetBody(e, scene.DefaultBody())

		col := scene.DefaultCollider()
		col.Restitution = sc.Restitution
		col.ActiveEvents = true
		s.Scene.SetCollider(e, col)
		s.Tracked = append(s.Tracked, e)
	}
}

func (s *Scenario) buildStack(sc config.SceneConfig) {
	s.ground(40)
	const half = 0.5
	for i := 0; i < sc.Bodies; i++ {
		e := s.Scene.Spawn()
		s.Scene.SetTransform(e, scene.Transform{
			Translation: v.Vec{Y: sc.DropHeight + float64(i)*2*half*sc.Spacing},
		})
		s.Scene.SetBody(e, scene.DefaultBody())

		col := scene.DefaultCollider()
		col.Shape = scene.ShapeBox
		col.HalfExtents = v.Vec{X: half, Y: half}
		col.Restitution = sc.Restitution
		col.Friction = 0.9
		s.Scene.SetCollider(e, col)
		s.Tracked = append(s.Tracked, e)
	}
}

// buildHierarchy is the parented-bodies scene: a moving parent with a
// child offset above it, each with its own authored velocity. The child's
// world motion should be the sum of both.
func (s *Scenario) buildHierarchy(sc config.SceneConfig) {
	parent := s.Scene.Spawn()
	s.Scene.SetBody(parent, scene.DefaultBody())
	s.Scene.SetVelocity(parent, scene.Velocity{Linear: v.Vec{Y: sc.ParentVelY}})
	pcol := scene.DefaultCollider()
	pcol.Shape = scene.ShapeBox
	pcol.HalfExtents = v.Vec{X: 2, Y: 2}
	s.Scene.SetCollider(parent, pcol)

	child := s.Scene.SpawnChild(parent)
	s.Scene.SetTransform(child, scene.Transform{Translation: v.Vec{Y: sc.ChildOffsetY}})
	s.Scene.SetBody(child, scene.DefaultBody())
	s.Scene.SetVelocity(child, scene.Velocity{Linear: v.Vec{Y: sc.ChildVelY}})
	ccol := scene.DefaultCollider()
	ccol.Shape = scene.ShapeBox
	ccol.HalfExtents = v.Vec{X: 2, Y: 2}
	s.Scene.SetCollider(child, ccol)

	s.Tracked = append(s.Tracked, parent, child)
}

func (s *Scenario) buildPendulum(sc config.SceneConfig) {
	anchor := s.Scene.Spawn()
	s.Scene.SetTransform(anchor, scene.Transform{Translation: v.Vec{Y: 10}})
	body := scene.DefaultBody()
	body.Kind = scene.BodyFixed
	s.Scene.SetBody(anchor, body)

	prev := anchor
	for i := 0; i < sc.Bodies; i++ {
		e := s.Scene.Spawn()
		s.Scene.SetTransform(e, scene.Transform{
			Translation: v.Vec{X: float64(i+1) * sc.Spacing, Y: 10},
		})
		s.Scene.SetBody(e, scene.DefaultBody())

		col := scene.DefaultCollider()
		col.Radius = 0.3
		s.Scene.SetCollider(e, col)

		s.Scene.SetJoint(e, scene.Joint{
			Kind:        scene.JointPivot,
			Other:       prev,
			AnchorSelf:  v.Vec{X: -sc.Spacing / 2},
			AnchorOther: v.Vec{X: sc.Spacing / 2},
		})
		s.Tracked = append(s.Tracked, e)
		prev = e
	}
}
