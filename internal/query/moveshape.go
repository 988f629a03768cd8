package query

import (
	"github.com/setanarut/cm"
	"github.com/setanarut/v"

	"github.com/san-kum/rigidsync/internal/scene"
	"github.com/san-kum/rigidsync/internal/world"
)

// MoveOptions tunes the kinematic shape mover.
type MoveOptions struct {
	// Slide keeps the tangential part of blocked motion instead of
	// stopping at the first contact.
	Slide bool
	// MaxIterations bounds the depenetration passes run after each
	// advance. Zero means a small default.
	MaxIterations int
	// Skin is the gap kept between the shape and surfaces it touches.
	Skin float64
	// Autostep lets the shape climb low obstacles.
	Autostep *Autostep
	// Up is the world up direction used for grounding and stepping.
	// Defaults to +Y.
	Up v.Vec
	// PushMass is the mass given to the moving shape when shoving dynamic
	// obstacles out of its way. Zero disables pushing.
	PushMass float64
}

// Autostep configures obstacle climbing: obstacles lower than MaxHeight
// are stepped onto when at least MinWidth of standing room exists on top.
type Autostep struct {
	MaxHeight float64
	MinWidth  float64
}

// MoveResult is the outcome of a MoveShape call.
type MoveResult struct {
	// Translation actually applied, after collision resolution.
	Translation v.Vec
	// Grounded is set when the shape ended the move resting on a surface
	// facing Up.
	Grounded bool
}

const (
	depenetrationRounds = 4
	groundedDot         = 0.5
	maxMoveSubsteps     = 256
	fallbackAdvance     = 0.05
)

// MoveShape moves a shape from pose by desired, resolving overlaps against
// the world's colliders along the way. It is a bounded iterative solver:
// the motion is applied in substeps no larger than half the shape's
// smallest extent so thin obstacles cannot fit between two successive probe
// positions, and each substep pushes the shape out of whatever it overlaps.
// With Slide set the push keeps tangential motion, otherwise the move stops
// at the first obstacle.
func (f *Facade) MoveShape(id world.ID, desc scene.Collider, pose scene.Transform, desired v.Vec, filter Filter, opts MoveOptions) (MoveResult, error) {
	w, err := f.Worlds.World(id)
	if err != nil {
		return MoveResult{}, err
	}
	r := filter.resolve(w)

	up := opts.Up
	if up == (v.Vec{}) {
		up = v.Vec{Y: 1}
	}
	rounds := opts.MaxIterations
	if rounds <= 0 {
		rounds = depenetrationRounds
	}

	probe := world.DetachedShape(desc, pose)
	probe.Filter = filter.shapeFilter()

	maxAdvance := minExtent(desc) / 2
	if maxAdvance <= 0 {
		maxAdvance = fallbackAdvance
	}

	pos := pose.Translation
	remaining := desired
	grounded := false

	for sub := 0; sub < maxMoveSubsteps && remaining.Mag() > 0; sub++ {
		step := remaining
		if step.Mag() > maxAdvance {
			step = step.Unit().Scale(maxAdvance)
		}
		prev := pos
		pos = pos.Add(step)
		remaining = remaining.Sub(step)

		blocked := false
		for round := 0; round < rounds; round++ {
			probe.Body.SetPosition(pos)
			n, depth, obstacle, ok := f.deepestContact(w, probe, r)
			if !ok {
				break
			}
			blocked = true
			pos = pos.Add(n.Scale(depth + opts.Skin))
			if opts.PushMass > 0 && obstacle != nil && obstacle.Type() == cm.Dynamic {
				obstacle.Activate()
				obstacle.ApplyImpulseAtWorldPoint(n.Neg().Scale(opts.PushMass*depth), pos)
			}
			if n.Dot(up) > groundedDot {
				grounded = true
			}
			if opts.Autostep != nil && isWall(n, up) {
				if stepped, ok := f.tryStep(w, probe, r, pos, up, *opts.Autostep); ok {
					pos = stepped
					grounded = true
				}
			}
		}
		if blocked && !opts.Slide {
			// Without sliding the move ends at the first obstacle; keep
			// only the motion up to contact.
			pos = prev
			probe.Body.SetPosition(pos)
			if n, depth, _, ok := f.deepestContact(w, probe, r); ok {
				pos = pos.Add(n.Scale(depth + opts.Skin))
			}
			break
		}
	}

	return MoveResult{Translation: pos.Sub(pose.Translation), Grounded: grounded}, nil
}

// minExtent is the smallest distance from the shape's center to its surface,
// the ceiling on how far one substep may advance without risking a skipped
// contact.
func minExtent(desc scene.Collider) float64 {
	switch desc.Shape {
	case scene.ShapeBox:
		half := desc.HalfExtents.X
		if desc.HalfExtents.Y < half {
			half = desc.HalfExtents.Y
		}
		return half + desc.Radius
	default:
		return desc.Radius
	}
}

// deepestContact returns the push-out normal, penetration depth and
// obstacle body of the deepest overlap between probe and the world, normal
// pointing from the obstacle into the probe.
func (f *Facade) deepestContact(w *world.World, probe *cm.Shape, r resolved) (v.Vec, float64, *cm.Body, bool) {
	var bestNormal v.Vec
	var bestBody *cm.Body
	bestDepth := 0.0
	found := false
	w.Space.ShapeQuery(probe, func(shape *cm.Shape, points *cm.ContactPointSet) {
		if shape.Sensor {
			return
		}
		if _, ok := r.admit(shape); !ok {
			return
		}
		for i := 0; i < points.Count; i++ {
			if d := points.Points[i].Distance; d < 0 && -d > bestDepth {
				bestDepth = -d
				// The set's normal points from the probe toward the
				// obstacle; flip it to push out.
				bestNormal = points.Normal.Neg()
				bestBody = shape.Body
				found = true
			}
		}
	})
	return bestNormal, bestDepth, bestBody, found
}

func isWall(n, up v.Vec) bool {
	d := n.Dot(up)
	return d > -groundedDot && d < groundedDot
}

// tryStep probes whether lifting the shape by at most MaxHeight clears the
// obstacle with MinWidth of room, returning the lifted position if so.
func (f *Facade) tryStep(w *world.World, probe *cm.Shape, r resolved, pos, up v.Vec, step Autostep) (v.Vec, bool) {
	lifted := pos.Add(up.Scale(step.MaxHeight))
	probe.Body.SetPosition(lifted)
	if _, _, _, overlapping := f.deepestContact(w, probe, r); overlapping {
		return v.Vec{}, false
	}
	// Require standing room ahead of the obstacle before committing.
	ahead := lifted.Add(v.Vec{X: up.Y, Y: -up.X}.Scale(step.MinWidth))
	probe.Body.SetPosition(ahead)
	if _, _, _, overlapping := f.deepestContact(w, probe, r); overlapping {
		return v.Vec{}, false
	}
	return lifted, true
}
