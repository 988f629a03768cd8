package world

import (
	"math"

	"github.com/setanarut/v"
)

// Pose is an engine-space rigid pose.
type Pose struct {
	Position v.Vec
	Angle    float64
}

// Lerp blends two poses, taking the shortest arc for the angle.
func (p Pose) Lerp(end Pose, t float64) Pose {
	delta := math.Mod(end.Angle-p.Angle, 2*math.Pi)
	if delta > math.Pi {
		delta -= 2 * math.Pi
	} else if delta < -math.Pi {
		delta += 2 * math.Pi
	}
	return Pose{
		Position: p.Position.Lerp(end.Position, t),
		Angle:    p.Angle + delta*t,
	}
}

// InterpBuffer brackets the physics step currently being rendered. Start is
// snapshotted just before the step that crosses render time, End is filled
// lazily from the body's pose after that step.
type InterpBuffer struct {
	Start *Pose
	End   *Pose
}

// Blend returns the pose at fraction t between Start and End. While either
// endpoint is missing there is nothing to interpolate against and ok is
// false; callers fall back to the raw engine pose.
func (b *InterpBuffer) Blend(t float64) (Pose, bool) {
	if b.Start == nil || b.End == nil {
		return Pose{}, false
	}
	return b.Start.Lerp(*b.End, t), true
}

// Reset drops both endpoints, e.g. after a teleport.
func (b *InterpBuffer) Reset() {
	b.Start = nil
	b.End = nil
}
