package world

import (
	"errors"
	"math"
)

// Mode selects how render time maps onto physics steps.
type Mode int

const (
	// ModeFixed always advances by Dt split into Substeps, ignoring how much
	// render time actually passed.
	ModeFixed Mode = iota
	// ModeVariable advances by the elapsed render time scaled by TimeScale
	// and clamped to MaxDt.
	ModeVariable
	// ModeInterpolated accumulates elapsed render time and runs whole fixed
	// steps against it, leaving a negative remainder for pose interpolation.
	ModeInterpolated
)

func (m Mode) String() string {
	switch m {
	case ModeFixed:
		return "fixed"
	case ModeVariable:
		return "variable"
	case ModeInterpolated:
		return "interpolated"
	}
	return "unknown"
}

// StepConfig is the timestep policy for one world.
type StepConfig struct {
	Mode      Mode
	Dt        float64 // fixed/interpolated step length
	MaxDt     float64 // variable mode clamp
	TimeScale float64 // variable/interpolated speed factor
	Substeps  int
}

// DefaultStepConfig runs variable steps clamped to 60 Hz.
func DefaultStepConfig() StepConfig {
	return StepConfig{
		Mode:      ModeVariable,
		Dt:        1.0 / 60.0,
		MaxDt:     1.0 / 60.0,
		TimeScale: 1,
		Substeps:  1,
	}
}

func (c StepConfig) Validate() error {
	if c.Substeps < 1 {
		return errors.New("stepper: substeps must be at least 1")
	}
	switch c.Mode {
	case ModeFixed, ModeInterpolated:
		if c.Dt <= 0 {
			return errors.New("stepper: dt must be positive")
		}
	case ModeVariable:
		if c.MaxDt <= 0 {
			return errors.New("stepper: max dt must be positive")
		}
	default:
		return errors.New("stepper: unknown timestep mode")
	}
	if c.Mode != ModeFixed && c.TimeScale <= 0 {
		return errors.New("stepper: time scale must be positive")
	}
	return nil
}

// StepSimulation advances the engine by elapsed render seconds under the
// given policy. In interpolated mode it also maintains the world's
// sim-to-render accumulator and snapshots interpolation start poses just
// before the step that crosses render time.
func (w *World) StepSimulation(cfg StepConfig, elapsed float64) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	switch cfg.Mode {
	case ModeFixed:
		w.substep(cfg.Dt/float64(cfg.Substeps), cfg.Substeps)
	case ModeVariable:
		dt := math.Min(elapsed*cfg.TimeScale, cfg.MaxDt)
		if dt > 0 {
			w.substep(dt/float64(cfg.Substeps), cfg.Substeps)
		}
	case ModeInterpolated:
		w.SimToRenderTime += elapsed
		for w.SimToRenderTime > 0 {
			if w.SimToRenderTime-cfg.Dt <= 0 {
				// Last step before catching up to render time: everything
				// after it is blended between this pose and the next.
				w.snapshotInterpolationStarts()
			}
			w.substep(cfg.Dt/float64(cfg.Substeps)*cfg.TimeScale, cfg.Substeps)
			w.SimToRenderTime -= cfg.Dt
		}
	}
	return nil
}

func (w *World) substep(dt float64, n int) {
	for range n {
		w.Space.Step(dt)
	}
}

func (w *World) snapshotInterpolationStarts() {
	for h, buf := range w.interp {
		rb, ok := w.bodies.get(Handle(h))
		if !ok {
			continue
		}
		start := Pose{Position: rb.Body.Position(), Angle: rb.Body.Angle()}
		buf.Start = &start
		buf.End = nil
	}
}
