// Package trace records per-step scalar series during headless runs so the
// CLI can plot them afterwards.
package trace

import (
	"github.com/san-kum/rigidsync/internal/scene"
	"github.com/san-kum/rigidsync/internal/world"
)

type Series struct {
	Name    string
	Samples []float64
}

// Recorder collects named series, keeping insertion order for output.
type Recorder struct {
	series map[string]*Series
	order  []string
}

func NewRecorder() *Recorder {
	return &Recorder{series: make(map[string]*Series)}
}

func (r *Recorder) Record(name string, value float64) {
	s, ok := r.series[name]
	if !ok {
		s = &Series{Name: name}
		r.series[name] = s
		r.order = append(r.order, name)
	}
	s.Samples = append(s.Samples, value)
}

func (r *Recorder) Samples(name string) []float64 {
	if s, ok := r.series[name]; ok {
		return s.Samples
	}
	return nil
}

func (r *Recorder) Names() []string {
	return r.order
}

func (r *Recorder) Reset() {
	r.series = make(map[string]*Series)
	r.order = nil
}

// KineticEnergy sums the kinetic energy of a world's dynamic bodies.
func KineticEnergy(w *world.World) float64 {
	total := 0.0
	w.EachBody(func(_ world.BodyHandle, rb world.RigidBody, _ scene.Entity) bool {
		if rb.Desc.Kind == scene.BodyDynamic {
			total += rb.Body.KineticEnergy()
		}
		return true
	})
	return total
}
