package scene

import (
	"math"

	"github.com/setanarut/v"
)

// Transform is an authored scene transform. The simulation is planar:
// Translation and Rotation (radians, about the out-of-plane axis) are what
// the physics engine models, Z is a scene-only coordinate carried along
// untouched by the simulation.
type Transform struct {
	Translation v.Vec
	Z           float64
	Rotation    float64
}

// Mul composes two rigid transforms (self * other), treating Z additively.
func (t Transform) Mul(o Transform) Transform {
	return Transform{
		Translation: t.Translation.Add(Rotate(o.Translation, t.Rotation)),
		Z:           t.Z + o.Z,
		Rotation:    t.Rotation + o.Rotation,
	}
}

// Rotate rotates a vector by angle radians.
func Rotate(p v.Vec, angle float64) v.Vec {
	sin, cos := math.Sincos(angle)
	return v.Vec{X: p.X*cos - p.Y*sin, Y: p.X*sin + p.Y*cos}
}

// Velocity is an authored or written-back rigid-body velocity.
type Velocity struct {
	Linear  v.Vec
	Angular float64
}

// BodyKind mirrors the engine's body types.
type BodyKind int

const (
	BodyDynamic BodyKind = iota
	BodyKinematic
	BodyFixed
)

// Damping drains velocity over time, expressed as the fraction of velocity
// lost per second on top of the world-level damping.
type Damping struct {
	Linear  float64 `yaml:"linear"`
	Angular float64 `yaml:"angular"`
}

// Body describes the rigid body to create for an entity.
type Body struct {
	Kind           BodyKind
	GravityScale   float64
	Damping        Damping
	LockRotation   bool
	Ccd            bool
	AdditionalMass float64
	Sleeping       bool
	Interpolated   bool
}

// DefaultBody returns a dynamic body with neutral overrides.
func DefaultBody() Body {
	return Body{Kind: BodyDynamic, GravityScale: 1}
}

// ShapeKind selects the collider geometry.
type ShapeKind int

const (
	ShapeCircle ShapeKind = iota
	ShapeBox
	ShapeSegment
)

// CollisionGroups is the collision filter attached to a collider. Two
// colliders interact when neither rejects the other: same non-zero Group
// disables the pair, and each side's Categories must intersect the other's
// Mask.
type CollisionGroups struct {
	Group      uint
	Categories uint
	Mask       uint
}

// DefaultGroups collides with everything.
func DefaultGroups() CollisionGroups {
	return CollisionGroups{Categories: ^uint(0), Mask: ^uint(0)}
}

// Collider describes the collider to attach to an entity's body.
type Collider struct {
	Shape       ShapeKind
	Radius      float64 // circle radius, box/segment corner radius
	HalfExtents v.Vec   // box half width/height
	A, B        v.Vec   // segment endpoints, body-local
	Offset      v.Vec   // circle center, body-local

	Density     float64
	Friction    float64
	Restitution float64
	Sensor      bool
	Groups      CollisionGroups

	// ActiveEvents requests collision start/stop events for this collider.
	ActiveEvents bool
	// ContactForceThreshold emits a contact-force event when the total
	// contact impulse magnitude divided by dt exceeds it. Zero disables.
	ContactForceThreshold float64
}

// DefaultCollider returns a unit circle with common material values.
func DefaultCollider() Collider {
	return Collider{
		Shape:    ShapeCircle,
		Radius:   0.5,
		Density:  1,
		Friction: 0.5,
		Groups:   DefaultGroups(),
	}
}

// JointKind selects the constraint created for a Joint descriptor.
type JointKind int

const (
	JointPin JointKind = iota
	JointPivot
	JointSlide
)

// Joint connects the entity's body to Other's body.
type Joint struct {
	Kind             JointKind
	Other            Entity
	AnchorSelf       v.Vec
	AnchorOther      v.Vec
	Min, Max         float64 // slide limits
	MaxForce         float64 // 0 means unbounded
	// Multibody joints are hard kinematic links; inserting one that would
	// close a loop of multibody joints is rejected.
	Multibody bool
}

// ExternalForce is a persistent force/torque applied every step until
// changed.
type ExternalForce struct {
	Force  v.Vec
	Torque float64
}

// ExternalImpulse is a one-shot impulse, cleared once applied.
type ExternalImpulse struct {
	Impulse       v.Vec
	TorqueImpulse float64
}

// MassProperties is written back from the engine after collider changes.
type MassProperties struct {
	Mass            float64
	CenterOfGravity v.Vec
}

// Changed is a bitmask of components modified since the sync layer last
// cleared them.
type Changed uint16

const (
	ChangedTransform Changed = 1 << iota
	ChangedVelocity
	ChangedBody
	ChangedCollider
	ChangedForce
	ChangedImpulse
	ChangedSleeping
	ChangedDisabled
)

type components struct {
	transform Transform
	velocity  Velocity
	body      *Body
	collider  *Collider
	joint     *Joint
	force     ExternalForce
	impulse   ExternalImpulse
	massProps MassProperties
	sleeping  bool
	disabled  bool
	world     int
	colliding map[Entity]struct{}
	changed   Changed
}

func defaultComponents() components {
	return components{}
}

func (r *Registry) Transform(e Entity) (Transform, bool) {
	if m := r.lookup(e); m != nil {
		return m.comps.transform, true
	}
	return Transform{}, false
}

func (r *Registry) SetTransform(e Entity, t Transform) {
	if m := r.lookup(e); m != nil {
		m.comps.transform = t
		m.comps.changed |= ChangedTransform
	}
}

func (r *Registry) Velocity(e Entity) (Velocity, bool) {
	if m := r.lookup(e); m != nil {
		return m.comps.velocity, true
	}
	return Velocity{}, false
}

func (r *Registry) SetVelocity(e Entity, vel Velocity) {
	if m := r.lookup(e); m != nil {
		m.comps.velocity = vel
		m.comps.changed |= ChangedVelocity
	}
}

func (r *Registry) Body(e Entity) (Body, bool) {
	if m := r.lookup(e); m != nil && m.comps.body != nil {
		return *m.comps.body, true
	}
	return Body{}, false
}

func (r *Registry) SetBody(e Entity, b Body) {
	if m := r.lookup(e); m != nil {
		m.comps.body = &b
		m.comps.changed |= ChangedBody
	}
}

func (r *Registry) RemoveBody(e Entity) {
	if m := r.lookup(e); m != nil {
		m.comps.body = nil
	}
}

func (r *Registry) Collider(e Entity) (Collider, bool) {
	if m := r.lookup(e); m != nil && m.comps.collider != nil {
		return *m.comps.collider, true
	}
	return Collider{}, false
}

func (r *Registry) SetCollider(e Entity, c Collider) {
	if m := r.lookup(e); m != nil {
		m.comps.collider = &c
		m.comps.changed |= ChangedCollider
	}
}

func (r *Registry) RemoveCollider(e Entity) {
	if m := r.lookup(e); m != nil {
		m.comps.collider = nil
	}
}

func (r *Registry) Joint(e Entity) (Joint, bool) {
	if m := r.lookup(e); m != nil && m.comps.joint != nil {
		return *m.comps.joint, true
	}
	return Joint{}, false
}

func (r *Registry) SetJoint(e Entity, j Joint) {
	if m := r.lookup(e); m != nil {
		m.comps.joint = &j
	}
}

func (r *Registry) RemoveJoint(e Entity) {
	if m := r.lookup(e); m != nil {
		m.comps.joint = nil
	}
}

func (r *Registry) Force(e Entity) (ExternalForce, bool) {
	if m := r.lookup(e); m != nil {
		return m.comps.force, true
	}
	return ExternalForce{}, false
}

func (r *Registry) SetForce(e Entity, f ExternalForce) {
	if m := r.lookup(e); m != nil {
		m.comps.force = f
		m.comps.changed |= ChangedForce
	}
}

func (r *Registry) Impulse(e Entity) (ExternalImpulse, bool) {
	if m := r.lookup(e); m != nil {
		return m.comps.impulse, true
	}
	return ExternalImpulse{}, false
}

func (r *Registry) SetImpulse(e Entity, imp ExternalImpulse) {
	if m := r.lookup(e); m != nil {
		m.comps.impulse = imp
		m.comps.changed |= ChangedImpulse
	}
}

// ResetImpulse clears a consumed impulse without marking a change.
func (r *Registry) ResetImpulse(e Entity) {
	if m := r.lookup(e); m != nil {
		m.comps.impulse = ExternalImpulse{}
	}
}

func (r *Registry) MassProperties(e Entity) (MassProperties, bool) {
	if m := r.lookup(e); m != nil {
		return m.comps.massProps, true
	}
	return MassProperties{}, false
}

func (r *Registry) SetMassProperties(e Entity, mp MassProperties) {
	if m := r.lookup(e); m != nil {
		m.comps.massProps = mp
	}
}

func (r *Registry) Sleeping(e Entity) bool {
	if m := r.lookup(e); m != nil {
		return m.comps.sleeping
	}
	return false
}

func (r *Registry) SetSleeping(e Entity, sleeping bool) {
	if m := r.lookup(e); m != nil {
		m.comps.sleeping = sleeping
		m.comps.changed |= ChangedSleeping
	}
}

func (r *Registry) Disabled(e Entity) bool {
	if m := r.lookup(e); m != nil {
		return m.comps.disabled
	}
	return false
}

func (r *Registry) SetDisabled(e Entity, disabled bool) {
	if m := r.lookup(e); m != nil {
		m.comps.disabled = disabled
		m.comps.changed |= ChangedDisabled
	}
}

// WorldTag is the id of the world the entity simulates in. Defaults to 0.
func (r *Registry) WorldTag(e Entity) int {
	if m := r.lookup(e); m != nil {
		return m.comps.world
	}
	return 0
}

func (r *Registry) SetWorldTag(e Entity, world int) {
	if m := r.lookup(e); m != nil {
		m.comps.world = world
	}
}

// Colliding returns the entities currently in contact with e, maintained
// from collision start/stop events.
func (r *Registry) Colliding(e Entity) []Entity {
	m := r.lookup(e)
	if m == nil || len(m.comps.colliding) == 0 {
		return nil
	}
	out := make([]Entity, 0, len(m.comps.colliding))
	for other := range m.comps.colliding {
		out = append(out, other)
	}
	return out
}

func (r *Registry) AddColliding(e, other Entity) {
	if m := r.lookup(e); m != nil {
		if m.comps.colliding == nil {
			m.comps.colliding = make(map[Entity]struct{})
		}
		m.comps.colliding[other] = struct{}{}
	}
}

func (r *Registry) RemoveColliding(e, other Entity) {
	if m := r.lookup(e); m != nil {
		delete(m.comps.colliding, other)
	}
}

// Writeback setters mirror simulation results into the scene without
// marking a change, so the next sync does not mistake its own output for an
// authored edit.

func (r *Registry) WritebackTransform(e Entity, t Transform) {
	if m := r.lookup(e); m != nil {
		m.comps.transform = t
	}
}

func (r *Registry) WritebackVelocity(e Entity, vel Velocity) {
	if m := r.lookup(e); m != nil {
		m.comps.velocity = vel
	}
}

func (r *Registry) WritebackSleeping(e Entity, sleeping bool) {
	if m := r.lookup(e); m != nil {
		m.comps.sleeping = sleeping
	}
}

// ChangedMask reports which components changed since the last clear.
func (r *Registry) ChangedMask(e Entity) Changed {
	if m := r.lookup(e); m != nil {
		return m.comps.changed
	}
	return 0
}

// ClearChanged acknowledges observed changes.
func (r *Registry) ClearChanged(e Entity, mask Changed) {
	if m := r.lookup(e); m != nil {
		m.comps.changed &^= mask
	}
}
