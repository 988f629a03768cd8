// Package query answers geometric questions against a world's colliders,
// translating engine shapes back to scene entities. Every operation takes
// a world id and fails with WorldNotFoundError for ids that do not resolve.
package query

import (
	"github.com/setanarut/cm"
	"github.com/setanarut/v"

	"github.com/san-kum/rigidsync/internal/scene"
	"github.com/san-kum/rigidsync/internal/world"
)

// Facade runs queries against the worlds of one registry.
type Facade struct {
	Worlds *world.Registry
}

func New(worlds *world.Registry) *Facade {
	return &Facade{Worlds: worlds}
}

// Filter narrows which colliders a query may report. The zero value
// accepts everything.
type Filter struct {
	// Groups restricts hits to colliders whose filter is compatible.
	Groups *scene.CollisionGroups
	// ExcludeCollider skips one collider entity.
	ExcludeCollider scene.Entity
	// ExcludeBody skips every collider attached to this entity's body.
	ExcludeBody scene.Entity
	// Predicate, when set, must return true for the collider's entity.
	Predicate func(scene.Entity) bool
}

func (f Filter) shapeFilter() cm.ShapeFilter {
	if f.Groups == nil {
		return cm.ShapeFilterAll
	}
	return cm.ShapeFilter{
		Group:      f.Groups.Group,
		Categories: f.Groups.Categories,
		Mask:       f.Groups.Mask,
	}
}

// resolved precomputes the entity-level parts of a Filter against one
// world so per-shape checks stay cheap.
type resolved struct {
	filter       Filter
	w            *world.World
	excludedBody *cm.Body
}

func (f Filter) resolve(w *world.World) resolved {
	r := resolved{filter: f, w: w}
	if f.ExcludeBody != scene.NoEntity {
		if h, ok := w.BodyHandleOf(f.ExcludeBody); ok {
			if rb, live := w.RigidBody(h); live {
				r.excludedBody = rb.Body
			}
		}
	}
	return r
}

// admit maps a shape to its entity and applies the entity-level filter.
func (r resolved) admit(shape *cm.Shape) (scene.Entity, bool) {
	if r.excludedBody != nil && shape.Body == r.excludedBody {
		return scene.NoEntity, false
	}
	ch, ok := colliderHandle(shape)
	if !ok {
		return scene.NoEntity, false
	}
	e, ok := r.w.ColliderEntity(ch)
	if !ok {
		return scene.NoEntity, false
	}
	if r.filter.ExcludeCollider != scene.NoEntity && e == r.filter.ExcludeCollider {
		return scene.NoEntity, false
	}
	if r.filter.Predicate != nil && !r.filter.Predicate(e) {
		return scene.NoEntity, false
	}
	return e, true
}

// RayHit is one ray intersection. Toi is the distance along the ray
// direction; the hit point is origin + dir*Toi.
type RayHit struct {
	Entity scene.Entity
	Toi    float64
	Point  v.Vec
	Normal v.Vec
}

// CastRay returns the closest hit along origin + dir*t for t in
// [0, maxToi]. Shapes are hollow: a ray starting inside a collider hits its
// boundary from within. With solid set, such a ray instead reports the
// containing collider at t = 0.
func (f *Facade) CastRay(id world.ID, origin, dir v.Vec, maxToi float64, solid bool, filter Filter) (RayHit, bool, error) {
	w, err := f.Worlds.World(id)
	if err != nil {
		return RayHit{}, false, err
	}
	r := filter.resolve(w)

	if solid {
		if hit, ok := f.solidOriginHit(w, r, origin, filter); ok {
			return hit, true, nil
		}
	}

	end := origin.Add(dir.Scale(maxToi))
	best := RayHit{Toi: maxToi + 1}
	found := false
	w.Space.SegmentQuery(origin, end, 0, filter.shapeFilter(), func(shape *cm.Shape, point, normal v.Vec, alpha float64, _ any) {
		e, ok := r.admit(shape)
		if !ok {
			return
		}
		toi := alpha * maxToi
		if toi < best.Toi {
			best = RayHit{Entity: e, Toi: toi, Point: point, Normal: normal}
			found = true
		}
	}, nil)
	if !found {
		return RayHit{}, false, nil
	}
	return best, true, nil
}

// solidOriginHit reports a zero-toi hit when the ray origin is inside a
// collider that passes the filter.
func (f *Facade) solidOriginHit(w *world.World, r resolved, origin v.Vec, filter Filter) (RayHit, bool) {
	info := w.Space.PointQueryNearest(origin, 0, filter.shapeFilter())
	if info == nil || info.Shape == nil || info.Distance > 0 {
		return RayHit{}, false
	}
	e, ok := r.admit(info.Shape)
	if !ok {
		return RayHit{}, false
	}
	return RayHit{Entity: e, Toi: 0, Point: origin}, true
}

// CastRayAndGetNormal is CastRay; the surface normal is always filled in
// for non-interior hits. Kept as its own name for call-site clarity.
func (f *Facade) CastRayAndGetNormal(id world.ID, origin, dir v.Vec, maxToi float64, solid bool, filter Filter) (RayHit, bool, error) {
	return f.CastRay(id, origin, dir, maxToi, solid, filter)
}

// RayIntersections reports every hit along the ray, unordered. The
// callback returns false to stop early.
func (f *Facade) RayIntersections(id world.ID, origin, dir v.Vec, maxToi float64, solid bool, filter Filter, cb func(RayHit) bool) error {
	w, err := f.Worlds.World(id)
	if err != nil {
		return err
	}
	r := filter.resolve(w)

	if solid {
		if hit, ok := f.solidOriginHit(w, r, origin, filter); ok {
			if !cb(hit) {
				return nil
			}
		}
	}

	end := origin.Add(dir.Scale(maxToi))
	stopped := false
	w.Space.SegmentQuery(origin, end, 0, filter.shapeFilter(), func(shape *cm.Shape, point, normal v.Vec, alpha float64, _ any) {
		if stopped {
			return
		}
		e, ok := r.admit(shape)
		if !ok {
			return
		}
		if !cb(RayHit{Entity: e, Toi: alpha * maxToi, Point: point, Normal: normal}) {
			stopped = true
		}
	}, nil)
	return nil
}

// IntersectionsWithShape reports every collider overlapping the given
// shape placed at pose. The callback returns false to stop early.
func (f *Facade) IntersectionsWithShape(id world.ID, desc scene.Collider, pose scene.Transform, filter Filter, cb func(scene.Entity) bool) error {
	w, err := f.Worlds.World(id)
	if err != nil {
		return err
	}
	r := filter.resolve(w)
	probe := world.DetachedShape(desc, pose)
	probe.Filter = filter.shapeFilter()

	stopped := false
	w.Space.ShapeQuery(probe, func(shape *cm.Shape, _ *cm.ContactPointSet) {
		if stopped {
			return
		}
		e, ok := r.admit(shape)
		if !ok {
			return
		}
		if !cb(e) {
			stopped = true
		}
	})
	return nil
}

// IntersectionWithShape returns an arbitrary collider overlapping the
// shape at pose, if any.
func (f *Facade) IntersectionWithShape(id world.ID, desc scene.Collider, pose scene.Transform, filter Filter) (scene.Entity, bool, error) {
	var hit scene.Entity
	found := false
	err := f.IntersectionsWithShape(id, desc, pose, filter, func(e scene.Entity) bool {
		hit = e
		found = true
		return false
	})
	return hit, found, err
}

// PointProjection is the closest point on some collider to a query point.
type PointProjection struct {
	Entity scene.Entity
	Point  v.Vec
	// IsInside is set when the query point lies inside the collider; Point
	// is then the closest boundary point.
	IsInside bool
}

// ProjectPoint finds the collider closest to point within maxDist. With
// solid set, a point inside a collider projects onto that collider with
// IsInside set.
func (f *Facade) ProjectPoint(id world.ID, point v.Vec, maxDist float64, solid bool, filter Filter) (PointProjection, bool, error) {
	w, err := f.Worlds.World(id)
	if err != nil {
		return PointProjection{}, false, err
	}
	r := filter.resolve(w)

	best := PointProjection{}
	bestDist := maxDist
	found := false
	// PointQueryNearest cannot apply the entity-level filter, so scan
	// every collider's own point query instead.
	w.EachCollider(func(_ world.ColliderHandle, shape *cm.Shape, _ scene.Entity) bool {
		if shape.Filter.Reject(filter.shapeFilter()) {
			return true
		}
		e, ok := r.admit(shape)
		if !ok {
			return true
		}
		info := shape.PointQuery(point)
		if info.Distance < 0 {
			if !solid {
				return true
			}
			best = PointProjection{Entity: e, Point: info.Point, IsInside: true}
			bestDist = info.Distance
			found = true
			return true
		}
		if info.Distance <= bestDist {
			best = PointProjection{Entity: e, Point: info.Point}
			bestDist = info.Distance
			found = true
		}
		return true
	})
	return best, found, nil
}

// PointIntersections reports every collider containing the point. The
// callback returns false to stop early.
func (f *Facade) PointIntersections(id world.ID, point v.Vec, filter Filter, cb func(scene.Entity) bool) error {
	w, err := f.Worlds.World(id)
	if err != nil {
		return err
	}
	r := filter.resolve(w)
	sf := filter.shapeFilter()

	stop := false
	w.EachCollider(func(_ world.ColliderHandle, shape *cm.Shape, _ scene.Entity) bool {
		if stop || shape.Filter.Reject(sf) {
			return !stop
		}
		e, ok := r.admit(shape)
		if !ok {
			return true
		}
		if shape.PointQuery(point).Distance <= 0 {
			if !cb(e) {
				stop = true
			}
		}
		return !stop
	})
	return nil
}

// AabbIntersections reports every collider whose bounding box overlaps the
// axis-aligned box [min, max]. The callback returns false to stop early.
func (f *Facade) AabbIntersections(id world.ID, min, max v.Vec, filter Filter, cb func(scene.Entity) bool) error {
	w, err := f.Worlds.World(id)
	if err != nil {
		return err
	}
	r := filter.resolve(w)

	stopped := false
	bb := cm.BB{L: min.X, B: min.Y, R: max.X, T: max.Y}
	w.Space.BBQuery(bb, filter.shapeFilter(), func(shape *cm.Shape, _ any) {
		if stopped {
			return
		}
		e, ok := r.admit(shape)
		if !ok {
			return
		}
		if !cb(e) {
			stopped = true
		}
	}, nil)
	return nil
}

func colliderHandle(shape *cm.Shape) (world.ColliderHandle, bool) {
	return world.TagHandle(shape)
}
