package world

import (
	"fmt"

	"github.com/setanarut/v"

	"github.com/san-kum/rigidsync/internal/scene"
)

// ID names one world. Ids are handed out monotonically and never reused,
// so a stale id held across a world removal can only miss, never alias.
type ID int

// DefaultWorld is the world present at startup; entities that never pick a
// world live here. Callers are expected to keep it around, but the registry
// does not enforce that.
const DefaultWorld ID = 0

// WorldNotFoundError reports an operation against a missing world. It is
// the only error kind the world lookup surface produces.
type WorldNotFoundError struct {
	ID ID
}

func (e WorldNotFoundError) Error() string {
	return fmt.Sprintf("world %d not found", e.ID)
}

// Registry holds every live world. The set is expected to stay small, so
// cross-world handle lookups are linear scans.
type Registry struct {
	worlds map[ID]*World
	order  []ID
	next   ID
}

// NewRegistry creates the registry with the default world in place.
func NewRegistry(gravity v.Vec) *Registry {
	r := &Registry{worlds: make(map[ID]*World)}
	r.worlds[DefaultWorld] = newWorld(DefaultWorld, gravity)
	r.order = append(r.order, DefaultWorld)
	r.next = DefaultWorld + 1
	return r
}

// CreateWorld adds an empty world and returns its id.
func (r *Registry) CreateWorld(gravity v.Vec) ID {
	id := r.next
	r.next++
	r.worlds[id] = newWorld(id, gravity)
	r.order = append(r.order, id)
	return id
}

// World looks up a world by id.
func (r *Registry) World(id ID) (*World, error) {
	w, ok := r.worlds[id]
	if !ok {
		return nil, WorldNotFoundError{ID: id}
	}
	return w, nil
}

// RemoveWorld drops a world and returns it. The default world is removable
// like any other; its id simply never resolves again. Entities mapped into
// the removed world are the caller's to despawn or reassign.
func (r *Registry) RemoveWorld(id ID) (*World, error) {
	w, ok := r.worlds[id]
	if !ok {
		return nil, WorldNotFoundError{ID: id}
	}
	delete(r.worlds, id)
	for i, wid := range r.order {
		if wid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return w, nil
}

// Each visits worlds in creation order.
func (r *Registry) Each(f func(*World)) {
	for _, id := range r.order {
		f(r.worlds[id])
	}
}

func (r *Registry) Len() int { return len(r.worlds) }

// BodyEntity resolves a body handle against every world.
func (r *Registry) BodyEntity(h BodyHandle) (scene.Entity, ID, bool) {
	for _, id := range r.order {
		if e, ok := r.worlds[id].BodyEntity(h); ok {
			return e, id, true
		}
	}
	return scene.NoEntity, 0, false
}

// ColliderEntity resolves a collider handle against every world, including
// colliders removed within the last step.
func (r *Registry) ColliderEntity(h ColliderHandle) (scene.Entity, ID, bool) {
	for _, id := range r.order {
		if e, ok := r.worlds[id].ColliderEntity(h); ok {
			return e, id, true
		}
	}
	return scene.NoEntity, 0, false
}

// ColliderParent resolves a collider handle to its body's entity against
// every world.
func (r *Registry) ColliderParent(h ColliderHandle) (scene.Entity, ID, bool) {
	for _, id := range r.order {
		if e, ok := r.worlds[id].ColliderParent(h); ok {
			return e, id, true
		}
	}
	return scene.NoEntity, 0, false
}
