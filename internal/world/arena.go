package world

import "github.com/san-kum/rigidsync/internal/scene"

// Handle is a generational reference to an engine object. A handle taken
// before the object's removal never resolves afterwards, even if the slot
// is reused.
type Handle struct {
	Index      uint32
	Generation uint32
}

// NilHandle never resolves.
var NilHandle = Handle{}

// Typed handles keep body/collider/joint references from being mixed up.
type (
	BodyHandle     Handle
	ColliderHandle Handle
	JointHandle    Handle
)

type slot[T any] struct {
	generation uint32
	live       bool
	value      T
	owner      scene.Entity
}

// arena is a dense generational store for engine objects, one per object
// kind per world.
type arena[T any] struct {
	slots []slot[T]
	free  []uint32
	count int
}

func (a *arena[T]) insert(value T, owner scene.Entity) Handle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot[T]{})
		idx = uint32(len(a.slots) - 1)
	}
	s := &a.slots[idx]
	s.generation++
	s.live = true
	s.value = value
	s.owner = owner
	a.count++
	return Handle{Index: idx, Generation: s.generation}
}

func (a *arena[T]) get(h Handle) (T, bool) {
	if s := a.resolve(h); s != nil {
		return s.value, true
	}
	var zero T
	return zero, false
}

func (a *arena[T]) owner(h Handle) (scene.Entity, bool) {
	if s := a.resolve(h); s != nil {
		return s.owner, true
	}
	return scene.NoEntity, false
}

func (a *arena[T]) remove(h Handle) (T, bool) {
	s := a.resolve(h)
	if s == nil {
		var zero T
		return zero, false
	}
	value := s.value
	var zero T
	s.value = zero
	s.owner = scene.NoEntity
	s.live = false
	a.free = append(a.free, h.Index)
	a.count--
	return value, true
}

// each visits live slots until f returns false.
func (a *arena[T]) each(f func(Handle, T, scene.Entity) bool) {
	for i := range a.slots {
		s := &a.slots[i]
		if !s.live {
			continue
		}
		if !f(Handle{Index: uint32(i), Generation: s.generation}, s.value, s.owner) {
			return
		}
	}
}

func (a *arena[T]) len() int { return a.count }

func (a *arena[T]) resolve(h Handle) *slot[T] {
	if int(h.Index) >= len(a.slots) {
		return nil
	}
	s := &a.slots[h.Index]
	if !s.live || s.generation != h.Generation {
		return nil
	}
	return s
}
