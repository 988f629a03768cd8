package scene

// Entity identifies one scene object. The generation counter protects
// against stale references: despawning bumps the slot's generation, so a
// held Entity from before the despawn never resolves again.
type Entity struct {
	Index      uint32
	Generation uint32
}

// NoEntity is the zero Entity. It never refers to a live object because
// live generations start at 1.
var NoEntity = Entity{}

type meta struct {
	generation uint32
	alive      bool
	parent     Entity
	children   []Entity
	comps      components
}

// Registry is the scene-graph host: entities, parent/child links and the
// authored components the physics sync layer reads and writes. It also
// tracks which components changed since the sync layer last observed them.
type Registry struct {
	metas []meta
	free  []uint32
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Spawn creates a root entity with default components.
func (r *Registry) Spawn() Entity {
	var idx uint32
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		r.metas = append(r.metas, meta{})
		idx = uint32(len(r.metas) - 1)
	}
	m := &r.metas[idx]
	m.generation++
	m.alive = true
	m.parent = NoEntity
	m.children = nil
	m.comps = defaultComponents()
	return Entity{Index: idx, Generation: m.generation}
}

// SpawnChild creates an entity parented to the given entity.
func (r *Registry) SpawnChild(parent Entity) Entity {
	e := r.Spawn()
	r.SetParent(e, parent)
	return e
}

// Despawn removes the entity. Its children are detached and become roots;
// callers that want a full subtree gone despawn it leaf-first.
func (r *Registry) Despawn(e Entity) {
	m := r.lookup(e)
	if m == nil {
		return
	}
	if p := r.lookup(m.parent); p != nil {
		p.children = removeChild(p.children, e)
	}
	for _, c := range m.children {
		if cm := r.lookup(c); cm != nil {
			cm.parent = NoEntity
		}
	}
	m.alive = false
	m.children = nil
	r.free = append(r.free, e.Index)
}

// Alive reports whether the entity still refers to a live object.
func (r *Registry) Alive(e Entity) bool {
	return r.lookup(e) != nil
}

// SetParent reparents child under parent. Passing NoEntity detaches it.
func (r *Registry) SetParent(child, parent Entity) {
	cm := r.lookup(child)
	if cm == nil {
		return
	}
	if old := r.lookup(cm.parent); old != nil {
		old.children = removeChild(old.children, child)
	}
	cm.parent = NoEntity
	if pm := r.lookup(parent); pm != nil {
		cm.parent = parent
		pm.children = append(pm.children, child)
	}
}

// Parent returns the entity's parent, if it has one.
func (r *Registry) Parent(e Entity) (Entity, bool) {
	m := r.lookup(e)
	if m == nil || m.parent == NoEntity {
		return NoEntity, false
	}
	return m.parent, true
}

// Children returns the entity's direct children. The returned slice is
// owned by the registry and must not be mutated.
func (r *Registry) Children(e Entity) []Entity {
	m := r.lookup(e)
	if m == nil {
		return nil
	}
	return m.children
}

// Each calls f for every live entity, in slot order.
func (r *Registry) Each(f func(Entity)) {
	for i := range r.metas {
		if r.metas[i].alive {
			f(Entity{Index: uint32(i), Generation: r.metas[i].generation})
		}
	}
}

// Roots calls f for every live entity without a parent.
func (r *Registry) Roots(f func(Entity)) {
	for i := range r.metas {
		if r.metas[i].alive && r.metas[i].parent == NoEntity {
			f(Entity{Index: uint32(i), Generation: r.metas[i].generation})
		}
	}
}

func (r *Registry) lookup(e Entity) *meta {
	if int(e.Index) >= len(r.metas) {
		return nil
	}
	m := &r.metas[e.Index]
	if !m.alive || m.generation != e.Generation {
		return nil
	}
	return m
}

func removeChild(children []Entity, e Entity) []Entity {
	for i, c := range children {
		if c == e {
			return append(children[:i], children[i+1:]...)
		}
	}
	return children
}
