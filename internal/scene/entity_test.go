package scene

import "testing"

func TestSpawnDespawn(t *testing.T) {
	r := NewRegistry()
	e := r.Spawn()

	if !r.Alive(e) {
		t.Fatal("spawned entity should be alive")
	}
	if e.Generation == 0 {
		t.Error("live generations start at 1")
	}

	r.Despawn(e)
	if r.Alive(e) {
		t.Error("despawned entity should be dead")
	}
}

func TestStaleEntityNeverResolves(t *testing.T) {
	r := NewRegistry()
	e := r.Spawn()
	r.SetTransform(e, Transform{Z: 3})
	r.Despawn(e)

	// The slot is reused; the old handle must not see the new occupant.
	e2 := r.Spawn()
	if e2.Index != e.Index {
		t.Fatalf("expected slot reuse, got index %d vs %d", e2.Index, e.Index)
	}
	if r.Alive(e) {
		t.Error("stale entity resolved after slot reuse")
	}
	if _, ok := r.Transform(e); ok {
		t.Error("stale entity read a component")
	}
	if tr, _ := r.Transform(e2); tr.Z != 0 {
		t.Errorf("reused slot kept old components, Z = %g", tr.Z)
	}
}

func TestHierarchy(t *testing.T) {
	r := NewRegistry()
	parent := r.Spawn()
	child := r.SpawnChild(parent)

	p, ok := r.Parent(child)
	if !ok || p != parent {
		t.Fatalf("Parent(child) = %v, %v", p, ok)
	}
	if kids := r.Children(parent); len(kids) != 1 || kids[0] != child {
		t.Fatalf("Children(parent) = %v", kids)
	}

	r.SetParent(child, NoEntity)
	if _, ok := r.Parent(child); ok {
		t.Error("detached child still has a parent")
	}
	if len(r.Children(parent)) != 0 {
		t.Error("parent still lists detached child")
	}
}

func TestDespawnDetachesChildren(t *testing.T) {
	r := NewRegistry()
	parent := r.Spawn()
	child := r.SpawnChild(parent)

	r.Despawn(parent)
	if !r.Alive(child) {
		t.Fatal("child should survive parent despawn")
	}
	if _, ok := r.Parent(child); ok {
		t.Error("orphaned child still reports a parent")
	}

	roots := 0
	r.Roots(func(Entity) { roots++ })
	if roots != 1 {
		t.Errorf("expected 1 root after despawn, got %d", roots)
	}
}

func TestEachVisitsLiveOnly(t *testing.T) {
	r := NewRegistry()
	a := r.Spawn()
	b := r.Spawn()
	r.Despawn(a)

	var seen []Entity
	r.Each(func(e Entity) { seen = append(seen, e) })
	if len(seen) != 1 || seen[0] != b {
		t.Errorf("Each visited %v, want only %v", seen, b)
	}
}
