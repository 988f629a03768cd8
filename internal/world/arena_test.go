package world

import (
	"testing"

	"github.com/san-kum/rigidsync/internal/scene"
)

func TestArenaInsertGet(t *testing.T) {
	var a arena[int]
	owner := scene.Entity{Index: 7, Generation: 1}

	h := a.insert(42, owner)
	if h == NilHandle {
		t.Fatal("insert returned the nil handle")
	}
	if v, ok := a.get(h); !ok || v != 42 {
		t.Errorf("get = %d, %v", v, ok)
	}
	if e, ok := a.owner(h); !ok || e != owner {
		t.Errorf("owner = %v, %v", e, ok)
	}
	if a.len() != 1 {
		t.Errorf("len = %d", a.len())
	}
}

func TestArenaStaleHandle(t *testing.T) {
	var a arena[int]
	h := a.insert(1, scene.NoEntity)

	if v, ok := a.remove(h); !ok || v != 1 {
		t.Fatalf("remove = %d, %v", v, ok)
	}
	if _, ok := a.get(h); ok {
		t.Error("removed handle still resolves")
	}

	// Reusing the slot bumps the generation, so the old handle stays dead.
	h2 := a.insert(2, scene.NoEntity)
	if h2.Index != h.Index {
		t.Fatalf("expected slot reuse, got index %d vs %d", h2.Index, h.Index)
	}
	if h2.Generation == h.Generation {
		t.Error("reused slot kept its generation")
	}
	if _, ok := a.get(h); ok {
		t.Error("stale handle resolved after slot reuse")
	}
	if v, _ := a.get(h2); v != 2 {
		t.Errorf("new handle reads %d", v)
	}
}

func TestArenaEach(t *testing.T) {
	var a arena[string]
	a.insert("a", scene.NoEntity)
	hb := a.insert("b", scene.NoEntity)
	a.insert("c", scene.NoEntity)
	a.remove(hb)

	var seen []string
	a.each(func(_ Handle, v string, _ scene.Entity) bool {
		seen = append(seen, v)
		return true
	})
	if len(seen) != 2 || seen[0] != "a" || seen[1] != "c" {
		t.Errorf("each visited %v", seen)
	}

	// Early stop.
	n := 0
	a.each(func(Handle, string, scene.Entity) bool {
		n++
		return false
	})
	if n != 1 {
		t.Errorf("each ignored early stop, visited %d", n)
	}
}
