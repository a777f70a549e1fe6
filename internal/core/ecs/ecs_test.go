package ecs

import "testing"

func TestEntityPoolGenerations(t *testing.T) {
	p := NewEntityPool()
	a := p.Create()
	b := p.Create()
	if a == b || !p.Alive(a) || !p.Alive(b) {
		t.Fatal("fresh ids must be distinct and alive")
	}
	p.Destroy(a)
	if p.Alive(a) {
		t.Fatal("destroyed id still alive")
	}
	c := p.Create()
	if c.Index() != a.Index() || c.Generation() != a.Generation()+1 {
		t.Fatalf("reused id = %d/%d", c.Index(), c.Generation())
	}
	if p.Alive(a) || !p.Alive(c) {
		t.Fatal("stale id resurrected by reuse")
	}
	p.Destroy(a) // stale: no effect
	if !p.Alive(c) {
		t.Fatal("stale destroy killed the new entity")
	}
}

func TestStoreIteratesInInsertionOrder(t *testing.T) {
	s := NewPtrComponentStore[string]()
	names := []string{"a", "b", "c", "d"}
	for i := range names {
		s.Set(EntityID(i+1), &names[i])
	}
	s.Set(EntityID(2), &names[3]) // replace keeps position

	var seen []EntityID
	s.Each(func(id EntityID, _ *string) {
		seen = append(seen, id)
		if id == 1 {
			s.Remove(3)
		}
	})
	if len(seen) != 3 || seen[0] != 1 || seen[1] != 2 || seen[2] != 4 {
		t.Fatalf("visited %v", seen)
	}
	if v, _ := s.Get(2); *v != "d" {
		t.Fatalf("replaced value = %q", *v)
	}
}

func TestEach2(t *testing.T) {
	sa := NewPtrComponentStore[int]()
	sb := NewPtrComponentStore[string]()
	x, y := 1, "y"
	sa.Set(1, &x)
	sa.Set(2, &x)
	sb.Set(2, &y)
	n := 0
	Each2(sa, sb, func(id EntityID, _ *int, _ *string) {
		if id != 2 {
			t.Fatalf("unexpected entity %d", id)
		}
		n++
	})
	if n != 1 {
		t.Fatalf("visits = %d", n)
	}
}

func TestWorldFlushDestroyQueue(t *testing.T) {
	w := NewWorld()
	store := NewPtrComponentStore[int]()
	if !w.Registry().Register(store) || w.Registry().Register(store) {
		t.Fatal("duplicate store registration accepted")
	}
	if w.Registry().Len() != 1 {
		t.Fatalf("stores = %d", w.Registry().Len())
	}

	v := 7
	id := w.CreateEntity()
	store.Set(id, &v)
	var hooked []EntityID
	w.OnDestroy(func(e EntityID) { hooked = append(hooked, e) })

	w.MarkForDestruction(id)
	w.MarkForDestruction(id)
	if w.Pending() != 2 {
		t.Fatalf("pending = %d", w.Pending())
	}
	if n := w.FlushDestroyQueue(); n != 1 {
		t.Fatalf("destroyed = %d, want 1", n)
	}
	if w.Alive(id) || store.Has(id) || len(hooked) != 1 {
		t.Fatal("entity not fully destroyed")
	}
	if w.Pending() != 0 {
		t.Fatal("queue not cleared")
	}
}

func TestZeroIDNeverAlive(t *testing.T) {
	p := NewEntityPool()
	id := p.Create()
	if id.IsZero() || p.Alive(0) {
		t.Fatal("zero id issued or alive")
	}
	if p.Len() != 1 {
		t.Fatalf("len = %d", p.Len())
	}
	p.Destroy(id)
	p.Destroy(id)
	if p.Len() != 0 {
		t.Fatalf("len after destroy = %d", p.Len())
	}
}
