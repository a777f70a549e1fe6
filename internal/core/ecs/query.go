package ecs

// Each2 visits entities that have both component A and B, in A's insertion
// order.
func Each2[A, B any](sa *PtrComponentStore[A], sb *PtrComponentStore[B], fn func(EntityID, *A, *B)) {
	sa.Each(func(id EntityID, a *A) {
		if b, ok := sb.data[id]; ok {
			fn(id, a, b)
		}
	})
}
