package ecs

// Registry holds every component store of a World so destroying an entity
// clears all of its components at once.
type Registry struct {
	stores []Removable
}

func NewRegistry() *Registry {
	return &Registry{stores: make([]Removable, 0, 4)}
}

// Register adds store. Registering the same store twice is a no-op and
// reports false.
func (r *Registry) Register(store Removable) bool {
	for _, s := range r.stores {
		if s == store {
			return false
		}
	}
	r.stores = append(r.stores, store)
	return true
}

// Len returns the number of registered stores.
func (r *Registry) Len() int { return len(r.stores) }

// RemoveAll drops id from every registered store, in registration order.
func (r *Registry) RemoveAll(id EntityID) {
	for _, s := range r.stores {
		s.Remove(id)
	}
}
