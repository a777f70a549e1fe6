package tag

// Pool is the multiset of tags owned by an entity. Every Append of a tag must
// be balanced by a Remove before the tag disappears; counts never go negative.
type Pool struct {
	counts map[Tag]int
}

func NewPool() *Pool {
	return &Pool{counts: make(map[Tag]int, 16)}
}

// Append adds one reference for each tag in c.
func (p *Pool) Append(c Container) {
	for _, t := range c {
		if !t.IsValid() {
			continue
		}
		p.counts[t]++
	}
}

// Remove drops one reference for each tag in c. Absent tags are ignored.
func (p *Pool) Remove(c Container) {
	for _, t := range c {
		n, ok := p.counts[t]
		if !ok {
			continue
		}
		if n <= 1 {
			delete(p.counts, t)
			continue
		}
		p.counts[t] = n - 1
	}
}

// HasTag reports whether any owned tag matches t.
func (p *Pool) HasTag(t Tag) bool {
	if _, ok := p.counts[t]; ok {
		return true
	}
	for owned := range p.counts {
		if owned.Matches(t) {
			return true
		}
	}
	return false
}

// HasAny reports whether any owned tag matches any tag in query.
func (p *Pool) HasAny(query Container) bool {
	for _, q := range query {
		if p.HasTag(q) {
			return true
		}
	}
	return false
}

func (p *Pool) IsEmpty() bool { return len(p.counts) == 0 }

// Count returns the reference count of exactly t.
func (p *Pool) Count(t Tag) int { return p.counts[t] }

// Len returns the number of distinct tags.
func (p *Pool) Len() int { return len(p.counts) }

// Tags returns the distinct owned tags in sorted order.
func (p *Pool) Tags() Container {
	out := make(Container, 0, len(p.counts))
	for t := range p.counts {
		out = append(out, t)
	}
	return out.Sorted()
}
