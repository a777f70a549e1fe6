package tag

import (
	"sort"
	"strings"
)

// Tag is a dotted hierarchical label such as "Ability.Crouch.Start".
// The zero value is the root tag, used for "no slide" / base state.
type Tag string

// Root is the empty tag.
const Root Tag = ""

func (t Tag) IsValid() bool  { return t != Root }
func (t Tag) String() string { return string(t) }

// Matches reports whether t equals other or is one of its descendants,
// so "Ability.Crouch.Start" matches "Ability.Crouch" but not the reverse.
func (t Tag) Matches(other Tag) bool {
	if !t.IsValid() || !other.IsValid() {
		return false
	}
	if t == other {
		return true
	}
	return strings.HasPrefix(string(t), string(other)+".")
}

// Parent returns the direct parent, or Root for a single-segment tag.
func (t Tag) Parent() Tag {
	i := strings.LastIndexByte(string(t), '.')
	if i < 0 {
		return Root
	}
	return t[:i]
}

// Container is a duplicate-free list of tags.
type Container []Tag

// New builds a container from names, skipping empty and duplicate entries.
func New(names ...string) Container {
	c := make(Container, 0, len(names))
	for _, n := range names {
		c = c.With(Tag(n))
	}
	return c
}

// With returns c with t appended if not already present.
func (c Container) With(t Tag) Container {
	if !t.IsValid() || c.HasExact(t) {
		return c
	}
	return append(c, t)
}

func (c Container) IsEmpty() bool { return len(c) == 0 }

// HasExact reports whether t is present without hierarchy expansion.
func (c Container) HasExact(t Tag) bool {
	for _, x := range c {
		if x == t {
			return true
		}
	}
	return false
}

// HasTag reports whether any tag in c matches t.
func (c Container) HasTag(t Tag) bool {
	for _, x := range c {
		if x.Matches(t) {
			return true
		}
	}
	return false
}

// HasAny reports whether any tag in c matches any tag in query.
// An empty query never matches.
func (c Container) HasAny(query Container) bool {
	for _, q := range query {
		if c.HasTag(q) {
			return true
		}
	}
	return false
}

// Sorted returns a sorted copy, for stable output.
func (c Container) Sorted() Container {
	out := make(Container, len(c))
	copy(out, c)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (c Container) String() string {
	parts := make([]string, len(c))
	for i, t := range c {
		parts[i] = string(t)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
