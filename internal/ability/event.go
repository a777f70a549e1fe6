package ability

import "github.com/stridepath/server/internal/core/tag"

// EventKind classifies a state change reported to the observer.
type EventKind uint8

const (
	EventAdded EventKind = iota
	EventRemoved
	EventActivated
	EventDisabled
	EventSlideChanged
)

var eventKindNames = [...]string{
	EventAdded:        "added",
	EventRemoved:      "removed",
	EventActivated:    "activated",
	EventDisabled:     "disabled",
	EventSlideChanged: "slide_changed",
}

func (k EventKind) String() string {
	if int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return "unknown"
}

// Event is a completed state change. Reason and Cause are set for
// EventDisabled, From and To for EventSlideChanged.
type Event struct {
	Kind       EventKind
	Key        string
	Class      string
	Instigator string
	Reason     DisableReason
	Cause      tag.Tag
	From, To   tag.Tag
}

func (s *System) emit(ev Event) {
	if s.observer != nil {
		s.observer(ev)
	}
}
