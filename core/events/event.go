package events

import "swapvault/core/types"

// Typed is an event that can report its type and render the canonical
// attribute payload.
type Typed interface {
	EventType() string
	Event() *types.Event
}

// Emitter receives events produced during state transitions. Implementations
// must not assume the transition committed until the caller says so; the
// node only forwards events after a successful commit.
type Emitter interface {
	Emit(Typed)
}

// NoopEmitter drops every event. It is the default wired into engines so
// emission is always safe to call.
type NoopEmitter struct{}

func (NoopEmitter) Emit(Typed) {}

// Recorder buffers emitted events in order. Used by the node to collect the
// events of one operation and by tests to assert on them.
type Recorder struct {
	events []*types.Event
}

func (r *Recorder) Emit(evt Typed) {
	if evt == nil {
		return
	}
	if e := evt.Event(); e != nil {
		r.events = append(r.events, e)
	}
}

// Events returns the recorded events in emission order.
func (r *Recorder) Events() []*types.Event {
	out := make([]*types.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Reset clears the buffer.
func (r *Recorder) Reset() {
	r.events = nil
}
