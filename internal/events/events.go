package events

// Event is an interface that represents a render Event.
// Possible implementations are:
// - [EventCaptureStart]
// - [EventCaptureEnd]
// - [EventSource]
type Event interface {
	renderEvent()
}

// EventSource is emitted for a range of source bytes.
type EventSource struct {
	StartByte uint
	EndByte   uint
}

func (EventSource) renderEvent() {}

// EventCaptureStart is emitted when a highlighted fragment starts.
type EventCaptureStart struct {
	// Tag is the output tag of the fragment.
	Tag string
}

func (EventCaptureStart) renderEvent() {}

// EventCaptureEnd is emitted when a highlighted fragment ends.
type EventCaptureEnd struct {
	// Tag is the output tag of the fragment.
	Tag string
}

func (EventCaptureEnd) renderEvent() {}

// Span is a normalized span that already carries its output tag.
type Span struct {
	Start uint
	End   uint
	Tag   string
}
