// Package ui renders per-library progress of long CLI commands in a
// terminal.
package ui

// Stage is the step a library is in.
type Stage uint8

const (
	StageHeader Stage = iota + 1
	StageLink
	StageCache
)

// Status is the state of a library within its stage.
type Status uint8

const (
	StatusQueued Status = iota + 1
	StatusWorking
	StatusDone
	StatusError
)

// Event reports progress of one library. An empty Library reports a
// session-wide stage.
type Event struct {
	Library string
	Stage   Stage
	Status  Status
	Err     error
}

// Sink receives progress events.
type Sink interface {
	Emit(Event)
}

// NopSink drops every event.
type NopSink struct{}

func (NopSink) Emit(Event) {}

// ChannelSink forwards events to Ch.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) Emit(ev Event) {
	if s.Ch != nil {
		s.Ch <- ev
	}
}
