package trace

import "time"

// Kind represents the type of trace event.
type Kind uint8

const (
	// KindSpanBegin marks the start of a logical operation.
	KindSpanBegin Kind = iota + 1
	// KindSpanEnd marks the end of a logical operation.
	KindSpanEnd
	// KindPoint represents an instant event.
	KindPoint
	KindHeartbeat // periodic liveness signal
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	case KindHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// Scope indicates the granularity of an event. Lower values are coarser.
type Scope uint8

const (
	ScopeSession Scope = iota + 1 // whole link session, CLI phases
	ScopeModule                   // one module deserializer
	ScopeFile                     // one library file
	ScopeSymbol                   // single symbol resolution
)

// String returns the string representation of Scope.
func (s Scope) String() string {
	switch s {
	case ScopeSession:
		return "session"
	case ScopeModule:
		return "module"
	case ScopeFile:
		return "file"
	case ScopeSymbol:
		return "symbol"
	default:
		return "unknown"
	}
}

// Event represents a single trace event.
type Event struct {
	Time     time.Time         // wall-clock timestamp
	Seq      uint64            // stamped by the tracer that stores the event
	Kind     Kind              // event kind
	Scope    Scope             // granularity level
	SpanID   uint64            // span id, unique within a Session
	ParentID uint64            // parent span (0 if root)
	Name     string            // e.g. "link", "module:stdlib", "reconstruct"
	Detail   string            // optional detail message
	Extra    map[string]string // extensible key-value pairs
}
