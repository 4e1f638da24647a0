package trace

import "time"

// Session hands out span ids for one user of a tracer, usually a link
// session. Ids are unique within the session only. A Session is not safe for
// concurrent use.
type Session struct {
	tracer Tracer
	lastID uint64
}

// NewSession binds a session to t. A nil t traces nothing.
func NewSession(t Tracer) *Session {
	if t == nil {
		t = Nop
	}
	return &Session{tracer: t}
}

// Tracer returns the tracer events go to.
func (s *Session) Tracer() Tracer { return s.tracer }

// Enabled reports whether any event can be emitted.
func (s *Session) Enabled() bool { return s.tracer.Enabled() }

// Begin starts a span under parent (0 for a root span). Spans whose scope
// the level filters out are no-ops and have id 0.
func (s *Session) Begin(scope Scope, name string, parent uint64) *Span {
	if !s.tracer.Enabled() || !s.tracer.Level().ShouldEmit(scope) {
		return &Span{tracer: Nop}
	}
	s.lastID++
	span := &Span{
		tracer:   s.tracer,
		id:       s.lastID,
		parentID: parent,
		scope:    scope,
		name:     name,
		started:  time.Now(),
	}
	s.tracer.Emit(span.event(KindSpanBegin, span.started, ""))
	return span
}

// Point emits an instant event under parent.
func (s *Session) Point(scope Scope, name, detail string, parent uint64) {
	if !s.tracer.Enabled() || !s.tracer.Level().ShouldEmit(scope) {
		return
	}
	s.tracer.Emit(&Event{
		Time:     time.Now(),
		Kind:     KindPoint,
		Scope:    scope,
		ParentID: parent,
		Name:     name,
		Detail:   detail,
	})
}

// Span tracks one begin/end pair.
type Span struct {
	tracer   Tracer
	id       uint64
	parentID uint64
	scope    Scope
	name     string
	started  time.Time
	extra    map[string]string
}

func (s *Span) event(kind Kind, at time.Time, detail string) *Event {
	return &Event{
		Time:     at,
		Kind:     kind,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parentID,
		Name:     s.name,
		Detail:   detail,
		Extra:    s.extra,
	}
}

// End emits the end event and returns the span duration.
func (s *Span) End(detail string) time.Duration {
	if s == nil || s.id == 0 {
		return 0
	}
	now := time.Now()
	s.tracer.Emit(s.event(KindSpanEnd, now, detail))
	return now.Sub(s.started)
}

// WithExtra attaches key=value to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if s == nil || s.id == 0 {
		return s
	}
	if s.extra == nil {
		s.extra = make(map[string]string)
	}
	s.extra[key] = value
	return s
}

// ID returns the span id, 0 for a filtered span.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}
