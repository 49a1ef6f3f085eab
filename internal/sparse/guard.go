package sparse

import (
	"log/slog"
)

// Event describes one failed native call.
type Event struct {
	Call   string
	Status Status
	// Raised is false when the failure came through Guard.Log.
	Raised bool
}

// Sink receives diagnostics for failed calls. Implementations must not panic.
type Sink interface {
	Report(ev Event)
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Report(Event) {}

// LogSink writes events through slog.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Report(ev Event) {
	l := s.Logger
	if l == nil {
		l = slog.Default()
	}
	l.Error("cusparse call failed",
		"call", ev.Call,
		"code", int32(ev.Status),
		"status", ev.Status.String(),
		"raised", ev.Raised,
	)
}

// Guard runs native calls and turns failing statuses into errors.
// The zero value is ready to use and reports nowhere.
type Guard struct {
	Sink Sink
}

// NewGuard returns a guard reporting to sink; nil means NopSink.
func NewGuard(sink Sink) *Guard {
	if sink == nil {
		sink = NopSink{}
	}
	return &Guard{Sink: sink}
}

func (g *Guard) sink() Sink {
	if g == nil || g.Sink == nil {
		return NopSink{}
	}
	return g.Sink
}

// Check invokes fn exactly once. A non-success status becomes an *Error
// carrying call and the status; nothing is retried.
func (g *Guard) Check(call string, fn func() Status) error {
	st := fn()
	if st.OK() {
		return nil
	}
	g.sink().Report(Event{Call: call, Status: st, Raised: true})
	return newError(call, st, nil)
}

// Log invokes fn exactly once and reports a failure to the sink without
// producing an error. The raw status is returned.
func (g *Guard) Log(call string, fn func() Status) Status {
	st := fn()
	if !st.OK() {
		g.sink().Report(Event{Call: call, Status: st})
	}
	return st
}

var defaultGuard = &Guard{}

// Check runs fn through a guard with no sink.
func Check(call string, fn func() Status) error {
	return defaultGuard.Check(call, fn)
}
