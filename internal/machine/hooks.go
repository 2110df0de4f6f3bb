package machine

import (
	"time"
)

// StateEvent is delivered to hooks around every state invocation.
type StateEvent struct {
	StateName string
	Next      string // returned state name; set on after-events only
	Seq       int64
	Time      time.Time
}

// Observer receives notifications for every state invocation.
// Notifications are best-effort: they cannot alter control flow, and a
// panicking observer is logged and skipped.
type Observer interface {
	BeforeState(ev StateEvent)
	AfterState(ev StateEvent)
}

// HookFunc is a single notification callback.
type HookFunc func(ev StateEvent)

type hooks struct {
	before    map[string][]HookFunc
	after     map[string][]HookFunc
	beforeAny []HookFunc
	afterAny  []HookFunc
	observers []Observer
}

// OnBefore registers fn to run before every invocation of the named state.
func (m *Machine) OnBefore(name string, fn HookFunc) {
	if m.hooks.before == nil {
		m.hooks.before = make(map[string][]HookFunc)
	}
	m.hooks.before[name] = append(m.hooks.before[name], fn)
}

// OnAfter registers fn to run after every invocation of the named state.
func (m *Machine) OnAfter(name string, fn HookFunc) {
	if m.hooks.after == nil {
		m.hooks.after = make(map[string][]HookFunc)
	}
	m.hooks.after[name] = append(m.hooks.after[name], fn)
}

// OnBeforeAny registers fn to run before every state invocation.
func (m *Machine) OnBeforeAny(fn HookFunc) {
	m.hooks.beforeAny = append(m.hooks.beforeAny, fn)
}

// OnAfterAny registers fn to run after every state invocation.
func (m *Machine) OnAfterAny(fn HookFunc) {
	m.hooks.afterAny = append(m.hooks.afterAny, fn)
}

// Observe attaches an observer. Observers run after the any-state hooks.
func (m *Machine) Observe(o Observer) {
	m.hooks.observers = append(m.hooks.observers, o)
}

// fireBefore notifies name-specific hooks, then any-state hooks and observers.
func (m *Machine) fireBefore(ev StateEvent) {
	for _, fn := range m.hooks.before[ev.StateName] {
		m.safeNotify("before", ev, fn)
	}
	for _, fn := range m.hooks.beforeAny {
		m.safeNotify("before", ev, fn)
	}
	for _, o := range m.hooks.observers {
		m.safeNotify("before", ev, o.BeforeState)
	}
}

// fireAfter mirrors fireBefore.
func (m *Machine) fireAfter(ev StateEvent) {
	for _, fn := range m.hooks.after[ev.StateName] {
		m.safeNotify("after", ev, fn)
	}
	for _, fn := range m.hooks.afterAny {
		m.safeNotify("after", ev, fn)
	}
	for _, o := range m.hooks.observers {
		m.safeNotify("after", ev, o.AfterState)
	}
}

func (m *Machine) safeNotify(phase string, ev StateEvent, fn func(StateEvent)) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("state hook panicked", "phase", phase, "state", ev.StateName, "seq", ev.Seq, "panic", r)
		}
	}()
	fn(ev)
}
