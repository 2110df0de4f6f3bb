package machine

import (
	"context"
	"log/slog"
	"time"
)

// StateFn is one unit of scanning logic. It reads and mutates the machine
// and returns the name of the next state to run, or Stop.
type StateFn func(m *Machine) string

const (
	// Stop is the terminal signal. A state function returning it ends the run.
	Stop = ""

	// InitState is the mandatory entry state.
	InitState = "init"
)

// ItemType tags captured items.
type ItemType int

// ItemError tags items appended by Errorf.
const ItemError ItemType = -1

// Item is a captured unit of scanned content.
type Item struct {
	Type  ItemType
	Value string
	Pos   int // byte offset of Value in the input
}

// Config is the configuration bag a machine is built from.
// Every field is optional at construction; Run requires all of them to validate.
type Config struct {
	Input string

	// Parser is the downstream consumer. The machine stores it and hands it
	// to state functions through Parser(); it never calls it.
	Parser any

	// ItemTypes maps item type names to discriminants. Nil means absent.
	ItemTypes map[string]ItemType

	// StateFunctions maps state names to state functions. A nil entry is an
	// explicit placeholder that is a dispatch error if ever reached.
	StateFunctions map[string]StateFn
}

// Machine is the state-function scanning engine.
//
// The run loop is single-threaded and synchronous: each state function runs
// to completion before the next name is looked up. A machine must be owned by
// one goroutine for the duration of a run.
//
// Cursor, Start, Width and Items are exported because state functions drive
// them directly; the engine itself only resets them in Startup.
type Machine struct {
	Cursor int
	Start  int
	Width  int
	Items  []Item

	cfg       Config
	input     string
	parser    any
	itemTypes map[string]ItemType
	stateFns  map[string]StateFn

	ready     bool
	running   int
	current   string
	steps     int
	rejection *Validation

	clock  *Clock
	now    func() time.Time
	hooks  hooks
	logger *slog.Logger
}

// Option configures a Machine.
type Option func(*Machine)

// WithObserver attaches an observer to every run.
func WithObserver(o Observer) Option {
	return func(m *Machine) {
		m.Observe(o)
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = l
	}
}

// WithNow sets the wall clock used to timestamp state events. Default: time.Now.
func WithNow(now func() time.Time) Option {
	return func(m *Machine) {
		m.now = now
	}
}

// New builds a machine from cfg and runs Startup. Construction always
// succeeds; Ready reports whether cfg passed validation.
func New(cfg Config, opts ...Option) *Machine {
	m := &Machine{
		cfg:    cfg,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.Startup()
	return m
}

// Startup resets every mutable field and replays the setters from the
// configuration the machine was built with.
//
// Each field is set in its own statement so a rejected field never prevents
// the others from being applied. Startup is refused while a run is in
// progress; the machine is left as it was and LastRejection reports
// MACHINE_RUNNING.
func (m *Machine) Startup() *Machine {
	if m.running > 0 {
		m.reject(rejected(FieldStartup, ReasonRunning, "", "cannot restart while running"))
		return m
	}

	m.Cursor = 0
	m.Start = 0
	m.Width = 0
	m.Items = []Item{}
	m.input = ""
	m.parser = nil
	m.itemTypes = nil
	m.stateFns = nil
	m.ready = false
	m.current = ""
	m.steps = 0
	m.rejection = nil
	m.clock = NewClock()

	stateFnsOK := m.SetStateFunctions(m.cfg.StateFunctions)
	inputOK := m.SetInput(m.cfg.Input)
	itemTypesOK := true
	if m.cfg.ItemTypes != nil {
		itemTypesOK = m.SetItemTypes(m.cfg.ItemTypes)
	}
	parserOK := m.SetParser(m.cfg.Parser)

	m.ready = stateFnsOK && inputOK && itemTypesOK && parserOK
	m.logger.Debug("machine startup", "ready", m.ready)
	return m
}

// Set dispatches to the setter for field. Unknown fields return false
// without side effects.
func (m *Machine) Set(field string, v any) bool {
	switch field {
	case FieldStateFunctions:
		return m.SetStateFunctions(v)
	case FieldParser:
		return m.SetParser(v)
	case FieldInput:
		return m.SetInput(v)
	case FieldItemTypes:
		return m.SetItemTypes(v)
	default:
		return false
	}
}

// SetInput stores v as the input if it is a non-empty string.
func (m *Machine) SetInput(v any) bool {
	if !m.idle(FieldInput) {
		return false
	}
	if res := ValidateInput(v); !res.OK() {
		m.reject(res)
		return false
	}
	m.input = v.(string)
	m.RecomputeReady()
	return true
}

// SetParser stores v as the downstream consumer if it is nil or object-shaped.
func (m *Machine) SetParser(v any) bool {
	if !m.idle(FieldParser) {
		return false
	}
	if res := ValidateParser(v); !res.OK() {
		m.reject(res)
		return false
	}
	m.parser = v
	m.RecomputeReady()
	return true
}

// SetItemTypes stores v as the item type table if every value is numeric.
func (m *Machine) SetItemTypes(v any) bool {
	if !m.idle(FieldItemTypes) {
		return false
	}
	types, res := ValidateItemTypes(v)
	if !res.OK() {
		m.reject(res)
		return false
	}
	m.itemTypes = types
	m.RecomputeReady()
	return true
}

// SetStateFunctions stores v as the state table if it is well formed and has an init state.
func (m *Machine) SetStateFunctions(v any) bool {
	if !m.idle(FieldStateFunctions) {
		return false
	}
	fns, res := ValidateStateFunctions(v)
	if !res.OK() {
		m.reject(res)
		return false
	}
	m.stateFns = fns
	m.RecomputeReady()
	return true
}

func (m *Machine) idle(field string) bool {
	if m.running > 0 {
		m.reject(rejected(field, ReasonRunning, "", "cannot set %s while running", field))
		return false
	}
	return true
}

func (m *Machine) reject(res Validation) {
	m.rejection = &res
	m.logger.Debug("configuration rejected", "field", res.Field, "reason", res.Reason, "detail", res.Detail)
}

// LastRejection returns the most recent failed set, if any since Startup.
func (m *Machine) LastRejection() (Validation, bool) {
	if m.rejection == nil {
		return Validation{}, false
	}
	return *m.rejection, true
}

// Diagnose validates the stored configuration and returns every problem
// that keeps the machine from being ready. An absent item type table is
// not a problem.
func (m *Machine) Diagnose() []Validation {
	var problems []Validation
	if _, res := ValidateStateFunctions(m.stateFns); !res.OK() {
		problems = append(problems, res)
	}
	if res := ValidateInput(m.input); !res.OK() {
		problems = append(problems, res)
	}
	if m.itemTypes != nil {
		if _, res := ValidateItemTypes(m.itemTypes); !res.OK() {
			problems = append(problems, res)
		}
	}
	if res := ValidateParser(m.parser); !res.OK() {
		problems = append(problems, res)
	}
	return problems
}

// RecomputeReady re-evaluates readiness over the stored configuration.
func (m *Machine) RecomputeReady() bool {
	m.ready = len(m.Diagnose()) == 0
	return m.ready
}

// Ready reports the readiness computed by the last Startup, successful set
// or RecomputeReady.
func (m *Machine) Ready() bool {
	return m.ready
}

// Run drives the state functions from InitState until one returns Stop.
//
// A machine that is not ready is left untouched and Run returns nil; callers
// distinguish "did not run" through Ready. A state name that is missing from
// the table, or mapped to nil, aborts the run with a *DispatchError. Items
// captured before the failure stay in Items.
//
// There is no step limit: state functions that never return Stop never terminate.
func (m *Machine) Run() error {
	return m.RunContext(context.Background())
}

// RunContext is Run with a context checked between state invocations.
// It lets a host stop a run cooperatively; state functions themselves are
// never interrupted.
func (m *Machine) RunContext(ctx context.Context) error {
	if !m.RecomputeReady() {
		m.logger.Debug("machine not ready, run skipped")
		return nil
	}

	m.running++
	defer func() { m.running-- }()

	m.steps = 0
	m.logger.Info("machine starting", "input_bytes", len(m.input), "states", len(m.stateFns))

	from := ""
	for name := InitState; name != Stop; {
		if err := ctx.Err(); err != nil {
			m.logger.Info("machine stopping: context cancelled", "state", name, "steps", m.steps)
			return err
		}

		next, err := m.dispatch(name, from)
		if err != nil {
			m.logger.Error("dispatch failed", "error", err, "items", len(m.Items))
			return err
		}
		from, name = name, next
	}

	m.logger.Info("machine finished", "steps", m.steps, "items", len(m.Items))
	return nil
}

// dispatch resolves and invokes one state, firing hooks around it.
func (m *Machine) dispatch(name, from string) (string, error) {
	fn, ok := m.stateFns[name]
	if !ok {
		return Stop, &DispatchError{Code: ErrCodeUnknownState, State: name, From: from, Step: m.steps + 1}
	}
	if fn == nil {
		return Stop, &DispatchError{Code: ErrCodeNullState, State: name, From: from, Step: m.steps + 1}
	}

	m.current = name
	m.steps++
	ev := StateEvent{StateName: name, Seq: m.clock.Next(), Time: m.now()}
	m.logger.Debug("dispatch", "state", name, "seq", ev.Seq, "cursor", m.Cursor)

	m.fireBefore(ev)
	next := fn(m)

	ev.Next = next
	ev.Time = m.now()
	m.fireAfter(ev)

	return next, nil
}

// Input returns the input being scanned.
func (m *Machine) Input() string {
	return m.input
}

// Parser returns the downstream consumer, or nil.
func (m *Machine) Parser() any {
	return m.parser
}

// ItemTypes returns the item type table, or nil when absent.
func (m *Machine) ItemTypes() map[string]ItemType {
	return m.itemTypes
}

// StateFunctions returns the state table.
func (m *Machine) StateFunctions() map[string]StateFn {
	return m.stateFns
}

// CurrentState returns the name of the state running or last run.
func (m *Machine) CurrentState() string {
	return m.current
}

// Steps returns the number of state invocations in the last run.
func (m *Machine) Steps() int {
	return m.steps
}
