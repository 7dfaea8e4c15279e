package fsm

import (
	"fmt"
	"reflect"

	fsmgen "github.com/goliatone/go-fsmgen"
)

// Constructor builds a state bound to owner and machine.
type Constructor[O any] func(owner O, machine *StateMachine[O]) State

// TransitionHook observes state changes. from and to may be nil.
type TransitionHook func(from, to State)

// StateMachine owns exactly one current state, remembers the previous one
// and caches one instance per concrete state type. It is driven by its
// owner through Execute, once per tick, from a single goroutine.
type StateMachine[O any] struct {
	owner        O
	current      State
	previous     State
	cache        map[reflect.Type]State
	constructors map[reflect.Type]Constructor[O]
	hooks        []TransitionHook
	logger       fsmgen.Logger
}

// Option customizes a StateMachine.
type Option[O any] func(*StateMachine[O])

// WithLogger sets the machine logger.
func WithLogger[O any](logger fsmgen.Logger) Option[O] {
	return func(m *StateMachine[O]) {
		m.logger = fsmgen.NormalizeLogger(logger)
	}
}

// WithTransitionHook registers a hook called after every state change.
func WithTransitionHook[O any](hook TransitionHook) Option[O] {
	return func(m *StateMachine[O]) {
		if hook != nil {
			m.hooks = append(m.hooks, hook)
		}
	}
}

// New creates an idle machine for owner. Call ChangeState or ChangeStateTo to start it.
func New[O any](owner O, opts ...Option[O]) *StateMachine[O] {
	m := &StateMachine[O]{
		owner:        owner,
		cache:        make(map[reflect.Type]State),
		constructors: make(map[reflect.Type]Constructor[O]),
		logger:       fsmgen.NopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	m.logger = fsmgen.NormalizeLogger(m.logger)
	return m
}

// Owner returns the entity driving the machine.
func (m *StateMachine[O]) Owner() O {
	return m.owner
}

// Current returns the active state or nil before start.
func (m *StateMachine[O]) Current() State {
	return m.current
}

// Previous returns the state that was current before the last ChangeState.
func (m *StateMachine[O]) Previous() State {
	return m.previous
}

// Execute runs one tick: the current state's Execute callback, then its
// transition check. A firing transition that targets the current state is
// ignored, so self transitions never re-enter.
func (m *StateMachine[O]) Execute() {
	if m.current == nil {
		return
	}
	m.current.Execute()

	// Execute may have changed state; check the one that is current now.
	if m.current == nil {
		return
	}
	next := m.current.CheckTransitions()
	if next != nil && next != m.current {
		m.ChangeState(next)
	}
}

// ChangeState exits the current state, swaps pointers, then enters next.
// It always runs the callbacks, even when next is already current.
func (m *StateMachine[O]) ChangeState(next State) {
	from := m.current
	if m.current != nil {
		m.current.Exit()
	}

	m.previous = m.current
	m.current = next

	if m.current != nil {
		m.current.Enter()
	}

	m.logger.Debug("state changed from %s to %s", stateName(from), stateName(next))
	for _, hook := range m.hooks {
		hook(from, next)
	}
}

// RevertToPreviousState changes back to the previous state. Calling it twice
// toggles between two states; there is no deeper history.
func (m *StateMachine[O]) RevertToPreviousState() {
	if m.previous != nil {
		m.ChangeState(m.previous)
	}
}

// Cached returns the cached instance for a state type, if one was created.
func (m *StateMachine[O]) Cached(t reflect.Type) (State, bool) {
	s, ok := m.cache[t]
	return s, ok
}

// Adopt caches states built outside the machine, such as the instances a
// generated machine wires up, so ChangeStateTo reuses them. A type that is
// already cached keeps its first instance.
func (m *StateMachine[O]) Adopt(states ...State) {
	for _, s := range states {
		if IsNil(s) {
			continue
		}
		key := reflect.TypeOf(s)
		if _, ok := m.cache[key]; !ok {
			m.cache[key] = s
		}
	}
}

// Register installs the constructor used by ChangeStateTo for S.
func Register[S State, O any](m *StateMachine[O], ctor func(owner O, machine *StateMachine[O]) S) {
	if m == nil || ctor == nil {
		return
	}
	m.constructors[reflect.TypeFor[S]()] = func(owner O, machine *StateMachine[O]) State {
		return ctor(owner, machine)
	}
}

// ChangeStateTo changes to the cached instance of S, creating it on first
// use. It is a no-op when the current state already is an S. A type with
// no registered constructor and no Binder implementation is a
// configuration error and is returned as ErrMissingConstructor.
func ChangeStateTo[S State, O any](m *StateMachine[O]) error {
	key := reflect.TypeFor[S]()
	if m.current != nil && reflect.TypeOf(m.current) == key {
		return nil
	}

	state, err := m.resolve(key)
	if err != nil {
		return err
	}
	m.ChangeState(state)
	return nil
}

func (m *StateMachine[O]) resolve(key reflect.Type) (State, error) {
	if state, ok := m.cache[key]; ok {
		return state, nil
	}

	var state State
	if ctor, ok := m.constructors[key]; ok {
		state = ctor(m.owner, m)
	} else {
		state = m.bind(key)
	}
	if IsNil(state) {
		return nil, fsmgen.NewError(
			fsmgen.ErrMissingConstructor,
			fmt.Sprintf("state type %s has no (owner, machine) constructor", key),
			nil,
			map[string]any{"state_type": key.String()},
		)
	}

	m.cache[key] = state
	m.logger.Debug("created state %s", key)
	return state, nil
}

func (m *StateMachine[O]) bind(key reflect.Type) State {
	if key.Kind() != reflect.Pointer || key.Elem().Kind() != reflect.Struct {
		return nil
	}
	binder, ok := reflect.New(key.Elem()).Interface().(Binder[O])
	if !ok {
		return nil
	}
	binder.Bind(m.owner, m)
	return binder
}

// IsNil reports whether s is nil or wraps a nil pointer, as a constructor
// returning a nil *S does.
func IsNil(s State) bool {
	if s == nil {
		return true
	}
	v := reflect.ValueOf(s)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return v.IsNil()
	}
	return false
}

func stateName(s State) string {
	if s == nil {
		return "<nil>"
	}
	if named, ok := s.(interface{ Name() string }); ok {
		return named.Name()
	}
	t := reflect.TypeOf(s)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
