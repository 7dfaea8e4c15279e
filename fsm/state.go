package fsm

// State is a node of a running machine. Implementations must be comparable
// (use pointer types): the machine compares states by identity.
type State interface {
	Enter()
	Execute()
	Exit()
	AddTransition(t *Transition)
	CheckTransitions() State
}

// BaseState provides no-op lifecycle callbacks and ordered transition
// storage. Concrete states embed it and override what they need:
//
//	type Moving struct{ fsm.BaseState[*Customer] }
//
//	func NewMoving(owner *Customer, m *fsm.StateMachine[*Customer]) *Moving {
//		return &Moving{BaseState: fsm.NewBaseState(owner, m)}
//	}
type BaseState[O any] struct {
	owner       O
	machine     *StateMachine[O]
	transitions []*Transition
}

// NewBaseState binds a state to its owner and machine.
func NewBaseState[O any](owner O, machine *StateMachine[O]) BaseState[O] {
	return BaseState[O]{owner: owner, machine: machine}
}

func (s *BaseState[O]) Enter()   {}
func (s *BaseState[O]) Execute() {}
func (s *BaseState[O]) Exit()    {}

// Owner returns the entity the state acts on.
func (s *BaseState[O]) Owner() O {
	return s.owner
}

// Machine returns the machine the state belongs to.
func (s *BaseState[O]) Machine() *StateMachine[O] {
	return s.machine
}

// AddTransition appends t; earlier transitions take priority.
func (s *BaseState[O]) AddTransition(t *Transition) {
	if t != nil {
		s.transitions = append(s.transitions, t)
	}
}

// Transitions returns the transitions in priority order.
func (s *BaseState[O]) Transitions() []*Transition {
	out := make([]*Transition, len(s.transitions))
	copy(out, s.transitions)
	return out
}

// CheckTransitions returns the target of the first transition that can
// fire, in declaration order, or nil.
func (s *BaseState[O]) CheckTransitions() State {
	for _, t := range s.transitions {
		if t.CanTransition() {
			return t.Target()
		}
	}
	return nil
}

// Binder is the fallback construction path for ChangeStateTo: a state type
// whose pointer implements Binder can be allocated by the machine without
// a registered constructor.
type Binder[O any] interface {
	State
	Bind(owner O, machine *StateMachine[O])
}

// Bind satisfies Binder for states embedding BaseState.
func (s *BaseState[O]) Bind(owner O, machine *StateMachine[O]) {
	s.owner = owner
	s.machine = machine
}
