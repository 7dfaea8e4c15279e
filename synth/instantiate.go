package synth

import (
	"fmt"

	fsmgen "github.com/goliatone/go-fsmgen"
	"github.com/goliatone/go-fsmgen/fsm"
)

// StateFactory builds the state for one node.
type StateFactory[O any] func(owner O, machine *fsm.StateMachine[O]) fsm.State

// ConditionFactory builds one guard for owner.
type ConditionFactory[O any] func(owner O) fsm.Condition

// Factories maps identities to the constructors Instantiate uses in place
// of compiled generated code.
type Factories[O any] struct {
	states     map[string]StateFactory[O]
	conditions map[string]ConditionFactory[O]
}

// NewFactories creates an empty registry.
func NewFactories[O any]() *Factories[O] {
	return &Factories[O]{
		states:     make(map[string]StateFactory[O]),
		conditions: make(map[string]ConditionFactory[O]),
	}
}

// State registers the factory for a state identity.
func (f *Factories[O]) State(name string, factory StateFactory[O]) *Factories[O] {
	f.states[name] = factory
	return f
}

// Condition registers the factory for a condition identity.
func (f *Factories[O]) Condition(name string, factory ConditionFactory[O]) *Factories[O] {
	f.conditions[name] = factory
	return f
}

// StateOf adapts a typed constructor, usually the one the catalog names.
func StateOf[S fsm.State, O any](ctor func(owner O, machine *fsm.StateMachine[O]) S) StateFactory[O] {
	return func(owner O, machine *fsm.StateMachine[O]) fsm.State {
		return ctor(owner, machine)
	}
}

// ConditionOf adapts a typed owner-shaped condition constructor.
func ConditionOf[C fsm.Condition, O any](ctor func(owner O) C) ConditionFactory[O] {
	return func(owner O) fsm.Condition {
		return ctor(owner)
	}
}

// Instantiate builds a live machine from plan, wired exactly as the
// emitted source would wire it, and enters the initial state. Every state
// and condition in the plan needs a factory; a missing one is a
// configuration error.
func Instantiate[O any](plan *Plan, factories *Factories[O], owner O, opts ...fsm.Option[O]) (*fsm.StateMachine[O], error) {
	if plan == nil || len(plan.States) == 0 {
		return nil, fsmgen.NewError(fsmgen.ErrNothingToGenerate, "empty plan", nil, nil)
	}
	if factories == nil {
		factories = NewFactories[O]()
	}

	m := fsm.New(owner, opts...)
	states := make([]fsm.State, len(plan.States))
	for i, s := range plan.States {
		factory, ok := factories.states[s.Name]
		if !ok {
			return nil, missingFactory("state", s.Name, plan.Machine)
		}
		states[i] = factory(owner, m)
		if fsm.IsNil(states[i]) {
			return nil, missingFactory("state", s.Name, plan.Machine)
		}
	}
	m.Adopt(states...)

	for i, s := range plan.States {
		for _, tp := range s.Transitions {
			t := fsm.NewTransition(states[tp.Target])
			for _, c := range tp.Conditions {
				factory, ok := factories.conditions[c.Name]
				if !ok {
					return nil, missingFactory("condition", c.Name, plan.Machine)
				}
				t.AddCondition(factory(owner))
			}
			states[i].AddTransition(t)
		}
	}

	m.ChangeState(states[plan.Initial])
	return m, nil
}

func missingFactory(kind, name, machine string) error {
	return fsmgen.NewError(
		fsmgen.ErrMissingConstructor,
		fmt.Sprintf("no %s factory registered for %s", kind, name),
		nil,
		map[string]any{"kind": kind, "name": name, "machine": machine},
	)
}
