package fsm

// Condition is an argument-less boolean predicate evaluated when a
// transition is checked.
type Condition interface {
	Evaluate() bool
}

// ConditionFunc adapts a plain function to Condition.
type ConditionFunc func() bool

// Evaluate calls the underlying function.
func (f ConditionFunc) Evaluate() bool {
	if f == nil {
		return false
	}
	return f()
}

// NamedCondition is a Condition carrying an identity, mostly useful for
// logging and tests.
type NamedCondition struct {
	Name string
	fn   func() bool
}

// Named wraps fn with an identity.
func Named(name string, fn func() bool) *NamedCondition {
	return &NamedCondition{Name: name, fn: fn}
}

func (c *NamedCondition) Evaluate() bool {
	if c == nil || c.fn == nil {
		return false
	}
	return c.fn()
}

func (c *NamedCondition) String() string {
	if c == nil {
		return ""
	}
	return c.Name
}

// Transition is a guarded edge to a target state. It fires when every
// condition evaluates true; an empty condition list always fires.
type Transition struct {
	target     State
	conditions []Condition
}

// NewTransition creates an unconditioned transition to target.
func NewTransition(target State, conditions ...Condition) *Transition {
	t := &Transition{target: target}
	for _, c := range conditions {
		t.AddCondition(c)
	}
	return t
}

// AddCondition appends a condition. Conditions are evaluated in insertion order.
func (t *Transition) AddCondition(c Condition) *Transition {
	if c != nil {
		t.conditions = append(t.conditions, c)
	}
	return t
}

// Target returns the state the transition leads to.
func (t *Transition) Target() State {
	return t.target
}

// Conditions returns a copy of the attached conditions.
func (t *Transition) Conditions() []Condition {
	out := make([]Condition, len(t.conditions))
	copy(out, t.conditions)
	return out
}

// CanTransition reports whether all conditions hold, stopping at the first failure.
func (t *Transition) CanTransition() bool {
	for _, c := range t.conditions {
		if !c.Evaluate() {
			return false
		}
	}
	return true
}
