package catalog

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	fsmgen "github.com/goliatone/go-fsmgen"
)

// Capability is a role a host type can play in a machine.
type Capability string

const (
	CapabilityState     Capability = "state"
	CapabilityCondition Capability = "condition"
)

func (c Capability) valid() bool {
	return c == CapabilityState || c == CapabilityCondition
}

// TypeRef names a Go type by import path and identifier.
type TypeRef struct {
	Package string
	Name    string
	Pointer bool
}

// ParseTypeRef parses "*example.com/pkg.Name", "pkg.Name" style references.
// A reference without a dot is a predeclared or local identifier.
func ParseTypeRef(value string) (TypeRef, error) {
	value = strings.TrimSpace(value)
	ref := TypeRef{}
	if strings.HasPrefix(value, "*") {
		ref.Pointer = true
		value = strings.TrimSpace(value[1:])
	}
	if value == "" {
		return TypeRef{}, fsmgen.NewError(fsmgen.ErrParseFailed, "empty type reference", nil, nil)
	}
	slash := strings.LastIndex(value, "/")
	dot := strings.LastIndex(value, ".")
	if dot > slash {
		ref.Package = value[:dot]
		ref.Name = value[dot+1:]
	} else {
		ref.Name = value
	}
	if ref.Name == "" {
		return TypeRef{}, fsmgen.NewError(fsmgen.ErrParseFailed, fmt.Sprintf("type reference %q has no name", value), nil,
			map[string]any{"type": value})
	}
	return ref, nil
}

// MustTypeRef is ParseTypeRef for static declarations.
func MustTypeRef(value string) TypeRef {
	ref, err := ParseTypeRef(value)
	if err != nil {
		panic(err)
	}
	return ref
}

func (t TypeRef) String() string {
	var b strings.Builder
	if t.Pointer {
		b.WriteString("*")
	}
	if t.Package != "" {
		b.WriteString(t.Package)
		b.WriteString(".")
	}
	b.WriteString(t.Name)
	return b.String()
}

// IsZero reports whether the reference is unset.
func (t TypeRef) IsZero() bool {
	return t.Name == ""
}

// Elem returns the reference without pointer indirection.
func (t TypeRef) Elem() TypeRef {
	t.Pointer = false
	return t
}

func (t TypeRef) MarshalYAML() (any, error) {
	return t.String(), nil
}

func (t *TypeRef) UnmarshalYAML(value *yaml.Node) error {
	ref, err := ParseTypeRef(value.Value)
	if err != nil {
		return err
	}
	*t = ref
	return nil
}

// ConstructorShape describes one way to build a type. An empty Func means
// a composite literal (&T{}); it can only take zero parameters.
type ConstructorShape struct {
	Func   string    `yaml:"func,omitempty"`
	Params []TypeRef `yaml:"params,omitempty"`
}

// Arity returns the number of parameters.
func (s ConstructorShape) Arity() int {
	return len(s.Params)
}

// TypeDescriptor is what the host knows about one candidate type.
type TypeDescriptor struct {
	// Name is the identity graph nodes and condition refs use.
	Name string `yaml:"name"`
	// Type is the Go type; an unset Name defaults to the identity.
	Type         TypeRef            `yaml:"type,omitempty"`
	Implements   []Capability       `yaml:"implements"`
	Owner        *TypeRef           `yaml:"owner,omitempty"`
	Satisfies    []TypeRef          `yaml:"satisfies,omitempty"`
	Constructors []ConstructorShape `yaml:"constructors,omitempty"`
}

// Is reports whether the descriptor implements capability c.
func (d *TypeDescriptor) Is(c Capability) bool {
	if d == nil {
		return false
	}
	for _, impl := range d.Implements {
		if impl == c {
			return true
		}
	}
	return false
}

// Resolver is the host lookup collaborator consumed by repair and synth.
// Engines never scan for types themselves; they ask a Resolver.
type Resolver interface {
	// ResolveExecutableBacking returns the state type backing a node identity.
	ResolveExecutableBacking(identity string) (*TypeDescriptor, bool)
	// ResolveCondition returns the condition type for a condition identity.
	ResolveCondition(identity string) (*TypeDescriptor, bool)
	// FindConstructorShapes lists the ways a type can be constructed.
	FindConstructorShapes(t *TypeDescriptor) []ConstructorShape
	// IsAssignableFrom reports whether a value of source can be used where target is expected.
	IsAssignableFrom(target, source TypeRef) bool
	// FindImplementersOf lists types implementing c in declaration order.
	FindImplementersOf(c Capability) []*TypeDescriptor
}
