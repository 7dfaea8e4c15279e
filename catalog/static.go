package catalog

import (
	"fmt"
	"os"
	"strings"

	"facette.io/natsort"
	"gopkg.in/yaml.v3"

	fsmgen "github.com/goliatone/go-fsmgen"
)

// Document is the YAML form of a static catalog.
type Document struct {
	// Package is the default import path for descriptors without one.
	Package string            `yaml:"package,omitempty"`
	Types   []*TypeDescriptor `yaml:"types"`
}

// Static is a Resolver backed by a registry populated ahead of time,
// typically from a YAML document checked in next to the graph.
type Static struct {
	types  []*TypeDescriptor
	byName map[string]*TypeDescriptor
}

var _ Resolver = (*Static)(nil)

// New builds a catalog. Identities must be unique.
func New(types ...*TypeDescriptor) (*Static, error) {
	s := &Static{byName: make(map[string]*TypeDescriptor, len(types))}
	for _, t := range types {
		if err := s.Add(t); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Parse decodes a catalog document.
func Parse(data []byte) (*Static, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fsmgen.NewError(fsmgen.ErrParseFailed, "decode catalog", err, nil)
	}
	pkg := strings.TrimSpace(doc.Package)
	for _, t := range doc.Types {
		if t != nil && t.Type.Package == "" && pkg != "" {
			t.Type.Package = pkg
		}
	}
	return New(doc.Types...)
}

// Load reads and parses a catalog file.
func Load(path string) (*Static, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fsmgen.NewError(fsmgen.ErrParseFailed, fmt.Sprintf("read catalog %s", path), err, map[string]any{"path": path})
	}
	return Parse(raw)
}

// Add registers a descriptor.
func (s *Static) Add(t *TypeDescriptor) error {
	if t == nil {
		return nil
	}
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return fsmgen.NewError(fsmgen.ErrInvalidCatalog, "catalog type requires a name", nil, nil)
	}
	if _, exists := s.byName[name]; exists {
		return fsmgen.NewError(fsmgen.ErrInvalidCatalog, fmt.Sprintf("catalog type %s already registered", name), nil,
			map[string]any{"name": name})
	}
	for _, c := range t.Implements {
		if !c.valid() {
			return fsmgen.NewError(fsmgen.ErrInvalidCatalog, fmt.Sprintf("catalog type %s has unknown capability %q", name, c), nil,
				map[string]any{"name": name, "capability": string(c)})
		}
	}
	for _, shape := range t.Constructors {
		if shape.Func == "" && len(shape.Params) > 0 {
			return fsmgen.NewError(fsmgen.ErrInvalidCatalog, fmt.Sprintf("catalog type %s has a parameterized constructor without func", name), nil,
				map[string]any{"name": name})
		}
	}
	t.Name = name
	if t.Type.Name == "" {
		t.Type.Name = name
	}
	if s.byName == nil {
		s.byName = make(map[string]*TypeDescriptor)
	}
	s.byName[name] = t
	s.types = append(s.types, t)
	return nil
}

// Lookup returns a descriptor by identity regardless of capability.
func (s *Static) Lookup(identity string) (*TypeDescriptor, bool) {
	if s == nil {
		return nil, false
	}
	t, ok := s.byName[strings.TrimSpace(identity)]
	return t, ok
}

func (s *Static) ResolveExecutableBacking(identity string) (*TypeDescriptor, bool) {
	t, ok := s.Lookup(identity)
	if !ok || !t.Is(CapabilityState) {
		return nil, false
	}
	return t, true
}

func (s *Static) ResolveCondition(identity string) (*TypeDescriptor, bool) {
	t, ok := s.Lookup(identity)
	if !ok || !t.Is(CapabilityCondition) {
		return nil, false
	}
	return t, true
}

func (s *Static) FindConstructorShapes(t *TypeDescriptor) []ConstructorShape {
	if t == nil || len(t.Constructors) == 0 {
		return nil
	}
	out := make([]ConstructorShape, len(t.Constructors))
	copy(out, t.Constructors)
	return out
}

// IsAssignableFrom accepts identical references, the predeclared any, and
// targets a known source type declares in Satisfies.
func (s *Static) IsAssignableFrom(target, source TypeRef) bool {
	if target == source {
		return true
	}
	if target.Package == "" && !target.Pointer && (target.Name == "any" || target.Name == "interface{}") {
		return true
	}
	if s == nil {
		return false
	}
	for _, t := range s.types {
		if t.Type.Elem() != source.Elem() {
			continue
		}
		for _, sat := range t.Satisfies {
			if sat == target {
				return true
			}
		}
	}
	return false
}

func (s *Static) FindImplementersOf(c Capability) []*TypeDescriptor {
	if s == nil {
		return nil
	}
	var out []*TypeDescriptor
	for _, t := range s.types {
		if t.Is(c) {
			out = append(out, t)
		}
	}
	return out
}

// Names lists identities implementing c in natural sort order.
func (s *Static) Names(c Capability) []string {
	return SortedNames(s.FindImplementersOf(c))
}

// Len returns the number of registered types.
func (s *Static) Len() int {
	if s == nil {
		return 0
	}
	return len(s.types)
}

// Names returns implementer identities of c from any resolver, in
// declaration order. Repair uses it as its condition pool.
func Names(r Resolver, c Capability) []string {
	if r == nil {
		return nil
	}
	types := r.FindImplementersOf(c)
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, t.Name)
	}
	return out
}

// SortedNames returns descriptor identities in natural sort order.
func SortedNames(types []*TypeDescriptor) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, t.Name)
	}
	natsort.Sort(out)
	return out
}

// StatesFor lists state implementers bound to owner, in declaration order.
func StatesFor(r Resolver, owner TypeRef) []*TypeDescriptor {
	if r == nil {
		return nil
	}
	var out []*TypeDescriptor
	for _, t := range r.FindImplementersOf(CapabilityState) {
		if t.Owner != nil && r.IsAssignableFrom(*t.Owner, owner) {
			out = append(out, t)
		}
	}
	return out
}
