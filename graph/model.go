package graph

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Provenance records whether an element was authored or inferred by repair.
type Provenance int

const (
	Authored Provenance = iota
	Inferred
)

func (p Provenance) String() string {
	switch p {
	case Inferred:
		return "inferred"
	default:
		return "authored"
	}
}

// ParseProvenance accepts "authored", "inferred" or an empty string.
func ParseProvenance(value string) (Provenance, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "authored":
		return Authored, nil
	case "inferred":
		return Inferred, nil
	default:
		return Authored, fmt.Errorf("unknown provenance %q", value)
	}
}

func (p Provenance) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Provenance) UnmarshalText(text []byte) error {
	parsed, err := ParseProvenance(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p Provenance) MarshalYAML() (any, error) {
	return p.String(), nil
}

func (p *Provenance) UnmarshalYAML(value *yaml.Node) error {
	return p.UnmarshalText([]byte(value.Value))
}

// ConditionRef names a condition type guarding an edge.
type ConditionRef struct {
	Name       string     `json:"name" yaml:"name"`
	Provenance Provenance `json:"provenance,omitempty" yaml:"provenance,omitempty"`
}

type conditionRefFields ConditionRef

// MarshalYAML writes authored references as plain strings.
func (c ConditionRef) MarshalYAML() (any, error) {
	if c.Provenance == Authored {
		return c.Name, nil
	}
	return conditionRefFields(c), nil
}

func (c *ConditionRef) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*c = ConditionRef{Name: strings.TrimSpace(value.Value)}
		return nil
	}
	var fields conditionRefFields
	if err := value.Decode(&fields); err != nil {
		return err
	}
	fields.Name = strings.TrimSpace(fields.Name)
	*c = ConditionRef(fields)
	return nil
}

func (c ConditionRef) MarshalJSON() ([]byte, error) {
	if c.Provenance == Authored {
		return json.Marshal(c.Name)
	}
	return json.Marshal(conditionRefFields(c))
}

func (c *ConditionRef) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*c = ConditionRef{Name: strings.TrimSpace(name)}
		return nil
	}
	var fields conditionRefFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	fields.Name = strings.TrimSpace(fields.Name)
	*c = ConditionRef(fields)
	return nil
}

// Edge is an authoring-time transition. Target is the 1-based index of the
// target node; 0 means unset.
type Edge struct {
	Target     int            `json:"target" yaml:"target"`
	Conditions []ConditionRef `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Provenance Provenance     `json:"provenance,omitempty" yaml:"provenance,omitempty"`
}

// ConditionNames returns the condition identities in order.
func (e Edge) ConditionNames() []string {
	out := make([]string, 0, len(e.Conditions))
	for _, c := range e.Conditions {
		out = append(out, c.Name)
	}
	return out
}

// Node is an authoring-time state.
type Node struct {
	Name       string     `json:"name" yaml:"name"`
	Initial    bool       `json:"initial,omitempty" yaml:"initial,omitempty"`
	Edges      []Edge     `json:"edges,omitempty" yaml:"edges,omitempty"`
	Provenance Provenance `json:"provenance,omitempty" yaml:"provenance,omitempty"`
}

// Graph is the declarative machine description exchanged with editors.
// Node order is significant: it defines edge indexes, tie breaks and the
// order of generated code.
type Graph struct {
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Nodes []Node `json:"nodes" yaml:"nodes"`
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.Nodes)
}

// NodeAt returns the node at a 1-based index.
func (g *Graph) NodeAt(index int) (*Node, bool) {
	if g == nil || index <= 0 || index > len(g.Nodes) {
		return nil, false
	}
	return &g.Nodes[index-1], true
}

// ValidTarget reports whether index resolves to a node.
func (g *Graph) ValidTarget(index int) bool {
	_, ok := g.NodeAt(index)
	return ok
}

// IndexOf returns the 1-based index of the first node named name, or 0.
func (g *Graph) IndexOf(name string) int {
	if g == nil {
		return 0
	}
	for i := range g.Nodes {
		if g.Nodes[i].Name == name {
			return i + 1
		}
	}
	return 0
}

// InitialIndex returns the 1-based index of the first node marked initial, or 0.
func (g *Graph) InitialIndex() int {
	if g == nil {
		return 0
	}
	for i := range g.Nodes {
		if g.Nodes[i].Initial {
			return i + 1
		}
	}
	return 0
}

// HasEdgeTo reports whether the node at from already has an edge to target.
func (g *Graph) HasEdgeTo(from, target int) bool {
	node, ok := g.NodeAt(from)
	if !ok {
		return false
	}
	for _, e := range node.Edges {
		if e.Target == target {
			return true
		}
	}
	return false
}

// AddEdge appends an edge to the node at from.
func (g *Graph) AddEdge(from int, edge Edge) bool {
	node, ok := g.NodeAt(from)
	if !ok {
		return false
	}
	node.Edges = append(node.Edges, edge)
	return true
}

// Clone returns a deep copy.
func (g *Graph) Clone() *Graph {
	if g == nil {
		return nil
	}
	out := &Graph{Name: g.Name, Nodes: make([]Node, len(g.Nodes))}
	for i, n := range g.Nodes {
		cp := n
		if n.Edges != nil {
			cp.Edges = make([]Edge, len(n.Edges))
			for j, e := range n.Edges {
				ce := e
				if e.Conditions != nil {
					ce.Conditions = make([]ConditionRef, len(e.Conditions))
					copy(ce.Conditions, e.Conditions)
				}
				cp.Edges[j] = ce
			}
		}
		out.Nodes[i] = cp
	}
	return out
}

// EdgeCount returns the total number of edges.
func (g *Graph) EdgeCount() int {
	total := 0
	if g == nil {
		return total
	}
	for _, n := range g.Nodes {
		total += len(n.Edges)
	}
	return total
}
