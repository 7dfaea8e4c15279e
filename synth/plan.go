package synth

import (
	"fmt"
	"strings"

	fsmgen "github.com/goliatone/go-fsmgen"
	"github.com/goliatone/go-fsmgen/catalog"
	"github.com/goliatone/go-fsmgen/graph"
)

// RuntimePackage is the import path of the runtime generated code targets.
const RuntimePackage = "github.com/goliatone/go-fsmgen/fsm"

// StateShape is how a state instance is obtained.
type StateShape int

const (
	// StateConstructor calls a func(owner, machine) constructor.
	StateConstructor StateShape = iota
	// StateBinder allocates a composite literal and calls Bind(owner, machine).
	StateBinder
)

func (s StateShape) String() string {
	if s == StateBinder {
		return "binder"
	}
	return "constructor"
}

// ConditionShape is how a condition instance is obtained.
type ConditionShape int

const (
	// ConditionOwner calls a single argument constructor with the owner.
	ConditionOwner ConditionShape = iota
	// ConditionNoArg calls a no argument constructor or allocates a literal.
	ConditionNoArg
)

func (s ConditionShape) String() string {
	if s == ConditionNoArg {
		return "no-arg"
	}
	return "owner"
}

// ConditionPlan is one resolved guard.
type ConditionPlan struct {
	Name  string
	Type  catalog.TypeRef
	Shape ConditionShape
	// Func is the constructor; empty means a composite literal.
	Func string
}

// TransitionPlan is one emitted edge. Source and Target index Plan.States.
type TransitionPlan struct {
	Binding    string
	Source     int
	Target     int
	Conditions []ConditionPlan
	Provenance graph.Provenance
}

// StatePlan is one eligible node.
type StatePlan struct {
	Name string
	// Node is the 1-based index in the source graph.
	Node        int
	Binding     string
	Type        catalog.TypeRef
	Shape       StateShape
	Func        string
	Transitions []TransitionPlan
}

// Dropped records an element left out of the plan.
type Dropped struct {
	Path   string `json:"path" yaml:"path"`
	Reason string `json:"reason" yaml:"reason"`
}

// Plan is the validated, fully resolved description of one generated
// machine. Emit and Instantiate both consume it.
type Plan struct {
	Graph   string
	Machine string
	Package string
	// ImportPath of the generated package; types declared there are unqualified.
	ImportPath string
	Runtime    string
	Owner      catalog.TypeRef
	States     []StatePlan
	// Initial indexes States.
	Initial int
	// InitialMarked is false when no eligible node was marked initial.
	InitialMarked bool
	Dropped       []Dropped
}

// Config names the generated code.
type Config struct {
	Package    string `yaml:"package"`
	ImportPath string `yaml:"import_path"`
	Machine    string `yaml:"machine"`
	Runtime    string `yaml:"runtime"`
}

func (c Config) withDefaults(g *graph.Graph, owner catalog.TypeRef) Config {
	if c.Runtime == "" {
		c.Runtime = RuntimePackage
	}
	if c.ImportPath == "" {
		c.ImportPath = owner.Package
	}
	if c.Package == "" {
		c.Package = packageAlias(c.ImportPath)
	}
	if c.Package == "" {
		c.Package = "main"
	}
	if c.Machine == "" && g != nil {
		c.Machine = upperFirst(sanitize(g.Name))
	}
	if c.Machine == "" {
		c.Machine = upperFirst(sanitize(owner.Name)) + "StateMachine"
	}
	return c
}

// Transitions returns every transition in emission order.
func (p *Plan) Transitions() []TransitionPlan {
	var out []TransitionPlan
	for _, s := range p.States {
		out = append(out, s.Transitions...)
	}
	return out
}

// StateIndex returns the index of the state named name, or -1.
func (p *Plan) StateIndex(name string) int {
	for i, s := range p.States {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// buildPlan is the Validating phase.
func buildPlan(g *graph.Graph, r catalog.Resolver, owner catalog.TypeRef, cfg Config, logger fsmgen.Logger) (*Plan, error) {
	if g == nil {
		g = &graph.Graph{}
	}
	if err := g.Err(); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fsmgen.NewError(fsmgen.ErrNothingToGenerate, "no catalog to resolve states", nil, nil)
	}
	if owner.IsZero() {
		return nil, fsmgen.NewError(fsmgen.ErrNothingToGenerate, "owner type is required", nil, nil)
	}
	cfg = cfg.withDefaults(g, owner)

	plan := &Plan{
		Graph:      g.Name,
		Machine:    cfg.Machine,
		Package:    cfg.Package,
		ImportPath: cfg.ImportPath,
		Runtime:    cfg.Runtime,
		Owner:      owner,
		Initial:    -1,
	}

	ids := newNames()
	for _, path := range referencedPackages(g, r, owner, cfg) {
		ids.reserve(packageAlias(path))
	}

	// graph index (1-based) -> plan index
	eligible := make(map[int]int, g.Len())
	for i, node := range g.Nodes {
		path := fmt.Sprintf("nodes[%d]", i)
		name := strings.TrimSpace(node.Name)
		desc, ok := r.ResolveExecutableBacking(name)
		if !ok {
			plan.drop(path, fmt.Sprintf("%s has no state type", name))
			logger.Debug("dropped node %s: no state type", name)
			continue
		}
		state := StatePlan{
			Name:    name,
			Node:    i + 1,
			Binding: ids.alloc(bindingBase(name)),
			Type:    desc.Type,
			Shape:   StateBinder,
		}
		if fn, ok := stateConstructor(r, desc, owner); ok {
			state.Shape = StateConstructor
			state.Func = fn
		}
		eligible[i+1] = len(plan.States)
		plan.States = append(plan.States, state)
		if node.Initial && plan.Initial < 0 {
			plan.Initial = len(plan.States) - 1
			plan.InitialMarked = true
		}
	}

	if len(plan.States) == 0 {
		return nil, fsmgen.NewError(fsmgen.ErrNothingToGenerate,
			fmt.Sprintf("graph %s has no node backed by a state type", g.Name), nil,
			map[string]any{"graph": g.Name, "nodes": g.Len()})
	}
	if plan.Initial < 0 {
		plan.Initial = 0
	}

	for si := range plan.States {
		state := &plan.States[si]
		node, _ := g.NodeAt(state.Node)
		for j, edge := range node.Edges {
			path := fmt.Sprintf("nodes[%d].edges[%d]", state.Node-1, j)
			target, ok := eligible[edge.Target]
			if !ok {
				plan.drop(path, fmt.Sprintf("target %d is not an eligible node", edge.Target))
				logger.Debug("dropped edge %s: target %d not eligible", path, edge.Target)
				continue
			}
			tp := TransitionPlan{
				Binding:    ids.alloc(state.Binding + "To" + upperFirst(sanitize(plan.States[target].Name))),
				Source:     si,
				Target:     target,
				Provenance: edge.Provenance,
			}
			for k, ref := range edge.Conditions {
				cp, reason := resolveCondition(r, ref.Name, owner)
				if reason != "" {
					plan.drop(fmt.Sprintf("%s.conditions[%d]", path, k), reason)
					logger.Debug("dropped condition %s on %s: %s", ref.Name, path, reason)
					continue
				}
				tp.Conditions = append(tp.Conditions, cp)
			}
			state.Transitions = append(state.Transitions, tp)
		}
	}
	return plan, nil
}

func (p *Plan) drop(path, reason string) {
	p.Dropped = append(p.Dropped, Dropped{Path: path, Reason: reason})
}

// stateConstructor finds a func(owner, machine) constructor.
func stateConstructor(r catalog.Resolver, desc *catalog.TypeDescriptor, owner catalog.TypeRef) (string, bool) {
	for _, shape := range r.FindConstructorShapes(desc) {
		if shape.Func == "" || shape.Arity() != 2 {
			continue
		}
		if r.IsAssignableFrom(shape.Params[0], owner) && shape.Params[1].Name == "StateMachine" {
			return shape.Func, true
		}
	}
	return "", false
}

// resolveCondition picks the owner shape over the no-arg shape. A type
// without constructors counts as a no-arg composite literal.
func resolveCondition(r catalog.Resolver, name string, owner catalog.TypeRef) (ConditionPlan, string) {
	desc, ok := r.ResolveCondition(name)
	if !ok {
		return ConditionPlan{}, fmt.Sprintf("%s has no condition type", name)
	}
	cp := ConditionPlan{Name: desc.Name, Type: desc.Type}
	shapes := r.FindConstructorShapes(desc)
	if len(shapes) == 0 {
		cp.Shape = ConditionNoArg
		return cp, ""
	}
	for _, shape := range shapes {
		if shape.Func != "" && shape.Arity() == 1 && r.IsAssignableFrom(shape.Params[0], owner) {
			cp.Shape = ConditionOwner
			cp.Func = shape.Func
			return cp, ""
		}
	}
	for _, shape := range shapes {
		if shape.Arity() == 0 {
			cp.Shape = ConditionNoArg
			cp.Func = shape.Func
			return cp, ""
		}
	}
	return ConditionPlan{}, fmt.Sprintf("%s has no owner or no-arg constructor", name)
}

// referencedPackages lists the import paths generated code may mention.
func referencedPackages(g *graph.Graph, r catalog.Resolver, owner catalog.TypeRef, cfg Config) []string {
	seen := map[string]bool{cfg.ImportPath: true}
	var out []string
	add := func(path string) {
		if path != "" && !seen[path] {
			seen[path] = true
			out = append(out, path)
		}
	}
	add(cfg.Runtime)
	add(owner.Package)
	for _, node := range g.Nodes {
		if desc, ok := r.ResolveExecutableBacking(node.Name); ok {
			add(desc.Type.Package)
		}
		for _, e := range node.Edges {
			for _, c := range e.Conditions {
				if desc, ok := r.ResolveCondition(c.Name); ok {
					add(desc.Type.Package)
				}
			}
		}
	}
	return out
}
