package synth

import (
	"fmt"

	fsmgen "github.com/goliatone/go-fsmgen"
	"github.com/goliatone/go-fsmgen/catalog"
	"github.com/goliatone/go-fsmgen/graph"
)

// Phase is a step of one synthesis run.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseEmitting
	PhaseDone
	PhaseRejected
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseValidating:
		return "validating"
	case PhaseEmitting:
		return "emitting"
	case PhaseDone:
		return "done"
	case PhaseRejected:
		return "rejected"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Summary counts what a plan generates.
type Summary struct {
	States      int `json:"states" yaml:"states"`
	Transitions int `json:"transitions" yaml:"transitions"`
	Conditions  int `json:"conditions" yaml:"conditions"`
	Dropped     int `json:"dropped" yaml:"dropped"`
}

func (s Summary) String() string {
	return fmt.Sprintf("Will generate: %d states, %d transitions, %d conditions", s.States, s.Transitions, s.Conditions)
}

// Summary counts the plan contents.
func (p *Plan) Summary() Summary {
	if p == nil {
		return Summary{}
	}
	s := Summary{States: len(p.States), Dropped: len(p.Dropped)}
	for _, t := range p.Transitions() {
		s.Transitions++
		s.Conditions += len(t.Conditions)
	}
	return s
}

// Result is the outcome of Generate. Source is set only when the run
// reached PhaseDone.
type Result struct {
	Source  []byte
	Plan    *Plan
	Phases  []Phase
	Summary Summary
}

// Phase returns the final phase.
func (r *Result) Phase() Phase {
	if r == nil || len(r.Phases) == 0 {
		return PhaseIdle
	}
	return r.Phases[len(r.Phases)-1]
}

// Engine turns graphs into Go source for one owner type.
type Engine struct {
	resolver catalog.Resolver
	config   Config
	logger   fsmgen.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger fsmgen.Logger) Option {
	return func(e *Engine) {
		e.logger = fsmgen.NormalizeLogger(logger)
	}
}

// WithConfig sets package and type names of the output.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.config = cfg
	}
}

// WithPackage sets the generated package name and import path.
func WithPackage(name, importPath string) Option {
	return func(e *Engine) {
		e.config.Package = name
		e.config.ImportPath = importPath
	}
}

// WithMachineName sets the generated type name.
func WithMachineName(name string) Option {
	return func(e *Engine) {
		e.config.Machine = name
	}
}

// New creates an engine resolving node and condition identities with r.
func New(r catalog.Resolver, opts ...Option) *Engine {
	e := &Engine{resolver: r, logger: fsmgen.NopLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Plan validates g and resolves everything the output needs.
func (e *Engine) Plan(g *graph.Graph, owner catalog.TypeRef) (*Plan, error) {
	return buildPlan(g, e.resolver, owner, e.config, e.logger)
}

// CanGenerate reports whether g has at least one node backed by a state type.
func (e *Engine) CanGenerate(g *graph.Graph) bool {
	if g == nil || e.resolver == nil {
		return false
	}
	for _, n := range g.Nodes {
		if _, ok := e.resolver.ResolveExecutableBacking(n.Name); ok {
			return true
		}
	}
	return false
}

// Generate plans and emits g. It returns either complete source or an
// error; a partial file is never produced.
func (e *Engine) Generate(g *graph.Graph, owner catalog.TypeRef) (*Result, error) {
	res := &Result{Phases: []Phase{PhaseIdle, PhaseValidating}}
	name := ""
	if g != nil {
		name = g.Name
	}
	logger := fsmgen.WithLoggerFields(e.logger, map[string]any{"graph": name, "owner": owner.String()})

	plan, err := buildPlan(g, e.resolver, owner, e.config, logger)
	if err != nil {
		res.Phases = append(res.Phases, PhaseRejected)
		logger.Warn("synthesis of %s rejected: %v", name, err)
		return res, err
	}
	res.Plan = plan
	res.Summary = plan.Summary()

	res.Phases = append(res.Phases, PhaseEmitting)
	src, err := Render(plan)
	if err != nil {
		res.Phases = append(res.Phases, PhaseRejected)
		logger.Error("synthesis of %s failed: %v", name, err)
		return res, err
	}
	res.Source = src
	res.Phases = append(res.Phases, PhaseDone)
	logger.Info("generated %s: %s", plan.Machine, res.Summary)
	return res, nil
}
