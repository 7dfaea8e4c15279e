package repair

import (
	"strings"

	fsmgen "github.com/goliatone/go-fsmgen"
	"github.com/goliatone/go-fsmgen/catalog"
	"github.com/goliatone/go-fsmgen/graph"
)

// Engine completes partially authored graphs from naming heuristics. It is
// stateless between calls; Repair never mutates its input.
type Engine struct {
	logger    fsmgen.Logger
	vocab     *Vocabulary
	pool      map[string]bool
	poolSet   bool
	resolver  catalog.Resolver
	owner     *catalog.TypeRef
	applySugg bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger fsmgen.Logger) Option {
	return func(e *Engine) {
		e.logger = fsmgen.NormalizeLogger(logger)
	}
}

// WithVocabulary replaces the default vocabulary.
func WithVocabulary(v *Vocabulary) Option {
	return func(e *Engine) {
		if v != nil {
			e.vocab = v
		}
	}
}

// WithConditionPool sets the condition identities inferred edges may use.
// Guards outside the pool are left off and the edge stays unconditioned.
func WithConditionPool(names ...string) Option {
	return func(e *Engine) {
		e.pool = make(map[string]bool, len(names))
		for _, n := range names {
			if n = strings.TrimSpace(n); n != "" {
				e.pool[n] = true
			}
		}
		e.poolSet = true
	}
}

// WithCatalog sets the resolver used for state discovery. Unless
// WithConditionPool is also given, its condition implementers form the pool.
func WithCatalog(r catalog.Resolver) Option {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithStateDiscovery adds an inferred node for every catalog state bound
// to owner that the graph does not contain yet.
func WithStateDiscovery(owner catalog.TypeRef) Option {
	return func(e *Engine) {
		e.owner = &owner
	}
}

// WithSuggestedConditions guards unconditioned inferred edges with the
// vocabulary suggestions. Authored edges are left alone.
func WithSuggestedConditions() Option {
	return func(e *Engine) {
		e.applySugg = true
	}
}

// New creates an engine with the default vocabulary.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger: fsmgen.NopLogger{},
		vocab:  DefaultVocabulary(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if !e.poolSet && e.resolver != nil {
		WithConditionPool(catalog.Names(e.resolver, catalog.CapabilityCondition)...)(e)
	}
	return e
}

// Vocabulary returns the active vocabulary.
func (e *Engine) Vocabulary() *Vocabulary {
	return e.vocab
}

// run holds the state of one Repair call.
type run struct {
	*Engine
	g      *graph.Graph
	report *Report
	pairs  map[Pair]bool
	logger fsmgen.Logger
}

// Repair returns a repaired copy of g and a report of what was inferred.
// A graph with more than one initial node is rejected.
func (e *Engine) Repair(g *graph.Graph) (*graph.Graph, *Report, error) {
	if g == nil {
		g = &graph.Graph{}
	}
	if err := g.Err(); err != nil {
		return nil, nil, err
	}

	r := &run{
		Engine: e,
		g:      g.Clone(),
		report: &Report{Graph: g.Name},
		logger: fsmgen.WithLoggerFields(e.logger, map[string]any{"graph": g.Name}),
	}
	r.logger.Debug("repair started nodes=%d edges=%d", g.Len(), g.EdgeCount())

	r.discoverStates()
	r.inventory()
	r.addCommonPatterns()
	r.connectOrphans()
	r.connectInitial()
	r.connectSuccessors()
	r.connectReferenced()
	if e.applySugg {
		r.applySuggestions()
	}
	r.collectOrphans()

	r.logger.Info("repair finished inferred=%d discovered=%d orphans=%d",
		len(r.report.Inferred), len(r.report.Discovered), len(r.report.Orphans))
	return r.g, r.report, nil
}

// pass 0
func (r *run) discoverStates() {
	if r.owner == nil {
		return
	}
	if r.resolver == nil {
		r.report.warn("state discovery for %s skipped: no catalog", r.owner)
		return
	}
	for _, t := range catalog.StatesFor(r.resolver, *r.owner) {
		if r.g.IndexOf(t.Name) != 0 {
			continue
		}
		r.g.Nodes = append(r.g.Nodes, graph.Node{Name: t.Name, Provenance: graph.Inferred})
		r.report.Discovered = append(r.report.Discovered, t.Name)
		r.logger.Debug("discovered state %s for %s", t.Name, r.owner)
	}
}

// pass 1
func (r *run) inventory() {
	r.pairs = r.collectPairs()
	for i := range r.g.Nodes {
		src := &r.g.Nodes[i]
		for _, edge := range src.Edges {
			target, ok := r.g.NodeAt(edge.Target)
			if !ok {
				continue
			}
			p := Pair{Source: src.Name, Target: target.Name}
			r.report.Existing = append(r.report.Existing, p)
			r.logger.Debug("existing: %s %v", p, edge.ConditionNames())
		}
	}
}

func (r *run) collectPairs() map[Pair]bool {
	pairs := make(map[Pair]bool)
	for i := range r.g.Nodes {
		src := &r.g.Nodes[i]
		for _, edge := range src.Edges {
			if target, ok := r.g.NodeAt(edge.Target); ok {
				pairs[Pair{Source: src.Name, Target: target.Name}] = true
			}
		}
	}
	return pairs
}

// pass 2
func (r *run) addCommonPatterns() {
	for i := 1; i <= r.g.Len(); i++ {
		node, _ := r.g.NodeAt(i)
		if len(node.Edges) > 0 {
			continue
		}
		rule, ok := r.patternFor(node.Name)
		if !ok {
			continue
		}
		if len(rule.Edges) == 0 {
			r.logger.Debug("terminal state %s rule=%s", node.Name, rule.Name)
			continue
		}
		for _, er := range rule.Edges {
			target := r.firstMatch(er.Target, i, nil)
			if target == 0 || r.g.HasEdgeTo(i, target) {
				if target == 0 && er.Required {
					r.report.warn("%s: no target matching %s for %s", node.Name, er.Target, er.Condition)
					r.logger.Warn("no target matching %s for %s", er.Target, node.Name)
				}
				continue
			}
			r.addEdge(PassPattern, rule.Name, i, target, er.Condition)
		}
	}
}

// pass 3
func (r *run) connectOrphans() {
	var orphans []int
	for i := 1; i <= r.g.Len(); i++ {
		node, _ := r.g.NodeAt(i)
		if len(node.Edges) == 0 && !node.Initial {
			orphans = append(orphans, i)
		}
	}
	for _, i := range orphans {
		node, _ := r.g.NodeAt(i)
		if target, rule := r.logicalTarget(i); target != 0 && !r.g.HasEdgeTo(i, target) {
			r.addEdge(PassOrphan, rule, i, target, r.conditionFor(i, target))
			continue
		}
		if target := r.nextInFlow(i); target != 0 && !r.g.HasEdgeTo(i, target) {
			r.addEdge(PassOrphan, "flow-order", i, target, "")
			continue
		}
		r.logger.Debug("no target for orphan %s", node.Name)
	}
}

// pass 4
func (r *run) connectInitial() {
	initial := r.g.InitialIndex()
	if initial == 0 {
		return
	}
	node, _ := r.g.NodeAt(initial)
	if len(node.Edges) > 0 {
		return
	}
	notInitial := func(n *graph.Node) bool { return !n.Initial }

	target, rule := 0, ""
	for _, stage := range r.vocab.EarlyStages {
		if target = r.firstMatch(All(stage), 0, notInitial); target != 0 {
			rule = "early-stage:" + strings.ToLower(stage)
			break
		}
	}
	if target == 0 {
		target = r.firstMatch(Match{}, 0, notInitial)
		rule = "first-node"
	}
	if target != 0 && !r.g.HasEdgeTo(initial, target) {
		r.addEdge(PassInitial, rule, initial, target, "")
	}
}

// pass 5a
func (r *run) connectSuccessors() {
	r.pairs = r.collectPairs()
	for i := 1; i <= r.g.Len(); i++ {
		node, _ := r.g.NodeAt(i)
		for j := 0; j < len(node.Edges); j++ {
			t := node.Edges[j].Target
			target, ok := r.g.NodeAt(t)
			if !ok || len(target.Edges) > 0 {
				continue
			}
			next, rule := r.potentialNext(t)
			if next == 0 || r.g.HasEdgeTo(t, next) {
				continue
			}
			r.addEdge(PassClosure, rule, t, next, r.conditionFor(t, next))
		}
	}
}

// pass 5b
func (r *run) connectReferenced() {
	var targets []int
	seen := make(map[int]bool)
	for i := range r.g.Nodes {
		for _, e := range r.g.Nodes[i].Edges {
			if r.g.ValidTarget(e.Target) && !seen[e.Target] {
				seen[e.Target] = true
				targets = append(targets, e.Target)
			}
		}
	}
	for _, t := range targets {
		target, _ := r.g.NodeAt(t)
		if len(target.Edges) > 0 {
			continue
		}
		next, rule := r.logicalTarget(t)
		if next == 0 {
			continue
		}
		nextNode, _ := r.g.NodeAt(next)
		if r.pairs[Pair{Source: target.Name, Target: nextNode.Name}] {
			continue
		}
		r.addEdge(PassReferenced, rule, t, next, r.conditionFor(t, next))
	}
}

func (r *run) applySuggestions() {
	for _, s := range suggest(r.vocab, r.g, r.pool, true) {
		node, _ := r.g.NodeAt(s.SourceIndex)
		edge := &node.Edges[s.EdgeIndex]
		for _, c := range s.Conditions {
			edge.Conditions = append(edge.Conditions, graph.ConditionRef{Name: c, Provenance: graph.Inferred})
		}
		r.report.Suggested = append(r.report.Suggested, s)
		r.logger.Debug("suggested: %s → %s %v", s.Source, s.Target, s.Conditions)
	}
}

func (r *run) collectOrphans() {
	incoming := make(map[int]bool)
	for i := range r.g.Nodes {
		for _, e := range r.g.Nodes[i].Edges {
			if r.g.ValidTarget(e.Target) && e.Target != i+1 {
				incoming[e.Target] = true
			}
		}
	}
	for i := range r.g.Nodes {
		n := r.g.Nodes[i]
		if len(n.Edges) > 0 {
			continue
		}
		if incoming[i+1] {
			r.report.DeadEnds = append(r.report.DeadEnds, n.Name)
			continue
		}
		r.report.Orphans = append(r.report.Orphans, n.Name)
		r.logger.Debug("orphan left unconnected: %s", n.Name)
	}
}

func (r *run) addEdge(pass Pass, rule string, from, to int, condition string) {
	src, _ := r.g.NodeAt(from)
	dst, _ := r.g.NodeAt(to)

	edge := graph.Edge{Target: to, Provenance: graph.Inferred}
	var conds []string
	if condition != "" {
		if r.pool[condition] {
			edge.Conditions = []graph.ConditionRef{{Name: condition, Provenance: graph.Inferred}}
			conds = []string{condition}
		} else {
			r.logger.Debug("condition %s not in pool, %s edge left unconditioned", condition, src.Name)
		}
	}
	r.g.AddEdge(from, edge)

	p := Pair{Source: src.Name, Target: dst.Name}
	if r.pairs != nil {
		r.pairs[p] = true
	}
	inferred := InferredEdge{
		Pass:        pass,
		Rule:        rule,
		Source:      src.Name,
		Target:      dst.Name,
		SourceIndex: from,
		TargetIndex: to,
		Conditions:  conds,
	}
	r.report.Inferred = append(r.report.Inferred, inferred)
	r.logger.Debug("inferred transition [%s/%s] %s %v", pass, rule, p, conds)
}

func (r *run) patternFor(name string) (PatternRule, bool) {
	for _, rule := range r.vocab.Patterns {
		if rule.Source.Matches(name) {
			return rule, true
		}
	}
	return PatternRule{}, false
}

// firstMatch returns the first node in declaration order, other than
// exclude, that matches m and accept.
func (r *run) firstMatch(m Match, exclude int, accept func(*graph.Node) bool) int {
	for i := 1; i <= r.g.Len(); i++ {
		if i == exclude {
			continue
		}
		node, _ := r.g.NodeAt(i)
		if !m.Matches(node.Name) {
			continue
		}
		if accept != nil && !accept(node) {
			continue
		}
		return i
	}
	return 0
}

func (r *run) logicalTarget(from int) (int, string) {
	node, _ := r.g.NodeAt(from)
	for _, rule := range r.vocab.Targets {
		if rule.Source.Matches(node.Name) {
			return r.firstMatch(rule.Target, from, nil), rule.Name
		}
	}
	return 0, ""
}

func (r *run) potentialNext(from int) (int, string) {
	node, _ := r.g.NodeAt(from)
	for _, rule := range r.vocab.Next {
		if !rule.Source.Matches(node.Name) {
			continue
		}
		next := r.firstMatch(rule.Target, from, func(n *graph.Node) bool {
			return !r.pairs[Pair{Source: node.Name, Target: n.Name}]
		})
		return next, rule.Name
	}
	return 0, ""
}

func (r *run) nextInFlow(from int) int {
	node, _ := r.g.NodeAt(from)
	order := r.vocab.FlowOrder
	start := -1
	for i, stage := range order {
		if All(stage).Matches(node.Name) {
			start = i
			break
		}
	}
	if start < 0 {
		return 0
	}
	for _, stage := range order[start+1:] {
		target := r.firstMatch(All(stage), from, func(n *graph.Node) bool {
			return !r.pairs[Pair{Source: node.Name, Target: n.Name}]
		})
		if target != 0 {
			return target
		}
	}
	return 0
}

func (r *run) conditionFor(from, to int) string {
	src, _ := r.g.NodeAt(from)
	dst, _ := r.g.NodeAt(to)
	for _, rule := range r.vocab.Conditions {
		if rule.Source.Matches(src.Name) && rule.Target.Matches(dst.Name) {
			return rule.Condition
		}
	}
	return ""
}
