package repair

import (
	"github.com/goliatone/go-fsmgen/graph"
)

// Suggestion proposes guards for an edge that has none. SourceIndex is
// 1-based like edge targets; EdgeIndex is the position in the source's
// edge list.
type Suggestion struct {
	Source      string   `json:"source" yaml:"source"`
	Target      string   `json:"target" yaml:"target"`
	SourceIndex int      `json:"source_index" yaml:"source_index"`
	EdgeIndex   int      `json:"edge_index" yaml:"edge_index"`
	Conditions  []string `json:"conditions" yaml:"conditions"`
}

// SuggestConditions lists guard suggestions for every unconditioned edge
// of g using the default vocabulary. Only identities in pool are offered.
// The graph is not modified.
func SuggestConditions(g *graph.Graph, pool []string) []Suggestion {
	return New(WithConditionPool(pool...)).SuggestConditions(g)
}

// SuggestConditions lists guard suggestions using the engine vocabulary
// and condition pool.
func (e *Engine) SuggestConditions(g *graph.Graph) []Suggestion {
	return suggest(e.vocab, g, e.pool, false)
}

func suggest(v *Vocabulary, g *graph.Graph, pool map[string]bool, inferredOnly bool) []Suggestion {
	if g == nil || v == nil {
		return nil
	}
	var out []Suggestion
	for i := range g.Nodes {
		src := g.Nodes[i]
		conds := suggestionFor(v, src.Name, pool)
		if len(conds) == 0 {
			continue
		}
		for j, edge := range src.Edges {
			if len(edge.Conditions) > 0 {
				continue
			}
			if inferredOnly && edge.Provenance != graph.Inferred {
				continue
			}
			target, ok := g.NodeAt(edge.Target)
			if !ok {
				continue
			}
			out = append(out, Suggestion{
				Source:      src.Name,
				Target:      target.Name,
				SourceIndex: i + 1,
				EdgeIndex:   j,
				Conditions:  append([]string(nil), conds...),
			})
		}
	}
	return out
}

func suggestionFor(v *Vocabulary, name string, pool map[string]bool) []string {
	for _, rule := range v.Suggestions {
		if !rule.Source.Matches(name) {
			continue
		}
		var out []string
		for _, c := range rule.Conditions {
			if pool[c] {
				out = append(out, c)
			}
		}
		return out
	}
	return nil
}
