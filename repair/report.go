package repair

import (
	"fmt"
	"strings"
)

// Pass identifies the repair stage that inferred an element.
type Pass int

const (
	PassDiscovery Pass = iota
	PassPattern
	PassOrphan
	PassInitial
	PassClosure
	PassReferenced
	PassSuggest
)

func (p Pass) String() string {
	switch p {
	case PassDiscovery:
		return "discovery"
	case PassPattern:
		return "pattern"
	case PassOrphan:
		return "orphan"
	case PassInitial:
		return "initial"
	case PassClosure:
		return "closure"
	case PassReferenced:
		return "referenced"
	case PassSuggest:
		return "suggest"
	default:
		return fmt.Sprintf("pass(%d)", int(p))
	}
}

func (p Pass) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Pair is a source to target identity pair.
type Pair struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

func (p Pair) String() string {
	return p.Source + " → " + p.Target
}

// InferredEdge describes an edge added by the engine. Indexes are 1-based.
type InferredEdge struct {
	Pass        Pass     `json:"pass" yaml:"pass"`
	Rule        string   `json:"rule" yaml:"rule"`
	Source      string   `json:"source" yaml:"source"`
	Target      string   `json:"target" yaml:"target"`
	SourceIndex int      `json:"source_index" yaml:"source_index"`
	TargetIndex int      `json:"target_index" yaml:"target_index"`
	Conditions  []string `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

func (e InferredEdge) String() string {
	guard := "unconditional"
	if len(e.Conditions) > 0 {
		guard = strings.Join(e.Conditions, ", ")
	}
	return fmt.Sprintf("[%s/%s] %s → %s (%s)", e.Pass, e.Rule, e.Source, e.Target, guard)
}

// Report summarizes one repair run. Heuristic misses end up here rather
// than as errors.
type Report struct {
	Graph      string         `json:"graph,omitempty" yaml:"graph,omitempty"`
	Discovered []string       `json:"discovered,omitempty" yaml:"discovered,omitempty"`
	Existing   []Pair         `json:"existing,omitempty" yaml:"existing,omitempty"`
	Inferred   []InferredEdge `json:"inferred,omitempty" yaml:"inferred,omitempty"`
	Suggested  []Suggestion   `json:"suggested,omitempty" yaml:"suggested,omitempty"`
	// Orphans have neither outgoing nor incoming edges.
	Orphans []string `json:"orphans,omitempty" yaml:"orphans,omitempty"`
	// DeadEnds are reachable nodes without outgoing edges.
	DeadEnds []string `json:"dead_ends,omitempty" yaml:"dead_ends,omitempty"`
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Changed reports whether the run added anything.
func (r *Report) Changed() bool {
	return r != nil && (len(r.Discovered) > 0 || len(r.Inferred) > 0 || len(r.Suggested) > 0)
}

// InferredBy returns the inferred edges produced by pass p.
func (r *Report) InferredBy(p Pass) []InferredEdge {
	if r == nil {
		return nil
	}
	var out []InferredEdge
	for _, e := range r.Inferred {
		if e.Pass == p {
			out = append(out, e)
		}
	}
	return out
}

func (r *Report) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}
