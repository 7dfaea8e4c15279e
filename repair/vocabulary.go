package repair

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	fsmgen "github.com/goliatone/go-fsmgen"
)

// Match tests a node identity by case-insensitive substring terms. Every
// All term must occur, at least one Any term must occur (when Any is set)
// and no None term may occur. A zero Match matches everything.
type Match struct {
	All  []string `yaml:"all,omitempty"`
	Any  []string `yaml:"any,omitempty"`
	None []string `yaml:"none,omitempty"`
}

// All builds a Match requiring every term.
func All(terms ...string) Match { return Match{All: terms} }

// Any builds a Match requiring at least one term.
func Any(terms ...string) Match { return Match{Any: terms} }

// Except returns a copy of m that also rejects terms.
func (m Match) Except(terms ...string) Match {
	m.None = append(append([]string(nil), m.None...), terms...)
	return m
}

// IsZero reports whether m has no terms.
func (m Match) IsZero() bool {
	return len(m.All) == 0 && len(m.Any) == 0 && len(m.None) == 0
}

// Matches reports whether name satisfies m.
func (m Match) Matches(name string) bool {
	name = strings.ToLower(name)
	for _, t := range m.All {
		if !strings.Contains(name, strings.ToLower(t)) {
			return false
		}
	}
	if len(m.Any) > 0 {
		found := false
		for _, t := range m.Any {
			if strings.Contains(name, strings.ToLower(t)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, t := range m.None {
		if strings.Contains(name, strings.ToLower(t)) {
			return false
		}
	}
	return true
}

func (m Match) String() string {
	var parts []string
	if len(m.All) > 0 {
		parts = append(parts, strings.Join(m.All, "+"))
	}
	if len(m.Any) > 0 {
		parts = append(parts, strings.Join(m.Any, "|"))
	}
	if len(m.None) > 0 {
		parts = append(parts, "!"+strings.Join(m.None, "!"))
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}

// EdgeRule prescribes one edge of a PatternRule. A Required edge whose
// target cannot be found is reported as a warning.
type EdgeRule struct {
	Target    Match  `yaml:"target"`
	Condition string `yaml:"condition,omitempty"`
	Required  bool   `yaml:"required,omitempty"`
}

// PatternRule lists the edges a well known node kind gets. A rule with no
// edges marks a terminal kind.
type PatternRule struct {
	Name   string     `yaml:"name"`
	Source Match      `yaml:"source"`
	Edges  []EdgeRule `yaml:"edges,omitempty"`
}

// TargetRule maps a source kind to its logical successor.
type TargetRule struct {
	Name   string `yaml:"name"`
	Source Match  `yaml:"source"`
	Target Match  `yaml:"target"`
}

// ConditionRule picks a guard for an inferred source to target edge.
type ConditionRule struct {
	Source    Match  `yaml:"source"`
	Target    Match  `yaml:"target,omitempty"`
	Condition string `yaml:"condition"`
}

// SuggestionRule lists guards appropriate for edges leaving a source kind.
type SuggestionRule struct {
	Source     Match    `yaml:"source"`
	Conditions []string `yaml:"conditions"`
}

// Vocabulary holds every naming heuristic the engine applies. Rule lists
// are ordered: for Patterns, Targets, Next and Suggestions the first rule
// whose source matches decides; Conditions use the first rule matching
// both source and target.
type Vocabulary struct {
	Patterns    []PatternRule    `yaml:"patterns"`
	Targets     []TargetRule     `yaml:"targets"`
	Conditions  []ConditionRule  `yaml:"conditions"`
	Next        []TargetRule     `yaml:"next"`
	FlowOrder   []string         `yaml:"flow_order"`
	EarlyStages []string         `yaml:"early_stages"`
	Suggestions []SuggestionRule `yaml:"suggestions"`
}

const (
	arrived         = "ArrivedCondition"
	serviceComplete = "ServiceCompletedCondition"
	queueMoved      = "QueuePositionChangedCondition"
	patienceExpired = "PatienceExpiredCondition"
)

// DefaultVocabulary returns the customer flow vocabulary: entities spawn,
// move to a queue, wait, move to service, get served and leave.
func DefaultVocabulary() *Vocabulary {
	return &Vocabulary{
		Patterns: []PatternRule{
			{Name: "moving-to-queue", Source: All("movingtoqueue"), Edges: []EdgeRule{
				{Target: All("waitinginqueue"), Condition: arrived},
			}},
			{Name: "moving-to-service", Source: All("movingtoservice"), Edges: []EdgeRule{
				{Target: All("beingserved"), Condition: arrived},
			}},
			{Name: "being-served", Source: All("beingserved"), Edges: []EdgeRule{
				{Target: All("leaving"), Condition: serviceComplete},
			}},
			{Name: "waiting-in-queue", Source: All("waitinginqueue"), Edges: []EdgeRule{
				{Target: All("movingtoservice"), Condition: queueMoved},
				{Target: All("leaving"), Condition: patienceExpired, Required: true},
			}},
			{Name: "idle", Source: All("idle"), Edges: []EdgeRule{
				{Target: All("movingtoqueue")},
				{Target: All("movingtoservice")},
			}},
			{Name: "leaving", Source: All("leaving")},
		},
		Targets: []TargetRule{
			{Name: "queue-arrival", Source: All("moving", "queue"), Target: All("waiting")},
			{Name: "service-arrival", Source: All("moving", "service"), Target: All("served")},
			{Name: "queue-advance", Source: All("waiting"), Target: All("moving", "service")},
			{Name: "service-done", Source: Any("served", "service"), Target: Any("leaving", "exit")},
			{Name: "start", Source: Any("idle", "start"), Target: All("moving")},
		},
		Conditions: []ConditionRule{
			{Source: All("moving"), Condition: arrived},
			{Source: Any("served", "service"), Condition: serviceComplete},
			{Source: All("waiting"), Target: All("leaving"), Condition: patienceExpired},
			{Source: All("waiting"), Condition: queueMoved},
			{Source: All("idle"), Target: All("leaving"), Condition: patienceExpired},
		},
		Next: []TargetRule{
			{Name: "queue-advance", Source: All("waiting", "queue"), Target: All("moving", "service")},
			{Name: "queue-arrival", Source: All("moving", "queue"), Target: All("waiting")},
			{Name: "service-arrival", Source: All("moving", "service"), Target: Any("served", "service").Except("moving")},
			{Name: "service-done", Source: Any("served", "service"), Target: All("leaving")},
		},
		FlowOrder: []string{
			"start", "idle", "spawn",
			"moving", "queue",
			"waiting", "queue",
			"moving", "service",
			"served", "service",
			"leaving", "exit", "destroy",
		},
		EarlyStages: []string{"moving", "spawn", "enter", "start"},
		Suggestions: []SuggestionRule{
			{Source: All("moving"), Conditions: []string{arrived}},
			{Source: Any("served", "service"), Conditions: []string{serviceComplete}},
			{Source: All("waiting"), Conditions: []string{queueMoved, patienceExpired}},
			{Source: All("leaving"), Conditions: []string{arrived}},
		},
	}
}

// Validate rejects rules that would match every node.
func (v *Vocabulary) Validate() error {
	if v == nil {
		return invalidVocabulary("", "vocabulary is nil")
	}
	for i, r := range v.Patterns {
		if r.Source.IsZero() {
			return invalidVocabulary(fmt.Sprintf("patterns[%d]", i), "%s: source requires a term", r.Name)
		}
		for j, e := range r.Edges {
			if e.Target.IsZero() {
				return invalidVocabulary(fmt.Sprintf("patterns[%d].edges[%d]", i, j), "target requires a term")
			}
		}
	}
	for i, r := range v.Targets {
		if r.Source.IsZero() || r.Target.IsZero() {
			return invalidVocabulary(fmt.Sprintf("targets[%d]", i), "%s: source and target require a term", r.Name)
		}
	}
	for i, r := range v.Next {
		if r.Source.IsZero() || r.Target.IsZero() {
			return invalidVocabulary(fmt.Sprintf("next[%d]", i), "%s: source and target require a term", r.Name)
		}
	}
	for i, r := range v.Conditions {
		if r.Source.IsZero() || strings.TrimSpace(r.Condition) == "" {
			return invalidVocabulary(fmt.Sprintf("conditions[%d]", i), "source and condition are required")
		}
	}
	for i, r := range v.Suggestions {
		if r.Source.IsZero() {
			return invalidVocabulary(fmt.Sprintf("suggestions[%d]", i), "source requires a term")
		}
	}
	return nil
}

func invalidVocabulary(path, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if path != "" {
		msg = path + " " + msg
	}
	return fsmgen.NewError(fsmgen.ErrParseFailed, "invalid vocabulary: "+msg, nil, map[string]any{"path": path})
}

// ParseVocabulary decodes and validates a YAML vocabulary.
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	v := &Vocabulary{}
	if err := yaml.Unmarshal(data, v); err != nil {
		return nil, fsmgen.NewError(fsmgen.ErrParseFailed, "decode vocabulary", err, nil)
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// LoadVocabulary reads a vocabulary file.
func LoadVocabulary(path string) (*Vocabulary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fsmgen.NewError(fsmgen.ErrParseFailed, fmt.Sprintf("read vocabulary %s", path), err, map[string]any{"path": path})
	}
	return ParseVocabulary(raw)
}
