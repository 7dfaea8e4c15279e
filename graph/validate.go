package graph

import (
	"fmt"
	"sort"
	"strings"

	"facette.io/natsort"

	fsmgen "github.com/goliatone/go-fsmgen"
)

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

const (
	DiagMultipleInitial = "GRAPH001_MULTIPLE_INITIAL"
	DiagDanglingTarget  = "GRAPH002_DANGLING_TARGET"
	DiagEmptyName       = "GRAPH003_EMPTY_NAME"
	DiagDuplicateName   = "GRAPH004_DUPLICATE_NAME"
	DiagUnsetTarget     = "GRAPH005_UNSET_TARGET"
)

// Diagnostic is a deterministic validation message for editors and the CLI.
type Diagnostic struct {
	Code     string `json:"code" yaml:"code"`
	Severity string `json:"severity" yaml:"severity"`
	Message  string `json:"message" yaml:"message"`
	Path     string `json:"path" yaml:"path"`
}

// Validate inspects the graph. More than one initial node, an empty name or
// a repeated name is an error: nodes are addressed by name during repair
// and synthesis. Dangling or unset targets are expected while a graph is
// being authored and are reported as warnings.
func (g *Graph) Validate() []Diagnostic {
	if g == nil {
		return nil
	}
	var diags []Diagnostic
	seen := make(map[string]int, len(g.Nodes))
	initial := 0

	for i, n := range g.Nodes {
		path := fmt.Sprintf("nodes[%d]", i)
		name := strings.TrimSpace(n.Name)
		if name == "" {
			diags = append(diags, Diagnostic{
				Code:     DiagEmptyName,
				Severity: SeverityError,
				Message:  "node has no name and cannot be synthesized",
				Path:     path + ".name",
			})
		} else if first, dup := seen[name]; dup {
			diags = append(diags, Diagnostic{
				Code:     DiagDuplicateName,
				Severity: SeverityError,
				Message:  fmt.Sprintf("node %q duplicates nodes[%d]", name, first),
				Path:     path + ".name",
			})
		} else {
			seen[name] = i
		}

		if n.Initial {
			initial++
			if initial > 1 {
				diags = append(diags, Diagnostic{
					Code:     DiagMultipleInitial,
					Severity: SeverityError,
					Message:  fmt.Sprintf("node %q is marked initial but another node already is", n.Name),
					Path:     path + ".initial",
				})
			}
		}

		for j, e := range n.Edges {
			edgePath := fmt.Sprintf("%s.edges[%d].target", path, j)
			switch {
			case e.Target == 0:
				diags = append(diags, Diagnostic{
					Code:     DiagUnsetTarget,
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("edge from %q has no target", n.Name),
					Path:     edgePath,
				})
			case !g.ValidTarget(e.Target):
				diags = append(diags, Diagnostic{
					Code:     DiagDanglingTarget,
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("edge from %q targets missing node %d", n.Name, e.Target),
					Path:     edgePath,
				})
			}
		}
	}

	sortDiagnostics(diags)
	return diags
}

// Err returns an ErrInvalidGraph error when Validate reports any error.
func (g *Graph) Err() error {
	diags := g.Validate()
	errs := make([]Diagnostic, 0, len(diags))
	for _, d := range diags {
		if d.Severity == SeverityError {
			errs = append(errs, d)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	name := ""
	if g != nil {
		name = g.Name
	}
	return fsmgen.NewError(
		fsmgen.ErrInvalidGraph,
		fmt.Sprintf("graph %s: %s (%s)", name, errs[0].Message, errs[0].Code),
		nil,
		map[string]any{"diagnostics": errs},
	)
}

// HasErrors reports whether any diagnostic is an error.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

func sortDiagnostics(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		if a.Path != b.Path {
			return natsort.Compare(a.Path, b.Path)
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		return a.Message < b.Message
	})
}
