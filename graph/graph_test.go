package graph

import (
	"testing"

	fsmgen "github.com/goliatone/go-fsmgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const customerYAML = `
name: CustomerStateMachine
nodes:
  - name: Idle
    initial: true
    edges:
      - target: 2
  - name: Moving
    edges:
      - target: 3
        conditions: [ArrivedCondition]
  - name: Done
    provenance: inferred
    edges:
      - target: 1
        provenance: inferred
        conditions:
          - name: ResetCondition
            provenance: inferred
`

func TestParseYAMLGraph(t *testing.T) {
	g, err := Parse([]byte(customerYAML))
	require.NoError(t, err)

	require.Equal(t, 3, g.Len())
	assert.Equal(t, "CustomerStateMachine", g.Name)
	assert.True(t, g.Nodes[0].Initial)
	assert.Equal(t, 2, g.Nodes[0].Edges[0].Target)
	assert.Equal(t, []string{"ArrivedCondition"}, g.Nodes[1].Edges[0].ConditionNames())
	assert.Equal(t, Authored, g.Nodes[1].Edges[0].Conditions[0].Provenance)
	assert.Equal(t, Inferred, g.Nodes[2].Provenance)
	assert.Equal(t, Inferred, g.Nodes[2].Edges[0].Provenance)
	assert.Equal(t, Inferred, g.Nodes[2].Edges[0].Conditions[0].Provenance)
}

func TestParseJSONGraph(t *testing.T) {
	g, err := Parse([]byte(`{"name":"m","nodes":[{"name":"A","initial":true,"edges":[{"target":2,"conditions":["Go"]}]},{"name":"B"}]}`))
	require.NoError(t, err)

	assert.Equal(t, 2, g.Len())
	assert.Equal(t, "Go", g.Nodes[0].Edges[0].Conditions[0].Name)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte("nodes: [::"))
	require.Error(t, err)
	assert.True(t, fsmgen.HasCode(err, fsmgen.ErrCodeParseFailed))
}

func TestParseRejectsUnknownProvenance(t *testing.T) {
	_, err := Parse([]byte("nodes:\n  - name: A\n    provenance: guessed\n"))
	require.Error(t, err)
}

func TestYAMLRoundTripKeepsProvenance(t *testing.T) {
	g, err := Parse([]byte(customerYAML))
	require.NoError(t, err)

	out, err := MarshalYAML(g)
	require.NoError(t, err)
	back, err := Parse(out)
	require.NoError(t, err)

	assert.Equal(t, g, back)
	assert.Contains(t, string(out), "- ArrivedCondition")
	assert.Contains(t, string(out), "provenance: inferred")
}

func TestJSONRoundTrip(t *testing.T) {
	g, err := Parse([]byte(customerYAML))
	require.NoError(t, err)

	out, err := MarshalJSON(g)
	require.NoError(t, err)
	back, err := Parse(out)
	require.NoError(t, err)

	assert.Equal(t, g.Fingerprint(), back.Fingerprint())
}

func TestCloneIsDeep(t *testing.T) {
	g, err := Parse([]byte(customerYAML))
	require.NoError(t, err)

	cp := g.Clone()
	cp.Nodes[1].Edges[0].Conditions[0].Name = "Changed"
	cp.AddEdge(1, Edge{Target: 3})

	assert.Equal(t, "ArrivedCondition", g.Nodes[1].Edges[0].Conditions[0].Name)
	assert.Len(t, g.Nodes[0].Edges, 1)
	assert.NotEqual(t, g.Fingerprint(), cp.Fingerprint())
}

func TestLookups(t *testing.T) {
	g, err := Parse([]byte(customerYAML))
	require.NoError(t, err)

	assert.Equal(t, 2, g.IndexOf("Moving"))
	assert.Equal(t, 0, g.IndexOf("Missing"))
	assert.Equal(t, 1, g.InitialIndex())
	assert.True(t, g.HasEdgeTo(2, 3))
	assert.False(t, g.HasEdgeTo(2, 1))
	assert.False(t, g.ValidTarget(0))
	assert.False(t, g.ValidTarget(99))
	assert.Equal(t, 3, g.EdgeCount())
	assert.Equal(t, "CustomerStateMachine[1:Idle* 2:Moving 3:Done]", g.String())
}

func TestFingerprintIsStable(t *testing.T) {
	a, err := Parse([]byte(customerYAML))
	require.NoError(t, err)
	b, err := Parse([]byte(customerYAML))
	require.NoError(t, err)

	assert.Len(t, a.Fingerprint(), 16)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestValidateReportsDiagnosticsInNaturalPathOrder(t *testing.T) {
	g := &Graph{Name: "broken", Nodes: []Node{
		{Name: "A", Initial: true, Edges: []Edge{{Target: 99}}},
		{Name: "B", Initial: true},
		{Name: "A"},
		{Name: ""},
		{Name: "C"}, {Name: "D"}, {Name: "E"}, {Name: "F"}, {Name: "G"}, {Name: "H"},
		{Name: "I", Edges: []Edge{{Target: 0}}},
	}}

	diags := g.Validate()

	codes := make([]string, 0, len(diags))
	for _, d := range diags {
		codes = append(codes, d.Code)
	}
	assert.Equal(t, []string{
		DiagDanglingTarget,
		DiagMultipleInitial,
		DiagDuplicateName,
		DiagEmptyName,
		DiagUnsetTarget,
	}, codes)
	assert.Equal(t, "nodes[10].edges[0].target", diags[4].Path)
	assert.Equal(t, []string{SeverityWarning, SeverityError, SeverityError, SeverityError, SeverityWarning},
		[]string{diags[0].Severity, diags[1].Severity, diags[2].Severity, diags[3].Severity, diags[4].Severity})
	assert.True(t, HasErrors(diags))

	err := g.Err()
	require.Error(t, err)
	assert.True(t, fsmgen.HasCode(err, fsmgen.ErrCodeInvalidGraph))
}

func TestRepeatedNameIsAnError(t *testing.T) {
	g := &Graph{Name: "twins", Nodes: []Node{
		{Name: "IdleState", Initial: true},
		{Name: "IdleState"},
	}}

	diags := g.Validate()
	require.Len(t, diags, 1)
	assert.Equal(t, DiagDuplicateName, diags[0].Code)
	assert.Equal(t, "nodes[1].name", diags[0].Path)
	assert.True(t, fsmgen.HasCode(g.Err(), fsmgen.ErrCodeInvalidGraph))
}

func TestValidGraphHasNoError(t *testing.T) {
	g, err := Parse([]byte(customerYAML))
	require.NoError(t, err)

	assert.Empty(t, g.Validate())
	assert.NoError(t, g.Err())
}
