package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-fsmgen/graph"
)

const (
	exampleProject = "../../examples/customer/fsmgen.yaml"
	exampleGraph   = "../../examples/customer/graph.yaml"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestGenerateWritesMachineToStdout(t *testing.T) {
	code, out, errOut := runCLI(t, "--config", exampleProject, "generate", "--repair", exampleGraph)
	require.Equal(t, 0, code, errOut)

	assert.Contains(t, out, "// Code generated by fsmgen. DO NOT EDIT.")
	assert.Contains(t, out, "package customer")
	assert.Contains(t, out, "func NewCustomerStateMachine(owner *Customer, opts ...fsm.Option[*Customer]) *CustomerStateMachine {")
	assert.Contains(t, out, "// WaitingInQueueState → LeavingState: PatienceExpiredCondition [inferred]")
}

func TestGenerateWritesFileAndSummary(t *testing.T) {
	target := filepath.Join(t.TempDir(), "gen", "machine.go")
	code, out, errOut := runCLI(t, "--config", exampleProject, "generate", "--repair", "--machine", "Shopper", "-o", target, exampleGraph)
	require.Equal(t, 0, code, errOut)

	assert.Contains(t, out, "Will generate: 6 states, 7 transitions, 5 conditions")
	src, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(src), "type Shopper struct {")
}

func TestGenerateDryRunListsPlan(t *testing.T) {
	dir := t.TempDir()
	g := writeFile(t, dir, "graph.yaml", `
name: CustomerStateMachine
nodes:
  - name: IdleState
    initial: true
    edges:
      - target: 2
  - name: Ghost
`)
	code, out, errOut := runCLI(t, "--config", exampleProject, "generate", "--dry-run", g)
	require.Equal(t, 0, code, errOut)

	assert.Contains(t, out, "Will generate: 1 states, 0 transitions, 0 conditions (customer.CustomerStateMachine)")
	assert.Contains(t, out, "dropped nodes[1]: Ghost has no state type")
	assert.Contains(t, out, "dropped nodes[0].edges[0]: target 2 is not an eligible node")
}

func TestGenerateRequiresOwnerAndCatalog(t *testing.T) {
	code, _, errOut := runCLI(t, "generate", exampleGraph)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "owner type is required")

	code, _, errOut = runCLI(t, "--owner", "*example.com/shop.Customer", "generate", exampleGraph)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "catalog is required")
}

func TestRepairPrintsInferredGraph(t *testing.T) {
	code, out, errOut := runCLI(t, "--config", exampleProject, "repair", exampleGraph)
	require.Equal(t, 0, code, errOut)

	g, err := graph.Parse([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, 7, g.EdgeCount())
	assert.Contains(t, out, "provenance: inferred")
}

func TestRepairWritesJSONAndReport(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "repaired.json")
	report := filepath.Join(dir, "report.yaml")

	code, out, errOut := runCLI(t, "--config", exampleProject, "repair", "--format", "json", "-o", target, "--report", report, exampleGraph)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "repaired CustomerStateMachine: 7 inferred, 0 discovered, fingerprint ")

	raw, err := os.ReadFile(target)
	require.NoError(t, err)
	g, err := graph.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, 7, g.EdgeCount())

	raw, err = os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "dead_ends:")
	assert.Contains(t, string(raw), "- LeavingState")
}

func TestRepairIsDeterministic(t *testing.T) {
	_, first, _ := runCLI(t, "--config", exampleProject, "repair", exampleGraph)
	_, second, _ := runCLI(t, "--config", exampleProject, "repair", exampleGraph)
	assert.Equal(t, first, second)
}

func TestRepairDiscoversCatalogStates(t *testing.T) {
	dir := t.TempDir()
	g := writeFile(t, dir, "graph.yaml", `
name: CustomerStateMachine
nodes:
  - name: IdleState
    initial: true
`)
	code, out, errOut := runCLI(t, "--config", exampleProject, "repair", "--discover", g)
	require.Equal(t, 0, code, errOut)

	repaired, err := graph.Parse([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, 6, repaired.Len())
	assert.Equal(t, 2, repaired.IndexOf("MovingToQueueState"))
}

func TestCheckReportsDiagnostics(t *testing.T) {
	dir := t.TempDir()
	g := writeFile(t, dir, "graph.yaml", `
nodes:
  - name: A
    initial: true
    edges:
      - target: 9
  - name: B
    initial: true
`)
	code, out, _ := runCLI(t, "check", g)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "error GRAPH001_MULTIPLE_INITIAL nodes[1].initial")
	assert.Contains(t, out, "warning GRAPH002_DANGLING_TARGET nodes[0].edges[0].target")
}

func TestCheckSummarizesGeneration(t *testing.T) {
	code, out, errOut := runCLI(t, "--config", exampleProject, "check", exampleGraph)
	require.Equal(t, 0, code, errOut)

	assert.Contains(t, out, "Will generate: 6 states, 0 transitions, 0 conditions")
	assert.Contains(t, out, "ok CustomerStateMachine 6 nodes 0 edges fingerprint ")
}

func TestCatalogListsNaturallySortedNames(t *testing.T) {
	code, out, errOut := runCLI(t, "--config", exampleProject, "catalog")
	require.Equal(t, 0, code, errOut)

	assert.Equal(t, `states (6):
  BeingServedState
  IdleState
  LeavingState
  MovingToQueueState
  MovingToServiceState
  WaitingInQueueState
conditions (4):
  ArrivedCondition
  PatienceExpiredCondition
  QueuePositionChangedCondition
  ServiceCompletedCondition
`, out)

	code, out, _ = runCLI(t, "--config", exampleProject, "catalog", "--only", "condition")
	require.Equal(t, 0, code)
	assert.NotContains(t, out, "states")
}

func TestSuggestListsGuards(t *testing.T) {
	dir := t.TempDir()
	g := writeFile(t, dir, "graph.yaml", `
nodes:
  - name: WaitingInQueueState
    initial: true
    edges:
      - target: 2
  - name: LeavingState
`)
	code, out, errOut := runCLI(t, "--config", exampleProject, "suggest", g)
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "WaitingInQueueState → LeavingState: QueuePositionChangedCondition, PatienceExpiredCondition\n", out)

	code, out, _ = runCLI(t, "suggest", g)
	require.Equal(t, 0, code)
	assert.Equal(t, "no suggestions\n", out)
}

func TestRepairLogsWithGraphField(t *testing.T) {
	code, _, errOut := runCLI(t, "--config", exampleProject, "--log-level", "debug", "repair", exampleGraph)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, errOut, "DEBUG repair started nodes=6 edges=0 graph=CustomerStateMachine\n")

	code, _, errOut = runCLI(t, "--config", exampleProject, "--log-level", "info", "--log-format", "json", "repair", exampleGraph)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, errOut, "repair finished")
	assert.Contains(t, errOut, `"graph"`)
	assert.NotContains(t, errOut, "INFO repair finished")

	code, _, errOut = runCLI(t, "--config", exampleProject, "--log-format", "xml", "check", exampleGraph)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "invalid log format")
}

func TestMissingExplicitProjectFails(t *testing.T) {
	code, _, errOut := runCLI(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "check", exampleGraph)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "read project")
}

func TestProjectRejectsBadLogLevel(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "fsmgen.yaml", "log_level: loud\n")
	_, err := LoadProject(cfg, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestProjectResolvesPathsAgainstItsDirectory(t *testing.T) {
	p, err := LoadProject(exampleProject, true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("../../examples/customer", "catalog.yaml"), p.resolve(p.Catalog))

	cat, err := p.LoadCatalog()
	require.NoError(t, err)
	assert.Equal(t, 11, cat.Len())
}
