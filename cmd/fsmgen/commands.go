package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	fsmgen "github.com/goliatone/go-fsmgen"
	"github.com/goliatone/go-fsmgen/catalog"
	"github.com/goliatone/go-fsmgen/graph"
	"github.com/goliatone/go-fsmgen/repair"
	"github.com/goliatone/go-fsmgen/synth"
)

// RepairCmd completes a graph with inferred transitions.
type RepairCmd struct {
	Graph    string `arg:"" help:"Graph file, YAML or JSON." type:"existingfile"`
	Output   string `short:"o" help:"Write the repaired graph here instead of stdout." placeholder:"PATH"`
	Format   string `help:"Output format." enum:"yaml,json" default:"yaml"`
	Discover bool   `help:"Add catalog states bound to the owner that the graph is missing."`
	Suggest  bool   `help:"Guard inferred edges with suggested conditions."`
	Report   string `help:"Write the repair report as YAML to this file." placeholder:"PATH"`
}

func (c *RepairCmd) Run(app *App) error {
	g, err := graph.Load(c.Graph)
	if err != nil {
		return err
	}
	if c.Discover {
		app.Project.Discover = true
	}
	opts, err := app.Project.RepairOptions(app.Logger)
	if err != nil {
		return err
	}
	if c.Suggest {
		opts = append(opts, repair.WithSuggestedConditions())
	}

	repaired, report, err := repair.New(opts...).Repair(g)
	if err != nil {
		return err
	}
	for _, w := range report.Warnings {
		app.Logger.Warn("repair warning: %s", w)
	}

	data, err := encodeGraph(repaired, c.Format)
	if err != nil {
		return err
	}
	if err := writeOutput(app.Out, c.Output, data); err != nil {
		return err
	}
	if c.Report != "" {
		raw, err := yaml.Marshal(report)
		if err != nil {
			return err
		}
		if err := writeOutput(app.Out, c.Report, raw); err != nil {
			return err
		}
	}
	if c.Output != "" {
		fmt.Fprintf(app.Out, "repaired %s: %d inferred, %d discovered, fingerprint %s\n",
			repaired.Name, len(report.Inferred), len(report.Discovered), repaired.Fingerprint())
	}
	return nil
}

// GenerateCmd emits the Go source of one machine.
type GenerateCmd struct {
	Graph      string `arg:"" help:"Graph file, YAML or JSON." type:"existingfile"`
	Output     string `short:"o" help:"Write the source here instead of stdout." placeholder:"PATH"`
	Package    string `help:"Package name of the generated file."`
	ImportPath string `help:"Import path of the generated package."`
	Machine    string `help:"Name of the generated machine type."`
	Runtime    string `help:"Import path of the fsm runtime."`
	Repair     bool   `help:"Repair the graph before generating."`
	DryRun     bool   `help:"Print what would be generated without writing source."`
}

func (c *GenerateCmd) Run(app *App) error {
	cfg := app.Project.Output
	if c.Package != "" {
		cfg.Package = c.Package
	}
	if c.ImportPath != "" {
		cfg.ImportPath = c.ImportPath
	}
	if c.Machine != "" {
		cfg.Machine = c.Machine
	}
	if c.Runtime != "" {
		cfg.Runtime = c.Runtime
	}

	cat, owner, err := requireCatalog(app.Project)
	if err != nil {
		return err
	}
	g, err := graph.Load(c.Graph)
	if err != nil {
		return err
	}
	if c.Repair {
		opts, err := app.Project.RepairOptions(app.Logger)
		if err != nil {
			return err
		}
		if g, _, err = repair.New(opts...).Repair(g); err != nil {
			return err
		}
	}

	engine := synth.New(cat, synth.WithConfig(cfg), synth.WithLogger(app.Logger))
	if c.DryRun {
		plan, err := engine.Plan(g, owner)
		if err != nil {
			return err
		}
		printPlan(app.Out, plan)
		return nil
	}

	res, err := engine.Generate(g, owner)
	if err != nil {
		return err
	}
	if err := writeOutput(app.Out, c.Output, res.Source); err != nil {
		return err
	}
	if c.Output != "" {
		fmt.Fprintf(app.Out, "wrote %s: %s\n", c.Output, res.Summary)
	}
	return nil
}

// CheckCmd validates a graph without writing anything.
type CheckCmd struct {
	Graph string `arg:"" help:"Graph file, YAML or JSON." type:"existingfile"`
}

func (c *CheckCmd) Run(app *App) error {
	g, err := graph.Load(c.Graph)
	if err != nil {
		return err
	}
	diags := g.Validate()
	for _, d := range diags {
		fmt.Fprintf(app.Out, "%s %s %s: %s\n", d.Severity, d.Code, d.Path, d.Message)
	}
	if graph.HasErrors(diags) {
		return g.Err()
	}

	owner, err := app.Project.OwnerRef()
	if err != nil {
		return err
	}
	cat, err := app.Project.LoadCatalog()
	if err != nil {
		return err
	}
	if cat != nil && !owner.IsZero() {
		engine := synth.New(cat, synth.WithConfig(app.Project.Output), synth.WithLogger(app.Logger))
		if !engine.CanGenerate(g) {
			return fsmgen.NewError(fsmgen.ErrNothingToGenerate,
				fmt.Sprintf("graph %s has no node backed by a state type", g.Name), nil, nil)
		}
		plan, err := engine.Plan(g, owner)
		if err != nil {
			return err
		}
		printPlan(app.Out, plan)
	}
	fmt.Fprintf(app.Out, "ok %s %d nodes %d edges fingerprint %s\n", g.Name, g.Len(), g.EdgeCount(), g.Fingerprint())
	return nil
}

// CatalogCmd lists catalog identities.
type CatalogCmd struct {
	Only string `help:"Restrict the listing to one capability." enum:"all,state,condition" default:"all"`
}

func (c *CatalogCmd) Run(app *App) error {
	cat, err := app.Project.LoadCatalog()
	if err != nil {
		return err
	}
	if cat == nil {
		return fsmgen.NewError(fsmgen.ErrInvalidCatalog, "no catalog configured", nil, nil)
	}
	owner, err := app.Project.OwnerRef()
	if err != nil {
		return err
	}

	if c.Only != string(catalog.CapabilityCondition) {
		states := cat.Names(catalog.CapabilityState)
		if !owner.IsZero() {
			states = catalog.SortedNames(catalog.StatesFor(cat, owner))
		}
		printList(app.Out, "states", states)
	}
	if c.Only != string(catalog.CapabilityState) {
		printList(app.Out, "conditions", cat.Names(catalog.CapabilityCondition))
	}
	return nil
}

// SuggestCmd lists guard suggestions without changing the graph.
type SuggestCmd struct {
	Graph string `arg:"" help:"Graph file, YAML or JSON." type:"existingfile"`
}

func (c *SuggestCmd) Run(app *App) error {
	g, err := graph.Load(c.Graph)
	if err != nil {
		return err
	}
	opts, err := app.Project.RepairOptions(app.Logger)
	if err != nil {
		return err
	}
	suggestions := repair.New(opts...).SuggestConditions(g)
	if len(suggestions) == 0 {
		fmt.Fprintln(app.Out, "no suggestions")
		return nil
	}
	for _, s := range suggestions {
		fmt.Fprintf(app.Out, "%s → %s: %s\n", s.Source, s.Target, strings.Join(s.Conditions, ", "))
	}
	return nil
}

func requireCatalog(p *Project) (*catalog.Static, catalog.TypeRef, error) {
	owner, err := p.OwnerRef()
	if err != nil {
		return nil, catalog.TypeRef{}, err
	}
	if owner.IsZero() {
		return nil, owner, fsmgen.NewError(fsmgen.ErrNothingToGenerate, "an owner type is required, set owner or --owner", nil, nil)
	}
	cat, err := p.LoadCatalog()
	if err != nil {
		return nil, owner, err
	}
	if cat == nil {
		return nil, owner, fsmgen.NewError(fsmgen.ErrNothingToGenerate, "a catalog is required, set catalog or --catalog", nil, nil)
	}
	return cat, owner, nil
}

func encodeGraph(g *graph.Graph, format string) ([]byte, error) {
	if format == "json" {
		data, err := graph.MarshalJSON(g)
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
	return graph.MarshalYAML(g)
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	return nil
}

func printPlan(w io.Writer, plan *synth.Plan) {
	fmt.Fprintf(w, "%s (%s.%s)\n", plan.Summary(), plan.Package, plan.Machine)
	for _, d := range plan.Dropped {
		fmt.Fprintf(w, "  dropped %s: %s\n", d.Path, d.Reason)
	}
}

func printList(w io.Writer, title string, names []string) {
	fmt.Fprintf(w, "%s (%d):\n", title, len(names))
	for _, n := range names {
		fmt.Fprintf(w, "  %s\n", n)
	}
}
