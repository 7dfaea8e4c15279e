// Command fsmgen repairs state graphs and generates Go state machines
// from them.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	fsmgen "github.com/goliatone/go-fsmgen"
)

// CLI is the command tree. Global flags override fsmgen.yaml.
type CLI struct {
	Config         string `help:"Project file." placeholder:"PATH" default:"fsmgen.yaml"`
	CatalogPath    string `name:"catalog" help:"Type catalog, overrides the project file." placeholder:"PATH"`
	VocabularyPath string `name:"vocabulary" help:"Repair vocabulary, overrides the project file." placeholder:"PATH"`
	Owner          string `help:"Owner type, for example *example.com/shop.Customer." placeholder:"TYPE"`
	LogLevel       string `help:"Log level (trace, debug, info, warn, error)." placeholder:"LEVEL"`
	LogFormat      string `help:"Log format, text or json." placeholder:"FORMAT"`

	Repair   RepairCmd   `cmd:"" help:"Infer missing transitions and write the repaired graph."`
	Generate GenerateCmd `cmd:"" help:"Generate a Go state machine from a graph."`
	Check    CheckCmd    `cmd:"" help:"Validate a graph and report what generation would produce."`
	Catalog  CatalogCmd  `cmd:"" help:"List the states and conditions of the catalog."`
	Suggest  SuggestCmd  `cmd:"" help:"Suggest guards for unconditioned edges."`
}

// App is bound into every command's Run method.
type App struct {
	Project *Project
	Logger  fsmgen.Logger
	Out     io.Writer
	Err     io.Writer
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var cli CLI
	exit := -1
	parser, err := kong.New(&cli,
		kong.Name("fsmgen"),
		kong.Description("Repair state graphs and generate Go state machines."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(code int) { exit = code }),
		kong.UsageOnError(),
	)
	if err != nil {
		fmt.Fprintf(stderr, "fsmgen: %v\n", err)
		return 1
	}

	ctx, err := parser.Parse(args)
	if exit >= 0 {
		return exit
	}
	if err != nil {
		fmt.Fprintf(stderr, "fsmgen: %v\n", err)
		return 2
	}

	app, err := cli.app(stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "fsmgen: %v\n", err)
		return 1
	}

	if err := ctx.Run(app); err != nil {
		fmt.Fprintf(stderr, "fsmgen: %v\n", err)
		return 1
	}
	return 0
}

func (c *CLI) app(stdout, stderr io.Writer) (*App, error) {
	project, err := LoadProject(c.Config, c.Config != DefaultProjectFile)
	if err != nil {
		return nil, err
	}
	// Flag paths are relative to the working directory, not the project file.
	if c.CatalogPath != "" {
		project.Catalog = absPath(c.CatalogPath)
	}
	if c.VocabularyPath != "" {
		project.Vocabulary = absPath(c.VocabularyPath)
	}
	if c.Owner != "" {
		project.Owner = c.Owner
	}
	if c.LogLevel != "" {
		project.LogLevel = c.LogLevel
	}
	if c.LogFormat != "" {
		project.LogFormat = c.LogFormat
	}
	if err := project.Validate(); err != nil {
		return nil, err
	}

	return &App{
		Project: project,
		Logger:  project.Logger(stderr),
		Out:     stdout,
		Err:     stderr,
	}, nil
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
