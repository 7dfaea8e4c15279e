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
	"github.com/goliatone/go-fsmgen/repair"
	"github.com/goliatone/go-fsmgen/synth"
)

// DefaultProjectFile is read from the working directory when --config is not set.
const DefaultProjectFile = "fsmgen.yaml"

// Project is the fsmgen.yaml project file. Relative paths are resolved
// against the directory holding the file.
type Project struct {
	Catalog    string   `yaml:"catalog"`
	Vocabulary string   `yaml:"vocabulary,omitempty"`
	Owner      string   `yaml:"owner,omitempty"`
	Conditions []string `yaml:"conditions,omitempty"`
	Discover   bool     `yaml:"discover,omitempty"`
	LogLevel   string   `yaml:"log_level,omitempty"`
	LogFormat  string   `yaml:"log_format,omitempty"`

	Output synth.Config `yaml:"output"`

	dir string
}

// LoadProject reads path. A missing file is only an error when required.
func LoadProject(path string, required bool) (*Project, error) {
	p := &Project{}
	if strings.TrimSpace(path) == "" {
		path = DefaultProjectFile
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return p, nil
		}
		return nil, fsmgen.NewError(fsmgen.ErrParseFailed, fmt.Sprintf("read project %s", path), err,
			map[string]any{"path": path})
	}
	if err := yaml.Unmarshal(raw, p); err != nil {
		return nil, fsmgen.NewError(fsmgen.ErrParseFailed, fmt.Sprintf("decode project %s", path), err,
			map[string]any{"path": path})
	}
	p.dir = filepath.Dir(path)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the fields that can be checked without touching disk.
func (p *Project) Validate() error {
	if p.Owner != "" {
		if _, err := catalog.ParseTypeRef(p.Owner); err != nil {
			return fsmgen.NewError(fsmgen.ErrParseFailed, fmt.Sprintf("invalid owner %q", p.Owner), err,
				map[string]any{"owner": p.Owner})
		}
	}
	if _, err := fsmgen.ParseLevel(p.LogLevel); err != nil {
		return err
	}
	switch p.LogFormat {
	case "", "text", "json":
	default:
		return fsmgen.NewError(fsmgen.ErrParseFailed, fmt.Sprintf("invalid log format %q", p.LogFormat), nil,
			map[string]any{"log_format": p.LogFormat})
	}
	return nil
}

// Logger builds the CLI logger: plain lines by default, glog JSON for
// log_format json. The level defaults to warn.
func (p *Project) Logger(out io.Writer) fsmgen.Logger {
	level := p.LogLevel
	if level == "" {
		level = "warn"
	}
	if p.LogFormat == "json" {
		return fsmgen.NewGlogLogger(out, level)
	}
	return fsmgen.NewTextLogger(out, level)
}

func (p *Project) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || p.dir == "" {
		return path
	}
	return filepath.Join(p.dir, path)
}

// LoadCatalog returns nil when no catalog is configured.
func (p *Project) LoadCatalog() (*catalog.Static, error) {
	if p.Catalog == "" {
		return nil, nil
	}
	return catalog.Load(p.resolve(p.Catalog))
}

// LoadVocabulary falls back to the default vocabulary.
func (p *Project) LoadVocabulary() (*repair.Vocabulary, error) {
	if p.Vocabulary == "" {
		return repair.DefaultVocabulary(), nil
	}
	return repair.LoadVocabulary(p.resolve(p.Vocabulary))
}

// OwnerRef parses the owner type. It is zero when unset.
func (p *Project) OwnerRef() (catalog.TypeRef, error) {
	if p.Owner == "" {
		return catalog.TypeRef{}, nil
	}
	return catalog.ParseTypeRef(p.Owner)
}

// RepairOptions builds the repair engine options the project implies.
func (p *Project) RepairOptions(logger fsmgen.Logger) ([]repair.Option, error) {
	opts := []repair.Option{repair.WithLogger(logger)}

	vocab, err := p.LoadVocabulary()
	if err != nil {
		return nil, err
	}
	opts = append(opts, repair.WithVocabulary(vocab))

	cat, err := p.LoadCatalog()
	if err != nil {
		return nil, err
	}
	if cat != nil {
		opts = append(opts, repair.WithCatalog(cat))
	}
	if len(p.Conditions) > 0 {
		opts = append(opts, repair.WithConditionPool(p.Conditions...))
	}
	if p.Discover {
		owner, err := p.OwnerRef()
		if err != nil {
			return nil, err
		}
		if cat == nil || owner.IsZero() {
			return nil, fsmgen.NewError(fsmgen.ErrInvalidCatalog, "state discovery needs a catalog and an owner", nil, nil)
		}
		opts = append(opts, repair.WithStateDiscovery(owner))
	}
	return opts, nil
}
