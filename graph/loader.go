package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/zeebo/xxh3"
	"gopkg.in/yaml.v3"

	fsmgen "github.com/goliatone/go-fsmgen"
)

// Parse decodes a graph from YAML or JSON. Structural problems are not
// rejected here; call Validate for diagnostics.
func Parse(data []byte) (*Graph, error) {
	var g Graph
	// yaml can handle JSON too, so a single attempt is fine
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fsmgen.NewError(fsmgen.ErrParseFailed, "decode graph", err, nil)
	}
	return &g, nil
}

// Load reads and parses a graph file.
func Load(path string) (*Graph, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fsmgen.NewError(fsmgen.ErrParseFailed, fmt.Sprintf("read graph %s", path), err, map[string]any{"path": path})
	}
	return Parse(raw)
}

// MarshalYAML renders the graph as YAML with two-space indentation.
func MarshalYAML(g *Graph) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(g); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalJSON renders the graph as indented JSON.
func MarshalJSON(g *Graph) ([]byte, error) {
	return json.MarshalIndent(g, "", "  ")
}

// Fingerprint returns a stable hash of the graph contents. Two graphs with
// the same nodes, edges, conditions and provenance share a fingerprint.
func (g *Graph) Fingerprint() string {
	if g == nil {
		return ""
	}
	canonical, err := json.Marshal(g)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%016x", xxh3.Hash(canonical))
}

// String renders a compact one-line description, mostly for logs.
func (g *Graph) String() string {
	if g == nil {
		return "<nil graph>"
	}
	var buf bytes.Buffer
	buf.WriteString(g.Name)
	buf.WriteString("[")
	for i, n := range g.Nodes {
		if i > 0 {
			buf.WriteString(" ")
		}
		buf.WriteString(strconv.Itoa(i + 1))
		buf.WriteString(":")
		buf.WriteString(n.Name)
		if n.Initial {
			buf.WriteString("*")
		}
	}
	buf.WriteString("]")
	return buf.String()
}
