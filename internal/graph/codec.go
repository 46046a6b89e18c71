package graph

import (
	"encoding/json"
	"fmt"
	"sort"
)

// The persisted wire format is a flat JSON object mapping stack name to an
// array of dependency stack names:
//
//	{"first_stack": [], "second_stack": ["first_stack"]}

// MarshalJSON encodes the graph in the persisted format with sorted
// dependency lists. Object keys are sorted by encoding/json.
func (g *Graph) MarshalJSON() ([]byte, error) {
	out := make(map[string][]string, len(g.nodes))
	for name := range g.nodes {
		deps := g.Deps(name)
		if deps == nil {
			deps = []string{}
		}
		out[name] = deps
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the persisted format, replacing any prior contents.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid persisted graph: %w", err)
	}
	g.nodes = make(map[string]map[string]struct{}, len(raw))
	for name, deps := range raw {
		g.AddNode(name)
		for _, dep := range deps {
			g.AddEdge(name, dep)
		}
	}
	return nil
}

// Dot renders the graph in Graphviz DOT format. Pipe the output to 'dot' to
// generate an image.
func (g *Graph) Dot(title string) string {
	out := fmt.Sprintf("digraph %q {\n  rankdir = \"BT\";\n  node [shape = rect];\n\n", title)
	nodes := g.Nodes()
	for _, name := range nodes {
		out += fmt.Sprintf("  %q;\n", name)
	}
	out += "\n"
	var edges []string
	for _, name := range nodes {
		for _, dep := range g.Deps(name) {
			edges = append(edges, fmt.Sprintf("  %q -> %q;\n", name, dep))
		}
	}
	sort.Strings(edges)
	for _, e := range edges {
		out += e
	}
	return out + "}\n"
}
