// Package graph implements the dependency graph shared by the executor and
// the persistent graph manager: a mapping from stack name to the set of stack
// names it depends on.
package graph

import (
	"fmt"
	"sort"
	"strings"
)

// Graph is a directed graph of stack names. Edges point from dependent to
// dependency. The zero value is not usable; call New.
type Graph struct {
	nodes map[string]map[string]struct{}
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]map[string]struct{})}
}

// AddNode adds a node with no edges. Adding an existing node is a no-op.
func (g *Graph) AddNode(name string) {
	if _, ok := g.nodes[name]; !ok {
		g.nodes[name] = make(map[string]struct{})
	}
}

// AddEdge records that from depends on to, creating either node as needed.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	g.nodes[from][to] = struct{}{}
}

// HasNode reports whether name is in the graph.
func (g *Graph) HasNode(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Nodes returns all node names, sorted.
func (g *Graph) Nodes() []string {
	out := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Deps returns the dependencies of name, sorted. Unknown names yield nil.
func (g *Graph) Deps(name string) []string {
	deps, ok := g.nodes[name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(deps))
	for dep := range deps {
		out = append(out, dep)
	}
	sort.Strings(out)
	return out
}

// Dependents returns the nodes that depend on name, sorted.
func (g *Graph) Dependents(name string) []string {
	var out []string
	for node, deps := range g.nodes {
		if _, ok := deps[name]; ok {
			out = append(out, node)
		}
	}
	sort.Strings(out)
	return out
}

// Copy returns a deep copy of the graph.
func (g *Graph) Copy() *Graph {
	out := New()
	for name, deps := range g.nodes {
		out.AddNode(name)
		for dep := range deps {
			out.AddEdge(name, dep)
		}
	}
	return out
}

// Union returns a new graph containing the nodes and edges of both graphs.
func (g *Graph) Union(other *Graph) *Graph {
	out := g.Copy()
	for name, deps := range other.nodes {
		out.AddNode(name)
		for dep := range deps {
			out.AddEdge(name, dep)
		}
	}
	return out
}

// Diff returns the names of nodes present in g but absent from other, sorted.
func (g *Graph) Diff(other *Graph) []string {
	var out []string
	for name := range g.nodes {
		if !other.HasNode(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// CycleError reports a dependency cycle, naming its participants in order.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// Validate checks that the graph is acyclic and that every edge targets a
// known node. It returns a *CycleError for cyclic graphs.
func (g *Graph) Validate() error {
	const (
		white = 0 // unvisited
		grey  = 1 // on the current DFS path
		black = 2 // finished
	)
	color := make(map[string]int, len(g.nodes))
	var stack []string

	var visit func(name string) *CycleError
	visit = func(name string) *CycleError {
		color[name] = grey
		stack = append(stack, name)
		for _, dep := range g.Deps(name) {
			switch color[dep] {
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			case grey:
				// Trim the stack down to where the cycle starts.
				start := 0
				for i, n := range stack {
					if n == dep {
						start = i
						break
					}
				}
				cycle := append(append([]string{}, stack[start:]...), dep)
				return &CycleError{Cycle: cycle}
			}
		}
		stack = stack[:len(stack)-1]
		color[name] = black
		return nil
	}

	for _, name := range g.Nodes() {
		if color[name] == white {
			if err := visit(name); err != nil {
				return err
			}
		}
	}
	return nil
}

// Layers returns successive groups of nodes whose dependencies are all
// satisfied by earlier groups. Nodes within one layer are eligible to run
// concurrently. Fails with *CycleError if the graph is cyclic.
func (g *Graph) Layers() ([][]string, error) {
	remaining := make(map[string]int, len(g.nodes))
	for name, deps := range g.nodes {
		remaining[name] = len(deps)
	}

	dependents := make(map[string][]string, len(g.nodes))
	for name, deps := range g.nodes {
		for dep := range deps {
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var layers [][]string
	done := 0
	var ready []string
	for name, deg := range remaining {
		if deg == 0 {
			ready = append(ready, name)
		}
	}
	for len(ready) > 0 {
		sort.Strings(ready)
		layers = append(layers, ready)
		done += len(ready)
		var next []string
		for _, name := range ready {
			for _, dependent := range dependents[name] {
				remaining[dependent]--
				if remaining[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		ready = next
	}

	if done != len(g.nodes) {
		if err := g.Validate(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("graph has %d unreachable nodes", len(g.nodes)-done)
	}
	return layers, nil
}

// Reverse returns a graph with every edge flipped, used for destroy ordering.
func (g *Graph) Reverse() *Graph {
	out := New()
	for name, deps := range g.nodes {
		out.AddNode(name)
		for dep := range deps {
			out.AddEdge(dep, name)
		}
	}
	return out
}

// Restrict returns the subgraph induced by keep: only the named nodes, and
// only edges between them.
func (g *Graph) Restrict(keep []string) *Graph {
	set := make(map[string]struct{}, len(keep))
	for _, name := range keep {
		set[name] = struct{}{}
	}
	out := New()
	for name, deps := range g.nodes {
		if _, ok := set[name]; !ok {
			continue
		}
		out.AddNode(name)
		for dep := range deps {
			if _, ok := set[dep]; ok {
				out.AddEdge(name, dep)
			}
		}
	}
	return out
}
