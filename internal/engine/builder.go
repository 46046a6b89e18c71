package engine

import (
	"github.com/strata-io/strata/internal/graph"
	"github.com/strata-io/strata/internal/ir"
	"github.com/strata-io/strata/internal/lookup"
)

// Build constructs the dependency graph for a set of stack definitions.
//
// Edges come from three sources: explicit requires entries, the inverse of
// required_by entries, and output lookup references discovered by a
// read-only scan of the raw (unresolved) variable trees. The scan never
// executes handlers; actual lookup resolution happens later, during
// execution. The returned graph is guaranteed acyclic.
func Build(stacks []*ir.Stack) (*graph.Graph, error) {
	byName := make(map[string]*ir.Stack, len(stacks))
	for _, s := range stacks {
		if err := s.Validate(); err != nil {
			return nil, configErrorf("%v", err)
		}
		if _, dup := byName[s.Name]; dup {
			return nil, configErrorf("duplicate stack name %q", s.Name)
		}
		byName[s.Name] = s
	}

	g := graph.New()
	for _, s := range stacks {
		g.AddNode(s.Name)
	}

	for _, s := range stacks {
		for _, dep := range s.Requires {
			if _, ok := byName[dep]; !ok {
				return nil, configErrorf("stack %s requires unknown stack %q", s.Name, dep)
			}
			g.AddEdge(s.Name, dep)
		}
		for _, dependent := range s.RequiredBy {
			if _, ok := byName[dependent]; !ok {
				return nil, configErrorf("stack %s is required_by unknown stack %q", s.Name, dependent)
			}
			g.AddEdge(dependent, s.Name)
		}

		for _, v := range s.Variables {
			for _, ref := range lookup.ScanOutputs(v.Value) {
				if ref.Stack == s.Name {
					return nil, configErrorf("stack %s references its own output %s", s.Name, ref.Output)
				}
				if _, ok := byName[ref.Stack]; !ok {
					return nil, configErrorf("stack %s references output of unknown stack %q", s.Name, ref.Stack)
				}
				g.AddEdge(s.Name, ref.Stack)
			}
		}
	}

	// Cycles must be rejected before any execution begins, not lazily
	// during the walk.
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}
