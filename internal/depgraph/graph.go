// Package depgraph orders tables by their foreign key dependencies.
//
// A Graph is scratch state for one sort: Sort consumes every edge it
// resolves, so a graph that sorted successfully has no edges left.
package depgraph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/yourbasic/graph"
)

// ErrGraphInconsistency is matched by every error Sort returns for a graph it
// cannot order.
var ErrGraphInconsistency = errors.New("table dependency graph is inconsistent")

// InconsistencyError reports the tables a sort could not place
type InconsistencyError struct {
	// Remaining lists the unsorted tables in lexical order
	Remaining []string
	// Cycles lists every group of tables that reference each other
	Cycles [][]string
}

func (e *InconsistencyError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d table(s) could not be ordered: %s",
		len(e.Remaining), strings.Join(e.Remaining, ", "))
	for _, cycle := range e.Cycles {
		fmt.Fprintf(&b, "; cycle: %s", strings.Join(cycle, " <-> "))
	}
	return b.String()
}

// Is lets errors.Is(err, ErrGraphInconsistency) match
func (e *InconsistencyError) Is(target error) bool {
	return target == ErrGraphInconsistency
}

// Graph is a directed graph where an edge A -> B means table A references table B
type Graph struct {
	dependsOn  map[string]map[string]struct{}
	dependents map[string]map[string]struct{}
}

// New creates an empty graph
func New() *Graph {
	return &Graph{
		dependsOn:  make(map[string]map[string]struct{}),
		dependents: make(map[string]map[string]struct{}),
	}
}

// AddNode adds a table with no edges. Adding a known table is a no-op.
func (g *Graph) AddNode(name string) {
	if _, ok := g.dependsOn[name]; ok {
		return
	}
	g.dependsOn[name] = make(map[string]struct{})
	g.dependents[name] = make(map[string]struct{})
}

// HasNode reports whether the table is part of the graph
func (g *Graph) HasNode(name string) bool {
	_, ok := g.dependsOn[name]
	return ok
}

// AddEdge records that from references to. Both tables are added if missing.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	g.dependsOn[from][to] = struct{}{}
	g.dependents[to][from] = struct{}{}
}

// RemoveEdge forgets that from references to. Unknown edges are ignored.
func (g *Graph) RemoveEdge(from, to string) {
	if deps, ok := g.dependsOn[from]; ok {
		delete(deps, to)
	}
	if deps, ok := g.dependents[to]; ok {
		delete(deps, from)
	}
}

// Nodes returns all tables in lexical order
func (g *Graph) Nodes() []string {
	return keys(g.dependsOn)
}

// Dependents returns the tables that reference name
func (g *Graph) Dependents(name string) []string {
	return keys(g.dependents[name])
}

// EdgeCount returns the number of edges still in the graph
func (g *Graph) EdgeCount() int {
	n := 0
	for _, deps := range g.dependsOn {
		n += len(deps)
	}
	return n
}

// Sort returns the tables so that every table comes after all tables it
// references. Ties are broken by name. Resolved edges are removed from the
// graph as the sort proceeds.
func (g *Graph) Sort() ([]string, error) {
	inDegree := make(map[string]int, len(g.dependsOn))
	var ready []string
	for name, deps := range g.dependsOn {
		inDegree[name] = len(deps)
		if len(deps) == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.dependsOn))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)

		for _, dependent := range g.Dependents(name) {
			g.RemoveEdge(dependent, name)
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = insertSorted(ready, dependent)
			}
		}
	}

	if len(order) == len(g.dependsOn) {
		return order, nil
	}

	placed := make(map[string]bool, len(order))
	for _, name := range order {
		placed[name] = true
	}
	var remaining []string
	for _, name := range g.Nodes() {
		if !placed[name] {
			remaining = append(remaining, name)
		}
	}

	return order, &InconsistencyError{
		Remaining: remaining,
		Cycles:    g.Cycles(),
	}
}

// Cycles returns every strongly connected group of tables, including
// tables that reference themselves. Each group is in lexical order and
// the groups are ordered by their first table.
func (g *Graph) Cycles() [][]string {
	names := g.Nodes()
	index := make(map[string]int, len(names))
	for i, name := range names {
		index[name] = i
	}

	m := graph.New(len(names))
	for from, deps := range g.dependsOn {
		for to := range deps {
			m.Add(index[from], index[to])
		}
	}

	var cycles [][]string
	for _, component := range graph.StrongComponents(m) {
		if len(component) == 1 && !m.Edge(component[0], component[0]) {
			continue
		}
		cycle := make([]string, len(component))
		for i, v := range component {
			cycle[i] = names[v]
		}
		sort.Strings(cycle)
		cycles = append(cycles, cycle)
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}

// insertSorted inserts s into a sorted slice maintaining sort order
func insertSorted(sorted []string, s string) []string {
	i := sort.SearchStrings(sorted, s)
	sorted = append(sorted, "")
	copy(sorted[i+1:], sorted[i:])
	sorted[i] = s
	return sorted
}

func keys[V any](set map[string]V) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
