package modloader

import (
	"fmt"
	"slices"
	"strings"
)

// CycleError reports nodes that could not be ordered because they lie on
// a dependency cycle.
type CycleError struct {
	Cycles [][]string
}

func (e *CycleError) Error() string {
	parts := make([]string, 0, len(e.Cycles))
	for _, c := range e.Cycles {
		parts = append(parts, strings.Join(append(slices.Clone(c), c[0]), " -> "))
	}
	return fmt.Sprintf("%s: %s", ErrCircularDependency, strings.Join(parts, "; "))
}

// Unwrap returns ErrCircularDependency so callers can use errors.Is.
func (e *CycleError) Unwrap() error { return ErrCircularDependency }

// DependencyGraph is a directed graph over mod ids. An edge from A to B
// means A must be ordered before B. Nodes keep their insertion order,
// which breaks ties during sorting so output is deterministic.
type DependencyGraph struct {
	index     map[string]int
	nodes     []string
	adjacency map[string][]string
	edges     map[[2]string]bool
}

// NewDependencyGraph creates an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		index:     make(map[string]int),
		adjacency: make(map[string][]string),
		edges:     make(map[[2]string]bool),
	}
}

// AddNode adds id if it is not already present.
func (g *DependencyGraph) AddNode(id string) {
	if _, ok := g.index[id]; ok {
		return
	}
	g.index[id] = len(g.nodes)
	g.nodes = append(g.nodes, id)
}

// HasNode reports whether id is in the graph.
func (g *DependencyGraph) HasNode(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Nodes returns the node ids in insertion order.
func (g *DependencyGraph) Nodes() []string {
	return slices.Clone(g.nodes)
}

// AddEdge records that from must precede to. Missing nodes are added.
// Duplicate edges are ignored.
func (g *DependencyGraph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	key := [2]string{from, to}
	if g.edges[key] {
		return
	}
	g.edges[key] = true
	g.adjacency[from] = append(g.adjacency[from], to)
}

// HasEdge reports whether the edge from -> to exists.
func (g *DependencyGraph) HasEdge(from, to string) bool {
	return g.edges[[2]string{from, to}]
}

// Reaches reports whether to is reachable from from along one or more edges.
func (g *DependencyGraph) Reaches(from, to string) bool {
	seen := make(map[string]bool)
	stack := slices.Clone(g.adjacency[from])
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == to {
			return true
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		stack = append(stack, g.adjacency[n]...)
	}
	return false
}

// WouldCycle reports whether adding from -> to would close a cycle.
func (g *DependencyGraph) WouldCycle(from, to string) bool {
	return from == to || g.Reaches(to, from)
}

// Cycles returns every strongly connected component that contains a
// cycle (more than one node, or a node with an edge to itself). Members
// of each component and the components themselves follow insertion order.
func (g *DependencyGraph) Cycles() [][]string {
	var (
		counter  int
		stack    []string
		cycles   [][]string
		strongly func(v string)
	)
	onStack := make(map[string]bool)
	indexOf := make(map[string]int)
	lowLink := make(map[string]int)
	visited := make(map[string]bool)

	strongly = func(v string) {
		visited[v] = true
		indexOf[v] = counter
		lowLink[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.adjacency[v] {
			if !visited[w] {
				strongly(w)
				lowLink[v] = min(lowLink[v], lowLink[w])
			} else if onStack[w] {
				lowLink[v] = min(lowLink[v], indexOf[w])
			}
		}

		if lowLink[v] != indexOf[v] {
			return
		}
		var component []string
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			component = append(component, w)
			if w == v {
				break
			}
		}
		if len(component) > 1 || g.HasEdge(v, v) {
			slices.SortFunc(component, func(a, b string) int { return g.index[a] - g.index[b] })
			cycles = append(cycles, component)
		}
	}

	for _, n := range g.nodes {
		if !visited[n] {
			strongly(n)
		}
	}
	slices.SortFunc(cycles, func(a, b []string) int { return g.index[a[0]] - g.index[b[0]] })
	return cycles
}

// TopologicalSort orders the nodes with Kahn's algorithm. Whenever several
// nodes are ready at once, the one inserted first is emitted first.
// A *CycleError is returned if any node could not be placed.
func (g *DependencyGraph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make([]int, len(g.nodes))
	for _, targets := range g.adjacency {
		for _, t := range targets {
			inDegree[g.index[t]]++
		}
	}

	// ready holds node indexes in ascending order.
	var ready []int
	for i, d := range inDegree {
		if d == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		i := ready[0]
		ready = ready[1:]
		node := g.nodes[i]
		order = append(order, node)

		for _, t := range g.adjacency[node] {
			ti := g.index[t]
			inDegree[ti]--
			if inDegree[ti] == 0 {
				pos, _ := slices.BinarySearch(ready, ti)
				ready = slices.Insert(ready, pos, ti)
			}
		}
	}

	if len(order) != len(g.nodes) {
		return order, &CycleError{Cycles: g.Cycles()}
	}
	return order, nil
}
