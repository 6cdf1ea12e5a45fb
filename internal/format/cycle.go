package format

import (
	"fmt"
	"strings"
)

// Cycle is a group of definitions that refer to one another, directly or
// transitively. Recursive definitions have unbounded lookahead and cannot be
// compiled.
type Cycle struct {
	Path    []string `json:"path"`    // ["a", "b", "a"]
	Levels  []int    `json:"levels"`  // levels of Path, same order
	Message string   `json:"message"` // human-readable description
}

// Cycles reports every recursive group of definitions in m, ordered by the
// lowest level in each group.
//
// The reference graph has an edge from each definition to every definition
// its format names. Tarjan's algorithm finds the strongly connected
// components; components larger than one, and single definitions that name
// themselves, are cycles.
func (m *Module) Cycles() []Cycle {
	graph := make(referenceGraph, len(m.defs))
	for level := range m.defs {
		graph[level] = m.References(level)
	}

	var cycles []Cycle
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			cycles = append(cycles, m.sccToCycle(scc, graph))
		}
	}
	// SCCs are emitted in reverse topological order; report them by
	// definition order instead.
	for i := 1; i < len(cycles); i++ {
		for j := i; j > 0 && minLevel(cycles[j].Levels) < minLevel(cycles[j-1].Levels); j-- {
			cycles[j], cycles[j-1] = cycles[j-1], cycles[j]
		}
	}
	return cycles
}

// CheckAcyclic returns an error naming the first cycle in m, if any.
func (m *Module) CheckAcyclic() error {
	if cycles := m.Cycles(); len(cycles) > 0 {
		return fmt.Errorf("recursive format definitions: %s", strings.Join(cycles[0].Path, " -> "))
	}
	return nil
}

// referenceGraph maps level to the levels it references.
type referenceGraph [][]int

func hasSelfLoop(node int, graph referenceGraph) bool {
	for _, w := range graph[node] {
		if w == node {
			return true
		}
	}
	return false
}

func minLevel(levels []int) int {
	lo := levels[0]
	for _, l := range levels[1:] {
		lo = min(lo, l)
	}
	return lo
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in level order so the result is deterministic.
func tarjanSCC(graph referenceGraph) [][]int {
	var (
		index   = 0
		stack   []int
		indices = make(map[int]int)
		lowlink = make(map[int]int)
		onStack = make(map[int]bool)
		sccs    [][]int
	)

	var strongConnect func(int)
	strongConnect = func(v int) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root: pop its component
		if lowlink[v] == indices[v] {
			var scc []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for node := range graph {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

func (m *Module) sccToCycle(scc []int, graph referenceGraph) Cycle {
	levels := reconstructCyclePath(scc, graph)
	path := make([]string, len(levels))
	for i, l := range levels {
		path[i] = m.defs[l].Name
	}
	msg := fmt.Sprintf("recursive format definition: %s", strings.Join(path, " -> "))
	if len(scc) == 1 {
		msg = fmt.Sprintf("format %s refers to itself", path[0])
	}
	return Cycle{Path: path, Levels: levels, Message: msg}
}

// reconstructCyclePath walks edges inside the SCC from its lowest level
// until it returns to the start.
func reconstructCyclePath(scc []int, graph referenceGraph) []int {
	members := make(map[int]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}

	start := minLevel(scc)
	current := start
	path := []int{current}
	visited := make(map[int]bool)

	for {
		visited[current] = true

		next := -1
		for _, w := range graph[current] {
			if members[w] && (!visited[w] || w == start) {
				next = w
				break
			}
		}
		if next < 0 {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
