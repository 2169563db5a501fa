package model

import "sort"

// parentGraph maps a variable name to the variables it reads.
type parentGraph map[string][]string

func (m *Model) graph() parentGraph {
	g := make(parentGraph, len(m.vars))
	for _, v := range m.vars {
		g[v.Name] = append([]string{}, v.deps...)
	}
	return g
}

// findCycle returns one cycle of g as a closed path, or nil when g is a DAG.
//
// Strongly connected components come from Tarjan's algorithm; any component
// with more than one node, or a node reading itself, is a cycle.
func findCycle(g parentGraph) []string {
	for _, scc := range tarjanSCC(g) {
		if len(scc) > 1 {
			return cyclePath(scc, g)
		}
		if hasSelfLoop(scc[0], g) {
			return []string{scc[0], scc[0]}
		}
	}
	return nil
}

func hasSelfLoop(node string, g parentGraph) bool {
	for _, w := range g[node] {
		if w == node {
			return true
		}
	}
	return false
}

func tarjanSCC(g parentGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sort.Strings(scc)
			sccs = append(sccs, scc)
		}
	}

	// Sorted roots keep the reported cycle stable across runs.
	nodes := make([]string, 0, len(g))
	for n := range g {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	for _, n := range nodes {
		if _, visited := indices[n]; !visited {
			strongConnect(n)
		}
	}
	return sccs
}

// cyclePath walks edges inside scc from its first member back to itself.
func cyclePath(scc []string, g parentGraph) []string {
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)
	for {
		visited[current] = true
		next := ""
		for _, w := range g[current] {
			if members[w] && (!visited[w] || w == start) {
				next = w
				break
			}
		}
		if next == "" {
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

// topoOrder returns the variables so that every variable follows the ones it
// reads. Ties keep declaration order.
func (m *Model) topoOrder() []*Var {
	seen := make(map[string]bool, len(m.vars))
	order := make([]*Var, 0, len(m.vars))
	var visit func(v *Var)
	visit = func(v *Var) {
		if seen[v.Name] {
			return
		}
		seen[v.Name] = true
		for _, d := range v.deps {
			visit(m.byName[d])
		}
		order = append(order, v)
	}
	for _, v := range m.vars {
		visit(v)
	}
	return order
}
