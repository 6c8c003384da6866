// Package graph holds the component dependency graph: which component's
// template references types owned by which other component.
package graph

import "sort"

// Node is one component.
type Node struct {
	Name string
}

// Edge represents a directed relationship between two components.
type Edge struct {
	From string // Dependent component
	To   string // Component it depends on
	Kind RelationKind
	// Evidence lists the identifiers that produced the edge.
	Evidence []string
}

// Graph manages nodes and their relationships.
type Graph struct {
	Nodes      map[string]*Node
	Edges      []Edge
	Unresolved []Unresolved

	// Declared type name -> owning component names.
	owners map[string][]string
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes:  make(map[string]*Node),
		Edges:  []Edge{},
		owners: make(map[string][]string),
	}
}

// AddComponent adds a node and indexes the types it declares.
func (g *Graph) AddComponent(name string, declared []string) {
	if name == "" {
		return
	}
	if _, ok := g.Nodes[name]; !ok {
		g.Nodes[name] = &Node{Name: name}
	}
	for _, ident := range declared {
		if !contains(g.owners[ident], name) {
			g.owners[ident] = append(g.owners[ident], name)
		}
	}
}

// LinkReferences resolves the identifiers referenced by from to their
// owning components and records one edge per owner. Identifiers from
// itself declares are ignored. An identifier declared by several other
// components links to all of them and is recorded as ambiguous.
func (g *Graph) LinkReferences(from string, referenced []string) {
	evidence := make(map[string][]string)
	for _, ident := range referenced {
		owners := g.owners[ident]
		if contains(owners, from) {
			continue
		}
		if len(owners) == 0 {
			g.Unresolved = append(g.Unresolved, Unresolved{From: from, Identifier: ident, Reason: ReasonNoCandidate})
			continue
		}
		if len(owners) > 1 {
			g.Unresolved = append(g.Unresolved, Unresolved{
				From:       from,
				Identifier: ident,
				Reason:     ReasonAmbiguous,
				Candidates: append([]string(nil), owners...),
			})
		}
		for _, owner := range owners {
			evidence[owner] = append(evidence[owner], ident)
		}
	}

	targets := make([]string, 0, len(evidence))
	for to := range evidence {
		targets = append(targets, to)
	}
	sort.Strings(targets)
	for _, to := range targets {
		g.Edges = append(g.Edges, Edge{From: from, To: to, Kind: RelationUsesType, Evidence: evidence[to]})
	}
}

// GetDependencies returns the names of the components from depends on
// directly, sorted.
func (g *Graph) GetDependencies(from string) []string {
	var out []string
	for _, edge := range g.Edges {
		if edge.From == from && !contains(out, edge.To) {
			out = append(out, edge.To)
		}
	}
	sort.Strings(out)
	return out
}

// GetDependents returns the names of the components depending on to.
func (g *Graph) GetDependents(to string) []string {
	var out []string
	for _, edge := range g.Edges {
		if edge.To == to && !contains(out, edge.From) {
			out = append(out, edge.From)
		}
	}
	sort.Strings(out)
	return out
}

// Evidence returns the identifiers that link from to to.
func (g *Graph) Evidence(from, to string) []string {
	for _, edge := range g.Edges {
		if edge.From == from && edge.To == to {
			return edge.Evidence
		}
	}
	return nil
}

// Closure returns every component reachable from name, excluding name,
// sorted. Cycles are followed once.
func (g *Graph) Closure(name string) []string {
	seen := map[string]bool{name: true}
	queue := []string{name}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, dep := range g.GetDependencies(cur) {
			if !seen[dep] {
				seen[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	delete(seen, name)
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Cycles returns the strongly connected groups of more than one component,
// each sorted, in order of their first member.
func (g *Graph) Cycles() [][]string {
	names := make([]string, 0, len(g.Nodes))
	for n := range g.Nodes {
		names = append(names, n)
	}
	sort.Strings(names)

	index := 0
	indices := make(map[string]int)
	lowlink := make(map[string]int)
	onStack := make(map[string]bool)
	var stack []string
	var out [][]string

	var strongConnect func(v string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.GetDependencies(v) {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var group []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				group = append(group, w)
				if w == v {
					break
				}
			}
			if len(group) > 1 {
				sort.Strings(group)
				out = append(out, group)
			}
		}
	}

	for _, n := range names {
		if _, visited := indices[n]; !visited {
			strongConnect(n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
