package cfg

import "github.com/marcef-go/armrecover/arm"

// Graph is a directed multigraph over Nodes, stored as an arena: nodes live
// in an indexed slice and edges are node-index pairs held on the graph, not
// on the nodes. No node owns another.
type Graph struct {
	Nodes        []*Node
	successors   map[int][]int
	predecessors map[int][]int
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{successors: map[int][]int{}, predecessors: map[int][]int{}}
}

// AddNode allocates a new node of the given kind. A Block kind must carry a
// non-empty instruction list; every other kind must be empty - violating
// either is a programming error in the builder, so it panics rather than
// silently producing an inconsistent graph.
func (g *Graph) AddNode(kind Kind, instructions []arm.Instruction) *Node {
	if kind == Block && len(instructions) == 0 {
		panic("cfg: a BLOCK node must have instructions")
	}
	if kind != Block && len(instructions) != 0 {
		panic("cfg: only a BLOCK node may have instructions")
	}
	n := &Node{Index: len(g.Nodes), Kind: kind, Instructions: instructions, PhiFunctions: map[arm.Reg][]int{}}
	g.Nodes = append(g.Nodes, n)
	return n
}

// AddEdge adds a directed edge from -> to. Re-adding an existing edge is a
// no-op.
func (g *Graph) AddEdge(from, to int) {
	if g.HasEdge(from, to) {
		return
	}
	g.successors[from] = append(g.successors[from], to)
	g.predecessors[to] = append(g.predecessors[to], from)
}

// RemoveEdge deletes the edge from -> to, if present.
func (g *Graph) RemoveEdge(from, to int) {
	g.successors[from] = removeValue(g.successors[from], to)
	g.predecessors[to] = removeValue(g.predecessors[to], from)
}

// HasEdge reports whether an edge from -> to exists.
func (g *Graph) HasEdge(from, to int) bool {
	for _, s := range g.successors[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Successors returns the indices of to reachable directly from idx.
func (g *Graph) Successors(idx int) []int {
	return append([]int(nil), g.successors[idx]...)
}

// Predecessors returns the indices of nodes with a direct edge into idx.
func (g *Graph) Predecessors(idx int) []int {
	return append([]int(nil), g.predecessors[idx]...)
}

// RemoveNode deletes a node and every edge touching it. Used by
// RemoveConditionals.
func (g *Graph) RemoveNode(idx int) {
	for _, p := range g.predecessors[idx] {
		g.successors[p] = removeValue(g.successors[p], idx)
	}
	for _, s := range g.successors[idx] {
		g.predecessors[s] = removeValue(g.predecessors[s], idx)
	}
	delete(g.successors, idx)
	delete(g.predecessors, idx)
	g.Nodes[idx] = nil
}

// RemoveConditionals short-circuits every COND node: for each predecessor p
// and successor s of a COND node, it adds an edge p -> s if absent, then
// deletes the COND node. This is an auxiliary pass preparing the graph for
// an SSA-construction stage outside this engine's scope; the core recovery
// pipeline does not call it.
func (g *Graph) RemoveConditionals() {
	var conds []int
	for _, n := range g.Nodes {
		if n != nil && n.Kind == Cond {
			conds = append(conds, n.Index)
		}
	}
	for _, idx := range conds {
		preds := g.Predecessors(idx)
		succs := g.Successors(idx)
		for _, p := range preds {
			for _, s := range succs {
				g.AddEdge(p, s)
			}
		}
		g.RemoveNode(idx)
	}
}

func removeValue(s []int, v int) []int {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
