package recuperate

import (
	"github.com/marcef-go/armrecover/candidate"
	"github.com/marcef-go/armrecover/cfg"
	"github.com/marcef-go/armrecover/metadata"
	"github.com/marcef-go/armrecover/program"
)

// Context is the read-only world a rule scores against: the full candidate
// store, the precomputed neighbourhood metadata, the program image, and the
// approximate CFG. Per §5, all of it is read-only during a pass.
type Context struct {
	Store    *candidate.Store
	Metadata *metadata.Metadata
	Program  *program.Program
	Graph    *cfg.Graph

	nodeOf map[uint32]*cfg.Node
}

// NewContext builds a Context and indexes the graph's BLOCK nodes by the
// addresses they contain, once, for O(1) reachability lookups during
// scoring.
func NewContext(store *candidate.Store, md *metadata.Metadata, prog *program.Program, g *cfg.Graph) *Context {
	ctx := &Context{Store: store, Metadata: md, Program: prog, Graph: g, nodeOf: map[uint32]*cfg.Node{}}
	for _, n := range g.Nodes {
		if n == nil || n.Kind != cfg.Block {
			continue
		}
		for _, inst := range n.Instructions {
			ctx.nodeOf[inst.Address] = n
		}
	}
	return ctx
}

// NodeContaining returns the BLOCK node holding addr, if any.
func (c *Context) NodeContaining(addr uint32) (*cfg.Node, bool) {
	n, ok := c.nodeOf[addr]
	return n, ok
}

// Reaches reports whether the BLOCK node containing to is reachable from
// the BLOCK node containing from by any path of graph edges, through nodes
// of any kind. Two addresses in the same BLOCK always reach each other.
func (c *Context) Reaches(from, to uint32) bool {
	fromNode, ok := c.NodeContaining(from)
	if !ok {
		return false
	}
	toNode, ok := c.NodeContaining(to)
	if !ok {
		return false
	}
	seen := map[int]bool{}
	var visit func(idx int) bool
	visit = func(idx int) bool {
		if idx == toNode.Index {
			return true
		}
		if seen[idx] {
			return false
		}
		seen[idx] = true
		for _, s := range c.Graph.Successors(idx) {
			if visit(s) {
				return true
			}
		}
		return false
	}
	return visit(fromNode.Index)
}
