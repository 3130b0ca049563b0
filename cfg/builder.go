package cfg

import (
	"github.com/marcef-go/armrecover/arm"
	"github.com/marcef-go/armrecover/program"
)

// Build constructs an approximate CFG for prog's instructions in address
// order. It implements the three structural cases from the design:
//
//  1. Same conditional as previous: append to the current block, unless the
//     instruction is itself a branch (delegate to branch handling) or is
//     the target of a pending forward jump (start a fresh block there).
//  2. Different conditional: open a new BLOCK; a non-ALWAYS conditional
//     also gets a COND bifurcation node wired in front of it.
//  3. Branch instruction: a dedicated singleton block, wired to its
//     resolved target (splitting an existing block if needed), an
//     UNKNOWN_BRANCH sink if the target cannot be resolved, or recorded as
//     a pending jump if the target instruction has not been placed yet.
//
// Undefined instructions are skipped; they neither start nor end a block.
func Build(prog *program.Program) *Graph {
	b := &builder{
		g:               NewGraph(),
		instructionNode: map[uint32]int{},
		pendingJumps:    map[uint32][]int{},
	}
	return b.build(prog)
}

type builder struct {
	g               *Graph
	instructionNode map[uint32]int // address -> node index currently holding it
	pendingJumps    map[uint32][]int
}

func (b *builder) place(addr uint32, nodeIdx int) {
	b.instructionNode[addr] = nodeIdx
}

func (b *builder) build(prog *program.Program) *Graph {
	g := b.g
	root := g.AddNode(Root, nil)
	end := g.AddNode(End, nil)

	cb := root
	var lastCondNode *Node
	var lastCond arm.Condition
	hasLastCond := false

	for _, inst := range prog.Instructions {
		if inst.IsUndefined() {
			continue
		}

		if hasLastCond && inst.Conditional == lastCond {
			switch {
			case inst.IsBranch:
				cb = b.branchInstruction(cb, nil, inst, end, prog)
				hasLastCond = false
			case b.hasPendingJump(inst.Address):
				nb := g.AddNode(Block, []arm.Instruction{inst})
				b.place(inst.Address, nb.Index)
				b.resolvePendingJumps(inst.Address, nb)
				g.AddEdge(cb.Index, nb.Index)
				cb = nb
			default:
				cb.Instructions = append(cb.Instructions, inst)
				b.place(inst.Address, cb.Index)
			}
		} else {
			lastCond = inst.Conditional
			hasLastCond = true
			cb, lastCondNode = b.branchConditional(inst, cb, lastCondNode)
			if inst.IsBranch {
				b.branchInstruction(nil, cb, inst, end, prog)
			}
		}
	}

	if cb != nil && !g.HasEdge(cb.Index, end.Index) {
		g.AddEdge(cb.Index, end.Index)
	}
	return g
}

// branchConditional implements structural case 2: a different conditional
// than the previous instruction.
func (b *builder) branchConditional(inst arm.Instruction, cb, lastCondNode *Node) (newCb, newLastCondNode *Node) {
	g := b.g
	blk := g.AddNode(Block, []arm.Instruction{inst})
	b.place(inst.Address, blk.Index)

	if inst.Conditional != arm.ALWAYS {
		cond := g.AddNode(Cond, nil)
		g.AddEdge(cond.Index, blk.Index)
		if cb != nil && !cb.EndsInBranch() {
			g.AddEdge(cb.Index, cond.Index)
		}
		if lastCondNode != nil && !g.HasEdge(lastCondNode.Index, cond.Index) {
			g.AddEdge(lastCondNode.Index, cond.Index)
		}
		if b.hasPendingJump(inst.Address) {
			b.resolvePendingJumps(inst.Address, cond)
		}
		return blk, cond
	}

	if cb != nil && !cb.EndsInBranch() {
		g.AddEdge(cb.Index, blk.Index)
	}
	if lastCondNode != nil && !g.HasEdge(lastCondNode.Index, blk.Index) {
		g.AddEdge(lastCondNode.Index, blk.Index)
	}
	return blk, nil
}

// branchInstruction implements structural case 3. cbParam, when non-nil,
// gets an edge into the branch block (used when the branch is appended to
// an existing same-conditional run). branchParam, when non-nil, is an
// already-created-and-placed block to use as the branch node itself (used
// when branchConditional already built it this iteration).
//
// The returned node becomes the caller's new "current block" only when the
// branch carries a link: a plain branch does not fall through, so the
// caller's cb is left as passed in (nil, where the caller had none) and the
// next instruction's structural-case-2 handling will see EndsInBranch on
// whichever node it actually flows from.
func (b *builder) branchInstruction(cbParam, branchParam *Node, inst arm.Instruction, end *Node, prog *program.Program) *Node {
	g := b.g
	branch := branchParam
	if branch == nil {
		branch = g.AddNode(Block, []arm.Instruction{inst})
		b.place(inst.Address, branch.Index)
	}
	if cbParam != nil {
		g.AddEdge(cbParam.Index, branch.Index)
	}

	cb := cbParam

	target, ok := prog.BranchTarget(inst)
	if !ok {
		unknown := g.AddNode(UnknownBranch, nil)
		g.AddEdge(branch.Index, unknown.Index)
		g.AddEdge(unknown.Index, end.Index)
		if inst.IsBranchWithLink {
			cb = unknown
		}
		return cb
	}

	if inst.IsBranchWithLink {
		cb = branch
	}
	if toIdx, known := b.instructionNode[target.Address]; known {
		toNode := g.Nodes[toIdx]
		if toNode.Kind == Cond {
			g.AddEdge(branch.Index, toNode.Index)
		} else {
			b.splitNode(toNode, branch, target.Address)
		}
	} else {
		b.addPendingJump(target.Address, branch.Index)
	}
	return cb
}

// splitNode handles a branch landing in the middle of an already-built
// BLOCK: the block is split at the target instruction, predecessors of the
// original block migrate to the upper half, the upper half flows into the
// lower half, and the branch's edge goes into the lower half.
func (b *builder) splitNode(split, branch *Node, targetAddr uint32) {
	g := b.g
	idx := indexOfAddress(split.Instructions, targetAddr)
	if idx > 0 {
		up := g.AddNode(Block, append([]arm.Instruction(nil), split.Instructions[:idx]...))
		split.Instructions = split.Instructions[idx:]
		for _, inst := range up.Instructions {
			b.place(inst.Address, up.Index)
		}

		preds := g.Predecessors(split.Index)
		for _, p := range preds {
			g.RemoveEdge(p, split.Index)
			g.AddEdge(p, up.Index)
		}
		g.AddEdge(up.Index, split.Index)
	}
	g.AddEdge(branch.Index, split.Index)
}

func indexOfAddress(instructions []arm.Instruction, addr uint32) int {
	for i, inst := range instructions {
		if inst.Address == addr {
			return i
		}
	}
	return -1
}

func (b *builder) addPendingJump(addr uint32, sourceNode int) {
	b.pendingJumps[addr] = append(b.pendingJumps[addr], sourceNode)
}

func (b *builder) hasPendingJump(addr uint32) bool {
	return len(b.pendingJumps[addr]) > 0
}

func (b *builder) resolvePendingJumps(addr uint32, dest *Node) {
	for _, src := range b.pendingJumps[addr] {
		b.g.AddEdge(src, dest.Index)
	}
	delete(b.pendingJumps, addr)
}
