// Package solve implements the forward-constraint enumerator: a bounded
// depth-first search over the residual, score-tied candidates the
// recuperator's pruning left behind, rejecting assignments that violate
// hard constraints the scoring rules only approximated probabilistically.
package solve

import (
	"sort"

	"github.com/marcef-go/armrecover/arm"
	"github.com/marcef-go/armrecover/candidate"
	"github.com/marcef-go/armrecover/cfg"
	"github.com/marcef-go/armrecover/program"
)

// maxExplored bounds the total number of DFS decision points visited, as a
// safety valve against pathological candidate counts; it is not part of the
// documented contract and exists only so a hostile input cannot hang the
// engine.
const maxExplored = 2_000_000

// Result is the outcome of a Build run.
type Result struct {
	// SolutionSize is the number of complete assignments found that
	// survive every hard constraint.
	SolutionSize int
	// Solution is the first complete assignment found, address to chosen
	// candidate. When Soft is true it holds the fallback described below.
	Solution map[uint32]*candidate.Candidate
	// Soft reports whether no assignment survived the constraints, in
	// which case Solution instead holds the highest-scored single
	// candidate per address (ties broken by ascending encoding), with no
	// constraint checking applied.
	Soft bool
}

// Enumerator runs the forward-constraint search over prog and store.
type Enumerator struct {
	Program *program.Program
	Store   *candidate.Store
	Graph   *cfg.Graph

	// MaxSolutions bounds how many complete assignments are recorded
	// before the search stops early. Zero means unbounded.
	MaxSolutions int

	nodeOf     map[uint32]*cfg.Node
	functionOf map[uint32]int
}

// Build runs the search and returns the Result.
func (e *Enumerator) Build() *Result {
	e.index()

	addrs := make([]uint32, len(e.Program.Instructions))
	for i, inst := range e.Program.Instructions {
		addrs[i] = inst.Address
	}
	current := make(map[uint32]*candidate.Candidate, len(addrs))
	var solutions []map[uint32]*candidate.Candidate
	explored := 0

	var search func(i int, written arm.RegSet, funcIdx int) bool
	search = func(i int, written arm.RegSet, funcIdx int) bool {
		if e.MaxSolutions > 0 && len(solutions) >= e.MaxSolutions {
			return true
		}
		if i == len(addrs) {
			snap := make(map[uint32]*candidate.Candidate, len(current))
			for a, c := range current {
				snap[a] = c
			}
			solutions = append(solutions, snap)
			return e.MaxSolutions > 0 && len(solutions) >= e.MaxSolutions
		}

		addr := addrs[i]
		fi := e.functionOf[addr]
		w := written
		if fi != funcIdx {
			w = 0
		}

		for _, c := range e.orderedCandidates(addr) {
			explored++
			if explored > maxExplored {
				return true
			}
			if e.violates(c, addr, w, fi) {
				continue
			}
			current[addr] = c
			stop := search(i+1, w.Union(c.RegistersWritten), fi)
			delete(current, addr)
			if stop {
				return true
			}
		}
		return false
	}
	search(0, 0, -1)

	if len(solutions) == 0 {
		return &Result{Soft: true, Solution: e.softSolution(addrs)}
	}
	return &Result{SolutionSize: len(solutions), Solution: solutions[0]}
}

func (e *Enumerator) index() {
	e.nodeOf = map[uint32]*cfg.Node{}
	for _, n := range e.Graph.Nodes {
		if n == nil || n.Kind != cfg.Block {
			continue
		}
		for _, inst := range n.Instructions {
			e.nodeOf[inst.Address] = n
		}
	}
	e.functionOf = map[uint32]int{}
	for fi, fn := range e.Program.Functions {
		for _, inst := range fn.Instructions {
			e.functionOf[inst.Address] = fi
		}
	}
}

// orderedCandidates returns addr's candidates sorted by descending score,
// ties broken by ascending encoding.
func (e *Enumerator) orderedCandidates(addr uint32) []*candidate.Candidate {
	cs := append([]*candidate.Candidate(nil), e.Store.Get(addr)...)
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Score() != cs[j].Score() {
			return cs[i].Score() > cs[j].Score()
		}
		return cs[i].Encoding < cs[j].Encoding
	})
	return cs
}

// softSolution falls back to the highest-scored single candidate per
// address with no constraint checking, for when no complete assignment
// survives the search.
func (e *Enumerator) softSolution(addrs []uint32) map[uint32]*candidate.Candidate {
	out := make(map[uint32]*candidate.Candidate, len(addrs))
	for _, addr := range addrs {
		cs := e.orderedCandidates(addr)
		if len(cs) > 0 {
			out[addr] = cs[0]
		}
	}
	return out
}

// violates reports whether assigning c at addr breaks a hard constraint,
// given the registers definitely written so far in the current function
// (fi) and that function's index.
func (e *Enumerator) violates(c *candidate.Candidate, addr uint32, written arm.RegSet, fi int) bool {
	return e.violatesRegisterCoherence(c, written) ||
		e.violatesBranchReachability(c) ||
		e.violatesConditionalAgreement(c, addr) ||
		e.violatesFunctionBoundary(c, fi)
}

// violatesRegisterCoherence rejects a candidate that reads a register
// definitely not written by any predecessor in this function so far.
// SP, LR and PC are always considered available - they are populated by
// the calling convention or are the control-flow registers themselves, not
// values this function's own instructions would have to produce.
func (e *Enumerator) violatesRegisterCoherence(c *candidate.Candidate, written arm.RegSet) bool {
	for _, r := range []arm.Reg{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, arm.SP, arm.LR, arm.PC} {
		if !c.RegistersRead.Contains(r) {
			continue
		}
		if r == arm.SP || r == arm.LR || r == arm.PC {
			continue
		}
		if !written.Contains(r) {
			return true
		}
	}
	return false
}

// violatesBranchReachability rejects a PC-relative branch whose target
// falls outside the program image.
func (e *Enumerator) violatesBranchReachability(c *candidate.Candidate) bool {
	if !c.IsBranch || c.BranchTargetKind != arm.PCRelative {
		return false
	}
	target, ok := c.BranchTargetAddress()
	if !ok {
		return false
	}
	_, inImage := e.Program.At(target)
	return !inImage
}

// violatesConditionalAgreement rejects a candidate at a CFG join point
// (a BLOCK with more than one predecessor, where addr is the block's first
// instruction) whose conditional is neither ALWAYS nor a match for at least
// one incoming edge's terminal conditional.
func (e *Enumerator) violatesConditionalAgreement(c *candidate.Candidate, addr uint32) bool {
	if c.Conditional == arm.ALWAYS {
		return false
	}
	n, ok := e.nodeOf[addr]
	if !ok || len(n.Instructions) == 0 || n.Instructions[0].Address != addr {
		return false
	}
	preds := e.Graph.Predecessors(n.Index)
	if len(preds) < 2 {
		return false
	}
	for _, p := range preds {
		pn := e.Graph.Nodes[p]
		if pn == nil || len(pn.Instructions) == 0 {
			continue
		}
		if pn.Instructions[len(pn.Instructions)-1].Conditional == c.Conditional {
			return false
		}
	}
	return true
}

// violatesFunctionBoundary rejects a branch (other than branch-with-link)
// whose target lands in the middle of a different function.
func (e *Enumerator) violatesFunctionBoundary(c *candidate.Candidate, fi int) bool {
	if !c.IsBranch || c.IsBranchWithLink {
		return false
	}
	target, ok := c.BranchTargetAddress()
	if !ok {
		return false
	}
	targetFi, ok := e.functionOf[target]
	if !ok || targetFi == fi {
		return false
	}
	fn := e.Program.Functions[targetFi]
	if len(fn.Instructions) > 0 && fn.Instructions[0].Address == target {
		return false
	}
	return true
}
