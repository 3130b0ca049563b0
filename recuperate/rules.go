package recuperate

import (
	"github.com/marcef-go/armrecover/arm"
	"github.com/marcef-go/armrecover/candidate"
)

// Rule is a pure scoring function: score(candidate, address, context) -> a
// value in [0, 1]. The engine records the result under ID() in
// candidate.ScoresByRule.
//
// A rule whose predicate does not pertain to this candidate at all (e.g. a
// branch-conditional rule scoring a non-branch instruction, or a
// neighbour-agreement rule scoring an address with no known neighbour on the
// relevant side) reports 1.0: no evidence either way, so it must not drag
// down the aggregate the way a genuine negative finding would.
type Rule interface {
	ID() string
	Score(c *candidate.Candidate, addr uint32, ctx *Context) float64
}

// DefaultRules returns the seven-rule default set drawn from m, in the order
// they appear in the shared model.
func DefaultRules(m ProbabilisticModel) []Rule {
	return []Rule{
		branchAfterFlagWrite{m},
		branchAfterFlagWritePrev{m},
		branchAfterFlagWriteAfter{m},
		branchAfterFlagWriteAny{m},
		bothConditionalsEqual{m},
		prevConditionalEqual{m},
		jumpInProgramInvalid{m},
	}
}

func isConditionalBranch(c *candidate.Candidate) bool {
	return c.IsBranch && c.Conditional != arm.ALWAYS
}

// branchAfterFlagWrite: candidate is a conditional branch, the nearest known
// preceding instruction writes flags, and both the nearest preceding and
// following known conditionals match the candidate's.
type branchAfterFlagWrite struct{ m ProbabilisticModel }

func (branchAfterFlagWrite) ID() string { return "branch_after_flag_write" }

func (r branchAfterFlagWrite) Score(c *candidate.Candidate, addr uint32, ctx *Context) float64 {
	if !isConditionalBranch(c) {
		return 1.0
	}
	n := ctx.Metadata.At(addr)
	if !n.HasPreceding || !n.HasFollowing {
		return 1.0
	}
	if n.PrecedingWritesFlags && n.Before[0] == c.Conditional && n.After[0] == c.Conditional {
		return r.m.BranchAfterCPSRAndNearCondAreEquals
	}
	return 1.0 - r.m.BranchAfterCPSRAndNearCondAreEquals
}

// branchAfterFlagWritePrev: as branchAfterFlagWrite, but only the preceding
// conditional need match.
type branchAfterFlagWritePrev struct{ m ProbabilisticModel }

func (branchAfterFlagWritePrev) ID() string { return "branch_after_flag_write_prev" }

func (r branchAfterFlagWritePrev) Score(c *candidate.Candidate, addr uint32, ctx *Context) float64 {
	if !isConditionalBranch(c) {
		return 1.0
	}
	n := ctx.Metadata.At(addr)
	if !n.HasPreceding {
		return 1.0
	}
	if n.PrecedingWritesFlags && n.Before[0] == c.Conditional {
		return r.m.BranchAfterCPSRAndPrevCondAreEquals
	}
	return 1.0 - r.m.BranchAfterCPSRAndPrevCondAreEquals
}

// branchAfterFlagWriteAfter: as branchAfterFlagWrite, but only the following
// conditional need match.
type branchAfterFlagWriteAfter struct{ m ProbabilisticModel }

func (branchAfterFlagWriteAfter) ID() string { return "branch_after_flag_write_after" }

func (r branchAfterFlagWriteAfter) Score(c *candidate.Candidate, addr uint32, ctx *Context) float64 {
	if !isConditionalBranch(c) {
		return 1.0
	}
	n := ctx.Metadata.At(addr)
	if !n.HasPreceding || !n.HasFollowing {
		return 1.0
	}
	if n.PrecedingWritesFlags && n.After[0] == c.Conditional {
		return r.m.BranchAfterCPSRAndAfterCondAreEquals
	}
	return 1.0 - r.m.BranchAfterCPSRAndAfterCondAreEquals
}

// branchAfterFlagWriteAny: a conditional branch follows a known flag write,
// with no requirement on conditional agreement at all.
type branchAfterFlagWriteAny struct{ m ProbabilisticModel }

func (branchAfterFlagWriteAny) ID() string { return "branch_after_flag_write_any" }

func (r branchAfterFlagWriteAny) Score(c *candidate.Candidate, addr uint32, ctx *Context) float64 {
	if !isConditionalBranch(c) {
		return 1.0
	}
	n := ctx.Metadata.At(addr)
	if n.HasPreceding && n.PrecedingWritesFlags {
		return r.m.BranchAfterCPSR
	}
	return 1.0 - r.m.BranchAfterCPSR
}

// bothConditionalsEqual: the candidate's conditional matches both the
// nearest preceding and following known conditionals.
type bothConditionalsEqual struct{ m ProbabilisticModel }

func (bothConditionalsEqual) ID() string { return "both_conditionals_equal" }

func (r bothConditionalsEqual) Score(c *candidate.Candidate, addr uint32, ctx *Context) float64 {
	n := ctx.Metadata.At(addr)
	if !n.HasPreceding || !n.HasFollowing {
		return 1.0
	}
	if n.Before[0] == c.Conditional && n.After[0] == c.Conditional {
		return r.m.BothConditionalsAreEquals
	}
	return 1.0 - r.m.BothConditionalsAreEquals
}

// prevConditionalEqual: the candidate's conditional matches the nearest
// preceding known conditional.
type prevConditionalEqual struct{ m ProbabilisticModel }

func (prevConditionalEqual) ID() string { return "prev_conditional_equal" }

func (r prevConditionalEqual) Score(c *candidate.Candidate, addr uint32, ctx *Context) float64 {
	n := ctx.Metadata.At(addr)
	if !n.HasPreceding {
		return 1.0
	}
	if n.Before[0] == c.Conditional {
		return r.m.PrevConditionalsAreEquals
	}
	return 1.0 - r.m.PrevConditionalsAreEquals
}

// jumpInProgramInvalid: the candidate is a PC-relative branch whose target
// lies inside the program image but is not reachable from it per the CFG -
// i.e. the static branch target and the graph's edges disagree.
type jumpInProgramInvalid struct{ m ProbabilisticModel }

func (jumpInProgramInvalid) ID() string { return "jump_in_program_invalid" }

func (r jumpInProgramInvalid) Score(c *candidate.Candidate, addr uint32, ctx *Context) float64 {
	if !c.IsBranch || c.BranchTargetKind != arm.PCRelative {
		return 1.0
	}
	target, ok := c.BranchTargetAddress()
	if !ok {
		return 1.0
	}
	if _, inImage := ctx.Program.At(target); !inImage {
		return 1.0
	}
	if ctx.Reaches(addr, target) {
		return 1.0 - r.m.JumpIsValid
	}
	return r.m.JumpIsValid
}
