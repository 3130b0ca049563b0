// Package recuperate implements the probabilistic recuperator: a
// convergence loop that scores every candidate instruction against a fixed
// rule set and prunes the candidate store until it stabilises.
package recuperate

// ProbabilisticModel holds the named score constants the default rule set
// draws from. Values are the observed priors from the shared model; callers
// may substitute their own to tune recovery without touching rule code.
type ProbabilisticModel struct {
	// BranchAfterCPSRAndNearCondAreEquals scores a conditional branch
	// following a known flag write whose conditional matches both the
	// nearest preceding and following known conditionals.
	BranchAfterCPSRAndNearCondAreEquals float64 `json:"branch_after_cpsr_and_near_cond_are_equals"`
	// BranchAfterCPSRAndPrevCondAreEquals scores the same situation but
	// only requires the preceding conditional to match.
	BranchAfterCPSRAndPrevCondAreEquals float64 `json:"branch_after_cpsr_and_prev_cond_are_equals"`
	// BranchAfterCPSRAndAfterCondAreEquals scores the same situation but
	// only requires the following conditional to match.
	BranchAfterCPSRAndAfterCondAreEquals float64 `json:"branch_after_cpsr_and_after_cond_are_equals"`
	// BranchAfterCPSR scores any conditional branch following a known flag
	// write, regardless of conditional agreement.
	BranchAfterCPSR float64 `json:"branch_after_cpsr"`
	// BothConditionalsAreEquals scores a candidate whose conditional
	// matches both known neighbours.
	BothConditionalsAreEquals float64 `json:"both_conditionals_are_equals"`
	// PrevConditionalsAreEquals scores a candidate whose conditional
	// matches the preceding known neighbour.
	PrevConditionalsAreEquals float64 `json:"prev_conditionals_are_equals"`
	// JumpIsValid scores a branch target that lies inside the program
	// image but is unreachable per the CFG - inverted, so this is the
	// score applied when the jump is judged invalid.
	JumpIsValid float64 `json:"jump_is_valid"`
}

// DefaultProbabilisticModel returns the constants named in the shared model.
func DefaultProbabilisticModel() ProbabilisticModel {
	return ProbabilisticModel{
		BranchAfterCPSRAndNearCondAreEquals:  0.85,
		BranchAfterCPSRAndPrevCondAreEquals:  0.65,
		BranchAfterCPSRAndAfterCondAreEquals: 0.76,
		BranchAfterCPSR:                      0.60,
		BothConditionalsAreEquals:             0.70,
		PrevConditionalsAreEquals:             0.65,
		JumpIsValid:                           0.10,
	}
}
