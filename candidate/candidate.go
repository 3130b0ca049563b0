// Package candidate holds the per-address candidate-instruction store used
// by the recuperator and constraint enumerator.
package candidate

import "github.com/marcef-go/armrecover/arm"

// ScoreMode selects how a Candidate's per-rule scores aggregate into a
// single score.
type ScoreMode uint8

const (
	// Discrete returns 1.0 iff every rule returned 1.0, else 0.0. This is
	// the default mode during pruning passes.
	Discrete ScoreMode = iota
	// Continuous returns the arithmetic mean of recorded rule scores. Used
	// once, on the final pass, after the discrete convergence loop is
	// stable.
	Continuous
)

// Candidate is a single proposed instruction at some address, extended with
// the mutable scoring state the recuperator accumulates across passes. The
// same address may carry many Candidates; they share the address but differ
// in encoding.
type Candidate struct {
	arm.Instruction

	ScoresByRule map[string]float64
	Ignore       bool
	Mode         ScoreMode
}

// New wraps a decoded instruction as a fresh, unscored candidate.
func New(inst arm.Instruction) *Candidate {
	return &Candidate{Instruction: inst, ScoresByRule: map[string]float64{}}
}

// Score aggregates ScoresByRule per the candidate's current Mode. A
// candidate with no recorded rule scores yet scores 0.0 in Discrete mode
// (no rule has reported 1.0) and 0.0 in Continuous mode (empty mean).
func (c *Candidate) Score() float64 {
	if len(c.ScoresByRule) == 0 {
		return 0
	}
	switch c.Mode {
	case Continuous:
		sum := 0.0
		for _, v := range c.ScoresByRule {
			sum += v
		}
		return sum / float64(len(c.ScoresByRule))
	default: // Discrete
		for _, v := range c.ScoresByRule {
			if v != 1.0 {
				return 0.0
			}
		}
		return 1.0
	}
}
