package recuperate

import (
	"fmt"

	"github.com/marcef-go/armrecover/candidate"
)

// ErrUnstableConvergence is returned when Recuperator.Run exhausts MaxPasses
// without the candidate store reaching a stable pruning fixpoint. The store
// is left in its last-pruned state regardless - recovery is non-fatal per
// §7.
type ErrUnstableConvergence struct {
	Passes int
}

func (e *ErrUnstableConvergence) Error() string {
	return fmt.Sprintf("recuperate: no stable fixpoint after %d passes", e.Passes)
}

// Recuperator runs the discrete-then-continuous convergence loop of §4.5
// over a Context, using Rules to score every candidate at every pass.
type Recuperator struct {
	Rules []Rule
	// MaxPasses bounds the discrete convergence loop. Zero means unbounded
	// (loop until stable).
	MaxPasses int
}

// NewRecuperator builds a Recuperator with the default rule set drawn from
// m.
func NewRecuperator(m ProbabilisticModel) *Recuperator {
	return &Recuperator{Rules: DefaultRules(m)}
}

// Run executes the convergence loop against ctx: repeatedly score every
// candidate at every address, then prune, until a pass removes nothing.
// Once stable, every remaining candidate is switched to Continuous scoring
// and rescored once. Returns the number of discrete passes performed and,
// if MaxPasses was exceeded without stability, an *ErrUnstableConvergence
// (the store is still left in its last-pruned state).
func (r *Recuperator) Run(ctx *Context) (passes int, err error) {
	for {
		passes++
		r.scorePass(ctx)

		removed := ctx.Store.RemoveBadCandidates()

		if removed == 0 {
			break
		}
		if r.MaxPasses > 0 && passes >= r.MaxPasses {
			return passes, &ErrUnstableConvergence{Passes: passes}
		}
	}

	for _, addr := range ctx.Store.Addresses() {
		for _, c := range ctx.Store.Get(addr) {
			c.Mode = candidate.Continuous
		}
	}
	r.scorePass(ctx)

	return passes, nil
}

// scorePass rescores every candidate at every address against the
// start-of-pass Context. Context is read-only during a pass (§5): rules
// read the store, metadata and CFG but the store's mutation - pruning -
// happens only after every candidate has been scored.
func (r *Recuperator) scorePass(ctx *Context) {
	for _, addr := range ctx.Store.Addresses() {
		for _, c := range ctx.Store.Get(addr) {
			for _, rule := range r.Rules {
				c.ScoresByRule[rule.ID()] = rule.Score(c, addr, ctx)
			}
		}
	}
}
