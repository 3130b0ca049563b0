package recuperate_test

import (
	"testing"

	"github.com/marcef-go/armrecover/arm"
	"github.com/marcef-go/armrecover/candidate"
	"github.com/marcef-go/armrecover/cfg"
	"github.com/marcef-go/armrecover/metadata"
	"github.com/marcef-go/armrecover/program"
	"github.com/marcef-go/armrecover/recuperate"
)

// addAlways builds an unconditional ADD Rd, Rn, Rm at addr.
func addAlways(addr, rd, rn, rm uint32) arm.Instruction {
	return arm.Decode(0xE0800000|(rn<<16)|(rd<<12)|rm, addr)
}

// addEQ builds the same ADD but conditioned on EQ.
func addEQ(addr, rd, rn, rm uint32) arm.Instruction {
	return arm.Decode(0x00800000|(rn<<16)|(rd<<12)|rm, addr)
}

func buildFixture(t *testing.T) (*program.Program, *candidate.Store) {
	t.Helper()
	i0 := addAlways(0, 1, 0, 0)
	i1 := addAlways(4, 2, 0, 0)
	i2 := addAlways(8, 3, 0, 0)

	prog, err := program.New([]arm.Instruction{i0, i1, i2}, []program.Function{{Name: "f", Instructions: []arm.Instruction{i0, i1, i2}}})
	if err != nil {
		t.Fatalf("program.New: %v", err)
	}

	store := candidate.NewStore()
	store.Set(0, []*candidate.Candidate{candidate.New(i0)})
	store.Set(4, []*candidate.Candidate{candidate.New(i1), candidate.New(addEQ(4, 2, 0, 0))})
	store.Set(8, []*candidate.Candidate{candidate.New(i2)})

	return prog, store
}

func TestRules_PrevConditionalEqual(t *testing.T) {
	prog, store := buildFixture(t)
	md := metadata.Collect(prog, store, metadata.DefaultWindow)
	g := cfg.Build(prog)
	ctx := recuperate.NewContext(store, md, prog, g)

	rule := recuperate.DefaultRules(recuperate.DefaultProbabilisticModel())[5] // prev_conditional_equal
	if rule.ID() != "prev_conditional_equal" {
		t.Fatalf("unexpected rule at index 5: %s", rule.ID())
	}

	candidates := store.Get(4)
	alwaysCandidate, eqCandidate := candidates[0], candidates[1]

	if got := rule.Score(alwaysCandidate, 4, ctx); got != 0.65 {
		t.Errorf("ALWAYS candidate matching preceding ALWAYS neighbour: got %v, want 0.65", got)
	}
	if got := rule.Score(eqCandidate, 4, ctx); got != 0.35 {
		t.Errorf("EQ candidate mismatching preceding ALWAYS neighbour: got %v, want 0.35", got)
	}
}

func TestRules_InapplicableReturnsNeutralOne(t *testing.T) {
	i0 := addAlways(0, 1, 0, 0)
	prog, err := program.New([]arm.Instruction{i0}, []program.Function{{Name: "f", Instructions: []arm.Instruction{i0}}})
	if err != nil {
		t.Fatalf("program.New: %v", err)
	}
	store := candidate.NewStore()
	store.Set(0, []*candidate.Candidate{candidate.New(i0)})
	md := metadata.Collect(prog, store, metadata.DefaultWindow)
	g := cfg.Build(prog)
	ctx := recuperate.NewContext(store, md, prog, g)

	c := store.Get(0)[0]
	for _, rule := range recuperate.DefaultRules(recuperate.DefaultProbabilisticModel()) {
		if got := rule.Score(c, 0, ctx); got != 1.0 {
			t.Errorf("rule %s on a fully isolated instruction: got %v, want 1.0", rule.ID(), got)
		}
	}
}

func TestRecuperator_NeverEmptiesAndBoundsPasses(t *testing.T) {
	prog, store := buildFixture(t)
	md := metadata.Collect(prog, store, metadata.DefaultWindow)
	g := cfg.Build(prog)
	ctx := recuperate.NewContext(store, md, prog, g)

	r := recuperate.NewRecuperator(recuperate.DefaultProbabilisticModel())
	r.MaxPasses = 10

	passes, err := r.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if passes < 1 {
		t.Fatalf("expected at least one pass, got %d", passes)
	}

	for _, addr := range store.Addresses() {
		if len(store.Get(addr)) == 0 {
			t.Fatalf("address %#x was emptied, violating the never-empty invariant", addr)
		}
	}
}

func TestRecuperator_EveryRuleScoreWithinUnitInterval(t *testing.T) {
	prog, store := buildFixture(t)
	md := metadata.Collect(prog, store, metadata.DefaultWindow)
	g := cfg.Build(prog)
	ctx := recuperate.NewContext(store, md, prog, g)

	r := recuperate.NewRecuperator(recuperate.DefaultProbabilisticModel())
	r.MaxPasses = 10
	if _, err := r.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, addr := range store.Addresses() {
		for _, c := range store.Get(addr) {
			for rule, score := range c.ScoresByRule {
				if score < 0 || score > 1 {
					t.Errorf("rule %s at %#x produced out-of-range score %v", rule, addr, score)
				}
			}
		}
	}
}
