package candidate_test

import (
	"testing"

	"github.com/marcef-go/armrecover/arm"
	"github.com/marcef-go/armrecover/candidate"
)

func scored(score float64) *candidate.Candidate {
	c := candidate.New(arm.Instruction{})
	if score > 0 {
		c.ScoresByRule["r"] = score
	}
	c.Mode = candidate.Continuous
	return c
}

// Seed scenario 5: pruning with one perfect candidate.
func TestRemoveBadCandidatesAt_OnePerfect(t *testing.T) {
	s := candidate.NewStore()
	c1, c2, c3 := scored(1.0), scored(0.6), scored(0.0)
	s.Set(1, []*candidate.Candidate{c1, c2, c3})

	removed := s.RemoveBadCandidatesAt(1)
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	left := s.Get(1)
	if len(left) != 1 || left[0] != c1 {
		t.Fatalf("surviving candidates = %v, want [c1]", left)
	}
}

func TestRemoveBadCandidatesAt_NeverEmpties(t *testing.T) {
	s := candidate.NewStore()
	s.Set(1, []*candidate.Candidate{scored(0.0)})

	removed := s.RemoveBadCandidatesAt(1)
	if removed != 0 {
		t.Fatalf("removed = %d, want 0 (last candidate must be immune)", removed)
	}
	if len(s.Get(1)) != 1 {
		t.Fatalf("store emptied an address, invariant violated")
	}
}

func TestRemoveBadCandidatesAt_NoOnesKeepsPartials(t *testing.T) {
	s := candidate.NewStore()
	c1, c2 := scored(0.5), scored(0.7)
	s.Set(1, []*candidate.Candidate{c1, c2})

	removed := s.RemoveBadCandidatesAt(1)
	if removed != 0 {
		t.Fatalf("removed = %d, want 0 (no candidate scored 1.0 or 0.0)", removed)
	}
	if len(s.Get(1)) != 2 {
		t.Fatalf("partials were dropped without any perfect-scoring sibling")
	}
}

func TestRemoveBadCandidatesAt_MonotonicFixpoint(t *testing.T) {
	s := candidate.NewStore()
	s.Set(1, []*candidate.Candidate{scored(1.0), scored(0.4), scored(0.0), scored(0.0)})

	first := s.RemoveBadCandidatesAt(1)
	sizeAfterFirst := len(s.Get(1))
	second := s.RemoveBadCandidatesAt(1)

	if second != 0 {
		t.Fatalf("second call removed %d, pruning is not a fixpoint", second)
	}
	if first <= 0 {
		t.Fatalf("first call removed nothing, expected candidates to drop")
	}
	if len(s.Get(1)) != sizeAfterFirst {
		t.Fatalf("store size changed on the fixpoint call")
	}
}
