package candidate

import (
	"fmt"
	"sort"
)

// ImpossibleStateError reports that pruning would have emptied an address's
// candidate list entirely. Release builds never see it - the pruner clamps
// to the last candidate instead - but a Strict store surfaces it as the
// internal assertion failure the error design calls for.
type ImpossibleStateError struct {
	Address uint32
}

func (e *ImpossibleStateError) Error() string {
	return fmt.Sprintf("candidate: pruning would empty the list at address %#x", e.Address)
}

func (s *Store) guardLastCandidate(addr uint32) {
	if s.Strict {
		panic(&ImpossibleStateError{Address: addr})
	}
}

// Store maps a corrupted address to its non-empty, ordered list of
// candidates. Uncorrupted addresses map to a singleton list. The list is
// kept sorted by descending score only when reporting; internal order is
// not a contract.
type Store struct {
	byAddress map[uint32][]*Candidate

	// Strict, when set, turns the "never empty" pruning guard into a
	// panic (ImpossibleState, per the error design) instead of silently
	// clamping to the last candidate. Intended for debug builds/tests;
	// production recovery runs leave it false.
	Strict bool
}

// NewStore builds an empty store.
func NewStore() *Store {
	return &Store{byAddress: map[uint32][]*Candidate{}}
}

// Set installs the candidate list for addr. The list must be non-empty.
func (s *Store) Set(addr uint32, candidates []*Candidate) {
	if len(candidates) == 0 {
		panic("candidate: store.Set called with an empty candidate list")
	}
	s.byAddress[addr] = candidates
}

// Get returns the candidate list at addr, or nil if addr is not in the
// store.
func (s *Store) Get(addr uint32) []*Candidate {
	return s.byAddress[addr]
}

// Addresses returns every address in the store, ascending.
func (s *Store) Addresses() []uint32 {
	out := make([]uint32, 0, len(s.byAddress))
	for a := range s.byAddress {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsCorrupted reports whether addr currently carries more than one
// candidate.
func (s *Store) IsCorrupted(addr uint32) bool {
	return len(s.byAddress[addr]) > 1
}

// SortByScoreDescending orders every address's candidate list by descending
// score, for reporting. This is not maintained as an invariant between
// calls.
func (s *Store) SortByScoreDescending() {
	for _, v := range s.byAddress {
		sort.SliceStable(v, func(i, j int) bool { return v[i].Score() > v[j].Score() })
	}
}

// RemoveBadCandidatesAt implements the pruner algorithm from spec §4.7,
// precisely, because tests depend on its exact behaviour:
//
//  1. Count candidates with score == 1.0 (ones) and 0 < score < 1 (partials).
//     Remove every candidate with score == 0.0 eagerly.
//  2. If ones > 0, remove every candidate whose score is < 1.0.
//  3. Otherwise leave the partials alone.
//
// It never drops the list to zero: the last remaining candidate is immune
// to removal regardless of its score. Returns the number of candidates
// removed.
func (s *Store) RemoveBadCandidatesAt(addr uint32) int {
	v := s.byAddress[addr]
	previous := len(v)

	oneCount := 0
	lessThanOneCount := 0
	i := 0
	for i < len(v) {
		score := v[i].Score()
		if len(v) == 1 {
			// Only the last candidate's would-be removal is guarded - a
			// score of exactly 1.0 (or a partial score with no "ones" yet
			// recorded) is never removed in the first place, so reaching
			// length 1 with one of those is not an impossible state.
			if score == 0.0 || (score < 1.0 && oneCount > 0) {
				s.guardLastCandidate(addr)
			}
			break
		}
		switch {
		case score == 1.0:
			oneCount++
			i++
		case score == 0.0:
			v = append(v[:i], v[i+1:]...)
		default:
			lessThanOneCount++
			if oneCount > 0 {
				v = append(v[:i], v[i+1:]...)
			} else {
				i++
			}
		}
	}

	// The loop above only removes a sub-1.0 candidate inline once oneCount
	// is already positive, so partials that precede the first 1.0 candidate
	// survive it. This second scan removes those: when oneCount > 0, every
	// remaining candidate scoring below 1.0 is dropped.
	if lessThanOneCount > 0 {
		i = 0
		for i < len(v) {
			if len(v) == 1 {
				if v[i].Score() < 1.0 && oneCount > 0 {
					s.guardLastCandidate(addr)
				}
				break
			}
			if v[i].Score() < 1.0 && oneCount > 0 {
				v = append(v[:i], v[i+1:]...)
			} else {
				i++
			}
		}
	}

	s.byAddress[addr] = v
	return previous - len(v)
}

// RemoveBadCandidates applies RemoveBadCandidatesAt to every address in the
// store and returns the total number of candidates removed.
func (s *Store) RemoveBadCandidates() int {
	total := 0
	for _, addr := range s.Addresses() {
		total += s.RemoveBadCandidatesAt(addr)
	}
	return total
}
