package report

import (
	"fmt"
	"io"

	"github.com/marcef-go/armrecover/candidate"
	"github.com/marcef-go/armrecover/program"
)

// SolutionQuality summarises how close the current candidate store is to
// the ground-truth original program.
type SolutionQuality struct {
	Total       int
	Unambiguous int
	Ambiguous   int
	Correct     int
	Incorrect   int
}

// Measure computes a SolutionQuality by comparing store's current
// best-scored candidate at each address against original.
func Measure(original *program.Program, store *candidate.Store) SolutionQuality {
	var q SolutionQuality
	for _, inst := range original.Instructions {
		q.Total++
		cs := store.Get(inst.Address)
		if len(cs) <= 1 {
			q.Unambiguous++
		} else {
			q.Ambiguous++
		}

		best := cs[0]
		for _, c := range cs[1:] {
			if c.Score() > best.Score() {
				best = c
			}
		}
		if best.Encoding == inst.Encoding {
			q.Correct++
		} else {
			q.Incorrect++
		}
	}
	return q
}

// Report writes a one-line human-readable summary to w.
func (q SolutionQuality) Report(w io.Writer) {
	fmt.Fprintf(w, "[QUALITY] total=%d unambiguous=%d ambiguous=%d correct=%d incorrect=%d\n",
		q.Total, q.Unambiguous, q.Ambiguous, q.Correct, q.Incorrect)
}
