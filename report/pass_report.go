// Package report renders recovery progress and results: per-pass text
// reports, a solution-quality summary, and the binary solution file.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/marcef-go/armrecover/candidate"
	"github.com/marcef-go/armrecover/program"
)

// WritePassReport writes a human-readable account of one recuperator pass:
// for every address, the ground-truth instruction, every surviving
// candidate with its score and per-rule breakdown, and whether the
// ground-truth candidate currently ranks first, ties, or loses.
func WritePassReport(w io.Writer, original *program.Program, store *candidate.Store) error {
	errs, recovered, losing, tied := 0, 0, 0, 0

	store.SortByScoreDescending()

	for _, inst := range original.Instructions {
		addr := inst.Address
		fmt.Fprintf(w, "Original Instruction: address=%#x encoding=%#x\n", addr, inst.Encoding)

		candidates := store.Get(addr)

		if len(candidates) > 1 {
			errs++
			switch {
			case candidates[0].Encoding == inst.Encoding:
				recovered++
				fmt.Fprintln(w, " * OK!")
			case len(candidates) > 1 && candidates[0].Score() == candidates[1].Score():
				tied++
				fmt.Fprintln(w, " * TIE: multiple candidates share the top score")
			default:
				losing++
				fmt.Fprintln(w, " * FAIL: top candidate is not the original")
			}
		}

		for _, c := range candidates {
			marker := "--"
			if c.Encoding == inst.Encoding {
				marker = "++"
			}
			fmt.Fprintf(w, "  %s [%#x] score=%.6f", marker, c.Encoding, c.Score())
			for _, rule := range sortedRuleIDs(c.ScoresByRule) {
				fmt.Fprintf(w, " %s=%.6f", rule, c.ScoresByRule[rule])
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, "------------")
	}

	ratio := "n/a"
	if errs > 0 {
		ratio = fmt.Sprintf("%.4f", float64(recovered)/float64(errs))
	}
	fmt.Fprintf(w, "ERRORS: %d -- LOSING: %d -- TIED: %d -- RECOVERED: %d -- RATIO: %s\n",
		errs, losing, tied, recovered, ratio)
	return nil
}

func sortedRuleIDs(scores map[string]float64) []string {
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
