package report

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/marcef-go/armrecover/candidate"
)

// WriteSolution writes the binary solution format described in §6:
// address-sorted records of `u32 address || u32 encoding || u8
// confidence_0_255`. solution maps each address to the chosen candidate.
func WriteSolution(w io.Writer, solution map[uint32]*candidate.Candidate) error {
	addrs := make([]uint32, 0, len(solution))
	for a := range solution {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	bw := bufio.NewWriter(w)
	var rec [9]byte
	for _, addr := range addrs {
		c := solution[addr]
		binary.BigEndian.PutUint32(rec[0:4], addr)
		binary.BigEndian.PutUint32(rec[4:8], c.Encoding)
		rec[8] = confidenceByte(c.Score())
		if _, err := bw.Write(rec[:]); err != nil {
			return fmt.Errorf("report: writing solution record at %#x: %w", addr, err)
		}
	}
	return bw.Flush()
}

// confidenceByte scales a [0,1] score to a 0-255 byte, rounding to
// nearest.
func confidenceByte(score float64) byte {
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return byte(score*255 + 0.5)
}
