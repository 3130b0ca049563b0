package ingest_test

import (
	"strings"
	"testing"

	"github.com/marcef-go/armrecover/ingest"
	"github.com/marcef-go/armrecover/program"
)

const threeInstr = `.text:00000000 00 b0 a0 e3
.text:00000004 01 10 a0 e3
.text:00000008 02 20 a0 e3
.text:0000000c 03 30 a0 e3
`

func mustParse(t *testing.T) *program.Program {
	t.Helper()
	prog, err := ingest.ParseDisassembly(strings.NewReader(threeInstr))
	if err != nil {
		t.Fatalf("ParseDisassembly: %v", err)
	}
	return prog
}

func TestPacketCorruption_MarksWholePacketCorrupted(t *testing.T) {
	prog := mustParse(t)
	c := ingest.PacketCorruption{PacketSizeWords: 2, PacketsLost: []int{1}}
	store := c.Corrupt(prog)

	if store.IsCorrupted(0) || store.IsCorrupted(4) {
		t.Error("first packet should be untouched")
	}
	if !store.IsCorrupted(8) || !store.IsCorrupted(0xc) {
		t.Error("second packet (addresses 8, c) should be corrupted")
	}
	for _, addr := range []uint32{0, 4, 8, 0xc} {
		if len(store.Get(addr)) == 0 {
			t.Errorf("address %#x has no candidates", addr)
		}
	}
}

func TestRandomCorruption_ZeroLossLeavesProgramIntact(t *testing.T) {
	prog := mustParse(t)
	c := ingest.RandomCorruption{LossPercent: 0, Seed: 1}
	store := c.Corrupt(prog)
	for _, addr := range store.Addresses() {
		if store.IsCorrupted(addr) {
			t.Errorf("address %#x corrupted with LossPercent 0", addr)
		}
	}
}

func TestRandomCorruption_FullLossCapsCandidateCount(t *testing.T) {
	prog := mustParse(t)
	c := ingest.RandomCorruption{LossPercent: 100, CandidatesPerAddress: 3, Seed: 1}
	store := c.Corrupt(prog)
	for _, addr := range store.Addresses() {
		if len(store.Get(addr)) > 3 {
			t.Errorf("address %#x has %d candidates, want <= 3", addr, len(store.Get(addr)))
		}
		if len(store.Get(addr)) == 0 {
			t.Errorf("address %#x emptied", addr)
		}
	}
}

func TestJSONCorruption_ExplicitCandidates(t *testing.T) {
	prog := mustParse(t)
	doc := strings.NewReader(`{"corrupted": [4], "candidates": {"4": [3819847680, 3819847681]}}`)
	jc, err := ingest.ReadJSONCorruption(doc)
	if err != nil {
		t.Fatalf("ReadJSONCorruption: %v", err)
	}
	store := jc.Corrupt(prog)

	if !store.IsCorrupted(4) {
		t.Fatal("address 4 should be corrupted")
	}
	if len(store.Get(4)) != 2 {
		t.Fatalf("expected 2 explicit candidates, got %d", len(store.Get(4)))
	}
	if store.IsCorrupted(0) {
		t.Error("address 0 should be untouched")
	}
}
