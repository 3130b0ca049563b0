package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"strconv"

	"github.com/marcef-go/armrecover/arm"
	"github.com/marcef-go/armrecover/candidate"
	"github.com/marcef-go/armrecover/program"
)

// Corruptor marks a subset of prog's addresses as corrupted and builds the
// candidate store: singleton lists for untouched addresses, multi-candidate
// lists for corrupted ones. All three corruptor kinds produce the same
// store shape.
type Corruptor interface {
	Corrupt(prog *program.Program) *candidate.Store
}

// heuristicOpcodeFamilies returns one representative ALWAYS-conditioned
// encoding per non-undefined opcode class except Coprocessor, which has no
// exemplar in the list, used as distractor candidates at
// an address with no other information to narrow the shortlist.
func heuristicOpcodeFamilies(addr uint32) []arm.Instruction {
	encodings := []uint32{
		0xE1A00000, // MOV r0, r0 (DataProcessing)
		0xE0000090, // MUL r0, r0, r0 (Multiply)
		0xE12FFF10, // BX r0 (BranchExchange)
		0xE5900000, // LDR r0, [r0] (Load)
		0xE5800000, // STR r0, [r0] (Store)
		0xE8900001, // LDMIA r0, {r0} (LoadMultiple)
		0xE8800001, // STMIA r0, {r0} (StoreMultiple)
		0xEAFFFFFE, // B . (Branch, self-loop)
		0xEF000000, // SWI 0 (SoftwareInterrupt)
	}
	out := make([]arm.Instruction, 0, len(encodings))
	for _, e := range encodings {
		out = append(out, arm.Decode(e, addr))
	}
	return out
}

// buildCandidates assembles the candidate list for a corrupted address: the
// true instruction (the corruptor simulates loss against a known original,
// as the evaluation harness always does) plus the heuristic distractor
// shortlist, deduplicated by encoding.
func buildCandidates(truth arm.Instruction) []*candidate.Candidate {
	seen := map[uint32]bool{truth.Encoding: true}
	out := []*candidate.Candidate{candidate.New(truth)}
	for _, inst := range heuristicOpcodeFamilies(truth.Address) {
		if seen[inst.Encoding] {
			continue
		}
		seen[inst.Encoding] = true
		out = append(out, candidate.New(inst))
	}
	return out
}

func storeFromCorruptedSet(prog *program.Program, corrupted map[uint32]bool) *candidate.Store {
	store := candidate.NewStore()
	for _, inst := range prog.Instructions {
		if corrupted[inst.Address] {
			store.Set(inst.Address, buildCandidates(inst))
		} else {
			store.Set(inst.Address, []*candidate.Candidate{candidate.New(inst)})
		}
	}
	return store
}

// PacketCorruption simulates loss of whole fixed-size packets of
// consecutive instructions, as a transport-level drop would. PacketSizeWords
// groups the program into packets of that many instructions; every address
// in a packet listed in PacketsLost is marked corrupted.
type PacketCorruption struct {
	PacketSizeWords int
	PacketsLost     []int
}

// Corrupt implements Corruptor.
func (c PacketCorruption) Corrupt(prog *program.Program) *candidate.Store {
	lost := make(map[int]bool, len(c.PacketsLost))
	for _, p := range c.PacketsLost {
		lost[p] = true
	}
	size := c.PacketSizeWords
	if size <= 0 {
		size = 1
	}

	corrupted := map[uint32]bool{}
	for i, inst := range prog.Instructions {
		if lost[i/size] {
			corrupted[inst.Address] = true
		}
	}
	return storeFromCorruptedSet(prog, corrupted)
}

// RandomCorruption marks each instruction corrupted independently with
// probability LossPercent/100, using a seeded generator for reproducible
// test runs. CandidatesPerAddress, when positive, caps the total length of
// each address's candidate list, the true instruction (listed first)
// included.
type RandomCorruption struct {
	LossPercent          float64
	CandidatesPerAddress int
	Seed                 int64
}

// Corrupt implements Corruptor.
func (c RandomCorruption) Corrupt(prog *program.Program) *candidate.Store {
	rng := rand.New(rand.NewSource(c.Seed))
	corrupted := map[uint32]bool{}
	for _, inst := range prog.Instructions {
		if rng.Float64()*100 < c.LossPercent {
			corrupted[inst.Address] = true
		}
	}

	store := storeFromCorruptedSet(prog, corrupted)
	if c.CandidatesPerAddress > 0 {
		for _, addr := range store.Addresses() {
			cs := store.Get(addr)
			if len(cs) > c.CandidatesPerAddress {
				store.Set(addr, cs[:c.CandidatesPerAddress])
			}
		}
	}
	return store
}

// JSONCorruption reads an explicit corruption descriptor: a list of
// corrupted addresses, each with its own explicit candidate encoding list,
// rather than the heuristic shortlist the other two corruptors fall back
// to.
type JSONCorruption struct {
	Corrupted  []uint32
	Candidates map[uint32][]uint32
}

type jsonCorruptionDoc struct {
	Corrupted  []uint64            `json:"corrupted"`
	Candidates map[string][]uint64 `json:"candidates"`
}

// ReadJSONCorruption parses the `{ "corrupted": [...], "candidates": {...} }`
// document described in §6.
func ReadJSONCorruption(r io.Reader) (*JSONCorruption, error) {
	var doc jsonCorruptionDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("ingest: decoding corruption document: %w", err)
	}

	jc := &JSONCorruption{
		Corrupted:  make([]uint32, len(doc.Corrupted)),
		Candidates: make(map[uint32][]uint32, len(doc.Candidates)),
	}
	for i, a := range doc.Corrupted {
		jc.Corrupted[i] = uint32(a)
	}
	for addrStr, encodings := range doc.Candidates {
		addr, err := strconv.ParseUint(addrStr, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("ingest: bad candidate address %q: %w", addrStr, err)
		}
		es := make([]uint32, len(encodings))
		for i, e := range encodings {
			es[i] = uint32(e)
		}
		jc.Candidates[uint32(addr)] = es
	}
	return jc, nil
}

// corruptionSpecDoc is the on-disk envelope the CLI's single
// <corruption-spec> argument reads: a "kind" discriminator selecting which
// of the three §6 corruption descriptors the remaining fields describe.
type corruptionSpecDoc struct {
	Kind string `json:"kind"`

	// kind "packet"
	PacketSizeWords int   `json:"packet_size_words"`
	PacketsLost     []int `json:"packets_lost"`

	// kind "random"
	LossPercent          float64 `json:"loss_percent"`
	CandidatesPerAddress int     `json:"candidates_per_address"`
	Seed                 int64   `json:"seed"`

	// kind "json"
	Corrupted  []uint64            `json:"corrupted"`
	Candidates map[string][]uint64 `json:"candidates"`
}

// ReadCorruptionSpec parses the CLI's <corruption-spec> file and returns the
// Corruptor it describes. The file is a JSON document whose "kind" field is
// one of "packet", "random" or "json", matching spec.md §6's three
// corruption input forms.
func ReadCorruptionSpec(r io.Reader) (Corruptor, error) {
	var doc corruptionSpecDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("ingest: decoding corruption spec: %w", err)
	}

	switch doc.Kind {
	case "packet":
		return PacketCorruption{PacketSizeWords: doc.PacketSizeWords, PacketsLost: doc.PacketsLost}, nil
	case "random":
		return RandomCorruption{LossPercent: doc.LossPercent, CandidatesPerAddress: doc.CandidatesPerAddress, Seed: doc.Seed}, nil
	case "json":
		body, err := json.Marshal(struct {
			Corrupted  []uint64            `json:"corrupted"`
			Candidates map[string][]uint64 `json:"candidates"`
		}{doc.Corrupted, doc.Candidates})
		if err != nil {
			return nil, fmt.Errorf("ingest: re-encoding corruption spec: %w", err)
		}
		jc, err := ReadJSONCorruption(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		return *jc, nil
	default:
		return nil, fmt.Errorf("ingest: unknown corruption spec kind %q (want packet, random or json)", doc.Kind)
	}
}

// Corrupt implements Corruptor.
func (c JSONCorruption) Corrupt(prog *program.Program) *candidate.Store {
	corrupted := make(map[uint32]bool, len(c.Corrupted))
	for _, a := range c.Corrupted {
		corrupted[a] = true
	}

	store := candidate.NewStore()
	for _, inst := range prog.Instructions {
		if !corrupted[inst.Address] {
			store.Set(inst.Address, []*candidate.Candidate{candidate.New(inst)})
			continue
		}

		encodings, ok := c.Candidates[inst.Address]
		if !ok || len(encodings) == 0 {
			store.Set(inst.Address, buildCandidates(inst))
			continue
		}
		cs := make([]*candidate.Candidate, 0, len(encodings))
		for _, e := range encodings {
			cs = append(cs, candidate.New(arm.Decode(e, inst.Address)))
		}
		store.Set(inst.Address, cs)
	}
	return store
}
