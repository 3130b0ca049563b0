// Package metadata precomputes, in linear passes over the program, the per-address
// neighbourhood facts the scoring rules need: nearby known conditionals,
// whether the preceding known instruction writes flags, and function
// boundaries.
package metadata

import (
	"github.com/marcef-go/armrecover/arm"
	"github.com/marcef-go/armrecover/candidate"
	"github.com/marcef-go/armrecover/program"
)

// DefaultWindow is the number of known neighbours tracked on each side of an
// address when none is configured explicitly.
const DefaultWindow = 3

// Neighbourhood is the precomputed context at one address.
type Neighbourhood struct {
	// Before holds the conditionals of the nearest known instructions
	// preceding this address, nearest first, up to Window entries.
	Before []arm.Condition
	// After holds the conditionals of the nearest known instructions
	// following this address, nearest first, up to Window entries.
	After []arm.Condition
	// PrecedingWritesFlags reports whether the nearest preceding known
	// instruction writes the condition flags.
	PrecedingWritesFlags bool
	// HasPreceding/HasFollowing report whether any known neighbour exists
	// on that side at all (an address at a program boundary has none).
	HasPreceding, HasFollowing bool
}

// Metadata is the collected per-address neighbourhood information for a
// program, plus the address -> function index needed for boundary checks.
type Metadata struct {
	Window         int
	neighbourhoods map[uint32]Neighbourhood
	functionOf     map[uint32]int
	functions      []program.Function
}

// Collect sweeps prog once forward and once backward in address order, and
// returns the Metadata. An
// address is "known" when store holds exactly one candidate for it
// (uncorrupted); corrupted addresses contribute no conditional/flag-write
// information to their neighbours. Calling Collect twice over the same
// inputs yields equal Metadata (idempotent).
func Collect(prog *program.Program, store *candidate.Store, window int) *Metadata {
	if window <= 0 {
		window = DefaultWindow
	}

	n := len(prog.Instructions)
	known := make([]bool, n)
	for i, inst := range prog.Instructions {
		known[i] = !store.IsCorrupted(inst.Address)
	}

	m := &Metadata{
		Window:         window,
		neighbourhoods: make(map[uint32]Neighbourhood, n),
		functionOf:     make(map[uint32]int, n),
		functions:      prog.Functions,
	}

	for fi, fn := range prog.Functions {
		for _, inst := range fn.Instructions {
			m.functionOf[inst.Address] = fi
		}
	}

	// Forward pass: nearest-preceding-known conditionals and flag-write.
	beforeWindow := make([]arm.Condition, 0, window)
	precedingWritesFlags := false
	hasPreceding := false
	nb := make([]Neighbourhood, n)
	for i, inst := range prog.Instructions {
		nb[i].Before = append([]arm.Condition(nil), beforeWindow...)
		nb[i].PrecedingWritesFlags = precedingWritesFlags
		nb[i].HasPreceding = hasPreceding

		if known[i] {
			beforeWindow = pushFront(beforeWindow, inst.Conditional, window)
			precedingWritesFlags = inst.WritesFlags
			hasPreceding = true
		}
	}

	// Backward pass: nearest-following-known conditionals.
	afterWindow := make([]arm.Condition, 0, window)
	hasFollowing := false
	for i := n - 1; i >= 0; i-- {
		nb[i].After = append([]arm.Condition(nil), afterWindow...)
		nb[i].HasFollowing = hasFollowing

		if known[i] {
			afterWindow = pushFront(afterWindow, prog.Instructions[i].Conditional, window)
			hasFollowing = true
		}
	}

	for i, inst := range prog.Instructions {
		m.neighbourhoods[inst.Address] = nb[i]
	}

	return m
}

// pushFront prepends v to window, truncating to cap entries.
func pushFront(window []arm.Condition, v arm.Condition, cap int) []arm.Condition {
	out := make([]arm.Condition, 0, cap)
	out = append(out, v)
	out = append(out, window...)
	if len(out) > cap {
		out = out[:cap]
	}
	return out
}

// At returns the neighbourhood computed for addr.
func (m *Metadata) At(addr uint32) Neighbourhood {
	return m.neighbourhoods[addr]
}

// FunctionAt returns the Function owning addr, and true if addr belongs to
// a known function.
func (m *Metadata) FunctionAt(addr uint32) (program.Function, bool) {
	idx, ok := m.functionOf[addr]
	if !ok {
		return program.Function{}, false
	}
	return m.functions[idx], true
}
