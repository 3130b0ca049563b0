// Package program holds the in-memory program image: an address-ordered
// instruction sequence partitioned into functions.
package program

import (
	"fmt"

	"github.com/marcef-go/armrecover/arm"
)

// Function is a named, contiguous slice of the program's instructions.
type Function struct {
	Name         string
	Instructions []arm.Instruction
}

// Range returns the function's [start, end) byte range. A function with no
// instructions has an empty range.
func (f Function) Range() (start, end uint32) {
	if len(f.Instructions) == 0 {
		return 0, 0
	}
	start = f.Instructions[0].Address
	end = f.Instructions[len(f.Instructions)-1].Address + 4
	return start, end
}

// Program is the ordered sequence of decoded instructions by address, plus
// the function partition. Addresses must be 4-byte aligned and unique.
type Program struct {
	Instructions []arm.Instruction
	Functions    []Function

	byAddress map[uint32]int // address -> index into Instructions
}

// New builds a Program from an address-sorted instruction slice and its
// function partition. It is the caller's responsibility to supply
// instructions already sorted by address; New does not re-sort, since the
// candidate store and metadata collector depend on index order matching
// address order.
func New(instructions []arm.Instruction, functions []Function) (*Program, error) {
	byAddress := make(map[uint32]int, len(instructions))
	for i, inst := range instructions {
		if inst.Address%4 != 0 {
			return nil, fmt.Errorf("program: address %#x is not 4-byte aligned", inst.Address)
		}
		if _, dup := byAddress[inst.Address]; dup {
			return nil, fmt.Errorf("program: duplicate address %#x", inst.Address)
		}
		byAddress[inst.Address] = i
	}
	return &Program{Instructions: instructions, Functions: functions, byAddress: byAddress}, nil
}

// First returns the lowest-address instruction in the program.
func (p *Program) First() arm.Instruction {
	return p.Instructions[0]
}

// Last returns the highest-address instruction in the program.
func (p *Program) Last() arm.Instruction {
	return p.Instructions[len(p.Instructions)-1]
}

// IndexOf returns the index of the instruction at addr, or (-1, false) if no
// instruction occupies that address.
func (p *Program) IndexOf(addr uint32) (int, bool) {
	idx, ok := p.byAddress[addr]
	return idx, ok
}

// At returns the instruction at addr, or (zero, false).
func (p *Program) At(addr uint32) (arm.Instruction, bool) {
	idx, ok := p.byAddress[addr]
	if !ok {
		return arm.Instruction{}, false
	}
	return p.Instructions[idx], true
}

// BranchTarget resolves a PC-relative branch's target instruction. It
// returns (target, true) when inst is a PC-relative branch whose target
// address lies within [First, Last] of the program and is present in it;
// otherwise (zero, false) - including for register-indirect and unresolved
// branches, per spec.
func (p *Program) BranchTarget(inst arm.Instruction) (arm.Instruction, bool) {
	addr, ok := inst.BranchTargetAddress()
	if !ok {
		return arm.Instruction{}, false
	}
	if addr < p.First().Address || addr > p.Last().Address {
		return arm.Instruction{}, false
	}
	return p.At(addr)
}
