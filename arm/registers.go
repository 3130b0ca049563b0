package arm

import "fmt"

// RegSet is a bitmask over the 16 ARM general-purpose registers, R0-R15.
// Bit n set means Rn is a member of the set.
type RegSet uint16

// PC, LR and SP name the registers with an architectural role beyond plain
// general-purpose use.
const (
	SP Reg = 13
	LR Reg = 14
	PC Reg = 15
)

// Reg identifies a single register, 0-15.
type Reg uint8

// String renders a register as "Rn", or the architectural alias for R13-R15.
func (r Reg) String() string {
	switch r {
	case SP:
		return "SP"
	case LR:
		return "LR"
	case PC:
		return "PC"
	default:
		return fmt.Sprintf("R%d", r)
	}
}

// With returns a new RegSet with r added.
func (s RegSet) With(r Reg) RegSet {
	return s | (1 << r)
}

// Contains reports whether r is a member of s.
func (s RegSet) Contains(r Reg) bool {
	return s&(1<<r) != 0
}

// Union returns the set union of s and other.
func (s RegSet) Union(other RegSet) RegSet {
	return s | other
}

// Len reports how many registers are members of s.
func (s RegSet) Len() int {
	n := 0
	for b := s; b != 0; b &= b - 1 {
		n++
	}
	return n
}

// regSetFromList builds a RegSet from a bitfield of 16 register-list bits, as used
// by LDM/STM.
func regSetFromList(bits uint32) RegSet {
	return RegSet(bits & 0xFFFF)
}
