package arm

// BranchTargetKind classifies how a branch instruction's target address can
// be computed statically.
type BranchTargetKind uint8

const (
	// NotBranch means the instruction is not a control-flow transfer.
	NotBranch BranchTargetKind = iota
	// PCRelative means the target is address+8+sign_extend(imm24<<2) and is
	// therefore known without runtime information.
	PCRelative
	// RegisterIndirect means the target is held in a register (BX Rn,
	// MOV PC, Rn, LDM with PC in the register list) and cannot be resolved
	// by static analysis.
	RegisterIndirect
)

// Instruction is an immutable decoded ARM word. Word decode is total: every
// 32-bit encoding produces an Instruction, falling back to OpcodeClass
// Undefined rather than failing.
type Instruction struct {
	Encoding uint32
	Address  uint32

	OpcodeClass OpcodeClass
	Conditional Condition

	RegistersRead    RegSet
	RegistersWritten RegSet
	WritesFlags      bool

	IsBranch          bool
	IsBranchWithLink  bool
	BranchTargetKind  BranchTargetKind
	branchTargetAddr  uint32
	branchTargetKnown bool
}

// IsUndefined reports whether the instruction decoded to OpcodeClass
// Undefined. Undefined instructions are still addressable but contribute no
// rule scoring and are skipped by the CFG builder.
func (i Instruction) IsUndefined() bool {
	return i.OpcodeClass == Undefined
}

// BranchTargetAddress returns the statically-known absolute target address
// of a PC-relative branch and true, or (0, false) for anything else
// (non-branches, register-indirect branches).
func (i Instruction) BranchTargetAddress() (uint32, bool) {
	if i.BranchTargetKind != PCRelative {
		return 0, false
	}
	return i.branchTargetAddr, i.branchTargetKnown
}
