package arm

// OpcodeClass groups a decoded instruction into the coarse structural
// category the scoring rules and CFG builder reason about. It deliberately
// does not distinguish every ARM mnemonic (ADD vs SUB, LDR vs LDRB, ...) -
// nothing in the recovery engine scores at that granularity.
type OpcodeClass uint8

const (
	// Undefined marks an encoding that does not decode to a meaningful
	// ARMv7-A user-mode instruction, or a reserved/unpredictable bit
	// pattern. It still occupies an address but contributes no rule score.
	Undefined OpcodeClass = iota
	// DataProcessing covers AND/EOR/SUB/.../MOV/BIC/MVN and the PSR
	// transfer instructions (MRS/MSR), register or immediate operand 2.
	DataProcessing
	// Multiply covers MUL/MLA (and the long-multiply family).
	Multiply
	// Load covers LDR/LDRB single-register loads. The halfword and signed
	// forms (LDRH/LDRSB/LDRSH) sit in the data-processing encoding space and
	// decode as DataProcessing.
	Load
	// Store covers STR/STRB single-register stores. STRH decodes as
	// DataProcessing, like the halfword loads.
	Store
	// LoadMultiple covers LDM in its various addressing modes.
	LoadMultiple
	// StoreMultiple covers STM in its various addressing modes.
	StoreMultiple
	// Branch covers B and BL (PC-relative, immediate offset).
	Branch
	// BranchExchange covers BX and BLX Rn (register-indirect).
	BranchExchange
	// SoftwareInterrupt covers SWI/SVC.
	SoftwareInterrupt
	// Coprocessor covers CDP/MRC/MCR/LDC/STC and the VFP/NEON coprocessor
	// encoding space.
	Coprocessor
)

var opcodeClassNames = [...]string{
	"undefined", "data_processing", "multiply", "load", "store",
	"load_multiple", "store_multiple", "branch", "branch_exchange",
	"software_interrupt", "coprocessor",
}

// String names the opcode class.
func (c OpcodeClass) String() string {
	if int(c) < len(opcodeClassNames) {
		return opcodeClassNames[c]
	}
	return "unknown"
}
