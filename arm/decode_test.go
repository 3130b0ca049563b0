package arm_test

import (
	"encoding/binary"
	"testing"

	"github.com/marcef-go/armrecover/arm"
)

// assembleLittleEndian mirrors §6's byte assembly: (b3<<24)|(b2<<16)|(b1<<8)|b0.
func assembleLittleEndian(b0, b1, b2, b3 byte) uint32 {
	return uint32(b3)<<24 | uint32(b2)<<16 | uint32(b1)<<8 | uint32(b0)
}

func TestDecode_UnconditionalMOV(t *testing.T) {
	encoding := assembleLittleEndian(0x00, 0xb0, 0xa0, 0xe3)
	if encoding != 0xE3A0B000 {
		t.Fatalf("assembled encoding = %#x, want 0xE3A0B000", encoding)
	}
	if encoding != 3818958848 {
		t.Errorf("encoding = %d, want 3818958848", encoding)
	}

	bigEndian := binary.BigEndian.Uint32([]byte{0x00, 0xb0, 0xa0, 0xe3})
	if bigEndian != 11575523 {
		t.Errorf("big-endian reading = %d, want 11575523", bigEndian)
	}

	inst := arm.Decode(encoding, 0)
	if inst.OpcodeClass != arm.DataProcessing {
		t.Errorf("OpcodeClass = %v, want DataProcessing", inst.OpcodeClass)
	}
	if inst.Conditional != arm.ALWAYS {
		t.Errorf("Conditional = %v, want ALWAYS", inst.Conditional)
	}
}

func TestDecode_PCRelativeBranchResolution(t *testing.T) {
	// BNE with a negative imm24 so address+8+offset lands at index 15 when
	// this instruction is at index 22, instructions spaced 4 bytes apart.
	const from, to = 22 * 4, 15 * 4
	offset := int32(to) - int32(from) - 8
	imm24 := uint32(offset>>2) & 0xFFFFFF
	encoding := uint32(arm.NE)<<28 | 0b101<<25 | imm24

	inst := arm.Decode(encoding, from)
	if !inst.IsBranch || inst.BranchTargetKind != arm.PCRelative {
		t.Fatalf("expected a PC-relative branch, got %+v", inst)
	}
	target, ok := inst.BranchTargetAddress()
	if !ok || target != to {
		t.Errorf("BranchTargetAddress() = (%#x, %v), want (%#x, true)", target, ok, to)
	}
}

func TestDecode_IndirectBranchUnknown(t *testing.T) {
	// BX R0.
	encoding := uint32(arm.ALWAYS)<<28 | 0x012FFF10
	inst := arm.Decode(encoding, 20*4)
	if !inst.IsBranch || inst.BranchTargetKind != arm.RegisterIndirect {
		t.Fatalf("expected a register-indirect branch, got %+v", inst)
	}
	if _, ok := inst.BranchTargetAddress(); ok {
		t.Error("BranchTargetAddress() should report unknown for a register-indirect branch")
	}
}

func TestDecode_ReservedLoadStoreEncodingIsUndefined(t *testing.T) {
	// Register-offset load/store with bit 4 set: reserved.
	inst := arm.Decode(0xE7000010, 0)
	if !inst.IsUndefined() {
		t.Errorf("OpcodeClass = %v, want Undefined", inst.OpcodeClass)
	}
}

func TestDecode_RoundTripPreservesEncoding(t *testing.T) {
	encodings := []uint32{
		0xE3A0B000, // MOV r11, #0
		0xE0000090, // MUL r0, r0, r0
		0xE12FFF10, // BX r0
		0xE5900000, // LDR r0, [r0]
		0xE5800000, // STR r0, [r0]
		0xE8900001, // LDMIA r0, {r0}
		0xE8800001, // STMIA r0, {r0}
		0xEAFFFFFE, // B .
		0xEF000000, // SWI 0
	}
	for _, encoding := range encodings {
		inst := arm.Decode(encoding, 0x1000)
		if inst.IsUndefined() {
			t.Errorf("encoding %#x unexpectedly decoded as Undefined", encoding)
			continue
		}
		if inst.Encoding != encoding {
			t.Errorf("Instruction.Encoding = %#x, want %#x", inst.Encoding, encoding)
		}
	}
}

func TestDecode_NeverFails(t *testing.T) {
	for _, encoding := range []uint32{0, 0xFFFFFFFF, 0x12345678, 0xE7000010} {
		_ = arm.Decode(encoding, 0) // must not panic
	}
}
