package arm

// Decode parses a 32-bit ARM word at address into a structured Instruction.
// Decoding never fails: an encoding that does not match a recognised
// ARMv7-A user-mode pattern comes back with OpcodeClass Undefined and empty
// register sets.
func Decode(encoding uint32, address uint32) Instruction {
	inst := Instruction{
		Encoding:    encoding,
		Address:     address,
		Conditional: decodeCondition(encoding),
	}

	switch (encoding >> 25) & 0x7 {
	case 0b000, 0b001:
		decodeDataProcessingGroup(encoding, &inst)
	case 0b010, 0b011:
		decodeLoadStoreGroup(encoding, &inst)
	case 0b100:
		decodeLoadStoreMultiple(encoding, &inst)
	case 0b101:
		decodeBranch(encoding, &inst)
	case 0b110:
		inst.OpcodeClass = Coprocessor
	case 0b111:
		decodeCoprocessorOrSWIGroup(encoding, &inst)
	}

	return inst
}

// decodeDataProcessingGroup handles the bits[27:25] == 00x space: data
// processing, PSR transfer, multiply and branch-exchange.
func decodeDataProcessingGroup(encoding uint32, inst *Instruction) {
	// BX/BLX Rn: 0001 0010 1111 1111 1111 0001 Rn for BX; low nibble 0011 for
	// BLX. Bits [27:4] are fixed except the link bit at bit 5.
	if encoding&0x0FFFFFD0 == 0x012FFF10 {
		decodeBranchExchange(encoding, inst)
		return
	}

	isRegisterForm := (encoding>>25)&1 == 0
	if isRegisterForm && (encoding>>4)&0xF == 0b1001 && (encoding>>24)&0xF == 0b0000 {
		decodeMultiply(encoding, inst)
		return
	}

	decodeDataProcessing(encoding, inst)
}

// decodeDataProcessing handles AND/EOR/.../MOV/BIC/MVN and MRS/MSR.
func decodeDataProcessing(encoding uint32, inst *Instruction) {
	opcode := (encoding >> 21) & 0xF
	sBit := (encoding >> 20) & 1
	rn := Reg((encoding >> 16) & 0xF)
	rd := Reg((encoding >> 12) & 0xF)
	immediate := (encoding>>25)&1 == 1

	inst.OpcodeClass = DataProcessing

	isCompare := opcode >= 0b1000 && opcode <= 0b1011
	isMoveOnly := opcode == 0b1101 || opcode == 0b1111 // MOV, MVN

	if !isCompare {
		inst.RegistersWritten = inst.RegistersWritten.With(rd)
	}
	if !isMoveOnly {
		inst.RegistersRead = inst.RegistersRead.With(rn)
	}
	if !immediate {
		rm := Reg(encoding & 0xF)
		inst.RegistersRead = inst.RegistersRead.With(rm)
		if (encoding>>4)&1 == 1 {
			rs := Reg((encoding >> 8) & 0xF)
			inst.RegistersRead = inst.RegistersRead.With(rs)
		}
	}

	inst.WritesFlags = sBit == 1 || isCompare

	if rd == PC && !isCompare {
		// MOV PC, Rn / ADD PC, ... : a register-indirect control transfer
		// masquerading as ordinary data processing. Static analysis cannot
		// resolve it.
		inst.IsBranch = true
		inst.BranchTargetKind = RegisterIndirect
	}
}

// decodeMultiply handles MUL/MLA.
func decodeMultiply(encoding uint32, inst *Instruction) {
	inst.OpcodeClass = Multiply
	accumulate := (encoding>>21)&1 == 1
	sBit := (encoding >> 20) & 1

	rd := Reg((encoding >> 16) & 0xF)
	rn := Reg((encoding >> 12) & 0xF)
	rs := Reg((encoding >> 8) & 0xF)
	rm := Reg(encoding & 0xF)

	inst.RegistersWritten = inst.RegistersWritten.With(rd)
	inst.RegistersRead = inst.RegistersRead.With(rm).With(rs)
	if accumulate {
		inst.RegistersRead = inst.RegistersRead.With(rn)
	}
	inst.WritesFlags = sBit == 1
}

// decodeBranchExchange handles BX/BLX Rn.
func decodeBranchExchange(encoding uint32, inst *Instruction) {
	inst.OpcodeClass = BranchExchange
	rm := Reg(encoding & 0xF)
	inst.RegistersRead = inst.RegistersRead.With(rm)
	inst.IsBranch = true
	inst.IsBranchWithLink = (encoding>>5)&1 == 1
	inst.BranchTargetKind = RegisterIndirect
}

// decodeLoadStoreGroup handles bits[27:26] == 01: single-register LDR/STR.
func decodeLoadStoreGroup(encoding uint32, inst *Instruction) {
	registerOffset := (encoding>>25)&1 == 1
	if registerOffset && (encoding>>4)&1 == 1 {
		// Register-offset load/store requires bit 4 clear; this is the
		// reserved "undefined instruction" encoding space.
		inst.OpcodeClass = Undefined
		return
	}

	load := (encoding>>20)&1 == 1
	writeback := (encoding>>21)&1 == 1 || (encoding>>24)&1 == 0 // post-indexed always writes back

	rn := Reg((encoding >> 16) & 0xF)
	rd := Reg((encoding >> 12) & 0xF)

	if load {
		inst.OpcodeClass = Load
		inst.RegistersWritten = inst.RegistersWritten.With(rd)
		if rd == PC {
			inst.IsBranch = true
			inst.BranchTargetKind = RegisterIndirect
		}
	} else {
		inst.OpcodeClass = Store
		inst.RegistersRead = inst.RegistersRead.With(rd)
	}

	inst.RegistersRead = inst.RegistersRead.With(rn)
	if writeback {
		inst.RegistersWritten = inst.RegistersWritten.With(rn)
	}
	if registerOffset {
		rm := Reg(encoding & 0xF)
		inst.RegistersRead = inst.RegistersRead.With(rm)
	}
}

// decodeLoadStoreMultiple handles LDM/STM, bits[27:25] == 100.
func decodeLoadStoreMultiple(encoding uint32, inst *Instruction) {
	load := (encoding>>20)&1 == 1
	writeback := (encoding>>21)&1 == 1
	rn := Reg((encoding >> 16) & 0xF)
	list := regSetFromList(encoding)

	inst.RegistersRead = inst.RegistersRead.With(rn)
	if writeback {
		inst.RegistersWritten = inst.RegistersWritten.With(rn)
	}

	if load {
		inst.OpcodeClass = LoadMultiple
		inst.RegistersWritten = inst.RegistersWritten.Union(list)
		if list.Contains(PC) {
			inst.IsBranch = true
			inst.BranchTargetKind = RegisterIndirect
		}
	} else {
		inst.OpcodeClass = StoreMultiple
		inst.RegistersRead = inst.RegistersRead.Union(list)
	}
}

// decodeBranch handles B/BL, bits[27:25] == 101.
func decodeBranch(encoding uint32, inst *Instruction) {
	inst.OpcodeClass = Branch
	inst.IsBranch = true
	inst.IsBranchWithLink = (encoding>>24)&1 == 1
	inst.BranchTargetKind = PCRelative
	if inst.IsBranchWithLink {
		inst.RegistersWritten = inst.RegistersWritten.With(LR)
	}

	imm24 := encoding & 0xFFFFFF
	offset := signExtend24(imm24) << 2
	inst.branchTargetAddr = uint32(int64(inst.Address) + 8 + int64(offset))
	inst.branchTargetKnown = true
}

// decodeCoprocessorOrSWIGroup handles bits[27:25] == 111: coprocessor data
// operations/transfers, and SWI/SVC when bit 24 is set.
func decodeCoprocessorOrSWIGroup(encoding uint32, inst *Instruction) {
	if (encoding>>24)&1 == 1 {
		inst.OpcodeClass = SoftwareInterrupt
		return
	}
	inst.OpcodeClass = Coprocessor
}

// signExtend24 sign-extends a 24-bit two's complement value to int32.
func signExtend24(v uint32) int32 {
	v &= 0xFFFFFF
	if v&0x800000 != 0 {
		return int32(v | 0xFF000000)
	}
	return int32(v)
}
