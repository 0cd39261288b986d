// cpu_6502.go - MOS6502-class CPU core

/*
(c) 2024 - 2026 sirosiro
https://github.com/sirosiro/RetroCoreTracer
License: GPLv3 or later
*/

package main

import "fmt"

const (
	P6502_C = 0x01
	P6502_Z = 0x02
	P6502_I = 0x04
	P6502_D = 0x08
	P6502_B = 0x10
	P6502_R = 0x20
	P6502_V = 0x40
	P6502_N = 0x80

	P6502_INIT  = P6502_R | P6502_I // 0x24
	SP6502_INIT = 0xFD

	IRQ_VECTOR_6502 = 0xFFFE
	STACK_BASE_6502 = 0x0100
)

type CPU6502State struct {
	A  byte
	X  byte
	Y  byte
	SP byte
	PC uint16
	P  byte
}

func (s CPU6502State) ProgramCounter() uint16 { return s.PC }

// Register exposes S as the page-1 physical address, the form the display
// layer and breakpoints see.
func (s CPU6502State) Register(name string) (uint32, bool) {
	switch name {
	case "A":
		return uint32(s.A), true
	case "X":
		return uint32(s.X), true
	case "Y":
		return uint32(s.Y), true
	case "S":
		return uint32(STACK_BASE_6502 | uint16(s.SP)), true
	case "P":
		return uint32(s.P), true
	case "PC":
		return uint32(s.PC), true
	}
	return 0, false
}

func (s CPU6502State) Clone() CpuState { return s }

func (s *CPU6502State) flag(mask byte) bool { return s.P&mask != 0 }

func (s *CPU6502State) setFlag(mask byte, on bool) {
	if on {
		s.P |= mask
	} else {
		s.P &^= mask
	}
}

// addrRes6502 is the product of addressing-mode resolution: an effective
// address or an immediate value, page-cross extra cycles, and the operand's
// display text and raw bytes.
type addrRes6502 struct {
	addr    uint16
	hasAddr bool
	val     byte
	hasVal  bool
	extra   int
	text    string
	bytes   []byte
}

type modeFunc6502 func(c *CPU_6502, read memReader, pc uint16) addrRes6502

type execFunc6502 func(c *CPU_6502, r addrRes6502)

type op6502 struct {
	mnemonic string
	mode     modeFunc6502
	exec     execFunc6502
	cycles   int
}

var opcodeTable6502 [256]*op6502

type CPU_6502 struct {
	busClient
	state   CPU6502State
	cycles  uint64
	symbols SymbolMap
}

func NewCPU6502(bus *MachineBus) *CPU_6502 {
	return &CPU_6502{
		busClient: busClient{bus: bus},
		state:     CPU6502State{SP: SP6502_INIT, P: P6502_INIT},
	}
}

func (c *CPU_6502) Reset() error {
	c.state = CPU6502State{SP: SP6502_INIT, P: P6502_INIT}
	return nil
}

func (c *CPU_6502) State() CpuState    { return c.state }
func (c *CPU_6502) CycleCount() uint64 { return c.cycles }

func (c *CPU_6502) RestoreState(s CpuState) {
	if st, ok := s.(CPU6502State); ok {
		c.state = st
	}
}

func (c *CPU_6502) SetSymbolMap(symbols SymbolMap) { c.symbols = symbols }

func (c *CPU_6502) Step() (Snapshot, error) {
	c.bus.DrainActivity()
	initialPC := c.state.PC

	opcode := c.read8(c.state.PC)
	op, res := c.decodeResolve(opcode, c.read8, initialPC)
	c.state.PC += op.Length
	if entry := opcodeTable6502[opcode]; entry != nil {
		entry.exec(c, res)
	}

	activity, patches := c.bus.DrainActivity()
	c.cycles += uint64(op.CycleCount)
	snap := Snapshot{
		State:       c.state.Clone(),
		Operation:   op,
		Metadata:    Metadata{CycleCount: c.cycles, SymbolInfo: annotate(c.symbols, initialPC, op)},
		BusActivity: activity,
		Undo:        patches,
	}
	return snap, c.takeFault()
}

// decodeResolve runs addressing-mode resolution once and derives both the
// Operation and the execute input from it.
func (c *CPU_6502) decodeResolve(opcode byte, read memReader, pc uint16) (Operation, addrRes6502) {
	entry := opcodeTable6502[opcode]
	if entry == nil {
		return Operation{
			OpcodeHex:  fmt.Sprintf("%02X", opcode),
			Mnemonic:   "UNKNOWN",
			Operands:   []string{fmt.Sprintf("$%02X", opcode)},
			CycleCount: 0,
			Length:     1,
		}, addrRes6502{}
	}
	res := entry.mode(c, read, pc)
	op := Operation{
		OpcodeHex:    fmt.Sprintf("%02X", opcode),
		Mnemonic:     entry.mnemonic,
		OperandBytes: res.bytes,
		CycleCount:   entry.cycles + res.extra,
		Length:       uint16(1 + len(res.bytes)),
	}
	if res.text != "" {
		op.Operands = []string{res.text}
	}
	return op, res
}

func (c *CPU_6502) decode(opcode byte, read memReader, pc uint16) Operation {
	op, _ := c.decodeResolve(opcode, read, pc)
	return op
}

func (c *CPU_6502) Disassemble(start uint16, length int) ([]DisassembledLine, error) {
	return disassembleRange(c.bus, c.decode, start, length)
}

func (c *CPU_6502) RegisterMap() map[string]uint32 {
	s := c.state
	return map[string]uint32{
		"A": uint32(s.A), "X": uint32(s.X), "Y": uint32(s.Y),
		"PC": uint32(s.PC), "S": uint32(STACK_BASE_6502 | uint16(s.SP)), "P": uint32(s.P),
	}
}

func (c *CPU_6502) RegisterLayout() []RegisterGroup {
	return []RegisterGroup{
		{Name: "Registers", Registers: []RegisterInfo{
			{Name: "A", BitWidth: 8}, {Name: "X", BitWidth: 8},
			{Name: "Y", BitWidth: 8}, {Name: "P", BitWidth: 8},
		}},
		{Name: "Pointers", Registers: []RegisterInfo{
			{Name: "PC", BitWidth: 16}, {Name: "S", BitWidth: 16},
		}},
	}
}

func (c *CPU_6502) FlagState() map[string]bool {
	s := &c.state
	return map[string]bool{
		"N": s.flag(P6502_N), "V": s.flag(P6502_V), "B": s.flag(P6502_B),
		"D": s.flag(P6502_D), "I": s.flag(P6502_I), "Z": s.flag(P6502_Z),
		"C": s.flag(P6502_C),
	}
}

// --- Addressing modes ---

func pageCrossed(a, b uint16) bool { return a&0xFF00 != b&0xFF00 }

func mode6502Implied(c *CPU_6502, read memReader, pc uint16) addrRes6502 {
	return addrRes6502{}
}

func mode6502Immediate(c *CPU_6502, read memReader, pc uint16) addrRes6502 {
	v := read(pc + 1)
	return addrRes6502{val: v, hasVal: true, text: fmt.Sprintf("#$%02X", v), bytes: []byte{v}}
}

func mode6502ZeroPage(c *CPU_6502, read memReader, pc uint16) addrRes6502 {
	a := read(pc + 1)
	return addrRes6502{addr: uint16(a), hasAddr: true, text: fmt.Sprintf("$%02X", a), bytes: []byte{a}}
}

func mode6502ZeroPageX(c *CPU_6502, read memReader, pc uint16) addrRes6502 {
	base := read(pc + 1)
	return addrRes6502{addr: uint16(base + c.state.X), hasAddr: true,
		text: fmt.Sprintf("$%02X,X", base), bytes: []byte{base}}
}

func mode6502ZeroPageY(c *CPU_6502, read memReader, pc uint16) addrRes6502 {
	base := read(pc + 1)
	return addrRes6502{addr: uint16(base + c.state.Y), hasAddr: true,
		text: fmt.Sprintf("$%02X,Y", base), bytes: []byte{base}}
}

func mode6502Absolute(c *CPU_6502, read memReader, pc uint16) addrRes6502 {
	lo, hi := read(pc+1), read(pc+2)
	addr := uint16(hi)<<8 | uint16(lo)
	return addrRes6502{addr: addr, hasAddr: true, text: fmt.Sprintf("$%04X", addr), bytes: []byte{lo, hi}}
}

func mode6502AbsoluteX(c *CPU_6502, read memReader, pc uint16) addrRes6502 {
	lo, hi := read(pc+1), read(pc+2)
	base := uint16(hi)<<8 | uint16(lo)
	addr := base + uint16(c.state.X)
	extra := 0
	if pageCrossed(base, addr) {
		extra = 1
	}
	return addrRes6502{addr: addr, hasAddr: true, extra: extra,
		text: fmt.Sprintf("$%04X,X", base), bytes: []byte{lo, hi}}
}

func mode6502AbsoluteY(c *CPU_6502, read memReader, pc uint16) addrRes6502 {
	lo, hi := read(pc+1), read(pc+2)
	base := uint16(hi)<<8 | uint16(lo)
	addr := base + uint16(c.state.Y)
	extra := 0
	if pageCrossed(base, addr) {
		extra = 1
	}
	return addrRes6502{addr: addr, hasAddr: true, extra: extra,
		text: fmt.Sprintf("$%04X,Y", base), bytes: []byte{lo, hi}}
}

// mode6502Indirect reproduces the page-wrap hardware bug: a pointer at
// $xxFF fetches its high byte from $xx00.
func mode6502Indirect(c *CPU_6502, read memReader, pc uint16) addrRes6502 {
	ptrLo, ptrHi := read(pc+1), read(pc+2)
	ptr := uint16(ptrHi)<<8 | uint16(ptrLo)
	effLo := read(ptr)
	var effHi byte
	if ptr&0xFF == 0xFF {
		effHi = read(ptr & 0xFF00)
	} else {
		effHi = read(ptr + 1)
	}
	return addrRes6502{addr: uint16(effHi)<<8 | uint16(effLo), hasAddr: true,
		text: fmt.Sprintf("($%04X)", ptr), bytes: []byte{ptrLo, ptrHi}}
}

func mode6502IndexedIndirect(c *CPU_6502, read memReader, pc uint16) addrRes6502 {
	base := read(pc + 1)
	ptr := base + c.state.X // zero page wrap
	lo := read(uint16(ptr))
	hi := read(uint16(ptr + 1))
	return addrRes6502{addr: uint16(hi)<<8 | uint16(lo), hasAddr: true,
		text: fmt.Sprintf("($%02X,X)", base), bytes: []byte{base}}
}

func mode6502IndirectIndexed(c *CPU_6502, read memReader, pc uint16) addrRes6502 {
	ptr := read(pc + 1)
	lo := read(uint16(ptr))
	hi := read(uint16(ptr + 1)) // zero page wrap
	base := uint16(hi)<<8 | uint16(lo)
	addr := base + uint16(c.state.Y)
	extra := 0
	if pageCrossed(base, addr) {
		extra = 1
	}
	return addrRes6502{addr: addr, hasAddr: true, extra: extra,
		text: fmt.Sprintf("($%02X),Y", ptr), bytes: []byte{ptr}}
}

func mode6502Relative(c *CPU_6502, read memReader, pc uint16) addrRes6502 {
	off := read(pc + 1)
	dest := pc + 2 + uint16(int8(off))
	return addrRes6502{addr: dest, hasAddr: true, text: fmt.Sprintf("$%04X", dest), bytes: []byte{off}}
}

// --- Execute helpers ---

func (c *CPU_6502) operand(r addrRes6502) byte {
	if r.hasVal {
		return r.val
	}
	return c.read8(r.addr)
}

func (c *CPU_6502) push(v byte) {
	c.write8(STACK_BASE_6502|uint16(c.state.SP), v)
	c.state.SP--
}

func (c *CPU_6502) pop() byte {
	c.state.SP++
	return c.read8(STACK_BASE_6502 | uint16(c.state.SP))
}

func (c *CPU_6502) flagsNZ(v byte) {
	c.state.setFlag(P6502_N, v&0x80 != 0)
	c.state.setFlag(P6502_Z, v == 0)
}

// --- Execute functions ---

func exec6502LDA(c *CPU_6502, r addrRes6502) { c.state.A = c.operand(r); c.flagsNZ(c.state.A) }
func exec6502LDX(c *CPU_6502, r addrRes6502) { c.state.X = c.operand(r); c.flagsNZ(c.state.X) }
func exec6502LDY(c *CPU_6502, r addrRes6502) { c.state.Y = c.operand(r); c.flagsNZ(c.state.Y) }

func exec6502STA(c *CPU_6502, r addrRes6502) { c.write8(r.addr, c.state.A) }
func exec6502STX(c *CPU_6502, r addrRes6502) { c.write8(r.addr, c.state.X) }
func exec6502STY(c *CPU_6502, r addrRes6502) { c.write8(r.addr, c.state.Y) }

func exec6502TAX(c *CPU_6502, r addrRes6502) { c.state.X = c.state.A; c.flagsNZ(c.state.X) }
func exec6502TAY(c *CPU_6502, r addrRes6502) { c.state.Y = c.state.A; c.flagsNZ(c.state.Y) }
func exec6502TXA(c *CPU_6502, r addrRes6502) { c.state.A = c.state.X; c.flagsNZ(c.state.A) }
func exec6502TYA(c *CPU_6502, r addrRes6502) { c.state.A = c.state.Y; c.flagsNZ(c.state.A) }
func exec6502TSX(c *CPU_6502, r addrRes6502) { c.state.X = c.state.SP; c.flagsNZ(c.state.X) }

// TXS does not touch N/Z.
func exec6502TXS(c *CPU_6502, r addrRes6502) { c.state.SP = c.state.X }

func (c *CPU_6502) adcBinary(val byte) {
	s := &c.state
	carry := uint16(0)
	if s.flag(P6502_C) {
		carry = 1
	}
	wide := uint16(s.A) + uint16(val) + carry
	res := byte(wide)
	s.setFlag(P6502_C, wide > 0xFF)
	s.setFlag(P6502_V, ^(s.A^val)&(s.A^res)&0x80 != 0)
	s.A = res
	c.flagsNZ(res)
}

// adcDecimal implements packed-BCD addition with decimal carry propagation
// per nibble. N/Z follow the decimal result, C is the decimal carry out.
func (c *CPU_6502) adcDecimal(val byte) {
	s := &c.state
	carry := byte(0)
	if s.flag(P6502_C) {
		carry = 1
	}
	lo := (s.A & 0x0F) + (val & 0x0F) + carry
	hi := (s.A >> 4) + (val >> 4)
	if lo > 9 {
		lo -= 10
		hi++
	}
	carryOut := false
	if hi > 9 {
		hi -= 10
		carryOut = true
	}
	res := hi<<4 | lo
	s.A = res
	s.setFlag(P6502_C, carryOut)
	c.flagsNZ(res)
}

func exec6502ADC(c *CPU_6502, r addrRes6502) {
	val := c.operand(r)
	if c.state.flag(P6502_D) {
		c.adcDecimal(val)
	} else {
		c.adcBinary(val)
	}
}

func exec6502SBC(c *CPU_6502, r addrRes6502) {
	val := c.operand(r)
	s := &c.state
	if !s.flag(P6502_D) {
		c.adcBinary(val ^ 0xFF)
		return
	}
	// Decimal subtraction on the 0-99 value range.
	borrow := byte(1)
	if s.flag(P6502_C) {
		borrow = 0
	}
	decA := int(s.A>>4)*10 + int(s.A&0x0F)
	decVal := int(val>>4)*10 + int(val&0x0F)
	diff := decA - decVal - int(borrow)
	carryOut := true
	if diff < 0 {
		diff += 100
		carryOut = false
	}
	res := byte(diff/10)<<4 | byte(diff%10)
	s.A = res
	s.setFlag(P6502_C, carryOut)
	c.flagsNZ(res)
}

func (c *CPU_6502) compare(reg byte, r addrRes6502) {
	val := c.operand(r)
	res := reg - val
	c.state.setFlag(P6502_C, reg >= val)
	c.flagsNZ(res)
}

func exec6502CMP(c *CPU_6502, r addrRes6502) { c.compare(c.state.A, r) }
func exec6502CPX(c *CPU_6502, r addrRes6502) { c.compare(c.state.X, r) }
func exec6502CPY(c *CPU_6502, r addrRes6502) { c.compare(c.state.Y, r) }

func exec6502AND(c *CPU_6502, r addrRes6502) { c.state.A &= c.operand(r); c.flagsNZ(c.state.A) }
func exec6502ORA(c *CPU_6502, r addrRes6502) { c.state.A |= c.operand(r); c.flagsNZ(c.state.A) }
func exec6502EOR(c *CPU_6502, r addrRes6502) { c.state.A ^= c.operand(r); c.flagsNZ(c.state.A) }

// BIT copies memory bits 6/7 into V/N and sets Z from A & M.
func exec6502BIT(c *CPU_6502, r addrRes6502) {
	val := c.operand(r)
	s := &c.state
	s.setFlag(P6502_Z, s.A&val == 0)
	s.setFlag(P6502_V, val&0x40 != 0)
	s.setFlag(P6502_N, val&0x80 != 0)
}

// shift applies a read-modify-write (or accumulator) shift/rotate.
func (c *CPU_6502) shift(r addrRes6502, f func(val byte) (byte, bool)) {
	isAcc := !r.hasAddr && !r.hasVal
	var val byte
	if isAcc {
		val = c.state.A
	} else {
		val = c.operand(r)
	}
	res, carry := f(val)
	c.state.setFlag(P6502_C, carry)
	c.flagsNZ(res)
	if isAcc {
		c.state.A = res
	} else {
		c.write8(r.addr, res)
	}
}

func exec6502ASL(c *CPU_6502, r addrRes6502) {
	c.shift(r, func(v byte) (byte, bool) { return v << 1, v&0x80 != 0 })
}

func exec6502LSR(c *CPU_6502, r addrRes6502) {
	c.shift(r, func(v byte) (byte, bool) { return v >> 1, v&0x01 != 0 })
}

func exec6502ROL(c *CPU_6502, r addrRes6502) {
	oldC := byte(0)
	if c.state.flag(P6502_C) {
		oldC = 1
	}
	c.shift(r, func(v byte) (byte, bool) { return v<<1 | oldC, v&0x80 != 0 })
}

func exec6502ROR(c *CPU_6502, r addrRes6502) {
	oldC := byte(0)
	if c.state.flag(P6502_C) {
		oldC = 0x80
	}
	c.shift(r, func(v byte) (byte, bool) { return v>>1 | oldC, v&0x01 != 0 })
}

func exec6502INC(c *CPU_6502, r addrRes6502) {
	res := c.read8(r.addr) + 1
	c.write8(r.addr, res)
	c.flagsNZ(res)
}

func exec6502DEC(c *CPU_6502, r addrRes6502) {
	res := c.read8(r.addr) - 1
	c.write8(r.addr, res)
	c.flagsNZ(res)
}

func exec6502INX(c *CPU_6502, r addrRes6502) { c.state.X++; c.flagsNZ(c.state.X) }
func exec6502DEX(c *CPU_6502, r addrRes6502) { c.state.X--; c.flagsNZ(c.state.X) }
func exec6502INY(c *CPU_6502, r addrRes6502) { c.state.Y++; c.flagsNZ(c.state.Y) }
func exec6502DEY(c *CPU_6502, r addrRes6502) { c.state.Y--; c.flagsNZ(c.state.Y) }

// Branches: PC is already past the instruction; a taken branch overwrites
// it with the resolved destination.
func (c *CPU_6502) branch(r addrRes6502, taken bool) {
	if taken {
		c.state.PC = r.addr
	}
}

func exec6502BCC(c *CPU_6502, r addrRes6502) { c.branch(r, !c.state.flag(P6502_C)) }
func exec6502BCS(c *CPU_6502, r addrRes6502) { c.branch(r, c.state.flag(P6502_C)) }
func exec6502BEQ(c *CPU_6502, r addrRes6502) { c.branch(r, c.state.flag(P6502_Z)) }
func exec6502BNE(c *CPU_6502, r addrRes6502) { c.branch(r, !c.state.flag(P6502_Z)) }
func exec6502BMI(c *CPU_6502, r addrRes6502) { c.branch(r, c.state.flag(P6502_N)) }
func exec6502BPL(c *CPU_6502, r addrRes6502) { c.branch(r, !c.state.flag(P6502_N)) }
func exec6502BVC(c *CPU_6502, r addrRes6502) { c.branch(r, !c.state.flag(P6502_V)) }
func exec6502BVS(c *CPU_6502, r addrRes6502) { c.branch(r, c.state.flag(P6502_V)) }

func exec6502JMP(c *CPU_6502, r addrRes6502) { c.state.PC = r.addr }

// JSR pushes the address of its own last byte; RTS adds the 1 back.
func exec6502JSR(c *CPU_6502, r addrRes6502) {
	ret := c.state.PC - 1
	c.push(byte(ret >> 8))
	c.push(byte(ret))
	c.state.PC = r.addr
}

func exec6502RTS(c *CPU_6502, r addrRes6502) {
	lo := c.pop()
	hi := c.pop()
	c.state.PC = (uint16(hi)<<8 | uint16(lo)) + 1
}

func exec6502PHA(c *CPU_6502, r addrRes6502) { c.push(c.state.A) }

// PHP pushes P with B and the reserved bit forced on.
func exec6502PHP(c *CPU_6502, r addrRes6502) { c.push(c.state.P | P6502_B | P6502_R) }

func exec6502PLA(c *CPU_6502, r addrRes6502) { c.state.A = c.pop(); c.flagsNZ(c.state.A) }

// PLP discards the pushed B flag and keeps the reserved bit set.
func exec6502PLP(c *CPU_6502, r addrRes6502) { c.state.P = c.pop()&^byte(P6502_B) | P6502_R }

func exec6502CLC(c *CPU_6502, r addrRes6502) { c.state.setFlag(P6502_C, false) }
func exec6502SEC(c *CPU_6502, r addrRes6502) { c.state.setFlag(P6502_C, true) }
func exec6502CLI(c *CPU_6502, r addrRes6502) { c.state.setFlag(P6502_I, false) }
func exec6502SEI(c *CPU_6502, r addrRes6502) { c.state.setFlag(P6502_I, true) }
func exec6502CLV(c *CPU_6502, r addrRes6502) { c.state.setFlag(P6502_V, false) }
func exec6502CLD(c *CPU_6502, r addrRes6502) { c.state.setFlag(P6502_D, false) }
func exec6502SED(c *CPU_6502, r addrRes6502) { c.state.setFlag(P6502_D, true) }

func exec6502NOP(c *CPU_6502, r addrRes6502) {}

func exec6502BRK(c *CPU_6502, r addrRes6502) {
	s := &c.state
	ret := s.PC + 1 // padding byte skipped
	c.push(byte(ret >> 8))
	c.push(byte(ret))
	c.push(s.P | P6502_B | P6502_R)
	s.setFlag(P6502_I, true)
	lo := c.read8(IRQ_VECTOR_6502)
	hi := c.read8(IRQ_VECTOR_6502 + 1)
	s.PC = uint16(hi)<<8 | uint16(lo)
}

func exec6502RTI(c *CPU_6502, r addrRes6502) {
	s := &c.state
	s.P = c.pop()&^byte(P6502_B) | P6502_R
	lo := c.pop()
	hi := c.pop()
	s.PC = uint16(hi)<<8 | uint16(lo)
}

func init() {
	add := func(code byte, mnemonic string, mode modeFunc6502, exec execFunc6502, cycles int) {
		opcodeTable6502[code] = &op6502{mnemonic: mnemonic, mode: mode, exec: exec, cycles: cycles}
	}

	// Load/Store/Transfer
	add(0xA9, "LDA", mode6502Immediate, exec6502LDA, 2)
	add(0xA5, "LDA", mode6502ZeroPage, exec6502LDA, 3)
	add(0xB5, "LDA", mode6502ZeroPageX, exec6502LDA, 4)
	add(0xAD, "LDA", mode6502Absolute, exec6502LDA, 4)
	add(0xBD, "LDA", mode6502AbsoluteX, exec6502LDA, 4)
	add(0xB9, "LDA", mode6502AbsoluteY, exec6502LDA, 4)
	add(0xA1, "LDA", mode6502IndexedIndirect, exec6502LDA, 6)
	add(0xB1, "LDA", mode6502IndirectIndexed, exec6502LDA, 5)

	add(0xA2, "LDX", mode6502Immediate, exec6502LDX, 2)
	add(0xA6, "LDX", mode6502ZeroPage, exec6502LDX, 3)
	add(0xB6, "LDX", mode6502ZeroPageY, exec6502LDX, 4)
	add(0xAE, "LDX", mode6502Absolute, exec6502LDX, 4)
	add(0xBE, "LDX", mode6502AbsoluteY, exec6502LDX, 4)

	add(0xA0, "LDY", mode6502Immediate, exec6502LDY, 2)
	add(0xA4, "LDY", mode6502ZeroPage, exec6502LDY, 3)
	add(0xB4, "LDY", mode6502ZeroPageX, exec6502LDY, 4)
	add(0xAC, "LDY", mode6502Absolute, exec6502LDY, 4)
	add(0xBC, "LDY", mode6502AbsoluteX, exec6502LDY, 4)

	add(0x85, "STA", mode6502ZeroPage, exec6502STA, 3)
	add(0x95, "STA", mode6502ZeroPageX, exec6502STA, 4)
	add(0x8D, "STA", mode6502Absolute, exec6502STA, 4)
	add(0x9D, "STA", mode6502AbsoluteX, exec6502STA, 5)
	add(0x99, "STA", mode6502AbsoluteY, exec6502STA, 5)
	add(0x81, "STA", mode6502IndexedIndirect, exec6502STA, 6)
	add(0x91, "STA", mode6502IndirectIndexed, exec6502STA, 6)

	add(0x86, "STX", mode6502ZeroPage, exec6502STX, 3)
	add(0x96, "STX", mode6502ZeroPageY, exec6502STX, 4)
	add(0x8E, "STX", mode6502Absolute, exec6502STX, 4)

	add(0x84, "STY", mode6502ZeroPage, exec6502STY, 3)
	add(0x94, "STY", mode6502ZeroPageX, exec6502STY, 4)
	add(0x8C, "STY", mode6502Absolute, exec6502STY, 4)

	add(0xAA, "TAX", mode6502Implied, exec6502TAX, 2)
	add(0xA8, "TAY", mode6502Implied, exec6502TAY, 2)
	add(0x8A, "TXA", mode6502Implied, exec6502TXA, 2)
	add(0x98, "TYA", mode6502Implied, exec6502TYA, 2)
	add(0x9A, "TXS", mode6502Implied, exec6502TXS, 2)
	add(0xBA, "TSX", mode6502Implied, exec6502TSX, 2)

	// ALU
	add(0x69, "ADC", mode6502Immediate, exec6502ADC, 2)
	add(0x65, "ADC", mode6502ZeroPage, exec6502ADC, 3)
	add(0x75, "ADC", mode6502ZeroPageX, exec6502ADC, 4)
	add(0x6D, "ADC", mode6502Absolute, exec6502ADC, 4)
	add(0x7D, "ADC", mode6502AbsoluteX, exec6502ADC, 4)
	add(0x79, "ADC", mode6502AbsoluteY, exec6502ADC, 4)
	add(0x61, "ADC", mode6502IndexedIndirect, exec6502ADC, 6)
	add(0x71, "ADC", mode6502IndirectIndexed, exec6502ADC, 5)

	add(0xE9, "SBC", mode6502Immediate, exec6502SBC, 2)
	add(0xE5, "SBC", mode6502ZeroPage, exec6502SBC, 3)
	add(0xF5, "SBC", mode6502ZeroPageX, exec6502SBC, 4)
	add(0xED, "SBC", mode6502Absolute, exec6502SBC, 4)
	add(0xFD, "SBC", mode6502AbsoluteX, exec6502SBC, 4)
	add(0xF9, "SBC", mode6502AbsoluteY, exec6502SBC, 4)
	add(0xE1, "SBC", mode6502IndexedIndirect, exec6502SBC, 6)
	add(0xF1, "SBC", mode6502IndirectIndexed, exec6502SBC, 5)

	add(0xC9, "CMP", mode6502Immediate, exec6502CMP, 2)
	add(0xC5, "CMP", mode6502ZeroPage, exec6502CMP, 3)
	add(0xD5, "CMP", mode6502ZeroPageX, exec6502CMP, 4)
	add(0xCD, "CMP", mode6502Absolute, exec6502CMP, 4)
	add(0xDD, "CMP", mode6502AbsoluteX, exec6502CMP, 4)
	add(0xD9, "CMP", mode6502AbsoluteY, exec6502CMP, 4)
	add(0xC1, "CMP", mode6502IndexedIndirect, exec6502CMP, 6)
	add(0xD1, "CMP", mode6502IndirectIndexed, exec6502CMP, 5)

	add(0xE0, "CPX", mode6502Immediate, exec6502CPX, 2)
	add(0xE4, "CPX", mode6502ZeroPage, exec6502CPX, 3)
	add(0xEC, "CPX", mode6502Absolute, exec6502CPX, 4)

	add(0xC0, "CPY", mode6502Immediate, exec6502CPY, 2)
	add(0xC4, "CPY", mode6502ZeroPage, exec6502CPY, 3)
	add(0xCC, "CPY", mode6502Absolute, exec6502CPY, 4)

	add(0x29, "AND", mode6502Immediate, exec6502AND, 2)
	add(0x25, "AND", mode6502ZeroPage, exec6502AND, 3)
	add(0x35, "AND", mode6502ZeroPageX, exec6502AND, 4)
	add(0x2D, "AND", mode6502Absolute, exec6502AND, 4)
	add(0x3D, "AND", mode6502AbsoluteX, exec6502AND, 4)
	add(0x39, "AND", mode6502AbsoluteY, exec6502AND, 4)
	add(0x21, "AND", mode6502IndexedIndirect, exec6502AND, 6)
	add(0x31, "AND", mode6502IndirectIndexed, exec6502AND, 5)

	add(0x09, "ORA", mode6502Immediate, exec6502ORA, 2)
	add(0x05, "ORA", mode6502ZeroPage, exec6502ORA, 3)
	add(0x15, "ORA", mode6502ZeroPageX, exec6502ORA, 4)
	add(0x0D, "ORA", mode6502Absolute, exec6502ORA, 4)
	add(0x1D, "ORA", mode6502AbsoluteX, exec6502ORA, 4)
	add(0x19, "ORA", mode6502AbsoluteY, exec6502ORA, 4)
	add(0x01, "ORA", mode6502IndexedIndirect, exec6502ORA, 6)
	add(0x11, "ORA", mode6502IndirectIndexed, exec6502ORA, 5)

	add(0x49, "EOR", mode6502Immediate, exec6502EOR, 2)
	add(0x45, "EOR", mode6502ZeroPage, exec6502EOR, 3)
	add(0x55, "EOR", mode6502ZeroPageX, exec6502EOR, 4)
	add(0x4D, "EOR", mode6502Absolute, exec6502EOR, 4)
	add(0x5D, "EOR", mode6502AbsoluteX, exec6502EOR, 4)
	add(0x59, "EOR", mode6502AbsoluteY, exec6502EOR, 4)
	add(0x41, "EOR", mode6502IndexedIndirect, exec6502EOR, 6)
	add(0x51, "EOR", mode6502IndirectIndexed, exec6502EOR, 5)

	add(0x24, "BIT", mode6502ZeroPage, exec6502BIT, 3)
	add(0x2C, "BIT", mode6502Absolute, exec6502BIT, 4)

	add(0x0A, "ASL", mode6502Implied, exec6502ASL, 2)
	add(0x06, "ASL", mode6502ZeroPage, exec6502ASL, 5)
	add(0x16, "ASL", mode6502ZeroPageX, exec6502ASL, 6)
	add(0x0E, "ASL", mode6502Absolute, exec6502ASL, 6)
	add(0x1E, "ASL", mode6502AbsoluteX, exec6502ASL, 7)

	add(0x4A, "LSR", mode6502Implied, exec6502LSR, 2)
	add(0x46, "LSR", mode6502ZeroPage, exec6502LSR, 5)
	add(0x56, "LSR", mode6502ZeroPageX, exec6502LSR, 6)
	add(0x4E, "LSR", mode6502Absolute, exec6502LSR, 6)
	add(0x5E, "LSR", mode6502AbsoluteX, exec6502LSR, 7)

	add(0x2A, "ROL", mode6502Implied, exec6502ROL, 2)
	add(0x26, "ROL", mode6502ZeroPage, exec6502ROL, 5)
	add(0x36, "ROL", mode6502ZeroPageX, exec6502ROL, 6)
	add(0x2E, "ROL", mode6502Absolute, exec6502ROL, 6)
	add(0x3E, "ROL", mode6502AbsoluteX, exec6502ROL, 7)

	add(0x6A, "ROR", mode6502Implied, exec6502ROR, 2)
	add(0x66, "ROR", mode6502ZeroPage, exec6502ROR, 5)
	add(0x76, "ROR", mode6502ZeroPageX, exec6502ROR, 6)
	add(0x6E, "ROR", mode6502Absolute, exec6502ROR, 6)
	add(0x7E, "ROR", mode6502AbsoluteX, exec6502ROR, 7)

	add(0xE6, "INC", mode6502ZeroPage, exec6502INC, 5)
	add(0xF6, "INC", mode6502ZeroPageX, exec6502INC, 6)
	add(0xEE, "INC", mode6502Absolute, exec6502INC, 6)
	add(0xFE, "INC", mode6502AbsoluteX, exec6502INC, 7)

	add(0xC6, "DEC", mode6502ZeroPage, exec6502DEC, 5)
	add(0xD6, "DEC", mode6502ZeroPageX, exec6502DEC, 6)
	add(0xCE, "DEC", mode6502Absolute, exec6502DEC, 6)
	add(0xDE, "DEC", mode6502AbsoluteX, exec6502DEC, 7)

	add(0xE8, "INX", mode6502Implied, exec6502INX, 2)
	add(0xCA, "DEX", mode6502Implied, exec6502DEX, 2)
	add(0xC8, "INY", mode6502Implied, exec6502INY, 2)
	add(0x88, "DEY", mode6502Implied, exec6502DEY, 2)

	// Control
	add(0x90, "BCC", mode6502Relative, exec6502BCC, 2)
	add(0xB0, "BCS", mode6502Relative, exec6502BCS, 2)
	add(0xF0, "BEQ", mode6502Relative, exec6502BEQ, 2)
	add(0xD0, "BNE", mode6502Relative, exec6502BNE, 2)
	add(0x30, "BMI", mode6502Relative, exec6502BMI, 2)
	add(0x10, "BPL", mode6502Relative, exec6502BPL, 2)
	add(0x50, "BVC", mode6502Relative, exec6502BVC, 2)
	add(0x70, "BVS", mode6502Relative, exec6502BVS, 2)

	add(0x4C, "JMP", mode6502Absolute, exec6502JMP, 3)
	add(0x6C, "JMP", mode6502Indirect, exec6502JMP, 5)
	add(0x20, "JSR", mode6502Absolute, exec6502JSR, 6)
	add(0x60, "RTS", mode6502Implied, exec6502RTS, 6)

	add(0x48, "PHA", mode6502Implied, exec6502PHA, 3)
	add(0x08, "PHP", mode6502Implied, exec6502PHP, 3)
	add(0x68, "PLA", mode6502Implied, exec6502PLA, 4)
	add(0x28, "PLP", mode6502Implied, exec6502PLP, 4)

	add(0x18, "CLC", mode6502Implied, exec6502CLC, 2)
	add(0x38, "SEC", mode6502Implied, exec6502SEC, 2)
	add(0x58, "CLI", mode6502Implied, exec6502CLI, 2)
	add(0x78, "SEI", mode6502Implied, exec6502SEI, 2)
	add(0xB8, "CLV", mode6502Implied, exec6502CLV, 2)
	add(0xD8, "CLD", mode6502Implied, exec6502CLD, 2)
	add(0xF8, "SED", mode6502Implied, exec6502SED, 2)

	add(0xEA, "NOP", mode6502Implied, exec6502NOP, 2)
	add(0x00, "BRK", mode6502Implied, exec6502BRK, 7)
	add(0x40, "RTI", mode6502Implied, exec6502RTI, 6)
}
