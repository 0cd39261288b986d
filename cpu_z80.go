// cpu_z80.go - Z80-class CPU core

/*
(c) 2024 - 2026 sirosiro
https://github.com/sirosiro/RetroCoreTracer
License: GPLv3 or later
*/

package main

import "fmt"

const (
	FZ80_C  = 0x01
	FZ80_N  = 0x02
	FZ80_PV = 0x04
	FZ80_H  = 0x10
	FZ80_Z  = 0x40
	FZ80_S  = 0x80
)

type Z80State struct {
	A byte
	F byte
	B byte
	C byte
	D byte
	E byte
	H byte
	L byte

	// Shadow register file, reached through EX AF,AF' and EXX.
	A2 byte
	F2 byte
	B2 byte
	C2 byte
	D2 byte
	E2 byte
	H2 byte
	L2 byte

	IX uint16
	IY uint16
	SP uint16
	PC uint16

	I  byte
	R  byte
	IM byte

	IFF1 bool
	IFF2 bool

	Halted bool
}

func (s *Z80State) AF() uint16 { return uint16(s.A)<<8 | uint16(s.F) }
func (s *Z80State) BC() uint16 { return uint16(s.B)<<8 | uint16(s.C) }
func (s *Z80State) DE() uint16 { return uint16(s.D)<<8 | uint16(s.E) }
func (s *Z80State) HL() uint16 { return uint16(s.H)<<8 | uint16(s.L) }

func (s *Z80State) SetAF(v uint16) { s.A, s.F = byte(v>>8), byte(v) }
func (s *Z80State) SetBC(v uint16) { s.B, s.C = byte(v>>8), byte(v) }
func (s *Z80State) SetDE(v uint16) { s.D, s.E = byte(v>>8), byte(v) }
func (s *Z80State) SetHL(v uint16) { s.H, s.L = byte(v>>8), byte(v) }

func (s Z80State) ProgramCounter() uint16 { return s.PC }

func (s Z80State) Register(name string) (uint32, bool) {
	switch name {
	case "A":
		return uint32(s.A), true
	case "F":
		return uint32(s.F), true
	case "B":
		return uint32(s.B), true
	case "C":
		return uint32(s.C), true
	case "D":
		return uint32(s.D), true
	case "E":
		return uint32(s.E), true
	case "H":
		return uint32(s.H), true
	case "L":
		return uint32(s.L), true
	case "I":
		return uint32(s.I), true
	case "R":
		return uint32(s.R), true
	case "AF":
		return uint32(s.AF()), true
	case "BC":
		return uint32(s.BC()), true
	case "DE":
		return uint32(s.DE()), true
	case "HL":
		return uint32(s.HL()), true
	case "IX":
		return uint32(s.IX), true
	case "IY":
		return uint32(s.IY), true
	case "SP":
		return uint32(s.SP), true
	case "PC":
		return uint32(s.PC), true
	}
	return 0, false
}

func (s Z80State) Clone() CpuState { return s }

func (s *Z80State) flag(mask byte) bool { return s.F&mask != 0 }

func (s *Z80State) setFlag(mask byte, on bool) {
	if on {
		s.F |= mask
	} else {
		s.F &^= mask
	}
}

var z80RegName = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
var z80PairSS = [4]string{"BC", "DE", "HL", "SP"}
var z80PairQQ = [4]string{"BC", "DE", "HL", "AF"}
var z80CondName = [8]string{"NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}

// CPU_Z80 drives a MachineBus plus a separate IO range set. A halted core
// keeps yielding a suspended-HALT pseudo-operation without touching PC.
type CPU_Z80 struct {
	busClient
	state   Z80State
	cycles  uint64
	symbols SymbolMap
}

func NewCPUZ80(bus *MachineBus) *CPU_Z80 {
	return &CPU_Z80{busClient: busClient{bus: bus}}
}

func (c *CPU_Z80) Reset() error {
	c.state = Z80State{}
	return nil
}

func (c *CPU_Z80) State() CpuState    { return c.state }
func (c *CPU_Z80) CycleCount() uint64 { return c.cycles }

func (c *CPU_Z80) RestoreState(s CpuState) {
	if st, ok := s.(Z80State); ok {
		c.state = st
	}
}

func (c *CPU_Z80) SetSymbolMap(symbols SymbolMap) { c.symbols = symbols }

func (c *CPU_Z80) Step() (Snapshot, error) {
	c.bus.DrainActivity()
	initialPC := c.state.PC

	var op Operation
	if c.state.Halted {
		op = Operation{
			OpcodeHex:  "76",
			Mnemonic:   "HALT (suspended)",
			CycleCount: 4,
			Length:     0,
		}
	} else {
		opcode := c.read8(c.state.PC)
		op = c.decode(opcode, c.read8, c.state.PC)
		c.state.PC += op.Length
		c.execute(op)
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

// --- Decode ---

func (c *CPU_Z80) decode(opcode byte, read memReader, pc uint16) Operation {
	mk := func(mnemonic, operand string, cycles int, length uint16, bytes ...byte) Operation {
		op := Operation{
			OpcodeHex:    fmt.Sprintf("%02X", opcode),
			Mnemonic:     mnemonic,
			OperandBytes: bytes,
			CycleCount:   cycles,
			Length:       length,
		}
		if operand != "" {
			op.Operands = []string{operand}
		}
		return op
	}
	imm16 := func() (byte, byte, uint16) {
		lo, hi := read(pc+1), read(pc+2)
		return lo, hi, uint16(hi)<<8 | uint16(lo)
	}
	rel := func(mnemonic, prefix string, cycles int) Operation {
		off := read(pc + 1)
		dest := pc + 2 + uint16(int8(off))
		return mk(mnemonic, fmt.Sprintf("%s$%04X", prefix, dest), cycles, 2, off)
	}

	switch opcode {
	case 0xCB:
		return c.decodeCB(read, pc)
	case 0xED:
		return c.decodeED(read, pc)
	case 0xDD:
		return c.decodeIndex(read, pc, opcode, "IX")
	case 0xFD:
		return c.decodeIndex(read, pc, opcode, "IY")
	}

	switch {
	case opcode == 0x00:
		return mk("NOP", "", 4, 1)
	case opcode == 0x08:
		return mk("EX", "AF,AF'", 4, 1)
	case opcode == 0x10:
		return rel("DJNZ", "", 13)
	case opcode == 0x18:
		return rel("JR", "", 12)
	case opcode&0xE7 == 0x20: // JR cc,d
		return rel("JR", z80CondName[(opcode>>3)&3]+",", 12)
	case opcode&0xCF == 0x01: // LD ss,nn
		lo, hi, nn := imm16()
		return mk("LD", fmt.Sprintf("%s,$%04X", z80PairSS[(opcode>>4)&3], nn), 10, 3, lo, hi)
	case opcode&0xCF == 0x09: // ADD HL,ss
		return mk("ADD", "HL,"+z80PairSS[(opcode>>4)&3], 11, 1)
	case opcode&0xCF == 0x03: // INC ss
		return mk("INC", z80PairSS[(opcode>>4)&3], 6, 1)
	case opcode&0xCF == 0x0B: // DEC ss
		return mk("DEC", z80PairSS[(opcode>>4)&3], 6, 1)
	case opcode == 0x02:
		return mk("LD", "(BC),A", 7, 1)
	case opcode == 0x12:
		return mk("LD", "(DE),A", 7, 1)
	case opcode == 0x0A:
		return mk("LD", "A,(BC)", 7, 1)
	case opcode == 0x1A:
		return mk("LD", "A,(DE)", 7, 1)
	case opcode == 0x22:
		lo, hi, nn := imm16()
		return mk("LD", fmt.Sprintf("($%04X),HL", nn), 16, 3, lo, hi)
	case opcode == 0x2A:
		lo, hi, nn := imm16()
		return mk("LD", fmt.Sprintf("HL,($%04X)", nn), 16, 3, lo, hi)
	case opcode == 0x32:
		lo, hi, nn := imm16()
		return mk("LD", fmt.Sprintf("($%04X),A", nn), 13, 3, lo, hi)
	case opcode == 0x3A:
		lo, hi, nn := imm16()
		return mk("LD", fmt.Sprintf("A,($%04X)", nn), 13, 3, lo, hi)
	case opcode == 0x07:
		return mk("RLCA", "", 4, 1)
	case opcode == 0x0F:
		return mk("RRCA", "", 4, 1)
	case opcode == 0x17:
		return mk("RLA", "", 4, 1)
	case opcode == 0x1F:
		return mk("RRA", "", 4, 1)
	case opcode == 0x2F:
		return mk("CPL", "", 4, 1)
	case opcode == 0x37:
		return mk("SCF", "", 4, 1)
	case opcode == 0x3F:
		return mk("CCF", "", 4, 1)
	case opcode == 0x76:
		return mk("HALT", "", 4, 1)
	case opcode&0xC7 == 0x06: // LD r,n
		reg := (opcode >> 3) & 7
		n := read(pc + 1)
		cycles := 7
		if reg == 6 {
			cycles = 10
		}
		return mk("LD", fmt.Sprintf("%s,$%02X", z80RegName[reg], n), cycles, 2, n)
	case opcode&0xC7 == 0x04: // INC r
		reg := (opcode >> 3) & 7
		cycles := 4
		if reg == 6 {
			cycles = 11
		}
		return mk("INC", z80RegName[reg], cycles, 1)
	case opcode&0xC7 == 0x05: // DEC r
		reg := (opcode >> 3) & 7
		cycles := 4
		if reg == 6 {
			cycles = 11
		}
		return mk("DEC", z80RegName[reg], cycles, 1)
	case opcode >= 0x40 && opcode <= 0x7F: // LD r,r'
		dst, src := (opcode>>3)&7, opcode&7
		cycles := 4
		if dst == 6 || src == 6 {
			cycles = 7
		}
		return mk("LD", z80RegName[dst]+","+z80RegName[src], cycles, 1)
	case opcode >= 0x80 && opcode <= 0xBF: // ALU A,r
		src := opcode & 7
		cycles := 4
		if src == 6 {
			cycles = 7
		}
		mnemonic, operand := z80ALUForm((opcode>>3)&7, z80RegName[src])
		return mk(mnemonic, operand, cycles, 1)
	case opcode&0xC7 == 0xC6: // ALU A,n
		n := read(pc + 1)
		mnemonic, operand := z80ALUForm((opcode>>3)&7, fmt.Sprintf("$%02X", n))
		return mk(mnemonic, operand, 7, 2, n)
	case opcode&0xCF == 0xC5: // PUSH qq
		return mk("PUSH", z80PairQQ[(opcode>>4)&3], 11, 1)
	case opcode&0xCF == 0xC1: // POP qq
		return mk("POP", z80PairQQ[(opcode>>4)&3], 10, 1)
	case opcode == 0xC3:
		lo, hi, nn := imm16()
		return mk("JP", fmt.Sprintf("$%04X", nn), 10, 3, lo, hi)
	case opcode&0xC7 == 0xC2: // JP cc,nn
		lo, hi, nn := imm16()
		return mk("JP", fmt.Sprintf("%s,$%04X", z80CondName[(opcode>>3)&7], nn), 10, 3, lo, hi)
	case opcode == 0xCD:
		lo, hi, nn := imm16()
		return mk("CALL", fmt.Sprintf("$%04X", nn), 17, 3, lo, hi)
	case opcode&0xC7 == 0xC4: // CALL cc,nn
		lo, hi, nn := imm16()
		return mk("CALL", fmt.Sprintf("%s,$%04X", z80CondName[(opcode>>3)&7], nn), 17, 3, lo, hi)
	case opcode == 0xC9:
		return mk("RET", "", 10, 1)
	case opcode&0xC7 == 0xC0: // RET cc
		return mk("RET", z80CondName[(opcode>>3)&7], 11, 1)
	case opcode == 0xE9:
		return mk("JP", "(HL)", 4, 1)
	case opcode == 0xD3:
		n := read(pc + 1)
		return mk("OUT", fmt.Sprintf("($%02X),A", n), 11, 2, n)
	case opcode == 0xDB:
		n := read(pc + 1)
		return mk("IN", fmt.Sprintf("A,($%02X)", n), 11, 2, n)
	case opcode == 0xD9:
		return mk("EXX", "", 4, 1)
	case opcode == 0xE3:
		return mk("EX", "(SP),HL", 19, 1)
	case opcode == 0xEB:
		return mk("EX", "DE,HL", 4, 1)
	case opcode == 0xF3:
		return mk("DI", "", 4, 1)
	case opcode == 0xFB:
		return mk("EI", "", 4, 1)
	case opcode == 0xF9:
		return mk("LD", "SP,HL", 6, 1)
	}

	return Operation{
		OpcodeHex:  fmt.Sprintf("%02X", opcode),
		Mnemonic:   "UNKNOWN",
		Operands:   []string{fmt.Sprintf("$%02X", opcode)},
		CycleCount: 4,
		Length:     1,
	}
}

func z80ALUForm(kind byte, src string) (string, string) {
	switch kind {
	case 0:
		return "ADD", "A," + src
	case 1:
		return "ADC", "A," + src
	case 2:
		return "SUB", src
	case 3:
		return "SBC", "A," + src
	case 4:
		return "AND", src
	case 5:
		return "XOR", src
	case 6:
		return "OR", src
	default:
		return "CP", src
	}
}

var z80ShiftName = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SLL", "SRL"}

func (c *CPU_Z80) decodeCB(read memReader, pc uint16) Operation {
	sub := read(pc + 1)
	reg := sub & 7
	hex := fmt.Sprintf("CB%02X", sub)
	memCycles := func(plain, mem int) int {
		if reg == 6 {
			return mem
		}
		return plain
	}
	switch {
	case sub < 0x40:
		return Operation{
			OpcodeHex:  hex,
			Mnemonic:   z80ShiftName[sub>>3],
			Operands:   []string{z80RegName[reg]},
			CycleCount: memCycles(8, 15),
			Length:     2,
		}
	case sub < 0x80:
		return Operation{
			OpcodeHex:  hex,
			Mnemonic:   "BIT",
			Operands:   []string{fmt.Sprintf("%d,%s", (sub>>3)&7, z80RegName[reg])},
			CycleCount: memCycles(8, 12),
			Length:     2,
		}
	case sub < 0xC0:
		return Operation{
			OpcodeHex:  hex,
			Mnemonic:   "RES",
			Operands:   []string{fmt.Sprintf("%d,%s", (sub>>3)&7, z80RegName[reg])},
			CycleCount: memCycles(8, 15),
			Length:     2,
		}
	}
	return Operation{
		OpcodeHex:  hex,
		Mnemonic:   "SET",
		Operands:   []string{fmt.Sprintf("%d,%s", (sub>>3)&7, z80RegName[reg])},
		CycleCount: memCycles(8, 15),
		Length:     2,
	}
}

func (c *CPU_Z80) decodeED(read memReader, pc uint16) Operation {
	sub := read(pc + 1)
	hex := fmt.Sprintf("ED%02X", sub)
	mk := func(mnemonic, operand string, cycles int) Operation {
		op := Operation{OpcodeHex: hex, Mnemonic: mnemonic, CycleCount: cycles, Length: 2}
		if operand != "" {
			op.Operands = []string{operand}
		}
		return op
	}
	switch sub {
	case 0xA0:
		return mk("LDI", "", 16)
	case 0xB0:
		return mk("LDIR", "", 21)
	case 0xA8:
		return mk("LDD", "", 16)
	case 0xB8:
		return mk("LDDR", "", 21)
	case 0x46:
		return mk("IM", "0", 8)
	case 0x56:
		return mk("IM", "1", 8)
	case 0x5E:
		return mk("IM", "2", 8)
	case 0x4D:
		return mk("RETI", "", 14)
	case 0x45:
		return mk("RETN", "", 14)
	}
	return Operation{
		OpcodeHex:  hex,
		Mnemonic:   "UNKNOWN",
		Operands:   []string{fmt.Sprintf("$ED $%02X", sub)},
		CycleCount: 8,
		Length:     2,
	}
}

func z80Displacement(name string, d byte) string {
	if d&0x80 != 0 {
		return fmt.Sprintf("(%s-$%02X)", name, byte(-int8(d)))
	}
	return fmt.Sprintf("(%s+$%02X)", name, d)
}

func (c *CPU_Z80) decodeIndex(read memReader, pc uint16, prefix byte, name string) Operation {
	sub := read(pc + 1)
	hex := fmt.Sprintf("%02X%02X", prefix, sub)
	mk := func(mnemonic, operand string, cycles int, length uint16, bytes ...byte) Operation {
		op := Operation{
			OpcodeHex:    hex,
			Mnemonic:     mnemonic,
			OperandBytes: bytes,
			CycleCount:   cycles,
			Length:       length,
		}
		if operand != "" {
			op.Operands = []string{operand}
		}
		return op
	}
	switch {
	case sub == 0x21:
		lo, hi := read(pc+2), read(pc+3)
		nn := uint16(hi)<<8 | uint16(lo)
		return mk("LD", fmt.Sprintf("%s,$%04X", name, nn), 14, 4, lo, hi)
	case sub&0xCF == 0x09: // ADD ix,ss where ss slot 2 is the index register
		pair := z80PairSS[(sub>>4)&3]
		if pair == "HL" {
			pair = name
		}
		return mk("ADD", name+","+pair, 15, 2)
	case sub == 0x23:
		return mk("INC", name, 10, 2)
	case sub == 0xE3:
		return mk("EX", "(SP),"+name, 23, 2)
	case sub&0xC7 == 0x46 && sub != 0x76: // LD r,(ix+d)
		d := read(pc + 2)
		dst := z80RegName[(sub>>3)&7]
		return mk("LD", dst+","+z80Displacement(name, d), 19, 3, d)
	case sub >= 0x70 && sub <= 0x77 && sub != 0x76: // LD (ix+d),r
		d := read(pc + 2)
		return mk("LD", z80Displacement(name, d)+","+z80RegName[sub&7], 19, 3, d)
	}
	// Unhandled: re-decode with the prefix treated as a standalone byte.
	return Operation{
		OpcodeHex:  fmt.Sprintf("%02X", prefix),
		Mnemonic:   name + " prefix",
		CycleCount: 4,
		Length:     1,
	}
}

// --- Execute ---

func (c *CPU_Z80) reg8(code byte) byte {
	s := &c.state
	switch code {
	case 0:
		return s.B
	case 1:
		return s.C
	case 2:
		return s.D
	case 3:
		return s.E
	case 4:
		return s.H
	case 5:
		return s.L
	case 6:
		return c.read8(s.HL())
	default:
		return s.A
	}
}

func (c *CPU_Z80) setReg8(code byte, v byte) {
	s := &c.state
	switch code {
	case 0:
		s.B = v
	case 1:
		s.C = v
	case 2:
		s.D = v
	case 3:
		s.E = v
	case 4:
		s.H = v
	case 5:
		s.L = v
	case 6:
		c.write8(s.HL(), v)
	default:
		s.A = v
	}
}

func (c *CPU_Z80) pairSS(code byte) uint16 {
	s := &c.state
	switch code {
	case 0:
		return s.BC()
	case 1:
		return s.DE()
	case 2:
		return s.HL()
	default:
		return s.SP
	}
}

func (c *CPU_Z80) setPairSS(code byte, v uint16) {
	s := &c.state
	switch code {
	case 0:
		s.SetBC(v)
	case 1:
		s.SetDE(v)
	case 2:
		s.SetHL(v)
	default:
		s.SP = v
	}
}

func (c *CPU_Z80) pairQQ(code byte) uint16 {
	if code == 3 {
		return c.state.AF()
	}
	return c.pairSS(code)
}

func (c *CPU_Z80) setPairQQ(code byte, v uint16) {
	if code == 3 {
		c.state.SetAF(v)
		return
	}
	c.setPairSS(code, v)
}

func (c *CPU_Z80) cond(code byte) bool {
	s := &c.state
	switch code {
	case 0:
		return !s.flag(FZ80_Z)
	case 1:
		return s.flag(FZ80_Z)
	case 2:
		return !s.flag(FZ80_C)
	case 3:
		return s.flag(FZ80_C)
	case 4:
		return !s.flag(FZ80_PV)
	case 5:
		return s.flag(FZ80_PV)
	case 6:
		return !s.flag(FZ80_S)
	default:
		return s.flag(FZ80_S)
	}
}

func (c *CPU_Z80) push16(v uint16) {
	s := &c.state
	s.SP--
	c.write8(s.SP, byte(v>>8))
	s.SP--
	c.write8(s.SP, byte(v))
}

func (c *CPU_Z80) pop16() uint16 {
	s := &c.state
	lo := c.read8(s.SP)
	s.SP++
	hi := c.read8(s.SP)
	s.SP++
	return uint16(hi)<<8 | uint16(lo)
}

func z80Parity(v byte) bool {
	v ^= v >> 4
	v ^= v >> 2
	v ^= v >> 1
	return v&1 == 0
}

func (c *CPU_Z80) aluAdd8(v2 byte, withCarry bool) {
	s := &c.state
	v1 := s.A
	cin := byte(0)
	if withCarry && s.flag(FZ80_C) {
		cin = 1
	}
	wide := uint16(v1) + uint16(v2) + uint16(cin)
	r := byte(wide)
	s.setFlag(FZ80_S, r&0x80 != 0)
	s.setFlag(FZ80_Z, r == 0)
	s.setFlag(FZ80_H, (v1&0xF)+(v2&0xF)+cin > 0xF)
	s.setFlag(FZ80_PV, (v1^r)&(v2^r)&0x80 != 0)
	s.setFlag(FZ80_N, false)
	s.setFlag(FZ80_C, wide > 0xFF)
	s.A = r
}

// aluSub8 computes A-v2-borrow, stores unless compareOnly.
func (c *CPU_Z80) aluSub8(v2 byte, withCarry, compareOnly bool) {
	s := &c.state
	v1 := s.A
	bin := byte(0)
	if withCarry && s.flag(FZ80_C) {
		bin = 1
	}
	wide := int(v1) - int(v2) - int(bin)
	r := byte(wide)
	s.setFlag(FZ80_S, r&0x80 != 0)
	s.setFlag(FZ80_Z, r == 0)
	s.setFlag(FZ80_H, int(v1&0xF)-int(v2&0xF)-int(bin) < 0)
	s.setFlag(FZ80_PV, (v1^v2)&(v1^r)&0x80 != 0)
	s.setFlag(FZ80_N, true)
	s.setFlag(FZ80_C, wide < 0)
	if !compareOnly {
		s.A = r
	}
}

func (c *CPU_Z80) aluLogic8(r byte, halfCarry bool) {
	s := &c.state
	s.A = r
	s.setFlag(FZ80_S, r&0x80 != 0)
	s.setFlag(FZ80_Z, r == 0)
	s.setFlag(FZ80_H, halfCarry)
	s.setFlag(FZ80_PV, z80Parity(r))
	s.setFlag(FZ80_N, false)
	s.setFlag(FZ80_C, false)
}

func (c *CPU_Z80) aluInc8(v byte) byte {
	s := &c.state
	r := v + 1
	s.setFlag(FZ80_S, r&0x80 != 0)
	s.setFlag(FZ80_Z, r == 0)
	s.setFlag(FZ80_H, v&0xF == 0xF)
	s.setFlag(FZ80_PV, v == 0x7F)
	s.setFlag(FZ80_N, false)
	return r
}

func (c *CPU_Z80) aluDec8(v byte) byte {
	s := &c.state
	r := v - 1
	s.setFlag(FZ80_S, r&0x80 != 0)
	s.setFlag(FZ80_Z, r == 0)
	s.setFlag(FZ80_H, v&0xF == 0)
	s.setFlag(FZ80_PV, v == 0x80)
	s.setFlag(FZ80_N, true)
	return r
}

// aluAdd16 touches H, N and C only; S, Z and PV survive.
func (c *CPU_Z80) aluAdd16(v1, v2 uint16) uint16 {
	s := &c.state
	wide := uint32(v1) + uint32(v2)
	s.setFlag(FZ80_H, (v1&0xFFF)+(v2&0xFFF) > 0xFFF)
	s.setFlag(FZ80_N, false)
	s.setFlag(FZ80_C, wide > 0xFFFF)
	return uint16(wide)
}

func (c *CPU_Z80) rotateShift8(kind byte, v byte) byte {
	s := &c.state
	oldC := byte(0)
	if s.flag(FZ80_C) {
		oldC = 1
	}
	var r byte
	var carry bool
	switch kind {
	case 0: // RLC
		r, carry = v<<1|v>>7, v&0x80 != 0
	case 1: // RRC
		r, carry = v>>1|v<<7, v&0x01 != 0
	case 2: // RL
		r, carry = v<<1|oldC, v&0x80 != 0
	case 3: // RR
		r, carry = v>>1|oldC<<7, v&0x01 != 0
	case 4: // SLA
		r, carry = v<<1, v&0x80 != 0
	case 5: // SRA
		r, carry = v>>1|v&0x80, v&0x01 != 0
	case 6: // SLL - undocumented, shifts a 1 into bit 0
		r, carry = v<<1|1, v&0x80 != 0
	default: // SRL
		r, carry = v>>1, v&0x01 != 0
	}
	s.setFlag(FZ80_S, r&0x80 != 0)
	s.setFlag(FZ80_Z, r == 0)
	s.setFlag(FZ80_H, false)
	s.setFlag(FZ80_PV, z80Parity(r))
	s.setFlag(FZ80_N, false)
	s.setFlag(FZ80_C, carry)
	return r
}

func (c *CPU_Z80) execute(op Operation) {
	key := opcodeKey(op)
	if key > 0xFF {
		switch byte(key >> 8) {
		case 0xCB:
			c.executeCB(byte(key))
		case 0xED:
			c.executeED(byte(key))
		case 0xDD:
			c.executeIndex(byte(key), op, false)
		case 0xFD:
			c.executeIndex(byte(key), op, true)
		}
		return
	}
	c.executeMain(byte(key), op)
}

func (c *CPU_Z80) executeMain(opcode byte, op Operation) {
	s := &c.state
	b := op.OperandBytes
	le16 := func() uint16 {
		return uint16(b[1])<<8 | uint16(b[0])
	}

	switch {
	case opcode == 0x00: // NOP
	case opcode == 0x08: // EX AF,AF'
		s.A, s.A2 = s.A2, s.A
		s.F, s.F2 = s.F2, s.F
	case opcode == 0x10: // DJNZ
		s.B--
		if s.B != 0 {
			s.PC += uint16(int8(b[0]))
		}
	case opcode == 0x18: // JR
		s.PC += uint16(int8(b[0]))
	case opcode&0xE7 == 0x20: // JR cc
		if c.cond((opcode >> 3) & 3) {
			s.PC += uint16(int8(b[0]))
		}
	case opcode&0xCF == 0x01: // LD ss,nn
		c.setPairSS((opcode>>4)&3, le16())
	case opcode&0xCF == 0x09: // ADD HL,ss
		s.SetHL(c.aluAdd16(s.HL(), c.pairSS((opcode>>4)&3)))
	case opcode&0xCF == 0x03: // INC ss
		code := (opcode >> 4) & 3
		c.setPairSS(code, c.pairSS(code)+1)
	case opcode&0xCF == 0x0B: // DEC ss
		code := (opcode >> 4) & 3
		c.setPairSS(code, c.pairSS(code)-1)
	case opcode == 0x02:
		c.write8(s.BC(), s.A)
	case opcode == 0x12:
		c.write8(s.DE(), s.A)
	case opcode == 0x0A:
		s.A = c.read8(s.BC())
	case opcode == 0x1A:
		s.A = c.read8(s.DE())
	case opcode == 0x22:
		addr := le16()
		c.write8(addr, s.L)
		c.write8(addr+1, s.H)
	case opcode == 0x2A:
		addr := le16()
		s.L = c.read8(addr)
		s.H = c.read8(addr + 1)
	case opcode == 0x32:
		c.write8(le16(), s.A)
	case opcode == 0x3A:
		s.A = c.read8(le16())
	case opcode == 0x07: // RLCA
		carry := s.A&0x80 != 0
		s.A = s.A<<1 | s.A>>7
		c.accRotateFlags(carry)
	case opcode == 0x0F: // RRCA
		carry := s.A&0x01 != 0
		s.A = s.A>>1 | s.A<<7
		c.accRotateFlags(carry)
	case opcode == 0x17: // RLA
		oldC := byte(0)
		if s.flag(FZ80_C) {
			oldC = 1
		}
		carry := s.A&0x80 != 0
		s.A = s.A<<1 | oldC
		c.accRotateFlags(carry)
	case opcode == 0x1F: // RRA
		oldC := byte(0)
		if s.flag(FZ80_C) {
			oldC = 0x80
		}
		carry := s.A&0x01 != 0
		s.A = s.A>>1 | oldC
		c.accRotateFlags(carry)
	case opcode == 0x2F: // CPL
		s.A = ^s.A
		s.setFlag(FZ80_H, true)
		s.setFlag(FZ80_N, true)
	case opcode == 0x37: // SCF
		s.setFlag(FZ80_C, true)
		s.setFlag(FZ80_H, false)
		s.setFlag(FZ80_N, false)
	case opcode == 0x3F: // CCF
		old := s.flag(FZ80_C)
		s.setFlag(FZ80_H, old)
		s.setFlag(FZ80_C, !old)
		s.setFlag(FZ80_N, false)
	case opcode == 0x76: // HALT
		s.Halted = true
	case opcode&0xC7 == 0x06: // LD r,n
		c.setReg8((opcode>>3)&7, b[0])
	case opcode&0xC7 == 0x04: // INC r
		code := (opcode >> 3) & 7
		c.setReg8(code, c.aluInc8(c.reg8(code)))
	case opcode&0xC7 == 0x05: // DEC r
		code := (opcode >> 3) & 7
		c.setReg8(code, c.aluDec8(c.reg8(code)))
	case opcode >= 0x40 && opcode <= 0x7F: // LD r,r'
		c.setReg8((opcode>>3)&7, c.reg8(opcode&7))
	case opcode >= 0x80 && opcode <= 0xBF: // ALU A,r
		c.aluDispatch((opcode>>3)&7, c.reg8(opcode&7))
	case opcode&0xC7 == 0xC6: // ALU A,n
		c.aluDispatch((opcode>>3)&7, b[0])
	case opcode&0xCF == 0xC5: // PUSH qq
		c.push16(c.pairQQ((opcode >> 4) & 3))
	case opcode&0xCF == 0xC1: // POP qq
		c.setPairQQ((opcode>>4)&3, c.pop16())
	case opcode == 0xC3: // JP
		s.PC = le16()
	case opcode&0xC7 == 0xC2: // JP cc
		if c.cond((opcode >> 3) & 7) {
			s.PC = le16()
		}
	case opcode == 0xCD: // CALL
		c.push16(s.PC)
		s.PC = le16()
	case opcode&0xC7 == 0xC4: // CALL cc
		if c.cond((opcode >> 3) & 7) {
			c.push16(s.PC)
			s.PC = le16()
		}
	case opcode == 0xC9: // RET
		s.PC = c.pop16()
	case opcode&0xC7 == 0xC0: // RET cc
		if c.cond((opcode >> 3) & 7) {
			s.PC = c.pop16()
		}
	case opcode == 0xE9: // JP (HL)
		s.PC = s.HL()
	case opcode == 0xD3: // OUT (n),A
		c.writeIO8(uint16(s.A)<<8|uint16(b[0]), s.A)
	case opcode == 0xDB: // IN A,(n)
		s.A = c.readIO8(uint16(s.A)<<8 | uint16(b[0]))
	case opcode == 0xD9: // EXX
		s.B, s.B2 = s.B2, s.B
		s.C, s.C2 = s.C2, s.C
		s.D, s.D2 = s.D2, s.D
		s.E, s.E2 = s.E2, s.E
		s.H, s.H2 = s.H2, s.H
		s.L, s.L2 = s.L2, s.L
	case opcode == 0xE3: // EX (SP),HL
		lo := c.read8(s.SP)
		c.write8(s.SP, s.L)
		hi := c.read8(s.SP + 1)
		c.write8(s.SP+1, s.H)
		s.L, s.H = lo, hi
	case opcode == 0xEB: // EX DE,HL
		s.D, s.H = s.H, s.D
		s.E, s.L = s.L, s.E
	case opcode == 0xF3: // DI
		s.IFF1, s.IFF2 = false, false
	case opcode == 0xFB: // EI
		s.IFF1, s.IFF2 = true, true
	case opcode == 0xF9: // LD SP,HL
		s.SP = s.HL()
	}
}

func (c *CPU_Z80) accRotateFlags(carry bool) {
	c.state.setFlag(FZ80_H, false)
	c.state.setFlag(FZ80_N, false)
	c.state.setFlag(FZ80_C, carry)
}

func (c *CPU_Z80) aluDispatch(kind byte, v byte) {
	s := &c.state
	switch kind {
	case 0:
		c.aluAdd8(v, false)
	case 1:
		c.aluAdd8(v, true)
	case 2:
		c.aluSub8(v, false, false)
	case 3:
		c.aluSub8(v, true, false)
	case 4:
		c.aluLogic8(s.A&v, true)
	case 5:
		c.aluLogic8(s.A^v, false)
	case 6:
		c.aluLogic8(s.A|v, false)
	default:
		c.aluSub8(v, false, true)
	}
}

func (c *CPU_Z80) executeCB(sub byte) {
	s := &c.state
	code := sub & 7
	bit := (sub >> 3) & 7
	switch {
	case sub < 0x40:
		c.setReg8(code, c.rotateShift8(sub>>3, c.reg8(code)))
	case sub < 0x80: // BIT b,r
		res := c.reg8(code) & (1 << bit)
		s.setFlag(FZ80_Z, res == 0)
		s.setFlag(FZ80_H, true)
		s.setFlag(FZ80_N, false)
		s.setFlag(FZ80_S, bit == 7 && res != 0)
		s.setFlag(FZ80_PV, res == 0)
	case sub < 0xC0: // RES b,r
		c.setReg8(code, c.reg8(code)&^(1<<bit))
	default: // SET b,r
		c.setReg8(code, c.reg8(code)|1<<bit)
	}
}

// blockTransfer covers LDI/LDD and their repeating forms. An unfinished
// repeat rewinds PC onto its own prefix so the next step re-runs it.
func (c *CPU_Z80) blockTransfer(increment, repeat bool) {
	s := &c.state
	c.write8(s.DE(), c.read8(s.HL()))
	if increment {
		s.SetHL(s.HL() + 1)
		s.SetDE(s.DE() + 1)
	} else {
		s.SetHL(s.HL() - 1)
		s.SetDE(s.DE() - 1)
	}
	s.SetBC(s.BC() - 1)
	s.setFlag(FZ80_N, false)
	s.setFlag(FZ80_H, false)
	s.setFlag(FZ80_PV, s.BC() != 0)
	if repeat && s.BC() != 0 {
		s.PC -= 2
	}
}

func (c *CPU_Z80) executeED(sub byte) {
	s := &c.state
	switch sub {
	case 0xA0:
		c.blockTransfer(true, false)
	case 0xB0:
		c.blockTransfer(true, true)
	case 0xA8:
		c.blockTransfer(false, false)
	case 0xB8:
		c.blockTransfer(false, true)
	case 0x46:
		s.IM = 0
	case 0x56:
		s.IM = 1
	case 0x5E:
		s.IM = 2
	case 0x4D: // RETI
		s.PC = c.pop16()
	case 0x45: // RETN
		s.PC = c.pop16()
		s.IFF1 = s.IFF2
	}
}

func (c *CPU_Z80) executeIndex(sub byte, op Operation, isIY bool) {
	s := &c.state
	b := op.OperandBytes
	ix := s.IX
	if isIY {
		ix = s.IY
	}
	setIX := func(v uint16) {
		if isIY {
			s.IY = v
		} else {
			s.IX = v
		}
	}

	switch {
	case sub == 0x21:
		setIX(uint16(b[1])<<8 | uint16(b[0]))
	case sub&0xCF == 0x09:
		code := (sub >> 4) & 3
		v2 := c.pairSS(code)
		if code == 2 {
			v2 = ix
		}
		setIX(c.aluAdd16(ix, v2))
	case sub == 0x23:
		setIX(ix + 1)
	case sub == 0xE3:
		lo := c.read8(s.SP)
		c.write8(s.SP, byte(ix))
		hi := c.read8(s.SP + 1)
		c.write8(s.SP+1, byte(ix>>8))
		setIX(uint16(hi)<<8 | uint16(lo))
	case sub&0xC7 == 0x46 && sub != 0x76:
		addr := ix + uint16(int8(b[0]))
		c.setReg8((sub>>3)&7, c.read8(addr))
	case sub >= 0x70 && sub <= 0x77 && sub != 0x76:
		addr := ix + uint16(int8(b[0]))
		c.write8(addr, c.reg8(sub&7))
	}
}

func (c *CPU_Z80) RegisterMap() map[string]uint32 {
	s := &c.state
	return map[string]uint32{
		"AF": uint32(s.AF()), "BC": uint32(s.BC()), "DE": uint32(s.DE()),
		"HL": uint32(s.HL()), "IX": uint32(s.IX), "IY": uint32(s.IY),
		"SP": uint32(s.SP), "PC": uint32(s.PC),
		"I": uint32(s.I), "R": uint32(s.R),
	}
}

func (c *CPU_Z80) RegisterLayout() []RegisterGroup {
	return []RegisterGroup{
		{Name: "Register Pairs", Registers: []RegisterInfo{
			{Name: "AF", BitWidth: 16}, {Name: "BC", BitWidth: 16},
			{Name: "DE", BitWidth: 16}, {Name: "HL", BitWidth: 16},
		}},
		{Name: "Index/Pointers", Registers: []RegisterInfo{
			{Name: "IX", BitWidth: 16}, {Name: "IY", BitWidth: 16},
			{Name: "SP", BitWidth: 16}, {Name: "PC", BitWidth: 16},
		}},
		{Name: "Special", Registers: []RegisterInfo{
			{Name: "I", BitWidth: 8}, {Name: "R", BitWidth: 8},
		}},
	}
}

func (c *CPU_Z80) FlagState() map[string]bool {
	s := &c.state
	return map[string]bool{
		"S": s.flag(FZ80_S), "Z": s.flag(FZ80_Z), "H": s.flag(FZ80_H),
		"PV": s.flag(FZ80_PV), "N": s.flag(FZ80_N), "C": s.flag(FZ80_C),
	}
}

func (c *CPU_Z80) Disassemble(start uint16, length int) ([]DisassembledLine, error) {
	return disassembleRange(c.bus, c.decode, start, length)
}
