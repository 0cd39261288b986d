// cpu_6800.go - MC6800-class CPU core

/*
(c) 2024 - 2026 sirosiro
https://github.com/sirosiro/RetroCoreTracer
License: GPLv3 or later
*/

package main

import "fmt"

// 6800 condition code bits. Bits 6 and 7 read as 1 on real silicon.
const (
	CC6800_C = 0x01
	CC6800_V = 0x02
	CC6800_Z = 0x04
	CC6800_N = 0x08
	CC6800_I = 0x10
	CC6800_H = 0x20

	CC6800_INIT = 0xC0
)

// RESET_VECTOR_6800 is the big-endian address pair honoured by Reset when
// the core is configured for vectored reset.
const RESET_VECTOR_6800 = 0xFFFE

type CPU6800State struct {
	A  byte
	B  byte
	X  uint16
	SP uint16
	PC uint16
	CC byte
}

func (s CPU6800State) ProgramCounter() uint16 { return s.PC }

func (s CPU6800State) Register(name string) (uint32, bool) {
	switch name {
	case "A":
		return uint32(s.A), true
	case "B":
		return uint32(s.B), true
	case "X":
		return uint32(s.X), true
	case "SP":
		return uint32(s.SP), true
	case "PC":
		return uint32(s.PC), true
	case "CC":
		return uint32(s.CC), true
	}
	return 0, false
}

func (s CPU6800State) Clone() CpuState { return s }

func (s *CPU6800State) flag(mask byte) bool { return s.CC&mask != 0 }

func (s *CPU6800State) setFlag(mask byte, on bool) {
	if on {
		s.CC |= mask
	} else {
		s.CC &^= mask
	}
}

// CPU_6800 drives a MachineBus with the 6800 instruction subset the tracer
// covers. Reset optionally loads PC from the big-endian vector at $FFFE.
type CPU_6800 struct {
	busClient
	state       CPU6800State
	cycles      uint64
	symbols     SymbolMap
	resetVector bool
}

func NewCPU6800(bus *MachineBus) *CPU_6800 {
	return &CPU_6800{busClient: busClient{bus: bus}, state: CPU6800State{CC: CC6800_INIT}}
}

// EnableResetVector makes Reset peek $FFFE/$FFFF into PC.
func (c *CPU_6800) EnableResetVector() { c.resetVector = true }

func (c *CPU_6800) Reset() error {
	c.state = CPU6800State{CC: CC6800_INIT}
	if !c.resetVector {
		return nil
	}
	hi, err := c.bus.Peek(RESET_VECTOR_6800)
	if err != nil {
		return err
	}
	lo, err := c.bus.Peek(RESET_VECTOR_6800 + 1)
	if err != nil {
		return err
	}
	c.state.PC = uint16(hi)<<8 | uint16(lo)
	return nil
}

func (c *CPU_6800) State() CpuState    { return c.state }
func (c *CPU_6800) CycleCount() uint64 { return c.cycles }

func (c *CPU_6800) RestoreState(s CpuState) {
	if st, ok := s.(CPU6800State); ok {
		c.state = st
	}
}

func (c *CPU_6800) SetSymbolMap(symbols SymbolMap) { c.symbols = symbols }

func (c *CPU_6800) Step() (Snapshot, error) {
	c.bus.DrainActivity()
	initialPC := c.state.PC

	opcode := c.read8(c.state.PC)
	op := c.decode(opcode, c.read8, c.state.PC)
	c.state.PC += op.Length
	c.execute(op)

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

func (c *CPU_6800) decode(opcode byte, read memReader, pc uint16) Operation {
	imm8 := func(mnemonic string, cycles int) Operation {
		v := read(pc + 1)
		return Operation{
			OpcodeHex:    fmt.Sprintf("%02X", opcode),
			Mnemonic:     mnemonic,
			Operands:     []string{fmt.Sprintf("#$%02X", v)},
			OperandBytes: []byte{v},
			CycleCount:   cycles,
			Length:       2,
		}
	}
	inherent := func(mnemonic string, cycles int) Operation {
		return Operation{
			OpcodeHex:  fmt.Sprintf("%02X", opcode),
			Mnemonic:   mnemonic,
			CycleCount: cycles,
			Length:     1,
		}
	}
	relative := func(mnemonic string) Operation {
		off := read(pc + 1)
		target := pc + 2 + uint16(int8(off))
		return Operation{
			OpcodeHex:    fmt.Sprintf("%02X", opcode),
			Mnemonic:     mnemonic,
			Operands:     []string{fmt.Sprintf("$%04X", target)},
			OperandBytes: []byte{off},
			CycleCount:   4,
			Length:       2,
		}
	}
	extended := func(mnemonic string, cycles int) Operation {
		b1, b2 := read(pc+1), read(pc+2)
		addr := uint16(b1)<<8 | uint16(b2)
		return Operation{
			OpcodeHex:    fmt.Sprintf("%02X", opcode),
			Mnemonic:     mnemonic,
			Operands:     []string{fmt.Sprintf("$%04X", addr)},
			OperandBytes: []byte{b1, b2},
			CycleCount:   cycles,
			Length:       3,
		}
	}

	switch opcode {
	case 0x01:
		return inherent("NOP", 2)
	case 0x86:
		return imm8("LDAA", 2)
	case 0x96: // direct page
		addr := read(pc + 1)
		return Operation{
			OpcodeHex:    "96",
			Mnemonic:     "LDAA",
			Operands:     []string{fmt.Sprintf("$%02X", addr)},
			OperandBytes: []byte{addr},
			CycleCount:   3,
			Length:       2,
		}
	case 0xC6:
		return imm8("LDAB", 2)
	case 0xCE: // LDX #nn, big endian
		b1, b2 := read(pc+1), read(pc+2)
		val := uint16(b1)<<8 | uint16(b2)
		return Operation{
			OpcodeHex:    "CE",
			Mnemonic:     "LDX",
			Operands:     []string{fmt.Sprintf("#$%04X", val)},
			OperandBytes: []byte{b1, b2},
			CycleCount:   3,
			Length:       3,
		}
	case 0xB7:
		return extended("STAA", 5)
	case 0x36:
		return inherent("PSHA", 3)
	case 0x32:
		return inherent("PULA", 4)
	case 0x37:
		return inherent("PSHB", 3)
	case 0x33:
		return inherent("PULB", 4)
	case 0x8B:
		return imm8("ADDA", 2)
	case 0x80:
		return imm8("SUBA", 2)
	case 0x81:
		return imm8("CMPA", 2)
	case 0x84:
		return imm8("ANDA", 2)
	case 0x5C:
		return inherent("INCB", 2)
	case 0x20:
		return relative("BRA")
	case 0x26:
		return relative("BNE")
	case 0x27:
		return relative("BEQ")
	case 0xBD:
		return extended("JSR", 9)
	case 0x39:
		return inherent("RTS", 5)
	}
	return Operation{
		OpcodeHex:  fmt.Sprintf("%02X", opcode),
		Mnemonic:   "UNKNOWN",
		Operands:   []string{fmt.Sprintf("$%02X", opcode)},
		CycleCount: 2,
		Length:     1,
	}
}

func (c *CPU_6800) execute(op Operation) {
	s := &c.state
	switch opcodeKey(op) {
	case 0x01: // NOP
	case 0x86: // LDAA #
		s.A = op.OperandBytes[0]
		c.flagsLoad8(s.A)
	case 0x96: // LDAA dir
		s.A = c.read8(uint16(op.OperandBytes[0]))
		c.flagsLoad8(s.A)
	case 0xC6: // LDAB #
		s.B = op.OperandBytes[0]
		c.flagsLoad8(s.B)
	case 0xCE: // LDX #
		s.X = uint16(op.OperandBytes[0])<<8 | uint16(op.OperandBytes[1])
		s.setFlag(CC6800_N, s.X&0x8000 != 0)
		s.setFlag(CC6800_Z, s.X == 0)
		s.setFlag(CC6800_V, false)
	case 0xB7: // STAA ext
		addr := uint16(op.OperandBytes[0])<<8 | uint16(op.OperandBytes[1])
		c.write8(addr, s.A)
		c.flagsLoad8(s.A)
	case 0x36: // PSHA
		c.write8(s.SP, s.A)
		s.SP--
	case 0x32: // PULA
		s.SP++
		s.A = c.read8(s.SP)
	case 0x37: // PSHB
		c.write8(s.SP, s.B)
		s.SP--
	case 0x33: // PULB
		s.SP++
		s.B = c.read8(s.SP)
	case 0x8B: // ADDA #
		v1, v2 := s.A, op.OperandBytes[0]
		res := uint16(v1) + uint16(v2)
		s.A = byte(res)
		c.flagsAdd8(v1, v2, res)
	case 0x80: // SUBA #
		v1, v2 := s.A, op.OperandBytes[0]
		res := uint16(v1) - uint16(v2)
		s.A = byte(res)
		c.flagsSub8(v1, v2, res)
	case 0x81: // CMPA # - result discarded
		v1, v2 := s.A, op.OperandBytes[0]
		c.flagsSub8(v1, v2, uint16(v1)-uint16(v2))
	case 0x84: // ANDA #
		s.A &= op.OperandBytes[0]
		c.flagsLoad8(s.A)
	case 0x5C: // INCB
		v := s.B
		s.B = v + 1
		s.setFlag(CC6800_N, s.B&0x80 != 0)
		s.setFlag(CC6800_Z, s.B == 0)
		s.setFlag(CC6800_V, v == 0x7F)
	case 0x20: // BRA
		s.PC += uint16(int8(op.OperandBytes[0]))
	case 0x26: // BNE
		if !s.flag(CC6800_Z) {
			s.PC += uint16(int8(op.OperandBytes[0]))
		}
	case 0x27: // BEQ
		if s.flag(CC6800_Z) {
			s.PC += uint16(int8(op.OperandBytes[0]))
		}
	case 0xBD: // JSR ext - return address pushed low byte first
		target := uint16(op.OperandBytes[0])<<8 | uint16(op.OperandBytes[1])
		ret := s.PC
		c.write8(s.SP, byte(ret))
		s.SP--
		c.write8(s.SP, byte(ret>>8))
		s.SP--
		s.PC = target
	case 0x39: // RTS - high byte popped first
		s.SP++
		hi := c.read8(s.SP)
		s.SP++
		lo := c.read8(s.SP)
		s.PC = uint16(hi)<<8 | uint16(lo)
	}
}

func (c *CPU_6800) flagsLoad8(v byte) {
	c.state.setFlag(CC6800_N, v&0x80 != 0)
	c.state.setFlag(CC6800_Z, v == 0)
	c.state.setFlag(CC6800_V, false)
}

func (c *CPU_6800) flagsAdd8(v1, v2 byte, res uint16) {
	s := &c.state
	r := byte(res)
	s.setFlag(CC6800_N, r&0x80 != 0)
	s.setFlag(CC6800_Z, r == 0)
	s.setFlag(CC6800_V, (v1^r)&(v2^r)&0x80 != 0)
	s.setFlag(CC6800_C, res > 0xFF)
	s.setFlag(CC6800_H, (v1^v2^r)&0x10 != 0)
}

func (c *CPU_6800) flagsSub8(v1, v2 byte, res uint16) {
	s := &c.state
	r := byte(res)
	s.setFlag(CC6800_N, r&0x80 != 0)
	s.setFlag(CC6800_Z, r == 0)
	s.setFlag(CC6800_V, (v1^v2)&(v1^r)&0x80 != 0)
	s.setFlag(CC6800_C, v1 < v2)
}

func (c *CPU_6800) RegisterMap() map[string]uint32 {
	s := c.state
	return map[string]uint32{
		"A": uint32(s.A), "B": uint32(s.B), "X": uint32(s.X),
		"SP": uint32(s.SP), "PC": uint32(s.PC), "CC": uint32(s.CC),
	}
}

func (c *CPU_6800) RegisterLayout() []RegisterGroup {
	return []RegisterGroup{
		{Name: "Accumulators/Flags", Registers: []RegisterInfo{
			{Name: "A", BitWidth: 8}, {Name: "B", BitWidth: 8}, {Name: "CC", BitWidth: 8},
		}},
		{Name: "Index/Pointers", Registers: []RegisterInfo{
			{Name: "X", BitWidth: 16}, {Name: "SP", BitWidth: 16}, {Name: "PC", BitWidth: 16},
		}},
	}
}

func (c *CPU_6800) FlagState() map[string]bool {
	s := &c.state
	return map[string]bool{
		"H": s.flag(CC6800_H), "I": s.flag(CC6800_I), "N": s.flag(CC6800_N),
		"Z": s.flag(CC6800_Z), "V": s.flag(CC6800_V), "C": s.flag(CC6800_C),
	}
}

func (c *CPU_6800) Disassemble(start uint16, length int) ([]DisassembledLine, error) {
	return disassembleRange(c.bus, c.decode, start, length)
}
