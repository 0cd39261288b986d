// cpu_common.go - Bus accessor plumbing shared by the three CPU cores

package main

import (
	"fmt"
	"strconv"
	"strings"
)

// busClient wraps a MachineBus with single-valued accessors. Execute
// functions stay free of error plumbing; the first bus fault latches and is
// surfaced by Step at the instruction boundary.
type busClient struct {
	bus   *MachineBus
	fault error
}

func (c *busClient) read8(addr uint16) byte {
	v, err := c.bus.Read(addr)
	if err != nil && c.fault == nil {
		c.fault = err
	}
	return v
}

func (c *busClient) write8(addr uint16, value byte) {
	if err := c.bus.Write(addr, value); err != nil && c.fault == nil {
		c.fault = err
	}
}

func (c *busClient) peek8(addr uint16) byte {
	v, err := c.bus.Peek(addr)
	if err != nil && c.fault == nil {
		c.fault = err
	}
	return v
}

func (c *busClient) readIO8(addr uint16) byte {
	v, err := c.bus.ReadIO(addr)
	if err != nil && c.fault == nil {
		c.fault = err
	}
	return v
}

func (c *busClient) writeIO8(addr uint16, value byte) {
	if err := c.bus.WriteIO(addr, value); err != nil && c.fault == nil {
		c.fault = err
	}
}

func (c *busClient) takeFault() error {
	fault := c.fault
	c.fault = nil
	return fault
}

// memReader is the read shape decoders run against: the logging read path
// during a step, the silent peek path during disassembly.
type memReader func(addr uint16) byte

// opcodeKey converts an Operation's hex identity back to its table key.
// Prefixed Z80 operations carry two bytes ("DD21" -> 0xDD21).
func opcodeKey(op Operation) uint32 {
	key, err := strconv.ParseUint(op.OpcodeHex, 16, 32)
	if err != nil {
		return 0xFFFFFFFF
	}
	return uint32(key)
}

// hexBytes renders the raw bytes of an operation: the opcode identity
// (one or two bytes for prefixed forms) followed by its operand bytes.
func hexBytes(op Operation) string {
	parts := make([]string, 0, 2+len(op.OperandBytes))
	for i := 0; i+2 <= len(op.OpcodeHex); i += 2 {
		parts = append(parts, op.OpcodeHex[i:i+2])
	}
	for _, b := range op.OperandBytes {
		parts = append(parts, fmt.Sprintf("%02X", b))
	}
	return strings.Join(parts, " ")
}

// disassembleRange walks memory from start, decoding through peek so the
// activity log is never touched. A zero-length decode cannot stall the
// walk; it advances one byte.
func disassembleRange(bus *MachineBus, decode func(opcode byte, read memReader, pc uint16) Operation,
	start uint16, length int) ([]DisassembledLine, error) {

	var peekErr error
	peek := func(addr uint16) byte {
		v, err := bus.Peek(addr)
		if err != nil && peekErr == nil {
			peekErr = err
		}
		return v
	}

	var lines []DisassembledLine
	addr := uint32(start)
	end := uint32(start) + uint32(length)
	for addr < end && addr <= 0xFFFF {
		opcode := peek(uint16(addr))
		op := decode(opcode, peek, uint16(addr))
		if peekErr != nil {
			return lines, peekErr
		}
		lines = append(lines, DisassembledLine{
			Address:  uint16(addr),
			HexBytes: hexBytes(op),
			Mnemonic: op.Text(),
		})
		if op.Length == 0 {
			addr++
		} else {
			addr += uint32(op.Length)
		}
	}
	return lines, nil
}
