// debug_conditions.go - Breakpoint conditions: model, matching, text parser

/*
(c) 2024 - 2026 sirosiro
https://github.com/sirosiro/RetroCoreTracer
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"strconv"
	"strings"
)

type BreakpointKind int

const (
	BP_PC_MATCH BreakpointKind = iota
	BP_MEMORY_READ
	BP_MEMORY_WRITE
	BP_IO_READ
	BP_IO_WRITE
	BP_REGISTER_VALUE
	BP_REGISTER_CHANGE
)

func (k BreakpointKind) String() string {
	switch k {
	case BP_PC_MATCH:
		return "PC_MATCH"
	case BP_MEMORY_READ:
		return "MEMORY_READ"
	case BP_MEMORY_WRITE:
		return "MEMORY_WRITE"
	case BP_IO_READ:
		return "IO_READ"
	case BP_IO_WRITE:
		return "IO_WRITE"
	case BP_REGISTER_VALUE:
		return "REGISTER_VALUE"
	case BP_REGISTER_CHANGE:
		return "REGISTER_CHANGE"
	}
	return "UNKNOWN"
}

// BreakpointCondition is a plain value; two conditions describing the same
// trigger compare equal regardless of their Enabled toggles.
type BreakpointCondition struct {
	Kind     BreakpointKind
	Address  uint16
	Register string
	Value    uint32
	Enabled  bool
}

func (b BreakpointCondition) key() BreakpointCondition {
	b.Enabled = false
	return b
}

func (b BreakpointCondition) String() string {
	state := "on"
	if !b.Enabled {
		state = "off"
	}
	switch b.Kind {
	case BP_PC_MATCH, BP_MEMORY_READ, BP_MEMORY_WRITE, BP_IO_READ, BP_IO_WRITE:
		return fmt.Sprintf("%s $%04X [%s]", b.Kind, b.Address, state)
	case BP_REGISTER_VALUE:
		return fmt.Sprintf("%s %s==$%X [%s]", b.Kind, b.Register, b.Value, state)
	case BP_REGISTER_CHANGE:
		return fmt.Sprintf("%s %s [%s]", b.Kind, b.Register, state)
	}
	return fmt.Sprintf("%s [%s]", b.Kind, state)
}

// matchesAccess reports whether a logged bus access trips this condition.
func (b BreakpointCondition) matchesAccess(acc BusAccess) bool {
	if !b.Enabled || acc.Address != b.Address {
		return false
	}
	switch b.Kind {
	case BP_MEMORY_READ:
		return acc.Type == BUS_READ
	case BP_MEMORY_WRITE:
		return acc.Type == BUS_WRITE
	case BP_IO_READ:
		return acc.Type == BUS_IO_READ
	case BP_IO_WRITE:
		return acc.Type == BUS_IO_WRITE
	}
	return false
}

// matchesRegisters evaluates the register kinds against the state before
// and after an instruction. A register name the core does not expose never
// matches.
func (b BreakpointCondition) matchesRegisters(prev, cur CpuState) bool {
	if !b.Enabled {
		return false
	}
	switch b.Kind {
	case BP_REGISTER_VALUE:
		v, ok := cur.Register(b.Register)
		return ok && v == b.Value
	case BP_REGISTER_CHANGE:
		before, okBefore := prev.Register(b.Register)
		after, okAfter := cur.Register(b.Register)
		return okBefore && okAfter && before != after
	}
	return false
}

func (b BreakpointCondition) matchesPC(pc uint16) bool {
	return b.Enabled && b.Kind == BP_PC_MATCH && b.Address == pc
}

// ParseBreakpoint parses a condition string into a BreakpointCondition.
// Formats:
//
//	pc==$8000       - break before executing $8000
//	read[$1000]     - break after a data read at $1000
//	write[$1000]    - break after a write at $1000
//	in[$10]         - break after an IO read on port $10
//	out[$10]        - break after an IO write on port $10
//	A==$FF          - break when register A holds $FF
//	A!              - break when register A changes
func ParseBreakpoint(text string) (BreakpointCondition, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return BreakpointCondition{}, fmt.Errorf("empty condition")
	}

	// Access watches: kind[$addr]
	for prefix, kind := range map[string]BreakpointKind{
		"read":  BP_MEMORY_READ,
		"write": BP_MEMORY_WRITE,
		"in":    BP_IO_READ,
		"out":   BP_IO_WRITE,
	} {
		if strings.HasPrefix(strings.ToLower(text), prefix+"[") && strings.HasSuffix(text, "]") {
			addrStr := text[len(prefix)+1 : len(text)-1]
			addr, ok := parseNumeric(addrStr)
			if !ok {
				return BreakpointCondition{}, fmt.Errorf("invalid address: %s", addrStr)
			}
			return BreakpointCondition{Kind: kind, Address: uint16(addr), Enabled: true}, nil
		}
	}

	// Register change: REG!
	if strings.HasSuffix(text, "!") {
		reg := strings.ToUpper(strings.TrimSpace(text[:len(text)-1]))
		if reg == "" {
			return BreakpointCondition{}, fmt.Errorf("missing register name")
		}
		return BreakpointCondition{Kind: BP_REGISTER_CHANGE, Register: reg, Enabled: true}, nil
	}

	idx := strings.Index(text, "==")
	if idx < 0 {
		return BreakpointCondition{}, fmt.Errorf("no operator found (use ==, kind[$addr] or REG!)")
	}
	lhs := strings.ToUpper(strings.TrimSpace(text[:idx]))
	rhs := strings.TrimSpace(text[idx+2:])
	value, ok := parseNumeric(rhs)
	if !ok {
		return BreakpointCondition{}, fmt.Errorf("invalid value: %s", rhs)
	}

	if lhs == "PC" {
		return BreakpointCondition{Kind: BP_PC_MATCH, Address: uint16(value), Enabled: true}, nil
	}
	return BreakpointCondition{Kind: BP_REGISTER_VALUE, Register: lhs, Value: value, Enabled: true}, nil
}

// parseNumeric accepts $hex, 0xhex and decimal.
func parseNumeric(s string) (uint32, bool) {
	s = strings.TrimSpace(s)
	base := 10
	switch {
	case strings.HasPrefix(s, "$"):
		s, base = s[1:], 16
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		s, base = s[2:], 16
	}
	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}
