// core_types.go - Shared data model for the RetroCoreTracer emulation engine

package main

import (
	"fmt"
	"strings"
)

// Operation is the immutable product of decode: one instruction's identity,
// its operand bytes and the cost of executing it.
type Operation struct {
	OpcodeHex    string
	Mnemonic     string
	Operands     []string
	OperandBytes []byte
	CycleCount   int
	Length       uint16
}

func (op Operation) Text() string {
	if len(op.Operands) == 0 {
		return op.Mnemonic
	}
	return op.Mnemonic + " " + strings.Join(op.Operands, ", ")
}

// Metadata rides on every Snapshot: the cumulative cycle counter after the
// step and the symbol-annotated description of what ran.
type Metadata struct {
	CycleCount uint64
	SymbolInfo string
}

// Snapshot is the sole channel through which the engine publishes results.
// State is a value copy taken at capture time; nothing downstream can reach
// back into the live CPU through it.
type Snapshot struct {
	State       CpuState
	Operation   Operation
	Metadata    Metadata
	BusActivity []BusAccess
	Undo        []MemoryPatch
}

// SymbolMap maps labels to addresses. Consumed opportunistically by step()
// to annotate Snapshot metadata.
type SymbolMap map[string]uint16

// CpuState is the architecture-neutral view of a register file. Concrete
// types are plain structs, so Clone is a shallow value copy.
type CpuState interface {
	ProgramCounter() uint16
	// Register returns the named register's current value. The second
	// return is false for names the architecture does not have.
	Register(name string) (uint32, bool)
	Clone() CpuState
}

type RegisterInfo struct {
	Name     string
	BitWidth int
}

type RegisterGroup struct {
	Name      string
	Registers []RegisterInfo
}

type DisassembledLine struct {
	Address  uint16
	HexBytes string
	Mnemonic string
}

// TracedCPU is the uniform stepping/inspection contract all three cores
// implement. The debugger and any front-end drive a core exclusively
// through it.
type TracedCPU interface {
	Reset() error
	Step() (Snapshot, error)
	State() CpuState
	RestoreState(CpuState)
	CycleCount() uint64
	RegisterMap() map[string]uint32
	RegisterLayout() []RegisterGroup
	FlagState() map[string]bool
	Disassemble(start uint16, length int) ([]DisassembledLine, error)
	SetSymbolMap(symbols SymbolMap)
}

// symbolFor reverse-resolves an address against a symbol map.
func symbolFor(symbols SymbolMap, addr uint16) string {
	for name, a := range symbols {
		if a == addr {
			return name
		}
	}
	return ""
}

// annotate builds the SymbolInfo string for a step: "label: MNEMONIC ops"
// when the pre-fetch PC carries a symbol, plain mnemonic text otherwise.
func annotate(symbols SymbolMap, pc uint16, op Operation) string {
	if label := symbolFor(symbols, pc); label != "" {
		return fmt.Sprintf("%s: %s", label, op.Text())
	}
	return op.Text()
}
