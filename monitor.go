// monitor.go - Interactive machine monitor over a raw terminal

/*
(c) 2024 - 2026 sirosiro
https://github.com/sirosiro/RetroCoreTracer
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/term"
)

type MonitorCommand struct {
	Name string
	Args []string
}

func ParseCommand(input string) MonitorCommand {
	fields := strings.Fields(strings.TrimSpace(input))
	if len(fields) == 0 {
		return MonitorCommand{}
	}
	return MonitorCommand{Name: strings.ToLower(fields[0]), Args: fields[1:]}
}

// Monitor is the interactive front end: a command loop over the traced CPU,
// its bus and the debugger.
type Monitor struct {
	cpu TracedCPU
	bus *MachineBus
	dbg *Debugger
}

func NewMonitor(cpu TracedCPU, bus *MachineBus, dbg *Debugger) *Monitor {
	return &Monitor{cpu: cpu, bus: bus, dbg: dbg}
}

// Interact puts stdin into raw mode and runs the command loop until the
// exit command. The previous terminal state is restored on return.
func (m *Monitor) Interact() error {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("monitor: raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}, "rct> ")

	fmt.Fprintln(t, "RetroCoreTracer monitor. Type ? for help, x to exit.")
	for {
		line, err := t.ReadLine()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if !m.Execute(line, t) {
			return nil
		}
	}
}

// Execute runs one command line; it returns false when the session should
// end.
func (m *Monitor) Execute(input string, out io.Writer) bool {
	cmd := ParseCommand(input)
	switch cmd.Name {
	case "":
	case "r", "registers":
		m.cmdRegisters(out)
	case "d", "disasm":
		m.cmdDisassemble(cmd, out)
	case "m", "mem":
		m.cmdMemoryDump(cmd, out)
	case "z", "step":
		m.cmdStep(cmd, out)
	case "zb", "back":
		m.cmdStepBack(cmd, out)
	case "g", "go":
		m.cmdRun(out)
	case "gb", "goback":
		m.cmdRunBack(out)
	case "b", "break":
		m.cmdBreakpointSet(cmd, out)
	case "bc", "clear":
		m.cmdBreakpointClear(cmd, out)
	case "bl", "list":
		m.cmdBreakpointList(out)
	case "h", "history":
		m.cmdHistory(cmd, out)
	case "?", "help":
		m.cmdHelp(out)
	case "x", "quit", "exit":
		return false
	default:
		fmt.Fprintf(out, "unknown command %q, ? for help\n", cmd.Name)
	}
	return true
}

func (m *Monitor) printSnapshot(out io.Writer, snap Snapshot) {
	fmt.Fprintf(out, "[%8d] %s\n", snap.Metadata.CycleCount, snap.Metadata.SymbolInfo)
	for _, acc := range snap.BusActivity {
		fmt.Fprintf(out, "           %s $%04X = $%02X\n", acc.Type, acc.Address, acc.Data)
	}
}

func (m *Monitor) cmdRegisters(out io.Writer) {
	regs := m.cpu.RegisterMap()
	for _, group := range m.cpu.RegisterLayout() {
		parts := make([]string, 0, len(group.Registers))
		for _, info := range group.Registers {
			width := info.BitWidth / 4
			parts = append(parts, fmt.Sprintf("%s=$%0*X", info.Name, width, regs[info.Name]))
		}
		fmt.Fprintf(out, "%-16s %s\n", group.Name+":", strings.Join(parts, " "))
	}

	flags := m.cpu.FlagState()
	names := make([]string, 0, len(flags))
	for name := range flags {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		v := 0
		if flags[name] {
			v = 1
		}
		parts = append(parts, fmt.Sprintf("%s=%d", name, v))
	}
	fmt.Fprintf(out, "%-16s %s\n", "Flags:", strings.Join(parts, " "))
}

func (m *Monitor) cmdDisassemble(cmd MonitorCommand, out io.Writer) {
	start := m.cpu.State().ProgramCounter()
	length := 32
	if len(cmd.Args) > 0 {
		v, ok := parseNumeric(cmd.Args[0])
		if !ok || v > 0xFFFF {
			fmt.Fprintf(out, "bad address %q\n", cmd.Args[0])
			return
		}
		start = uint16(v)
	}
	if len(cmd.Args) > 1 {
		if n, err := strconv.Atoi(cmd.Args[1]); err == nil && n > 0 {
			length = n
		}
	}
	lines, err := m.cpu.Disassemble(start, length)
	if err != nil {
		fmt.Fprintf(out, "disassemble: %v\n", err)
		return
	}
	for _, line := range lines {
		fmt.Fprintf(out, "$%04X  %-12s %s\n", line.Address, line.HexBytes, line.Mnemonic)
	}
}

func (m *Monitor) cmdMemoryDump(cmd MonitorCommand, out io.Writer) {
	if len(cmd.Args) == 0 {
		fmt.Fprintln(out, "usage: m <addr> [len]")
		return
	}
	v, ok := parseNumeric(cmd.Args[0])
	if !ok || v > 0xFFFF {
		fmt.Fprintf(out, "bad address %q\n", cmd.Args[0])
		return
	}
	addr := uint16(v)
	length := 64
	if len(cmd.Args) > 1 {
		if n, err := strconv.Atoi(cmd.Args[1]); err == nil && n > 0 {
			length = n
		}
	}
	for row := 0; row < length; row += 16 {
		hexCol := make([]string, 0, 16)
		ascii := make([]byte, 0, 16)
		for i := 0; i < 16 && row+i < length; i++ {
			b, err := m.bus.Peek(addr + uint16(row+i))
			if err != nil {
				hexCol = append(hexCol, "--")
				ascii = append(ascii, ' ')
				continue
			}
			hexCol = append(hexCol, fmt.Sprintf("%02X", b))
			if b >= 0x20 && b < 0x7F {
				ascii = append(ascii, b)
			} else {
				ascii = append(ascii, '.')
			}
		}
		fmt.Fprintf(out, "$%04X  %-47s  %s\n", addr+uint16(row), strings.Join(hexCol, " "), ascii)
	}
}

func (m *Monitor) cmdStep(cmd MonitorCommand, out io.Writer) {
	count := 1
	if len(cmd.Args) > 0 {
		if n, err := strconv.Atoi(cmd.Args[0]); err == nil && n > 0 {
			count = n
		}
	}
	for i := 0; i < count; i++ {
		snap, err := m.dbg.StepInstruction()
		if err != nil {
			fmt.Fprintf(out, "step: %v\n", err)
			return
		}
		m.printSnapshot(out, snap)
	}
}

func (m *Monitor) cmdStepBack(cmd MonitorCommand, out io.Writer) {
	count := 1
	if len(cmd.Args) > 0 {
		if n, err := strconv.Atoi(cmd.Args[0]); err == nil && n > 0 {
			count = n
		}
	}
	for i := 0; i < count; i++ {
		snap, err := m.dbg.StepBack()
		if err != nil {
			fmt.Fprintf(out, "back: %v\n", err)
			return
		}
		if snap == nil {
			fmt.Fprintln(out, "at start of history")
			return
		}
		m.printSnapshot(out, *snap)
	}
}

func (m *Monitor) cmdRun(out io.Writer) {
	snap, err := m.dbg.Run()
	if err != nil {
		fmt.Fprintf(out, "run: %v\n", err)
		return
	}
	m.printSnapshot(out, snap)
}

func (m *Monitor) cmdRunBack(out io.Writer) {
	snap, err := m.dbg.RunBack()
	if err != nil {
		fmt.Fprintf(out, "run back: %v\n", err)
		return
	}
	if snap == nil {
		fmt.Fprintln(out, "at start of history")
		return
	}
	m.printSnapshot(out, *snap)
}

func (m *Monitor) cmdBreakpointSet(cmd MonitorCommand, out io.Writer) {
	if len(cmd.Args) == 0 {
		fmt.Fprintln(out, "usage: b <condition>   e.g. b pc==$8000, b write[$2000], b A==$FF, b A!")
		return
	}
	bp, err := ParseBreakpoint(strings.Join(cmd.Args, " "))
	if err != nil {
		fmt.Fprintf(out, "break: %v\n", err)
		return
	}
	if err := m.dbg.AddBreakpoint(bp); err != nil {
		fmt.Fprintf(out, "break: %v\n", err)
		return
	}
	fmt.Fprintf(out, "added %s\n", bp)
}

func (m *Monitor) cmdBreakpointClear(cmd MonitorCommand, out io.Writer) {
	if len(cmd.Args) == 0 {
		fmt.Fprintln(out, "usage: bc <index>")
		return
	}
	index, err := strconv.Atoi(cmd.Args[0])
	if err != nil {
		fmt.Fprintf(out, "bad index %q\n", cmd.Args[0])
		return
	}
	if err := m.dbg.RemoveBreakpoint(index); err != nil {
		fmt.Fprintf(out, "clear: %v\n", err)
		return
	}
	fmt.Fprintf(out, "cleared %d\n", index)
}

func (m *Monitor) cmdBreakpointList(out io.Writer) {
	bps := m.dbg.Breakpoints()
	if len(bps) == 0 {
		fmt.Fprintln(out, "no breakpoints")
		return
	}
	for i, bp := range bps {
		fmt.Fprintf(out, "%2d: %s\n", i, bp)
	}
}

func (m *Monitor) cmdHistory(cmd MonitorCommand, out io.Writer) {
	history := m.dbg.GetHistory()
	tail := 10
	if len(cmd.Args) > 0 {
		if n, err := strconv.Atoi(cmd.Args[0]); err == nil && n > 0 {
			tail = n
		}
	}
	if tail > len(history) {
		tail = len(history)
	}
	for _, snap := range history[len(history)-tail:] {
		fmt.Fprintf(out, "[%8d] %s\n", snap.Metadata.CycleCount, snap.Metadata.SymbolInfo)
	}
}

func (m *Monitor) cmdHelp(out io.Writer) {
	fmt.Fprint(out, `r            show registers and flags
d [addr] [n] disassemble n bytes (default: from PC)
m <addr> [n] dump memory
z [n]        step n instructions
zb [n]       step back n instructions
g            run until breakpoint or halt
gb           run backwards until breakpoint or start
b <cond>     set breakpoint (pc==$8000, write[$2000], in[$10], A==$FF, A!)
bc <index>   clear breakpoint
bl           list breakpoints
h [n]        show last n history entries
x            exit
`)
}
