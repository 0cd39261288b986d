// main.go - Entry point for the RetroCoreTracer CLI

/*
(c) 2024 - 2026 sirosiro
https://github.com/sirosiro/RetroCoreTracer
License: GPLv3 or later
*/

package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

const (
	RAM_START = 0x0000
	RAM_END   = 0x7FFF
	ROM_START = 0x8000
	ROM_END   = 0xFFFF

	IO_PORT_START = 0x0000
	IO_PORT_END   = 0x00FF
)

func boilerPlate() {
	fmt.Println("RetroCoreTracer - instruction-level tracing for 8-bit cores")
	fmt.Println("(c) 2024 - 2026 sirosiro")
	fmt.Println("https://github.com/sirosiro/RetroCoreTracer")
	fmt.Println("License: GPLv3 or later")
}

// buildMachine wires the standard memory map: RAM in the lower half, ROM in
// the upper half (programmed only through the load path), and for the Z80 a
// flat page of IO ports.
func buildMachine(arch string) (TracedCPU, *MachineBus, error) {
	bus := NewMachineBus()
	ram, err := NewRAM(RAM_END - RAM_START + 1)
	if err != nil {
		return nil, nil, err
	}
	if err := bus.RegisterDevice(RAM_START, RAM_END, ram); err != nil {
		return nil, nil, err
	}
	rom, err := NewROM(ROM_END - ROM_START + 1)
	if err != nil {
		return nil, nil, err
	}
	if err := bus.RegisterDevice(ROM_START, ROM_END, rom); err != nil {
		return nil, nil, err
	}

	switch strings.ToLower(arch) {
	case "6800":
		return NewCPU6800(bus), bus, nil
	case "6502":
		return NewCPU6502(bus), bus, nil
	case "z80":
		ports, err := NewRAM(IO_PORT_END - IO_PORT_START + 1)
		if err != nil {
			return nil, nil, err
		}
		if err := bus.RegisterIODevice(IO_PORT_START, IO_PORT_END, ports); err != nil {
			return nil, nil, err
		}
		return NewCPUZ80(bus), bus, nil
	}
	return nil, nil, fmt.Errorf("unknown architecture %q (want 6800, 6502 or z80)", arch)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "retrocoretracer: %v\n", err)
	os.Exit(1)
}

func main() {
	archFlag := flag.String("arch", "6502", "cpu architecture: 6800, 6502 or z80")
	hexFlag := flag.String("hex", "", "Intel HEX image to load")
	symFlag := flag.String("sym", "", "symbol file (NAME=$ADDR lines)")
	pcFlag := flag.String("pc", "", "initial program counter (overrides reset)")
	stepsFlag := flag.Int("steps", 0, "trace this many instructions and exit")
	disasmFlag := flag.String("disasm", "", "disassemble ADDR:LEN and exit")
	monitorFlag := flag.Bool("monitor", false, "start the interactive monitor")
	quietFlag := flag.Bool("quiet", false, "suppress the banner")
	flag.Parse()

	if !*quietFlag {
		boilerPlate()
	}

	cpu, bus, err := buildMachine(*archFlag)
	if err != nil {
		fatal(err)
	}

	if *hexFlag != "" {
		if err := LoadHexFile(bus, *hexFlag); err != nil {
			fatal(err)
		}
	}
	if *symFlag != "" {
		symbols, err := LoadSymbolFile(*symFlag)
		if err != nil {
			fatal(err)
		}
		cpu.SetSymbolMap(symbols)
	}

	if err := cpu.Reset(); err != nil {
		fatal(err)
	}
	if *pcFlag != "" {
		pc, ok := parseNumeric(*pcFlag)
		if !ok || pc > 0xFFFF {
			fatal(fmt.Errorf("bad -pc value %q", *pcFlag))
		}
		state := cpu.State()
		if err := jumpTo(cpu, uint16(pc)); err != nil {
			cpu.RestoreState(state)
			fatal(err)
		}
	}

	if *disasmFlag != "" {
		start, length, err := parseDisasmSpec(*disasmFlag)
		if err != nil {
			fatal(err)
		}
		lines, err := cpu.Disassemble(start, length)
		if err != nil {
			fatal(err)
		}
		for _, line := range lines {
			fmt.Printf("$%04X  %-12s %s\n", line.Address, line.HexBytes, line.Mnemonic)
		}
		return
	}

	dbg := NewDebugger(cpu, bus)

	if *monitorFlag {
		if err := NewMonitor(cpu, bus, dbg).Interact(); err != nil {
			fatal(err)
		}
		return
	}

	for i := 0; i < *stepsFlag; i++ {
		snap, err := dbg.StepInstruction()
		if err != nil {
			fatal(err)
		}
		fmt.Printf("[%8d] %s\n", snap.Metadata.CycleCount, snap.Metadata.SymbolInfo)
		if haltedOp(snap.Operation) {
			break
		}
	}
}

// jumpTo forces the program counter by restoring a copied state with PC
// replaced. Each core's state is a plain value, so the switch stays local.
func jumpTo(cpu TracedCPU, pc uint16) error {
	switch st := cpu.State().(type) {
	case CPU6800State:
		st.PC = pc
		cpu.RestoreState(st)
	case CPU6502State:
		st.PC = pc
		cpu.RestoreState(st)
	case Z80State:
		st.PC = pc
		cpu.RestoreState(st)
	default:
		return fmt.Errorf("cannot set pc on %T", st)
	}
	return nil
}

func parseDisasmSpec(spec string) (uint16, int, error) {
	parts := strings.SplitN(spec, ":", 2)
	start, ok := parseNumeric(parts[0])
	if !ok || start > 0xFFFF {
		return 0, 0, fmt.Errorf("bad -disasm address %q", parts[0])
	}
	length := 32
	if len(parts) == 2 {
		v, ok := parseNumeric(parts[1])
		if !ok || v == 0 {
			return 0, 0, fmt.Errorf("bad -disasm length %q", parts[1])
		}
		length = int(v)
	}
	return uint16(start), length, nil
}
