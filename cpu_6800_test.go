package main

import "testing"

func new6800(t *testing.T, program ...byte) *CPU_6800 {
	t.Helper()
	bus := newRAMBus(t)
	for i, b := range program {
		if err := bus.Load(uint16(i), b); err != nil {
			t.Fatalf("load program: %v", err)
		}
	}
	return NewCPU6800(bus)
}

func step6800(t *testing.T, cpu *CPU_6800) Snapshot {
	t.Helper()
	snap, err := cpu.Step()
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	return snap
}

func TestADDAHalfCarryAndOverflow(t *testing.T) {
	cpu := new6800(t,
		0x86, 0x7F, // LDAA #$7F
		0x8B, 0x01, // ADDA #$01
	)
	step6800(t, cpu)
	step6800(t, cpu)

	state := cpu.State().(CPU6800State)
	if state.A != 0x80 {
		t.Fatalf("A = $%02X, want $80", state.A)
	}
	flags := cpu.FlagState()
	for flag, want := range map[string]bool{"N": true, "V": true, "H": true, "C": false, "Z": false} {
		if flags[flag] != want {
			t.Errorf("flag %s = %v, want %v", flag, flags[flag], want)
		}
	}
}

func TestSUBAAndCMPAFlags(t *testing.T) {
	cpu := new6800(t,
		0x86, 0x10, // LDAA #$10
		0x81, 0x20, // CMPA #$20 - borrow
		0x80, 0x01, // SUBA #$01
	)
	step6800(t, cpu)
	step6800(t, cpu)
	if !cpu.FlagState()["C"] {
		t.Fatal("CMPA with larger operand should set C")
	}
	if a := cpu.State().(CPU6800State).A; a != 0x10 {
		t.Fatalf("CMPA modified A: $%02X", a)
	}
	step6800(t, cpu)
	if a := cpu.State().(CPU6800State).A; a != 0x0F {
		t.Fatalf("A = $%02X after SUBA, want $0F", a)
	}
}

func TestBranchesFollowZeroFlag(t *testing.T) {
	cpu := new6800(t,
		0x86, 0x00, // LDAA #$00 - sets Z
		0x27, 0x02, // BEQ +2
		0x01,       // NOP (skipped)
		0x01,       // NOP (skipped)
		0x86, 0x01, // LDAA #$01
	)
	step6800(t, cpu)
	step6800(t, cpu)
	if pc := cpu.State().ProgramCounter(); pc != 0x0006 {
		t.Fatalf("PC = $%04X after taken BEQ, want $0006", pc)
	}
	step6800(t, cpu)
	if a := cpu.State().(CPU6800State).A; a != 0x01 {
		t.Fatalf("A = $%02X, want $01", a)
	}
}

func TestJSRRTSRoundTrip(t *testing.T) {
	cpu := new6800(t,
		0xBD, 0x00, 0x10, // JSR $0010
		0x01, // NOP - return lands here
	)
	state := cpu.State().(CPU6800State)
	state.SP = 0x01FF
	cpu.RestoreState(state)
	if err := cpu.bus.Load(0x0010, 0x39); err != nil { // RTS
		t.Fatalf("load: %v", err)
	}

	step6800(t, cpu)
	if pc := cpu.State().ProgramCounter(); pc != 0x0010 {
		t.Fatalf("PC = $%04X after JSR, want $0010", pc)
	}
	if sp := cpu.State().(CPU6800State).SP; sp != 0x01FD {
		t.Fatalf("SP = $%04X after JSR, want $01FD", sp)
	}
	step6800(t, cpu)
	if pc := cpu.State().ProgramCounter(); pc != 0x0003 {
		t.Fatalf("PC = $%04X after RTS, want $0003", pc)
	}
	if sp := cpu.State().(CPU6800State).SP; sp != 0x01FF {
		t.Fatalf("SP = $%04X after RTS, want $01FF", sp)
	}
}

func TestPushPullAccumulators(t *testing.T) {
	cpu := new6800(t,
		0x86, 0x42, // LDAA #$42
		0x36,       // PSHA
		0x86, 0x00, // LDAA #$00
		0x32, // PULA
	)
	state := cpu.State().(CPU6800State)
	state.SP = 0x01FF
	cpu.RestoreState(state)

	for i := 0; i < 4; i++ {
		step6800(t, cpu)
	}
	if a := cpu.State().(CPU6800State).A; a != 0x42 {
		t.Fatalf("A = $%02X after PULA, want $42", a)
	}
}

func TestResetVector(t *testing.T) {
	cpu := new6800(t)
	cpu.EnableResetVector()
	if err := cpu.bus.Load(0xFFFE, 0x80); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cpu.bus.Load(0xFFFF, 0x10); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cpu.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if pc := cpu.State().ProgramCounter(); pc != 0x8010 {
		t.Fatalf("PC = $%04X after vectored reset, want $8010", pc)
	}
	// The vector fetch uses the silent path.
	activity, _ := cpu.bus.DrainActivity()
	if len(activity) != 0 {
		t.Fatalf("reset logged %d accesses", len(activity))
	}
}

func TestResetPreservesCycleCounter(t *testing.T) {
	cpu := new6800(t, 0x01) // NOP
	step6800(t, cpu)
	before := cpu.CycleCount()
	if before == 0 {
		t.Fatal("cycle counter did not advance")
	}
	if err := cpu.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if cpu.CycleCount() != before {
		t.Fatalf("reset cleared cycle counter: %d -> %d", before, cpu.CycleCount())
	}
}

func TestUnknownOpcodeIsTotal(t *testing.T) {
	cpu := new6800(t, 0xFF)
	snap := step6800(t, cpu)
	if snap.Operation.Mnemonic != "UNKNOWN" {
		t.Fatalf("mnemonic %q, want UNKNOWN", snap.Operation.Mnemonic)
	}
	if snap.Operation.Length != 1 || snap.Operation.CycleCount != 2 {
		t.Fatalf("unexpected fallback shape: %+v", snap.Operation)
	}
	if pc := cpu.State().ProgramCounter(); pc != 0x0001 {
		t.Fatalf("PC = $%04X, want $0001", pc)
	}
}

func TestSnapshotCarriesValueCopy(t *testing.T) {
	cpu := new6800(t,
		0x86, 0x42, // LDAA #$42
		0x86, 0x99, // LDAA #$99
	)
	first := step6800(t, cpu)
	step6800(t, cpu)
	if a := first.State.(CPU6800State).A; a != 0x42 {
		t.Fatalf("older snapshot mutated: A = $%02X", a)
	}
}

func TestSymbolAnnotation(t *testing.T) {
	cpu := new6800(t,
		0x86, 0x01, // LDAA #$01
		0x01, // NOP
	)
	cpu.SetSymbolMap(SymbolMap{"START": 0x0000})
	snap := step6800(t, cpu)
	if snap.Metadata.SymbolInfo != "START: LDAA #$01" {
		t.Fatalf("symbol info %q", snap.Metadata.SymbolInfo)
	}
	snap = step6800(t, cpu)
	if snap.Metadata.SymbolInfo != "NOP" {
		t.Fatalf("unlabelled info %q", snap.Metadata.SymbolInfo)
	}
}

func TestStepFaultsOnUnmappedFetch(t *testing.T) {
	bus := NewMachineBus()
	if err := bus.RegisterDevice(0x0000, 0x00FF, mustRAM(t, 0x100)); err != nil {
		t.Fatalf("register: %v", err)
	}
	cpu := NewCPU6800(bus)
	state := cpu.State().(CPU6800State)
	state.PC = 0x4000
	cpu.RestoreState(state)
	if _, err := cpu.Step(); err == nil {
		t.Fatal("expected a fault on unmapped fetch")
	}
}

func Test6800Disassemble(t *testing.T) {
	cpu := new6800(t,
		0x86, 0x7F, // LDAA #$7F
		0x8B, 0x01, // ADDA #$01
		0x20, 0xFA, // BRA -6
	)
	lines, err := cpu.Disassemble(0, 6)
	if err != nil {
		t.Fatalf("disassemble: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0].Mnemonic != "LDAA #$7F" || lines[0].HexBytes != "86 7F" {
		t.Fatalf("unexpected first line: %+v", lines[0])
	}
	if lines[2].Mnemonic != "BRA $0000" {
		t.Fatalf("unexpected branch line: %+v", lines[2])
	}
	// Disassembly goes through the peek path.
	activity, _ := cpu.bus.DrainActivity()
	if len(activity) != 0 {
		t.Fatalf("disassembly logged %d accesses", len(activity))
	}
}

func Test6800EveryOpcodeSteps(t *testing.T) {
	cpu := new6800(t)
	for opcode := 0; opcode <= 0xFF; opcode++ {
		for i, b := range []byte{byte(opcode), 0x00, 0x00, 0x00} {
			if err := cpu.bus.Load(uint16(i), b); err != nil {
				t.Fatalf("load: %v", err)
			}
		}
		cpu.RestoreState(CPU6800State{})
		snap, err := cpu.Step()
		if err != nil {
			t.Fatalf("opcode $%02X: %v", opcode, err)
		}
		if snap.Operation.Length < 1 {
			t.Errorf("opcode $%02X decoded to length %d", opcode, snap.Operation.Length)
		}
	}
}
