package main

import (
	"runtime"
	"testing"
	"time"
)

func newDebugged6502(t *testing.T, program ...byte) (*Debugger, *CPU_6502) {
	t.Helper()
	cpu := new6502(t, program...)
	return NewDebugger(cpu, cpu.bus), cpu
}

func newDebuggedZ80(t *testing.T, program ...byte) (*Debugger, *CPU_Z80) {
	t.Helper()
	cpu := newZ80(t, program...)
	return NewDebugger(cpu, cpu.bus), cpu
}

func TestStepBackRestoresMemoryAndState(t *testing.T) {
	cpu := new6502(t,
		0x85, 0x20, // STA $20
		0x85, 0x21, // STA $21
	)
	state := cpu.State().(CPU6502State)
	state.A = 0xAA
	cpu.RestoreState(state)
	initial := cpu.State().(CPU6502State)
	dbg := NewDebugger(cpu, cpu.bus)

	if _, err := dbg.StepInstruction(); err != nil {
		t.Fatalf("step: %v", err)
	}
	if _, err := dbg.StepInstruction(); err != nil {
		t.Fatalf("step: %v", err)
	}
	for _, addr := range []uint16{0x20, 0x21} {
		v, _ := cpu.bus.Peek(addr)
		if v != 0xAA {
			t.Fatalf("mem[$%04X] = $%02X, want $AA", addr, v)
		}
	}

	// First rewind undoes the second store.
	snap, err := dbg.StepBack()
	if err != nil {
		t.Fatalf("step back: %v", err)
	}
	if snap == nil {
		t.Fatal("expected a snapshot, got start-of-time")
	}
	if pc := snap.State.ProgramCounter(); pc != 0x0002 {
		t.Fatalf("restored PC = $%04X, want $0002", pc)
	}
	if v, _ := cpu.bus.Peek(0x21); v != 0x00 {
		t.Fatalf("mem[$0021] = $%02X after rewind, want $00", v)
	}
	if v, _ := cpu.bus.Peek(0x20); v != 0xAA {
		t.Fatalf("mem[$0020] = $%02X, first store should survive", v)
	}

	// Second rewind reaches the start of time.
	snap, err = dbg.StepBack()
	if err != nil {
		t.Fatalf("step back: %v", err)
	}
	if snap != nil {
		t.Fatalf("expected nil at start of time, got %+v", snap)
	}
	if v, _ := cpu.bus.Peek(0x20); v != 0x00 {
		t.Fatalf("mem[$0020] = $%02X after full rewind, want $00", v)
	}
	if got := cpu.State().(CPU6502State); got != initial {
		t.Fatalf("state not restored to initial: %+v vs %+v", got, initial)
	}

	// One more rewind is a no-op.
	snap, err = dbg.StepBack()
	if err != nil || snap != nil {
		t.Fatalf("rewind past start: %v %v", snap, err)
	}
}

func TestRunStopsBeforePCBreakpoint(t *testing.T) {
	dbg, cpu := newDebugged6502(t,
		0xEA,             // NOP
		0x4C, 0x00, 0x00, // JMP $0000
	)
	if err := dbg.AddBreakpoint(BreakpointCondition{Kind: BP_PC_MATCH, Address: 0x0000, Enabled: true}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := dbg.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	// The first step escapes the breakpoint on the current PC; the loop
	// stops once the JMP brings PC back to it.
	if pc := cpu.State().ProgramCounter(); pc != 0x0000 {
		t.Fatalf("PC = $%04X, want $0000", pc)
	}
	if got := len(dbg.GetHistory()); got != 2 {
		t.Fatalf("%d instructions executed, want 2", got)
	}
}

func TestRunStopsOnMemoryWrite(t *testing.T) {
	dbg, cpu := newDebugged6502(t,
		0xA9, 0x07, // LDA #$07
		0x85, 0x40, // STA $40
		0xEA, // NOP
	)
	if err := dbg.AddBreakpoint(BreakpointCondition{Kind: BP_MEMORY_WRITE, Address: 0x0040, Enabled: true}); err != nil {
		t.Fatalf("add: %v", err)
	}
	snap, err := dbg.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if snap.Operation.Mnemonic != "STA" {
		t.Fatalf("stopped on %q, want STA", snap.Operation.Mnemonic)
	}
	if pc := cpu.State().ProgramCounter(); pc != 0x0004 {
		t.Fatalf("PC = $%04X, want $0004", pc)
	}
}

func TestRunStopsOnIOWrite(t *testing.T) {
	dbg, _ := newDebuggedZ80(t,
		0x3E, 0x00, // LD A,$00
		0xD3, 0x10, // OUT ($10),A
		0x76, // HALT
	)
	if err := dbg.AddBreakpoint(BreakpointCondition{Kind: BP_IO_WRITE, Address: 0x0010, Enabled: true}); err != nil {
		t.Fatalf("add: %v", err)
	}
	snap, err := dbg.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if snap.Operation.Mnemonic != "OUT" {
		t.Fatalf("stopped on %q, want OUT", snap.Operation.Mnemonic)
	}
}

func TestRunStopsOnRegisterChange(t *testing.T) {
	dbg, _ := newDebugged6502(t,
		0xEA,       // NOP
		0xA2, 0x05, // LDX #$05
		0xEA, // NOP
	)
	if err := dbg.AddBreakpoint(BreakpointCondition{Kind: BP_REGISTER_CHANGE, Register: "X", Enabled: true}); err != nil {
		t.Fatalf("add: %v", err)
	}
	snap, err := dbg.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if snap.Operation.Mnemonic != "LDX" {
		t.Fatalf("stopped on %q, want LDX", snap.Operation.Mnemonic)
	}
}

func TestRunStopsOnRegisterValue(t *testing.T) {
	dbg, _ := newDebuggedZ80(t,
		0x3C, // INC A
		0x3C, // INC A
		0x3C, // INC A
		0x76, // HALT
	)
	if err := dbg.AddBreakpoint(BreakpointCondition{Kind: BP_REGISTER_VALUE, Register: "A", Value: 2, Enabled: true}); err != nil {
		t.Fatalf("add: %v", err)
	}
	snap, err := dbg.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(dbg.GetHistory()) != 2 {
		t.Fatalf("history %d deep, want 2", len(dbg.GetHistory()))
	}
	if a := snap.State.(Z80State).A; a != 2 {
		t.Fatalf("A = %d at stop, want 2", a)
	}
}

func TestUnknownRegisterNeverMatches(t *testing.T) {
	dbg, _ := newDebuggedZ80(t,
		0x00, // NOP
		0x76, // HALT
	)
	if err := dbg.AddBreakpoint(BreakpointCondition{Kind: BP_REGISTER_VALUE, Register: "Q9", Value: 0, Enabled: true}); err != nil {
		t.Fatalf("add: %v", err)
	}
	snap, err := dbg.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if snap.Operation.Mnemonic != "HALT" {
		t.Fatalf("stopped on %q, want the HALT", snap.Operation.Mnemonic)
	}
}

func TestDisabledBreakpointIgnored(t *testing.T) {
	dbg, _ := newDebuggedZ80(t,
		0x3C, // INC A
		0x76, // HALT
	)
	if err := dbg.AddBreakpoint(BreakpointCondition{Kind: BP_REGISTER_CHANGE, Register: "A", Enabled: false}); err != nil {
		t.Fatalf("add: %v", err)
	}
	snap, err := dbg.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if snap.Operation.Mnemonic != "HALT" {
		t.Fatalf("disabled breakpoint fired, stopped on %q", snap.Operation.Mnemonic)
	}
}

func TestDuplicateBreakpointRejected(t *testing.T) {
	dbg, _ := newDebugged6502(t, 0xEA)
	bp := BreakpointCondition{Kind: BP_PC_MATCH, Address: 0x1234, Enabled: true}
	if err := dbg.AddBreakpoint(bp); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := dbg.AddBreakpoint(bp); err == nil {
		t.Fatal("duplicate accepted")
	}
	// Enabled does not participate in identity.
	bp.Enabled = false
	if err := dbg.AddBreakpoint(bp); err == nil {
		t.Fatal("duplicate with different toggle accepted")
	}
	if got := len(dbg.Breakpoints()); got != 1 {
		t.Fatalf("%d breakpoints, want 1", got)
	}
}

func TestUpdateAndRemoveBreakpoint(t *testing.T) {
	dbg, _ := newDebugged6502(t, 0xEA)
	bp := BreakpointCondition{Kind: BP_PC_MATCH, Address: 0x1000, Enabled: true}
	if err := dbg.AddBreakpoint(bp); err != nil {
		t.Fatalf("add: %v", err)
	}
	bp.Enabled = false
	if err := dbg.UpdateBreakpoint(0, bp); err != nil {
		t.Fatalf("update: %v", err)
	}
	if dbg.Breakpoints()[0].Enabled {
		t.Fatal("update did not stick")
	}
	if err := dbg.RemoveBreakpoint(5); err == nil {
		t.Fatal("out-of-range remove accepted")
	}
	if err := dbg.RemoveBreakpoint(0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(dbg.Breakpoints()) != 0 {
		t.Fatal("breakpoint not removed")
	}
}

func TestRunBackStopsAtPCBreakpoint(t *testing.T) {
	dbg, cpu := newDebugged6502(t,
		0xEA, 0xEA, 0xEA, 0xEA, // NOPs
	)
	for i := 0; i < 4; i++ {
		if _, err := dbg.StepInstruction(); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	if err := dbg.AddBreakpoint(BreakpointCondition{Kind: BP_PC_MATCH, Address: 0x0002, Enabled: true}); err != nil {
		t.Fatalf("add: %v", err)
	}
	snap, err := dbg.RunBack()
	if err != nil {
		t.Fatalf("run back: %v", err)
	}
	if snap == nil {
		t.Fatal("rewound past the breakpoint")
	}
	if pc := cpu.State().ProgramCounter(); pc != 0x0002 {
		t.Fatalf("PC = $%04X after run back, want $0002", pc)
	}
	if got := len(dbg.GetHistory()); got != 2 {
		t.Fatalf("history %d deep, want 2", got)
	}
}

func TestRunBackExhaustsHistory(t *testing.T) {
	dbg, _ := newDebugged6502(t, 0xEA, 0xEA)
	for i := 0; i < 2; i++ {
		if _, err := dbg.StepInstruction(); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	snap, err := dbg.RunBack()
	if err != nil {
		t.Fatalf("run back: %v", err)
	}
	if snap != nil {
		t.Fatalf("expected start of time, got %+v", snap)
	}
	if len(dbg.GetHistory()) != 0 {
		t.Fatal("history not emptied")
	}
}

func TestRunBackStopsOnRegisterChange(t *testing.T) {
	dbg, cpu := newDebugged6502(t,
		0xA9, 0x05, // LDA #$05
		0xA9, 0x07, // LDA #$07
		0xEA, // NOP
		0xEA, // NOP
	)
	for i := 0; i < 4; i++ {
		if _, err := dbg.StepInstruction(); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	if err := dbg.AddBreakpoint(BreakpointCondition{Kind: BP_REGISTER_CHANGE, Register: "A", Enabled: true}); err != nil {
		t.Fatalf("add: %v", err)
	}
	snap, err := dbg.RunBack()
	if err != nil {
		t.Fatalf("run back: %v", err)
	}
	if snap == nil {
		t.Fatal("rewound past the change")
	}
	// The rewind crossing the second LDA takes A from $07 back to $05.
	if pc := snap.State.ProgramCounter(); pc != 0x0002 {
		t.Fatalf("PC = $%04X after run back, want $0002", pc)
	}
	if a := cpu.State().(CPU6502State).A; a != 0x05 {
		t.Fatalf("A = $%02X after run back, want $05", a)
	}
}

func TestStopReleasesAbandonedWorker(t *testing.T) {
	dbg, _ := newDebuggedZ80(t,
		0x00,       // NOP
		0x18, 0xFD, // JR back to the NOP
	)
	before := runtime.NumGoroutine()
	out := make(chan Snapshot)
	dbg.RunWorker(out)
	<-out // worker is alive and publishing
	dbg.Stop()

	// The worker must wind down even though nobody drains the channel.
	for i := 0; i < 100; i++ {
		if runtime.NumGoroutine() <= before {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("worker still running after stop")
}

func TestRunWorkerPublishesSnapshots(t *testing.T) {
	dbg, _ := newDebuggedZ80(t,
		0x00, // NOP
		0x00, // NOP
		0x76, // HALT
	)
	out := make(chan Snapshot, 16)
	dbg.RunWorker(out)

	var got []Snapshot
	for snap := range out {
		got = append(got, snap)
	}
	if len(got) != 3 {
		t.Fatalf("received %d snapshots, want 3", len(got))
	}
	if got[2].Operation.Mnemonic != "HALT" {
		t.Fatalf("last snapshot %q, want HALT", got[2].Operation.Mnemonic)
	}
}

func TestGetLastSnapshot(t *testing.T) {
	dbg, _ := newDebugged6502(t, 0xA9, 0x01) // LDA #$01
	if dbg.GetLastSnapshot() != nil {
		t.Fatal("expected nil before any step")
	}
	if _, err := dbg.StepInstruction(); err != nil {
		t.Fatalf("step: %v", err)
	}
	last := dbg.GetLastSnapshot()
	if last == nil || last.Operation.Mnemonic != "LDA" {
		t.Fatalf("unexpected last snapshot: %+v", last)
	}
}
