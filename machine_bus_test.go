package main

import (
	"errors"
	"testing"
)

func mustRAM(t *testing.T, size int) *RAM {
	t.Helper()
	ram, err := NewRAM(size)
	if err != nil {
		t.Fatalf("NewRAM(%d): %v", size, err)
	}
	return ram
}

func mustROM(t *testing.T, size int) *ROM {
	t.Helper()
	rom, err := NewROM(size)
	if err != nil {
		t.Fatalf("NewROM(%d): %v", size, err)
	}
	return rom
}

func newRAMBus(t *testing.T) *MachineBus {
	t.Helper()
	bus := NewMachineBus()
	if err := bus.RegisterDevice(0x0000, 0xFFFF, mustRAM(t, 0x10000)); err != nil {
		t.Fatalf("register ram: %v", err)
	}
	return bus
}

func TestBusLogsAccessesInOrder(t *testing.T) {
	bus := newRAMBus(t)
	if err := bus.Write(0x1000, 0x42); err != nil {
		t.Fatalf("write: %v", err)
	}
	v, err := bus.Read(0x1000)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if v != 0x42 {
		t.Fatalf("read back $%02X, want $42", v)
	}

	activity, _ := bus.DrainActivity()
	if len(activity) != 2 {
		t.Fatalf("expected 2 accesses, got %d", len(activity))
	}
	if activity[0].Type != BUS_WRITE || activity[0].Address != 0x1000 || activity[0].Data != 0x42 {
		t.Fatalf("unexpected first access: %+v", activity[0])
	}
	if activity[1].Type != BUS_READ || activity[1].Address != 0x1000 || activity[1].Data != 0x42 {
		t.Fatalf("unexpected second access: %+v", activity[1])
	}
}

func TestBusDrainClearsLog(t *testing.T) {
	bus := newRAMBus(t)
	if err := bus.Write(0x0001, 0x01); err != nil {
		t.Fatalf("write: %v", err)
	}
	bus.DrainActivity()
	activity, patches := bus.DrainActivity()
	if len(activity) != 0 || len(patches) != 0 {
		t.Fatalf("second drain not empty: %d accesses, %d patches", len(activity), len(patches))
	}
}

func TestBusPeekIsSilent(t *testing.T) {
	bus := newRAMBus(t)
	if _, err := bus.Peek(0x2000); err != nil {
		t.Fatalf("peek: %v", err)
	}
	activity, _ := bus.DrainActivity()
	if len(activity) != 0 {
		t.Fatalf("peek logged %d accesses", len(activity))
	}
}

func TestBusLoadIsSilent(t *testing.T) {
	bus := newRAMBus(t)
	if err := bus.Load(0x3000, 0x99); err != nil {
		t.Fatalf("load: %v", err)
	}
	activity, patches := bus.DrainActivity()
	if len(activity) != 0 || len(patches) != 0 {
		t.Fatalf("load left traces: %d accesses, %d patches", len(activity), len(patches))
	}
	v, _ := bus.Peek(0x3000)
	if v != 0x99 {
		t.Fatalf("loaded byte reads $%02X, want $99", v)
	}
}

func TestBusWriteRecordsUndo(t *testing.T) {
	bus := newRAMBus(t)
	if err := bus.Load(0x4000, 0x11); err != nil {
		t.Fatalf("load: %v", err)
	}
	bus.DrainActivity()
	if err := bus.Write(0x4000, 0x22); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, patches := bus.DrainActivity()
	if len(patches) != 1 {
		t.Fatalf("expected 1 undo record, got %d", len(patches))
	}
	p := patches[0]
	if p.Address != 0x4000 || p.Prev != 0x11 || p.IsIO {
		t.Fatalf("unexpected undo record: %+v", p)
	}
}

func TestROMWriteSilentlyDiscarded(t *testing.T) {
	bus := NewMachineBus()
	if err := bus.RegisterDevice(0x8000, 0xFFFF, mustROM(t, 0x8000)); err != nil {
		t.Fatalf("register rom: %v", err)
	}
	if err := bus.Load(0x8000, 0xAB); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := bus.Write(0x8000, 0xCD); err != nil {
		t.Fatalf("write: %v", err)
	}
	v, _ := bus.Peek(0x8000)
	if v != 0xAB {
		t.Fatalf("rom byte is $%02X after write, want $AB", v)
	}
	// The attempt still shows up in the log.
	activity, _ := bus.DrainActivity()
	if len(activity) != 1 || activity[0].Type != BUS_WRITE {
		t.Fatalf("write attempt not logged: %+v", activity)
	}
}

func TestBusUnmappedAddress(t *testing.T) {
	bus := NewMachineBus()
	if err := bus.RegisterDevice(0x0000, 0x0FFF, mustRAM(t, 0x1000)); err != nil {
		t.Fatalf("register ram: %v", err)
	}
	_, err := bus.Read(0x4000)
	if !errors.Is(err, ErrUnmappedAddress) {
		t.Fatalf("expected ErrUnmappedAddress, got %v", err)
	}
	if err := bus.Write(0x4000, 0x01); !errors.Is(err, ErrUnmappedAddress) {
		t.Fatalf("expected ErrUnmappedAddress on write, got %v", err)
	}
}

func TestRegisterDeviceValidation(t *testing.T) {
	bus := NewMachineBus()
	if err := bus.RegisterDevice(0x0010, 0x0000, mustRAM(t, 0x11)); err == nil {
		t.Fatal("inverted range accepted")
	}
	if err := bus.RegisterDevice(0x0000, 0x001F, mustRAM(t, 0x10)); err == nil {
		t.Fatal("size mismatch accepted")
	}
	if _, err := NewRAM(0); err == nil {
		t.Fatal("zero-size ram accepted")
	}
	if _, err := NewROM(-1); err == nil {
		t.Fatal("negative rom size accepted")
	}
}

func TestIOSpaceIsSeparate(t *testing.T) {
	bus := newRAMBus(t)
	if err := bus.RegisterIODevice(0x0000, 0x00FF, mustRAM(t, 0x100)); err != nil {
		t.Fatalf("register io: %v", err)
	}
	if err := bus.WriteIO(0x0010, 0x5A); err != nil {
		t.Fatalf("write io: %v", err)
	}
	// Memory at the same address is untouched.
	v, _ := bus.Peek(0x0010)
	if v != 0x00 {
		t.Fatalf("memory byte is $%02X, want $00", v)
	}
	got, err := bus.ReadIO(0x0010)
	if err != nil || got != 0x5A {
		t.Fatalf("io read returned $%02X, %v", got, err)
	}
	activity, patches := bus.DrainActivity()
	if len(activity) != 2 || activity[0].Type != BUS_IO_WRITE || activity[1].Type != BUS_IO_READ {
		t.Fatalf("unexpected io log: %+v", activity)
	}
	if len(patches) != 1 || !patches[0].IsIO {
		t.Fatalf("io undo record missing: %+v", patches)
	}
}
