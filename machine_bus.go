// machine_bus.go - Shared 64K bus, RAM/ROM devices and the bus activity log

/*
(c) 2024 - 2026 sirosiro
https://github.com/sirosiro/RetroCoreTracer
License: GPLv3 or later
*/

/*
machine_bus.go - Machine Bus for RetroCoreTracer

This module implements the shared byte bus that all three CPU cores execute
against. It provides a flat 16-bit memory space assembled from registered
device ranges, a separate 16-bit I/O space for the Z80 core, and the
chronological access log that the debugger's breakpoints and time-travel
undo are built on.

Core Features:

    Ordered (start, end, device) range registration with fail-fast size
    validation; overlap is by convention, not enforced.
    Every read/write through the normal path appends exactly one log entry;
    Peek performs the same resolution silently and is the only read form
    the disassembler may use.
    Writes additionally record the byte they destroyed, giving the debugger
    an explicit per-step undo list.
    A privileged Load path bypasses both logging and ROM write protection,
    used only for initial programming and step-back undo.
*/

package main

import (
	"github.com/pkg/errors"
)

type AccessType int

const (
	BUS_READ AccessType = iota
	BUS_WRITE
	BUS_IO_READ
	BUS_IO_WRITE
)

func (t AccessType) String() string {
	switch t {
	case BUS_READ:
		return "READ"
	case BUS_WRITE:
		return "WRITE"
	case BUS_IO_READ:
		return "IO_READ"
	case BUS_IO_WRITE:
		return "IO_WRITE"
	}
	return "UNKNOWN"
}

// BusAccess records a single logged access. Peek never produces one.
type BusAccess struct {
	Address uint16
	Data    byte
	Type    AccessType
}

// MemoryPatch is the undo record generated at write time: the byte the
// write destroyed, keyed by address. Step-back replays these in reverse
// through the privileged load path.
type MemoryPatch struct {
	Address uint16
	Prev    byte
	IsIO    bool
}

// ErrUnmappedAddress reports an access that resolved to no registered
// device. It indicates a configuration defect and is never retried.
var ErrUnmappedAddress = errors.New("unmapped address")

// Device is anything attachable to a bus range. Write carries normal-path
// semantics (a ROM discards it); Load is the privileged store.
type Device interface {
	Read(offset uint16) byte
	Write(offset uint16, value byte)
	Load(offset uint16, value byte)
	Size() int
}

type RAM struct {
	data []byte
}

func NewRAM(size int) (*RAM, error) {
	if size <= 0 {
		return nil, errors.Errorf("invalid RAM size %d", size)
	}
	return &RAM{data: make([]byte, size)}, nil
}

func (r *RAM) Read(offset uint16) byte { return r.data[offset] }

func (r *RAM) Write(offset uint16, value byte) { r.data[offset] = value }

func (r *RAM) Load(offset uint16, value byte) { r.data[offset] = value }

func (r *RAM) Size() int { return len(r.data) }

// ROM ignores normal-path writes, matching hardware. Only Load programs it.
type ROM struct {
	data []byte
}

func NewROM(size int) (*ROM, error) {
	if size <= 0 {
		return nil, errors.Errorf("invalid ROM size %d", size)
	}
	return &ROM{data: make([]byte, size)}, nil
}

func (r *ROM) Read(offset uint16) byte { return r.data[offset] }

func (r *ROM) Write(offset uint16, value byte) {
	// Silently discarded on the normal path.
}

func (r *ROM) Load(offset uint16, value byte) { r.data[offset] = value }

func (r *ROM) Size() int { return len(r.data) }

type busRange struct {
	start uint16
	end   uint16
	dev   Device
}

// MachineBus owns the flat 16-bit memory space, the separate IO space used
// by the Z80 core, the chronological access log and the per-step undo list.
type MachineBus struct {
	ranges   []busRange
	ioRanges []busRange
	activity []BusAccess
	patches  []MemoryPatch
}

func NewMachineBus() *MachineBus {
	return &MachineBus{}
}

func (b *MachineBus) RegisterDevice(start, end uint16, dev Device) error {
	return registerRange(&b.ranges, start, end, dev)
}

func (b *MachineBus) RegisterIODevice(start, end uint16, dev Device) error {
	return registerRange(&b.ioRanges, start, end, dev)
}

func registerRange(ranges *[]busRange, start, end uint16, dev Device) error {
	if end < start {
		return errors.Errorf("invalid range %#04x-%#04x", start, end)
	}
	if want := int(end-start) + 1; dev.Size() != want {
		return errors.Errorf("device size %d does not cover range %#04x-%#04x (%d bytes)",
			dev.Size(), start, end, want)
	}
	*ranges = append(*ranges, busRange{start: start, end: end, dev: dev})
	return nil
}

func resolveRange(ranges []busRange, addr uint16) (Device, uint16, error) {
	for _, r := range ranges {
		if addr >= r.start && addr <= r.end {
			return r.dev, addr - r.start, nil
		}
	}
	return nil, 0, errors.Wrapf(ErrUnmappedAddress, "address %#04x", addr)
}

func (b *MachineBus) Read(addr uint16) (byte, error) {
	dev, off, err := resolveRange(b.ranges, addr)
	if err != nil {
		return 0, err
	}
	value := dev.Read(off)
	b.activity = append(b.activity, BusAccess{Address: addr, Data: value, Type: BUS_READ})
	return value, nil
}

func (b *MachineBus) Write(addr uint16, value byte) error {
	dev, off, err := resolveRange(b.ranges, addr)
	if err != nil {
		return err
	}
	b.patches = append(b.patches, MemoryPatch{Address: addr, Prev: dev.Read(off)})
	dev.Write(off, value)
	b.activity = append(b.activity, BusAccess{Address: addr, Data: value, Type: BUS_WRITE})
	return nil
}

// Peek resolves like Read but never logs.
func (b *MachineBus) Peek(addr uint16) (byte, error) {
	dev, off, err := resolveRange(b.ranges, addr)
	if err != nil {
		return 0, err
	}
	return dev.Read(off), nil
}

func (b *MachineBus) ReadIO(addr uint16) (byte, error) {
	dev, off, err := resolveRange(b.ioRanges, addr)
	if err != nil {
		return 0, err
	}
	value := dev.Read(off)
	b.activity = append(b.activity, BusAccess{Address: addr, Data: value, Type: BUS_IO_READ})
	return value, nil
}

func (b *MachineBus) WriteIO(addr uint16, value byte) error {
	dev, off, err := resolveRange(b.ioRanges, addr)
	if err != nil {
		return err
	}
	b.patches = append(b.patches, MemoryPatch{Address: addr, Prev: dev.Read(off), IsIO: true})
	dev.Write(off, value)
	b.activity = append(b.activity, BusAccess{Address: addr, Data: value, Type: BUS_IO_WRITE})
	return nil
}

// Load bypasses logging, undo recording and ROM write protection. Initial
// programming and step-back undo are its only callers.
func (b *MachineBus) Load(addr uint16, value byte) error {
	dev, off, err := resolveRange(b.ranges, addr)
	if err != nil {
		return err
	}
	dev.Load(off, value)
	return nil
}

func (b *MachineBus) LoadIO(addr uint16, value byte) error {
	dev, off, err := resolveRange(b.ioRanges, addr)
	if err != nil {
		return err
	}
	dev.Load(off, value)
	return nil
}

// DrainActivity returns the access log and undo list in order and clears
// both. Called once per step boundary so each step owns a disjoint segment.
func (b *MachineBus) DrainActivity() ([]BusAccess, []MemoryPatch) {
	activity, patches := b.activity, b.patches
	b.activity, b.patches = nil, nil
	return activity, patches
}
