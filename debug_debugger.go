// debug_debugger.go - Execution control: breakpoints, history, time travel

/*
(c) 2024 - 2026 sirosiro
https://github.com/sirosiro/RetroCoreTracer
License: GPLv3 or later

The debugger owns the snapshot history. Every stepped instruction lands on
the history stack together with its memory undo records, so stepping
backwards is a pop: replay the undo records through the privileged load
path, then hand the CPU the state captured by the new top of the stack.
*/

package main

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

type Debugger struct {
	cpu          TracedCPU
	bus          *MachineBus
	breakpoints  []BreakpointCondition
	history      []Snapshot
	initialState CpuState
	stop         atomic.Bool

	mu   sync.Mutex
	quit chan struct{}
}

func NewDebugger(cpu TracedCPU, bus *MachineBus) *Debugger {
	return &Debugger{cpu: cpu, bus: bus, initialState: cpu.State()}
}

// AddBreakpoint rejects a condition that is already present, compared
// without its Enabled toggle.
func (d *Debugger) AddBreakpoint(bp BreakpointCondition) error {
	for _, existing := range d.breakpoints {
		if existing.key() == bp.key() {
			return errors.Errorf("duplicate breakpoint: %s", bp)
		}
	}
	d.breakpoints = append(d.breakpoints, bp)
	return nil
}

func (d *Debugger) RemoveBreakpoint(index int) error {
	if index < 0 || index >= len(d.breakpoints) {
		return errors.Errorf("no breakpoint at index %d", index)
	}
	d.breakpoints = append(d.breakpoints[:index], d.breakpoints[index+1:]...)
	return nil
}

func (d *Debugger) UpdateBreakpoint(index int, bp BreakpointCondition) error {
	if index < 0 || index >= len(d.breakpoints) {
		return errors.Errorf("no breakpoint at index %d", index)
	}
	for i, existing := range d.breakpoints {
		if i != index && existing.key() == bp.key() {
			return errors.Errorf("duplicate breakpoint: %s", bp)
		}
	}
	d.breakpoints[index] = bp
	return nil
}

// Breakpoints returns a copy of the condition list.
func (d *Debugger) Breakpoints() []BreakpointCondition {
	out := make([]BreakpointCondition, len(d.breakpoints))
	copy(out, d.breakpoints)
	return out
}

// StepInstruction executes one instruction and pushes its snapshot. A step
// that faults is not recorded.
func (d *Debugger) StepInstruction() (Snapshot, error) {
	snap, err := d.cpu.Step()
	if err != nil {
		return snap, err
	}
	d.history = append(d.history, snap)
	return snap, nil
}

// matchAfter evaluates the post-step breakpoint kinds against one executed
// instruction.
func (d *Debugger) matchAfter(prev CpuState, snap Snapshot) bool {
	for _, bp := range d.breakpoints {
		for _, acc := range snap.BusActivity {
			if bp.matchesAccess(acc) {
				return true
			}
		}
		if bp.matchesRegisters(prev, snap.State) {
			return true
		}
	}
	return false
}

func (d *Debugger) matchPC(pc uint16) bool {
	for _, bp := range d.breakpoints {
		if bp.matchesPC(pc) {
			return true
		}
	}
	return false
}

func haltedOp(op Operation) bool {
	return op.Mnemonic == "HALT" || op.Mnemonic == "HALT (suspended)"
}

// Run executes until a breakpoint fires, the core halts, Stop is called or
// the bus faults. The first step is unconditional so a PC breakpoint on the
// current instruction does not pin the core in place.
func (d *Debugger) Run() (Snapshot, error) {
	return d.run(nil)
}

// RunWorker is Run on its own goroutine: every snapshot is published on out
// as it is produced, and out closes when the run ends. Stop remains the
// caller's handle on the loop; a publish in flight when Stop is called is
// abandoned rather than held, so the worker never outlives a consumer that
// walked away from the channel.
func (d *Debugger) RunWorker(out chan<- Snapshot) {
	quit := make(chan struct{})
	d.mu.Lock()
	d.quit = quit
	d.mu.Unlock()
	go func() {
		defer close(out)
		d.run(func(s Snapshot) {
			select {
			case out <- s:
			case <-quit:
			}
		})
	}()
}

func (d *Debugger) run(emit func(Snapshot)) (Snapshot, error) {
	d.stop.Store(false)
	prev := d.cpu.State()
	snap, err := d.StepInstruction()
	for {
		if err != nil {
			return snap, err
		}
		if emit != nil {
			emit(snap)
		}
		if d.matchAfter(prev, snap) {
			return snap, nil
		}
		if haltedOp(snap.Operation) {
			return snap, nil
		}
		if d.stop.Load() {
			return snap, nil
		}
		if d.matchPC(d.cpu.State().ProgramCounter()) {
			return snap, nil
		}
		prev = d.cpu.State()
		snap, err = d.StepInstruction()
	}
}

// Stop asks a running Run/RunWorker loop to come back after the
// instruction in flight. Safe from any goroutine.
func (d *Debugger) Stop() {
	d.stop.Store(true)
	d.mu.Lock()
	if d.quit != nil {
		close(d.quit)
		d.quit = nil
	}
	d.mu.Unlock()
}

// StepBack pops the newest snapshot, rewinds its memory effects through the
// privileged load path and restores the CPU to the state at the new top of
// history. At the start of time it restores the initial state and returns
// nil.
func (d *Debugger) StepBack() (*Snapshot, error) {
	if len(d.history) == 0 {
		return nil, nil
	}
	top := d.history[len(d.history)-1]
	d.history = d.history[:len(d.history)-1]

	// Undo records replay newest-first so overlapping writes within one
	// instruction unwind correctly.
	for i := len(top.Undo) - 1; i >= 0; i-- {
		p := top.Undo[i]
		var err error
		if p.IsIO {
			err = d.bus.LoadIO(p.Address, p.Prev)
		} else {
			err = d.bus.Load(p.Address, p.Prev)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "undo at $%04X", p.Address)
		}
	}

	if len(d.history) == 0 {
		d.cpu.RestoreState(d.initialState)
		return nil, nil
	}
	restored := d.history[len(d.history)-1]
	d.cpu.RestoreState(restored.State)
	return &restored, nil
}

// RunBack rewinds until a breakpoint matches the landed-on snapshot, Stop
// is called or history runs out. Register kinds compare the state before
// the rewind against the restored state, so a change watch fires crossing
// the instruction that changed the register.
func (d *Debugger) RunBack() (*Snapshot, error) {
	d.stop.Store(false)
	for {
		prev := d.cpu.State()
		snap, err := d.StepBack()
		if err != nil {
			return nil, err
		}
		if snap == nil {
			return nil, nil
		}
		if d.matchPC(snap.State.ProgramCounter()) || d.matchAfter(prev, *snap) {
			return snap, nil
		}
		if d.stop.Load() {
			return snap, nil
		}
	}
}

func (d *Debugger) GetHistory() []Snapshot {
	out := make([]Snapshot, len(d.history))
	copy(out, d.history)
	return out
}

func (d *Debugger) GetLastSnapshot() *Snapshot {
	if len(d.history) == 0 {
		return nil
	}
	snap := d.history[len(d.history)-1]
	return &snap
}
