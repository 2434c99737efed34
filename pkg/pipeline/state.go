package pipeline

import (
	"sync"

	errs "github.com/singlecellvr/scvrprep/pkg/errors"
)

// State is a pipeline run state.
type State string

const (
	StateLoaded        State = "loaded"
	StateLaidOut       State = "laid_out"
	StateGraphExported State = "graph_exported"
	StateCellsExported State = "cells_exported"
	StateExported      State = "exported" // both exporters done
	StatePackaged      State = "packaged"
	StateFailed        State = "failed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == StatePackaged || s == StateFailed }

// machine tracks a run's state. The two exporters report concurrently, so
// transitions are guarded by a mutex.
type machine struct {
	mu     sync.Mutex
	state  State
	graph  bool
	cells  bool
	reason string
}

func newMachine() *machine { return &machine{state: StateLoaded} }

func (m *machine) current() (State, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.reason
}

// layoutDone moves Loaded → LaidOut.
func (m *machine) layoutDone() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateLoaded {
		return m.illegal(StateLaidOut)
	}
	m.state = StateLaidOut
	return nil
}

// graphDone records the graph exporter's completion.
func (m *machine) graphDone() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.graph || !m.exporting() {
		return m.illegal(StateGraphExported)
	}
	m.graph = true
	m.state = m.exportState()
	return nil
}

// cellsDone records the cell exporter's completion.
func (m *machine) cellsDone() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cells || !m.exporting() {
		return m.illegal(StateCellsExported)
	}
	m.cells = true
	m.state = m.exportState()
	return nil
}

// canPackage fails unless both exporters completed.
func (m *machine) canPackage() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateExported {
		return errs.New(errs.ErrCodeInternal, "cannot package in state %s: both exporters must complete first", m.state)
	}
	return nil
}

// packaged moves Exported → Packaged.
func (m *machine) packaged() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateExported {
		return m.illegal(StatePackaged)
	}
	m.state = StatePackaged
	return nil
}

// fail moves any non-terminal state to Failed. The first reason sticks.
func (m *machine) fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Terminal() {
		return
	}
	m.state = StateFailed
	m.reason = err.Error()
}

func (m *machine) exporting() bool {
	switch m.state {
	case StateLaidOut, StateGraphExported, StateCellsExported:
		return true
	}
	return false
}

func (m *machine) exportState() State {
	switch {
	case m.graph && m.cells:
		return StateExported
	case m.graph:
		return StateGraphExported
	default:
		return StateCellsExported
	}
}

func (m *machine) illegal(to State) error {
	return errs.New(errs.ErrCodeInternal, "illegal transition %s -> %s", m.state, to)
}
