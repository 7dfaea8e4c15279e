package driver

import (
	"fmt"
	"sync"
	"sync/atomic"

	fsmgen "github.com/goliatone/go-fsmgen"
)

// Status reports the lifecycle of a scheduled machine.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusRunning   Status = "running"
	StatusIdle      Status = "idle"
	StatusCanceled  Status = "canceled"
	StatusFailed    Status = "failed"
	StatusStopped   Status = "stopped"
)

// Terminal reports whether no more ticks will run.
func (s Status) Terminal() bool {
	switch s {
	case StatusCanceled, StatusFailed, StatusStopped:
		return true
	default:
		return false
	}
}

// Handle controls one scheduled machine.
type Handle interface {
	ID() int64
	Name() string
	Status() Status
	// Err is the failure that made the handle terminal, if any.
	Err() error
	// Ticks counts completed Execute calls.
	Ticks() int64
	// Skipped counts scheduled ticks dropped because a tick was still running.
	Skipped() int64
	Cancel()
	Done() <-chan struct{}
}

type handle struct {
	driver  *Driver
	id      int64
	name    string
	machine Machine
	entryID int
	done    chan struct{}

	// run serializes Execute for this machine.
	run sync.Mutex

	mu     sync.RWMutex
	status Status
	err    error
	once   sync.Once

	ticks   atomic.Int64
	skipped atomic.Int64
}

func (h *handle) ID() int64      { return h.id }
func (h *handle) Name() string   { return h.name }
func (h *handle) Ticks() int64   { return h.ticks.Load() }
func (h *handle) Skipped() int64 { return h.skipped.Load() }

func (h *handle) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

func (h *handle) Err() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

func (h *handle) Done() <-chan struct{} {
	return h.done
}

func (h *handle) Cancel() {
	h.once.Do(func() {
		if h.driver != nil {
			h.driver.remove(h)
		}
		h.setTerminal(StatusCanceled, nil)
	})
}

// scheduled is the cron entry point. A tick still in flight makes it skip.
func (h *handle) scheduled() {
	if !h.run.TryLock() {
		h.skipped.Add(1)
		return
	}
	defer h.run.Unlock()
	h.driver.report(h.execute())
}

// tick waits for any running tick, then executes once.
func (h *handle) tick() error {
	h.run.Lock()
	defer h.run.Unlock()
	return h.execute()
}

// execute must be called with run held.
func (h *handle) execute() (err error) {
	if h.Status().Terminal() {
		return nil
	}
	h.setStatus(StatusRunning, nil)
	defer func() {
		if r := recover(); r != nil {
			err = fsmgen.NewError(fsmgen.ErrTickFailed,
				fmt.Sprintf("machine %s panicked: %v", h.name, r), nil,
				map[string]any{"machine": h.name, "handle": h.id})
			h.setTerminal(StatusFailed, err)
		}
	}()

	h.machine.Execute()
	h.ticks.Add(1)

	h.mu.Lock()
	if h.status == StatusRunning {
		h.status = StatusIdle
	}
	h.mu.Unlock()
	return nil
}

func (h *handle) setStatus(status Status, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.status.Terminal() {
		return
	}
	h.status = status
	h.err = err
}

func (h *handle) setTerminal(status Status, err error) {
	h.mu.Lock()
	if h.status.Terminal() {
		h.mu.Unlock()
		return
	}
	h.status = status
	h.err = err
	h.mu.Unlock()
	close(h.done)
}
