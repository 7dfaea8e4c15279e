// Package driver ticks state machines from a cron scheduler. Each machine
// is executed at most once at a time: a scheduled tick that finds the
// previous one still running is skipped.
package driver

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"

	fsmgen "github.com/goliatone/go-fsmgen"
)

// Machine is anything advanced one tick at a time. *fsm.StateMachine
// and generated machines satisfy it.
type Machine interface {
	Execute()
}

// Driver schedules machines.
type Driver struct {
	mu           sync.Mutex
	cron         *rcron.Cron
	location     *time.Location
	parser       Parser
	logger       fsmgen.Logger
	errorHandler func(error)

	nextID  int64
	handles map[int64]*handle
}

// New creates a stopped driver.
func New(opts ...Option) *Driver {
	d := &Driver{
		location: time.Local,
		parser:   DefaultParser,
		logger:   fsmgen.NopLogger{},
		handles:  make(map[int64]*handle),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	d.cron = rcron.New(d.build()...)
	return d
}

func (d *Driver) build() []rcron.Option {
	// No job chain: handle.scheduled skips overlapping ticks itself so it
	// can count them.
	opts := []rcron.Option{
		rcron.WithLogger(cronLogger{logger: d.logger}),
	}
	if d.location != nil {
		opts = append(opts, rcron.WithLocation(d.location))
	}
	if d.parser == SecondsParser {
		opts = append(opts, rcron.WithParser(rcron.NewParser(
			rcron.Second|rcron.Minute|rcron.Hour|rcron.Dom|rcron.Month|rcron.Dow|rcron.Descriptor,
		)))
	}
	return opts
}

// Schedule ticks m on the cron expression spec, for example "@every 1s".
// name labels the machine in logs and errors.
func (d *Driver) Schedule(name, spec string, m Machine) (Handle, error) {
	if m == nil {
		return nil, fsmgen.NewError(fsmgen.ErrScheduleFailed, "machine cannot be nil", nil,
			map[string]any{"machine": name})
	}
	if spec == "" {
		return nil, fsmgen.NewError(fsmgen.ErrScheduleFailed, "cron expression cannot be empty", nil,
			map[string]any{"machine": name})
	}

	h := d.newHandle(name, m)
	entryID, err := d.cron.AddJob(spec, rcron.FuncJob(h.scheduled))
	if err != nil {
		return nil, fsmgen.NewError(fsmgen.ErrScheduleFailed,
			fmt.Sprintf("invalid cron expression %q for %s", spec, name), err,
			map[string]any{"machine": name, "spec": spec})
	}
	h.entryID = int(entryID)
	d.store(h)
	d.logger.Info("scheduled machine %s id=%d spec=%q", name, h.id, spec)
	return h, nil
}

// Add registers m for manual ticking only.
func (d *Driver) Add(name string, m Machine) (Handle, error) {
	if m == nil {
		return nil, fsmgen.NewError(fsmgen.ErrScheduleFailed, "machine cannot be nil", nil,
			map[string]any{"machine": name})
	}
	h := d.newHandle(name, m)
	d.store(h)
	return h, nil
}

// Tick executes the machine behind id once, waiting for a tick already in
// progress. It returns ErrTickFailed if the machine panics.
func (d *Driver) Tick(id int64) error {
	d.mu.Lock()
	h, ok := d.handles[id]
	d.mu.Unlock()
	if !ok {
		return fsmgen.NewError(fsmgen.ErrScheduleFailed, fmt.Sprintf("no machine with id %d", id), nil,
			map[string]any{"handle": id})
	}
	err := h.tick()
	d.report(err)
	return err
}

// TickAll executes every active machine once in registration order and
// returns the first failure.
func (d *Driver) TickAll() error {
	var first error
	for _, h := range d.active() {
		if err := h.tick(); err != nil {
			d.report(err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Len returns the number of active machines.
func (d *Driver) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.handles)
}

// Start begins running scheduled ticks.
func (d *Driver) Start(_ context.Context) error {
	d.cron.Start()
	d.logger.Debug("driver started machines=%d", d.Len())
	return nil
}

// Stop halts the scheduler and waits for running ticks to finish or ctx
// to end. Every active handle becomes stopped.
func (d *Driver) Stop(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	wait := d.cron.Stop()

	handles := d.active()
	d.mu.Lock()
	d.handles = make(map[int64]*handle)
	d.mu.Unlock()

	for _, h := range handles {
		if h.entryID > 0 {
			d.cron.Remove(rcron.EntryID(h.entryID))
		}
	}

	var err error
	select {
	case <-wait.Done():
	case <-ctx.Done():
		err = ctx.Err()
	}
	for _, h := range handles {
		h.setTerminal(StatusStopped, nil)
	}
	d.logger.Debug("driver stopped machines=%d", len(handles))
	return err
}

func (d *Driver) report(err error) {
	if err == nil {
		return
	}
	d.logger.Error("tick failed: %v", err)
	if d.errorHandler != nil {
		d.errorHandler(err)
	}
}

func (d *Driver) active() []*handle {
	d.mu.Lock()
	out := make([]*handle, 0, len(d.handles))
	for _, h := range d.handles {
		out = append(out, h)
	}
	d.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (d *Driver) newHandle(name string, m Machine) *handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	if name == "" {
		name = fmt.Sprintf("machine-%d", d.nextID)
	}
	return &handle{
		driver:  d,
		id:      d.nextID,
		name:    name,
		machine: m,
		status:  StatusScheduled,
		done:    make(chan struct{}),
	}
}

func (d *Driver) store(h *handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handles[h.id] = h
}

func (d *Driver) remove(h *handle) {
	d.mu.Lock()
	delete(d.handles, h.id)
	d.mu.Unlock()
	if h.entryID > 0 {
		d.cron.Remove(rcron.EntryID(h.entryID))
	}
}
