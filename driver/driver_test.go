package driver

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	fsmgen "github.com/goliatone/go-fsmgen"
	"github.com/goliatone/go-fsmgen/fsm"
)

type counter struct {
	calls   atomic.Int32
	running atomic.Int32
	overlap atomic.Bool
	delay   time.Duration
}

func (c *counter) Execute() {
	if c.running.Add(1) > 1 {
		c.overlap.Store(true)
	}
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	c.calls.Add(1)
	c.running.Add(-1)
}

type panicker struct{}

func (panicker) Execute() { panic("boom") }

func TestScheduleRejectsBadExpression(t *testing.T) {
	d := New()

	_, err := d.Schedule("walker", "not a cron spec", &counter{})
	require.Error(t, err)
	assert.True(t, fsmgen.HasCode(err, fsmgen.ErrCodeScheduleFailed))

	_, err = d.Schedule("walker", "", &counter{})
	assert.True(t, fsmgen.HasCode(err, fsmgen.ErrCodeScheduleFailed))

	_, err = d.Schedule("walker", "@every 1s", nil)
	assert.True(t, fsmgen.HasCode(err, fsmgen.ErrCodeScheduleFailed))
	assert.Equal(t, 0, d.Len())
}

func TestSecondsParserRequiresSecondsField(t *testing.T) {
	d := New(WithParser(SecondsParser))

	_, err := d.Schedule("walker", "*/5 * * * * *", &counter{})
	require.NoError(t, err)

	_, err = New().Schedule("walker", "*/5 * * * * *", &counter{})
	assert.Error(t, err)
}

func TestConfigConfiguresDriver(t *testing.T) {
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte("timezone: UTC\nseconds: true\n"), &cfg))
	require.NoError(t, cfg.Validate())

	d := New(WithConfigurator(cfg))
	assert.Equal(t, time.UTC, d.location)
	assert.Equal(t, SecondsParser, d.parser)

	_, err := d.Schedule("walker", "*/5 * * * * *", &counter{})
	require.NoError(t, err)
}

func TestConfigRejectsUnknownTimezone(t *testing.T) {
	cfg := Config{Timezone: "Mars/Olympus"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, fsmgen.HasCode(err, fsmgen.ErrCodeScheduleFailed))
	assert.Equal(t, time.Local, cfg.GetLocation())
	assert.Equal(t, DefaultParser, Config{}.GetParser())
}

func TestSetterOptionsReadGetters(t *testing.T) {
	var handled int
	d := New(
		WithParserSetter(Config{Seconds: true}),
		WithErrorHandlerSetter(errorHandlerFunc(func(error) { handled++ })),
	)
	h, err := d.Add("broken", panicker{})
	require.NoError(t, err)

	assert.Error(t, d.Tick(h.ID()))
	assert.Equal(t, 1, handled)
	assert.Equal(t, SecondsParser, d.parser)
}

type errorHandlerFunc func(error)

func (f errorHandlerFunc) GetErrorHandler() func(error) { return f }

func TestManualTickExecutesOnce(t *testing.T) {
	d := New()
	c := &counter{}
	h, err := d.Schedule("walker", "@every 1h", c)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, h.Status())

	require.NoError(t, d.Tick(h.ID()))
	require.NoError(t, d.Tick(h.ID()))

	assert.Equal(t, int32(2), c.calls.Load())
	assert.Equal(t, int64(2), h.Ticks())
	assert.Equal(t, StatusIdle, h.Status())
	assert.Equal(t, "walker", h.Name())
}

func TestTickUnknownHandle(t *testing.T) {
	err := New().Tick(42)
	assert.True(t, fsmgen.HasCode(err, fsmgen.ErrCodeScheduleFailed))
}

func TestConcurrentTicksNeverOverlap(t *testing.T) {
	d := New()
	c := &counter{delay: 2 * time.Millisecond}
	h, err := d.Add("walker", c)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, d.Tick(h.ID()))
		}()
	}
	wg.Wait()

	assert.False(t, c.overlap.Load())
	assert.Equal(t, int32(16), c.calls.Load())
}

func TestScheduledTickSkipsWhileRunning(t *testing.T) {
	d := New()
	c := &counter{}
	h, err := d.Add("walker", c)
	require.NoError(t, err)

	inner := h.(*handle)
	inner.run.Lock()
	inner.scheduled()
	inner.run.Unlock()

	assert.Equal(t, int64(1), h.Skipped())
	assert.Equal(t, int32(0), c.calls.Load())

	inner.scheduled()
	assert.Equal(t, int32(1), c.calls.Load())
}

func TestSlowScheduledMachineCountsSkippedTicks(t *testing.T) {
	d := New(WithParser(SecondsParser))
	c := &counter{delay: 1500 * time.Millisecond}
	h, err := d.Schedule("slow", "* * * * * *", c)
	require.NoError(t, err)

	require.NoError(t, d.Start(context.Background()))
	require.Eventually(t, func() bool { return h.Skipped() >= 1 }, 6*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))

	assert.False(t, c.overlap.Load())
	assert.GreaterOrEqual(t, c.calls.Load(), int32(1))
}

func TestTickAllRunsInRegistrationOrder(t *testing.T) {
	d := New()
	var order []string
	record := func(name string) Machine {
		return machineFunc(func() { order = append(order, name) })
	}
	for _, name := range []string{"a", "b", "c"} {
		_, err := d.Add(name, record(name))
		require.NoError(t, err)
	}

	require.NoError(t, d.TickAll())
	require.NoError(t, d.TickAll())
	assert.Equal(t, []string{"a", "b", "c", "a", "b", "c"}, order)
}

type machineFunc func()

func (f machineFunc) Execute() { f() }

func TestPanicFailsHandle(t *testing.T) {
	var handled []error
	d := New(WithErrorHandler(func(err error) { handled = append(handled, err) }))
	h, err := d.Add("broken", panicker{})
	require.NoError(t, err)

	err = d.Tick(h.ID())
	require.Error(t, err)
	assert.True(t, fsmgen.HasCode(err, fsmgen.ErrCodeTickFailed))
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, StatusFailed, h.Status())
	assert.Equal(t, err, h.Err())
	assert.Len(t, handled, 1)

	select {
	case <-h.Done():
	default:
		t.Fatal("expected failed handle to be done")
	}

	require.NoError(t, d.Tick(h.ID()))
	assert.Len(t, handled, 1)
}

func TestCancelRemovesMachine(t *testing.T) {
	d := New()
	c := &counter{}
	h, err := d.Schedule("walker", "@every 1s", c)
	require.NoError(t, err)

	h.Cancel()
	h.Cancel()

	assert.Equal(t, StatusCanceled, h.Status())
	assert.Equal(t, 0, d.Len())
	assert.Error(t, d.Tick(h.ID()))
	<-h.Done()
}

func TestScheduledMachineRunsAndStops(t *testing.T) {
	d := New()
	c := &counter{}
	h, err := d.Schedule("walker", "@every 1s", c)
	require.NoError(t, err)

	require.NoError(t, d.Start(context.Background()))
	require.Eventually(t, func() bool { return c.calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))

	assert.Equal(t, StatusStopped, h.Status())
	assert.Equal(t, 0, d.Len())
	assert.False(t, c.overlap.Load())
}

func TestDriverLogsThroughLogger(t *testing.T) {
	var buf bytes.Buffer
	d := New(WithLogger(fsmgen.NewTextLogger(&buf, "trace")))

	_, err := d.Schedule("walker", "@every 1h", &counter{})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `scheduled machine walker id=1 spec="@every 1h"`)
}

func TestFormatPairs(t *testing.T) {
	assert.Equal(t, "", formatPairs(nil))
	assert.Equal(t, " entry=3 next=soon", formatPairs([]any{"entry", 3, "next", "soon"}))
	assert.Equal(t, " entry=3 dangling", formatPairs([]any{"entry", 3, "dangling"}))
}

type walker struct {
	steps int
}

type walking struct {
	fsm.BaseState[*walker]
}

func (s *walking) Execute() { s.Owner().steps++ }

type resting struct {
	fsm.BaseState[*walker]
}

func TestDriverAdvancesStateMachine(t *testing.T) {
	owner := &walker{}
	m := fsm.New(owner)

	walk := &walking{BaseState: fsm.NewBaseState(owner, m)}
	rest := &resting{BaseState: fsm.NewBaseState(owner, m)}
	walk.AddTransition(fsm.NewTransition(rest, fsm.ConditionFunc(func() bool { return owner.steps >= 3 })))
	m.ChangeState(walk)

	d := New()
	h, err := d.Add("walker", m)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, d.Tick(h.ID()))
	}

	assert.Equal(t, 3, owner.steps)
	assert.Same(t, rest, m.Current())
	assert.Equal(t, int64(5), h.Ticks())
}
