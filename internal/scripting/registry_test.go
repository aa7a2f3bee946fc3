package scripting

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeInstance struct {
	name      string
	dead      bool
	err       error
	panics    bool
	activated int
	calls     []string
}

func (f *fakeInstance) Alive() bool    { return !f.dead }
func (f *fakeInstance) String() string { return f.name }

func (f *fakeInstance) Activate() error {
	f.activated++
	if f.panics {
		panic("broken start")
	}
	return f.err
}

func newObservedRegistry() (*Registry, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.WarnLevel)
	return NewRegistry(zap.New(core)), logs
}

func TestActivateAll_StartsEachInstanceOnce(t *testing.T) {
	r, logs := newObservedRegistry()
	a, b := &fakeInstance{name: "a"}, &fakeInstance{name: "b"}
	r.Track(a)
	r.Track(b)
	assert.Equal(t, 0, a.activated, "dormant until the session is ready")

	rep := r.ActivateAll()
	assert.Equal(t, ActivationReport{Activated: 2}, rep)
	assert.True(t, r.Active())
	assert.True(t, r.Running(a))

	rep = r.ActivateAll()
	assert.Equal(t, ActivationReport{}, rep)
	assert.Equal(t, 1, a.activated)
	assert.Equal(t, 1, b.activated)
	assert.Equal(t, 1, logs.FilterMessage("script activation already ran").Len())
}

func TestActivateAll_IsolatesFailures(t *testing.T) {
	r, logs := newObservedRegistry()
	bad := &fakeInstance{name: "bad", err: errors.New("no")}
	worse := &fakeInstance{name: "worse", panics: true}
	good := &fakeInstance{name: "good"}
	r.Track(bad)
	r.Track(worse)
	r.Track(good)

	var rep ActivationReport
	require.NotPanics(t, func() { rep = r.ActivateAll() })
	assert.Equal(t, ActivationReport{Activated: 1, Failed: 2}, rep)
	assert.Equal(t, 1, good.activated)
	assert.Equal(t, 2, logs.FilterMessage("script activation failed").Len())

	r.Flush()
	r.ActivateAll()
	assert.Equal(t, 1, bad.activated, "a failed start is not retried")
}

func TestTrack_LateInstanceActivatesImmediately(t *testing.T) {
	r := NewRegistry(nil)
	r.ActivateAll()

	late := &fakeInstance{name: "late"}
	r.Track(late)
	assert.Equal(t, 1, late.activated, "no second global activation needed")
	assert.True(t, r.Running(late))
	assert.Equal(t, 0, r.Len(), "membership still waits for the flush")
	r.Flush()
	assert.Equal(t, 1, r.Len())

	r.Track(late)
	r.Flush()
	assert.Equal(t, 1, late.activated)
}

func TestTrack_DeadInstanceIsNeverStarted(t *testing.T) {
	r := NewRegistry(nil)
	dead := &fakeInstance{name: "dead", dead: true}
	r.Track(dead)
	rep := r.ActivateAll()
	assert.Equal(t, ActivationReport{}, rep)
	assert.Equal(t, 0, dead.activated)
	assert.False(t, r.Tracked(dead))
}

func TestDispatch_OnlyRunningInstancesAndIsolated(t *testing.T) {
	r, logs := newObservedRegistry()
	a, b := &fakeInstance{name: "a"}, &fakeInstance{name: "b"}
	r.Track(a)
	r.Track(b)
	r.Flush()

	var visited []string
	r.Dispatch("ping", func(inst Instance) error {
		visited = append(visited, inst.(*fakeInstance).name)
		return nil
	})
	assert.Empty(t, visited, "dormant instances get no callbacks")

	r.ActivateAll()
	failed := r.Dispatch("ping", func(inst Instance) error {
		f := inst.(*fakeInstance)
		visited = append(visited, f.name)
		if f.name == "a" {
			panic("callback blew up")
		}
		return nil
	})
	assert.Equal(t, 1, failed)
	assert.Equal(t, []string{"a", "b"}, visited)
	assert.Equal(t, 1, logs.FilterMessage("script callback failed").Len())
}

func TestUntrack_DropsRunningState(t *testing.T) {
	r := NewRegistry(nil)
	a := &fakeInstance{name: "a"}
	r.Track(a)
	r.ActivateAll()
	r.Untrack(a)
	r.Flush()
	assert.False(t, r.Running(a))
	assert.Equal(t, 0, r.Len())

	b := &fakeInstance{name: "b"}
	r.Track(b)
	r.Flush()
	b.dead = true
	r.Flush()
	assert.False(t, r.Running(b))
}

func TestDispatch_ReachesInstanceStartedThisTick(t *testing.T) {
	r := NewRegistry(nil)
	r.ActivateAll()
	late := &fakeInstance{name: "late"}
	r.Track(late)

	n := 0
	r.Dispatch("ping", func(Instance) error { n++; return nil })
	assert.Equal(t, 1, n)
}

func TestUntrack_LateInstanceBeforeFlushDropsRunningState(t *testing.T) {
	r := NewRegistry(nil)
	r.ActivateAll()
	late := &fakeInstance{name: "late"}
	r.Track(late)
	require.True(t, r.Running(late))

	r.Untrack(late)
	assert.False(t, r.Running(late))
	assert.False(t, r.Tracked(late))
	r.Flush()
	assert.Equal(t, 0, r.Len())
}
