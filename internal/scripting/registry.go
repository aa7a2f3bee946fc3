package scripting

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/l1jgo/authority/internal/core/deferred"
)

// Instance is a user-script instance as the registry sees it.
type Instance interface {
	Alive() bool
	Activate() error
}

// ActivationReport summarises one ActivateAll pass.
type ActivationReport struct {
	Activated int
	Failed    int
}

// Registry tracks script instances and flips them from dormant to running
// exactly once, after the session is ready. Instances tracked after that
// point are activated by Track itself.
type Registry struct {
	log       *zap.Logger
	instances *deferred.Set[Instance]
	running   map[Instance]bool
	active    bool
}

func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Registry{
		log:     log,
		running: make(map[Instance]bool),
	}
	r.instances = deferred.New(func(i Instance) bool { return i.Alive() },
		deferred.WithDropHook(r.forget),
		deferred.WithRejectHook(r.forget),
		deferred.WithCancelHook(r.forget),
	)
	return r
}

func (r *Registry) forget(i Instance) { delete(r.running, i) }

// Track queues inst. Once the registry is active the instance is started
// immediately instead of waiting for another global activation.
func (r *Registry) Track(inst Instance) {
	r.instances.Add(inst)
	if r.active {
		r.activate(inst)
	}
}

func (r *Registry) Untrack(inst Instance) { r.instances.Remove(inst) }

// Flush applies queued Track/Untrack calls and prunes dead instances.
func (r *Registry) Flush() { r.instances.Flush() }

// ActivateAll starts every live instance. It runs once; later calls only
// warn. One failing instance never blocks the rest.
func (r *Registry) ActivateAll() ActivationReport {
	var rep ActivationReport
	if r.active {
		r.log.Warn("script activation already ran")
		return rep
	}
	r.active = true
	r.instances.Flush()
	r.instances.ForEach(func(inst Instance) {
		if r.running[inst] {
			return
		}
		if r.activate(inst) {
			rep.Activated++
		} else {
			rep.Failed++
		}
	})
	r.log.Info("script instances activated",
		zap.Int("activated", rep.Activated),
		zap.Int("failed", rep.Failed),
	)
	return rep
}

// activate starts inst at most once. A failed start still counts as the
// single attempt.
func (r *Registry) activate(inst Instance) bool {
	if r.running[inst] || !inst.Alive() {
		return false
	}
	r.running[inst] = true
	if err := r.guard(inst, "activate", inst.Activate); err != nil {
		r.log.Error("script activation failed", zap.String("instance", describe(inst)), zap.Error(err))
		return false
	}
	return true
}

// guard runs fn for inst, turning a panic into an error.
func (r *Registry) guard(inst Instance, what string, fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s %s panicked: %v", what, describe(inst), p)
		}
	}()
	return fn()
}

// Dispatch calls fn on every running, live instance. It flushes first so an
// instance started earlier in the same tick is not skipped. Errors and
// panics are logged per instance and never stop the loop.
func (r *Registry) Dispatch(what string, fn func(Instance) error) int {
	r.instances.Flush()
	failed := 0
	r.instances.ForEach(func(inst Instance) {
		if !r.running[inst] {
			return
		}
		if err := r.guard(inst, what, func() error { return fn(inst) }); err != nil {
			failed++
			r.log.Error("script callback failed",
				zap.String("callback", what),
				zap.String("instance", describe(inst)),
				zap.Error(err),
			)
		}
	})
	return failed
}

// Active reports whether ActivateAll has run.
func (r *Registry) Active() bool { return r.active }

// Running reports whether inst has been activated.
func (r *Registry) Running(inst Instance) bool { return r.running[inst] }

func (r *Registry) Tracked(inst Instance) bool { return r.instances.Contains(inst) }

// Len returns the number of live instances.
func (r *Registry) Len() int { return r.instances.Len() }

func describe(inst Instance) string {
	if s, ok := inst.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", inst)
}
