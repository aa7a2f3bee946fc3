package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	name  string
	phase Phase
	log   *[]string
}

func (r recorder) Phase() Phase { return r.phase }

func (r recorder) Update(time.Duration) { *r.log = append(*r.log, r.name) }

func TestRunner_PhaseOrderIsStable(t *testing.T) {
	var got []string
	r := NewRunner()
	r.Register(recorder{"cleanup", PhaseCleanup, &got})
	r.Register(recorder{"sweep", PhaseUpdate, &got})
	r.Register(recorder{"flush-a", PhaseFlush, &got})
	r.Register(recorder{"flush-b", PhaseFlush, &got})
	r.Register(recorder{"startup", PhaseStartup, &got})

	r.Tick(time.Millisecond)
	assert.Equal(t, []string{"startup", "flush-a", "flush-b", "sweep", "cleanup"}, got)
	assert.Equal(t, uint64(1), r.Ticks())
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "persist", PhasePersist.String())
	assert.Equal(t, "unknown", Phase(99).String())
}
