package ownership

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/authority/internal/component"
	"github.com/l1jgo/authority/internal/core/ecs"
	"github.com/l1jgo/authority/internal/core/event"
	"github.com/l1jgo/authority/internal/data"
	"github.com/l1jgo/authority/internal/player"
	"github.com/l1jgo/authority/internal/world"
)

type fixture struct {
	bus   *event.Bus
	scene *world.Scene
	dir   *player.Directory
	reg   *Registry
}

func newFixture(t *testing.T, desc *data.WorldDescriptor) *fixture {
	t.Helper()
	bus := event.NewBus(nil)
	scene := world.NewScene(desc, nil)
	dir := player.NewDirectory(bus, scene, nil)
	reg := NewRegistry(dir, scene, nil)
	dir.AttachEntities(reg)
	event.Subscribe(bus, reg.OnPlayerLeft)
	return &fixture{bus: bus, scene: scene, dir: dir, reg: reg}
}

func (f *fixture) players(t *testing.T, names ...string) []*player.Player {
	t.Helper()
	out := make([]*player.Player, 0, len(names))
	for i, n := range names {
		p, err := f.dir.CreatePlayer(i == 0, n)
		require.NoError(t, err)
		out = append(out, p)
	}
	require.NoError(t, f.dir.MarkSessionReady())
	return out
}

func (f *fixture) spawn(label string, y float64) ecs.EntityID {
	pose := component.Pose{Position: component.Vec3{Y: y}}
	id := f.scene.SpawnEntity(label, &pose)
	f.reg.Track(id)
	return id
}

func TestOnPlayerLeft_OwnershipNeverDangles(t *testing.T) {
	f := newFixture(t, nil)
	ps := f.players(t, "A", "B", "C")
	a, b, c := ps[0], ps[1], ps[2]

	e1, e2, e3, e4 := f.spawn("e1", 1), f.spawn("e2", 1), f.spawn("e3", 1), f.spawn("e4", 1)
	require.NoError(t, f.dir.SetOwner(b, e1))
	require.NoError(t, f.dir.SetOwner(b, e2))
	require.NoError(t, f.dir.SetOwner(c, e3))

	// A later leave subscriber must already observe the rewritten owners.
	var dangling []ecs.EntityID
	event.Subscribe(f.bus, func(e event.PlayerLeft) {
		leaving := f.dir.Get(e.Player.ID)
		f.reg.ForEach(func(id ecs.EntityID) {
			if f.dir.GetOwner(id) == leaving {
				dangling = append(dangling, id)
			}
		})
	})

	require.NoError(t, f.dir.RemovePlayer(b))
	assert.Empty(t, dangling)
	assert.Equal(t, a, f.dir.GetOwner(e1))
	assert.Equal(t, a, f.dir.GetOwner(e2))
	assert.Equal(t, c, f.dir.GetOwner(e3))
	assert.Equal(t, a, f.dir.GetOwner(e4))

	require.NoError(t, f.dir.RemovePlayer(a))
	assert.Empty(t, dangling)
	for _, id := range []ecs.EntityID{e1, e2, e3, e4} {
		assert.Equal(t, c, f.dir.GetOwner(id))
	}
	assert.ElementsMatch(t, []ecs.EntityID{e1, e2, e3, e4}, f.reg.OwnedBy(c))

	require.NoError(t, f.dir.RemovePlayer(c))
	assert.Empty(t, dangling)
	assert.Nil(t, f.dir.GetOwner(e1))
	assert.Equal(t, 0, f.dir.OwnedBy(c))
}

func TestOnPlayerLeft_ReassignsQueuedTracking(t *testing.T) {
	f := newFixture(t, nil)
	ps := f.players(t, "A", "B")
	a, b := ps[0], ps[1]

	id := f.spawn("late", 1)
	require.True(t, f.reg.Tracked(id))
	require.NoError(t, f.dir.SetOwner(b, id), "queued entries accept ownership")

	var owners []component.PlayerID
	event.Subscribe(f.bus, func(e event.OwnershipChanged) { owners = append(owners, e.Owner) })
	require.NoError(t, f.dir.RemovePlayer(b))
	assert.Equal(t, a, f.dir.GetOwner(id))
	assert.Equal(t, []component.PlayerID{a.ID()}, owners)
	assert.Equal(t, 1, f.reg.Len(), "leave handler flushed the queue")
}

func TestUntrack_ReleasesOwnershipRecord(t *testing.T) {
	f := newFixture(t, nil)
	ps := f.players(t, "A", "B")
	b := ps[1]

	id := f.spawn("box", 1)
	f.reg.Flush()
	require.NoError(t, f.dir.SetOwner(b, id))

	f.reg.Untrack(id)
	assert.False(t, f.reg.Tracked(id))
	assert.True(t, f.reg.Positioned(id), "still live until flush")
	f.reg.Flush()
	assert.Equal(t, 0, f.reg.Len())
	assert.False(t, f.reg.Positioned(id))
	assert.Equal(t, 0, f.dir.OwnedBy(b))
	assert.ErrorIs(t, f.dir.SetOwner(b, id), player.ErrUntrackedEntity)
}

func TestUntrack_CancelsQueuedTrack(t *testing.T) {
	f := newFixture(t, nil)
	id := f.spawn("box", 1)
	f.reg.Untrack(id)
	assert.False(t, f.reg.Positioned(id))
	f.reg.Flush()
	assert.Equal(t, 0, f.reg.Len())
}

func TestUntrack_QueuedEntityReleasesOwnershipRecord(t *testing.T) {
	f := newFixture(t, nil)
	ps := f.players(t, "A", "B")
	a, b := ps[0], ps[1]

	box := f.spawn("box", 1)
	require.NoError(t, f.dir.SetOwner(b, box))
	f.reg.Untrack(box)
	f.reg.Flush()
	assert.Equal(t, 0, f.dir.OwnedBy(b))
	assert.Equal(t, a, f.dir.GetOwner(box))

	f.reg.Track(box)
	f.reg.Flush()
	assert.Equal(t, a, f.dir.GetOwner(box), "re-tracked entity defaults to the master")
	assert.True(t, f.reg.Positioned(box))
}

func TestTrack_ClassifiesPositionedEntities(t *testing.T) {
	f := newFixture(t, nil)
	moving := f.spawn("ball", 1)
	static := f.scene.SpawnEntity("sign", nil)
	f.reg.Track(static)
	f.reg.Flush()

	assert.True(t, f.reg.Positioned(moving))
	assert.False(t, f.reg.Positioned(static))
	assert.Equal(t, 2, f.reg.Len())
}

func TestTrack_DeadEntityIsRejected(t *testing.T) {
	f := newFixture(t, nil)
	id := f.scene.SpawnEntity("ghost", &component.Pose{})
	f.scene.RequestDestroy(id)
	f.scene.FlushDestroyQueue()

	f.reg.Track(id)
	f.reg.Flush()
	assert.Equal(t, 0, f.reg.Len())
	assert.False(t, f.reg.Positioned(id))
}

func TestProcessTick_RespawnsBelowThreshold(t *testing.T) {
	f := newFixture(t, &data.WorldDescriptor{RespawnHeight: -10})
	falling := f.spawn("falling", 5)
	resting := f.spawn("resting", 5)
	static := f.scene.SpawnEntity("static", nil)
	f.reg.Track(static)
	f.reg.ProcessTick()

	require.True(t, f.scene.MoveTo(falling, component.Vec3{X: 3, Y: -11}))
	require.True(t, f.scene.MoveTo(resting, component.Vec3{Y: -10}))

	res := f.reg.ProcessTick()
	assert.Equal(t, SweepResult{Respawned: 1}, res)
	tr, _ := f.scene.Transform(falling)
	assert.Equal(t, component.Vec3{Y: 5}, tr.Pose.Position)
	tr, _ = f.scene.Transform(resting)
	assert.Equal(t, component.Vec3{Y: -10}, tr.Pose.Position, "threshold itself is safe")
	assert.Equal(t, 3, f.reg.Len())
}

func TestProcessTick_DestroyPolicyPrunesOnLaterFlush(t *testing.T) {
	f := newFixture(t, &data.WorldDescriptor{RespawnHeight: 0, DestroyBelow: true})
	ps := f.players(t, "A", "B")
	b := ps[1]

	id := f.spawn("crate", 2)
	f.reg.ProcessTick()
	require.NoError(t, f.dir.SetOwner(b, id))
	f.scene.MoveTo(id, component.Vec3{Y: -1})

	res := f.reg.ProcessTick()
	assert.Equal(t, SweepResult{Destroyed: 1}, res)
	assert.True(t, f.scene.PendingDestruction(id))
	assert.Equal(t, 1, f.reg.Len(), "sweep never removes entries itself")

	f.scene.FlushDestroyQueue()
	f.reg.ProcessTick()
	assert.Equal(t, 0, f.reg.Len())
	assert.False(t, f.reg.Tracked(id))
	assert.Equal(t, 0, f.dir.OwnedBy(b))
}
