package component

// Vec3 is a world-space position. Y is up.
type Vec3 struct {
	X, Y, Z float64
}

// Pose is a position plus a yaw in degrees.
type Pose struct {
	Position Vec3
	Yaw      float64
}

// Transform is attached to every position-tracked entity.
// Spawn is recorded at creation and restored by the respawn sweep.
type Transform struct {
	Pose  Pose
	Spawn Pose
}

// Reset puts the entity back at its recorded spawn pose.
func (t *Transform) Reset() {
	t.Pose = t.Spawn
}
