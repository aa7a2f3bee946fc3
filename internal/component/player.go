package component

// PlayerID identifies a participant for the lifetime of a session.
// Ids start at 1 and are never reused.
type PlayerID int32

// NoPlayer stands for "none", e.g. the previous master of the first election.
const NoPlayer PlayerID = 0

// Locomotion stores the movement tuning of a player avatar.
// Pure data, mutated only through the player directory.
type Locomotion struct {
	WalkSpeed       float64
	RunSpeed        float64
	StrafeSpeed     float64
	JumpImpulse     float64
	GravityStrength float64
	Immobilized     bool
}

// DefaultLocomotion mirrors the platform defaults for a fresh avatar.
func DefaultLocomotion() Locomotion {
	return Locomotion{
		WalkSpeed:       2,
		RunSpeed:        4,
		StrafeSpeed:     2,
		JumpImpulse:     0,
		GravityStrength: 1,
	}
}
