package player

import (
	"fmt"

	"github.com/l1jgo/authority/internal/component"
	"go.uber.org/zap"
)

// Locomotion tuning only exists on the local avatar. Changing it on a remote
// player would desynchronize a real session, so those calls fail hard.

func (d *Directory) SetWalkSpeed(p *Player, v float64) error {
	return d.mutateLocal(p, "SetWalkSpeed", func(l *component.Locomotion) { l.WalkSpeed = v })
}

func (d *Directory) SetRunSpeed(p *Player, v float64) error {
	return d.mutateLocal(p, "SetRunSpeed", func(l *component.Locomotion) { l.RunSpeed = v })
}

func (d *Directory) SetStrafeSpeed(p *Player, v float64) error {
	return d.mutateLocal(p, "SetStrafeSpeed", func(l *component.Locomotion) { l.StrafeSpeed = v })
}

func (d *Directory) SetJumpImpulse(p *Player, v float64) error {
	return d.mutateLocal(p, "SetJumpImpulse", func(l *component.Locomotion) { l.JumpImpulse = v })
}

func (d *Directory) SetGravityStrength(p *Player, v float64) error {
	return d.mutateLocal(p, "SetGravityStrength", func(l *component.Locomotion) { l.GravityStrength = v })
}

func (d *Directory) Immobilize(p *Player, on bool) error {
	return d.mutateLocal(p, "Immobilize", func(l *component.Locomotion) { l.Immobilized = on })
}

func (d *Directory) mutateLocal(p *Player, op string, fn func(*component.Locomotion)) error {
	if err := d.live(p); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !p.local {
		return fmt.Errorf("%s on player %d: %w", op, p.id, ErrRemotePlayer)
	}
	fn(&p.loco)
	return nil
}

// TeleportTo moves the local player. On a remote player the platform treats
// this as a silent no-op; it is logged and ignored.
func (d *Directory) TeleportTo(p *Player, pose component.Pose) error {
	if err := d.live(p); err != nil {
		return fmt.Errorf("TeleportTo: %w", err)
	}
	if !p.local {
		d.log.Warn("teleport ignored for remote player", zap.Int32("player", int32(p.id)))
		return nil
	}
	p.pose = pose
	return nil
}

// Respawn returns the local player to its spawn point. Remote players are
// ignored with a warning, like TeleportTo.
func (d *Directory) Respawn(p *Player) error {
	if err := d.live(p); err != nil {
		return fmt.Errorf("Respawn: %w", err)
	}
	if !p.local {
		d.log.Warn("respawn ignored for remote player", zap.Int32("player", int32(p.id)))
		return nil
	}
	if d.spawns != nil {
		p.pose = d.spawns.SpawnPoint(p.id)
	} else {
		p.pose = component.Pose{}
	}
	return nil
}
