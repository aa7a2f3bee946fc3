package player

import "errors"

var (
	// ErrDuplicateIdentity means an allocated id was already registered.
	// Unreachable unless the id counter is corrupted.
	ErrDuplicateIdentity = errors.New("duplicate player identity")

	// ErrDuplicateLocal means a second local player was requested.
	ErrDuplicateLocal = errors.New("local player already exists")

	// ErrUntrackedEntity means ownership was set on an entity that has no
	// ownership registry entry.
	ErrUntrackedEntity = errors.New("entity is not ownership-tracked")

	// ErrRemotePlayer means a local-only operation targeted a remote player.
	// A real session would desynchronize, so this is a hard failure.
	ErrRemotePlayer = errors.New("operation is only valid on the local player")

	ErrPlayerRemoved    = errors.New("player has left the session")
	ErrUnknownPlayer    = errors.New("unknown player")
	ErrAlreadyReady     = errors.New("session already marked ready")
	ErrNoEntityRegistry = errors.New("no ownership registry attached")
)
