package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultRespawnHeight matches the platform default for a new scene.
const DefaultRespawnHeight = -100.0

// SpawnPoint is one player spawn location.
type SpawnPoint struct {
	X   float64 `yaml:"x"`
	Y   float64 `yaml:"y"`
	Z   float64 `yaml:"z"`
	Yaw float64 `yaml:"yaw"`
}

// PropSpawn places an ownership-bearing entity when the scene loads.
type PropSpawn struct {
	Name   string  `yaml:"name"`
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Z      float64 `yaml:"z"`
	Yaw    float64 `yaml:"yaw"`
	Static bool    `yaml:"static"` // no transform, skipped by the respawn sweep
	Script string  `yaml:"script"` // behaviour name, empty for none
}

// WorldDescriptor is the scene-level data the session needs: where players
// appear, the respawn threshold and what happens below it.
type WorldDescriptor struct {
	Name          string       `yaml:"name"`
	RespawnHeight float64      `yaml:"respawn_height"`
	DestroyBelow  bool         `yaml:"destroy_below"`
	SpawnPoints   []SpawnPoint `yaml:"spawn_points"`
	Props         []PropSpawn  `yaml:"props"`
}

// DefaultWorld is used when no descriptor file is configured.
func DefaultWorld() *WorldDescriptor {
	return &WorldDescriptor{
		Name:          "default",
		RespawnHeight: DefaultRespawnHeight,
		SpawnPoints:   []SpawnPoint{{}},
	}
}

// LoadWorldDescriptor loads a scene descriptor from YAML.
func LoadWorldDescriptor(path string) (*WorldDescriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read world descriptor: %w", err)
	}
	return ParseWorldDescriptor(raw)
}

// ParseWorldDescriptor decodes and validates a descriptor. Missing
// respawn_height falls back to DefaultRespawnHeight; a scene without spawn
// points spawns everyone at the origin.
func ParseWorldDescriptor(raw []byte) (*WorldDescriptor, error) {
	w := DefaultWorld()
	w.SpawnPoints = nil
	if err := yaml.Unmarshal(raw, w); err != nil {
		return nil, fmt.Errorf("parse world descriptor: %w", err)
	}
	if len(w.SpawnPoints) == 0 {
		w.SpawnPoints = []SpawnPoint{{}}
	}
	seen := make(map[string]struct{}, len(w.Props))
	for i, p := range w.Props {
		if p.Name == "" {
			return nil, fmt.Errorf("world descriptor: prop %d has no name", i)
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("world descriptor: duplicate prop %q", p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return w, nil
}

// PropCount returns the number of props in the descriptor.
func (w *WorldDescriptor) PropCount() int { return len(w.Props) }
