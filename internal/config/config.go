package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDt         = 1.0 / 60.0
	DefaultDuration   = 10.0
	DefaultGravityY   = -9.81
	DefaultDropHeight = 5.0
	DefaultBodies     = 3
)

type Config struct {
	Scenario string         `yaml:"scenario"`
	Duration float64        `yaml:"duration"`
	Gravity  GravityConfig  `yaml:"gravity"`
	Timestep TimestepConfig `yaml:"timestep"`
	Scene    SceneConfig    `yaml:"scene"`
}

type GravityConfig struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// TimestepConfig selects how render time maps onto physics steps. Mode is
// one of "fixed", "variable" or "interpolated".
type TimestepConfig struct {
	Mode      string  `yaml:"mode"`
	Dt        float64 `yaml:"dt"`
	MaxDt     float64 `yaml:"max_dt"`
	TimeScale float64 `yaml:"time_scale"`
	Substeps  int     `yaml:"substeps"`
}

// SceneConfig holds the initial conditions the built-in scenarios use.
type SceneConfig struct {
	Bodies      int     `yaml:"bodies"`
	DropHeight  float64 `yaml:"drop_height"`
	Spacing     float64 `yaml:"spacing"`
	Restitution float64 `yaml:"restitution"`

	// Hierarchy scenario: parent velocity, child local offset and child
	// velocity along Y.
	ParentVelY   float64 `yaml:"parent_vel_y"`
	ChildVelY    float64 `yaml:"child_vel_y"`
	ChildOffsetY float64 `yaml:"child_offset_y"`
}

func DefaultConfig() *Config {
	return &Config{
		Scenario: "freefall",
		Duration: DefaultDuration,
		Gravity:  GravityConfig{Y: DefaultGravityY},
		Timestep: TimestepConfig{
			Mode:      "variable",
			Dt:        DefaultDt,
			MaxDt:     DefaultDt,
			TimeScale: 1,
			Substeps:  1,
		},
		Scene: SceneConfig{
			Bodies:       DefaultBodies,
			DropHeight:   DefaultDropHeight,
			Spacing:      1.5,
			Restitution:  0.3,
			ParentVelY:   2,
			ChildVelY:    -1,
			ChildOffsetY: 5,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Duration <= 0 {
		return fmt.Errorf("config: duration must be positive, got %g", c.Duration)
	}
	switch c.Timestep.Mode {
	case "fixed", "interpolated":
		if c.Timestep.Dt <= 0 {
			return fmt.Errorf("config: dt must be positive, got %g", c.Timestep.Dt)
		}
	case "variable":
		if c.Timestep.MaxDt <= 0 {
			return fmt.Errorf("config: max_dt must be positive, got %g", c.Timestep.MaxDt)
		}
	default:
		return fmt.Errorf("config: unknown timestep mode %q", c.Timestep.Mode)
	}
	if c.Timestep.Substeps < 1 {
		return fmt.Errorf("config: substeps must be at least 1, got %d", c.Timestep.Substeps)
	}
	if c.Timestep.Mode != "fixed" && c.Timestep.TimeScale <= 0 {
		return fmt.Errorf("config: time_scale must be positive, got %g", c.Timestep.TimeScale)
	}
	if c.Scene.Bodies < 1 {
		return fmt.Errorf("config: scene needs at least one body, got %d", c.Scene.Bodies)
	}
	return nil
}
