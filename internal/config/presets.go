package config

var Presets = map[string]map[string]*Config{
	"freefall": {
		"low": {
			Scenario: "freefall", Duration: 5,
			Gravity:  GravityConfig{Y: -9.81},
			Timestep: TimestepConfig{Mode: "fixed", Dt: 1.0 / 60.0, TimeScale: 1, Substeps: 1},
			Scene:    SceneConfig{Bodies: 1, DropHeight: 3, Spacing: 1.5, Restitution: 0.3},
		},
		"high": {
			Scenario: "freefall", Duration: 10,
			Gravity:  GravityConfig{Y: -9.81},
			Timestep: TimestepConfig{Mode: "fixed", Dt: 1.0 / 60.0, TimeScale: 1, Substeps: 1},
			Scene:    SceneConfig{Bodies: 1, DropHeight: 20, Spacing: 1.5, Restitution: 0.6},
		},
		"bouncy": {
			Scenario: "freefall", Duration: 15,
			Gravity:  GravityConfig{Y: -9.81},
			Timestep: TimestepConfig{Mode: "interpolated", Dt: 1.0 / 30.0, TimeScale: 1, Substeps: 2},
			Scene:    SceneConfig{Bodies: 5, DropHeight: 8, Spacing: 1.2, Restitution: 0.9},
		},
	},
	"stack": {
		"short": {
			Scenario: "stack", Duration: 8,
			Gravity:  GravityConfig{Y: -9.81},
			Timestep: TimestepConfig{Mode: "fixed", Dt: 1.0 / 60.0, TimeScale: 1, Substeps: 1},
			Scene:    SceneConfig{Bodies: 3, DropHeight: 0.5, Spacing: 1.05, Restitution: 0},
		},
		"tall": {
			Scenario: "stack", Duration: 12,
			Gravity:  GravityConfig{Y: -9.81},
			Timestep: TimestepConfig{Mode: "fixed", Dt: 1.0 / 120.0, TimeScale: 1, Substeps: 2},
			Scene:    SceneConfig{Bodies: 8, DropHeight: 0.5, Spacing: 1.05, Restitution: 0},
		},
	},
	"hierarchy": {
		"classic": {
			Scenario: "hierarchy", Duration: 4,
			Gravity:  GravityConfig{},
			Timestep: TimestepConfig{Mode: "fixed", Dt: 1.0 / 60.0, TimeScale: 1, Substeps: 1},
			Scene:    SceneConfig{Bodies: 2, ParentVelY: 2, ChildVelY: -1, ChildOffsetY: 5},
		},
	},
	"pendulum": {
		"single": {
			Scenario: "pendulum", Duration: 20,
			Gravity:  GravityConfig{Y: -9.81},
			Timestep: TimestepConfig{Mode: "fixed", Dt: 1.0 / 120.0, TimeScale: 1, Substeps: 1},
			Scene:    SceneConfig{Bodies: 1, Spacing: 2},
		},
		"chain": {
			Scenario: "pendulum", Duration: 30,
			Gravity:  GravityConfig{Y: -9.81},
			Timestep: TimestepConfig{Mode: "fixed", Dt: 1.0 / 120.0, TimeScale: 1, Substeps: 2},
			Scene:    SceneConfig{Bodies: 4, Spacing: 1.5},
		},
	},
}

func GetPreset(scenario, preset string) *Config {
	scenarioPresets, ok := Presets[scenario]
	if !ok {
		return nil
	}
	cfg, ok := scenarioPresets[preset]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets(scenario string) []string {
	scenarioPresets, ok := Presets[scenario]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(scenarioPresets))
	for name := range scenarioPresets {
		names = append(names, name)
	}
	return names
}
