package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/rigidsync/internal/config"
	"github.com/san-kum/rigidsync/internal/events"
	"github.com/san-kum/rigidsync/internal/scenario"
	"github.com/san-kum/rigidsync/internal/scene"
	"github.com/san-kum/rigidsync/internal/trace"
	"github.com/san-kum/rigidsync/internal/tui"
	"github.com/san-kum/rigidsync/internal/world"
)

var (
	configFile string
	preset     string
	duration   float64
	dt         float64
	mode       string
	substeps   int
	gravityY   float64
	bodies     int
	dropHeight float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rigidsync",
		Short: "scene-graph to rigid-body synchronization sandbox",
	}

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "run a scenario headless and plot traces",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScenario,
	}
	addScenarioFlags(runCmd)

	liveCmd := &cobra.Command{
		Use:   "live [scenario]",
		Short: "watch a scenario in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addScenarioFlags(liveCmd)

	scenariosCmd := &cobra.Command{
		Use:   "scenarios",
		Short: "list scenarios and presets",
		RunE:  listScenarios,
	}

	rootCmd.AddCommand(runCmd, liveCmd, scenariosCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "preset name")
	cmd.Flags().Float64Var(&duration, "time", 0, "duration override")
	cmd.Flags().Float64Var(&dt, "dt", 0, "timestep override")
	cmd.Flags().StringVar(&mode, "mode", "", "timestep mode: fixed, variable, interpolated")
	cmd.Flags().IntVar(&substeps, "substeps", 0, "substeps override")
	cmd.Flags().Float64Var(&gravityY, "gravity-y", config.DefaultGravityY, "vertical gravity")
	cmd.Flags().IntVar(&bodies, "bodies", 0, "body count override")
	cmd.Flags().Float64Var(&dropHeight, "drop", 0, "drop height override")
}

// buildConfig layers config sources: defaults, then preset, then config
// file, then explicit flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if len(args) == 1 {
		cfg.Scenario = args[0]
	}
	if preset != "" {
		p := config.GetPreset(cfg.Scenario, preset)
		if p == nil {
			return nil, fmt.Errorf("no preset %q for scenario %q", preset, cfg.Scenario)
		}
		// Copy so flag overrides below do not mutate the shared preset.
		c := *p
		cfg = &c
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		if len(args) == 1 {
			cfg.Scenario = args[0]
		}
	}

	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("dt") {
		cfg.Timestep.Dt = dt
		cfg.Timestep.MaxDt = dt
	}
	if cmd.Flags().Changed("mode") {
		cfg.Timestep.Mode = mode
	}
	if cmd.Flags().Changed("substeps") {
		cfg.Timestep.Substeps = substeps
	}
	if cmd.Flags().Changed("gravity-y") {
		cfg.Gravity.Y = gravityY
	}
	if cmd.Flags().Changed("bodies") {
		cfg.Scene.Bodies = bodies
	}
	if cmd.Flags().Changed("drop") {
		cfg.Scene.DropHeight = dropHeight
	}
	return cfg, cfg.Validate()
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	sc, err := scenario.Build(cfg)
	if err != nil {
		return err
	}

	rec := trace.NewRecorder()
	collisions, contactForces := 0, 0
	sc.Pipeline.OnCollision = func(events.CollisionEvent) { collisions++ }
	sc.Pipeline.OnContactForce = func(events.ContactForceEvent) { contactForces++ }

	stepDt := cfg.Timestep.Dt
	steps := int(cfg.Duration / stepDt)
	for i := 0; i < steps; i++ {
		if err := sc.Pipeline.Update(stepDt); err != nil {
			return err
		}
		for j, e := range sc.Tracked {
			if t, ok := sc.Scene.Transform(e); ok {
				rec.Record(fmt.Sprintf("body%d.y", j), worldY(sc, e, t))
			}
		}
		var ke float64
		sc.Worlds.Each(func(w *world.World) { ke += trace.KineticEnergy(w) })
		rec.Record("kinetic_energy", ke)
	}

	fmt.Printf("scenario %s: %d steps of %.4fs (%.1fs simulated)\n",
		sc.Name, steps, stepDt, float64(steps)*stepDt)
	fmt.Printf("collision events: %d, contact force events: %d\n\n", collisions, contactForces)

	for _, name := range rec.Names() {
		data := rec.Samples(name)
		if len(data) < 2 {
			continue
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(name),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

// worldY composes the entity's authored transforms up the hierarchy and
// returns the world-space height.
func worldY(sc *scenario.Scenario, e scene.Entity, t scene.Transform) float64 {
	y := t.Translation.Y
	cur := e
	for {
		parent, ok := sc.Scene.Parent(cur)
		if !ok {
			return y
		}
		pt, _ := sc.Scene.Transform(parent)
		y += pt.Translation.Y
		cur = parent
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	app, err := tui.NewApp(func() (*scenario.Scenario, error) {
		return scenario.Build(cfg)
	})
	if err != nil {
		return err
	}
	_, err = app.Run()
	return err
}

func listScenarios(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCENARIO\tPRESETS")
	for _, name := range scenario.Names() {
		presets := config.ListPresets(name)
		sort.Strings(presets)
		fmt.Fprintf(w, "%s\t%s\n", name, strings.Join(presets, ", "))
	}
	return w.Flush()
}
