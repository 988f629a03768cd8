// Package tui is a terminal view of a running scenario: the worlds step in
// real time and bodies are drawn on a rune canvas.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/setanarut/cm"

	"github.com/san-kum/rigidsync/internal/events"
	"github.com/san-kum/rigidsync/internal/scenario"
	"github.com/san-kum/rigidsync/internal/scene"
	"github.com/san-kum/rigidsync/internal/trace"
	"github.com/san-kum/rigidsync/internal/world"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

const (
	canvasWidth  = 72
	canvasHeight = 22
	// World units per canvas cell, horizontally; vertical cells are twice
	// as tall as wide in most terminals.
	cellsPerUnit = 2.0
)

// counters live behind a pointer because bubbletea copies the model on
// every Update while the pipeline callbacks keep firing into one instance.
type counters struct {
	collisions int
	contacts   int
}

type model struct {
	sc      *scenario.Scenario
	build   func() (*scenario.Scenario, error)
	paused  bool
	simTime float64
	last    time.Time
	fps     float64
	stats   *counters

	width  int
	height int
	err    error
}

// NewApp wraps a scenario in a bubbletea program. build is called again on
// reset.
func NewApp(build func() (*scenario.Scenario, error)) (*tea.Program, error) {
	sc, err := build()
	if err != nil {
		return nil, err
	}
	m := model{sc: sc, build: build, width: 80, height: 24, stats: &counters{}}
	m.hookEvents()
	return tea.NewProgram(m, tea.WithAltScreen()), nil
}

func (m *model) hookEvents() {
	stats := m.stats
	m.sc.Pipeline.OnCollision = func(events.CollisionEvent) { stats.collisions++ }
	m.sc.Pipeline.OnContactForce = func(events.ContactForceEvent) { stats.contacts++ }
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(33*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd { return tick() }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
		case "r":
			sc, err := m.build()
			if err != nil {
				m.err = err
				return m, tick()
			}
			m.sc = sc
			m.hookEvents()
			m.simTime = 0
			*m.stats = counters{}
			m.last = time.Time{}
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		now := time.Now()
		elapsed := 0.0
		if !m.last.IsZero() {
			elapsed = now.Sub(m.last).Seconds()
			if elapsed > 0 {
				m.fps = 1 / elapsed
			}
		}
		m.last = now
		if !m.paused && elapsed > 0 {
			if err := m.sc.Pipeline.Update(elapsed); err != nil {
				m.err = err
			}
			m.simTime += elapsed
		}
		return m, tick()
	}
	return m, nil
}

func (m model) View() string {
	canvas := make([][]rune, canvasHeight)
	for i := range canvas {
		canvas[i] = make([]rune, canvasWidth)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}
	m.drawWorlds(canvas)

	var b strings.Builder
	title := fmt.Sprintf(" %s  t=%.2fs", m.sc.Name, m.simTime)
	if m.paused {
		title += yellow.Render("  [paused]")
	}
	b.WriteString(cyan.Render(title) + "\n")
	b.WriteString(dim.Render(" "+strings.Repeat("─", canvasWidth)) + "\n")
	for _, row := range canvas {
		b.WriteString(" " + white.Render(string(row)) + "\n")
	}
	b.WriteString(dim.Render(" "+strings.Repeat("─", canvasWidth)) + "\n")

	var ke float64
	m.sc.Worlds.Each(func(w *world.World) { ke += trace.KineticEnergy(w) })
	status := fmt.Sprintf(" bodies=%d  ke=%.1f  collisions=%d  forces=%d  fps=%.0f",
		m.bodyCount(), ke, m.stats.collisions, m.stats.contacts, m.fps)
	b.WriteString(green.Render(status) + "\n")
	if m.err != nil {
		b.WriteString(yellow.Render(fmt.Sprintf(" error: %v", m.err)) + "\n")
	}
	b.WriteString(dim.Render(" space pause · r reset · q quit"))
	return b.String()
}

func (m model) bodyCount() int {
	n := 0
	m.sc.Worlds.Each(func(w *world.World) { n += w.BodyCount() })
	return n
}

// drawWorlds projects every collider onto the canvas. The view is centered
// on the origin with +Y up.
func (m model) drawWorlds(canvas [][]rune) {
	m.sc.Worlds.Each(func(w *world.World) {
		w.EachCollider(func(_ world.ColliderHandle, shape *cm.Shape, e scene.Entity) bool {
			pos := shape.Body.Position()
			glyph := 'O'
			switch shape.Class.(type) {
			case *cm.Segment:
				m.drawGround(canvas)
				return true
			case *cm.Polygon:
				glyph = '#'
			}
			if m.sc.Scene.Sleeping(e) {
				glyph = 'o'
			}
			cx, cy := project(pos.X, pos.Y)
			set(canvas, cx, cy, glyph)
			return true
		})
	})
}

func (m model) drawGround(canvas [][]rune) {
	_, gy := project(0, 0)
	for x := 0; x < canvasWidth; x++ {
		set(canvas, x, gy, '=')
	}
}

func project(x, y float64) (int, int) {
	cx := canvasWidth/2 + int(x*cellsPerUnit)
	cy := canvasHeight - 2 - int(y)
	return cx, cy
}

func set(canvas [][]rune, x, y int, c rune) {
	if x >= 0 && x < canvasWidth && y >= 0 && y < canvasHeight {
		canvas[y][x] = c
	}
}
