package main

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// sweepEventMsg forwards a SweepEvent into the program.
type sweepEventMsg SweepEvent

// sweepDoneMsg ends the sweep with the saved record path or the failure.
type sweepDoneMsg struct {
	path string
	err  error
}

// sizeRow is the dashboard state of one problem size.
type sizeRow struct {
	nodes       int
	qubits      int
	evals       int
	expectation float64
	elapsed     time.Duration
	done        bool
}

// Model represents the dashboard state.
type Model struct {
	spinner    spinner.Model
	bar        progress.Model
	sizes      []sizeRow
	current    int
	trajectory []float64 // totals of the current size, in evaluation order
	circuit    *Circuit  // starting ansatz of the current size
	grid       map[cellKey]Gate
	width      int
	height     int

	finished bool
	err      error
	path     string
	cancel   context.CancelFunc
}

func initialModel(nodeCounts []int, cancel context.CancelFunc) Model {
	sizes := make([]sizeRow, len(nodeCounts))
	for i, n := range nodeCounts {
		sizes[i].nodes = n
	}
	return Model{
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(activeStyle)),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		sizes:   sizes,
		cancel:  cancel,
	}
}

// fraction is the share of sizes already optimized.
func (m Model) fraction() float64 {
	if len(m.sizes) == 0 {
		return 0
	}
	done := 0
	for _, row := range m.sizes {
		if row.done {
			done++
		}
	}
	return float64(done) / float64(len(m.sizes))
}

// applyEvent folds a sweep event into the dashboard state.
func (m *Model) applyEvent(ev SweepEvent) {
	if ev.Index < 0 || ev.Index >= len(m.sizes) {
		return
	}
	row := &m.sizes[ev.Index]
	row.nodes = ev.NodeCount
	row.qubits = ev.Qubits

	switch ev.Kind {
	case SweepSizeStarted:
		m.current = ev.Index
		m.trajectory = nil
		if ev.Circuit != nil {
			m.circuit = ev.Circuit
			m.grid = circuitGrid(ev.Circuit)
		}
	case SweepEvaluated:
		row.evals++
		row.expectation = ev.Expectation
		m.trajectory = append(m.trajectory, ev.Expectation)
	case SweepSizeFinished:
		row.expectation = ev.Expectation
		row.elapsed = ev.Elapsed
		row.done = true
	}
}

// ──────────────────────────── Init / Update ────────────────────────────

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(msg.Width/3-8, 10)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case sweepEventMsg:
		m.applyEvent(SweepEvent(msg))

	case sweepDoneMsg:
		m.finished = true
		m.err = msg.err
		m.path = msg.path
	}
	return m, nil
}

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	sizesWidth := m.width / 3
	circuitWidth := m.width - sizesWidth - 4
	controlsHeight := 4
	topHeight := max(m.height-controlsHeight-4, 8)

	circuitPanel := m.renderCircuitPanel(circuitWidth, topHeight)
	sizesPanel := m.renderSizesPanel(sizesWidth, topHeight)
	controlsPanel := m.renderControlsPanel(m.width-4, controlsHeight-2)

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, circuitPanel, sizesPanel)
	frame := lipgloss.JoinVertical(lipgloss.Left, topRow, controlsPanel)

	if m.finished {
		frame = overlayAt(frame, m.renderSummary(), 4, 2)
	}
	return frame
}
