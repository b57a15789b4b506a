package main

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ──────────────────────────── Rendering helpers ────────────────────────────

// padCenter centres a string within the given width.
func padCenter(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	total := width - len(s)
	left := total / 2
	right := total - left
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
}

// gateDisplayName returns a short display name for a gate type.
func gateDisplayName(gateType string) string {
	switch gateType {
	case GateRZZ:
		return "ZZ"
	default:
		return gateType
	}
}

// sparkBlocks are the eight bar heights of a sparkline.
var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// sparkline draws the last width values scaled between their min and max.
func sparkline(values []float64, width int) string {
	if width <= 0 || len(values) == 0 {
		return ""
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	var sb strings.Builder
	for _, v := range values {
		level := 0
		if hi > lo {
			level = int((v - lo) / (hi - lo) * float64(len(sparkBlocks)-1))
		}
		sb.WriteRune(sparkBlocks[level])
	}
	return sb.String()
}

// ──────────────────────────── Cell rendering ────────────────────────────

// cellKey addresses one (step, qubit) slot of the circuit grid.
type cellKey struct{ step, qubit int }

// circuitGrid indexes the gates of c by the slots they occupy.
func circuitGrid(c *Circuit) map[cellKey]Gate {
	grid := make(map[cellKey]Gate, len(c.Gates))
	for _, g := range c.Gates {
		for _, q := range g.Qubits() {
			grid[cellKey{g.Step, q}] = g
		}
	}
	return grid
}

// renderCell returns one wire segment, exactly cellW visual characters wide.
func renderCell(g Gate, ok bool) string {
	if !ok {
		return dimStyle.Render(strings.Repeat("─", cellW))
	}
	name := fmt.Sprintf("%-*s", gateNameW, gateDisplayName(g.Type))
	style := gateStyle
	if g.Control >= 0 {
		style = couplingStyle
	}
	return dimStyle.Render("─┤") + style.Render(name) + dimStyle.Render("├─")
}

// ──────────────────────────── Panel rendering ────────────────────────────

// renderCircuitPanel renders the leading qubits and steps of the current ansatz.
func (m Model) renderCircuitPanel(width, height int) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("QAOA Ansatz"))
	sb.WriteString("\n\n")

	if m.circuit == nil {
		sb.WriteString(dimStyle.Render("waiting for the first instance"))
		return circuitStyle.Width(width).Height(height).Render(sb.String())
	}

	availWidth := width - labelVisualW - 4
	displaySteps := min(max(availWidth/cellW, 1), m.circuit.MaxSteps)
	displayQubits := min(max(height-6, 1), m.circuit.NumQubits)

	header := strings.Repeat(" ", labelVisualW)
	for step := range displaySteps {
		header += dimStyle.Render(padCenter(fmt.Sprintf("%d", step), cellW))
	}
	sb.WriteString(header + "\n")

	for qubit := range displayQubits {
		label := fmt.Sprintf("q[%d]", qubit)
		line := qubitLabelStyle.Render(fmt.Sprintf("%-5s", label)) + "──"
		for step := range displaySteps {
			g, ok := m.grid[cellKey{step, qubit}]
			line += renderCell(g, ok)
		}
		sb.WriteString(line + "\n")
	}

	hidden := []string{}
	if displayQubits < m.circuit.NumQubits {
		hidden = append(hidden, fmt.Sprintf("%d more qubits", m.circuit.NumQubits-displayQubits))
	}
	if displaySteps < m.circuit.MaxSteps {
		hidden = append(hidden, fmt.Sprintf("%d more steps", m.circuit.MaxSteps-displaySteps))
	}
	fmt.Fprintf(&sb, "\n  %d gates, %d RZZ", len(m.circuit.Gates), m.circuit.CountGates(GateRZZ))
	if len(hidden) > 0 {
		fmt.Fprintf(&sb, "  │  %s", dimStyle.Render(strings.Join(hidden, ", ")))
	}

	return circuitStyle.Width(width).Height(height).Render(sb.String())
}

// renderSizesPanel renders one row per problem size with its progress and result.
func (m Model) renderSizesPanel(width, height int) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Sweep"))
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "%-6s %-7s %-6s %-14s %s\n", "nodes", "qubits", "evals", "expectation", "time")
	for i, row := range m.sizes {
		status := dimStyle.Render("pending")
		switch {
		case row.done:
			status = fmt.Sprintf("%-14.8f %s", row.expectation, row.elapsed.Round(time.Millisecond))
		case row.evals > 0 || i == m.current:
			status = activeStyle.Render(fmt.Sprintf("%-14.8f %s", row.expectation, m.spinner.View()))
		}
		fmt.Fprintf(&sb, "%-6d %-7d %-6d %s\n", row.nodes, row.qubits, row.evals, status)
	}
	sb.WriteString("\n")
	sb.WriteString(m.bar.ViewAs(m.fraction()))

	return sizesStyle.Width(width).Height(height).Render(sb.String())
}

// renderControlsPanel renders the trajectory sparkline and key help.
func (m Model) renderControlsPanel(width, height int) string {
	var sb strings.Builder

	sb.WriteString(activeStyle.Render("Trajectory: "))
	sb.WriteString(gateStyle.Render(sparkline(m.trajectory, max(width-20, 1))))
	sb.WriteString("\n")
	sb.WriteString(activeStyle.Render("Actions:    "))
	sb.WriteString("q/^C Cancel and quit")

	return controlsStyle.Width(width).Height(height).Render(sb.String())
}

// renderSummary renders the box shown once the sweep has ended.
func (m Model) renderSummary() string {
	var sb strings.Builder
	if m.err != nil {
		sb.WriteString(errorStyle.Render("Sweep failed"))
		sb.WriteString("\n\n")
		sb.WriteString(m.err.Error())
	} else {
		sb.WriteString(titleStyle.Render("Sweep finished"))
		sb.WriteString("\n\n")
		for _, row := range m.sizes {
			fmt.Fprintf(&sb, "n=%-4d %.10f\n", row.nodes, row.expectation)
		}
		if m.path != "" {
			fmt.Fprintf(&sb, "\nsaved %s", m.path)
		}
	}
	sb.WriteString("\n\n")
	sb.WriteString(dimStyle.Render("q Quit"))
	return summaryBorderStyle.Render(sb.String())
}

// ──────────────────────────── Overlay helpers ────────────────────────────

// overlayAt composites the overlay string on top of the background at position (x, y).
// It handles ANSI escape sequences by tracking visible column positions.
func overlayAt(bg, overlay string, x, y int) string {
	bgLines := strings.Split(bg, "\n")
	ovLines := strings.Split(overlay, "\n")

	for i, ovLine := range ovLines {
		bgIdx := y + i
		if bgIdx < 0 || bgIdx >= len(bgLines) {
			continue
		}
		bgLines[bgIdx] = spliceLineAt(bgLines[bgIdx], ovLine, x)
	}
	return strings.Join(bgLines, "\n")
}

// isEscFinal reports whether r terminates an ANSI escape sequence.
func isEscFinal(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')
}

// spliceLineAt replaces visible columns starting at position x in bgLine with overlay content.
func spliceLineAt(bgLine, overlay string, x int) string {
	runes := []rune(bgLine)
	ovWidth := visibleLen(overlay)

	var prefix strings.Builder
	col, i := 0, 0

	// escape sequences before column x are kept so colours carry over
	for i < len(runes) && col < x {
		if runes[i] == '\x1b' {
			for i < len(runes) {
				r := runes[i]
				prefix.WriteRune(r)
				i++
				if r != '\x1b' && r != '[' && isEscFinal(r) {
					break
				}
			}
			continue
		}
		prefix.WriteRune(runes[i])
		col++
		i++
	}
	for col < x {
		prefix.WriteRune(' ')
		col++
	}

	skipped := 0
	for i < len(runes) && skipped < ovWidth {
		if runes[i] == '\x1b' {
			for i < len(runes) {
				r := runes[i]
				i++
				if r != '\x1b' && r != '[' && isEscFinal(r) {
					break
				}
			}
			continue
		}
		skipped++
		i++
	}

	return prefix.String() + overlay + string(runes[i:])
}

// visibleLen returns the number of visible (non-ANSI-escape) characters in a string.
func visibleLen(s string) int {
	n := 0
	inEsc := false
	for _, r := range s {
		if r == '\x1b' {
			inEsc = true
			continue
		}
		if inEsc {
			if isEscFinal(r) {
				inEsc = false
			}
			continue
		}
		n++
	}
	return n
}
