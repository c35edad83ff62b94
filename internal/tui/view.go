package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/tuicps/internal/cps"
)

const barWidth = 30

var (
	titleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	cardStyle       = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder(), true).BorderForeground(lipgloss.Color("#4A4A4A")).Width(12)
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	buttonStyle     = lipgloss.NewStyle().Padding(0, 2).Border(lipgloss.RoundedBorder(), true).BorderForeground(lipgloss.Color("#C89A3A")).Foreground(lipgloss.Color("#F0F0F0"))
	disabledStyle   = buttonStyle.BorderForeground(lipgloss.Color("#3A3A3A")).Foreground(lipgloss.Color("#5A5A5A"))
	pressedStyle    = buttonStyle.BorderForeground(lipgloss.Color("#F0F0F0")).Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	barFilledStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	barPendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#3A3A3A"))
	footerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

type button int

const (
	buttonNone button = iota
	buttonStart
	buttonClick
	buttonReset
)

type rect struct {
	x, y, w, h int
}

func (r rect) contains(x, y int) bool {
	return x >= r.x && x < r.x+r.w && y >= r.y && y < r.y+r.h
}

// frame is a rendered screen plus the screen bounds of each button.
type frame struct {
	view    string
	buttons map[button]rect
}

func (f frame) hit(x, y int) button {
	for _, b := range []button{buttonStart, buttonClick, buttonReset} {
		if r, ok := f.buttons[b]; ok && r.contains(x, y) {
			return b
		}
	}
	return buttonNone
}

// View implements tea.Model.
func (m *Model) View() string {
	return m.render().view
}

func (m *Model) render() frame {
	d := m.ctrl.Display()
	segments := renderButtonSegments(d)
	buttons := lipgloss.JoinHorizontal(lipgloss.Top, segments...)
	parts := []string{
		titleStyle.Render(cps.AppTitle),
		"",
		renderCards(d),
		renderBar(d.Progress(), barWidth),
		"",
		buttons,
		"",
		footerStyle.Render(m.renderHelp()),
	}
	content := lipgloss.JoinVertical(lipgloss.Center, parts...)

	// Buttons row position inside content.
	bx := joinOffset(lipgloss.Width(content), lipgloss.Width(buttons))
	by := 0
	for _, part := range parts[:5] {
		by += lipgloss.Height(part)
	}

	var view string
	ox, oy := 0, 0
	if m.width == 0 || m.height == 0 {
		view = content
	} else {
		footer := m.renderFooter()
		bodyHeight := m.height
		if footer != "" && m.height >= 3 {
			bodyHeight = m.height - 1
		}
		view = lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
		if bodyHeight != m.height {
			view += "\n" + lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
		}
		ox = placeOffset(m.width, lipgloss.Width(content))
		oy = placeOffset(bodyHeight, lipgloss.Height(content))
	}

	bounds := make(map[button]rect, len(segments))
	x := ox + bx
	for i, seg := range segments {
		w := lipgloss.Width(seg)
		bounds[button(i+1)] = rect{x: x, y: oy + by, w: w, h: lipgloss.Height(seg)}
		x += w
	}
	return frame{view: view, buttons: bounds}
}

// joinOffset is the left padding lipgloss.JoinVertical gives a centered block.
func joinOffset(outer, inner int) int {
	gap := outer - inner
	if gap < 1 {
		return 0
	}
	return int(math.Round(float64(gap) * float64(lipgloss.Center)))
}

// placeOffset is the leading padding lipgloss.Place gives centered content.
func placeOffset(outer, inner int) int {
	gap := outer - inner
	if gap <= 0 {
		return 0
	}
	return gap - int(math.Round(float64(gap)*float64(lipgloss.Center)))
}

func renderCards(d cps.Display) string {
	return lipgloss.JoinHorizontal(lipgloss.Top,
		card("Time", d.TimeText()),
		card("Clicks", fmt.Sprintf("%d", d.Clicks)),
		card("CPS", d.RateText()),
		card("Best", d.BestText()),
	)
}

func card(label, value string) string {
	return cardStyle.Render(cardTitleStyle.Render(label) + "\n" + cardValueStyle.Render(value))
}

func renderBar(progress float64, width int) string {
	filled := int(progress * float64(width))
	filled = min(max(filled, 0), width)
	return barFilledStyle.Render(strings.Repeat("█", filled)) +
		barPendingStyle.Render(strings.Repeat("░", width-filled))
}

// renderButtonSegments returns the Start, Click and Reset buttons in order.
func renderButtonSegments(d cps.Display) []string {
	start := buttonStyle
	click := disabledStyle
	if d.Running {
		start = disabledStyle
		click = buttonStyle
		if d.Pulse {
			click = pressedStyle
		}
	}
	return []string{
		start.Render("Start"),
		click.Render("Click"),
		buttonStyle.Render("Reset"),
	}
}

func (m *Model) renderHelp() string {
	key := m.clickKey
	if key == " " {
		key = "space"
	}
	return fmt.Sprintf("Start: s/enter  Click: %s/mouse  Reset: r  Quit: q", key)
}

func (m *Model) renderFooter() string {
	segments := []string{fmt.Sprintf("Runs %d", m.runCount)}
	if m.hasLast {
		segments = append(segments, fmt.Sprintf("Last %.2f CPS", m.lastRate))
	}
	if m.runCount > 0 {
		segments = append(segments, fmt.Sprintf("Avg %.2f CPS", m.rateSum/float64(m.runCount)))
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}
