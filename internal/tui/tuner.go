// SPDX-License-Identifier: MIT

// Package tui holds the terminal front ends: the tuner display and the
// input device picker.
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	applog "tuner/internal/log"
	"tuner/internal/tuning"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// GaugeWidth is the number of cells in the needle gauge. It is odd so that
// the centre cell marks zero.
const GaugeWidth = 41

var (
	noteStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 2)

	inTuneStyle = noteStyle.
			Foreground(lipgloss.Color("#25A065"))

	sideNoteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676")).
			Padding(0, 2)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))
)

// Poller is the part of the tuner the display needs.
type Poller interface {
	Poll() (tuning.Reading, bool)
	SetA4(hz float64) error
	A4() float64
	Done() <-chan struct{}
}

type tickMsg time.Time

// TunerModel is the Bubble Tea model for the tuner display. It polls once
// per frame; between readings the last one stays on screen.
type TunerModel struct {
	tuner  Poller
	period time.Duration

	reading tuning.Reading
	has     bool
	flash   int // frames left to highlight a sustained in-tune run
	ended   bool
	width   int
}

// NewTunerModel returns a model ticking at fps frames per second.
func NewTunerModel(t Poller, fps int) TunerModel {
	if fps < 1 {
		fps = 1
	}
	return TunerModel{tuner: t, period: time.Second / time.Duration(fps)}
}

func (m TunerModel) tick() tea.Cmd {
	return tea.Tick(m.period, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init starts the frame ticker.
func (m TunerModel) Init() tea.Cmd {
	return m.tick()
}

func (m TunerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tickMsg:
		if r, ok := m.tuner.Poll(); ok {
			m.reading, m.has = r, true
			if r.Sustained {
				m.flash = int(time.Second / m.period)
			}
		}
		if m.flash > 0 {
			m.flash--
		}

		select {
		case <-m.tuner.Done():
			m.ended = true
			return m, tea.Quit
		default:
		}
		return m, m.tick()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"))):
			return m, tea.Quit

		case key.Matches(msg, key.NewBinding(key.WithKeys("+", "="))):
			m.adjustA4(1)

		case key.Matches(msg, key.NewBinding(key.WithKeys("-", "_"))):
			m.adjustA4(-1)
		}
	}

	return m, nil
}

func (m TunerModel) adjustA4(delta float64) {
	if err := m.tuner.SetA4(m.tuner.A4() + delta); err != nil {
		applog.Warnf("A4 not changed: %v", err)
	}
}

// Reading returns the reading on display.
func (m TunerModel) Reading() (tuning.Reading, bool) {
	return m.reading, m.has
}

// Ended reports whether the display stopped because acquisition ended.
func (m TunerModel) Ended() bool { return m.ended }

// View renders the UI
func (m TunerModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Tuner"))
	fmt.Fprintf(&sb, "  A4 = %.0f Hz\n\n", m.tuner.A4())

	if !m.has {
		sb.WriteString(dimStyle.Render("Listening..."))
		sb.WriteString("\n\n")
	} else {
		r := m.reading
		current := noteStyle
		if r.InTune {
			current = inTuneStyle
		}
		if m.flash > 0 {
			current = current.Reverse(true)
		}

		sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Center,
			sideNoteStyle.Render(r.NoteNameLower),
			current.Render(fmt.Sprintf("%s%d", r.NoteName, r.Octave)),
			sideNoteStyle.Render(r.NoteNameHigher),
		))
		sb.WriteString("\n\n")
		sb.WriteString(RenderGauge(r.NeedleAngle, GaugeWidth))
		sb.WriteString("\n\n")
		fmt.Fprintf(&sb, "%s   %.2f Hz\n\n", r.CentsText, r.Frequency)
	}

	if m.ended {
		sb.WriteString(dimStyle.Render("End of input."))
		sb.WriteString("\n")
	}
	sb.WriteString(infoStyle.Render("+/-: A4 ±1 Hz • q: Quit"))

	return sb.String()
}

// RenderGauge draws the needle at angle degrees (-90 flat to +90 sharp) on a
// scale width cells wide, with the centre marked.
func RenderGauge(angle float64, width int) string {
	if width < 3 {
		width = 3
	}
	center := width / 2

	pos := center
	if !math.IsNaN(angle) {
		clamped := max(-90, min(90, angle))
		pos = int(math.Round((clamped + 90) / 180 * float64(width-1)))
	}

	cells := []rune(strings.Repeat("─", width))
	cells[center] = '┼'
	cells[pos] = '█'

	return "♭ " + string(cells) + " ♯"
}
