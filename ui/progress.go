package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/franksops/goship/engine"
)

// ProgressMsg carries a fresh engine snapshot into the TUI.
type ProgressMsg engine.Progress

// DoneMsg tells the TUI the sync finished. Err is nil on success.
type DoneMsg struct {
	Err error
}

// Model renders a single sync run: one global bar plus counters.
type Model struct {
	snapshot engine.Progress
	started  time.Time
	done     bool
	err      error

	spinner  spinner.Model
	progress progress.Model
	width    int

	titleStyle   lipgloss.Style
	infoStyle    lipgloss.Style
	errorStyle   lipgloss.Style
	successStyle lipgloss.Style
}

func NewModel() Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	prog := progress.New(progress.WithDefaultGradient())

	return Model{
		started:      time.Now(),
		spinner:      s,
		progress:     prog,
		titleStyle:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1),
		infoStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		errorStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		successStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = msg.Width - 14

	case ProgressMsg:
		m.snapshot = engine.Progress(msg)
		return m, nil

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sb strings.Builder

	header := fmt.Sprintf("%s Goship %s", m.spinner.View(), m.titleStyle.Render("Deployment Sync"))
	sb.WriteString(header + "\n")

	var percent float64
	if m.snapshot.TotalBytes > 0 {
		percent = float64(m.snapshot.BytesDone) / float64(m.snapshot.TotalBytes)
	}

	elapsed := time.Since(m.started)
	var bytesPerSec float64
	if elapsed > 0 {
		bytesPerSec = float64(m.snapshot.BytesDone) / elapsed.Seconds()
	}

	info := fmt.Sprintf("ETA: %s | Files: %d/%d | %s / %s | %s",
		formatETA(percent, bytesPerSec, m.snapshot.TotalBytes, m.snapshot.BytesDone),
		m.snapshot.FilesDone, m.snapshot.TotalFiles,
		formatBytes(m.snapshot.BytesDone), formatBytes(m.snapshot.TotalBytes),
		formatSpeed(bytesPerSec))

	sb.WriteString(m.infoStyle.Render(info) + "\n")
	sb.WriteString(m.progress.ViewAs(percent) + "\n")

	if m.done {
		if m.err != nil {
			sb.WriteString("\n" + m.errorStyle.Render("Sync failed: "+m.err.Error()))
		} else {
			sb.WriteString("\n" + m.successStyle.Render("Sync Complete!"))
		}
	}

	return sb.String()
}

func formatBytes(n int64) string {
	switch {
	case n >= 1024*1024*1024:
		return fmt.Sprintf("%.2f GB", float64(n)/(1024*1024*1024))
	case n >= 1024*1024:
		return fmt.Sprintf("%.2f MB", float64(n)/(1024*1024))
	case n >= 1024:
		return fmt.Sprintf("%.2f KB", float64(n)/1024)
	}
	return fmt.Sprintf("%d B", n)
}

func formatSpeed(bytesPerSec float64) string {
	if bytesPerSec >= 1024*1024*1024 {
		return fmt.Sprintf("%.2f GB/s", bytesPerSec/(1024*1024*1024))
	} else if bytesPerSec >= 1024*1024 {
		return fmt.Sprintf("%.2f MB/s", bytesPerSec/(1024*1024))
	} else if bytesPerSec >= 1024 {
		return fmt.Sprintf("%.2f KB/s", bytesPerSec/1024)
	}
	return fmt.Sprintf("%.0f B/s", bytesPerSec)
}

func formatETA(progress float64, bytesPerSec float64, totalBytes, completedBytes int64) string {
	if progress == 0 || bytesPerSec <= 0 || totalBytes == 0 {
		return "Calculating..."
	}

	remainingBytes := totalBytes - completedBytes
	if remainingBytes <= 0 {
		return "0s"
	}

	remainingSec := float64(remainingBytes) / bytesPerSec
	d := time.Duration(remainingSec * float64(time.Second))

	if d.Hours() > 24 {
		return "> 1d"
	}

	return d.Round(time.Second).String()
}
