// Package shell provides the host primitives the dispatcher needs for
// name-clip: a name prompt and a foreground request. The agent runs in a
// terminal, so both are terminal based.
package shell

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/clipmarker/clipmarker-agent/internal/logging"
)

const maxNameInput = 100

var (
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7C3AED")).
			Bold(true)

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

// IsTTY reports whether stdin and stdout are both terminals.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// TerminalPrompter reads a clip name with an inline text input.
type TerminalPrompter struct {
	in     io.Reader
	out    io.Writer
	isTTY  func() bool
	logger *slog.Logger
}

func NewTerminalPrompter(logger *slog.Logger) *TerminalPrompter {
	if logger == nil {
		logger = logging.Discard()
	}
	return &TerminalPrompter{
		in:     os.Stdin,
		out:    os.Stdout,
		isTTY:  IsTTY,
		logger: logging.WithComponent(logger, "prompt"),
	}
}

// PromptName returns the typed name. Without a terminal, or when the user
// presses Esc, it returns "" so the clip gets the generated name.
func (p *TerminalPrompter) PromptName(ctx context.Context) (string, error) {
	if !p.isTTY() {
		p.logger.Debug("no terminal, skipping name prompt")
		return "", nil
	}

	prog := tea.NewProgram(newNameModel(),
		tea.WithContext(ctx),
		tea.WithInput(p.in),
		tea.WithOutput(p.out))

	final, err := prog.Run()
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if err != nil {
		return "", fmt.Errorf("name prompt: %w", err)
	}

	m, ok := final.(nameModel)
	if !ok || m.cancelled {
		return "", nil
	}
	return m.Value(), nil
}

type nameModel struct {
	input     textinput.Model
	done      bool
	cancelled bool
}

func newNameModel() nameModel {
	ti := textinput.New()
	ti.Placeholder = "leave empty for the generated name"
	ti.CharLimit = maxNameInput
	ti.Width = 48
	ti.Focus()
	return nameModel{input: ti}
}

func (m nameModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m nameModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlC:
			m.cancelled = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m nameModel) View() string {
	if m.done || m.cancelled {
		return ""
	}
	var b strings.Builder
	b.WriteString(labelStyle.Render("Clip name"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("enter to add · esc to skip"))
	b.WriteString("\n")
	return b.String()
}

// Value returns the trimmed input.
func (m nameModel) Value() string {
	return strings.TrimSpace(m.input.Value())
}

// Bell asks for attention by ringing the terminal bell. It is the closest
// a terminal agent gets to raising its window.
type Bell struct {
	out    io.Writer
	logger *slog.Logger
}

func NewBell(logger *slog.Logger) *Bell {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Bell{out: os.Stdout, logger: logging.WithComponent(logger, "shell")}
}

func (b *Bell) Foreground() error {
	if _, err := io.WriteString(b.out, "\a"); err != nil {
		return fmt.Errorf("ring bell: %w", err)
	}
	b.logger.Debug("foreground requested")
	return nil
}
