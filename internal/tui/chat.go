// Package tui provides the interactive chat surface for the decision engine.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ridgelinebank/teller/internal/engine"
	"github.com/ridgelinebank/teller/internal/model"
)

// Config holds everything the chat surface needs to run.
type Config struct {
	Engine    *engine.DecisionEngine
	SessionID string
	Width     int
	Height    int
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Engine == nil {
		return fmt.Errorf("engine is required")
	}
	if strings.TrimSpace(c.SessionID) == "" {
		return fmt.Errorf("session ID is required")
	}
	return nil
}

type turnResponseMsg struct {
	resp *model.TurnResponse
}

type turnErrorMsg struct {
	err error
}

// Model is the bubbletea model for the chat surface.
type Model struct {
	ctx      context.Context
	config   Config
	viewport viewport.Model
	input    textinput.Model
	lines    []string
	waiting  bool
	quitting bool
	ready    bool
	width    int
	height   int
}

// NewModel creates the chat model.
func NewModel(ctx context.Context, cfg Config) Model {
	input := textinput.New()
	input.Placeholder = "Type a request, e.g. \"send $50 to David\""
	input.Prompt = "> "
	input.CharLimit = 500
	input.Focus()

	return Model{
		ctx:    ctx,
		config: cfg,
		input:  input,
		width:  cfg.Width,
		height: cfg.Height,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tea.EnterAltScreen, textinput.Blink)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.waiting {
				return m, nil
			}
			m.appendLine(userStyle.Render("you") + "  " + text)
			m.input.Reset()
			m.waiting = true
			return m, m.sendTurn(text)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.handleResize()
		m.ready = true

	case turnResponseMsg:
		m.waiting = false
		m.appendLine(tellerStyle.Render("teller") + "  " + RenderResponse(msg.resp))

	case turnErrorMsg:
		m.waiting = false
		m.appendLine(errorStyle.Render("error") + "  " + msg.err.Error())
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Connecting..."
	}

	status := ""
	if m.waiting {
		status = statusStyle.Render("thinking...")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render(fmt.Sprintf("teller - session %s", m.config.SessionID)),
		m.viewport.View(),
		status,
		m.input.View(),
	)
}

func (m *Model) handleResize() {
	inputRows := 3
	m.viewport = viewport.New(m.width, m.height-inputRows)
	m.viewport.SetContent(strings.Join(m.lines, "\n\n"))
	m.viewport.GotoBottom()
	m.input.Width = m.width - 4
}

func (m *Model) appendLine(line string) {
	m.lines = append(m.lines, line)
	m.viewport.SetContent(strings.Join(m.lines, "\n\n"))
	m.viewport.GotoBottom()
}

func (m Model) sendTurn(text string) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.config.Engine.ProcessTurn(m.ctx, m.config.SessionID, text)
		if err != nil {
			return turnErrorMsg{err: err}
		}
		return turnResponseMsg{resp: resp}
	}
}

// RenderResponse formats a turn response for display: the engine's message
// plus whatever the outcome calls for (numbered options, missing fields, the
// execution reference).
func RenderResponse(resp *model.TurnResponse) string {
	if resp == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(resp.Message)

	if len(resp.MissingFields) > 0 {
		fields := make([]string, 0, len(resp.MissingFields))
		for _, f := range resp.MissingFields {
			fields = append(fields, string(f))
		}
		b.WriteString("\n")
		b.WriteString(statusStyle.Render("still needed: " + strings.Join(fields, ", ")))
	}

	if len(resp.DisambiguationOptions) > 0 {
		for _, opt := range resp.DisambiguationOptions {
			b.WriteString("\n")
			b.WriteString(optionStyle.Render(fmt.Sprintf("  %d. %s", opt.Index+1, opt.Label)))
		}
	}

	switch resp.Outcome {
	case model.OutcomeExecuted:
		if resp.ExecutionRef != "" {
			b.WriteString("\n")
			b.WriteString(refStyle.Render("reference: " + resp.ExecutionRef))
		}
	case model.OutcomeRejected, model.OutcomeFailed:
		b.WriteString("\n")
		b.WriteString(outcomeStyle.Render(string(resp.Outcome)))
	}

	if resp.UIHint != "" {
		b.WriteString("\n")
		b.WriteString(refStyle.Render("[" + resp.UIHint + "]"))
	}

	return b.String()
}
