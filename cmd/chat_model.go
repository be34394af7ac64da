package cmd

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"chainchat/internal/adapters/render/transcript"
	"chainchat/internal/domain"
)

type chatSendDoneMsg struct {
	err error
}

type chatFeedbackDoneMsg struct{}

type chatModel struct {
	app     *app
	input   textinput.Model
	spinner spinner.Model
	pending bool
	status  string
	help    lipgloss.Style
	errText lipgloss.Style
}

func newChatModel(app *app) chatModel {
	input := textinput.New()
	input.Placeholder = "Type a message, or /help"
	input.Prompt = "> "
	input.CharLimit = 2000
	input.Focus()

	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return chatModel{
		app:     app,
		input:   input,
		spinner: s,
		help:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		errText: lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	}
}

func (m chatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		}
	case spinner.TickMsg:
		if !m.pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case chatSendDoneMsg:
		m.pending = false
		if msg.err != nil {
			m.status = msg.err.Error()
		}
		return m, nil
	case chatFeedbackDoneMsg:
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m chatModel) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	if line == "" {
		return m, nil
	}

	m.input.Reset()
	m.status = ""

	if strings.HasPrefix(line, "/") {
		return m.runSlashCommand(line)
	}

	if m.pending {
		m.status = "still waiting for the previous reply"
		return m, nil
	}

	m.pending = true
	send := func() tea.Msg {
		_, err := m.app.conversation.SendMessage(context.Background(), line)
		return chatSendDoneMsg{err: err}
	}

	return m, tea.Batch(m.spinner.Tick, send)
}

func (m chatModel) runSlashCommand(line string) (tea.Model, tea.Cmd) {
	switch line {
	case "/quit", "/exit":
		return m, tea.Quit
	case "/clear":
		m.app.conversation.Clear()
		return m, nil
	case "/like":
		return m.sendFeedback(domain.FeedbackLike)
	case "/dislike":
		return m.sendFeedback(domain.FeedbackDislike)
	case "/help":
		m.status = "commands: /like /dislike /clear /quit"
		return m, nil
	default:
		m.status = "unknown command: " + line
		return m, nil
	}
}

// sendFeedback rates the most recent assistant reply.
func (m chatModel) sendFeedback(feedback domain.FeedbackType) (tea.Model, tea.Cmd) {
	target := lastAssistantMessageID(m.app.conversation.Snapshot().Messages)
	if target == "" {
		m.status = "nothing to rate yet"
		return m, nil
	}

	rate := func() tea.Msg {
		_ = m.app.conversation.SendFeedback(context.Background(), target, feedback)
		return chatFeedbackDoneMsg{}
	}

	return m, rate
}

func lastAssistantMessageID(messages []domain.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Sender == domain.SenderAssistant && !messages[i].IsError {
			return messages[i].ID
		}
	}
	return ""
}

func (m chatModel) View() string {
	sections := []string{
		transcript.Render(m.app.conversation.Snapshot(), m.app.wallet.Snapshot()),
	}

	if m.status != "" {
		sections = append(sections, m.errText.Render(m.status))
	}

	inputLine := m.input.View()
	if m.pending {
		inputLine = m.spinner.View() + " " + inputLine
	}
	sections = append(sections, inputLine)
	sections = append(sections, m.help.Render("enter to send, /like or /dislike to rate, esc to quit"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}
