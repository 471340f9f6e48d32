package main

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/a-h/chatstream/client"
	"github.com/a-h/chatstream/models"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

type ChatCommand struct {
	ServerURL   string `help:"The URL of the chat server." env:"CHAT_SERVER_URL" default:"http://localhost:8000"`
	ShowSources bool   `help:"Show the sources returned at the end of each response." default:"true" negatable:""`
}

// turn is one message in the conversation, as displayed and as sent back to
// the server in the history of later requests.
type turn struct {
	Sender  string
	Text    string
	Sources []string
}

func history(turns []turn) []models.HistoryTurn {
	h := make([]models.HistoryTurn, len(turns))
	for i, t := range turns {
		h[i] = models.NewHistoryTurn(t.Sender, t.Text)
	}
	return h
}

type streamer interface {
	StreamPost(ctx context.Context, req models.StreamPostRequest, f func(ctx context.Context, event models.StreamEvent) error) error
}

type conversation struct {
	client      streamer
	showSources bool
	turns       []turn
}

// send streams a reply to content, calling update with a copy of the turns
// as each event arrives. If the stream fails, the turns are left as they
// were before the call, so a partial reply is never sent as history.
func (c *conversation) send(ctx context.Context, content string, update func(ctx context.Context, turns []turn) error) (err error) {
	req := models.StreamPostRequest{
		Content: &content,
		History: history(c.turns),
	}
	before := len(c.turns)
	c.turns = append(c.turns, turn{Sender: models.SenderUser, Text: content}, turn{Sender: models.SenderBot})
	reply := &c.turns[len(c.turns)-1]

	f := func(ctx context.Context, event models.StreamEvent) error {
		if event.Content != nil {
			reply.Text += event.Content.Content
		}
		if event.Context != nil && c.showSources {
			reply.Sources = event.Context.Sources
		}
		return update(ctx, slices.Clone(c.turns))
	}
	if err = c.client.StreamPost(ctx, req, f); err != nil {
		c.turns = c.turns[:before]
		return err
	}
	return nil
}

func (c ChatCommand) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sc := client.New(c.ServerURL)

	toServer := make(chan string)
	fromServer := make(chan []turn)
	errors := make(chan error)

	go func() {
		conv := conversation{client: sc, showSources: c.ShowSources}
		update := func(ctx context.Context, turns []turn) error {
			select {
			case fromServer <- turns:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		for content := range toServer {
			if err := conv.send(ctx, content, update); err != nil {
				// Show the conversation without the failed exchange.
				_ = update(ctx, slices.Clone(conv.turns))
				select {
				case errors <- err:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	p := tea.NewProgram(newChatModel(ctx, toServer, fromServer, errors))
	if _, err = p.Run(); err != nil {
		return err
	}
	return nil
}

var (
	background = lipgloss.Color("#282a36")
	comment    = lipgloss.Color("#6272a4")
	cyan       = lipgloss.Color("#8be9fd")
	pink       = lipgloss.Color("#ff79c6")
	purple     = lipgloss.Color("#bd93f9")
	red        = lipgloss.Color("#ff5555")
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(purple).Bold(true).Padding(1)
	errorStyle   = lipgloss.NewStyle().Foreground(red).Padding(0, 1)
	sourcesStyle = lipgloss.NewStyle().Foreground(comment).Italic(true)
)

var senderToStyle = map[string]lipgloss.Style{
	models.SenderUser: lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(background).Foreground(pink),
	models.SenderBot:  lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(background).Foreground(cyan),
}

var senderToIcon = map[string]string{
	models.SenderUser: "🥷",
	models.SenderBot:  "✨",
}

func formatTurn(t turn, width int) string {
	icon, ok := senderToIcon[t.Sender]
	if !ok {
		icon = "🤷"
	}
	text := strings.TrimSpace(icon + " " + t.Text)
	if len(t.Sources) > 0 {
		text += "\n\n" + sourcesStyle.Render("Sources: "+strings.Join(t.Sources, ", "))
	}
	wrapped := wordwrap.String(text, width)
	style, ok := senderToStyle[t.Sender]
	if !ok {
		return wrapped
	}
	return style.Render(wrapped)
}

type chatModel struct {
	viewport viewport.Model
	textarea textarea.Model
	err      error
	ctx      context.Context
	width    int

	toServer   chan string
	fromServer chan []turn
	errors     chan error
}

func newChatModel(ctx context.Context, toServer chan string, fromServer chan []turn, errors chan error) chatModel {
	ta := textarea.New()
	ta.Placeholder = "Type your message..."
	ta.Focus()
	ta.Prompt = "┃ "
	ta.CharLimit = 2000
	ta.SetHeight(3)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)

	vp := viewport.New(80, 20)
	vp.SetContent(titleStyle.Render("Hello! How can I help you today?"))

	return chatModel{
		ctx:        ctx,
		textarea:   ta,
		viewport:   vp,
		width:      80,
		toServer:   toServer,
		fromServer: fromServer,
		errors:     errors,
	}
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.waitForTurns(),
		m.waitForErrors(),
	)
}

func (m chatModel) waitForTurns() tea.Cmd {
	return func() tea.Msg {
		select {
		case turns := <-m.fromServer:
			return turns
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m chatModel) waitForErrors() tea.Cmd {
	return func() tea.Msg {
		select {
		case err := <-m.errors:
			return err
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m chatModel) send(content string) tea.Cmd {
	return func() tea.Msg {
		select {
		case m.toServer <- content:
		case <-m.ctx.Done():
		}
		return nil
	}
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case error:
		m.err = msg
		return m, m.waitForErrors()
	case []turn:
		m.err = nil
		var sb strings.Builder
		for _, t := range msg {
			sb.WriteString(formatTurn(t, m.width-4))
			sb.WriteString("\n")
		}
		m.viewport.SetContent(sb.String())
		m.viewport.GotoBottom()
		return m, m.waitForTurns()
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - m.textarea.Height() - 3
		m.textarea.SetWidth(msg.Width)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			return m, tea.Quit
		case "enter":
			v := strings.TrimSpace(m.textarea.Value())
			if v == "" {
				return m, nil
			}
			m.textarea.Reset()
			return m, m.send(v)
		default:
			var cmd tea.Cmd
			m.textarea, cmd = m.textarea.Update(msg)
			return m, cmd
		}
	case cursor.BlinkMsg:
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		return m, cmd
	default:
		return m, nil
	}
}

func (m chatModel) View() string {
	view := fmt.Sprintf("%s\n\n%s", m.viewport.View(), m.textarea.View())
	if m.err != nil {
		view += "\n" + errorStyle.Render(m.err.Error())
	}
	return view + "\n\n"
}
