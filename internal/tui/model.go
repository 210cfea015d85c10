package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/chatstream/internal/api"
	apierrors "github.com/diogo/chatstream/internal/errors"
	"github.com/diogo/chatstream/internal/history"
	"github.com/diogo/chatstream/internal/models"
	"github.com/diogo/chatstream/internal/render"
)

// eventBuffer is how many display events a turn may queue ahead of the UI
const eventBuffer = 64

type animationTickMsg time.Time

// Display events sent from the turn goroutine to the UI loop
type (
	appendMessageMsg struct {
		role models.Role
		text string
	}
	updateAssistantMsg struct {
		text string
	}
	turnDoneMsg struct {
		reply models.Message
		err   error
	}
	noticeMsg struct {
		text string
		err  error
	}
)

// ChatSession is the part of api.Session the chat view drives
type ChatSession interface {
	SendMessage(ctx context.Context, text string, display api.Display) (models.Message, error)
	ID() string
	CreatedAt() time.Time
	Snapshot() []models.Message
	InFlight() bool
}

var _ ChatSession = (*api.Session)(nil)

// Options configures the chat view
type Options struct {
	// Persona is shown in the header and written to exported transcripts.
	Persona  string
	Endpoint string
	Render   render.Options
	// CopyReplies copies each completed reply to the clipboard.
	CopyReplies bool
	// CopyFunc replaces the system clipboard, mainly for tests.
	CopyFunc func(string) error
}

// Model represents the TUI state
type Model struct {
	session ChatSession
	opts    Options

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	messages       []chatMessage
	loading        bool
	canceling      bool
	ready          bool
	err            error
	notice         string
	animationFrame int

	events chan tea.Msg
	cancel context.CancelFunc

	width  int
	height int
}

// chatMessage is one visible turn. rendered caches the markdown output for width.
type chatMessage struct {
	role     models.Role
	content  string
	rendered string
	width    int
}

// channelDisplay forwards display calls to the UI loop. Once ctx ends, an
// event that does not fit in the buffer is dropped; turnDoneMsg carries the
// final text.
type channelDisplay struct {
	ctx    context.Context
	events chan<- tea.Msg
}

func (d channelDisplay) AppendMessage(role models.Role, text string) {
	d.send(appendMessageMsg{role: role, text: text})
}

func (d channelDisplay) UpdateLastAssistantText(text string) {
	d.send(updateAssistantMsg{text: text})
}

func (d channelDisplay) send(msg tea.Msg) {
	select {
	case d.events <- msg:
		return
	default:
	}
	select {
	case d.events <- msg:
	case <-d.ctx.Done():
	}
}

// NewChatModel creates a new chat TUI model
func NewChatModel(session ChatSession, opts Options) Model {
	if opts.CopyFunc == nil {
		opts.CopyFunc = clipboard.WriteAll
	}
	if opts.Render.Style == "" {
		opts.Render = render.DefaultOptions()
	}

	ta := textarea.New()
	ta.Placeholder = "Type your message here..."
	ta.CharLimit = 8000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.Focus()

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(palette.Text)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(palette.TextDim)
	ta.BlurredStyle = ta.FocusedStyle

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	return Model{
		session:  session,
		opts:     opts,
		textarea: ta,
		spinner:  s,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
	)
}

func animationTick() tea.Cmd {
	return tea.Tick(time.Millisecond*80, func(t time.Time) tea.Msg {
		return animationTickMsg(t)
	})
}

// waitForEvent blocks until the running turn emits its next event
func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return nil
		}
		return msg
	}
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 4
		inputHeight := 6
		statusHeight := 1
		padding := 2

		vpHeight := m.height - headerHeight - inputHeight - statusHeight - padding
		if vpHeight < 5 {
			vpHeight = 5
		}
		contentWidth := m.width - 4

		if !m.ready {
			m.viewport = viewport.New(contentWidth, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = contentWidth
			m.viewport.Height = vpHeight
		}
		m.textarea.SetWidth(contentWidth - 4)
		m.updateViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit

		case "esc":
			if !m.loading {
				return m, tea.Quit
			}
			if m.cancel != nil && !m.canceling {
				m.canceling = true
				m.cancel()
			}
			return m, nil

		case "enter":
			if m.loading {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				m.textarea.Reset()
				return m, nil
			}
			if handled, next, cmd := m.handleCommand(input); handled {
				return next, cmd
			}
			return m.startTurn(input)
		}

	case appendMessageMsg:
		m.messages = append(m.messages, chatMessage{role: msg.role, content: msg.text})
		m.updateViewport()
		m.viewport.GotoBottom()
		return m, waitForEvent(m.events)

	case updateAssistantMsg:
		m.setLastAssistant(msg.text)
		m.updateViewport()
		m.viewport.GotoBottom()
		return m, waitForEvent(m.events)

	case turnDoneMsg:
		m.loading = false
		m.canceling = false
		m.events = nil
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		if msg.reply.Content != "" {
			m.setLastAssistant(msg.reply.Content)
		}
		m.updateViewport()
		m.viewport.GotoBottom()

		switch {
		case msg.err == nil:
			m.err = nil
			if m.opts.CopyReplies {
				cmds = append(cmds, m.copyCmd(msg.reply.Content))
			}
		case apierrors.IsCanceled(msg.err):
			m.err = nil
			m.notice = "Request canceled"
		default:
			m.err = msg.err
		}
		m.textarea.Focus()

	case noticeMsg:
		if msg.err != nil {
			m.err = msg.err
			m.notice = ""
		} else {
			m.notice = msg.text
		}

	case spinner.TickMsg:
		if m.loading {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case animationTickMsg:
		if m.loading {
			m.animationFrame++
			cmds = append(cmds, animationTick())
		}
	}

	// Only keys reach the textarea, and only while idle
	if !m.loading {
		if _, ok := msg.(tea.KeyMsg); ok {
			m.textarea, cmd = m.textarea.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// startTurn runs SendMessage in a goroutine and starts draining its events
func (m Model) startTurn(input string) (tea.Model, tea.Cmd) {
	if m.session.InFlight() {
		return m, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan tea.Msg, eventBuffer)
	session := m.session

	m.loading = true
	m.err = nil
	m.notice = ""
	m.animationFrame = 0
	m.cancel = cancel
	m.events = events
	m.textarea.Reset()
	m.textarea.Blur()

	go func() {
		reply, err := session.SendMessage(ctx, input, channelDisplay{ctx: ctx, events: events})
		events <- turnDoneMsg{reply: reply, err: err}
		close(events)
	}()

	return m, tea.Batch(
		waitForEvent(events),
		m.spinner.Tick,
		animationTick(),
	)
}

// handleCommand runs slash commands typed into the input
func (m Model) handleCommand(input string) (bool, tea.Model, tea.Cmd) {
	fields := strings.Fields(input)
	switch strings.ToLower(fields[0]) {
	case "exit", "quit", "/exit", "/quit":
		return true, m, tea.Quit

	case "/save":
		path := ""
		if len(fields) > 1 {
			path = strings.Join(fields[1:], " ")
		}
		m.textarea.Reset()
		return true, m, m.saveCmd(path)

	case "/copy":
		m.textarea.Reset()
		reply, ok := m.lastAssistant()
		if !ok {
			m.notice = "Nothing to copy yet"
			return true, m, nil
		}
		return true, m, m.copyCmd(reply)

	case "/help":
		m.textarea.Reset()
		m.notice = "/save [path]  export transcript  •  /copy  copy last reply  •  exit  quit"
		return true, m, nil
	}
	return false, m, nil
}

func (m Model) transcript() history.Transcript {
	return history.Transcript{
		SessionID: m.session.ID(),
		Persona:   m.opts.Persona,
		Endpoint:  m.opts.Endpoint,
		CreatedAt: m.session.CreatedAt(),
		Exported:  time.Now(),
		Messages:  m.session.Snapshot(),
	}
}

func (m Model) saveCmd(path string) tea.Cmd {
	t := m.transcript()
	return func() tea.Msg {
		written, err := history.WriteFile(path, t, history.DefaultExportOptions())
		if err != nil {
			return noticeMsg{err: err}
		}
		return noticeMsg{text: "Transcript saved to " + written}
	}
}

func (m Model) copyCmd(text string) tea.Cmd {
	copyFn := m.opts.CopyFunc
	return func() tea.Msg {
		if err := copyFn(text); err != nil {
			return noticeMsg{err: fmt.Errorf("copy to clipboard: %w", err)}
		}
		return noticeMsg{text: "Reply copied to clipboard"}
	}
}

func (m *Model) setLastAssistant(text string) {
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].role == models.RoleAssistant {
			if m.messages[i].content != text {
				m.messages[i].content = text
				m.messages[i].rendered = ""
			}
			return
		}
	}
}

func (m Model) lastAssistant() (string, bool) {
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].role == models.RoleAssistant && m.messages[i].content != "" {
			return m.messages[i].content, true
		}
	}
	return "", false
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	var sections []string
	contentWidth := m.width - 4

	headerParts := []string{titleStyle.Render("✦ chatstream")}
	if m.opts.Persona != "" {
		headerParts = append(headerParts, hintStyle.Render("  •  "), subtitleStyle.Render(m.opts.Persona))
	}
	if m.opts.Endpoint != "" {
		headerParts = append(headerParts, hintStyle.Render("  •  "), hintStyle.Render(m.opts.Endpoint))
	}
	headerContent := lipgloss.JoinHorizontal(lipgloss.Center, headerParts...)
	sections = append(sections, headerStyle.Width(contentWidth).Render(headerContent))

	messagesContent := m.viewport.View()
	if len(m.messages) == 0 {
		messagesContent = m.renderWelcome()
	}
	sections = append(sections, messagesAreaStyle.
		Width(contentWidth).
		Height(m.viewport.Height).
		Render(messagesContent))

	var inputContent string
	if m.loading {
		inputContent = m.renderLoadingAnimation()
	} else {
		inputContent = lipgloss.JoinVertical(
			lipgloss.Left,
			inputLabelStyle.Render("You"),
			m.textarea.View(),
		)
	}
	sections = append(sections, inputPanelStyle.Width(contentWidth).Render(inputContent))

	sections = append(sections, m.renderStatusBar(contentWidth))

	if m.err != nil {
		sections = append(sections, FormatError(m.err))
	} else if m.notice != "" {
		sections = append(sections, noticeStyle.Render(m.notice))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderWelcome() string {
	width := m.viewport.Width - 4
	height := m.viewport.Height

	title := welcomeTitleStyle.Width(width).Render("✦ chatstream")
	subtitle := welcomeStyle.Width(width).Render("Start a conversation by typing a message below")

	content := lipgloss.JoinVertical(lipgloss.Center, "", title, "", subtitle, "")

	topPadding := (height - lipgloss.Height(content)) / 2
	if topPadding < 0 {
		topPadding = 0
	}
	return strings.Repeat("\n", topPadding) + content
}

func (m Model) renderLoadingAnimation() string {
	chars := []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}
	barChars := []string{"█", "█", "█", "█", "▓", "▒", "░"}

	frame := m.animationFrame
	spin := lipgloss.NewStyle().
		Foreground(gradientColors[frame%len(gradientColors)]).
		Bold(true).
		Render(chars[frame%len(chars)])

	var bar strings.Builder
	for i := 0; i < 16; i++ {
		style := lipgloss.NewStyle().Foreground(gradientColors[(i+frame)%len(gradientColors)])
		bar.WriteString(style.Render(barChars[(i+frame/2)%len(barChars)]))
	}

	label := " Streaming reply "
	if m.canceling {
		label = " Canceling "
	}
	text := lipgloss.NewStyle().Foreground(palette.Text).Render(label)
	hint := statusDescStyle.Render("(Esc to cancel)")

	return fmt.Sprintf("%s %s %s %s", spin, bar.String(), text, hint)
}

func (m Model) renderStatusBar(width int) string {
	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Enter", "Send"},
		{"Esc", "Cancel/Quit"},
		{"/save", "Export"},
		{"/copy", "Copy"},
		{"↑↓", "Scroll"},
	}

	var items []string
	for _, s := range shortcuts {
		items = append(items, statusKeyStyle.Render(s.key)+statusDescStyle.Render(" "+s.desc))
	}
	return statusBarStyle.Width(width).Align(lipgloss.Center).Render(strings.Join(items, "  │  "))
}

// updateViewport refreshes the viewport content with styled messages
func (m *Model) updateViewport() {
	var content strings.Builder
	bubbleWidth := m.viewport.Width - 6
	if bubbleWidth < 10 {
		bubbleWidth = 10
	}

	for i := range m.messages {
		msg := &m.messages[i]
		if i > 0 {
			content.WriteString("\n")
		}

		switch msg.role {
		case models.RoleUser:
			content.WriteString(userLabelStyle.Render("⬤ You"))
			content.WriteString("\n")
			content.WriteString(userBubbleStyle.Width(bubbleWidth).Render(msg.content))
		default:
			content.WriteString(assistantLabelStyle.Render("✦ Assistant"))
			content.WriteString("\n")
			if msg.rendered == "" || msg.width != bubbleWidth {
				msg.rendered = render.Reply(msg.content, m.opts.Render.WithWidth(bubbleWidth-4))
				msg.width = bubbleWidth
			}
			body := msg.rendered
			if body == "" {
				body = spinnerPlaceholder(m)
			}
			content.WriteString(assistantBubbleStyle.Width(bubbleWidth).Render(body))
		}
		content.WriteString("\n")
	}

	m.viewport.SetContent(content.String())
}

func spinnerPlaceholder(m *Model) string {
	if m.loading {
		return m.spinner.View()
	}
	return ""
}

// RunChat starts the chat TUI and blocks until it exits
func RunChat(session ChatSession, opts Options) error {
	p := tea.NewProgram(
		NewChatModel(session, opts),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
