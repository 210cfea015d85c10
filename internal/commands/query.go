package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/diogo/chatstream/internal/api"
	"github.com/diogo/chatstream/internal/config"
	"github.com/diogo/chatstream/internal/history"
	"github.com/diogo/chatstream/internal/models"
	"github.com/diogo/chatstream/internal/render"
)

// Gradient colors for animation
var gradientColors = []lipgloss.Color{
	lipgloss.Color("#ff6b6b"),
	lipgloss.Color("#feca57"),
	lipgloss.Color("#48dbfb"),
	lipgloss.Color("#ff9ff3"),
	lipgloss.Color("#54a0ff"),
	lipgloss.Color("#5f27cd"),
	lipgloss.Color("#00d2d3"),
	lipgloss.Color("#1dd1a1"),
}

var (
	colorText     = lipgloss.Color("#c0caf5")
	colorTextDim  = lipgloss.Color("#565f89")
	colorTextMute = lipgloss.Color("#3b4261")
	colorSuccess  = lipgloss.Color("#9ece6a")
	colorWarning  = lipgloss.Color("#f7768e")
	colorPrimary  = lipgloss.Color("#7aa2f7")
)

var (
	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	assistantBubbleStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary).
				Foreground(colorText).
				Padding(0, 1).
				MarginBottom(1)

	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	verboseStyle = lipgloss.NewStyle().Foreground(colorTextDim)
)

// spinner handles the animated loading indicator
type spinner struct {
	out     io.Writer
	message string
	stop    chan struct{}
	done    chan struct{}
	mu      sync.Mutex
	frame   int
	stopped bool
}

func newSpinner(out io.Writer, message string) *spinner {
	return &spinner{
		out:     out,
		message: message,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (s *spinner) start() {
	go func() {
		defer close(s.done)

		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		fmt.Fprint(s.out, "\033[?25l")

		for {
			select {
			case <-s.stop:
				fmt.Fprint(s.out, "\r\033[K\033[?25h")
				return
			case <-ticker.C:
				s.mu.Lock()
				s.render()
				s.frame++
				s.mu.Unlock()
			}
		}
	}()
}

// setMessage changes the text shown next to the animation
func (s *spinner) setMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

func (s *spinner) render() {
	chars := []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}
	barChars := []string{"█", "█", "█", "█", "█", "█", "▓", "▒", "░"}

	spinColor := gradientColors[s.frame%len(gradientColors)]
	spinnerChar := lipgloss.NewStyle().Foreground(spinColor).Bold(true).Render(chars[s.frame%len(chars)])

	var bar strings.Builder
	for i := 0; i < 16; i++ {
		style := lipgloss.NewStyle().Foreground(gradientColors[(i+s.frame)%len(gradientColors)])
		bar.WriteString(style.Render(barChars[(i+s.frame/2)%len(barChars)]))
	}

	var dots strings.Builder
	numDots := (s.frame / 3) % 4
	for i := 0; i < 3; i++ {
		if i < numDots {
			dotColor := gradientColors[(s.frame+i)%len(gradientColors)]
			dots.WriteString(lipgloss.NewStyle().Foreground(dotColor).Render("●"))
		} else {
			dots.WriteString(lipgloss.NewStyle().Foreground(colorTextMute).Render("○"))
		}
	}

	msg := lipgloss.NewStyle().Foreground(colorText).Render(s.message)
	fmt.Fprintf(s.out, "\r\033[K%s %s %s %s", spinnerChar, bar.String(), msg, dots.String())
}

func (s *spinner) stopOnce() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		close(s.stop)
		s.stopped = true
	}
}

func (s *spinner) stopWithSuccess(message string) {
	s.stopOnce()
	<-s.done

	checkmark := successStyle.Bold(true).Render("✓")
	fmt.Fprintf(s.out, "%s %s\n", checkmark, successStyle.Render(message))
}

func (s *spinner) stopWithError() {
	s.stopOnce()
	<-s.done
}

// streamWriter is the one-shot Display. It writes only the new tail of the
// assistant text to out, so stdout receives the reply as it streams. When the
// text is replaced rather than extended (the fallback after a failure), the
// replacement starts on a fresh line.
type streamWriter struct {
	mu         sync.Mutex
	out        io.Writer
	printed    string
	updates    int
	onFragment func(text string)
}

func (w *streamWriter) AppendMessage(role models.Role, text string) {
	// The user turn is the command line itself; the assistant turn starts empty.
}

func (w *streamWriter) UpdateLastAssistantText(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if text == w.printed {
		return
	}
	w.updates++
	if w.onFragment != nil {
		w.onFragment(text)
	}
	if w.out == nil {
		w.printed = text
		return
	}

	if strings.HasPrefix(text, w.printed) {
		_, _ = io.WriteString(w.out, text[len(w.printed):])
	} else {
		if w.printed != "" {
			_, _ = io.WriteString(w.out, "\n")
		}
		_, _ = io.WriteString(w.out, text)
	}
	w.printed = text
}

// finish ends the streamed output with a newline
func (w *streamWriter) finish() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.out != nil && w.printed != "" && !strings.HasSuffix(w.printed, "\n") {
		_, _ = io.WriteString(w.out, "\n")
	}
}

var _ api.Display = (*streamWriter)(nil)

// runQuery sends a single prompt and prints the streamed reply.
// With rawOutput or a non-terminal stdout, fragments go straight to stdout.
// On a terminal, a spinner tracks progress and the finished reply is rendered as markdown.
func runQuery(ctx context.Context, d *Dependencies, cfg config.Config, prompt string, rawOutput bool) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return fmt.Errorf("prompt cannot be empty")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	session, err := createSession(d, cfg)
	if err != nil {
		return err
	}

	decorated := !rawOutput && d.IsTTY != nil && d.IsTTY()
	if cfg.Verbose && !rawOutput {
		fmt.Fprintln(d.Stderr, verboseStyle.Render(fmt.Sprintf("[verbose] Endpoint: %s", cfg.Endpoint)))
		fmt.Fprintln(d.Stderr, verboseStyle.Render(fmt.Sprintf("[verbose] Persona: %s  Framing: %s", personaLabel(cfg), cfg.Framing)))
	}

	writer := &streamWriter{out: d.Stdout}
	var spin *spinner
	if decorated {
		writer.out = nil
		spin = newSpinner(d.Stderr, "Waiting for reply")
		writer.onFragment = func(text string) {
			spin.setMessage(fmt.Sprintf("Streaming reply (%d chars)", len(text)))
		}
		spin.start()
	}

	startTime := time.Now()
	reply, err := session.SendMessage(ctx, prompt, writer)
	duration := time.Since(startTime)

	if spin != nil {
		if err != nil {
			spin.stopWithError()
		} else {
			spin.stopWithSuccess("Done")
		}
	}
	writer.finish()

	if cfg.Verbose && !rawOutput {
		fmt.Fprintln(d.Stderr, verboseStyle.Render(fmt.Sprintf("[verbose] Request took %s, %d updates", duration.Round(time.Millisecond), writer.updates)))
	}

	if decorated {
		printBubble(d.Stdout, cfg, reply.Content)
	}

	if err == nil && cfg.CopyToClipboard && d.Clipboard != nil {
		if cerr := d.Clipboard(reply.Content); cerr != nil {
			fmt.Fprintln(d.Stderr, warningStyle.Render(fmt.Sprintf("⚠ Failed to copy to clipboard: %v", cerr)))
		} else if !rawOutput {
			fmt.Fprintln(d.Stderr, successStyle.Render("✓ Copied to clipboard"))
		}
	}

	if outputFlag != "" {
		t := history.Transcript{
			SessionID: session.ID(),
			Persona:   personaLabel(cfg),
			Endpoint:  cfg.Endpoint,
			CreatedAt: session.CreatedAt(),
			Exported:  time.Now(),
			Messages:  session.Snapshot(),
		}
		path, werr := history.WriteFile(outputFlag, t, history.DefaultExportOptions())
		if werr != nil {
			return fmt.Errorf("failed to write output file: %w", werr)
		}
		if !rawOutput {
			fmt.Fprintln(d.Stderr, successStyle.Render(fmt.Sprintf("✓ Transcript saved to %s", path)))
		}
	}

	return err
}

// printBubble renders the finished reply the way the chat view shows it
func printBubble(out io.Writer, cfg config.Config, text string) {
	bubbleWidth := getTerminalWidth() - 4
	if bubbleWidth < 40 {
		bubbleWidth = 40
	}
	if bubbleWidth > 120 {
		bubbleWidth = 120
	}

	rendered := render.Reply(text, render.OptionsFromConfig(cfg, bubbleWidth-4))
	fmt.Fprintln(out, assistantLabelStyle.Render("✦ Assistant"))
	fmt.Fprintln(out, assistantBubbleStyle.Width(bubbleWidth).Render(rendered))
}

// getTerminalWidth returns the terminal width or a default value
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// isStdoutTTY returns true if stdout is connected to a terminal
func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
