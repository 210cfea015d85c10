package api

import (
	"sync"

	"github.com/diogo/chatstream/internal/models"
)

// Display is the surface a turn is rendered on
type Display interface {
	// AppendMessage creates a new visible turn.
	AppendMessage(role models.Role, text string)
	// UpdateLastAssistantText replaces the text of the most recent assistant turn.
	UpdateLastAssistantText(text string)
}

// NopDisplay discards all updates
type NopDisplay struct{}

func (NopDisplay) AppendMessage(models.Role, string) {}
func (NopDisplay) UpdateLastAssistantText(string)    {}

// DisplayFuncs adapts a pair of functions to Display. Nil funcs are skipped.
type DisplayFuncs struct {
	Append func(role models.Role, text string)
	Update func(text string)
}

func (d DisplayFuncs) AppendMessage(role models.Role, text string) {
	if d.Append != nil {
		d.Append(role, text)
	}
}

func (d DisplayFuncs) UpdateLastAssistantText(text string) {
	if d.Update != nil {
		d.Update(text)
	}
}

// MemoryDisplay keeps the visible turns in memory
type MemoryDisplay struct {
	mu      sync.Mutex
	turns   []models.Message
	updates int
}

func (d *MemoryDisplay) AppendMessage(role models.Role, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.turns = append(d.turns, models.NewMessage(role, text))
}

func (d *MemoryDisplay) UpdateLastAssistantText(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.updates++
	for i := len(d.turns) - 1; i >= 0; i-- {
		if d.turns[i].Role == models.RoleAssistant {
			d.turns[i].Content = text
			return
		}
	}
}

// Turns returns a copy of the visible turns
func (d *MemoryDisplay) Turns() []models.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.Message, len(d.turns))
	copy(out, d.turns)
	return out
}

// Updates returns how many times UpdateLastAssistantText was called
func (d *MemoryDisplay) Updates() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.updates
}
