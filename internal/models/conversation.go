package models

import (
	"fmt"
	"sync"

	apierrors "github.com/diogo/chatstream/internal/errors"
)

// Conversation is the ordered, append-only message history of one session.
// The first message is always the system instruction.
type Conversation struct {
	mu       sync.RWMutex
	messages []Message
}

// NewConversation creates a conversation seeded with the system instruction
func NewConversation(systemPrompt string) *Conversation {
	return &Conversation{
		messages: []Message{NewMessage(RoleSystem, systemPrompt)},
	}
}

// Append adds a message to the end of the conversation.
// Only user and assistant messages may be appended.
func (c *Conversation) Append(msg Message) error {
	if !msg.Role.Valid() {
		return fmt.Errorf("cannot append message: unknown role %q", msg.Role)
	}
	if msg.Role == RoleSystem {
		return apierrors.ErrSystemMessage
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	return nil
}

// Snapshot returns a copy of the full ordered sequence
func (c *Conversation) Snapshot() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]Message, len(c.messages))
	copy(result, c.messages)
	return result
}

// Len returns the number of messages, system instruction included
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// System returns the system instruction
func (c *Conversation) System() Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.messages[0]
}

// Last returns the most recent message
func (c *Conversation) Last() (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// LastAssistant returns the most recent assistant message, if any
func (c *Conversation) LastAssistant() (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := len(c.messages) - 1; i > 0; i-- {
		if c.messages[i].Role == RoleAssistant {
			return c.messages[i], true
		}
	}
	return Message{}, false
}

// Turns returns the number of user messages in the conversation
func (c *Conversation) Turns() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, m := range c.messages {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}
