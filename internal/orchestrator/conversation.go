package orchestrator

import (
	"github.com/google/uuid"

	"unit-converter/internal/llm"
)

const systemPromptPrefix = "You are a helpful assistant specialized in unit conversions. " +
	"Use the provided convert tool whenever a numeric conversion is requested and never do the arithmetic yourself. " +
	"Pass unit symbols exactly as listed. If the tool reports an error, explain it briefly to the user. "

// SystemPrompt builds the system message that tells the model which units
// exist. unitsJSON is the supported units document.
func SystemPrompt(unitsJSON string) string {
	return systemPromptPrefix + "Supported units and categories: " + unitsJSON
}

// Conversation is the ordered, append-only message history of one session.
// It is not safe for concurrent use.
type Conversation struct {
	ID       uuid.UUID
	messages []llm.Message
}

// NewConversation starts a history with an optional system prompt.
func NewConversation(systemPrompt string) *Conversation {
	c := &Conversation{ID: uuid.New()}
	if systemPrompt != "" {
		c.messages = append(c.messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	}
	return c
}

// Append adds messages to the end of the history.
func (c *Conversation) Append(msgs ...llm.Message) {
	c.messages = append(c.messages, msgs...)
}

// Messages returns a copy of the history.
func (c *Conversation) Messages() []llm.Message {
	return append([]llm.Message(nil), c.messages...)
}

func (c *Conversation) truncate(n int) {
	if n >= 0 && n < len(c.messages) {
		c.messages = c.messages[:n]
	}
}

// Len returns the number of messages in the history.
func (c *Conversation) Len() int {
	return len(c.messages)
}
