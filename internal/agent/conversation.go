package agent

import (
	"sync"

	"github.com/dusk-indust/missionplan/internal/a2a"
)

// Conversation tracks one collaborator dialogue: its A2A context ID and
// whether the preamble has been sent yet.
type Conversation struct {
	mu       sync.Mutex
	id       string
	preamble string
	started  bool
}

// NewConversation starts a conversation whose first turn is prefixed with
// preamble.
func NewConversation(preamble string) *Conversation {
	return &Conversation{id: a2a.NewID(), preamble: preamble}
}

// ID returns the current context ID.
func (c *Conversation) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// Reset drops the dialogue so the next turn opens a fresh context and
// resends the preamble.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = a2a.NewID()
	c.started = false
}

// next returns the context ID and the text to send for prompt.
func (c *Conversation) next(prompt string) (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started && c.preamble != "" {
		prompt = c.preamble + "\n\n" + prompt
	}
	c.started = true
	return c.id, prompt
}
