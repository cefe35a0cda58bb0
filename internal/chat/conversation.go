// Package chat keeps the client side of a conversation: the visible
// history and the context window sent with each generation.
package chat

import (
	"strings"
	"sync"

	"vynel/internal/manager"
)

// SystemPrompt prefixes every generation context.
const SystemPrompt = "You are Vynel, a helpful, concise, and technically accurate assistant. Prefer clear explanations and well-formatted code."

// MaxContextMessages is how many prior history messages accompany a new
// user message.
const MaxContextMessages = 6

// Conversation is safe for concurrent use; tokens arrive on the generation
// goroutine while the REPL reads history.
type Conversation struct {
	mu      sync.Mutex
	history []manager.Turn
	// open is true while the last history entry is an assistant reply
	// being streamed into.
	open bool
}

func New() *Conversation { return &Conversation{} }

// Begin records the user message and an empty assistant placeholder, and
// returns the generation context: system prompt, up to MaxContextMessages
// earlier messages, then the user message.
func (c *Conversation) Begin(text string) []manager.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	user := manager.Turn{Role: manager.RoleUser, Content: text}
	turns := buildContext(c.history, user)
	c.history = append(c.history, user, manager.Turn{Role: manager.RoleAssistant})
	c.open = true
	return turns
}

// Append adds a streamed fragment to the open assistant reply.
func (c *Conversation) Append(fragment string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open || len(c.history) == 0 {
		return
	}
	c.history[len(c.history)-1].Content += fragment
}

// Finish closes the assistant reply. content, when non-empty, replaces
// whatever was accumulated from fragments.
func (c *Conversation) Finish(content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return
	}
	if content != "" {
		c.history[len(c.history)-1].Content = content
	}
	c.dropEmptyReply()
	c.open = false
}

// Abort closes the reply after an error or cancellation. An assistant
// placeholder that never received text is removed.
func (c *Conversation) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropEmptyReply()
	c.open = false
}

func (c *Conversation) dropEmptyReply() {
	n := len(c.history)
	if n > 0 && c.history[n-1].Role == manager.RoleAssistant && c.history[n-1].Content == "" {
		c.history = c.history[:n-1]
	}
}

// Clear forgets the history, as when the model changes.
func (c *Conversation) Clear() {
	c.mu.Lock()
	c.history = nil
	c.open = false
	c.mu.Unlock()
}

// History returns a copy of the visible messages.
func (c *Conversation) History() []manager.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]manager.Turn(nil), c.history...)
}

func buildContext(prior []manager.Turn, user manager.Turn) []manager.Turn {
	if len(prior) > MaxContextMessages {
		prior = prior[len(prior)-MaxContextMessages:]
	}
	out := make([]manager.Turn, 0, len(prior)+2)
	out = append(out, manager.Turn{Role: manager.RoleSystem, Content: SystemPrompt})
	out = append(out, prior...)
	return append(out, user)
}

// IsCommand reports whether a REPL line is a slash command and splits it.
func IsCommand(line string) (name, arg string, ok bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return "", "", false
	}
	name, arg, _ = strings.Cut(line[1:], " ")
	return strings.ToLower(name), strings.TrimSpace(arg), true
}
