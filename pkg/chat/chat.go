// Package chat manages section follow-up conversations. Each conversation is
// pinned to one generated section whose text is the only ground truth the
// model may cite; history is a sliding window held in process memory only.
package chat

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/marketforge/strategist/pkg/models"
	"github.com/marketforge/strategist/pkg/prompt"
)

// WindowSize bounds the retained history per conversation. Older turns are
// silently dropped.
const WindowSize = 12

// ErrNotFound is returned for an unknown conversation ID.
var ErrNotFound = errors.New("conversation not found")

// Conversation holds one section dialogue. All fields behind mu.
type Conversation struct {
	ID          string
	SectionName string
	SectionText string

	mu     sync.Mutex
	turns  []models.Turn
	cancel context.CancelFunc
}

// snapshot returns a copy of the current window for a streaming call.
func (c *Conversation) snapshot() []models.Turn {
	out := make([]models.Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

func (c *Conversation) append(turn models.Turn) {
	c.turns = append(c.turns, turn)
	if len(c.turns) > WindowSize {
		c.turns = c.turns[len(c.turns)-WindowSize:]
	}
}

// Turns returns a copy of the retained history.
func (c *Conversation) Turns() []models.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Manager tracks open conversations and enforces at most one active stream
// per conversation: a new Ask supersedes and cancels any in-flight one.
type Manager struct {
	provider models.Provider
	log      zerolog.Logger

	mu            sync.Mutex
	conversations map[string]*Conversation
}

func NewManager(provider models.Provider, log zerolog.Logger) *Manager {
	return &Manager{
		provider:      provider,
		log:           log,
		conversations: make(map[string]*Conversation),
	}
}

// Open registers a new conversation anchored to one section and returns it.
func (m *Manager) Open(sectionName, sectionText string) *Conversation {
	conv := &Conversation{
		ID:          uuid.NewString(),
		SectionName: sectionName,
		SectionText: sectionText,
	}
	m.mu.Lock()
	m.conversations[conv.ID] = conv
	m.mu.Unlock()
	m.log.Debug().Str("conversation", conv.ID).Str("section", sectionName).Msg("conversation opened")
	return conv
}

// Get looks up an open conversation.
func (m *Manager) Get(id string) (*Conversation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[id]
	return conv, ok
}

// Close cancels any in-flight stream and forgets the conversation.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	conv, ok := m.conversations[id]
	delete(m.conversations, id)
	m.mu.Unlock()
	if !ok {
		return
	}
	conv.mu.Lock()
	if conv.cancel != nil {
		conv.cancel()
		conv.cancel = nil
	}
	conv.mu.Unlock()
}

// Ask records the user question and streams the reply. Any stream still
// active on the same conversation is cancelled first; cancelling ctx (for
// example on client disconnect) aborts this stream.
func (m *Manager) Ask(ctx context.Context, id, question string) (<-chan models.StreamChunk, error) {
	conv, ok := m.Get(id)
	if !ok {
		return nil, ErrNotFound
	}

	streamCtx, cancel := context.WithCancel(ctx)

	conv.mu.Lock()
	if conv.cancel != nil {
		conv.cancel()
	}
	conv.cancel = cancel
	conv.append(models.Turn{Role: models.RoleUser, Content: question})
	turns := conv.snapshot()
	conv.mu.Unlock()

	system := prompt.SectionChatSystem(conv.SectionName, conv.SectionText)
	src, err := m.provider.StreamChat(streamCtx, system, turns)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan models.StreamChunk, 16)
	go func() {
		defer close(out)
		defer cancel()
		for chunk := range src {
			if chunk.Done && chunk.Err == nil && chunk.FullText != "" {
				conv.mu.Lock()
				conv.append(models.Turn{Role: models.RoleAssistant, Content: chunk.FullText})
				// A superseding Ask owns the cancel slot now; only clear it
				// if it is still ours.
				if conv.cancel != nil && streamCtx.Err() == nil {
					conv.cancel = nil
				}
				conv.mu.Unlock()
			}
			select {
			case out <- chunk:
			case <-streamCtx.Done():
				return
			}
		}
	}()
	return out, nil
}
