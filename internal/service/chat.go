package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"ebook-reader/internal/domain"
)

// chatFailureText is appended as an error-flagged model message when a
// stream dies partway. The partial reply cannot be resumed, so the next
// Send starts a fresh backend session.
const chatFailureText = "The assistant could not complete this reply."

// ChatManager implements domain.ChatService: one in-memory conversation
// for the reader's chat panel. History is rebuilt into every backend call,
// so the backend session itself is stateless and cheap to restart.
type ChatManager struct {
	client   domain.ChatClient
	settings domain.SettingsRepository
	logger   domain.Logger

	mu      sync.Mutex
	history []domain.ChatMessage
	model   string
	staged  string
	docCtx  string
	restart bool
}

func NewChatManager(client domain.ChatClient, settings domain.SettingsRepository, logger domain.Logger) *ChatManager {
	return &ChatManager{
		client:   client,
		settings: settings,
		logger:   logger,
	}
}

func (c *ChatManager) Send(ctx context.Context, prompt string, onChunk func(string) error) (*domain.ChatMessage, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, &domain.ValidationError{Field: "prompt", Message: "prompt is required"}
	}

	c.mu.Lock()
	if c.restart {
		c.history = nil
		c.restart = false
	}
	full := prompt
	if c.staged != "" {
		full = fmt.Sprintf("Regarding this passage:\n%q\n\n%s", c.staged, prompt)
		c.staged = ""
	}
	turns := make([]domain.ChatTurn, 0, len(c.history))
	for _, msg := range c.history {
		if msg.Failed {
			continue
		}
		turns = append(turns, domain.ChatTurn{Role: msg.Role, Content: msg.Content})
	}
	c.history = append(c.history, domain.ChatMessage{
		Role:      domain.ChatRoleUser,
		Content:   full,
		CreatedAt: time.Now(),
	})
	p := domain.ChatPrompt{
		Model:           c.modelLocked(),
		System:          c.settings.Load().AISystemPrompt,
		History:         turns,
		Prompt:          full,
		DocumentContext: c.docCtx,
	}
	c.mu.Unlock()

	var reply strings.Builder
	err := c.client.StreamReply(ctx, p, func(chunk string) error {
		reply.WriteString(chunk)
		if onChunk != nil {
			return onChunk(chunk)
		}
		return nil
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.logger.Error("chat stream failed", err, "model", p.Model)
		msg := domain.ChatMessage{
			Role:      domain.ChatRoleModel,
			Content:   chatFailureText,
			Failed:    true,
			CreatedAt: time.Now(),
		}
		c.history = append(c.history, msg)
		c.restart = true
		if !errors.Is(err, domain.ErrStreamFailure) && ctx.Err() == nil {
			err = fmt.Errorf("%w: %v", domain.ErrStreamFailure, err)
		}
		return &msg, err
	}

	msg := domain.ChatMessage{
		Role:      domain.ChatRoleModel,
		Content:   reply.String(),
		CreatedAt: time.Now(),
	}
	c.history = append(c.history, msg)
	return &msg, nil
}

func (c *ChatManager) OneShot(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", &domain.ValidationError{Field: "prompt", Message: "prompt is required"}
	}
	c.mu.Lock()
	p := domain.ChatPrompt{
		Model:           c.modelLocked(),
		System:          c.settings.Load().AISystemPrompt,
		Prompt:          prompt,
		DocumentContext: c.docCtx,
	}
	c.mu.Unlock()
	return c.client.OneShot(ctx, p)
}

func (c *ChatManager) History() []domain.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.ChatMessage(nil), c.history...)
}

func (c *ChatManager) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
	c.staged = ""
	c.restart = false
}

// SetModel switches the generation model. A mid-conversation switch
// starts a fresh session; replaying one model's history into another
// produces confused replies.
func (c *ChatManager) SetModel(model string) {
	model = strings.TrimSpace(model)
	c.mu.Lock()
	defer c.mu.Unlock()
	if model == "" || model == c.model {
		return
	}
	prev := c.modelLocked()
	c.model = model
	if len(c.history) > 0 && prev != model {
		c.logger.Info("chat model switched, starting fresh session", "from", prev, "to", model)
		c.history = nil
		c.staged = ""
		c.restart = false
	}
}

func (c *ChatManager) Model() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modelLocked()
}

// StagePassage queues selected text to prefix the next prompt. Staging a
// new passage replaces the previous one.
func (c *ChatManager) StagePassage(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staged = text
}

// SetDocumentContext replaces the book context included with every call.
// Set on book open when the include-book setting is on, cleared on close.
func (c *ChatManager) SetDocumentContext(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docCtx = text
}

func (c *ChatManager) modelLocked() string {
	if c.model != "" {
		return c.model
	}
	return c.settings.Load().AIModel
}
