package domain

import (
	"context"
	"time"
)

// Chat roles as the generation backend expects them.
const (
	ChatRoleUser  = "user"
	ChatRoleModel = "model"
)

// ChatTurn is one prior exchange message replayed as session history.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatPrompt carries one generation call's inputs. DocumentContext, when
// set, is verbatim text from the open book appended to the prompt; there
// is no retrieval layer.
type ChatPrompt struct {
	Model           string
	System          string
	History         []ChatTurn
	Prompt          string
	DocumentContext string
}

// ChatClient is the streaming text-generation collaborator. StreamReply
// delivers the reply incrementally through onChunk; a non-nil error from
// onChunk aborts the stream. Errors from the backend are reported as
// ErrStreamFailure wraps.
type ChatClient interface {
	StreamReply(ctx context.Context, p ChatPrompt, onChunk func(string) error) error
	OneShot(ctx context.Context, p ChatPrompt) (string, error)
}

// ChatMessage is one entry of the visible conversation.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Failed    bool      `json:"failed,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatService keeps the conversation state for the reader's chat panel.
// A failed stream appends an error-flagged message and the next Send
// starts a fresh session, since a partially-consumed stream cannot be
// resumed. Switching models also starts a fresh session.
type ChatService interface {
	Send(ctx context.Context, prompt string, onChunk func(string) error) (*ChatMessage, error)
	// OneShot answers a single prompt without touching the conversation.
	OneShot(ctx context.Context, prompt string) (string, error)
	History() []ChatMessage
	Reset()
	SetModel(model string)
	Model() string
	StagePassage(text string)
	SetDocumentContext(text string)
}
