package repository

import (
	"context"
	"fmt"

	"ebook-reader/internal/domain"
)

// DisabledChatClient stands in for the Vertex client when no GCP project
// is configured. Every call fails as a stream failure, so the chat and
// note services settle with their placeholder text instead of crashing.
type DisabledChatClient struct{}

func NewDisabledChatClient() *DisabledChatClient {
	return &DisabledChatClient{}
}

func (c *DisabledChatClient) StreamReply(ctx context.Context, p domain.ChatPrompt, onChunk func(string) error) error {
	return fmt.Errorf("%w: ai is not configured", domain.ErrStreamFailure)
}

func (c *DisabledChatClient) OneShot(ctx context.Context, p domain.ChatPrompt) (string, error) {
	return "", fmt.Errorf("%w: ai is not configured", domain.ErrStreamFailure)
}
