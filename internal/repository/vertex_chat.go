package repository

import (
	"context"
	"fmt"
	"strings"

	"ebook-reader/internal/domain"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/iterator"
)

// VertexChatClient implements domain.ChatClient over the Vertex AI Gemini
// API. One genai client is shared; each call builds a fresh chat session
// from the history in the prompt, so the caller owns conversation state.
type VertexChatClient struct {
	client *genai.Client
	logger domain.Logger
}

func NewVertexChatClient(ctx context.Context, projectID, location string, logger domain.Logger) (*VertexChatClient, error) {
	client, err := genai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex ai client: %w", err)
	}
	return &VertexChatClient{client: client, logger: logger}, nil
}

func (c *VertexChatClient) StreamReply(ctx context.Context, p domain.ChatPrompt, onChunk func(string) error) error {
	chat := c.session(p)
	it := chat.SendMessageStream(ctx, genai.Text(composePrompt(p)))
	got := false
	for {
		resp, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %v", domain.ErrStreamFailure, err)
		}
		chunk := responseText(resp)
		if chunk == "" {
			continue
		}
		got = true
		if onChunk != nil {
			if err := onChunk(chunk); err != nil {
				return err
			}
		}
	}
	if !got {
		return fmt.Errorf("%w: empty response from model", domain.ErrStreamFailure)
	}
	return nil
}

func (c *VertexChatClient) OneShot(ctx context.Context, p domain.ChatPrompt) (string, error) {
	chat := c.session(p)
	resp, err := chat.SendMessage(ctx, genai.Text(composePrompt(p)))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %v", domain.ErrStreamFailure, err)
	}
	text := responseText(resp)
	if text == "" {
		return "", fmt.Errorf("%w: empty response from model", domain.ErrStreamFailure)
	}
	return text, nil
}

func (c *VertexChatClient) Close() error {
	return c.client.Close()
}

func (c *VertexChatClient) session(p domain.ChatPrompt) *genai.ChatSession {
	name := p.Model
	if name == "" {
		name = domain.DefaultSettings().AIModel
	}
	model := c.client.GenerativeModel(name)
	model.SetTemperature(0.5)
	if p.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(p.System)},
		}
	}
	chat := model.StartChat()
	for _, turn := range p.History {
		role := domain.ChatRoleUser
		if turn.Role == domain.ChatRoleModel {
			role = domain.ChatRoleModel
		}
		chat.History = append(chat.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(turn.Content)},
		})
	}
	return chat
}

// composePrompt prepends the staged book context, when there is one, so
// the model can ground its answer in the open document.
func composePrompt(p domain.ChatPrompt) string {
	if strings.TrimSpace(p.DocumentContext) == "" {
		return p.Prompt
	}
	var sb strings.Builder
	sb.WriteString("Context from the book the user is reading:\n---------------------\n")
	sb.WriteString(p.DocumentContext)
	sb.WriteString("\n---------------------\n\nQuery: ")
	sb.WriteString(p.Prompt)
	return sb.String()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}
