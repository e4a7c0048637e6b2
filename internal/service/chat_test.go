package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ebook-reader/internal/domain"
)

func TestChatManager_SendBuildsConversation(t *testing.T) {
	client := NewMockChatClient("Call me ", "Ishmael.")
	chat := NewChatManager(client, NewMockSettingsRepository(), NewMockLogger())

	var streamed string
	msg, err := chat.Send(context.Background(), "who narrates?", func(chunk string) error {
		streamed += chunk
		return nil
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if msg.Content != "Call me Ishmael." {
		t.Errorf("Expected the accumulated reply, got %q", msg.Content)
	}
	if streamed != "Call me Ishmael." {
		t.Errorf("Expected chunks forwarded, got %q", streamed)
	}

	history := chat.History()
	if len(history) != 2 {
		t.Fatalf("Expected user + model messages, got %d", len(history))
	}
	if history[0].Role != domain.ChatRoleUser || history[1].Role != domain.ChatRoleModel {
		t.Errorf("Expected user then model, got %q then %q", history[0].Role, history[1].Role)
	}

	// Second turn replays the first as history.
	if _, err := chat.Send(context.Background(), "and the ship?", nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	p := client.promptSeen()
	if len(p.History) != 2 {
		t.Errorf("Expected 2 history turns in the second call, got %d", len(p.History))
	}
}

func TestChatManager_SendValidation(t *testing.T) {
	chat := NewChatManager(NewMockChatClient(), NewMockSettingsRepository(), NewMockLogger())
	if _, err := chat.Send(context.Background(), "   ", nil); err == nil {
		t.Error("Expected a validation error for a blank prompt")
	}
}

func TestChatManager_StreamFailureFlagsAndRestarts(t *testing.T) {
	client := NewMockChatClient("partial")
	client.err = errors.New("connection reset")
	chat := NewChatManager(client, NewMockSettingsRepository(), NewMockLogger())

	msg, err := chat.Send(context.Background(), "hello", nil)
	if !errors.Is(err, domain.ErrStreamFailure) {
		t.Errorf("Expected ErrStreamFailure, got %v", err)
	}
	if msg == nil || !msg.Failed {
		t.Fatalf("Expected an error-flagged message, got %+v", msg)
	}
	if msg.Content != chatFailureText {
		t.Errorf("Expected the fixed failure text, got %q", msg.Content)
	}

	history := chat.History()
	if len(history) != 2 || !history[1].Failed {
		t.Fatalf("Expected the failed reply kept in history, got %d messages", len(history))
	}

	// The next send starts fresh: no history replayed, failed turn dropped.
	client.mu.Lock()
	client.err = nil
	client.mu.Unlock()
	if _, err := chat.Send(context.Background(), "try again", nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if p := client.promptSeen(); len(p.History) != 0 {
		t.Errorf("Expected a fresh session after the failure, got %d history turns", len(p.History))
	}
	history = chat.History()
	if len(history) != 2 {
		t.Errorf("Expected only the fresh exchange, got %d messages", len(history))
	}
}

func TestChatManager_StagedPassageUsedOnce(t *testing.T) {
	client := NewMockChatClient("ok")
	chat := NewChatManager(client, NewMockSettingsRepository(), NewMockLogger())

	chat.StagePassage("The whale was gone.")
	if _, err := chat.Send(context.Background(), "why?", nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	p := client.promptSeen()
	if !strings.Contains(p.Prompt, "The whale was gone.") || !strings.Contains(p.Prompt, "why?") {
		t.Errorf("Expected passage and question combined, got %q", p.Prompt)
	}

	if _, err := chat.Send(context.Background(), "second question", nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if p := client.promptSeen(); strings.Contains(p.Prompt, "The whale was gone.") {
		t.Errorf("Expected the staged passage consumed, got %q", p.Prompt)
	}
}

func TestChatManager_ModelSwitchResetsSession(t *testing.T) {
	client := NewMockChatClient("ok")
	settings := NewMockSettingsRepository()
	chat := NewChatManager(client, settings, NewMockLogger())

	if chat.Model() != domain.DefaultSettings().AIModel {
		t.Errorf("Expected the settings default model, got %q", chat.Model())
	}

	if _, err := chat.Send(context.Background(), "hello", nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	chat.SetModel("gemini-2.5-pro")
	if chat.Model() != "gemini-2.5-pro" {
		t.Errorf("Expected the new model, got %q", chat.Model())
	}
	if len(chat.History()) != 0 {
		t.Errorf("Expected the conversation reset on switch, got %d messages", len(chat.History()))
	}
	if p := client.promptSeen(); p.Model != domain.DefaultSettings().AIModel {
		t.Errorf("Expected the first call on the default model, got %q", p.Model)
	}

	if _, err := chat.Send(context.Background(), "again", nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if p := client.promptSeen(); p.Model != "gemini-2.5-pro" {
		t.Errorf("Expected calls on the new model, got %q", p.Model)
	}

	// Setting the same model again must not reset anything.
	chat.SetModel("gemini-2.5-pro")
	if len(chat.History()) != 2 {
		t.Errorf("Expected history kept on a no-op switch, got %d", len(chat.History()))
	}
}

func TestChatManager_DocumentContextOnEveryCall(t *testing.T) {
	client := NewMockChatClient("ok")
	chat := NewChatManager(client, NewMockSettingsRepository(), NewMockLogger())

	chat.SetDocumentContext("Chapter one. The whale surfaced at dawn.")
	if _, err := chat.Send(context.Background(), "summarize", nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if p := client.promptSeen(); p.DocumentContext == "" {
		t.Error("Expected the document context on the call")
	}

	chat.SetDocumentContext("")
	if _, err := chat.Send(context.Background(), "summarize", nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if p := client.promptSeen(); p.DocumentContext != "" {
		t.Errorf("Expected the context cleared, got %q", p.DocumentContext)
	}
}

func TestChatManager_OneShotLeavesHistoryAlone(t *testing.T) {
	client := NewMockChatClient("a summary")
	chat := NewChatManager(client, NewMockSettingsRepository(), NewMockLogger())

	out, err := chat.OneShot(context.Background(), "define leviathan")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if out != "a summary" {
		t.Errorf("Expected the reply, got %q", out)
	}
	if len(chat.History()) != 0 {
		t.Errorf("Expected the conversation untouched, got %d messages", len(chat.History()))
	}
}

func TestChatManager_Reset(t *testing.T) {
	client := NewMockChatClient("ok")
	chat := NewChatManager(client, NewMockSettingsRepository(), NewMockLogger())

	if _, err := chat.Send(context.Background(), "hello", nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	chat.StagePassage("leftover")
	chat.Reset()

	if len(chat.History()) != 0 {
		t.Errorf("Expected empty history, got %d", len(chat.History()))
	}
	if _, err := chat.Send(context.Background(), "fresh", nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if p := client.promptSeen(); strings.Contains(p.Prompt, "leftover") {
		t.Errorf("Expected the staged passage cleared by reset, got %q", p.Prompt)
	}
}
