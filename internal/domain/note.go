package domain

import (
	"context"
	"time"
)

// NoteState names the lifecycle states of an inline AI note.
type NoteState string

const (
	NoteAwaitingPrompt NoteState = "awaiting_prompt"
	NoteStreaming      NoteState = "streaming"
	NoteSettled        NoteState = "settled"
	NoteDismissed      NoteState = "dismissed"
)

// NoteMode selects how a note is presented: mounted into the live content
// at its trigger, or as a single free-floating overlay.
type NoteMode string

const (
	NoteAnchored NoteMode = "anchored"
	NoteFloating NoteMode = "floating"
)

// InlineNote is an ephemeral AI note attached to the reading surface.
// Notes are never persisted; they die with the session.
type InlineNote struct {
	ID        string      `json:"id"`
	Trigger   PositionRef `json:"trigger"`
	Context   string      `json:"context"`
	Response  string      `json:"response"`
	State     NoteState   `json:"state"`
	Mode      NoteMode    `json:"mode"`
	Failed    bool        `json:"failed,omitempty"`
	Mount     MountID     `json:"-"`
	CreatedAt time.Time   `json:"created_at"`
}

// NoteService manages the inline AI note lifecycle:
// AwaitingPrompt -> Streaming -> Settled, with Dismissed reachable from
// any state. At most one floating note exists at a time; creating a new
// one replaces it. Creating a note for a trigger that already has one
// awaiting a prompt returns the existing note instead of a duplicate.
// Dismiss is idempotent and must stay safe after the underlying document
// has been torn down. CloseAll drops every note on book switch.
type NoteService interface {
	Create(trigger PositionRef, contextText string, mode NoteMode) (*InlineNote, error)
	SubmitPrompt(ctx context.Context, id, prompt string, onChunk func(string) error) (*InlineNote, error)
	Dismiss(id string)
	Get(id string) (*InlineNote, error)
	List() []*InlineNote
	CloseAll()
}
