package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ebook-reader/internal/domain"

	"github.com/google/uuid"
)

// noteFailureText is the fixed response shown when a note's stream fails.
// The note settles instead of retrying; the user re-invokes if they want
// another attempt.
const noteFailureText = "Something went wrong while generating this note."

// errNoteGone aborts a stream whose note was dismissed mid-flight. Late
// chunks drain into it instead of touching freed state.
var errNoteGone = errors.New("note dismissed during stream")

// NoteManager implements domain.NoteService. Notes live only in memory
// and die with the session. Anchored notes hold a mount into the live
// content; every reflow kills those mounts, so the manager re-mounts on
// each ContentMounted event.
type NoteManager struct {
	client   domain.ChatClient
	settings domain.SettingsRepository
	logger   domain.Logger

	mu       sync.Mutex
	surface  domain.ReadingSurface
	notes    map[string]*domain.InlineNote
	order    []string
	floating string
}

func NewNoteManager(client domain.ChatClient, settings domain.SettingsRepository, logger domain.Logger) *NoteManager {
	return &NoteManager{
		client:   client,
		settings: settings,
		logger:   logger,
		notes:    make(map[string]*domain.InlineNote),
	}
}

// Attach binds the manager to the active session's surface and subscribes
// to remount anchored notes after every reflow.
func (m *NoteManager) Attach(surface domain.ReadingSurface) {
	m.mu.Lock()
	m.surface = surface
	m.mu.Unlock()

	surface.OnContentMounted(func(ev domain.ContentMountedEvent) {
		m.remountAnchored(surface)
	})
}

func (m *NoteManager) Detach() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.surface = nil
}

func (m *NoteManager) Create(trigger domain.PositionRef, contextText string, mode domain.NoteMode) (*domain.InlineNote, error) {
	if trigger.IsZero() {
		return nil, &domain.ValidationError{Field: "trigger", Message: "trigger anchor is required"}
	}
	if mode != domain.NoteAnchored && mode != domain.NoteFloating {
		mode = domain.NoteAnchored
	}

	m.mu.Lock()
	// Re-invoking at a trigger that is still waiting for its prompt
	// focuses the existing note instead of stacking a duplicate.
	for _, id := range m.order {
		n := m.notes[id]
		if n.Trigger == trigger && n.State == domain.NoteAwaitingPrompt {
			cp := *n
			m.mu.Unlock()
			return &cp, nil
		}
	}
	if mode == domain.NoteFloating && m.floating != "" {
		m.dismissLocked(m.floating)
	}

	note := &domain.InlineNote{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		Context:   contextText,
		State:     domain.NoteAwaitingPrompt,
		Mode:      mode,
		CreatedAt: time.Now(),
	}
	if mode == domain.NoteAnchored && m.surface != nil {
		if id, err := m.surface.Mount(trigger); err == nil {
			note.Mount = id
		} else {
			m.logger.Debug("note created unmounted", "trigger", trigger, "error", err)
		}
	}
	m.notes[note.ID] = note
	m.order = append(m.order, note.ID)
	if mode == domain.NoteFloating {
		m.floating = note.ID
	}
	cp := *note
	m.mu.Unlock()

	m.logger.Info("inline note created", "id", cp.ID, "mode", mode)
	return &cp, nil
}

// SubmitPrompt moves the note into Streaming and feeds the reply through
// onChunk as it arrives. A backend failure settles the note with the
// fixed failure text and the error flag; there is no automatic retry.
func (m *NoteManager) SubmitPrompt(ctx context.Context, id, prompt string, onChunk func(string) error) (*domain.InlineNote, error) {
	if prompt == "" {
		return nil, &domain.ValidationError{Field: "prompt", Message: "prompt is required"}
	}

	m.mu.Lock()
	note, ok := m.notes[id]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", domain.ErrNoteNotFound, id)
	}
	if note.State != domain.NoteAwaitingPrompt {
		state := note.State
		m.mu.Unlock()
		return nil, &domain.ValidationError{Field: "state", Message: fmt.Sprintf("note is %s, not awaiting a prompt", state)}
	}
	note.State = domain.NoteStreaming
	contextText := note.Context
	m.mu.Unlock()

	settings := m.settings.Load()
	p := domain.ChatPrompt{
		Model:           settings.AIModel,
		System:          settings.AISystemPrompt,
		Prompt:          prompt,
		DocumentContext: contextText,
	}

	err := m.client.StreamReply(ctx, p, func(chunk string) error {
		m.mu.Lock()
		current, ok := m.notes[id]
		if !ok || current.State != domain.NoteStreaming {
			m.mu.Unlock()
			return errNoteGone
		}
		current.Response += chunk
		m.mu.Unlock()
		if onChunk != nil {
			return onChunk(chunk)
		}
		return nil
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	note, ok = m.notes[id]
	if !ok || errors.Is(err, errNoteGone) {
		// Dismissed mid-stream; the tail of the reply drains silently.
		return nil, fmt.Errorf("%w: %s", domain.ErrNoteNotFound, id)
	}
	note.State = domain.NoteSettled
	if err != nil {
		m.logger.Error("note stream failed", err, "id", id)
		note.Response = noteFailureText
		note.Failed = true
	}
	cp := *note
	return &cp, nil
}

// Dismiss removes a note in any state. It is idempotent and stays safe
// after the surface is gone: unmounting on a closed surface is a no-op.
func (m *NoteManager) Dismiss(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dismissLocked(id)
}

func (m *NoteManager) Get(id string) (*domain.InlineNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	note, ok := m.notes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoteNotFound, id)
	}
	cp := *note
	return &cp, nil
}

func (m *NoteManager) List() []*domain.InlineNote {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.InlineNote, 0, len(m.order))
	for _, id := range m.order {
		cp := *m.notes[id]
		out = append(out, &cp)
	}
	return out
}

// CloseAll drops every note. Runs on book switch and shutdown.
func (m *NoteManager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range append([]string(nil), m.order...) {
		m.dismissLocked(id)
	}
}

func (m *NoteManager) dismissLocked(id string) {
	note, ok := m.notes[id]
	if !ok {
		return
	}
	if note.Mount != "" && m.surface != nil {
		m.surface.Unmount(note.Mount)
	}
	note.State = domain.NoteDismissed
	delete(m.notes, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	if m.floating == id {
		m.floating = ""
	}
}

// remountAnchored re-resolves mounts after a reflow. Notes whose trigger
// is not in the visible unit stay unmounted until it is.
func (m *NoteManager) remountAnchored(from domain.ReadingSurface) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.surface != from {
		return
	}
	for _, id := range m.order {
		note := m.notes[id]
		if note.Mode != domain.NoteAnchored {
			continue
		}
		if note.Mount != "" && m.surface.MountValid(note.Mount) {
			continue
		}
		note.Mount = ""
		if mountID, err := m.surface.Mount(note.Trigger); err == nil {
			note.Mount = mountID
		}
	}
}
