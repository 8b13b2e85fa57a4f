package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/maya/opportunity-hub/internal/ai"
	"github.com/maya/opportunity-hub/internal/canvas"
	"github.com/maya/opportunity-hub/internal/models"
)

var (
	// ErrEmptyMessage rejects blank input before any store write.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrBusy means a generation request is already in flight for the
	// thread. The caller retries after the current one settles.
	ErrBusy = errors.New("a response is already being generated for this thread")
)

// Store is the subset of the database layer the chat flow needs.
type Store interface {
	EnsureThread(ctx context.Context, thread models.Thread) error
	SaveMessage(ctx context.Context, msg *models.ChatMessage) (uuid.UUID, error)
	ListMessages(ctx context.Context, threadID uuid.UUID, limit int) ([]models.ChatMessage, error)
}

// Generator turns user input plus transcript into a structured
// opportunity draft.
type Generator interface {
	GenerateOpportunity(ctx context.Context, userInput string, transcript []ai.Message) (*ai.GeneratedOpportunity, error)
}

// Service drives the chat flow: persist the user message, call the
// generation gateway, persist the assistant reply. Each thread allows
// at most one outstanding generation request; the guard is a loading
// flag per thread, not a lock held across the network call.
type Service struct {
	store     Store
	generator Generator

	mu       sync.Mutex
	inFlight map[uuid.UUID]bool
}

func NewService(store Store, generator Generator) *Service {
	return &Service{
		store:     store,
		generator: generator,
		inFlight:  make(map[uuid.UUID]bool),
	}
}

// SendResult reports one completed send: both persisted messages, and
// the structured draft when generation succeeded. On generation
// failure the assistant message carries a user-facing error text and
// GenerationFailed is set; the thread is idle and retryable either way.
type SendResult struct {
	UserMessage      models.ChatMessage       `json:"user_message"`
	AssistantMessage models.ChatMessage       `json:"assistant_message"`
	Draft            *ai.GeneratedOpportunity `json:"draft,omitempty"`
	GenerationFailed bool                     `json:"generation_failed,omitempty"`
}

func (s *Service) Send(ctx context.Context, threadID, userID uuid.UUID, text string) (*SendResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	if !s.acquire(threadID) {
		return nil, ErrBusy
	}
	defer s.release(threadID)

	// Lazy thread creation. The title is derived from the first
	// message; ON CONFLICT keeps later sends from renaming.
	thread := models.Thread{
		ID:     threadID,
		UserID: userID,
		Title:  DeriveThreadTitle(text),
	}
	if err := s.store.EnsureThread(ctx, thread); err != nil {
		return nil, err
	}

	transcript, err := s.store.ListMessages(ctx, threadID, 20)
	if err != nil {
		return nil, err
	}

	userMsg := models.ChatMessage{
		ThreadID: threadID,
		UserID:   userID,
		Role:     models.RoleUser,
		Content:  text,
	}
	if userMsg.ID, err = s.store.SaveMessage(ctx, &userMsg); err != nil {
		return nil, err
	}

	result := &SendResult{UserMessage: userMsg}

	draft, genErr := s.generator.GenerateOpportunity(ctx, text, toTranscript(transcript))

	assistantMsg := models.ChatMessage{
		ThreadID: threadID,
		UserID:   userID,
		Role:     models.RoleAssistant,
	}
	if genErr != nil {
		assistantMsg.Content = userFacingGenerationError(genErr)
		result.GenerationFailed = true
	} else {
		assistantMsg.Content = fmt.Sprintf("I've drafted \"%s\" from your idea. Open the canvas to review and refine it.", draft.Title)
		assistantMsg.ShowCanvas = true
		result.Draft = draft
	}

	if assistantMsg.ID, err = s.store.SaveMessage(ctx, &assistantMsg); err != nil {
		return nil, err
	}
	result.AssistantMessage = assistantMsg

	return result, nil
}

func (s *Service) acquire(threadID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[threadID] {
		return false
	}
	s.inFlight[threadID] = true
	return true
}

func (s *Service) release(threadID uuid.UUID) {
	s.mu.Lock()
	delete(s.inFlight, threadID)
	s.mu.Unlock()
}

// DeriveThreadTitle builds a thread title from the first few words of
// the opening message.
func DeriveThreadTitle(text string) string {
	words := strings.Fields(text)
	if len(words) > 6 {
		words = words[:6]
	}
	return canvas.TruncateText(strings.Join(words, " "), 48)
}

func toTranscript(messages []models.ChatMessage) []ai.Message {
	transcript := make([]ai.Message, 0, len(messages))
	for _, m := range messages {
		transcript = append(transcript, ai.Message{Role: m.Role, Content: m.Content})
	}
	return transcript
}

// userFacingGenerationError maps gateway failures to the fixed strings
// shown inside the transcript.
func userFacingGenerationError(err error) string {
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		return "The assistant is not configured yet. You can still build your opportunity directly on the canvas."
	case errors.Is(err, ai.ErrQuotaExceeded):
		return "Service temporarily unavailable. Please try again later."
	default:
		return "I couldn't generate an opportunity from that. Please try rephrasing your idea."
	}
}
