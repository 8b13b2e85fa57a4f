package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/maya/opportunity-hub/internal/ai"
	"github.com/maya/opportunity-hub/internal/models"
)

type fakeStore struct {
	mu       sync.Mutex
	threads  map[uuid.UUID]models.Thread
	messages []models.ChatMessage
}

func newFakeStore() *fakeStore {
	return &fakeStore{threads: make(map[uuid.UUID]models.Thread)}
}

func (f *fakeStore) EnsureThread(_ context.Context, thread models.Thread) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.threads[thread.ID]; !ok {
		f.threads[thread.ID] = thread
	}
	return nil
}

func (f *fakeStore) SaveMessage(_ context.Context, msg *models.ChatMessage) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	saved := *msg
	saved.ID = id
	f.messages = append(f.messages, saved)
	return id, nil
}

func (f *fakeStore) ListMessages(_ context.Context, threadID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ChatMessage
	for _, m := range f.messages {
		if m.ThreadID == threadID {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type fakeGenerator struct {
	mu      sync.Mutex
	calls   int
	draft   *ai.GeneratedOpportunity
	err     error
	started chan struct{}
	proceed chan struct{}
}

func (f *fakeGenerator) GenerateOpportunity(_ context.Context, _ string, _ []ai.Message) (*ai.GeneratedOpportunity, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.proceed != nil {
		<-f.proceed
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.draft, nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testDraft() *ai.GeneratedOpportunity {
	return &ai.GeneratedOpportunity{
		Title:       "Community Composting Hub",
		Description: "A neighborhood composting initiative.",
		Sections: map[string]models.Section{
			models.SectionConnections: {Heading: "Who I'm Looking to Collaborate With", Items: []string{"Local gardeners"}},
		},
		Tags: []string{"composting", "community"},
	}
}

func TestSend_PersistsBothMessages(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeGenerator{draft: testDraft()})

	threadID := uuid.New()
	userID := uuid.New()

	result, err := svc.Send(context.Background(), threadID, userID, "I want to start a composting hub")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.messages) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(store.messages))
	}
	if store.messages[0].Role != models.RoleUser {
		t.Fatalf("first message role = %q, want %q", store.messages[0].Role, models.RoleUser)
	}
	if store.messages[1].Role != models.RoleAssistant {
		t.Fatalf("second message role = %q, want %q", store.messages[1].Role, models.RoleAssistant)
	}
	if !store.messages[1].ShowCanvas {
		t.Fatal("assistant message should open the canvas on success")
	}
	if result.Draft == nil || result.Draft.Title != "Community Composting Hub" {
		t.Fatalf("unexpected draft: %+v", result.Draft)
	}
	if result.GenerationFailed {
		t.Fatal("generation should not be marked failed")
	}
}

func TestSend_RejectsEmptyMessage(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeGenerator{draft: testDraft()})

	_, err := svc.Send(context.Background(), uuid.New(), uuid.New(), "   \n\t ")
	if !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if len(store.messages) != 0 {
		t.Fatal("empty input must not be persisted")
	}
}

func TestSend_SingleInFlightPerThread(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{
		draft:   testDraft(),
		started: make(chan struct{}, 1),
		proceed: make(chan struct{}),
	}
	svc := NewService(store, gen)

	threadID := uuid.New()
	userID := uuid.New()

	done := make(chan error, 1)
	go func() {
		_, err := svc.Send(context.Background(), threadID, userID, "first message")
		done <- err
	}()

	<-gen.started

	// Same thread is busy; a different thread is not.
	if _, err := svc.Send(context.Background(), threadID, userID, "second message"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy for same thread, got %v", err)
	}

	close(gen.proceed)
	if err := <-done; err != nil {
		t.Fatalf("first send failed: %v", err)
	}

	if got := gen.callCount(); got != 1 {
		t.Fatalf("generator called %d times, want 1", got)
	}

	// The guard clears once the send settles.
	if _, err := svc.Send(context.Background(), threadID, userID, "third message"); err != nil {
		t.Fatalf("thread should be idle again: %v", err)
	}
}

func TestSend_GenerationFailureAppendsErrorMessage(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeGenerator{err: ai.ErrQuotaExceeded})

	result, err := svc.Send(context.Background(), uuid.New(), uuid.New(), "an idea")
	if err != nil {
		t.Fatalf("generation failure should not fail the send: %v", err)
	}
	if !result.GenerationFailed {
		t.Fatal("expected GenerationFailed")
	}
	if result.Draft != nil {
		t.Fatal("no draft expected on failure")
	}
	if result.AssistantMessage.ShowCanvas {
		t.Fatal("canvas must not open on failure")
	}
	if result.AssistantMessage.Content != "Service temporarily unavailable. Please try again later." {
		t.Fatalf("unexpected error text: %q", result.AssistantMessage.Content)
	}
	if len(store.messages) != 2 {
		t.Fatalf("expected user + error messages persisted, got %d", len(store.messages))
	}
}

func TestSend_LazyThreadTitleFromFirstMessage(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeGenerator{draft: testDraft()})

	threadID := uuid.New()
	userID := uuid.New()

	first := "Start a repair cafe for bikes and small appliances"
	if _, err := svc.Send(context.Background(), threadID, userID, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Send(context.Background(), threadID, userID, "Add more detail about volunteers"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	thread, ok := store.threads[threadID]
	if !ok {
		t.Fatal("thread was not created")
	}
	if thread.Title != "Start a repair cafe for bikes" {
		t.Fatalf("title = %q, want first six words of opening message", thread.Title)
	}
}

func TestDeriveThreadTitle(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"short", "short"},
		{"one two three four five six seven eight", "one two three four five six"},
	}
	for _, tc := range cases {
		if got := DeriveThreadTitle(tc.in); got != tc.want {
			t.Fatalf("DeriveThreadTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	long := DeriveThreadTitle(strings.Repeat("collaboration ", 6))
	if len(long) > 48 {
		t.Fatalf("derived title too long: %d chars", len(long))
	}
}
