package ai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/maya/opportunity-hub/internal/models"
)

func TestParseGeneratedOpportunity_NestedSections(t *testing.T) {
	resp := `{
		"title": "Community Composting Program",
		"description": "Turning neighborhood food waste into living soil.",
		"sections": {
			"connections": {
				"heading": "Who I'm Looking to Collaborate With",
				"items": ["Permaculture designer", "City waste coordinator"]
			}
		},
		"tags": ["composting", "community", "regenerative"]
	}`

	got, err := parseGeneratedOpportunity(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title != "Community Composting Program" {
		t.Fatalf("unexpected title %q", got.Title)
	}
	connections := got.Sections[models.SectionConnections]
	if len(connections.Items) != 2 {
		t.Fatalf("expected 2 connections, got %v", connections.Items)
	}
	if len(got.Tags) != 3 {
		t.Fatalf("expected 3 tags, got %v", got.Tags)
	}
}

func TestParseGeneratedOpportunity_FlatArrays(t *testing.T) {
	resp := `{
		"title": "Seed Library",
		"description": "A free seed exchange.",
		"connections": ["Local gardeners", "Library staff"],
		"roles": ["Catalog volunteer"],
		"nextSteps": ["Find shelf space"],
		"tags": ["seeds"]
	}`

	got, err := parseGeneratedOpportunity(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Sections[models.SectionConnections].Heading == "" {
		t.Fatal("flat connections must get the default heading")
	}
	if len(got.Sections[models.SectionRoles].Items) != 1 {
		t.Fatalf("expected roles section, got %v", got.Sections)
	}
	if len(got.Sections[models.SectionNextSteps].Items) != 1 {
		t.Fatalf("expected nextSteps section, got %v", got.Sections)
	}
}

func TestParseGeneratedOpportunity_MarkdownFences(t *testing.T) {
	resp := "```json\n{\"title\":\"T\",\"description\":\"D\",\"connections\":[\"A\"],\"tags\":[\"x\"]}\n```"

	got, err := parseGeneratedOpportunity(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title != "T" {
		t.Fatalf("unexpected title %q", got.Title)
	}
}

func TestParseGeneratedOpportunity_SurroundingProse(t *testing.T) {
	resp := `Here is your opportunity: {"title":"T","description":"D","connections":["A"],"tags":["x"]} Hope that helps!`

	if _, err := parseGeneratedOpportunity(resp); err != nil {
		t.Fatalf("expected balanced-object extraction to succeed, got %v", err)
	}
}

func TestParseGeneratedOpportunity_MissingRequiredFields(t *testing.T) {
	cases := []struct {
		name string
		resp string
	}{
		{"no title", `{"description":"D","connections":["A"],"tags":["x"]}`},
		{"no description", `{"title":"T","connections":["A"],"tags":["x"]}`},
		{"no connections", `{"title":"T","description":"D","tags":["x"]}`},
		{"empty connections", `{"title":"T","description":"D","connections":[],"tags":["x"]}`},
		{"no tags", `{"title":"T","description":"D","connections":["A"]}`},
		{"not json", `I could not generate anything today.`},
		{"whitespace title", `{"title":"   ","description":"D","connections":["A"],"tags":["x"]}`},
	}

	for _, tc := range cases {
		if _, err := parseGeneratedOpportunity(tc.resp); err == nil {
			t.Fatalf("%s: expected parse failure", tc.name)
		}
	}
}

func TestGenerateOpportunity_NotConfiguredSkipsNetwork(t *testing.T) {
	contacted := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contacted = true
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	_, err := client.GenerateOpportunity(context.Background(), "compost program", nil)
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if contacted {
		t.Fatal("client must not contact the network without an API key")
	}
}

func TestGenerateOpportunity_QuotaMapsToErrQuotaExceeded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"quota","code":"insufficient_quota"}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	_, err := client.GenerateOpportunity(context.Background(), "anything", nil)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestGenerateOpportunity_CompostingScenario(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"title\":\"Neighborhood Composting Collective\",\"description\":\"A shared composting program for the block.\",\"sections\":{\"connections\":{\"heading\":\"Who I'm Looking to Collaborate With\",\"items\":[\"Master composter\",\"Community garden lead\"]}},\"tags\":[\"composting\",\"community\",\"soil\",\"waste\"]}"}}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	got, err := client.GenerateOpportunity(context.Background(), "I want to start a community composting program", []Message{
		{Role: "ai", Content: "What would you like to work on?"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(strings.ToLower(got.Title), "compost") {
		t.Fatalf("expected a composting-related title, got %q", got.Title)
	}
	if len(got.Tags) < 3 || len(got.Tags) > 5 {
		t.Fatalf("expected 3-5 tags, got %v", got.Tags)
	}
	if len(got.Sections[models.SectionConnections].Items) < 1 {
		t.Fatal("expected at least one connections item")
	}
}

func TestGenerateOpportunity_MalformedUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Sorry, I cannot do that."}}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	_, err := client.GenerateOpportunity(context.Background(), "anything", nil)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}
