package canvas

import (
	"strings"
	"testing"

	"github.com/maya/opportunity-hub/internal/models"
)

func TestAddTag_Idempotent(t *testing.T) {
	tags := []string{"composting", "community"}

	got := AddTag(tags, "composting")
	if len(got) != 2 {
		t.Fatalf("expected unchanged set, got %v", got)
	}

	got = AddTag(got, "  composting  ")
	if len(got) != 2 {
		t.Fatalf("expected trimmed duplicate to be rejected, got %v", got)
	}
}

func TestAddTag_TrimsAndPreservesOrder(t *testing.T) {
	tags := AddTag(nil, "  regenerative  ")
	tags = AddTag(tags, "soil")
	tags = AddTag(tags, "")
	tags = AddTag(tags, "   ")

	want := []string{"regenerative", "soil"}
	if len(tags) != len(want) {
		t.Fatalf("expected %v, got %v", want, tags)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, tags)
		}
	}
}

func TestRemoveTag(t *testing.T) {
	tags := []string{"a", "b", "c"}
	got := RemoveTag(tags, "b")
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Fatalf("expected [a c], got %v", got)
	}

	got = RemoveTag(tags, "missing")
	if len(got) != 3 {
		t.Fatalf("removing an absent tag must be a no-op, got %v", got)
	}
}

func TestValidateTitle(t *testing.T) {
	cases := []struct {
		title   string
		wantErr bool
	}{
		{"Community Composting Program", false},
		{"", true},
		{"   ", true},
		{"\t\n", true},
	}

	for _, tc := range cases {
		err := ValidateTitle(tc.title)
		if tc.wantErr && err == nil {
			t.Fatalf("title %q: expected error", tc.title)
		}
		if !tc.wantErr && err != nil {
			t.Fatalf("title %q: unexpected error %v", tc.title, err)
		}
	}
}

func TestRenderContent_RoundTripsSections(t *testing.T) {
	sections := map[string]models.Section{
		models.SectionConnections: {
			Heading: "Who I'm Looking to Collaborate With",
			Items:   []string{"Permaculture designer", "Community organizer"},
		},
		models.SectionNextSteps: {
			Heading: "Next Steps",
			Items:   []string{"Map neighborhood drop-off points"},
		},
	}

	html := RenderContent("A composting program for the neighborhood.", sections)

	connections := ExtractSectionItems(html, "Who I'm Looking to Collaborate With")
	if len(connections) != 2 || connections[0] != "Permaculture designer" {
		t.Fatalf("expected connections round-trip, got %v", connections)
	}

	steps := ExtractSectionItems(html, "Next Steps")
	if len(steps) != 1 || steps[0] != "Map neighborhood drop-off points" {
		t.Fatalf("expected next steps round-trip, got %v", steps)
	}
}

func TestRenderContent_UsesDefaultHeading(t *testing.T) {
	sections := map[string]models.Section{
		models.SectionRoles: {Items: []string{"Compost site coordinator"}},
	}

	html := RenderContent("desc", sections)
	if !strings.Contains(html, DefaultHeadings[models.SectionRoles]) {
		t.Fatalf("expected default roles heading in %q", html)
	}
}

func TestSanitize_StripsScript(t *testing.T) {
	dirty := `<p>hello</p><script>alert(1)</script><img src=x onerror=alert(1)>`
	clean := Sanitize(dirty)
	if strings.Contains(clean, "script") || strings.Contains(clean, "onerror") {
		t.Fatalf("sanitizer left dangerous markup: %q", clean)
	}
	if !strings.Contains(clean, "<p>hello</p>") {
		t.Fatalf("sanitizer dropped safe markup: %q", clean)
	}
}

func TestExtractSectionItems_StopsAtNextHeading(t *testing.T) {
	html := `
		<h2>Next Steps</h2>
		<ul><li>Step one</li><li>Step two</li></ul>
		<h2>Required Connections</h2>
		<ul><li>A funder</li></ul>
	`
	items := ExtractSectionItems(html, "Next Steps")
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %v", items)
	}
	for _, item := range items {
		if item == "A funder" {
			t.Fatal("extraction leaked into the following section")
		}
	}
}

func TestDeriveDescription(t *testing.T) {
	long := "<p>" + strings.Repeat("compost ", 60) + "</p>"
	got := DeriveDescription(long)
	if len(got) > 200 {
		t.Fatalf("description exceeds 200 chars: %d", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected ellipsis on truncated description, got %q", got)
	}

	short := "<p>Small idea</p>"
	if DeriveDescription(short) != "Small idea" {
		t.Fatalf("expected plain text, got %q", DeriveDescription(short))
	}
}

func TestTruncateText(t *testing.T) {
	if got := TruncateText("abcdef", 10); got != "abcdef" {
		t.Fatalf("expected passthrough, got %q", got)
	}
	if got := TruncateText("abcdefghij", 8); got != "abcde..." {
		t.Fatalf("expected abcde..., got %q", got)
	}
}
