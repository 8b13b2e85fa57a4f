package canvas

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/maya/opportunity-hub/internal/models"
)

// ErrEmptyTitle is returned when a canvas is saved or published without
// a usable title. Nothing is written to the store in that case.
var ErrEmptyTitle = errors.New("opportunity title is required")

// Default headings rendered for each canonical section key.
var DefaultHeadings = map[string]string{
	models.SectionRoles:       "Key Roles & Responsibilities",
	models.SectionConnections: "Who I'm Looking to Collaborate With",
	models.SectionNextSteps:   "Next Steps",
}

var sanitizer = bluemonday.UGCPolicy()

// ValidateTitle rejects empty or whitespace-only titles.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrEmptyTitle
	}
	return nil
}

// AddTag returns the tag set with raw appended, trimmed and
// de-duplicated. Adding an existing tag leaves the set unchanged;
// insertion order is preserved for display.
func AddTag(tags []string, raw string) []string {
	tag := strings.TrimSpace(raw)
	if tag == "" {
		return tags
	}
	for _, existing := range tags {
		if existing == tag {
			return tags
		}
	}
	return append(tags, tag)
}

// RemoveTag removes a tag by value.
func RemoveTag(tags []string, tag string) []string {
	result := make([]string, 0, len(tags))
	for _, existing := range tags {
		if existing != tag {
			result = append(result, existing)
		}
	}
	return result
}

// NormalizeTags runs every tag through AddTag so persisted sets carry
// no blanks or duplicates regardless of how the client composed them.
func NormalizeTags(tags []string) []string {
	var clean []string
	for _, tag := range tags {
		clean = AddTag(clean, tag)
	}
	return clean
}

// Sanitize strips markup that must never reach the store from an HTML
// body (script, event handlers, embedded objects).
func Sanitize(html string) string {
	return sanitizer.Sanitize(html)
}

// RenderContent builds the HTML body for an opportunity from its
// description and sections. Section order is fixed: description,
// roles, connections, next steps.
func RenderContent(description string, sections map[string]models.Section) string {
	var b strings.Builder

	b.WriteString("<h2>Opportunity Description</h2>\n")
	fmt.Fprintf(&b, "<p>%s</p>\n", description)

	for _, key := range []string{models.SectionRoles, models.SectionConnections, models.SectionNextSteps} {
		section, ok := sections[key]
		if !ok || len(section.Items) == 0 {
			continue
		}
		heading := section.Heading
		if heading == "" {
			heading = DefaultHeadings[key]
		}
		fmt.Fprintf(&b, "<h2>%s</h2>\n<ul>\n", heading)
		for _, item := range section.Items {
			fmt.Fprintf(&b, "<li>%s</li>\n", item)
		}
		b.WriteString("</ul>\n")
	}

	return Sanitize(b.String())
}

// ExtractSectionItems recovers the list items under the h2 whose text
// contains heading, stopping at the next h2. Used to rebuild the
// structured sections from an edited HTML body.
func ExtractSectionItems(html, heading string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var items []string
	doc.Find("h2").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if !strings.Contains(h.Text(), heading) {
			return true
		}
		for node := h.Next(); node.Length() > 0 && !node.Is("h2"); node = node.Next() {
			node.Find("li").Each(func(_ int, li *goquery.Selection) {
				if text := strings.TrimSpace(li.Text()); text != "" {
					items = append(items, text)
				}
			})
			if node.Is("li") {
				if text := strings.TrimSpace(node.Text()); text != "" {
					items = append(items, text)
				}
			}
		}
		return false
	})

	return items
}

// HTMLToText converts HTML to plain text, collapsing whitespace.
func HTMLToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return cleanText(doc.Text())
}

// DeriveDescription produces the short plain-text summary stored
// alongside the HTML body: the first 200 characters of the text.
func DeriveDescription(html string) string {
	return TruncateText(HTMLToText(html), 200)
}

// TruncateText cuts a string to max length, appending ellipsis if truncated.
func TruncateText(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	if maxLen > 3 {
		return text[:maxLen-3] + "..."
	}
	return text[:maxLen]
}

func cleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
