package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/maya/opportunity-hub/internal/models"
)

// ErrMalformedResponse means the model reply could not be normalized
// into the canonical opportunity shape. Treated as a parse failure and
// surfaced as a generic generation error; never partially accepted.
var ErrMalformedResponse = errors.New("malformed generation response")

// GeneratedOpportunity is the canonical structure every upstream
// response shape is normalized into at the gateway boundary.
type GeneratedOpportunity struct {
	Title       string                    `json:"title"`
	Description string                    `json:"description"`
	Sections    map[string]models.Section `json:"sections"`
	Tags        []string                  `json:"tags"`
}

var (
	promptsOnce    sync.Once
	promptsLoaded  *promptRegistry
	promptsLoadErr error
)

func generationPrompt() (*PromptConfig, error) {
	promptsOnce.Do(func() {
		promptsLoaded, promptsLoadErr = loadPrompts()
	})
	if promptsLoadErr != nil {
		return nil, promptsLoadErr
	}
	return &promptsLoaded.GenerateOpportunity, nil
}

// GenerateOpportunity turns free-text user input plus the prior
// transcript into a structured opportunity. One request, one attempt;
// failures are mapped to the gateway error kinds.
func (c *Client) GenerateOpportunity(ctx context.Context, userInput string, transcript []Message) (*GeneratedOpportunity, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	prompt, err := generationPrompt()
	if err != nil {
		return nil, err
	}

	messages := make([]Message, 0, len(transcript)+2)
	messages = append(messages, Message{Role: "system", Content: prompt.SystemPrompt})
	for _, m := range transcript {
		role := m.Role
		// Older clients stored assistant turns under the role "ai".
		if role == "ai" {
			role = models.RoleAssistant
		}
		if role != models.RoleUser && role != models.RoleAssistant {
			continue
		}
		messages = append(messages, Message{Role: role, Content: m.Content})
	}
	messages = append(messages, Message{Role: models.RoleUser, Content: userInput})

	resp, err := c.ChatCompletion(ctx, prompt.Model, messages, prompt.Temperature, prompt.MaxTokens)
	if err != nil {
		return nil, err
	}

	opportunity, err := parseGeneratedOpportunity(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return opportunity, nil
}

// Upstream section shapes vary: sometimes sections.connections with
// heading+items, sometimes flat roles/nextSteps/connections string
// arrays. rawGenerated captures both so normalization can pick.
type rawGenerated struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Sections    map[string]rawSection `json:"sections"`
	Connections json.RawMessage       `json:"connections"`
	Roles       json.RawMessage       `json:"roles"`
	NextSteps   json.RawMessage       `json:"nextSteps"`
	Tags        []string              `json:"tags"`
}

type rawSection struct {
	Heading string   `json:"heading"`
	Items   []string `json:"items"`
}

var sectionHeadings = map[string]string{
	models.SectionRoles:       "Key Roles & Responsibilities",
	models.SectionConnections: "Who I'm Looking to Collaborate With",
	models.SectionNextSteps:   "Next Steps",
}

func parseGeneratedOpportunity(resp string) (*GeneratedOpportunity, error) {
	// Clean markdown code blocks
	cleaned := strings.TrimSpace(resp)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	// Extract first valid JSON object {...}
	if jsonStr, ok := extractFirstJSONObject(cleaned); ok {
		cleaned = jsonStr
	}

	var raw rawGenerated
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, err
	}

	opportunity := &GeneratedOpportunity{
		Title:       strings.TrimSpace(raw.Title),
		Description: strings.TrimSpace(raw.Description),
		Sections:    map[string]models.Section{},
		Tags:        trimNonEmpty(raw.Tags),
	}

	for key, section := range raw.Sections {
		items := trimNonEmpty(section.Items)
		if len(items) == 0 {
			continue
		}
		heading := strings.TrimSpace(section.Heading)
		if heading == "" {
			heading = sectionHeadings[key]
		}
		opportunity.Sections[key] = models.Section{Heading: heading, Items: items}
	}

	// Flat arrays fill in whatever the sections mapping did not cover.
	flat := map[string]json.RawMessage{
		models.SectionConnections: raw.Connections,
		models.SectionRoles:       raw.Roles,
		models.SectionNextSteps:   raw.NextSteps,
	}
	for key, payload := range flat {
		if _, exists := opportunity.Sections[key]; exists || len(payload) == 0 {
			continue
		}
		items := decodeItemList(payload)
		if len(items) == 0 {
			continue
		}
		opportunity.Sections[key] = models.Section{Heading: sectionHeadings[key], Items: items}
	}

	if err := validateGenerated(opportunity); err != nil {
		return nil, err
	}

	return opportunity, nil
}

// decodeItemList accepts either a plain string array or an object with
// heading/items, returning the trimmed items.
func decodeItemList(payload json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(payload, &list); err == nil {
		return trimNonEmpty(list)
	}

	var section rawSection
	if err := json.Unmarshal(payload, &section); err == nil {
		return trimNonEmpty(section.Items)
	}

	return nil
}

// validateGenerated enforces the four required fields: title,
// description, at least one connections item, at least one tag.
func validateGenerated(o *GeneratedOpportunity) error {
	if o.Title == "" {
		return fmt.Errorf("missing title")
	}
	if o.Description == "" {
		return fmt.Errorf("missing description")
	}
	connections, ok := o.Sections[models.SectionConnections]
	if !ok || len(connections.Items) == 0 {
		return fmt.Errorf("missing connections items")
	}
	if len(o.Tags) == 0 {
		return fmt.Errorf("missing tags")
	}
	return nil
}

func trimNonEmpty(values []string) []string {
	var clean []string
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			clean = append(clean, trimmed)
		}
	}
	return clean
}

// extractFirstJSONObject finds the first outermost balanced {...}
func extractFirstJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		char := s[i]

		if escaped {
			escaped = false
			continue
		}

		if char == '\\' {
			escaped = true
			continue
		}

		if char == '"' {
			inString = !inString
			continue
		}

		if !inString {
			if char == '{' {
				depth++
			} else if char == '}' {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}

	return "", false
}
