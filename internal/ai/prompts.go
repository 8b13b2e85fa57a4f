package ai

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed config/prompts.yaml
var promptsYAML embed.FS

// PromptConfig holds the fixed instruction and model parameters for one
// generation task.
type PromptConfig struct {
	Model        string  `yaml:"model"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	SystemPrompt string  `yaml:"system_prompt"`
}

type promptRegistry struct {
	GenerateOpportunity PromptConfig `yaml:"generate_opportunity"`
}

func loadPrompts() (*promptRegistry, error) {
	data, err := promptsYAML.ReadFile("config/prompts.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded prompts: %w", err)
	}

	var registry promptRegistry
	if err := yaml.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("failed to parse prompts config: %w", err)
	}
	if registry.GenerateOpportunity.SystemPrompt == "" {
		return nil, fmt.Errorf("prompts config missing generate_opportunity system prompt")
	}

	return &registry, nil
}
