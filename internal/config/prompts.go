package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
)

// Embedded prompt defaults; each can be replaced by a file path in config.
//
//go:embed prompts/structurer.md
var defaultStructurerPrompt string

//go:embed prompts/structurer_schema.json
var defaultStructurerSchema string

//go:embed prompts/content_x.md
var defaultContentPromptX string

//go:embed prompts/image.md
var defaultImagePrompt string

var defaultPlatformPrompts = map[string]string{
	"x": defaultContentPromptX,
}

// StructurerInstructions returns the processor prompt, preferring the override file.
func (c Config) StructurerInstructions() (string, error) {
	return promptOrFile(c.Structurer.InstructionsPath, defaultStructurerPrompt)
}

// StructurerSchema returns the JSON schema the structurer response must follow.
func (c Config) StructurerSchema() (string, error) {
	return promptOrFile(c.Structurer.SchemaPath, defaultStructurerSchema)
}

// ImageInstructions returns the image prompt prefix.
func (c Config) ImageInstructions() (string, error) {
	if strings.TrimSpace(c.Image.Instructions) != "" {
		return c.Image.Instructions, nil
	}
	return promptOrFile(c.Image.InstructionsPath, defaultImagePrompt)
}

// PlatformInstructions resolves inline, file, or embedded instructions for a platform.
func (p PlatformConfig) PlatformInstructions() (string, error) {
	if strings.TrimSpace(p.Instructions) != "" {
		return p.Instructions, nil
	}
	fallback := defaultPlatformPrompts[strings.ToLower(p.Name)]
	if p.InstructionsPath == "" && fallback == "" {
		return "", fmt.Errorf("platform %s has no instructions", p.Name)
	}
	return promptOrFile(p.InstructionsPath, fallback)
}

func promptOrFile(path, fallback string) (string, error) {
	if path == "" {
		return strings.TrimSpace(fallback), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read prompt %s: %w", path, err)
	}
	return strings.TrimSpace(string(raw)), nil
}
