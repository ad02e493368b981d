package content

import (
	"context"
	"fmt"
	"log"
	"strings"

	"leetcode-video-pipeline/types"
)

// Completer is the language model boundary: one prompt in, one text out
type Completer interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Generator produces scripts, scene markup and thumbnail markup for topics
type Generator struct {
	llm    Completer
	rules  Rules
	width  int
	height int
	thumbW int
	thumbH int
}

// NewGenerator wires a model client to the validation rules and canvas sizes
func NewGenerator(llm Completer, rules Rules, width, height, thumbW, thumbH int) *Generator {
	return &Generator{llm: llm, rules: rules, width: width, height: height, thumbW: thumbW, thumbH: thumbH}
}

// GenerateScript asks for the scene list of a topic and validates it
func (g *Generator) GenerateScript(ctx context.Context, topic types.Topic) (*types.Script, error) {
	log.Printf("[content] Generating script for %q...", topic.Title)

	text, err := g.llm.Generate(ctx, ScriptPrompt(topic))
	if err != nil {
		return nil, fmt.Errorf("generate script: %w", err)
	}
	script, err := ParseScript(text, g.rules)
	if err != nil {
		return nil, fmt.Errorf("generate script: %w", err)
	}

	// one schema: metadata always carries title, difficulty and topic
	if strings.TrimSpace(script.Metadata.Title) == "" {
		script.Metadata.Title = topic.Title
	}
	if strings.TrimSpace(script.Metadata.Difficulty) == "" {
		script.Metadata.Difficulty = difficultyOf(topic)
	}
	if strings.TrimSpace(script.Metadata.Topic) == "" {
		script.Metadata.Topic = categoryOf(topic)
	}

	log.Printf("[content] ✅ Script ready: %d scenes", len(script.Scenes))
	return script, nil
}

// GenerateVisuals asks for one HTML payload per script scene and validates it
func (g *Generator) GenerateVisuals(ctx context.Context, script *types.Script) (*types.VisualSet, error) {
	log.Printf("[content] Generating scene visuals for %q...", script.Metadata.Title)

	text, err := g.llm.Generate(ctx, VisualPrompt(script, g.width, g.height))
	if err != nil {
		return nil, fmt.Errorf("generate visuals: %w", err)
	}
	visuals, err := ParseVisuals(text, g.rules)
	if err != nil {
		return nil, fmt.Errorf("generate visuals: %w", err)
	}

	log.Printf("[content] ✅ Visuals ready: %d scenes", len(visuals.Scenes))
	return visuals, nil
}

// GenerateThumbnailHTML asks for a complete thumbnail document
func (g *Generator) GenerateThumbnailHTML(ctx context.Context, script *types.Script) (string, error) {
	text, err := g.llm.Generate(ctx, ThumbnailPrompt(script, g.thumbW, g.thumbH))
	if err != nil {
		return "", fmt.Errorf("generate thumbnail: %w", err)
	}
	doc := ExtractFenced(text)
	if !LooksLikeHTML(doc) {
		return "", fmt.Errorf("generate thumbnail: %w: response is not an HTML document", types.ErrMalformedProviderResponse)
	}
	return doc, nil
}

// LooksLikeHTML reports whether s plausibly is a full HTML document
func LooksLikeHTML(s string) bool {
	lower := strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(lower, "<!doctype html") || strings.HasPrefix(lower, "<html")
}
