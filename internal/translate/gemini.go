package translate

import (
	"context"
	"fmt"
)

const systemPrompt = `You translate short texts about Indian government health schemes into %s.
Keep scheme names, numbers and currency amounts unchanged.
Reply with the translation only, without quotes or explanations.`

type generator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
}

// GeminiProvider translates with a Gemini model.
type GeminiProvider struct {
	generator generator
}

func NewGeminiProvider(g generator) *GeminiProvider {
	return &GeminiProvider{generator: g}
}

func (p *GeminiProvider) Translate(ctx context.Context, text string, language Language) (string, error) {
	return p.generator.GenerateContent(ctx, fmt.Sprintf(systemPrompt, language.Name), text)
}
