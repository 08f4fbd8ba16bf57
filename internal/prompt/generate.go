package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmorgan81/platebot/internal/log"
	"github.com/dmorgan81/platebot/internal/timeout"
)

// DefaultTimeout bounds a single text generation call.
const DefaultTimeout = 10 * time.Second

var errEmptyResponse = errors.New("empty response from text generator")

type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Generator turns a recipe into an image generation prompt. A nil Text always yields the
// fallback prompt.
type Generator struct {
	Text    TextGenerator
	Timeout time.Duration
}

// Fallback is the prompt used whenever text generation is unavailable or fails.
func Fallback(recipeName string) string {
	return fmt.Sprintf("Professional food photography of %s, beautifully plated on a white ceramic plate, "+
		"garnished appropriately, soft natural lighting, appetizing presentation, high quality, detailed.", recipeName)
}

// Instruction is the request sent to the text generator.
func Instruction(recipeName, recipeDescription string) string {
	var sb strings.Builder
	sb.WriteString("Write a detailed, photorealistic visual description of the finished dish below, ")
	sb.WriteString("to be used as the prompt for an AI image generator.\n\n")
	sb.WriteString("Recipe: " + recipeName + "\n")
	if d := strings.TrimSpace(recipeDescription); d != "" {
		sb.WriteString("Description: " + d + "\n")
	}
	sb.WriteString("\nDescribe the plating and the dish or bowl it is served in, the lighting, the garnish, ")
	sb.WriteString("and the colors and textures of the food, framed like professional food photography ")
	sb.WriteString("for a cookbook or magazine. Make it look appetizing. Keep it under 200 words and ")
	sb.WriteString("reply with the description only.")
	return sb.String()
}

// Generate never fails; any problem with the text generator degrades to Fallback.
func (g *Generator) Generate(ctx context.Context, recipeName, recipeDescription string) string {
	logger := log.FromContextOrDiscard(ctx).WithGroup("prompt").With("recipe", recipeName)

	if g.Text == nil {
		logger.Info("no text generator configured, using fallback prompt")
		return Fallback(recipeName)
	}

	d := g.Timeout
	if d <= 0 {
		d = DefaultTimeout
	}

	text, err := timeout.Do(ctx, d, func(ctx context.Context) (string, error) {
		text, err := g.Text.GenerateText(ctx, Instruction(recipeName, recipeDescription))
		if err != nil {
			return "", err
		}
		if text = strings.TrimSpace(text); text == "" {
			return "", errEmptyResponse
		}
		return text, nil
	})
	if err != nil {
		logger.Warn("prompt generation failed, using fallback prompt", "error", err)
		return Fallback(recipeName)
	}

	logger.Debug("generated image prompt", "prompt", text)
	return text
}

// Shutdown releases the text generator's client, if it holds one.
func (g *Generator) Shutdown() error {
	if c, ok := g.Text.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
