// Package resolve finds an image for a recipe by generating an image prompt and trying an
// ordered list of image providers, retrying the whole pass with exponential backoff.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmorgan81/platebot/internal/image"
	"github.com/dmorgan81/platebot/internal/log"
	"github.com/dmorgan81/platebot/internal/prompt"
	"github.com/dmorgan81/platebot/internal/timeout"
)

const (
	DefaultMaxAttempts   = 3
	DefaultBackoff       = 2 * time.Second
	DefaultPromptTimeout = 10 * time.Second
)

var ErrEmptyRecipeName = errors.New("recipe name is required")

type Request struct {
	RecipeName        string
	RecipeDescription string
}

type Prompter interface {
	Generate(ctx context.Context, recipeName, recipeDescription string) string
}

// Resolver is read-only after construction and safe for concurrent use.
type Resolver struct {
	Prompter  Prompter
	Providers []image.Provider

	MaxAttempts   int
	Backoff       time.Duration
	PromptTimeout time.Duration

	// Sleep waits between attempts; nil uses a timer that honours ctx.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Resolve returns an image for the recipe, or nil when every attempt failed or ctx was
// cancelled. It never panics or returns an error.
//
// With the defaults a call can take about three minutes in the worst case: three attempts
// of a 10s prompt, a 30s generation and a 15s search, plus 2s and 4s of backoff. Callers
// that need a tighter bound should pass a context with a deadline.
func (r *Resolver) Resolve(ctx context.Context, req Request) *image.Result {
	name := strings.TrimSpace(req.RecipeName)
	logger := log.FromContextOrDiscard(ctx).WithGroup("resolver").With("recipe", name)
	if name == "" {
		logger.Warn("refusing to resolve image for empty recipe name")
		return nil
	}
	req.RecipeName = name

	attempts := r.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			logger.Info("image resolution cancelled", "attempt", attempt, "error", ctx.Err())
			return nil
		}

		logger.Info("starting attempt", "attempt", attempt, "max_attempts", attempts)
		res, err := r.attempt(ctx, req)
		if err != nil && ctx.Err() != nil {
			logger.Info("image resolution cancelled", "attempt", attempt, "error", err)
			return nil
		}
		if err != nil {
			logger.Error("attempt failed unexpectedly", "attempt", attempt, "error", err)
		}
		if res != nil {
			return res
		}

		if attempt == attempts {
			break
		}
		wait := r.backoff(attempt)
		logger.Info("no image found, backing off", "attempt", attempt, "wait", wait.String())
		if err := r.sleep(ctx, wait); err != nil {
			logger.Info("image resolution cancelled", "attempt", attempt, "error", err)
			return nil
		}
	}

	logger.Warn("all attempts exhausted, no image found", "attempts", attempts)
	return nil
}

func (r *Resolver) attempt(ctx context.Context, req Request) (res *image.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			res, err = nil, fmt.Errorf("panic: %v", p)
		}
	}()

	logger := log.FromContextOrDiscard(ctx).WithGroup("resolver").With("recipe", req.RecipeName)
	imagePrompt := r.prompt(ctx, req)

	for _, p := range r.Providers {
		if !p.Available() {
			logger.Debug("skipping unconfigured provider", "provider", p.Name())
			continue
		}
		got, err := fetch(ctx, p, req.RecipeName, imagePrompt)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			logger.Warn("provider failed", "provider", p.Name(), "error", err)
			continue
		}
		if got == nil {
			logger.Info("provider returned no image", "provider", p.Name())
			continue
		}
		logger.Info("provider returned image", "provider", p.Name(), "url", got.ImageURL)
		return got, nil
	}
	return nil, nil
}

func (r *Resolver) prompt(ctx context.Context, req Request) string {
	if r.Prompter == nil {
		return prompt.Fallback(req.RecipeName)
	}
	d := r.PromptTimeout
	if d <= 0 {
		d = DefaultPromptTimeout
	}
	text, err := timeout.Do(ctx, d, func(ctx context.Context) (string, error) {
		return r.Prompter.Generate(ctx, req.RecipeName, req.RecipeDescription), nil
	})
	if err != nil || text == "" {
		log.FromContextOrDiscard(ctx).Warn("prompt stage failed, using fallback prompt",
			"recipe", req.RecipeName, "error", err)
		return prompt.Fallback(req.RecipeName)
	}
	return text
}

// fetch isolates a provider so a panic counts as a failure of that provider only.
func fetch(ctx context.Context, p image.Provider, recipeName, imagePrompt string) (res *image.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			res, err = nil, fmt.Errorf("%s panicked: %v", p.Name(), rec)
		}
	}()
	return p.Fetch(ctx, recipeName, imagePrompt)
}

// backoff is the wait after a failed attempt: Backoff, 2*Backoff, 4*Backoff, ...
func (r *Resolver) backoff(attempt int) time.Duration {
	base := r.Backoff
	if base <= 0 {
		base = DefaultBackoff
	}
	return base << (attempt - 1)
}

func (r *Resolver) sleep(ctx context.Context, d time.Duration) error {
	if r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
