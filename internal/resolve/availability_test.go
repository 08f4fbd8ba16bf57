package resolve

import (
	"context"
	"testing"

	"github.com/dmorgan81/platebot/internal/config"
	"github.com/dmorgan81/platebot/internal/image"
	"github.com/dmorgan81/platebot/internal/prompt"
	"github.com/stretchr/testify/assert"
)

type stubText struct{}

func (stubText) GenerateText(context.Context, string) (string, error) { return "", nil }

func TestCheckAvailability(t *testing.T) {
	assert.Equal(t, Availability{}, CheckAvailability(config.Keys{}))
	assert.Equal(t, Availability{Generative: true, PromptGen: true},
		CheckAvailability(config.Keys{OpenAIKey: "sk", GeminiKey: "g"}))
	assert.Equal(t, Availability{Search: true}, CheckAvailability(config.Keys{UnsplashKey: "ak"}))
}

func TestResolverAvailability(t *testing.T) {
	r := &Resolver{
		Prompter: &prompt.Generator{Text: stubText{}},
		Providers: []image.Provider{
			&image.DalleProvider{},
			&image.UnsplashProvider{Key: "ak"},
		},
	}
	assert.Equal(t, Availability{Search: true, PromptGen: true}, r.Availability())

	assert.Equal(t, Availability{}, (&Resolver{}).Availability())
	assert.Equal(t, Availability{}, (&Resolver{Prompter: &prompt.Generator{}}).Availability())
}
