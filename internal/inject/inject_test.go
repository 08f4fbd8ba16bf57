package inject

import (
	"context"
	"strings"
	"testing"

	"github.com/dmorgan81/platebot/internal/config"
	"github.com/dmorgan81/platebot/internal/feed"
	"github.com/dmorgan81/platebot/internal/handler"
	"github.com/dmorgan81/platebot/internal/prompt"
	"github.com/dmorgan81/platebot/internal/store"
	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	return config.Config{
		UnsplashKey:      "unsplash",
		OpenAIImageModel: "dall-e-3",
		UnsplashBaseURL:  "https://api.unsplash.com",
		MaxAttempts:      1,
	}
}

func TestSetupWithoutStorage(t *testing.T) {
	injector := Setup(context.Background(), testConfig())
	t.Cleanup(func() { _ = injector.Shutdown() })

	h, err := do.Invoke[*handler.Handler](injector)
	require.NoError(t, err)

	out, err := h.Handle(context.Background(), handler.Input{Action: handler.ActionAvailability})
	require.NoError(t, err)
	require.NotNil(t, out.Availability)
	assert.False(t, out.Availability.Generative)
	assert.True(t, out.Availability.Search)
	assert.False(t, out.Availability.PromptGen)

	g := do.MustInvoke[*prompt.Generator](injector)
	assert.Nil(t, g.Text)

	_, err = do.Invoke[*store.Mirror](injector)
	assert.Error(t, err)
	_, err = do.Invoke[*feed.Generator](injector)
	assert.Error(t, err)

	_, err = h.Handle(context.Background(), handler.Input{Action: handler.ActionFeed})
	assert.Error(t, err)
}

func TestSetupWithMirrorDir(t *testing.T) {
	cfg := testConfig()
	cfg.MirrorDir = t.TempDir()
	injector := Setup(context.Background(), cfg)
	t.Cleanup(func() { _ = injector.Shutdown() })

	m, err := do.Invoke[*store.Mirror](injector)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(m.BaseURL, "file://"))
	assert.IsType(t, &store.FileUploader{}, m.Uploader)
	assert.Nil(t, m.Invalidator)
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com", publicURL(config.Config{Bucket: "b", PublicURL: "https://cdn.example.com"}))
	assert.Equal(t, "https://b.s3.amazonaws.com", publicURL(config.Config{Bucket: "b"}))
}
