package image

import (
	"context"
	"sync"
	"time"

	"github.com/dmorgan81/platebot/internal/log"
	"github.com/dmorgan81/platebot/internal/timeout"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	DefaultDalleURL     = "https://api.openai.com/v1/"
	DefaultDalleModel   = "dall-e-3"
	DefaultDalleTimeout = 30 * time.Second
)

// DalleProvider generates an image from the prompt with the OpenAI images API.
// Failures are logged and reported as "no image", never as errors.
type DalleProvider struct {
	Key     string
	BaseURL string
	Model   string
	Timeout time.Duration
	Options []option.RequestOption

	once   sync.Once
	client openai.Client
}

// the sdk seeds its options from OPENAI_* env vars; everything it reads is overridden here
func (p *DalleProvider) newClient() openai.Client {
	base := p.BaseURL
	if base == "" {
		base = DefaultDalleURL
	}
	opts := append([]option.RequestOption{
		option.WithAPIKey(p.Key),
		option.WithBaseURL(base),
		option.WithHeaderDel("OpenAI-Organization"),
		option.WithHeaderDel("OpenAI-Project"),
		option.WithMaxRetries(0),
	}, p.Options...)
	return openai.NewClient(opts...)
}

func (p *DalleProvider) Name() string { return SourceDalle }

func (p *DalleProvider) Available() bool { return p.Key != "" }

func (p *DalleProvider) Fetch(ctx context.Context, recipeName, imagePrompt string) (*Result, error) {
	if !p.Available() {
		return nil, nil
	}

	model := p.Model
	if model == "" {
		model = DefaultDalleModel
	}
	d := p.Timeout
	if d <= 0 {
		d = DefaultDalleTimeout
	}

	logger := log.FromContextOrDiscard(ctx).WithGroup("dalle").With("recipe", recipeName, "model", model)
	logger.Info("generating image via openai")

	p.once.Do(func() { p.client = p.newClient() })

	url, err := timeout.Do(ctx, d, func(ctx context.Context) (string, error) {
		resp, err := p.client.Images.Generate(ctx, openai.ImageGenerateParams{
			Prompt:         imagePrompt,
			Model:          openai.ImageModel(model),
			N:              openai.Int(1),
			Size:           openai.ImageGenerateParamsSize1024x1024,
			Quality:        openai.ImageGenerateParamsQualityStandard,
			ResponseFormat: openai.ImageGenerateParamsResponseFormatURL,
		})
		if err != nil {
			return "", err
		}
		if len(resp.Data) == 0 {
			return "", nil
		}
		return resp.Data[0].URL, nil
	})
	if err != nil {
		logger.Error("image generation failed", "error", err)
		return nil, nil
	}
	if url == "" {
		logger.Warn("openai returned no image url")
		return nil, nil
	}

	logger.Info("received image via openai")
	return &Result{
		ImageURL:     url,
		ThumbnailURL: url,
		Generated:    true,
		Attribution:  &Attribution{Source: SourceDalle},
	}, nil
}
