package inject

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/dmorgan81/platebot/internal/config"
	"github.com/dmorgan81/platebot/internal/feed"
	"github.com/dmorgan81/platebot/internal/handle"
	"github.com/dmorgan81/platebot/internal/handler"
	"github.com/dmorgan81/platebot/internal/image"
	"github.com/dmorgan81/platebot/internal/log"
	"github.com/dmorgan81/platebot/internal/page"
	"github.com/dmorgan81/platebot/internal/param"
	"github.com/dmorgan81/platebot/internal/prompt"
	"github.com/dmorgan81/platebot/internal/resolve"
	"github.com/dmorgan81/platebot/internal/store"
	"github.com/samber/do"
	"github.com/samber/lo"
)

// Setup wires the service graph. AWS clients are only built when something invokes
// them, so a configuration with direct keys and no bucket runs without credentials.
func Setup(ctx context.Context, cfg config.Config) *do.Injector {
	log := log.FromContextOrDiscard(ctx)

	injector := do.NewWithOpts(&do.InjectorOpts{
		Logf: func(format string, args ...any) {
			log.Debug(fmt.Sprintf(format, args...))
		},
	})
	do.ProvideValue[config.Config](injector, cfg)

	do.Provide[aws.Config](injector, func(i *do.Injector) (aws.Config, error) {
		return awsconfig.LoadDefaultConfig(ctx)
	})
	do.Provide[*ssm.Client](injector, func(i *do.Injector) (*ssm.Client, error) {
		return ssm.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.Provide[*s3.Client](injector, func(i *do.Injector) (*s3.Client, error) {
		return s3.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.Provide[*cloudfront.Client](injector, func(i *do.Injector) (*cloudfront.Client, error) {
		return cloudfront.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.ProvideValue[*http.Client](injector, http.DefaultClient)

	do.Provide[param.Fetcher](injector, param.NewParameterStoreFetcher)
	do.Provide[config.Keys](injector, func(i *do.Injector) (config.Keys, error) {
		return cfg.ResolveKeys(ctx, func(ctx context.Context, path string) (string, error) {
			fetcher, err := do.Invoke[param.Fetcher](i)
			if err != nil {
				return "", err
			}
			return fetcher.Fetch(ctx, path)
		})
	})

	do.Provide[*prompt.Generator](injector, newPromptGenerator(ctx))
	do.Provide[*resolve.Resolver](injector, newResolver)
	do.Provide[*page.Templator](injector, func(i *do.Injector) (*page.Templator, error) {
		return &page.Templator{}, nil
	})

	provideStorage(injector)

	do.Provide[*handle.ImageHandler](injector, handle.NewImageHandler)
	do.Provide[*handle.AvailabilityHandler](injector, handle.NewAvailabilityHandler)
	do.Provide[*handle.FeedHandler](injector, handle.NewFeedHandler)
	do.Provide[*handler.Handler](injector, handler.NewHandler)

	return injector
}

// A failing Gemini client degrades to the fallback prompt rather than failing startup.
func newPromptGenerator(ctx context.Context) func(*do.Injector) (*prompt.Generator, error) {
	return func(i *do.Injector) (*prompt.Generator, error) {
		cfg := do.MustInvoke[config.Config](i)
		keys := do.MustInvoke[config.Keys](i)

		g := &prompt.Generator{Timeout: prompt.DefaultTimeout}
		if keys.GeminiKey == "" {
			return g, nil
		}
		text, err := prompt.NewGeminiTextGenerator(ctx, keys.GeminiKey, cfg.GeminiModel)
		if err != nil {
			log.FromContextOrDiscard(ctx).Warn("gemini unavailable, using fallback prompts", "error", err)
			return g, nil
		}
		g.Text = text
		return g, nil
	}
}

func newResolver(i *do.Injector) (*resolve.Resolver, error) {
	cfg := do.MustInvoke[config.Config](i)
	keys := do.MustInvoke[config.Keys](i)
	client := do.MustInvoke[*http.Client](i)

	return &resolve.Resolver{
		Prompter: do.MustInvoke[*prompt.Generator](i),
		Providers: []image.Provider{
			&image.DalleProvider{
				Key:     keys.OpenAIKey,
				BaseURL: cfg.OpenAIBaseURL,
				Model:   cfg.OpenAIImageModel,
				Timeout: image.DefaultDalleTimeout,
			},
			&image.UnsplashProvider{
				Client:  client,
				Key:     keys.UnsplashKey,
				BaseURL: cfg.UnsplashBaseURL,
				AppName: cfg.UnsplashAppName,
				Timeout: image.DefaultUnsplashTimeout,
			},
		},
		MaxAttempts:   cfg.MaxAttempts,
		Backoff:       cfg.Backoff,
		PromptTimeout: resolve.DefaultPromptTimeout,
	}, nil
}

// provideStorage registers the uploader and mirror when images have somewhere to go: an
// S3 bucket, or a local directory when running outside AWS. The feed is bucket only.
func provideStorage(injector *do.Injector) {
	cfg := do.MustInvoke[config.Config](injector)

	switch {
	case cfg.Bucket != "":
		do.Provide[store.Uploader](injector, func(i *do.Injector) (store.Uploader, error) {
			return &store.S3Uploader{Client: do.MustInvoke[*s3.Client](i), Bucket: cfg.Bucket}, nil
		})
		if cfg.Distribution != "" {
			do.Provide[store.Invalidator](injector, func(i *do.Injector) (store.Invalidator, error) {
				return &store.CloudFrontInvalidator{
					Client:       do.MustInvoke[*cloudfront.Client](i),
					Distribution: cfg.Distribution,
				}, nil
			})
		}
		do.Provide[*feed.Generator](injector, func(i *do.Injector) (*feed.Generator, error) {
			return &feed.Generator{
				Client:  do.MustInvoke[*s3.Client](i),
				Bucket:  cfg.Bucket,
				BaseURL: publicURL(cfg),
			}, nil
		})
	case cfg.MirrorDir != "":
		do.Provide[store.Uploader](injector, func(i *do.Injector) (store.Uploader, error) {
			return &store.FileUploader{Dir: cfg.MirrorDir}, nil
		})
	default:
		return
	}

	do.Provide[*store.Mirror](injector, func(i *do.Injector) (*store.Mirror, error) {
		m := &store.Mirror{
			Client:   do.MustInvoke[*http.Client](i),
			Uploader: do.MustInvoke[store.Uploader](i),
			BaseURL:  publicURL(cfg),
		}
		if inv, err := do.Invoke[store.Invalidator](i); err == nil {
			m.Invalidator = inv
		}
		return m, nil
	})
}

func publicURL(cfg config.Config) string {
	if cfg.PublicURL != "" {
		return cfg.PublicURL
	}
	if cfg.Bucket != "" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com", cfg.Bucket)
	}
	return "file://" + lo.Must(filepath.Abs(cfg.MirrorDir))
}
