// Package config loads service configuration from the environment and an optional file.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Keys holds the provider credentials. Only their presence matters to the pipeline.
type Keys struct {
	OpenAIKey   string
	UnsplashKey string
	GeminiKey   string
}

type Config struct {
	OpenAIKey        string `mapstructure:"openai_api_key"`
	OpenAIKeyParam   string `mapstructure:"openai_api_key_param"`
	UnsplashKey      string `mapstructure:"unsplash_access_key"`
	UnsplashKeyParam string `mapstructure:"unsplash_access_key_param"`
	GeminiKey        string `mapstructure:"gemini_api_key"`
	GeminiKeyParam   string `mapstructure:"gemini_api_key_param"`

	OpenAIBaseURL    string `mapstructure:"openai_base_url"`
	OpenAIImageModel string `mapstructure:"openai_image_model"`
	GeminiModel      string `mapstructure:"gemini_model"`
	UnsplashBaseURL  string `mapstructure:"unsplash_base_url"`
	UnsplashAppName  string `mapstructure:"unsplash_app_name"`

	Bucket       string `mapstructure:"bucket"`
	Distribution string `mapstructure:"distribution"`
	PublicURL    string `mapstructure:"public_url"`
	MirrorDir    string `mapstructure:"mirror_dir"`

	LogLevel    string        `mapstructure:"log_level"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
}

// Load reads configuration from the environment, layered over the file at path when
// path is not empty.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// every key needs a default so AutomaticEnv can see it during Unmarshal
func setDefaults(v *viper.Viper) {
	for _, k := range []string{
		"openai_api_key", "openai_api_key_param",
		"unsplash_access_key", "unsplash_access_key_param",
		"gemini_api_key", "gemini_api_key_param",
		"bucket", "distribution", "public_url", "mirror_dir",
	} {
		v.SetDefault(k, "")
	}
	v.SetDefault("openai_base_url", "https://api.openai.com/v1/")
	v.SetDefault("openai_image_model", "dall-e-3")
	v.SetDefault("gemini_model", "gemini-1.5-flash")
	v.SetDefault("unsplash_base_url", "https://api.unsplash.com")
	v.SetDefault("unsplash_app_name", "platebot")
	v.SetDefault("log_level", "info")
	v.SetDefault("max_attempts", 3)
	v.SetDefault("backoff", "2s")
}

func (c Config) Validate() error {
	if c.MaxAttempts < 1 {
		return errors.New("max_attempts must be at least 1")
	}
	if c.Backoff < 0 {
		return errors.New("backoff must not be negative")
	}
	if c.Distribution != "" && c.Bucket == "" {
		return errors.New("distribution requires bucket")
	}
	if c.MirrorDir != "" && c.Bucket != "" {
		return errors.New("mirror_dir and bucket are mutually exclusive")
	}
	return nil
}

// FetchFunc resolves a secret stored at path, such as an SSM parameter.
type FetchFunc func(ctx context.Context, path string) (string, error)

// ResolveKeys returns the provider keys, preferring direct values and falling back to
// fetching the configured parameter paths. A key with neither stays empty.
func (c Config) ResolveKeys(ctx context.Context, fetch FetchFunc) (Keys, error) {
	resolve := func(value, path string) (string, error) {
		if value != "" || path == "" {
			return value, nil
		}
		if fetch == nil {
			return "", fmt.Errorf("no fetcher for parameter %s", path)
		}
		v, err := fetch(ctx, path)
		if err != nil {
			return "", fmt.Errorf("fetching parameter %s: %w", path, err)
		}
		return strings.TrimSpace(v), nil
	}

	var keys Keys
	var err error
	if keys.OpenAIKey, err = resolve(c.OpenAIKey, c.OpenAIKeyParam); err != nil {
		return Keys{}, err
	}
	if keys.UnsplashKey, err = resolve(c.UnsplashKey, c.UnsplashKeyParam); err != nil {
		return Keys{}, err
	}
	if keys.GeminiKey, err = resolve(c.GeminiKey, c.GeminiKeyParam); err != nil {
		return Keys{}, err
	}
	return keys, nil
}
