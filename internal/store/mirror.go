package store

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/dmorgan81/platebot/internal/image"
	"github.com/dmorgan81/platebot/internal/log"
	"github.com/samber/lo"
)

const (
	RecipePrefix    = "recipes/"
	defaultMaxBytes = 20 << 20
)

var (
	slugStrip = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpace = regexp.MustCompile(`[\s-]+`)
)

// Slug turns a recipe name or id into an object key segment.
func Slug(s string) string {
	s = slugStrip.ReplaceAllString(strings.ToLower(s), "")
	return strings.Trim(slugSpace.ReplaceAllString(s, "-"), "-")
}

// Mirror copies generated images into the bucket; provider URLs for generated images
// expire within hours. Photo search results are left alone since they must be hotlinked.
type Mirror struct {
	Client      *http.Client
	Uploader    Uploader
	Invalidator Invalidator
	BaseURL     string
	MaxBytes    int64
}

func (m *Mirror) Mirror(ctx context.Context, slug, recipeName string, res *image.Result) (*image.Result, error) {
	if res == nil || !res.Generated {
		return res, nil
	}
	if slug == "" {
		return nil, fmt.Errorf("mirror: empty object key for %q", recipeName)
	}

	logger := log.FromContextOrDiscard(ctx).WithGroup("mirror").With("recipe", recipeName, "slug", slug)
	logger.Info("mirroring generated image", "url", res.ImageURL)

	data, contentType, err := m.download(ctx, res.ImageURL)
	if err != nil {
		return nil, err
	}

	key := RecipePrefix + slug + extension(contentType)
	source := ""
	if res.Attribution != nil {
		source = res.Attribution.Source
	}
	if err := m.Uploader.Upload(ctx, UploadParams{
		Name:        key,
		Data:        data,
		ContentType: contentType,
		Metadata: map[string]string{
			"recipe":    recipeName,
			"slug":      slug,
			"source":    source,
			"generated": strconv.FormatBool(res.Generated),
		},
	}); err != nil {
		return nil, fmt.Errorf("mirror: uploading %s: %w", key, err)
	}

	if m.Invalidator != nil {
		if err := m.Invalidator.Invalidate(ctx, []string{"/" + key}); err != nil {
			logger.Warn("cdn invalidation failed", "key", key, "error", err)
		}
	}

	url := strings.TrimSuffix(m.BaseURL, "/") + "/" + key
	mirrored := *res
	mirrored.ImageURL = url
	mirrored.ThumbnailURL = url
	logger.Info("mirrored generated image", "key", key)
	return &mirrored, nil
}

func (m *Mirror) download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	client := lo.Ternary(m.Client != nil, m.Client, http.DefaultClient)
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("mirror: download failed with status code: %d", resp.StatusCode)
	}

	limit := lo.Ternary(m.MaxBytes > 0, m.MaxBytes, int64(defaultMaxBytes))
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > limit {
		return nil, "", fmt.Errorf("mirror: image larger than %d bytes", limit)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", fmt.Errorf("mirror: not an image: %s", contentType)
	}
	return data, contentType, nil
}

func extension(contentType string) string {
	switch strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]) {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
