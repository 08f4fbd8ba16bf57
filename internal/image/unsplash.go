package image

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/dmorgan81/platebot/internal/log"
	"github.com/dmorgan81/platebot/internal/timeout"
)

const (
	DefaultUnsplashURL     = "https://api.unsplash.com"
	DefaultUnsplashTimeout = 15 * time.Second
)

var (
	nonAlnum   = regexp.MustCompile(`[^a-z0-9\s]`)
	whitespace = regexp.MustCompile(`\s+`)
)

// SearchQuery turns a recipe name into a URL-safe photo search query.
func SearchQuery(recipeName string) string {
	q := nonAlnum.ReplaceAllString(strings.ToLower(recipeName), "")
	q = whitespace.ReplaceAllString(strings.TrimSpace(q), "+")
	if q == "" {
		return "food"
	}
	return q + "+food"
}

type unsplashSearch struct {
	Results []struct {
		URLs struct {
			Regular string `json:"regular"`
			Small   string `json:"small"`
		} `json:"urls"`
		User struct {
			Name  string `json:"name"`
			Links struct {
				HTML string `json:"html"`
			} `json:"links"`
		} `json:"user"`
		Links struct {
			HTML string `json:"html"`
		} `json:"links"`
	} `json:"results"`
}

// UnsplashProvider searches Unsplash for a real photo of the dish. AppName, when set, is
// sent as the utm_source on attribution links.
type UnsplashProvider struct {
	Client  *http.Client
	Key     string
	BaseURL string
	AppName string
	Timeout time.Duration
}

func (p *UnsplashProvider) Name() string { return SourceUnsplash }

func (p *UnsplashProvider) Available() bool { return p.Key != "" }

func (p *UnsplashProvider) Fetch(ctx context.Context, recipeName, _ string) (*Result, error) {
	if !p.Available() {
		return nil, nil
	}

	query := SearchQuery(recipeName)
	logger := log.FromContextOrDiscard(ctx).WithGroup("unsplash").With("recipe", recipeName, "query", query)
	logger.Info("searching photos via unsplash")

	d := p.Timeout
	if d <= 0 {
		d = DefaultUnsplashTimeout
	}

	body, err := timeout.Do(ctx, d, func(ctx context.Context) (*unsplashSearch, error) {
		return p.search(ctx, query)
	})
	if err != nil {
		return nil, err
	}
	if len(body.Results) == 0 {
		logger.Info("no photos found")
		return nil, nil
	}

	photo := body.Results[0]
	logger.Info("found photo via unsplash", "photographer", photo.User.Name)
	return &Result{
		ImageURL:     photo.URLs.Regular,
		ThumbnailURL: photo.URLs.Small,
		Attribution: &Attribution{
			Source:          SourceUnsplash,
			Photographer:    photo.User.Name,
			PhotographerURL: p.referral(photo.User.Links.HTML),
			UnsplashURL:     p.referral(photo.Links.HTML),
		},
	}, nil
}

func (p *UnsplashProvider) search(ctx context.Context, query string) (*unsplashSearch, error) {
	base := p.BaseURL
	if base == "" {
		base = DefaultUnsplashURL
	}
	// query is already URL safe; QueryEscape would turn its '+' separators into %2B
	u := fmt.Sprintf("%s/search/photos?query=%s&per_page=1&orientation=landscape&client_id=%s",
		strings.TrimSuffix(base, "/"), query, url.QueryEscape(p.Key))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Version", "v1")

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unsplash: %w %d: %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var body unsplashSearch
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("unsplash: decoding response: %w", err)
	}
	return &body, nil
}

func (p *UnsplashProvider) referral(link string) string {
	if link == "" || p.AppName == "" {
		return link
	}
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	q := u.Query()
	q.Set("utm_source", p.AppName)
	q.Set("utm_medium", "referral")
	u.RawQuery = q.Encode()
	return u.String()
}
