package image

import (
	"context"
	"errors"
)

const (
	SourceDalle    = "dalle"
	SourceUnsplash = "unsplash"
)

var ErrUnexpectedStatus = errors.New("unexpected response status")

type Attribution struct {
	Source          string `json:"source"`
	Photographer    string `json:"photographer,omitempty"`
	PhotographerURL string `json:"photographerUrl,omitempty"`
	UnsplashURL     string `json:"unsplashUrl,omitempty"`
}

type Result struct {
	ImageURL     string       `json:"imageUrl"`
	ThumbnailURL string       `json:"thumbnailUrl"`
	Generated    bool         `json:"generated,omitempty"`
	Attribution  *Attribution `json:"attribution,omitempty"`
}

// Provider fetches an image for a recipe from one external source. Fetch returns
// (nil, nil) when the source has nothing to offer; an error means the attempt failed.
type Provider interface {
	Name() string
	Available() bool
	Fetch(ctx context.Context, recipeName, imagePrompt string) (*Result, error)
}
