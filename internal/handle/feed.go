package handle

import (
	"context"
	"errors"

	"github.com/dmorgan81/platebot/internal/feed"
	"github.com/dmorgan81/platebot/internal/log"
	"github.com/dmorgan81/platebot/internal/store"
	"github.com/samber/do"
)

var ErrNoBucket = errors.New("feed requires a bucket")

type Publisher interface {
	Publish(context.Context, store.Uploader) (string, error)
}

type FeedHandler struct {
	generator Publisher
	uploader  store.Uploader
}

func NewFeedHandler(i *do.Injector) (*FeedHandler, error) {
	h := &FeedHandler{}
	if g, err := do.Invoke[*feed.Generator](i); err == nil {
		h.generator = g
		h.uploader = do.MustInvoke[store.Uploader](i)
	}
	return h, nil
}

// Handle regenerates the feed and returns its object key.
func (h *FeedHandler) Handle(ctx context.Context) (string, error) {
	if h.generator == nil {
		return "", ErrNoBucket
	}
	log.FromContextOrDiscard(ctx).WithGroup("FeedHandler").Info("publishing feed")
	return h.generator.Publish(ctx, h.uploader)
}
