package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmorgan81/platebot/internal/handle"
	"github.com/dmorgan81/platebot/internal/image"
	"github.com/dmorgan81/platebot/internal/log"
	"github.com/dmorgan81/platebot/internal/resolve"
	"github.com/samber/do"
	"github.com/samber/lo"
)

const (
	ActionResolve      = "resolve"
	ActionAvailability = "availability"
	ActionFeed         = "feed"
)

type Input struct {
	Action            string `json:"action,omitempty"`
	RecipeID          string `json:"recipeId,omitempty"`
	RecipeName        string `json:"recipeName,omitempty"`
	RecipeDescription string `json:"recipeDescription,omitempty"`
}

func (i Input) toImageInput() handle.ImageInput {
	return handle.ImageInput{
		RecipeID:          i.RecipeID,
		RecipeName:        i.RecipeName,
		RecipeDescription: i.RecipeDescription,
	}
}

type Output struct {
	Action       string                `json:"action"`
	Image        *image.Result         `json:"image"`
	CreditHTML   string                `json:"creditHtml,omitempty"`
	Availability *resolve.Availability `json:"availability,omitempty"`
	FeedKey      string                `json:"feedKey,omitempty"`
}

type ImageHandler interface {
	Handle(context.Context, handle.ImageInput) (handle.ImageOutput, error)
}

type AvailabilityHandler interface {
	Handle(context.Context) resolve.Availability
}

type FeedHandler interface {
	Handle(context.Context) (string, error)
}

// Handler routes a lambda invocation to the handler for its action.
type Handler struct {
	image        ImageHandler
	availability AvailabilityHandler
	feed         FeedHandler
}

func NewHandler(i *do.Injector) (*Handler, error) {
	return &Handler{
		image:        do.MustInvoke[*handle.ImageHandler](i),
		availability: do.MustInvoke[*handle.AvailabilityHandler](i),
		feed:         do.MustInvoke[*handle.FeedHandler](i),
	}, nil
}

func (h *Handler) Handle(ctx context.Context, input Input) (Output, error) {
	action := lo.Ternary(input.Action != "", strings.ToLower(strings.TrimSpace(input.Action)), ActionResolve)
	log := log.FromContextOrDiscard(ctx).WithGroup("Handler").With("action", action)
	log.Info("handling lambda invocation")

	out := Output{Action: action}
	switch action {
	case ActionResolve:
		res, err := h.image.Handle(ctx, input.toImageInput())
		if err != nil {
			return Output{}, err
		}
		out.Image, out.CreditHTML = res.Image, res.CreditHTML
	case ActionAvailability:
		a := h.availability.Handle(ctx)
		out.Availability = &a
	case ActionFeed:
		key, err := h.feed.Handle(ctx)
		if err != nil {
			return Output{}, err
		}
		out.FeedKey = key
	default:
		return Output{}, fmt.Errorf("unknown action %q", input.Action)
	}
	return out, nil
}
