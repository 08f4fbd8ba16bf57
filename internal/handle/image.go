package handle

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmorgan81/platebot/internal/image"
	"github.com/dmorgan81/platebot/internal/log"
	"github.com/dmorgan81/platebot/internal/page"
	"github.com/dmorgan81/platebot/internal/resolve"
	"github.com/dmorgan81/platebot/internal/store"
	"github.com/samber/do"
	"github.com/samber/lo"
)

type ImageInput struct {
	RecipeID          string `json:"recipeId,omitempty"`
	RecipeName        string `json:"recipeName"`
	RecipeDescription string `json:"recipeDescription,omitempty"`
}

func (i ImageInput) toRequest() resolve.Request {
	return resolve.Request{
		RecipeName:        strings.TrimSpace(i.RecipeName),
		RecipeDescription: strings.TrimSpace(i.RecipeDescription),
	}
}

func (i ImageInput) slug() string {
	return store.Slug(lo.Ternary(i.RecipeID != "", i.RecipeID, i.RecipeName))
}

type ImageOutput struct {
	Image      *image.Result `json:"image"`
	CreditHTML string        `json:"creditHtml,omitempty"`
}

type Resolver interface {
	Resolve(context.Context, resolve.Request) *image.Result
}

type Mirror interface {
	Mirror(ctx context.Context, slug, recipeName string, res *image.Result) (*image.Result, error)
}

type ImageHandler struct {
	resolver  Resolver
	mirror    Mirror
	templator *page.Templator
}

func NewImageHandler(i *do.Injector) (*ImageHandler, error) {
	h := &ImageHandler{
		resolver:  do.MustInvoke[*resolve.Resolver](i),
		templator: do.MustInvoke[*page.Templator](i),
	}
	if m, err := do.Invoke[*store.Mirror](i); err == nil {
		h.mirror = m
	}
	return h, nil
}

// Handle resolves an image for the recipe. Finding no image is not an error: the output
// carries a nil Image and the caller shows its placeholder.
func (h *ImageHandler) Handle(ctx context.Context, input ImageInput) (ImageOutput, error) {
	req := input.toRequest()
	if req.RecipeName == "" {
		return ImageOutput{}, resolve.ErrEmptyRecipeName
	}

	log := log.FromContextOrDiscard(ctx).WithGroup("ImageHandler").With("recipe", req.RecipeName)
	log.Info("handling image request")

	res := h.resolver.Resolve(ctx, req)
	if res == nil {
		log.Info("no image available for recipe")
		return ImageOutput{}, nil
	}

	if h.mirror != nil {
		mirrored, err := h.mirror.Mirror(ctx, input.slug(), req.RecipeName, res)
		if err != nil {
			log.Warn("mirroring failed, returning provider urls", "error", err)
		} else {
			res = mirrored
		}
	}

	out := ImageOutput{Image: res}
	if params, ok := page.ParamsFor(req.RecipeName, res); ok {
		html, err := h.templator.Template(ctx, params)
		if err != nil {
			return ImageOutput{}, fmt.Errorf("rendering credit: %w", err)
		}
		out.CreditHTML = string(html)
	}
	return out, nil
}
