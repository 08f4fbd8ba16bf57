package handle

import (
	"context"

	"github.com/dmorgan81/platebot/internal/log"
	"github.com/dmorgan81/platebot/internal/resolve"
	"github.com/samber/do"
)

type AvailabilityReporter interface {
	Availability() resolve.Availability
}

// AvailabilityHandler reports the providers the resolver was built with, so a Gemini
// client that failed to start shows up as no prompt generation.
type AvailabilityHandler struct {
	reporter AvailabilityReporter
}

func NewAvailabilityHandler(i *do.Injector) (*AvailabilityHandler, error) {
	return &AvailabilityHandler{reporter: do.MustInvoke[*resolve.Resolver](i)}, nil
}

func (h *AvailabilityHandler) Handle(ctx context.Context) resolve.Availability {
	a := h.reporter.Availability()
	log.FromContextOrDiscard(ctx).WithGroup("AvailabilityHandler").Info("reporting provider availability",
		"generative", a.Generative, "search", a.Search, "promptGen", a.PromptGen)
	return a
}
