package resolve

import (
	"github.com/dmorgan81/platebot/internal/config"
	"github.com/dmorgan81/platebot/internal/image"
	"github.com/dmorgan81/platebot/internal/prompt"
	"github.com/samber/lo"
)

type Availability struct {
	Generative bool `json:"generative"`
	Search     bool `json:"search"`
	PromptGen  bool `json:"promptGen"`
}

// CheckAvailability reports which parts of the pipeline have credentials. It never
// touches the network.
func CheckAvailability(keys config.Keys) Availability {
	return Availability{
		Generative: keys.OpenAIKey != "",
		Search:     keys.UnsplashKey != "",
		PromptGen:  keys.GeminiKey != "",
	}
}

// Availability reports the same record for the providers wired into r.
func (r *Resolver) Availability() Availability {
	available := func(name string) bool {
		return lo.ContainsBy(r.Providers, func(p image.Provider) bool {
			return p.Name() == name && p.Available()
		})
	}
	g, ok := r.Prompter.(*prompt.Generator)
	return Availability{
		Generative: available(image.SourceDalle),
		Search:     available(image.SourceUnsplash),
		PromptGen:  ok && g != nil && g.Text != nil,
	}
}
