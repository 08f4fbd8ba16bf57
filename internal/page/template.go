package page

import (
	"bytes"
	"context"
	_ "embed"
	"html/template"
	"sync"

	"github.com/dmorgan81/platebot/internal/image"
	"github.com/dmorgan81/platebot/internal/log"
)

//go:embed assets/credit.html
var creditTmpl string

var sourceNames = map[string]string{
	image.SourceUnsplash: "Unsplash",
	image.SourceDalle:    "DALL·E",
}

type Params struct {
	Recipe          string
	Photographer    string
	PhotographerURL string
	SourceName      string
	SourceURL       string
}

// ParamsFor builds credit params for a resolved image. ok is false when the result
// carries no attribution.
func ParamsFor(recipe string, res *image.Result) (Params, bool) {
	if res == nil || res.Attribution == nil {
		return Params{}, false
	}
	a := res.Attribution
	name, found := sourceNames[a.Source]
	if !found {
		name = a.Source
	}
	return Params{
		Recipe:          recipe,
		Photographer:    a.Photographer,
		PhotographerURL: a.PhotographerURL,
		SourceName:      name,
		SourceURL:       a.UnsplashURL,
	}, true
}

// Templator renders the attribution credit shown next to a recipe image.
type Templator struct {
	tmpl *template.Template
	once sync.Once
}

func (g *Templator) Template(ctx context.Context, params Params) ([]byte, error) {
	g.once.Do(func() {
		g.tmpl = template.Must(template.New("credit").Parse(creditTmpl))
	})

	log.FromContextOrDiscard(ctx).WithGroup("templator").Debug("rendering image credit", "recipe", params.Recipe)

	var data bytes.Buffer
	if err := g.tmpl.Execute(&data, params); err != nil {
		return nil, err
	}
	return data.Bytes(), nil
}
