package importer

import (
	"fmt"

	"eventimporter/internal/classify"
	"eventimporter/internal/logging"
	"eventimporter/internal/sources"
)

// plan orders the strategies for one classification. A matched API strategy
// leads, the web scrape follows, and the image strategy is the universal
// last resort. Image-kind URLs invert that: the URL is not a page, so the
// flyer reader goes first and the web scrape only backs it up (the
// extension may have lied about the content).
func (imp *Importer) plan(c classify.Classification, force sources.Method) ([]sources.Source, error) {
	if force != "" {
		return imp.forcedPlan(c, force)
	}

	switch {
	case c.Kind == classify.KindImage:
		return []sources.Source{imp.registry.Image(), imp.registry.Web()}, nil
	case c.HasAPI():
		list := make([]sources.Source, 0, 3)
		if api, ok := imp.registry.API(string(c.Kind)); ok {
			list = append(list, api)
		} else {
			imp.logger.Warn("api strategy not configured, using fallbacks",
				logging.String(logging.FieldStrategy, string(c.Kind)),
				logging.String(logging.FieldURL, c.URL))
		}
		return append(list, imp.registry.Web(), imp.registry.Image()), nil
	default:
		return []sources.Source{imp.registry.Web(), imp.registry.Image()}, nil
	}
}

// forcedPlan resolves a forced method to exactly one strategy. There is no
// fallback past a forced strategy; its failure is the import's failure.
func (imp *Importer) forcedPlan(c classify.Classification, force sources.Method) ([]sources.Source, error) {
	switch force {
	case sources.MethodAPI:
		if !c.HasAPI() {
			return nil, sources.Wrap(sources.ErrConfiguration, "importer", "plan",
				fmt.Sprintf("no api source matches %s", c.URL), nil)
		}
		api, ok := imp.registry.API(string(c.Kind))
		if !ok {
			return nil, sources.Wrap(sources.ErrConfiguration, "importer", "plan",
				fmt.Sprintf("%s api strategy is not configured", c.Kind), nil)
		}
		return []sources.Source{api}, nil
	case sources.MethodWeb:
		return []sources.Source{imp.registry.Web()}, nil
	case sources.MethodImage:
		return []sources.Source{imp.registry.Image()}, nil
	default:
		return nil, sources.Wrap(sources.ErrConfiguration, "importer", "plan",
			fmt.Sprintf("unknown method %q", force), nil)
	}
}

// band maps a strategy's own 0..1 progress into its slice of the overall
// import, keeping displayed progress monotonic across fallbacks. Strategies
// share the range between classification and persistence.
type band struct {
	start float64
	width float64
}

func attemptBand(index, total int) band {
	if total < 1 {
		total = 1
	}
	width := 0.85 / float64(total)
	return band{start: 0.05 + width*float64(index), width: width}
}

func (b band) at(fraction float64) float64 {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return b.start + b.width*fraction
}
