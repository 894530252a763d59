package sources

import (
	"errors"
	"fmt"
	"sort"
)

// Registry indexes the wired strategies so the importer can turn a
// classification into an ordered attempt list. API strategies are keyed by
// name; the web and image strategies are singletons that back every URL
// kind.
type Registry struct {
	web   Source
	image Source
	apis  map[string]Source
}

// NewRegistry builds a registry from the wired strategies. The web and
// image strategies are mandatory fallbacks; API strategies are optional
// and nil entries are skipped, so callers can pass sources that may not
// have been configured. Duplicate API names are rejected at startup rather
// than surfacing mid-import.
func NewRegistry(web, image Source, apis ...Source) (*Registry, error) {
	if web == nil {
		return nil, errors.New("web strategy is required")
	}
	if image == nil {
		return nil, errors.New("image strategy is required")
	}
	r := &Registry{web: web, image: image, apis: make(map[string]Source, len(apis))}
	for _, src := range apis {
		if src == nil {
			continue
		}
		name := src.Name()
		if _, dup := r.apis[name]; dup {
			return nil, fmt.Errorf("duplicate api strategy %q", name)
		}
		r.apis[name] = src
	}
	return r, nil
}

// API returns the named API strategy, if one was wired.
func (r *Registry) API(name string) (Source, bool) {
	src, ok := r.apis[name]
	return src, ok
}

// Web returns the page-scrape strategy.
func (r *Registry) Web() Source { return r.web }

// Image returns the flyer-reading strategy.
func (r *Registry) Image() Source { return r.image }

// APINames lists the wired API strategies in sorted order.
func (r *Registry) APINames() []string {
	names := make([]string, 0, len(r.apis))
	for name := range r.apis {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
