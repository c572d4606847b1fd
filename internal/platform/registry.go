package platform

import "strings"

type Details struct {
	Key          string `json:"key"`
	Label        string `json:"label"`
	AspectRatio  string `json:"aspectRatio"`
	CreativeNote string `json:"creativeNote"`
	PaletteClass string `json:"paletteClass,omitempty"`
	Hook         string `json:"hook,omitempty"`
	DefaultCTA   string `json:"defaultCta,omitempty"`
}

type NamedOption struct {
	Key         string `json:"value"`
	Name        string `json:"label"`
	AspectRatio string `json:"aspectRatio"`
}

// Registry is an ordered, read-only set of platform presets with a
// designated fallback. Lookups never fail.
type Registry struct {
	order      []string
	presets    map[string]Details
	defaultKey string
}

func newRegistry(defaultKey string, list ...Details) *Registry {
	r := &Registry{
		order:      make([]string, 0, len(list)),
		presets:    make(map[string]Details, len(list)),
		defaultKey: defaultKey,
	}
	for _, d := range list {
		r.order = append(r.order, d.Key)
		r.presets[d.Key] = d
	}
	return r
}

func (r *Registry) Lookup(key string) Details {
	if d, ok := r.presets[normalizeKey(key)]; ok {
		return d
	}
	return r.presets[r.defaultKey]
}

func (r *Registry) Has(key string) bool {
	_, ok := r.presets[normalizeKey(key)]
	return ok
}

func (r *Registry) Default() Details {
	return r.presets[r.defaultKey]
}

func (r *Registry) Options() []NamedOption {
	out := make([]NamedOption, 0, len(r.order))
	for _, key := range r.order {
		d := r.presets[key]
		out = append(out, NamedOption{Key: key, Name: d.Label, AspectRatio: d.AspectRatio})
	}
	return out
}

func (r *Registry) Keys() []string {
	return append([]string(nil), r.order...)
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
