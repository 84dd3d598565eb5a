// Package llm talks to chat-completion providers. Every supported provider
// exposes an OpenAI-compatible API, so one go-openai client configuration
// per provider is enough; the Registry maps the public model ids offered to
// users onto a provider and its upstream model name.
package llm

import (
	"sort"
	"strings"
)

// Provider names.
const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderGroq       = "groq"
	ProviderMistral    = "mistral"
	ProviderXAI        = "xai"
)

// DefaultBaseURLs holds the OpenAI-compatible endpoint of each provider.
var DefaultBaseURLs = map[string]string{
	ProviderOpenAI:     "https://api.openai.com/v1",
	ProviderOpenRouter: "https://openrouter.ai/api/v1",
	ProviderGroq:       "https://api.groq.com/openai/v1",
	ProviderMistral:    "https://api.mistral.ai/v1",
	ProviderXAI:        "https://api.x.ai/v1",
}

// Model is one entry of the catalogue shown to users.
type Model struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Upstream string `json:"-"`
	Premium  bool   `json:"premium"`
}

// DefaultModels is the built-in catalogue.
func DefaultModels() []Model {
	return []Model{
		{ID: "gpt-4o-mini", Name: "GPT-4o mini", Provider: ProviderOpenAI, Upstream: "gpt-4o-mini"},
		{ID: "gpt-4o", Name: "GPT-4o", Provider: ProviderOpenAI, Upstream: "gpt-4o", Premium: true},
		{ID: "o3-mini", Name: "o3-mini", Provider: ProviderOpenAI, Upstream: "o3-mini", Premium: true},
		{ID: "claude-3.5-sonnet", Name: "Claude 3.5 Sonnet", Provider: ProviderOpenRouter, Upstream: "anthropic/claude-3.5-sonnet", Premium: true},
		{ID: "llama-3.3-70b", Name: "Llama 3.3 70B", Provider: ProviderGroq, Upstream: "llama-3.3-70b-versatile"},
		{ID: "mistral-small", Name: "Mistral Small", Provider: ProviderMistral, Upstream: "mistral-small-latest"},
		{ID: "mistral-large", Name: "Mistral Large", Provider: ProviderMistral, Upstream: "mistral-large-latest", Premium: true},
		{ID: "grok-2", Name: "Grok 2", Provider: ProviderXAI, Upstream: "grok-2-latest", Premium: true},
	}
}

// Registry is an immutable lookup over a model catalogue.
type Registry struct {
	models    []Model
	byID      map[string]Model
	defaultID string
}

// NewRegistry indexes models. When defaultID is unknown the first model
// becomes the default.
func NewRegistry(models []Model, defaultID string) *Registry {
	r := &Registry{byID: make(map[string]Model, len(models))}
	for _, m := range models {
		if m.ID == "" {
			continue
		}
		if _, dup := r.byID[m.ID]; dup {
			continue
		}
		if m.Upstream == "" {
			m.Upstream = m.ID
		}
		r.byID[m.ID] = m
		r.models = append(r.models, m)
	}
	if _, ok := r.byID[defaultID]; ok {
		r.defaultID = defaultID
	} else if len(r.models) > 0 {
		r.defaultID = r.models[0].ID
	}
	return r
}

// Lookup returns the model with the given id.
func (r *Registry) Lookup(id string) (Model, bool) {
	m, ok := r.byID[strings.TrimSpace(id)]
	return m, ok
}

// Known reports whether id is in the catalogue.
func (r *Registry) Known(id string) bool {
	_, ok := r.Lookup(id)
	return ok
}

// Default returns the default model.
func (r *Registry) Default() Model { return r.byID[r.defaultID] }

// Resolve returns the first known id among candidates, or the default.
func (r *Registry) Resolve(candidates ...string) Model {
	for _, c := range candidates {
		if m, ok := r.Lookup(c); ok {
			return m
		}
	}
	return r.Default()
}

// List returns the catalogue sorted by provider then id.
func (r *Registry) List() []Model {
	out := make([]Model, len(r.models))
	copy(out, r.models)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Providers returns the distinct providers referenced by the catalogue.
func (r *Registry) Providers() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, m := range r.models {
		if _, ok := seen[m.Provider]; !ok {
			seen[m.Provider] = struct{}{}
			out = append(out, m.Provider)
		}
	}
	sort.Strings(out)
	return out
}
