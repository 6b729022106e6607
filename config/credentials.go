package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Provider names understood by the credential resolver.
const (
	ProviderODPT     = "odpt"
	ProviderEkispert = "ekispert"
	ProviderGoogle   = "google"
	ProviderNavitime = "navitime"
	ProviderGemini   = "gemini"
)

// ErrNoCredential is returned when every source for a provider is absent.
// Callers treat this as "skip the provider", not as a request failure.
var ErrNoCredential = errors.New("no credential available")

// Credential is a resolved API key for one provider.
// Resolved once per request and never persisted.
type Credential struct {
	Provider string
	Key      string
	Source   string // name of the environment variable that supplied the key
}

// credentialSources lists, per provider, the environment variables checked
// in priority order. The *_DEV_TOKEN entries replace the hardcoded
// fallback tokens that used to live in source: they are development-only
// and must never carry a production secret.
var credentialSources = map[string][]string{
	ProviderODPT:     {"ODPT_PUBLIC_ACCESS_TOKEN", "ODPT_ACCESS_TOKEN", "ODPT_DEV_TOKEN"},
	ProviderEkispert: {"EKISPERT_API_KEY", "EKISPERT_DEV_TOKEN"},
	ProviderGoogle:   {"GOOGLE_MAPS_API_KEY", "MAPS_API_KEY", "PUBLIC_GOOGLE_MAPS_API_KEY"},
	ProviderNavitime: {"RAPIDAPI_KEY"},
	ProviderGemini:   {"GEMINI_API_KEY"},
}

// Resolver resolves provider API keys from an ordered list of
// environment-backed sources.
type Resolver struct {
	lookup func(string) string
}

// NewResolver creates a resolver backed by the process environment.
func NewResolver() *Resolver {
	return &Resolver{lookup: os.Getenv}
}

// NewResolverWithLookup creates a resolver with a custom lookup function.
// Used by tests to avoid touching the real environment.
func NewResolverWithLookup(lookup func(string) string) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve returns the credential for the given provider, checking each
// declared source in order. It fails with ErrNoCredential only when every
// source is absent.
func (r *Resolver) Resolve(provider string) (Credential, error) {
	sources, ok := credentialSources[provider]
	if !ok {
		return Credential{}, fmt.Errorf("unknown provider %q: %w", provider, ErrNoCredential)
	}

	for _, source := range sources {
		if key := strings.TrimSpace(r.lookup(source)); key != "" {
			return Credential{Provider: provider, Key: key, Source: source}, nil
		}
	}

	return Credential{}, fmt.Errorf("provider %q: %w", provider, ErrNoCredential)
}
