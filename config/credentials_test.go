package config

import (
	"errors"
	"testing"
)

func TestResolve_PriorityOrder(t *testing.T) {
	r := NewResolverWithLookup(func(name string) string {
		switch name {
		case "ODPT_ACCESS_TOKEN":
			return "secondary"
		case "ODPT_DEV_TOKEN":
			return "dev"
		}
		return ""
	})

	cred, err := r.Resolve(ProviderODPT)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if cred.Key != "secondary" {
		t.Errorf("expected the earlier source to win, got %q", cred.Key)
	}
	if cred.Source != "ODPT_ACCESS_TOKEN" {
		t.Errorf("expected source ODPT_ACCESS_TOKEN, got %q", cred.Source)
	}
}

func TestResolve_DevTokenFallback(t *testing.T) {
	r := NewResolverWithLookup(func(name string) string {
		if name == "ODPT_DEV_TOKEN" {
			return "dev-only"
		}
		return ""
	})

	cred, err := r.Resolve(ProviderODPT)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if cred.Key != "dev-only" || cred.Source != "ODPT_DEV_TOKEN" {
		t.Errorf("unexpected credential %+v", cred)
	}
}

func TestResolve_NoCredential(t *testing.T) {
	r := NewResolverWithLookup(func(string) string { return "" })

	_, err := r.Resolve(ProviderEkispert)
	if !errors.Is(err, ErrNoCredential) {
		t.Errorf("expected ErrNoCredential, got %v", err)
	}
}

func TestResolve_BlankValuesSkipped(t *testing.T) {
	r := NewResolverWithLookup(func(name string) string {
		if name == "EKISPERT_API_KEY" {
			return "   "
		}
		if name == "EKISPERT_DEV_TOKEN" {
			return "dev"
		}
		return ""
	})

	cred, err := r.Resolve(ProviderEkispert)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if cred.Key != "dev" {
		t.Errorf("whitespace-only value should be skipped, got %q", cred.Key)
	}
}

func TestResolve_UnknownProvider(t *testing.T) {
	r := NewResolverWithLookup(func(string) string { return "anything" })

	_, err := r.Resolve("nope")
	if !errors.Is(err, ErrNoCredential) {
		t.Errorf("expected ErrNoCredential for unknown provider, got %v", err)
	}
}
