package llm

import "testing"

func TestRegistry_LookupDefaultAndResolve(t *testing.T) {
	r := NewRegistry(DefaultModels(), "gpt-4o-mini")
	if r.Default().ID != "gpt-4o-mini" {
		t.Fatalf("default=%q", r.Default().ID)
	}
	m, ok := r.Lookup("gpt-4o")
	if !ok || !m.Premium || m.Provider != ProviderOpenAI {
		t.Fatalf("lookup gpt-4o: %+v ok=%v", m, ok)
	}
	if got := r.Resolve("", "unknown", "grok-2").ID; got != "grok-2" {
		t.Fatalf("resolve=%q", got)
	}
	if got := r.Resolve("nope").ID; got != "gpt-4o-mini" {
		t.Fatalf("resolve fallback=%q", got)
	}
}

func TestRegistry_UnknownDefaultAndDuplicates(t *testing.T) {
	r := NewRegistry([]Model{
		{ID: "a", Provider: "p2"},
		{ID: "a", Provider: "dup"},
		{ID: "b", Provider: "p1"},
		{ID: ""},
	}, "zzz")
	if r.Default().ID != "a" {
		t.Fatalf("default=%q", r.Default().ID)
	}
	list := r.List()
	if len(list) != 2 || list[0].ID != "b" || list[1].ID != "a" {
		t.Fatalf("list=%+v", list)
	}
	if m, _ := r.Lookup("a"); m.Upstream != "a" || m.Provider != "p2" {
		t.Fatalf("a=%+v", m)
	}
	if ps := r.Providers(); len(ps) != 2 || ps[0] != "p1" {
		t.Fatalf("providers=%v", ps)
	}
}
