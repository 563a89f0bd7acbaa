package cache

import (
	"testing"

	"github.com/thorvik/keyward/internal/app/model"
)

func TestRouteKey(t *testing.T) {
	if got := RouteKey(nil, []string{"portfolio"}); got != "url:keywords:portfolio" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := RouteKey(nil, []string{"a", "b"}); got != "url:keywords:a:b" {
		t.Fatalf("unexpected key %q", got)
	}
	id := "john"
	if got := RouteKey(&id, []string{"a", "b"}); got != "url:identifier:john:keywords:a:b" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestKeysFor_IncludesSingleKeywordProjections(t *testing.T) {
	keys := KeysFor(nil, []string{"a", "b"})
	want := map[string]bool{
		"url:keywords:a:b": true,
		"url:keywords:a":   true,
		"url:keywords:b":   true,
	}
	if len(keys) != len(want) {
		t.Fatalf("expected %d keys, got %v", len(want), keys)
	}
	for _, k := range keys {
		if !want[k] {
			t.Fatalf("unexpected key %q", k)
		}
	}
}

func TestKeysFor_SingleKeyword(t *testing.T) {
	keys := KeysFor(nil, []string{"a"})
	if len(keys) != 1 || keys[0] != "url:keywords:a" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestInvalidationTargets_CoversOldAndNewCombos(t *testing.T) {
	prev := &model.Link{Keywords: []string{"a", "b"}}
	rec := &model.Link{Keywords: []string{"c"}}

	targets := InvalidationTargets(rec, prev)

	want := []string{
		"url:keywords:c",
		"url:keywords:a:b",
		"url:keywords:a",
		"url:keywords:b",
	}
	got := make(map[string]bool, len(targets))
	for _, k := range targets {
		got[k] = true
	}
	for _, k := range want {
		if !got[k] {
			t.Fatalf("missing invalidation target %q in %v", k, targets)
		}
	}
	if len(targets) != len(want) {
		t.Fatalf("expected %d targets, got %v", len(want), targets)
	}
}

func TestInvalidationTargets_IdentifierChange(t *testing.T) {
	oldID := "john"
	prev := &model.Link{Identifier: &oldID, Keywords: []string{"cv"}}
	rec := &model.Link{Keywords: []string{"cv"}}

	targets := InvalidationTargets(rec, prev)

	got := make(map[string]bool, len(targets))
	for _, k := range targets {
		got[k] = true
	}
	if !got["url:identifier:john:keywords:cv"] || !got["url:keywords:cv"] {
		t.Fatalf("expected both identifier and plain keys, got %v", targets)
	}
}

func TestInvalidationTargets_Dedup(t *testing.T) {
	rec := &model.Link{Keywords: []string{"a"}}
	targets := InvalidationTargets(rec, rec)
	if len(targets) != 1 {
		t.Fatalf("expected deduplicated targets, got %v", targets)
	}
}
