package resolver

import (
	"errors"
	"testing"
)

func TestResolve_SingleSegment(t *testing.T) {
	route, err := Resolve([]string{"github"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if route.Identifier != nil {
		t.Fatalf("expected no identifier, got %q", *route.Identifier)
	}
	if len(route.Keywords) != 1 || route.Keywords[0] != "github" {
		t.Fatalf("expected keywords [github], got %v", route.Keywords)
	}
}

func TestResolve_IdentifierInference(t *testing.T) {
	route, err := Resolve([]string{"john", "portfolio"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if route.Identifier == nil || *route.Identifier != "john" {
		t.Fatalf("expected identifier john, got %v", route.Identifier)
	}
	if len(route.Keywords) != 1 || route.Keywords[0] != "portfolio" {
		t.Fatalf("expected keywords [portfolio], got %v", route.Keywords)
	}
}

func TestResolve_ReservedFirstSegmentStaysKeyword(t *testing.T) {
	route, err := Resolve([]string{"api", "docs"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if route.Identifier != nil {
		t.Fatalf("reserved segment must not become an identifier, got %q", *route.Identifier)
	}
	if len(route.Keywords) != 2 {
		t.Fatalf("expected 2 keywords, got %v", route.Keywords)
	}
}

func TestResolve_ShortFirstSegmentStaysKeyword(t *testing.T) {
	// A single-char first segment cannot be an identifier (min length 2).
	route, err := Resolve([]string{"a", "b"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if route.Identifier != nil {
		t.Fatalf("expected keyword-only interpretation, got identifier %q", *route.Identifier)
	}
}

func TestResolve_EmptyPath(t *testing.T) {
	if _, err := Resolve(nil); !errors.Is(err, ErrEmptyPath) {
		t.Fatalf("expected ErrEmptyPath, got %v", err)
	}
}

func TestResolve_TooManySegments(t *testing.T) {
	segs := []string{"a1", "b", "c", "d", "e", "f", "g"}
	if _, err := Resolve(segs); !errors.Is(err, ErrPathTooLong) {
		t.Fatalf("expected ErrPathTooLong, got %v", err)
	}
}

func TestResolve_SixKeywordsWithoutIdentifier(t *testing.T) {
	// Six segments with a non-identifier first segment leaves six keywords,
	// which exceeds the keyword bound.
	segs := []string{"a", "b", "c", "d", "e", "f"}
	if _, err := Resolve(segs); !errors.Is(err, ErrPathTooLong) {
		t.Fatalf("expected ErrPathTooLong, got %v", err)
	}
}

func TestResolve_IdentifierPlusFiveKeywords(t *testing.T) {
	segs := []string{"john", "a", "b", "c", "d", "e"}
	route, err := Resolve(segs)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if route.Identifier == nil || len(route.Keywords) != 5 {
		t.Fatalf("expected identifier + 5 keywords, got %+v", route)
	}
}

func TestResolve_Traversal(t *testing.T) {
	for _, segs := range [][]string{{".."}, {".hidden"}, {"john", "..secret"}} {
		if _, err := Resolve(segs); !errors.Is(err, ErrPathTraversal) {
			t.Fatalf("segments %v: expected ErrPathTraversal, got %v", segs, err)
		}
	}
}

func TestResolve_InvalidKeywordNamed(t *testing.T) {
	_, err := Resolve([]string{"john", "bad keyword"})
	var invalid *InvalidKeywordError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidKeywordError, got %v", err)
	}
	if invalid.Keyword != "bad keyword" {
		t.Fatalf("expected offending keyword in error, got %q", invalid.Keyword)
	}
}

func TestResolve_LowercasesSegments(t *testing.T) {
	route, err := Resolve([]string{"John", "Portfolio"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if route.Identifier == nil || *route.Identifier != "john" {
		t.Fatalf("expected lower-cased identifier, got %v", route.Identifier)
	}
	if route.Keywords[0] != "portfolio" {
		t.Fatalf("expected lower-cased keyword, got %q", route.Keywords[0])
	}
}

func TestResolvePath_DropsEmptySegments(t *testing.T) {
	route, err := ResolvePath("/john//portfolio/")
	if err != nil {
		t.Fatalf("ResolvePath returned error: %v", err)
	}
	if route.Identifier == nil || *route.Identifier != "john" || len(route.Keywords) != 1 {
		t.Fatalf("unexpected route %+v", route)
	}
}

func TestValidateIdentifier(t *testing.T) {
	if err := ValidateIdentifier("john"); err != nil {
		t.Fatalf("valid identifier rejected: %v", err)
	}
	if err := ValidateIdentifier("x"); !errors.Is(err, ErrInvalidIdentifier) {
		t.Fatalf("expected ErrInvalidIdentifier for too-short id, got %v", err)
	}
	if err := ValidateIdentifier("-lead"); !errors.Is(err, ErrInvalidIdentifier) {
		t.Fatalf("expected ErrInvalidIdentifier for bad charset, got %v", err)
	}
	if err := ValidateIdentifier("admin"); !errors.Is(err, ErrReservedIdentifier) {
		t.Fatalf("expected ErrReservedIdentifier, got %v", err)
	}
}

func TestRouteKey(t *testing.T) {
	id := "john"
	withID := Route{Identifier: &id, Keywords: []string{"a", "b"}}
	if withID.Key() != "john/a/b" {
		t.Fatalf("unexpected key %q", withID.Key())
	}
	plain := Route{Keywords: []string{"a", "b"}}
	if plain.Key() != "a/b" {
		t.Fatalf("unexpected key %q", plain.Key())
	}
}
