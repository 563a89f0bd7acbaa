package resolver

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	// MaxSegments bounds the number of path segments we will interpret.
	MaxSegments = 6
	// MaxKeywords bounds the keyword sequence of a single route.
	MaxKeywords = 5

	maxKeywordLen    = 30
	minIdentifierLen = 2
	maxIdentifierLen = 20
)

var (
	// ErrEmptyPath signals a path with no usable segments.
	ErrEmptyPath = errors.New("empty path")
	// ErrPathTooLong signals more segments than any route can carry.
	ErrPathTooLong = errors.New("path has too many segments")
	// ErrPathTraversal signals a dot-prefixed or parent-directory segment.
	ErrPathTraversal = errors.New("path contains traversal segment")
	// ErrInvalidIdentifier signals an identifier outside the identifier grammar.
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrReservedIdentifier signals an identifier from the reserved-word set.
	ErrReservedIdentifier = errors.New("identifier is reserved")
)

// InvalidKeywordError names the keyword that violated the keyword grammar.
type InvalidKeywordError struct {
	Keyword string
}

func (e *InvalidKeywordError) Error() string {
	return fmt.Sprintf("invalid keyword %q", e.Keyword)
}

var segmentPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// reservedIdentifiers can never namespace a keyword path; they collide with
// routes and hostnames the service itself owns.
var reservedIdentifiers = map[string]struct{}{
	"api":       {},
	"www":       {},
	"app":       {},
	"admin":     {},
	"dashboard": {},
	"settings":  {},
	"account":   {},
	"login":     {},
	"logout":    {},
	"signup":    {},
	"static":    {},
	"assets":    {},
	"public":    {},
	"health":    {},
	"metrics":   {},
	"status":    {},
	"docs":      {},
	"help":      {},
	"about":     {},
	"support":   {},
}

// Route is the interpreted form of an inbound path: an optional account
// identifier plus one to five keywords, all lower-cased.
type Route struct {
	Identifier *string
	Keywords   []string
}

// Key returns the canonical joined form used for store lookups and the
// bloom-filter membership set.
func (r Route) Key() string {
	if r.Identifier != nil {
		return *r.Identifier + "/" + strings.Join(r.Keywords, "/")
	}
	return strings.Join(r.Keywords, "/")
}

// Resolve interprets decoded, non-empty path segments as a Route.
//
// With two or more segments, a first segment that satisfies the identifier
// grammar and is not reserved is always taken as the identifier; callers
// cannot force a keyword-only reading of an identifier-shaped prefix.
func Resolve(segments []string) (Route, error) {
	if len(segments) == 0 {
		return Route{}, ErrEmptyPath
	}
	if len(segments) > MaxSegments {
		return Route{}, ErrPathTooLong
	}

	lowered := make([]string, len(segments))
	for i, seg := range segments {
		seg = strings.ToLower(strings.TrimSpace(seg))
		// Traversal markers are rejected before any grammar check.
		if strings.HasPrefix(seg, ".") || strings.Contains(seg, "..") {
			return Route{}, ErrPathTraversal
		}
		lowered[i] = seg
	}

	var identifier *string
	keywords := lowered

	if len(lowered) >= 2 && isIdentifier(lowered[0]) {
		id := lowered[0]
		identifier = &id
		keywords = lowered[1:]
	}

	if len(keywords) > MaxKeywords {
		return Route{}, ErrPathTooLong
	}

	for _, kw := range keywords {
		if !isKeyword(kw) {
			return Route{}, &InvalidKeywordError{Keyword: kw}
		}
	}

	return Route{Identifier: identifier, Keywords: keywords}, nil
}

// ResolvePath splits a decoded path on "/" (dropping empty segments) and
// interprets it. Convenience for callers holding the raw path.
func ResolvePath(path string) (Route, error) {
	parts := strings.Split(path, "/")
	segments := parts[:0]
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return Resolve(segments)
}

// ValidateIdentifier checks an explicitly supplied identifier (e.g. from the
// management API) against the identifier grammar and the reserved-word set.
func ValidateIdentifier(id string) error {
	id = strings.ToLower(strings.TrimSpace(id))
	if len(id) < minIdentifierLen || len(id) > maxIdentifierLen || !segmentPattern.MatchString(id) {
		return ErrInvalidIdentifier
	}
	if _, reserved := reservedIdentifiers[id]; reserved {
		return ErrReservedIdentifier
	}
	return nil
}

// ValidateKeyword checks a single keyword against the keyword grammar.
func ValidateKeyword(kw string) error {
	if !isKeyword(strings.ToLower(strings.TrimSpace(kw))) {
		return &InvalidKeywordError{Keyword: kw}
	}
	return nil
}

// IsReserved reports whether id belongs to the reserved-word set.
func IsReserved(id string) bool {
	_, ok := reservedIdentifiers[strings.ToLower(id)]
	return ok
}

func isIdentifier(seg string) bool {
	if len(seg) < minIdentifierLen || len(seg) > maxIdentifierLen {
		return false
	}
	if !segmentPattern.MatchString(seg) {
		return false
	}
	return !IsReserved(seg)
}

func isKeyword(seg string) bool {
	return len(seg) >= 1 && len(seg) <= maxKeywordLen && segmentPattern.MatchString(seg)
}
