package cache

import (
	"strings"

	"github.com/thorvik/keyward/internal/app/model"
)

// Key derivation must be byte-for-byte stable: invalidation recomputes these
// keys from records, and any drift means a stale redirect.

// RouteKey derives the cache key for a resolved (identifier?, keywords) pair.
//
//	url:keywords:{k1}:{k2}:...
//	url:identifier:{id}:keywords:{k1}:{k2}:...
func RouteKey(identifier *string, keywords []string) string {
	var b strings.Builder
	b.WriteString("url:")
	if identifier != nil {
		b.WriteString("identifier:")
		b.WriteString(*identifier)
		b.WriteString(":")
	}
	b.WriteString("keywords:")
	b.WriteString(strings.Join(keywords, ":"))
	return b.String()
}

// KeysFor returns every key that may reference the combination: the full
// multi-keyword key plus the single-keyword projection of each keyword, which
// legacy lookup paths still use.
func KeysFor(identifier *string, keywords []string) []string {
	if len(keywords) == 0 {
		return nil
	}
	keys := []string{RouteKey(identifier, keywords)}
	if len(keywords) > 1 {
		for _, kw := range keywords {
			keys = append(keys, RouteKey(identifier, []string{kw}))
		}
	}
	return keys
}

// InvalidationTargets computes the complete set of keys to delete after a
// write to a link record. prev is the record's state before the write (nil on
// create). A partial set here is a correctness bug, so both the old and new
// identifier/keyword combinations are covered and deduplicated.
func InvalidationTargets(rec, prev *model.Link) []string {
	seen := make(map[string]struct{})
	var targets []string

	add := func(keys []string) {
		for _, k := range keys {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			targets = append(targets, k)
		}
	}

	if rec != nil {
		add(KeysFor(rec.Identifier, rec.Keywords))
	}
	if prev != nil {
		add(KeysFor(prev.Identifier, prev.Keywords))
	}
	return targets
}
