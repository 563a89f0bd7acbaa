package model

import (
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Link describes a keyword-path mapping stored in Postgres. The pair
// (identifier, keyword set) is unique among active records; KeywordsKey holds
// the sorted, joined keyword set so that uniqueness and exact-set lookups stay
// a single indexed column.
type Link struct {
	ID             string         `db:"id" gorm:"primaryKey;size:36"`
	OwnerUserID    string         `db:"owner_user_id" gorm:"size:36;index;not null"`
	Identifier     *string        `db:"identifier" gorm:"size:20;index"`
	Keywords       pq.StringArray `db:"keywords" gorm:"type:text[];not null"`
	KeywordsKey    string         `db:"keywords_key" gorm:"size:160;index;not null"`
	DestinationURL string         `db:"destination_url" gorm:"type:text;not null"`
	IsActive       bool           `db:"is_active" gorm:"not null;default:true"`
	ExpiresAt      *time.Time     `db:"expires_at" gorm:"index"`
	ClickCount     int64          `db:"click_count" gorm:"not null;default:0"`
	LastClickedAt  *time.Time     `db:"last_clicked_at"`
	CreatedAt      time.Time      `db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `db:"updated_at" gorm:"autoUpdateTime"`
}

// KeywordSetKey canonicalizes a keyword sequence as a sorted, "/"-joined
// string so [a b] and [b a] address the same record.
func KeywordSetKey(keywords []string) string {
	sorted := make([]string, len(keywords))
	copy(sorted, keywords)
	sort.Strings(sorted)
	return strings.Join(sorted, "/")
}

// Expired reports whether the record has an expiry in the past.
func (l *Link) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

// Resolvable reports whether the record may serve redirects right now.
func (l *Link) Resolvable(now time.Time) bool {
	return l.IsActive && !l.Expired(now)
}
