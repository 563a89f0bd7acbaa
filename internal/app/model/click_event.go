package model

import "time"

// ClickEvent is one telemetry record describing a single resolved redirect.
// Cheap fields are filled synchronously at request time; geo fields are
// enriched best-effort before the event is queued.
type ClickEvent struct {
	ID           string    `db:"id" gorm:"primaryKey;size:36" json:"id"`
	LinkID       string    `db:"link_id" gorm:"size:36;index;not null" json:"link_id"`
	VisitorID    string    `db:"visitor_id" gorm:"size:64;index" json:"visitor_id"`
	IPAddress    string    `db:"ip_address" gorm:"size:45" json:"ip_address"`
	UserAgentRaw string    `db:"user_agent_raw" gorm:"size:512" json:"user_agent_raw"`
	Referer      *string   `db:"referer" gorm:"size:512" json:"referer,omitempty"`
	DeviceType   string    `db:"device_type" gorm:"size:16" json:"device_type"`
	BrowserName  string    `db:"browser_name" gorm:"size:32" json:"browser_name"`
	BrowserVer   string    `db:"browser_version" gorm:"column:browser_version;size:32" json:"browser_version"`
	OSName       string    `db:"os_name" gorm:"size:32" json:"os_name"`
	OSVer        string    `db:"os_version" gorm:"column:os_version;size:32" json:"os_version"`
	IsBot        bool      `db:"is_bot" gorm:"not null;default:false" json:"is_bot"`
	UTMSource    *string   `db:"utm_source" gorm:"size:128" json:"utm_source,omitempty"`
	UTMMedium    *string   `db:"utm_medium" gorm:"size:128" json:"utm_medium,omitempty"`
	UTMCampaign  *string   `db:"utm_campaign" gorm:"size:128" json:"utm_campaign,omitempty"`
	UTMTerm      *string   `db:"utm_term" gorm:"size:128" json:"utm_term,omitempty"`
	UTMContent   *string   `db:"utm_content" gorm:"size:128" json:"utm_content,omitempty"`
	CountryCode  *string   `db:"country_code" gorm:"size:2" json:"country_code,omitempty"`
	CountryName  *string   `db:"country_name" gorm:"size:64" json:"country_name,omitempty"`
	City         *string   `db:"city" gorm:"size:64" json:"city,omitempty"`
	Region       *string   `db:"region" gorm:"size:64" json:"region,omitempty"`
	PostalCode   *string   `db:"postal_code" gorm:"size:16" json:"postal_code,omitempty"`
	Latitude     *float64  `db:"latitude" json:"latitude,omitempty"`
	Longitude    *float64  `db:"longitude" json:"longitude,omitempty"`
	Timezone     *string   `db:"timezone" gorm:"size:48" json:"timezone,omitempty"`
	ResponseMs   int64     `db:"response_time_ms" gorm:"column:response_time_ms" json:"response_time_ms"`
	ClickedAt    time.Time `db:"clicked_at" gorm:"index;not null" json:"clicked_at"`
}

// Click export stream settings (NATS JetStream).
const (
	ClickStreamName     = "CLICKS"
	ClickStreamSubject  = "clicks.events"
	ClickStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)
