// Package requestinfo derives click-telemetry fields from an inbound request:
// client IP, UTM parameters and a user-agent classification. Everything here
// is pure and advisory; nothing in this package can fail a redirect.
package requestinfo

import (
	"net/url"
	"regexp"
	"strings"
)

// ClientIP picks the client address by header priority: first X-Forwarded-For
// entry, then X-Real-IP, then CF-Connecting-IP, then the socket address.
func ClientIP(forwardedFor, realIP, cfConnecting, remoteAddr string) string {
	if forwardedFor != "" {
		first := forwardedFor
		if idx := strings.IndexByte(first, ','); idx >= 0 {
			first = first[:idx]
		}
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP != "" {
		return strings.TrimSpace(realIP)
	}
	if cfConnecting != "" {
		return strings.TrimSpace(cfConnecting)
	}

	// Strip a port from host:port socket addresses; keep bare IPv6 intact.
	addr := remoteAddr
	if idx := strings.LastIndexByte(addr, ':'); idx >= 0 && strings.Count(addr, ":") == 1 {
		addr = addr[:idx]
	}
	addr = strings.TrimPrefix(addr, "[")
	if idx := strings.IndexByte(addr, ']'); idx >= 0 {
		addr = addr[:idx]
	}
	return addr
}

// UTMParams carries the five standard campaign query keys, nil when absent.
type UTMParams struct {
	Source   *string
	Medium   *string
	Campaign *string
	Term     *string
	Content  *string
}

// UTM passes through the standard utm_* query parameters.
func UTM(query url.Values) UTMParams {
	pick := func(key string) *string {
		if v := query.Get(key); v != "" {
			return &v
		}
		return nil
	}
	return UTMParams{
		Source:   pick("utm_source"),
		Medium:   pick("utm_medium"),
		Campaign: pick("utm_campaign"),
		Term:     pick("utm_term"),
		Content:  pick("utm_content"),
	}
}

// Device type labels.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceUnknown = "unknown"
)

// UserAgent is the classification of a raw user-agent string.
type UserAgent struct {
	DeviceType     string
	BrowserName    string
	BrowserVersion string
	OSName         string
	OSVersion      string
	IsBot          bool
}

// Known bot, crawler and social-preview-fetcher markers, matched
// case-insensitively as substrings.
var botMarkers = []string{
	"googlebot",
	"bingbot",
	"yandexbot",
	"duckduckbot",
	"baiduspider",
	"slurp",
	"facebookexternalhit",
	"twitterbot",
	"linkedinbot",
	"slackbot",
	"telegrambot",
	"discordbot",
	"whatsapp",
	"applebot",
	"ahrefsbot",
	"semrushbot",
	"crawler",
	"spider",
	"bot/",
	"curl/",
	"wget/",
	"python-requests",
	"go-http-client",
	"headlesschrome",
}

type browserRule struct {
	marker  string
	name    string
	version *regexp.Regexp
}

// Order matters: Edge and Opera carry a Chrome token, Chrome carries a Safari
// token, so the more specific markers come first.
var browserRules = []browserRule{
	{"edg/", "Edge", regexp.MustCompile(`(?i)edg/([\d.]+)`)},
	{"opr/", "Opera", regexp.MustCompile(`(?i)opr/([\d.]+)`)},
	{"firefox/", "Firefox", regexp.MustCompile(`(?i)firefox/([\d.]+)`)},
	{"chrome/", "Chrome", regexp.MustCompile(`(?i)chrome/([\d.]+)`)},
	{"safari/", "Safari", regexp.MustCompile(`(?i)version/([\d.]+)`)},
	{"msie", "Internet Explorer", regexp.MustCompile(`(?i)msie ([\d.]+)`)},
	{"trident/", "Internet Explorer", regexp.MustCompile(`(?i)rv:([\d.]+)`)},
}

type osRule struct {
	marker  string
	name    string
	version *regexp.Regexp
}

var osRules = []osRule{
	{"windows nt", "Windows", regexp.MustCompile(`(?i)windows nt ([\d.]+)`)},
	{"android", "Android", regexp.MustCompile(`(?i)android ([\d.]+)`)},
	{"iphone os", "iOS", regexp.MustCompile(`(?i)iphone os ([\d_]+)`)},
	{"cpu os", "iOS", regexp.MustCompile(`(?i)cpu os ([\d_]+)`)},
	{"mac os x", "macOS", regexp.MustCompile(`(?i)mac os x ([\d_.]+)`)},
	{"linux", "Linux", nil},
}

// Classify derives device/browser/OS and the bot flag from a raw user-agent.
// The result is advisory; an empty string yields all-unknown, not an error.
func Classify(raw string) UserAgent {
	ua := UserAgent{
		DeviceType:  DeviceUnknown,
		BrowserName: "Unknown",
		OSName:      "Unknown",
	}
	if raw == "" {
		return ua
	}

	lower := strings.ToLower(raw)

	for _, marker := range botMarkers {
		if strings.Contains(lower, marker) {
			ua.IsBot = true
			break
		}
	}

	switch {
	case strings.Contains(lower, "ipad") || strings.Contains(lower, "tablet"):
		ua.DeviceType = DeviceTablet
	case strings.Contains(lower, "mobile") || strings.Contains(lower, "iphone") ||
		strings.Contains(lower, "android"):
		ua.DeviceType = DeviceMobile
	case strings.Contains(lower, "windows") || strings.Contains(lower, "macintosh") ||
		strings.Contains(lower, "x11") || strings.Contains(lower, "linux"):
		ua.DeviceType = DeviceDesktop
	}
	// Android tablets advertise Android without the Mobile token.
	if ua.DeviceType == DeviceMobile && strings.Contains(lower, "android") &&
		!strings.Contains(lower, "mobile") {
		ua.DeviceType = DeviceTablet
	}

	for _, rule := range browserRules {
		if strings.Contains(lower, rule.marker) {
			ua.BrowserName = rule.name
			if m := rule.version.FindStringSubmatch(raw); len(m) == 2 {
				ua.BrowserVersion = m[1]
			}
			break
		}
	}

	for _, rule := range osRules {
		if strings.Contains(lower, rule.marker) {
			ua.OSName = rule.name
			if rule.version != nil {
				if m := rule.version.FindStringSubmatch(raw); len(m) == 2 {
					ua.OSVersion = strings.ReplaceAll(m[1], "_", ".")
				}
			}
			break
		}
	}

	return ua
}
