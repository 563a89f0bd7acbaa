package handler

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/thorvik/keyward/internal/app/model"
	"github.com/thorvik/keyward/internal/app/resolver"
	"github.com/thorvik/keyward/internal/app/service"
	"github.com/thorvik/keyward/internal/http/requestinfo"
	httpUtil "github.com/thorvik/keyward/internal/http/util"
	"github.com/thorvik/keyward/internal/http/view"
	infraprom "github.com/thorvik/keyward/internal/infra/prometheus"
	"go.uber.org/zap"
)

const (
	visitorCookieName = "kw_visitor"
	visitorCookieAge  = 365 * 24 * time.Hour

	redirectCacheControl = "public, max-age=3600"
	redirectRobotsTag    = "noindex, nofollow"
)

// RedirectDeps groups dependencies required by the redirect handler.
type RedirectDeps struct {
	Logger  *zap.Logger
	Lookup  *service.LookupService
	Tracker *service.Tracker
	Visitor *httpUtil.VisitorSigner
}

// RedirectHandler resolves keyword paths and dispatches click tracking.
type RedirectHandler struct {
	logger  *zap.Logger
	lookup  *service.LookupService
	tracker *service.Tracker
	visitor *httpUtil.VisitorSigner
}

// NewRedirectHandler creates a redirect handler with the provided dependencies.
func NewRedirectHandler(deps RedirectDeps) *RedirectHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedirectHandler{
		logger:  logger,
		lookup:  deps.Lookup,
		tracker: deps.Tracker,
		visitor: deps.Visitor,
	}
}

// Register wires redirect routes onto the provided router. The catch-all must
// come after every other route.
func (h *RedirectHandler) Register(router fiber.Router) {
	router.Get("/", h.Health)
	router.Get("/health", h.Health)
	router.Get("/*", h.Resolve)
}

// Health is a simple root endpoint so we know the service is running.
func (h *RedirectHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "keyward",
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Resolve handles GET on arbitrary paths: parse, resolve, redirect, then hand
// the click to the tracker without waiting on it.
func (h *RedirectHandler) Resolve(c *fiber.Ctx) error {
	start := time.Now()

	rawPath := c.Params("*")
	if decoded, err := url.PathUnescape(rawPath); err == nil {
		rawPath = decoded
	}

	route, err := resolver.ResolvePath(rawPath)
	if err != nil {
		infraprom.RedirectsTotal.WithLabelValues("invalid").Inc()
		return h.respondParseError(c, err)
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := h.lookup.Resolve(ctx, route)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			infraprom.RedirectsTotal.WithLabelValues("not_found").Inc()
			return h.respondNotFound(c, ctx, route)
		}
		infraprom.RedirectsTotal.WithLabelValues("error").Inc()
		h.logger.Error("route lookup failed", zap.String("path", rawPath), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
			"kind":  "store_query_failed",
		})
	}

	visitorID := h.visitorID(c)

	c.Set(fiber.HeaderCacheControl, redirectCacheControl)
	c.Set("X-Robots-Tag", redirectRobotsTag)

	// Everything the tracker needs is deep-copied before the handler returns;
	// fiber recycles the request context and its header bytes afterwards.
	if h.tracker != nil {
		h.tracker.Track(h.buildClickEvent(c, res.LinkID, visitorID, start))
	}

	infraprom.RedirectsTotal.WithLabelValues("redirect").Inc()
	h.logger.Debug("redirecting keyword path",
		zap.String("path", rawPath),
		zap.String("link_id", res.LinkID),
		zap.Bool("cache_hit", res.CacheHit))
	return c.Redirect(res.DestinationURL, fiber.StatusFound)
}

// buildClickEvent assembles a queue-safe event. The event outlives this
// request by up to a flush interval, while c.Get and the visitor cookie hand
// out zero-copy views of fasthttp buffers that the next request on the pooled
// context rewrites, so every request-derived string is copied here.
func (h *RedirectHandler) buildClickEvent(c *fiber.Ctx, linkID, visitorID string, start time.Time) *model.ClickEvent {
	rawUA := utils.CopyString(c.Get(fiber.HeaderUserAgent))
	ua := requestinfo.Classify(rawUA)

	ip := utils.CopyString(requestinfo.ClientIP(
		c.Get("X-Forwarded-For"),
		c.Get("X-Real-IP"),
		c.Get("CF-Connecting-IP"),
		c.Context().RemoteAddr().String(),
	))

	// string([]byte) conversions below already copy.
	query := url.Values{}
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		query.Add(string(key), string(value))
	})
	utm := requestinfo.UTM(query)

	var referer *string
	if ref := c.Get(fiber.HeaderReferer); ref != "" {
		ref = utils.CopyString(ref)
		referer = &ref
	}

	return &model.ClickEvent{
		LinkID:       linkID,
		VisitorID:    utils.CopyString(visitorID),
		IPAddress:    ip,
		UserAgentRaw: rawUA,
		Referer:      referer,
		DeviceType:   ua.DeviceType,
		BrowserName:  ua.BrowserName,
		BrowserVer:   ua.BrowserVersion,
		OSName:       ua.OSName,
		OSVer:        ua.OSVersion,
		IsBot:        ua.IsBot,
		UTMSource:    utm.Source,
		UTMMedium:    utm.Medium,
		UTMCampaign:  utm.Campaign,
		UTMTerm:      utm.Term,
		UTMContent:   utm.Content,
		ResponseMs:   time.Since(start).Milliseconds(),
		ClickedAt:    start,
	}
}

// visitorID reads the signed visitor cookie, minting one when absent or
// forged. Falls back to an IP+UA hash if the signer is unavailable.
func (h *RedirectHandler) visitorID(c *fiber.Ctx) string {
	if h.visitor == nil {
		return httpUtil.FallbackVisitorID(c.IP(), c.Get(fiber.HeaderUserAgent))
	}

	if token := c.Cookies(visitorCookieName); token != "" {
		if id, err := h.visitor.Validate(token); err == nil {
			return id
		}
	}

	id, token, err := h.visitor.Issue()
	if err != nil {
		return httpUtil.FallbackVisitorID(c.IP(), c.Get(fiber.HeaderUserAgent))
	}
	c.Cookie(&fiber.Cookie{
		Name:     visitorCookieName,
		Value:    token,
		Expires:  time.Now().Add(visitorCookieAge),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return id
}

func (h *RedirectHandler) respondParseError(c *fiber.Ctx, err error) error {
	var invalidKeyword *resolver.InvalidKeywordError

	kind := "invalid_path"
	msg := "invalid path"
	switch {
	case errors.Is(err, resolver.ErrEmptyPath):
		kind, msg = "empty_path", "path has no segments"
	case errors.Is(err, resolver.ErrPathTooLong):
		kind, msg = "path_too_long", "path has too many segments"
	case errors.Is(err, resolver.ErrPathTraversal):
		kind, msg = "path_traversal", "path contains a traversal segment"
	case errors.As(err, &invalidKeyword):
		kind, msg = "invalid_keyword", invalidKeyword.Error()
	}

	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
		"kind":  kind,
	})
}

func (h *RedirectHandler) respondNotFound(c *fiber.Ctx, ctx context.Context, route resolver.Route) error {
	suggestions := h.lookup.Suggest(ctx, route)

	if c.Accepts("application/json", "text/html") == "text/html" {
		html, err := view.RenderNotFoundPage(view.NotFoundPageData{
			Path:        c.Path(),
			Suggestions: suggestions,
		})
		if err == nil {
			return c.Status(fiber.StatusNotFound).Type("html", "utf-8").SendString(html)
		}
		h.logger.Error("failed to render not-found page", zap.Error(err))
	}

	body := fiber.Map{
		"error": "no link matches this path",
		"kind":  "not_found",
	}
	if len(suggestions) > 0 {
		body["suggestions"] = suggestions
	}
	return c.Status(fiber.StatusNotFound).JSON(body)
}
