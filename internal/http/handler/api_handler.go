package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/thorvik/keyward/internal/app/model"
	"github.com/thorvik/keyward/internal/app/repository"
	"github.com/thorvik/keyward/internal/app/resolver"
	"github.com/thorvik/keyward/internal/app/service"
	"go.uber.org/zap"
)

// APIDeps groups dependencies required by API handlers.
type APIDeps struct {
	Logger      *zap.Logger
	LinkService service.LinkService
}

// APIHandler implements the link management endpoints. Writes here are the
// source of cache invalidation: the link service deletes every key the old
// and new route combinations could occupy.
type APIHandler struct {
	logger      *zap.Logger
	linkService service.LinkService
}

// NewAPIHandler creates an API handler with the provided dependencies.
func NewAPIHandler(deps APIDeps) *APIHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		logger:      logger,
		linkService: deps.LinkService,
	}
}

// Register wires API routes onto the provided router.
func (h *APIHandler) Register(router fiber.Router) {
	api := router.Group("/api")
	{
		links := api.Group("/links")
		{
			links.Post("/", h.CreateLink)
			links.Get("/", h.ListLinks)
			links.Get("/:id", h.GetLink)
			links.Patch("/:id", h.UpdateLink)
			links.Delete("/:id", h.DeleteLink)
		}
	}
}

// CreateLinkRequest represents the request body for creating a link.
type CreateLinkRequest struct {
	OwnerUserID    string     `json:"owner_user_id"`
	Identifier     *string    `json:"identifier,omitempty"`
	Keywords       []string   `json:"keywords"`
	DestinationURL string     `json:"destination_url"`
	IsActive       *bool      `json:"is_active,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// UpdateLinkRequest represents the request body for updating a link.
type UpdateLinkRequest struct {
	Identifier      *string    `json:"identifier,omitempty"`
	ClearIdentifier bool       `json:"clear_identifier,omitempty"`
	Keywords        []string   `json:"keywords,omitempty"`
	DestinationURL  *string    `json:"destination_url,omitempty"`
	IsActive        *bool      `json:"is_active,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

// LinkResponse is the JSON projection of a link record.
type LinkResponse struct {
	ID             string     `json:"id"`
	OwnerUserID    string     `json:"owner_user_id"`
	Identifier     *string    `json:"identifier,omitempty"`
	Keywords       []string   `json:"keywords"`
	DestinationURL string     `json:"destination_url"`
	IsActive       bool       `json:"is_active"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	ClickCount     int64      `json:"click_count"`
	LastClickedAt  *time.Time `json:"last_clicked_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toLinkResponse(link *model.Link) LinkResponse {
	return LinkResponse{
		ID:             link.ID,
		OwnerUserID:    link.OwnerUserID,
		Identifier:     link.Identifier,
		Keywords:       link.Keywords,
		DestinationURL: link.DestinationURL,
		IsActive:       link.IsActive,
		ExpiresAt:      link.ExpiresAt,
		ClickCount:     link.ClickCount,
		LastClickedAt:  link.LastClickedAt,
		CreatedAt:      link.CreatedAt,
	}
}

// CreateLink handles POST /api/links
func (h *APIHandler) CreateLink(c *fiber.Ctx) error {
	var req CreateLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if req.DestinationURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "destination_url is required",
		})
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	link, err := h.linkService.CreateLink(c.UserContext(), service.CreateLinkInput{
		OwnerUserID:    req.OwnerUserID,
		Identifier:     req.Identifier,
		Keywords:       req.Keywords,
		DestinationURL: req.DestinationURL,
		IsActive:       isActive,
		ExpiresAt:      req.ExpiresAt,
	})
	if err != nil {
		return h.respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(toLinkResponse(link))
}

// ListLinks handles GET /api/links
func (h *APIHandler) ListLinks(c *fiber.Ctx) error {
	links, err := h.linkService.ListLinks(c.UserContext(),
		c.Query("owner"), c.QueryInt("limit", 20), c.QueryInt("offset", 0))
	if err != nil {
		return h.respondServiceError(c, err)
	}

	out := make([]LinkResponse, len(links))
	for i := range links {
		out[i] = toLinkResponse(&links[i])
	}
	return c.JSON(fiber.Map{"links": out})
}

// GetLink handles GET /api/links/:id
func (h *APIHandler) GetLink(c *fiber.Ctx) error {
	link, err := h.linkService.GetLink(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.respondServiceError(c, err)
	}
	return c.JSON(toLinkResponse(link))
}

// UpdateLink handles PATCH /api/links/:id
func (h *APIHandler) UpdateLink(c *fiber.Ctx) error {
	var req UpdateLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	link, err := h.linkService.UpdateLink(c.UserContext(), c.Params("id"), service.UpdateLinkInput{
		Identifier:      req.Identifier,
		ClearIdentifier: req.ClearIdentifier,
		Keywords:        req.Keywords,
		DestinationURL:  req.DestinationURL,
		IsActive:        req.IsActive,
		ExpiresAt:       req.ExpiresAt,
	})
	if err != nil {
		return h.respondServiceError(c, err)
	}
	return c.JSON(toLinkResponse(link))
}

// DeleteLink handles DELETE /api/links/:id
func (h *APIHandler) DeleteLink(c *fiber.Ctx) error {
	if err := h.linkService.DeleteLink(c.UserContext(), c.Params("id")); err != nil {
		return h.respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandler) respondServiceError(c *fiber.Ctx, err error) error {
	var invalidKeyword *resolver.InvalidKeywordError

	switch {
	case errors.Is(err, repository.ErrLinkNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "link not found",
		})
	case errors.Is(err, repository.ErrRouteTaken):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "route already in use",
		})
	case errors.Is(err, resolver.ErrInvalidIdentifier),
		errors.Is(err, resolver.ErrReservedIdentifier),
		errors.Is(err, service.ErrKeywordCount),
		errors.As(err, &invalidKeyword):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	default:
		h.logger.Error("link management operation failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}
}
