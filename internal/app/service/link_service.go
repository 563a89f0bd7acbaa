package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/thorvik/keyward/internal/app/cache"
	"github.com/thorvik/keyward/internal/app/model"
	"github.com/thorvik/keyward/internal/app/repository"
	"github.com/thorvik/keyward/internal/app/resolver"
	"go.uber.org/zap"
)

// ErrKeywordCount signals a keyword sequence outside the 1..5 bound.
var ErrKeywordCount = errors.New("a link needs between 1 and 5 keywords")

// LinkService defines behaviour-level operations on link records. Every write
// deletes the complete cache invalidation set for the old and new route
// combination; a partial set would leave a stale redirect behind.
type LinkService interface {
	CreateLink(ctx context.Context, input CreateLinkInput) (*model.Link, error)
	GetLink(ctx context.Context, id string) (*model.Link, error)
	ListLinks(ctx context.Context, ownerUserID string, limit, offset int) ([]model.Link, error)
	UpdateLink(ctx context.Context, id string, input UpdateLinkInput) (*model.Link, error)
	DeleteLink(ctx context.Context, id string) error
}

type linkService struct {
	logger *zap.Logger
	repo   repository.LinkRepository
	cache  cache.Cache
	lookup *LookupService
}

// NewLinkService returns a service implementation backed by the given
// repository and cache. lookup may be nil (no route filter to update).
func NewLinkService(logger *zap.Logger, repo repository.LinkRepository, c cache.Cache, lookup *LookupService) LinkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil {
		c = cache.NewNoopCache()
	}
	return &linkService{logger: logger, repo: repo, cache: c, lookup: lookup}
}

// CreateLinkInput captures data required to create a link.
type CreateLinkInput struct {
	OwnerUserID    string
	Identifier     *string
	Keywords       []string
	DestinationURL string
	IsActive       bool
	ExpiresAt      *time.Time
}

// UpdateLinkInput captures fields that can be changed on an existing link.
type UpdateLinkInput struct {
	Identifier      *string
	ClearIdentifier bool
	Keywords        []string
	DestinationURL  *string
	IsActive        *bool
	ExpiresAt       *time.Time
}

func (s *linkService) CreateLink(ctx context.Context, input CreateLinkInput) (*model.Link, error) {
	if err := validateRoute(input.Identifier, input.Keywords); err != nil {
		return nil, err
	}

	link := &model.Link{
		ID:             uuid.New().String(),
		OwnerUserID:    input.OwnerUserID,
		Identifier:     input.Identifier,
		Keywords:       input.Keywords,
		KeywordsKey:    model.KeywordSetKey(input.Keywords),
		DestinationURL: input.DestinationURL,
		IsActive:       input.IsActive,
		ExpiresAt:      input.ExpiresAt,
	}

	if err := s.repo.Create(ctx, link); err != nil {
		return nil, fmt.Errorf("create link: %w", err)
	}

	s.invalidate(ctx, link, nil)
	if s.lookup != nil {
		s.lookup.NoteRoute(link.Identifier, link.Keywords)
	}
	return link, nil
}

func (s *linkService) GetLink(ctx context.Context, id string) (*model.Link, error) {
	link, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	return link, nil
}

func (s *linkService) ListLinks(ctx context.Context, ownerUserID string, limit, offset int) ([]model.Link, error) {
	links, err := s.repo.List(ctx, ownerUserID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return links, nil
}

func (s *linkService) UpdateLink(ctx context.Context, id string, input UpdateLinkInput) (*model.Link, error) {
	link, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load link: %w", err)
	}
	prev := *link

	if input.ClearIdentifier {
		link.Identifier = nil
	} else if input.Identifier != nil {
		link.Identifier = input.Identifier
	}
	if input.Keywords != nil {
		link.Keywords = input.Keywords
		link.KeywordsKey = model.KeywordSetKey(input.Keywords)
	}
	if input.DestinationURL != nil {
		link.DestinationURL = *input.DestinationURL
	}
	if input.IsActive != nil {
		link.IsActive = *input.IsActive
	}
	if input.ExpiresAt != nil {
		link.ExpiresAt = input.ExpiresAt
	}

	if err := validateRoute(link.Identifier, link.Keywords); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, link); err != nil {
		return nil, fmt.Errorf("update link: %w", err)
	}

	s.invalidate(ctx, link, &prev)
	if s.lookup != nil {
		s.lookup.NoteRoute(link.Identifier, link.Keywords)
	}
	return link, nil
}

func (s *linkService) DeleteLink(ctx context.Context, id string) error {
	link, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load link: %w", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete link: %w", err)
	}

	s.invalidate(ctx, link, nil)
	return nil
}

func (s *linkService) invalidate(ctx context.Context, rec, prev *model.Link) {
	for _, key := range cache.InvalidationTargets(rec, prev) {
		s.cache.Delete(ctx, key)
	}
}

func validateRoute(identifier *string, keywords []string) error {
	if identifier != nil {
		if err := resolver.ValidateIdentifier(*identifier); err != nil {
			return err
		}
	}
	if len(keywords) < 1 || len(keywords) > resolver.MaxKeywords {
		return ErrKeywordCount
	}
	for _, kw := range keywords {
		if err := resolver.ValidateKeyword(kw); err != nil {
			return err
		}
	}
	return nil
}
