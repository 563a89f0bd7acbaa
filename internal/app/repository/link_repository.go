package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/thorvik/keyward/internal/app/model"
	"gorm.io/gorm"
)

var (
	// ErrLinkNotFound signals that no matching link record exists.
	ErrLinkNotFound = errors.New("link not found")
	// ErrRouteTaken signals that the (identifier, keyword set) pair is already
	// claimed by an active record.
	ErrRouteTaken = errors.New("route already in use")
)

// LinkRepository defines the data access contract for link records.
type LinkRepository interface {
	Create(ctx context.Context, link *model.Link) error
	GetByID(ctx context.Context, id string) (*model.Link, error)
	// FindActive resolves an exact (identifier, keyword-set) match among
	// active, unexpired records.
	FindActive(ctx context.Context, identifier *string, keywords []string) (*model.Link, error)
	List(ctx context.Context, ownerUserID string, limit, offset int) ([]model.Link, error)
	Update(ctx context.Context, link *model.Link) error
	Delete(ctx context.Context, id string) error
	// IncrementClicks atomically bumps the click counter and last-clicked
	// timestamp. n may aggregate several events from one flush.
	IncrementClicks(ctx context.Context, id string, n int64, at time.Time) error
	SuggestForIdentifier(ctx context.Context, identifier string, limit int) ([]model.Link, error)
	SuggestByKeywords(ctx context.Context, keywords []string, limit int) ([]model.Link, error)
	// RouteKeys lists the canonical route key of every active record, used to
	// seed the negative-lookup filter at startup.
	RouteKeys(ctx context.Context) ([]string, error)
}

type linkRepository struct {
	db *gorm.DB
}

// NewLinkRepository returns a GORM-backed LinkRepository.
func NewLinkRepository(db *gorm.DB) LinkRepository {
	return &linkRepository{db: db}
}

func (r *linkRepository) Create(ctx context.Context, link *model.Link) error {
	existing, err := r.FindActive(ctx, link.Identifier, link.Keywords)
	if err != nil && !errors.Is(err, ErrLinkNotFound) {
		return err
	}
	if existing != nil {
		return ErrRouteTaken
	}
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *linkRepository) GetByID(ctx context.Context, id string) (*model.Link, error) {
	var link model.Link
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *linkRepository) FindActive(ctx context.Context, identifier *string, keywords []string) (*model.Link, error) {
	q := r.db.WithContext(ctx).
		Where("keywords_key = ?", model.KeywordSetKey(keywords)).
		Where("is_active = ?", true).
		Where("expires_at IS NULL OR expires_at > ?", time.Now())

	if identifier != nil {
		q = q.Where("identifier = ?", *identifier)
	} else {
		q = q.Where("identifier IS NULL")
	}

	var link model.Link
	if err := q.First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *linkRepository) List(ctx context.Context, ownerUserID string, limit, offset int) ([]model.Link, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	q := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Offset(offset)
	if ownerUserID != "" {
		q = q.Where("owner_user_id = ?", ownerUserID)
	}

	var result []model.Link
	if err := q.Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func (r *linkRepository) Update(ctx context.Context, link *model.Link) error {
	result := r.db.WithContext(ctx).
		Model(&model.Link{}).
		Where("id = ?", link.ID).
		Updates(map[string]interface{}{
			"identifier":      link.Identifier,
			"keywords":        link.Keywords,
			"keywords_key":    link.KeywordsKey,
			"destination_url": link.DestinationURL,
			"is_active":       link.IsActive,
			"expires_at":      link.ExpiresAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLinkNotFound
	}

	return r.db.WithContext(ctx).Where("id = ?", link.ID).First(link).Error
}

func (r *linkRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Link{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLinkNotFound
	}
	return nil
}

func (r *linkRepository) IncrementClicks(ctx context.Context, id string, n int64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Link{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"click_count":     gorm.Expr("click_count + ?", n),
			"last_clicked_at": at,
		}).Error
}

func (r *linkRepository) SuggestForIdentifier(ctx context.Context, identifier string, limit int) ([]model.Link, error) {
	if limit <= 0 {
		limit = 5
	}

	var result []model.Link
	err := r.db.WithContext(ctx).
		Where("identifier = ?", identifier).
		Where("is_active = ?", true).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Order("click_count DESC").
		Limit(limit).
		Find(&result).Error
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *linkRepository) SuggestByKeywords(ctx context.Context, keywords []string, limit int) ([]model.Link, error) {
	if limit <= 0 {
		limit = 5
	}
	if len(keywords) == 0 {
		return nil, nil
	}

	var result []model.Link
	err := r.db.WithContext(ctx).
		Where("keywords && ?", pq.Array(keywords)).
		Where("is_active = ?", true).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Order("click_count DESC").
		Limit(limit).
		Find(&result).Error
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *linkRepository) RouteKeys(ctx context.Context) ([]string, error) {
	type row struct {
		Identifier  *string
		KeywordsKey string
	}

	var rows []row
	err := r.db.WithContext(ctx).
		Model(&model.Link{}).
		Select("identifier", "keywords_key").
		Where("is_active = ?", true).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(rows))
	for _, rw := range rows {
		if rw.Identifier != nil {
			keys = append(keys, *rw.Identifier+"/"+rw.KeywordsKey)
		} else {
			keys = append(keys, rw.KeywordsKey)
		}
	}
	return keys, nil
}
