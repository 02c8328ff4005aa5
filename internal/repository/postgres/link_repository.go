package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"shortlink/internal/domain"
	"shortlink/internal/repository"
)

// linkRepository implements the LinkRepository interface for PostgreSQL
type linkRepository struct {
	db *gorm.DB
}

// NewLinkRepository creates a new PostgreSQL link repository
func NewLinkRepository(db *gorm.DB) repository.LinkRepository {
	return &linkRepository{db: db}
}

// Create inserts a new link record. The unique index on short_code is the
// uniqueness authority: two concurrent creators racing on the same code get
// exactly one success, the other receives domain.ErrCodeTaken.
func (r *linkRepository) Create(ctx context.Context, link *domain.ShortLink) error {
	result := r.db.WithContext(ctx).Create(link)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return domain.ErrCodeTaken
		}
		return domain.NewInternalError(result.Error)
	}
	return nil
}

// FindByCode retrieves a link by its short code.
// No is_active filter here: the resolver decides activity and expiry policy,
// and the cache-hit tracking path needs the record either way.
func (r *linkRepository) FindByCode(ctx context.Context, shortCode string) (*domain.ShortLink, error) {
	var link domain.ShortLink

	result := r.db.WithContext(ctx).
		Where("short_code = ?", shortCode).
		First(&link)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLinkNotFound
		}
		return nil, domain.NewInternalError(result.Error)
	}

	return &link, nil
}

// FindByID retrieves a link by its primary key
func (r *linkRepository) FindByID(ctx context.Context, id uint) (*domain.ShortLink, error) {
	var link domain.ShortLink

	result := r.db.WithContext(ctx).First(&link, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLinkNotFound
		}
		return nil, domain.NewInternalError(result.Error)
	}

	return &link, nil
}

// Deactivate soft-deletes a link by setting is_active to false.
// Idempotent: the WHERE clause matches the row whether or not it is already
// inactive, so a repeat call succeeds with no effect.
func (r *linkRepository) Deactivate(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&domain.ShortLink{}).
		Where("id = ?", id).
		Update("is_active", false)

	if result.Error != nil {
		return domain.NewInternalError(result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.ErrLinkNotFound
	}

	return nil
}

// ListByOwner returns an owner's active links, newest first
func (r *linkRepository) ListByOwner(ctx context.Context, ownerID uint) ([]domain.ShortLink, error) {
	var links []domain.ShortLink

	result := r.db.WithContext(ctx).
		Where("owner_id = ? AND is_active = ?", ownerID, true).
		Order("created_at DESC").
		Find(&links)

	if result.Error != nil {
		return nil, domain.NewInternalError(result.Error)
	}

	return links, nil
}

// DeactivateExpired flips is_active for all links past their expiration date.
// This should be called periodically by a cleanup job.
func (r *linkRepository) DeactivateExpired(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.ShortLink{}).
		Where("expires_at IS NOT NULL AND expires_at < ? AND is_active = ?", time.Now(), true).
		Update("is_active", false)

	if result.Error != nil {
		return 0, domain.NewInternalError(result.Error)
	}

	return result.RowsAffected, nil
}

// ExistsByCode checks if a short code exists without loading the full record.
// Includes inactive links: codes are never reassigned after creation.
func (r *linkRepository) ExistsByCode(ctx context.Context, shortCode string) (bool, error) {
	var count int64

	result := r.db.WithContext(ctx).
		Model(&domain.ShortLink{}).
		Where("short_code = ?", shortCode).
		Count(&count)

	if result.Error != nil {
		return false, domain.NewInternalError(result.Error)
	}

	return count > 0, nil
}
