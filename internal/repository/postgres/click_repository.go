package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"shortlink/internal/domain"
	"shortlink/internal/repository"
)

// classificationColumns whitelists the columns BreakdownByLink may group by
var classificationColumns = map[string]bool{
	"device_type": true,
	"browser":     true,
	"os":          true,
}

// clickRepository implements the ClickRepository interface for PostgreSQL
type clickRepository struct {
	db *gorm.DB
}

// NewClickRepository creates a new PostgreSQL click repository
func NewClickRepository(db *gorm.DB) repository.ClickRepository {
	return &clickRepository{db: db}
}

// Insert persists a single click event
func (r *clickRepository) Insert(ctx context.Context, click *domain.ClickEvent) error {
	result := r.db.WithContext(ctx).Create(click)
	if result.Error != nil {
		return domain.NewInternalError(result.Error)
	}
	return nil
}

// CountByLink returns the total number of clicks recorded for a link
func (r *clickRepository) CountByLink(ctx context.Context, linkID uint) (int64, error) {
	var count int64

	result := r.db.WithContext(ctx).
		Model(&domain.ClickEvent{}).
		Where("short_link_id = ?", linkID).
		Count(&count)

	if result.Error != nil {
		return 0, domain.NewInternalError(result.Error)
	}

	return count, nil
}

// BreakdownByLink aggregates click counts grouped by a classification column
func (r *clickRepository) BreakdownByLink(ctx context.Context, linkID uint, field string) (map[string]int64, error) {
	if !classificationColumns[field] {
		return nil, fmt.Errorf("unsupported breakdown field: %s", field)
	}

	type row struct {
		Value string
		Count int64
	}
	var rows []row

	result := r.db.WithContext(ctx).
		Model(&domain.ClickEvent{}).
		Select(field+" AS value, COUNT(*) AS count").
		Where("short_link_id = ?", linkID).
		Group(field).
		Scan(&rows)

	if result.Error != nil {
		return nil, domain.NewInternalError(result.Error)
	}

	breakdown := make(map[string]int64, len(rows))
	for _, rec := range rows {
		breakdown[rec.Value] = rec.Count
	}

	return breakdown, nil
}
