package repository

import (
	"context"

	"shortlink/internal/domain"
)

// LinkRepository defines the contract for short link data access.
// This interface allows swapping implementations (PostgreSQL, MySQL, etc.)
// without changing business logic - following Dependency Inversion Principle.
type LinkRepository interface {
	// Create stores a new short link. The storage layer enforces short code
	// uniqueness; a conflicting insert returns domain.ErrCodeTaken. This is
	// the only uniqueness authority - there is no check-then-insert race.
	Create(ctx context.Context, link *domain.ShortLink) error

	// FindByCode retrieves a link by its short code regardless of activity
	// state. Activity and expiry policy belong to the resolver.
	FindByCode(ctx context.Context, shortCode string) (*domain.ShortLink, error)

	// FindByID retrieves a link by its immutable identity
	FindByID(ctx context.Context, id uint) (*domain.ShortLink, error)

	// Deactivate sets is_active to false. Idempotent: deactivating an
	// already-inactive link is not an error. Records are never hard-deleted.
	Deactivate(ctx context.Context, id uint) error

	// ListByOwner returns an owner's active links, newest first
	ListByOwner(ctx context.Context, ownerID uint) ([]domain.ShortLink, error)

	// DeactivateExpired flips is_active for all links past their expiration
	// (cleanup job)
	DeactivateExpired(ctx context.Context) (int64, error)

	// ExistsByCode checks if a short code exists without fetching data
	ExistsByCode(ctx context.Context, shortCode string) (bool, error)
}

// ClickRepository defines the contract for persisted click facts
type ClickRepository interface {
	// Insert persists a single click event. Events are immutable; there are
	// no update or delete operations.
	Insert(ctx context.Context, click *domain.ClickEvent) error

	// CountByLink returns the total number of clicks for a link
	CountByLink(ctx context.Context, linkID uint) (int64, error)

	// BreakdownByLink aggregates click counts grouped by one of the derived
	// classification columns (device_type, browser, os)
	BreakdownByLink(ctx context.Context, linkID uint, field string) (map[string]int64, error)
}
