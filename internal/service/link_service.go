package service

import (
	"context"

	"shortlink/internal/domain"
	"shortlink/internal/tracking"
)

// ClickMeta carries the raw request metadata the resolver hands to the
// click pipeline on a successful resolution
type ClickMeta struct {
	IPAddress string
	UserAgent string
	Referer   string
}

// ClickTracker is the resolver's view of the click pipeline: a non-blocking,
// fire-and-forget enqueue. *tracking.Pipeline satisfies it.
type ClickTracker interface {
	Enqueue(job tracking.Job) bool
}

// LinkService defines the business logic interface for short link operations.
// This layer orchestrates between the record store, the resolution cache,
// and the click pipeline.
type LinkService interface {
	// Shorten creates a new short link (generated or custom code)
	Shorten(ctx context.Context, req *domain.CreateLinkRequest, clientIP string, ownerID *uint) (*domain.CreateLinkResponse, error)

	// Resolve maps a short code to its destination URL for a redirect and
	// hands off click tracking. Returns ErrLinkNotFound for missing or
	// deactivated codes and ErrLinkExpired for expired ones.
	Resolve(ctx context.Context, shortCode string, meta ClickMeta) (string, error)

	// GetLinkInfo returns the full record for a short code
	GetLinkInfo(ctx context.Context, shortCode string) (*domain.ShortLink, error)

	// Deactivate soft-deletes a link and synchronously invalidates its
	// cache entry. Idempotent.
	Deactivate(ctx context.Context, shortCode string) error

	// GetStats returns click statistics for a short link
	GetStats(ctx context.Context, shortCode string) (*domain.LinkStats, error)

	// ListLinks returns an owner's active links, newest first
	ListLinks(ctx context.Context, ownerID uint) ([]domain.ShortLink, error)
}
