package service

import (
	"context"
	"errors"
	"fmt"

	"shortlink/internal/cache"
	"shortlink/internal/config"
	"shortlink/internal/domain"
	"shortlink/internal/repository"
	"shortlink/internal/shortener"
	"shortlink/internal/tracking"
	"shortlink/pkg/logger"
	"shortlink/pkg/validator"
)

// linkService implements the LinkService interface
type linkService struct {
	links     repository.LinkRepository
	clicks    repository.ClickRepository
	cache     cache.Cache
	tracker   ClickTracker
	cfg       *config.Config
	logger    *logger.Logger
	generator *shortener.CodeGenerator
}

// NewLinkService creates a new link service with dependencies injected.
// The cache and tracker may be nil: resolution then falls back to the store
// on every request and clicks are not recorded.
func NewLinkService(
	links repository.LinkRepository,
	clicks repository.ClickRepository,
	cache cache.Cache,
	tracker ClickTracker,
	cfg *config.Config,
	logger *logger.Logger,
) LinkService {
	return &linkService{
		links:     links,
		clicks:    clicks,
		cache:     cache,
		tracker:   tracker,
		cfg:       cfg,
		logger:    logger,
		generator: shortener.NewCodeGenerator(cfg.ShortCodeLength),
	}
}

// Shorten creates a new short link with validation and collision handling
func (s *linkService) Shorten(ctx context.Context, req *domain.CreateLinkRequest, clientIP string, ownerID *uint) (*domain.CreateLinkResponse, error) {
	// Step 1: Validate the original URL
	if err := validator.ValidateURL(req.OriginalURL); err != nil {
		s.logger.Warn("Invalid URL provided", "url", req.OriginalURL, "error", err)
		return nil, domain.NewValidationError("Invalid URL format")
	}

	// Step 2: Normalize URL (add https:// if missing, remove trailing slash)
	normalizedURL := validator.NormalizeURL(req.OriginalURL)

	link := &domain.ShortLink{
		OriginalURL: normalizedURL,
		OwnerID:     ownerID,
		ExpiresAt:   req.ExpiresAt,
		CreatorIP:   clientIP,
		IsActive:    true,
		CustomAlias: req.CustomCode != "",
	}

	// Step 3: Insert with caller-supplied or generated code. Either way the
	// unique index is the uniqueness authority: the custom-code path prechecks
	// for a fast conflict answer, but only the insert decides.
	if req.CustomCode != "" {
		if !validator.ValidateShortCode(req.CustomCode) {
			return nil, &domain.AppError{
				Err:        domain.ErrCodeInvalid,
				Message:    "Custom code must be 1-10 alphanumeric characters",
				StatusCode: 400,
			}
		}

		taken, err := s.codeExists(ctx, req.CustomCode)
		if err != nil {
			s.logger.Error("Failed to check short code availability", "error", err, "short_code", req.CustomCode)
			return nil, err
		}
		if taken {
			return nil, domain.ErrCodeTaken
		}

		link.ShortCode = req.CustomCode
		if err := s.createLink(ctx, link); err != nil {
			if errors.Is(err, domain.ErrCodeTaken) {
				return nil, domain.ErrCodeTaken
			}
			s.logger.Error("Failed to create link", "error", err, "short_code", req.CustomCode)
			return nil, err
		}
	} else {
		if err := s.createWithGeneratedCode(ctx, link); err != nil {
			s.logger.Error("Failed to create link with generated code", "error", err)
			return nil, err
		}
	}

	// Step 4: Warm the cache for fast resolution
	if s.cache != nil {
		if err := s.cache.Set(ctx, link.ShortCode, normalizedURL, s.cfg.CacheTTL); err != nil {
			// Log cache error but don't fail the request
			s.logger.Warn("Failed to cache link", "error", err, "short_code", link.ShortCode)
		}
	}

	s.logger.Info("Link shortened",
		"short_code", link.ShortCode,
		"original_url", normalizedURL,
		"custom", link.CustomAlias,
	)

	return s.buildResponse(link), nil
}

// Resolve maps a short code to its destination URL using the cache-aside
// pattern, enforces activity and expiry on the store path, and hands off
// click tracking without blocking.
func (s *linkService) Resolve(ctx context.Context, shortCode string, meta ClickMeta) (string, error) {
	// Step 1: Try the cache first (fast path)
	if s.cache != nil {
		cachedURL, err := s.cache.Get(ctx, shortCode)
		if err == nil && cachedURL != "" {
			// Cache hit. The record is still fetched for the link id needed
			// by tracking; the cached URL itself is not re-validated (the
			// accepted staleness window until the TTL lapses).
			link, err := s.findByCode(ctx, shortCode)
			if err != nil {
				return "", err
			}

			s.logger.Debug("Cache hit", "short_code", shortCode)
			s.trackClick(link.ID, meta)
			return cachedURL, nil
		}
	}

	// Step 2: Cache miss - query the record store
	link, err := s.findByCode(ctx, shortCode)
	if err != nil {
		return "", err
	}

	// Step 3: Enforce activity, then expiry. A deactivated link is
	// indistinguishable from a missing one; an expired link is reported
	// distinctly so the caller can answer 410 instead of 404.
	if !link.IsActive {
		s.logger.Debug("Inactive link requested", "short_code", shortCode)
		return "", domain.ErrLinkNotFound
	}
	if link.IsExpired() {
		s.logger.Info("Expired link requested", "short_code", shortCode)
		return "", domain.ErrLinkExpired
	}

	// Step 4: Populate the cache for future requests
	if s.cache != nil {
		if err := s.cache.Set(ctx, shortCode, link.OriginalURL, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("Failed to update cache", "error", err, "short_code", shortCode)
		}
	}

	s.trackClick(link.ID, meta)
	return link.OriginalURL, nil
}

// GetLinkInfo returns the full record for a short code
func (s *linkService) GetLinkInfo(ctx context.Context, shortCode string) (*domain.ShortLink, error) {
	return s.findByCode(ctx, shortCode)
}

// Deactivate soft-deletes a link and invalidates its cache entry
// synchronously, so the link stops resolving immediately even mid-TTL.
func (s *linkService) Deactivate(ctx context.Context, shortCode string) error {
	link, err := s.findByCode(ctx, shortCode)
	if err != nil {
		return err
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.links.Deactivate(sctx, link.ID); err != nil {
		s.logger.Error("Failed to deactivate link", "error", err, "short_code", shortCode)
		return s.mapStoreErr(err)
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, shortCode); err != nil {
			s.logger.Warn("Failed to invalidate cache", "error", err, "short_code", shortCode)
		}
	}

	s.logger.Info("Link deactivated", "short_code", shortCode)
	return nil
}

// GetStats aggregates click facts for a short link
func (s *linkService) GetStats(ctx context.Context, shortCode string) (*domain.LinkStats, error) {
	link, err := s.findByCode(ctx, shortCode)
	if err != nil {
		return nil, err
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	total, err := s.clicks.CountByLink(sctx, link.ID)
	if err != nil {
		return nil, s.mapStoreErr(err)
	}

	stats := &domain.LinkStats{
		ShortCode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
		TotalClicks: total,
		CreatedAt:   link.CreatedAt,
		ExpiresAt:   link.ExpiresAt,
		IsActive:    link.IsActive,
	}

	for field, dst := range map[string]*map[string]int64{
		"device_type": &stats.DeviceBreakdown,
		"browser":     &stats.BrowserBreakdown,
		"os":          &stats.OSBreakdown,
	} {
		breakdown, err := s.clicks.BreakdownByLink(sctx, link.ID, field)
		if err != nil {
			return nil, s.mapStoreErr(err)
		}
		*dst = breakdown
	}

	return stats, nil
}

// ListLinks returns an owner's active links, newest first
func (s *linkService) ListLinks(ctx context.Context, ownerID uint) ([]domain.ShortLink, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	links, err := s.links.ListByOwner(sctx, ownerID)
	if err != nil {
		s.logger.Error("Failed to list links", "error", err, "owner_id", ownerID)
		return nil, s.mapStoreErr(err)
	}
	return links, nil
}

// createWithGeneratedCode inserts the link under the collision retry loop:
// generate, attempt the insert, retry on unique-constraint conflict. The
// retry cap guards against pathological code-space exhaustion.
func (s *linkService) createWithGeneratedCode(ctx context.Context, link *domain.ShortLink) error {
	for i := 0; i < s.cfg.MaxGenerateRetries; i++ {
		link.ShortCode = s.generator.Generate()

		err := s.createLink(ctx, link)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrCodeTaken) {
			return err
		}

		s.logger.Warn("Short code collision, retrying",
			"short_code", link.ShortCode,
			"attempt", i+1,
		)
	}

	return fmt.Errorf("%w after %d attempts", domain.ErrCodeSpaceExhausted, s.cfg.MaxGenerateRetries)
}

// createLink runs the insert under the bounded store timeout
func (s *linkService) createLink(ctx context.Context, link *domain.ShortLink) error {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if err := s.links.Create(sctx, link); err != nil {
		return s.mapStoreErr(err)
	}
	return nil
}

// codeExists runs the availability check under the bounded store timeout
func (s *linkService) codeExists(ctx context.Context, shortCode string) (bool, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	taken, err := s.links.ExistsByCode(sctx, shortCode)
	if err != nil {
		return false, s.mapStoreErr(err)
	}
	return taken, nil
}

// findByCode runs the lookup under the bounded store timeout
func (s *linkService) findByCode(ctx context.Context, shortCode string) (*domain.ShortLink, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	link, err := s.links.FindByCode(sctx, shortCode)
	if err != nil {
		return nil, s.mapStoreErr(err)
	}
	return link, nil
}

// trackClick hands a job to the click pipeline. Fire-and-forget: a full
// buffer or a stopped pipeline never affects the redirect.
func (s *linkService) trackClick(linkID uint, meta ClickMeta) {
	if s.tracker == nil {
		return
	}

	s.tracker.Enqueue(tracking.Job{
		ShortLinkID: linkID,
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
		Referer:     meta.Referer,
	})
}

// storeCtx bounds a record store operation with the configured timeout
func (s *linkService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

// mapStoreErr surfaces store timeouts as a retryable transient error
// instead of a generic internal failure
func (s *linkService) mapStoreErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrStoreUnavailable
	}
	return err
}

// buildResponse constructs the creation projection with the full short URL
func (s *linkService) buildResponse(link *domain.ShortLink) *domain.CreateLinkResponse {
	return &domain.CreateLinkResponse{
		ShortCode:   link.ShortCode,
		ShortURL:    fmt.Sprintf("%s/%s", s.cfg.BaseURL, link.ShortCode),
		OriginalURL: link.OriginalURL,
		CreatedAt:   link.CreatedAt,
		ExpiresAt:   link.ExpiresAt,
		IsActive:    link.IsActive,
		CustomAlias: link.CustomAlias,
		ClicksCount: 0,
	}
}
