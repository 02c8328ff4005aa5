package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"shortlink/internal/domain"
	"shortlink/internal/service"
	"shortlink/pkg/logger"
)

// LinkHandler handles HTTP requests for short link operations
type LinkHandler struct {
	service service.LinkService
	logger  *logger.Logger
}

// NewLinkHandler creates a new link handler with dependencies
func NewLinkHandler(service service.LinkService, logger *logger.Logger) *LinkHandler {
	return &LinkHandler{
		service: service,
		logger:  logger,
	}
}

// CreateLink handles POST /api/v1/links
// Creates a new short link
func (h *LinkHandler) CreateLink(c *gin.Context) {
	var req domain.CreateLinkRequest

	// Bind and validate request body
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, domain.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body: " + err.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}

	// Owner id is attached by the auth middleware when present;
	// anonymous creation leaves it nil
	var ownerID *uint
	if v, ok := c.Get(ContextOwnerID); ok {
		if id, ok := v.(uint); ok {
			ownerID = &id
		}
	}

	response, err := h.service.Shorten(c.Request.Context(), &req, c.ClientIP(), ownerID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// ListLinks handles GET /api/v1/links?owner_id=N
// Returns an owner's active links
func (h *LinkHandler) ListLinks(c *gin.Context) {
	ownerID, err := strconv.ParseUint(c.Query("owner_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, domain.ErrorResponse{
			Error:   "invalid_owner_id",
			Message: "A numeric owner_id query parameter is required",
			Code:    http.StatusBadRequest,
		})
		return
	}

	links, err := h.service.ListLinks(c.Request.Context(), uint(ownerID))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"links": links,
		"count": len(links),
	})
}

// Redirect handles GET /:shortCode
// Redirects to the original URL and hands off click tracking
func (h *LinkHandler) Redirect(c *gin.Context) {
	shortCode := c.Param("shortCode")

	if shortCode == "" {
		c.JSON(http.StatusBadRequest, domain.ErrorResponse{
			Error:   "invalid_short_code",
			Message: "Short code is required",
			Code:    http.StatusBadRequest,
		})
		return
	}

	meta := service.ClickMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referer:   c.Request.Referer(),
	}

	originalURL, err := h.service.Resolve(c.Request.Context(), shortCode, meta)
	if err != nil {
		h.handleError(c, err)
		return
	}

	// 302 temporary redirect so every hit reaches the tracker; a 301 would
	// let intermediaries cache the redirect and swallow clicks
	c.Redirect(http.StatusFound, originalURL)
}

// GetLinkInfo handles GET /api/v1/links/:shortCode
// Returns the full record for a short link
func (h *LinkHandler) GetLinkInfo(c *gin.Context) {
	shortCode := c.Param("shortCode")

	if shortCode == "" {
		c.JSON(http.StatusBadRequest, domain.ErrorResponse{
			Error:   "invalid_short_code",
			Message: "Short code is required",
			Code:    http.StatusBadRequest,
		})
		return
	}

	link, err := h.service.GetLinkInfo(c.Request.Context(), shortCode)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, link)
}

// DeactivateLink handles DELETE /api/v1/links/:shortCode
// Soft-deletes a short link; idempotent
func (h *LinkHandler) DeactivateLink(c *gin.Context) {
	shortCode := c.Param("shortCode")

	if shortCode == "" {
		c.JSON(http.StatusBadRequest, domain.ErrorResponse{
			Error:   "invalid_short_code",
			Message: "Short code is required",
			Code:    http.StatusBadRequest,
		})
		return
	}

	if err := h.service.Deactivate(c.Request.Context(), shortCode); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Link deactivated",
		"code":    shortCode,
	})
}

// GetStats handles GET /api/v1/links/:shortCode/stats
// Returns click statistics for a short link
func (h *LinkHandler) GetStats(c *gin.Context) {
	shortCode := c.Param("shortCode")

	if shortCode == "" {
		c.JSON(http.StatusBadRequest, domain.ErrorResponse{
			Error:   "invalid_short_code",
			Message: "Short code is required",
			Code:    http.StatusBadRequest,
		})
		return
	}

	stats, err := h.service.GetStats(c.Request.Context(), shortCode)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// handleError processes domain errors and returns appropriate HTTP responses
func (h *LinkHandler) handleError(c *gin.Context, err error) {
	var appErr *domain.AppError

	switch {
	case errors.As(err, &appErr):
		// Log internal errors but don't expose details to users
		if appErr.Internal {
			h.logger.Error("Internal server error", "error", appErr.Err)
			c.JSON(appErr.StatusCode, domain.ErrorResponse{
				Error:   "internal_error",
				Message: "An internal error occurred",
				Code:    appErr.StatusCode,
			})
		} else {
			c.JSON(appErr.StatusCode, domain.ErrorResponse{
				Error:   "client_error",
				Message: appErr.Message,
				Code:    appErr.StatusCode,
			})
		}

	case errors.Is(err, domain.ErrLinkNotFound):
		c.JSON(http.StatusNotFound, domain.ErrorResponse{
			Error:   "not_found",
			Message: "The requested link was not found",
			Code:    http.StatusNotFound,
		})

	case errors.Is(err, domain.ErrLinkExpired):
		c.JSON(http.StatusGone, domain.ErrorResponse{
			Error:   "link_expired",
			Message: "This link has expired and is no longer available",
			Code:    http.StatusGone,
		})

	case errors.Is(err, domain.ErrCodeTaken):
		c.JSON(http.StatusConflict, domain.ErrorResponse{
			Error:   "code_taken",
			Message: "This short code is already in use",
			Code:    http.StatusConflict,
		})

	case errors.Is(err, domain.ErrCodeSpaceExhausted):
		c.JSON(http.StatusConflict, domain.ErrorResponse{
			Error:   "code_space_exhausted",
			Message: "Could not allocate a unique short code, please retry",
			Code:    http.StatusConflict,
		})

	case errors.Is(err, domain.ErrInvalidURL):
		c.JSON(http.StatusBadRequest, domain.ErrorResponse{
			Error:   "invalid_url",
			Message: "The provided URL is invalid",
			Code:    http.StatusBadRequest,
		})

	case errors.Is(err, domain.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, domain.ErrorResponse{
			Error:   "store_unavailable",
			Message: "The service is temporarily unavailable, please retry",
			Code:    http.StatusServiceUnavailable,
		})

	default:
		h.logger.Error("Unexpected error", "error", err)
		c.JSON(http.StatusInternalServerError, domain.ErrorResponse{
			Error:   "internal_error",
			Message: "An unexpected error occurred",
			Code:    http.StatusInternalServerError,
		})
	}
}
