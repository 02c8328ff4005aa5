package domain

import (
	"time"
)

// ShortLink represents one shortening mapping: a unique short code pointing
// at an original URL, optionally owned, optionally expiring.
type ShortLink struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ShortCode   string     `gorm:"uniqueIndex;not null;size:10" json:"short_code"`
	OriginalURL string     `gorm:"not null;type:text" json:"original_url"`
	OwnerID     *uint      `gorm:"index" json:"owner_id,omitempty"` // Nullable for anonymous links
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	ExpiresAt   *time.Time `gorm:"index" json:"expires_at,omitempty"` // Nullable for non-expiring links
	IsActive    bool       `gorm:"default:true;index" json:"is_active"`
	CustomAlias bool       `gorm:"default:false" json:"custom_alias"` // Caller-supplied vs auto-generated
	CreatorIP   string     `gorm:"size:45" json:"-"`                  // IPv6 max length, not exposed in JSON
}

// TableName specifies the table name for GORM
func (ShortLink) TableName() string {
	return "short_links"
}

// IsExpired checks if the link has passed its expiration time
func (l *ShortLink) IsExpired() bool {
	if l.ExpiresAt == nil {
		return false // Never expires
	}
	return time.Now().After(*l.ExpiresAt)
}

// ClickEvent represents one resolved redirect, enriched with coarse client
// classification. Immutable once created; references the link by id so the
// fact stays valid across code-level changes.
type ClickEvent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ShortLinkID uint      `gorm:"index:idx_click_link_time,priority:1;not null" json:"short_link_id"`
	ClickedAt   time.Time `gorm:"autoCreateTime;index:idx_click_link_time,priority:2" json:"clicked_at"`
	IPAddress   string    `gorm:"size:45" json:"ip_address"`
	UserAgent   string    `gorm:"size:512" json:"user_agent"`
	Referer     *string   `gorm:"type:text" json:"referer,omitempty"`
	DeviceType  string    `gorm:"size:50" json:"device_type"` // mobile, tablet, desktop
	Browser     string    `gorm:"size:100" json:"browser"`
	OS          string    `gorm:"size:100" json:"os"`
	Country     string    `gorm:"size:100" json:"country,omitempty"`
	City        string    `gorm:"size:100" json:"city,omitempty"`
}

// TableName specifies the table name for GORM
func (ClickEvent) TableName() string {
	return "click_events"
}

// CreateLinkRequest represents the request payload for creating a short link
type CreateLinkRequest struct {
	OriginalURL string     `json:"original_url" binding:"required"`
	CustomCode  string     `json:"custom_code,omitempty"` // Optional caller-supplied short code
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`  // Optional expiration timestamp
}

// CreateLinkResponse represents the projection returned after creating a link
type CreateLinkResponse struct {
	ShortCode   string     `json:"short_code"`
	ShortURL    string     `json:"short_url"` // Full shortened URL
	OriginalURL string     `json:"original_url"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	IsActive    bool       `json:"is_active"`
	CustomAlias bool       `json:"custom_alias"`
	ClicksCount int64      `json:"clicks_count"`
}

// LinkStats represents aggregated click statistics for a short link
type LinkStats struct {
	ShortCode        string           `json:"short_code"`
	OriginalURL      string           `json:"original_url"`
	TotalClicks      int64            `json:"total_clicks"`
	CreatedAt        time.Time        `json:"created_at"`
	ExpiresAt        *time.Time       `json:"expires_at,omitempty"`
	IsActive         bool             `json:"is_active"`
	DeviceBreakdown  map[string]int64 `json:"device_breakdown"`
	BrowserBreakdown map[string]int64 `json:"browser_breakdown"`
	OSBreakdown      map[string]int64 `json:"os_breakdown"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}
