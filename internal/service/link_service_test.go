package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"shortlink/internal/config"
	"shortlink/internal/domain"
	"shortlink/internal/service"
	"shortlink/internal/tracking"
	"shortlink/pkg/logger"
)

// MockLinkRepository is a mock implementation of repository.LinkRepository
type MockLinkRepository struct {
	mock.Mock
}

func (m *MockLinkRepository) Create(ctx context.Context, link *domain.ShortLink) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

func (m *MockLinkRepository) FindByCode(ctx context.Context, shortCode string) (*domain.ShortLink, error) {
	args := m.Called(ctx, shortCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShortLink), args.Error(1)
}

func (m *MockLinkRepository) FindByID(ctx context.Context, id uint) (*domain.ShortLink, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShortLink), args.Error(1)
}

func (m *MockLinkRepository) Deactivate(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLinkRepository) ListByOwner(ctx context.Context, ownerID uint) ([]domain.ShortLink, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ShortLink), args.Error(1)
}

func (m *MockLinkRepository) DeactivateExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLinkRepository) ExistsByCode(ctx context.Context, shortCode string) (bool, error) {
	args := m.Called(ctx, shortCode)
	return args.Bool(0), args.Error(1)
}

// MockClickRepository is a mock implementation of repository.ClickRepository
type MockClickRepository struct {
	mock.Mock
}

func (m *MockClickRepository) Insert(ctx context.Context, click *domain.ClickEvent) error {
	args := m.Called(ctx, click)
	return args.Error(0)
}

func (m *MockClickRepository) CountByLink(ctx context.Context, linkID uint) (int64, error) {
	args := m.Called(ctx, linkID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockClickRepository) BreakdownByLink(ctx context.Context, linkID uint, field string) (map[string]int64, error) {
	args := m.Called(ctx, linkID, field)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

// MockCache is a mock implementation of cache.Cache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCache) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Close() error {
	args := m.Called()
	return args.Error(0)
}

// captureTracker records enqueued jobs; accept controls the return value so
// tests can simulate a full or failing pipeline
type captureTracker struct {
	mu     sync.Mutex
	jobs   []tracking.Job
	accept bool
}

func (t *captureTracker) Enqueue(job tracking.Job) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs = append(t.jobs, job)
	return t.accept
}

func (t *captureTracker) all() []tracking.Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]tracking.Job, len(t.jobs))
	copy(out, t.jobs)
	return out
}

type linkServiceFixture struct {
	links   *MockLinkRepository
	clicks  *MockClickRepository
	cache   *MockCache
	tracker *captureTracker
	cfg     *config.Config
	service service.LinkService
}

func setupLinkService(t *testing.T) *linkServiceFixture {
	t.Helper()

	links := new(MockLinkRepository)
	clicks := new(MockClickRepository)
	cache := new(MockCache)
	tracker := &captureTracker{accept: true}

	cfg := &config.Config{
		BaseURL:            "https://sho.rt",
		ShortCodeLength:    6,
		MaxGenerateRetries: 5,
		CacheTTL:           24 * time.Hour,
		StoreTimeout:       5 * time.Second,
	}

	svc := service.NewLinkService(links, clicks, cache, tracker, cfg, logger.NewLogger())

	return &linkServiceFixture{
		links:   links,
		clicks:  clicks,
		cache:   cache,
		tracker: tracker,
		cfg:     cfg,
		service: svc,
	}
}

func TestShorten_GeneratedCode(t *testing.T) {
	f := setupLinkService(t)
	ctx := context.Background()

	f.links.On("Create", mock.Anything, mock.AnythingOfType("*domain.ShortLink")).
		Return(nil).Once()
	f.cache.On("Set", mock.Anything, mock.AnythingOfType("string"), "https://example.com/page", 24*time.Hour).
		Return(nil).Once()

	resp, err := f.service.Shorten(ctx, &domain.CreateLinkRequest{
		OriginalURL: "https://example.com/page",
	}, "192.0.2.1", nil)

	require.NoError(t, err)
	assert.Len(t, resp.ShortCode, 6)
	assert.Equal(t, "https://sho.rt/"+resp.ShortCode, resp.ShortURL)
	assert.Equal(t, "https://example.com/page", resp.OriginalURL)
	assert.False(t, resp.CustomAlias)
	assert.Equal(t, int64(0), resp.ClicksCount)

	f.links.AssertExpectations(t)
	f.cache.AssertExpectations(t)
}

func TestShorten_GeneratedCodeRetriesOnCollision(t *testing.T) {
	f := setupLinkService(t)
	ctx := context.Background()

	// First insert collides, second wins
	f.links.On("Create", mock.Anything, mock.AnythingOfType("*domain.ShortLink")).
		Return(domain.ErrCodeTaken).Once()
	f.links.On("Create", mock.Anything, mock.AnythingOfType("*domain.ShortLink")).
		Return(nil).Once()
	f.cache.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil)

	resp, err := f.service.Shorten(ctx, &domain.CreateLinkRequest{
		OriginalURL: "https://example.com/page",
	}, "192.0.2.1", nil)

	require.NoError(t, err)
	assert.NotEmpty(t, resp.ShortCode)
	f.links.AssertNumberOfCalls(t, "Create", 2)
}

func TestShorten_GeneratorExhaustion(t *testing.T) {
	f := setupLinkService(t)
	ctx := context.Background()

	// Pathological exhaustion: every generated code collides
	f.links.On("Create", mock.Anything, mock.AnythingOfType("*domain.ShortLink")).
		Return(domain.ErrCodeTaken)

	_, err := f.service.Shorten(ctx, &domain.CreateLinkRequest{
		OriginalURL: "https://example.com/page",
	}, "192.0.2.1", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCodeSpaceExhausted)
	f.links.AssertNumberOfCalls(t, "Create", f.cfg.MaxGenerateRetries)
}

func TestShorten_CustomCode(t *testing.T) {
	f := setupLinkService(t)
	ctx := context.Background()

	f.links.On("ExistsByCode", mock.Anything, "promo1").Return(false, nil).Once()
	f.links.On("Create", mock.Anything, mock.MatchedBy(func(l *domain.ShortLink) bool {
		return l.ShortCode == "promo1" && l.CustomAlias
	})).Return(nil).Once()
	f.cache.On("Set", mock.Anything, "promo1", "https://example.com/page", 24*time.Hour).
		Return(nil).Once()

	resp, err := f.service.Shorten(ctx, &domain.CreateLinkRequest{
		OriginalURL: "https://example.com/page",
		CustomCode:  "promo1",
	}, "192.0.2.1", nil)

	require.NoError(t, err)
	assert.Equal(t, "promo1", resp.ShortCode)
	assert.True(t, resp.CustomAlias)

	f.links.AssertExpectations(t)
}

func TestShorten_CustomCodeTaken(t *testing.T) {
	f := setupLinkService(t)
	ctx := context.Background()

	// The precheck answers the common conflict without attempting the insert
	f.links.On("ExistsByCode", mock.Anything, "promo1").Return(true, nil).Once()

	_, err := f.service.Shorten(ctx, &domain.CreateLinkRequest{
		OriginalURL: "https://example.com/page",
		CustomCode:  "promo1",
	}, "192.0.2.1", nil)

	assert.ErrorIs(t, err, domain.ErrCodeTaken)
	f.links.AssertNotCalled(t, "Create")
}

func TestShorten_CustomCodeRaceLosesAtInsert(t *testing.T) {
	f := setupLinkService(t)
	ctx := context.Background()

	// Precheck passes but a concurrent creator wins the unique index;
	// the insert is the authority and the loser sees ErrCodeTaken
	f.links.On("ExistsByCode", mock.Anything, "promo1").Return(false, nil).Once()
	f.links.On("Create", mock.Anything, mock.AnythingOfType("*domain.ShortLink")).
		Return(domain.ErrCodeTaken).Once()

	_, err := f.service.Shorten(ctx, &domain.CreateLinkRequest{
		OriginalURL: "https://example.com/page",
		CustomCode:  "promo1",
	}, "192.0.2.1", nil)

	assert.ErrorIs(t, err, domain.ErrCodeTaken)
	f.links.AssertNumberOfCalls(t, "Create", 1) // no retry for custom codes
}

func TestShorten_InvalidURL(t *testing.T) {
	f := setupLinkService(t)

	_, err := f.service.Shorten(context.Background(), &domain.CreateLinkRequest{
		OriginalURL: "not-a-valid-url",
	}, "192.0.2.1", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidURL)
	f.links.AssertNotCalled(t, "Create")
}

func TestShorten_InvalidCustomCode(t *testing.T) {
	f := setupLinkService(t)

	_, err := f.service.Shorten(context.Background(), &domain.CreateLinkRequest{
		OriginalURL: "https://example.com/page",
		CustomCode:  "way-too-long-alias",
	}, "192.0.2.1", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCodeInvalid)
	f.links.AssertNotCalled(t, "Create")
}

func TestResolve_CacheHit(t *testing.T) {
	f := setupLinkService(t)
	ctx := context.Background()
	meta := service.ClickMeta{IPAddress: "198.51.100.7", UserAgent: "curl/8.4.0"}

	link := &domain.ShortLink{ID: 7, ShortCode: "abc123", OriginalURL: "https://example.com/cached", IsActive: true}

	f.cache.On("Get", mock.Anything, "abc123").Return("https://example.com/cached", nil).Once()
	// The record is still fetched for the id needed by tracking
	f.links.On("FindByCode", mock.Anything, "abc123").Return(link, nil).Once()

	url, err := f.service.Resolve(ctx, "abc123", meta)

	require.NoError(t, err)
	assert.Equal(t, "https://example.com/cached", url)

	jobs := f.tracker.all()
	require.Len(t, jobs, 1)
	assert.Equal(t, uint(7), jobs[0].ShortLinkID)
	assert.Equal(t, "198.51.100.7", jobs[0].IPAddress)

	// No cache refill on the hit path
	f.cache.AssertNotCalled(t, "Set")
}

func TestResolve_CacheMissPopulatesCache(t *testing.T) {
	f := setupLinkService(t)
	ctx := context.Background()

	link := &domain.ShortLink{ID: 3, ShortCode: "abc123", OriginalURL: "https://example.com/fresh", IsActive: true}

	f.cache.On("Get", mock.Anything, "abc123").Return("", nil).Once() // miss
	f.links.On("FindByCode", mock.Anything, "abc123").Return(link, nil).Once()
	f.cache.On("Set", mock.Anything, "abc123", "https://example.com/fresh", 24*time.Hour).
		Return(nil).Once()

	url, err := f.service.Resolve(ctx, "abc123", service.ClickMeta{})

	require.NoError(t, err)
	assert.Equal(t, "https://example.com/fresh", url)
	assert.Len(t, f.tracker.all(), 1)

	f.cache.AssertExpectations(t)
}

func TestResolve_NotFound(t *testing.T) {
	f := setupLinkService(t)

	f.cache.On("Get", mock.Anything, "nosuch").Return("", nil)
	f.links.On("FindByCode", mock.Anything, "nosuch").Return(nil, domain.ErrLinkNotFound)

	_, err := f.service.Resolve(context.Background(), "nosuch", service.ClickMeta{})

	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
	assert.Empty(t, f.tracker.all())
}

func TestResolve_InactiveLinkIsNotFound(t *testing.T) {
	f := setupLinkService(t)

	link := &domain.ShortLink{ID: 3, ShortCode: "gone1", OriginalURL: "https://example.com", IsActive: false}

	f.cache.On("Get", mock.Anything, "gone1").Return("", nil)
	f.links.On("FindByCode", mock.Anything, "gone1").Return(link, nil)

	_, err := f.service.Resolve(context.Background(), "gone1", service.ClickMeta{})

	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
	assert.Empty(t, f.tracker.all())
	f.cache.AssertNotCalled(t, "Set")
}

func TestResolve_ExpiredIsDistinctFromNotFound(t *testing.T) {
	f := setupLinkService(t)

	expiry := time.Now().Add(-24 * time.Hour)
	link := &domain.ShortLink{ID: 3, ShortCode: "old123", OriginalURL: "https://example.com", IsActive: true, ExpiresAt: &expiry}

	f.cache.On("Get", mock.Anything, "old123").Return("", nil)
	f.links.On("FindByCode", mock.Anything, "old123").Return(link, nil)

	_, err := f.service.Resolve(context.Background(), "old123", service.ClickMeta{})

	assert.ErrorIs(t, err, domain.ErrLinkExpired)
	assert.NotErrorIs(t, err, domain.ErrLinkNotFound)
	assert.Empty(t, f.tracker.all())
}

func TestResolve_FullPipelineNeverFailsRedirect(t *testing.T) {
	f := setupLinkService(t)
	f.tracker.accept = false // pipeline rejects every job

	link := &domain.ShortLink{ID: 3, ShortCode: "abc123", OriginalURL: "https://example.com/page", IsActive: true}

	f.cache.On("Get", mock.Anything, "abc123").Return("", nil)
	f.links.On("FindByCode", mock.Anything, "abc123").Return(link, nil)
	f.cache.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	url, err := f.service.Resolve(context.Background(), "abc123", service.ClickMeta{})

	require.NoError(t, err)
	assert.Equal(t, "https://example.com/page", url)
}

func TestResolve_NilCacheFallsBackToStore(t *testing.T) {
	links := new(MockLinkRepository)
	clicks := new(MockClickRepository)
	tracker := &captureTracker{accept: true}
	cfg := &config.Config{
		BaseURL:            "https://sho.rt",
		ShortCodeLength:    6,
		MaxGenerateRetries: 5,
		CacheTTL:           24 * time.Hour,
		StoreTimeout:       5 * time.Second,
	}
	svc := service.NewLinkService(links, clicks, nil, tracker, cfg, logger.NewLogger())

	link := &domain.ShortLink{ID: 3, ShortCode: "abc123", OriginalURL: "https://example.com/page", IsActive: true}
	links.On("FindByCode", mock.Anything, "abc123").Return(link, nil)

	url, err := svc.Resolve(context.Background(), "abc123", service.ClickMeta{})

	require.NoError(t, err)
	assert.Equal(t, "https://example.com/page", url)
	assert.Len(t, tracker.all(), 1)
}

func TestDeactivate_InvalidatesCacheSynchronously(t *testing.T) {
	f := setupLinkService(t)

	link := &domain.ShortLink{ID: 9, ShortCode: "abc123", OriginalURL: "https://example.com", IsActive: true}

	f.links.On("FindByCode", mock.Anything, "abc123").Return(link, nil).Once()
	f.links.On("Deactivate", mock.Anything, uint(9)).Return(nil).Once()
	f.cache.On("Delete", mock.Anything, "abc123").Return(nil).Once()

	err := f.service.Deactivate(context.Background(), "abc123")

	require.NoError(t, err)
	f.links.AssertExpectations(t)
	f.cache.AssertExpectations(t)
}

func TestDeactivate_Idempotent(t *testing.T) {
	f := setupLinkService(t)

	// Already-inactive link: repository Deactivate still succeeds
	link := &domain.ShortLink{ID: 9, ShortCode: "abc123", OriginalURL: "https://example.com", IsActive: false}

	f.links.On("FindByCode", mock.Anything, "abc123").Return(link, nil)
	f.links.On("Deactivate", mock.Anything, uint(9)).Return(nil)
	f.cache.On("Delete", mock.Anything, "abc123").Return(nil)

	assert.NoError(t, f.service.Deactivate(context.Background(), "abc123"))
	assert.NoError(t, f.service.Deactivate(context.Background(), "abc123"))
}

func TestGetStats_AggregatesBreakdowns(t *testing.T) {
	f := setupLinkService(t)

	link := &domain.ShortLink{ID: 5, ShortCode: "abc123", OriginalURL: "https://example.com", IsActive: true}

	f.links.On("FindByCode", mock.Anything, "abc123").Return(link, nil)
	f.clicks.On("CountByLink", mock.Anything, uint(5)).Return(int64(42), nil)
	f.clicks.On("BreakdownByLink", mock.Anything, uint(5), "device_type").
		Return(map[string]int64{"mobile": 30, "desktop": 12}, nil)
	f.clicks.On("BreakdownByLink", mock.Anything, uint(5), "browser").
		Return(map[string]int64{"Chrome": 42}, nil)
	f.clicks.On("BreakdownByLink", mock.Anything, uint(5), "os").
		Return(map[string]int64{"Android": 30, "Windows": 12}, nil)

	stats, err := f.service.GetStats(context.Background(), "abc123")

	require.NoError(t, err)
	assert.Equal(t, int64(42), stats.TotalClicks)
	assert.Equal(t, int64(30), stats.DeviceBreakdown["mobile"])
	assert.Equal(t, int64(42), stats.BrowserBreakdown["Chrome"])
	assert.Equal(t, int64(30), stats.OSBreakdown["Android"])
}

func TestListLinks_ReturnsOwnerLinks(t *testing.T) {
	f := setupLinkService(t)

	owned := []domain.ShortLink{
		{ID: 2, ShortCode: "abc123", OriginalURL: "https://example.com/a", IsActive: true},
		{ID: 1, ShortCode: "def456", OriginalURL: "https://example.com/b", IsActive: true},
	}
	f.links.On("ListByOwner", mock.Anything, uint(42)).Return(owned, nil).Once()

	links, err := f.service.ListLinks(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, owned, links)
	f.links.AssertExpectations(t)
}

func TestResolve_StoreTimeoutSurfacesTransientError(t *testing.T) {
	f := setupLinkService(t)

	f.cache.On("Get", mock.Anything, "abc123").Return("", nil)
	f.links.On("FindByCode", mock.Anything, "abc123").
		Return(nil, errors.Join(errors.New("query canceled"), context.DeadlineExceeded))

	_, err := f.service.Resolve(context.Background(), "abc123", service.ClickMeta{})

	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
