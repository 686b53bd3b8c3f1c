package service

import (
	"MinLink-Backend/internal/cache"
	"MinLink-Backend/internal/config"
	"MinLink-Backend/internal/domain"
	"MinLink-Backend/internal/repository"
	"MinLink-Backend/internal/repository/memory"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockStorage is a mock implementation of repository.Storage
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) SaveLink(ctx context.Context, link *domain.Link) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

func (m *MockStorage) GetLink(ctx context.Context, code string) (*domain.Link, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

func (m *MockStorage) CodeExists(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) DeactivateLink(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *MockStorage) RecordClick(ctx context.Context, event *domain.ClickEvent) (*domain.Link, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

func (m *MockStorage) ListClickEvents(ctx context.Context, linkID int64, limit int) ([]*domain.ClickEvent, error) {
	args := m.Called(ctx, linkID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ClickEvent), args.Error(1)
}

func (m *MockStorage) GetRateLimit(ctx context.Context, ip string) (*domain.RateLimitRecord, error) {
	args := m.Called(ctx, ip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RateLimitRecord), args.Error(1)
}

func (m *MockStorage) UpsertRateLimit(ctx context.Context, record *domain.RateLimitRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func newTestService(t *testing.T, storage repository.Storage) (*URLShortenerService, *cache.MemoryCache) {
	t.Helper()

	c := cache.NewMemoryCache()
	t.Cleanup(func() { _ = c.Close() })

	cfg := &config.URLShortener{
		BaseURL:      "http://localhost:8080",
		CodeLength:   6,
		LinkCacheTTL: time.Hour,
	}
	return NewURLShortener(storage, c, nil, cfg, zap.NewNop()), c
}

func TestURLShortenerService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates link with generated code", func(t *testing.T) {
		svc, c := newTestService(t, memory.New())

		link, err := svc.Create(ctx, "https://example.com/article", "198.51.100.1")
		require.NoError(t, err)

		assert.Len(t, link.Code, 6)
		assert.Equal(t, "https://example.com/article", link.URL)
		assert.Equal(t, "http://localhost:8080/go/"+link.Code, link.ShortURL)
		assert.Equal(t, int64(0), link.Clicks)
		assert.True(t, link.IsActive)
		require.NotNil(t, link.CreatedBy)
		assert.Equal(t, "198.51.100.1", *link.CreatedBy)

		// Ссылка должна оказаться в кеше сразу после создания
		_, err = c.Get(ctx, cache.LinkKey(link.Code))
		assert.NoError(t, err)
	})

	t.Run("regenerates code on insert collision", func(t *testing.T) {
		mockStorage := &MockStorage{}
		svc, _ := newTestService(t, mockStorage)

		mockStorage.On("CodeExists", ctx, mock.AnythingOfType("string")).Return(false, nil)
		mockStorage.On("SaveLink", ctx, mock.AnythingOfType("*domain.Link")).Return(repository.ErrCodeExists).Once()
		mockStorage.On("SaveLink", ctx, mock.AnythingOfType("*domain.Link")).Return(nil).Once()

		link, err := svc.Create(ctx, "https://example.com", "198.51.100.1")
		require.NoError(t, err)
		assert.Len(t, link.Code, 6)

		mockStorage.AssertNumberOfCalls(t, "SaveLink", 2)
	})

	t.Run("gives up after persistent collisions", func(t *testing.T) {
		mockStorage := &MockStorage{}
		svc, _ := newTestService(t, mockStorage)

		mockStorage.On("CodeExists", ctx, mock.AnythingOfType("string")).Return(false, nil)
		mockStorage.On("SaveLink", ctx, mock.AnythingOfType("*domain.Link")).Return(repository.ErrCodeExists)

		_, err := svc.Create(ctx, "https://example.com", "198.51.100.1")
		require.ErrorIs(t, err, ErrAllocationExhausted)
	})

	t.Run("grows code length after repeated allocation collisions", func(t *testing.T) {
		mockStorage := &MockStorage{}
		svc, _ := newTestService(t, mockStorage)

		// Первые 7 кандидатов заняты, восьмой свободен
		for i := 0; i < 7; i++ {
			mockStorage.On("CodeExists", ctx, mock.AnythingOfType("string")).Return(true, nil).Once()
		}
		mockStorage.On("CodeExists", ctx, mock.AnythingOfType("string")).Return(false, nil).Once()
		mockStorage.On("SaveLink", ctx, mock.MatchedBy(func(link *domain.Link) bool {
			return len(link.Code) == 8
		})).Return(nil).Once()

		link, err := svc.Create(ctx, "https://example.com", "198.51.100.1")
		require.NoError(t, err)
		assert.Len(t, link.Code, 8)
	})
}

func TestURLShortenerService_Lookup(t *testing.T) {
	ctx := context.Background()

	t.Run("returns link from database and caches it", func(t *testing.T) {
		storage := memory.New()
		svc, c := newTestService(t, storage)

		created, err := svc.Create(ctx, "https://example.com", "198.51.100.1")
		require.NoError(t, err)

		// Сбрасываем кеш, чтобы проверить путь через БД
		require.NoError(t, c.Del(ctx, cache.LinkKey(created.Code)))

		link, err := svc.Lookup(ctx, created.Code)
		require.NoError(t, err)
		assert.Equal(t, created.Code, link.Code)
		assert.Equal(t, "https://example.com", link.URL)

		_, err = c.Get(ctx, cache.LinkKey(created.Code))
		assert.NoError(t, err)
	})

	t.Run("serves cache hit without touching database", func(t *testing.T) {
		mockStorage := &MockStorage{}
		svc, c := newTestService(t, mockStorage)

		cached := &domain.Link{ID: 1, Code: "abc123", URL: "https://example.com", IsActive: true}
		payload := `{"id":1,"code":"abc123","url":"https://example.com","isActive":true}`
		require.NoError(t, c.Set(ctx, cache.LinkKey("abc123"), payload, time.Hour))

		link, err := svc.Lookup(ctx, "abc123")
		require.NoError(t, err)
		assert.Equal(t, cached.Code, link.Code)
		assert.Equal(t, cached.URL, link.URL)

		mockStorage.AssertNotCalled(t, "GetLink")
	})

	t.Run("corrupt cache entry falls back to database", func(t *testing.T) {
		storage := memory.New()
		svc, c := newTestService(t, storage)

		created, err := svc.Create(ctx, "https://example.com", "198.51.100.1")
		require.NoError(t, err)

		require.NoError(t, c.Set(ctx, cache.LinkKey(created.Code), "{broken", time.Hour))

		link, err := svc.Lookup(ctx, created.Code)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", link.URL)
	})

	t.Run("unknown code returns not found", func(t *testing.T) {
		svc, _ := newTestService(t, memory.New())

		_, err := svc.Lookup(ctx, "nothere")
		require.ErrorIs(t, err, repository.ErrCodeNotFound)
	})
}

func TestURLShortenerService_Deactivate(t *testing.T) {
	ctx := context.Background()

	t.Run("deactivated link disappears from lookup", func(t *testing.T) {
		svc, _ := newTestService(t, memory.New())

		created, err := svc.Create(ctx, "https://example.com", "198.51.100.1")
		require.NoError(t, err)

		require.NoError(t, svc.Deactivate(ctx, created.Code))

		_, err = svc.Lookup(ctx, created.Code)
		require.ErrorIs(t, err, repository.ErrCodeNotFound)
	})

	t.Run("deactivate invalidates cache entry", func(t *testing.T) {
		svc, c := newTestService(t, memory.New())

		created, err := svc.Create(ctx, "https://example.com", "198.51.100.1")
		require.NoError(t, err)

		require.NoError(t, svc.Deactivate(ctx, created.Code))

		_, err = c.Get(ctx, cache.LinkKey(created.Code))
		require.ErrorIs(t, err, cache.ErrCacheMiss)
	})

	t.Run("unknown code returns not found", func(t *testing.T) {
		svc, _ := newTestService(t, memory.New())
		require.ErrorIs(t, svc.Deactivate(ctx, "nothere"), repository.ErrCodeNotFound)
	})
}
