package service

import (
	"MinLink-Backend/internal/cache"
	"MinLink-Backend/internal/config"
	"MinLink-Backend/internal/domain"
	"MinLink-Backend/internal/repository"
	"MinLink-Backend/pkg/random"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

const (
	// maxAllocationAttempts ограничивает генерацию кода; исчерпание означает
	// патологическую плотность коллизий или недоступность хранилища.
	maxAllocationAttempts = 10
	// lengthGrowthThreshold — после скольких неудачных попыток начинаем
	// удлинять код, геометрически снижая вероятность коллизии.
	lengthGrowthThreshold = 5
	// maxSaveRetries покрывает гонку между проверкой существования кода и
	// записью: нарушение уникальности при вставке приводит к перегенерации.
	maxSaveRetries = 3
)

// ErrAllocationExhausted возвращается, когда не удалось подобрать свободный
// короткий код за отведенное число попыток.
var ErrAllocationExhausted = errors.New("failed to allocate unique code")

// URLShortenerService оркестрирует создание и поиск коротких ссылок.
// Хранилище — источник истины; кеш хранит ограниченную по TTL копию.
type URLShortenerService struct {
	storage repository.Storage
	cache   cache.Cache
	titles  *TitleFetcher
	cfg     *config.URLShortener
	log     *zap.Logger
}

func NewURLShortener(storage repository.Storage, c cache.Cache, titles *TitleFetcher, cfg *config.URLShortener, log *zap.Logger) *URLShortenerService {
	return &URLShortenerService{
		storage: storage,
		cache:   c,
		titles:  titles,
		cfg:     cfg,
		log:     log,
	}
}

// Create создает короткую ссылку: best-effort получение title, выделение
// уникального кода, запись в БД и write-through в кеш. Валидация URL и
// admission control выполняются вызывающим до этого метода.
func (s *URLShortenerService) Create(ctx context.Context, originalURL, clientIP string) (*domain.Link, error) {
	var title *string
	if s.titles != nil {
		title = s.titles.Fetch(ctx, originalURL)
	}

	var link *domain.Link
	for attempt := 0; attempt < maxSaveRetries; attempt++ {
		code, err := s.allocateCode(ctx)
		if err != nil {
			return nil, err
		}

		link = &domain.Link{
			Code:      code,
			URL:       originalURL,
			Title:     title,
			ShortURL:  s.ShortURL(code),
			IsActive:  true,
			CreatedBy: &clientIP,
		}

		err = s.storage.SaveLink(ctx, link)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrCodeExists) {
			// Два конкурентных создателя выбрали один код: constraint БД
			// отловил гонку, перегенерируем и повторим.
			s.log.Warn("code collision on insert, regenerating", zap.String("code", code))
			link = nil
			continue
		}
		return nil, fmt.Errorf("failed to save link: %w", err)
	}
	if link == nil {
		return nil, ErrAllocationExhausted
	}

	s.cacheLink(ctx, link)

	s.log.Info("created link",
		zap.String("code", link.Code),
		zap.String("url", originalURL),
		zap.String("created_by", clientIP))

	return link, nil
}

// Lookup ищет ссылку: сначала кеш, затем БД с фильтром по is_active.
// Попадание в кеш возвращается без повторной проверки is_active — в кеш
// пишутся только активные ссылки, а деактивация инвалидирует запись.
func (s *URLShortenerService) Lookup(ctx context.Context, code string) (*domain.Link, error) {
	key := cache.LinkKey(code)

	raw, err := s.cache.Get(ctx, key)
	if err == nil {
		var link domain.Link
		if jsonErr := json.Unmarshal([]byte(raw), &link); jsonErr == nil {
			return &link, nil
		}
		// Нечитаемая запись: удаляем и идем в БД
		s.log.Warn("corrupt link cache entry", zap.String("code", code))
		if delErr := s.cache.Del(ctx, key); delErr != nil {
			s.log.Warn("failed to delete corrupt cache entry", zap.String("code", code), zap.Error(delErr))
		}
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		// Ошибка кеша не фатальна — деградируем до БД
		s.log.Warn("link cache unavailable, falling back to database",
			zap.String("code", code), zap.Error(err))
	}

	link, err := s.storage.GetLink(ctx, code)
	if err != nil {
		return nil, err
	}

	s.cacheLink(ctx, link)
	return link, nil
}

// Deactivate выключает ссылку (мягкое удаление) и инвалидирует кеш
func (s *URLShortenerService) Deactivate(ctx context.Context, code string) error {
	if err := s.storage.DeactivateLink(ctx, code); err != nil {
		return err
	}

	if err := s.cache.Del(ctx, cache.LinkKey(code)); err != nil {
		s.log.Warn("failed to invalidate link cache entry", zap.String("code", code), zap.Error(err))
	}

	s.log.Info("deactivated link", zap.String("code", code))
	return nil
}

// RefreshCache обновляет копию ссылки в кеше (после инкремента кликов)
func (s *URLShortenerService) RefreshCache(ctx context.Context, link *domain.Link) {
	s.cacheLink(ctx, link)
}

// ShortURL строит полный короткий URL для кода
func (s *URLShortenerService) ShortURL(code string) string {
	return s.cfg.BaseURL + "/go/" + code
}

// PreviewURL строит URL страницы предпросмотра для кода
func (s *URLShortenerService) PreviewURL(code string) string {
	return s.cfg.BaseURL + "/preview/" + code
}

// allocateCode подбирает свободный код: случайный кандидат, проверка в БД,
// повтор при коллизии. После lengthGrowthThreshold неудач длина растет на
// единицу с каждой попыткой.
func (s *URLShortenerService) allocateCode(ctx context.Context) (string, error) {
	length := s.cfg.CodeLength

	for attempt := 1; attempt <= maxAllocationAttempts; attempt++ {
		code, err := random.NewRandomString(length)
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}

		exists, err := s.storage.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check code existence: %w", err)
		}
		if !exists {
			return code, nil
		}

		if attempt > lengthGrowthThreshold {
			length++
		}
	}

	return "", ErrAllocationExhausted
}

func (s *URLShortenerService) cacheLink(ctx context.Context, link *domain.Link) {
	payload, err := json.Marshal(link)
	if err != nil {
		s.log.Error("failed to marshal link for cache", zap.String("code", link.Code), zap.Error(err))
		return
	}

	if err := s.cache.Set(ctx, cache.LinkKey(link.Code), string(payload), s.cfg.LinkCacheTTL); err != nil {
		// Запись существует в БД, отсутствие кеша — только деградация
		s.log.Warn("failed to cache link", zap.String("code", link.Code), zap.Error(err))
	}
}
