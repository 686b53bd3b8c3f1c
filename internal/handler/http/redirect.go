package http

import (
	"MinLink-Backend/internal/analytics"
	"MinLink-Backend/internal/repository"
	"MinLink-Backend/internal/service"
	"MinLink-Backend/internal/validation"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// RedirectHandler обработчик редиректов по короткому коду.
// Контракт: ответ — всегда 3xx (на целевой URL либо на главную с
// error-индикатором), запись клика никогда не задерживает редирект.
type RedirectHandler struct {
	urlShortener *service.URLShortenerService
	processor    *analytics.Processor
	log          *zap.Logger
}

// NewRedirectHandler создает новый обработчик редиректов
func NewRedirectHandler(urlShortener *service.URLShortenerService, processor *analytics.Processor, log *zap.Logger) *RedirectHandler {
	return &RedirectHandler{
		urlShortener: urlShortener,
		processor:    processor,
		log:          log,
	}
}

// HandleRedirect обрабатывает GET /go/{code}
func (h *RedirectHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	code := strings.TrimPrefix(r.URL.Path, "/go/")
	if idx := strings.IndexByte(code, '/'); idx >= 0 {
		code = code[:idx]
	}
	if code == "" {
		http.Redirect(w, r, "/?error=not-found", http.StatusTemporaryRedirect)
		return
	}

	link, err := h.urlShortener.Lookup(r.Context(), code)
	if err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			h.log.Debug("code not found", zap.String("code", code))
			http.Redirect(w, r, "/?error=not-found", http.StatusTemporaryRedirect)
			return
		}
		h.log.Error("failed to resolve code", zap.String("code", code), zap.Error(err))
		http.Redirect(w, r, "/?error=server-error", http.StatusTemporaryRedirect)
		return
	}

	// Метаданные извлекаем синхронно: после записи ответа *http.Request
	// может быть переиспользован сервером
	clientIP := validation.ClientIP(r)
	country, city := validation.GeoLocation(r)
	click := &analytics.Click{
		Code:      link.Code,
		LinkID:    link.ID,
		IP:        clientIP,
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
		Country:   country,
		City:      city,
		ClickedAt: time.Now(),
	}

	// Редирект уходит сразу, запись клика — fire-and-forget
	http.Redirect(w, r, link.URL, http.StatusTemporaryRedirect)

	if err := h.processor.Submit(click); err != nil {
		h.log.Warn("failed to submit click", zap.String("code", code), zap.Error(err))
	}

	h.log.Info("redirect",
		zap.String("code", code),
		zap.String("ip", clientIP),
		zap.String("country", country))
}
