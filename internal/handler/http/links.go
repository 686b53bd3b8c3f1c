package http

import (
	"MinLink-Backend/internal/ratelimit"
	"MinLink-Backend/internal/repository"
	"MinLink-Backend/internal/service"
	"MinLink-Backend/internal/validation"
	"MinLink-Backend/internal/verifier"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// LinksHandler обработчик создания и деактивации ссылок
type LinksHandler struct {
	urlShortener *service.URLShortenerService
	limiter      *ratelimit.Limiter
	challenge    verifier.ChallengeVerifier
	adminToken   string
	log          *zap.Logger
}

// NewLinksHandler создает новый обработчик ссылок
func NewLinksHandler(urlShortener *service.URLShortenerService, limiter *ratelimit.Limiter, challenge verifier.ChallengeVerifier, adminToken string, log *zap.Logger) *LinksHandler {
	return &LinksHandler{
		urlShortener: urlShortener,
		limiter:      limiter,
		challenge:    challenge,
		adminToken:   adminToken,
		log:          log,
	}
}

// CreateLinkRequest структура запроса создания ссылки
type CreateLinkRequest struct {
	URL            string `json:"url"`
	TurnstileToken string `json:"turnstileToken"`
}

// LinkData данные созданной ссылки в ответе
type LinkData struct {
	ID         int64   `json:"id"`
	Code       string  `json:"code"`
	URL        string  `json:"url"`
	Title      *string `json:"title"`
	ShortURL   string  `json:"shortUrl"`
	PreviewURL string  `json:"previewUrl"`
	CreatedAt  string  `json:"createdAt"`
}

// RateLimitInfo состояние лимитера в ответе
type RateLimitInfo struct {
	Remaining int   `json:"remaining"`
	ResetTime int64 `json:"resetTime"`
}

// CreateLinkResponse структура ответа создания ссылки
type CreateLinkResponse struct {
	Success   bool          `json:"success"`
	Data      LinkData      `json:"data"`
	RateLimit RateLimitInfo `json:"rateLimit"`
}

// CreateLink создает новую короткую ссылку.
// Порядок проверок фиксирован: валидация входа до любых side effects,
// затем rate limit, затем bot challenge.
func (h *LinksHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid create link request body", zap.Error(err))
		h.writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	// Валидация до каких-либо side effects
	if err := validation.ValidateURL(req.URL); err != nil {
		h.writeJSON(w, map[string]interface{}{
			"error":   "Invalid URL",
			"details": []string{err.Error()},
		}, http.StatusBadRequest)
		return
	}
	if req.TurnstileToken == "" {
		h.writeJSON(w, map[string]interface{}{
			"error":   "Invalid request",
			"details": []string{"turnstileToken is required"},
		}, http.StatusBadRequest)
		return
	}

	clientIP := validation.ClientIP(r)

	// Admission control
	limit := h.limiter.Check(r.Context(), clientIP)
	h.setRateLimitHeaders(w, limit)
	if !limit.Allowed {
		h.log.Info("rate limit exceeded", zap.String("ip", clientIP))
		h.writeJSON(w, map[string]interface{}{
			"error":     "Too many requests. Try again in a few minutes.",
			"resetTime": limit.ResetTime.UnixMilli(),
		}, http.StatusTooManyRequests)
		return
	}

	// Bot challenge
	ok, err := h.challenge.Verify(r.Context(), req.TurnstileToken, clientIP)
	if err != nil {
		h.log.Warn("challenge verification errored", zap.String("ip", clientIP), zap.Error(err))
	}
	if err != nil || !ok {
		h.writeError(w, "Security verification failed. Please try again.", http.StatusBadRequest)
		return
	}

	link, err := h.urlShortener.Create(r.Context(), req.URL, clientIP)
	if err != nil {
		if errors.Is(err, service.ErrAllocationExhausted) {
			h.log.Error("code allocation exhausted", zap.String("ip", clientIP))
		} else {
			h.log.Error("failed to create link", zap.Error(err))
		}
		h.writeError(w, "Internal server error. Please try again.", http.StatusInternalServerError)
		return
	}

	response := CreateLinkResponse{
		Success: true,
		Data: LinkData{
			ID:         link.ID,
			Code:       link.Code,
			URL:        link.URL,
			Title:      link.Title,
			ShortURL:   link.ShortURL,
			PreviewURL: h.urlShortener.PreviewURL(link.Code),
			CreatedAt:  link.CreatedAt.Format(time.RFC3339),
		},
		RateLimit: RateLimitInfo{
			Remaining: limit.Remaining,
			ResetTime: limit.ResetTime.UnixMilli(),
		},
	}

	h.writeJSON(w, response, http.StatusOK)
}

// DeactivateLink выключает ссылку (операторский seam, мягкое удаление).
// Требует X-Admin-Token; при незаданном токене endpoint отключен.
func (h *LinksHandler) DeactivateLink(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.adminToken == "" || r.Header.Get("X-Admin-Token") != h.adminToken {
		h.writeError(w, "Not found", http.StatusNotFound)
		return
	}

	code := strings.TrimPrefix(r.URL.Path, "/api/links/")
	if code == "" || strings.Contains(code, "/") {
		h.writeError(w, "Code is required", http.StatusBadRequest)
		return
	}

	if err := h.urlShortener.Deactivate(r.Context(), code); err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			h.writeError(w, "Link not found", http.StatusNotFound)
			return
		}
		h.log.Error("failed to deactivate link", zap.String("code", code), zap.Error(err))
		h.writeError(w, "Failed to deactivate link", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *LinksHandler) setRateLimitHeaders(w http.ResponseWriter, limit ratelimit.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(h.limiter.MaxRequests()))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limit.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(limit.ResetTime.UnixMilli(), 10))
}

// Helper methods

func (h *LinksHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error("failed to encode response", zap.Error(err))
	}
}

func (h *LinksHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	h.writeJSON(w, map[string]string{"error": message}, statusCode)
}
