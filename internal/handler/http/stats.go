package http

import (
	"MinLink-Backend/internal/domain"
	"MinLink-Backend/internal/repository"
	"MinLink-Backend/internal/service"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxScannedEvents ограничивает выборку кликов для агрегации
const maxScannedEvents = 100

// recentClicksLimit — сколько последних кликов возвращается в ответе
const recentClicksLimit = 10

// StatsHandler обработчик статистики по ссылке
type StatsHandler struct {
	storage      repository.Storage
	urlShortener *service.URLShortenerService
	log          *zap.Logger
}

// NewStatsHandler создает новый обработчик статистики
func NewStatsHandler(storage repository.Storage, urlShortener *service.URLShortenerService, log *zap.Logger) *StatsHandler {
	return &StatsHandler{
		storage:      storage,
		urlShortener: urlShortener,
		log:          log,
	}
}

// LinkStats агрегированная статистика кликов
type LinkStats struct {
	TotalClicks     int64            `json:"totalClicks"`
	UniqueClicks    int              `json:"uniqueClicks"`
	ClicksByDay     map[string]int64 `json:"clicksByDay"`
	ClicksByCountry map[string]int64 `json:"clicksByCountry"`
	TopReferrers    map[string]int64 `json:"topReferrers"`
}

// RecentClick один из последних кликов в ответе
type RecentClick struct {
	ID        int64   `json:"id"`
	CreatedAt string  `json:"createdAt"`
	Country   *string `json:"country,omitempty"`
	Referer   *string `json:"referer,omitempty"`
}

// StatsLinkInfo информация о ссылке в ответе статистики
type StatsLinkInfo struct {
	ID        int64   `json:"id"`
	Code      string  `json:"code"`
	URL       string  `json:"url"`
	Title     *string `json:"title"`
	CreatedAt string  `json:"createdAt"`
	IsActive  bool    `json:"isActive"`
}

// StatsResponse структура ответа статистики
type StatsResponse struct {
	Success bool      `json:"success"`
	Data    StatsData `json:"data"`
}

type StatsData struct {
	Link         StatsLinkInfo `json:"link"`
	Stats        LinkStats     `json:"stats"`
	RecentClicks []RecentClick `json:"recentClicks"`
}

// GetStats возвращает агрегированную статистику по коду.
// Агрегаты считаются по последним maxScannedEvents кликам.
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	code := strings.TrimPrefix(r.URL.Path, "/api/stats/")
	if code == "" || strings.Contains(code, "/") {
		h.writeError(w, "Code is required", http.StatusBadRequest)
		return
	}

	link, err := h.urlShortener.Lookup(r.Context(), code)
	if err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			h.writeError(w, "Link not found", http.StatusNotFound)
			return
		}
		h.log.Error("failed to resolve code for stats", zap.String("code", code), zap.Error(err))
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	events, err := h.storage.ListClickEvents(r.Context(), link.ID, maxScannedEvents)
	if err != nil {
		h.log.Error("failed to list click events", zap.String("code", code), zap.Error(err))
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := StatsResponse{
		Success: true,
		Data: StatsData{
			Link: StatsLinkInfo{
				ID:        link.ID,
				Code:      link.Code,
				URL:       link.URL,
				Title:     link.Title,
				CreatedAt: link.CreatedAt.Format(time.RFC3339),
				IsActive:  link.IsActive,
			},
			Stats:        aggregate(link, events),
			RecentClicks: recentClicks(events),
		},
	}

	h.writeJSON(w, response, http.StatusOK)
}

// aggregate строит агрегаты по выборке кликов
func aggregate(link *domain.Link, events []*domain.ClickEvent) LinkStats {
	stats := LinkStats{
		TotalClicks:     link.Clicks,
		ClicksByDay:     make(map[string]int64),
		ClicksByCountry: make(map[string]int64),
		TopReferrers:    make(map[string]int64),
	}

	uniqueIPs := make(map[string]struct{})
	for _, event := range events {
		if event.IP != nil {
			uniqueIPs[*event.IP] = struct{}{}
		}

		day := event.CreatedAt.UTC().Format("2006-01-02")
		stats.ClicksByDay[day]++

		if event.Country != nil && *event.Country != "" {
			stats.ClicksByCountry[*event.Country]++
		}

		stats.TopReferrers[refererDomain(event.Referer)]++
	}
	stats.UniqueClicks = len(uniqueIPs)

	return stats
}

// refererDomain сводит referer к домену; пустой referer считается "direct"
func refererDomain(referer *string) string {
	if referer == nil || *referer == "" || *referer == "direct" {
		return "direct"
	}

	parsed, err := url.Parse(*referer)
	if err != nil || parsed.Hostname() == "" {
		return "unknown"
	}
	return parsed.Hostname()
}

func recentClicks(events []*domain.ClickEvent) []RecentClick {
	limit := recentClicksLimit
	if len(events) < limit {
		limit = len(events)
	}

	recent := make([]RecentClick, 0, limit)
	for _, event := range events[:limit] {
		recent = append(recent, RecentClick{
			ID:        event.ID,
			CreatedAt: event.CreatedAt.Format(time.RFC3339),
			Country:   event.Country,
			Referer:   event.Referer,
		})
	}
	return recent
}

func (h *StatsHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error("failed to encode stats response", zap.Error(err))
	}
}

func (h *StatsHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	h.writeJSON(w, map[string]string{"error": message}, statusCode)
}
