package http

import (
	"MinLink-Backend/internal/analytics"
	"MinLink-Backend/internal/ratelimit"
	"MinLink-Backend/internal/repository"
	"MinLink-Backend/internal/service"
	"MinLink-Backend/internal/verifier"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Server HTTP сервер с обработчиками
type Server struct {
	linksHandler    *LinksHandler
	redirectHandler *RedirectHandler
	statsHandler    *StatsHandler
	healthHandler   *HealthHandler
	log             *zap.Logger
}

// NewServer создает новый HTTP сервер
func NewServer(
	storage repository.Storage,
	urlShortener *service.URLShortenerService,
	limiter *ratelimit.Limiter,
	challenge verifier.ChallengeVerifier,
	processor *analytics.Processor,
	adminToken string,
	log *zap.Logger,
) *Server {
	return &Server{
		linksHandler:    NewLinksHandler(urlShortener, limiter, challenge, adminToken, log),
		redirectHandler: NewRedirectHandler(urlShortener, processor, log),
		statsHandler:    NewStatsHandler(storage, urlShortener, log),
		healthHandler:   NewHealthHandler(storage, processor, log),
		log:             log,
	}
}

// SetupRoutes настраивает маршруты
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Health checks
	mux.HandleFunc("/health", s.healthHandler.Health)
	mux.HandleFunc("/ready", s.healthHandler.Ready)
	mux.HandleFunc("/metrics", s.healthHandler.Metrics)

	// API endpoints
	mux.HandleFunc("/api/shorten", s.withCORS(s.linksHandler.CreateLink))
	mux.HandleFunc("/api/stats/", s.withCORS(s.statsHandler.GetStats))
	mux.HandleFunc("/api/links/", s.withCORS(s.linksHandler.DeactivateLink))

	// Redirect endpoint
	mux.HandleFunc("/go/", s.redirectHandler.HandleRedirect)

	// Root — сюда ведут редиректы с error-индикатором
	mux.HandleFunc("/", s.handleRoot)

	return mux
}

// handleRoot отвечает на корневой путь; страницы рендерит фронтенд,
// бэкенд возвращает минимальный JSON с error-индикатором, если он есть
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	response := map[string]string{
		"service": "minlink-backend",
		"status":  "ok",
	}
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		response["error"] = errParam
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.log.Error("failed to encode root response", zap.Error(err))
	}
}

// withCORS добавляет CORS headers к обработчику
func (s *Server) withCORS(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Admin-Token")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		handler(w, r)
	}
}
