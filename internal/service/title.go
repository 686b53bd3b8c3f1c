package service

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	titleUserAgent = "MinLink Bot 1.0"
	probeTimeout   = 5 * time.Second
	fetchTimeout   = 10 * time.Second
	maxTitleLength = 200
	// maxBodyBytes ограничивает чтение HTML: <title> находится в <head>,
	// выкачивать страницу целиком незачем.
	maxBodyBytes = 512 * 1024
)

var titleRe = regexp.MustCompile(`(?i)<title[^>]*>([^<]+)</title>`)

// TitleFetcher достает заголовок целевой страницы best-effort: любая ошибка
// (таймаут, не-2xx, отсутствие <title>) приводит к nil, а не к отказу
// создания ссылки.
type TitleFetcher struct {
	client *http.Client
	log    *zap.Logger
}

func NewTitleFetcher(log *zap.Logger) *TitleFetcher {
	return &TitleFetcher{
		client: &http.Client{},
		log:    log,
	}
}

// Fetch возвращает заголовок страницы или nil. Сначала HEAD-проба с
// коротким таймаутом, затем GET за содержимым.
func (f *TitleFetcher) Fetch(ctx context.Context, targetURL string) *string {
	if !f.probe(ctx, targetURL) {
		return nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", titleUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		f.log.Debug("title fetch failed", zap.String("url", targetURL), zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil
	}

	match := titleRe.FindSubmatch(body)
	if match == nil {
		return nil
	}

	title := strings.TrimSpace(string(match[1]))
	if title == "" {
		return nil
	}
	if len(title) > maxTitleLength {
		title = title[:maxTitleLength]
	}

	return &title
}

// probe проверяет доступность URL HEAD-запросом с бюджетом probeTimeout
func (f *TitleFetcher) probe(ctx context.Context, targetURL string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, targetURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", titleUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		f.log.Debug("title probe failed", zap.String("url", targetURL), zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
