package repository

import (
	"MinLink-Backend/internal/domain"
	"context"
	"errors"
)

var (
	ErrCodeNotFound      = errors.New("code not found")
	ErrCodeExists        = errors.New("code already exists")
	ErrRateLimitNotFound = errors.New("rate limit record not found")
)

type Storage interface {
	// Link methods
	SaveLink(ctx context.Context, link *domain.Link) error
	GetLink(ctx context.Context, code string) (*domain.Link, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	DeactivateLink(ctx context.Context, code string) error

	// Click methods
	RecordClick(ctx context.Context, event *domain.ClickEvent) (*domain.Link, error)
	ListClickEvents(ctx context.Context, linkID int64, limit int) ([]*domain.ClickEvent, error)

	// Rate limit methods
	GetRateLimit(ctx context.Context, ip string) (*domain.RateLimitRecord, error)
	UpsertRateLimit(ctx context.Context, record *domain.RateLimitRecord) error
}
