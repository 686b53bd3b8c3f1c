package postgres

import (
	"MinLink-Backend/internal/domain"
	"MinLink-Backend/internal/repository"
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresStorage реализует интерфейс Storage для PostgreSQL
type PostgresStorage struct {
	db  *gorm.DB
	log *zap.Logger
}

// New создает новый экземпляр PostgreSQL storage
func New(db *gorm.DB, log *zap.Logger) *PostgresStorage {
	return &PostgresStorage{
		db:  db,
		log: log,
	}
}

// --- Link Methods ---

// SaveLink сохраняет новую ссылку. Уникальность кода обеспечивается
// constraint-ом БД: нарушение транслируется в ErrCodeExists, чтобы
// вызывающий мог перегенерировать код и повторить запись.
func (s *PostgresStorage) SaveLink(ctx context.Context, link *domain.Link) error {
	if err := s.db.WithContext(ctx).Create(link).Error; err != nil {
		if isUniqueViolation(err) {
			return repository.ErrCodeExists
		}
		s.log.Error("failed to save link", zap.String("code", link.Code), zap.Error(err))
		return fmt.Errorf("failed to save link: %w", err)
	}

	s.log.Info("saved new link", zap.String("code", link.Code), zap.Int64("id", link.ID))
	return nil
}

// GetLink получает активную ссылку по коду
func (s *PostgresStorage) GetLink(ctx context.Context, code string) (*domain.Link, error) {
	var link domain.Link

	err := s.db.WithContext(ctx).Where("code = ? AND is_active = ?", code, true).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrCodeNotFound
	}
	if err != nil {
		s.log.Error("failed to get link", zap.String("code", code), zap.Error(err))
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return &link, nil
}

// CodeExists проверяет, занят ли код (активной или деактивированной ссылкой)
func (s *PostgresStorage) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.Link{}).Where("code = ?", code).Count(&count).Error
	if err != nil {
		s.log.Error("failed to check code existence", zap.String("code", code), zap.Error(err))
		return false, fmt.Errorf("failed to check code: %w", err)
	}

	return count > 0, nil
}

// DeactivateLink деактивирует ссылку (мягкое удаление)
func (s *PostgresStorage) DeactivateLink(ctx context.Context, code string) error {
	result := s.db.WithContext(ctx).Model(&domain.Link{}).Where("code = ?", code).Update("is_active", false)
	if result.Error != nil {
		s.log.Error("failed to deactivate link", zap.String("code", code), zap.Error(result.Error))
		return fmt.Errorf("failed to deactivate link: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return repository.ErrCodeNotFound
	}

	s.log.Info("deactivated link", zap.String("code", code))
	return nil
}

// --- Click Methods ---

// RecordClick атомарно инкрементирует счетчик кликов и создает запись
// события в одной транзакции. Возвращает обновленную ссылку, чтобы
// вызывающий мог освежить ее копию в кеше.
func (s *PostgresStorage) RecordClick(ctx context.Context, event *domain.ClickEvent) (*domain.Link, error) {
	var link domain.Link

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Link{}).
			Where("id = ?", event.LinkID).
			Update("clicks", gorm.Expr("clicks + 1")).Error; err != nil {
			return fmt.Errorf("failed to increment clicks: %w", err)
		}

		if err := tx.Create(event).Error; err != nil {
			return fmt.Errorf("failed to create click event: %w", err)
		}

		if err := tx.First(&link, event.LinkID).Error; err != nil {
			return fmt.Errorf("failed to reload link: %w", err)
		}

		return nil
	})
	if err != nil {
		s.log.Error("failed to record click", zap.Int64("link_id", event.LinkID), zap.Error(err))
		return nil, err
	}

	return &link, nil
}

// ListClickEvents возвращает последние клики ссылки, новые первыми
func (s *PostgresStorage) ListClickEvents(ctx context.Context, linkID int64, limit int) ([]*domain.ClickEvent, error) {
	var events []*domain.ClickEvent

	err := s.db.WithContext(ctx).Where("link_id = ?", linkID).
		Order("created_at DESC").Limit(limit).Find(&events).Error
	if err != nil {
		s.log.Error("failed to list click events", zap.Int64("link_id", linkID), zap.Error(err))
		return nil, fmt.Errorf("failed to list click events: %w", err)
	}

	return events, nil
}

// --- Rate Limit Methods ---

// GetRateLimit получает текущее окно лимитера для IP
func (s *PostgresStorage) GetRateLimit(ctx context.Context, ip string) (*domain.RateLimitRecord, error) {
	var record domain.RateLimitRecord

	err := s.db.WithContext(ctx).Where("ip = ?", ip).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrRateLimitNotFound
	}
	if err != nil {
		s.log.Error("failed to get rate limit record", zap.String("ip", ip), zap.Error(err))
		return nil, fmt.Errorf("failed to get rate limit record: %w", err)
	}

	return &record, nil
}

// UpsertRateLimit создает или обновляет окно лимитера для IP
func (s *PostgresStorage) UpsertRateLimit(ctx context.Context, record *domain.RateLimitRecord) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ip"}},
		DoUpdates: clause.AssignmentColumns([]string{"count", "reset_time", "updated_at"}),
	}).Create(record).Error
	if err != nil {
		s.log.Error("failed to upsert rate limit record", zap.String("ip", record.IP), zap.Error(err))
		return fmt.Errorf("failed to upsert rate limit record: %w", err)
	}

	return nil
}

// isUniqueViolation определяет нарушение уникального constraint-а.
// SQLSTATE 23505 — unique_violation в PostgreSQL.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "23505")
}
