package domain

import "time"

// RateLimitRecord хранит окно запросов одного клиентского IP.
// Запись в БД — durable fallback для лимитера, кеш — быстрый путь.
type RateLimitRecord struct {
	IP        string    `gorm:"primaryKey;column:ip;size:45" json:"ip"`
	Count     int       `gorm:"column:count;not null;default:1" json:"count"`
	ResetTime time.Time `gorm:"column:reset_time;not null" json:"resetTime"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName возвращает название таблицы для GORM
func (RateLimitRecord) TableName() string {
	return "rate_limits"
}
