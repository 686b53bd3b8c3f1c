package domain

import "time"

// Link представляет одну короткую ссылку
type Link struct {
	ID        int64     `gorm:"primaryKey;column:id" json:"id"`
	Code      string    `gorm:"column:code;size:32;not null;uniqueIndex" json:"code"`
	URL       string    `gorm:"column:url;type:text;not null" json:"url"`
	Title     *string   `gorm:"column:title;size:200" json:"title,omitempty"`
	ShortURL  string    `gorm:"column:short_url;size:255" json:"shortUrl"`
	Clicks    int64     `gorm:"column:clicks;not null;default:0" json:"clicks"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true" json:"isActive"`
	CreatedBy *string   `gorm:"column:created_by;size:45" json:"-"` // IP создателя
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"-"`
}

// TableName возвращает название таблицы для GORM
func (Link) TableName() string {
	return "links"
}
