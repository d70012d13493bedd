package database

import (
	"context"
	"fmt"
	"time"

	"menu-gen-assistant/internal/pkg/common"

	"gorm.io/gorm"
)

// HistoryRecord 食譜生成紀錄資料表
type HistoryRecord struct {
	ID           string                  `gorm:"primaryKey;size:36"`
	UserID       string                  `gorm:"index;size:128;not null"`
	Stage        string                  `gorm:"size:32;not null"`
	Title        string                  `gorm:"size:255"`
	Items        []common.AggregatedItem `gorm:"serializer:json"`
	RecipeHTML   string                  `gorm:"type:text"`
	VideoURL     string                  `gorm:"size:512"`
	MainImageURL string                  `gorm:"size:1024"`
	Categories   []string                `gorm:"serializer:json"`
	Nutrition    *common.NutritionInfo   `gorm:"serializer:json"`
	CreatedAt    time.Time               `gorm:"index"`
}

// TableName 資料表名稱
func (HistoryRecord) TableName() string {
	return "recipe_history"
}

// HistoryStore 以 gorm 儲存生成紀錄
type HistoryStore struct {
	db *gorm.DB
}

// NewHistoryStore 創建紀錄儲存
func NewHistoryStore(db *gorm.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// SaveHistory 新增一筆紀錄
func (s *HistoryStore) SaveHistory(ctx context.Context, entry *common.HistoryEntry) error {
	rec := HistoryRecord{
		ID:           entry.ID,
		UserID:       entry.UserID,
		Stage:        entry.Stage,
		Title:        entry.Title,
		Items:        entry.Items,
		RecipeHTML:   entry.RecipeHTML,
		VideoURL:     entry.VideoURL,
		MainImageURL: entry.MainImageURL,
		Categories:   entry.Categories,
		Nutrition:    entry.Nutrition,
		CreatedAt:    entry.CreatedAt,
	}
	if rec.ID == "" {
		rec.ID = common.GenerateUUID()
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}

// ListHistory 依時間倒序列出使用者的紀錄
func (s *HistoryStore) ListHistory(ctx context.Context, userID string, limit int) ([]common.HistoryEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var records []HistoryRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	entries := make([]common.HistoryEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, common.HistoryEntry{
			ID:           r.ID,
			UserID:       r.UserID,
			Stage:        r.Stage,
			Title:        r.Title,
			Items:        r.Items,
			RecipeHTML:   r.RecipeHTML,
			VideoURL:     r.VideoURL,
			MainImageURL: r.MainImageURL,
			Categories:   r.Categories,
			Nutrition:    r.Nutrition,
			CreatedAt:    r.CreatedAt,
		})
	}
	return entries, nil
}
