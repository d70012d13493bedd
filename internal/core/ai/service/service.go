package service

import (
	"context"
	"errors"
	"strings"

	"menu-gen-assistant/internal/core/ai/cache"
	"menu-gen-assistant/internal/core/service"
	"menu-gen-assistant/internal/pkg/common"

	"go.uber.org/zap"
)

// Model 底層的文字與視覺模型
type Model interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	DescribeImage(ctx context.Context, prompt string, img service.InlineImage) (string, error)
}

// ReplyCache 回覆快取，記憶體或 Redis
type ReplyCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Service AI 服務，在模型前加上回覆快取
type Service struct {
	model Model
	cache ReplyCache
}

// NewService 創建 AI 服務，replies 可為 nil
func NewService(model Model, replies ReplyCache) *Service {
	return &Service{
		model: model,
		cache: replies,
	}
}

// GenerateText 產生文字回覆
func (s *Service) GenerateText(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	key := cache.Key(prompt, nil)
	if val, ok := s.lookup(ctx, key); ok {
		return val, nil
	}

	content, err := s.model.GenerateText(ctx, prompt)
	if err != nil {
		return "", err
	}
	s.store(ctx, key, content)
	return content, nil
}

// DescribeImage 對圖片提問，同一張圖片與提示詞會命中快取
func (s *Service) DescribeImage(ctx context.Context, prompt string, img service.InlineImage) (string, error) {
	prompt = strings.TrimSpace(prompt)
	key := cache.Key(prompt, img.Data)
	if val, ok := s.lookup(ctx, key); ok {
		return val, nil
	}

	content, err := s.model.DescribeImage(ctx, prompt, img)
	if err != nil {
		return "", err
	}
	s.store(ctx, key, content)
	return content, nil
}

func (s *Service) lookup(ctx context.Context, key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	val, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			common.LogWarn("讀取快取失敗", zap.Error(err))
		}
		return "", false
	}
	return val, val != ""
}

// store 空回覆不寫入快取
func (s *Service) store(ctx context.Context, key, content string) {
	if s.cache == nil || strings.TrimSpace(content) == "" {
		return
	}
	if err := s.cache.Set(ctx, key, content); err != nil {
		common.LogWarn("寫入快取失敗", zap.Error(err))
	}
}
