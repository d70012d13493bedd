package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"menu-gen-assistant/internal/infrastructure/config"
	"menu-gen-assistant/internal/pkg/common"
	"menu-gen-assistant/internal/pkg/metrics"

	"github.com/go-resty/resty/v2"
)

const ServiceImageSearch = "image_search"

// ImageSearchService Google Custom Search 圖片搜尋
type ImageSearchService struct {
	apiKey   string
	engineID string
	baseURL  string
	client   *resty.Client
}

// NewImageSearchService 創建圖片搜尋服務，未設定時回傳 nil
func NewImageSearchService(cfg config.ImageSearchConfig) *ImageSearchService {
	if cfg.APIKey == "" || cfg.EngineID == "" {
		return nil
	}
	return &ImageSearchService{
		apiKey:   cfg.APIKey,
		engineID: cfg.EngineID,
		baseURL:  cfg.BaseURL,
		client:   resty.New().SetTimeout(cfg.Timeout),
	}
}

// SearchImage 回傳第一個圖片結果的連結，找不到時回傳空字串
func (s *ImageSearchService) SearchImage(ctx context.Context, query string) (link string, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveUpstream(ServiceImageSearch, start, err)
		common.LogUpstreamCall(ServiceImageSearch, time.Since(start), err, common.RequestIDFromContext(ctx))
	}()

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":          query,
			"cx":         s.engineID,
			"key":        s.apiKey,
			"searchType": "image",
			"num":        "1",
			"safe":       "active",
		}).
		Get(s.baseURL)
	if err != nil {
		return "", common.NewUpstreamError(ServiceImageSearch, 0, err)
	}
	if !resp.IsSuccess() {
		return "", common.NewUpstreamError(ServiceImageSearch, resp.StatusCode(), nil)
	}

	var result struct {
		Items []struct {
			Link string `json:"link"`
		} `json:"items"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("failed to parse image search response: %w", err)
	}
	if len(result.Items) == 0 {
		return "", nil
	}
	return result.Items[0].Link, nil
}
