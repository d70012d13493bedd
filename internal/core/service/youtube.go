package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"menu-gen-assistant/internal/infrastructure/config"
	"menu-gen-assistant/internal/pkg/common"
	"menu-gen-assistant/internal/pkg/metrics"

	"github.com/go-resty/resty/v2"
)

const ServiceVideoSearch = "video_search"

// YouTubeService 食譜影片搜尋
type YouTubeService struct {
	apiKey string
	client *resty.Client
}

// NewYouTubeService 創建 YouTube 搜尋服務，未設定 key 時回傳 nil
func NewYouTubeService(cfg config.YouTubeConfig) *YouTubeService {
	if cfg.APIKey == "" {
		return nil
	}
	return &YouTubeService{
		apiKey: cfg.APIKey,
		client: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetTimeout(cfg.Timeout),
	}
}

// SearchVideo 回傳第一個影片的觀看連結，找不到時回傳空字串
func (s *YouTubeService) SearchVideo(ctx context.Context, query string) (videoURL string, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveUpstream(ServiceVideoSearch, start, err)
		common.LogUpstreamCall(ServiceVideoSearch, time.Since(start), err, common.RequestIDFromContext(ctx))
	}()

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"part":       "snippet",
			"type":       "video",
			"maxResults": "1",
			"q":          query,
			"key":        s.apiKey,
		}).
		Get("/search")
	if err != nil {
		return "", common.NewUpstreamError(ServiceVideoSearch, 0, err)
	}
	if !resp.IsSuccess() {
		return "", common.NewUpstreamError(ServiceVideoSearch, resp.StatusCode(), nil)
	}

	var result struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
		} `json:"items"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("failed to parse YouTube response: %w", err)
	}

	if len(result.Items) == 0 || result.Items[0].ID.VideoID == "" {
		return "", nil
	}
	return "https://www.youtube.com/watch?v=" + result.Items[0].ID.VideoID, nil
}
