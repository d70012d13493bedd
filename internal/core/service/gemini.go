package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"menu-gen-assistant/internal/infrastructure/config"
	"menu-gen-assistant/internal/pkg/common"
	"menu-gen-assistant/internal/pkg/metrics"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	ServiceVision = "vision"
	ServiceText   = "text_generation"
)

// InlineImage 隨提示詞送出的圖片
type InlineImage struct {
	MIMEType string
	Data     []byte
}

// GeminiService Gemini generateContent 服務
type GeminiService struct {
	model  string
	client *resty.Client
}

type geminiBlob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *geminiBlob `json:"inlineData,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// NewGeminiService 創建 Gemini 服務
func NewGeminiService(cfg config.GeminiConfig) *GeminiService {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-goog-api-key", cfg.APIKey).
		SetTimeout(cfg.Timeout)

	return &GeminiService{
		model:  cfg.Model,
		client: client,
	}
}

// GenerateText 純文字生成
func (s *GeminiService) GenerateText(ctx context.Context, prompt string) (string, error) {
	return s.generate(ctx, ServiceText, []geminiPart{{Text: prompt}})
}

// DescribeImage 圖片加提示詞的視覺辨識
func (s *GeminiService) DescribeImage(ctx context.Context, prompt string, img InlineImage) (string, error) {
	parts := []geminiPart{
		{Text: prompt},
		{InlineData: &geminiBlob{
			MimeType: img.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(img.Data),
		}},
	}
	return s.generate(ctx, ServiceVision, parts)
}

func (s *GeminiService) generate(ctx context.Context, service string, parts []geminiPart) (text string, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveUpstream(service, start, err)
		common.LogUpstreamCall(service, time.Since(start), err, common.RequestIDFromContext(ctx))
	}()

	req := geminiRequest{Contents: []geminiContent{{Parts: parts}}}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		Post(fmt.Sprintf("/models/%s:generateContent", s.model))
	if err != nil {
		return "", common.NewUpstreamError(service, 0, err)
	}

	if !resp.IsSuccess() {
		common.LogWarn("Gemini API returned error",
			zap.String("upstream", service),
			zap.Int("status", resp.StatusCode()),
			zap.String("body", common.Truncate(resp.String(), 500)),
		)
		return "", common.NewUpstreamError(service, resp.StatusCode(), fmt.Errorf("%s", common.Truncate(resp.String(), 200)))
	}

	var result geminiResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", common.NewUpstreamError(service, 0, fmt.Errorf("failed to parse Gemini response: %w", err))
	}

	if len(result.Candidates) == 0 {
		common.LogWarn("Gemini response has no candidates", zap.String("upstream", service))
		return "", nil
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}
