package imagegen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"menu-gen-assistant/internal/infrastructure/config"
	"menu-gen-assistant/internal/pkg/common"
	"menu-gen-assistant/internal/pkg/metrics"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const ServiceImageGeneration = "image_generation"

var ErrNoImage = errors.New("model returned no image data")

// ContentGenerator genai.Models 的子集
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Uploader 儲存生成結果
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// Generator 以料理名稱生成示意圖並上傳
type Generator struct {
	models   ContentGenerator
	model    string
	uploader Uploader
}

// NewGenerator 建立 Gemini 圖片生成客戶端
func NewGenerator(ctx context.Context, apiKey string, cfg config.ImageGenConfig, uploader Uploader) (*Generator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return NewGeneratorWithModels(client.Models, cfg.Model, uploader), nil
}

// NewGeneratorWithModels 使用既有的生成介面
func NewGeneratorWithModels(models ContentGenerator, model string, uploader Uploader) *Generator {
	return &Generator{models: models, model: model, uploader: uploader}
}

// GenerateImage 生成圖片並回傳公開網址
func (g *Generator) GenerateImage(ctx context.Context, title string) (imageURL string, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveUpstream(ServiceImageGeneration, start, err)
		common.LogUpstreamCall(ServiceImageGeneration, time.Since(start), err, common.RequestIDFromContext(ctx))
	}()

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(BuildPrompt(title)), &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		return "", common.NewUpstreamError(ServiceImageGeneration, 0, err)
	}

	data, mimeType, err := firstInlineImage(resp)
	if err != nil {
		return "", err
	}

	name := common.GenerateUUID() + extensionFor(mimeType)
	imageURL, err = g.uploader.Upload(ctx, name, data, mimeType)
	if err != nil {
		return "", err
	}

	common.LogInfo("示意圖已生成", zap.String("title", title), zap.Int("bytes", len(data)))
	return imageURL, nil
}

// BuildPrompt 料理攝影風格的提示詞
func BuildPrompt(title string) string {
	dish := strings.ToLower(strings.TrimSpace(title))
	if dish == "" {
		dish = "a home-cooked meal"
	}
	return "A professional food photography shot of " + dish +
		", shot with natural lighting, shallow depth of field, restaurant quality presentation, appetizing colors. No text, no watermark."
}

func firstInlineImage(resp *genai.GenerateContentResponse) ([]byte, string, error) {
	if resp == nil {
		return nil, "", ErrNoImage
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				mimeType := part.InlineData.MIMEType
				if mimeType == "" {
					mimeType = "image/png"
				}
				return part.InlineData.Data, mimeType, nil
			}
		}
	}
	return nil, "", ErrNoImage
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
