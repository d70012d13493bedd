package recipe

import (
	"context"
	"strings"

	"menu-gen-assistant/internal/core/image"
	"menu-gen-assistant/internal/pkg/common"
	"menu-gen-assistant/internal/pkg/metrics"

	"go.uber.org/zap"
)

// 圖片解析策略名稱
const (
	StrategyCandidate    = "candidate"
	StrategyHTTPSUpgrade = "https_upgrade"
	StrategyGenerated    = "generated"
	StrategyPlaceholder  = "placeholder"
)

// Resolution 圖片解析結果
type Resolution struct {
	URL      string
	Strategy string
}

// IsImage 是否為實際驗證過或生成的圖片
func (r Resolution) IsImage() bool {
	return r.Strategy != StrategyPlaceholder
}

type imageStrategy struct {
	name string
	try  func(ctx context.Context, candidate, title string) (string, bool)
}

// ImageResolver 依序嘗試候選網址、https 升級、生成圖片，最後回傳預設圖
type ImageResolver struct {
	prober         ImageProber
	generator      ImageGenerator
	maxProbeBytes  int64
	placeholderURL string
	chain          []imageStrategy
}

// NewImageResolver 創建圖片解析器，generator 可為 nil
func NewImageResolver(prober ImageProber, generator ImageGenerator, maxProbeBytes int64, placeholderURL string) *ImageResolver {
	r := &ImageResolver{
		prober:         prober,
		generator:      generator,
		maxProbeBytes:  maxProbeBytes,
		placeholderURL: placeholderURL,
	}
	r.chain = []imageStrategy{
		{name: StrategyCandidate, try: r.tryCandidate},
		{name: StrategyHTTPSUpgrade, try: r.tryHTTPSUpgrade},
		{name: StrategyGenerated, try: r.tryGenerate},
	}
	return r
}

// Resolve 永遠回傳可用的網址，所有錯誤都只記錄不回傳
func (r *ImageResolver) Resolve(ctx context.Context, candidate, title string) Resolution {
	candidate = strings.TrimSpace(candidate)
	for _, s := range r.chain {
		if url, ok := s.try(ctx, candidate, title); ok {
			metrics.ImageResolution.WithLabelValues(s.name).Inc()
			return Resolution{URL: url, Strategy: s.name}
		}
	}
	metrics.ImageResolution.WithLabelValues(StrategyPlaceholder).Inc()
	return Resolution{URL: r.placeholderURL, Strategy: StrategyPlaceholder}
}

func (r *ImageResolver) tryCandidate(ctx context.Context, candidate, _ string) (string, bool) {
	if candidate == "" {
		return "", false
	}
	return candidate, r.validate(ctx, candidate)
}

func (r *ImageResolver) tryHTTPSUpgrade(ctx context.Context, candidate, _ string) (string, bool) {
	if !strings.HasPrefix(strings.ToLower(candidate), "http://") {
		return "", false
	}
	upgraded := "https://" + candidate[len("http://"):]
	return upgraded, r.validate(ctx, upgraded)
}

func (r *ImageResolver) tryGenerate(ctx context.Context, _, title string) (string, bool) {
	if r.generator == nil || strings.TrimSpace(title) == "" {
		return "", false
	}
	url, err := r.generator.GenerateImage(ctx, title)
	if err != nil {
		common.LogWarn("生成示意圖失敗，改用預設圖", zap.String("title", title), zap.Error(err))
		return "", false
	}
	return url, url != ""
}

// validate https、非私有位址、HEAD 探測為圖片且大小在上限內
func (r *ImageResolver) validate(ctx context.Context, rawURL string) bool {
	if _, err := image.ValidateRemoteURL(rawURL); err != nil {
		return false
	}
	if r.prober == nil {
		return false
	}
	res, err := r.prober.Probe(ctx, rawURL)
	if err != nil {
		common.LogDebug("圖片探測失敗", zap.String("url", rawURL), zap.Error(err))
		return false
	}
	if !strings.HasPrefix(strings.ToLower(res.ContentType), "image/") {
		return false
	}
	return res.ContentLength > 0 && res.ContentLength <= r.maxProbeBytes
}
