package recipe

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"menu-gen-assistant/internal/core/image"
	"menu-gen-assistant/internal/core/service"
	"menu-gen-assistant/internal/pkg/common"

	"go.uber.org/zap"
)

// ItemSource 依請求取得原始食材：手動輸入或圖片辨識
type ItemSource struct {
	fetcher ImageFetcher
	vision  VisionModel
}

// NewItemSource 創建食材來源
func NewItemSource(fetcher ImageFetcher, vision VisionModel) *ItemSource {
	return &ItemSource{fetcher: fetcher, vision: vision}
}

// Resolve 取得原始食材，沒有圖片也沒有手動輸入時回傳空清單
func (s *ItemSource) Resolve(ctx context.Context, req *GenerationRequest) ([]common.RawDetectedItem, error) {
	if req.HasManualLabels() {
		return ManualItems(req.ManualLabels), nil
	}
	if req.ImageURL == "" {
		return nil, nil
	}
	return s.detect(ctx, req.ImageURL)
}

// ManualItems 手動輸入轉為原始項目，略過沒有名稱的項目
func ManualItems(labels []ManualLabel) []common.RawDetectedItem {
	items := make([]common.RawDetectedItem, 0, len(labels))
	for _, l := range labels {
		label := strings.TrimSpace(l.ItemLabel)
		if label == "" {
			continue
		}
		qty := 1
		if l.Quantity != nil {
			qty = clampQuantity(*l.Quantity)
		}
		items = append(items, common.RawDetectedItem{
			ItemLabel:      label,
			AdditionalInfo: strings.TrimSpace(l.AdditionalInfo),
			BoundingBox:    l.BoundingBox,
			SourceQuantity: qty,
		})
	}
	return items
}

func (s *ItemSource) detect(ctx context.Context, imageURL string) ([]common.RawDetectedItem, error) {
	img, err := s.fetcher.Fetch(ctx, imageURL)
	if err != nil {
		if errors.Is(err, image.ErrUnsafeURL) ||
			errors.Is(err, image.ErrImageTooLarge) ||
			errors.Is(err, image.ErrUnsupportedImage) {
			return nil, &common.ValidationError{Fields: []string{"image_url"}, Message: err.Error()}
		}
		return nil, err
	}

	reply, err := s.vision.DescribeImage(ctx, DetectionPrompt, service.InlineImage{
		MIMEType: img.MIMEType,
		Data:     img.Data,
	})
	if err != nil {
		return nil, err
	}

	items := ParseDetection(reply)
	common.LogInfo("圖片辨識完成",
		zap.Int("items", len(items)),
		zap.String("request_id", common.RequestIDFromContext(ctx)),
	)
	return items, nil
}

type detectionReply struct {
	DetectedItems []struct {
		ItemLabel      string              `json:"item_label"`
		AdditionalInfo string              `json:"additional_info"`
		Quantity       interface{}         `json:"quantity"`
		BoundingBox    *common.BoundingBox `json:"bounding_box"`
		ExtractedText  *string             `json:"extracted_text"`
	} `json:"detected_items"`
}

// ParseDetection 解析辨識服務的回覆，無法解析時回傳空清單
func ParseDetection(reply string) []common.RawDetectedItem {
	var parsed detectionReply
	if err := common.ParseModelJSON(reply, &parsed); err != nil {
		common.LogWarn("無法解析辨識結果", zap.Error(err), zap.String("reply", common.Truncate(reply, 200)))
		return []common.RawDetectedItem{}
	}

	items := make([]common.RawDetectedItem, 0, len(parsed.DetectedItems))
	for _, d := range parsed.DetectedItems {
		label := strings.TrimSpace(d.ItemLabel)
		if label == "" {
			continue
		}
		item := common.RawDetectedItem{
			ItemLabel:      label,
			AdditionalInfo: strings.TrimSpace(d.AdditionalInfo),
			BoundingBox:    d.BoundingBox,
			SourceQuantity: lenientQuantity(d.Quantity),
		}
		if d.ExtractedText != nil {
			item.ExtractedText = *d.ExtractedText
		}
		items = append(items, item)
	}
	return items
}

// lenientQuantity 接受數字或數字字串，其他情況為 1
func lenientQuantity(v interface{}) int {
	var f float64
	switch q := v.(type) {
	case json.Number:
		n, err := q.Float64()
		if err != nil {
			return 1
		}
		f = n
	case float64:
		f = q
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(q), 64)
		if err != nil {
			return 1
		}
		f = n
	default:
		return 1
	}
	return clampQuantity(f)
}

func clampQuantity(f float64) int {
	if math.IsNaN(f) || f < 1 {
		return 1
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}

// Aggregate 依名稱完全相同合併項目並加總數量，保留第一次出現的其他欄位與順序
func Aggregate(raw []common.RawDetectedItem) []common.AggregatedItem {
	out := make([]common.AggregatedItem, 0, len(raw))
	index := make(map[string]int, len(raw))

	for _, item := range raw {
		if strings.TrimSpace(item.ItemLabel) == "" {
			continue
		}
		qty := item.SourceQuantity
		if qty < 1 {
			qty = 1
		}
		if i, ok := index[item.ItemLabel]; ok {
			out[i].Quantity += qty
			continue
		}
		index[item.ItemLabel] = len(out)
		out = append(out, common.AggregatedItem{
			ItemLabel:      item.ItemLabel,
			AdditionalInfo: item.AdditionalInfo,
			BoundingBox:    item.BoundingBox,
			ExtractedText:  item.ExtractedText,
			Quantity:       qty,
		})
	}
	return out
}

// AsRaw 將合併結果視為原始項目，數量作為來源數量
func AsRaw(items []common.AggregatedItem) []common.RawDetectedItem {
	raw := make([]common.RawDetectedItem, 0, len(items))
	for _, item := range items {
		raw = append(raw, common.RawDetectedItem{
			ItemLabel:      item.ItemLabel,
			AdditionalInfo: item.AdditionalInfo,
			BoundingBox:    item.BoundingBox,
			ExtractedText:  item.ExtractedText,
			SourceQuantity: item.Quantity,
		})
	}
	return raw
}
