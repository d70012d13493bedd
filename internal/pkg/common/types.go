package common

import (
	"fmt"
	"strings"
	"time"
)

// BoundingBox 正規化座標框，範圍 [0,1]
type BoundingBox struct {
	XMin float64 `json:"x_min"`
	YMin float64 `json:"y_min"`
	XMax float64 `json:"x_max"`
	YMax float64 `json:"y_max"`
}

// RawDetectedItem 單次偵測（視覺服務或手動輸入）產生的原始項目
type RawDetectedItem struct {
	ItemLabel      string
	AdditionalInfo string
	BoundingBox    *BoundingBox
	ExtractedText  string
	SourceQuantity int
}

// AggregatedItem 合併後的食材項目
type AggregatedItem struct {
	ItemLabel      string       `json:"item_label"`
	AdditionalInfo string       `json:"additional_info,omitempty"`
	BoundingBox    *BoundingBox `json:"bounding_box,omitempty"`
	ExtractedText  string       `json:"extracted_text,omitempty"`
	Quantity       int          `json:"quantity"`
}

// String 食材描述，數量大於 1 時加上前綴
func (i AggregatedItem) String() string {
	var sb strings.Builder
	if i.Quantity > 1 {
		sb.WriteString(fmt.Sprintf("%d ", i.Quantity))
	}
	sb.WriteString(i.ItemLabel)
	if i.AdditionalInfo != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", i.AdditionalInfo))
	}
	return sb.String()
}

// CandidateRecipe 候選料理
type CandidateRecipe struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	ImageURL    *string `json:"image_url"`
}

// NutritionInfo 營養資訊，未知欄位為 0
type NutritionInfo struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// HistoryEntry 食譜生成紀錄
type HistoryEntry struct {
	ID           string
	UserID       string
	Stage        string
	Title        string
	Items        []AggregatedItem
	RecipeHTML   string
	VideoURL     string
	MainImageURL string
	Categories   []string
	Nutrition    *NutritionInfo
	CreatedAt    time.Time
}

// FormatIngredients 將食材轉成提示詞用的文字
func FormatIngredients(items []AggregatedItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, item.String())
	}
	return strings.Join(parts, ", ")
}
