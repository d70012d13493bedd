package recipe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"menu-gen-assistant/internal/pkg/common"
)

// ManualLabel 使用者手動輸入的食材
type ManualLabel struct {
	ItemLabel      string              `json:"item_label"`
	AdditionalInfo string              `json:"additional_info,omitempty"`
	BoundingBox    *common.BoundingBox `json:"bounding_box,omitempty"`
	Quantity       *float64            `json:"quantity,omitempty"`
}

// PeopleCount 人數區間，接受數字或字串
type PeopleCount string

// UnmarshalJSON 實現 json.Unmarshaler
func (p *PeopleCount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = PeopleCount(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount_people must be a number or string")
	}
	*p = PeopleCount(strconv.FormatFloat(n, 'f', -1, 64))
	return nil
}

// GenerateRequest 生成食譜的請求內容
type GenerateRequest struct {
	ImageURL         string        `json:"image_url"`
	ManualLabels     []ManualLabel `json:"manual_labels"`
	Mode             string        `json:"mode"`
	Stage            string        `json:"stage"`
	MealType         string        `json:"meal_type"`
	DietaryGoal      string        `json:"dietary_goal"`
	RestrictDiet     string        `json:"restrict_diet"`
	AmountPeople     PeopleCount   `json:"amount_people"`
	MealTime         string        `json:"meal_time"`
	PreferredRegion  string        `json:"preferred_region"`
	SkillLevel       string        `json:"skill_level"`
	KitchenTools     []string      `json:"kitchen_tools"`
	SelectedTitle    string        `json:"selected_title"`
	SelectedImageURL string        `json:"selected_image_url"`
	OtherNote        string        `json:"other_note"`

	HeightCM    *float64 `json:"height_cm"`
	WeightKG    *float64 `json:"weight_kg"`
	Gender      string   `json:"gender"`
	Age         *float64 `json:"age"`
	FitnessGoal string   `json:"fitness_goal"`
}

// GenerationRequest 驗證並正規化後的請求，建立後不再修改
type GenerationRequest struct {
	ImageURL     string
	ManualLabels []ManualLabel
	Stage        Stage

	MealType     string
	DietaryGoal  string
	Restriction  string // 空字串表示無限制
	AmountPeople string
	MealTime     string
	Region       string
	SkillLevel   string
	KitchenTools []string
	OtherNote    string
}

// HasManualLabels 是否使用手動輸入
func (r *GenerationRequest) HasManualLabels() bool {
	return len(r.ManualLabels) > 0
}

// ExtractResponse 僅擷取食材
type ExtractResponse struct {
	Items []common.AggregatedItem `json:"items"`
}

// CandidatesResponse 候選料理
type CandidatesResponse struct {
	Candidates []common.CandidateRecipe `json:"candidates"`
}

// RecipeResponse 食譜與健身食譜
type RecipeResponse struct {
	Items         []common.AggregatedItem `json:"items"`
	Recipe        string                  `json:"recipe"`
	VideoURL      *string                 `json:"video_url"`
	MainImageURL  string                  `json:"main_image_url"`
	Categories    []string                `json:"categories"`
	NutritionInfo *common.NutritionInfo   `json:"nutrition_info,omitempty"`
	OtherNote     string                  `json:"other_note,omitempty"`
}
