package recipe

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"menu-gen-assistant/internal/pkg/common"
)

const (
	maxOtherNoteRunes     = 200
	maxSelectedTitleRunes = 120
)

// 白名單
var (
	MealTypes    = []string{"general", "breakfast", "lunch", "dinner"}
	DietaryGoals = []string{"normal", "fat_loss", "muscle_gain"}
	MealTimes    = []string{"fast", "medium", "long"}
	PeopleCounts = []string{"1", "2", "4", "6+"}
	Restrictions = []string{"None", "Vegan", "Vegetarian", "Gluten-free", "Lactose-free"}
	Regions      = []string{"Any", "Asia", "Europe", "Mediterranean", "America", "Middle Eastern", "African", "Latin American"}
	SkillLevels  = []string{"Beginner", "Intermediate", "Advanced"}
	KitchenTools = []string{
		"Oven", "Microwave", "Stovetop", "Air Fryer", "Blender",
		"Food Processor", "Slow Cooker", "Pressure Cooker", "Rice Cooker", "Grill",
	}
	Genders      = []string{"male", "female", "other"}
	FitnessGoals = []string{"fat_loss", "muscle_gain", "healthy_eating"}
)

var labelPattern = regexp.MustCompile(`^[\p{L}\p{N} .,'()&/+%-]{1,30}$`)

// Validate 驗證請求並回傳正規化結果，一次列出所有不合法欄位
func Validate(req *GenerateRequest) (*GenerationRequest, error) {
	var fields []string
	invalid := func(name string) { fields = append(fields, name) }
	checkEnum := func(name, value string, allowed []string) {
		if value != "" && !contains(allowed, value) {
			invalid(name)
		}
	}

	stage, ok := parseStage(req)
	if !ok {
		invalid("mode")
	}

	hasImage := strings.TrimSpace(req.ImageURL) != ""
	if ok && !hasImage && len(req.ManualLabels) == 0 {
		if _, extract := stage.(ExtractOnly); !extract {
			invalid("image_url")
		}
	}

	checkEnum("meal_type", req.MealType, MealTypes)
	checkEnum("dietary_goal", req.DietaryGoal, DietaryGoals)
	checkEnum("restrict_diet", req.RestrictDiet, Restrictions)
	checkEnum("amount_people", string(req.AmountPeople), PeopleCounts)
	checkEnum("meal_time", req.MealTime, MealTimes)
	checkEnum("preferred_region", req.PreferredRegion, Regions)
	checkEnum("skill_level", req.SkillLevel, SkillLevels)

	for i, tool := range req.KitchenTools {
		if !contains(KitchenTools, tool) {
			invalid(fmt.Sprintf("kitchen_tools[%d]", i))
		}
	}

	for i, label := range req.ManualLabels {
		if label.ItemLabel != "" && !labelPattern.MatchString(label.ItemLabel) {
			invalid(fmt.Sprintf("manual_labels[%d].item_label", i))
		}
		if label.AdditionalInfo != "" && !labelPattern.MatchString(label.AdditionalInfo) {
			invalid(fmt.Sprintf("manual_labels[%d].additional_info", i))
		}
	}

	if utf8.RuneCountInString(req.OtherNote) > maxOtherNoteRunes {
		invalid("other_note")
	}
	if utf8.RuneCountInString(req.SelectedTitle) > maxSelectedTitleRunes {
		invalid("selected_title")
	}

	checkRange := func(name string, v *float64, max float64) {
		if v != nil && (*v <= 0 || *v > max) {
			invalid(name)
		}
	}
	checkRange("height_cm", req.HeightCM, 300)
	checkRange("weight_kg", req.WeightKG, 500)
	checkRange("age", req.Age, 130)
	checkEnum("gender", req.Gender, Genders)
	checkEnum("fitness_goal", req.FitnessGoal, FitnessGoals)

	if len(fields) > 0 {
		return nil, common.NewValidationError("invalid request fields", fields...)
	}

	restriction := req.RestrictDiet
	if restriction == "None" {
		restriction = ""
	}

	return &GenerationRequest{
		ImageURL:     strings.TrimSpace(req.ImageURL),
		ManualLabels: req.ManualLabels,
		Stage:        stage,
		MealType:     orDefault(req.MealType, "dinner"),
		DietaryGoal:  orDefault(req.DietaryGoal, "normal"),
		Restriction:  restriction,
		AmountPeople: string(req.AmountPeople),
		MealTime:     req.MealTime,
		Region:       req.PreferredRegion,
		SkillLevel:   req.SkillLevel,
		KitchenTools: req.KitchenTools,
		OtherNote:    strings.TrimSpace(req.OtherNote),
	}, nil
}

// parseStage mode 優先於 stage，未指定時為 RECIPE
func parseStage(req *GenerateRequest) (Stage, bool) {
	raw := strings.TrimSpace(req.Mode)
	if raw == "" {
		raw = strings.TrimSpace(req.Stage)
	}

	switch raw {
	case StageExtractOnly:
		return ExtractOnly{}, true
	case StageCandidates:
		return Candidates{}, true
	case "", StageRecipe, "default":
		return Recipe{
			SelectedTitle:    strings.TrimSpace(req.SelectedTitle),
			SelectedImageURL: strings.TrimSpace(req.SelectedImageURL),
		}, true
	case StageFitness:
		return Fitness{
			Metrics: FitnessMetrics{
				HeightCM: deref(req.HeightCM),
				WeightKG: deref(req.WeightKG),
				Age:      deref(req.Age),
				Gender:   req.Gender,
				Goal:     orDefault(req.FitnessGoal, "healthy_eating"),
			},
			SelectedTitle:    strings.TrimSpace(req.SelectedTitle),
			SelectedImageURL: strings.TrimSpace(req.SelectedImageURL),
		}, true
	default:
		return nil, false
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
