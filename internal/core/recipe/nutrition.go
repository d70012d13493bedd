package recipe

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"menu-gen-assistant/internal/pkg/common"
	"menu-gen-assistant/internal/pkg/metrics"
)

// NutritionBlock 從健身食譜回覆中切出的營養資訊片段
type NutritionBlock struct {
	Fenced   string
	Trailing string
}

var (
	fencedObjectPattern   = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(\\{.*?\\})\\s*```")
	trailingObjectPattern = regexp.MustCompile(`\{[^{}]*\}\s*$`)
	leadingNumberPattern  = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
)

// SplitFitnessReply 將回覆拆成 HTML 本文與營養資訊片段
func SplitFitnessReply(raw string) (string, NutritionBlock) {
	body := strings.TrimSpace(raw)
	var block NutritionBlock

	if locs := fencedObjectPattern.FindAllStringSubmatchIndex(body, -1); len(locs) > 0 {
		last := locs[len(locs)-1]
		block.Fenced = body[last[2]:last[3]]
		body = body[:last[0]] + body[last[1]:]
	} else if loc := trailingObjectPattern.FindStringIndex(body); loc != nil {
		block.Trailing = strings.TrimSpace(body[loc[0]:loc[1]])
		body = body[:loc[0]]
	}

	return common.StripCodeFence(body), block
}

type nutritionStrategy struct {
	name    string
	extract func(block NutritionBlock, sanitizedHTML string) (common.NutritionInfo, bool)
}

var nutritionChain = []nutritionStrategy{
	{name: "fenced_json", extract: func(b NutritionBlock, _ string) (common.NutritionInfo, bool) {
		return parseNutritionJSON(b.Fenced)
	}},
	{name: "trailing_object", extract: func(b NutritionBlock, _ string) (common.NutritionInfo, bool) {
		return parseNutritionJSON(b.Trailing)
	}},
	{name: "labeled_fields", extract: func(_ NutritionBlock, sanitizedHTML string) (common.NutritionInfo, bool) {
		return scanLabeledFields(PlainText(sanitizedHTML))
	}},
}

// ExtractNutrition 依序嘗試各策略，全部失敗時回傳全 0，並回傳採用的策略名稱
func ExtractNutrition(block NutritionBlock, sanitizedHTML string) (common.NutritionInfo, string) {
	for _, s := range nutritionChain {
		if info, ok := s.extract(block, sanitizedHTML); ok {
			metrics.NutritionExtraction.WithLabelValues(s.name).Inc()
			return info, s.name
		}
	}
	metrics.NutritionExtraction.WithLabelValues("default").Inc()
	return common.NutritionInfo{}, "default"
}

func parseNutritionJSON(raw string) (common.NutritionInfo, bool) {
	if strings.TrimSpace(raw) == "" {
		return common.NutritionInfo{}, false
	}
	var fields map[string]interface{}
	if err := common.ParseJSON(raw, &fields); err != nil {
		return common.NutritionInfo{}, false
	}

	var info common.NutritionInfo
	found := false
	for key, v := range fields {
		n, ok := numberValue(v)
		if !ok {
			continue
		}
		switch strings.ToLower(key) {
		case "calories", "kcal":
			info.Calories, found = n, true
		case "protein":
			info.Protein, found = n, true
		case "carbs", "carbohydrates":
			info.Carbs, found = n, true
		case "fat":
			info.Fat, found = n, true
		}
	}
	return info, found
}

// numberValue 接受數字或像 "25g" 的字串
func numberValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case string:
		m := leadingNumberPattern.FindString(n)
		if m == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(m, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

var labeledFieldPatterns = []struct {
	pattern *regexp.Regexp
	set     func(*common.NutritionInfo, float64)
}{
	{regexp.MustCompile(`(?i)calories\s*:?\s*(\d+(?:\.\d+)?)`), func(n *common.NutritionInfo, v float64) { n.Calories = v }},
	{regexp.MustCompile(`(?i)protein\s*:?\s*(\d+(?:\.\d+)?)`), func(n *common.NutritionInfo, v float64) { n.Protein = v }},
	{regexp.MustCompile(`(?i)carb(?:ohydrate)?s?\s*:?\s*(\d+(?:\.\d+)?)`), func(n *common.NutritionInfo, v float64) { n.Carbs = v }},
	{regexp.MustCompile(`(?i)\bfats?\s*:?\s*(\d+(?:\.\d+)?)`), func(n *common.NutritionInfo, v float64) { n.Fat = v }},
}

func scanLabeledFields(text string) (common.NutritionInfo, bool) {
	var info common.NutritionInfo
	found := false
	for _, f := range labeledFieldPatterns {
		m := f.pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		f.set(&info, v)
		found = true
	}
	return info, found
}
