package recipe

import (
	"testing"

	"menu-gen-assistant/internal/pkg/common"

	"github.com/stretchr/testify/assert"
)

func TestSplitAndExtractNutrition(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		body     string
		info     common.NutritionInfo
		strategy string
	}{
		{
			name:     "fenced json",
			raw:      "```html\n<h1>Bowl</h1>\n```\n```json\n{\"calories\": 500, \"protein\": 40, \"carbs\": 45, \"fat\": 15}\n```",
			body:     "<h1>Bowl</h1>",
			info:     common.NutritionInfo{Calories: 500, Protein: 40, Carbs: 45, Fat: 15},
			strategy: "fenced_json",
		},
		{
			name:     "trailing object",
			raw:      "<h1>Bowl</h1><p>Enjoy</p>\n{\"calories\": 450, \"protein\": \"30g\", \"carbs\": 50, \"fat\": 12}",
			body:     "<h1>Bowl</h1><p>Enjoy</p>",
			info:     common.NutritionInfo{Calories: 450, Protein: 30, Carbs: 50, Fat: 12},
			strategy: "trailing_object",
		},
		{
			name:     "labeled fields",
			raw:      "<h1>Bowl</h1><p>Calories: 520 kcal</p><p>Protein: 35g</p><p>Carbs: 40g</p><p>Fat: 18g</p>",
			body:     "<h1>Bowl</h1><p>Calories: 520 kcal</p><p>Protein: 35g</p><p>Carbs: 40g</p><p>Fat: 18g</p>",
			info:     common.NutritionInfo{Calories: 520, Protein: 35, Carbs: 40, Fat: 18},
			strategy: "labeled_fields",
		},
		{
			name:     "nothing recoverable",
			raw:      "<h1>Bowl</h1><p>Tasty.</p>",
			body:     "<h1>Bowl</h1><p>Tasty.</p>",
			strategy: "default",
		},
		{
			name:     "broken fenced json falls through",
			raw:      "<h1>Bowl</h1><p>Protein: 22g</p>\n```json\n{\"calories\": oops}\n```",
			body:     "<h1>Bowl</h1><p>Protein: 22g</p>",
			info:     common.NutritionInfo{Protein: 22},
			strategy: "labeled_fields",
		},
	}
	s := NewSanitizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, block := SplitFitnessReply(tt.raw)
			assert.Equal(t, tt.body, body)

			info, strategy := ExtractNutrition(block, s.Sanitize(body))
			assert.Equal(t, tt.strategy, strategy)
			assert.Equal(t, tt.info, info)
		})
	}
}
