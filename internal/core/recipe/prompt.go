package recipe

import (
	"fmt"
	"strings"

	"menu-gen-assistant/internal/pkg/common"
)

const (
	// ManualNote 使用手動標籤時附加的提示
	ManualNote = "<p><i>Note: Some labels might have been adjusted manually.</i></p>"

	// CannotGenerateNotice 限制條件下無法組成料理時的固定訊息
	CannotGenerateNotice = "<p>A meaningful recipe cannot be generated with the available ingredients, especially after considering the dietary restrictions. Please adjust the ingredients or restrictions.</p>"

	// NoIngredientsMessage 沒有任何食材時的回覆
	NoIngredientsMessage = "<p>Could not generate recipe: No ingredients were identified. Please try a different image or add items manually.</p>"
)

// DetectionPrompt 視覺辨識指令
const DetectionPrompt = `Input: An image containing one or more grocery items.

Instructions:
1. Detect Grocery Items: Identify all distinct **edible** grocery items visible in the image. **Only include items that are clearly identifiable as food.** Ignore any non-food items or objects whose edibility is ambiguous. For items that appear in multiples (e.g., a pack of buns, several tomatoes), attempt to count the individual units if visually discernible and include this as 'quantity'. If it's a single item, quantity is 1.
2. Classify Items: For each detected item, provide a general classification label (e.g., "Apple", "Milk", "Bread Rolls"). Don't include information about the packaging, e.g. Milk carton, or Mayonnaise jar. We are interested in the item itself, not the container.
3. Determine Bounding Boxes: Provide bounding box coordinates in normalized format (x_min, y_min, x_max, y_max) for each identified item or group. If quantity > 1 for a single bounding box, this box should encompass the group.
4. Output Format: Return results in valid JSON, no extra text. Ensure 'quantity' is an integer. If no edible grocery items are confidently detected, return an empty "detected_items" array.

{
  "detected_items": [
    {
      "item_label": "string",
      "quantity": integer,
      "bounding_box": {"x_min": float, "y_min": float, "x_max": float, "y_max": float},
      "extracted_text": "string | null"
    }
  ]
}`

// BuildRecipePrompt 完整食譜的提示詞
func BuildRecipePrompt(req *GenerationRequest, items []common.AggregatedItem, selectedTitle string) string {
	var sb strings.Builder
	sb.WriteString("Generate a recipe based on these details:\n")
	writeDetails(&sb, req, items)
	if selectedTitle != "" {
		fmt.Fprintf(&sb, "- **Dish to Prepare:** %s\n", selectedTitle)
	}
	writeOutputFormat(&sb)
	writeRules(&sb, req)
	sb.WriteString("\nStart directly with the <h1> title. Ensure the entire output is valid HTML.")
	return sb.String()
}

// BuildFitnessPrompt 健身食譜的提示詞，要求在 HTML 後附上營養 JSON
func BuildFitnessPrompt(req *GenerationRequest, items []common.AggregatedItem, stage Fitness) string {
	m := stage.Metrics

	var sb strings.Builder
	sb.WriteString("Generate a fitness-oriented recipe based on these details:\n")
	fmt.Fprintf(&sb, "- **Ingredients Available:** %s\n", common.FormatIngredients(items))
	fmt.Fprintf(&sb, "- **Fitness Goal:** %s\n", strings.ReplaceAll(m.Goal, "_", " "))
	fmt.Fprintf(&sb, "- **Height:** %s\n", metricOrUnknown(m.HeightCM, "cm"))
	fmt.Fprintf(&sb, "- **Weight:** %s\n", metricOrUnknown(m.WeightKG, "kg"))
	fmt.Fprintf(&sb, "- **Age:** %s\n", metricOrUnknown(m.Age, "years"))
	fmt.Fprintf(&sb, "- **Gender:** %s\n", orDefault(m.Gender, "not specified"))
	writeOptionalDetails(&sb, req)
	if stage.SelectedTitle != "" {
		fmt.Fprintf(&sb, "- **Dish to Prepare:** %s\n", stage.SelectedTitle)
	}
	writeOutputFormat(&sb)
	sb.WriteString("- Include a <h2>Nutrition</h2> section listing Calories, Protein, Carbs and Fat per serving.\n")
	writeRules(&sb, req)
	sb.WriteString("\nStart directly with the <h1> title. After the closing HTML, append the per-serving nutrition as a fenced JSON block:\n")
	sb.WriteString("```json\n{\"calories\": number, \"protein\": number, \"carbs\": number, \"fat\": number}\n```")
	return sb.String()
}

// BuildCandidatesPrompt 要求三個候選料理的提示詞
func BuildCandidatesPrompt(req *GenerationRequest, items []common.AggregatedItem) string {
	var sb strings.Builder
	sb.WriteString("Suggest exactly three different dishes that can be cooked with these details:\n")
	writeDetails(&sb, req, items)
	if req.Restriction != "" {
		fmt.Fprintf(&sb, "\nEvery dish must follow the %s restriction; never rely on ingredients that conflict with it.\n", req.Restriction)
	}
	sb.WriteString(`
Return only JSON, no extra text, in this form:
[{"title": "string", "description": "one sentence"}]`)
	return sb.String()
}

func writeDetails(sb *strings.Builder, req *GenerationRequest, items []common.AggregatedItem) {
	fmt.Fprintf(sb, "- **Ingredients Available:** %s\n", common.FormatIngredients(items))
	fmt.Fprintf(sb, "- **Meal Type:** %s\n", req.MealType)
	fmt.Fprintf(sb, "- **Dietary Goal:** %s\n", req.DietaryGoal)
	writeOptionalDetails(sb, req)
}

func writeOptionalDetails(sb *strings.Builder, req *GenerationRequest) {
	fmt.Fprintf(sb, "- **People Eating:** %s\n", orDefault(req.AmountPeople, "not specified"))
	fmt.Fprintf(sb, "- **Preferred Cooking Time:** %s\n", orDefault(req.MealTime, "not specified"))
	if req.Region != "" && req.Region != "Any" {
		fmt.Fprintf(sb, "- **Preferred Cuisine Region:** %s\n", req.Region)
	}
	if req.SkillLevel != "" {
		fmt.Fprintf(sb, "- **Cook Skill Level:** %s\n", req.SkillLevel)
	}
	if len(req.KitchenTools) > 0 {
		fmt.Fprintf(sb, "- **Available Kitchen Tools:** %s\n", strings.Join(req.KitchenTools, ", "))
	}
	if req.Restriction != "" {
		fmt.Fprintf(sb, "- **Strict Dietary Restriction to follow:** %s\n", req.Restriction)
	}
	if req.OtherNote != "" {
		fmt.Fprintf(sb, "- **Additional Note from the Cook:** %s\n", req.OtherNote)
	}
}

func writeOutputFormat(sb *strings.Builder) {
	sb.WriteString(`
**Output Format Instructions:**
Format the entire response as a single block of valid HTML. Do NOT include ` + "```html" + ` fences or any text outside the HTML structure.
The HTML should include:
- <h1> for the recipe title.
- <h2> for main sections like "Ingredients", "Instructions", "Notes" (if any).
- For "Ingredients": Use <ul> and <li> for each ingredient. Include quantities as provided in "Ingredients Available".
- For "Instructions": Use <ol> and <li> for each step.
- <p> can be used for general notes, estimated calories, or descriptions.
`)
}

func writeRules(sb *strings.Builder, req *GenerationRequest) {
	sb.WriteString(`
**Recipe Generation Rules:**
1. **Sensibility Check:** Create a coherent and sensible recipe.
2. **Ingredient Viability:**
    * After applying any "Strict Dietary Restriction", if fewer than two distinct usable ingredients remain, or if the remaining ingredients cannot logically form a meal for the specified "Meal Type", then DO NOT generate a recipe. Instead, output a single HTML paragraph: ` + "`" + CannotGenerateNotice + "`" + `
    * If all "Ingredients Available" conflict with the "Strict Dietary Restriction", also use the message above.
3. **Quantity Consideration:** Pay attention to the "People Eating" when suggesting ingredient amounts in the "Instructions", if appropriate for the recipe.
`)
	if req.HasManualLabels() {
		sb.WriteString(ManualNote + "\n")
	}
	sb.WriteString(RestrictionInstructions(req.Restriction))
}

// RestrictionInstructions 飲食限制的處理規則
func RestrictionInstructions(restriction string) string {
	if strings.TrimSpace(restriction) == "" {
		return `
**Dietary Restriction Handling:**
- No specific dietary restrictions were provided. Prepare the recipe using all available ingredients as appropriate.
`
	}
	return fmt.Sprintf(`
**Dietary Restriction Handling:**
- The specified dietary restriction is: **%[1]s**.
- Review the "Ingredients Available".
- If any ingredient directly conflicts with this restriction (e.g., "Bacon" for "vegan", "Pork" for "vegetarian", "Wheat Bread" for "gluten-free"):
    - List the conflicting ingredient in the "Ingredients" section (e.g., in an <ul><li> structure).
    - Append a clear note *directly next to this ingredient in the list*, for example: " (excluded: conflicts with %[1]s restriction)".
    - **Crucially, DO NOT include this conflicting ingredient in the actual recipe "Instructions" (<ol><li>) or assume it's used in the meal preparation.** Base the recipe steps *only* on the usable, non-conflicting ingredients.
- All other non-conflicting ingredients should be used to create the recipe as usual.
- If zero or one non-conflicting ingredient remains, output only: %[2]s
`, restriction, CannotGenerateNotice)
}

func metricOrUnknown(v float64, unit string) string {
	if v <= 0 {
		return "not specified"
	}
	return fmt.Sprintf("%g %s", v, unit)
}
