package recipe

// Categories 依請求計算分類標籤，依固定順序並去除重複
func Categories(req *GenerationRequest, stage Stage) []string {
	tags := make([]string, 0, 8)
	seen := make(map[string]bool)
	add := func(tag string) {
		if tag == "" || seen[tag] {
			return
		}
		seen[tag] = true
		tags = append(tags, tag)
	}

	add(req.MealType)
	if req.DietaryGoal != "normal" {
		add(req.DietaryGoal)
	}
	add(req.Restriction)
	if req.Region != "Any" {
		add(req.Region)
	}
	add(req.MealTime)
	add(req.SkillLevel)
	if f, ok := stage.(Fitness); ok {
		add(StageFitness)
		add(f.Metrics.Goal)
	}
	return tags
}
