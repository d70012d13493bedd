package recipe

// Stage 管線的終端階段，只有本套件內的四種型別
type Stage interface {
	Name() string
	sealed()
}

// ExtractOnly 僅回傳合併後的食材
type ExtractOnly struct{}

// Candidates 列出三個候選料理
type Candidates struct{}

// Recipe 完整食譜
type Recipe struct {
	SelectedTitle    string
	SelectedImageURL string
}

// Fitness 依身體數據與健身目標產生的食譜
type Fitness struct {
	Metrics          FitnessMetrics
	SelectedTitle    string
	SelectedImageURL string
}

// FitnessMetrics 身體數據，0 表示未提供
type FitnessMetrics struct {
	HeightCM float64
	WeightKG float64
	Age      float64
	Gender   string
	Goal     string
}

const (
	StageExtractOnly = "extract_only"
	StageCandidates  = "candidates"
	StageRecipe      = "recipe"
	StageFitness     = "fitness"
)

func (ExtractOnly) Name() string { return StageExtractOnly }
func (Candidates) Name() string  { return StageCandidates }
func (Recipe) Name() string      { return StageRecipe }
func (Fitness) Name() string     { return StageFitness }

func (ExtractOnly) sealed() {}
func (Candidates) sealed()  {}
func (Recipe) sealed()      {}
func (Fitness) sealed()     {}
