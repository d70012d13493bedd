package recipe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"menu-gen-assistant/internal/core/image"
	"menu-gen-assistant/internal/core/service"
	"menu-gen-assistant/internal/pkg/common"
	"menu-gen-assistant/internal/pkg/metrics"

	"go.uber.org/zap"
)

const (
	maxCandidates       = 3
	emptyRecipeFallback = "<p>Error: Could not generate recipe content.</p>"
	defaultTitle        = "Recipe"
)

// ImageFetcher 下載並正規化圖片
type ImageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*image.Image, error)
}

// ImageProber 不下載內容的圖片探測
type ImageProber interface {
	Probe(ctx context.Context, rawURL string) (*image.ProbeResult, error)
}

// VisionModel 圖片辨識
type VisionModel interface {
	DescribeImage(ctx context.Context, prompt string, img service.InlineImage) (string, error)
}

// TextGenerator 文字生成
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// VideoSearcher 影片搜尋，找不到時回傳空字串
type VideoSearcher interface {
	SearchVideo(ctx context.Context, query string) (string, error)
}

// ImageSearcher 圖片搜尋，找不到時回傳空字串
type ImageSearcher interface {
	SearchImage(ctx context.Context, query string) (string, error)
}

// ImageGenerator 生成示意圖並回傳網址
type ImageGenerator interface {
	GenerateImage(ctx context.Context, title string) (string, error)
}

// HistoryStore 儲存生成紀錄
type HistoryStore interface {
	SaveHistory(ctx context.Context, entry *common.HistoryEntry) error
}

// Dependencies 管線使用的外部服務，Videos、Images、Resolver、History 可為 nil
type Dependencies struct {
	Fetcher  ImageFetcher
	Vision   VisionModel
	Text     TextGenerator
	Videos   VideoSearcher
	Images   ImageSearcher
	Resolver *ImageResolver
	History  HistoryStore
}

// Pipeline 依階段處理一次生成請求，所有外部呼叫依序執行
type Pipeline struct {
	items     *ItemSource
	text      TextGenerator
	videos    VideoSearcher
	images    ImageSearcher
	resolver  *ImageResolver
	history   HistoryStore
	sanitizer *Sanitizer
}

// NewPipeline 創建生成管線
func NewPipeline(deps Dependencies) *Pipeline {
	resolver := deps.Resolver
	if resolver == nil {
		resolver = NewImageResolver(nil, nil, 0, "")
	}
	return &Pipeline{
		items:     NewItemSource(deps.Fetcher, deps.Vision),
		text:      deps.Text,
		videos:    deps.Videos,
		images:    deps.Images,
		resolver:  resolver,
		history:   deps.History,
		sanitizer: NewSanitizer(),
	}
}

// Run 執行共同的擷取與合併步驟，再進入請求指定的階段
func (p *Pipeline) Run(ctx context.Context, req *GenerationRequest) (resp interface{}, err error) {
	start := time.Now()
	stageName := req.Stage.Name()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.PipelineRequests.WithLabelValues(stageName, outcome).Inc()
		common.LogInfo("管線執行結束",
			zap.String("stage", stageName),
			zap.String("outcome", outcome),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", common.RequestIDFromContext(ctx)),
		)
	}()

	raw, err := p.items.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	items := Aggregate(raw)

	switch st := req.Stage.(type) {
	case ExtractOnly:
		return &ExtractResponse{Items: items}, nil
	case Candidates:
		return p.candidates(ctx, req, items)
	case Recipe:
		return p.recipe(ctx, req, items, st, st.SelectedTitle, st.SelectedImageURL)
	case Fitness:
		return p.recipe(ctx, req, items, st, st.SelectedTitle, st.SelectedImageURL)
	default:
		return nil, fmt.Errorf("unknown stage %T", st)
	}
}

func (p *Pipeline) candidates(ctx context.Context, req *GenerationRequest, items []common.AggregatedItem) (*CandidatesResponse, error) {
	if len(items) == 0 {
		return &CandidatesResponse{Candidates: []common.CandidateRecipe{}}, nil
	}

	reply, err := p.text.GenerateText(ctx, BuildCandidatesPrompt(req, items))
	if err != nil {
		return nil, err
	}

	candidates := ParseCandidates(reply)
	for i := range candidates {
		found := p.searchImage(ctx, candidates[i].Title)
		res := p.resolver.Resolve(ctx, found, candidates[i].Title)
		if res.IsImage() {
			url := res.URL
			candidates[i].ImageURL = &url
		}
	}
	return &CandidatesResponse{Candidates: candidates}, nil
}

type candidateJSON struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ParseCandidates 接受陣列或 {"candidates": [...]}，無法解析時回傳空清單
func ParseCandidates(reply string) []common.CandidateRecipe {
	var list []candidateJSON
	if err := common.ParseModelJSON(reply, &list); err != nil {
		var wrapped struct {
			Candidates []candidateJSON `json:"candidates"`
		}
		if err := common.ParseModelJSON(reply, &wrapped); err != nil {
			common.LogWarn("無法解析候選料理", zap.Error(err), zap.String("reply", common.Truncate(reply, 200)))
			return []common.CandidateRecipe{}
		}
		list = wrapped.Candidates
	}

	out := make([]common.CandidateRecipe, 0, maxCandidates)
	for _, c := range list {
		title := strings.TrimSpace(c.Title)
		if title == "" {
			continue
		}
		out = append(out, common.CandidateRecipe{
			Title:       title,
			Description: strings.TrimSpace(c.Description),
		})
		if len(out) == maxCandidates {
			break
		}
	}
	return out
}

func (p *Pipeline) recipe(ctx context.Context, req *GenerationRequest, items []common.AggregatedItem, stage Stage, selectedTitle, selectedImage string) (*RecipeResponse, error) {
	categories := Categories(req, stage)
	fitness, isFitness := stage.(Fitness)

	if len(items) == 0 {
		resp := &RecipeResponse{
			Items:        items,
			Recipe:       NoIngredientsMessage,
			MainImageURL: p.resolver.placeholderURL,
			Categories:   categories,
			OtherNote:    req.OtherNote,
		}
		if isFitness {
			resp.NutritionInfo = &common.NutritionInfo{}
		}
		return resp, nil
	}

	var prompt string
	if isFitness {
		prompt = BuildFitnessPrompt(req, items, fitness)
	} else {
		prompt = BuildRecipePrompt(req, items, selectedTitle)
	}

	reply, err := p.text.GenerateText(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var (
		body  string
		block NutritionBlock
	)
	if isFitness {
		body, block = SplitFitnessReply(reply)
	} else {
		body = common.StripCodeFence(reply)
	}

	html := p.sanitizer.Sanitize(body)
	if html == "" {
		html = emptyRecipeFallback
	}

	title := ExtractTitle(html)
	if title == "" {
		title = selectedTitle
	}

	resp := &RecipeResponse{
		Items:      items,
		Recipe:     html,
		VideoURL:   p.findVideo(ctx, title),
		Categories: categories,
		OtherNote:  req.OtherNote,
	}

	imageTitle := orDefault(title, defaultTitle)
	candidate := selectedImage
	if candidate == "" && title != "" {
		candidate = p.searchImage(ctx, title)
	}
	resp.MainImageURL = p.resolver.Resolve(ctx, candidate, imageTitle).URL

	if isFitness {
		info, strategy := ExtractNutrition(block, html)
		resp.NutritionInfo = &info
		common.LogDebug("營養資訊解析", zap.String("strategy", strategy))
	}

	p.saveHistory(ctx, userID(ctx), stage, orDefault(title, defaultTitle), resp)
	return resp, nil
}

// findVideo 影片搜尋失敗時回傳 nil
func (p *Pipeline) findVideo(ctx context.Context, title string) *string {
	if p.videos == nil || title == "" {
		return nil
	}
	url, err := p.videos.SearchVideo(ctx, title)
	if err != nil {
		common.LogWarn("影片搜尋失敗", zap.String("title", title), zap.Error(err))
		return nil
	}
	if url == "" {
		return nil
	}
	return &url
}

// searchImage 圖片搜尋失敗時回傳空字串
func (p *Pipeline) searchImage(ctx context.Context, query string) string {
	if p.images == nil || query == "" {
		return ""
	}
	url, err := p.images.SearchImage(ctx, query)
	if err != nil {
		common.LogWarn("圖片搜尋失敗", zap.String("query", query), zap.Error(err))
		return ""
	}
	return url
}

// saveHistory 只記錄已登入使用者，失敗不影響回應
func (p *Pipeline) saveHistory(ctx context.Context, user string, stage Stage, title string, resp *RecipeResponse) {
	if p.history == nil || user == "" {
		return
	}

	entry := &common.HistoryEntry{
		ID:           common.GenerateUUID(),
		UserID:       user,
		Stage:        stage.Name(),
		Title:        title,
		Items:        resp.Items,
		RecipeHTML:   resp.Recipe,
		MainImageURL: resp.MainImageURL,
		Categories:   resp.Categories,
		Nutrition:    resp.NutritionInfo,
		CreatedAt:    time.Now().UTC(),
	}
	if resp.VideoURL != nil {
		entry.VideoURL = *resp.VideoURL
	}

	if err := p.history.SaveHistory(ctx, entry); err != nil {
		common.LogWarn("儲存紀錄失敗", zap.String("user_id", user), zap.Error(err))
	}
}

type userIDKey struct{}

// WithUserID 將已驗證的使用者 ID 放入 context
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

func userID(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey{}).(string); ok {
		return id
	}
	return ""
}
