package recipe

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"menu-gen-assistant/internal/api/middleware"
	recipeService "menu-gen-assistant/internal/core/recipe"
	"menu-gen-assistant/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Runner 執行食譜管線
type Runner interface {
	Run(ctx context.Context, req *recipeService.GenerationRequest) (interface{}, error)
}

// HistoryLister 查詢生成紀錄
type HistoryLister interface {
	ListHistory(ctx context.Context, userID string, limit int) ([]common.HistoryEntry, error)
}

// Handler 食譜處理程序
type Handler struct {
	pipeline Runner
	history  HistoryLister
}

// NewHandler 創建新的食譜處理程序，history 可為 nil
func NewHandler(pipeline Runner, history HistoryLister) *Handler {
	return &Handler{
		pipeline: pipeline,
		history:  history,
	}
}

// HandleGenerate 依請求階段擷取食材、推薦料理或生成食譜
func (h *Handler) HandleGenerate(c *gin.Context) {
	requestID := requestid.Get(c)
	common.LogInfo("開始處理食譜生成請求",
		zap.String("request_id", requestID),
		zap.String("caller_id", c.GetString(middleware.CallerIDKey)),
	)

	var body recipeService.GenerateRequest
	if err := common.DecodeJSON(c.Request.Body, &body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, common.ErrBodyTooLarge)
			return
		}
		common.LogWarn("請求格式無效", zap.Error(err), zap.String("request_id", requestID))
		respondError(c, common.NewValidationError("Invalid JSON body"))
		return
	}

	req, err := recipeService.Validate(&body)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	if userID := c.GetString(middleware.UserIDKey); userID != "" {
		ctx = recipeService.WithUserID(ctx, userID)
	}

	resp, err := h.pipeline.Run(ctx, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// HistoryItem 生成紀錄回應
type HistoryItem struct {
	ID           string                  `json:"id"`
	Stage        string                  `json:"stage"`
	Title        string                  `json:"title"`
	Items        []common.AggregatedItem `json:"items"`
	Recipe       string                  `json:"recipe"`
	VideoURL     *string                 `json:"video_url"`
	MainImageURL string                  `json:"main_image_url"`
	Categories   []string                `json:"categories"`
	Nutrition    *common.NutritionInfo   `json:"nutrition_info,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
}

// HandleHistory 列出已驗證使用者的生成紀錄
func (h *Handler) HandleHistory(c *gin.Context) {
	userID := c.GetString(middleware.UserIDKey)
	if userID == "" {
		respondError(c, common.ErrUnauthorized)
		return
	}
	if h.history == nil {
		c.JSON(http.StatusOK, gin.H{"history": []HistoryItem{}})
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := h.history.ListHistory(c.Request.Context(), userID, limit)
	if err != nil {
		common.LogError("查詢紀錄失敗",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("request_id", requestid.Get(c)),
		)
		respondError(c, err)
		return
	}

	items := make([]HistoryItem, 0, len(entries))
	for _, e := range entries {
		item := HistoryItem{
			ID:           e.ID,
			Stage:        e.Stage,
			Title:        e.Title,
			Items:        e.Items,
			Recipe:       e.RecipeHTML,
			MainImageURL: e.MainImageURL,
			Categories:   e.Categories,
			Nutrition:    e.Nutrition,
			CreatedAt:    e.CreatedAt,
		}
		if e.VideoURL != "" {
			v := e.VideoURL
			item.VideoURL = &v
		}
		items = append(items, item)
	}
	c.JSON(http.StatusOK, gin.H{"history": items})
}

func respondError(c *gin.Context, err error) {
	status, body := common.ErrorStatus(err)

	var rateErr *common.RateLimitError
	if errors.As(err, &rateErr) {
		c.Header("Retry-After", strconv.Itoa(common.RetryAfterSeconds(rateErr.RetryAfter)))
	}

	if status >= http.StatusInternalServerError {
		common.LogError("請求處理失敗",
			zap.Error(err),
			zap.Int("status", status),
			zap.String("request_id", requestid.Get(c)),
		)
	}
	c.AbortWithStatusJSON(status, body)
}
