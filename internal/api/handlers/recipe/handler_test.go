package recipe

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"menu-gen-assistant/internal/api/middleware"
	recipeService "menu-gen-assistant/internal/core/recipe"
	"menu-gen-assistant/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-secret"

type fakeRunner struct {
	calls int
	resp  interface{}
	err   error
}

func (f *fakeRunner) Run(ctx context.Context, req *recipeService.GenerationRequest) (interface{}, error) {
	f.calls++
	return f.resp, f.err
}

type fakeHistory struct {
	userID  string
	limit   int
	entries []common.HistoryEntry
}

func (f *fakeHistory) ListHistory(ctx context.Context, userID string, limit int) ([]common.HistoryEntry, error) {
	f.userID = userID
	f.limit = limit
	return f.entries, nil
}

func newRouter(runner Runner, history HistoryLister) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CallerIdentity(testSecret))
	h := NewHandler(runner, history)
	r.POST("/api/v1/recipe/generate", h.HandleGenerate)
	r.GET("/api/v1/history", h.HandleHistory)
	return r
}

func post(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recipe/generate", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) common.ErrorBody {
	t.Helper()
	var body common.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestGenerateExtractOnlyEndToEnd(t *testing.T) {
	pipeline := recipeService.NewPipeline(recipeService.Dependencies{})
	r := newRouter(pipeline, nil)

	w := post(r, `{"manual_labels":[{"item_label":"Egg","quantity":6},{"item_label":"Flour"}],"stage":"extract_only"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[{"item_label":"Egg","quantity":6},{"item_label":"Flour","quantity":1}]}`, w.Body.String())
}

func TestGenerateValidationError(t *testing.T) {
	runner := &fakeRunner{}
	r := newRouter(runner, nil)

	w := post(r, `{"manual_labels":[{"item_label":"Egg"}],"meal_type":"brunch","dietary_goal":"normal","skill_level":"Beginner"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := errorBody(t, w)
	assert.True(t, body.UserError)
	assert.Contains(t, body.Detail, "meal_type")
	assert.NotContains(t, body.Detail, "dietary_goal")
	assert.NotContains(t, body.Detail, "skill_level")
	assert.Zero(t, runner.calls)
}

func TestGenerateMalformedJSON(t *testing.T) {
	runner := &fakeRunner{}
	w := post(newRouter(runner, nil), `{"manual_labels":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, errorBody(t, w).UserError)
	assert.Zero(t, runner.calls)
}

func TestGeneratePipelineErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"upstream", common.NewUpstreamError("vision", 503, nil), http.StatusBadGateway, "Upstream service error"},
		{"rate limited", &common.RateLimitError{RetryAfter: 3 * time.Second}, http.StatusTooManyRequests, "Too many requests"},
		{"internal", assert.AnError, http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(newRouter(&fakeRunner{err: tt.err}, nil), `{"manual_labels":[{"item_label":"Egg"}]}`)
			require.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantError, errorBody(t, w).Error)
			assert.NotContains(t, w.Body.String(), "503")
		})
	}
}

func TestGenerateRateLimitSetsRetryAfter(t *testing.T) {
	w := post(newRouter(&fakeRunner{err: &common.RateLimitError{RetryAfter: 2500 * time.Millisecond}}, nil),
		`{"manual_labels":[{"item_label":"Egg"}]}`)
	assert.Equal(t, "3", w.Header().Get("Retry-After"))
}

func TestHistoryRequiresAuthentication(t *testing.T) {
	history := &fakeHistory{}
	r := newRouter(&fakeRunner{}, history)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, history.userID)
}

func TestHistoryListsCallerEntries(t *testing.T) {
	history := &fakeHistory{entries: []common.HistoryEntry{{
		ID:           "h1",
		Stage:        "recipe",
		Title:        "Omelette",
		RecipeHTML:   "<h1>Omelette</h1>",
		MainImageURL: "https://img.example.com/o.jpg",
		Categories:   []string{"breakfast"},
		CreatedAt:    time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
	}}}
	r := newRouter(&fakeRunner{}, history)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-9",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history?limit=5", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-9", history.userID)
	assert.Equal(t, 5, history.limit)

	var resp struct {
		History []HistoryItem `json:"history"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.History, 1)
	assert.Equal(t, "Omelette", resp.History[0].Title)
	assert.Nil(t, resp.History[0].VideoURL)
}
