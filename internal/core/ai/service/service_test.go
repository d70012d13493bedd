package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"menu-gen-assistant/internal/core/ai/cache"
	"menu-gen-assistant/internal/core/service"
	"menu-gen-assistant/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	textCalls   int
	visionCalls int
	reply       string
	err         error
}

func (f *fakeModel) GenerateText(ctx context.Context, prompt string) (string, error) {
	f.textCalls++
	return f.reply, f.err
}

func (f *fakeModel) DescribeImage(ctx context.Context, prompt string, img service.InlineImage) (string, error) {
	f.visionCalls++
	return f.reply, f.err
}

func newCache(t *testing.T) *cache.Manager {
	m := cache.NewManager(config.CacheConfig{Enabled: true, MaxSize: 10, TTL: time.Hour})
	t.Cleanup(m.Close)
	return m
}

func TestDescribeImageUsesCache(t *testing.T) {
	model := &fakeModel{reply: `{"detected_items":[]}`}
	svc := NewService(model, newCache(t))
	img := service.InlineImage{MIMEType: "image/jpeg", Data: []byte{1, 2, 3}}

	for i := 0; i < 3; i++ {
		out, err := svc.DescribeImage(context.Background(), "detect", img)
		require.NoError(t, err)
		assert.Equal(t, model.reply, out)
	}
	assert.Equal(t, 1, model.visionCalls)

	_, err := svc.DescribeImage(context.Background(), "detect", service.InlineImage{MIMEType: "image/jpeg", Data: []byte{9}})
	require.NoError(t, err)
	assert.Equal(t, 2, model.visionCalls)
}

func TestGenerateTextWithoutCache(t *testing.T) {
	model := &fakeModel{reply: "<h1>Soup</h1>"}
	svc := NewService(model, nil)

	_, _ = svc.GenerateText(context.Background(), "recipe")
	_, _ = svc.GenerateText(context.Background(), "recipe")
	assert.Equal(t, 2, model.textCalls)
}

func TestErrorsAreNotCached(t *testing.T) {
	model := &fakeModel{err: errors.New("boom")}
	svc := NewService(model, newCache(t))

	_, err := svc.GenerateText(context.Background(), "recipe")
	require.Error(t, err)

	model.err = nil
	model.reply = "ok"
	out, err := svc.GenerateText(context.Background(), "recipe")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 2, model.textCalls)
}
