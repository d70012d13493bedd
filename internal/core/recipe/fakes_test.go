package recipe

import (
	"context"
	"errors"

	"menu-gen-assistant/internal/core/image"
	"menu-gen-assistant/internal/core/service"
	"menu-gen-assistant/internal/pkg/common"
)

type fakeProber struct {
	results map[string]*image.ProbeResult
	calls   []string
}

func (f *fakeProber) Probe(ctx context.Context, rawURL string) (*image.ProbeResult, error) {
	f.calls = append(f.calls, rawURL)
	if res, ok := f.results[rawURL]; ok {
		return res, nil
	}
	return nil, errors.New("unreachable")
}

type fakeGenerator struct {
	url    string
	err    error
	titles []string
}

func (f *fakeGenerator) GenerateImage(ctx context.Context, title string) (string, error) {
	f.titles = append(f.titles, title)
	return f.url, f.err
}

type fakeFetcher struct {
	img  *image.Image
	err  error
	urls []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string) (*image.Image, error) {
	f.urls = append(f.urls, rawURL)
	return f.img, f.err
}

type fakeVision struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeVision) DescribeImage(ctx context.Context, prompt string, img service.InlineImage) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

type fakeText struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeText) GenerateText(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

type fakeVideos struct {
	url     string
	err     error
	queries []string
}

func (f *fakeVideos) SearchVideo(ctx context.Context, query string) (string, error) {
	f.queries = append(f.queries, query)
	return f.url, f.err
}

type fakeImages struct {
	links   map[string]string
	err     error
	queries []string
}

func (f *fakeImages) SearchImage(ctx context.Context, query string) (string, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return "", f.err
	}
	return f.links[query], nil
}

type fakeHistory struct {
	entries []*common.HistoryEntry
	err     error
}

func (f *fakeHistory) SaveHistory(ctx context.Context, entry *common.HistoryEntry) error {
	f.entries = append(f.entries, entry)
	return f.err
}

func jpegProbe(size int64) *image.ProbeResult {
	return &image.ProbeResult{StatusCode: 200, ContentType: "image/jpeg", ContentLength: size}
}
