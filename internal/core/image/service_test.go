package image

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"menu-gen-assistant/internal/infrastructure/config"
	"menu-gen-assistant/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.ImageConfig {
	return config.ImageConfig{
		MaxFetchBytes: 1 << 20,
		MaxProbeBytes: 1 << 20,
		MaxDimension:  64,
		Timeout:       5 * time.Second,
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// newTLSService 指向本機 TLS 測試伺服器，略過公開位址檢查
func newTLSService(t *testing.T, handler http.HandlerFunc) (*Service, string) {
	t.Helper()
	srv := httptest.NewTLSServer(handler)
	t.Cleanup(srv.Close)

	svc := NewService(testConfig())
	svc.client.SetTransport(srv.Client().Transport)
	svc.guard = func(_ context.Context, raw string) (*url.URL, error) {
		return url.Parse(raw)
	}
	return svc, srv.URL
}

func TestValidateRemoteURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		ok   bool
	}{
		{"public https", "https://images.example.com/a.jpg", true},
		{"plain http", "http://images.example.com/a.jpg", false},
		{"private ipv4", "https://10.0.0.5/pic.png", false},
		{"private 192.168", "https://192.168.1.20/pic.png", false},
		{"loopback", "https://127.0.0.1/pic.png", false},
		{"ipv6 loopback", "https://[::1]/pic.png", false},
		{"link local", "https://169.254.169.254/latest/meta-data", false},
		{"localhost name", "https://localhost/pic.png", false},
		{"public ip", "https://8.8.8.8/pic.png", true},
		{"ftp", "ftp://example.com/a.jpg", false},
		{"garbage", "::not a url", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateRemoteURL(tt.url)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrUnsafeURL)
			}
		})
	}
}

func TestPublicHostGuardRejectsPrivateResolution(t *testing.T) {
	svc := NewService(testConfig())
	svc.lookupIP = func(context.Context, string) ([]net.IP, error) {
		return []net.IP{net.ParseIP("10.1.2.3")}, nil
	}

	_, err := svc.Fetch(context.Background(), "https://internal.example.com/pic.png")
	assert.ErrorIs(t, err, ErrUnsafeURL)
}

func TestFetchNormalizesToJPEG(t *testing.T) {
	data := pngBytes(t, 200, 100)
	svc, base := newTLSService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	})

	img, err := svc.Fetch(context.Background(), base+"/groceries.png")
	require.NoError(t, err)

	assert.Equal(t, "image/jpeg", img.MIMEType)
	assert.Equal(t, 64, img.Width)
	assert.Equal(t, 32, img.Height)
	assert.Equal(t, []byte{0xFF, 0xD8}, img.Data[:2])
}

func TestFetchRejectsOversizedBody(t *testing.T) {
	svc, base := newTLSService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, (1<<20)+10))
	})

	_, err := svc.Fetch(context.Background(), base+"/huge.png")
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

func TestFetchNon2xxIsUpstreamError(t *testing.T) {
	svc, base := newTLSService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := svc.Fetch(context.Background(), base+"/missing.png")
	var upstream *common.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, ServiceImageDownload, upstream.Service)
	assert.Equal(t, http.StatusNotFound, upstream.StatusCode)
}

func TestFetchRejectsNonImage(t *testing.T) {
	svc, base := newTLSService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not an image</html>"))
	})

	_, err := svc.Fetch(context.Background(), base+"/page.html")
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestProbeReadsHeaders(t *testing.T) {
	svc, base := newTLSService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Length", strconv.Itoa(100000))
		w.WriteHeader(http.StatusOK)
	})

	res, err := svc.Probe(context.Background(), base+"/dish.jpg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", res.ContentType)
	assert.Equal(t, int64(100000), res.ContentLength)
}

func TestProbeRejectsUnsafeURLWithoutNetwork(t *testing.T) {
	svc := NewService(testConfig())
	_, err := svc.Probe(context.Background(), "http://10.0.0.5/pic.png")
	assert.ErrorIs(t, err, ErrUnsafeURL)
}
