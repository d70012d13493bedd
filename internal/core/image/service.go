package image

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	_ "image/gif" // 支援 GIF
	_ "image/png" // 支援 PNG

	"menu-gen-assistant/internal/infrastructure/config"
	"menu-gen-assistant/internal/pkg/common"

	"github.com/disintegration/imaging"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp" // 支援 WebP
)

// ServiceImageDownload 下載錯誤使用的服務名稱
const ServiceImageDownload = "image_download"

var (
	ErrUnsafeURL        = errors.New("url is not an allowed public https address")
	ErrImageTooLarge    = errors.New("image exceeds size limit")
	ErrUnsupportedImage = errors.New("unsupported image format")
)

// Image 正規化後的圖片
type Image struct {
	Data     []byte
	MIMEType string
	Width    int
	Height   int
}

// ProbeResult HEAD 探測結果
type ProbeResult struct {
	StatusCode    int
	ContentType   string
	ContentLength int64
}

type guardFunc func(ctx context.Context, rawURL string) (*url.URL, error)

// Service 圖片下載與探測服務
type Service struct {
	maxFetchBytes int64
	maxDimension  int
	client        *resty.Client
	guard         guardFunc
	lookupIP      func(ctx context.Context, host string) ([]net.IP, error)
}

// NewService 創建新的圖片處理服務
func NewService(cfg config.ImageConfig) *Service {
	s := &Service{
		maxFetchBytes: cfg.MaxFetchBytes,
		maxDimension:  cfg.MaxDimension,
		lookupIP: func(ctx context.Context, host string) ([]net.IP, error) {
			return net.DefaultResolver.LookupIP(ctx, "ip", host)
		},
	}
	s.guard = s.publicHostGuard
	s.client = resty.New().
		SetTimeout(cfg.Timeout).
		SetRedirectPolicy(resty.RedirectPolicyFunc(func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("stopped after %d redirects", len(via))
			}
			// 轉址目標同樣需要通過檢查
			_, err := s.guard(req.Context(), req.URL.String())
			return err
		}))
	return s
}

// ValidateRemoteURL 檢查 URL 是否為 https 且主機不是私有或回環位址
func ValidateRemoteURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsafeURL, err)
	}
	if u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q", ErrUnsafeURL, u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrUnsafeURL)
	}
	if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".localhost") {
		return nil, fmt.Errorf("%w: local host", ErrUnsafeURL)
	}
	if ip := net.ParseIP(host); ip != nil && isBlockedIP(ip) {
		return nil, fmt.Errorf("%w: blocked address %s", ErrUnsafeURL, ip)
	}
	return u, nil
}

func isBlockedIP(ip net.IP) bool {
	return ip.IsPrivate() ||
		ip.IsLoopback() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified()
}

// publicHostGuard 除了字面檢查外，也確認 DNS 解析結果皆為公開位址
func (s *Service) publicHostGuard(ctx context.Context, rawURL string) (*url.URL, error) {
	u, err := ValidateRemoteURL(rawURL)
	if err != nil {
		return nil, err
	}
	if net.ParseIP(u.Hostname()) != nil {
		return u, nil
	}

	ips, err := s.lookupIP(ctx, u.Hostname())
	if err != nil {
		return nil, fmt.Errorf("%w: lookup failed: %v", ErrUnsafeURL, err)
	}
	for _, ip := range ips {
		if isBlockedIP(ip) {
			return nil, fmt.Errorf("%w: %s resolves to %s", ErrUnsafeURL, u.Hostname(), ip)
		}
	}
	return u, nil
}

// Fetch 下載圖片並正規化為 JPEG
func (s *Service) Fetch(ctx context.Context, rawURL string) (*Image, error) {
	u, err := s.guard(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(u.String())
	if err != nil {
		return nil, common.NewUpstreamError(ServiceImageDownload, 0, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return nil, common.NewUpstreamError(ServiceImageDownload, resp.StatusCode(), nil)
	}
	if resp.RawResponse.ContentLength > s.maxFetchBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrImageTooLarge, resp.RawResponse.ContentLength)
	}

	data, err := io.ReadAll(io.LimitReader(body, s.maxFetchBytes+1))
	if err != nil {
		return nil, common.NewUpstreamError(ServiceImageDownload, 0, fmt.Errorf("failed to read image data: %w", err))
	}
	if int64(len(data)) > s.maxFetchBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrImageTooLarge, s.maxFetchBytes)
	}

	img, err := s.normalize(data)
	if err != nil {
		return nil, err
	}

	common.LogDebug("圖片下載完成",
		zap.Int("original_bytes", len(data)),
		zap.Int("normalized_bytes", len(img.Data)),
		zap.Int("width", img.Width),
		zap.Int("height", img.Height),
	)
	return img, nil
}

// normalize 解碼、縮圖並重新編碼為 JPEG
func (s *Service) normalize(data []byte) (*Image, error) {
	decoded, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if !isSupportedFormat(format) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, format)
	}

	bounds := decoded.Bounds()
	if bounds.Dx() > s.maxDimension || bounds.Dy() > s.maxDimension {
		decoded = imaging.Fit(decoded, s.maxDimension, s.maxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, decoded, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode image as JPEG: %w", err)
	}

	b := decoded.Bounds()
	return &Image{
		Data:     buf.Bytes(),
		MIMEType: "image/jpeg",
		Width:    b.Dx(),
		Height:   b.Dy(),
	}, nil
}

// isSupportedFormat 檢查圖片格式是否支援
func isSupportedFormat(format string) bool {
	switch format {
	case "jpeg", "png", "gif", "webp":
		return true
	default:
		return false
	}
}

// Probe 以 HEAD 請求取得圖片類型與大小，不下載內容
func (s *Service) Probe(ctx context.Context, rawURL string) (*ProbeResult, error) {
	u, err := s.guard(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.R().
		SetContext(ctx).
		Head(u.String())
	if err != nil {
		return nil, fmt.Errorf("probe failed: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("probe returned status %d", resp.StatusCode())
	}

	return &ProbeResult{
		StatusCode:    resp.StatusCode(),
		ContentType:   resp.Header().Get("Content-Type"),
		ContentLength: resp.RawResponse.ContentLength,
	}, nil
}
