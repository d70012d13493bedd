package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	appconfig "menu-gen-assistant/internal/infrastructure/config"
	"menu-gen-assistant/internal/pkg/common"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// ObjectPutter S3 上傳介面
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store 將生成的圖片上傳至 S3 並回傳公開網址
type S3Store struct {
	client        ObjectPutter
	bucket        string
	keyPrefix     string
	publicBaseURL string
}

// NewS3Store 以預設 AWS 憑證鏈建立 S3 客戶端
func NewS3Store(ctx context.Context, cfg appconfig.StorageConfig) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewS3StoreWithClient(s3.NewFromConfig(awsCfg), cfg), nil
}

// NewS3StoreWithClient 使用既有客戶端
func NewS3StoreWithClient(client ObjectPutter, cfg appconfig.StorageConfig) *S3Store {
	return &S3Store{
		client:        client,
		bucket:        cfg.Bucket,
		keyPrefix:     strings.Trim(cfg.KeyPrefix, "/"),
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}
}

// Upload 上傳物件，回傳可公開存取的 https 網址
func (s *S3Store) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	key := name
	if s.keyPrefix != "" {
		key = path.Join(s.keyPrefix, name)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	url := s.PublicURL(key)
	common.LogDebug("圖片已上傳", zap.String("bucket", s.bucket), zap.String("key", key))
	return url, nil
}

// PublicURL 物件的公開網址
func (s *S3Store) PublicURL(key string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key)
}
