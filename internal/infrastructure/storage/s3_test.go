package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"menu-gen-assistant/internal/infrastructure/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	if params.Body != nil {
		f.body, _ = io.ReadAll(params.Body)
	}
	return &s3.PutObjectOutput{}, f.err
}

func TestUploadUsesPrefixAndBucketURL(t *testing.T) {
	putter := &fakePutter{}
	store := NewS3StoreWithClient(putter, config.StorageConfig{Bucket: "menu-images", KeyPrefix: "/recipe-images/"})

	url, err := store.Upload(context.Background(), "abc.png", []byte("png"), "image/png")
	require.NoError(t, err)

	assert.Equal(t, "https://menu-images.s3.amazonaws.com/recipe-images/abc.png", url)
	assert.Equal(t, "menu-images", aws.ToString(putter.input.Bucket))
	assert.Equal(t, "recipe-images/abc.png", aws.ToString(putter.input.Key))
	assert.Equal(t, "image/png", aws.ToString(putter.input.ContentType))
	assert.Equal(t, []byte("png"), putter.body)
}

func TestUploadWithPublicBaseURL(t *testing.T) {
	store := NewS3StoreWithClient(&fakePutter{}, config.StorageConfig{Bucket: "b", PublicBaseURL: "https://cdn.example.com/"})

	url, err := store.Upload(context.Background(), "x.jpg", []byte{1}, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/x.jpg", url)
}

func TestUploadFailure(t *testing.T) {
	store := NewS3StoreWithClient(&fakePutter{err: errors.New("denied")}, config.StorageConfig{Bucket: "b"})

	_, err := store.Upload(context.Background(), "x.jpg", []byte{1}, "image/jpeg")
	assert.ErrorContains(t, err, "denied")
}
