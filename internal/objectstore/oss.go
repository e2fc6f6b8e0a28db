package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"loyalty-analytics-go/internal/models"

	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss"
	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss/credentials"
	"go.uber.org/zap"
)

// OSSStore stores ETL artifacts in an Aliyun OSS bucket.
type OSSStore struct {
	client *oss.Client
	bucket string
}

func NewOSSStore(cfg models.ObjectStoreConfig) (*OSSStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("object store bucket is required")
	}

	ossCfg := oss.LoadDefaultConfig().
		WithEndpoint(cfg.Endpoint).
		WithRegion(cfg.Region)
	if cfg.AccessKeyId != "" {
		ossCfg = ossCfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyId, cfg.AccessKeySecret),
		)
	} else {
		ossCfg = ossCfg.WithCredentialsProvider(credentials.NewEnvironmentVariableCredentialsProvider())
	}

	zap.L().Info("OSS object store configured",
		zap.String("bucket", cfg.Bucket),
		zap.String("region", cfg.Region))

	return &OSSStore{client: oss.NewClient(ossCfg), bucket: cfg.Bucket}, nil
}

func (s *OSSStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	req := &oss.PutObjectRequest{
		Bucket: oss.Ptr(s.bucket),
		Key:    oss.Ptr(key),
		Body:   bytes.NewReader(body),
	}
	if contentType != "" {
		req.ContentType = oss.Ptr(contentType)
	}
	if _, err := s.client.PutObject(ctx, req); err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return nil
}

func (s *OSSStore) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &oss.GetObjectRequest{
		Bucket: oss.Ptr(s.bucket),
		Key:    oss.Ptr(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return body, nil
}

func (s *OSSStore) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.IsObjectExist(ctx, s.bucket, key)
	if err != nil {
		return false, fmt.Errorf("failed to check object %s: %w", key, err)
	}
	return ok, nil
}

func isNotFound(err error) bool {
	var serr *oss.ServiceError
	if errors.As(err, &serr) {
		return serr.StatusCode == http.StatusNotFound || serr.Code == "NoSuchKey"
	}
	return false
}
