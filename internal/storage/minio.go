package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"resumeBuilder/internal/config"
)

// Client 封装两个 MinIO 客户端：内部地址用于读写，公网地址只用于签名，
// 这样浏览器拿到的预签名链接 host 与签名一致。
type Client struct {
	internal *minio.Client
	public   *minio.Client
	bucket   string
}

func bucketLookup(raw string) (minio.BucketLookupType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "auto":
		return minio.BucketLookupAuto, nil
	case "dns":
		return minio.BucketLookupDNS, nil
	case "path":
		return minio.BucketLookupPath, nil
	default:
		return minio.BucketLookupAuto, fmt.Errorf("invalid minio bucket lookup %q", raw)
	}
}

// NewClient connects to MinIO and makes sure the bucket exists.
func NewClient(ctx context.Context, cfg config.MinIOConfig) (*Client, error) {
	lookup, err := bucketLookup(cfg.BucketLookup)
	if err != nil {
		return nil, err
	}
	creds := credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, "")

	internal, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        creds,
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("init internal minio client: %w", err)
	}

	public := internal
	if cfg.PublicEndpoint != "" {
		endpoint, err := url.Parse(cfg.PublicEndpoint)
		if err != nil {
			return nil, fmt.Errorf("parse minio public endpoint: %w", err)
		}
		if endpoint.Host == "" {
			return nil, fmt.Errorf("invalid minio public endpoint %q: host missing", cfg.PublicEndpoint)
		}
		public, err = minio.New(endpoint.Host, &minio.Options{
			Creds:        creds,
			Secure:       endpoint.Scheme == "https",
			Region:       cfg.Region,
			BucketLookup: lookup,
		})
		if err != nil {
			return nil, fmt.Errorf("init public minio client: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := internal.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if !cfg.AutoCreateBucket {
			return nil, fmt.Errorf("bucket %q does not exist (auto create disabled)", cfg.Bucket)
		}
		if err := internal.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("make bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &Client{internal: internal, public: public, bucket: cfg.Bucket}, nil
}

// UploadFile 上传对象到私有 Bucket。
func (c *Client) UploadFile(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := c.internal.PutObject(ctx, c.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

// PresignGet returns a time limited download link. A non-empty filename
// makes browsers save the object instead of displaying it.
func (c *Client) PresignGet(ctx context.Context, key string, ttl time.Duration, filename string) (string, error) {
	var params url.Values
	if filename != "" {
		params = url.Values{}
		params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	u, err := c.public.PresignedGetObject(ctx, c.bucket, key, ttl, params)
	if err != nil {
		return "", fmt.Errorf("presign %q: %w", key, err)
	}
	return u.String(), nil
}

// Exists reports whether key is present. Missing objects are not an error.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	if _, err := c.internal.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{}); err != nil {
		if IsNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat object %q: %w", key, err)
	}
	return true, nil
}

// DeleteObject 删除对象，对象不存在视为成功。
func (c *Client) DeleteObject(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	if err := c.internal.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		if IsNoSuchKey(err) {
			return nil
		}
		return fmt.Errorf("remove object %q: %w", key, err)
	}
	return nil
}

// DeletePrefix 删除前缀下全部对象，单个失败会继续处理其余对象。
func (c *Client) DeletePrefix(ctx context.Context, prefix string) error {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" || !strings.HasSuffix(prefix, "/") {
		return fmt.Errorf("refusing to delete prefix %q", prefix)
	}

	objects := c.internal.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true})
	var failed int
	var lastErr error
	for obj := range objects {
		if obj.Err != nil {
			return fmt.Errorf("list objects under %q: %w", prefix, obj.Err)
		}
		if err := c.DeleteObject(ctx, obj.Key); err != nil {
			failed++
			lastErr = err
		}
	}
	if failed == 0 {
		return nil
	}
	if failed == 1 {
		return lastErr
	}
	slog.Default().Error("delete objects under prefix failed",
		slog.String("prefix", prefix),
		slog.Int("failed_count", failed),
	)
	return fmt.Errorf("delete objects under %q: %d errors, last: %w", prefix, failed, lastErr)
}
