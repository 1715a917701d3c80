package minio

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"storagedrive/internal/domain"
	"storagedrive/internal/metrics"
)

const (
	defaultTimeout = 30 * time.Second
	uploadTimeout  = 10 * time.Minute

	providerName = "minio"
)

// Client хранит файлы в MinIO
type Client struct {
	client    *minio.Client
	bucket    string
	publicURL string
	log       *zap.Logger
}

// NewClient подключается к MinIO и создает бакет, если его еще нет
func NewClient(ctx context.Context, conf *Config, log *zap.Logger) (*Client, error) {
	if conf == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if err := conf.validate(); err != nil {
		return nil, err
	}

	client, err := minio.New(conf.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.AccessKeyID, conf.SecretAccessKey, ""),
		Secure: conf.UseSSL,
		Region: conf.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init minio client: %w", err)
	}

	c := &Client{
		client:    client,
		bucket:    conf.Bucket,
		publicURL: conf.PublicURL,
		log:       log.Named("minio"),
	}

	if err := c.ensureBucket(ctx, conf.Region); err != nil {
		return nil, err
	}

	c.log.Info("minio client initialized",
		zap.String("endpoint", conf.Endpoint),
		zap.String("bucket", conf.Bucket))

	return c, nil
}

func (c *Client) ensureBucket(ctx context.Context, region string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	exists, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("error checking if bucket exists: %w", err)
	}
	if exists {
		return nil
	}

	if err := c.client.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("error creating bucket: %w", err)
	}
	c.log.Info("bucket created", zap.String("bucket", c.bucket))
	return nil
}

func (c *Client) Upload(ctx context.Context, key string, file *domain.FileUpload) (result *domain.UploadResult, err error) {
	if key == "" || file == nil {
		return nil, fmt.Errorf("key and file are required")
	}

	start := time.Now()
	defer func() { metrics.ObserveUpload(providerName, start, err) }()

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	_, err = c.client.PutObject(ctx, c.bucket, key,
		bytes.NewReader(file.Data), int64(len(file.Data)),
		minio.PutObjectOptions{ContentType: file.MIMEType})
	if err != nil {
		return nil, fmt.Errorf("failed to upload file to minio: %w", err)
	}

	return &domain.UploadResult{
		URL:  c.publicURL + "/" + key,
		Key:  key,
		Size: int64(len(file.Data)),
	}, nil
}

// Delete удаляет объект. Удаление отсутствующего объекта не ошибка.
func (c *Client) Delete(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err := c.client.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return fmt.Errorf("failed to delete object from minio: %w", err)
	}
	return nil
}
