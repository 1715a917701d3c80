package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"storagedrive/internal/domain"
	"storagedrive/internal/metrics"
)

const (
	defaultTimeout = 30 * time.Second
	uploadTimeout  = 10 * time.Minute

	providerName = "s3"
)

// Client предоставляет методы для работы с S3-совместимым хранилищем
type Client struct {
	client    *s3.Client
	bucket    string
	publicURL string
	log       *zap.Logger
}

// NewClient создает новый экземпляр клиента S3 и проверяет доступ к бакету
func NewClient(ctx context.Context, conf *Config, log *zap.Logger) (*Client, error) {
	if conf == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if err := conf.validate(); err != nil {
		return nil, fmt.Errorf("missing required configuration: %w", err)
	}

	creds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
		conf.AccessKeyID,
		conf.SecretAccessKey,
		"",
	))

	client := s3.New(s3.Options{
		BaseEndpoint:     aws.String(conf.Endpoint),
		Region:           conf.Region,
		Credentials:      creds,
		UsePathStyle:     conf.UsePathStyle,
		RetryMode:        aws.RetryModeAdaptive,
		RetryMaxAttempts: 3,
	})

	s3Client := &Client{
		client:    client,
		bucket:    conf.Bucket,
		publicURL: strings.TrimSuffix(conf.PublicURL, "/"),
		log:       log.Named("s3"),
	}

	// Проверяем подключение к бакету
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := s3Client.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(conf.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to access bucket %s: %w", conf.Bucket, err)
	}

	return s3Client, nil
}

// Upload загружает файл в S3 и возвращает его публичный адрес
func (c *Client) Upload(ctx context.Context, key string, file *domain.FileUpload) (result *domain.UploadResult, err error) {
	if key == "" || file == nil {
		return nil, fmt.Errorf("key and file are required")
	}

	start := time.Now()
	defer func() { metrics.ObserveUpload(providerName, start, err) }()

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	input := &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(file.Data),
		ContentLength: aws.Int64(int64(len(file.Data))),
	}
	if file.MIMEType != "" {
		input.ContentType = aws.String(file.MIMEType)
	}

	if _, err = c.client.PutObject(ctx, input); err != nil {
		return nil, fmt.Errorf("failed to upload file to S3: %w", err)
	}

	c.log.Debug("object uploaded", zap.String("key", key), zap.Int("size", len(file.Data)))

	return &domain.UploadResult{
		URL:  c.ObjectURL(key),
		Key:  key,
		Size: int64(len(file.Data)),
	}, nil
}

// Delete удаляет объект из S3. Отсутствующий объект считается удаленным.
func (c *Client) Delete(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var (
			nf  *types.NotFound
			nsk *types.NoSuchKey
		)
		if errors.As(err, &nf) || errors.As(err, &nsk) {
			return nil
		}
		return fmt.Errorf("failed to check object existence: %w", err)
	}

	_, err = c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}

	return nil
}

func (c *Client) ObjectURL(key string) string {
	return c.publicURL + "/" + key
}
