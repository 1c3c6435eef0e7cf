package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"thooimai-go/internal/errs"
	"thooimai-go/internal/logger"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	// PublicBase overrides the endpoint when building public URLs.
	PublicBase string
}

// MinioStore writes to any S3-compatible bucket. The client is shared across requests.
type MinioStore struct {
	cfg    MinioConfig
	client *minio.Client
	log    *logger.Logger
}

func NewMinioStore(cfg MinioConfig, log *logger.Logger) (*MinioStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("minio endpoint and bucket must be set")
	}
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	if log == nil {
		log = logger.Discard()
	}
	return &MinioStore{cfg: cfg, client: cli, log: log.Component("storage").With("bucket", cfg.Bucket)}, nil
}

func (m *MinioStore) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	_, err := m.client.PutObject(ctx, m.cfg.Bucket, path, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		m.log.WithError(err).WithField("path", path).Error("upload failed")
		return "", &errs.StorageError{Path: path, Err: err}
	}
	url := m.PublicURL(path)
	m.log.WithField("path", path).WithField("bytes", len(data)).Debug("object uploaded")
	return url, nil
}

// PublicURL builds the externally resolvable address of key.
func (m *MinioStore) PublicURL(key string) string {
	return PublicURL(m.cfg, key)
}

func PublicURL(cfg MinioConfig, key string) string {
	key = strings.TrimLeft(key, "/")
	if cfg.PublicBase != "" {
		return strings.TrimRight(cfg.PublicBase, "/") + "/" + key
	}
	scheme := "http://"
	if cfg.UseSSL {
		scheme = "https://"
	}
	return scheme + cfg.Endpoint + "/" + cfg.Bucket + "/" + key
}

// EnsureBucket creates the bucket when missing and makes its objects publicly readable.
func (m *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("bucket exists: %w", err)
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, m.cfg.Bucket, minio.MakeBucketOptions{Region: m.cfg.Region}); err != nil {
			return fmt.Errorf("make bucket: %w", err)
		}
		m.log.Info("bucket created")
	}
	if err := m.client.SetBucketPolicy(ctx, m.cfg.Bucket, PublicReadPolicy(m.cfg.Bucket)); err != nil {
		return fmt.Errorf("set bucket policy: %w", err)
	}
	return nil
}

func PublicReadPolicy(bucket string) string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, bucket)
}
