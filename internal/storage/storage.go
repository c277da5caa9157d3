// Package storage uploads chat attachments to a MinIO bucket and
// hands out presigned download links.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"github.com/kerucko/taskboard/internal/config"
)

type Storage struct {
	client *minio.Client
	// presigned URLs are signed against the public endpoint so the
	// browser can reach them; uploads go through the internal one
	public *minio.Client
	cfg    config.MinioConfig
	log    zerolog.Logger
}

type UploadResult struct {
	FileName string `json:"fileName"`
	FileURL  string `json:"fileUrl"`
	FileSize int64  `json:"fileSize"`
	MimeType string `json:"mimeType"`
}

func New(ctx context.Context, cfg config.MinioConfig, log zerolog.Logger) (*Storage, error) {
	creds := credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	public := client
	if cfg.PublicEndpoint != "" && cfg.PublicEndpoint != cfg.Endpoint {
		public, err = minio.New(cfg.PublicEndpoint, &minio.Options{
			Creds:  creds,
			Secure: cfg.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("create public minio client: %w", err)
		}
	}

	s := &Storage{client: client, public: public, cfg: cfg, log: log}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}

	log.Info().Str("bucket", cfg.Bucket).Msg("successful minio connection")
	return s, nil
}

func (s *Storage) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

// Upload streams the file into the bucket under a fresh object name
// and returns metadata including a presigned GET link.
func (s *Storage) Upload(ctx context.Context, r io.Reader, originalName, mimeType string, size int64) (*UploadResult, error) {
	ext := filepath.Ext(originalName)
	if ext == "" {
		ext = ".bin"
	}
	objectName := "chat/" + uuid.NewString() + strings.ToLower(ext)

	_, err := s.client.PutObject(ctx, s.cfg.Bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType: mimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}

	url, err := s.FileURL(ctx, objectName)
	if err != nil {
		return nil, err
	}

	s.log.Debug().Str("object", objectName).Int64("size", size).Msg("file uploaded")
	return &UploadResult{
		FileName: objectName,
		FileURL:  url,
		FileSize: size,
		MimeType: mimeType,
	}, nil
}

func (s *Storage) FileURL(ctx context.Context, objectName string) (string, error) {
	url, err := s.public.PresignedGetObject(ctx, s.cfg.Bucket, objectName, s.cfg.PresignTTL, nil)
	if err != nil {
		return "", fmt.Errorf("presign object: %w", err)
	}
	return url.String(), nil
}
