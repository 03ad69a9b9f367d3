package utils

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ahmadqo/event-certificate-service/internal/config"
	"github.com/ahmadqo/event-certificate-service/internal/model"
	"github.com/cenkalti/backoff/v5"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// StorageService arsip artefak sertifikat di MinIO.
// Key bersifat content-addressed: certificates/{certificateId}/{format}/{sha256}{ext}
type StorageService struct {
	client *minio.Client
	bucket string
}

// Allowed file types untuk upload tanda tangan
var AllowedSignatureTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

const MaxFileSize = 2 * 1024 * 1024 // 2 MB

const putMaxTries = 3

func NewStorageService(cfg *config.MinIOConfig) (*StorageService, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.User, cfg.Password, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	// Pastikan bucket ada
	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &StorageService{client: client, bucket: cfg.Bucket}, nil
}

// ArtifactKey menghitung object key untuk artefak. Isi yang sama menghasilkan key yang sama.
func ArtifactKey(certificateID string, format model.ArtifactFormat, data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("certificates/%s/%s/%s%s",
		certificateID, format, hex.EncodeToString(sum[:]), format.Extension())
}

// PutArtifact upload artefak ke MinIO, dilewati jika object dengan hash yang sama sudah ada
func (s *StorageService) PutArtifact(ctx context.Context, certificateID string, format model.ArtifactFormat, data []byte) (string, error) {
	key := ArtifactKey(certificateID, format, data)

	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err == nil {
		return key, nil
	}

	_, err := backoff.Retry(ctx, func() (minio.UploadInfo, error) {
		return s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
			ContentType: format.ContentType(),
		})
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(putMaxTries),
		backoff.WithMaxElapsedTime(30*time.Second),
	)
	if err != nil {
		return "", fmt.Errorf("gagal upload artefak %s: %w", key, err)
	}

	return key, nil
}

// ValidateUpload cek tipe dan ukuran file tanda tangan
func ValidateUpload(contentType string, data []byte) error {
	if _, ok := AllowedSignatureTypes[contentType]; !ok {
		return fmt.Errorf("tipe file tidak diizinkan: %s", contentType)
	}
	if len(data) == 0 {
		return fmt.Errorf("file kosong")
	}
	if len(data) > MaxFileSize {
		return fmt.Errorf("ukuran file melebihi batas maksimal 2MB")
	}
	return nil
}
