package repository

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"portfolio_chat_service/pkg/database"
)

// AttachmentStorage object storage for message images
type AttachmentStorage interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	PublicURL(ctx context.Context, path string) (string, error)
}

// presignExpiry 最長 7 天
const presignExpiry = 7 * 24 * time.Hour

type minioAttachmentStorage struct {
	client        *database.MinIOClient
	publicBaseURL string
}

// NewMinIOAttachmentStorage create AttachmentStorage, empty publicBaseURL falls back to presigned urls
func NewMinIOAttachmentStorage(client *database.MinIOClient, publicBaseURL string) AttachmentStorage {
	return &minioAttachmentStorage{client: client, publicBaseURL: publicBaseURL}
}

func (s *minioAttachmentStorage) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	return s.client.UploadBytes(ctx, path, data, contentType)
}

func (s *minioAttachmentStorage) PublicURL(ctx context.Context, path string) (string, error) {
	if s.publicBaseURL != "" {
		u, err := url.JoinPath(s.publicBaseURL, path)
		if err != nil {
			return "", fmt.Errorf("public url for %s: %w", path, err)
		}
		return u, nil
	}
	return s.client.PresignGetURL(ctx, path, presignExpiry)
}
