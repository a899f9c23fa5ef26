package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/kendall-kelly/home-services-api/utils"
)

// DocumentService validates provider verification documents and keeps them in object storage
type DocumentService struct {
	storage ObjectStorage
	now     func() time.Time
}

func NewDocumentService(storage ObjectStorage) *DocumentService {
	return &DocumentService{storage: storage, now: time.Now}
}

// Upload validates fileHeader and stores it, returning the storage key
func (s *DocumentService) Upload(ctx context.Context, providerID, kind string, fileHeader *multipart.FileHeader) (string, error) {
	contentType, err := utils.ValidateDocumentFile(fileHeader)
	if err != nil {
		return "", err
	}

	content, err := utils.ReadUploadedFile(fileHeader)
	if err != nil {
		return "", err
	}

	key := utils.DocumentKey(providerID, kind, fileHeader.Filename, s.now())
	if err := s.storage.PutObject(ctx, key, contentType, content); err != nil {
		return "", fmt.Errorf("failed to upload document: %w", err)
	}
	return key, nil
}

// URL returns a temporary link to a stored document
func (s *DocumentService) URL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	url, err := s.storage.PresignedURL(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to generate document URL: %w", err)
	}
	return url, nil
}

// Delete removes a stored document
func (s *DocumentService) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := s.storage.DeleteObject(ctx, key); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
