// Package storage héberge les images produit dans MinIO.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

var (
	ErrUnavailable    = errors.New("image storage unavailable")
	ErrForeignURL     = errors.New("url does not belong to the image bucket")
	ErrUnsupportedExt = errors.New("unsupported image type")
)

var allowedExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

type ImageStore struct {
	client *minio.Client
	bucket string
	base   string
}

func NewImageStore(client *minio.Client, bucket string, useSSL bool) *ImageStore {
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	base := ""
	if client != nil {
		base = fmt.Sprintf("%s://%s/%s/", scheme, client.EndpointURL().Host, bucket)
	}
	return &ImageStore{client: client, bucket: bucket, base: base}
}

// ObjectKey construit la clé d'une nouvelle image d'un produit.
func ObjectKey(productID, filename string) (string, string, error) {
	ext := strings.ToLower(path.Ext(filename))
	contentType, ok := allowedExt[ext]
	if !ok {
		return "", "", ErrUnsupportedExt
	}
	return fmt.Sprintf("products/%s/%s%s", productID, uuid.NewString(), ext), contentType, nil
}

// Upload envoie l'image et retourne son URL publique.
func (s *ImageStore) Upload(ctx context.Context, productID, filename string, r io.Reader, size int64) (string, error) {
	if s == nil || s.client == nil {
		return "", ErrUnavailable
	}
	key, contentType, err := ObjectKey(productID, filename)
	if err != nil {
		return "", err
	}
	_, err = s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return s.base + key, nil
}

// Remove supprime l'objet désigné par une URL retournée par Upload.
func (s *ImageStore) Remove(ctx context.Context, imageURL string) error {
	if s == nil || s.client == nil {
		return ErrUnavailable
	}
	key, err := s.keyOf(imageURL)
	if err != nil {
		return err
	}
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

func (s *ImageStore) keyOf(imageURL string) (string, error) {
	if s.base == "" || !strings.HasPrefix(imageURL, s.base) {
		return "", ErrForeignURL
	}
	return strings.TrimPrefix(imageURL, s.base), nil
}
