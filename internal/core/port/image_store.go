package port

import (
	"context"
	"io"
)

// ImageStore persists uploaded images and resolves their public URLs.
type ImageStore interface {
	PutImage(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	ImageURL(key string) string
}
