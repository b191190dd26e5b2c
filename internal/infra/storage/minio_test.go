package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap/zaptest"
)

type fakePutter struct {
	bucket      string
	object      string
	contentType string
	body        []byte
	err         error
}

func (f *fakePutter) PutObject(_ context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.err != nil {
		return minio.UploadInfo{}, f.err
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.bucket = bucketName
	f.object = objectName
	f.contentType = opts.ContentType
	f.body = body
	return minio.UploadInfo{Bucket: bucketName, Key: objectName, Size: objectSize}, nil
}

func TestImageStorePutImage(t *testing.T) {
	putter := &fakePutter{}
	store := newImageStore(putter, "cad-images", "https://cdn.example.com/cad-images/", zaptest.NewLogger(t))

	payload := []byte("\x89PNG")
	if err := store.PutImage(context.Background(), "units/officer-1.png", "image/png", bytes.NewReader(payload), int64(len(payload))); err != nil {
		t.Fatalf("PutImage returned error: %v", err)
	}

	if putter.bucket != "cad-images" || putter.object != "units/officer-1.png" || putter.contentType != "image/png" {
		t.Fatalf("unexpected upload %+v", putter)
	}
	if !bytes.Equal(putter.body, payload) {
		t.Fatalf("body not forwarded")
	}

	if got := store.ImageURL("units/officer-1.png"); got != "https://cdn.example.com/cad-images/units/officer-1.png" {
		t.Fatalf("unexpected url %s", got)
	}
}

func TestImageStorePutImageWrapsError(t *testing.T) {
	boom := errors.New("bucket unavailable")
	store := newImageStore(&fakePutter{err: boom}, "cad-images", "http://localhost:9000/cad-images", nil)

	err := store.PutImage(context.Background(), "units/x.gif", "image/gif", bytes.NewReader(nil), 0)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
