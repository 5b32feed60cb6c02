package policies

import (
	"context"
	"errors"
	"io"
)

var (
	ErrEmptyUpload            = errors.New("upload: file is empty")
	ErrBlobStorageUnavailable = errors.New("upload: blob storage unavailable")
)

// BlobStorage stores uploaded files and returns their public URL.
type BlobStorage interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// Upload is a file received from a client, ready to be forwarded to BlobStorage.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}
