package ginserver

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	"rentcar/internal/app/policies"
)

const (
	maxUploadSizeBytes int64 = 10 * 1024 * 1024
	maxProofFiles            = 10
)

var errUnsupportedType = errors.New("unsupported file type")

// readUpload buffers one multipart file so its real content type can be sniffed.
func readUpload(fh *multipart.FileHeader, allowDocuments bool) (policies.Upload, error) {
	if fh.Size <= 0 {
		return policies.Upload{}, policies.ErrEmptyUpload
	}
	if fh.Size > maxUploadSizeBytes {
		return policies.Upload{}, fmt.Errorf("file too large (max %d MB)", maxUploadSizeBytes/1024/1024)
	}
	file, err := fh.Open()
	if err != nil {
		return policies.Upload{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSizeBytes+1))
	if err != nil {
		return policies.Upload{}, fmt.Errorf("cannot read file: %w", err)
	}
	if len(data) == 0 {
		return policies.Upload{}, policies.ErrEmptyUpload
	}
	if int64(len(data)) > maxUploadSizeBytes {
		return policies.Upload{}, fmt.Errorf("file too large (max %d MB)", maxUploadSizeBytes/1024/1024)
	}
	contentType := http.DetectContentType(data)
	if !allowedType(contentType, allowDocuments) {
		return policies.Upload{}, fmt.Errorf("%w: %s", errUnsupportedType, contentType)
	}
	return policies.Upload{
		Filename:    fh.Filename,
		ContentType: contentType,
		Size:        int64(len(data)),
		Body:        bytes.NewReader(data),
	}, nil
}

func readUploads(c *gin.Context, field string, allowDocuments bool) ([]policies.Upload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}
	headers := form.File[field]
	if len(headers) > maxProofFiles {
		return nil, fmt.Errorf("at most %d files allowed in %s", maxProofFiles, field)
	}
	out := make([]policies.Upload, 0, len(headers))
	for _, fh := range headers {
		up, err := readUpload(fh, allowDocuments)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		out = append(out, up)
	}
	return out, nil
}

func allowedType(contentType string, allowDocuments bool) bool {
	switch {
	case strings.HasPrefix(contentType, "image/jpeg"),
		strings.HasPrefix(contentType, "image/png"),
		strings.HasPrefix(contentType, "image/webp"):
		return true
	case allowDocuments && strings.HasPrefix(contentType, "application/pdf"):
		return true
	default:
		return false
	}
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

func parseIntWithDefault(raw string, def int) int {
	if raw = strings.TrimSpace(raw); raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func parseOptionalBool(raw string) *bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	return &v
}

// pageParams accepts either offset or a 1-based page.
func pageParams(c *gin.Context, defLimit int) (limit, offset int) {
	limit = parseIntWithDefault(c.Query("limit"), defLimit)
	offset = parseIntWithDefault(c.Query("offset"), 0)
	if page := parseIntWithDefault(c.Query("page"), 0); offset == 0 && page > 1 && limit > 0 {
		offset = (page - 1) * limit
	}
	return limit, offset
}
