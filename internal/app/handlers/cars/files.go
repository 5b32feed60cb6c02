package cars

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"rentcar/internal/app/access"
	"rentcar/internal/app/commands"
	"rentcar/internal/app/dto"
	handlersupport "rentcar/internal/app/handlers/support"
	"rentcar/internal/app/policies"
	domainuser "rentcar/internal/domain/user"
)

const uploadCarFileKey = "cars.photo"

type FileKind string

const (
	FileImage    FileKind = "image"
	FileDocument FileKind = "document"
)

// UploadCarFileCommand attaches a photo or a registration document to a car.
type UploadCarFileCommand struct {
	Actor access.Actor    `json:"-"`
	CarID string          `json:"carId" validate:"required"`
	Kind  FileKind        `json:"kind" validate:"omitempty,oneof=image document"`
	File  policies.Upload `json:"-"`
}

func (c UploadCarFileCommand) Key() string                     { return uploadCarFileKey }
func (c UploadCarFileCommand) Principal() access.Actor         { return c.Actor }
func (c UploadCarFileCommand) AllowedRoles() []domainuser.Role { return ownerRoles }

type UploadCarFileHandler struct {
	Blobs  policies.BlobStorage
	Clock  func() time.Time
	Logger *slog.Logger
}

func (h *UploadCarFileHandler) Handle(ctx context.Context, cmd UploadCarFileCommand) (result *CarResult, err error) {
	if h.Blobs == nil {
		return nil, policies.ErrBlobStorageUnavailable
	}
	if cmd.File.Body == nil {
		return nil, fmt.Errorf("%w: file is required", policies.ErrEmptyUpload)
	}
	unit, err := handlersupport.Unit(ctx)
	if err != nil {
		return nil, err
	}
	car, err := loadOwnedCar(ctx, unit, cmd.CarID, cmd.Actor)
	if err != nil {
		return nil, err
	}
	kind := cmd.Kind
	if kind == "" {
		kind = FileImage
	}
	key := fmt.Sprintf("cars/%s/%ss/%s%s", car.ID, kind, uuid.NewString(), strings.ToLower(path.Ext(cmd.File.Filename)))
	url, err := h.Blobs.Upload(ctx, key, cmd.File.Body, cmd.File.Size, cmd.File.ContentType)
	if err != nil {
		return nil, fmt.Errorf("upload car %s: %w", kind, err)
	}
	defer func() {
		if err != nil {
			if delErr := h.Blobs.Delete(ctx, url); delErr != nil && h.Logger != nil {
				h.Logger.Warn("orphaned car file not deleted", "url", url, "error", delErr)
			}
		}
	}()

	now := handlersupport.Now(h.Clock)
	if kind == FileDocument {
		car.AddDocument(url, now)
	} else {
		car.AddImage(url, now)
	}
	if err = unit.Cars().Save(ctx, car); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("car file added", "car_id", car.ID, "kind", kind, "object_key", key)
	}
	return &CarResult{Message: "File uploaded", Car: dto.MapCar(car)}, nil
}

var _ commands.Handler[UploadCarFileCommand, *CarResult] = (*UploadCarFileHandler)(nil)
