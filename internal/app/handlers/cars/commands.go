package cars

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"rentcar/internal/app/access"
	"rentcar/internal/app/commands"
	"rentcar/internal/app/dto"
	handlersupport "rentcar/internal/app/handlers/support"
	"rentcar/internal/app/policies"
	"rentcar/internal/app/uow"
	domaincars "rentcar/internal/domain/cars"
	domainuser "rentcar/internal/domain/user"
)

const (
	createCarKey       = "cars.create"
	updateCarKey       = "cars.update"
	setAvailabilityKey = "cars.availability"
	deleteCarKey       = "cars.delete"
)

var ownerRoles = []domainuser.Role{domainuser.RoleOwner, domainuser.RoleFleet, domainuser.RoleAdmin}

type LocationPayload struct {
	City    string `json:"city" validate:"required,max=100"`
	Address string `json:"address" validate:"max=300"`
}

type CreateCarCommand struct {
	Actor       access.Actor    `json:"-"`
	Name        string          `json:"name" validate:"required,max=120"`
	Brand       string          `json:"brand" validate:"max=60"`
	Model       string          `json:"model" validate:"max=60"`
	Year        int             `json:"year" validate:"omitempty,gte=1950,lte=2100"`
	PlateNumber string          `json:"plateNumber" validate:"required,max=20"`
	PricePerDay int64           `json:"pricePerDay" validate:"required,gt=0"`
	Location    LocationPayload `json:"location"`
}

func (c CreateCarCommand) Key() string                     { return createCarKey }
func (c CreateCarCommand) Principal() access.Actor         { return c.Actor }
func (c CreateCarCommand) AllowedRoles() []domainuser.Role { return ownerRoles }

type CarResult struct {
	Message string     `json:"message"`
	Car     dto.CarDTO `json:"car"`
}

type CreateCarHandler struct {
	Currency string
	Clock    func() time.Time
	Logger   *slog.Logger
}

func (h *CreateCarHandler) Handle(ctx context.Context, cmd CreateCarCommand) (*CarResult, error) {
	unit, err := handlersupport.Unit(ctx)
	if err != nil {
		return nil, err
	}
	owner, err := unit.Users().ByID(ctx, domainuser.ID(cmd.Actor.UserID))
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, access.ErrUnauthenticated
		}
		return nil, err
	}
	if owner.Blocked {
		return nil, access.ErrUserBlocked
	}
	if !owner.CanOwnCars() {
		return nil, access.ErrRoleNotAllowed
	}
	car, err := domaincars.NewCar(domaincars.CreateParams{
		ID:          domaincars.CarID(uuid.NewString()),
		OwnerID:     domaincars.OwnerID(owner.ID),
		Name:        cmd.Name,
		Brand:       cmd.Brand,
		Model:       cmd.Model,
		Year:        cmd.Year,
		PlateNumber: cmd.PlateNumber,
		PricePerDay: cmd.PricePerDay,
		Currency:    h.Currency,
		Location:    domaincars.Location{City: cmd.Location.City, Address: cmd.Location.Address},
		Now:         handlersupport.Now(h.Clock),
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Cars().Save(ctx, car); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("car created", "car_id", car.ID, "owner_id", car.OwnerID, "city", car.Location.City)
	}
	return &CarResult{Message: "Car created", Car: dto.MapCar(car)}, nil
}

// UpdateCarCommand changes listing details. Nil fields are left as they are.
type UpdateCarCommand struct {
	Actor       access.Actor     `json:"-"`
	CarID       string           `json:"carId" validate:"required"`
	Name        *string          `json:"name" validate:"omitempty,max=120"`
	PricePerDay *int64           `json:"pricePerDay" validate:"omitempty,gt=0"`
	Location    *LocationPayload `json:"location"`
}

func (c UpdateCarCommand) Key() string                     { return updateCarKey }
func (c UpdateCarCommand) Principal() access.Actor         { return c.Actor }
func (c UpdateCarCommand) AllowedRoles() []domainuser.Role { return ownerRoles }

type UpdateCarHandler struct {
	Clock  func() time.Time
	Logger *slog.Logger
}

func (h *UpdateCarHandler) Handle(ctx context.Context, cmd UpdateCarCommand) (*CarResult, error) {
	unit, err := handlersupport.Unit(ctx)
	if err != nil {
		return nil, err
	}
	car, err := loadOwnedCar(ctx, unit, cmd.CarID, cmd.Actor)
	if err != nil {
		return nil, err
	}
	params := domaincars.UpdateParams{Name: cmd.Name, PricePerDay: cmd.PricePerDay}
	if cmd.Location != nil {
		params.Location = &domaincars.Location{City: cmd.Location.City, Address: cmd.Location.Address}
	}
	if err := car.Update(params, handlersupport.Now(h.Clock)); err != nil {
		return nil, err
	}
	if err := unit.Cars().Save(ctx, car); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("car updated", "car_id", car.ID, "price_per_day", car.PricePerDay)
	}
	return &CarResult{Message: "Car updated", Car: dto.MapCar(car)}, nil
}

type SetAvailabilityCommand struct {
	Actor     access.Actor `json:"-"`
	CarID     string       `json:"carId" validate:"required"`
	Available *bool        `json:"available" validate:"required"`
}

func (c SetAvailabilityCommand) Key() string                     { return setAvailabilityKey }
func (c SetAvailabilityCommand) Principal() access.Actor         { return c.Actor }
func (c SetAvailabilityCommand) AllowedRoles() []domainuser.Role { return ownerRoles }

// LockKey shares the booking lock so a car cannot be withdrawn halfway through a booking.
func (c SetAvailabilityCommand) LockKey() string { return "car:" + strings.TrimSpace(c.CarID) }

type SetAvailabilityHandler struct {
	Clock  func() time.Time
	Logger *slog.Logger
}

func (h *SetAvailabilityHandler) Handle(ctx context.Context, cmd SetAvailabilityCommand) (*CarResult, error) {
	unit, err := handlersupport.Unit(ctx)
	if err != nil {
		return nil, err
	}
	car, err := loadOwnedCar(ctx, unit, cmd.CarID, cmd.Actor)
	if err != nil {
		return nil, err
	}
	car.SetAvailability(*cmd.Available, handlersupport.Now(h.Clock))
	if err := unit.Cars().Save(ctx, car); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("car availability changed", "car_id", car.ID, "available", car.Available)
	}
	message := "Car is now unavailable"
	if car.Available {
		message = "Car is now available"
	}
	return &CarResult{Message: message, Car: dto.MapCar(car)}, nil
}

type DeleteCarCommand struct {
	Actor access.Actor `json:"-"`
	CarID string       `json:"carId" validate:"required"`
}

func (c DeleteCarCommand) Key() string                     { return deleteCarKey }
func (c DeleteCarCommand) Principal() access.Actor         { return c.Actor }
func (c DeleteCarCommand) AllowedRoles() []domainuser.Role { return ownerRoles }
func (c DeleteCarCommand) LockKey() string                 { return "car:" + strings.TrimSpace(c.CarID) }

type DeleteResult struct {
	Message string `json:"message"`
	CarID   string `json:"carId"`
}

// DeleteCarHandler removes the car and, once that has committed, its stored files.
// Bookings keep their own snapshot of the car.
type DeleteCarHandler struct {
	Blobs  policies.BlobStorage
	Logger *slog.Logger
}

func (h *DeleteCarHandler) Handle(ctx context.Context, cmd DeleteCarCommand) (*DeleteResult, error) {
	unit, err := handlersupport.Unit(ctx)
	if err != nil {
		return nil, err
	}
	car, err := loadOwnedCar(ctx, unit, cmd.CarID, cmd.Actor)
	if err != nil {
		return nil, err
	}
	if err := unit.Cars().Delete(ctx, car.ID); err != nil {
		return nil, err
	}
	urls := car.BlobURLs()
	if h.Blobs != nil && len(urls) > 0 {
		uow.AfterCommit(ctx, func(ctx context.Context) {
			h.removeBlobs(ctx, car.ID, urls)
		})
	}
	if h.Logger != nil {
		h.Logger.Info("car deleted", "car_id", car.ID, "owner_id", car.OwnerID, "files", len(urls))
	}
	return &DeleteResult{Message: "Car deleted", CarID: string(car.ID)}, nil
}

func (h *DeleteCarHandler) removeBlobs(ctx context.Context, id domaincars.CarID, urls []string) {
	for _, url := range urls {
		if err := h.Blobs.Delete(ctx, url); err != nil && h.Logger != nil {
			h.Logger.Warn("car file not deleted", "car_id", id, "url", url, "error", err)
		}
	}
}

func loadOwnedCar(ctx context.Context, unit uow.UnitOfWork, id string, actor access.Actor) (*domaincars.Car, error) {
	car, err := unit.Cars().ByID(ctx, domaincars.CarID(strings.TrimSpace(id)))
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !car.OwnedBy(domaincars.OwnerID(actor.UserID)) {
		return nil, access.ErrNotCarOwner
	}
	return car, nil
}

var _ commands.Handler[CreateCarCommand, *CarResult] = (*CreateCarHandler)(nil)
var _ commands.Handler[UpdateCarCommand, *CarResult] = (*UpdateCarHandler)(nil)
var _ commands.Handler[SetAvailabilityCommand, *CarResult] = (*SetAvailabilityHandler)(nil)
var _ commands.Handler[DeleteCarCommand, *DeleteResult] = (*DeleteCarHandler)(nil)
