package cars

import (
	"context"
	"sort"
	"strings"

	"rentcar/internal/app/access"
	"rentcar/internal/app/dto"
	handlersupport "rentcar/internal/app/handlers/support"
	"rentcar/internal/app/queries"
	"rentcar/internal/app/uow"
	domaincars "rentcar/internal/domain/cars"
	domainuser "rentcar/internal/domain/user"
)

const (
	getCarKey     = "cars.get"
	listMineKey   = "cars.list_mine"
	listCitiesKey = "cars.cities"
)

type GetCarQuery struct {
	CarID string `json:"carId" validate:"required"`
}

func (q GetCarQuery) Key() string { return getCarKey }

type GetCarHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetCarHandler) Handle(ctx context.Context, q GetCarQuery) (dto.CarDTO, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.CarDTO{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	car, err := unit.Cars().ByID(execCtx, domaincars.CarID(strings.TrimSpace(q.CarID)))
	if err != nil {
		return dto.CarDTO{}, err
	}
	return dto.MapCar(car), nil
}

type ListMyCarsQuery struct {
	Actor access.Actor `json:"-"`
}

func (q ListMyCarsQuery) Key() string                     { return listMineKey }
func (q ListMyCarsQuery) Principal() access.Actor         { return q.Actor }
func (q ListMyCarsQuery) AllowedRoles() []domainuser.Role { return ownerRoles }

type ListMyCarsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListMyCarsHandler) Handle(ctx context.Context, q ListMyCarsQuery) (dto.CarCollection, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.CarCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	items, err := unit.Cars().ListByOwner(execCtx, domaincars.OwnerID(q.Actor.UserID))
	if err != nil {
		return dto.CarCollection{}, err
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return dto.CarCollection{Items: dto.MapCars(items)}, nil
}

type ListCitiesQuery struct{}

func (q ListCitiesQuery) Key() string { return listCitiesKey }

type CitiesResult struct {
	Cities []string `json:"cities"`
}

type ListCitiesHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListCitiesHandler) Handle(ctx context.Context, _ ListCitiesQuery) (CitiesResult, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return CitiesResult{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	cities, err := unit.Cars().DistinctCities(execCtx)
	if err != nil {
		return CitiesResult{}, err
	}
	if cities == nil {
		cities = []string{}
	}
	sort.Strings(cities)
	return CitiesResult{Cities: cities}, nil
}

var _ queries.Handler[GetCarQuery, dto.CarDTO] = (*GetCarHandler)(nil)
var _ queries.Handler[ListMyCarsQuery, dto.CarCollection] = (*ListMyCarsHandler)(nil)
var _ queries.Handler[ListCitiesQuery, CitiesResult] = (*ListCitiesHandler)(nil)
