package dto

import (
	"time"

	domaincars "rentcar/internal/domain/cars"
)

type LocationDTO struct {
	City    string `json:"city"`
	Address string `json:"address,omitempty"`
}

type CarDTO struct {
	ID          string      `json:"id"`
	OwnerID     string      `json:"ownerId"`
	Name        string      `json:"name"`
	Brand       string      `json:"brand,omitempty"`
	Model       string      `json:"model,omitempty"`
	Year        int         `json:"year,omitempty"`
	PlateNumber string      `json:"plateNumber"`
	PricePerDay int64       `json:"pricePerDay"`
	Currency    string      `json:"currency"`
	Available   bool        `json:"available"`
	Location    LocationDTO `json:"location"`
	Images      []string    `json:"images"`
	Documents   []string    `json:"documents"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

type CarCollection struct {
	Items []CarDTO `json:"items"`
}

func MapCar(c *domaincars.Car) CarDTO {
	return CarDTO{
		ID:          string(c.ID),
		OwnerID:     string(c.OwnerID),
		Name:        c.Name,
		Brand:       c.Brand,
		Model:       c.Model,
		Year:        c.Year,
		PlateNumber: c.PlateNumber,
		PricePerDay: c.PricePerDay,
		Currency:    c.Currency,
		Available:   c.Available,
		Location:    LocationDTO{City: c.Location.City, Address: c.Location.Address},
		Images:      nonNil(c.Images),
		Documents:   nonNil(c.Documents),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func MapCars(items []*domaincars.Car) []CarDTO {
	out := make([]CarDTO, 0, len(items))
	for _, c := range items {
		out = append(out, MapCar(c))
	}
	return out
}
