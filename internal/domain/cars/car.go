package cars

import (
	"context"
	"errors"
	"strings"
	"time"

	"rentcar/internal/domain/shared/money"
)

var (
	ErrNotFound         = errors.New("cars: car not found")
	ErrOwnerRequired    = errors.New("cars: owner is required")
	ErrNameRequired     = errors.New("cars: name is required")
	ErrPlateRequired    = errors.New("cars: plate number is required")
	ErrCityRequired     = errors.New("cars: location city is required")
	ErrInvalidDailyRate = errors.New("cars: price per day must be positive")
	ErrNotOwned         = errors.New("cars: car not owned by user")
)

type CarID string
type OwnerID string

type Location struct {
	City    string `bson:"city"`
	Address string `bson:"address"`
}

type Car struct {
	ID          CarID
	OwnerID     OwnerID
	Name        string
	Brand       string
	Model       string
	Year        int
	PlateNumber string
	PricePerDay int64
	Currency    string
	Available   bool
	Location    Location
	Images      []string
	Documents   []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Snapshot is the audit copy of a car embedded into ledger postings; it is never re-joined
// with the live record so later edits or deletion do not rewrite history.
type Snapshot struct {
	CarID       string `json:"carId" bson:"car_id"`
	Name        string `json:"name" bson:"name"`
	Brand       string `json:"brand" bson:"brand"`
	Model       string `json:"model" bson:"model"`
	PlateNumber string `json:"plateNumber" bson:"plate_number"`
}

type Repository interface {
	ByID(ctx context.Context, id CarID) (*Car, error)
	Save(ctx context.Context, car *Car) error
	Delete(ctx context.Context, id CarID) error
	ListByOwner(ctx context.Context, owner OwnerID) ([]*Car, error)
	DistinctCities(ctx context.Context) ([]string, error)
}

type CreateParams struct {
	ID          CarID
	OwnerID     OwnerID
	Name        string
	Brand       string
	Model       string
	Year        int
	PlateNumber string
	PricePerDay int64
	Currency    string
	Location    Location
	Images      []string
	Documents   []string
	Now         time.Time
}

func NewCar(params CreateParams) (*Car, error) {
	if strings.TrimSpace(string(params.OwnerID)) == "" {
		return nil, ErrOwnerRequired
	}
	if strings.TrimSpace(params.Name) == "" {
		return nil, ErrNameRequired
	}
	if strings.TrimSpace(params.PlateNumber) == "" {
		return nil, ErrPlateRequired
	}
	if strings.TrimSpace(params.Location.City) == "" {
		return nil, ErrCityRequired
	}
	if params.PricePerDay <= 0 {
		return nil, ErrInvalidDailyRate
	}
	currency := strings.ToUpper(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = money.DefaultCurrency
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return &Car{
		ID:          params.ID,
		OwnerID:     params.OwnerID,
		Name:        strings.TrimSpace(params.Name),
		Brand:       strings.TrimSpace(params.Brand),
		Model:       strings.TrimSpace(params.Model),
		Year:        params.Year,
		PlateNumber: strings.ToUpper(strings.TrimSpace(params.PlateNumber)),
		PricePerDay: params.PricePerDay,
		Currency:    currency,
		Available:   true,
		Location: Location{
			City:    strings.TrimSpace(params.Location.City),
			Address: strings.TrimSpace(params.Location.Address),
		},
		Images:    cleanURLs(params.Images),
		Documents: cleanURLs(params.Documents),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (c *Car) OwnedBy(owner OwnerID) bool {
	return c != nil && c.OwnerID == owner
}

func (c *Car) SetAvailability(available bool, now time.Time) {
	c.Available = available
	c.UpdatedAt = now.UTC()
}

func (c *Car) AddImage(url string, now time.Time) {
	url = strings.TrimSpace(url)
	if url == "" {
		return
	}
	c.Images = append(c.Images, url)
	c.UpdatedAt = now.UTC()
}

func (c *Car) AddDocument(url string, now time.Time) {
	url = strings.TrimSpace(url)
	if url == "" {
		return
	}
	c.Documents = append(c.Documents, url)
	c.UpdatedAt = now.UTC()
}

type UpdateParams struct {
	Name        *string
	PricePerDay *int64
	Location    *Location
}

func (c *Car) Update(params UpdateParams, now time.Time) error {
	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			return ErrNameRequired
		}
		c.Name = name
	}
	if params.PricePerDay != nil {
		if *params.PricePerDay <= 0 {
			return ErrInvalidDailyRate
		}
		c.PricePerDay = *params.PricePerDay
	}
	if params.Location != nil {
		city := strings.TrimSpace(params.Location.City)
		if city == "" {
			return ErrCityRequired
		}
		c.Location = Location{City: city, Address: strings.TrimSpace(params.Location.Address)}
	}
	c.UpdatedAt = now.UTC()
	return nil
}

func (c *Car) DailyRate() money.Money {
	return money.Money{Amount: c.PricePerDay, Currency: c.Currency}
}

// BlobURLs lists every stored object that must be removed with the car.
func (c *Car) BlobURLs() []string {
	out := make([]string, 0, len(c.Images)+len(c.Documents))
	out = append(out, c.Images...)
	return append(out, c.Documents...)
}

func (c *Car) Snapshot() Snapshot {
	return Snapshot{
		CarID:       string(c.ID),
		Name:        c.Name,
		Brand:       c.Brand,
		Model:       c.Model,
		PlateNumber: c.PlateNumber,
	}
}

func cleanURLs(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
