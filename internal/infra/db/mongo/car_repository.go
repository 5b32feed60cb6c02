package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domaincars "rentcar/internal/domain/cars"
)

type CarRepository struct {
	col *mongo.Collection
}

func NewCarRepository(db *mongo.Database) *CarRepository {
	return &CarRepository{col: db.Collection(carsCollection)}
}

func (r *CarRepository) ByID(ctx context.Context, id domaincars.CarID) (*domaincars.Car, error) {
	var doc carDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if isNotFound(err) {
			return nil, domaincars.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *CarRepository) Save(ctx context.Context, car *domaincars.Car) error {
	doc := newCarDocument(car)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (r *CarRepository) Delete(ctx context.Context, id domaincars.CarID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domaincars.ErrNotFound
	}
	return nil
}

func (r *CarRepository) ListByOwner(ctx context.Context, owner domaincars.OwnerID) ([]*domaincars.Car, error) {
	cur, err := r.col.Find(ctx, bson.M{"owner_id": string(owner)}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var docs []carDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domaincars.Car, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toAggregate())
	}
	return out, nil
}

func (r *CarRepository) DistinctCities(ctx context.Context) ([]string, error) {
	values, err := r.col.Distinct(ctx, "location.city", bson.M{})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		city := strings.TrimSpace(fmt.Sprint(v))
		key := strings.ToLower(city)
		if city == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, city)
	}
	return out, nil
}

type carDocument struct {
	ID          string              `bson:"_id"`
	OwnerID     string              `bson:"owner_id"`
	Name        string              `bson:"name"`
	Brand       string              `bson:"brand"`
	Model       string              `bson:"model"`
	Year        int                 `bson:"year"`
	PlateNumber string              `bson:"plate_number"`
	PricePerDay int64               `bson:"price_per_day"`
	Currency    string              `bson:"currency"`
	Available   bool                `bson:"available"`
	Location    domaincars.Location `bson:"location"`
	Images      []string            `bson:"images"`
	Documents   []string            `bson:"documents"`
	CreatedAt   time.Time           `bson:"created_at"`
	UpdatedAt   time.Time           `bson:"updated_at"`
}

func newCarDocument(c *domaincars.Car) carDocument {
	return carDocument{
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
		Location:    c.Location,
		Images:      c.Images,
		Documents:   c.Documents,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func (d carDocument) toAggregate() *domaincars.Car {
	return &domaincars.Car{
		ID:          domaincars.CarID(d.ID),
		OwnerID:     domaincars.OwnerID(d.OwnerID),
		Name:        d.Name,
		Brand:       d.Brand,
		Model:       d.Model,
		Year:        d.Year,
		PlateNumber: d.PlateNumber,
		PricePerDay: d.PricePerDay,
		Currency:    d.Currency,
		Available:   d.Available,
		Location:    d.Location,
		Images:      d.Images,
		Documents:   d.Documents,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

var _ domaincars.Repository = (*CarRepository)(nil)
