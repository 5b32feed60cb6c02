package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "rentcar/internal/domain/booking"
	domaincars "rentcar/internal/domain/cars"
	"rentcar/internal/domain/pricing"
	"rentcar/internal/domain/shared/daterange"
	"rentcar/internal/domain/shared/money"
)

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection(bookingsCollection)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if isNotFound(err) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// Save writes the booking only if the stored version still matches. New bookings are inserted
// and a clash on _id is reported as a conflict as well.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	doc.Version = b.Version + 1
	if b.Version == 0 {
		if _, err := r.col.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return domainbooking.ErrVersionConflict
			}
			return err
		}
		b.Version = doc.Version
		return nil
	}
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID, "version": b.Version}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domainbooking.ErrVersionConflict
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) HasActiveOverlap(ctx context.Context, carID domaincars.CarID, rng daterange.Range, excludeID domainbooking.BookingID) (bool, error) {
	filter := bson.M{
		"car_id":     string(carID),
		"status":     bson.M{"$in": statusValues(domainbooking.ActiveStatuses)},
		"pickup_at":  bson.M{"$lt": rng.DropoffAt.UTC()},
		"dropoff_at": bson.M{"$gt": rng.PickupAt.UTC()},
	}
	if excludeID != "" {
		filter["_id"] = bson.M{"$ne": string(excludeID)}
	}
	n, err := r.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *BookingRepository) List(ctx context.Context, filter domainbooking.Filter) ([]*domainbooking.Booking, int, error) {
	filter = filter.Normalized()
	query := bson.M{}
	if filter.RenterID != "" {
		query["renter_id"] = filter.RenterID
	}
	if filter.OwnerID != "" {
		query["owner_id"] = filter.OwnerID
	}
	if filter.CarID != "" {
		query["car_id"] = string(filter.CarID)
	}
	if len(filter.Statuses) > 0 {
		query["status"] = bson.M{"$in": statusValues(filter.Statuses)}
	}
	if filter.Approval != "" {
		query["completion.approval"] = string(filter.Approval)
	}
	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(filter.Offset)).
		SetLimit(int64(filter.Limit))
	out, err := r.find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	return out, int(total), nil
}

func (r *BookingRepository) ListForReconciliation(ctx context.Context, statuses []domainbooking.Status, after domainbooking.Cursor, limit int) ([]*domainbooking.Booking, error) {
	query := bson.M{"status": bson.M{"$in": statusValues(statuses)}}
	if !after.CreatedAt.IsZero() || after.ID != "" {
		at := after.CreatedAt.UTC()
		query["$or"] = bson.A{
			bson.M{"created_at": bson.M{"$gt": at}},
			bson.M{"created_at": at, "_id": bson.M{"$gt": string(after.ID)}},
		}
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, query, opts)
}

func (r *BookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domainbooking.Booking, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []bookingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainbooking.Booking, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toAggregate())
	}
	return out, nil
}

func statusValues(statuses []domainbooking.Status) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

type bookingDocument struct {
	ID            string              `bson:"_id"`
	CarID         string              `bson:"car_id"`
	RenterID      string              `bson:"renter_id"`
	OwnerID       string              `bson:"owner_id"`
	Car           domaincars.Snapshot `bson:"car"`
	PickupAt      time.Time           `bson:"pickup_at"`
	DropoffAt     time.Time           `bson:"dropoff_at"`
	PricePerDay   int64               `bson:"price_per_day"`
	TotalAmount   money.Money         `bson:"total_amount"`
	PricingMode   string              `bson:"pricing_mode"`
	Status        string              `bson:"status"`
	PaymentMethod string              `bson:"payment_method"`
	PaymentStatus string              `bson:"payment_status"`
	Completion    *completionDocument `bson:"completion,omitempty"`
	CancelledAt   *time.Time          `bson:"cancelled_at,omitempty"`
	CancelledBy   string              `bson:"cancelled_by,omitempty"`
	CreatedAt     time.Time           `bson:"created_at"`
	UpdatedAt     time.Time           `bson:"updated_at"`
	Version       int64               `bson:"version"`
}

type completionDocument struct {
	CarInspected  bool       `bson:"car_inspected"`
	Notes         string     `bson:"notes,omitempty"`
	ChallanAmount int64      `bson:"challan_amount"`
	TollAmount    int64      `bson:"toll_amount"`
	ChallanProofs []string   `bson:"challan_proofs,omitempty"`
	TollProofs    []string   `bson:"toll_proofs,omitempty"`
	CompletedAt   time.Time  `bson:"completed_at"`
	CompletedBy   string     `bson:"completed_by"`
	Approval      string     `bson:"approval"`
	ApprovedBy    string     `bson:"approved_by,omitempty"`
	ApprovedAt    *time.Time `bson:"approved_at,omitempty"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	doc := bookingDocument{
		ID:            string(b.ID),
		CarID:         string(b.CarID),
		RenterID:      b.RenterID,
		OwnerID:       b.OwnerID,
		Car:           b.Car,
		PickupAt:      b.Range.PickupAt.UTC(),
		DropoffAt:     b.Range.DropoffAt.UTC(),
		PricePerDay:   b.PricePerDay,
		TotalAmount:   b.TotalAmount,
		PricingMode:   string(b.PricingMode),
		Status:        string(b.Status),
		PaymentMethod: b.Payment.Method,
		PaymentStatus: string(b.Payment.Status),
		CancelledAt:   optionalTime(b.CancelledAt),
		CancelledBy:   b.CancelledBy,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
		Version:       b.Version,
	}
	if c := b.Completion; c != nil {
		doc.Completion = &completionDocument{
			CarInspected:  c.CarInspected,
			Notes:         c.Notes,
			ChallanAmount: c.ChallanAmount,
			TollAmount:    c.TollAmount,
			ChallanProofs: c.ChallanProofs,
			TollProofs:    c.TollProofs,
			CompletedAt:   c.CompletedAt,
			CompletedBy:   c.CompletedBy,
			Approval:      string(c.Approval),
			ApprovedBy:    c.ApprovedBy,
			ApprovedAt:    optionalTime(c.ApprovedAt),
		}
	}
	return doc
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	b := &domainbooking.Booking{
		ID:          domainbooking.BookingID(d.ID),
		CarID:       domaincars.CarID(d.CarID),
		RenterID:    d.RenterID,
		OwnerID:     d.OwnerID,
		Car:         d.Car,
		Range:       daterange.Range{PickupAt: d.PickupAt.UTC(), DropoffAt: d.DropoffAt.UTC()},
		PricePerDay: d.PricePerDay,
		TotalAmount: d.TotalAmount,
		PricingMode: pricing.Mode(d.PricingMode),
		Status:      domainbooking.Status(d.Status),
		Payment: domainbooking.Payment{
			Method: d.PaymentMethod,
			Status: domainbooking.PaymentStatus(d.PaymentStatus),
		},
		CancelledAt: derefTime(d.CancelledAt),
		CancelledBy: d.CancelledBy,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
		Version:     d.Version,
	}
	if c := d.Completion; c != nil {
		b.Completion = &domainbooking.Completion{
			CarInspected:  c.CarInspected,
			Notes:         c.Notes,
			ChallanAmount: c.ChallanAmount,
			TollAmount:    c.TollAmount,
			ChallanProofs: c.ChallanProofs,
			TollProofs:    c.TollProofs,
			CompletedAt:   c.CompletedAt.UTC(),
			CompletedBy:   c.CompletedBy,
			Approval:      domainbooking.Approval(c.Approval),
			ApprovedBy:    c.ApprovedBy,
			ApprovedAt:    derefTime(c.ApprovedAt),
		}
	}
	return b
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
