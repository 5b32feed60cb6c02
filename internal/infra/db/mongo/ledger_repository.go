package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domaincars "rentcar/internal/domain/cars"
	domainledger "rentcar/internal/domain/ledger"
	"rentcar/internal/domain/shared/money"
)

// LedgerRepository stores postings in the transactions collection.
type LedgerRepository struct {
	col *mongo.Collection
}

func NewLedgerRepository(db *mongo.Database) *LedgerRepository {
	return &LedgerRepository{col: db.Collection(transactionsCollection)}
}

// UpsertPair writes both rows in one ordered bulk write. Existing rows keep their id and
// creation time.
func (r *LedgerRepository) UpsertPair(ctx context.Context, pair domainledger.Pair) error {
	if !pair.Balanced() {
		return domainledger.ErrUnbalancedPair
	}
	models := make([]mongo.WriteModel, 0, 2)
	for _, row := range pair.Rows() {
		doc := newTransactionDocument(row)
		set := bson.M{
			"party_id":   doc.PartyID,
			"car":        doc.Car,
			"effect":     doc.Effect,
			"status":     doc.Status,
			"amount":     doc.Amount,
			"note":       doc.Note,
			"updated_at": doc.UpdatedAt,
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"booking_id": doc.BookingID, "party": doc.Party, "type": doc.Type}).
			SetUpdate(bson.M{
				"$set":         set,
				"$setOnInsert": bson.M{"_id": doc.ID, "created_at": doc.CreatedAt},
			}).
			SetUpsert(true))
	}
	_, err := r.col.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	return err
}

func (r *LedgerRepository) InsertPair(ctx context.Context, pair domainledger.Pair) error {
	if !pair.Balanced() {
		return domainledger.ErrUnbalancedPair
	}
	docs := make([]interface{}, 0, 2)
	for _, row := range pair.Rows() {
		docs = append(docs, newTransactionDocument(row))
	}
	_, err := r.col.InsertMany(ctx, docs)
	return err
}

func (r *LedgerRepository) MarkBookingCancelled(ctx context.Context, bookingID string, now time.Time) (int64, error) {
	res, err := r.col.UpdateMany(ctx, bson.M{"booking_id": bookingID}, bson.M{"$set": bson.M{
		"type":       string(domainledger.TypeCancel),
		"status":     string(domainledger.StatusRefunded),
		"updated_at": now.UTC(),
	}})
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

func (r *LedgerRepository) UpdatePairStatus(ctx context.Context, bookingID string, typ domainledger.Type, status domainledger.Status, now time.Time) (int64, error) {
	res, err := r.col.UpdateMany(ctx, bson.M{"booking_id": bookingID, "type": string(typ)}, bson.M{"$set": bson.M{
		"status":     string(status),
		"updated_at": now.UTC(),
	}})
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

func (r *LedgerRepository) ByBooking(ctx context.Context, bookingID string) ([]domainledger.Transaction, error) {
	return r.find(ctx, bson.M{"booking_id": bookingID}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
}

func (r *LedgerRepository) ListByParty(ctx context.Context, party domainledger.Party, partyID string) ([]domainledger.Transaction, error) {
	return r.find(ctx, bson.M{"party": string(party), "party_id": partyID}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (r *LedgerRepository) List(ctx context.Context, filter domainledger.Filter) ([]domainledger.Transaction, int, error) {
	filter = filter.Normalized()
	query := bson.M{}
	if filter.BookingID != "" {
		query["booking_id"] = filter.BookingID
	}
	if filter.Party != "" {
		query["party"] = string(filter.Party)
	}
	if filter.PartyID != "" {
		query["party_id"] = filter.PartyID
	}
	if filter.Type != "" {
		query["type"] = string(filter.Type)
	}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.find(ctx, query, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(filter.Offset)).
		SetLimit(int64(filter.Limit)))
	if err != nil {
		return nil, 0, err
	}
	return rows, int(total), nil
}

func (r *LedgerRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domainledger.Transaction, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []transactionDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domainledger.Transaction, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toDomain())
	}
	return out, nil
}

type transactionDocument struct {
	ID        string              `bson:"_id"`
	BookingID string              `bson:"booking_id"`
	Party     string              `bson:"party"`
	PartyID   string              `bson:"party_id"`
	Car       domaincars.Snapshot `bson:"car"`
	Type      string              `bson:"type"`
	Effect    string              `bson:"effect"`
	Status    string              `bson:"status"`
	Amount    money.Money         `bson:"amount"`
	Note      string              `bson:"note,omitempty"`
	CreatedAt time.Time           `bson:"created_at"`
	UpdatedAt time.Time           `bson:"updated_at"`
}

func newTransactionDocument(t domainledger.Transaction) transactionDocument {
	return transactionDocument{
		ID:        string(t.ID),
		BookingID: t.BookingID,
		Party:     string(t.Party),
		PartyID:   t.PartyID,
		Car:       t.Car,
		Type:      string(t.Type),
		Effect:    string(t.Effect),
		Status:    string(t.Status),
		Amount:    t.Amount,
		Note:      t.Note,
		CreatedAt: t.CreatedAt.UTC(),
		UpdatedAt: t.UpdatedAt.UTC(),
	}
}

func (d transactionDocument) toDomain() domainledger.Transaction {
	return domainledger.Transaction{
		ID:        domainledger.TransactionID(d.ID),
		BookingID: d.BookingID,
		Party:     domainledger.Party(d.Party),
		PartyID:   d.PartyID,
		Car:       d.Car,
		Type:      domainledger.Type(d.Type),
		Effect:    domainledger.Effect(d.Effect),
		Status:    domainledger.Status(d.Status),
		Amount:    d.Amount,
		Note:      d.Note,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

var _ domainledger.Repository = (*LedgerRepository)(nil)
