package mongo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rentcar/internal/app/middleware"
)

// KeyedLocker is a lease lock shared by every replica. A lease outlives a crashed holder by
// at most Lease; the TTL index only garbage-collects, takeover happens on expires_at.
type KeyedLocker struct {
	col   *mongo.Collection
	Lease time.Duration
	Poll  time.Duration
}

func NewKeyedLocker(db *mongo.Database, lease time.Duration) *KeyedLocker {
	if lease <= 0 {
		lease = 30 * time.Second
	}
	col := db.Collection(locksCollection)
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	return &KeyedLocker{col: col, Lease: lease, Poll: 50 * time.Millisecond}
}

func (l *KeyedLocker) Lock(ctx context.Context, key string) (func(), error) {
	owner := uuid.NewString()
	for {
		ok, err := l.tryAcquire(ctx, key, owner)
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		timer := time.NewTimer(l.Poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_, _ = l.col.DeleteOne(releaseCtx, bson.M{"_id": key, "owner": owner})
		})
	}, nil
}

func (l *KeyedLocker) tryAcquire(ctx context.Context, key, owner string) (bool, error) {
	now := time.Now().UTC()
	lease := bson.M{"_id": key, "owner": owner, "expires_at": now.Add(l.Lease)}
	_, err := l.col.InsertOne(ctx, lease)
	if err == nil {
		return true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return false, err
	}
	res, err := l.col.UpdateOne(ctx,
		bson.M{"_id": key, "expires_at": bson.M{"$lte": now}},
		bson.M{"$set": bson.M{"owner": owner, "expires_at": now.Add(l.Lease)}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

var _ middleware.KeyedLocker = (*KeyedLocker)(nil)
