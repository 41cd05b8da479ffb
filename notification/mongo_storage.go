package notification

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoCollection is the collection name used by MongoStorage.
const MongoCollection = "notifications"

// MongoStorage persists notifications in MongoDB. The status CAS in Update
// is expressed as a filter on both _id and status, so a concurrent writer
// that moved the status first makes the replace match nothing.
type MongoStorage struct {
	coll *mongo.Collection
}

// NewMongoStorage creates a storage over db's notifications collection.
func NewMongoStorage(db *mongo.Database) *MongoStorage {
	return &MongoStorage{coll: db.Collection(MongoCollection)}
}

// EnsureIndexes creates the indexes the query paths rely on. Call once at
// startup; index creation is idempotent.
func (s *MongoStorage) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "next_retry_at", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expires_at", Value: 1}}},
	})
	if err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	return nil
}

func (s *MongoStorage) Create(ctx context.Context, n *Notification) error {
	_, err := s.coll.InsertOne(ctx, n)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyExists
		}
		return errors.Join(ErrStorageFailure, err)
	}
	return nil
}

func (s *MongoStorage) Get(ctx context.Context, id string) (*Notification, error) {
	var n Notification
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&n)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, errors.Join(ErrStorageFailure, err)
	}
	return &n, nil
}

func (s *MongoStorage) Update(ctx context.Context, n *Notification, expected Status) error {
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": n.ID, "status": expected}, n)
	if err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	if res.MatchedCount == 0 {
		count, err := s.coll.CountDocuments(ctx, bson.M{"_id": n.ID})
		if err != nil {
			return errors.Join(ErrStorageFailure, err)
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrStatusConflict
	}
	return nil
}

func (s *MongoStorage) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStorage) ListByRecipient(ctx context.Context, recipientID string, opts ListOptions) ([]Notification, error) {
	filter := bson.M{"recipient_id": recipientID}
	if opts.Status != "" {
		filter["status"] = opts.Status
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts.SetSkip(int64(opts.Offset))
	}

	return s.find(ctx, filter, findOpts)
}

func (s *MongoStorage) DueForRetry(ctx context.Context, now time.Time) ([]Notification, error) {
	filter := bson.M{
		"status":        StatusPending,
		"next_retry_at": bson.M{"$ne": nil, "$lte": now},
		"expires_at":    bson.M{"$gt": now},
	}
	return s.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "next_retry_at", Value: 1}}))
}

func (s *MongoStorage) ExpiredPending(ctx context.Context, now time.Time) ([]Notification, error) {
	filter := bson.M{
		"status":     StatusPending,
		"expires_at": bson.M{"$lte": now},
	}
	return s.find(ctx, filter, options.Find())
}

func (s *MongoStorage) CountPending(ctx context.Context, recipientID string) (int, error) {
	return s.countByStatus(ctx, recipientID, StatusPending)
}

func (s *MongoStorage) CountUnread(ctx context.Context, recipientID string) (int, error) {
	return s.countByStatus(ctx, recipientID, StatusDelivered)
}

func (s *MongoStorage) countByStatus(ctx context.Context, recipientID string, status Status) (int, error) {
	count, err := s.coll.CountDocuments(ctx, bson.M{"recipient_id": recipientID, "status": status})
	if err != nil {
		return 0, errors.Join(ErrStorageFailure, err)
	}
	return int(count), nil
}

func (s *MongoStorage) find(ctx context.Context, filter bson.M, findOpts *options.FindOptionsBuilder) ([]Notification, error) {
	cursor, err := s.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var result []Notification
	if err := cursor.All(ctx, &result); err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}
	return result, nil
}
