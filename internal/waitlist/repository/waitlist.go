package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	waitlisterrors "loyly/internal/waitlist/errors"
	"loyly/pkg/config"
	"loyly/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Waitlist_entries"
)

type WaitlistRepository interface {
	Create(ctx context.Context, entry *model.WaitlistEntry) error
	FindEntry(ctx context.Context, userID, saunaID string, slotTime time.Time) (*model.WaitlistEntry, error)
	FindByUser(ctx context.Context, userID string) ([]*model.WaitlistEntry, error)
	FindNextUnnotified(ctx context.Context, saunaID string, slotTime time.Time) (*model.WaitlistEntry, error)
	CountEarlier(ctx context.Context, entry *model.WaitlistEntry) (int64, error)
	MarkNotified(ctx context.Context, id string) error
	Delete(ctx context.Context, userID, saunaID string, slotTime time.Time) error
	DeleteBySauna(ctx context.Context, saunaID string) (int64, error)
}

type mongoWaitlistRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoWaitlistRepository(cfg *config.Config) WaitlistRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoWaitlistRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

// Create relies on the partial unique index over (user_id, sauna_id,
// slot_time) for unnotified entries: a second join for the same slot comes
// back as ErrAlreadyQueued.
func (r *mongoWaitlistRepository) Create(ctx context.Context, entry *model.WaitlistEntry) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	entry.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	entry.Notified = false

	result, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return waitlisterrors.ErrAlreadyQueued
		}
		return fmt.Errorf("failed to create waitlist entry: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		entry.ID = oid.Hex()
	}
	return nil
}

func (r *mongoWaitlistRepository) FindEntry(ctx context.Context, userID, saunaID string, slotTime time.Time) (*model.WaitlistEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"user_id":   userID,
		"sauna_id":  saunaID,
		"slot_time": slotTime,
		"notified":  false,
	}

	var entry model.WaitlistEntry
	err := r.collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, waitlisterrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find waitlist entry: %w", err)
	}
	return &entry, nil
}

func (r *mongoWaitlistRepository) FindByUser(ctx context.Context, userID string) ([]*model.WaitlistEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "slot_time", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID, "notified": false}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find waitlist entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*model.WaitlistEntry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode waitlist entries: %w", err)
	}
	return entries, nil
}

// FindNextUnnotified returns the head of the FIFO queue for a slot. Object-id
// insertion order breaks created_at ties.
func (r *mongoWaitlistRepository) FindNextUnnotified(ctx context.Context, saunaID string, slotTime time.Time) (*model.WaitlistEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"sauna_id":  saunaID,
		"slot_time": slotTime,
		"notified":  false,
	}
	opts := options.FindOne().SetSort(bson.D{
		{Key: "created_at", Value: 1},
		{Key: "_id", Value: 1},
	})

	var entry model.WaitlistEntry
	err := r.collection.FindOne(ctx, filter, opts).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, waitlisterrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find next waitlist entry: %w", err)
	}
	return &entry, nil
}

// CountEarlier counts unnotified entries ahead of the given one in the same
// queue, giving the entry's 0-based position.
func (r *mongoWaitlistRepository) CountEarlier(ctx context.Context, entry *model.WaitlistEntry) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(entry.ID)
	if err != nil {
		return 0, fmt.Errorf("invalid waitlist entry id %q: %w", entry.ID, err)
	}

	filter := bson.M{
		"sauna_id":  entry.SaunaID,
		"slot_time": entry.SlotTime,
		"notified":  false,
		"$or": bson.A{
			bson.M{"created_at": bson.M{"$lt": entry.CreatedAt}},
			bson.M{"created_at": entry.CreatedAt, "_id": bson.M{"$lt": objectID}},
		},
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count earlier waitlist entries: %w", err)
	}
	return count, nil
}

func (r *mongoWaitlistRepository) MarkNotified(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid waitlist entry id %q: %w", id, err)
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"notified": true}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark waitlist entry notified: %w", err)
	}
	if result.MatchedCount == 0 {
		return waitlisterrors.ErrNotFound
	}
	return nil
}

func (r *mongoWaitlistRepository) Delete(ctx context.Context, userID, saunaID string, slotTime time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"user_id":   userID,
		"sauna_id":  saunaID,
		"slot_time": slotTime,
		"notified":  false,
	}

	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete waitlist entry: %w", err)
	}
	if result.DeletedCount == 0 {
		return waitlisterrors.ErrNotFound
	}
	return nil
}

func (r *mongoWaitlistRepository) DeleteBySauna(ctx context.Context, saunaID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"sauna_id": saunaID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete waitlist entries: %w", err)
	}
	return result.DeletedCount, nil
}
