package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	saunaserrors "loyly/internal/saunas/errors"
	"loyly/pkg/config"
	mongotx "loyly/pkg/db/mongo"
	"loyly/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Saunas"
)

type SaunaRepository interface {
	Create(ctx context.Context, sauna *model.Sauna) error
	FindByID(ctx context.Context, id string) (*model.Sauna, error)
	FindByIDs(ctx context.Context, ids []string) ([]*model.Sauna, error)
	Update(ctx context.Context, id string, update *model.SaunaUpdate) (*model.Sauna, error)
	Delete(ctx context.Context, id string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoSaunaRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoSaunaRepository(cfg *config.Config) SaunaRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSaunaRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoSaunaRepository) Create(ctx context.Context, sauna *model.Sauna) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	sauna.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	result, err := r.collection.InsertOne(ctx, sauna)
	if err != nil {
		return fmt.Errorf("failed to create sauna: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		sauna.ID = oid.Hex()
	}
	return nil
}

func (r *mongoSaunaRepository) FindByID(ctx context.Context, id string) (*model.Sauna, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", saunaserrors.ErrInvalidID, id)
	}

	var sauna model.Sauna
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&sauna)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, saunaserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find sauna: %w", err)
	}
	return &sauna, nil
}

func (r *mongoSaunaRepository) FindByIDs(ctx context.Context, ids []string) ([]*model.Sauna, error) {
	if len(ids) == 0 {
		return []*model.Sauna{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		objectID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		objectIDs = append(objectIDs, objectID)
	}

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": objectIDs}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find saunas: %w", err)
	}
	defer cursor.Close(ctx)

	var saunas []*model.Sauna
	if err = cursor.All(ctx, &saunas); err != nil {
		return nil, fmt.Errorf("failed to decode saunas: %w", err)
	}
	return saunas, nil
}

func (r *mongoSaunaRepository) Update(ctx context.Context, id string, update *model.SaunaUpdate) (*model.Sauna, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", saunaserrors.ErrInvalidID, id)
	}

	set := bson.M{}
	if update.Name != "" {
		set["name"] = update.Name
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if update.Location != nil {
		set["location"] = *update.Location
	}
	if update.SlotDurationMinutes != nil {
		set["slot_duration_minutes"] = *update.SlotDurationMinutes
	}
	if update.OperatingHours != nil {
		set["operating_hours"] = *update.OperatingHours
	}
	if update.MaxConcurrentBookings != nil {
		set["max_concurrent_bookings"] = *update.MaxConcurrentBookings
	}
	if update.MaxTotalBookings != nil {
		set["max_total_bookings"] = *update.MaxTotalBookings
	}
	if len(set) == 0 {
		return r.FindByID(ctx, id)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var sauna model.Sauna
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objectID}, bson.M{"$set": set}, opts).Decode(&sauna)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, saunaserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update sauna: %w", err)
	}
	return &sauna, nil
}

func (r *mongoSaunaRepository) Delete(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", saunaserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete sauna: %w", err)
	}
	if result.DeletedCount == 0 {
		return saunaserrors.ErrNotFound
	}
	return nil
}

func (r *mongoSaunaRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
