package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	userserrors "loyly/internal/users/errors"
	"loyly/pkg/config"
	"loyly/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Users"
)

type UserRepository interface {
	Upsert(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	GrantAccess(ctx context.Context, userID, saunaID string) error
	RevokeSaunaAccess(ctx context.Context, saunaID string) (int64, error)
	SetRole(ctx context.Context, userID string, role model.Role) error
}

type mongoUserRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoUserRepository(cfg *config.Config) UserRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoUserRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

// Upsert creates the account on first sight of a verified subject and
// refreshes the provider-owned claims afterwards. Role and access grants are
// never touched here.
func (r *mongoUserRepository) Upsert(ctx context.Context, user *model.User) error {
	filter := bson.M{"_id": user.ID}
	update := bson.M{
		"$set": bson.M{
			"email": user.Email,
			"name":  user.Name,
		},
		"$setOnInsert": bson.M{
			"role":       model.RoleUser,
			"sauna_ids":  []string{},
			"created_at": time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	opts := options.Update().SetUpsert(true)
	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (r *mongoUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, userserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func (r *mongoUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, userserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return &user, nil
}

func (r *mongoUserRepository) GrantAccess(ctx context.Context, userID, saunaID string) error {
	filter := bson.M{"_id": userID}
	update := bson.M{"$addToSet": bson.M{"sauna_ids": saunaID}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to grant sauna access: %w", err)
	}
	if result.MatchedCount == 0 {
		return userserrors.ErrNotFound
	}
	return nil
}

func (r *mongoUserRepository) RevokeSaunaAccess(ctx context.Context, saunaID string) (int64, error) {
	update := bson.M{"$pull": bson.M{"sauna_ids": saunaID}}
	result, err := r.collection.UpdateMany(ctx, bson.M{"sauna_ids": saunaID}, update)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke sauna access: %w", err)
	}
	return result.ModifiedCount, nil
}

func (r *mongoUserRepository) SetRole(ctx context.Context, userID string, role model.Role) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{"role": role}})
	if err != nil {
		return fmt.Errorf("failed to set user role: %w", err)
	}
	if result.MatchedCount == 0 {
		return userserrors.ErrNotFound
	}
	return nil
}
