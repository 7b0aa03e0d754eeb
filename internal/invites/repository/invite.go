package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	inviteserrors "loyly/internal/invites/errors"
	"loyly/pkg/config"
	"loyly/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Invites"
)

type InviteRepository interface {
	Create(ctx context.Context, invite *model.Invite) error
	FindByID(ctx context.Context, id string) (*model.Invite, error)
	FindBySauna(ctx context.Context, saunaID string, limit int, offset int64) ([]*model.Invite, error)
	CountBySauna(ctx context.Context, saunaID string) (int64, error)
	HasPendingInvites(ctx context.Context, email string) (bool, error)
	UpdateStatus(ctx context.Context, id string, status model.InviteStatus) error
	ExpireLapsed(ctx context.Context, now time.Time) (int64, error)
	ExpirePendingBySauna(ctx context.Context, saunaID string) (int64, error)
}

type mongoInviteRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoInviteRepository(cfg *config.Config) InviteRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoInviteRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

// Create relies on the partial unique index over (email, sauna_id) for
// pending invites to reject duplicates.
func (r *mongoInviteRepository) Create(ctx context.Context, invite *model.Invite) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	invite.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	result, err := r.collection.InsertOne(ctx, invite)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return inviteserrors.ErrDuplicatePending
		}
		return fmt.Errorf("failed to create invite: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		invite.ID = oid.Hex()
	}
	return nil
}

func (r *mongoInviteRepository) FindByID(ctx context.Context, id string) (*model.Invite, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", inviteserrors.ErrInvalidID, id)
	}

	var invite model.Invite
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&invite)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, inviteserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find invite: %w", err)
	}
	return &invite, nil
}

func (r *mongoInviteRepository) FindBySauna(ctx context.Context, saunaID string, limit int, offset int64) ([]*model.Invite, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)
	cursor, err := r.collection.Find(ctx, bson.M{"sauna_id": saunaID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find invites: %w", err)
	}
	defer cursor.Close(ctx)

	var invites []*model.Invite
	if err = cursor.All(ctx, &invites); err != nil {
		return nil, fmt.Errorf("failed to decode invites: %w", err)
	}
	return invites, nil
}

func (r *mongoInviteRepository) CountBySauna(ctx context.Context, saunaID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"sauna_id": saunaID})
	if err != nil {
		return 0, fmt.Errorf("failed to count invites: %w", err)
	}
	return count, nil
}

// HasPendingInvites is the booking gate: an email with unresolved pending
// invites cannot book until it accepts or the invites lapse. Lapsed but
// unswept invites do not count, hence the expiry bound in the filter.
func (r *mongoInviteRepository) HasPendingInvites(ctx context.Context, email string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"email":      email,
		"status":     model.InvitePending,
		"expires_at": bson.M{"$gt": time.Now()},
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("failed to count pending invites: %w", err)
	}
	return count > 0, nil
}

func (r *mongoInviteRepository) UpdateStatus(ctx context.Context, id string, status model.InviteStatus) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", inviteserrors.ErrInvalidID, id)
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"status": status}},
	)
	if err != nil {
		return fmt.Errorf("failed to update invite status: %w", err)
	}
	if result.MatchedCount == 0 {
		return inviteserrors.ErrNotFound
	}
	return nil
}

// ExpireLapsed flips every pending invite whose expiry passed. Run
// periodically so lapsed invites stop blocking bookings even when nobody
// touches them.
func (r *mongoInviteRepository) ExpireLapsed(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"status":     model.InvitePending,
		"expires_at": bson.M{"$lt": now},
	}

	result, err := r.collection.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"status": model.InviteExpired}})
	if err != nil {
		return 0, fmt.Errorf("failed to expire lapsed invites: %w", err)
	}
	return result.ModifiedCount, nil
}

func (r *mongoInviteRepository) ExpirePendingBySauna(ctx context.Context, saunaID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"sauna_id": saunaID, "status": model.InvitePending}

	result, err := r.collection.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"status": model.InviteExpired}})
	if err != nil {
		return 0, fmt.Errorf("failed to expire sauna invites: %w", err)
	}
	return result.ModifiedCount, nil
}
