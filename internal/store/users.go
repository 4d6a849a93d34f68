package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"vastra_back_end/internal/database"
	"vastra_back_end/internal/models"
)

type MongoUsers struct {
	coll *mongo.Collection
}

func NewMongoUsers(db *mongo.Database) *MongoUsers {
	return &MongoUsers{coll: db.Collection(database.UsersCollection)}
}

func (s *MongoUsers) Create(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = primitive.NewObjectID().Hex()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Addresses == nil {
		u.Addresses = []models.Address{}
	}
	if u.Wishlist == nil {
		u.Wishlist = []string{}
	}
	if _, err := s.coll.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *MongoUsers) Get(ctx context.Context, id string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (s *MongoUsers) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"externalAuthId": externalID})
}

func (s *MongoUsers) LinkExternalID(ctx context.Context, id, externalID, provider string, at time.Time) (*models.User, error) {
	update := bson.M{
		"$set": bson.M{"externalAuthId": externalID, "provider": provider, "updatedAt": at},
		"$inc": bson.M{"version": 1},
	}
	return s.findAndUpdate(ctx, bson.M{"_id": id}, update)
}

func (s *MongoUsers) UpdateProfile(ctx context.Context, id string, patch models.ProfilePatch, at time.Time) (*models.User, error) {
	filter := bson.M{"_id": id}
	if patch.Version != nil {
		filter["version"] = *patch.Version
	}
	set := bson.M{"updatedAt": at}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Phone != nil {
		set["phone"] = *patch.Phone
	}
	if patch.Addresses != nil {
		set["addresses"] = *patch.Addresses
	}
	u, err := s.findAndUpdate(ctx, filter, bson.M{"$set": set, "$inc": bson.M{"version": 1}})
	if errors.Is(err, ErrNotFound) && patch.Version != nil {
		return nil, s.missOrConflict(ctx, id)
	}
	return u, err
}

func (s *MongoUsers) ReplaceAddresses(ctx context.Context, id string, expectVersion int64, addrs []models.Address, at time.Time) (*models.User, error) {
	filter := bson.M{"_id": id, "version": expectVersion}
	update := bson.M{
		"$set": bson.M{"addresses": addrs, "updatedAt": at},
		"$inc": bson.M{"version": 1},
	}
	u, err := s.findAndUpdate(ctx, filter, update)
	if errors.Is(err, ErrNotFound) {
		return nil, s.missOrConflict(ctx, id)
	}
	return u, err
}

func (s *MongoUsers) AddToWishlist(ctx context.Context, id, productID string) (*models.User, error) {
	return s.findAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$addToSet": bson.M{"wishlist": productID}})
}

func (s *MongoUsers) RemoveFromWishlist(ctx context.Context, id, productID string) (*models.User, error) {
	return s.findAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$pull": bson.M{"wishlist": productID}})
}

func (s *MongoUsers) List(ctx context.Context, page, limit int) ([]models.User, int64, error) {
	filter := bson.M{"role": models.RoleUser}
	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	skip, lim := Page(page, limit, 20, 100)
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetSkip(skip).SetLimit(lim)
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find users: %w", err)
	}
	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, 0, fmt.Errorf("decode users: %w", err)
	}
	return users, total, nil
}

func (s *MongoUsers) missOrConflict(ctx context.Context, id string) error {
	n, err := s.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("count user: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrVersionConflict
}

func (s *MongoUsers) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := s.coll.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (s *MongoUsers) findAndUpdate(ctx context.Context, filter, update bson.M) (*models.User, error) {
	var u models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return &u, nil
}
