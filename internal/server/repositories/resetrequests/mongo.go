package resetrequests

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/eduportal/internal/common"
	"github.com/dmitrijs2005/eduportal/internal/server/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// CollectionName is the MongoDB collection holding reset requests.
const CollectionName = "password_resets"

type resetDocument struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Email     string        `bson:"email"`
	TokenHash string        `bson:"token_hash"`
	ExpiresAt time.Time     `bson:"expires_at"`
	CreatedAt time.Time     `bson:"created_at"`
}

type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(CollectionName)}
}

func (d resetDocument) toModel() *models.PasswordResetRequest {
	return &models.PasswordResetRequest{
		ID:        d.ID.Hex(),
		Email:     d.Email,
		TokenHash: d.TokenHash,
		ExpiresAt: d.ExpiresAt,
		CreatedAt: d.CreatedAt,
	}
}

// indexModels are the lookup index and a TTL index so expired requests are
// eventually purged by the server.
func indexModels() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("email_created"),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("expires_ttl").SetExpireAfterSeconds(0),
		},
	}
}

func latestFirst() *options.FindOneOptionsBuilder {
	return options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
}

// othersFilter matches every request for email except keepID.
func othersFilter(email, keepID string) (bson.D, error) {
	oid, err := bson.ObjectIDFromHex(keepID)
	if err != nil {
		return nil, common.ErrorInvalidID
	}
	return bson.D{
		{Key: "email", Value: email},
		{Key: "_id", Value: bson.D{{Key: "$ne", Value: oid}}},
	}, nil
}

func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, indexModels())
	if err != nil {
		return fmt.Errorf("mongo error: %w", err)
	}
	return nil
}

func (r *MongoRepository) Create(ctx context.Context, req *models.PasswordResetRequest) error {
	res, err := r.coll.InsertOne(ctx, resetDocument{
		Email:     req.Email,
		TokenHash: req.TokenHash,
		ExpiresAt: req.ExpiresAt.UTC(),
		CreatedAt: req.CreatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("mongo error: %w", err)
	}
	if oid, ok := res.InsertedID.(bson.ObjectID); ok {
		req.ID = oid.Hex()
	}
	return nil
}

func (r *MongoRepository) FindLatest(ctx context.Context, email string) (*models.PasswordResetRequest, error) {
	var doc resetDocument
	if err := r.coll.FindOne(ctx, bson.D{{Key: "email", Value: email}}, latestFirst()).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("mongo error: %w", err)
	}

	return doc.toModel(), nil
}

func (r *MongoRepository) DeleteByEmail(ctx context.Context, email string) error {
	if _, err := r.coll.DeleteMany(ctx, bson.D{{Key: "email", Value: email}}); err != nil {
		return fmt.Errorf("mongo error: %w", err)
	}
	return nil
}

func (r *MongoRepository) DeleteOthers(ctx context.Context, email, keepID string) error {
	filter, err := othersFilter(email, keepID)
	if err != nil {
		return err
	}
	if _, err := r.coll.DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("mongo error: %w", err)
	}
	return nil
}
