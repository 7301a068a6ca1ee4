package principals

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

// principalDocument is the stored shape of a principal in the admins and
// users collections.
type principalDocument struct {
	ID                 bson.ObjectID `bson:"_id,omitempty"`
	Email              string        `bson:"email"`
	PasswordHash       string        `bson:"password_hash"`
	Name               string        `bson:"name"`
	Role               string        `bson:"role"`
	MustChangePassword bool          `bson:"must_change_password"`
	CreatedAt          time.Time     `bson:"created_at"`
	UpdatedAt          time.Time     `bson:"updated_at"`
}

func (d *principalDocument) toModel(kind models.Kind) *models.Principal {
	return &models.Principal{
		ID:                 d.ID.Hex(),
		Kind:               kind,
		Email:              d.Email,
		PasswordHash:       d.PasswordHash,
		Name:               d.Name,
		Role:               d.Role,
		MustChangePassword: d.MustChangePassword,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

// parseObjectID converts a hex id, failing closed with common.ErrorInvalidID.
func parseObjectID(id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.ObjectID{}, common.ErrorInvalidID
	}
	return oid, nil
}

// MongoRepository keeps each kind in its own collection of db.
type MongoRepository struct {
	db  *mongo.Database
	now func() time.Time
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{db: db, now: time.Now}
}

func (r *MongoRepository) collection(kind models.Kind) (*mongo.Collection, error) {
	name, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	return r.db.Collection(name), nil
}

// EnsureIndexes creates the unique email index of both collections.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	for _, kind := range models.Kinds {
		coll, err := r.collection(kind)
		if err != nil {
			return err
		}
		_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_unique"),
		})
		if err != nil {
			return fmt.Errorf("mongo error: %w", err)
		}
	}
	return nil
}

func (r *MongoRepository) Create(ctx context.Context, p *models.Principal) (*models.Principal, error) {
	coll, err := r.collection(p.Kind)
	if err != nil {
		return nil, err
	}

	now := r.now().UTC()
	doc := principalDocument{
		Email:              p.Email,
		PasswordHash:       p.PasswordHash,
		Name:               p.Name,
		Role:               p.Role,
		MustChangePassword: p.MustChangePassword,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	res, err := coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("mongo error: %w", err)
	}

	oid, ok := res.InsertedID.(bson.ObjectID)
	if !ok {
		return nil, fmt.Errorf("mongo error: unexpected inserted id %T", res.InsertedID)
	}
	p.ID = oid.Hex()
	p.CreatedAt = now
	p.UpdatedAt = now
	return p, nil
}

func (r *MongoRepository) GetByID(ctx context.Context, kind models.Kind, id string) (*models.Principal, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, kind, bson.D{{Key: "_id", Value: oid}})
}

func (r *MongoRepository) GetByEmail(ctx context.Context, kind models.Kind, email string) (*models.Principal, error) {
	return r.findOne(ctx, kind, bson.D{{Key: "email", Value: email}})
}

func (r *MongoRepository) findOne(ctx context.Context, kind models.Kind, filter bson.D) (*models.Principal, error) {
	coll, err := r.collection(kind)
	if err != nil {
		return nil, err
	}

	var doc principalDocument
	if err := coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("mongo error: %w", err)
	}
	return doc.toModel(kind), nil
}

func (r *MongoRepository) UpdatePassword(ctx context.Context, kind models.Kind, id string, passwordHash string) error {
	coll, err := r.collection(kind)
	if err != nil {
		return err
	}
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "password_hash", Value: passwordHash},
		{Key: "must_change_password", Value: false},
		{Key: "updated_at", Value: r.now().UTC()},
	}}}

	res, err := coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: oid}}, update)
	if err != nil {
		return fmt.Errorf("mongo error: %w", err)
	}
	if res.MatchedCount == 0 {
		return common.ErrorNotFound
	}
	return nil
}
