package principals

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/dmitrijs2005/eduportal/internal/common"
	"github.com/dmitrijs2005/eduportal/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func TestParseObjectID(t *testing.T) {
	oid := bson.NewObjectID()

	got, err := parseObjectID(oid.Hex())
	require.NoError(t, err)
	assert.Equal(t, oid, got)

	for _, bad := range []string{"", "123", "zzzzzzzzzzzzzzzzzzzzzzzz", testID} {
		_, err := parseObjectID(bad)
		require.ErrorIs(t, err, common.ErrorInvalidID, "id %q", bad)
	}
}

func TestPrincipalDocument_ToModel(t *testing.T) {
	oid := bson.NewObjectID()
	now := time.Now().UTC()
	doc := principalDocument{ID: oid, Email: "a@x.com", PasswordHash: "h", Name: "A", Role: "editor", MustChangePassword: true, CreatedAt: now, UpdatedAt: now}

	p := doc.toModel(models.KindAdmin)
	assert.Equal(t, oid.Hex(), p.ID)
	assert.Equal(t, models.KindAdmin, p.Kind)
	assert.Equal(t, "editor", p.Role)
	assert.True(t, p.MustChangePassword)
}

func TestMongoRepository_MalformedIDNeedsNoServer(t *testing.T) {
	r := NewMongoRepository(nil)
	_, err := r.GetByID(context.Background(), models.KindAdmin, "not-hex")
	require.ErrorIs(t, err, common.ErrorInvalidID)
}

// TestMongoRepository_Integration runs against a live server when
// EDUPORTAL_TEST_MONGO_URI is set.
func TestMongoRepository_Integration(t *testing.T) {
	uri := os.Getenv("EDUPORTAL_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("EDUPORTAL_TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	require.NoError(t, err)
	defer func() { _ = client.Disconnect(ctx) }()

	db := client.Database("eduportal_test_" + bson.NewObjectID().Hex())
	defer func() { _ = db.Drop(ctx) }()

	r := NewMongoRepository(db)
	require.NoError(t, r.EnsureIndexes(ctx))

	p, err := r.Create(ctx, &models.Principal{Kind: models.KindAdmin, Email: "a@x.com", PasswordHash: "h1", Role: "admin", MustChangePassword: true})
	require.NoError(t, err)

	_, err = r.Create(ctx, &models.Principal{Kind: models.KindAdmin, Email: "a@x.com"})
	require.ErrorIs(t, err, common.ErrorAlreadyExists)

	require.NoError(t, r.UpdatePassword(ctx, models.KindAdmin, p.ID, "h2"))
	got, err := r.GetByEmail(ctx, models.KindAdmin, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "h2", got.PasswordHash)
	assert.False(t, got.MustChangePassword)

	_, err = r.GetByID(ctx, models.KindUser, p.ID)
	require.ErrorIs(t, err, common.ErrorNotFound)
}
