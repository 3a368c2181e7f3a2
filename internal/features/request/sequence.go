package request

import (
	"context"
	"fmt"

	"go-approvals/internal/common/models"
	"go-approvals/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SequenceRepository interface {
	NextRequestNumber(ctx context.Context, year int) (string, error)
}

type SequenceRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewSequenceRepository(mongodb *database.MongodbDB) SequenceRepository {
	return &SequenceRepositoryImpl{
		Collection: mongodb.DB.Collection("counters"),
	}
}

// NextRequestNumber atomically draws the next sequence value for the tenant
// and year and formats it as APR-<year>-<6-digit seq>. The counter document
// is upserted on first use, so a new year starts at 1 without any setup.
func (r *SequenceRepositoryImpl) NextRequestNumber(ctx context.Context, year int) (string, error) {
	tenantOID := primitive.NilObjectID
	if tenantID, ok := ctx.Value(models.TenantIDKey).(string); ok && tenantID != "" {
		oid, err := primitive.ObjectIDFromHex(tenantID)
		if err != nil {
			return "", err
		}
		tenantOID = oid
	}

	filter := bson.M{
		"scope":     "approval_request",
		"tenant_id": tenantOID,
		"year":      year,
	}
	update := bson.M{"$inc": bson.M{"seq": 1}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	if err := r.Collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&counter); err != nil {
		return "", err
	}

	return fmt.Sprintf("APR-%04d-%06d", year, counter.Seq), nil
}
