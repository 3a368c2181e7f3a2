package delegation

import (
	"context"
	"time"

	"go-approvals/internal/common/models"
	"go-approvals/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DelegationRepository interface {
	Create(ctx context.Context, d *models.Delegation) error
	GetByID(ctx context.Context, id string) (*models.Delegation, error)
	List(ctx context.Context, filter map[string]interface{}, limit, offset int64) ([]models.Delegation, int64, error)
	ListActiveForDelegate(ctx context.Context, delegateID string, at time.Time) ([]models.Delegation, error)
	Update(ctx context.Context, id string, d *models.Delegation) error
	Revoke(ctx context.Context, id string, at time.Time) error
}

type DelegationRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewDelegationRepository(mongodb *database.MongodbDB) DelegationRepository {
	return &DelegationRepositoryImpl{
		Collection: mongodb.DB.Collection("delegations"),
	}
}

func (r *DelegationRepositoryImpl) Create(ctx context.Context, d *models.Delegation) error {
	_, err := r.Collection.InsertOne(ctx, d)
	return err
}

func (r *DelegationRepositoryImpl) GetByID(ctx context.Context, id string) (*models.Delegation, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var d models.Delegation
	err = r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&d)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

func (r *DelegationRepositoryImpl) List(ctx context.Context, filter map[string]interface{}, limit, offset int64) ([]models.Delegation, int64, error) {
	query := bson.M{}
	for k, v := range filter {
		query[k] = v
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	if offset > 0 {
		opts.SetSkip(offset)
	}

	cursor, err := r.Collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var delegations []models.Delegation
	if err = cursor.All(ctx, &delegations); err != nil {
		return nil, 0, err
	}

	total, err := r.Collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	return delegations, total, nil
}

// ListActiveForDelegate is a coarse date filter; the engine applies the
// precise calendar-day and scope rules.
func (r *DelegationRepositoryImpl) ListActiveForDelegate(ctx context.Context, delegateID string, at time.Time) ([]models.Delegation, error) {
	dayEnd := at.AddDate(0, 0, 1)
	cursor, err := r.Collection.Find(ctx, bson.M{
		"delegate_id": delegateID,
		"active":      true,
		"start_date":  bson.M{"$lt": dayEnd},
		"end_date":    bson.M{"$gt": at.AddDate(0, 0, -1)},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var delegations []models.Delegation
	if err = cursor.All(ctx, &delegations); err != nil {
		return nil, err
	}
	return delegations, nil
}

func (r *DelegationRepositoryImpl) Update(ctx context.Context, id string, d *models.Delegation) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	update := bson.M{
		"$set": bson.M{
			"start_date":     d.StartDate,
			"end_date":       d.EndDate,
			"approval_types": d.ApprovalTypes,
			"max_amount":     d.MaxAmount,
			"reason":         d.Reason,
			"updated_at":     time.Now(),
		},
	}
	_, err = r.Collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	return err
}

func (r *DelegationRepositoryImpl) Revoke(ctx context.Context, id string, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.Collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{"active": false, "revoked_at": at, "updated_at": at},
	})
	return err
}
