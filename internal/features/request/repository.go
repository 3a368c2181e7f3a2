package request

import (
	"context"
	"fmt"
	"time"

	"go-approvals/internal/common/models"
	"go-approvals/internal/database"
	"go-approvals/internal/engine"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type RequestRepository interface {
	Create(ctx context.Context, req *models.ApprovalRequest) error
	GetByID(ctx context.Context, id string) (*models.ApprovalRequest, error)
	GetByRequestNumber(ctx context.Context, number string) (*models.ApprovalRequest, error)
	List(ctx context.Context, filter map[string]interface{}, limit, offset int64) ([]models.ApprovalRequest, int64, error)
	ListPendingFor(ctx context.Context, userID string) ([]models.ApprovalRequest, error)
	ListOpen(ctx context.Context) ([]models.ApprovalRequest, error)
	Update(ctx context.Context, req *models.ApprovalRequest) error
}

type RequestRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewRequestRepository(mongodb *database.MongodbDB) RequestRepository {
	return &RequestRepositoryImpl{
		Collection: mongodb.DB.Collection("approval_requests"),
	}
}

func (r *RequestRepositoryImpl) Create(ctx context.Context, req *models.ApprovalRequest) error {
	if tenantID, ok := ctx.Value(models.TenantIDKey).(string); ok && tenantID != "" {
		oid, err := primitive.ObjectIDFromHex(tenantID)
		if err != nil {
			return err
		}
		req.TenantID = oid
	}
	_, err := r.Collection.InsertOne(ctx, req)
	return err
}

func (r *RequestRepositoryImpl) GetByID(ctx context.Context, id string) (*models.ApprovalRequest, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid request id %s", engine.ErrNotFound, id)
	}
	var req models.ApprovalRequest
	err = r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&req)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func (r *RequestRepositoryImpl) GetByRequestNumber(ctx context.Context, number string) (*models.ApprovalRequest, error) {
	var req models.ApprovalRequest
	err := r.Collection.FindOne(ctx, bson.M{"request_number": number}).Decode(&req)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func (r *RequestRepositoryImpl) List(ctx context.Context, filter map[string]interface{}, limit, offset int64) ([]models.ApprovalRequest, int64, error) {
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

	var requests []models.ApprovalRequest
	if err = cursor.All(ctx, &requests); err != nil {
		return nil, 0, err
	}

	total, err := r.Collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

// ListPendingFor returns the open requests where the user sits in the current
// step's pending set. Delegated authority widens this set at action time, not
// here, so a delegate queries with the delegator's id to see their queue.
func (r *RequestRepositoryImpl) ListPendingFor(ctx context.Context, userID string) ([]models.ApprovalRequest, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{
		"status": models.RequestStatusInProgress,
		"step_statuses": bson.M{"$elemMatch": bson.M{
			"state":             models.StepStateInProgress,
			"pending_approvers": userID,
		}},
	}, options.Find().SetSort(bson.D{{Key: "submitted_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var requests []models.ApprovalRequest
	if err = cursor.All(ctx, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *RequestRepositoryImpl) ListOpen(ctx context.Context) ([]models.ApprovalRequest, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{
		"status": bson.M{"$in": []models.RequestStatus{
			models.RequestStatusPending,
			models.RequestStatusInProgress,
		}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var requests []models.ApprovalRequest
	if err = cursor.All(ctx, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

// Update replaces the stored document only if nobody else saved a newer
// version in between. The version check makes concurrent approvals on the
// same request lose cleanly instead of silently overwriting each other.
func (r *RequestRepositoryImpl) Update(ctx context.Context, req *models.ApprovalRequest) error {
	storedVersion := req.Version
	req.Version++
	req.UpdatedAt = time.Now()

	result, err := r.Collection.ReplaceOne(ctx,
		bson.M{"_id": req.ID, "version": storedVersion},
		req,
	)
	if err != nil {
		req.Version = storedVersion
		return err
	}
	if result.MatchedCount == 0 {
		req.Version = storedVersion
		return fmt.Errorf("%w: request %s was modified concurrently", engine.ErrConflict, req.RequestNumber)
	}
	return nil
}
