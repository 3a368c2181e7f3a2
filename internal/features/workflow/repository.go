package workflow

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

type WorkflowRepository interface {
	Create(ctx context.Context, wf *models.Workflow) error
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	GetByCode(ctx context.Context, code string) (*models.Workflow, error)
	List(ctx context.Context, filter map[string]interface{}, limit, offset int64) ([]models.Workflow, int64, error)
	ListActiveByType(ctx context.Context, approvalType string) ([]models.Workflow, error)
	Update(ctx context.Context, id string, wf *models.Workflow) error
	UpdateStatus(ctx context.Context, id string, status models.WorkflowStatus) error
	SoftDelete(ctx context.Context, id string) error
}

type WorkflowRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewWorkflowRepository(mongodb *database.MongodbDB) WorkflowRepository {
	return &WorkflowRepositoryImpl{
		Collection: mongodb.DB.Collection("workflows"),
	}
}

func (r *WorkflowRepositoryImpl) Create(ctx context.Context, wf *models.Workflow) error {
	_, err := r.Collection.InsertOne(ctx, wf)
	return err
}

func (r *WorkflowRepositoryImpl) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var wf models.Workflow
	err = r.Collection.FindOne(ctx, bson.M{"_id": oid, "deleted": false}).Decode(&wf)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &wf, nil
}

func (r *WorkflowRepositoryImpl) GetByCode(ctx context.Context, code string) (*models.Workflow, error) {
	var wf models.Workflow
	err := r.Collection.FindOne(ctx, bson.M{"code": code, "deleted": false}).Decode(&wf)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &wf, nil
}

func (r *WorkflowRepositoryImpl) List(ctx context.Context, filter map[string]interface{}, limit, offset int64) ([]models.Workflow, int64, error) {
	query := bson.M{"deleted": false}
	for k, v := range filter {
		query[k] = v
	}

	opts := options.Find().SetSort(bson.D{{Key: "priority", Value: -1}, {Key: "created_at", Value: 1}})
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

	var workflows []models.Workflow
	if err = cursor.All(ctx, &workflows); err != nil {
		return nil, 0, err
	}

	total, err := r.Collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	return workflows, total, nil
}

func (r *WorkflowRepositoryImpl) ListActiveByType(ctx context.Context, approvalType string) ([]models.Workflow, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{
		"approval_type": approvalType,
		"status":        models.WorkflowStatusActive,
		"deleted":       false,
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var workflows []models.Workflow
	if err = cursor.All(ctx, &workflows); err != nil {
		return nil, err
	}
	return workflows, nil
}

func (r *WorkflowRepositoryImpl) Update(ctx context.Context, id string, wf *models.Workflow) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	update := bson.M{
		"$set": bson.M{
			"name":                       wf.Name,
			"description":                wf.Description,
			"approval_type":              wf.ApprovalType,
			"steps":                      wf.Steps,
			"conditions":                 wf.Conditions,
			"min_amount":                 wf.MinAmount,
			"max_amount":                 wf.MaxAmount,
			"allow_parallel_steps":       wf.AllowParallelSteps,
			"require_comments_on_reject": wf.RequireCommentsOnReject,
			"allow_self_approval":        wf.AllowSelfApproval,
			"skip_self_approval_steps":   wf.SkipSelfApprovalSteps,
			"notify_on_submit":           wf.NotifyOnSubmit,
			"notify_on_approve":          wf.NotifyOnApprove,
			"notify_on_reject":           wf.NotifyOnReject,
			"priority":                   wf.Priority,
			"updated_at":                 time.Now(),
		},
		"$inc": bson.M{"version": 1},
	}
	_, err = r.Collection.UpdateOne(ctx, bson.M{"_id": oid, "deleted": false}, update)
	return err
}

func (r *WorkflowRepositoryImpl) UpdateStatus(ctx context.Context, id string, status models.WorkflowStatus) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.Collection.UpdateOne(ctx, bson.M{"_id": oid, "deleted": false}, bson.M{
		"$set": bson.M{"status": status, "updated_at": time.Now()},
	})
	return err
}

func (r *WorkflowRepositoryImpl) SoftDelete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	now := time.Now()
	_, err = r.Collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{"deleted": true, "deleted_at": now, "updated_at": now},
	})
	return err
}
