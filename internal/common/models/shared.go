package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ContextKey string

const (
	TenantIDKey ContextKey = "tenant_id"
)

type AuditAction string

const (
	AuditActionCreate     AuditAction = "CREATE"
	AuditActionUpdate     AuditAction = "UPDATE"
	AuditActionDelete     AuditAction = "DELETE"
	AuditActionLogin      AuditAction = "LOGIN"
	AuditActionApproval   AuditAction = "APPROVAL"
	AuditActionDelegation AuditAction = "DELEGATION"
	AuditActionEscalation AuditAction = "ESCALATION"
)

type Change struct {
	Old interface{} `bson:"old" json:"old"`
	New interface{} `bson:"new" json:"new"`
}

type AuditLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID  primitive.ObjectID `bson:"tenant_id,omitempty" json:"tenant_id,omitempty"`
	Action    AuditAction        `bson:"action" json:"action"`
	Module    string             `bson:"module" json:"module"`
	RecordID  string             `bson:"record_id" json:"record_id"`
	ActorID   string             `bson:"actor_id" json:"actor_id"`
	ActorName string             `bson:"-" json:"actor_name,omitempty"`
	Changes   map[string]Change  `bson:"changes,omitempty" json:"changes,omitempty"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

type User struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	TenantID         primitive.ObjectID   `bson:"tenant_id,omitempty" json:"tenant_id,omitempty"`
	Username         string               `bson:"username" json:"username"`
	Password         string               `bson:"password" json:"-"`
	Email            string               `bson:"email" json:"email"`
	FirstName        string               `bson:"first_name,omitempty" json:"first_name,omitempty"`
	LastName         string               `bson:"last_name,omitempty" json:"last_name,omitempty"`
	Status           string               `bson:"status" json:"status"` // active, inactive, suspended
	Roles            []string             `bson:"roles" json:"roles"` // role names, carried into JWT claims
	Department       string               `bson:"department,omitempty" json:"department,omitempty"`
	IsDepartmentHead bool                 `bson:"is_department_head,omitempty" json:"is_department_head,omitempty"`
	ReportsTo        *primitive.ObjectID  `bson:"reports_to,omitempty" json:"reports_to,omitempty"` // Manager ID
	LastLogin        *time.Time           `bson:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt        time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time            `bson:"updated_at" json:"updated_at"`
}

type Log struct {
	Message      string    `bson:"message" json:"message"`
	IpAddress    string    `bson:"ip_address" json:"ip_address"`
	LogLevelId   int       `bson:"log_level_id" json:"log_level_id"`
	Caller       string    `bson:"caller,omitempty" json:"caller,omitempty"`
	CreatedOnUtc time.Time `bson:"created_on_utc" json:"created_on_utc"`
}
