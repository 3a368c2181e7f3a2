package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkflowStatus is the lifecycle status of a workflow definition.
type WorkflowStatus string

const (
	WorkflowStatusDraft    WorkflowStatus = "draft"
	WorkflowStatusActive   WorkflowStatus = "active"
	WorkflowStatusInactive WorkflowStatus = "inactive"
	WorkflowStatusArchived WorkflowStatus = "archived"
)

// StepType controls how many approvals close a step.
type StepType string

const (
	StepTypeSingle   StepType = "single"
	StepTypeAny      StepType = "any"
	StepTypeAll      StepType = "all"
	StepTypeMajority StepType = "majority"
	StepTypeSequence StepType = "sequence"
)

type ApproverType string

const (
	ApproverTypeUser           ApproverType = "user"
	ApproverTypeRole           ApproverType = "role"
	ApproverTypeManager        ApproverType = "manager"
	ApproverTypeDepartmentHead ApproverType = "department_head"
	ApproverTypeDynamic        ApproverType = "dynamic"
)

type ConditionOperator string

const (
	OperatorEquals         ConditionOperator = "equals"
	OperatorNotEquals      ConditionOperator = "not_equals"
	OperatorGreaterThan    ConditionOperator = "greater_than"
	OperatorLessThan       ConditionOperator = "less_than"
	OperatorGreaterOrEqual ConditionOperator = "greater_or_equal"
	OperatorLessOrEqual    ConditionOperator = "less_or_equal"
	OperatorContains       ConditionOperator = "contains"
	OperatorIn             ConditionOperator = "in"
	OperatorBetween        ConditionOperator = "between"
)

// Condition is a single field comparison. ValueTo is only used by "between"
// as the inclusive upper bound.
type Condition struct {
	Field    string            `bson:"field" json:"field"`
	Operator ConditionOperator `bson:"operator" json:"operator"`
	Value    interface{}       `bson:"value" json:"value"`
	ValueTo  interface{}       `bson:"value_to,omitempty" json:"value_to,omitempty"`
}

// Approver describes one approver slot of a step. For non-user types the
// concrete user ids are resolved when the step activates. Script holds the
// tengo source for dynamic approvers.
type Approver struct {
	Type        ApproverType `bson:"type" json:"type"`
	ApproverID  string       `bson:"approver_id" json:"approver_id"`
	Name        string       `bson:"name,omitempty" json:"name,omitempty"`
	Required    bool         `bson:"required" json:"required"`
	CanDelegate bool         `bson:"can_delegate" json:"can_delegate"`
	Script      string       `bson:"script,omitempty" json:"script,omitempty"`
}

// EscalationRule adds a fallback approver once a step has been open longer
// than TriggerHours. With AutoApprove set, the escalated approver approves
// immediately on their own behalf.
type EscalationRule struct {
	TriggerHours   int          `bson:"trigger_hours" json:"trigger_hours"`
	EscalateToType ApproverType `bson:"escalate_to_type" json:"escalate_to_type"`
	EscalateToID   string       `bson:"escalate_to_id" json:"escalate_to_id"`
	EscalateToName string       `bson:"escalate_to_name,omitempty" json:"escalate_to_name,omitempty"`
	NotifyOriginal bool         `bson:"notify_original" json:"notify_original"`
	AutoApprove    bool         `bson:"auto_approve" json:"auto_approve"`
}

// WorkflowStep is one ordered stage of a workflow. Order is zero-based and
// contiguous. Steps are immutable while the owning workflow is active.
type WorkflowStep struct {
	ID                   string           `bson:"id" json:"id"`
	Name                 string           `bson:"name" json:"name"`
	Order                int              `bson:"order" json:"order"`
	Type                 StepType         `bson:"type" json:"type"`
	Approvers            []Approver       `bson:"approvers" json:"approvers"`
	Conditions           []Condition      `bson:"conditions,omitempty" json:"conditions,omitempty"`
	EscalationRules      []EscalationRule `bson:"escalation_rules,omitempty" json:"escalation_rules,omitempty"`
	TimeoutHours         int              `bson:"timeout_hours,omitempty" json:"timeout_hours,omitempty"`
	AutoApproveOnTimeout bool             `bson:"auto_approve_on_timeout,omitempty" json:"auto_approve_on_timeout,omitempty"`
	AutoRejectOnTimeout  bool             `bson:"auto_reject_on_timeout,omitempty" json:"auto_reject_on_timeout,omitempty"`
}

// Workflow defines the ordered approval steps applied to requests of one
// approval type. Created in draft; needs at least one step to activate.
type Workflow struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID     primitive.ObjectID `bson:"tenant_id,omitempty" json:"tenant_id,omitempty"`
	Code         string             `bson:"code" json:"code"` // unique per tenant, upper-cased
	Name         string             `bson:"name" json:"name"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	ApprovalType string             `bson:"approval_type" json:"approval_type"`
	Status       WorkflowStatus     `bson:"status" json:"status"`
	Steps        []WorkflowStep     `bson:"steps" json:"steps"`
	Conditions   []Condition        `bson:"conditions,omitempty" json:"conditions,omitempty"`
	MinAmount    *float64           `bson:"min_amount,omitempty" json:"min_amount,omitempty"`
	MaxAmount    *float64           `bson:"max_amount,omitempty" json:"max_amount,omitempty"`

	// AllowParallelSteps is persisted for forward compatibility; steps always
	// run strictly in order today.
	AllowParallelSteps      bool `bson:"allow_parallel_steps" json:"allow_parallel_steps"`
	RequireCommentsOnReject bool `bson:"require_comments_on_reject" json:"require_comments_on_reject"`
	AllowSelfApproval       bool `bson:"allow_self_approval" json:"allow_self_approval"`
	SkipSelfApprovalSteps   bool `bson:"skip_self_approval_steps" json:"skip_self_approval_steps"`
	NotifyOnSubmit          bool `bson:"notify_on_submit" json:"notify_on_submit"`
	NotifyOnApprove         bool `bson:"notify_on_approve" json:"notify_on_approve"`
	NotifyOnReject          bool `bson:"notify_on_reject" json:"notify_on_reject"`

	Priority  int        `bson:"priority" json:"priority"` // higher wins ties between matching workflows
	Version   int        `bson:"version" json:"version"`
	Deleted   bool       `bson:"deleted" json:"-"`
	DeletedAt *time.Time `bson:"deleted_at,omitempty" json:"-"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
}

// RequestStatus is the lifecycle status of an approval request.
type RequestStatus string

const (
	RequestStatusDraft      RequestStatus = "draft"
	RequestStatusPending    RequestStatus = "pending"
	RequestStatusInProgress RequestStatus = "in_progress"
	RequestStatusApproved   RequestStatus = "approved"
	RequestStatusRejected   RequestStatus = "rejected"
	RequestStatusCancelled  RequestStatus = "cancelled"
	RequestStatusExpired    RequestStatus = "expired"
)

// IsTerminal reports whether no further transitions are possible.
func (s RequestStatus) IsTerminal() bool {
	switch s {
	case RequestStatusApproved, RequestStatusRejected, RequestStatusCancelled, RequestStatusExpired:
		return true
	}
	return false
}

type StepState string

const (
	StepStatePending    StepState = "pending"
	StepStateInProgress StepState = "in_progress"
	StepStateApproved   StepState = "approved"
	StepStateRejected   StepState = "rejected"
	StepStateSkipped    StepState = "skipped"
)

type ActionType string

const (
	ActionApprove     ActionType = "approve"
	ActionReject      ActionType = "reject"
	ActionDelegate    ActionType = "delegate"
	ActionEscalate    ActionType = "escalate"
	ActionRequestInfo ActionType = "request_info"
	ActionReturn      ActionType = "return"
)

// ApprovalAction is an append-only audit record of one action taken on a
// step. OnBehalfOf is set when the actor acted through a delegation; the
// delegator is the identity that was counted.
type ApprovalAction struct {
	ID         string     `bson:"id" json:"id"`
	StepID     string     `bson:"step_id" json:"step_id"`
	StepOrder  int        `bson:"step_order" json:"step_order"`
	ActorID    string     `bson:"actor_id" json:"actor_id"`
	OnBehalfOf string     `bson:"on_behalf_of,omitempty" json:"on_behalf_of,omitempty"`
	Action     ActionType `bson:"action" json:"action"`
	Comments   string     `bson:"comments,omitempty" json:"comments,omitempty"`
	DelegateTo string     `bson:"delegate_to,omitempty" json:"delegate_to,omitempty"`
	IPAddress  string     `bson:"ip_address,omitempty" json:"ip_address,omitempty"`
	UserAgent  string     `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	Timestamp  time.Time  `bson:"timestamp" json:"timestamp"`
}

// StepStatus is the per-step progress record of a request. Approvers and
// RequiredApprovals are an immutable snapshot taken at request creation;
// later workflow edits never change an in-flight request.
type StepStatus struct {
	StepID             string           `bson:"step_id" json:"step_id"`
	Name               string           `bson:"name" json:"name"`
	Type               StepType         `bson:"type" json:"type"`
	State              StepState        `bson:"state" json:"state"`
	RequiredApprovals  int              `bson:"required_approvals" json:"required_approvals"`
	ReceivedApprovals  int              `bson:"received_approvals" json:"received_approvals"`
	ReceivedRejections int              `bson:"received_rejections" json:"received_rejections"`
	StartedAt          *time.Time       `bson:"started_at,omitempty" json:"started_at,omitempty"`
	CompletedAt        *time.Time       `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	PendingApprovers   []string         `bson:"pending_approvers" json:"pending_approvers"`
	Approvers          []Approver       `bson:"approvers" json:"approvers"` // creation-time snapshot
	Actions            []ApprovalAction `bson:"actions,omitempty" json:"actions,omitempty"`
}

// ApprovalRequest is a business request moving through a workflow's steps.
type ApprovalRequest struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID      primitive.ObjectID `bson:"tenant_id,omitempty" json:"tenant_id,omitempty"`
	WorkflowID    primitive.ObjectID `bson:"workflow_id" json:"workflow_id"`
	RequestNumber string             `bson:"request_number" json:"request_number"` // APR-<year>-<6-digit seq>
	Title         string             `bson:"title,omitempty" json:"title,omitempty"`
	Status        RequestStatus      `bson:"status" json:"status"`
	RequesterID   string             `bson:"requester_id" json:"requester_id"`
	EntityType    string             `bson:"entity_type" json:"entity_type"`
	EntityID      string             `bson:"entity_id" json:"entity_id"`
	Amount        *float64           `bson:"amount,omitempty" json:"amount,omitempty"`
	Currency      string             `bson:"currency,omitempty" json:"currency,omitempty"`

	// Context carries the fields workflow and step conditions evaluate against.
	Context map[string]interface{} `bson:"context,omitempty" json:"context,omitempty"`

	CurrentStep  int              `bson:"current_step" json:"current_step"`
	StepStatuses []StepStatus     `bson:"step_statuses" json:"step_statuses"`
	Actions      []ApprovalAction `bson:"actions,omitempty" json:"actions,omitempty"`

	SubmittedAt *time.Time `bson:"submitted_at,omitempty" json:"submitted_at,omitempty"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	DueAt       *time.Time `bson:"due_at,omitempty" json:"due_at,omitempty"`
	Version     int        `bson:"version" json:"version"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}

// Delegation is a time-bounded grant of one user's approval authority to
// another, optionally scoped by approval type and capped by amount.
type Delegation struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID      primitive.ObjectID `bson:"tenant_id,omitempty" json:"tenant_id,omitempty"`
	DelegatorID   string             `bson:"delegator_id" json:"delegator_id"`
	DelegateID    string             `bson:"delegate_id" json:"delegate_id"`
	StartDate     time.Time          `bson:"start_date" json:"start_date"` // inclusive
	EndDate       time.Time          `bson:"end_date" json:"end_date"`     // inclusive
	ApprovalTypes []string           `bson:"approval_types,omitempty" json:"approval_types,omitempty"` // empty = all types
	MaxAmount     *float64           `bson:"max_amount,omitempty" json:"max_amount,omitempty"`
	Reason        string             `bson:"reason,omitempty" json:"reason,omitempty"`
	Active        bool               `bson:"active" json:"active"`
	RevokedAt     *time.Time         `bson:"revoked_at,omitempty" json:"revoked_at,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}
