package models

import (
	"time"
)

// StepStatus is the lifecycle status of a workflow step.
type StepStatus string

const (
	StepStatusPending          StepStatus = "pending"
	StepStatusInProgress       StepStatus = "in_progress"
	StepStatusRequiresApproval StepStatus = "requires_approval"
	StepStatusCompleted        StepStatus = "completed"
	StepStatusFailed           StepStatus = "failed"
)

// IsTerminal reports whether the status is completed or failed. Terminal
// steps are immutable; completion attempts against them are rejected.
func (s StepStatus) IsTerminal() bool {
	return s == StepStatusCompleted || s == StepStatusFailed
}

// Valid reports whether s is one of the known lifecycle statuses.
func (s StepStatus) Valid() bool {
	switch s {
	case StepStatusPending, StepStatusInProgress, StepStatusRequiresApproval,
		StepStatusCompleted, StepStatusFailed:
		return true
	}
	return false
}

// Context groups the workflow steps belonging to one conversation/session.
// Steps carry no tenant_id of their own; tenant scope is always derived
// through this join.
type Context struct {
	ContextID string    `json:"context_id" db:"context_id"`
	TenantID  string    `json:"tenant_id" db:"tenant_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// WorkflowStep is the unit of asynchronous or human-in-the-loop work.
// Steps are never deleted; they form the audit trail of the system.
type WorkflowStep struct {
	StepID       string         `json:"step_id" db:"step_id"`
	ContextID    string         `json:"context_id" db:"context_id"`
	StepType     string         `json:"step_type" db:"step_type"`
	ToolName     string         `json:"tool_name" db:"tool_name"`
	Owner        string         `json:"owner" db:"owner"`
	Status       StepStatus     `json:"status" db:"status"`
	RequestData  map[string]any `json:"request_data,omitempty" db:"request_data"`
	ResponseData map[string]any `json:"response_data,omitempty" db:"response_data"`
	ErrorMessage string         `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
}

// ObjectWorkflowMapping links a workflow step to a domain object it affects.
// Rows are written alongside the step they document and never mutated.
type ObjectWorkflowMapping struct {
	ID         string    `json:"id" db:"id"`
	StepID     string    `json:"step_id" db:"step_id"`
	ObjectType string    `json:"object_type" db:"object_type"`
	ObjectID   string    `json:"object_id" db:"object_id"`
	Action     string    `json:"action" db:"action"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
