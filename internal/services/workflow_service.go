package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"adcp-sales-agent/internal/repository"
	"adcp-sales-agent/pkg/models"
)

// ErrInvalidArgument is returned for request parameters rejected before any
// database access.
var ErrInvalidArgument = errors.New("invalid argument")

const (
	defaultTaskLimit = 20
	maxTaskLimit     = 100
)

// ListTasksParams are the filters accepted by ListTasks. Filters combine
// conjunctively.
type ListTasksParams struct {
	Status     string
	ObjectType string
	ObjectID   string
	Limit      int
	Offset     int
}

// AssociatedObject is a domain object a task touches.
type AssociatedObject struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	Action    string `json:"action"`
	CreatedAt string `json:"created_at,omitempty"`
}

// TaskSummary is a best-effort projection of the step's request payload.
type TaskSummary struct {
	Operation  string `json:"operation,omitempty"`
	MediaBuyID string `json:"media_buy_id,omitempty"`
	PONumber   string `json:"po_number,omitempty"`
}

// Task is one entry in a task listing.
type Task struct {
	TaskID            string             `json:"task_id"`
	Status            models.StepStatus  `json:"status"`
	Type              string             `json:"type"`
	ToolName          string             `json:"tool_name"`
	Owner             string             `json:"owner"`
	ContextID         string             `json:"context_id"`
	CreatedAt         string             `json:"created_at"`
	CompletedAt       string             `json:"completed_at,omitempty"`
	ErrorMessage      string             `json:"error_message,omitempty"`
	AssociatedObjects []AssociatedObject `json:"associated_objects"`
	Summary           *TaskSummary       `json:"summary,omitempty"`
}

// TaskPage is a page of tasks plus pagination metadata.
type TaskPage struct {
	Tasks   []Task `json:"tasks"`
	Total   int    `json:"total"`
	Offset  int    `json:"offset"`
	Limit   int    `json:"limit"`
	HasMore bool   `json:"has_more"`
}

// TaskDetail is the full record for a single task.
type TaskDetail struct {
	TaskID            string             `json:"task_id"`
	ContextID         string             `json:"context_id"`
	Status            models.StepStatus  `json:"status"`
	Type              string             `json:"type"`
	ToolName          string             `json:"tool_name"`
	Owner             string             `json:"owner"`
	CreatedAt         string             `json:"created_at"`
	CompletedAt       string             `json:"completed_at,omitempty"`
	RequestData       map[string]any     `json:"request_data,omitempty"`
	ResponseData      map[string]any     `json:"response_data,omitempty"`
	ErrorMessage      string             `json:"error_message,omitempty"`
	AssociatedObjects []AssociatedObject `json:"associated_objects"`
}

// CompleteTaskParams are the inputs to CompleteTask.
type CompleteTaskParams struct {
	TaskID       string
	Status       string
	ResponseData map[string]any
	ErrorMessage string
}

// CompletionReceipt acknowledges a terminal state transition.
type CompletionReceipt struct {
	TaskID      string `json:"task_id"`
	Status      string `json:"status"`
	Message     string `json:"message"`
	CompletedAt string `json:"completed_at"`
	CompletedBy string `json:"completed_by"`
}

// WorkflowService implements the human-in-the-loop task queue over the
// workflow step store. Every operation takes the tenant explicitly; there
// is no ambient tenant state.
type WorkflowService struct {
	store   repository.Store
	auditor *Auditor
	logger  Logger
}

// NewWorkflowService creates a WorkflowService.
func NewWorkflowService(store repository.Store, auditor *Auditor, logger Logger) *WorkflowService {
	return &WorkflowService{store: store, auditor: auditor, logger: logger}
}

// ListTasks returns one page of the tenant's tasks, newest first.
func (s *WorkflowService) ListTasks(ctx context.Context, tenant *models.Tenant, params ListTasksParams) (*TaskPage, error) {
	if params.Status != "" && !models.StepStatus(params.Status).Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", params.Status, ErrInvalidArgument)
	}
	// Filtering by object_id alone cannot be expressed against the mapping
	// table without an object_type; it is rejected rather than silently
	// ignored.
	if params.ObjectID != "" && params.ObjectType == "" {
		return nil, fmt.Errorf("object_id filter requires object_type: %w", ErrInvalidArgument)
	}
	if params.Offset < 0 {
		return nil, fmt.Errorf("offset must be non-negative: %w", ErrInvalidArgument)
	}
	if params.Limit <= 0 {
		params.Limit = defaultTaskLimit
	}
	if params.Limit > maxTaskLimit {
		params.Limit = maxTaskLimit
	}

	steps, total, err := s.store.ListWorkflowSteps(ctx, tenant.TenantID, repository.StepFilter{
		Status:     models.StepStatus(params.Status),
		ObjectType: params.ObjectType,
		ObjectID:   params.ObjectID,
		Limit:      params.Limit,
		Offset:     params.Offset,
	})
	if err != nil {
		return nil, err
	}

	stepIDs := make([]string, len(steps))
	for i, step := range steps {
		stepIDs[i] = step.StepID
	}
	mappings, err := s.store.ListStepMappings(ctx, stepIDs)
	if err != nil {
		return nil, err
	}

	page := &TaskPage{
		Tasks:   make([]Task, 0, len(steps)),
		Total:   total,
		Offset:  params.Offset,
		Limit:   params.Limit,
		HasMore: params.Offset+params.Limit < total,
	}
	for _, step := range steps {
		page.Tasks = append(page.Tasks, formatTask(step, mappings[step.StepID]))
	}
	return page, nil
}

// GetTask returns the full record for one task. A task belonging to another
// tenant is indistinguishable from an absent one.
func (s *WorkflowService) GetTask(ctx context.Context, tenant *models.Tenant, taskID string) (*TaskDetail, error) {
	step, stepMappings, err := s.store.GetWorkflowStep(ctx, tenant.TenantID, taskID)
	if err != nil {
		return nil, err
	}

	detail := &TaskDetail{
		TaskID:            step.StepID,
		ContextID:         step.ContextID,
		Status:            step.Status,
		Type:              step.StepType,
		ToolName:          step.ToolName,
		Owner:             step.Owner,
		CreatedAt:         step.CreatedAt.UTC().Format(time.RFC3339),
		RequestData:       step.RequestData,
		ResponseData:      step.ResponseData,
		ErrorMessage:      step.ErrorMessage,
		AssociatedObjects: formatMappings(stepMappings, true),
	}
	if step.CompletedAt != nil {
		detail.CompletedAt = step.CompletedAt.UTC().Format(time.RFC3339)
	}
	return detail, nil
}

// CompleteTask drives a task to a terminal status. An omitted status means
// completed. The precondition (the task is not already terminal) is enforced
// inside the store's conditional update, so concurrent completions cannot
// both succeed.
func (s *WorkflowService) CompleteTask(ctx context.Context, tenant *models.Tenant, principalID string, params CompleteTaskParams) (*CompletionReceipt, error) {
	status := models.StepStatus(params.Status)
	if params.Status == "" {
		status = models.StepStatusCompleted
	}
	if status != models.StepStatusCompleted && status != models.StepStatusFailed {
		return nil, fmt.Errorf("invalid status %q, must be %q or %q: %w",
			params.Status, models.StepStatusCompleted, models.StepStatusFailed, ErrInvalidArgument)
	}

	completion := repository.StepCompletion{
		Status:      status,
		CompletedAt: time.Now().UTC(),
	}
	if status == models.StepStatusCompleted {
		completion.ResponseData = params.ResponseData
		if completion.ResponseData == nil {
			completion.ResponseData = map[string]any{
				"manually_completed": true,
				"completed_by":       principalID,
			}
		}
	} else {
		completion.ErrorMessage = params.ErrorMessage
		if completion.ErrorMessage == "" {
			completion.ErrorMessage = "Task marked as failed manually"
		}
		completion.ResponseData = params.ResponseData
	}

	step, err := s.store.CompleteWorkflowStep(ctx, tenant.TenantID, params.TaskID, completion)
	if err != nil {
		return nil, err
	}

	if status == models.StepStatusCompleted {
		s.applyCompletionEffects(ctx, tenant, params.TaskID)
	}

	s.auditor.LogOperation(ctx, tenant.TenantID, "complete_task", principalID, "Manual Completion", true, map[string]any{
		"task_id":    params.TaskID,
		"new_status": string(status),
		"task_type":  step.StepType,
	})

	return &CompletionReceipt{
		TaskID:      params.TaskID,
		Status:      string(status),
		Message:     fmt.Sprintf("Task %s marked as %s", params.TaskID, status),
		CompletedAt: completion.CompletedAt.Format(time.RFC3339),
		CompletedBy: principalID,
	}, nil
}

// applyCompletionEffects propagates an approval to the objects the step
// references. Today that means activating media buys that were waiting on
// the approval. Best-effort: the step is already terminal, so a failure
// here is logged rather than unwound.
func (s *WorkflowService) applyCompletionEffects(ctx context.Context, tenant *models.Tenant, taskID string) {
	mappings, err := s.store.ListStepMappings(ctx, []string{taskID})
	if err != nil {
		s.logger.Error("failed to load mappings for completed task", "task_id", taskID, "error", err)
		return
	}
	for _, m := range mappings[taskID] {
		if m.ObjectType != "media_buy" || m.Action != "create" {
			continue
		}
		buy, err := s.store.GetMediaBuy(ctx, tenant.TenantID, m.ObjectID)
		if err != nil {
			s.logger.Error("failed to load media buy for approval", "media_buy_id", m.ObjectID, "error", err)
			continue
		}
		if buy.Status != models.MediaBuyStatusPendingApproval {
			continue
		}
		buy.Status = models.MediaBuyStatusActive
		if err := s.store.UpdateMediaBuy(ctx, tenant.TenantID, buy); err != nil {
			s.logger.Error("failed to activate approved media buy", "media_buy_id", m.ObjectID, "error", err)
		}
	}
}

func formatTask(step *models.WorkflowStep, stepMappings []models.ObjectWorkflowMapping) Task {
	task := Task{
		TaskID:            step.StepID,
		Status:            step.Status,
		Type:              step.StepType,
		ToolName:          step.ToolName,
		Owner:             step.Owner,
		ContextID:         step.ContextID,
		CreatedAt:         step.CreatedAt.UTC().Format(time.RFC3339),
		AssociatedObjects: formatMappings(stepMappings, false),
		Summary:           summarize(step.RequestData),
	}
	if step.CompletedAt != nil {
		task.CompletedAt = step.CompletedAt.UTC().Format(time.RFC3339)
	}
	if step.Status == models.StepStatusFailed {
		task.ErrorMessage = step.ErrorMessage
	}
	return task
}

func formatMappings(stepMappings []models.ObjectWorkflowMapping, withTimestamps bool) []AssociatedObject {
	objects := make([]AssociatedObject, 0, len(stepMappings))
	for _, m := range stepMappings {
		obj := AssociatedObject{Type: m.ObjectType, ID: m.ObjectID, Action: m.Action}
		if withTimestamps {
			obj.CreatedAt = m.CreatedAt.UTC().Format(time.RFC3339)
		}
		objects = append(objects, obj)
	}
	return objects
}

// summarize projects the fields humans scan a task queue by. The request
// payload is caller-supplied and open-ended, so every lookup is tolerant of
// missing or mistyped fields.
func summarize(requestData map[string]any) *TaskSummary {
	if requestData == nil {
		return nil
	}
	summary := &TaskSummary{
		Operation:  stringField(requestData, "operation"),
		MediaBuyID: stringField(requestData, "media_buy_id"),
	}
	if nested, ok := requestData["request"].(map[string]any); ok {
		summary.PONumber = stringField(nested, "po_number")
	}
	if *summary == (TaskSummary{}) {
		return nil
	}
	return summary
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}
