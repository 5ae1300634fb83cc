package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"adcp-sales-agent/internal/repository"
	"adcp-sales-agent/pkg/models"
)

// CreateMediaBuyParams are the inputs to CreateMediaBuy.
type CreateMediaBuyParams struct {
	OrderName   string
	PONumber    string
	ProductIDs  []string
	TotalBudget float64
	StartDate   time.Time
	EndDate     time.Time
}

// CreateMediaBuyReceipt acknowledges media buy creation. When the tenant
// requires human review the buy stays pending and TaskID names the approval
// step to complete.
type CreateMediaBuyReceipt struct {
	MediaBuyID string `json:"media_buy_id"`
	Status     string `json:"status"`
	TaskID     string `json:"task_id"`
	Message    string `json:"message"`
}

// UpdateMediaBuyParams are the inputs to UpdateMediaBuy. Nil fields are
// left unchanged.
type UpdateMediaBuyParams struct {
	MediaBuyID string
	OrderName  *string
	Budget     *float64
	Paused     *bool
	EndDate    *time.Time
}

// UpdateMediaBuyReceipt acknowledges a media buy update.
type UpdateMediaBuyReceipt struct {
	MediaBuyID string `json:"media_buy_id"`
	Status     string `json:"status"`
	TaskID     string `json:"task_id"`
	Message    string `json:"message"`
}

// MediaBuyService creates and updates media buys, recording each mutation
// as a workflow step linked to the buy through an object mapping.
type MediaBuyService struct {
	store   repository.Store
	auditor *Auditor
	logger  Logger
}

// NewMediaBuyService creates a MediaBuyService.
func NewMediaBuyService(store repository.Store, auditor *Auditor, logger Logger) *MediaBuyService {
	return &MediaBuyService{store: store, auditor: auditor, logger: logger}
}

// CreateMediaBuy validates the order, persists it, and records the creation
// as a workflow step. Tenants with human review enabled get a
// requires_approval step and a pending buy; otherwise the buy activates
// immediately and the step is created already completed.
func (s *MediaBuyService) CreateMediaBuy(ctx context.Context, tenant *models.Tenant, principalID string, params CreateMediaBuyParams) (*CreateMediaBuyReceipt, error) {
	if principalID == "" {
		return nil, fmt.Errorf("create_media_buy requires an authenticated principal: %w", ErrInvalidArgument)
	}
	if len(params.ProductIDs) == 0 {
		return nil, fmt.Errorf("at least one product_id is required: %w", ErrInvalidArgument)
	}
	if params.TotalBudget <= 0 {
		return nil, fmt.Errorf("total_budget must be positive: %w", ErrInvalidArgument)
	}
	if !params.EndDate.After(params.StartDate) {
		return nil, fmt.Errorf("end_date must be after start_date: %w", ErrInvalidArgument)
	}

	// Every referenced product must exist and be visible to the principal.
	visible, err := s.store.ListProducts(ctx, tenant.TenantID, principalID)
	if err != nil {
		return nil, err
	}
	visibleIDs := make(map[string]bool, len(visible))
	for _, p := range visible {
		visibleIDs[p.ProductID] = true
	}
	for _, id := range params.ProductIDs {
		if !visibleIDs[id] {
			return nil, fmt.Errorf("product %s: %w", id, repository.ErrNotFound)
		}
	}

	buy := &models.MediaBuy{
		MediaBuyID:  "buy_" + uuid.New().String(),
		TenantID:    tenant.TenantID,
		PrincipalID: principalID,
		OrderName:   params.OrderName,
		PONumber:    params.PONumber,
		Status:      models.MediaBuyStatusActive,
		Budget:      params.TotalBudget,
		StartDate:   params.StartDate,
		EndDate:     params.EndDate,
		RawRequest: map[string]any{
			"order_name":   params.OrderName,
			"po_number":    params.PONumber,
			"product_ids":  params.ProductIDs,
			"total_budget": params.TotalBudget,
		},
	}
	if tenant.HumanReviewRequired {
		buy.Status = models.MediaBuyStatusPendingApproval
	}
	if err := s.store.CreateMediaBuy(ctx, buy); err != nil {
		return nil, err
	}

	stepID, err := s.recordStep(ctx, tenant, principalID, "create_media_buy", buy, map[string]any{
		"operation":    "create_media_buy",
		"media_buy_id": buy.MediaBuyID,
		"request":      map[string]any{"po_number": params.PONumber},
	}, "create", tenant.HumanReviewRequired)
	if err != nil {
		return nil, err
	}

	s.auditor.LogOperation(ctx, tenant.TenantID, "create_media_buy", principalID, principalID, true, map[string]any{
		"media_buy_id": buy.MediaBuyID,
		"status":       string(buy.Status),
		"budget":       buy.Budget,
	})

	message := fmt.Sprintf("Media buy %s created", buy.MediaBuyID)
	if tenant.HumanReviewRequired {
		message = fmt.Sprintf("Media buy %s awaiting approval (task %s)", buy.MediaBuyID, stepID)
	}
	return &CreateMediaBuyReceipt{
		MediaBuyID: buy.MediaBuyID,
		Status:     string(buy.Status),
		TaskID:     stepID,
		Message:    message,
	}, nil
}

// UpdateMediaBuy applies a partial update to a media buy owned by the
// principal. Buys of other principals or tenants are reported as not found.
func (s *MediaBuyService) UpdateMediaBuy(ctx context.Context, tenant *models.Tenant, principalID string, params UpdateMediaBuyParams) (*UpdateMediaBuyReceipt, error) {
	if principalID == "" {
		return nil, fmt.Errorf("update_media_buy requires an authenticated principal: %w", ErrInvalidArgument)
	}

	buy, err := s.store.GetMediaBuy(ctx, tenant.TenantID, params.MediaBuyID)
	if err != nil {
		return nil, err
	}
	if buy.PrincipalID != principalID {
		return nil, repository.ErrNotFound
	}

	if params.OrderName != nil {
		buy.OrderName = *params.OrderName
	}
	if params.Budget != nil {
		if *params.Budget <= 0 {
			return nil, fmt.Errorf("budget must be positive: %w", ErrInvalidArgument)
		}
		buy.Budget = *params.Budget
	}
	if params.EndDate != nil {
		if !params.EndDate.After(buy.StartDate) {
			return nil, fmt.Errorf("end_date must be after start_date: %w", ErrInvalidArgument)
		}
		buy.EndDate = *params.EndDate
	}
	if params.Paused != nil {
		switch buy.Status {
		case models.MediaBuyStatusActive, models.MediaBuyStatusPaused:
			if *params.Paused {
				buy.Status = models.MediaBuyStatusPaused
			} else {
				buy.Status = models.MediaBuyStatusActive
			}
		default:
			return nil, fmt.Errorf("media buy %s is %s and cannot be paused or resumed: %w",
				buy.MediaBuyID, buy.Status, ErrInvalidArgument)
		}
	}

	if err := s.store.UpdateMediaBuy(ctx, tenant.TenantID, buy); err != nil {
		return nil, err
	}

	stepID, err := s.recordStep(ctx, tenant, principalID, "update_media_buy", buy, map[string]any{
		"operation":    "update_media_buy",
		"media_buy_id": buy.MediaBuyID,
	}, "update", false)
	if err != nil {
		// The buy is already updated; the missing step is a gap in the
		// trail, not a failed operation.
		s.logger.Error("failed to record update workflow step", "media_buy_id", buy.MediaBuyID, "error", err)
		stepID = ""
	}

	s.auditor.LogOperation(ctx, tenant.TenantID, "update_media_buy", principalID, principalID, true, map[string]any{
		"media_buy_id": buy.MediaBuyID,
		"status":       string(buy.Status),
	})

	return &UpdateMediaBuyReceipt{
		MediaBuyID: buy.MediaBuyID,
		Status:     string(buy.Status),
		TaskID:     stepID,
		Message:    fmt.Sprintf("Media buy %s updated", buy.MediaBuyID),
	}, nil
}

// recordStep writes the workflow context, step, and object mapping for a
// media buy mutation. Approval steps stay requires_approval; everything
// else is recorded as already completed with completed_at set.
func (s *MediaBuyService) recordStep(ctx context.Context, tenant *models.Tenant, principalID, toolName string, buy *models.MediaBuy, requestData map[string]any, action string, needsApproval bool) (string, error) {
	wfCtx := &models.Context{
		ContextID: "ctx_" + uuid.New().String(),
		TenantID:  tenant.TenantID,
	}
	if err := s.store.CreateContext(ctx, wfCtx); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	step := &models.WorkflowStep{
		StepID:      "step_" + uuid.New().String(),
		ContextID:   wfCtx.ContextID,
		StepType:    "media_buy_" + action,
		ToolName:    toolName,
		Owner:       principalID,
		Status:      models.StepStatusRequiresApproval,
		RequestData: requestData,
	}
	if !needsApproval {
		step.Status = models.StepStatusCompleted
		step.CompletedAt = &now
		step.ResponseData = map[string]any{
			"media_buy_id": buy.MediaBuyID,
			"status":       string(buy.Status),
		}
	}

	mapping := models.ObjectWorkflowMapping{
		ID:         "map_" + uuid.New().String(),
		StepID:     step.StepID,
		ObjectType: "media_buy",
		ObjectID:   buy.MediaBuyID,
		Action:     action,
	}
	if err := s.store.CreateWorkflowStep(ctx, step, []models.ObjectWorkflowMapping{mapping}); err != nil {
		return "", err
	}
	return step.StepID, nil
}
