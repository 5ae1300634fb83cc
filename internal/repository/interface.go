package repository

import (
	"context"
	"errors"
	"time"

	"adcp-sales-agent/pkg/models"
)

// Sentinel errors returned by Store implementations. Callers discriminate
// with errors.Is.
var (
	// ErrNotFound is returned for absent records and, deliberately, for
	// records that exist under a different tenant. The two cases must be
	// indistinguishable to prevent tenant enumeration.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidTransition is returned when completing a workflow step that
	// is already in a terminal status.
	ErrInvalidTransition = errors.New("invalid workflow step transition")
)

// StepFilter narrows ListWorkflowSteps. Filters are conjunctive. ObjectID
// is only meaningful together with ObjectType; the service layer rejects
// ObjectID on its own before the query is built.
type StepFilter struct {
	Status     models.StepStatus
	ObjectType string
	ObjectID   string
	Limit      int
	Offset     int
}

// StepCompletion carries the mutation applied by CompleteWorkflowStep.
type StepCompletion struct {
	Status       models.StepStatus
	ResponseData map[string]any
	ErrorMessage string
	CompletedAt  time.Time
}

// Store is the persistence interface for the sales agent. All reads and
// writes that touch tenant-owned data take the tenant ID explicitly; there
// is no ambient tenant state at this layer.
type Store interface {
	Ping(ctx context.Context) error

	// Tenants
	GetTenantByID(ctx context.Context, tenantID string) (*models.Tenant, error)
	GetTenantByVirtualHost(ctx context.Context, virtualHost string) (*models.Tenant, error)
	GetTenantBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error)
	CreateTenant(ctx context.Context, tenant *models.Tenant) error

	// Principals
	GetPrincipalByToken(ctx context.Context, accessToken string) (*models.Principal, error)
	CreatePrincipal(ctx context.Context, principal *models.Principal) error

	// Workflow contexts and steps
	CreateContext(ctx context.Context, c *models.Context) error
	CreateWorkflowStep(ctx context.Context, step *models.WorkflowStep, mappings []models.ObjectWorkflowMapping) error
	ListWorkflowSteps(ctx context.Context, tenantID string, filter StepFilter) ([]*models.WorkflowStep, int, error)
	GetWorkflowStep(ctx context.Context, tenantID, stepID string) (*models.WorkflowStep, []models.ObjectWorkflowMapping, error)
	ListStepMappings(ctx context.Context, stepIDs []string) (map[string][]models.ObjectWorkflowMapping, error)
	CompleteWorkflowStep(ctx context.Context, tenantID, stepID string, completion StepCompletion) (*models.WorkflowStep, error)

	// Products
	ListProducts(ctx context.Context, tenantID, principalID string) ([]*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error

	// Media buys
	CreateMediaBuy(ctx context.Context, buy *models.MediaBuy) error
	GetMediaBuy(ctx context.Context, tenantID, mediaBuyID string) (*models.MediaBuy, error)
	UpdateMediaBuy(ctx context.Context, tenantID string, buy *models.MediaBuy) error
	ListActiveMediaBuys(ctx context.Context) ([]*models.MediaBuy, error)
	ExpireMediaBuys(ctx context.Context, now time.Time) (int64, error)

	// Audit trail, append-only
	AppendAuditLog(ctx context.Context, entry *models.AuditLog) error
}
