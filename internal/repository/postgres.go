package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"adcp-sales-agent/pkg/models"
)

// PostgresStore is a PostgreSQL implementation of the Store interface.
type PostgresStore struct {
	db *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the schema if it does not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tenants (
			tenant_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			subdomain TEXT NOT NULL DEFAULT '',
			virtual_host TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			human_review_required BOOLEAN NOT NULL DEFAULT FALSE,
			oidc_issuer TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS principals (
			principal_id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL REFERENCES tenants(tenant_id),
			name TEXT NOT NULL,
			access_token TEXT NOT NULL UNIQUE,
			platform_mappings JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS contexts (
			context_id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL REFERENCES tenants(tenant_id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS workflow_steps (
			step_id TEXT PRIMARY KEY,
			context_id TEXT NOT NULL REFERENCES contexts(context_id),
			step_type TEXT NOT NULL DEFAULT '',
			tool_name TEXT NOT NULL DEFAULT '',
			owner TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			request_data JSONB,
			response_data JSONB,
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			completed_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_workflow_steps_context ON workflow_steps(context_id);
		CREATE INDEX IF NOT EXISTS idx_workflow_steps_status ON workflow_steps(status);
		CREATE TABLE IF NOT EXISTS object_workflow_mappings (
			id TEXT PRIMARY KEY,
			step_id TEXT NOT NULL REFERENCES workflow_steps(step_id),
			object_type TEXT NOT NULL,
			object_id TEXT NOT NULL,
			action TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_mappings_step ON object_workflow_mappings(step_id);
		CREATE INDEX IF NOT EXISTS idx_mappings_object ON object_workflow_mappings(object_type, object_id);
		CREATE TABLE IF NOT EXISTS products (
			product_id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL REFERENCES tenants(tenant_id),
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			format_ids TEXT[],
			targeting_template JSONB,
			delivery_type TEXT NOT NULL DEFAULT 'guaranteed',
			price_guidance JSONB,
			allowed_principal_ids TEXT[],
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS media_buys (
			media_buy_id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL REFERENCES tenants(tenant_id),
			principal_id TEXT NOT NULL,
			order_name TEXT NOT NULL DEFAULT '',
			po_number TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			budget DOUBLE PRECISION NOT NULL DEFAULT 0,
			start_date TIMESTAMPTZ NOT NULL,
			end_date TIMESTAMPTZ NOT NULL,
			raw_request JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS audit_logs (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			operation TEXT NOT NULL,
			principal_id TEXT NOT NULL DEFAULT '',
			principal_name TEXT NOT NULL DEFAULT '',
			success BOOLEAN NOT NULL,
			details JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	return err
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

const tenantColumns = `tenant_id, name, subdomain, virtual_host, is_active, human_review_required, oidc_issuer, created_at, updated_at`

func scanTenant(row pgx.Row) (*models.Tenant, error) {
	var t models.Tenant
	err := row.Scan(&t.TenantID, &t.Name, &t.Subdomain, &t.VirtualHost, &t.IsActive,
		&t.HumanReviewRequired, &t.OIDCIssuer, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTenantByID retrieves an active tenant by its ID.
func (s *PostgresStore) GetTenantByID(ctx context.Context, tenantID string) (*models.Tenant, error) {
	return scanTenant(s.db.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE tenant_id = $1 AND is_active`, tenantID))
}

// GetTenantByVirtualHost retrieves an active tenant by exact virtual host.
func (s *PostgresStore) GetTenantByVirtualHost(ctx context.Context, virtualHost string) (*models.Tenant, error) {
	return scanTenant(s.db.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE virtual_host = $1 AND is_active`, virtualHost))
}

// GetTenantBySubdomain retrieves an active tenant by subdomain.
func (s *PostgresStore) GetTenantBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	return scanTenant(s.db.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE subdomain = $1 AND is_active`, subdomain))
}

// CreateTenant inserts a tenant.
func (s *PostgresStore) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	now := time.Now().UTC()
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = now
	}
	tenant.UpdatedAt = now
	_, err := s.db.Exec(ctx,
		`INSERT INTO tenants (tenant_id, name, subdomain, virtual_host, is_active, human_review_required, oidc_issuer, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		tenant.TenantID, tenant.Name, tenant.Subdomain, tenant.VirtualHost, tenant.IsActive,
		tenant.HumanReviewRequired, tenant.OIDCIssuer, tenant.CreatedAt, tenant.UpdatedAt)
	return err
}

// GetPrincipalByToken looks up a principal by its bearer access token. The
// lookup is global; the caller is responsible for checking the principal's
// tenant against any host-resolved tenant.
func (s *PostgresStore) GetPrincipalByToken(ctx context.Context, accessToken string) (*models.Principal, error) {
	var p models.Principal
	err := s.db.QueryRow(ctx,
		`SELECT principal_id, tenant_id, name, access_token, platform_mappings, created_at
		 FROM principals WHERE access_token = $1`, accessToken).
		Scan(&p.PrincipalID, &p.TenantID, &p.Name, &p.AccessToken, &p.PlatformMappings, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePrincipal inserts a principal.
func (s *PostgresStore) CreatePrincipal(ctx context.Context, principal *models.Principal) error {
	if principal.CreatedAt.IsZero() {
		principal.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO principals (principal_id, tenant_id, name, access_token, platform_mappings, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		principal.PrincipalID, principal.TenantID, principal.Name, principal.AccessToken,
		principal.PlatformMappings, principal.CreatedAt)
	return err
}

// CreateContext inserts a workflow context.
func (s *PostgresStore) CreateContext(ctx context.Context, c *models.Context) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO contexts (context_id, tenant_id, created_at) VALUES ($1, $2, $3)`,
		c.ContextID, c.TenantID, c.CreatedAt)
	return err
}

// CreateWorkflowStep inserts a step and its object mappings in one
// transaction so a step never appears without its mappings.
func (s *PostgresStore) CreateWorkflowStep(ctx context.Context, step *models.WorkflowStep, mappings []models.ObjectWorkflowMapping) error {
	if step.CreatedAt.IsZero() {
		step.CreatedAt = time.Now().UTC()
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var errMsg *string
	if step.ErrorMessage != "" {
		errMsg = &step.ErrorMessage
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO workflow_steps (step_id, context_id, step_type, tool_name, owner, status, request_data, response_data, error_message, created_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		step.StepID, step.ContextID, step.StepType, step.ToolName, step.Owner, string(step.Status),
		step.RequestData, step.ResponseData, errMsg, step.CreatedAt, step.CompletedAt)
	if err != nil {
		return err
	}
	for i := range mappings {
		m := &mappings[i]
		if m.CreatedAt.IsZero() {
			m.CreatedAt = step.CreatedAt
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO object_workflow_mappings (id, step_id, object_type, object_id, action, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			m.ID, m.StepID, m.ObjectType, m.ObjectID, m.Action, m.CreatedAt)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

const stepColumns = `ws.step_id, ws.context_id, ws.step_type, ws.tool_name, ws.owner, ws.status,
	ws.request_data, ws.response_data, COALESCE(ws.error_message, ''), ws.created_at, ws.completed_at`

func scanStep(row pgx.Row) (*models.WorkflowStep, error) {
	var (
		step   models.WorkflowStep
		status string
	)
	err := row.Scan(&step.StepID, &step.ContextID, &step.StepType, &step.ToolName, &step.Owner,
		&status, &step.RequestData, &step.ResponseData, &step.ErrorMessage, &step.CreatedAt, &step.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	step.Status = models.StepStatus(status)
	return &step, nil
}

// ListWorkflowSteps returns one page of steps for the tenant plus the total
// count over the filtered, unpaginated query. Ordering is newest first with
// step_id as a stable tie breaker.
func (s *PostgresStore) ListWorkflowSteps(ctx context.Context, tenantID string, filter StepFilter) ([]*models.WorkflowStep, int, error) {
	where := []string{"c.tenant_id = $1"}
	args := []any{tenantID}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("ws.status = $%d", len(args)))
	}
	if filter.ObjectType != "" {
		args = append(args, filter.ObjectType)
		cond := fmt.Sprintf("m.object_type = $%d", len(args))
		if filter.ObjectID != "" {
			args = append(args, filter.ObjectID)
			cond += fmt.Sprintf(" AND m.object_id = $%d", len(args))
		}
		where = append(where, "EXISTS (SELECT 1 FROM object_workflow_mappings m WHERE m.step_id = ws.step_id AND "+cond+")")
	}

	base := ` FROM workflow_steps ws JOIN contexts c ON ws.context_id = c.context_id WHERE ` + strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRow(ctx, `SELECT count(*)`+base, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limitArgs := append(args, filter.Limit, filter.Offset)
	query := `SELECT ` + stepColumns + base +
		fmt.Sprintf(` ORDER BY ws.created_at DESC, ws.step_id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)

	rows, err := s.db.Query(ctx, query, limitArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var steps []*models.WorkflowStep
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, 0, err
		}
		steps = append(steps, step)
	}
	return steps, total, rows.Err()
}

// GetWorkflowStep retrieves one step with its object mappings. A step
// belonging to another tenant yields ErrNotFound.
func (s *PostgresStore) GetWorkflowStep(ctx context.Context, tenantID, stepID string) (*models.WorkflowStep, []models.ObjectWorkflowMapping, error) {
	step, err := scanStep(s.db.QueryRow(ctx,
		`SELECT `+stepColumns+`
		 FROM workflow_steps ws JOIN contexts c ON ws.context_id = c.context_id
		 WHERE ws.step_id = $1 AND c.tenant_id = $2`, stepID, tenantID))
	if err != nil {
		return nil, nil, err
	}

	byStep, err := s.ListStepMappings(ctx, []string{stepID})
	if err != nil {
		return nil, nil, err
	}
	return step, byStep[stepID], nil
}

// ListStepMappings returns object mappings for the given steps keyed by
// step ID.
func (s *PostgresStore) ListStepMappings(ctx context.Context, stepIDs []string) (map[string][]models.ObjectWorkflowMapping, error) {
	result := make(map[string][]models.ObjectWorkflowMapping, len(stepIDs))
	if len(stepIDs) == 0 {
		return result, nil
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, step_id, object_type, object_id, action, created_at
		 FROM object_workflow_mappings WHERE step_id = ANY($1) ORDER BY created_at`, stepIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var m models.ObjectWorkflowMapping
		if err := rows.Scan(&m.ID, &m.StepID, &m.ObjectType, &m.ObjectID, &m.Action, &m.CreatedAt); err != nil {
			return nil, err
		}
		result[m.StepID] = append(result[m.StepID], m)
	}
	return result, rows.Err()
}

// CompleteWorkflowStep performs the terminal state transition as a single
// conditional UPDATE. The WHERE clause carries both the tenant join and the
// precondition on the current status, so two concurrent completions cannot
// both pass the check: the row lock taken by the first UPDATE serializes
// them and the loser matches zero rows.
func (s *PostgresStore) CompleteWorkflowStep(ctx context.Context, tenantID, stepID string, completion StepCompletion) (*models.WorkflowStep, error) {
	var (
		row pgx.Row
	)
	switch completion.Status {
	case models.StepStatusCompleted:
		row = s.db.QueryRow(ctx,
			`UPDATE workflow_steps ws
			 SET status = $3, completed_at = $4, response_data = $5, error_message = NULL
			 FROM contexts c
			 WHERE ws.step_id = $2 AND ws.context_id = c.context_id AND c.tenant_id = $1
			   AND ws.status IN ('pending', 'in_progress', 'requires_approval')
			 RETURNING `+stepColumns,
			tenantID, stepID, string(completion.Status), completion.CompletedAt, completion.ResponseData)
	case models.StepStatusFailed:
		row = s.db.QueryRow(ctx,
			`UPDATE workflow_steps ws
			 SET status = $3, completed_at = $4, error_message = $5,
			     response_data = COALESCE($6, ws.response_data)
			 FROM contexts c
			 WHERE ws.step_id = $2 AND ws.context_id = c.context_id AND c.tenant_id = $1
			   AND ws.status IN ('pending', 'in_progress', 'requires_approval')
			 RETURNING `+stepColumns,
			tenantID, stepID, string(completion.Status), completion.CompletedAt,
			completion.ErrorMessage, completion.ResponseData)
	default:
		return nil, fmt.Errorf("completion status must be terminal, got %q", completion.Status)
	}

	step, err := scanStep(row)
	if err == nil {
		return step, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	// Zero rows matched: either the step does not exist for this tenant or
	// it is already terminal. Look again to tell the cases apart.
	current, _, lookupErr := s.GetWorkflowStep(ctx, tenantID, stepID)
	if lookupErr != nil {
		return nil, lookupErr
	}
	return nil, fmt.Errorf("step %s is already %s: %w", stepID, current.Status, ErrInvalidTransition)
}

// ListProducts returns the tenant's products visible to the principal. A
// NULL allowed_principal_ids means unrestricted.
func (s *PostgresStore) ListProducts(ctx context.Context, tenantID, principalID string) ([]*models.Product, error) {
	rows, err := s.db.Query(ctx,
		`SELECT product_id, tenant_id, name, description, format_ids, targeting_template,
		        delivery_type, price_guidance, allowed_principal_ids, created_at
		 FROM products
		 WHERE tenant_id = $1 AND (allowed_principal_ids IS NULL OR $2 = ANY(allowed_principal_ids))
		 ORDER BY name`, tenantID, principalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		var (
			p        models.Product
			delivery string
		)
		if err := rows.Scan(&p.ProductID, &p.TenantID, &p.Name, &p.Description, &p.FormatIDs,
			&p.TargetingTemplate, &delivery, &p.PriceGuidance, &p.AllowedPrincipalIDs, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.DeliveryType = models.DeliveryType(delivery)
		products = append(products, &p)
	}
	return products, rows.Err()
}

// CreateProduct inserts a product.
func (s *PostgresStore) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO products (product_id, tenant_id, name, description, format_ids, targeting_template, delivery_type, price_guidance, allowed_principal_ids, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		product.ProductID, product.TenantID, product.Name, product.Description, product.FormatIDs,
		product.TargetingTemplate, string(product.DeliveryType), product.PriceGuidance,
		product.AllowedPrincipalIDs, product.CreatedAt)
	return err
}

const mediaBuyColumns = `media_buy_id, tenant_id, principal_id, order_name, po_number, status, budget, start_date, end_date, raw_request, created_at, updated_at`

func scanMediaBuy(row pgx.Row) (*models.MediaBuy, error) {
	var (
		b      models.MediaBuy
		status string
	)
	err := row.Scan(&b.MediaBuyID, &b.TenantID, &b.PrincipalID, &b.OrderName, &b.PONumber,
		&status, &b.Budget, &b.StartDate, &b.EndDate, &b.RawRequest, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	b.Status = models.MediaBuyStatus(status)
	return &b, nil
}

// CreateMediaBuy inserts a media buy.
func (s *PostgresStore) CreateMediaBuy(ctx context.Context, buy *models.MediaBuy) error {
	now := time.Now().UTC()
	if buy.CreatedAt.IsZero() {
		buy.CreatedAt = now
	}
	buy.UpdatedAt = now
	_, err := s.db.Exec(ctx,
		`INSERT INTO media_buys (`+mediaBuyColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		buy.MediaBuyID, buy.TenantID, buy.PrincipalID, buy.OrderName, buy.PONumber,
		string(buy.Status), buy.Budget, buy.StartDate, buy.EndDate, buy.RawRequest,
		buy.CreatedAt, buy.UpdatedAt)
	return err
}

// GetMediaBuy retrieves a media buy scoped to the tenant.
func (s *PostgresStore) GetMediaBuy(ctx context.Context, tenantID, mediaBuyID string) (*models.MediaBuy, error) {
	return scanMediaBuy(s.db.QueryRow(ctx,
		`SELECT `+mediaBuyColumns+` FROM media_buys WHERE media_buy_id = $1 AND tenant_id = $2`,
		mediaBuyID, tenantID))
}

// UpdateMediaBuy persists mutable media buy fields, scoped to the tenant.
func (s *PostgresStore) UpdateMediaBuy(ctx context.Context, tenantID string, buy *models.MediaBuy) error {
	buy.UpdatedAt = time.Now().UTC()
	tag, err := s.db.Exec(ctx,
		`UPDATE media_buys
		 SET order_name = $3, po_number = $4, status = $5, budget = $6,
		     start_date = $7, end_date = $8, raw_request = $9, updated_at = $10
		 WHERE media_buy_id = $1 AND tenant_id = $2`,
		buy.MediaBuyID, tenantID, buy.OrderName, buy.PONumber, string(buy.Status),
		buy.Budget, buy.StartDate, buy.EndDate, buy.RawRequest, buy.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListActiveMediaBuys returns active media buys across all tenants. Used by
// the delivery webhook scheduler, which runs outside any request scope.
func (s *PostgresStore) ListActiveMediaBuys(ctx context.Context) ([]*models.MediaBuy, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+mediaBuyColumns+` FROM media_buys WHERE status = 'active' ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buys []*models.MediaBuy
	for rows.Next() {
		buy, err := scanMediaBuy(rows)
		if err != nil {
			return nil, err
		}
		buys = append(buys, buy)
	}
	return buys, rows.Err()
}

// ExpireMediaBuys marks active media buys past their end date as completed
// and returns the number of rows affected.
func (s *PostgresStore) ExpireMediaBuys(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE media_buys SET status = 'completed', updated_at = $1
		 WHERE status = 'active' AND end_date < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// AppendAuditLog appends one audit record.
func (s *PostgresStore) AppendAuditLog(ctx context.Context, entry *models.AuditLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO audit_logs (id, tenant_id, operation, principal_id, principal_name, success, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.TenantID, entry.Operation, entry.PrincipalID, entry.PrincipalName,
		entry.Success, entry.Details, entry.CreatedAt)
	return err
}
