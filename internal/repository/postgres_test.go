package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"adcp-sales-agent/pkg/models"
)

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test-db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()

	store := NewPostgresStore(pool)
	require.NoError(t, store.Migrate(ctx))

	tenantA := &models.Tenant{TenantID: "tenant-a", Name: "Tenant A", Subdomain: "a", IsActive: true}
	tenantB := &models.Tenant{TenantID: "tenant-b", Name: "Tenant B", Subdomain: "b", VirtualHost: "b.buyer.com", IsActive: true}
	inactive := &models.Tenant{TenantID: "tenant-off", Name: "Gone", Subdomain: "off", IsActive: false}
	require.NoError(t, store.CreateTenant(ctx, tenantA))
	require.NoError(t, store.CreateTenant(ctx, tenantB))
	require.NoError(t, store.CreateTenant(ctx, inactive))

	newStep := func(t *testing.T, tenantID string, status models.StepStatus, objectID string) *models.WorkflowStep {
		t.Helper()
		c := &models.Context{ContextID: "ctx_" + uuid.New().String(), TenantID: tenantID}
		require.NoError(t, store.CreateContext(ctx, c))
		step := &models.WorkflowStep{
			StepID:    "step_" + uuid.New().String(),
			ContextID: c.ContextID,
			StepType:  "approval",
			ToolName:  "create_media_buy",
			Owner:     "principal-1",
			Status:    status,
			RequestData: map[string]any{
				"operation": "create_media_buy",
			},
		}
		var mappings []models.ObjectWorkflowMapping
		if objectID != "" {
			mappings = append(mappings, models.ObjectWorkflowMapping{
				ID:         "map_" + uuid.New().String(),
				StepID:     step.StepID,
				ObjectType: "media_buy",
				ObjectID:   objectID,
				Action:     "create",
			})
		}
		require.NoError(t, store.CreateWorkflowStep(ctx, step, mappings))
		return step
	}

	t.Run("tenant lookups honor is_active", func(t *testing.T) {
		got, err := store.GetTenantBySubdomain(ctx, "a")
		assert.NoError(t, err)
		assert.Equal(t, "tenant-a", got.TenantID)

		got, err = store.GetTenantByVirtualHost(ctx, "b.buyer.com")
		assert.NoError(t, err)
		assert.Equal(t, "tenant-b", got.TenantID)

		_, err = store.GetTenantBySubdomain(ctx, "off")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = store.GetTenantByID(ctx, "tenant-off")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("principal token lookup", func(t *testing.T) {
		p := &models.Principal{
			PrincipalID: "principal-1",
			TenantID:    "tenant-a",
			Name:        "Buyer One",
			AccessToken: "tok-abc",
			PlatformMappings: map[string]any{
				"mock": map[string]any{"advertiser_id": "adv-9"},
			},
		}
		require.NoError(t, store.CreatePrincipal(ctx, p))

		got, err := store.GetPrincipalByToken(ctx, "tok-abc")
		assert.NoError(t, err)
		assert.Equal(t, "principal-1", got.PrincipalID)
		assert.Equal(t, "tenant-a", got.TenantID)

		_, err = store.GetPrincipalByToken(ctx, "tok-missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("workflow step round trip with mappings", func(t *testing.T) {
		step := newStep(t, "tenant-a", models.StepStatusRequiresApproval, "buy-rt")

		got, mappings, err := store.GetWorkflowStep(ctx, "tenant-a", step.StepID)
		assert.NoError(t, err)
		assert.Equal(t, step.StepID, got.StepID)
		assert.Equal(t, models.StepStatusRequiresApproval, got.Status)
		assert.Equal(t, "create_media_buy", got.RequestData["operation"])
		assert.Nil(t, got.CompletedAt)
		assert.Len(t, mappings, 1)
		assert.Equal(t, "buy-rt", mappings[0].ObjectID)
	})

	t.Run("cross tenant step access is not found", func(t *testing.T) {
		step := newStep(t, "tenant-a", models.StepStatusPending, "")

		_, _, err := store.GetWorkflowStep(ctx, "tenant-b", step.StepID)
		assert.ErrorIs(t, err, ErrNotFound)

		steps, total, err := store.ListWorkflowSteps(ctx, "tenant-b", StepFilter{Limit: 100})
		assert.NoError(t, err)
		assert.Zero(t, total)
		for _, s := range steps {
			assert.NotEqual(t, step.StepID, s.StepID)
		}
	})

	t.Run("list ordering and pagination", func(t *testing.T) {
		tenant := &models.Tenant{TenantID: "tenant-page", Name: "Pager", Subdomain: "page", IsActive: true}
		require.NoError(t, store.CreateTenant(ctx, tenant))

		var ids []string
		for i := 0; i < 5; i++ {
			step := newStep(t, "tenant-page", models.StepStatusPending, "")
			ids = append(ids, step.StepID)
			time.Sleep(5 * time.Millisecond)
		}

		page1, total, err := store.ListWorkflowSteps(ctx, "tenant-page", StepFilter{Limit: 2})
		assert.NoError(t, err)
		assert.Equal(t, 5, total)
		require.Len(t, page1, 2)
		assert.Equal(t, ids[4], page1[0].StepID)
		assert.Equal(t, ids[3], page1[1].StepID)

		page3, total, err := store.ListWorkflowSteps(ctx, "tenant-page", StepFilter{Limit: 2, Offset: 4})
		assert.NoError(t, err)
		assert.Equal(t, 5, total)
		require.Len(t, page3, 1)
		assert.Equal(t, ids[0], page3[0].StepID)
	})

	t.Run("filter by status and object", func(t *testing.T) {
		tenant := &models.Tenant{TenantID: "tenant-filter", Name: "Filter", Subdomain: "filter", IsActive: true}
		require.NoError(t, store.CreateTenant(ctx, tenant))

		pending := newStep(t, "tenant-filter", models.StepStatusPending, "buy-f1")
		newStep(t, "tenant-filter", models.StepStatusRequiresApproval, "buy-f2")

		steps, total, err := store.ListWorkflowSteps(ctx, "tenant-filter", StepFilter{
			Status: models.StepStatusPending, Limit: 10,
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, steps, 1)
		assert.Equal(t, pending.StepID, steps[0].StepID)

		steps, total, err = store.ListWorkflowSteps(ctx, "tenant-filter", StepFilter{
			ObjectType: "media_buy", ObjectID: "buy-f2", Limit: 10,
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, steps, 1)
		assert.NotEqual(t, pending.StepID, steps[0].StepID)
	})

	t.Run("complete step is one shot", func(t *testing.T) {
		step := newStep(t, "tenant-a", models.StepStatusRequiresApproval, "")

		completed, err := store.CompleteWorkflowStep(ctx, "tenant-a", step.StepID, StepCompletion{
			Status:       models.StepStatusCompleted,
			ResponseData: map[string]any{"manually_completed": true},
			CompletedAt:  time.Now().UTC(),
		})
		assert.NoError(t, err)
		assert.Equal(t, models.StepStatusCompleted, completed.Status)
		assert.NotNil(t, completed.CompletedAt)

		_, err = store.CompleteWorkflowStep(ctx, "tenant-a", step.StepID, StepCompletion{
			Status:      models.StepStatusFailed,
			CompletedAt: time.Now().UTC(),
		})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("complete step cross tenant is not found", func(t *testing.T) {
		step := newStep(t, "tenant-a", models.StepStatusPending, "")

		_, err := store.CompleteWorkflowStep(ctx, "tenant-b", step.StepID, StepCompletion{
			Status:      models.StepStatusCompleted,
			CompletedAt: time.Now().UTC(),
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("fail step records error message", func(t *testing.T) {
		step := newStep(t, "tenant-a", models.StepStatusInProgress, "")

		failed, err := store.CompleteWorkflowStep(ctx, "tenant-a", step.StepID, StepCompletion{
			Status:       models.StepStatusFailed,
			ErrorMessage: "Task marked as failed manually",
			CompletedAt:  time.Now().UTC(),
		})
		assert.NoError(t, err)
		assert.Equal(t, models.StepStatusFailed, failed.Status)
		assert.Equal(t, "Task marked as failed manually", failed.ErrorMessage)
		assert.NotNil(t, failed.CompletedAt)
	})

	t.Run("product visibility", func(t *testing.T) {
		open := &models.Product{ProductID: "prod-open", TenantID: "tenant-a", Name: "Open"}
		restricted := &models.Product{
			ProductID: "prod-restricted", TenantID: "tenant-a", Name: "Restricted",
			AllowedPrincipalIDs: []string{"principal-1"},
		}
		require.NoError(t, store.CreateProduct(ctx, open))
		require.NoError(t, store.CreateProduct(ctx, restricted))

		visible, err := store.ListProducts(ctx, "tenant-a", "principal-1")
		assert.NoError(t, err)
		assert.Len(t, visible, 2)

		anonymous, err := store.ListProducts(ctx, "tenant-a", "")
		assert.NoError(t, err)
		require.Len(t, anonymous, 1)
		assert.Equal(t, "prod-open", anonymous[0].ProductID)

		other, err := store.ListProducts(ctx, "tenant-b", "principal-1")
		assert.NoError(t, err)
		assert.Empty(t, other)
	})

	t.Run("media buy lifecycle", func(t *testing.T) {
		buy := &models.MediaBuy{
			MediaBuyID:  "buy-life",
			TenantID:    "tenant-a",
			PrincipalID: "principal-1",
			OrderName:   "Spring Push",
			Status:      models.MediaBuyStatusActive,
			Budget:      1000,
			StartDate:   time.Now().UTC().Add(-48 * time.Hour),
			EndDate:     time.Now().UTC().Add(-24 * time.Hour),
			RawRequest:  map[string]any{"po_number": "PO-1"},
		}
		require.NoError(t, store.CreateMediaBuy(ctx, buy))

		got, err := store.GetMediaBuy(ctx, "tenant-a", "buy-life")
		assert.NoError(t, err)
		assert.Equal(t, models.MediaBuyStatusActive, got.Status)

		_, err = store.GetMediaBuy(ctx, "tenant-b", "buy-life")
		assert.ErrorIs(t, err, ErrNotFound)

		got.Budget = 2000
		assert.NoError(t, store.UpdateMediaBuy(ctx, "tenant-a", got))
		assert.ErrorIs(t, store.UpdateMediaBuy(ctx, "tenant-b", got), ErrNotFound)

		active, err := store.ListActiveMediaBuys(ctx)
		assert.NoError(t, err)
		found := false
		for _, b := range active {
			if b.MediaBuyID == "buy-life" {
				found = true
			}
		}
		assert.True(t, found)

		expired, err := store.ExpireMediaBuys(ctx, time.Now().UTC())
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, expired, int64(1))

		got, err = store.GetMediaBuy(ctx, "tenant-a", "buy-life")
		assert.NoError(t, err)
		assert.Equal(t, models.MediaBuyStatusCompleted, got.Status)
	})

	t.Run("audit log append", func(t *testing.T) {
		entry := &models.AuditLog{
			ID:            uuid.New().String(),
			TenantID:      "tenant-a",
			Operation:     "complete_task",
			PrincipalID:   "principal-1",
			PrincipalName: "Manual Completion",
			Success:       true,
			Details:       map[string]any{"task_id": "step-1"},
		}
		assert.NoError(t, store.AppendAuditLog(ctx, entry))

		var count int
		err := pool.QueryRow(ctx, `SELECT count(*) FROM audit_logs WHERE tenant_id = 'tenant-a'`).Scan(&count)
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, count, 1)
	})
}
