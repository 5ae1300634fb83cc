package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"adcp-sales-agent/internal/config"
	"adcp-sales-agent/internal/logging"
	"adcp-sales-agent/internal/repository"
	"adcp-sales-agent/pkg/models"
)

// Seeds a default tenant, a test principal, and a small product catalog.
// Safe to run repeatedly; existing rows are left alone.
func main() {
	ctx := context.Background()
	logger := logging.NewLogger(true)
	defer logger.Sync()

	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pool.Close()

	store := repository.NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("Failed to migrate schema: %v", err)
	}

	// 1. Ensure default tenant exists
	tenant, err := store.GetTenantBySubdomain(ctx, "default")
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Fatalf("Failed to look up tenant: %v", err)
		}
		tenant = &models.Tenant{
			TenantID:  "default",
			Name:      "Default Tenant",
			Subdomain: "default",
			IsActive:  true,
		}
		if err := store.CreateTenant(ctx, tenant); err != nil {
			log.Fatalf("Failed to create tenant: %v", err)
		}
		logger.Info("created default tenant", "tenant_id", tenant.TenantID)
	} else {
		logger.Info("found existing tenant", "tenant_id", tenant.TenantID)
	}

	// 2. Ensure test principal exists
	const testToken = "test-token"
	if _, err := store.GetPrincipalByToken(ctx, testToken); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Fatalf("Failed to look up principal: %v", err)
		}
		principal := &models.Principal{
			PrincipalID: "test-principal",
			TenantID:    tenant.TenantID,
			Name:        "Test Principal",
			AccessToken: testToken,
			PlatformMappings: map[string]any{
				"mock": map[string]any{"advertiser_id": "adv-1"},
			},
		}
		if err := store.CreatePrincipal(ctx, principal); err != nil {
			log.Fatalf("Failed to create principal: %v", err)
		}
		logger.Info("created test principal", "principal_id", principal.PrincipalID)
	}

	// 3. Seed product catalog
	// Listed as the test principal so restricted products show up too.
	existing, err := store.ListProducts(ctx, tenant.TenantID, "test-principal")
	if err != nil {
		log.Fatalf("Failed to list products: %v", err)
	}
	existingIDs := make(map[string]bool, len(existing))
	for _, p := range existing {
		existingIDs[p.ProductID] = true
	}

	products := []*models.Product{
		{
			ProductID:    "prod_prime_time_video",
			TenantID:     tenant.TenantID,
			Name:         "Prime Time Video",
			Description:  "Guaranteed video inventory in evening prime time slots",
			FormatIDs:    []string{"video_standard"},
			DeliveryType: models.DeliveryTypeGuaranteed,
			TargetingTemplate: map[string]any{
				"daypart": "prime_time",
			},
			PriceGuidance: map[string]any{
				"floor": 25.0, "p50": 35.0, "p90": 45.0,
			},
		},
		{
			ProductID:    "prod_run_of_site_display",
			TenantID:     tenant.TenantID,
			Name:         "Run of Site Display",
			Description:  "Non-guaranteed display across all site sections",
			FormatIDs:    []string{"display_300x250", "display_728x90"},
			DeliveryType: models.DeliveryTypeNonGuaranteed,
			TargetingTemplate: map[string]any{
				"geo": "all",
			},
			PriceGuidance: map[string]any{
				"floor": 2.0, "p50": 4.5, "p90": 8.0,
			},
		},
		{
			ProductID:           "prod_premium_audio",
			TenantID:            tenant.TenantID,
			Name:                "Premium Audio",
			Description:         "Podcast and streaming audio, restricted to approved buyers",
			FormatIDs:           []string{"audio_standard_30s"},
			DeliveryType:        models.DeliveryTypeGuaranteed,
			AllowedPrincipalIDs: []string{"test-principal"},
			PriceGuidance: map[string]any{
				"floor": 15.0, "p50": 20.0, "p90": 28.0,
			},
		},
	}

	for _, p := range products {
		if existingIDs[p.ProductID] {
			continue
		}
		if err := store.CreateProduct(ctx, p); err != nil {
			log.Fatalf("Failed to create product %s: %v", p.ProductID, err)
		}
		logger.Info("created product", "product_id", p.ProductID)
	}

	logger.Info("seed complete")
}
