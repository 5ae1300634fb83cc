package services

import (
	"context"

	"adcp-sales-agent/internal/repository"
	"adcp-sales-agent/pkg/models"
)

// ProductService exposes the tenant product catalog.
type ProductService struct {
	store   repository.Store
	auditor *Auditor
}

// NewProductService creates a ProductService.
func NewProductService(store repository.Store, auditor *Auditor) *ProductService {
	return &ProductService{store: store, auditor: auditor}
}

// GetProducts returns the tenant's products visible to the principal.
// Products with a nil allowed-principals list are visible to everyone,
// including anonymous discovery callers.
func (s *ProductService) GetProducts(ctx context.Context, tenant *models.Tenant, principalID string) ([]*models.Product, error) {
	products, err := s.store.ListProducts(ctx, tenant.TenantID, principalID)
	if err != nil {
		return nil, err
	}

	name := principalID
	if name == "" {
		name = "anonymous"
	}
	s.auditor.LogOperation(ctx, tenant.TenantID, "get_products", principalID, name, true, map[string]any{
		"product_count": len(products),
	})
	return products, nil
}
