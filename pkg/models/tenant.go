package models

import (
	"time"
)

// Tenant is an isolated customer environment and the root of all data
// partitioning. Every principal, context, product, and (transitively)
// workflow step belongs to exactly one tenant.
type Tenant struct {
	TenantID    string `json:"tenant_id" db:"tenant_id"`
	Name        string `json:"name" db:"name"`
	Subdomain   string `json:"subdomain" db:"subdomain"`
	VirtualHost string `json:"virtual_host,omitempty" db:"virtual_host"`
	IsActive    bool   `json:"is_active" db:"is_active"`

	// When set, media buy creation parks its workflow step in
	// requires_approval instead of auto-completing it.
	HumanReviewRequired bool `json:"human_review_required" db:"human_review_required"`

	// Optional per-tenant OIDC issuer. When configured, JWT-shaped bearer
	// tokens are verified against this issuer instead of the principals table.
	OIDCIssuer string `json:"oidc_issuer,omitempty" db:"oidc_issuer"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Principal is an authenticated actor (advertiser/agent) within a tenant,
// looked up by its bearer access token on each request.
type Principal struct {
	PrincipalID      string         `json:"principal_id" db:"principal_id"`
	TenantID         string         `json:"tenant_id" db:"tenant_id"`
	Name             string         `json:"name" db:"name"`
	AccessToken      string         `json:"-" db:"access_token"`
	PlatformMappings map[string]any `json:"platform_mappings,omitempty" db:"platform_mappings"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
}
