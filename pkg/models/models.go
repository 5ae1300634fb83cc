// Package models defines the domain models for the sales agent service.
package models

import (
	"time"
)

// DeliveryType describes how inventory in a product is delivered.
type DeliveryType string

const (
	DeliveryTypeGuaranteed    DeliveryType = "guaranteed"
	DeliveryTypeNonGuaranteed DeliveryType = "non_guaranteed"
)

// Product is a sellable inventory unit owned by a tenant. A nil
// AllowedPrincipalIDs means the product is visible to every principal.
type Product struct {
	ProductID           string         `json:"product_id" db:"product_id"`
	TenantID            string         `json:"tenant_id" db:"tenant_id"`
	Name                string         `json:"name" db:"name"`
	Description         string         `json:"description,omitempty" db:"description"`
	FormatIDs           []string       `json:"format_ids,omitempty" db:"format_ids"`
	TargetingTemplate   map[string]any `json:"targeting_template,omitempty" db:"targeting_template"`
	DeliveryType        DeliveryType   `json:"delivery_type" db:"delivery_type"`
	PriceGuidance       map[string]any `json:"price_guidance,omitempty" db:"price_guidance"`
	AllowedPrincipalIDs []string       `json:"allowed_principal_ids,omitempty" db:"allowed_principal_ids"`
	CreatedAt           time.Time      `json:"created_at" db:"created_at"`
}

// MediaBuyStatus is the lifecycle status of a media buy order.
type MediaBuyStatus string

const (
	MediaBuyStatusPendingApproval MediaBuyStatus = "pending_approval"
	MediaBuyStatusActive          MediaBuyStatus = "active"
	MediaBuyStatusPaused          MediaBuyStatus = "paused"
	MediaBuyStatusCompleted       MediaBuyStatus = "completed"
)

// MediaBuy is a domain order against advertising inventory. It is one of
// the object types workflow steps can reference.
type MediaBuy struct {
	MediaBuyID  string         `json:"media_buy_id" db:"media_buy_id"`
	TenantID    string         `json:"tenant_id" db:"tenant_id"`
	PrincipalID string         `json:"principal_id" db:"principal_id"`
	OrderName   string         `json:"order_name" db:"order_name"`
	PONumber    string         `json:"po_number,omitempty" db:"po_number"`
	Status      MediaBuyStatus `json:"status" db:"status"`
	Budget      float64        `json:"budget" db:"budget"`
	StartDate   time.Time      `json:"start_date" db:"start_date"`
	EndDate     time.Time      `json:"end_date" db:"end_date"`
	RawRequest  map[string]any `json:"raw_request,omitempty" db:"raw_request"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// FormatType categorizes creative formats.
type FormatType string

const (
	FormatTypeDisplay FormatType = "display"
	FormatTypeVideo   FormatType = "video"
	FormatTypeAudio   FormatType = "audio"
)

// Format is a creative format exposed by the discovery endpoint.
type Format struct {
	FormatID     string     `json:"format_id"`
	Name         string     `json:"name"`
	Type         FormatType `json:"type"`
	IsStandard   bool       `json:"is_standard"`
	IsResponsive bool       `json:"is_responsive,omitempty"`
	Width        int        `json:"width,omitempty"`
	Height       int        `json:"height,omitempty"`
	DurationMs   int        `json:"duration_ms,omitempty"`
}

// AuditLog is an append-only record of a privileged operation. Writing it
// is best-effort: a failed append never rolls back the operation it
// documents.
type AuditLog struct {
	ID            string         `json:"id" db:"id"`
	TenantID      string         `json:"tenant_id" db:"tenant_id"`
	Operation     string         `json:"operation" db:"operation"`
	PrincipalID   string         `json:"principal_id" db:"principal_id"`
	PrincipalName string         `json:"principal_name" db:"principal_name"`
	Success       bool           `json:"success" db:"success"`
	Details       map[string]any `json:"details,omitempty" db:"details"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
}
