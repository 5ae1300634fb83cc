package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coreos/go-oidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"adcp-sales-agent/internal/repository"
	"adcp-sales-agent/pkg/models"
)

// NoOpLogger for testing
type NoOpLogger struct{}

func (l *NoOpLogger) Debug(msg string, args ...any) {}
func (l *NoOpLogger) Info(msg string, args ...any)  {}
func (l *NoOpLogger) Warn(msg string, args ...any)  {}
func (l *NoOpLogger) Error(msg string, args ...any) {}

// MockStore satisfies repository.Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Ping(ctx context.Context) error { return nil }

func (m *MockStore) GetTenantByID(ctx context.Context, tenantID string) (*models.Tenant, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockStore) GetTenantByVirtualHost(ctx context.Context, virtualHost string) (*models.Tenant, error) {
	args := m.Called(ctx, virtualHost)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockStore) GetTenantBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	args := m.Called(ctx, subdomain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockStore) CreateTenant(ctx context.Context, tenant *models.Tenant) error { return nil }

func (m *MockStore) GetPrincipalByToken(ctx context.Context, accessToken string) (*models.Principal, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Principal), args.Error(1)
}

// Stubs for other interface methods to satisfy repository.Store
func (m *MockStore) CreatePrincipal(ctx context.Context, principal *models.Principal) error {
	return nil
}
func (m *MockStore) CreateContext(ctx context.Context, c *models.Context) error { return nil }
func (m *MockStore) CreateWorkflowStep(ctx context.Context, step *models.WorkflowStep, mappings []models.ObjectWorkflowMapping) error {
	return nil
}
func (m *MockStore) ListWorkflowSteps(ctx context.Context, tenantID string, filter repository.StepFilter) ([]*models.WorkflowStep, int, error) {
	return nil, 0, nil
}
func (m *MockStore) GetWorkflowStep(ctx context.Context, tenantID, stepID string) (*models.WorkflowStep, []models.ObjectWorkflowMapping, error) {
	return nil, nil, nil
}
func (m *MockStore) ListStepMappings(ctx context.Context, stepIDs []string) (map[string][]models.ObjectWorkflowMapping, error) {
	return nil, nil
}
func (m *MockStore) CompleteWorkflowStep(ctx context.Context, tenantID, stepID string, completion repository.StepCompletion) (*models.WorkflowStep, error) {
	return nil, nil
}
func (m *MockStore) ListProducts(ctx context.Context, tenantID, principalID string) ([]*models.Product, error) {
	return nil, nil
}
func (m *MockStore) CreateProduct(ctx context.Context, product *models.Product) error { return nil }
func (m *MockStore) CreateMediaBuy(ctx context.Context, buy *models.MediaBuy) error   { return nil }
func (m *MockStore) GetMediaBuy(ctx context.Context, tenantID, mediaBuyID string) (*models.MediaBuy, error) {
	return nil, nil
}
func (m *MockStore) UpdateMediaBuy(ctx context.Context, tenantID string, buy *models.MediaBuy) error {
	return nil
}
func (m *MockStore) ListActiveMediaBuys(ctx context.Context) ([]*models.MediaBuy, error) {
	return nil, nil
}
func (m *MockStore) ExpireMediaBuys(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}
func (m *MockStore) AppendAuditLog(ctx context.Context, entry *models.AuditLog) error { return nil }

func ctxWithInfo(info RequestInfo) context.Context {
	return WithRequestInfo(context.Background(), info)
}

func TestResolve_OpaqueToken_NoHost(t *testing.T) {
	store := new(MockStore)
	principal := &models.Principal{PrincipalID: "principal-1", TenantID: "tenant-1"}
	tenant := &models.Tenant{TenantID: "tenant-1", Name: "Acme"}
	store.On("GetPrincipalByToken", mock.Anything, "tok-123").Return(principal, nil)
	store.On("GetTenantByID", mock.Anything, "tenant-1").Return(tenant, nil)

	r := NewResolver(store, &NoOpLogger{})
	principalID, resolved, err := r.Resolve(ctxWithInfo(RequestInfo{Token: "tok-123"}), true)

	assert.NoError(t, err)
	assert.Equal(t, "principal-1", principalID)
	assert.Equal(t, "tenant-1", resolved.TenantID)
}

func TestResolve_MissingToken_FailsClosed(t *testing.T) {
	store := new(MockStore)
	r := NewResolver(store, &NoOpLogger{})

	_, _, err := r.Resolve(ctxWithInfo(RequestInfo{}), true)

	assert.ErrorIs(t, err, ErrInvalidToken)
	store.AssertNotCalled(t, "GetPrincipalByToken")
}

func TestResolve_UnknownToken_FailsClosed(t *testing.T) {
	store := new(MockStore)
	store.On("GetPrincipalByToken", mock.Anything, "bogus").Return(nil, repository.ErrNotFound)

	r := NewResolver(store, &NoOpLogger{})
	_, _, err := r.Resolve(ctxWithInfo(RequestInfo{Token: "bogus"}), true)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResolve_CrossTenantToken_TreatedAsInvalid(t *testing.T) {
	store := new(MockStore)
	hostTenant := &models.Tenant{TenantID: "tenant-a"}
	principal := &models.Principal{PrincipalID: "principal-b", TenantID: "tenant-b"}
	store.On("GetTenantByVirtualHost", mock.Anything, "a.example.com").Return(hostTenant, nil)
	store.On("GetPrincipalByToken", mock.Anything, "tok-b").Return(principal, nil)

	r := NewResolver(store, &NoOpLogger{})
	_, _, err := r.Resolve(ctxWithInfo(RequestInfo{
		VirtualHost: "a.example.com",
		Token:       "tok-b",
	}), true)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResolve_VirtualHostBeatsSubdomain(t *testing.T) {
	store := new(MockStore)
	vhTenant := &models.Tenant{TenantID: "tenant-vh"}
	store.On("GetTenantByVirtualHost", mock.Anything, "sports.example.com").Return(vhTenant, nil)

	r := NewResolver(store, &NoOpLogger{})
	_, resolved, err := r.Resolve(ctxWithInfo(RequestInfo{
		VirtualHost: "sports.example.com:8080",
		Host:        "other.example.com",
	}), false)

	assert.NoError(t, err)
	assert.Equal(t, "tenant-vh", resolved.TenantID)
	store.AssertNotCalled(t, "GetTenantBySubdomain")
}

func TestResolve_ReservedSubdomain_Skipped(t *testing.T) {
	store := new(MockStore)
	r := NewResolver(store, &NoOpLogger{})

	_, _, err := r.Resolve(ctxWithInfo(RequestInfo{Host: "www.example.com"}), false)

	assert.ErrorIs(t, err, ErrNoTenant)
	store.AssertNotCalled(t, "GetTenantBySubdomain")
}

func TestResolve_SubdomainFallback_Anonymous(t *testing.T) {
	store := new(MockStore)
	tenant := &models.Tenant{TenantID: "tenant-sports", Subdomain: "sports"}
	store.On("GetTenantByVirtualHost", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound).Maybe()
	store.On("GetTenantBySubdomain", mock.Anything, "sports").Return(tenant, nil)

	r := NewResolver(store, &NoOpLogger{})
	principalID, resolved, err := r.Resolve(ctxWithInfo(RequestInfo{Host: "sports.example.com:443"}), false)

	assert.NoError(t, err)
	assert.Empty(t, principalID)
	assert.Equal(t, "tenant-sports", resolved.TenantID)
}

func TestResolve_InvalidTokenTolerated_WhenNotRequired(t *testing.T) {
	store := new(MockStore)
	tenant := &models.Tenant{TenantID: "tenant-sports", Subdomain: "sports"}
	store.On("GetTenantBySubdomain", mock.Anything, "sports").Return(tenant, nil)
	store.On("GetPrincipalByToken", mock.Anything, "stale").Return(nil, repository.ErrNotFound)

	r := NewResolver(store, &NoOpLogger{})
	principalID, resolved, err := r.Resolve(ctxWithInfo(RequestInfo{
		Host:  "sports.example.com",
		Token: "stale",
	}), false)

	assert.NoError(t, err)
	assert.Empty(t, principalID)
	assert.Equal(t, "tenant-sports", resolved.TenantID)
}

// MockKeySet satisfies oidc.KeySet to bypass signature verification
type MockKeySet struct{}

func (m *MockKeySet) VerifySignature(ctx context.Context, jwtToken string) ([]byte, error) {
	parts := strings.Split(jwtToken, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed jwt")
	}
	return base64.RawURLEncoding.DecodeString(parts[1])
}

func fakeJWT(t *testing.T, claims map[string]interface{}) string {
	t.Helper()
	headerBytes, _ := json.Marshal(map[string]interface{}{"alg": "RS256", "typ": "JWT"})
	payload, _ := json.Marshal(claims)
	return base64.RawURLEncoding.EncodeToString(headerBytes) + "." +
		base64.RawURLEncoding.EncodeToString(payload) + "." +
		base64.RawURLEncoding.EncodeToString([]byte("fakesignature"))
}

func TestResolve_OIDCToken_EmailBecomesPrincipal(t *testing.T) {
	issuer := "https://issuer.test"
	store := new(MockStore)
	tenant := &models.Tenant{TenantID: "tenant-oidc", Subdomain: "oidc", OIDCIssuer: issuer}
	store.On("GetTenantBySubdomain", mock.Anything, "oidc").Return(tenant, nil)

	token := fakeJWT(t, map[string]interface{}{
		"iss":   issuer,
		"aud":   "any-client",
		"sub":   "user-1",
		"email": "buyer@acme.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Add(-time.Minute).Unix(),
	})

	r := NewResolver(store, &NoOpLogger{})
	r.SetVerifier(issuer, oidc.NewVerifier(issuer, &MockKeySet{}, &oidc.Config{SkipClientIDCheck: true}))

	principalID, resolved, err := r.Resolve(ctxWithInfo(RequestInfo{
		Host:  "oidc.example.com",
		Token: token,
	}), true)

	assert.NoError(t, err)
	assert.Equal(t, "buyer@acme.com", principalID)
	assert.Equal(t, "tenant-oidc", resolved.TenantID)
}

func TestRequestInfoFromRequest_HeaderPrecedence(t *testing.T) {
	req := httptest.NewRequest("POST", "http://sports.example.com/mcp", nil)
	req.Header.Set("Apx-Incoming-Host", "custom.buyer.com")
	req.Header.Set("x-adcp-auth", "tok-1")
	req.Header.Set("Authorization", "Bearer tok-2")

	info := RequestInfoFromRequest(req)

	assert.Equal(t, "custom.buyer.com", info.VirtualHost)
	assert.Equal(t, "sports.example.com", info.Host)
	assert.Equal(t, "tok-1", info.Token)
}

func TestRequestInfoFromRequest_AuthorizationFallback(t *testing.T) {
	req := httptest.NewRequest("POST", "http://example.com/mcp", nil)
	req.Header.Set("Authorization", "Bearer tok-2")

	info := RequestInfoFromRequest(req)

	assert.Equal(t, "tok-2", info.Token)
}
