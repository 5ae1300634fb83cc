package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/coreos/go-oidc"

	"adcp-sales-agent/internal/repository"
	"adcp-sales-agent/pkg/models"
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var (
	// ErrNoTenant is returned when no tenant can be resolved from the
	// request. Callers must surface this; requests are never defaulted to
	// a guessable tenant.
	ErrNoTenant = errors.New("no tenant context available; check x-adcp-auth token and host headers")

	// ErrInvalidToken is returned in fail-closed mode when the bearer token
	// is missing or not recognized.
	ErrInvalidToken = errors.New("invalid or missing authentication token")
)

// reservedSubdomains never resolve to a tenant via the Host header.
var reservedSubdomains = map[string]bool{
	"localhost":        true,
	"www":              true,
	"admin":            true,
	"sales-agent":      true,
	"adcp-sales-agent": true,
}

// Resolver maps inbound request headers to a (principal, tenant) pair.
//
// Two credential forms are accepted: opaque access tokens looked up in the
// principals table, and JWT-shaped tokens verified against the tenant's
// configured OIDC issuer with the token email standing in as the principal
// identity.
type Resolver struct {
	store  repository.Store
	logger Logger

	mu        sync.Mutex
	verifiers map[string]*oidc.IDTokenVerifier
}

// NewResolver creates a Resolver backed by the given store.
func NewResolver(store repository.Store, logger Logger) *Resolver {
	return &Resolver{
		store:     store,
		logger:    logger,
		verifiers: make(map[string]*oidc.IDTokenVerifier),
	}
}

// Resolve derives the principal and tenant for the request carried by ctx.
//
// With requireValidToken=true (mutating/privileged operations) a missing or
// unrecognized token fails closed with ErrInvalidToken. With false
// (discovery endpoints) an invalid token is treated as anonymous and only
// host-based tenant resolution applies. In both modes an unresolvable
// tenant yields ErrNoTenant.
func (r *Resolver) Resolve(ctx context.Context, requireValidToken bool) (string, *models.Tenant, error) {
	info, _ := RequestInfoFromContext(ctx)

	tenant := r.tenantFromHost(ctx, info)

	principalID, tenant, err := r.resolveToken(ctx, info.Token, tenant, requireValidToken)
	if err != nil {
		return "", nil, err
	}
	if tenant == nil {
		return "", nil, ErrNoTenant
	}
	return principalID, tenant, nil
}

// tenantFromHost resolves the tenant from the virtual-host header or, as a
// fallback, the Host header subdomain. Reserved subdomains are skipped.
func (r *Resolver) tenantFromHost(ctx context.Context, info RequestInfo) *models.Tenant {
	if info.VirtualHost != "" {
		tenant, err := r.store.GetTenantByVirtualHost(ctx, stripPort(info.VirtualHost))
		if err == nil {
			return tenant
		}
		if !errors.Is(err, repository.ErrNotFound) {
			r.logger.Error("virtual host tenant lookup failed", "virtual_host", info.VirtualHost, "error", err)
		}
	}

	if sub := subdomain(info.Host); sub != "" && !reservedSubdomains[sub] {
		tenant, err := r.store.GetTenantBySubdomain(ctx, sub)
		if err == nil {
			return tenant
		}
		if !errors.Is(err, repository.ErrNotFound) {
			r.logger.Error("subdomain tenant lookup failed", "subdomain", sub, "error", err)
		}
	}
	return nil
}

func (r *Resolver) resolveToken(ctx context.Context, token string, tenant *models.Tenant, requireValidToken bool) (string, *models.Tenant, error) {
	if token == "" {
		if requireValidToken {
			return "", nil, fmt.Errorf("missing bearer token: %w", ErrInvalidToken)
		}
		return "", tenant, nil
	}

	if tenant != nil && tenant.OIDCIssuer != "" && looksLikeJWT(token) {
		if email, err := r.verifyOIDC(ctx, tenant.OIDCIssuer, token); err == nil {
			return email, tenant, nil
		} else if requireValidToken {
			return "", nil, fmt.Errorf("oidc verification failed: %w", ErrInvalidToken)
		} else {
			r.logger.Debug("oidc verification failed, treating as anonymous", "error", err)
			return "", tenant, nil
		}
	}

	principal, err := r.store.GetPrincipalByToken(ctx, token)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return "", nil, err
		}
		if requireValidToken {
			return "", nil, ErrInvalidToken
		}
		return "", tenant, nil
	}

	// A token belonging to a different tenant than the one the host
	// resolved to is treated exactly like an unrecognized token.
	if tenant != nil && principal.TenantID != tenant.TenantID {
		if requireValidToken {
			return "", nil, ErrInvalidToken
		}
		return "", tenant, nil
	}

	if tenant == nil {
		tenant, err = r.store.GetTenantByID(ctx, principal.TenantID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				// Principal of a deactivated tenant: the token is unusable.
				if requireValidToken {
					return "", nil, ErrInvalidToken
				}
				return "", nil, nil
			}
			return "", nil, err
		}
	}
	return principal.PrincipalID, tenant, nil
}

// verifyOIDC validates a JWT against the tenant's issuer and returns the
// email claim as the principal identity. Verifiers are cached per issuer.
func (r *Resolver) verifyOIDC(ctx context.Context, issuer, rawToken string) (string, error) {
	verifier, err := r.verifierFor(ctx, issuer)
	if err != nil {
		return "", err
	}
	idToken, err := verifier.Verify(ctx, rawToken)
	if err != nil {
		return "", err
	}
	var claims struct {
		Email string `json:"email"`
		Sub   string `json:"sub"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return "", err
	}
	if claims.Email != "" {
		return claims.Email, nil
	}
	return claims.Sub, nil
}

func (r *Resolver) verifierFor(ctx context.Context, issuer string) (*oidc.IDTokenVerifier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.verifiers[issuer]; ok {
		return v, nil
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, err
	}
	// Access tokens carry audiences we do not control, so the client ID
	// check is skipped; the issuer signature check is what matters here.
	v := provider.Verifier(&oidc.Config{SkipClientIDCheck: true})
	r.verifiers[issuer] = v
	return v, nil
}

// SetVerifier installs a verifier for an issuer. Used by tests.
func (r *Resolver) SetVerifier(issuer string, v *oidc.IDTokenVerifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verifiers[issuer] = v
}

func looksLikeJWT(token string) bool {
	return strings.Count(token, ".") == 2
}

func stripPort(host string) string {
	if i := strings.LastIndex(host, ":"); i >= 0 && !strings.Contains(host[i+1:], "]") {
		return host[:i]
	}
	return host
}

// subdomain extracts the first label of a multi-label host, or "" when the
// host has no subdomain.
func subdomain(host string) string {
	host = stripPort(host)
	if !strings.Contains(host, ".") {
		return ""
	}
	return strings.Split(host, ".")[0]
}
