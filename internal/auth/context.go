package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey int

const requestInfoKey contextKey = iota

// RequestInfo carries the raw header values the resolver consumes. It is
// captured once when a request enters the process and travels with the
// request context; nothing here is process-global, so concurrent requests
// cannot observe each other's tenant.
type RequestInfo struct {
	// VirtualHost is the explicit virtual-host indicator
	// (Apx-Incoming-Host), set by the fronting proxy.
	VirtualHost string
	// Host is the standard Host header, used for subdomain fallback.
	Host string
	// Token is the bearer credential from x-adcp-auth or Authorization.
	Token string
}

// RequestInfoFromRequest extracts the resolver inputs from an HTTP request.
func RequestInfoFromRequest(r *http.Request) RequestInfo {
	token := r.Header.Get("x-adcp-auth")
	if token == "" {
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			token = strings.TrimPrefix(h, "Bearer ")
		}
	}
	return RequestInfo{
		VirtualHost: r.Header.Get("Apx-Incoming-Host"),
		Host:        r.Host,
		Token:       token,
	}
}

// WithRequestInfo returns a context carrying the request info.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey, info)
}

// RequestInfoFromContext returns the request info, if any. Resolved
// identities are not re-published into the context; handlers receive the
// principal and tenant as explicit return values from Resolver.Resolve.
func RequestInfoFromContext(ctx context.Context) (RequestInfo, bool) {
	info, ok := ctx.Value(requestInfoKey).(RequestInfo)
	return info, ok
}
