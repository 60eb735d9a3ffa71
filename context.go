package authcore

import (
	"context"

	"github.com/MrEthical07/authcore/model"
)

type clientIPContextKey struct{}
type tenantIDContextKey struct{}
type userAgentContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. It feeds risk
// analysis, session context checks and audit entries.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithTenantID attaches a tenant identifier to ctx. An explicit tenant on
// a request takes precedence.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDContextKey{}, tenantID)
}

// WithUserAgent attaches the User-Agent string to ctx.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, userAgent)
}

func requestFromContext(ctx context.Context) model.RequestContext {
	if ctx == nil {
		return model.RequestContext{}
	}
	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	ua, _ := ctx.Value(userAgentContextKey{}).(string)
	return model.RequestContext{IP: ip, UserAgent: ua}
}

func tenantIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	tenantID, _ := ctx.Value(tenantIDContextKey{}).(string)
	return tenantID
}
