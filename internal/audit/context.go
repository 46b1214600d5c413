package audit

import (
	"context"
	"strings"
)

// RequestInfo is the server-observed origin of a request.
type RequestInfo struct {
	IP        string
	UserAgent string
	Endpoint  string
	Method    string
}

type requestInfoKey struct{}

const maxUserAgentLen = 500

// WithRequestInfo attaches the request origin to ctx. HTTP middleware resolves
// the real client IP before calling this; Record trusts nothing else.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	info.IP = strings.TrimSpace(info.IP)
	if len(info.UserAgent) > maxUserAgentLen {
		info.UserAgent = info.UserAgent[:maxUserAgentLen]
	}
	return context.WithValue(ctx, requestInfoKey{}, info)
}

func RequestInfoFrom(ctx context.Context) (RequestInfo, bool) {
	if ctx == nil {
		return RequestInfo{}, false
	}
	info, ok := ctx.Value(requestInfoKey{}).(RequestInfo)
	return info, ok
}
