package authcore

import "context"

type contextKey int

const (
	clientIPKey contextKey = iota
	deviceInfoKey
)

// WithClientIP attaches the caller's network address to the context. The
// engine records it on sessions and audit events and, when IP throttling is
// enabled, feeds it to the rate limiter.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// WithDeviceInfo attaches a free-form device descriptor (user agent,
// client build) that is stored on the session row.
func WithDeviceInfo(ctx context.Context, info string) context.Context {
	return context.WithValue(ctx, deviceInfoKey, info)
}

func clientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}

func deviceInfo(ctx context.Context) string {
	info, _ := ctx.Value(deviceInfoKey).(string)
	return info
}
