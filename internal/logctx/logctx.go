// Package logctx carries per-request logging fields through a context.Context
// value rather than thread-local storage.
//
// The reference implementation (src/sovereign/logs.py) accumulates request-id,
// xds client/server version, resource names, and envoy version in a
// threading.local() queue flushed once when the response finishes. spec.md §9
// flags that as a "process-wide log queue" that should be replaced by an
// explicit per-request value threaded through the handler and middleware —
// this package is that replacement.
package logctx

import "context"

type fieldsKey struct{}

// Fields holds the per-request attributes a handler accumulates over the
// life of one request. It is not safe for concurrent mutation by more than
// one goroutine — exactly one request owns its Fields.
type Fields struct {
	RequestID         string
	XDSClientVersion  string
	XDSServerVersion  string
	XDSResourceNames  []string
	XDSEnvoyVersion   string
	XDSType           string
	ClientIP          string
	Error             string
	ErrorDetail       string
}

// New attaches a fresh, empty Fields to ctx and returns the derived context
// along with a pointer to the Fields so the caller can populate it as the
// request progresses.
func New(ctx context.Context) (context.Context, *Fields) {
	f := &Fields{}
	return context.WithValue(ctx, fieldsKey{}, f), f
}

// From returns the Fields attached to ctx, or a fresh zero-value Fields if
// none was attached (callers should not panic on missing log context, they
// should just log less).
func From(ctx context.Context) *Fields {
	if f, ok := ctx.Value(fieldsKey{}).(*Fields); ok {
		return f
	}
	return &Fields{}
}

// Args renders the fields as alternating key/value pairs suitable for
// slog.Logger.Info/Error/etc. variadic "args ...any" parameters.
func (f *Fields) Args() []any {
	args := []any{"request_id", f.RequestID}
	if f.XDSType != "" {
		args = append(args, "xds_type", f.XDSType)
	}
	if f.XDSEnvoyVersion != "" {
		args = append(args, "envoy_version", f.XDSEnvoyVersion)
	}
	if f.XDSClientVersion != "" || f.XDSServerVersion != "" {
		args = append(args, "version", f.XDSClientVersion+" -> "+f.XDSServerVersion)
	}
	if len(f.XDSResourceNames) > 0 {
		args = append(args, "resources", f.XDSResourceNames)
	}
	if f.ClientIP != "" {
		args = append(args, "client_ip", f.ClientIP)
	}
	if f.Error != "" {
		args = append(args, "error", f.Error)
	}
	if f.ErrorDetail != "" {
		args = append(args, "detail", f.ErrorDetail)
	}
	return args
}
