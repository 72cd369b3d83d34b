package core

import "context"

type contextKey string

const ctxKeyOrigin contextKey = "import_origin"

// Origin describes who submitted an import. It is attached to the run's log
// lines and never persisted.
type Origin struct {
	Source    string // "http" or "cli"
	IPAddress string
	UserAgent string
}

// ContextWithOrigin records the submitter of the imports run under ctx.
func ContextWithOrigin(ctx context.Context, o Origin) context.Context {
	return context.WithValue(ctx, ctxKeyOrigin, o)
}

// OriginFromContext returns the recorded origin, or the zero Origin.
func OriginFromContext(ctx context.Context) Origin {
	if o, ok := ctx.Value(ctxKeyOrigin).(Origin); ok {
		return o
	}
	return Origin{}
}

// logArgs returns the non-empty origin fields as slog key/value pairs.
func (o Origin) logArgs() []any {
	var args []any
	if o.Source != "" {
		args = append(args, "source", o.Source)
	}
	if o.IPAddress != "" {
		args = append(args, "ip", o.IPAddress)
	}
	if o.UserAgent != "" {
		args = append(args, "user_agent", o.UserAgent)
	}
	return args
}
