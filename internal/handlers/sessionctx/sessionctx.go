package sessionctx

import (
	"context"

	"github.com/nkiryanov/doorly/internal/service/session"
)

// Info is what the gatekeeper learned about the request
type Info struct {
	State  session.State
	Route  session.RouteClass
	Locale string

	// True if credentials were renewed during this request
	Refreshed bool
}

// Authenticated reports whether the request carries a usable session
func (i Info) Authenticated() bool {
	return i.State == session.StateValid || i.Refreshed
}

type ctxKey string

const infoKey ctxKey = "session"

// Create a new context with the session info
func New(ctx context.Context, info Info) context.Context {
	return context.WithValue(ctx, infoKey, info)
}

// Extract the session info from the context
func FromContext(ctx context.Context) (Info, bool) {
	info, ok := ctx.Value(infoKey).(Info)
	return info, ok
}
