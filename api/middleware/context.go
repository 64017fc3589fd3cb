package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/forkline/forkline-backend/internal/ownership"
	"github.com/forkline/forkline-backend/pkg/enums"
)

type contextKey string

const (
	ctxAccountID contextKey = "account_id"
	ctxRole      contextKey = "actor_role"
	ctxAccessID  contextKey = "access_id"
)

// ActorFromContext rebuilds the authenticated actor seeded by Auth.
func ActorFromContext(ctx context.Context) ownership.Actor {
	actor := ownership.Actor{}
	if ctx == nil {
		return actor
	}
	if v, ok := ctx.Value(ctxAccountID).(string); ok {
		if id, err := uuid.Parse(v); err == nil {
			actor.AccountID = id
		}
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		actor.Role = enums.AccountRole(v)
	}
	return actor
}

// AccessIDFromContext returns the session identifier of the request's token.
func AccessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		return v
	}
	return ""
}
