// Package actorctx carries the authenticated caller on a context.Context so
// code below the HTTP layer can attribute its work.
package actorctx

import "context"

type ctxKey struct{}

type Actor struct {
	UserID int64
	Email  string
	Role   string
}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func From(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	return a, ok && a.UserID != 0
}

func UserIDFrom(ctx context.Context) (int64, bool) {
	a, ok := From(ctx)
	return a.UserID, ok
}
