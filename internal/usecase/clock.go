package usecase

import (
	"context"
	"time"
)

// 現在の時間
type Clock interface {
	Now() time.Time
}

type actorKey struct{}

// SystemActor はログイン主体が無いときの操作者
const SystemActor = "system"

// WithActor は操作者のemailをcontextに入れる（監査ログ・在庫履歴用）
func WithActor(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, actorKey{}, email)
}

func ActorFrom(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok && v != "" {
		return v
	}
	return SystemActor
}
