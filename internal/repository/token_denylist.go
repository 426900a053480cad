package repository

import (
	"context"
	"time"
)

// TokenDenylistは明示的に失効させたrefresh tokenの共有denylist。
// 全サーバーインスタンスから同じ結果が見える必要がある（Redis実装を想定）。
type TokenDenylist interface {
	// tokenのハッシュを残り有効期限と同じTTLで登録する。生のtokenは保存しない。
	Block(ctx context.Context, rawToken string, ttl time.Duration) error
	// 登録済みかどうか。ストアに届かない場合はerrorを返す（「未登録扱い」にしない）。
	IsBlocked(ctx context.Context, rawToken string) (bool, error)
}
