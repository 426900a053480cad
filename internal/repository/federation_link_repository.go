package repository

import (
	"app/internal/domain/model"
	"context"
)

// 外部IdPとの紐付けの保存・取得
// 見つからない場合は (nil, nil) を返す。
type FederationLinkRepository interface {
	// (provider, providerUserID) で1件取得する。
	FindByProviderUserID(ctx context.Context, provider string, providerUserID string) (*model.FederationLink, error)
	//新規リンク作成。同じ組が既にあれば何もしない（コールバック重複対策）。
	Create(ctx context.Context, link *model.FederationLink) error
}
