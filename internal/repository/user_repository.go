package repository

import (
	"app/internal/domain/model"
	"context"
)

// 会員の保存・取得を約束
// 見つからない場合は (nil, nil) を返す。
type UserRepository interface {
	//新規会員作成
	Create(ctx context.Context, user *model.User) error
	// IDから会員を1件取得する。
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	//メールから会員を1件取得する。
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// 会員情報の更新=>アクティブかどうか・ロールの変更・最後のログイン更新など
	Update(ctx context.Context, user *model.User) error
}
