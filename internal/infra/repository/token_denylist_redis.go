package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	domainrepo "app/internal/repository"

	goredis "github.com/redis/go-redis/v9"
)

// key: blacklist:refresh-token:<sha256(raw)>
// 生のtokenはRedisに入れない（流出してもそのまま使えない）。
const denylistKeyPrefix = "blacklist:refresh-token:"

type tokenDenylistRedis struct {
	client *goredis.Client
}

// Redis実装
func NewTokenDenylistRedis(client *goredis.Client) domainrepo.TokenDenylist {
	return &tokenDenylistRedis{client: client}
}

// tokenのハッシュを登録します。
// TTLはtokenの残り有効期限と同じにする＝自然期限より長く残らない。
func (r *tokenDenylistRedis) Block(ctx context.Context, rawToken string, ttl time.Duration) error {
	// 残りが無いtokenは自然失効に任せる
	if ttl <= 0 {
		return nil
	}

	return r.client.Set(ctx, denylistKey(rawToken), "1", ttl).Err()
}

// 登録済みかどうかを確認します。
// Redisに届かない場合はerrorをそのまま返す（呼び出し側が安全側に倒す）。
func (r *tokenDenylistRedis) IsBlocked(ctx context.Context, rawToken string) (bool, error) {
	n, err := r.client.Exists(ctx, denylistKey(rawToken)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func denylistKey(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return denylistKeyPrefix + hex.EncodeToString(sum[:])
}
