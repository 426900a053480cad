package redis

import (
	"context"
	"time"

	"app/internal/config"

	goredis "github.com/redis/go-redis/v9"
)

// NewClient はRedisへ接続して疎通確認まで行う。
// denylistは認証の安全側判定に使うので、起動時に繋がらなければ失敗させる。
func NewClient(cfg config.Config) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}
