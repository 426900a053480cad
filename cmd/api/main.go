package main

import (
	"log"
	"time"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/handler"
	"app/internal/infra/db"
	infraRedis "app/internal/infra/redis"
	infraRepo "app/internal/infra/repository"
	"app/internal/server"
	"app/internal/token"
	"app/internal/usecase"
	"app/internal/validator"

	"github.com/joho/godotenv"
)

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

func main() {
	//.envは無ければ無いでよい（本番は環境変数で渡す）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.FederationLink{},
	); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	//denylist用Redis接続
	redisClient, err := infraRedis.NewClient(cfg)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}

	//Repository（GORM/Redis実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	linkRepo := infraRepo.NewFederationLinkGormRepository(gormDB)
	denylist := infraRepo.NewTokenDenylistRedis(redisClient)

	//usecaseに渡す部品
	clock := &realClock{}
	codec := token.NewCodec(cfg.JWTSecret, clock)
	issuer := token.NewIssuer(codec, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authValidator := validator.NewAuthValidator()

	//Usecase生成
	authUC := usecase.NewAuthUsecase(userRepo, denylist, codec, issuer, authValidator, clock)
	oauthUC := usecase.NewOAuthUsecase(cfg, userRepo, linkRepo, codec, issuer, clock)

	//Handler生成
	authH := handler.NewAuthHandler(authUC, cfg.RefreshTokenTTL)
	oauthH := handler.NewOAuthHandler(oauthUC, cfg.RefreshTokenTTL, cfg.LoginFailureURL)

	//Server起動
	e := server.New(cfg, codec, authH, oauthH)
	if err := e.Start(":" + cfg.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
