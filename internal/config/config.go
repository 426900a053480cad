package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5433）

	JWTSecret       string        // JWT署名シークレット（全インスタンス共通）
	AccessTokenTTL  time.Duration // access tokenの有効期限
	RefreshTokenTTL time.Duration // refresh tokenの有効期限

	RedisAddr     string // denylist用Redis（host:port）
	RedisPassword string
	RedisDB       int

	OAuthProviders       map[string]OAuthProvider // 有効なOAuth2プロバイダ
	OAuthRedirectBaseURL string                   // コールバックURLのベース（https://api.example.com）
	LoginSuccessURL      string                   // ログイン後に戻すデフォルトURL
	LoginFailureURL      string                   // OAuthログイン失敗時に戻すURL

	GoEnv     string // dev/prod
	APIDomain string // APIドメイン（cookieやCORSなどで使う）
	FEURL     string // フロントURL（CORSなどで使う）
}

// OAuthProviderは外部IdP1つ分の設定。
type OAuthProvider struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	Scopes       []string
}

// 組み込みプロバイダのエンドポイント（client id/secretは環境変数から）
var oauthEndpoints = map[string]OAuthProvider{
	"google": {
		AuthURL:     "https://accounts.google.com/o/oauth2/auth",
		TokenURL:    "https://oauth2.googleapis.com/token",
		UserInfoURL: "https://openidconnect.googleapis.com/v1/userinfo",
		Scopes:      []string{"openid", "email", "profile"},
	},
	"github": {
		AuthURL:     "https://github.com/login/oauth/authorize",
		TokenURL:    "https://github.com/login/oauth/access_token",
		UserInfoURL: "https://api.github.com/user",
		Scopes:      []string{"read:user", "user:email"},
	},
}

// Loadは環境変数
func Load() (Config, error) {
	pgPort, err := mustAtoi("POSTGRES_PORT")
	if err != nil {
		return Config{}, err
	}

	accessTTL, err := ttlSeconds("ACCESS_TOKEN_TTL_SECONDS", 15*time.Minute)
	if err != nil {
		return Config{}, err
	}
	refreshTTL, err := ttlSeconds("REFRESH_TOKEN_TTL_SECONDS", 14*24*time.Hour)
	if err != nil {
		return Config{}, err
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		redisDB, err = strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("REDIS_DB must be number: %w", err)
		}
	}

	cfg := Config{
		Port: os.Getenv("PORT"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     pgPort,

		JWTSecret:       os.Getenv("JWT_SECRET"),
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: refreshTTL,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		OAuthRedirectBaseURL: os.Getenv("OAUTH_REDIRECT_BASE_URL"),
		LoginSuccessURL:      os.Getenv("LOGIN_SUCCESS_URL"),
		LoginFailureURL:      os.Getenv("LOGIN_FAILURE_URL"),

		GoEnv:     os.Getenv("GO_ENV"),
		APIDomain: os.Getenv("API_DOMAIN"),
		FEURL:     os.Getenv("FE_URL"),
	}

	//必須チェック
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.PostgresUser == "" {
		return Config{}, fmt.Errorf("POSTGRES_USER is required")
	}
	if cfg.PostgresPassword == "" {
		return Config{}, fmt.Errorf("POSTGRES_PASSWORD is required")
	}
	if cfg.PostgresDB == "" {
		return Config{}, fmt.Errorf("POSTGRES_DB is required")
	}
	if cfg.PostgresHost == "" {
		return Config{}, fmt.Errorf("POSTGRES_HOST is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.RedisAddr == "" {
		return Config{}, fmt.Errorf("REDIS_ADDR is required")
	}
	if cfg.GoEnv == "" {
		return Config{}, fmt.Errorf("GO_ENV is required")
	}
	if cfg.APIDomain == "" {
		return Config{}, fmt.Errorf("API_DOMAIN is required")
	}
	if cfg.FEURL == "" {
		return Config{}, fmt.Errorf("FE_URL is required")
	}

	// accessはrefreshより必ず短い。逆だとrefreshの意味がなくなる
	if cfg.AccessTokenTTL >= cfg.RefreshTokenTTL {
		return Config{}, fmt.Errorf("ACCESS_TOKEN_TTL_SECONDS must be shorter than REFRESH_TOKEN_TTL_SECONDS")
	}

	// デフォルトの戻り先はフロント
	if cfg.LoginSuccessURL == "" {
		cfg.LoginSuccessURL = cfg.FEURL
	}
	if cfg.LoginFailureURL == "" {
		cfg.LoginFailureURL = strings.TrimRight(cfg.FEURL, "/") + "/login"
	}

	cfg.OAuthProviders = loadOAuthProviders()
	if len(cfg.OAuthProviders) > 0 && cfg.OAuthRedirectBaseURL == "" {
		return Config{}, fmt.Errorf("OAUTH_REDIRECT_BASE_URL is required when oauth providers are set")
	}

	return cfg, nil
}

// client id/secretが両方ある組み込みプロバイダだけ有効にする
func loadOAuthProviders() map[string]OAuthProvider {
	providers := make(map[string]OAuthProvider)

	for name, endpoint := range oauthEndpoints {
		upper := strings.ToUpper(name)
		id := os.Getenv("OAUTH_" + upper + "_CLIENT_ID")
		secret := os.Getenv("OAUTH_" + upper + "_CLIENT_SECRET")
		if id == "" || secret == "" {
			continue
		}

		p := endpoint
		p.ClientID = id
		p.ClientSecret = secret
		providers[name] = p
	}

	return providers
}

func mustAtoi(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

// 秒指定のTTL。未設定ならデフォルト
func ttlSeconds(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	sec, err := strconv.Atoi(v)
	if err != nil || sec <= 0 {
		return 0, fmt.Errorf("%s must be positive number of seconds", key)
	}

	return time.Duration(sec) * time.Second, nil
}
