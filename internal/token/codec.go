package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// トークン種別
type Kind string

const (
	KindAccess  Kind = "ACCESS"
	KindRefresh Kind = "REFRESH"
	// OAuth2の認可リクエストをcookieで往復させるための署名付きレコード
	KindOAuthRequest Kind = "OAUTH_REQUEST"
)

var (
	//文字列として解釈できない
	ErrTokenMalformed = errors.New("token malformed")
	//署名が一致しない
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
	//有効期限切れ
	ErrTokenExpired = errors.New("token expired")
)

// 現在の時間
type Clock interface {
	Now() time.Time
}

// Claimsは署名付きトークンに埋め込む内容。
type Claims struct {
	UserID    int64
	Role      string // ACCESSのみ。REFRESHには載せない
	Kind      Kind
	IssuedAt  time.Time
	ExpiresAt time.Time

	// KindOAuthRequestのみ
	State     string
	Provider  string
	ReturnURI string
}

func (c Claims) IsAccess() bool {
	return c.Kind == KindAccess
}

func (c Claims) IsRefresh() bool {
	return c.Kind == KindRefresh
}

// Codecは共有シークレット（HS256）でトークンを発行・検証する。
// 全インスタンスが同じシークレットを持つので、どのインスタンスが
// 発行したトークンでも検証できる。
type Codec struct {
	secret []byte
	clock  Clock
}

func NewCodec(secret string, clock Clock) *Codec {
	return &Codec{
		secret: []byte(secret),
		clock:  clock,
	}
}

// IssueはclaimsをHS256で署名して文字列にする。
func (c *Codec) Issue(claims Claims, ttl time.Duration) (string, error) {
	now := c.clock.Now()
	exp := now.Add(ttl)

	mc := jwt.MapClaims{
		"kind": string(claims.Kind),
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	}

	if claims.UserID > 0 {
		mc["uid"] = claims.UserID
	}
	if claims.Role != "" {
		mc["role"] = claims.Role
	}
	if claims.State != "" {
		mc["state"] = claims.State
	}
	if claims.Provider != "" {
		mc["provider"] = claims.Provider
	}
	if claims.ReturnURI != "" {
		mc["return_uri"] = claims.ReturnURI
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, mc)
	return tok.SignedString(c.secret)
}

// Decodeは署名と構造を検証してClaimsへ戻す。
// 期限切れはErrTokenExpiredになるが、Claimsも一緒に返す
// （呼び出し側が種別チェックを期限チェックより先にできるように）。
func (c *Codec) Decode(raw string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(), // expは自前のclockで見る
	)

	tok, err := parser.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		return Claims{}, classifyParseError(err)
	}

	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrTokenMalformed
	}

	claims, err := claimsFromMap(mc)
	if err != nil {
		return Claims{}, ErrTokenMalformed
	}

	//期限切れチェック
	if !c.clock.Now().Before(claims.ExpiresAt) {
		return claims, ErrTokenExpired
	}

	return claims, nil
}

// jwtライブラリのエラーを自前のエラー種別に寄せる
func classifyParseError(err error) error {
	var ve *jwt.ValidationError
	if !errors.As(err, &ve) {
		return ErrTokenMalformed
	}

	if ve.Errors&jwt.ValidationErrorSignatureInvalid != 0 {
		return ErrTokenSignatureInvalid
	}
	if ve.Errors&jwt.ValidationErrorUnverifiable != 0 {
		return ErrTokenSignatureInvalid
	}

	return ErrTokenMalformed
}

// MapClaimsからClaimsを組み立てる
func claimsFromMap(mc jwt.MapClaims) (Claims, error) {
	kind, err := parseString(mc["kind"])
	if err != nil || kind == "" {
		return Claims{}, errors.New("invalid kind")
	}

	exp, err := parseInt64(mc["exp"])
	if err != nil || exp <= 0 {
		return Claims{}, errors.New("invalid exp")
	}

	iat, err := parseInt64(mc["iat"])
	if err != nil {
		return Claims{}, errors.New("invalid iat")
	}

	claims := Claims{
		Kind:      Kind(kind),
		IssuedAt:  time.Unix(iat, 0),
		ExpiresAt: time.Unix(exp, 0),
	}

	if v, ok := mc["uid"]; ok {
		uid, err := parseInt64(v)
		if err != nil || uid <= 0 {
			return Claims{}, errors.New("invalid uid")
		}
		claims.UserID = uid
	}
	if v, ok := mc["role"]; ok {
		role, err := parseString(v)
		if err != nil {
			return Claims{}, errors.New("invalid role")
		}
		claims.Role = role
	}
	if v, ok := mc["state"]; ok {
		claims.State, _ = v.(string)
	}
	if v, ok := mc["provider"]; ok {
		claims.Provider, _ = v.(string)
	}
	if v, ok := mc["return_uri"]; ok {
		claims.ReturnURI, _ = v.(string)
	}

	return claims, nil
}

func parseString(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.New("invalid string")
	}
	return s, nil
}

func parseInt64(v interface{}) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case int64:
		return t, nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, errors.New("invalid int64")
	}
}
