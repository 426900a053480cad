package middleware

import (
	"net/http"
	"strings"

	"app/internal/token"

	"github.com/labstack/echo/v4"
)

const (
	CtxUserIDKey   = "user_id"   // int64
	CtxUserRoleKey = "user_role" // string
)

// AuthContextはBearerのaccess tokenを読んで認証情報をcontextへ入れる。
// リクエストごとに1回だけ動く。失敗してもここではエラーにせず
// 未認証のまま通す（401/403は各エンドポイントのガードが返す）。
func AuthContext(codec *token.Codec) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//Bearer tokenを抜く。無ければ未認証のまま
			rawToken := bearerToken(c.Request())
			if rawToken == "" {
				return next(c)
			}

			//デコード失敗（壊れている・署名不一致・期限切れ）も未認証のまま通す
			claims, err := codec.Decode(rawToken)
			if err != nil {
				c.Logger().Debugf("access token rejected: %v", err)
				return next(c)
			}

			//refresh tokenでのAPI呼び出しは認めない（種別違いは無いのと同じ扱い）
			if !claims.IsAccess() {
				c.Logger().Debug("bearer token is not an access token")
				return next(c)
			}

			//contextへ保存
			c.Set(CtxUserIDKey, claims.UserID)
			c.Set(CtxUserRoleKey, claims.Role)

			return next(c)
		}
	}
}

// RequireAuthは認証済みでなければ401を返すガード。
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rawID := c.Get(CtxUserIDKey)
			userID, ok := rawID.(int64)
			if !ok || userID <= 0 {
				return c.JSON(http.StatusUnauthorized, errorJSON("UNAUTHORIZED"))
			}

			return next(c)
		}
	}
}

// AuthorizationヘッダからBearer tokenを抜き出す
func bearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if authz == "" {
		return ""
	}

	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(code string) errorResponse {
	return errorResponse{Error: code}
}
