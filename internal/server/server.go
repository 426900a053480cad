package server

import (
	"app/internal/config"
	"app/internal/handler"
	"app/internal/middleware"
	"app/internal/token"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// Newはechoを組み立てて返す。起動はmain側。
func New(cfg config.Config, codec *token.Codec, authH *handler.AuthHandler, oauthH *handler.OAuthHandler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	//cookieを使うのでAllowCredentials必須
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.FEURL},
		AllowMethods:     []string{echo.GET, echo.POST, echo.PUT, echo.DELETE, echo.OPTIONS},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	//認証フィルタ（全リクエスト共通。失敗しても未認証で通す）
	e.Use(middleware.AuthContext(codec))

	RegisterRoutes(e, authH, oauthH)

	return e
}
