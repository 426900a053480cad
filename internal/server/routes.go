package server

import (
	"app/internal/handler"
	"app/internal/middleware"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, authH *handler.AuthHandler, oauthH *handler.OAuthHandler) {
	auth := e.Group("/auth")
	auth.POST("/register", authH.Register)
	auth.POST("/login", authH.Login)
	auth.POST("/refresh", authH.Refresh)
	auth.POST("/logout", authH.Logout)
	auth.GET("/me", authH.Me, middleware.RequireAuth())

	//OAuth2ログイン（認可開始とコールバック）
	e.GET("/oauth2/authorization/:provider", oauthH.Authorize)
	e.GET("/login/oauth2/code/:provider", oauthH.Callback)
}
