package handler

import (
	"errors"
	"net/http"
	"os"
	"time"

	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	authUC       *usecase.AuthUsecase
	refreshTTL   time.Duration // refresh cookieの有効期限
	cookieSecure bool
}

// DIコンストラクタ
func NewAuthHandler(authUC *usecase.AuthUsecase, refreshTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		authUC:       authUC,
		refreshTTL:   refreshTTL,
		cookieSecure: envBool("COOKIE_SECURE", true),
	}
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True":
		return true
	case "0", "false", "FALSE", "False":
		return false
	default:
		return def
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// RegisterはPOST /auth/registerのハンドラ
func (h *AuthHandler) Register(c echo.Context) error {
	var req usecase.AuthRegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "VALIDATION_ERROR"})
	}

	out, err := h.authUC.Register(c.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrValidation):
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "VALIDATION_ERROR"})
		case errors.Is(err, usecase.ErrConflict):
			return c.JSON(http.StatusConflict, errorResponse{Error: "CONFLICT"})
		default:
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "INTERNAL"})
		}
	}

	return c.JSON(http.StatusOK, out)
}

// LoginはPOST /auth/loginのハンドラ。
// 成功時：bodyにuser+access token、cookieにrefresh token。
func (h *AuthHandler) Login(c echo.Context) error {
	var req usecase.AuthLoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "VALIDATION_ERROR"})
	}

	out, err := h.authUC.Login(c.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrValidation):
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "VALIDATION_ERROR"})
		case errors.Is(err, usecase.ErrUnauthorized):
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: "UNAUTHORIZED"})
		case errors.Is(err, usecase.ErrUserInactive):
			return c.JSON(http.StatusForbidden, errorResponse{Error: "FORBIDDEN"})
		default:
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "INTERNAL"})
		}
	}

	//refresh cookie
	setRefreshCookie(c, out.RefreshTokenPlain, h.refreshTTL, h.cookieSecure)

	//JSONレスポンス（user + token）
	return c.JSON(http.StatusOK, out.Body)
}

// RefreshはPOST /auth/refreshのハンドラ。
// cookieのrefresh tokenを検証して新しいaccess tokenを返す。
func (h *AuthHandler) Refresh(c echo.Context) error {
	refreshToken := readRefreshCookie(c)
	if refreshToken == "" {
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "REFRESH_TOKEN_NOT_FOUND"})
	}

	out, err := h.authUC.Refresh(c.Request().Context(), refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrRefreshTokenInvalid):
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: "REFRESH_TOKEN_INVALID"})
		case errors.Is(err, usecase.ErrRefreshTokenExpired):
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: "REFRESH_TOKEN_EXPIRED"})
		case errors.Is(err, usecase.ErrUserNotFound):
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: "USER_NOT_FOUND"})
		case errors.Is(err, usecase.ErrUserInactive):
			return c.JSON(http.StatusForbidden, errorResponse{Error: "MEMBER_INACTIVE"})
		default:
			//denylistに届かない場合もここ（「未登録扱い」にしない）
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "INTERNAL"})
		}
	}

	return c.JSON(http.StatusOK, out)
}

// LogoutはPOST /auth/logoutのハンドラ。
// cookieの有無にかかわらず200＋cookie削除（何度呼んでも同じ結果）。
func (h *AuthHandler) Logout(c echo.Context) error {
	refreshToken := readRefreshCookie(c)

	out, err := h.authUC.Logout(c.Request().Context(), refreshToken)
	if err != nil {
		out = &usecase.SuccessResponse{Message: "logout success"}
	}

	//cookieは必ず消す
	clearRefreshCookie(c, h.cookieSecure)

	return c.JSON(http.StatusOK, out)
}

// MeはGET /auth/meのハンドラ。
func (h *AuthHandler) Me(c echo.Context) error {
	rawID := c.Get(middleware.CtxUserIDKey)
	userID, ok := rawID.(int64)
	if !ok || userID <= 0 {
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "UNAUTHORIZED"})
	}

	out, err := h.authUC.Me(c.Request().Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrUserInactive):
			return c.JSON(http.StatusForbidden, errorResponse{Error: "FORBIDDEN"})
		default:
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: "UNAUTHORIZED"})
		}
	}

	return c.JSON(http.StatusOK, out)
}
