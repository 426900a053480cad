package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	// refresh tokenを持つHTTP-only cookie
	refreshCookieName = "refreshToken"
	// OAuth2の認可リクエストをリダイレクト往復の間だけ持つcookie
	oauthRequestCookieName = "oauthRequest"
)

// refresh tokenをcookieにセット。
// MaxAgeはrefresh TTLと揃える＝tokenの期限より先にブラウザ側で消える。
// 中身の検証はここでは一切しない（純粋なトランスポート）。
func setRefreshCookie(c echo.Context, plainRefresh string, ttl time.Duration, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    plainRefresh,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

// cookieからrefresh tokenを読む。無ければ空文字
func readRefreshCookie(c echo.Context) string {
	cookie, err := c.Cookie(refreshCookieName)
	if err != nil || cookie == nil {
		return ""
	}
	return cookie.Value
}

// refresh cookieを削除。
// MaxAge<0でMax-Age=0が送られ、cookieを扱うクライアントは即消す。
func clearRefreshCookie(c echo.Context, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func setOAuthRequestCookie(c echo.Context, pending string, ttl time.Duration, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     oauthRequestCookieName,
		Value:    pending,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

func readOAuthRequestCookie(c echo.Context) string {
	cookie, err := c.Cookie(oauthRequestCookieName)
	if err != nil || cookie == nil {
		return ""
	}
	return cookie.Value
}

func clearOAuthRequestCookie(c echo.Context, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     oauthRequestCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
