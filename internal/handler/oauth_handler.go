package handler

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 認可リクエストcookieの有効期限
const oauthRequestCookieTTL = 10 * time.Minute

type OAuthHandler struct {
	oauthUC         *usecase.OAuthUsecase
	refreshTTL      time.Duration
	cookieSecure    bool
	loginFailureURL string
}

// DIコンストラクタ
func NewOAuthHandler(oauthUC *usecase.OAuthUsecase, refreshTTL time.Duration, loginFailureURL string) *OAuthHandler {
	return &OAuthHandler{
		oauthUC:         oauthUC,
		refreshTTL:      refreshTTL,
		cookieSecure:    envBool("COOKIE_SECURE", true),
		loginFailureURL: loginFailureURL,
	}
}

// AuthorizeはGET /oauth2/authorization/:providerのハンドラ。
// 認可リクエストをcookieに残してプロバイダへリダイレクトする。
func (h *OAuthHandler) Authorize(c echo.Context) error {
	provider := c.Param("provider")
	returnURI := c.QueryParam("redirect_uri")

	out, err := h.oauthUC.StartLogin(provider, returnURI)
	if err != nil {
		if errors.Is(err, usecase.ErrOAuth2ProviderNotFound) {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "OAUTH2_PROVIDER_NOT_FOUND"})
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "INTERNAL"})
	}

	setOAuthRequestCookie(c, out.PendingRequest, oauthRequestCookieTTL, h.cookieSecure)

	return c.Redirect(http.StatusFound, out.AuthorizationURL)
}

// CallbackはGET /login/oauth2/code/:providerのハンドラ。
// 成功時：refresh cookieをセットして元のURLへリダイレクト。
// 失敗時：エラーコードだけ付けてフロントのログイン画面へ戻す
// （プロバイダ側のエラー詳細はログにだけ残し、クライアントへは出さない）。
func (h *OAuthHandler) Callback(c echo.Context) error {
	provider := c.Param("provider")
	code := c.QueryParam("code")
	state := c.QueryParam("state")

	pendingRaw := readOAuthRequestCookie(c)

	//認可リクエストcookieは一度きり
	clearOAuthRequestCookie(c, h.cookieSecure)

	out, err := h.oauthUC.HandleCallback(c.Request().Context(), provider, code, state, pendingRaw)
	if err != nil {
		c.Logger().Errorf("oauth2 login failed (provider=%s): %v", provider, err)
		return h.redirectFailure(c, oauthErrorCode(err))
	}

	//セッション確立
	setRefreshCookie(c, out.RefreshToken, h.refreshTTL, h.cookieSecure)

	return c.Redirect(http.StatusFound, out.ReturnURI)
}

func (h *OAuthHandler) redirectFailure(c echo.Context, code string) error {
	failURL := h.loginFailureURL
	if u, err := url.Parse(failURL); err == nil {
		q := u.Query()
		q.Set("error", code)
		u.RawQuery = q.Encode()
		failURL = u.String()
	}

	return c.Redirect(http.StatusFound, failURL)
}

// エラーを安定したコードに寄せる
func oauthErrorCode(err error) string {
	switch {
	case errors.Is(err, usecase.ErrOAuth2InvalidState):
		return "OAUTH2_INVALID_STATE"
	case errors.Is(err, usecase.ErrOAuth2ProviderError):
		return "OAUTH2_PROVIDER_ERROR"
	case errors.Is(err, usecase.ErrOAuth2UserInfoError):
		return "OAUTH2_USER_INFO_ERROR"
	default:
		return "OAUTH2_AUTHENTICATION_FAILED"
	}
}
