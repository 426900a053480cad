package usecase

import (
	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/repository"
	"app/internal/token"

	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

var (
	//400 設定されていないプロバイダ
	ErrOAuth2ProviderNotFound = errors.New("oauth2 provider not found")
	//401 stateが一致しない・認可リクエストが残っていない（CSRF対策）
	ErrOAuth2InvalidState = errors.New("oauth2 invalid state")
	//502 プロバイダとのcode交換に失敗
	ErrOAuth2ProviderError = errors.New("oauth2 provider error")
	//502 プロバイダのプロフィール取得に失敗
	ErrOAuth2UserInfoError = errors.New("oauth2 user info error")
	//401 上記以外のハンドシェイク失敗
	ErrOAuth2AuthenticationFailed = errors.New("oauth2 authentication failed")
)

// 認可リクエストのcookieの有効期限（リダイレクト往復の間だけ持てばよい）
const oauthRequestTTL = 10 * time.Minute

// プロバイダ呼び出し（code交換・プロフィール取得）のタイムアウト
const oauthProviderTimeout = 10 * time.Second

// 認可開始の結果。handlerがcookieとリダイレクトに使う
type StartLoginResult struct {
	AuthorizationURL string
	PendingRequest   string // 署名付き認可リクエスト（cookieへ）
}

// コールバック処理の結果
type CallbackResult struct {
	User         UserDTO
	RefreshToken string
	ReturnURI    string
}

// プロバイダのuser-infoレスポンス。
// Google系はsub、GitHub系は数値idなので両方受ける。
type providerProfile struct {
	Sub   string      `json:"sub"`
	ID    json.Number `json:"id"`
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Login string      `json:"login"`
}

func (p providerProfile) subjectID() string {
	if p.Sub != "" {
		return p.Sub
	}
	return p.ID.String()
}

func (p providerProfile) displayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Login
}

type OAuthUsecase struct {
	cfg        config.Config
	users      repository.UserRepository
	links      repository.FederationLinkRepository
	codec      *token.Codec
	issuer     *token.Issuer
	clock      Clock
	httpClient *http.Client // プロバイダ呼び出し用。テストで差し替える
}

func NewOAuthUsecase(
	cfg config.Config,
	users repository.UserRepository,
	links repository.FederationLinkRepository,
	codec *token.Codec,
	issuer *token.Issuer,
	clock Clock,
) *OAuthUsecase {
	return &OAuthUsecase{
		cfg:    cfg,
		users:  users,
		links:  links,
		codec:  codec,
		issuer: issuer,
		clock:  clock,
	}
}

// StartLoginは認可URLと署名付き認可リクエストを作る。
// stateはランダム生成してリクエストに埋め、コールバックで照合する。
func (u *OAuthUsecase) StartLogin(provider string, returnURI string) (*StartLoginResult, error) {
	p, ok := u.cfg.OAuthProviders[provider]
	if !ok {
		return nil, ErrOAuth2ProviderNotFound
	}

	state := uuid.NewString()

	//認可リクエストを署名して持ち回す（サーバー側には何も残さない）
	pending, err := u.codec.Issue(token.Claims{
		Kind:      token.KindOAuthRequest,
		State:     state,
		Provider:  provider,
		ReturnURI: u.sanitizeReturnURI(returnURI),
	}, oauthRequestTTL)
	if err != nil {
		return nil, ErrOAuth2AuthenticationFailed
	}

	conf := u.oauth2Config(provider, p)

	return &StartLoginResult{
		AuthorizationURL: conf.AuthCodeURL(state),
		PendingRequest:   pending,
	}, nil
}

// HandleCallbackはプロバイダからのリダイレクトを処理してセッションを確立する。
// state照合 → code交換 → プロフィール取得 → 会員解決 → refresh発行。
func (u *OAuthUsecase) HandleCallback(ctx context.Context, provider string, code string, state string, pendingRaw string) (*CallbackResult, error) {
	p, ok := u.cfg.OAuthProviders[provider]
	if !ok {
		return nil, ErrOAuth2ProviderNotFound
	}

	//認可リクエストの復元＋state照合（CSRF対策。不一致は即失敗）
	pending, err := u.codec.Decode(pendingRaw)
	if err != nil || pending.Kind != token.KindOAuthRequest || pending.Provider != provider {
		return nil, ErrOAuth2InvalidState
	}
	if state == "" || pending.State != state {
		return nil, ErrOAuth2InvalidState
	}

	if code == "" {
		return nil, ErrOAuth2AuthenticationFailed
	}

	//プロバイダ呼び出しにはタイムアウトを切る
	ctx, cancel := context.WithTimeout(ctx, oauthProviderTimeout)
	defer cancel()
	if u.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, u.httpClient)
	}

	conf := u.oauth2Config(provider, p)

	//codeをプロバイダのtokenに交換（サーバー間通信）
	providerToken, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, ErrOAuth2ProviderError
	}

	//user-infoからプロバイダ内のユーザーIDとプロフィールを取得
	profile, err := fetchUserInfo(ctx, conf, providerToken, p.UserInfoURL)
	if err != nil {
		return nil, ErrOAuth2UserInfoError
	}
	if profile.subjectID() == "" {
		return nil, ErrOAuth2UserInfoError
	}

	//会員解決（リンクがあれば既存会員、無ければ新規作成）
	user, err := u.resolveMember(ctx, provider, profile)
	if err != nil {
		return nil, ErrOAuth2AuthenticationFailed
	}
	if !user.IsActive {
		return nil, ErrOAuth2AuthenticationFailed
	}

	//セッション確立（refresh発行はhandlerがcookieに詰める）
	refreshToken, err := u.issuer.IssueRefresh(user.ID)
	if err != nil {
		return nil, ErrOAuth2AuthenticationFailed
	}

	returnURI := pending.ReturnURI
	if returnURI == "" {
		returnURI = u.cfg.LoginSuccessURL
	}

	return &CallbackResult{
		User:         toUserDTO(user),
		RefreshToken: refreshToken,
		ReturnURI:    returnURI,
	}, nil
}

func (u *OAuthUsecase) oauth2Config(provider string, p config.OAuthProvider) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		RedirectURL:  strings.TrimRight(u.cfg.OAuthRedirectBaseURL, "/") + "/login/oauth2/code/" + provider,
		Scopes:       p.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  p.AuthURL,
			TokenURL: p.TokenURL,
		},
	}
}

// オープンリダイレクト対策。相対パスか自分のフロントだけ許可
func (u *OAuthUsecase) sanitizeReturnURI(returnURI string) string {
	if returnURI == "" {
		return u.cfg.LoginSuccessURL
	}
	if strings.HasPrefix(returnURI, "/") && !strings.HasPrefix(returnURI, "//") {
		return returnURI
	}
	if strings.HasPrefix(returnURI, u.cfg.FEURL) {
		return returnURI
	}
	return u.cfg.LoginSuccessURL
}

// user-infoエンドポイントからプロフィールを取る
func fetchUserInfo(ctx context.Context, conf *oauth2.Config, tok *oauth2.Token, userInfoURL string) (providerProfile, error) {
	var profile providerProfile

	client := conf.Client(ctx, tok)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userInfoURL, nil)
	if err != nil {
		return profile, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return profile, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return profile, fmt.Errorf("user info status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return profile, err
	}

	return profile, nil
}

// リンクを探して会員を返す。無ければ会員＋リンクを作る。
func (u *OAuthUsecase) resolveMember(ctx context.Context, provider string, profile providerProfile) (*model.User, error) {
	subjectID := profile.subjectID()

	link, err := u.links.FindByProviderUserID(ctx, provider, subjectID)
	if err != nil {
		return nil, err
	}

	now := u.clock.Now()

	//リンク済み：last_loginだけ更新
	if link != nil {
		user, err := u.users.FindByID(ctx, link.UserID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, errors.New("linked user missing")
		}

		user.LastLoginAt = &now
		_ = u.users.Update(ctx, user)
		return user, nil
	}

	//新規会員を作る。emailが取れないプロバイダ用のフォールバックあり
	email := profile.Email
	if email == "" {
		email = subjectID + "@" + provider + ".oauth.local"
	}

	nickname := profile.displayName()
	if nickname == "" {
		nickname = provider + "-" + subjectID
	}

	user := &model.User{
		Email:        email,
		PasswordHash: "", // パスワードログイン不可
		Nickname:     nickname,
		Role:         model.RoleUser,
		IsActive:     true,
		LastLoginAt:  &now,
	}

	if err := u.users.Create(ctx, user); err != nil {
		//email重複なら既存会員に紐付ける
		existing, ferr := u.users.FindByEmail(ctx, email)
		if ferr != nil || existing == nil {
			return nil, err
		}
		user = existing
	}

	if err := u.links.Create(ctx, &model.FederationLink{
		Provider:       provider,
		ProviderUserID: subjectID,
		UserID:         user.ID,
	}); err != nil {
		return nil, err
	}

	return user, nil
}
