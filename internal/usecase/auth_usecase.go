package usecase

import (
	"app/internal/domain/model"
	"app/internal/repository"
	"app/internal/token"

	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	//400 入力不足
	ErrValidation = errors.New("validation error")
	//401 認証失敗
	ErrUnauthorized = errors.New("unauthorized")
	//403 停止済み会員
	ErrUserInactive = errors.New("user is inactive")
	//401 tokenのsubjectに対応する会員がいない
	ErrUserNotFound = errors.New("user not found")
	//409 競合
	ErrConflict = errors.New("conflict")
	//401 refresh tokenとして使えない（壊れている・種別違い・失効済み）
	ErrRefreshTokenInvalid = errors.New("refresh token invalid")
	//401 refresh tokenの期限切れ
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	//500
	ErrInternal = errors.New("internal error")
)

// usecaseがValidatorInterfaceに依存する約束
type AuthValidator interface {
	ValidateRegister(ctx context.Context, email string, password string) error
	ValidateLogin(ctx context.Context, email string, password string) error
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

type UserDTO struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	Role     string `json:"role"`
	IsActive bool   `json:"isActive"`
}

type JwtAccessTokenDTO struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
}

type AuthRegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

type AuthRegisterResponse struct {
	User UserDTO `json:"user"`
}

type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthLoginResponse struct {
	User  UserDTO           `json:"user"`
	Token JwtAccessTokenDTO `json:"token"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

// handlerがCookieに詰めるために必要な値
type LoginResult struct {
	Body              AuthLoginResponse
	RefreshTokenPlain string
}

type AuthUsecase struct {
	users     repository.UserRepository
	denylist  repository.TokenDenylist
	codec     *token.Codec
	issuer    *token.Issuer
	validator AuthValidator
	clock     Clock
}

func NewAuthUsecase(
	users repository.UserRepository,
	denylist repository.TokenDenylist,
	codec *token.Codec,
	issuer *token.Issuer,
	validator AuthValidator,
	clock Clock,
) *AuthUsecase {
	return &AuthUsecase{
		users:     users,
		denylist:  denylist,
		codec:     codec,
		issuer:    issuer,
		validator: validator,
		clock:     clock,
	}
}

func (u *AuthUsecase) Register(ctx context.Context, req AuthRegisterRequest) (*AuthRegisterResponse, error) {
	//入力検証（validatorに寄せる）
	if err := u.validator.ValidateRegister(ctx, req.Email, req.Password); err != nil {
		return nil, ErrValidation
	}

	//email重複チェック
	existing, err := u.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, ErrInternal
	}
	if existing != nil {
		return nil, ErrConflict
	}

	//パスワードは必ずハッシュ化して保存（平文保存しない）
	pwHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrInternal
	}

	//nickname未指定ならemailのローカル部を使う
	nickname := strings.TrimSpace(req.Nickname)
	if nickname == "" {
		nickname = strings.SplitN(req.Email, "@", 2)[0]
	}

	user := &model.User{
		Email:        req.Email,
		PasswordHash: string(pwHash),
		Nickname:     nickname,
		Role:         model.RoleUser,
		IsActive:     true,
	}

	//保存（unique違反の競合はCONFLICT扱い）
	if err := u.users.Create(ctx, user); err != nil {
		return nil, ErrConflict
	}

	return &AuthRegisterResponse{
		User: toUserDTO(user),
	}, nil
}

func (u *AuthUsecase) Login(ctx context.Context, req AuthLoginRequest) (*LoginResult, error) {
	//入力検証
	if err := u.validator.ValidateLogin(ctx, req.Email, req.Password); err != nil {
		return nil, ErrValidation
	}

	//会員取得
	user, err := u.users.FindByEmail(ctx, req.Email)
	if err != nil || user == nil {
		return nil, ErrUnauthorized
	}

	//停止会員はログイン不可
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	//パスワード照合（bcrypt）
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrUnauthorized
	}

	//last_login更新
	now := u.clock.Now()
	user.LastLoginAt = &now
	_ = u.users.Update(ctx, user)

	//access token発行（roleを埋め込む）
	accessToken, err := u.issuer.IssueAccess(user.ID, user.Role)
	if err != nil {
		return nil, ErrInternal
	}

	//refresh token発行（roleなし）
	refreshToken, err := u.issuer.IssueRefresh(user.ID)
	if err != nil {
		return nil, ErrInternal
	}

	return &LoginResult{
		Body: AuthLoginResponse{
			User: toUserDTO(user),
			Token: JwtAccessTokenDTO{
				AccessToken: accessToken,
				ExpiresIn:   int(u.issuer.AccessTTL().Seconds()),
			},
		},
		RefreshTokenPlain: refreshToken,
	}, nil
}

func (u *AuthUsecase) Me(ctx context.Context, userID int64) (*UserDTO, error) {
	if userID <= 0 {
		return nil, ErrUnauthorized
	}

	user, err := u.users.FindByID(ctx, userID)
	if err != nil || user == nil {
		return nil, ErrUnauthorized
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}

	dto := toUserDTO(user)
	return &dto, nil
}

// Refreshはrefresh tokenを検証して新しいaccess tokenを発行する。
// チェックは必ずこの順（最初に失敗したところで打ち切り）：
// 種別 → 期限 → denylist → 会員の存在 → 会員のアクティブ
func (u *AuthUsecase) Refresh(ctx context.Context, refreshTokenPlain string) (*JwtAccessTokenDTO, error) {
	//デコード＋種別チェック（期限切れでも種別は先に見る）
	claims, decodeErr := u.codec.Decode(refreshTokenPlain)
	if decodeErr != nil && !errors.Is(decodeErr, token.ErrTokenExpired) {
		return nil, ErrRefreshTokenInvalid
	}
	if !claims.IsRefresh() {
		return nil, ErrRefreshTokenInvalid
	}

	//期限切れ
	if errors.Is(decodeErr, token.ErrTokenExpired) {
		return nil, ErrRefreshTokenExpired
	}

	//denylistチェック
	blocked, err := u.denylist.IsBlocked(ctx, refreshTokenPlain)
	if err != nil {
		// Redisに届かない＝安全を確認できないので失敗させる
		return nil, ErrInternal
	}
	if blocked {
		// 失効済みは不正と同じ見た目にする（失効状態を外に漏らさない）
		return nil, ErrRefreshTokenInvalid
	}

	//会員取得
	user, err := u.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrInternal
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	//最新のroleを読み直してaccess再発行。refresh token自体は回さない
	accessToken, err := u.issuer.IssueAccess(user.ID, user.Role)
	if err != nil {
		return nil, ErrInternal
	}

	return &JwtAccessTokenDTO{
		AccessToken: accessToken,
		ExpiresIn:   int(u.issuer.AccessTTL().Seconds()),
	}, nil
}

// Logoutはrefresh tokenをdenylistへ登録する。
// tokenが無くても・壊れていても成功扱い（ログアウト済みの再ログアウトはエラーではない）。
func (u *AuthUsecase) Logout(ctx context.Context, refreshTokenPlain string) (*SuccessResponse, error) {
	if refreshTokenPlain == "" {
		return &SuccessResponse{Message: "logout success"}, nil
	}

	claims, err := u.codec.Decode(refreshTokenPlain)
	if err != nil || !claims.IsRefresh() {
		// 期限切れ・不正なtokenはブロック不要
		return &SuccessResponse{Message: "logout success"}, nil
	}

	//残り有効期限と同じTTLで登録（tokenの自然期限より長く残さない）
	ttl := claims.ExpiresAt.Sub(u.clock.Now())
	_ = u.denylist.Block(ctx, refreshTokenPlain, ttl)

	return &SuccessResponse{Message: "logout success"}, nil
}

// model.UserをAPI返却用DTOに変換。
func toUserDTO(u *model.User) UserDTO {
	return UserDTO{
		ID:       u.ID,
		Email:    u.Email,
		Nickname: u.Nickname,
		Role:     string(u.Role),
		IsActive: u.IsActive,
	}
}
