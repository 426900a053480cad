package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"app/internal/domain/model"
	"app/internal/token"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

// =====================
// モック定義（usecase側と同型）
// =====================

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	args := m.Called(ctx, userID)
	if u := args.Get(0); u != nil {
		return u.(*model.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if u := args.Get(0); u != nil {
		return u.(*model.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

type mockDenylist struct {
	mock.Mock
}

func (m *mockDenylist) Block(ctx context.Context, rawToken string, ttl time.Duration) error {
	args := m.Called(ctx, rawToken, ttl)
	return args.Error(0)
}

func (m *mockDenylist) IsBlocked(ctx context.Context, rawToken string) (bool, error) {
	args := m.Called(ctx, rawToken)
	return args.Bool(0), args.Error(1)
}

type mockValidator struct {
	mock.Mock
}

func (m *mockValidator) ValidateRegister(ctx context.Context, email string, password string) error {
	args := m.Called(ctx, email, password)
	return args.Error(0)
}

func (m *mockValidator) ValidateLogin(ctx context.Context, email string, password string) error {
	args := m.Called(ctx, email, password)
	return args.Error(0)
}

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.now
}

type handlerFixture struct {
	e        *echo.Echo
	users    *mockUserRepo
	denylist *mockDenylist
	issuer   *token.Issuer
}

const testRefreshTTL = 2 * time.Minute

func newHandlerFixture() *handlerFixture {
	clock := &fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	codec := token.NewCodec("test-secret", clock)
	issuer := token.NewIssuer(codec, time.Minute, testRefreshTTL)

	users := new(mockUserRepo)
	denylist := new(mockDenylist)
	validator := new(mockValidator)
	validator.On("ValidateLogin", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	validator.On("ValidateRegister", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	authUC := usecase.NewAuthUsecase(users, denylist, codec, issuer, validator, clock)
	h := NewAuthHandler(authUC, testRefreshTTL)

	e := echo.New()
	e.POST("/auth/login", h.Login)
	e.POST("/auth/refresh", h.Refresh)
	e.POST("/auth/logout", h.Logout)

	return &handlerFixture{e: e, users: users, denylist: denylist, issuer: issuer}
}

func postJSON(e *echo.Echo, path string, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(http.MethodPost, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// =====================
// Refresh
// =====================

func TestRefreshHandler_NoCookie(t *testing.T) {
	f := newHandlerFixture()

	rec := postJSON(f.e, "/auth/refresh", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "REFRESH_TOKEN_NOT_FOUND")
}

func TestRefreshHandler_Success(t *testing.T) {
	f := newHandlerFixture()

	refreshToken, err := f.issuer.IssueRefresh(42)
	assert.NoError(t, err)

	f.denylist.On("IsBlocked", mock.Anything, refreshToken).Return(false, nil)
	f.users.On("FindByID", mock.Anything, int64(42)).Return(&model.User{
		ID:       42,
		Email:    "user@example.com",
		Role:     model.RoleUser,
		IsActive: true,
	}, nil)

	rec := postJSON(f.e, "/auth/refresh", "", &http.Cookie{Name: "refreshToken", Value: refreshToken})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "accessToken")
	assert.Contains(t, rec.Body.String(), `"expiresIn":60`)
}

func TestRefreshHandler_BlockedToken(t *testing.T) {
	f := newHandlerFixture()

	refreshToken, err := f.issuer.IssueRefresh(42)
	assert.NoError(t, err)

	f.denylist.On("IsBlocked", mock.Anything, refreshToken).Return(true, nil)

	rec := postJSON(f.e, "/auth/refresh", "", &http.Cookie{Name: "refreshToken", Value: refreshToken})

	//失効済みは不正と同じ見た目
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "REFRESH_TOKEN_INVALID")
}

func TestRefreshHandler_DenylistDown(t *testing.T) {
	f := newHandlerFixture()

	refreshToken, err := f.issuer.IssueRefresh(42)
	assert.NoError(t, err)

	f.denylist.On("IsBlocked", mock.Anything, refreshToken).Return(false, assert.AnError)

	rec := postJSON(f.e, "/auth/refresh", "", &http.Cookie{Name: "refreshToken", Value: refreshToken})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL")
}

// =====================
// Logout
// =====================

func TestLogoutHandler_Idempotent(t *testing.T) {
	f := newHandlerFixture()

	//cookie無しでも200＋cookie削除
	rec := postJSON(f.e, "/auth/logout", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "logout success")

	cleared := findCookie(rec, "refreshToken")
	assert.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)
}

func TestLogoutHandler_BlocksToken(t *testing.T) {
	f := newHandlerFixture()

	refreshToken, err := f.issuer.IssueRefresh(42)
	assert.NoError(t, err)

	f.denylist.On("Block", mock.Anything, refreshToken, mock.Anything).Return(nil)

	rec := postJSON(f.e, "/auth/logout", "", &http.Cookie{Name: "refreshToken", Value: refreshToken})

	assert.Equal(t, http.StatusOK, rec.Code)

	cleared := findCookie(rec, "refreshToken")
	assert.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	f.denylist.AssertExpectations(t)
}

// =====================
// Login
// =====================

func TestLoginHandler_SetsRefreshCookie(t *testing.T) {
	f := newHandlerFixture()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.DefaultCost)
	assert.NoError(t, err)

	user := &model.User{
		ID:           42,
		Email:        "user@example.com",
		PasswordHash: string(hash),
		Role:         model.RoleUser,
		IsActive:     true,
	}
	f.users.On("FindByEmail", mock.Anything, "user@example.com").Return(user, nil)
	f.users.On("Update", mock.Anything, user).Return(nil)

	rec := postJSON(f.e, "/auth/login", `{"email":"user@example.com","password":"correct-password"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "accessToken")

	//refresh tokenはbodyではなくcookieで返す
	assert.NotContains(t, rec.Body.String(), "refreshToken")

	cookie := findCookie(rec, "refreshToken")
	assert.NotNil(t, cookie)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)
	//cookieの寿命はrefresh TTLと揃える
	assert.Equal(t, int(testRefreshTTL.Seconds()), cookie.MaxAge)
}

func TestLoginHandler_WrongPassword(t *testing.T) {
	f := newHandlerFixture()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.DefaultCost)
	assert.NoError(t, err)

	f.users.On("FindByEmail", mock.Anything, "user@example.com").Return(&model.User{
		ID:           42,
		Email:        "user@example.com",
		PasswordHash: string(hash),
		Role:         model.RoleUser,
		IsActive:     true,
	}, nil)

	rec := postJSON(f.e, "/auth/login", `{"email":"user@example.com","password":"wrong-password"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")

	//失敗時はcookieを出さない
	assert.Nil(t, findCookie(rec, "refreshToken"))
}
