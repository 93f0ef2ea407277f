package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shopapi/internal/auth"
	"shopapi/internal/config"
	"shopapi/internal/domain/model"
	"shopapi/internal/metrics"
	"shopapi/internal/middleware"
	"shopapi/internal/repository"
	"shopapi/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

// =====================
// レスポンス確認用
// =====================

type mwErrorResponse struct {
	Error string `json:"error"`
}

type mwOKResponse struct {
	Email  string   `json:"email"`
	UserID int64    `json:"user_id"`
	Roles  []string `json:"roles"`
	Actor  string   `json:"actor"`
}

// =====================
// UserRepository モック（FindByEmailだけ使う）
// =====================

type MockUserRepoForMiddleware struct {
	mock.Mock
}

func (m *MockUserRepoForMiddleware) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepoForMiddleware) Create(ctx context.Context, user *model.User) error {
	panic("not used in middleware tests")
}

func (m *MockUserRepoForMiddleware) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	panic("not used in middleware tests")
}

func (m *MockUserRepoForMiddleware) FindByName(ctx context.Context, name string) ([]model.User, error) {
	panic("not used in middleware tests")
}

func (m *MockUserRepoForMiddleware) List(ctx context.Context, page int, limit int) ([]model.User, int64, error) {
	panic("not used in middleware tests")
}

func (m *MockUserRepoForMiddleware) UpdateProfile(ctx context.Context, email string, firstName string, lastName string, phone string) error {
	panic("not used in middleware tests")
}

func (m *MockUserRepoForMiddleware) SetActive(ctx context.Context, email string, active bool) error {
	panic("not used in middleware tests")
}

func (m *MockUserRepoForMiddleware) UpdatePasswordHash(ctx context.Context, userID int64, hash string) error {
	panic("not used in middleware tests")
}

func (m *MockUserRepoForMiddleware) DeleteByEmail(ctx context.Context, email string) error {
	panic("not used in middleware tests")
}

func (m *MockUserRepoForMiddleware) DeleteByID(ctx context.Context, userID int64) error {
	panic("not used in middleware tests")
}

var _ repository.UserRepository = (*MockUserRepoForMiddleware)(nil)

// =====================
// helper
// =====================

func mustMakeJWT(t *testing.T, secret string, email string, roles ...string) string {
	t.Helper()

	s, _, err := auth.NewJWTIssuer(secret, time.Hour).Issue(email, roles, time.Now())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	return s
}

func runRequest(t *testing.T, e *echo.Echo, method string, path string, authHeader string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeMWError(t *testing.T, rec *httptest.ResponseRecorder) mwErrorResponse {
	t.Helper()
	var r mwErrorResponse
	_ = json.NewDecoder(rec.Body).Decode(&r)
	return r
}

func decodeMWOK(t *testing.T, rec *httptest.ResponseRecorder) mwOKResponse {
	t.Helper()
	var r mwOKResponse
	_ = json.NewDecoder(rec.Body).Decode(&r)
	return r
}

// ctxに入った値をそのまま返す
func echoContextHandler(c echo.Context) error {
	out := mwOKResponse{Actor: usecase.ActorFrom(c.Request().Context())}
	out.Email, _ = c.Get(middleware.CtxUserEmailKey).(string)
	out.UserID, _ = c.Get(middleware.CtxUserIDKey).(int64)
	out.Roles, _ = c.Get(middleware.CtxUserRolesKey).([]string)
	return c.JSON(http.StatusOK, out)
}

func newGuardedEcho(users repository.UserRepository, roles ...model.Role) *echo.Echo {
	e := echo.New()
	mws := []echo.MiddlewareFunc{
		middleware.AuthJWT(config.Config{JWTSecret: testSecret}),
		middleware.ActiveUserGuard(users),
	}
	if len(roles) > 0 {
		mws = append(mws, middleware.RoleGuard(roles...))
	}
	e.GET("/protected", echoContextHandler, mws...)
	return e
}

// =====================
// AuthJWT
// =====================

// Authorizationなし => 401
func TestMiddleware_AuthJWT_Unauthorized_NoHeader(t *testing.T) {
	e := echo.New()
	e.GET("/protected", echoContextHandler, middleware.AuthJWT(config.Config{JWTSecret: testSecret}))

	rec := runRequest(t, e, http.MethodGet, "/protected", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeMWError(t, rec).Error)
}

// Bearer形式じゃない => 401
func TestMiddleware_AuthJWT_Unauthorized_BadScheme(t *testing.T) {
	e := echo.New()
	e.GET("/protected", echoContextHandler, middleware.AuthJWT(config.Config{JWTSecret: testSecret}))

	rec := runRequest(t, e, http.MethodGet, "/protected", "Token abc.def.ghi")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// 署名違い => 401
func TestMiddleware_AuthJWT_Unauthorized_BadSignature(t *testing.T) {
	e := echo.New()
	e.GET("/protected", echoContextHandler, middleware.AuthJWT(config.Config{JWTSecret: testSecret}))

	raw := mustMakeJWT(t, "wrong-secret", "ada@example.com", "CLIENT")

	rec := runRequest(t, e, http.MethodGet, "/protected", "Bearer "+raw)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// 正常：ctxにemail/rolesが入る
func TestMiddleware_AuthJWT_Success_SetsContext(t *testing.T) {
	e := echo.New()
	e.GET("/protected", echoContextHandler, middleware.AuthJWT(config.Config{JWTSecret: testSecret}))

	raw := mustMakeJWT(t, testSecret, "ada@example.com", "CLIENT", "SUPPORT")

	rec := runRequest(t, e, http.MethodGet, "/protected", "bearer "+raw)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeMWOK(t, rec)
	assert.Equal(t, "ada@example.com", body.Email)
	assert.Equal(t, []string{"CLIENT", "SUPPORT"}, body.Roles)
}

// =====================
// ActiveUserGuard
// =====================

func TestMiddleware_ActiveUserGuard_Success_SetsUserAndActor(t *testing.T) {
	users := new(MockUserRepoForMiddleware)
	users.On("FindByEmail", mock.Anything, "ada@example.com").Return(&model.User{
		ID: 42, Email: "ada@example.com", IsActive: true, Roles: model.Roles{model.RoleAdmin},
	}, nil).Once()
	e := newGuardedEcho(users)

	// トークンはCLIENTでもDBのroleが使われる
	rec := runRequest(t, e, http.MethodGet, "/protected", "Bearer "+mustMakeJWT(t, testSecret, "ada@example.com", "CLIENT"))
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeMWOK(t, rec)
	assert.Equal(t, int64(42), body.UserID)
	assert.Equal(t, []string{"ADMIN"}, body.Roles)
	assert.Equal(t, "ada@example.com", body.Actor)
}

func TestMiddleware_ActiveUserGuard_Inactive_401(t *testing.T) {
	users := new(MockUserRepoForMiddleware)
	users.On("FindByEmail", mock.Anything, "ada@example.com").Return(&model.User{
		ID: 42, Email: "ada@example.com", IsActive: false, Roles: model.Roles{model.RoleClient},
	}, nil).Once()
	e := newGuardedEcho(users)

	rec := runRequest(t, e, http.MethodGet, "/protected", "Bearer "+mustMakeJWT(t, testSecret, "ada@example.com", "CLIENT"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_ActiveUserGuard_UnknownUser_401(t *testing.T) {
	users := new(MockUserRepoForMiddleware)
	users.On("FindByEmail", mock.Anything, "gone@example.com").Return(nil, repository.ErrNotFound).Once()
	e := newGuardedEcho(users)

	rec := runRequest(t, e, http.MethodGet, "/protected", "Bearer "+mustMakeJWT(t, testSecret, "gone@example.com", "CLIENT"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// DB障害は認証失敗ではなく500
func TestMiddleware_ActiveUserGuard_LookupFault_500(t *testing.T) {
	users := new(MockUserRepoForMiddleware)
	users.On("FindByEmail", mock.Anything, "ada@example.com").Return(nil, errors.New("connection refused")).Once()
	e := newGuardedEcho(users)

	rec := runRequest(t, e, http.MethodGet, "/protected", "Bearer "+mustMakeJWT(t, testSecret, "ada@example.com", "CLIENT"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", decodeMWError(t, rec).Error)
	users.AssertExpectations(t)
}

// =====================
// RoleGuard
// =====================

func TestMiddleware_RoleGuard_Forbidden(t *testing.T) {
	users := new(MockUserRepoForMiddleware)
	users.On("FindByEmail", mock.Anything, "ada@example.com").Return(&model.User{
		ID: 1, Email: "ada@example.com", IsActive: true, Roles: model.Roles{model.RoleClient},
	}, nil).Once()
	e := newGuardedEcho(users, model.RoleAdmin, model.RoleSupport)

	rec := runRequest(t, e, http.MethodGet, "/protected", "Bearer "+mustMakeJWT(t, testSecret, "ada@example.com", "CLIENT"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeMWError(t, rec).Error)
}

func TestMiddleware_RoleGuard_AnyOfAllowed(t *testing.T) {
	users := new(MockUserRepoForMiddleware)
	users.On("FindByEmail", mock.Anything, "sam@example.com").Return(&model.User{
		ID: 2, Email: "sam@example.com", IsActive: true, Roles: model.Roles{model.RoleClient, model.RoleSupport},
	}, nil).Once()
	e := newGuardedEcho(users, model.RoleAdmin, model.RoleSupport)

	rec := runRequest(t, e, http.MethodGet, "/protected", "Bearer "+mustMakeJWT(t, testSecret, "sam@example.com", "CLIENT"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

// ctxにroleが無い => 401
func TestMiddleware_RoleGuard_NoRoles_401(t *testing.T) {
	e := echo.New()
	e.GET("/protected", echoContextHandler, middleware.RoleGuard(model.RoleAdmin))

	rec := runRequest(t, e, http.MethodGet, "/protected", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// =====================
// RequestLogger
// =====================

func TestMiddleware_RequestLogger_SetsRequestIDAndCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	e := echo.New()
	e.Use(middleware.RequestLogger(zap.NewNop(), m))
	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	})

	rec := runRequest(t, e, http.MethodGet, "/ping", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Requests.WithLabelValues("/ping", http.MethodGet, "200")))
}
