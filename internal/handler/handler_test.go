package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"shopapi/internal/auth"
	"shopapi/internal/config"
	"shopapi/internal/domain/model"
	"shopapi/internal/handler"
	infraRepo "shopapi/internal/infra/repository"
	"shopapi/internal/metrics"
	"shopapi/internal/server"
	"shopapi/internal/usecase"
	"shopapi/internal/validator"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now().UTC() }

type testApp struct {
	e  *echo.Echo
	db *gorm.DB
}

// sqlite + 本物のusecase/handlerでルーターを組み立てる
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, infraRepo.AutoMigrate(db))

	cfg := config.Config{JWTSecret: "test-secret", JWTTTL: time.Hour, GoEnv: "test"}
	log := zap.NewNop()
	m := metrics.New(prometheus.NewRegistry())
	clock := wallClock{}

	userRepo := infraRepo.NewUserGormRepository(db)
	productRepo := infraRepo.NewProductGormRepository(db)
	inventoryRepo := infraRepo.NewInventoryGormRepository(db)
	cartRepo := infraRepo.NewCartGormRepository(db)
	cartItemRepo := infraRepo.NewCartItemGormRepository(db)
	orderRepo := infraRepo.NewOrderGormRepository(db)
	orderItemRepo := infraRepo.NewOrderItemGormRepository(db)
	auditRepo := infraRepo.NewAuditLogGormRepository(db)
	txm := infraRepo.NewTxManagerGorm(db)

	productUC := usecase.NewProductUsecase(productRepo, inventoryRepo, txm, clock, log, m)
	cartUC := usecase.NewCartUsecase(txm, cartRepo, cartItemRepo, userRepo, clock)
	orderUC := usecase.NewOrderUsecase(txm, orderRepo, orderItemRepo, clock)
	userUC := usecase.NewUserUsecase(
		userRepo,
		validator.NewUserValidator(),
		usecase.NewBcryptPasswordHasher(bcrypt.MinCost),
		auth.NewJWTIssuer(cfg.JWTSecret, cfg.JWTTTL),
		clock,
		log,
	)

	srv := server.New(cfg, log, m, userRepo,
		handler.NewProductHandler(productUC),
		handler.NewCartHandler(cartUC),
		handler.NewOrderHandler(orderUC, usecase.NewAuditLogUsecase(auditRepo)),
		handler.NewUserHandler(userUC),
		handler.NewMeHandler(userUC, cartUC, orderUC),
	)
	return &testApp{e: srv.Echo(), db: db}
}

func (a *testApp) do(t *testing.T, method string, path string, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

// 登録してログインし、access tokenを返す
func (a *testApp) signup(t *testing.T, email string, roles ...model.Role) string {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/users/register", "", handler.RegisterRequest{
		FirstName: "Taro",
		LastName:  "Yamada",
		Email:     email,
		Password:  "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	if len(roles) > 0 {
		require.NoError(t, a.db.Model(&model.User{}).
			Where("email = ?", email).
			Update("roles", model.Roles(roles)).Error)
	}

	rec = a.do(t, http.MethodPost, "/users/login", "", handler.LoginRequest{Email: email, Password: "password123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res handler.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, "Bearer", res.TokenType)
	require.NotEmpty(t, res.AccessToken)
	return res.AccessToken
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var res handler.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res.Error
}

func (a *testApp) createProduct(t *testing.T, token string, req handler.ProductCreateRequest) handler.ProductResponse {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/products", token, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res handler.ProductResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestProducts_PublicReads(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/products", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = app.do(t, http.MethodGet, "/products/42", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "product not found", decodeError(t, rec))

	rec = app.do(t, http.MethodGet, "/products/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodGet, "/products/sorted/random", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// 片方だけなら空
	rec = app.do(t, http.MethodGet, "/products/price?min=1", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = app.do(t, http.MethodGet, "/products/price?min=x&max=2", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProducts_WritesRequireStaff(t *testing.T) {
	app := newTestApp(t)
	client := app.signup(t, "client@example.com")
	admin := app.signup(t, "admin@example.com", model.RoleAdmin)
	support := app.signup(t, "support@example.com", model.RoleSupport)

	req := handler.ProductCreateRequest{
		Type:     "physical",
		Name:     "Go Book",
		Price:    decimal.RequireFromString("12.50"),
		Category: "Books",
		Stock:    3,
	}

	rec := app.do(t, http.MethodPost, "/products", "", req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(t, http.MethodPost, "/products", client, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	created := app.createProduct(t, admin, req)
	assert.Equal(t, "PHYSICAL", created.Type)
	require.NotNil(t, created.Stock)
	assert.Equal(t, int64(3), *created.Stock)
	assert.Empty(t, created.DownloadLink)

	rec = app.do(t, http.MethodPost, "/products", admin, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	bad := req
	bad.Name = "Other"
	bad.Type = "service"
	rec = app.do(t, http.MethodPost, "/products", admin, bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	digital := app.createProduct(t, support, handler.ProductCreateRequest{
		Type:         "DIGITAL",
		Name:         "Editor",
		Price:        decimal.RequireFromString("30"),
		Category:     "Software",
		DownloadLink: "https://dl.example.com/editor",
		License:      "MIT",
	})
	assert.Nil(t, digital.Stock)

	rec = app.do(t, http.MethodPatch, "/products/stock", support, handler.StockUpdateRequest{Name: "Go Book", Stock: 9})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// DIGITALは在庫を持たない
	rec = app.do(t, http.MethodPatch, "/products/stock", support, handler.StockUpdateRequest{Name: "Editor", Stock: 9})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodGet, "/products/name/Go%20Book", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got handler.ProductResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.NotNil(t, got.Stock)
	assert.Equal(t, int64(9), *got.Stock)

	rec = app.do(t, http.MethodGet, "/products/category/books", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []handler.ProductResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = app.do(t, http.MethodDelete, "/products/999", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMe_CartAndCheckout(t *testing.T) {
	app := newTestApp(t)
	admin := app.signup(t, "admin@example.com", model.RoleAdmin)
	client := app.signup(t, "client@example.com")

	book := app.createProduct(t, admin, handler.ProductCreateRequest{
		Type: "PHYSICAL", Name: "Go Book", Price: decimal.RequireFromString("5"), Category: "Books", Stock: 4,
	})

	rec := app.do(t, http.MethodGet, "/me/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Activeカートが無くても空で返る
	rec = app.do(t, http.MethodGet, "/me/cart", client, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cart handler.CartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cart))
	assert.Empty(t, cart.Items)
	assert.True(t, cart.Total.IsZero())

	rec = app.do(t, http.MethodPost, "/me/cart/items", client, handler.MeAddItemRequest{ProductID: book.ID, Amount: 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodGet, "/me/cart", client, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cart))
	require.Len(t, cart.Items, 1)
	assert.True(t, decimal.NewFromInt(10).Equal(cart.Total), "total=%s", cart.Total)

	rec = app.do(t, http.MethodPost, "/me/checkout", client, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var order handler.OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	assert.Equal(t, model.OrderStatusPending, order.Status)
	require.Len(t, order.Items, 1)
	assert.True(t, decimal.NewFromInt(10).Equal(order.Items[0].Subtotal))

	rec = app.do(t, http.MethodGet, "/me/orders", client, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var orders []model.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	assert.Len(t, orders, 1)

	// カートは使い切った
	rec = app.do(t, http.MethodPost, "/me/checkout", client, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodGet, "/products/"+itoa(book.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var after handler.ProductResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &after))
	require.NotNil(t, after.Stock)
	assert.Equal(t, int64(2), *after.Stock)
}

func TestOrders_StatusChangeIsAudited(t *testing.T) {
	app := newTestApp(t)
	admin := app.signup(t, "admin@example.com", model.RoleAdmin)
	client := app.signup(t, "client@example.com")

	book := app.createProduct(t, admin, handler.ProductCreateRequest{
		Type: "PHYSICAL", Name: "Go Book", Price: decimal.RequireFromString("5"), Category: "Books", Stock: 4,
	})
	rec := app.do(t, http.MethodPost, "/me/cart/items", client, handler.MeAddItemRequest{ProductID: book.ID, Amount: 1})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = app.do(t, http.MethodPost, "/me/checkout", client, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var order handler.OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))

	path := "/orders/" + itoa(order.ID)

	rec = app.do(t, http.MethodPut, path+"/status", client, map[string]string{"status": "SHIPPED"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(t, http.MethodPut, path+"/status", admin, map[string]string{"status": "teleported"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodPut, path+"/status", admin, map[string]string{"status": "shipped"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodGet, path+"/audit-logs", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var logs []model.AuditLog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "admin@example.com", logs[0].ActorEmail)
	assert.JSONEq(t, `{"status":"SHIPPED"}`, logs[0].AfterJSON)

	rec = app.do(t, http.MethodGet, "/orders/999", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRanges_DateOnlyToCoversWholeDay(t *testing.T) {
	app := newTestApp(t)
	admin := app.signup(t, "admin@example.com", model.RoleAdmin)
	client := app.signup(t, "client@example.com")

	book := app.createProduct(t, admin, handler.ProductCreateRequest{
		Type: "PHYSICAL", Name: "Go Book", Price: decimal.RequireFromString("5"), Category: "Books", Stock: 4,
	})
	rec := app.do(t, http.MethodPost, "/me/cart/items", client, handler.MeAddItemRequest{ProductID: book.ID, Amount: 1})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	today := time.Now().UTC().Format("2006-01-02")
	query := "?from=" + today + "&to=" + today

	// to=当日 でも当日作成分が入る
	rec = app.do(t, http.MethodGet, "/cart/range"+query, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var carts []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &carts))
	assert.Len(t, carts, 1)

	rec = app.do(t, http.MethodPost, "/me/checkout", client, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodGet, "/orders/range"+query, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var orders []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	assert.Len(t, orders, 1)

	rec = app.do(t, http.MethodGet, "/orders?to="+today, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodGet, "/cart/range?from="+today+"&to=tomorrow", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUsers_AuthFailures(t *testing.T) {
	app := newTestApp(t)
	token := app.signup(t, "client@example.com")

	rec := app.do(t, http.MethodPost, "/users/register", "", handler.RegisterRequest{
		FirstName: "Taro", LastName: "Yamada", Email: "CLIENT@example.com", Password: "password123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = app.do(t, http.MethodPost, "/users/register", "", handler.RegisterRequest{
		FirstName: "Taro", LastName: "Yamada", Email: "not-an-email", Password: "password123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodPost, "/users/login", "", handler.LoginRequest{Email: "client@example.com", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(t, http.MethodGet, "/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(t, http.MethodGet, "/admin/users", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// 停止後は既存トークンも通らない
	require.NoError(t, app.db.Model(&model.User{}).
		Where("email = ?", "client@example.com").
		Update("is_active", false).Error)
	rec = app.do(t, http.MethodGet, "/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe_ChangePassword(t *testing.T) {
	app := newTestApp(t)
	token := app.signup(t, "client@example.com")

	rec := app.do(t, http.MethodPut, "/me/password", token, handler.ChangePasswordRequest{
		CurrentPassword: "nope-nope", NewPassword: "newpassword1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodPut, "/me/password", token, handler.ChangePasswordRequest{
		CurrentPassword: "password123", NewPassword: "newpassword1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodPost, "/users/login", "", handler.LoginRequest{Email: "client@example.com", Password: "newpassword1"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminUsers_ListAndDeactivate(t *testing.T) {
	app := newTestApp(t)
	admin := app.signup(t, "admin@example.com", model.RoleAdmin)
	app.signup(t, "client@example.com")

	rec := app.do(t, http.MethodGet, "/admin/users?page=1&limit=10", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page handler.UserListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, int64(2), page.Total)
	assert.Len(t, page.Items, 2)

	rec = app.do(t, http.MethodGet, "/admin/users?limit=500", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodPatch, "/admin/users/email/client@example.com/deactivate", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodPost, "/users/login", "", handler.LoginRequest{Email: "client@example.com", Password: "password123"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(t, http.MethodGet, "/admin/users/email/ghost@example.com", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
