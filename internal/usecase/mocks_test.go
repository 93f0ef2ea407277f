package usecase_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"shopapi/internal/domain/model"
	repo "shopapi/internal/repository"
	"shopapi/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// helpers
// =====================

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertErrContains(t *testing.T, err error, want string) {
	t.Helper()
	if assert.Error(t, err) {
		assert.True(t, strings.Contains(err.Error(), want), "error=%q want contains %q", err.Error(), want)
	}
}

func assertKind(t *testing.T, err error, want usecase.ErrorKind) {
	t.Helper()
	assert.Equal(t, want.String(), usecase.KindOf(err).String(), "err=%v", err)
}

// =====================
// TxManager / TxRepos mocks
// =====================

// TxManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.Called(ctx)
	return fn(m.Repos)
}

type TxReposMock struct {
	users      repo.UserRepository
	products   repo.ProductRepository
	inventory  repo.InventoryRepository
	carts      repo.CartRepository
	cartItems  repo.CartItemRepository
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	auditLogs  repo.AuditLogRepository
}

func (r *TxReposMock) Users() repo.UserRepository           { return r.users }
func (r *TxReposMock) Products() repo.ProductRepository     { return r.products }
func (r *TxReposMock) Inventory() repo.InventoryRepository  { return r.inventory }
func (r *TxReposMock) Carts() repo.CartRepository           { return r.carts }
func (r *TxReposMock) CartItems() repo.CartItemRepository   { return r.cartItems }
func (r *TxReposMock) Orders() repo.OrderRepository         { return r.orders }
func (r *TxReposMock) OrderItems() repo.OrderItemRepository { return r.orderItems }
func (r *TxReposMock) AuditLogs() repo.AuditLogRepository   { return r.auditLogs }

// =====================
// Repository mocks
// =====================

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	if args.Error(0) == nil {
		user.ID = 1
	}
	return args.Error(0)
}

func (m *UserRepoMock) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByName(ctx context.Context, name string) ([]model.User, error) {
	args := m.Called(ctx, name)
	users, _ := args.Get(0).([]model.User)
	return users, args.Error(1)
}

func (m *UserRepoMock) List(ctx context.Context, page int, limit int) ([]model.User, int64, error) {
	args := m.Called(ctx, page, limit)
	users, _ := args.Get(0).([]model.User)
	return users, args.Get(1).(int64), args.Error(2)
}

func (m *UserRepoMock) UpdateProfile(ctx context.Context, email string, firstName string, lastName string, phone string) error {
	return m.Called(ctx, email, firstName, lastName, phone).Error(0)
}

func (m *UserRepoMock) SetActive(ctx context.Context, email string, active bool) error {
	return m.Called(ctx, email, active).Error(0)
}

func (m *UserRepoMock) UpdatePasswordHash(ctx context.Context, userID int64, hash string) error {
	return m.Called(ctx, userID, hash).Error(0)
}

func (m *UserRepoMock) DeleteByEmail(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *UserRepoMock) DeleteByID(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) Create(ctx context.Context, p model.Product) (model.Product, error) {
	args := m.Called(ctx, p)
	out, _ := args.Get(0).(model.Product)
	return out, args.Error(1)
}

func (m *ProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(model.Product)
	return out, args.Error(1)
}

func (m *ProductRepoMock) FindByName(ctx context.Context, name string) (model.Product, error) {
	args := m.Called(ctx, name)
	out, _ := args.Get(0).(model.Product)
	return out, args.Error(1)
}

func (m *ProductRepoMock) List(ctx context.Context, sort repo.ProductSort) ([]model.Product, error) {
	args := m.Called(ctx, sort)
	out, _ := args.Get(0).([]model.Product)
	return out, args.Error(1)
}

func (m *ProductRepoMock) ListByCategory(ctx context.Context, category string) ([]model.Product, error) {
	args := m.Called(ctx, category)
	out, _ := args.Get(0).([]model.Product)
	return out, args.Error(1)
}

func (m *ProductRepoMock) ListByPriceRange(ctx context.Context, min decimal.Decimal, max decimal.Decimal) ([]model.Product, error) {
	args := m.Called(ctx, min.String(), max.String())
	out, _ := args.Get(0).([]model.Product)
	return out, args.Error(1)
}

func (m *ProductRepoMock) ListInStock(ctx context.Context) ([]model.Product, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]model.Product)
	return out, args.Error(1)
}

func (m *ProductRepoMock) UpdateDetails(ctx context.Context, p model.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *ProductRepoMock) UpdatePriceByName(ctx context.Context, name string, price decimal.Decimal) error {
	return m.Called(ctx, name, price.String()).Error(0)
}

func (m *ProductRepoMock) SetActive(ctx context.Context, id int64, active bool) error {
	return m.Called(ctx, id, active).Error(0)
}

func (m *ProductRepoMock) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type InventoryRepoMock struct{ mock.Mock }

func (m *InventoryRepoMock) SetStock(ctx context.Context, productID int64, newStock int64) (int64, error) {
	args := m.Called(ctx, productID, newStock)
	return args.Get(0).(int64), args.Error(1)
}

func (m *InventoryRepoMock) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	args := m.Called(ctx, productID, qty)
	return args.Bool(0), args.Error(1)
}

func (m *InventoryRepoMock) CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error {
	return m.Called(ctx, adjustment).Error(0)
}

func (m *InventoryRepoMock) ListAdjustments(ctx context.Context, productID int64) ([]model.InventoryAdjustment, error) {
	args := m.Called(ctx, productID)
	out, _ := args.Get(0).([]model.InventoryAdjustment)
	return out, args.Error(1)
}

type CartRepoMock struct{ mock.Mock }

func (m *CartRepoMock) GetOrCreateActiveByUserID(ctx context.Context, userID int64, now time.Time) (model.Cart, error) {
	args := m.Called(ctx, userID, now)
	out, _ := args.Get(0).(model.Cart)
	return out, args.Error(1)
}

func (m *CartRepoMock) Create(ctx context.Context, cart model.Cart) (model.Cart, error) {
	panic("not used in usecase tests")
}

func (m *CartRepoMock) FindByID(ctx context.Context, cartID int64) (model.Cart, error) {
	args := m.Called(ctx, cartID)
	out, _ := args.Get(0).(model.Cart)
	return out, args.Error(1)
}

func (m *CartRepoMock) FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	out, _ := args.Get(0).(model.Cart)
	return out, args.Error(1)
}

func (m *CartRepoMock) FindLatestByUserEmail(ctx context.Context, email string) (model.Cart, error) {
	args := m.Called(ctx, email)
	out, _ := args.Get(0).(model.Cart)
	return out, args.Error(1)
}

func (m *CartRepoMock) List(ctx context.Context) ([]model.Cart, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]model.Cart)
	return out, args.Error(1)
}

func (m *CartRepoMock) ListByUserID(ctx context.Context, userID int64) ([]model.Cart, error) {
	args := m.Called(ctx, userID)
	out, _ := args.Get(0).([]model.Cart)
	return out, args.Error(1)
}

func (m *CartRepoMock) ListByCreatedRange(ctx context.Context, from time.Time, to time.Time) ([]model.Cart, error) {
	args := m.Called(ctx, from, to)
	out, _ := args.Get(0).([]model.Cart)
	return out, args.Error(1)
}

func (m *CartRepoMock) ListWithMoreThanNItems(ctx context.Context, n int64) ([]model.Cart, error) {
	args := m.Called(ctx, n)
	out, _ := args.Get(0).([]model.Cart)
	return out, args.Error(1)
}

func (m *CartRepoMock) SetActive(ctx context.Context, cartID int64, active bool) error {
	return m.Called(ctx, cartID, active).Error(0)
}

func (m *CartRepoMock) Clear(ctx context.Context, cartID int64) error {
	return m.Called(ctx, cartID).Error(0)
}

func (m *CartRepoMock) Delete(ctx context.Context, cartID int64) error {
	return m.Called(ctx, cartID).Error(0)
}

type CartItemRepoMock struct{ mock.Mock }

func (m *CartItemRepoMock) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	args := m.Called(ctx, cartID)
	out, _ := args.Get(0).([]model.CartItem)
	return out, args.Error(1)
}

func (m *CartItemRepoMock) FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error) {
	args := m.Called(ctx, cartItemID)
	out, _ := args.Get(0).(model.CartItem)
	return out, args.Error(1)
}

func (m *CartItemRepoMock) FindByCartAndProduct(ctx context.Context, cartID int64, productID int64) (model.CartItem, error) {
	args := m.Called(ctx, cartID, productID)
	out, _ := args.Get(0).(model.CartItem)
	return out, args.Error(1)
}

// decimalは比較しやすいように文字列で記録
func (m *CartItemRepoMock) UpsertByCartAndProduct(ctx context.Context, cartID int64, productID int64, amount int64, addPrice decimal.Decimal, now time.Time) (model.CartItem, error) {
	args := m.Called(ctx, cartID, productID, amount, addPrice.StringFixed(2), now)
	out, _ := args.Get(0).(model.CartItem)
	return out, args.Error(1)
}

func (m *CartItemRepoMock) UpdateAmount(ctx context.Context, cartItemID int64, amount int64) error {
	return m.Called(ctx, cartItemID, amount).Error(0)
}

func (m *CartItemRepoMock) IncreaseAmount(ctx context.Context, cartItemID int64, n int64) error {
	return m.Called(ctx, cartItemID, n).Error(0)
}

func (m *CartItemRepoMock) DecreaseAmount(ctx context.Context, cartItemID int64, n int64) error {
	return m.Called(ctx, cartItemID, n).Error(0)
}

func (m *CartItemRepoMock) DeleteByID(ctx context.Context, cartItemID int64) error {
	return m.Called(ctx, cartItemID).Error(0)
}

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) (model.Order, error) {
	args := m.Called(ctx, order)
	out, _ := args.Get(0).(model.Order)
	return out, args.Error(1)
}

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	out, _ := args.Get(0).(model.Order)
	return out, args.Error(1)
}

func (m *OrderRepoMock) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, error) {
	args := m.Called(ctx, f)
	out, _ := args.Get(0).([]model.Order)
	return out, args.Error(1)
}

func (m *OrderRepoMock) ListByUserEmail(ctx context.Context, email string) ([]model.Order, error) {
	args := m.Called(ctx, email)
	out, _ := args.Get(0).([]model.Order)
	return out, args.Error(1)
}

func (m *OrderRepoMock) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	return m.Called(ctx, orderID, status).Error(0)
}

func (m *OrderRepoMock) UpdatePaymentStatus(ctx context.Context, orderID int64, status model.PaymentStatus) error {
	return m.Called(ctx, orderID, status).Error(0)
}

func (m *OrderRepoMock) Delete(ctx context.Context, orderID int64) error {
	return m.Called(ctx, orderID).Error(0)
}

type OrderItemRepoMock struct{ mock.Mock }

// 渡された明細にIDを振って返す
func (m *OrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID, items)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	out := make([]model.OrderItem, len(items))
	for i, it := range items {
		it.ID = int64(i + 1)
		it.OrderID = orderID
		out[i] = it
	}
	return out, nil
}

func (m *OrderItemRepoMock) FindByID(ctx context.Context, itemID int64) (model.OrderItem, error) {
	args := m.Called(ctx, itemID)
	out, _ := args.Get(0).(model.OrderItem)
	return out, args.Error(1)
}

func (m *OrderItemRepoMock) FindByOrderAndProduct(ctx context.Context, orderID int64, productID int64) (model.OrderItem, error) {
	args := m.Called(ctx, orderID, productID)
	out, _ := args.Get(0).(model.OrderItem)
	return out, args.Error(1)
}

func (m *OrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	out, _ := args.Get(0).([]model.OrderItem)
	return out, args.Error(1)
}

func (m *OrderItemRepoMock) ListByProductID(ctx context.Context, productID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, productID)
	out, _ := args.Get(0).([]model.OrderItem)
	return out, args.Error(1)
}

func (m *OrderItemRepoMock) IncreaseAmount(ctx context.Context, itemID int64, n int64) error {
	return m.Called(ctx, itemID, n).Error(0)
}

func (m *OrderItemRepoMock) DecreaseAmount(ctx context.Context, itemID int64, n int64) error {
	return m.Called(ctx, itemID, n).Error(0)
}

func (m *OrderItemRepoMock) DeleteByID(ctx context.Context, itemID int64) error {
	return m.Called(ctx, itemID).Error(0)
}

type AuditRepoMock struct{ mock.Mock }

func (m *AuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	return m.Called(ctx, log).Error(0)
}

func (m *AuditRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, filter)
	out, _ := args.Get(0).([]model.AuditLog)
	return out, args.Error(1)
}

type FaultReporterMock struct{ mock.Mock }

func (m *FaultReporterMock) StoreFault(component string, operation string) {
	m.Called(component, operation)
}
