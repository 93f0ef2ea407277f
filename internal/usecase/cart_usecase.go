package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"shopapi/internal/domain/model"
	repo "shopapi/internal/repository"

	"github.com/shopspring/decimal"
)

// CartUsecase はカートと明細の業務ロジックです。
type CartUsecase struct {
	tx        repo.TransactionManager
	carts     repo.CartRepository
	cartItems repo.CartItemRepository
	users     repo.UserRepository
	clock     Clock
}

func NewCartUsecase(
	tx repo.TransactionManager,
	carts repo.CartRepository,
	cartItems repo.CartItemRepository,
	users repo.UserRepository,
	clock Clock,
) *CartUsecase {
	return &CartUsecase{
		tx:        tx,
		carts:     carts,
		cartItems: cartItems,
		users:     users,
		clock:     clock,
	}
}

// カート + 明細 + 合計
type CartDetail struct {
	Cart  model.Cart
	Items []model.CartItem
	Total decimal.Decimal
}

// 明細のPrice（累計）を足すだけ
func sumCartItems(items []model.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Price)
	}
	return total
}

// AddItemToCart はActiveカート（無ければ作成）に商品を追加する。
// 同一商品は数量と「数量×単価」を加算。全部1つのTx。
func (u *CartUsecase) AddItemToCart(ctx context.Context, userID int64, productID int64, amount int64) (model.CartItem, error) {
	var out model.CartItem

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Users().FindByID(ctx, userID); err != nil {
			return lookupErr(err, "user")
		}

		now := u.clock.Now()
		cart, err := r.Carts().GetOrCreateActiveByUserID(ctx, userID, now)
		if err != nil {
			return NewUnexpected(err)
		}

		p, err := r.Products().FindByID(ctx, productID)
		if err != nil {
			return lookupErr(err, "product")
		}

		addPrice := p.Price.Mul(decimal.NewFromInt(amount))
		item, err := r.CartItems().UpsertByCartAndProduct(ctx, cart.ID, productID, amount, addPrice, now)
		if err != nil {
			return NewUnexpected(err)
		}

		out = item
		return nil
	})
	if err != nil {
		return model.CartItem{}, lookupErr(err, "cart")
	}
	return out, nil
}

// 明細削除（明細がそのカートのものか確認）
func (u *CartUsecase) RemoveItemFromCart(ctx context.Context, cartID int64, cartItemID int64) error {
	if _, err := u.carts.FindByID(ctx, cartID); err != nil {
		return lookupErr(err, "cart")
	}

	item, err := u.cartItems.FindByID(ctx, cartItemID)
	if err != nil {
		return lookupErr(err, "cart item")
	}
	if item.CartID != cartID {
		return NewInvalidArgument("cart item does not belong to cart")
	}

	if err := u.cartItems.DeleteByID(ctx, cartItemID); err != nil {
		return lookupErr(err, "cart item")
	}
	return nil
}

// 数量をそのまま上書き（Priceは触らない）
func (u *CartUsecase) UpdateCartItemAmount(ctx context.Context, cartItemID int64, amount int64) (model.CartItem, error) {
	if amount < 0 {
		return model.CartItem{}, NewInvalidArgument("amount must be >= 0")
	}
	if err := u.cartItems.UpdateAmount(ctx, cartItemID, amount); err != nil {
		return model.CartItem{}, lookupErr(err, "cart item")
	}
	return u.GetCartItem(ctx, cartItemID)
}

func (u *CartUsecase) IncreaseCartItemAmount(ctx context.Context, cartItemID int64, n int64) (model.CartItem, error) {
	if n < 0 {
		return model.CartItem{}, NewInvalidArgument("amount must be >= 0")
	}
	if err := u.cartItems.IncreaseAmount(ctx, cartItemID, n); err != nil {
		return model.CartItem{}, lookupErr(err, "cart item")
	}
	return u.GetCartItem(ctx, cartItemID)
}

// 0未満にはならない
func (u *CartUsecase) DecreaseCartItemAmount(ctx context.Context, cartItemID int64, n int64) (model.CartItem, error) {
	if n < 0 {
		return model.CartItem{}, NewInvalidArgument("amount must be >= 0")
	}
	if err := u.cartItems.DecreaseAmount(ctx, cartItemID, n); err != nil {
		return model.CartItem{}, lookupErr(err, "cart item")
	}
	return u.GetCartItem(ctx, cartItemID)
}

// 空のカートは0
func (u *CartUsecase) GetCartTotal(ctx context.Context, cartID int64) (decimal.Decimal, error) {
	if _, err := u.carts.FindByID(ctx, cartID); err != nil {
		return decimal.Zero, lookupErr(err, "cart")
	}
	items, err := u.cartItems.ListByCartID(ctx, cartID)
	if err != nil {
		return decimal.Zero, NewUnexpected(err)
	}
	return sumCartItems(items), nil
}

func (u *CartUsecase) ClearCart(ctx context.Context, cartID int64) error {
	if err := u.carts.Clear(ctx, cartID); err != nil {
		return lookupErr(err, "cart")
	}
	return nil
}

// Activeカートを返す（無ければ作る）
func (u *CartUsecase) CreateCart(ctx context.Context, userID int64) (model.Cart, error) {
	if _, err := u.users.FindByID(ctx, userID); err != nil {
		return model.Cart{}, lookupErr(err, "user")
	}
	cart, err := u.carts.GetOrCreateActiveByUserID(ctx, userID, u.clock.Now())
	if err != nil {
		return model.Cart{}, NewUnexpected(err)
	}
	return cart, nil
}

// カートと明細を削除
func (u *CartUsecase) DeleteCart(ctx context.Context, cartID int64) error {
	if err := u.carts.Delete(ctx, cartID); err != nil {
		return lookupErr(err, "cart")
	}
	return nil
}

func (u *CartUsecase) GetCart(ctx context.Context, cartID int64) (CartDetail, error) {
	cart, err := u.carts.FindByID(ctx, cartID)
	if err != nil {
		return CartDetail{}, lookupErr(err, "cart")
	}
	return u.detail(ctx, cart)
}

// ログインユーザー用。Activeカートが無ければ空で返す（作らない）
func (u *CartUsecase) GetActiveCartDetail(ctx context.Context, userID int64) (CartDetail, error) {
	cart, err := u.carts.FindActiveByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return CartDetail{Items: []model.CartItem{}, Total: decimal.Zero}, nil
	}
	if err != nil {
		return CartDetail{}, NewUnexpected(err)
	}
	return u.detail(ctx, cart)
}

func (u *CartUsecase) detail(ctx context.Context, cart model.Cart) (CartDetail, error) {
	items, err := u.cartItems.ListByCartID(ctx, cart.ID)
	if err != nil {
		return CartDetail{}, NewUnexpected(err)
	}
	return CartDetail{Cart: cart, Items: items, Total: sumCartItems(items)}, nil
}

func (u *CartUsecase) ListCarts(ctx context.Context) ([]model.Cart, error) {
	carts, err := u.carts.List(ctx)
	if err != nil {
		return []model.Cart{}, NewUnexpected(err)
	}
	return carts, nil
}

func (u *CartUsecase) ListCartsByUserID(ctx context.Context, userID int64) ([]model.Cart, error) {
	carts, err := u.carts.ListByUserID(ctx, userID)
	if err != nil {
		return []model.Cart{}, NewUnexpected(err)
	}
	return carts, nil
}

// 作成日時が一番新しいカート
func (u *CartUsecase) FindCartByUserEmail(ctx context.Context, email string) (model.Cart, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return model.Cart{}, NewInvalidArgument("email required")
	}
	cart, err := u.carts.FindLatestByUserEmail(ctx, email)
	if err != nil {
		return model.Cart{}, lookupErr(err, "cart")
	}
	return cart, nil
}

func (u *CartUsecase) FindActiveCart(ctx context.Context, userID int64) (model.Cart, error) {
	cart, err := u.carts.FindActiveByUserID(ctx, userID)
	if err != nil {
		return model.Cart{}, lookupErr(err, "active cart")
	}
	return cart, nil
}

func (u *CartUsecase) ListCartsByDateRange(ctx context.Context, from time.Time, to time.Time) ([]model.Cart, error) {
	if from.After(to) {
		return []model.Cart{}, NewInvalidArgument("from must be <= to")
	}
	carts, err := u.carts.ListByCreatedRange(ctx, from, to)
	if err != nil {
		return []model.Cart{}, NewUnexpected(err)
	}
	return carts, nil
}

func (u *CartUsecase) ListCartsWithMoreThanNItems(ctx context.Context, n int64) ([]model.Cart, error) {
	if n < 0 {
		return []model.Cart{}, NewInvalidArgument("n must be >= 0")
	}
	carts, err := u.carts.ListWithMoreThanNItems(ctx, n)
	if err != nil {
		return []model.Cart{}, NewUnexpected(err)
	}
	return carts, nil
}

func (u *CartUsecase) ListCartItems(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	if _, err := u.carts.FindByID(ctx, cartID); err != nil {
		return []model.CartItem{}, lookupErr(err, "cart")
	}
	items, err := u.cartItems.ListByCartID(ctx, cartID)
	if err != nil {
		return []model.CartItem{}, NewUnexpected(err)
	}
	return items, nil
}

func (u *CartUsecase) GetCartItem(ctx context.Context, cartItemID int64) (model.CartItem, error) {
	item, err := u.cartItems.FindByID(ctx, cartItemID)
	if err != nil {
		return model.CartItem{}, lookupErr(err, "cart item")
	}
	return item, nil
}

func (u *CartUsecase) FindCartItemByCartAndProduct(ctx context.Context, cartID int64, productID int64) (model.CartItem, error) {
	item, err := u.cartItems.FindByCartAndProduct(ctx, cartID, productID)
	if err != nil {
		return model.CartItem{}, lookupErr(err, "cart item")
	}
	return item, nil
}
