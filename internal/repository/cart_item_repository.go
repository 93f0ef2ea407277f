package repository

import (
	"context"
	"time"

	"shopapi/internal/domain/model"

	"github.com/shopspring/decimal"
)

type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
	FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error)
	FindByCartAndProduct(ctx context.Context, cartID int64, productID int64) (model.CartItem, error)

	// 同一商品は数量と累計金額をプラス
	UpsertByCartAndProduct(ctx context.Context, cartID int64, productID int64, amount int64, addPrice decimal.Decimal, now time.Time) (model.CartItem, error)

	UpdateAmount(ctx context.Context, cartItemID int64, amount int64) error
	IncreaseAmount(ctx context.Context, cartItemID int64, n int64) error
	// 0未満にはしない
	DecreaseAmount(ctx context.Context, cartItemID int64, n int64) error
	DeleteByID(ctx context.Context, cartItemID int64) error
}
