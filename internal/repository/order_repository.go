package repository

import (
	"context"
	"time"

	"shopapi/internal/domain/model"
)

// 一覧の絞り込み。nilは条件なし
type OrderListFilter struct {
	UserID        *int64
	Status        *model.OrderStatus
	PaymentStatus *model.PaymentStatus
	From          *time.Time
	To            *time.Time
}

type OrderRepository interface {
	Create(ctx context.Context, order model.Order) (model.Order, error)
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	List(ctx context.Context, f OrderListFilter) ([]model.Order, error)
	ListByUserEmail(ctx context.Context, email string) ([]model.Order, error)

	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error
	UpdatePaymentStatus(ctx context.Context, orderID int64, status model.PaymentStatus) error
	// 明細ごと削除
	Delete(ctx context.Context, orderID int64) error
}
