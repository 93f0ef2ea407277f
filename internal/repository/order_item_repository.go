package repository

import (
	"context"

	"shopapi/internal/domain/model"
)

type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) ([]model.OrderItem, error)
	FindByID(ctx context.Context, itemID int64) (model.OrderItem, error)
	FindByOrderAndProduct(ctx context.Context, orderID int64, productID int64) (model.OrderItem, error)
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
	ListByProductID(ctx context.Context, productID int64) ([]model.OrderItem, error)

	IncreaseAmount(ctx context.Context, itemID int64, n int64) error
	// 0未満にはしない
	DecreaseAmount(ctx context.Context, itemID int64, n int64) error
	DeleteByID(ctx context.Context, itemID int64) error
}
