package repository

import (
	"context"

	"shopapi/internal/domain/model"
)

type InventoryRepository interface {
	// 在庫の現在値を設定（PHYSICAL以外はErrNotFound）。変更前の値を返す
	SetStock(ctx context.Context, productID int64, newStock int64) (int64, error)

	// 在庫が足りるときだけ減算
	DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error)

	// 調整履歴作成
	CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error
	ListAdjustments(ctx context.Context, productID int64) ([]model.InventoryAdjustment, error)
}
