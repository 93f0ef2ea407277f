package repository

import (
	"context"
	"time"

	"shopapi/internal/domain/model"
)

type CartRepository interface {
	GetOrCreateActiveByUserID(ctx context.Context, userID int64, now time.Time) (model.Cart, error)
	Create(ctx context.Context, cart model.Cart) (model.Cart, error)

	FindByID(ctx context.Context, cartID int64) (model.Cart, error)
	FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error)
	// 作成日時が一番新しいカート
	FindLatestByUserEmail(ctx context.Context, email string) (model.Cart, error)

	List(ctx context.Context) ([]model.Cart, error)
	ListByUserID(ctx context.Context, userID int64) ([]model.Cart, error)
	ListByCreatedRange(ctx context.Context, from time.Time, to time.Time) ([]model.Cart, error)
	ListWithMoreThanNItems(ctx context.Context, n int64) ([]model.Cart, error)

	SetActive(ctx context.Context, cartID int64, active bool) error
	Clear(ctx context.Context, cartID int64) error
	// 明細ごと削除
	Delete(ctx context.Context, cartID int64) error
}
