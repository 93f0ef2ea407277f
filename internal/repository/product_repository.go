package repository

import (
	"context"

	"shopapi/internal/domain/model"

	"github.com/shopspring/decimal"
)

type ProductSort string

const (
	ProductSortNone      ProductSort = ""
	ProductSortPriceAsc  ProductSort = "price_asc"
	ProductSortPriceDesc ProductSort = "price_desc"
	ProductSortName      ProductSort = "name"
)

// 商品の永続化（保存・取得）だけを約束。
// 見つからない場合はErrNotFound、name重複はErrDuplicate。
type ProductRepository interface {
	Create(ctx context.Context, p model.Product) (model.Product, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)
	FindByName(ctx context.Context, name string) (model.Product, error)

	List(ctx context.Context, sort ProductSort) ([]model.Product, error)
	ListByCategory(ctx context.Context, category string) ([]model.Product, error)
	ListByPriceRange(ctx context.Context, min decimal.Decimal, max decimal.Decimal) ([]model.Product, error)
	ListInStock(ctx context.Context) ([]model.Product, error)

	// name/description/category/imageだけ上書き
	UpdateDetails(ctx context.Context, p model.Product) error
	UpdatePriceByName(ctx context.Context, name string, price decimal.Decimal) error
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
}
