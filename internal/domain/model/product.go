package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// 商品の種類（タグ）
type ProductKind string

const (
	ProductKindPhysical ProductKind = "PHYSICAL"
	ProductKindDigital  ProductKind = "DIGITAL"
)

func ParseProductKind(s string) (ProductKind, bool) {
	switch ProductKind(strings.ToUpper(strings.TrimSpace(s))) {
	case ProductKindPhysical:
		return ProductKindPhysical, true
	case ProductKindDigital:
		return ProductKindDigital, true
	}
	return "", false
}

// 物理商品だけが持つ項目
type PhysicalDetail struct {
	Stock           int64
	ShippingAddress string
}

// デジタル商品だけが持つ項目
type DigitalDetail struct {
	DownloadLink string
	License      string
}

// Productは共通項目 + Kindに対応するPhysical/Digitalのどちらか1つを持つ。
// テーブルへの変換はinfra側で行う。
type Product struct {
	ID          int64
	Name        string
	Price       decimal.Decimal
	Description string
	ImageURL    string
	Category    string
	IsActive    bool
	Kind        ProductKind

	Physical *PhysicalDetail
	Digital  *DigitalDetail

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewPhysicalProduct(name string, price decimal.Decimal, d PhysicalDetail) Product {
	return Product{Name: name, Price: price, Kind: ProductKindPhysical, Physical: &d, IsActive: true}
}

func NewDigitalProduct(name string, price decimal.Decimal, d DigitalDetail) Product {
	return Product{Name: name, Price: price, Kind: ProductKindDigital, Digital: &d, IsActive: true}
}

// 在庫を持つ商品ならPhysicalDetailを返す
func (p Product) StockDetail() (*PhysicalDetail, bool) {
	if p.Kind != ProductKindPhysical || p.Physical == nil {
		return nil, false
	}
	return p.Physical, true
}
