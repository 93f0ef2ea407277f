package repository

import (
	"context"
	"strings"
	"time"

	"shopapi/internal/domain/model"
	repo "shopapi/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// productsテーブルの1行。
// PHYSICAL/DIGITALの固有項目はnullableなカラムに展開する。
type productRow struct {
	ID              int64             `gorm:"primaryKey;autoIncrement"`
	Name            string            `gorm:"type:varchar(255);not null;uniqueIndex"`
	Price           decimal.Decimal   `gorm:"type:numeric(10,2);not null"`
	Description     string            `gorm:"type:text"`
	ImageURL        string            `gorm:"column:image_url;type:varchar(512)"`
	Category        string            `gorm:"type:varchar(100);not null;index"`
	IsActive        bool              `gorm:"not null"`
	Kind            model.ProductKind `gorm:"type:varchar(20);not null;index"`
	Stock           *int64
	ShippingAddress *string `gorm:"type:varchar(255)"`
	DownloadLink    *string `gorm:"type:varchar(512)"`
	License         *string `gorm:"type:varchar(255)"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

func (productRow) TableName() string { return "products" }

func toProductRow(p model.Product) productRow {
	row := productRow{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Category:    p.Category,
		IsActive:    p.IsActive,
		Kind:        p.Kind,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}

	switch p.Kind {
	case model.ProductKindPhysical:
		d := model.PhysicalDetail{}
		if p.Physical != nil {
			d = *p.Physical
		}
		row.Stock = &d.Stock
		row.ShippingAddress = &d.ShippingAddress
	case model.ProductKindDigital:
		d := model.DigitalDetail{}
		if p.Digital != nil {
			d = *p.Digital
		}
		row.DownloadLink = &d.DownloadLink
		row.License = &d.License
	}
	return row
}

func (row productRow) toModel() model.Product {
	p := model.Product{
		ID:          row.ID,
		Name:        row.Name,
		Price:       row.Price,
		Description: row.Description,
		ImageURL:    row.ImageURL,
		Category:    row.Category,
		IsActive:    row.IsActive,
		Kind:        row.Kind,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}

	switch row.Kind {
	case model.ProductKindPhysical:
		p.Physical = &model.PhysicalDetail{
			Stock:           deref(row.Stock),
			ShippingAddress: deref(row.ShippingAddress),
		}
	case model.ProductKindDigital:
		p.Digital = &model.DigitalDetail{
			DownloadLink: deref(row.DownloadLink),
			License:      deref(row.License),
		}
	}
	return p
}

func deref[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}

func toProducts(rows []productRow) []model.Product {
	out := make([]model.Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out
}

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

var _ repo.ProductRepository = (*ProductGormRepository)(nil)

// 商品の作成
func (r *ProductGormRepository) Create(ctx context.Context, p model.Product) (model.Product, error) {
	row := toProductRow(p)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.Product{}, translateErr(err)
	}
	return row.toModel(), nil
}

// IDで商品を取得
func (r *ProductGormRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	var row productRow
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return model.Product{}, translateErr(err)
	}
	return row.toModel(), nil
}

// 商品名（unique）で取得
func (r *ProductGormRepository) FindByName(ctx context.Context, name string) (model.Product, error) {
	var row productRow
	err := r.db.WithContext(ctx).
		Where("name = ?", strings.TrimSpace(name)).
		First(&row).Error
	if err != nil {
		return model.Product{}, translateErr(err)
	}
	return row.toModel(), nil
}

func (r *ProductGormRepository) List(ctx context.Context, sort repo.ProductSort) ([]model.Product, error) {
	tx := r.db.WithContext(ctx).Model(&productRow{})

	//sort
	switch sort {
	case repo.ProductSortPriceAsc:
		tx = tx.Order("price asc").Order("id asc")
	case repo.ProductSortPriceDesc:
		tx = tx.Order("price desc").Order("id asc")
	case repo.ProductSortName:
		tx = tx.Order("LOWER(name) asc").Order("id asc")
	default:
		tx = tx.Order("id asc")
	}

	var rows []productRow
	if err := tx.Find(&rows).Error; err != nil {
		return []model.Product{}, err
	}
	return toProducts(rows), nil
}

// カテゴリ完全一致（大文字小文字無視）
func (r *ProductGormRepository) ListByCategory(ctx context.Context, category string) ([]model.Product, error) {
	var rows []productRow
	err := r.db.WithContext(ctx).
		Where("LOWER(category) = LOWER(?)", strings.TrimSpace(category)).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return []model.Product{}, err
	}
	return toProducts(rows), nil
}

// 価格帯（両端を含む）
func (r *ProductGormRepository) ListByPriceRange(ctx context.Context, min decimal.Decimal, max decimal.Decimal) ([]model.Product, error) {
	var rows []productRow
	err := r.db.WithContext(ctx).
		Where("price BETWEEN ? AND ?", min, max).
		Order("price asc").
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return []model.Product{}, err
	}
	return toProducts(rows), nil
}

// 在庫ありのPHYSICAL商品
func (r *ProductGormRepository) ListInStock(ctx context.Context) ([]model.Product, error) {
	var rows []productRow
	err := r.db.WithContext(ctx).
		Where("kind = ? AND stock > 0", model.ProductKindPhysical).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return []model.Product{}, err
	}
	return toProducts(rows), nil
}

// 表示項目の更新（価格・在庫は触らない）
func (r *ProductGormRepository) UpdateDetails(ctx context.Context, p model.Product) error {
	res := r.db.WithContext(ctx).Model(&productRow{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
		"name":        p.Name,
		"description": p.Description,
		"category":    p.Category,
		"image_url":   p.ImageURL,
	})
	return affected(res)
}

func (r *ProductGormRepository) UpdatePriceByName(ctx context.Context, name string, price decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&productRow{}).
		Where("name = ?", strings.TrimSpace(name)).
		Update("price", price)
	return affected(res)
}

func (r *ProductGormRepository) SetActive(ctx context.Context, id int64, active bool) error {
	res := r.db.WithContext(ctx).
		Model(&productRow{}).
		Where("id = ?", id).
		Update("is_active", active)
	return affected(res)
}

// 商品削除
func (r *ProductGormRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&productRow{}, id)
	return affected(res)
}
