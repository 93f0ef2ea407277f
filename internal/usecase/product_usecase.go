package usecase

import (
	"context"
	"errors"
	"strings"

	"shopapi/internal/domain/model"
	repo "shopapi/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DBの障害（not found以外）を数える
type FaultReporter interface {
	StoreFault(component string, operation string)
}

const productComponent = "product"

type ProductUsecase struct {
	products  repo.ProductRepository
	inventory repo.InventoryRepository
	tx        repo.TransactionManager
	clock     Clock
	log       *zap.Logger
	faults    FaultReporter
}

// DI
func NewProductUsecase(
	products repo.ProductRepository,
	inventory repo.InventoryRepository,
	tx repo.TransactionManager,
	clock Clock,
	log *zap.Logger,
	faults FaultReporter,
) *ProductUsecase {
	return &ProductUsecase{
		products:  products,
		inventory: inventory,
		tx:        tx,
		clock:     clock,
		log:       log,
		faults:    faults,
	}
}

type CreateProductInput struct {
	Kind        string
	Name        string
	Price       decimal.Decimal
	Description string
	ImageURL    string
	Category    string

	// PHYSICAL
	Stock           int64
	ShippingAddress string

	// DIGITAL
	DownloadLink string
	License      string
}

type UpdateProductInput struct {
	Name        string
	Description string
	Category    string
	ImageURL    string
}

// not found以外のエラーはログとメトリクスに残してUnexpectedにする
func (u *ProductUsecase) fault(op string, err error) error {
	u.log.Error("product store fault", zap.String("operation", op), zap.Error(err))
	u.faults.StoreFault(productComponent, op)
	return NewUnexpected(err)
}

func (u *ProductUsecase) Create(ctx context.Context, in CreateProductInput) (model.Product, error) {
	kind, ok := model.ParseProductKind(in.Kind)
	if !ok {
		return model.Product{}, NewInvalidArgument("invalid product type")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Product{}, NewInvalidArgument("name required")
	}
	if in.Price.IsNegative() {
		return model.Product{}, NewInvalidArgument("price must be >= 0")
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		return model.Product{}, NewInvalidArgument("category required")
	}

	var p model.Product
	switch kind {
	case model.ProductKindPhysical:
		if in.Stock < 0 {
			return model.Product{}, NewInvalidArgument("stock must be >= 0")
		}
		p = model.NewPhysicalProduct(name, in.Price, model.PhysicalDetail{
			Stock:           in.Stock,
			ShippingAddress: strings.TrimSpace(in.ShippingAddress),
		})
	case model.ProductKindDigital:
		p = model.NewDigitalProduct(name, in.Price, model.DigitalDetail{
			DownloadLink: strings.TrimSpace(in.DownloadLink),
			License:      strings.TrimSpace(in.License),
		})
	}

	now := u.clock.Now()
	p.Description = in.Description
	p.ImageURL = strings.TrimSpace(in.ImageURL)
	p.Category = category
	p.CreatedAt = now
	p.UpdatedAt = now

	created, err := u.products.Create(ctx, p)
	if errors.Is(err, repo.ErrDuplicate) {
		return model.Product{}, NewConflict("product name already exists")
	}
	if err != nil {
		return model.Product{}, u.fault("create", err)
	}

	u.log.Info("product created", zap.Int64("product_id", created.ID), zap.String("kind", string(created.Kind)))
	return created, nil
}

// 見つからなければfound=false
func (u *ProductUsecase) GetByID(ctx context.Context, id int64) (model.Product, bool, error) {
	p, err := u.products.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, false, nil
	}
	if err != nil {
		return model.Product{}, false, u.fault("get_by_id", err)
	}
	return p, true, nil
}

func (u *ProductUsecase) GetByName(ctx context.Context, name string) (model.Product, bool, error) {
	if strings.TrimSpace(name) == "" {
		return model.Product{}, false, nil
	}
	p, err := u.products.FindByName(ctx, name)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, false, nil
	}
	if err != nil {
		return model.Product{}, false, u.fault("get_by_name", err)
	}
	return p, true, nil
}

func (u *ProductUsecase) List(ctx context.Context, sort repo.ProductSort) ([]model.Product, error) {
	items, err := u.products.List(ctx, sort)
	if err != nil {
		return []model.Product{}, u.fault("list", err)
	}
	return items, nil
}

func (u *ProductUsecase) ListByCategory(ctx context.Context, category string) ([]model.Product, error) {
	if strings.TrimSpace(category) == "" {
		return []model.Product{}, nil
	}
	items, err := u.products.ListByCategory(ctx, category)
	if err != nil {
		return []model.Product{}, u.fault("list_by_category", err)
	}
	return items, nil
}

// 片方でも欠けていれば空
func (u *ProductUsecase) ListByPriceRange(ctx context.Context, min *decimal.Decimal, max *decimal.Decimal) ([]model.Product, error) {
	if min == nil || max == nil {
		return []model.Product{}, nil
	}
	items, err := u.products.ListByPriceRange(ctx, *min, *max)
	if err != nil {
		return []model.Product{}, u.fault("list_by_price_range", err)
	}
	return items, nil
}

func (u *ProductUsecase) ListInStock(ctx context.Context) ([]model.Product, error) {
	items, err := u.products.ListInStock(ctx)
	if err != nil {
		return []model.Product{}, u.fault("list_in_stock", err)
	}
	return items, nil
}

// PHYSICALかつ存在するときだけtrue。在庫履歴も同じTxで残す
func (u *ProductUsecase) UpdateStock(ctx context.Context, name string, stock int64) (bool, error) {
	if stock < 0 {
		return false, NewInvalidArgument("stock must be >= 0")
	}

	updated := false
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().FindByName(ctx, name)
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, ok := p.StockDetail(); !ok {
			return nil
		}

		before, err := r.Inventory().SetStock(ctx, p.ID, stock)
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
			ProductID:  p.ID,
			ActorEmail: ActorFrom(ctx),
			Delta:      stock - before,
			Reason:     "stock update",
			CreatedAt:  u.clock.Now(),
		}); err != nil {
			return err
		}

		updated = true
		return nil
	})
	if err != nil {
		return false, u.fault("update_stock", err)
	}
	return updated, nil
}

func (u *ProductUsecase) UpdatePrice(ctx context.Context, name string, price decimal.Decimal) (bool, error) {
	if price.IsNegative() {
		return false, NewInvalidArgument("price must be >= 0")
	}
	err := u.products.UpdatePriceByName(ctx, name, price)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, u.fault("update_price", err)
	}
	return true, nil
}

// active=falseにするだけ
func (u *ProductUsecase) Disable(ctx context.Context, id int64) (bool, error) {
	err := u.products.SetActive(ctx, id, false)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, u.fault("disable", err)
	}
	return true, nil
}

// 表示項目の上書き。価格と在庫はここでは変えない
func (u *ProductUsecase) Update(ctx context.Context, id int64, in UpdateProductInput) (bool, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return false, NewInvalidArgument("name required")
	}

	err := u.products.UpdateDetails(ctx, model.Product{
		ID:          id,
		Name:        name,
		Description: in.Description,
		Category:    strings.TrimSpace(in.Category),
		ImageURL:    strings.TrimSpace(in.ImageURL),
	})
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if errors.Is(err, repo.ErrDuplicate) {
		return false, NewConflict("product name already exists")
	}
	if err != nil {
		return false, u.fault("update", err)
	}
	return true, nil
}

func (u *ProductUsecase) Delete(ctx context.Context, id int64) (bool, error) {
	err := u.products.Delete(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	// カートや注文に残っている商品は消せない
	if errors.Is(err, repo.ErrReferenced) {
		return false, NewConflict("product is referenced by carts or orders")
	}
	if err != nil {
		return false, u.fault("delete", err)
	}
	return true, nil
}

func (u *ProductUsecase) ListStockHistory(ctx context.Context, productID int64) ([]model.InventoryAdjustment, error) {
	adjs, err := u.inventory.ListAdjustments(ctx, productID)
	if err != nil {
		return []model.InventoryAdjustment{}, u.fault("list_stock_history", err)
	}
	return adjs, nil
}
