package repository

import (
	"context"
	"errors"
	"time"

	"shopapi/internal/domain/model"
	repo "shopapi/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

var _ repo.CartRepository = (*CartGormRepository)(nil)

// ユーザーのActiveカートを取得し、無ければ作成
func (r *CartGormRepository) GetOrCreateActiveByUserID(ctx context.Context, userID int64, now time.Time) (model.Cart, error) {
	var cart model.Cart

	//トランザクションで探す→無ければ作る
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		findErr := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND active = ?", userID, true).
			Order("id desc").
			First(&cart).Error

		if findErr == nil {
			return nil
		}

		if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return findErr
		}

		// 無ければ作る
		newCart := model.Cart{
			UserID:    userID,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}

		// 部分unique indexに負けたらsavepointまで戻して取り直す
		createErr := tx.Transaction(func(sp *gorm.DB) error {
			return sp.Create(&newCart).Error
		})
		if createErr != nil {
			retryErr := tx.
				Where("user_id = ? AND active = ?", userID, true).
				Order("id desc").
				First(&cart).Error
			if retryErr == nil {
				return nil
			}
			return createErr
		}

		cart = newCart
		return nil
	})

	if err != nil {
		return model.Cart{}, translateErr(err)
	}
	return cart, nil
}

func (r *CartGormRepository) Create(ctx context.Context, cart model.Cart) (model.Cart, error) {
	if err := r.db.WithContext(ctx).Create(&cart).Error; err != nil {
		return model.Cart{}, translateErr(err)
	}
	return cart, nil
}

func (r *CartGormRepository) FindByID(ctx context.Context, cartID int64) (model.Cart, error) {
	var cart model.Cart
	if err := r.db.WithContext(ctx).Where("id = ?", cartID).First(&cart).Error; err != nil {
		return model.Cart{}, translateErr(err)
	}
	return cart, nil
}

// ユーザーのActiveカートを取得
func (r *CartGormRepository) FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	var cart model.Cart

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Order("id desc").
		First(&cart).Error
	if err != nil {
		return model.Cart{}, translateErr(err)
	}
	return cart, nil
}

func (r *CartGormRepository) FindLatestByUserEmail(ctx context.Context, email string) (model.Cart, error) {
	var cart model.Cart

	err := r.db.WithContext(ctx).
		Joins("JOIN users ON users.id = carts.user_id").
		Where("users.email = ?", email).
		Order("carts.created_at desc").
		Order("carts.id desc").
		Take(&cart).Error
	if err != nil {
		return model.Cart{}, translateErr(err)
	}
	return cart, nil
}

func (r *CartGormRepository) List(ctx context.Context) ([]model.Cart, error) {
	var carts []model.Cart
	if err := r.db.WithContext(ctx).Order("id asc").Find(&carts).Error; err != nil {
		return []model.Cart{}, err
	}
	return carts, nil
}

func (r *CartGormRepository) ListByUserID(ctx context.Context, userID int64) ([]model.Cart, error) {
	var carts []model.Cart
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Order("id desc").
		Find(&carts).Error
	if err != nil {
		return []model.Cart{}, err
	}
	return carts, nil
}

// 作成日時の範囲（両端を含む）
func (r *CartGormRepository) ListByCreatedRange(ctx context.Context, from time.Time, to time.Time) ([]model.Cart, error) {
	var carts []model.Cart
	err := r.db.WithContext(ctx).
		Where("created_at BETWEEN ? AND ?", from, to).
		Order("created_at asc").
		Order("id asc").
		Find(&carts).Error
	if err != nil {
		return []model.Cart{}, err
	}
	return carts, nil
}

// 明細がn件より多いカート
func (r *CartGormRepository) ListWithMoreThanNItems(ctx context.Context, n int64) ([]model.Cart, error) {
	var carts []model.Cart
	err := r.db.WithContext(ctx).
		Where("(SELECT COUNT(*) FROM cart_items WHERE cart_items.cart_id = carts.id) > ?", n).
		Order("id asc").
		Find(&carts).Error
	if err != nil {
		return []model.Cart{}, err
	}
	return carts, nil
}

// carts.activeを更新
func (r *CartGormRepository) SetActive(ctx context.Context, cartID int64, active bool) error {
	res := r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("id = ?", cartID).
		Update("active", active)
	return affected(res)
}

// 指定カートの明細を全削除
func (r *CartGormRepository) Clear(ctx context.Context, cartID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart model.Cart
		if err := tx.Where("id = ?", cartID).First(&cart).Error; err != nil {
			return translateErr(err)
		}

		//cart_itemsを全削除
		return tx.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error
	})
}

// カートと明細を削除
func (r *CartGormRepository) Delete(ctx context.Context, cartID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}
		return affected(tx.Delete(&model.Cart{}, cartID))
	})
}
