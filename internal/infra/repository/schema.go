package repository

import (
	"shopapi/internal/domain/model"

	"gorm.io/gorm"
)

// AutoMigrate はGORMのモデルからテーブルを作る（開発・テスト用）。
// 本番のスキーマは migrations/ のSQLで管理する。
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&productRow{},
		&model.InventoryAdjustment{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.AuditLog{},
	); err != nil {
		return err
	}

	// タグでは部分indexを書けないので直接作る
	return db.Exec(activeCartIndexSQL).Error
}

// ユーザーごとにActiveなカートは1つ
const activeCartIndexSQL = `CREATE UNIQUE INDEX IF NOT EXISTS uq_carts_user_active ON carts (user_id) WHERE active`
