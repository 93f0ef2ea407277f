package repository

import (
	"context"

	"shopapi/internal/domain/model"
)

// 保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成（email重複はErrDuplicate）
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// first_name / last_name の部分一致（大文字小文字無視）
	FindByName(ctx context.Context, name string) ([]model.User, error)
	List(ctx context.Context, page int, limit int) ([]model.User, int64, error)

	UpdateProfile(ctx context.Context, email string, firstName string, lastName string, phone string) error
	SetActive(ctx context.Context, email string, active bool) error
	UpdatePasswordHash(ctx context.Context, userID int64, hash string) error

	DeleteByEmail(ctx context.Context, email string) error
	DeleteByID(ctx context.Context, userID int64) error
}
