package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"shopapi/internal/domain/model"
	repo "shopapi/internal/repository"

	"go.uber.org/zap"
)

// 入力チェックの約束（実装はvalidatorパッケージ）
type UserValidator interface {
	ValidateRegister(in RegisterInput) error
	ValidateProfile(firstName string, lastName string, phone string) error
	ValidatePassword(password string) error
}

// JWTを発行する約束
type AccessTokenIssuer interface {
	Issue(email string, roles []string, now time.Time) (token string, expiresAt time.Time, err error)
}

type UserUsecase struct {
	users     repo.UserRepository
	validator UserValidator
	hasher    PasswordHasher
	issuer    AccessTokenIssuer
	clock     Clock
	log       *zap.Logger
}

// DI
func NewUserUsecase(
	users repo.UserRepository,
	validator UserValidator,
	hasher PasswordHasher,
	issuer AccessTokenIssuer,
	clock Clock,
	log *zap.Logger,
) *UserUsecase {
	return &UserUsecase{
		users:     users,
		validator: validator,
		hasher:    hasher,
		issuer:    issuer,
		clock:     clock,
		log:       log,
	}
}

// 会員登録の入力
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Password  string
}

type UpdateUserInput struct {
	FirstName string
	LastName  string
	Phone     string
}

type LoginOutput struct {
	AccessToken string
	ExpiresAt   time.Time
	User        model.User
}

type UserPage struct {
	Items []model.User
	Total int64
	Page  int
	Limit int
}

// 会員登録。初期ロールはCLIENT
func (u *UserUsecase) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := u.validator.ValidateRegister(in); err != nil {
		return model.User{}, err
	}

	// email重複チェック
	_, err := u.users.FindByEmail(ctx, in.Email)
	if err == nil {
		return model.User{}, NewConflict("email already exists")
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return model.User{}, NewUnexpected(err)
	}

	// パスワードをハッシュ化
	hashed, err := u.hasher.Hash(in.Password)
	if err != nil {
		return model.User{}, NewUnexpected(err)
	}

	now := u.clock.Now()
	user := &model.User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        in.Email,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hashed,
		Roles:        model.Roles{model.RoleClient},
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := u.users.Create(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return model.User{}, NewConflict("email already exists")
		}
		return model.User{}, NewUnexpected(err)
	}

	u.log.Info("user registered", zap.Int64("user_id", user.ID))
	return *user, nil
}

// メールまたはパスワードが違う / 停止済みは401
func (u *UserUsecase) Login(ctx context.Context, email string, password string) (LoginOutput, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return LoginOutput{}, NewInvalidArgument("email and password required")
	}

	user, err := u.users.FindByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return LoginOutput{}, NewUnauthorized("invalid credentials")
	}
	if err != nil {
		return LoginOutput{}, NewUnexpected(err)
	}
	if !u.hasher.Verify(password, user.PasswordHash) {
		return LoginOutput{}, NewUnauthorized("invalid credentials")
	}
	if !user.IsActive {
		return LoginOutput{}, NewUnauthorized("user is inactive")
	}

	token, expiresAt, err := u.issuer.Issue(user.Email, user.Roles.Strings(), u.clock.Now())
	if err != nil {
		return LoginOutput{}, NewUnexpected(err)
	}
	return LoginOutput{AccessToken: token, ExpiresAt: expiresAt, User: *user}, nil
}

func (u *UserUsecase) GetByID(ctx context.Context, userID int64) (model.User, error) {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return model.User{}, lookupErr(err, "user")
	}
	return *user, nil
}

func (u *UserUsecase) GetByEmail(ctx context.Context, email string) (model.User, error) {
	user, err := u.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return model.User{}, lookupErr(err, "user")
	}
	return *user, nil
}

func (u *UserUsecase) FindByName(ctx context.Context, name string) ([]model.User, error) {
	if strings.TrimSpace(name) == "" {
		return []model.User{}, NewInvalidArgument("name required")
	}
	users, err := u.users.FindByName(ctx, name)
	if err != nil {
		return []model.User{}, NewUnexpected(err)
	}
	return users, nil
}

func (u *UserUsecase) List(ctx context.Context, page int, limit int) (UserPage, error) {
	if page < 1 {
		return UserPage{}, NewInvalidArgument("invalid page")
	}
	if limit < 1 || limit > 100 {
		return UserPage{}, NewInvalidArgument("invalid limit")
	}

	users, total, err := u.users.List(ctx, page, limit)
	if err != nil {
		return UserPage{}, NewUnexpected(err)
	}
	return UserPage{Items: users, Total: total, Page: page, Limit: limit}, nil
}

// 氏名と電話番号だけ更新
func (u *UserUsecase) Update(ctx context.Context, email string, in UpdateUserInput) (model.User, error) {
	if err := u.validator.ValidateProfile(in.FirstName, in.LastName, in.Phone); err != nil {
		return model.User{}, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	err := u.users.UpdateProfile(ctx, email,
		strings.TrimSpace(in.FirstName),
		strings.TrimSpace(in.LastName),
		strings.TrimSpace(in.Phone),
	)
	if err != nil {
		return model.User{}, lookupErr(err, "user")
	}
	return u.GetByEmail(ctx, email)
}

// 削除ではなくフラグを落とす
func (u *UserUsecase) Deactivate(ctx context.Context, email string) error {
	if err := u.users.SetActive(ctx, strings.ToLower(strings.TrimSpace(email)), false); err != nil {
		return lookupErr(err, "user")
	}
	return nil
}

func (u *UserUsecase) DeleteByEmail(ctx context.Context, email string) error {
	if err := u.users.DeleteByEmail(ctx, strings.ToLower(strings.TrimSpace(email))); err != nil {
		return lookupErr(err, "user")
	}
	return nil
}

func (u *UserUsecase) DeleteByID(ctx context.Context, userID int64) error {
	if err := u.users.DeleteByID(ctx, userID); err != nil {
		return lookupErr(err, "user")
	}
	return nil
}

// 現在のパスワードが一致したときだけ変更
func (u *UserUsecase) ChangePassword(ctx context.Context, email string, current string, next string) error {
	user, err := u.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return lookupErr(err, "user")
	}
	if !u.hasher.Verify(current, user.PasswordHash) {
		return NewInvalidArgument("current password is incorrect")
	}
	if err := u.validator.ValidatePassword(next); err != nil {
		return err
	}

	hashed, err := u.hasher.Hash(next)
	if err != nil {
		return NewUnexpected(err)
	}
	if err := u.users.UpdatePasswordHash(ctx, user.ID, hashed); err != nil {
		return lookupErr(err, "user")
	}
	return nil
}
