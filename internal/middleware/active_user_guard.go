package middleware

import (
	"errors"
	"net/http"

	"shopapi/internal/repository"
	"shopapi/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// トークンのemailがDBに存在して有効なユーザーか確認。
func ActiveUserGuard(userRepo repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//AuthJWTが入れたemailを取得する
			email, ok := c.Get(CtxUserEmailKey).(string)
			if !ok || email == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//DBから最新のuserを取得する
			user, err := userRepo.FindByEmail(c.Request().Context(), email)
			if errors.Is(err, repository.ErrNotFound) || (err == nil && user == nil) {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			if err != nil {
				zap.L().Error("active user lookup failed", zap.String("email", email), zap.Error(err))
				return c.JSON(http.StatusInternalServerError, errorJSON("internal error"))
			}

			//停止済みは401
			if !user.IsActive {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			// ロールはトークンではなくDBの値を正とする
			c.Set(CtxUserIDKey, user.ID)
			c.Set(CtxUserRolesKey, user.Roles.Strings())

			// 監査ログ用に操作者をctxへ
			ctx := usecase.WithActor(c.Request().Context(), user.Email)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}
