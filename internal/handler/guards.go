package handler

import (
	"shopapi/internal/config"
	"shopapi/internal/domain/model"
	"shopapi/internal/middleware"
	"shopapi/internal/repository"

	"github.com/labstack/echo/v4"
)

// ログイン済みで有効なユーザー
func authenticated(cfg config.Config, userRepo repository.UserRepository) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		middleware.AuthJWT(cfg),
		middleware.ActiveUserGuard(userRepo),
	}
}

// 上に加えてroleチェック
func withRoles(cfg config.Config, userRepo repository.UserRepository, roles ...model.Role) []echo.MiddlewareFunc {
	return append(authenticated(cfg, userRepo), middleware.RoleGuard(roles...))
}

func staffOnly(cfg config.Config, userRepo repository.UserRepository) []echo.MiddlewareFunc {
	return withRoles(cfg, userRepo, model.RoleAdmin, model.RoleSupport)
}
