package server

import (
	"net/http"

	"shopapi/internal/config"
	"shopapi/internal/metrics"
	"shopapi/internal/repository"

	"github.com/labstack/echo/v4"
)

// 各handlerが自分のルートとmiddlewareを登録する
type RouteRegistrar interface {
	RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository)
}

func RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository, handlers ...RouteRegistrar) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	for _, h := range handlers {
		h.RegisterRoutes(e, cfg, userRepo)
	}
}
