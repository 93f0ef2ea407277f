package handler

import (
	"net/http"

	"shopapi/internal/config"
	"shopapi/internal/repository"
	"shopapi/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /me 配下。ログイン中のユーザー自身のカート・注文・パスワード
type MeHandler struct {
	users  *usecase.UserUsecase
	carts  *usecase.CartUsecase
	orders *usecase.OrderUsecase
}

// DI
func NewMeHandler(users *usecase.UserUsecase, carts *usecase.CartUsecase, orders *usecase.OrderUsecase) *MeHandler {
	return &MeHandler{users: users, carts: carts, orders: orders}
}

type MeAddItemRequest struct {
	ProductID int64 `json:"product_id"`
	Amount    int64 `json:"amount"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *MeHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/me", authenticated(cfg, userRepo)...)

	g.GET("", h.profile)
	g.GET("/cart", h.cart)
	g.POST("/cart/items", h.addItem)
	g.POST("/checkout", h.checkout)
	g.GET("/orders", h.listMyOrders)
	g.PUT("/password", h.changePassword)
}

func (h *MeHandler) profile(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	u, err := h.users.GetByID(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toUserResponse(u))
}

// Activeカートが無くても空で返す
func (h *MeHandler) cart(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	d, err := h.carts.GetActiveCartDetail(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toCartResponse(d))
}

func (h *MeHandler) addItem(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req MeAddItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	item, err := h.carts.AddItemToCart(c.Request().Context(), userID, req.ProductID, req.Amount)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *MeHandler) checkout(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	d, err := h.orders.Checkout(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toOrderResponse(d))
}

func (h *MeHandler) listMyOrders(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	orders, err := h.orders.ListOrdersByUserID(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return listJSON(c, orders)
}

func (h *MeHandler) changePassword(c echo.Context) error {
	email, ok := getUserEmailFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	if err := h.users.ChangePassword(c.Request().Context(), email, req.CurrentPassword, req.NewPassword); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "password changed"})
}
