package handler

import (
	"context"
	"net/http"
	"strconv"

	"shopapi/internal/config"
	"shopapi/internal/domain/model"
	"shopapi/internal/repository"
	"shopapi/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /cart と /cartItem のHTTP（ADMIN/SUPPORT）
type CartHandler struct {
	uc *usecase.CartUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

type AddCartRequest struct {
	UserID    int64 `json:"user_id"`
	ProductID int64 `json:"product_id"`
	Amount    int64 `json:"amount"`
}

type CreateCartRequest struct {
	UserID int64 `json:"user_id"`
}

type CartItemAmountRequest struct {
	Amount int64 `json:"amount"`
}

func (h *CartHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	staff := staffOnly(cfg, userRepo)

	g := e.Group("/cart", staff...)
	g.POST("/add", h.addItem)
	g.GET("", h.listCarts)
	g.POST("", h.createCart)
	g.GET("/range", h.listByDateRange)
	g.GET("/more-than/:n", h.listWithMoreThanNItems)
	g.GET("/user/:userId", h.listByUser)
	g.GET("/user/:userId/active", h.activeByUser)
	g.GET("/email/:email", h.findByEmail)
	g.GET("/:id", h.getCart)
	g.GET("/:id/total", h.total)
	g.GET("/:id/items", h.listItems)
	g.DELETE("/:id", h.deleteCart)
	g.DELETE("/:id/items", h.clearCart)
	g.DELETE("/:id/items/:itemId", h.removeItem)

	items := e.Group("/cartItem", staff...)
	items.GET("/:id", h.getItem)
	items.PUT("/:id/amount", h.updateAmount)
	items.PATCH("/:id/increase", h.increaseAmount)
	items.PATCH("/:id/decrease", h.decreaseAmount)
	items.GET("/cart/:cartId/product/:productId", h.findItemByCartAndProduct)
}

func (h *CartHandler) addItem(c echo.Context) error {
	var req AddCartRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	item, err := h.uc.AddItemToCart(c.Request().Context(), req.UserID, req.ProductID, req.Amount)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *CartHandler) createCart(c echo.Context) error {
	var req CreateCartRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	cart, err := h.uc.CreateCart(c.Request().Context(), req.UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, cart)
}

func (h *CartHandler) listCarts(c echo.Context) error {
	carts, err := h.uc.ListCarts(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return listJSON(c, carts)
}

func (h *CartHandler) getCart(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	d, err := h.uc.GetCart(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toCartResponse(d))
}

func (h *CartHandler) total(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	total, err := h.uc.GetCartTotal(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"cart_id": id, "total": total})
}

func (h *CartHandler) listItems(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	items, err := h.uc.ListCartItems(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return listJSON(c, items)
}

func (h *CartHandler) deleteCart(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	if err := h.uc.DeleteCart(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func (h *CartHandler) clearCart(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	if err := h.uc.ClearCart(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "cleared"})
}

func (h *CartHandler) removeItem(c echo.Context) error {
	cartID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	itemID, ok := parseIDParam(c, "itemId")
	if !ok {
		return badRequest(c, "invalid itemId")
	}

	if err := h.uc.RemoveItemFromCart(c.Request().Context(), cartID, itemID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "removed"})
}

func (h *CartHandler) listByUser(c echo.Context) error {
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		return badRequest(c, "invalid userId")
	}

	carts, err := h.uc.ListCartsByUserID(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return listJSON(c, carts)
}

func (h *CartHandler) activeByUser(c echo.Context) error {
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		return badRequest(c, "invalid userId")
	}

	cart, err := h.uc.FindActiveCart(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) findByEmail(c echo.Context) error {
	cart, err := h.uc.FindCartByUserEmail(c.Request().Context(), c.Param("email"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cart)
}

// from/to 必須
func (h *CartHandler) listByDateRange(c echo.Context) error {
	from, err := parseTimeParam(c.QueryParam("from"))
	if err != nil {
		return badRequest(c, "invalid from")
	}
	to, err := parseRangeEnd(c.QueryParam("to"))
	if err != nil {
		return badRequest(c, "invalid to")
	}

	carts, err := h.uc.ListCartsByDateRange(c.Request().Context(), from, to)
	if err != nil {
		return writeError(c, err)
	}
	return listJSON(c, carts)
}

func (h *CartHandler) listWithMoreThanNItems(c echo.Context) error {
	n, err := strconv.ParseInt(c.Param("n"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid n")
	}

	carts, err := h.uc.ListCartsWithMoreThanNItems(c.Request().Context(), n)
	if err != nil {
		return writeError(c, err)
	}
	return listJSON(c, carts)
}

func (h *CartHandler) getItem(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	item, err := h.uc.GetCartItem(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *CartHandler) updateAmount(c echo.Context) error {
	return h.changeAmount(c, h.uc.UpdateCartItemAmount)
}

func (h *CartHandler) increaseAmount(c echo.Context) error {
	return h.changeAmount(c, h.uc.IncreaseCartItemAmount)
}

func (h *CartHandler) decreaseAmount(c echo.Context) error {
	return h.changeAmount(c, h.uc.DecreaseCartItemAmount)
}

func (h *CartHandler) changeAmount(c echo.Context, fn func(ctx context.Context, id int64, n int64) (model.CartItem, error)) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req CartItemAmountRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	item, err := fn(c.Request().Context(), id, req.Amount)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *CartHandler) findItemByCartAndProduct(c echo.Context) error {
	cartID, ok := parseIDParam(c, "cartId")
	if !ok {
		return badRequest(c, "invalid cartId")
	}
	productID, ok := parseIDParam(c, "productId")
	if !ok {
		return badRequest(c, "invalid productId")
	}

	item, err := h.uc.FindCartItemByCartAndProduct(c.Request().Context(), cartID, productID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}
