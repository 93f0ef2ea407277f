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

// /orders と /order-items のHTTP（ADMIN/SUPPORT）
type OrderHandler struct {
	uc    *usecase.OrderUsecase
	audit *usecase.AuditLogUsecase
}

// DI
func NewOrderHandler(uc *usecase.OrderUsecase, audit *usecase.AuditLogUsecase) *OrderHandler {
	return &OrderHandler{uc: uc, audit: audit}
}

type OrderItemRequest struct {
	ProductID int64 `json:"product_id"`
	Amount    int64 `json:"amount"`
}

type CreateOrderRequest struct {
	UserID int64              `json:"user_id"`
	Items  []OrderItemRequest `json:"items"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

type OrderItemAmountRequest struct {
	Amount int64 `json:"amount"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	staff := staffOnly(cfg, userRepo)

	g := e.Group("/orders", staff...)
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/range", h.listByDateRange)
	g.GET("/email/:email", h.listByEmail)
	g.GET("/user/:userId", h.listByUser)
	g.GET("/status/:status", h.listByStatus)
	g.GET("/payment/:status", h.listByPaymentStatus)
	g.GET("/:id", h.get)
	g.GET("/:id/audit-logs", h.auditLogs)
	g.PUT("/:id/status", h.updateStatus)
	g.PUT("/:id/payment", h.updatePayment)
	g.PUT("/:id/cancel", h.cancel)
	g.DELETE("/:id", h.delete)

	items := e.Group("/order-items", staff...)
	items.GET("/:id", h.getItem)
	items.GET("/:id/subtotal", h.itemSubtotal)
	items.GET("/order/:orderId", h.listItems)
	items.GET("/order/:orderId/product/:productId", h.findItemByOrderAndProduct)
	items.GET("/product/:productId", h.listItemsByProduct)
	items.PATCH("/:id/increase", h.increaseItem)
	items.PATCH("/:id/decrease", h.decreaseItem)
	items.DELETE("/:id", h.deleteItem)
}

func (h *OrderHandler) create(c echo.Context) error {
	var req CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	in := make([]usecase.OrderItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		in = append(in, usecase.OrderItemInput{ProductID: it.ProductID, Amount: it.Amount})
	}

	d, err := h.uc.CreateOrder(c.Request().Context(), req.UserID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toOrderResponse(d))
}

// ?status=&payment=&user_id=&from=&to= で絞り込み
func (h *OrderHandler) list(c echo.Context) error {
	q := usecase.OrderQuery{
		Status:        c.QueryParam("status"),
		PaymentStatus: c.QueryParam("payment"),
	}
	if v := c.QueryParam("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return badRequest(c, "invalid user_id")
		}
		q.UserID = &id
	}
	if v := c.QueryParam("from"); v != "" {
		t, err := parseTimeParam(v)
		if err != nil {
			return badRequest(c, "invalid from")
		}
		q.From = &t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := parseRangeEnd(v)
		if err != nil {
			return badRequest(c, "invalid to")
		}
		q.To = &t
	}

	return h.respondOrders(c, q)
}

func (h *OrderHandler) respondOrders(c echo.Context, q usecase.OrderQuery) error {
	orders, err := h.uc.ListOrders(c.Request().Context(), q)
	if err != nil {
		return writeError(c, err)
	}
	return listJSON(c, orders)
}

func (h *OrderHandler) listByDateRange(c echo.Context) error {
	from, err := parseTimeParam(c.QueryParam("from"))
	if err != nil {
		return badRequest(c, "invalid from")
	}
	to, err := parseRangeEnd(c.QueryParam("to"))
	if err != nil {
		return badRequest(c, "invalid to")
	}
	return h.respondOrders(c, usecase.OrderQuery{From: &from, To: &to})
}

func (h *OrderHandler) listByEmail(c echo.Context) error {
	orders, err := h.uc.ListOrdersByUserEmail(c.Request().Context(), c.Param("email"))
	if err != nil {
		return writeError(c, err)
	}
	return listJSON(c, orders)
}

// ?status= を付けるとユーザー×状態
func (h *OrderHandler) listByUser(c echo.Context) error {
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		return badRequest(c, "invalid userId")
	}
	return h.respondOrders(c, usecase.OrderQuery{UserID: &userID, Status: c.QueryParam("status")})
}

func (h *OrderHandler) listByStatus(c echo.Context) error {
	return h.respondOrders(c, usecase.OrderQuery{Status: c.Param("status")})
}

func (h *OrderHandler) listByPaymentStatus(c echo.Context) error {
	return h.respondOrders(c, usecase.OrderQuery{PaymentStatus: c.Param("status")})
}

func (h *OrderHandler) get(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	d, err := h.uc.GetOrder(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResponse(d))
}

func (h *OrderHandler) auditLogs(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l < 1 || l > 200 {
			return badRequest(c, "invalid limit")
		}
		limit = l
	}
	offset := 0
	if v := c.QueryParam("offset"); v != "" {
		o, err := strconv.Atoi(v)
		if err != nil || o < 0 {
			return badRequest(c, "invalid offset")
		}
		offset = o
	}

	logs, err := h.audit.ListForOrder(c.Request().Context(), id, limit, offset)
	if err != nil {
		return writeError(c, err)
	}
	return listJSON(c, logs)
}

func (h *OrderHandler) updateStatus(c echo.Context) error {
	return h.changeStatus(c, h.uc.UpdateOrderStatus)
}

func (h *OrderHandler) updatePayment(c echo.Context) error {
	return h.changeStatus(c, h.uc.UpdatePaymentStatus)
}

func (h *OrderHandler) changeStatus(c echo.Context, fn func(ctx context.Context, orderID int64, status string) (model.Order, error)) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req StatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	o, err := fn(c.Request().Context(), id, req.Status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) cancel(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	o, err := h.uc.CancelOrder(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) delete(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	if err := h.uc.DeleteOrder(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func (h *OrderHandler) getItem(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	it, err := h.uc.GetOrderItem(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderItemResponse(it))
}

func (h *OrderHandler) itemSubtotal(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	subtotal, err := h.uc.OrderItemSubtotal(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"order_item_id": id, "subtotal": subtotal})
}

func (h *OrderHandler) listItems(c echo.Context) error {
	orderID, ok := parseIDParam(c, "orderId")
	if !ok {
		return badRequest(c, "invalid orderId")
	}

	items, err := h.uc.ListOrderItems(c.Request().Context(), orderID)
	if err != nil {
		return writeError(c, err)
	}
	return listJSON(c, toOrderItemResponses(items))
}

func (h *OrderHandler) findItemByOrderAndProduct(c echo.Context) error {
	orderID, ok := parseIDParam(c, "orderId")
	if !ok {
		return badRequest(c, "invalid orderId")
	}
	productID, ok := parseIDParam(c, "productId")
	if !ok {
		return badRequest(c, "invalid productId")
	}

	it, err := h.uc.FindOrderItemByOrderAndProduct(c.Request().Context(), orderID, productID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderItemResponse(it))
}

func (h *OrderHandler) listItemsByProduct(c echo.Context) error {
	productID, ok := parseIDParam(c, "productId")
	if !ok {
		return badRequest(c, "invalid productId")
	}

	items, err := h.uc.ListOrderItemsByProduct(c.Request().Context(), productID)
	if err != nil {
		return writeError(c, err)
	}
	return listJSON(c, toOrderItemResponses(items))
}

func (h *OrderHandler) increaseItem(c echo.Context) error {
	return h.changeItemAmount(c, h.uc.IncreaseOrderItemAmount)
}

func (h *OrderHandler) decreaseItem(c echo.Context) error {
	return h.changeItemAmount(c, h.uc.DecreaseOrderItemAmount)
}

func (h *OrderHandler) changeItemAmount(c echo.Context, fn func(ctx context.Context, itemID int64, n int64) (model.OrderItem, error)) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req OrderItemAmountRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	it, err := fn(c.Request().Context(), id, req.Amount)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderItemResponse(it))
}

func (h *OrderHandler) deleteItem(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	if err := h.uc.DeleteOrderItem(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}
