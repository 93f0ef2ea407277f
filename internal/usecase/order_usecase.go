package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"shopapi/internal/domain/model"
	repo "shopapi/internal/repository"

	"github.com/shopspring/decimal"
)

type OrderUsecase struct {
	tx         repo.TransactionManager
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	clock      Clock
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	orderItems repo.OrderItemRepository,
	clock Clock,
) *OrderUsecase {
	return &OrderUsecase{
		tx:         tx,
		orders:     orders,
		orderItems: orderItems,
		clock:      clock,
	}
}

type OrderItemInput struct {
	ProductID int64
	Amount    int64
}

type OrderDetail struct {
	Order model.Order
	Items []model.OrderItem
}

// 一覧の条件。空文字/nilは条件なし
type OrderQuery struct {
	UserID        *int64
	Status        string
	PaymentStatus string
	From          *time.Time
	To            *time.Time
}

// CreateOrder は商品ごとに現在価格をスナップショットして注文を作る。
// 1つでも商品が無ければ全部ロールバック。
func (u *OrderUsecase) CreateOrder(ctx context.Context, userID int64, items []OrderItemInput) (OrderDetail, error) {
	if len(items) == 0 {
		return OrderDetail{}, NewInvalidArgument("items required")
	}

	var out OrderDetail

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Users().FindByID(ctx, userID); err != nil {
			return lookupErr(err, "user")
		}

		now := u.clock.Now()
		orderItems := make([]model.OrderItem, 0, len(items))
		total := decimal.Zero

		for _, in := range items {
			p, err := r.Products().FindByID(ctx, in.ProductID)
			if err != nil {
				return lookupErr(err, "product")
			}

			//スナップショット
			it := model.OrderItem{
				ProductID: p.ID,
				UnitPrice: p.Price,
				Amount:    in.Amount,
				CreatedAt: now,
			}
			orderItems = append(orderItems, it)
			total = total.Add(it.Subtotal())
		}

		detail, err := u.persistOrder(ctx, r, userID, orderItems, total, now)
		if err != nil {
			return err
		}
		out = detail
		return nil
	})
	if err != nil {
		return OrderDetail{}, lookupErr(err, "order")
	}
	return out, nil
}

// Checkout はActiveカートを注文に変える。
// 在庫はPHYSICALだけ条件付きUPDATEで減らし、足りなければ全部ロールバック。
func (u *OrderUsecase) Checkout(ctx context.Context, userID int64) (OrderDetail, error) {
	var out OrderDetail

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Users().FindByID(ctx, userID); err != nil {
			return lookupErr(err, "user")
		}

		cart, err := r.Carts().FindActiveByUserID(ctx, userID)
		if err != nil {
			return lookupErr(err, "active cart")
		}

		cartItems, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return NewUnexpected(err)
		}
		if len(cartItems) == 0 {
			return NewInvalidArgument("cart empty")
		}

		now := u.clock.Now()
		orderItems := make([]model.OrderItem, 0, len(cartItems))
		total := decimal.Zero

		for _, ci := range cartItems {
			if ci.Amount <= 0 {
				continue
			}

			p, err := r.Products().FindByID(ctx, ci.ProductID)
			if err != nil {
				return lookupErr(err, "product")
			}
			if !p.IsActive {
				return NewInvalidArgument("product not available: " + p.Name)
			}

			//在庫減算（足りないなら false）
			if _, ok := p.StockDetail(); ok {
				decreased, err := r.Inventory().DecreaseStockIfEnough(ctx, p.ID, ci.Amount)
				if err != nil {
					return NewUnexpected(err)
				}
				if !decreased {
					return NewInvalidArgument("out of stock: " + p.Name)
				}
			}

			it := model.OrderItem{
				ProductID: p.ID,
				UnitPrice: p.Price,
				Amount:    ci.Amount,
				CreatedAt: now,
			}
			orderItems = append(orderItems, it)
			total = total.Add(it.Subtotal())
		}
		if len(orderItems) == 0 {
			return NewInvalidArgument("cart empty")
		}

		detail, err := u.persistOrder(ctx, r, userID, orderItems, total, now)
		if err != nil {
			return err
		}

		//カートを非Activeにする（再注文防止）
		if err := r.Carts().SetActive(ctx, cart.ID, false); err != nil {
			return NewUnexpected(err)
		}

		out = detail
		return nil
	})
	if err != nil {
		return OrderDetail{}, lookupErr(err, "order")
	}
	return out, nil
}

func (u *OrderUsecase) persistOrder(ctx context.Context, r repo.TxRepos, userID int64, items []model.OrderItem, total decimal.Decimal, now time.Time) (OrderDetail, error) {
	order, err := r.Orders().Create(ctx, model.Order{
		UserID:        userID,
		Status:        model.OrderStatusPending,
		PaymentStatus: model.PaymentStatusPending,
		Total:         total,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return OrderDetail{}, NewUnexpected(err)
	}

	created, err := r.OrderItems().CreateBulk(ctx, order.ID, items)
	if err != nil {
		return OrderDetail{}, NewUnexpected(err)
	}
	return OrderDetail{Order: order, Items: created}, nil
}

func (u *OrderUsecase) GetOrder(ctx context.Context, orderID int64) (OrderDetail, error) {
	o, err := u.orders.FindByID(ctx, orderID)
	if err != nil {
		return OrderDetail{}, lookupErr(err, "order")
	}
	items, err := u.orderItems.ListByOrderID(ctx, orderID)
	if err != nil {
		return OrderDetail{}, NewUnexpected(err)
	}
	return OrderDetail{Order: o, Items: items}, nil
}

func (u *OrderUsecase) ListOrders(ctx context.Context, q OrderQuery) ([]model.Order, error) {
	f := repo.OrderListFilter{UserID: q.UserID, From: q.From, To: q.To}

	if strings.TrimSpace(q.Status) != "" {
		st, ok := model.ParseOrderStatus(q.Status)
		if !ok {
			return []model.Order{}, NewInvalidArgument("invalid status")
		}
		f.Status = &st
	}
	if strings.TrimSpace(q.PaymentStatus) != "" {
		ps, ok := model.ParsePaymentStatus(q.PaymentStatus)
		if !ok {
			return []model.Order{}, NewInvalidArgument("invalid payment status")
		}
		f.PaymentStatus = &ps
	}
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return []model.Order{}, NewInvalidArgument("from must be <= to")
	}

	orders, err := u.orders.List(ctx, f)
	if err != nil {
		return []model.Order{}, NewUnexpected(err)
	}
	return orders, nil
}

func (u *OrderUsecase) ListOrdersByUserID(ctx context.Context, userID int64) ([]model.Order, error) {
	return u.ListOrders(ctx, OrderQuery{UserID: &userID})
}

func (u *OrderUsecase) ListOrdersByUserEmail(ctx context.Context, email string) ([]model.Order, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return []model.Order{}, NewInvalidArgument("email required")
	}
	orders, err := u.orders.ListByUserEmail(ctx, email)
	if err != nil {
		return []model.Order{}, NewUnexpected(err)
	}
	return orders, nil
}

// 状態遷移のチェックはしない（どの値からでも上書き）
func (u *OrderUsecase) UpdateOrderStatus(ctx context.Context, orderID int64, status string) (model.Order, error) {
	st, ok := model.ParseOrderStatus(status)
	if !ok {
		return model.Order{}, NewInvalidArgument("invalid status")
	}

	var out model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return lookupErr(err, "order")
		}

		before := o.Status
		if err := r.Orders().UpdateStatus(ctx, orderID, st); err != nil {
			return lookupErr(err, "order")
		}

		if err := u.audit(ctx, r, model.AuditActionUpdateOrderStatus, orderID,
			map[string]string{"status": string(before)},
			map[string]string{"status": string(st)},
		); err != nil {
			return err
		}

		o.Status = st
		out = o
		return nil
	})
	if err != nil {
		return model.Order{}, lookupErr(err, "order")
	}
	return out, nil
}

func (u *OrderUsecase) UpdatePaymentStatus(ctx context.Context, orderID int64, status string) (model.Order, error) {
	ps, ok := model.ParsePaymentStatus(status)
	if !ok {
		return model.Order{}, NewInvalidArgument("invalid payment status")
	}

	var out model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return lookupErr(err, "order")
		}

		before := o.PaymentStatus
		if err := r.Orders().UpdatePaymentStatus(ctx, orderID, ps); err != nil {
			return lookupErr(err, "order")
		}

		if err := u.audit(ctx, r, model.AuditActionUpdatePaymentStatus, orderID,
			map[string]string{"payment_status": string(before)},
			map[string]string{"payment_status": string(ps)},
		); err != nil {
			return err
		}

		o.PaymentStatus = ps
		out = o
		return nil
	})
	if err != nil {
		return model.Order{}, lookupErr(err, "order")
	}
	return out, nil
}

// CANCELEDにするだけ。在庫も支払いも戻さない
func (u *OrderUsecase) CancelOrder(ctx context.Context, orderID int64) (model.Order, error) {
	return u.UpdateOrderStatus(ctx, orderID, string(model.OrderStatusCanceled))
}

func (u *OrderUsecase) DeleteOrder(ctx context.Context, orderID int64) error {
	if err := u.orders.Delete(ctx, orderID); err != nil {
		return lookupErr(err, "order")
	}
	return nil
}

func (u *OrderUsecase) audit(ctx context.Context, r repo.TxRepos, action model.AuditAction, orderID int64, before map[string]string, after map[string]string) error {
	beforeJSON, err := json.Marshal(before)
	if err != nil {
		return NewUnexpected(err)
	}
	afterJSON, err := json.Marshal(after)
	if err != nil {
		return NewUnexpected(err)
	}

	if err := r.AuditLogs().Create(ctx, model.AuditLog{
		ActorEmail:   ActorFrom(ctx),
		Action:       action,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   orderID,
		BeforeJSON:   string(beforeJSON),
		AfterJSON:    string(afterJSON),
		CreatedAt:    u.clock.Now(),
	}); err != nil {
		return NewUnexpected(err)
	}
	return nil
}

// =====================
// 注文明細
// =====================

func (u *OrderUsecase) GetOrderItem(ctx context.Context, itemID int64) (model.OrderItem, error) {
	item, err := u.orderItems.FindByID(ctx, itemID)
	if err != nil {
		return model.OrderItem{}, lookupErr(err, "order item")
	}
	return item, nil
}

func (u *OrderUsecase) ListOrderItems(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	if _, err := u.orders.FindByID(ctx, orderID); err != nil {
		return []model.OrderItem{}, lookupErr(err, "order")
	}
	items, err := u.orderItems.ListByOrderID(ctx, orderID)
	if err != nil {
		return []model.OrderItem{}, NewUnexpected(err)
	}
	return items, nil
}

func (u *OrderUsecase) ListOrderItemsByProduct(ctx context.Context, productID int64) ([]model.OrderItem, error) {
	items, err := u.orderItems.ListByProductID(ctx, productID)
	if err != nil {
		return []model.OrderItem{}, NewUnexpected(err)
	}
	return items, nil
}

func (u *OrderUsecase) FindOrderItemByOrderAndProduct(ctx context.Context, orderID int64, productID int64) (model.OrderItem, error) {
	item, err := u.orderItems.FindByOrderAndProduct(ctx, orderID, productID)
	if err != nil {
		return model.OrderItem{}, lookupErr(err, "order item")
	}
	return item, nil
}

func (u *OrderUsecase) IncreaseOrderItemAmount(ctx context.Context, itemID int64, n int64) (model.OrderItem, error) {
	if n < 0 {
		return model.OrderItem{}, NewInvalidArgument("amount must be >= 0")
	}
	if err := u.orderItems.IncreaseAmount(ctx, itemID, n); err != nil {
		return model.OrderItem{}, lookupErr(err, "order item")
	}
	return u.GetOrderItem(ctx, itemID)
}

// 0未満にはならない
func (u *OrderUsecase) DecreaseOrderItemAmount(ctx context.Context, itemID int64, n int64) (model.OrderItem, error) {
	if n < 0 {
		return model.OrderItem{}, NewInvalidArgument("amount must be >= 0")
	}
	if err := u.orderItems.DecreaseAmount(ctx, itemID, n); err != nil {
		return model.OrderItem{}, lookupErr(err, "order item")
	}
	return u.GetOrderItem(ctx, itemID)
}

func (u *OrderUsecase) DeleteOrderItem(ctx context.Context, itemID int64) error {
	if err := u.orderItems.DeleteByID(ctx, itemID); err != nil {
		return lookupErr(err, "order item")
	}
	return nil
}

// 単価×数量（保存しない）
func (u *OrderUsecase) OrderItemSubtotal(ctx context.Context, itemID int64) (decimal.Decimal, error) {
	item, err := u.GetOrderItem(ctx, itemID)
	if err != nil {
		return decimal.Zero, err
	}
	return item.Subtotal(), nil
}

// 監査ログ一覧（管理者用）
type AuditLogUsecase struct {
	logs repo.AuditLogRepository
}

func NewAuditLogUsecase(logs repo.AuditLogRepository) *AuditLogUsecase {
	return &AuditLogUsecase{logs: logs}
}

func (u *AuditLogUsecase) ListForOrder(ctx context.Context, orderID int64, limit int, offset int) ([]model.AuditLog, error) {
	rt := model.AuditResourceOrder
	logs, err := u.logs.List(ctx, repo.AuditLogFilter{
		ResourceType: &rt,
		ResourceID:   &orderID,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		return []model.AuditLog{}, NewUnexpected(err)
	}
	return logs, nil
}
