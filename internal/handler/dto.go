package handler

import (
	"time"

	"shopapi/internal/domain/model"
	"shopapi/internal/usecase"

	"github.com/shopspring/decimal"
)

// 商品のレスポンス。種類ごとの項目はomitempty
type ProductResponse struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image_url"`
	Category    string          `json:"category"`
	Active      bool            `json:"active"`

	Stock           *int64 `json:"stock,omitempty"`
	ShippingAddress string `json:"shipping_address,omitempty"`

	DownloadLink string `json:"download_link,omitempty"`
	License      string `json:"license,omitempty"`
}

func toProductResponse(p model.Product) ProductResponse {
	res := ProductResponse{
		ID:          p.ID,
		Type:        string(p.Kind),
		Name:        p.Name,
		Price:       p.Price,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Category:    p.Category,
		Active:      p.IsActive,
	}
	if p.Physical != nil {
		stock := p.Physical.Stock
		res.Stock = &stock
		res.ShippingAddress = p.Physical.ShippingAddress
	}
	if p.Digital != nil {
		res.DownloadLink = p.Digital.DownloadLink
		res.License = p.Digital.License
	}
	return res
}

func toProductResponses(items []model.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(items))
	for _, p := range items {
		out = append(out, toProductResponse(p))
	}
	return out
}

// パスワードハッシュは返さない
type UserResponse struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Roles     []string  `json:"roles"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u model.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Phone:     u.Phone,
		Roles:     u.Roles.Strings(),
		Active:    u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

func toUserResponses(items []model.User) []UserResponse {
	out := make([]UserResponse, 0, len(items))
	for _, u := range items {
		out = append(out, toUserResponse(u))
	}
	return out
}

type CartResponse struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"user_id"`
	Active    bool             `json:"active"`
	CreatedAt time.Time        `json:"created_at"`
	Items     []model.CartItem `json:"items"`
	Total     decimal.Decimal  `json:"total"`
}

func toCartResponse(d usecase.CartDetail) CartResponse {
	items := d.Items
	if items == nil {
		items = []model.CartItem{}
	}
	return CartResponse{
		ID:        d.Cart.ID,
		UserID:    d.Cart.UserID,
		Active:    d.Cart.Active,
		CreatedAt: d.Cart.CreatedAt,
		Items:     items,
		Total:     d.Total,
	}
}

type OrderItemResponse struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Amount    int64           `json:"amount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

func toOrderItemResponse(it model.OrderItem) OrderItemResponse {
	return OrderItemResponse{
		ID:        it.ID,
		OrderID:   it.OrderID,
		ProductID: it.ProductID,
		UnitPrice: it.UnitPrice,
		Amount:    it.Amount,
		Subtotal:  it.Subtotal(),
	}
}

func toOrderItemResponses(items []model.OrderItem) []OrderItemResponse {
	out := make([]OrderItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, toOrderItemResponse(it))
	}
	return out
}

type OrderResponse struct {
	model.Order
	Items []OrderItemResponse `json:"items"`
}

func toOrderResponse(d usecase.OrderDetail) OrderResponse {
	return OrderResponse{Order: d.Order, Items: toOrderItemResponses(d.Items)}
}
