package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderResponse struct {
	OrderID     int64               `json:"order_id"`
	UserID      int64               `json:"user_id"`
	Address     string              `json:"address"`
	City        string              `json:"city"`
	PostalCode  string              `json:"postal_code"`
	Phone       string              `json:"phone"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
	Status      OrderStatus         `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	Items       []OrderItemResponse `json:"items,omitempty"`
}

type OrderItemResponse struct {
	ItemID    int64           `json:"item_id"`
	LineNo    int             `json:"line_no"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	ItemPrice decimal.Decimal `json:"item_price"`
	Product   ProductResponse `json:"product"`
}

type ProductResponse struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Image     []string        `json:"image"`
	Price     decimal.Decimal `json:"price"`
}

// CreateOrderResponse acknowledges a committed order.
type CreateOrderResponse struct {
	Message string `json:"message"`
	OrderID int64  `json:"order_id"`
}

func ToOrderResponse(o *Order) *OrderResponse {
	if o == nil {
		return nil
	}

	var items []OrderItemResponse
	if o.Items != nil {
		items = make([]OrderItemResponse, 0, len(o.Items))
	}
	for _, it := range o.Items {
		items = append(items, OrderItemResponse{
			ItemID:    it.ID,
			LineNo:    it.LineNo,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			ItemPrice: it.Price,
			Product: ProductResponse{
				ProductID: it.Product.ID,
				Name:      it.Product.Name,
				Image:     it.Product.Image,
				Price:     it.Product.Price,
			},
		})
	}

	return &OrderResponse{
		OrderID:     o.ID,
		UserID:      o.UserID,
		Address:     o.Address,
		City:        o.City,
		PostalCode:  o.PostalCode,
		Phone:       o.Phone,
		TotalAmount: o.TotalAmount,
		Status:      o.Status,
		CreatedAt:   o.CreatedAt,
		Items:       items,
	}
}

// ToOrderResponses never returns nil so an empty list encodes as [].
func ToOrderResponses(orders []Order) []*OrderResponse {
	out := make([]*OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, ToOrderResponse(&orders[i]))
	}
	return out
}
