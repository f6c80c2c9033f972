package order

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusNew        OrderStatus = "new"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCanceled   OrderStatus = "canceled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusNew, StatusProcessing, StatusShipped, StatusDelivered, StatusCanceled:
		return true
	}
	return false
}

type Order struct {
	ID          int64
	UserID      int64
	Address     string
	City        string
	PostalCode  string
	Phone       string
	TotalAmount decimal.Decimal
	Status      OrderStatus
	CreatedAt   time.Time
	Items       []OrderItem
}

type OrderItem struct {
	ID        int64
	OrderID   int64
	LineNo    int
	ProductID int64
	Quantity  int
	Price     decimal.Decimal
	Product   ProductSnapshot
}

// ProductSnapshot is the product row as it is now, not at purchase time.
type ProductSnapshot struct {
	ID    int64
	Name  string
	Price decimal.Decimal
	Image []string
}

// CreateOrderInput is the checkout request. Pointer amounts distinguish a
// missing value from zero.
type CreateOrderInput struct {
	UserID      int64            `json:"user_id"`
	Address     string           `json:"address"`
	City        string           `json:"city"`
	PostalCode  string           `json:"postal_code"`
	Phone       string           `json:"phone"`
	TotalAmount *decimal.Decimal `json:"total_amount"`
	Items       []ItemInput      `json:"items"`
}

type ItemInput struct {
	ProductID int64            `json:"product_id"`
	Quantity  int              `json:"quantity"`
	Price     *decimal.Decimal `json:"price"`
}

// JoinedRow is one row of orders JOIN order_items JOIN products.
type JoinedRow struct {
	OrderID     int64
	UserID      int64
	Address     string
	City        string
	PostalCode  string
	Phone       string
	TotalAmount decimal.Decimal
	Status      string
	CreatedAt   time.Time

	ItemID    int64
	LineNo    int
	ProductID int64
	Quantity  int
	ItemPrice decimal.Decimal

	ProductName  string
	ProductPrice decimal.Decimal
	ProductImage sql.NullString
}
