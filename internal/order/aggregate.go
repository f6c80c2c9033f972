package order

// Mode tells the Aggregator how many orders the caller expects.
type Mode int

const (
	SingleOrder Mode = iota
	MultiOrder
)

// Aggregator folds joined rows into orders with nested items in one pass.
// Orders keep the position of their first row; items keep row order.
type Aggregator struct {
	mode   Mode
	byID   map[int64]*Order
	orders []*Order
}

func NewAggregator(mode Mode) *Aggregator {
	return &Aggregator{
		mode: mode,
		byID: make(map[int64]*Order),
	}
}

func (a *Aggregator) Add(row JoinedRow) error {
	o, ok := a.byID[row.OrderID]
	if !ok {
		if a.mode == SingleOrder && len(a.orders) == 1 {
			return ErrMultipleOrders
		}
		o = &Order{
			ID:          row.OrderID,
			UserID:      row.UserID,
			Address:     row.Address,
			City:        row.City,
			PostalCode:  row.PostalCode,
			Phone:       row.Phone,
			TotalAmount: row.TotalAmount,
			Status:      OrderStatus(row.Status),
			CreatedAt:   row.CreatedAt,
			Items:       []OrderItem{},
		}
		a.byID[row.OrderID] = o
		a.orders = append(a.orders, o)
	}

	var images []string
	if row.ProductImage.Valid {
		decoded, err := DecodeImages([]byte(row.ProductImage.String))
		if err != nil {
			return &ImageDecodeError{OrderID: row.OrderID, ItemID: row.ItemID, Err: err}
		}
		images = decoded
	}

	o.Items = append(o.Items, OrderItem{
		ID:        row.ItemID,
		OrderID:   row.OrderID,
		LineNo:    row.LineNo,
		ProductID: row.ProductID,
		Quantity:  row.Quantity,
		Price:     row.ItemPrice,
		Product: ProductSnapshot{
			ID:    row.ProductID,
			Name:  row.ProductName,
			Price: row.ProductPrice,
			Image: images,
		},
	})
	return nil
}

// Orders returns the aggregated orders in first-appearance order.
func (a *Aggregator) Orders() []Order {
	out := make([]Order, 0, len(a.orders))
	for _, o := range a.orders {
		out = append(out, *o)
	}
	return out
}

func Aggregate(rows []JoinedRow, mode Mode) ([]Order, error) {
	agg := NewAggregator(mode)
	for _, row := range rows {
		if err := agg.Add(row); err != nil {
			return nil, err
		}
	}
	return agg.Orders(), nil
}
