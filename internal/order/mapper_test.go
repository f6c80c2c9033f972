package order

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToOrderResponse(t *testing.T) {
	assert.Nil(t, ToOrderResponse(nil))

	created := time.Date(2025, 5, 4, 3, 2, 1, 0, time.UTC)
	o := &Order{
		ID:          9,
		UserID:      7,
		Address:     "addr",
		City:        "city",
		PostalCode:  "100000",
		Phone:       "555",
		TotalAmount: decimal.RequireFromString("37.5"),
		Status:      StatusNew,
		CreatedAt:   created,
		Items: []OrderItem{{
			ID:        90,
			OrderID:   9,
			LineNo:    1,
			ProductID: 3,
			Quantity:  2,
			Price:     decimal.RequireFromString("12.5"),
			Product: ProductSnapshot{
				ID:    3,
				Name:  "Wool scarf",
				Price: decimal.RequireFromString("14"),
				Image: []string{"scarf.png"},
			},
		}},
	}

	raw, err := json.Marshal(ToOrderResponse(o))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"order_id": 9,
		"user_id": 7,
		"address": "addr",
		"city": "city",
		"postal_code": "100000",
		"phone": "555",
		"total_amount": "37.5",
		"status": "new",
		"created_at": "2025-05-04T03:02:01Z",
		"items": [{
			"item_id": 90,
			"line_no": 1,
			"product_id": 3,
			"quantity": 2,
			"item_price": "12.5",
			"product": {"product_id": 3, "name": "Wool scarf", "image": ["scarf.png"], "price": "14"}
		}]
	}`, string(raw))
}

func TestToOrderResponses_HeadersOnly(t *testing.T) {
	out := ToOrderResponses([]Order{{ID: 1}, {ID: 2}})
	require.Len(t, out, 2)

	raw, err := json.Marshal(out[0])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "items")

	empty, err := json.Marshal(ToOrderResponses(nil))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}
