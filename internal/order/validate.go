package order

import "strings"

// ValidateHeader checks the request-level fields and reports every problem
// at once. Items are only checked for presence here.
func ValidateHeader(in CreateOrderInput) error {
	var fields []string

	if in.UserID <= 0 {
		fields = append(fields, "user_id")
	}
	if strings.TrimSpace(in.Address) == "" {
		fields = append(fields, "address")
	}
	if strings.TrimSpace(in.City) == "" {
		fields = append(fields, "city")
	}
	if strings.TrimSpace(in.PostalCode) == "" {
		fields = append(fields, "postal_code")
	}
	if strings.TrimSpace(in.Phone) == "" {
		fields = append(fields, "phone")
	}
	if in.TotalAmount == nil || !in.TotalAmount.IsPositive() {
		fields = append(fields, "total_amount")
	}
	if len(in.Items) == 0 {
		fields = append(fields, "items")
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func validateItem(index int, item ItemInput) error {
	var fields []string

	if item.ProductID <= 0 {
		fields = append(fields, "product_id")
	}
	if item.Quantity <= 0 {
		fields = append(fields, "quantity")
	}
	if item.Price == nil || !item.Price.IsPositive() {
		fields = append(fields, "price")
	}

	if len(fields) > 0 {
		return &ItemError{Index: index, Fields: fields}
	}
	return nil
}
