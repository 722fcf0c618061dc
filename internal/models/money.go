package models

import "github.com/shopspring/decimal"

func init() {
	// Prices go out as JSON numbers, the way clients of the cash register
	// have always received them.
	decimal.MarshalJSONWithoutQuotes = true
}

// LineTotal is unitPrice × quantity.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}
