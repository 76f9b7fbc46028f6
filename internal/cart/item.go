package cart

import (
	"github.com/shopspring/decimal"
)

func init() {
	// Prices travel as JSON numbers on the wire and in stored carts.
	decimal.MarshalJSONWithoutQuotes = true
}

// LineItem is one product variant in the cart, optionally with a lid color.
type LineItem struct {
	ProductID        string           `json:"productId"`
	ProductName      string           `json:"productName" validate:"required"`
	ProductImage     string           `json:"productImage"`
	VariantCode      string           `json:"variantCode" validate:"required"`
	Capacity         float64          `json:"capacity"`
	Height           float64          `json:"height"`
	Diameter         float64          `json:"diameter"`
	Price            decimal.Decimal  `json:"price"`
	DiscountPrice    *decimal.Decimal `json:"discountPrice,omitempty"`
	Quantity         int              `json:"quantity"`
	SelectedLidColor string           `json:"selectedLidColor,omitempty"`
}

// ItemID derives the cart identity of a variant and lid color pair.
func ItemID(code, lidColor string) string {
	if lidColor != "" {
		return code + "-" + lidColor
	}
	return code
}

func (i LineItem) ID() string {
	return ItemID(i.VariantCode, i.SelectedLidColor)
}

// EffectivePrice is the discount price when it is a real reduction, otherwise the list price.
func (i LineItem) EffectivePrice() decimal.Decimal {
	if i.DiscountPrice != nil && !i.DiscountPrice.IsNegative() && i.DiscountPrice.LessThan(i.Price) {
		return *i.DiscountPrice
	}
	return i.Price
}

func (i LineItem) Subtotal() decimal.Decimal {
	return i.EffectivePrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// HasDiscount reports whether EffectivePrice uses the discount.
func (i LineItem) HasDiscount() bool {
	return !i.EffectivePrice().Equal(i.Price)
}

// TotalItems sums quantities.
func TotalItems(items []LineItem) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}

// TotalPrice sums line subtotals.
func TotalPrice(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}
