package shop

import (
	"github.com/example/cartshop/pkg/models"
	"github.com/shopspring/decimal"
)

// LineView is a cart line priced at the moment it was read.
type LineView struct {
	ItemID      uint            `json:"id"`
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type CartView struct {
	CartID    uint            `json:"id"`
	Items     []LineView      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

// Pricer derives totals. Cart totals always use live product prices; order
// totals are the frozen values stored at creation.
type Pricer struct{}

func (Pricer) LineSubtotal(item models.CartItem) decimal.Decimal {
	return item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
}

func (p Pricer) CartTotal(items []models.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(p.LineSubtotal(item))
	}
	return total
}

func (p Pricer) CartView(cartID uint, items []models.CartItem) *CartView {
	view := &CartView{
		CartID: cartID,
		Items:  make([]LineView, 0, len(items)),
		Total:  decimal.Zero,
	}
	for _, item := range items {
		sub := p.LineSubtotal(item)
		view.Items = append(view.Items, LineView{
			ItemID:      item.ID,
			ProductID:   item.ProductID,
			ProductName: item.Product.Name,
			UnitPrice:   item.Product.Price,
			Quantity:    item.Quantity,
			Subtotal:    sub,
		})
		view.Total = view.Total.Add(sub)
		view.ItemCount += item.Quantity
	}
	return view
}

// OrderTotal is the total stored on the order. It is never recomputed.
func (Pricer) OrderTotal(order *models.Order) decimal.Decimal {
	return order.TotalPrice
}

// FrozenTotal sums order lines at their captured prices.
func (Pricer) FrozenTotal(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}
