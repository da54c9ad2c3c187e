package notify

import (
	"time"

	"github.com/example/cartshop/pkg/models"
)

// OrderPlaced is the payload published for every committed order.
type OrderPlaced struct {
	OrderID       uint        `json:"order_id"`
	UserID        string      `json:"user_id,omitempty"`
	Email         string      `json:"email,omitempty"`
	Status        string      `json:"status"`
	PaymentMethod string      `json:"payment_method"`
	TotalPrice    string      `json:"total_price"`
	Items         []EventLine `json:"items"`
	PlacedAt      time.Time   `json:"placed_at"`
}

type EventLine struct {
	ProductID   uint   `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Price       string `json:"price"`
}

func NewOrderPlaced(order *models.Order) OrderPlaced {
	ev := OrderPlaced{
		OrderID:       order.ID,
		Email:         order.Email,
		Status:        string(order.Status),
		PaymentMethod: order.PaymentMethod,
		TotalPrice:    order.TotalPrice.StringFixed(2),
		Items:         make([]EventLine, 0, len(order.Items)),
		PlacedAt:      order.CreatedAt,
	}
	if order.UserID != nil {
		ev.UserID = *order.UserID
	}
	for _, item := range order.Items {
		ev.Items = append(ev.Items, EventLine{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price.StringFixed(2),
		})
	}
	return ev
}
