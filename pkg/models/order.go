package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "Pending"
	OrderStatusAwaitingPayment OrderStatus = "AwaitingPayment"
	OrderStatusPaid            OrderStatus = "Paid"
	OrderStatusCancelled       OrderStatus = "Cancelled"
)

// ShippingDetails is stored as an opaque JSON document.
type ShippingDetails map[string]interface{}

type Order struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	UserID           *string         `gorm:"type:varchar(64);index" json:"user_id,omitempty"`
	Email            string          `gorm:"type:varchar(254)" json:"email"`
	Status           OrderStatus     `gorm:"type:varchar(20);default:'Pending'" json:"status"`
	ShippingDetails  ShippingDetails `gorm:"type:text;serializer:json" json:"shipping_details"`
	PaymentMethod    string          `gorm:"type:varchar(20)" json:"payment_method"`
	PaymentReference *string         `gorm:"type:varchar(64);uniqueIndex" json:"payment_reference,omitempty"`
	TotalPrice       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_price"`
	Items            []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem carries the unit price captured when the order was created.
type OrderItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderID     uint            `gorm:"index;not null" json:"order_id"`
	ProductID   uint            `gorm:"not null" json:"product_id"`
	ProductName string          `gorm:"type:varchar(200)" json:"product_name"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// Subtotal is quantity times the frozen unit price.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
