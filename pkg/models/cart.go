package models

import (
	"time"
)

// Cart is owned by exactly one of UserID or SessionID. Both columns carry a
// unique index so a second cart for the same owner cannot be inserted.
type Cart struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    *string    `gorm:"type:varchar(64);uniqueIndex" json:"user_id,omitempty"`
	SessionID *string    `gorm:"type:varchar(64);uniqueIndex" json:"session_id,omitempty"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Cart) TableName() string {
	return "carts"
}

// CartItem never stores a price; totals always re-read Product.Price.
type CartItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CartID    uint      `gorm:"not null;uniqueIndex:idx_cart_product" json:"cart_id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_cart_product" json:"product_id"`
	Product   Product   `gorm:"foreignKey:ProductID" json:"product"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CartItem) TableName() string {
	return "cart_items"
}
