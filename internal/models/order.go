package models

import "time"

type Order struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// RESTRICT: an account with orders cannot be deleted; the user handler
	// pre-checks and answers with the order count.
	UserID uint `gorm:"index;not null" json:"user_id"`
	User   User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"user"`

	Total  float64 `gorm:"not null" json:"total"`
	Status string  `gorm:"size:20;default:'pending'" json:"status"`

	Details []OrderDetail `gorm:"constraint:OnDelete:CASCADE;" json:"details"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderDetail captures the price as submitted at checkout. It is never
// re-read from the product row, so later price changes leave past orders
// untouched.
type OrderDetail struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	OrderID   uint `gorm:"index;not null" json:"order_id"`
	ProductID uint `gorm:"index;not null" json:"product_id"`

	Quantity int     `gorm:"not null" json:"quantity"`
	Price    float64 `gorm:"not null" json:"price"`
}
