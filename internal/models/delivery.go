package models

import "time"

type Delivery struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// RESTRICT on both FKs: an order with a delivery, or a courier with
	// assigned deliveries, cannot be deleted out from under it.
	OrderID uint  `gorm:"index;not null" json:"order_id"`
	Order   Order `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"order"`

	DeliveryPersonID uint `gorm:"index;not null" json:"delivery_person_id"`
	DeliveryPerson   User `gorm:"foreignKey:DeliveryPersonID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"delivery_person"`

	Status string `gorm:"size:20;default:'pending'" json:"status"`

	// Copy of the latest DeliveryPosition, kept in the same transaction
	// that appends the position row. Spares a join on "where is it now".
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	Positions []DeliveryPosition `gorm:"constraint:OnDelete:CASCADE;" json:"positions"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeliveryPosition is append-only; the newest row by RecordedAt is the
// courier's current position.
type DeliveryPosition struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DeliveryID uint      `gorm:"index;not null" json:"delivery_id"`
	Latitude   float64   `gorm:"not null" json:"latitude"`
	Longitude  float64   `gorm:"not null" json:"longitude"`
	RecordedAt time.Time `gorm:"index;not null" json:"recorded_at"`
}
