package models

import "time"

// Roles carried in the session token and checked by the middleware.
const (
	RoleAdmin    = "admin"
	RoleUser     = "user"
	RoleDelivery = "delivery"
	RoleGuest    = "guest"
)

type User struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Username     string `gorm:"size:100;uniqueIndex;not null" json:"username"`
	Email        string `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"size:255" json:"-"`
	Role         string `gorm:"size:20;default:'user'" json:"role"`

	// Guest accounts are synthesized during checkout. They carry no
	// credentials (empty PasswordHash) and can never log in.
	Guest bool `gorm:"default:false" json:"guest"`

	PhoneNumber     string `gorm:"size:20" json:"phone_number"`
	Location        string `gorm:"size:255" json:"location"`
	ProfileImageURL string `gorm:"size:500" json:"profile_image_url"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
