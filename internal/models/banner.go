package models

import "time"

type Banner struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Title    string `gorm:"size:200;not null" json:"title"`
	ImageURL string `gorm:"size:500;not null" json:"image_url"`
	Link     string `gorm:"size:500" json:"link"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
