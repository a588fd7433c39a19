package models

import "github.com/google/uuid"

type Review struct {
	BaseModel
	ProductID uuid.UUID `gorm:"type:uuid;index" json:"product_id"`
	UserID    uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	UserName  string    `json:"user_name"`
	Rating    int       `json:"rating"`
	Title     string    `json:"title"`
	Comment   string    `json:"comment"`
	Size      string    `json:"size"`
	Color     string    `json:"color"`
	Verified  bool      `json:"verified"`
	Helpful   int       `json:"helpful"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
}
