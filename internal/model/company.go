package model

import (
	"time"

	"gorm.io/gorm"
)

// Company is the tenant of the platform: a single owner, a catalog of menu
// items and a public menu link customers reach without authentication.
type Company struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Name        string         `json:"name" gorm:"type:varchar(100);not null"`
	Description string         `json:"description" gorm:"type:text"`
	LogoURL     string         `json:"logo_url" gorm:"type:varchar(500)"`
	OwnerID     uint           `json:"owner_id" gorm:"index;not null"`
	MenuLink    string         `json:"menu_link" gorm:"type:varchar(500)"`
	QRCodeURL   string         `json:"qr_code_url" gorm:"type:text"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}
