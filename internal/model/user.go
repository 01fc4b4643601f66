package model

import (
	"time"

	"gorm.io/gorm"
)

// User represents an account that can own a single company.
type User struct {
	ID               uint           `json:"id" gorm:"primaryKey"`
	Email            string         `json:"email" gorm:"type:varchar(100);uniqueIndex"`
	Password         string         `json:"-" gorm:"type:varchar(255)"`
	FirstName        string         `json:"first_name" gorm:"type:varchar(100)"`
	CompanyID        *uint          `json:"company_id,omitempty" gorm:"index"`
	IsFirstLogin     bool           `json:"is_first_login" gorm:"default:true"`
	SubscriptionTier string         `json:"subscription_tier" gorm:"type:varchar(20);default:'Free'"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`
}
