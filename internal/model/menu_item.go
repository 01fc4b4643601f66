package model

import "time"

// MenuItem belongs to exactly one company. The company reference is fixed at
// creation time and never updatable. Deletion is a hard delete: there is no
// DeletedAt column, so a repeated delete sees zero affected rows.
type MenuItem struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	CompanyID   uint      `json:"company_id" gorm:"index;not null"`
	Name        string    `json:"name" gorm:"type:varchar(100);not null"`
	Price       float64   `json:"price" gorm:"not null"`
	Description string    `json:"description" gorm:"type:text"`
	Category    string    `json:"category" gorm:"type:varchar(50)"`
	ImageURL    string    `json:"image_url" gorm:"type:varchar(500)"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
