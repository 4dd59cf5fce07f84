package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Customer struct {
	ID        snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name      string       `gorm:"type:varchar(255);not null" json:"name"`
	Email     string       `gorm:"type:varchar(255)" json:"email,omitempty"`
	Phone     string       `gorm:"type:varchar(32)" json:"phone,omitempty"`
	CreatedBy string       `gorm:"type:varchar(64);not null;index" json:"createdBy"`
	UpdatedBy string       `gorm:"type:varchar(64);not null" json:"updatedBy"`
	CreatedAt time.Time    `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time    `gorm:"not null" json:"updatedAt"`
}

func (Customer) TableName() string { return "customers" }

// Summary is the projection embedded in payment listings.
type Summary struct {
	ID    snowflake.ID `json:"id"`
	Name  string       `json:"name"`
	Email string       `json:"email,omitempty"`
	Phone string       `json:"phone,omitempty"`
}

func (c Customer) Summary() Summary {
	return Summary{ID: c.ID, Name: c.Name, Email: c.Email, Phone: c.Phone}
}
