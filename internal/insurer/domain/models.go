package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Insurer struct {
	ID            snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name          string       `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	Code          *string      `gorm:"type:varchar(16);uniqueIndex" json:"code,omitempty"`
	ContactPerson string       `gorm:"type:varchar(255)" json:"contactPerson,omitempty"`
	Phone         string       `gorm:"type:varchar(32)" json:"phone,omitempty"`
	Email         string       `gorm:"type:varchar(255)" json:"email,omitempty"`
	Address       string       `gorm:"type:text" json:"address,omitempty"`
	IsActive      bool         `gorm:"not null" json:"isActive"`
	CreatedBy     string       `gorm:"type:varchar(64);not null;index" json:"createdBy"`
	UpdatedBy     string       `gorm:"type:varchar(64);not null" json:"updatedBy"`
	CreatedAt     time.Time    `gorm:"not null" json:"createdAt"`
	UpdatedAt     time.Time    `gorm:"not null" json:"updatedAt"`
}

func (Insurer) TableName() string { return "insurers" }

func (i Insurer) CodeValue() string {
	if i.Code == nil {
		return ""
	}
	return *i.Code
}

// Summary is the projection embedded in downstream listings.
type Summary struct {
	ID   snowflake.ID `json:"id"`
	Name string       `json:"name"`
	Code string       `json:"code,omitempty"`
}

func (i Insurer) Summary() Summary {
	return Summary{ID: i.ID, Name: i.Name, Code: i.CodeValue()}
}
