package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

const DefaultTermMonths = 12

type Policy struct {
	ID               snowflake.ID        `gorm:"primaryKey;autoIncrement:false" json:"id"`
	InsurerID        snowflake.ID        `gorm:"not null;uniqueIndex:ux_policies_insurer_name,priority:1" json:"insurerId"`
	Name             string              `gorm:"type:varchar(255);not null;uniqueIndex:ux_policies_insurer_name,priority:2" json:"name"`
	Code             *string             `gorm:"type:varchar(32);uniqueIndex" json:"code,omitempty"`
	PremiumAmount    decimal.Decimal     `gorm:"type:numeric(14,2);not null" json:"premiumAmount"`
	Currency         string              `gorm:"type:varchar(3);not null" json:"currency"`
	PremiumFrequency Frequency           `gorm:"type:varchar(16);not null" json:"premiumFrequency"`
	TermMonths       int                 `gorm:"not null" json:"termMonths"`
	MinCoverAmount   decimal.NullDecimal `gorm:"type:numeric(14,2)" json:"minCoverAmount"`
	MaxCoverAmount   decimal.NullDecimal `gorm:"type:numeric(14,2)" json:"maxCoverAmount"`
	Active           bool                `gorm:"not null" json:"active"`
	Description      string              `gorm:"type:text" json:"description,omitempty"`
	CoverageDetails  string              `gorm:"type:text" json:"coverageDetails,omitempty"`
	CreatedBy        string              `gorm:"type:varchar(64);not null;index" json:"createdBy"`
	UpdatedBy        string              `gorm:"type:varchar(64);not null" json:"updatedBy"`
	CreatedAt        time.Time           `gorm:"not null" json:"createdAt"`
	UpdatedAt        time.Time           `gorm:"not null" json:"updatedAt"`
}

func (Policy) TableName() string { return "policies" }

func (p Policy) CodeValue() string {
	if p.Code == nil {
		return ""
	}
	return *p.Code
}

// Summary is the projection embedded in binding and payment listings.
type Summary struct {
	ID               snowflake.ID    `json:"id"`
	InsurerID        snowflake.ID    `json:"insurerId"`
	Name             string          `json:"name"`
	Code             string          `json:"code,omitempty"`
	PremiumAmount    decimal.Decimal `json:"premiumAmount"`
	Currency         string          `json:"currency"`
	PremiumFrequency Frequency       `json:"premiumFrequency"`
	TermMonths       int             `json:"termMonths"`
}

func (p Policy) Summary() Summary {
	return Summary{
		ID:               p.ID,
		InsurerID:        p.InsurerID,
		Name:             p.Name,
		Code:             p.CodeValue(),
		PremiumAmount:    p.PremiumAmount,
		Currency:         p.Currency,
		PremiumFrequency: p.PremiumFrequency,
		TermMonths:       p.TermMonths,
	}
}
