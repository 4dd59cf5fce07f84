package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	customerpolicydomain "github.com/smallbiznis/tutorbase/internal/customerpolicy/domain"
	policydomain "github.com/smallbiznis/tutorbase/internal/policy/domain"
	"gorm.io/datatypes"
)

type Claim struct {
	ID               snowflake.ID                `gorm:"primaryKey;autoIncrement:false" json:"id"`
	CustomerPolicyID snowflake.ID                `gorm:"not null;index" json:"customerPolicyId"`
	ClaimNumber      string                      `gorm:"type:varchar(64);not null;uniqueIndex" json:"claimNumber"`
	DateOfEvent      *time.Time                  `json:"dateOfEvent"`
	AmountClaimed    decimal.Decimal             `gorm:"type:numeric(14,2);not null" json:"amountClaimed"`
	AmountApproved   decimal.NullDecimal         `gorm:"type:numeric(14,2)" json:"amountApproved"`
	Currency         string                      `gorm:"type:varchar(3);not null" json:"currency"`
	Status           Status                      `gorm:"type:varchar(16);not null;index" json:"status"`
	ClaimantID       string                      `gorm:"type:varchar(64);not null" json:"claimantId"`
	HandledBy        *string                     `gorm:"type:varchar(64)" json:"handledBy"`
	Notes            string                      `gorm:"type:text" json:"notes,omitempty"`
	SupportingDocs   datatypes.JSONSlice[string] `json:"supportingDocs"`
	CreatedBy        string                      `gorm:"type:varchar(64);not null;index" json:"createdBy"`
	UpdatedBy        string                      `gorm:"type:varchar(64);not null" json:"updatedBy"`
	CreatedAt        time.Time                   `gorm:"not null" json:"createdAt"`
	UpdatedAt        time.Time                   `gorm:"not null" json:"updatedAt"`
}

func (Claim) TableName() string { return "claims" }

// View is a claim with its binding and policy summaries and the moves its
// current status allows.
type View struct {
	Claim
	AllowedTransitions []Status                      `json:"allowedTransitions"`
	Final              bool                          `json:"final"`
	CustomerPolicy     *customerpolicydomain.Summary `json:"customerPolicy,omitempty"`
	Policy             *policydomain.Summary         `json:"policy,omitempty"`
}
