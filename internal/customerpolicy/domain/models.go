package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/smallbiznis/tutorbase/internal/customer/domain"
	insurerdomain "github.com/smallbiznis/tutorbase/internal/insurer/domain"
	policydomain "github.com/smallbiznis/tutorbase/internal/policy/domain"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusLapsed    Status = "lapsed"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusLapsed, StatusCancelled, StatusExpired:
		return true
	default:
		return false
	}
}

// Closed reports whether the binding no longer accepts premiums.
func (s Status) Closed() bool {
	return s == StatusCancelled || s == StatusExpired
}

// CustomerPolicy binds one customer to one policy.
type CustomerPolicy struct {
	ID                 snowflake.ID  `gorm:"primaryKey;autoIncrement:false" json:"id"`
	CustomerID         snowflake.ID  `gorm:"not null;index" json:"customerId"`
	PolicyID           snowflake.ID  `gorm:"not null;index" json:"policyId"`
	InsurerID          snowflake.ID  `gorm:"not null;index" json:"insurerId"`
	PolicyNumber       string        `gorm:"type:varchar(64);not null;uniqueIndex" json:"policyNumber"`
	Status             Status        `gorm:"type:varchar(16);not null;index" json:"status"`
	StartDate          time.Time     `gorm:"not null" json:"startDate"`
	NextPremiumDueDate *time.Time    `json:"nextPremiumDueDate"`
	InsuredPersonID    *snowflake.ID `json:"insuredPersonId,omitempty"`
	CreatedBy          string        `gorm:"type:varchar(64);not null;index" json:"createdBy"`
	UpdatedBy          string        `gorm:"type:varchar(64);not null" json:"updatedBy"`
	CreatedAt          time.Time     `gorm:"not null" json:"createdAt"`
	UpdatedAt          time.Time     `gorm:"not null" json:"updatedAt"`
}

func (CustomerPolicy) TableName() string { return "customer_policies" }

type Summary struct {
	ID                 snowflake.ID `json:"id"`
	CustomerID         snowflake.ID `json:"customerId"`
	PolicyID           snowflake.ID `json:"policyId"`
	InsurerID          snowflake.ID `json:"insurerId"`
	PolicyNumber       string       `json:"policyNumber"`
	Status             Status       `json:"status"`
	NextPremiumDueDate *time.Time   `json:"nextPremiumDueDate"`
}

func (c CustomerPolicy) Summary() Summary {
	return Summary{
		ID:                 c.ID,
		CustomerID:         c.CustomerID,
		PolicyID:           c.PolicyID,
		InsurerID:          c.InsurerID,
		PolicyNumber:       c.PolicyNumber,
		Status:             c.Status,
		NextPremiumDueDate: c.NextPremiumDueDate,
	}
}

// View is a binding enriched with its catalog and customer projections.
type View struct {
	CustomerPolicy
	Policy   *policydomain.Summary   `json:"policy,omitempty"`
	Insurer  *insurerdomain.Summary  `json:"insurer,omitempty"`
	Customer *customerdomain.Summary `json:"customer,omitempty"`
}
