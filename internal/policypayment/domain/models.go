package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	customerdomain "github.com/smallbiznis/tutorbase/internal/customer/domain"
	customerpolicydomain "github.com/smallbiznis/tutorbase/internal/customerpolicy/domain"
	insurerdomain "github.com/smallbiznis/tutorbase/internal/insurer/domain"
	policydomain "github.com/smallbiznis/tutorbase/internal/policy/domain"
)

type Mode string

const (
	ModeCash         Mode = "cash"
	ModeCard         Mode = "card"
	ModeBankTransfer Mode = "bank_transfer"
	ModeUPI          Mode = "upi"
	ModeCheque       Mode = "cheque"
	ModeOther        Mode = "other"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeCash, ModeCard, ModeBankTransfer, ModeUPI, ModeCheque, ModeOther:
		return true
	default:
		return false
	}
}

// PolicyPayment is one premium received against a binding.
type PolicyPayment struct {
	ID               snowflake.ID    `gorm:"primaryKey;autoIncrement:false" json:"id"`
	CustomerPolicyID snowflake.ID    `gorm:"not null;index" json:"customerPolicyId"`
	PayerID          *snowflake.ID   `json:"payerId,omitempty"`
	Amount           decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Currency         string          `gorm:"type:varchar(3);not null" json:"currency"`
	PaymentDate      time.Time       `gorm:"not null;index" json:"paymentDate"`
	ModeOfPayment    Mode            `gorm:"type:varchar(16);not null" json:"modeOfPayment"`
	Reference        string          `gorm:"type:varchar(255)" json:"reference,omitempty"`
	TransactionID    string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"transactionId"`
	CreatedBy        string          `gorm:"type:varchar(64);not null;index" json:"createdBy"`
	UpdatedBy        string          `gorm:"type:varchar(64);not null" json:"updatedBy"`
	CreatedAt        time.Time       `gorm:"not null" json:"createdAt"`
	UpdatedAt        time.Time       `gorm:"not null" json:"updatedAt"`
}

func (PolicyPayment) TableName() string { return "policy_payments" }

// View is a payment enriched along the binding chain.
type View struct {
	PolicyPayment
	CustomerPolicy *customerpolicydomain.Summary `json:"customerPolicy,omitempty"`
	Policy         *policydomain.Summary         `json:"policy,omitempty"`
	Insurer        *insurerdomain.Summary        `json:"insurer,omitempty"`
	Customer       *customerdomain.Summary       `json:"customer,omitempty"`
}
