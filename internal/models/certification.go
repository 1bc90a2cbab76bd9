package models

import (
	"fmt"
	"time"
)

// Certification represents a monthly billed amount on a contract that
// generates a commission owed to the company. At most one certification
// exists per (contract, year, month).
type Certification struct {
	ID                 string   `gorm:"primaryKey;size:36" json:"id"`
	ContractID         string   `gorm:"not null;index;uniqueIndex:ux_cert_contract_period,priority:1;size:36" json:"contract_id"`
	Year               int      `gorm:"not null;uniqueIndex:ux_cert_contract_period,priority:2" json:"year"`
	Month              int      `gorm:"not null;uniqueIndex:ux_cert_contract_period,priority:3" json:"month"`
	CertifiedAmount    float64  `gorm:"type:decimal(15,2);not null" json:"certified_amount"`
	CommissionPercent  float64  `gorm:"type:decimal(5,2);not null" json:"commission_percent"`
	ComputedCommission float64  `gorm:"type:decimal(15,2);not null" json:"computed_commission"`
	ManualCommission   *float64 `gorm:"type:decimal(15,2)" json:"manual_commission"`
	Paid               bool     `gorm:"default:false;index" json:"paid"`
	PaymentID          *string  `gorm:"index;size:36" json:"payment_id"`
	CreatedAt          time.Time `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`

	// Associations
	Contract Contract `gorm:"foreignKey:ContractID" json:"contract,omitempty"`
}

// TableName specifies the table name for Certification
func (Certification) TableName() string {
	return "certifications"
}

// OwedCommission returns the manual override when present, otherwise the
// computed commission.
func (c *Certification) OwedCommission() float64 {
	if c.ManualCommission != nil {
		return *c.ManualCommission
	}
	return c.ComputedCommission
}

// Period returns the certification period as "YYYY-MM"
func (c *Certification) Period() string {
	return fmt.Sprintf("%04d-%02d", c.Year, c.Month)
}

// PeriodKey returns a sortable integer for the period (oldest first)
func (c *Certification) PeriodKey() int {
	return c.Year*100 + c.Month
}

// MayUpdate returns true if the certification can still be edited
func (c *Certification) MayUpdate() bool {
	return !c.Paid
}

// CertificationResponse is the JSON response format for certifications
type CertificationResponse struct {
	ID                 string   `json:"id"`
	ContractID         string   `json:"contract_id"`
	Period             string   `json:"period"`
	Year               int      `json:"year"`
	Month              int      `json:"month"`
	CertifiedAmount    float64  `json:"certified_amount"`
	CommissionPercent  float64  `json:"commission_percent"`
	ComputedCommission float64  `json:"computed_commission"`
	ManualCommission   *float64 `json:"manual_commission"`
	OwedCommission     float64  `json:"owed_commission"`
	Paid               bool     `json:"paid"`
	PaymentID          *string  `json:"payment_id"`
}

// ToResponse converts Certification to CertificationResponse
func (c *Certification) ToResponse() CertificationResponse {
	return CertificationResponse{
		ID:                 c.ID,
		ContractID:         c.ContractID,
		Period:             c.Period(),
		Year:               c.Year,
		Month:              c.Month,
		CertifiedAmount:    c.CertifiedAmount,
		CommissionPercent:  c.CommissionPercent,
		ComputedCommission: c.ComputedCommission,
		ManualCommission:   c.ManualCommission,
		OwedCommission:     c.OwedCommission(),
		Paid:               c.Paid,
		PaymentID:          c.PaymentID,
	}
}
