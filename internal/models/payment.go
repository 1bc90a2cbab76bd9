package models

import "time"

// Payment scope constants
const (
	PaymentScopeSpecific = "specific"
	PaymentScopeGlobal   = "global"
)

// Payment status constants
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusCancelled = "cancelled"
)

// Payment represents money received that settles commission obligations.
// A "specific" payment targets a single contract and settles its oldest
// certifications first; a "global" payment is distributed proportionally
// across every pending certification.
type Payment struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	CompanyID   string    `gorm:"not null;index;size:36" json:"company_id"`
	ContractID  *string   `gorm:"index;size:36" json:"contract_id"`
	Scope       string    `gorm:"not null;index" json:"scope"`
	TotalAmount float64   `gorm:"type:decimal(15,2);not null" json:"total_amount"`
	Method      string    `gorm:"default:transfer" json:"method"`
	Date        time.Time `gorm:"type:date;not null" json:"date"`
	Status      string    `gorm:"default:pending;not null;index" json:"status"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Associations
	Company       Company        `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	Distributions []Distribution `gorm:"foreignKey:PaymentID" json:"distributions,omitempty"`
}

// TableName specifies the table name for Payment
func (Payment) TableName() string {
	return "payments"
}

// IsSpecific returns true for contract-targeted payments
func (p *Payment) IsSpecific() bool {
	return p.Scope == PaymentScopeSpecific
}

// MayComplete returns true if the payment can transition to completed
func (p *Payment) MayComplete() bool {
	return p.Status == PaymentStatusPending
}

// MayCancel returns true if the payment can be cancelled (reversed)
func (p *Payment) MayCancel() bool {
	return p.Status == PaymentStatusPending || p.Status == PaymentStatusCompleted
}

// PaymentResponse is the JSON response format for payments
type PaymentResponse struct {
	ID               string    `json:"id"`
	CompanyID        string    `json:"company_id"`
	ContractID       *string   `json:"contract_id"`
	Scope            string    `json:"scope"`
	TotalAmount      float64   `json:"total_amount"`
	DistributedTotal float64   `json:"distributed_total"`
	Method           string    `json:"method"`
	Date             time.Time `json:"date"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

// ToResponse converts Payment to PaymentResponse
func (p *Payment) ToResponse() PaymentResponse {
	resp := PaymentResponse{
		ID:          p.ID,
		CompanyID:   p.CompanyID,
		ContractID:  p.ContractID,
		Scope:       p.Scope,
		TotalAmount: p.TotalAmount,
		Method:      p.Method,
		Date:        p.Date,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt,
	}

	for _, d := range p.Distributions {
		resp.DistributedTotal += d.AssignedAmount
	}

	return resp
}
