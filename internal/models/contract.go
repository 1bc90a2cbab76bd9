package models

import "time"

// Contract status constants
const (
	ContractStatusActive = "active"
	ContractStatusClosed = "closed"
)

// Contract represents a service contract that produces monthly certifications
type Contract struct {
	ID                string    `gorm:"primaryKey;size:36" json:"id"`
	CompanyID         string    `gorm:"not null;index;size:36" json:"company_id"`
	Code              string    `gorm:"not null" json:"code"`
	Description       *string   `gorm:"type:text" json:"description"`
	CommissionPercent float64   `gorm:"type:decimal(5,2);not null" json:"commission_percent"`
	Status            string    `gorm:"default:active;not null;index" json:"status"`
	StartDate         *time.Time `gorm:"type:date" json:"start_date"`
	CreatedAt         time.Time `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	// Associations
	Company        Company         `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	Certifications []Certification `gorm:"foreignKey:ContractID" json:"certifications,omitempty"`
}

// TableName specifies the table name for Contract
func (Contract) TableName() string {
	return "contracts"
}

// ContractResponse is the JSON response format for contracts
type ContractResponse struct {
	ID                string     `json:"id"`
	CompanyID         string     `json:"company_id"`
	CompanyName       string     `json:"company_name,omitempty"`
	Code              string     `json:"code"`
	Description       *string    `json:"description"`
	CommissionPercent float64    `json:"commission_percent"`
	Status            string     `json:"status"`
	StartDate         *time.Time `json:"start_date"`
	PendingCommission float64    `json:"pending_commission"`
	CreatedAt         time.Time  `json:"created_at"`
}

// ToResponse converts Contract to ContractResponse
func (c *Contract) ToResponse() ContractResponse {
	resp := ContractResponse{
		ID:                c.ID,
		CompanyID:         c.CompanyID,
		Code:              c.Code,
		Description:       c.Description,
		CommissionPercent: c.CommissionPercent,
		Status:            c.Status,
		StartDate:         c.StartDate,
		CreatedAt:         c.CreatedAt,
	}

	if c.Company.ID != "" {
		resp.CompanyName = c.Company.Name
	}

	for _, cert := range c.Certifications {
		if !cert.Paid {
			resp.PendingCommission += cert.OwedCommission()
		}
	}

	return resp
}
