package models

import "time"

// Distribution links a payment to the certification it settles and the
// amount applied to it. For any payment the assigned amounts never exceed
// the payment total; a completed global payment distributes the total
// exactly (within AllocationEpsilon).
type Distribution struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	PaymentID       string    `gorm:"not null;index;size:36" json:"payment_id"`
	ContractID      string    `gorm:"not null;index;size:36" json:"contract_id"`
	CertificationID string    `gorm:"not null;index;size:36" json:"certification_id"`
	AssignedAmount  float64   `gorm:"type:decimal(15,2);not null" json:"assigned_amount"`
	AssignedPercent float64   `gorm:"type:decimal(7,4);not null" json:"assigned_percent"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Associations
	Payment       Payment       `gorm:"foreignKey:PaymentID" json:"-"`
	Certification Certification `gorm:"foreignKey:CertificationID" json:"-"`
}

// TableName specifies the table name for Distribution
func (Distribution) TableName() string {
	return "distributions"
}

// AllocationEpsilon is the tolerance, in currency units, used when deciding
// whether an assigned amount fully covers an obligation and whether a global
// payment is fully distributed.
const AllocationEpsilon = 0.01
