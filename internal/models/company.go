package models

import "time"

// Company represents a company whose contracts generate commissions
type Company struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	TaxID     *string   `gorm:"index" json:"tax_id"`
	Email     *string   `json:"email"`
	Phone     *string   `json:"phone"`
	Notes     *string   `gorm:"type:text" json:"notes"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Associations
	Contracts []Contract `gorm:"foreignKey:CompanyID" json:"contracts,omitempty"`
}

// TableName specifies the table name for Company
func (Company) TableName() string {
	return "companies"
}
