package models

// Company is the tenant boundary for every other entity.
type Company struct {
	Base
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`

	// Relations
	Memberships []Membership `gorm:"foreignKey:CompanyID" json:"memberships,omitempty"`
}
