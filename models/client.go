package models

import (
	"time"

	"gorm.io/gorm"
)

// Client is a company record owned by the agent who created it.
type Client struct {
	ID            string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CompanyName   string         `gorm:"not null;index" json:"company_name"`
	ContactName   string         `gorm:"not null" json:"contact_name"`
	Email         *string        `gorm:"size:255" json:"email"`
	Phone         *string        `gorm:"size:50" json:"phone"`
	Mobile        *string        `gorm:"size:50" json:"mobile"`
	Address       *string        `gorm:"type:text" json:"address"`
	Region        *string        `gorm:"size:100" json:"region"`
	AnnualRevenue *float64       `gorm:"type:decimal(15,2)" json:"annual_revenue"`
	CreatedBy     string         `gorm:"type:uuid;not null;index" json:"created_by"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// ClientInput is the payload accepted when a client is created. Audit fields are set by the server.
type ClientInput struct {
	CompanyName   string   `json:"company_name"`
	ContactName   string   `json:"contact_name"`
	Email         *string  `json:"email,omitempty"`
	Phone         *string  `json:"phone,omitempty"`
	Mobile        *string  `json:"mobile,omitempty"`
	Address       *string  `json:"address,omitempty"`
	Region        *string  `json:"region,omitempty"`
	AnnualRevenue *float64 `json:"annual_revenue,omitempty"`
}

// ClientPatch holds the fields of a partial update; nil fields are left untouched.
type ClientPatch struct {
	CompanyName   *string  `json:"company_name,omitempty"`
	ContactName   *string  `json:"contact_name,omitempty"`
	Email         *string  `json:"email,omitempty"`
	Phone         *string  `json:"phone,omitempty"`
	Mobile        *string  `json:"mobile,omitempty"`
	Address       *string  `json:"address,omitempty"`
	Region        *string  `json:"region,omitempty"`
	AnnualRevenue *float64 `json:"annual_revenue,omitempty"`
}

// Columns returns the column/value pairs set in the patch.
func (p ClientPatch) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if p.CompanyName != nil {
		cols["company_name"] = *p.CompanyName
	}
	if p.ContactName != nil {
		cols["contact_name"] = *p.ContactName
	}
	if p.Email != nil {
		cols["email"] = *p.Email
	}
	if p.Phone != nil {
		cols["phone"] = *p.Phone
	}
	if p.Mobile != nil {
		cols["mobile"] = *p.Mobile
	}
	if p.Address != nil {
		cols["address"] = *p.Address
	}
	if p.Region != nil {
		cols["region"] = *p.Region
	}
	if p.AnnualRevenue != nil {
		cols["annual_revenue"] = *p.AnnualRevenue
	}
	return cols
}
