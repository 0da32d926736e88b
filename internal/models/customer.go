package models

// DefaultCountry is applied to customers created without a country.
const DefaultCountry = "United Kingdom"

// Customer is a person who books or pays for a function.
type Customer struct {
	BaseModel
	FirstName    string  `gorm:"not null;index" json:"first_name"`
	LastName     string  `gorm:"not null;index" json:"last_name"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	AddressLine1 *string `gorm:"column:address_line_1" json:"address_line_1"`
	AddressLine2 *string `gorm:"column:address_line_2" json:"address_line_2"`
	City         *string `json:"city"`
	County       *string `json:"county"`
	Postcode     *string `json:"postcode"`
	Country      string  `gorm:"not null;default:'United Kingdom'" json:"country"`
	Notes        *string `gorm:"type:text" json:"notes"`
}

// FullName joins first and last name for display and audit descriptions.
func (c Customer) FullName() string {
	return c.FirstName + " " + c.LastName
}
