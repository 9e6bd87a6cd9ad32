package bookings

import "time"

// Customer is a customer record returned by the booking system API
type Customer struct {
	// ID is the customer identifier in the booking system
	ID string `json:"id"`

	// FirstName is the customer's first name
	FirstName string `json:"firstName"`

	// LastName is the customer's last name
	LastName string `json:"lastName"`

	// Email is the customer's email address, may be empty
	Email string `json:"email,omitempty"`

	// Phone is the customer's phone number, may be empty
	Phone string `json:"phone,omitempty"`

	// CreatedAt is when the customer record was created
	CreatedAt time.Time `json:"createdAt"`
}

// FullName returns the customer's display name
func (c *Customer) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	default:
		return c.FirstName + " " + c.LastName
	}
}

// customersPage is a single page of the customer listing response
type customersPage struct {
	Customers  []Customer `json:"customers"`
	Page       int        `json:"page"`
	PageSize   int        `json:"pageSize"`
	TotalCount int        `json:"totalCount"`
}
