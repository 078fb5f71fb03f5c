package quote

import (
	"fmt"
	"strings"
)

// Customer identifies who the quote is for and where the service happens.
type Customer struct {
	Company       string `json:"company,omitempty"`
	ContactName   string `json:"contactName"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	ServiceStreet string `json:"serviceStreet"`
	ServiceCity   string `json:"serviceCity"`
	ServiceState  string `json:"serviceState"`
	ServiceZip    string `json:"serviceZip"`
	PONumber      string `json:"poNumber,omitempty"`
}

// RequiredCustomerFields lists, in display order, the customer fields that must
// be filled before a quote may be saved or exported.
var RequiredCustomerFields = []string{
	"contactName",
	"serviceStreet",
	"serviceCity",
	"serviceState",
	"serviceZip",
}

// Missing returns the required fields that are empty after trimming.
func (c Customer) Missing() []string {
	values := map[string]string{
		"contactName":   c.ContactName,
		"serviceStreet": c.ServiceStreet,
		"serviceCity":   c.ServiceCity,
		"serviceState":  c.ServiceState,
		"serviceZip":    c.ServiceZip,
	}
	var missing []string
	for _, f := range RequiredCustomerFields {
		if strings.TrimSpace(values[f]) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// Validate returns a *MissingFieldsError when any required field is empty.
func (c Customer) Validate() error {
	if missing := c.Missing(); len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}
	return nil
}

// Trimmed returns c with surrounding whitespace removed from every field.
func (c Customer) Trimmed() Customer {
	return Customer{
		Company:       strings.TrimSpace(c.Company),
		ContactName:   strings.TrimSpace(c.ContactName),
		Email:         strings.TrimSpace(c.Email),
		Phone:         strings.TrimSpace(c.Phone),
		ServiceStreet: strings.TrimSpace(c.ServiceStreet),
		ServiceCity:   strings.TrimSpace(c.ServiceCity),
		ServiceState:  strings.TrimSpace(c.ServiceState),
		ServiceZip:    strings.TrimSpace(c.ServiceZip),
		PONumber:      strings.TrimSpace(c.PONumber),
	}
}

// ServiceAddress formats the service address on one line.
func (c Customer) ServiceAddress() string {
	return fmt.Sprintf("%s, %s, %s %s", c.ServiceStreet, c.ServiceCity, c.ServiceState, c.ServiceZip)
}

// MissingFieldsError lists the required customer fields that were left empty.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required customer fields: " + strings.Join(e.Fields, ", ")
}
