package domain

import "github.com/shopspring/decimal"

// PaymentMethod enumerates the supported payment channels. The values double
// as the path segments on the payment initiation endpoints.
type PaymentMethod string

const (
	// PaymentCardGateway is the hosted card & mobile-money gateway; paying
	// requires a full redirect to an external checkout page.
	PaymentCardGateway PaymentMethod = "tingg"
	// PaymentMobileMoney pushes a payment prompt straight to the customer's
	// phone; no redirect is involved.
	PaymentMobileMoney PaymentMethod = "mpesa"
)

// Valid reports whether m is one of the known methods.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCardGateway || m == PaymentMobileMoney
}

// Order is the client-side view of a placed order. The backend owns orders;
// the client only ever reads them back by id.
type Order struct {
	ID            string          `json:"id"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	State         string          `json:"state,omitempty"`
}

// User is the profile returned by the backend for an authenticated session.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}
