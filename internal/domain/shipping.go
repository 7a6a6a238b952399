package domain

import (
	"errors"
	"strings"
)

// DeliveryOption selects how a placed order reaches the customer.
type DeliveryOption string

const (
	// DeliveryPickup means collection from one of the branch stores.
	DeliveryPickup DeliveryOption = "pickup"
	// DeliveryToAddress means courier delivery to a street address.
	DeliveryToAddress DeliveryOption = "delivery"
)

// ShippingSelection is the delivery choice captured during checkout.
// Pickup selections carry a store id; delivery selections carry street/city.
type ShippingSelection struct {
	Option       DeliveryOption `json:"deliveryOption"`
	ContactName  string         `json:"firstName"`
	ContactPhone string         `json:"phoneNumber"`
	StoreID      string         `json:"storeId,omitempty"`
	Street       string         `json:"street,omitempty"`
	City         string         `json:"city,omitempty"`
}

// Validate checks the fields required by the chosen option are present.
func (s ShippingSelection) Validate() error {
	if strings.TrimSpace(s.ContactName) == "" {
		return errors.New("contact name required")
	}
	if strings.TrimSpace(s.ContactPhone) == "" {
		return errors.New("contact phone required")
	}
	switch s.Option {
	case DeliveryPickup:
		if strings.TrimSpace(s.StoreID) == "" {
			return errors.New("pickup store required")
		}
	case DeliveryToAddress:
		if strings.TrimSpace(s.Street) == "" || strings.TrimSpace(s.City) == "" {
			return errors.New("street and city required")
		}
	default:
		return errors.New("unknown delivery option")
	}
	return nil
}
