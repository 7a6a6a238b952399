// Package payment initiates payment for a placed order, either by pushing a
// mobile-money prompt to the customer's phone or by creating a hosted
// gateway session the browser must be redirected to.
package payment

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"

	"hireshop/internal/domain"
)

// Outcome is the result of a successful dispatch. Exactly one field is set:
// RedirectURL for the hosted gateway, PollOrderID when the customer pays on
// their phone and the client should watch the order status instead.
type Outcome struct {
	RedirectURL string
	PollOrderID string
}

// doer issues a request against the backend. The session manager satisfies
// this, bringing its token handling along.
type doer interface {
	Do(ctx context.Context, method, path string, body any) (*http.Response, error)
}

// Dispatcher calls the payment initiation endpoints.
type Dispatcher struct {
	client doer
	logger *log.Logger
}

func New(client doer, logger *log.Logger) *Dispatcher {
	return &Dispatcher{client: client, logger: logger}
}

type initiateRequest struct {
	OrderID string `json:"orderId"`
	Phone   string `json:"phone,omitempty"`
}

// Dispatch initiates payment for orderID over the chosen method.
func (d *Dispatcher) Dispatch(ctx context.Context, orderID string, method domain.PaymentMethod, contactPhone string) (*Outcome, error) {
	if orderID == "" {
		return nil, domain.NewOpError(domain.CategoryValidation, "order id required", nil)
	}
	switch method {
	case domain.PaymentMobileMoney:
		return d.pushPrompt(ctx, orderID, contactPhone)
	case domain.PaymentCardGateway:
		return d.hostedSession(ctx, orderID)
	}
	return nil, domain.NewOpError(domain.CategoryValidation, "unknown payment method", nil)
}

// pushPrompt asks the backend to send a pay prompt to the phone. Success is
// a bare acknowledgement; the caller then polls the order status.
func (d *Dispatcher) pushPrompt(ctx context.Context, orderID, phone string) (*Outcome, error) {
	if phone == "" {
		return nil, domain.NewOpError(domain.CategoryValidation, "contact phone required for mobile money", nil)
	}
	// The acknowledgement body carries no routing information, only the 2xx
	// matters.
	if _, err := d.initiate(ctx, domain.PaymentMobileMoney, initiateRequest{OrderID: orderID, Phone: phone}); err != nil {
		return nil, err
	}
	d.logger.Printf("mobile-money prompt sent for order %s", orderID)
	return &Outcome{PollOrderID: orderID}, nil
}

// hostedSession creates a gateway checkout session and returns its redirect
// URL. A 2xx without a usable URL is a malformed response, not a rejection.
func (d *Dispatcher) hostedSession(ctx context.Context, orderID string) (*Outcome, error) {
	raw, err := d.initiate(ctx, domain.PaymentCardGateway, initiateRequest{OrderID: orderID})
	if err != nil {
		return nil, err
	}
	var body struct {
		RedirectURL string `json:"redirectUrl"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, domain.NewOpError(domain.CategoryMalformed, "gateway response unreadable", err)
	}
	if body.RedirectURL == "" {
		return nil, domain.NewOpError(domain.CategoryMalformed, "gateway response missing redirect URL", nil)
	}
	parsed, err := url.Parse(body.RedirectURL)
	if err != nil || !parsed.IsAbs() || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, domain.NewOpError(domain.CategoryMalformed, "gateway redirect URL is not an absolute http(s) URL", err)
	}
	return &Outcome{RedirectURL: body.RedirectURL}, nil
}

func (d *Dispatcher) initiate(ctx context.Context, method domain.PaymentMethod, req initiateRequest) ([]byte, error) {
	resp, err := d.client.Do(ctx, http.MethodPost, "/payment/"+string(method)+"/initiate", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewOpError(domain.CategoryNetwork, "read payment response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Application-level rejections (insufficient funds and the like)
		// come back this way and are passed through for display.
		return nil, domain.NewOpError(domain.CategoryBackend, rejectionMessage(raw), nil)
	}
	return raw, nil
}

func rejectionMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil {
		for _, msg := range []string{body.Message, body.Detail, body.Error} {
			if msg != "" {
				return msg
			}
		}
	}
	return "payment initiation rejected"
}
