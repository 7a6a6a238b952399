// Package checkout drives the linear checkout flow: capture a delivery or
// pickup selection, pick a payment method, place the order, then hand the
// order id to payment dispatch. The cart is cleared if and only if order
// placement succeeds.
package checkout

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/shopspring/decimal"

	"hireshop/internal/cart"
	"hireshop/internal/domain"
	"hireshop/internal/payment"
)

// State is the checkout step currently on screen.
type State string

const (
	StateAddressCapture   State = "address_capture"
	StatePaymentSelection State = "payment_selection"
	StateSubmitting       State = "submitting"
	StatePaymentDispatch  State = "payment_dispatch"
	StatePaymentSuccess   State = "payment_success"
	StatePaymentError     State = "payment_error"
)

// ErrClosed is returned by operations on a sequencer that was closed.
var ErrClosed = errors.New("checkout closed")

type orderPlacer interface {
	PlaceOrder(ctx context.Context, lines []domain.CartLine, total decimal.Decimal, sel domain.ShippingSelection, method domain.PaymentMethod) (string, error)
	ShippingSelection() *domain.ShippingSelection
	SetShippingSelection(sel domain.ShippingSelection) error
}

type dispatcher interface {
	Dispatch(ctx context.Context, orderID string, method domain.PaymentMethod, contactPhone string) (*payment.Outcome, error)
}

// Sequencer runs one checkout. Backend calls happen outside the lock; a
// response that lands after Close never advances the state machine, though a
// successfully placed order still clears the cart.
type Sequencer struct {
	cart       *cart.Store
	session    orderPlacer
	dispatcher dispatcher
	logger     *log.Logger

	mu      sync.Mutex
	state   State
	method  domain.PaymentMethod
	orderID string
	phone   string
	outcome *payment.Outcome
	lastErr error
	closed  bool
}

// New starts a checkout at address capture. A previously persisted shipping
// selection is available for prefill via Prefill.
func New(cartStore *cart.Store, session orderPlacer, disp dispatcher, logger *log.Logger) *Sequencer {
	return &Sequencer{
		cart:       cartStore,
		session:    session,
		dispatcher: disp,
		logger:     logger,
		state:      StateAddressCapture,
	}
}

// State returns the current step.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error surfaced by the last failed step, if any.
func (s *Sequencer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// OrderID is set once order placement succeeds.
func (s *Sequencer) OrderID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderID
}

// Outcome is set once payment dispatch succeeds.
func (s *Sequencer) Outcome() *payment.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// Prefill returns the shipping selection from an earlier visit, if one was
// persisted, so the address form can start filled in.
func (s *Sequencer) Prefill() *domain.ShippingSelection {
	return s.session.ShippingSelection()
}

// CaptureAddress validates and stores the selection, then moves on to
// payment selection.
func (s *Sequencer) CaptureAddress(sel domain.ShippingSelection) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state != StateAddressCapture {
		s.mu.Unlock()
		return domain.NewOpError(domain.CategoryValidation, "not at address capture", nil)
	}
	s.mu.Unlock()

	if err := s.session.SetShippingSelection(sel); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.state = StatePaymentSelection
	s.lastErr = nil
	return nil
}

// EditAddress returns to address capture from payment selection. The
// captured selection stays put for re-editing.
func (s *Sequencer) EditAddress() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.state != StatePaymentSelection {
		return domain.NewOpError(domain.CategoryValidation, "nothing to edit from here", nil)
	}
	s.state = StateAddressCapture
	return nil
}

// SelectPaymentMethod records the method chosen on the payment screen.
func (s *Sequencer) SelectPaymentMethod(method domain.PaymentMethod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.state != StatePaymentSelection {
		return domain.NewOpError(domain.CategoryValidation, "not at payment selection", nil)
	}
	if !method.Valid() {
		return domain.NewOpError(domain.CategoryValidation, "unknown payment method", nil)
	}
	s.method = method
	return nil
}

// Submit places the order. Validation failures reject synchronously with no
// transition. On success the cart is cleared and the flow advances to
// payment dispatch; on failure the flow returns to payment selection with
// the cart untouched so the user can retry.
func (s *Sequencer) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state != StatePaymentSelection {
		s.mu.Unlock()
		return domain.NewOpError(domain.CategoryValidation, "not at payment selection", nil)
	}
	if s.cart.Len() == 0 {
		s.mu.Unlock()
		return domain.NewOpError(domain.CategoryValidation, "cart is empty", nil)
	}
	if !s.method.Valid() {
		s.mu.Unlock()
		return domain.NewOpError(domain.CategoryValidation, "select a payment method", nil)
	}
	sel := s.session.ShippingSelection()
	if sel == nil {
		s.mu.Unlock()
		return domain.NewOpError(domain.CategoryValidation, "no delivery details captured", nil)
	}
	method := s.method
	s.state = StateSubmitting
	s.mu.Unlock()

	orderID, err := s.session.PlaceOrder(ctx, s.cart.Lines(), s.cart.Total(), *sel, method)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if !s.closed {
			s.state = StatePaymentSelection
			s.lastErr = err
		}
		return err
	}

	// The order exists on the backend now, so the cart must clear even if
	// the checkout screen has since been torn down.
	if cerr := s.cart.Clear(); cerr != nil {
		s.logger.Printf("clear cart after order %s: %v", orderID, cerr)
	}
	if s.closed {
		return nil
	}
	s.orderID = orderID
	s.phone = sel.ContactPhone
	s.state = StatePaymentDispatch
	s.lastErr = nil
	return nil
}

// Dispatch runs payment initiation for the placed order and lands on a
// terminal state.
func (s *Sequencer) Dispatch(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state != StatePaymentDispatch {
		s.mu.Unlock()
		return domain.NewOpError(domain.CategoryValidation, "no order awaiting payment", nil)
	}
	orderID, method, phone := s.orderID, s.method, s.phone
	s.mu.Unlock()

	outcome, err := s.dispatcher.Dispatch(ctx, orderID, method, phone)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return err
	}
	if err != nil {
		s.state = StatePaymentError
		s.lastErr = err
		return err
	}
	s.outcome = outcome
	s.state = StatePaymentSuccess
	s.lastErr = nil
	return nil
}

// Close marks the sequencer as torn down. In-flight calls may still finish
// their backend work but will not move the state machine afterwards.
func (s *Sequencer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
