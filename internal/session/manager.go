// Package session manages the authenticated session against the storefront
// backend: the access/refresh token pair, the single refresh-and-retry-once
// policy on 401s, order placement, and the checkout's shipping selection.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hireshop/internal/domain"
	"hireshop/internal/storage"
)

// State is the session lifecycle state.
type State string

const (
	StateAnonymous     State = "anonymous"
	StateAuthenticated State = "authenticated"
	StateRefreshing    State = "refreshing"
)

const (
	accessTokenKey  = "accessToken"
	refreshTokenKey = "refreshToken"
	shippingKey     = "shippingAddress"

	maxErrorBody = 512
)

// Manager owns the session. All backend calls go through it so the token
// attach/refresh policy lives in exactly one place.
type Manager struct {
	baseURL string
	client  *http.Client
	kv      storage.Store
	logger  *log.Logger

	mu       sync.Mutex
	state    State
	access   string
	refresh  string
	user     *domain.User
	shipping *domain.ShippingSelection
}

// New builds a Manager and reloads any persisted tokens and shipping
// selection. A persisted access token puts the session straight into the
// authenticated state; the first 401 sorts out whether it is still good.
func New(baseURL string, client *http.Client, kv storage.Store, logger *log.Logger) *Manager {
	if client == nil {
		client = http.DefaultClient
	}
	m := &Manager{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		kv:      kv,
		logger:  logger,
		state:   StateAnonymous,
	}
	m.access = m.loadString(accessTokenKey)
	m.refresh = m.loadString(refreshTokenKey)
	if m.access != "" {
		m.state = StateAuthenticated
	}
	if raw, err := kv.Get(shippingKey); err == nil {
		var sel domain.ShippingSelection
		if json.Unmarshal(raw, &sel) == nil && sel.Validate() == nil {
			m.shipping = &sel
		}
	}
	return m
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Authenticated reports whether an access token is held.
func (m *Manager) Authenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access != ""
}

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Login exchanges credentials for a token pair and persists it.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return domain.NewOpError(domain.CategoryValidation, "email and password required", nil)
	}
	body := map[string]string{"email": email, "password": password}
	resp, err := m.send(ctx, http.MethodPost, "/auth/token", mustJSON(body), "", nil)
	if err != nil {
		return domain.NewOpError(domain.CategoryNetwork, "login request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.NewOpError(domain.CategoryNetwork, "read login response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.NewOpError(domain.CategoryAuth, extractMessage(raw, "login rejected"), nil)
	}
	var pair tokenPair
	if err := json.Unmarshal(raw, &pair); err != nil || pair.Access == "" || pair.Refresh == "" {
		return domain.NewOpError(domain.CategoryMalformed, "login response missing tokens", err)
	}

	m.mu.Lock()
	m.access = pair.Access
	m.refresh = pair.Refresh
	m.state = StateAuthenticated
	m.user = nil
	m.mu.Unlock()

	m.storeString(accessTokenKey, pair.Access)
	m.storeString(refreshTokenKey, pair.Refresh)
	return nil
}

// Logout discards all session state, including the cached shipping
// selection. The cart is untouched.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.access = ""
	m.refresh = ""
	m.user = nil
	m.shipping = nil
	m.state = StateAnonymous
	m.mu.Unlock()

	for _, key := range []string{accessTokenKey, refreshTokenKey, shippingKey} {
		if err := m.kv.Delete(key); err != nil {
			m.logger.Printf("clear %s: %v", key, err)
		}
	}
}

// Do issues an authorized request. On a 401 it performs exactly one refresh
// attempt and reissues the request once; a failed refresh drops the session
// to anonymous and returns an auth-required error. It never refreshes twice
// for one call, no matter how many 401s come back.
func (m *Manager) Do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var raw []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, domain.NewOpError(domain.CategoryValidation, "encode request body", err)
		}
		raw = encoded
	}
	return m.do(ctx, method, path, raw, nil)
}

func (m *Manager) do(ctx context.Context, method, path string, body []byte, extra http.Header) (*http.Response, error) {
	m.mu.Lock()
	token := m.access
	m.mu.Unlock()

	resp, err := m.send(ctx, method, path, body, token, extra)
	if err != nil {
		return nil, domain.NewOpError(domain.CategoryNetwork, method+" "+path+" failed", err)
	}
	if resp.StatusCode != http.StatusUnauthorized || token == "" {
		return resp, nil
	}
	resp.Body.Close()

	if err := m.refreshAccess(ctx); err != nil {
		m.Logout()
		return nil, domain.NewOpError(domain.CategoryAuth, "session expired", errors.Join(err, domain.ErrAuthRequired))
	}

	m.mu.Lock()
	token = m.access
	m.mu.Unlock()
	resp, err = m.send(ctx, method, path, body, token, extra)
	if err != nil {
		return nil, domain.NewOpError(domain.CategoryNetwork, method+" "+path+" failed after refresh", err)
	}
	return resp, nil
}

// refreshAccess mints a new access token from the refresh token. Called at
// most once per Do invocation.
func (m *Manager) refreshAccess(ctx context.Context) error {
	m.mu.Lock()
	refresh := m.refresh
	if refresh == "" {
		m.mu.Unlock()
		return errors.New("no refresh token")
	}
	m.state = StateRefreshing
	m.mu.Unlock()

	body := mustJSON(map[string]string{"refresh": refresh})
	resp, err := m.send(ctx, http.MethodPost, "/auth/token/refresh", body, "", nil)
	if err != nil {
		return fmt.Errorf("refresh request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read refresh response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.New("refresh token rejected")
	}
	var pair tokenPair
	if err := json.Unmarshal(raw, &pair); err != nil || pair.Access == "" {
		return errors.New("refresh response missing access token")
	}

	m.mu.Lock()
	m.access = pair.Access
	m.state = StateAuthenticated
	m.mu.Unlock()
	m.storeString(accessTokenKey, pair.Access)
	return nil
}

// CurrentUser fetches (and caches) the profile for the session.
func (m *Manager) CurrentUser(ctx context.Context) (*domain.User, error) {
	m.mu.Lock()
	if m.user != nil {
		user := *m.user
		m.mu.Unlock()
		return &user, nil
	}
	m.mu.Unlock()

	resp, err := m.Do(ctx, http.MethodGet, "/user-profile", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewOpError(domain.CategoryNetwork, "read profile response", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, domain.NewOpError(domain.CategoryAuth, "profile requires login", domain.ErrAuthRequired)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, domain.NewOpError(domain.CategoryBackend, extractMessage(raw, "profile fetch rejected"), nil)
	}
	var user domain.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, domain.NewOpError(domain.CategoryMalformed, "profile response unreadable", err)
	}

	m.mu.Lock()
	m.user = &user
	m.mu.Unlock()
	return &user, nil
}

type orderRequest struct {
	CartItems       []domain.CartLine         `json:"cartItems"`
	ShippingAddress *domain.ShippingSelection `json:"shippingAddress"`
	TotalPrice      decimal.Decimal           `json:"totalPrice"`
	PaymentMethod   domain.PaymentMethod      `json:"paymentMethod"`
}

// PlaceOrder submits the cart as one order and returns the backend's order
// id. The endpoint is bearer-optional, so a guest session submits without a
// token. The backend may answer with a bare id string or an object carrying
// an id field; anything else is a malformed response.
func (m *Manager) PlaceOrder(ctx context.Context, lines []domain.CartLine, total decimal.Decimal, sel domain.ShippingSelection, method domain.PaymentMethod) (string, error) {
	if len(lines) == 0 {
		return "", domain.NewOpError(domain.CategoryValidation, "cart is empty", nil)
	}
	if !method.Valid() {
		return "", domain.NewOpError(domain.CategoryValidation, "payment method required", nil)
	}
	if err := sel.Validate(); err != nil {
		return "", domain.NewOpError(domain.CategoryValidation, err.Error(), nil)
	}

	body := mustJSON(orderRequest{
		CartItems:       lines,
		ShippingAddress: &sel,
		TotalPrice:      total,
		PaymentMethod:   method,
	})
	// One key per submission: a network-level retry of the same submission
	// cannot place a second order.
	extra := http.Header{"Idempotency-Key": []string{uuid.NewString()}}

	var resp *http.Response
	var err error
	if m.Authenticated() {
		resp, err = m.do(ctx, http.MethodPost, "/orders", body, extra)
	} else {
		resp, err = m.send(ctx, http.MethodPost, "/orders", body, "", extra)
		if err != nil {
			err = domain.NewOpError(domain.CategoryNetwork, "order request failed", err)
		}
	}
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.NewOpError(domain.CategoryNetwork, "read order response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", domain.NewOpError(domain.CategoryBackend, extractMessage(raw, "order placement rejected"), nil)
	}
	return parseOrderID(raw)
}

// OrderStatus reads back a placed order, e.g. to show the amount due on the
// payment screen.
func (m *Manager) OrderStatus(ctx context.Context, orderID string) (*domain.Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, domain.NewOpError(domain.CategoryValidation, "order id required", nil)
	}
	resp, err := m.Do(ctx, http.MethodGet, "/orders/"+orderID+"/status", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewOpError(domain.CategoryNetwork, "read order status", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, domain.NewOpError(domain.CategoryBackend, extractMessage(raw, "order status rejected"), nil)
	}
	var order domain.Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, domain.NewOpError(domain.CategoryMalformed, "order status unreadable", err)
	}
	return &order, nil
}

// ShippingSelection returns the selection captured for the current checkout,
// or nil when none was captured yet.
func (m *Manager) ShippingSelection() *domain.ShippingSelection {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shipping == nil {
		return nil
	}
	sel := *m.shipping
	return &sel
}

// SetShippingSelection validates and persists the selection so a return
// visit can prefill the address form.
func (m *Manager) SetShippingSelection(sel domain.ShippingSelection) error {
	if err := sel.Validate(); err != nil {
		return domain.NewOpError(domain.CategoryValidation, err.Error(), nil)
	}
	m.mu.Lock()
	m.shipping = &sel
	m.mu.Unlock()

	if err := m.kv.Set(shippingKey, mustJSON(sel)); err != nil {
		m.logger.Printf("persist shipping selection: %v", err)
	}
	return nil
}

func (m *Manager) send(ctx context.Context, method, path string, body []byte, token string, extra http.Header) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, m.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for key, values := range extra {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	return m.client.Do(req)
}

func (m *Manager) loadString(key string) string {
	raw, err := m.kv.Get(key)
	if err != nil {
		return ""
	}
	var value string
	if json.Unmarshal(raw, &value) != nil {
		return ""
	}
	return value
}

func (m *Manager) storeString(key, value string) {
	if err := m.kv.Set(key, mustJSON(value)); err != nil {
		m.logger.Printf("persist %s: %v", key, err)
	}
}

// parseOrderID accepts the two order-id shapes the backend is known to
// return: a bare JSON string, or an object with an id/orderId field.
func parseOrderID(raw []byte) (string, error) {
	var id string
	if err := json.Unmarshal(raw, &id); err == nil && id != "" {
		return id, nil
	}
	var obj struct {
		ID      string `json:"id"`
		OrderID string `json:"orderId"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.ID != "" {
			return obj.ID, nil
		}
		if obj.OrderID != "" {
			return obj.OrderID, nil
		}
	}
	return "", domain.NewOpError(domain.CategoryMalformed,
		fmt.Sprintf("expected an order id, got %s", clip(raw)), nil)
}

// extractMessage pulls a human-readable message out of an error body,
// falling back to fallback when none of the known keys are present.
func extractMessage(raw []byte, fallback string) string {
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
	return fallback
}

func clip(raw []byte) string {
	if len(raw) > maxErrorBody {
		return string(raw[:maxErrorBody]) + "..."
	}
	return string(raw)
}

func mustJSON(v any) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}
