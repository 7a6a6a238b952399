package devserver

import (
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"hireshop/internal/domain"
)

// pickupStore is a branch a pickup order can be collected from.
type pickupStore struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Landmark string `json:"landmark"`
}

var defaultStores = []pickupStore{
	{ID: "9", Name: "Afya Business Plaza", Landmark: "Near Globe Roundabout"},
	{ID: "10", Name: "Ghale House", Landmark: "Behind The Clarion Hotel"},
}

type account struct {
	user         domain.User
	passwordHash []byte
}

// API carries the in-memory state behind the stub endpoints.
type API struct {
	logger     *log.Logger
	tokens     *tokenManager
	accessTTL  time.Duration
	refreshTTL time.Duration

	mu          sync.Mutex
	accounts    map[string]account // keyed by lowercase email
	orders      map[string]domain.Order
	idempotency map[string]string // Idempotency-Key -> order id
}

// NewAPI seeds one demo account so the login flow works out of the box.
func NewAPI(logger *log.Logger, accessTTL, refreshTTL time.Duration) (*API, error) {
	a := &API{
		logger:      logger,
		tokens:      newTokenManager(),
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
		accounts:    make(map[string]account),
		orders:      make(map[string]domain.Order),
		idempotency: make(map[string]string),
	}
	if err := a.AddAccount(domain.User{
		ID:          uuid.NewString(),
		Email:       "demo@example.com",
		FirstName:   "Demo",
		PhoneNumber: "254700000000",
	}, "demo-password"); err != nil {
		return nil, err
	}
	return a, nil
}

// AddAccount registers a user that can log in against the stub.
func (a *API) AddAccount(user domain.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.accounts[strings.ToLower(user.Email)] = account{user: user, passwordHash: hash}
	a.mu.Unlock()
	return nil
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (a *API) issueTokens(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "email and password required"})
		return
	}

	a.mu.Lock()
	acct, ok := a.accounts[strings.ToLower(req.Email)]
	a.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "invalid credentials"})
		return
	}

	access, err := a.tokens.Issue(acct.user.ID, "access", a.accessTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "token issue failed"})
		return
	}
	refresh, err := a.tokens.Issue(acct.user.ID, "refresh", a.refreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "token issue failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": access, "refresh": refresh})
}

type refreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

func (a *API) refreshToken(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "refresh token required"})
		return
	}
	meta, ok := a.tokens.Validate(req.Refresh, "refresh")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "refresh token invalid or expired"})
		return
	}
	access, err := a.tokens.Issue(meta.UserID, "access", a.accessTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "token issue failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": access})
}

// bearerUser resolves the Authorization header to a user id, if any.
func (a *API) bearerUser(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	meta, ok := a.tokens.Validate(token, "access")
	if !ok {
		return "", false
	}
	return meta.UserID, true
}

func (a *API) userProfile(c *gin.Context) {
	userID, ok := a.bearerUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "access token invalid or expired"})
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, acct := range a.accounts {
		if acct.user.ID == userID {
			c.JSON(http.StatusOK, acct.user)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"detail": "user not found"})
}

func (a *API) listStores(c *gin.Context) {
	c.JSON(http.StatusOK, defaultStores)
}

type orderRequest struct {
	CartItems       []domain.CartLine        `json:"cartItems"`
	ShippingAddress domain.ShippingSelection `json:"shippingAddress"`
	TotalPrice      decimal.Decimal          `json:"totalPrice"`
	PaymentMethod   domain.PaymentMethod     `json:"paymentMethod"`
}

func (a *API) placeOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "order body unreadable"})
		return
	}
	if len(req.CartItems) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "cart is empty"})
		return
	}
	for _, line := range req.CartItems {
		if !line.WellFormed() {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "malformed cart line"})
			return
		}
	}
	if !req.PaymentMethod.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "unknown payment method"})
		return
	}
	if err := req.ShippingAddress.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	// Orders are bearer-optional; an invalid token is simply ignored here
	// because guest checkout must keep working.
	a.bearerUser(c)

	a.mu.Lock()
	defer a.mu.Unlock()

	if key := c.GetHeader("Idempotency-Key"); key != "" {
		if existing, ok := a.idempotency[key]; ok {
			c.JSON(http.StatusOK, gin.H{"orderId": existing})
			return
		}
	}

	order := domain.Order{
		ID:            uuid.NewString(),
		TotalPrice:    req.TotalPrice,
		PaymentMethod: req.PaymentMethod,
		State:         "pending_payment",
	}
	a.orders[order.ID] = order
	if key := c.GetHeader("Idempotency-Key"); key != "" {
		a.idempotency[key] = order.ID
	}
	a.logger.Printf("order %s placed, total %s via %s", order.ID, order.TotalPrice, order.PaymentMethod)
	c.JSON(http.StatusCreated, gin.H{"orderId": order.ID})
}

func (a *API) orderStatus(c *gin.Context) {
	a.mu.Lock()
	order, ok := a.orders[c.Param("id")]
	a.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "order not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":          order.ID,
		"total_price": order.TotalPrice,
		"state":       order.State,
	})
}

type paymentRequest struct {
	OrderID string `json:"orderId" binding:"required"`
	Phone   string `json:"phone"`
}

func (a *API) initiatePayment(c *gin.Context) {
	method := domain.PaymentMethod(c.Param("method"))
	if !method.Valid() {
		c.JSON(http.StatusNotFound, gin.H{"detail": "unknown payment method"})
		return
	}
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "orderId required"})
		return
	}

	a.mu.Lock()
	order, ok := a.orders[req.OrderID]
	if ok {
		order.State = "awaiting_payment"
		a.orders[req.OrderID] = order
	}
	a.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "order not found"})
		return
	}

	switch method {
	case domain.PaymentMobileMoney:
		if req.Phone == "" {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "phone required"})
			return
		}
		a.logger.Printf("mobile-money prompt pushed to %s for order %s", req.Phone, req.OrderID)
		c.JSON(http.StatusOK, gin.H{"status": "accepted", "orderId": req.OrderID})
	case domain.PaymentCardGateway:
		sessionRef := uuid.NewString()
		c.JSON(http.StatusOK, gin.H{
			"redirectUrl": "https://pay.gateway.example/checkout/" + sessionRef,
		})
	}
}
