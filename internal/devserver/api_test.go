package devserver

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestRouter(t *testing.T) (*gin.Engine, *API) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	api, err := NewAPI(discard(), time.Hour, 24*time.Hour)
	require.NoError(t, err)
	return buildRouter(discard(), api, "http://localhost:3000"), api
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec, decoded
}

func login(t *testing.T, router *gin.Engine) (access, refresh string) {
	t.Helper()
	rec, body := doJSON(t, router, http.MethodPost, "/api/auth/token",
		`{"email":"demo@example.com","password":"demo-password"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	access, _ = body["access"].(string)
	refresh, _ = body["refresh"].(string)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	return access, refresh
}

func TestTokenIssueAndProfile(t *testing.T) {
	router, _ := newTestRouter(t)
	access, _ := login(t, router)

	rec, body := doJSON(t, router, http.MethodGet, "/api/user-profile", "", map[string]string{
		"Authorization": "Bearer " + access,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "demo@example.com", body["email"])
}

func TestProfileRejectsBadToken(t *testing.T) {
	router, _ := newTestRouter(t)
	rec, _ := doJSON(t, router, http.MethodGet, "/api/user-profile", "", map[string]string{
		"Authorization": "Bearer nonsense",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshMintsNewAccessToken(t *testing.T) {
	router, _ := newTestRouter(t)
	_, refresh := login(t, router)

	rec, body := doJSON(t, router, http.MethodPost, "/api/auth/token/refresh",
		`{"refresh":"`+refresh+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	access, _ := body["access"].(string)
	require.NotEmpty(t, access)

	rec, _ = doJSON(t, router, http.MethodGet, "/api/user-profile", "", map[string]string{
		"Authorization": "Bearer " + access,
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	router, _ := newTestRouter(t)
	access, _ := login(t, router)
	rec, _ := doJSON(t, router, http.MethodPost, "/api/auth/token/refresh",
		`{"refresh":"`+access+`"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

const validOrderBody = `{
	"cartItems":[{"kind":"sale","itemId":"A","name":"Drill","unitPrice":"100","quantity":2}],
	"shippingAddress":{"deliveryOption":"pickup","firstName":"Jane","phoneNumber":"254700000000","storeId":"9"},
	"totalPrice":"200",
	"paymentMethod":"mpesa"
}`

func TestGuestOrderPlacement(t *testing.T) {
	router, _ := newTestRouter(t)
	rec, body := doJSON(t, router, http.MethodPost, "/api/orders", validOrderBody, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	orderID, _ := body["orderId"].(string)
	require.NotEmpty(t, orderID)

	rec, status := doJSON(t, router, http.MethodGet, "/api/orders/"+orderID+"/status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pending_payment", status["state"])
}

func TestOrderPlacementIdempotency(t *testing.T) {
	router, _ := newTestRouter(t)
	headers := map[string]string{"Idempotency-Key": "k-1"}

	_, first := doJSON(t, router, http.MethodPost, "/api/orders", validOrderBody, headers)
	_, second := doJSON(t, router, http.MethodPost, "/api/orders", validOrderBody, headers)
	assert.Equal(t, first["orderId"], second["orderId"])
}

func TestOrderPlacementValidation(t *testing.T) {
	router, _ := newTestRouter(t)
	rec, _ := doJSON(t, router, http.MethodPost, "/api/orders",
		`{"cartItems":[],"totalPrice":"0","paymentMethod":"mpesa"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, router, http.MethodPost, "/api/orders",
		strings.Replace(validOrderBody, `"mpesa"`, `"cheque"`, 1), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentInitiateMobileMoney(t *testing.T) {
	router, _ := newTestRouter(t)
	_, placed := doJSON(t, router, http.MethodPost, "/api/orders", validOrderBody, nil)
	orderID := placed["orderId"].(string)

	rec, body := doJSON(t, router, http.MethodPost, "/api/payment/mpesa/initiate",
		`{"orderId":"`+orderID+`","phone":"254700000000"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "accepted", body["status"])
	assert.NotContains(t, body, "redirectUrl")

	_, status := doJSON(t, router, http.MethodGet, "/api/orders/"+orderID+"/status", "", nil)
	assert.Equal(t, "awaiting_payment", status["state"])
}

func TestPaymentInitiateGatewayReturnsRedirect(t *testing.T) {
	router, _ := newTestRouter(t)
	_, placed := doJSON(t, router, http.MethodPost, "/api/orders", validOrderBody, nil)
	orderID := placed["orderId"].(string)

	rec, body := doJSON(t, router, http.MethodPost, "/api/payment/tingg/initiate",
		`{"orderId":"`+orderID+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	redirect, _ := body["redirectUrl"].(string)
	assert.True(t, strings.HasPrefix(redirect, "https://"), "redirectUrl: %q", redirect)
}

func TestPaymentInitiateUnknownOrder(t *testing.T) {
	router, _ := newTestRouter(t)
	rec, _ := doJSON(t, router, http.MethodPost, "/api/payment/mpesa/initiate",
		`{"orderId":"ghost","phone":"254700000000"}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStoreCatalogue(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/stores", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var stores []pickupStore
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stores))
	require.Len(t, stores, 2)
	assert.Equal(t, "9", stores[0].ID)
}
