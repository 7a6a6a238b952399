// checkout-demo runs one scripted checkout against the backend configured
// via API_BASE_URL (the devserver by default): log in, fill a cart with a
// sale and a hire line, capture a pickup address, place the order and
// dispatch payment.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"hireshop/internal/cart"
	"hireshop/internal/checkout"
	"hireshop/internal/config"
	"hireshop/internal/domain"
	"hireshop/internal/payment"
	"hireshop/internal/pricing"
	"hireshop/internal/session"
	"hireshop/internal/storage"
)

func main() {
	email := flag.String("email", "demo@example.com", "account email")
	password := flag.String("password", "demo-password", "account password")
	gateway := flag.Bool("gateway", false, "pay via the hosted gateway instead of a mobile-money prompt")
	flag.Parse()

	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[checkout-demo] ", log.LstdFlags)

	kv, err := storage.Open(cfg)
	if err != nil {
		logger.Fatalf("open state store: %v", err)
	}

	sess := session.New(cfg.APIBaseURL, nil, kv, logger)
	cartStore := cart.New(kv, logger)
	dispatcher := payment.New(sess, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sess.Login(ctx, *email, *password); err != nil {
		logger.Fatalf("login: %v", err)
	}
	user, err := sess.CurrentUser(ctx)
	if err != nil {
		logger.Fatalf("fetch profile: %v", err)
	}
	logger.Printf("logged in as %s", user.Email)

	if err := cartStore.AddItem(domain.CatalogItem{ID: "drill-18v", Name: "Cordless drill 18V"}, decimal.NewFromInt(4500), 1); err != nil {
		logger.Fatalf("add sale item: %v", err)
	}
	err = cartStore.AddHireItem(domain.CatalogItem{ID: "genset-5kva", Name: "Generator 5kVA"}, domain.HireDetails{
		Hours:      0,
		Days:       2,
		HourlyRate: decimal.NewFromInt(800),
		DailyRate:  decimal.NewFromInt(5000),
	})
	if err != nil {
		logger.Fatalf("add hire item: %v", err)
	}
	logger.Printf("cart total: %s", pricing.Display(cartStore.Total()))

	seq := checkout.New(cartStore, sess, dispatcher, logger)
	defer seq.Close()

	err = seq.CaptureAddress(domain.ShippingSelection{
		Option:       domain.DeliveryPickup,
		ContactName:  user.FirstName,
		ContactPhone: user.PhoneNumber,
		StoreID:      "9",
	})
	if err != nil {
		logger.Fatalf("capture address: %v", err)
	}

	method := domain.PaymentMobileMoney
	if *gateway {
		method = domain.PaymentCardGateway
	}
	if err := seq.SelectPaymentMethod(method); err != nil {
		logger.Fatalf("select payment method: %v", err)
	}
	if err := seq.Submit(ctx); err != nil {
		logger.Fatalf("place order: %v", err)
	}
	logger.Printf("order placed: %s", seq.OrderID())

	if err := seq.Dispatch(ctx); err != nil {
		logger.Fatalf("dispatch payment: %v", err)
	}
	outcome := seq.Outcome()
	switch {
	case outcome.RedirectURL != "":
		logger.Printf("redirect the browser to %s", outcome.RedirectURL)
	default:
		order, err := sess.OrderStatus(ctx, outcome.PollOrderID)
		if err != nil {
			logger.Fatalf("order status: %v", err)
		}
		logger.Printf("prompt sent; order %s is %s for %s", order.ID, order.State, pricing.Display(order.TotalPrice))
	}
}
