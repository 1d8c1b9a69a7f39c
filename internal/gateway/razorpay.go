// Package gateway wraps the external payment gateway behind an interface so
// services can be tested without a live account and the engine never touches
// a process-wide SDK singleton.
package gateway

import (
	"context"
	"errors"

	razorpay "github.com/razorpay/razorpay-go"
	razorpayUtils "github.com/razorpay/razorpay-go/utils"
	"github.com/shopspring/decimal"

	"github.com/loop2cod/madin-fee-engine/pkg/utils"
)

// Gateway is the create-order / verify-signature contract the fee engine
// consumes. A successful signature verification is trusted as proof of
// payment.
type Gateway interface {
	// CreateOrder registers an order for the given rupee amount and returns
	// the gateway order id.
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string, notes map[string]interface{}) (string, error)

	// VerifySignature checks a callback signature against order and payment ids.
	VerifySignature(orderID, paymentID, signature string) bool
}

type razorpayGateway struct {
	client *razorpay.Client
	secret string
}

// NewRazorpayGateway builds a Gateway backed by a Razorpay account.
func NewRazorpayGateway(keyID, keySecret string) Gateway {
	return &razorpayGateway{
		client: razorpay.NewClient(keyID, keySecret),
		secret: keySecret,
	}
}

func (g *razorpayGateway) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string, notes map[string]interface{}) (string, error) {
	data := map[string]interface{}{
		"amount":   utils.ToPaise(amount),
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		data["notes"] = notes
	}

	body, err := g.client.Order.Create(data, nil)
	if err != nil {
		return "", err
	}

	orderID, ok := body["id"].(string)
	if !ok || orderID == "" {
		return "", errors.New("gateway order response missing order id")
	}

	return orderID, nil
}

func (g *razorpayGateway) VerifySignature(orderID, paymentID, signature string) bool {
	params := map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}
	return razorpayUtils.VerifyPaymentSignature(params, signature, g.secret)
}
