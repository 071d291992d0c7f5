package service

import (
	"fmt"
	"net/url"
	"strings"

	"storefront-service/internal/models"

	"github.com/shopspring/decimal"
)

// PaymentConfig describes the UPI payee customers pay to.
type PaymentConfig struct {
	PayeeHandle string
	PayeeName   string
	Currency    string
	QRBaseURL   string
}

// PaymentReference builds the display-only payment code for an order. It
// binds nothing; payment is confirmed by manual review.
func (c PaymentConfig) PaymentReference(total decimal.Decimal, orderID string) *models.PaymentReference {
	currency := c.Currency
	if currency == "" {
		currency = "INR"
	}
	amount := total.StringFixed(2)
	note := "Order " + models.OrderIDFragment(orderID)

	uri := fmt.Sprintf("upi://pay?pa=%s&pn=%s&am=%s&cu=%s&tn=%s",
		escape(c.PayeeHandle), escape(c.PayeeName), amount, currency, escape(note))

	return &models.PaymentReference{
		PayeeHandle: c.PayeeHandle,
		PayeeName:   c.PayeeName,
		Amount:      amount,
		Currency:    currency,
		Note:        note,
		UPIURI:      uri,
		QRImageURL:  c.QRBaseURL + url.QueryEscape(uri),
	}
}

// escape percent-encodes a UPI parameter. UPI apps expect %20, not +.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
