package notify

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"storefront-service/internal/models"
)

// OrderPlacedMessage is the alert sent to the store admin for a new order.
func OrderPlacedMessage(order *models.Order) string {
	var b strings.Builder
	c := order.Customer

	fmt.Fprintf(&b, "New Order %s\n", order.ID)
	fmt.Fprintf(&b, "Customer: %s (%s)\n", c.Name, c.Phone)
	b.WriteString("\nItems:\n")
	for _, it := range order.Items {
		fmt.Fprintf(&b, "- %s x %d", it.Product.Name, it.Quantity)
		if it.SelectedColor != "" || it.SelectedSize != "" {
			opts := strings.TrimSpace(strings.Join([]string{it.SelectedColor, it.SelectedSize}, " "))
			fmt.Fprintf(&b, " (%s)", opts)
		}
		b.WriteString("\n")
	}

	if order.Items.HasPhysical() {
		b.WriteString("\nShipping:\n")
		fmt.Fprintf(&b, "%s\n%s, %s - %s\n", c.Address, c.City, c.State, c.Pincode)
	}
	if order.Items.HasDigital() {
		b.WriteString("\nDigital delivery:\n")
		fmt.Fprintf(&b, "Email: %s\nWhatsApp: %s\n", c.Email, c.WhatsApp)
	}

	fmt.Fprintf(&b, "\nTotal: ₹%s\n", order.Total.StringFixed(2))
	fmt.Fprintf(&b, "Payment: %s", order.PaymentMethod)
	if order.PaymentMethod == models.PaymentMethodPrepaid && order.TransactionID != "" {
		fmt.Fprintf(&b, "\nTransaction ID: %s", order.TransactionID)
	}
	return b.String()
}

// DigitalDeliveryMessage carries every digital item's delivery link to the customer.
func DigitalDeliveryMessage(order *models.Order) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Namaste %s, your payment for order %s is confirmed.\n", order.Customer.Name, order.ID)
	b.WriteString("\nYour downloads:\n")
	for _, it := range order.Items.Digital() {
		fmt.Fprintf(&b, "- %s: %s\n", it.Product.Name, it.Product.DeliveryLink)
	}
	return strings.TrimRight(b.String(), "\n")
}

// LoginCodeMessage carries a one-time code that proves the customer owns the number.
func LoginCodeMessage(code string, ttl time.Duration) string {
	return fmt.Sprintf("Your Divine Store verification code is %s. It expires in %d minutes. Do not share it with anyone.",
		code, int(ttl.Minutes()))
}

// Recipient returns the international digit form of a number. Ten digit
// numbers get countryCode prefixed.
func Recipient(number, countryCode string) string {
	d := models.Digits(number)
	if len(d) == 10 {
		return countryCode + d
	}
	return d
}

// DeepLink builds a wa.me link that opens a chat with text pre-filled.
func DeepLink(recipient, text string) string {
	return fmt.Sprintf("https://wa.me/%s?text=%s", recipient, url.QueryEscape(text))
}
