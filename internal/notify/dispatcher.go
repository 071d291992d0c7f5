package notify

import (
	"context"
	"fmt"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// WebhookDispatcher posts notifications to a WhatsApp gateway. Calls go
// through a circuit breaker so a dead gateway fails fast.
type WebhookDispatcher struct {
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker
	url     string
	logger  *zap.Logger
}

type webhookPayload struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	To        string `json:"to"`
	Message   string `json:"message"`
	DeepLink  string `json:"deep_link"`
	Reference string `json:"reference,omitempty"`
}

// NewWebhookDispatcher creates a dispatcher for the gateway at url.
func NewWebhookDispatcher(url, token string, timeout time.Duration) *WebhookDispatcher {
	logger := util.Named("notify")

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json")
	if token != "" {
		client.SetAuthToken(token)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "whatsapp-gateway",
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			util.NotificationCircuitState.Set(stateValue(to))
			logger.Info("Circuit breaker state changed",
				zap.String("circuit", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &WebhookDispatcher{client: client, breaker: breaker, url: url, logger: logger}
}

// Send delivers one notification. Any non-2xx answer is an error.
func (d *WebhookDispatcher) Send(ctx context.Context, n *models.Notification) error {
	payload := webhookPayload{
		ID:       n.ID,
		Kind:     string(n.Kind),
		To:       n.Recipient,
		Message:  n.Message,
		DeepLink: n.DeepLink,
	}
	if n.OrderID != nil {
		payload.Reference = *n.OrderID
	}

	_, err := d.breaker.Execute(func() (interface{}, error) {
		resp, err := d.client.R().
			SetContext(ctx).
			SetHeader("Idempotency-Key", n.ID).
			SetBody(payload).
			Post(d.url)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("gateway responded %d", resp.StatusCode())
		}
		return nil, nil
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return fmt.Errorf("whatsapp gateway unavailable: %w", err)
	}
	return err
}

// State reports the breaker state for diagnostics.
func (d *WebhookDispatcher) State() string {
	return d.breaker.State().String()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}

// LogDispatcher only logs the deep link. It is used when no gateway is
// configured; the admin opens the link from the outbox listing.
type LogDispatcher struct {
	logger *zap.Logger
}

// NewLogDispatcher creates a log-only dispatcher.
func NewLogDispatcher() *LogDispatcher {
	return &LogDispatcher{logger: util.Named("notify")}
}

// Send logs the notification and always succeeds.
func (d *LogDispatcher) Send(ctx context.Context, n *models.Notification) error {
	d.logger.Info("Notification ready",
		zap.String("notification_id", n.ID),
		zap.String("kind", string(n.Kind)),
		zap.String("recipient", n.Recipient),
		zap.String("deep_link", n.DeepLink))
	return nil
}
