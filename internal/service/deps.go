package service

import (
	"context"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"
)

// SessionStore keeps short-lived carts and checkout state.
type SessionStore interface {
	SaveCart(ctx context.Context, cart *models.Cart) error
	GetCart(ctx context.Context, cartID string) (*models.Cart, error)
	DeleteCart(ctx context.Context, cartID string) error
	SaveSession(ctx context.Context, session *models.CheckoutSession) error
	GetSession(ctx context.Context, sessionID string) (*models.CheckoutSession, error)
	SetIdempotencyKey(ctx context.Context, key string, value string, ttl time.Duration) error
	GetIdempotencyKey(ctx context.Context, key string) (string, bool, error)
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
}

// CodeStore keeps one-time login codes, hashed, until they expire.
type CodeStore interface {
	SaveLoginCode(ctx context.Context, phone, codeHash string, ttl time.Duration) error
	GetLoginCode(ctx context.Context, phone string) (string, bool, error)
	DeleteLoginCode(ctx context.Context, phone string) error
	IncrLoginAttempts(ctx context.Context, phone string, ttl time.Duration) (int64, error)
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
}

// Publisher emits domain events after a change has committed.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
	PublishVerification(ctx context.Context, event *models.VerificationEvent) error
	PublishTicketCreated(ctx context.Context, event *models.TicketCreatedEvent) error
}

// Dispatcher delivers one outbox notification.
type Dispatcher interface {
	Send(ctx context.Context, n *models.Notification) error
}

// Uploader stores a payment screenshot and returns where it can be viewed.
type Uploader interface {
	Upload(ctx context.Context, prefix, contentType string, data []byte) (string, error)
}

// Screenshot is an uploaded payment proof.
type Screenshot struct {
	ContentType string
	Data        []byte
}

func (s *Screenshot) empty() bool {
	return s == nil || len(s.Data) == 0
}

const screenshotPrefix = "screenshots"

// uploadScreenshot stores proof of payment, wrapping failures as UploadError.
func uploadScreenshot(ctx context.Context, uploader Uploader, shot *Screenshot) (string, error) {
	url, err := uploader.Upload(ctx, screenshotPrefix, shot.ContentType, shot.Data)
	if err != nil {
		util.ScreenshotUploadsFailed.Inc()
		return "", &models.UploadError{Err: err}
	}
	return url, nil
}
