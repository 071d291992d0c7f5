package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront-service/internal/models"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb        *redis.Client
	cartTTL    time.Duration
	sessionTTL time.Duration
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int, cartTTL, sessionTTL time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb, cartTTL: cartTTL, sessionTTL: sessionTTL}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks connectivity for the readiness check
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// SaveCart stores a cart and refreshes its expiry
func (c *Client) SaveCart(ctx context.Context, cart *models.Cart) error {
	return c.setJSON(ctx, fmt.Sprintf("cart:%s", cart.ID), cart, c.cartTTL)
}

// GetCart loads a cart; expired or unknown carts are ErrNotFound
func (c *Client) GetCart(ctx context.Context, cartID string) (*models.Cart, error) {
	var cart models.Cart
	if err := c.getJSON(ctx, fmt.Sprintf("cart:%s", cartID), &cart); err != nil {
		return nil, fmt.Errorf("cart %s: %w", cartID, err)
	}
	return &cart, nil
}

// DeleteCart removes a cart
func (c *Client) DeleteCart(ctx context.Context, cartID string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("cart:%s", cartID)).Err()
}

// SaveSession stores checkout state. The TTL is set when the session is
// first written and kept on later writes.
func (c *Client) SaveSession(ctx context.Context, session *models.CheckoutSession) error {
	key := fmt.Sprintf("checkout:%s", session.ID)
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ok, err := c.rdb.SetNX(ctx, key, data, c.sessionTTL).Result()
	if err != nil || ok {
		return err
	}
	return c.rdb.SetXX(ctx, key, data, redis.KeepTTL).Err()
}

// GetSession loads checkout state; expired sessions are ErrNotFound
func (c *Client) GetSession(ctx context.Context, sessionID string) (*models.CheckoutSession, error) {
	var session models.CheckoutSession
	if err := c.getJSON(ctx, fmt.Sprintf("checkout:%s", sessionID), &session); err != nil {
		return nil, fmt.Errorf("checkout session %s: %w", sessionID, err)
	}
	return &session, nil
}

// SetIdempotencyKey stores an idempotency key with TTL
func (c *Client) SetIdempotencyKey(ctx context.Context, key string, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s", key), value, ttl).Err()
}

// GetIdempotencyKey returns the value stored under key and whether it exists
func (c *Client) GetIdempotencyKey(ctx context.Context, key string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, fmt.Sprintf("idempotency:%s", key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// AcquireLock acquires a distributed lock
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}

// SaveLoginCode stores a hashed login code and resets its attempt counter
func (c *Client) SaveLoginCode(ctx context.Context, phone, codeHash string, ttl time.Duration) error {
	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf("login:%s", phone), codeHash, ttl)
	pipe.Del(ctx, fmt.Sprintf("login-attempts:%s", phone))
	_, err := pipe.Exec(ctx)
	return err
}

// GetLoginCode returns the hashed code for phone and whether one is live
func (c *Client) GetLoginCode(ctx context.Context, phone string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, fmt.Sprintf("login:%s", phone)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// DeleteLoginCode removes a code once used or exhausted
func (c *Client) DeleteLoginCode(ctx context.Context, phone string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("login:%s", phone), fmt.Sprintf("login-attempts:%s", phone)).Err()
}

// IncrLoginAttempts counts a verification attempt; the counter expires with the code
func (c *Client) IncrLoginAttempts(ctx context.Context, phone string, ttl time.Duration) (int64, error) {
	key := fmt.Sprintf("login-attempts:%s", phone)
	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (c *Client) setJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

func (c *Client) getJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}
