// internal/domain/checkout/session.go
package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/your-org/storefront-api/internal/domain/cart"
	"github.com/your-org/storefront-api/internal/domain/order"
	"github.com/your-org/storefront-api/internal/domain/payment"
)

// Version is bumped whenever the persisted session layout changes
const Version = 1

// Key returns the Redis key holding checkout state for a session
func Key(sessionID string) string {
	return "checkout:session:" + sessionID
}

// Session holds the shopper's checkout progress: the selected delivery
// address snapshot and the chosen payment method. Both must be set before
// an order can be placed.
type Session struct {
	Version   int                `json:"version"`
	SessionID string             `json:"session_id"`
	Address   *order.Address     `json:"address,omitempty"`
	AddressID uint               `json:"address_id,omitempty"` // source address, for invalidation on delete
	Payment   *payment.Selection `json:"payment,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// NewSession returns an empty checkout session
func NewSession(sessionID string) *Session {
	now := time.Now().UTC()
	return &Session{
		Version:   Version,
		SessionID: sessionID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsComplete reports whether both an address and a payment method are selected
func (s *Session) IsComplete() bool {
	return s.Address != nil && s.Payment != nil
}

// ClearAddress drops the selected address
func (s *Session) ClearAddress() {
	s.Address = nil
	s.AddressID = 0
	s.touch()
}

// ClearPayment drops the selected payment method
func (s *Session) ClearPayment() {
	s.Payment = nil
	s.touch()
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now().UTC()
}

// RedisStore persists checkout sessions in Redis
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewRedisStore creates a session store with the given TTL
func NewRedisStore(redisClient *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		redis:  redisClient,
		ttl:    ttl,
		logger: logrus.StandardLogger(),
	}
}

// Get loads the session. Missing, corrupt, or stale-version state yields a
// fresh session instead of an error.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.redis.Get(ctx, Key(sessionID)).Result()
	if err == redis.Nil {
		return NewSession(sessionID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkout session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		s.logger.WithFields(logrus.Fields{
			"session_id": sessionID,
			"error":      err.Error(),
		}).Warn("Discarding corrupt checkout session")
		return NewSession(sessionID), nil
	}
	if sess.Version != Version {
		s.logger.WithField("session_id", sessionID).Warn("Discarding checkout session with unknown version")
		return NewSession(sessionID), nil
	}

	sess.SessionID = sessionID
	return &sess, nil
}

// Save persists the session with the store's TTL
func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to serialize checkout session: %w", err)
	}
	if err := s.redis.Set(ctx, Key(sess.SessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save checkout session: %w", err)
	}
	return nil
}

// ClearWithCart removes both the checkout session and the cart in a single
// transactional pipeline, so the two keys disappear together or not at all
func (s *RedisStore) ClearWithCart(ctx context.Context, sessionID string) error {
	pipe := s.redis.TxPipeline()
	pipe.Del(ctx, Key(sessionID))
	pipe.Del(ctx, cart.Key(sessionID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear checkout state: %w", err)
	}
	return nil
}

// RedisSubmitGuard serializes place-order submissions per session using a
// short-lived SETNX lock
type RedisSubmitGuard struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisSubmitGuard creates a submit guard. The TTL bounds how long a
// crashed submission can block the session.
func NewRedisSubmitGuard(redisClient *redis.Client, ttl time.Duration) *RedisSubmitGuard {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisSubmitGuard{redis: redisClient, ttl: ttl}
}

func guardKey(sessionID string) string {
	return "checkout:placing:" + sessionID
}

// TryAcquire attempts to take the submission lock for a session
func (g *RedisSubmitGuard) TryAcquire(ctx context.Context, sessionID string) (bool, error) {
	ok, err := g.redis.SetNX(ctx, guardKey(sessionID), "1", g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire submission lock: %w", err)
	}
	return ok, nil
}

// Release frees the submission lock
func (g *RedisSubmitGuard) Release(ctx context.Context, sessionID string) {
	g.redis.Del(ctx, guardKey(sessionID))
}
