package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/atelio/backend/internal/config"
	"github.com/atelio/backend/internal/models"
)

// SubscriptionService answers whether a workshop's subscription window
// is currently active. The ledger treats a negative answer as a hard
// Forbidden before touching any ticket.
type SubscriptionService struct {
	db     *sql.DB
	redis  *redis.Client
	config *config.SubscriptionConfig
	now    func() time.Time
}

func NewSubscriptionService(db *sql.DB, redisClient *redis.Client) *SubscriptionService {
	return &SubscriptionService{
		db:     db,
		redis:  redisClient,
		config: config.LoadSubscriptionConfig(),
		now:    time.Now,
	}
}

// Require returns nil when the workshop's subscription is active and a
// Forbidden ledger error otherwise.
func (s *SubscriptionService) Require(ctx context.Context, workshopID string) error {
	active, err := s.isActive(ctx, workshopID)
	if err != nil {
		return err
	}
	if !active {
		return ledgerErr(CodeForbidden, fmt.Errorf("subscription inactive for workshop %s", workshopID))
	}
	return nil
}

func (s *SubscriptionService) isActive(ctx context.Context, workshopID string) (bool, error) {
	cacheKey := fmt.Sprintf("sub:active:%s", workshopID)
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			return cached == "1", nil
		}
	}

	var sub models.Subscription
	err := s.db.QueryRowContext(ctx, `
		SELECT workshop_id, starts_at, ends_at, paid
		FROM subscriptions
		WHERE workshop_id = $1
		ORDER BY ends_at DESC
		LIMIT 1
	`, workshopID).Scan(&sub.WorkshopID, &sub.StartsAt, &sub.EndsAt, &sub.Paid)

	if err == sql.ErrNoRows {
		s.cache(ctx, cacheKey, false)
		return false, nil
	}
	if err != nil {
		return false, classifyStoreErr(err)
	}

	active := sub.Active(s.now())
	s.cache(ctx, cacheKey, active)
	return active, nil
}

func (s *SubscriptionService) cache(ctx context.Context, key string, active bool) {
	if s.redis == nil {
		return
	}
	val := "0"
	if active {
		val = "1"
	}
	if err := s.redis.Set(ctx, key, val, s.config.CacheTTL).Err(); err != nil {
		log.Printf("[SUBSCRIPTION] Failed to cache %s: %v", key, err)
	}
}
