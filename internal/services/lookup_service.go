package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"

	"github.com/atelio/backend/internal/config"
)

// LookupService resolves a scanned or typed lookup code to a ticket id
// within a single workshop. A code belonging to another workshop is
// reported exactly like an unknown code so that guessing a code never
// reveals a foreign ticket's existence.
type LookupService struct {
	db     *sql.DB
	redis  *redis.Client
	config *config.LookupConfig
}

func NewLookupService(db *sql.DB, redisClient *redis.Client) *LookupService {
	return &LookupService{
		db:     db,
		redis:  redisClient,
		config: config.LoadLookupConfig(),
	}
}

// Resolve maps a lookup code to a ticket id, scoped to the workshop.
// The code-to-id mapping is immutable, so it is cached; balances are
// never cached, callers re-read the ticket row themselves.
func (s *LookupService) Resolve(ctx context.Context, lookupCode, workshopID string) (string, error) {
	if lookupCode == "" {
		return "", ledgerErr(CodeNotFound, fmt.Errorf("empty lookup code"))
	}

	if err := s.checkRateLimit(ctx, workshopID); err != nil {
		return "", err
	}

	cacheKey := fmt.Sprintf("lookup:%s:%s", workshopID, lookupCode)
	if s.redis != nil {
		if ticketID, err := s.redis.Get(ctx, cacheKey).Result(); err == nil && ticketID != "" {
			return ticketID, nil
		}
	}

	var ticketID string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM tickets
		WHERE lookup_code = $1 AND workshop_id = $2
	`, lookupCode, workshopID).Scan(&ticketID)

	if err == sql.ErrNoRows {
		s.recordFailedLookup(ctx, workshopID)
		return "", ledgerErr(CodeNotFound, fmt.Errorf("lookup code %s not found", lookupCode))
	}
	if err != nil {
		return "", classifyStoreErr(err)
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, cacheKey, ticketID, s.config.CacheTTL).Err(); err != nil {
			log.Printf("[LOOKUP] Failed to cache code %s: %v", lookupCode, err)
		}
	}

	return ticketID, nil
}

// Invalidate drops a cached code mapping, for use when the ticket
// authoring flow reassigns a code.
func (s *LookupService) Invalidate(ctx context.Context, lookupCode, workshopID string) {
	if s.redis == nil {
		return
	}
	s.redis.Del(ctx, fmt.Sprintf("lookup:%s:%s", workshopID, lookupCode))
}

// Failed lookups are rate limited per workshop to deter code guessing.

func (s *LookupService) checkRateLimit(ctx context.Context, workshopID string) error {
	if s.redis == nil {
		return nil
	}

	key := fmt.Sprintf("lookup:failed:%s", workshopID)
	count, err := s.redis.Get(ctx, key).Int()
	if err != nil && err != redis.Nil {
		log.Printf("[LOOKUP] Rate limit check failed for workshop %s: %v", workshopID, err)
		return nil
	}

	if count >= s.config.MaxFailedLookups {
		return ledgerErr(CodeBusy, fmt.Errorf("too many failed lookups for workshop %s", workshopID))
	}
	return nil
}

func (s *LookupService) recordFailedLookup(ctx context.Context, workshopID string) {
	if s.redis == nil {
		return
	}

	key := fmt.Sprintf("lookup:failed:%s", workshopID)
	pipe := s.redis.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.config.RateLimitWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[LOOKUP] Failed to record failed lookup for workshop %s: %v", workshopID, err)
	}
}
