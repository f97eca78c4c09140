package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/png"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/skip2/go-qrcode"
)

// QRService renders scannable labels for ticket lookup codes. The label
// encodes only the lookup code, never the internal ticket id.
type QRService struct {
	lookup *LookupService
	redis  *redis.Client
}

func NewQRService(lookup *LookupService, redisClient *redis.Client) *QRService {
	return &QRService{
		lookup: lookup,
		redis:  redisClient,
	}
}

// GenerateLabel renders a PNG QR label for the given lookup code after
// confirming the code resolves within the caller's workshop. Rendered
// labels are cached since codes are immutable.
func (s *QRService) GenerateLabel(ctx context.Context, lookupCode, workshopID string) (string, error) {
	if _, err := s.lookup.Resolve(ctx, lookupCode, workshopID); err != nil {
		return "", err
	}

	cacheKey := fmt.Sprintf("qrlabel:%s:%s", workshopID, lookupCode)
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
			return cached, nil
		}
	}

	qr, err := qrcode.New(lookupCode, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to build QR code: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		return "", fmt.Errorf("failed to encode QR image: %w", err)
	}

	label := base64.StdEncoding.EncodeToString(buf.Bytes())

	if s.redis != nil {
		if err := s.redis.Set(ctx, cacheKey, label, 24*time.Hour).Err(); err != nil {
			log.Printf("[QR] Failed to cache label for %s: %v", lookupCode, err)
		}
	}

	return label, nil
}
