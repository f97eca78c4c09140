package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidMethod(t *testing.T) {
	for _, m := range PaymentMethods() {
		assert.True(t, ValidMethod(m), string(m))
	}
	assert.False(t, ValidMethod("crypto"))
	assert.False(t, ValidMethod(""))
	assert.False(t, ValidMethod("Cash"))
}

func TestSubscriptionActive(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	sub := Subscription{
		StartsAt: now.AddDate(0, -1, 0),
		EndsAt:   now.AddDate(0, 1, 0),
		Paid:     true,
	}

	assert.True(t, sub.Active(now))
	assert.True(t, sub.Active(sub.StartsAt), "window start is inclusive")
	assert.False(t, sub.Active(sub.EndsAt), "window end is exclusive")
	assert.False(t, sub.Active(now.AddDate(0, 2, 0)))

	sub.Paid = false
	assert.False(t, sub.Active(now), "unpaid subscription never active")
}
