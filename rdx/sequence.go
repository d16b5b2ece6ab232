package rdx

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// seqTTL keeps a day's counter around long enough to cover timezone skew
// between app servers.
const seqTTL = 48 * time.Hour

// SequenceFloor reports the highest number already issued for day, so a
// counter lost to a flush or restart resumes above it.
type SequenceFloor func(ctx context.Context, day string) (int64, error)

type counter interface {
	RdxExists(ctx context.Context, key string) (bool, error)
	RdxSetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	RdxIncr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// OrderSequence hands out per-day order numbers with INCR.
type OrderSequence struct {
	store counter
	key   func(day string) string
	floor SequenceFloor
}

func NewOrderSequence(c *Client, floor SequenceFloor) *OrderSequence {
	return &OrderSequence{
		store: c,
		key:   func(day string) string { return c.Key("orders", "seq", day) },
		floor: floor,
	}
}

func (s *OrderSequence) Next(ctx context.Context, day string) (int64, error) {
	key := s.key(day)
	if err := s.seed(ctx, key, day); err != nil {
		return 0, err
	}
	return s.store.RdxIncr(ctx, key, seqTTL)
}

// seed sets a missing counter to the floor. SETNX lets only one instance
// win when several notice the gap at once.
func (s *OrderSequence) seed(ctx context.Context, key, day string) error {
	if s.floor == nil {
		return nil
	}
	exists, err := s.store.RdxExists(ctx, key)
	if err != nil || exists {
		return err
	}
	floor, err := s.floor(ctx, day)
	if err != nil {
		return fmt.Errorf("order sequence floor: %w", err)
	}
	if floor <= 0 {
		return nil
	}
	_, err = s.store.RdxSetNX(ctx, key, strconv.FormatInt(floor, 10), seqTTL)
	return err
}
