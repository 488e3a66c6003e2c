// Package ledger persists monthly spend counters. Spend is stored as
// micro-USD integers so INCRBY stays lossless.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/seluna-ai/passage/internal/db"
	"github.com/seluna-ai/passage/internal/domain"
	"github.com/seluna-ai/passage/internal/domain/budget"
)

// store is the consumer interface for ledger persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Store persists monthly ledger counters via INCRBY with a month-scoped TTL.
type Store struct {
	store    store
	monthTTL time.Duration
}

// New creates a ledger store. monthTTL is the TTL for monthly keys
// (recommended: 62 days, so a finished month survives into the next).
func New(s store, monthTTL time.Duration) *Store {
	return &Store{store: s, monthTTL: monthTTL}
}

// Add accumulates one recorded call into the month's counters.
func (s *Store) Add(ctx context.Context, month string, spendMicro, tokensIn, tokensOut int64) error {
	increments := []struct {
		key string
		val int64
	}{
		{spendKey(month), spendMicro},
		{opsKey(month), 1},
		{tokensInKey(month), tokensIn},
		{tokensOutKey(month), tokensOut},
	}

	for _, inc := range increments {
		if err := s.store.IncrBy(ctx, inc.key, inc.val); err != nil {
			return fmt.Errorf("ledger INCRBY %s: %w", inc.key, err)
		}
		// TTL only if the key has no expiry yet (NX, not reset on repeat).
		if err := s.store.Expire(ctx, inc.key, s.monthTTL, true); err != nil {
			return fmt.Errorf("ledger EXPIRE %s: %w", inc.key, err)
		}
	}

	return nil
}

// Month returns the accumulated counters for a month. Missing keys read as
// zero, so an untouched month is a zero ledger.
func (s *Store) Month(ctx context.Context, month string) (budget.MonthTotals, error) {
	var totals budget.MonthTotals
	var err error

	if totals.SpendMicroUSD, err = s.get(ctx, spendKey(month)); err != nil {
		return budget.MonthTotals{}, err
	}
	if totals.Operations, err = s.get(ctx, opsKey(month)); err != nil {
		return budget.MonthTotals{}, err
	}
	if totals.TokensIn, err = s.get(ctx, tokensInKey(month)); err != nil {
		return budget.MonthTotals{}, err
	}
	if totals.TokensOut, err = s.get(ctx, tokensOutKey(month)); err != nil {
		return budget.MonthTotals{}, err
	}

	return totals, nil
}

func (s *Store) get(ctx context.Context, key string) (int64, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("ledger GET %s: %w", key, err)
	}

	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("ledger GET %s parse: %w", key, err)
	}
	return val, nil
}

func spendKey(month string) string     { return domain.KeyPrefix + "ledger:" + month + ":spend_micro" }
func opsKey(month string) string       { return domain.KeyPrefix + "ledger:" + month + ":ops" }
func tokensInKey(month string) string  { return domain.KeyPrefix + "ledger:" + month + ":tokens_in" }
func tokensOutKey(month string) string { return domain.KeyPrefix + "ledger:" + month + ":tokens_out" }
