package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/nqtuan-dev/vietshop-backend/internal/cart"
)

// cartCache is the scan surface of pkg/redis.Client used by the sync.
type cartCache interface {
	Scan(ctx context.Context, cursor uint64, pattern string, count int64) ([]string, uint64, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	UserCartPattern() string
	IsGuestCartKey(key string) bool
	UserIDFromCartKey(key string) (string, bool)
}

// CartIdleSyncJob persists idle authenticated carts to their durable
// snapshots. Guest carts have no snapshot and are skipped.
type CartIdleSyncJob struct {
	cache     cartCache
	snapshots cart.SnapshotRepository
	logger    zerolog.Logger
	threshold time.Duration
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

// NewCartIdleSyncJob wires the idle-cart sync.
func NewCartIdleSyncJob(
	cache cartCache,
	snapshots cart.SnapshotRepository,
	logger zerolog.Logger,
	threshold, interval time.Duration,
	batchSize int,
) (*CartIdleSyncJob, error) {
	if cache == nil {
		return nil, fmt.Errorf("cart cache required")
	}
	if snapshots == nil {
		return nil, fmt.Errorf("snapshot repository required")
	}
	if threshold <= 0 || interval <= 0 {
		return nil, fmt.Errorf("threshold and interval must be positive")
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &CartIdleSyncJob{
		cache:     cache,
		snapshots: snapshots,
		logger:    logger,
		threshold: threshold,
		interval:  interval,
		batchSize: batchSize,
		now:       time.Now,
	}, nil
}

func (j *CartIdleSyncJob) Name() string { return "cart_idle_sync" }

func (j *CartIdleSyncJob) Interval() time.Duration { return j.interval }

// Run walks cart keys in cursor batches so one pass never loads the
// whole keyspace at once.
func (j *CartIdleSyncJob) Run(ctx context.Context) (int, error) {
	var errs error
	processed := 0
	cursor := uint64(0)
	for {
		keys, next, err := j.cache.Scan(ctx, cursor, j.cache.UserCartPattern(), int64(j.batchSize))
		if err != nil {
			return processed, multierr.Append(errs, fmt.Errorf("scanning cart keys: %w", err))
		}
		for _, key := range keys {
			synced, err := j.syncKey(ctx, key)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("cart %s: %w", key, err))
				j.logger.Error().Err(err).Str("key", key).Msg("failed to sync cart")
				continue
			}
			if synced {
				processed++
			}
		}
		cursor = next
		if cursor == 0 {
			return processed, errs
		}
	}
}

func (j *CartIdleSyncJob) syncKey(ctx context.Context, key string) (bool, error) {
	if j.cache.IsGuestCartKey(key) {
		return false, nil
	}
	rawUserID, ok := j.cache.UserIDFromCartKey(key)
	if !ok {
		return false, nil
	}
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		return false, nil
	}

	fields, err := j.cache.HGetAll(ctx, key)
	if err != nil {
		return false, err
	}
	items, lastActivity := cart.DecodeHash(fields)
	if len(items) == 0 {
		return false, nil
	}
	if j.now().Sub(lastActivity) < j.threshold {
		return false, nil
	}

	if err := j.snapshots.Upsert(ctx, userID, items); err != nil {
		return false, err
	}
	return true, nil
}
