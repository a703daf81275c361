// Package cache mirrors ledger account snapshots into Redis so an operator
// can inspect balances with redis-cli during a demo. It is strictly optional:
// nothing in the request pipeline blocks on it, and a disconnected or absent
// Redis never affects the correctness of a debit or a status read.
package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cronos-labs/xdr/pkg/mlog"
)

// snapshot is the subset of an account record mirrored to Redis.
type snapshot struct {
	agentID      string
	balanceMicro int64
	spendMicro   int64
	paymentCount int64
}

// Mirror connects lazily to Redis and republishes snapshots pushed to it
// through a single background goroutine, so a slow or unreachable Redis can
// never add latency to a ledger operation. It implements ledger.Mirror.
type Mirror struct {
	connStr string
	logger  mlog.Logger

	client *redis.Client

	updates chan snapshot
	done    chan struct{}
}

// NewMirror builds a Mirror that will lazily connect to connStr on first
// Start call. connStr may be empty, in which case Start is a no-op and
// Publish silently drops every snapshot (the mirror is disabled).
func NewMirror(connStr string, logger mlog.Logger) *Mirror {
	return &Mirror{
		connStr: connStr,
		logger:  logger,
		updates: make(chan snapshot, 256),
		done:    make(chan struct{}),
	}
}

// Enabled reports whether a Redis connection string was configured.
func (m *Mirror) Enabled() bool {
	return m.connStr != ""
}

// Start connects to Redis (if enabled) and launches the writer goroutine.
// It returns immediately; connection errors are logged, not returned, since
// the mirror is best-effort by design.
func (m *Mirror) Start(ctx context.Context) {
	if !m.Enabled() {
		return
	}

	opts, err := redis.ParseURL(m.connStr)
	if err != nil {
		m.logger.Errorf("cache: invalid redis connection string: %s", err)
		return
	}

	m.client = redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if _, err := m.client.Ping(pingCtx).Result(); err != nil {
		m.logger.Warnf("cache: redis ping failed, mirror running degraded: %s", err)
	} else {
		m.logger.Info("cache: connected to redis mirror")
	}

	go m.run(ctx)
}

func (m *Mirror) run(ctx context.Context) {
	defer close(m.done)

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-m.updates:
			if !ok {
				return
			}

			m.write(ctx, snap)
		}
	}
}

func (m *Mirror) write(ctx context.Context, snap snapshot) {
	if m.client == nil {
		return
	}

	key := "xdr:account:" + snap.agentID

	writeCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	err := m.client.HSet(writeCtx, key, map[string]any{
		"balance_micro": strconv.FormatInt(snap.balanceMicro, 10),
		"spend_micro":   strconv.FormatInt(snap.spendMicro, 10),
		"payment_count": strconv.FormatInt(snap.paymentCount, 10),
	}).Err()
	if err != nil {
		m.logger.Warnf("cache: mirror write for %s failed: %s", snap.agentID, err)
	}
}

// Publish enqueues an account snapshot for the mirror, never blocking the
// caller. A full buffer silently drops the update — the mirror is a
// convenience view, not a source of truth. Satisfies ledger.Mirror.
func (m *Mirror) Publish(agentID string, balanceMicro, spendMicro, paymentCount int64) {
	if !m.Enabled() {
		return
	}

	snap := snapshot{agentID: agentID, balanceMicro: balanceMicro, spendMicro: spendMicro, paymentCount: paymentCount}

	select {
	case m.updates <- snap:
	default:
		m.logger.Warnf("cache: mirror buffer full, dropping snapshot for %s", agentID)
	}
}

// Close stops accepting updates and waits for the writer goroutine to drain.
func (m *Mirror) Close() {
	if !m.Enabled() || m.client == nil {
		return
	}

	close(m.updates)
	<-m.done

	if m.client != nil {
		_ = m.client.Close()
	}
}
