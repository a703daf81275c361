// Package chaos implements the seedable, deterministic fault-injection
// oracle consulted once per request by the pipeline. Two runs with the same
// (seed, agent_id, cursor) must draw the same decision — the simulator's
// entire "replay a run" guarantee rests on this package alone.
package chaos

import (
	"math/rand/v2"
	"sync"
	"sync/atomic"
)

// Decision is the outcome of one chaos roll.
type Decision struct {
	// None, when true, means no fault was injected.
	None bool

	// LatencyMS is set when a latency fault was injected; the caller must
	// sleep this many milliseconds before continuing.
	LatencyMS int64

	// PrePaymentStatus is set when the request must fail before payment is
	// even checked. Decide always uses 503.
	PrePaymentStatus int

	// PostPaymentStatus is set when the request must be rugged: the debit
	// proceeds normally but the upstream response is overridden with this
	// status (500).
	PostPaymentStatus int
}

// Config is the process-wide, read-mostly chaos configuration. It is always
// read as a full copy (see Engine.Snapshot) so an admin update mid-request
// cannot partially apply.
type Config struct {
	Enabled      bool
	Seed         uint64
	FailureRate  float64
	MinLatencyMS int64
	MaxLatencyMS int64
	RugRate      float64
}

// DefaultConfig is the zero-fault configuration installed at startup.
func DefaultConfig() Config {
	return Config{Enabled: false}
}

// Engine is the process-wide chaos oracle. Config updates are snapshot-on-read:
// the current Config is stored behind an atomic pointer so readers never
// observe a half-applied admin update, and updates never hold a lock across
// request processing.
type Engine struct {
	cfg atomic.Pointer[Config]

	cursorsMu sync.Mutex
	cursors   map[string]uint64
}

// NewEngine builds an Engine starting from cfg.
func NewEngine(cfg Config) *Engine {
	e := &Engine{cursors: make(map[string]uint64)}
	e.cfg.Store(&cfg)

	return e
}

// Configure atomically replaces the process-wide configuration. It does not
// reset any agent's cursor: cursor sequences remain valid across config
// changes, matching the spec's "implementers choose" cursor-storage note.
func (e *Engine) Configure(cfg Config) {
	e.cfg.Store(&cfg)
}

// Snapshot returns a copy of the currently active configuration.
func (e *Engine) Snapshot() Config {
	return *e.cfg.Load()
}

// nextCursor atomically advances and returns the new cursor value for
// agentID. Distinct concurrent callers for the same agent observe distinct,
// monotonically increasing cursor values.
func (e *Engine) nextCursor(agentID string) uint64 {
	e.cursorsMu.Lock()
	defer e.cursorsMu.Unlock()

	e.cursors[agentID]++

	return e.cursors[agentID]
}

// CursorOf returns the current cursor value for agentID without advancing
// it (0 if the agent has never been rolled for).
func (e *Engine) CursorOf(agentID string) uint64 {
	e.cursorsMu.Lock()
	defer e.cursorsMu.Unlock()

	return e.cursors[agentID]
}

// Decide consults the chaos oracle for agentID. When the engine is disabled
// it always returns Decision{None: true} and never advances the cursor.
// Otherwise it draws from a stream keyed by (seed, agentID, cursor) and
// advances the agent's cursor by one.
//
// Evaluation order (part of the contract — reordering changes the sequence):
//  1. draw r1; r1 < failure_rate ⇒ FailPrePayment(503)
//  2. else draw r2; r2 < rug_rate ⇒ FailPostPayment(500)
//  3. else draw r3; max_latency_ms > 0 ⇒ InjectLatency(min + ⌊r3·(max-min+1)⌋)
//  4. else None
func (e *Engine) Decide(agentID string) Decision {
	cfg := e.Snapshot()
	if !cfg.Enabled {
		return Decision{None: true}
	}

	cursor := e.nextCursor(agentID)
	stream := newStream(cfg.Seed, agentID, cursor)

	r1 := stream.Float64()
	if r1 < cfg.FailureRate {
		return Decision{PrePaymentStatus: 503}
	}

	r2 := stream.Float64()
	if r2 < cfg.RugRate {
		return Decision{PostPaymentStatus: 500}
	}

	r3 := stream.Float64()
	if cfg.MaxLatencyMS > 0 {
		span := cfg.MaxLatencyMS - cfg.MinLatencyMS + 1
		ms := cfg.MinLatencyMS + int64(r3*float64(span))

		return Decision{LatencyMS: ms}
	}

	return Decision{None: true}
}

// stream is a deterministic draw sequence for one (seed, agent, cursor)
// triple, backed by math/rand/v2's PCG source.
type stream struct {
	rnd *rand.Rand
}

// newStream derives the two uint64 seed halves PCG requires from
// (seed, agentID, cursor) via a splitmix64-style combine, so that distinct
// triples produce statistically independent streams while remaining a pure
// function of the inputs (no global state, no wall-clock).
func newStream(seed uint64, agentID string, cursor uint64) *stream {
	h := fnv64a(agentID)

	s1 := splitmix64(seed ^ h)
	s2 := splitmix64(s1 ^ cursor)

	return &stream{rnd: rand.New(rand.NewPCG(s1, s2))}
}

func (s *stream) Float64() float64 {
	return s.rnd.Float64()
}

func fnv64a(s string) uint64 {
	const (
		offset = 14695981039346656037
		prime  = 1099511628211
	)

	h := uint64(offset)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}

	return h
}

func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB

	return x ^ (x >> 31)
}
