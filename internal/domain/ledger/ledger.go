// Package ledger implements the per-agent balance map: atomic budget checks,
// debits, and fundings, linearizable per agent under concurrency. The store
// of record is in-memory for the process lifetime (no durability is
// required); an optional mirror can be attached to publish read-only
// snapshots elsewhere.
package ledger

import (
	"errors"
	"hash/fnv"
	"sync"
)

const shardCount = 32

// ErrNotFound is returned by Status when agentID has never been referenced.
var ErrNotFound = errors.New("ledger: account not found")

// ErrInsufficientFunds is returned by TryDebit when the account balance is
// below the requested amount.
type ErrInsufficientFunds struct {
	BalanceMicro  int64
	RequiredMicro int64
}

func (e *ErrInsufficientFunds) Error() string {
	return "ledger: insufficient funds"
}

// Account is a snapshot of one agent's accounting state. All money fields
// are integer micro-USDC; conversion to decimal happens only at the HTTP
// boundary. ChaosCursor is not ledger state and the ledger always leaves it
// zero; the per-agent cursor lives in the chaos engine (chaos.Engine.CursorOf).
type Account struct {
	AgentID      string
	BalanceMicro int64
	SpendMicro   int64
	PaymentCount int64
	ChaosCursor  uint64
}

// Receipt is returned by a successful TryDebit.
type Receipt struct {
	Account    Account
	DebitMicro int64
}

type account struct {
	balanceMicro int64
	spendMicro   int64
	paymentCount int64
}

type shard struct {
	mu       sync.Mutex
	accounts map[string]*account
}

// Mirror receives a read-only Account snapshot after every mutating
// operation. Implementations must not block.
type Mirror interface {
	Publish(agentID string, balanceMicro, spendMicro, paymentCount int64)
}

// Ledger is a sharded-mutex concurrent map from agent_id to account record.
// Sharding (fnv hash of agent_id mod shard count) keeps unrelated agents from
// contending on the same lock while guaranteeing linearizability per agent,
// per the contract's only hard requirement.
type Ledger struct {
	shards [shardCount]*shard
	mirror Mirror
}

// New builds an empty Ledger. mirror may be nil.
func New(mirror Mirror) *Ledger {
	l := &Ledger{mirror: mirror}
	for i := range l.shards {
		l.shards[i] = &shard{accounts: make(map[string]*account)}
	}

	return l
}

func (l *Ledger) shardFor(agentID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(agentID))

	return l.shards[h.Sum32()%shardCount]
}

func toAccount(agentID string, a *account) Account {
	return Account{
		AgentID:      agentID,
		BalanceMicro: a.balanceMicro,
		SpendMicro:   a.spendMicro,
		PaymentCount: a.paymentCount,
	}
}

func (l *Ledger) publish(agentID string, a *account) {
	if l.mirror == nil {
		return
	}

	l.mirror.Publish(agentID, a.balanceMicro, a.spendMicro, a.paymentCount)
}

// Ensure returns the account for agentID, creating it with a zero balance on
// first reference. Idempotent.
func (l *Ledger) Ensure(agentID string) Account {
	s := l.shardFor(agentID)

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[agentID]
	if !ok {
		a = &account{}
		s.accounts[agentID] = a
	}

	return toAccount(agentID, a)
}

// Fund adds amountMicro (> 0) to agentID's balance. It never mutates spend
// or payment_count.
func (l *Ledger) Fund(agentID string, amountMicro int64) Account {
	s := l.shardFor(agentID)

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[agentID]
	if !ok {
		a = &account{}
		s.accounts[agentID] = a
	}

	a.balanceMicro += amountMicro

	snap := toAccount(agentID, a)
	l.publish(agentID, a)

	return snap
}

// SetBudget absolutely sets agentID's balance, resetting spend and
// payment_count to zero, matching the observed admin API semantics.
func (l *Ledger) SetBudget(agentID string, amountMicro int64) Account {
	s := l.shardFor(agentID)

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[agentID]
	if !ok {
		a = &account{}
		s.accounts[agentID] = a
	}

	a.balanceMicro = amountMicro
	a.spendMicro = 0
	a.paymentCount = 0

	snap := toAccount(agentID, a)
	l.publish(agentID, a)

	return snap
}

// TryDebit atomically checks and deducts amountMicro from agentID's balance.
// On success it increments spend and payment_count and returns a Receipt.
// On failure it returns *ErrInsufficientFunds, leaving the account untouched.
func (l *Ledger) TryDebit(agentID string, amountMicro int64) (Receipt, error) {
	s := l.shardFor(agentID)

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[agentID]
	if !ok {
		a = &account{}
		s.accounts[agentID] = a
	}

	if a.balanceMicro < amountMicro {
		return Receipt{}, &ErrInsufficientFunds{BalanceMicro: a.balanceMicro, RequiredMicro: amountMicro}
	}

	a.balanceMicro -= amountMicro
	a.spendMicro += amountMicro
	a.paymentCount++

	snap := toAccount(agentID, a)
	l.publish(agentID, a)

	return Receipt{Account: snap, DebitMicro: amountMicro}, nil
}

// Status returns a consistent snapshot of agentID, or ErrNotFound if the
// agent has never been referenced. Unlike Ensure, Status never creates an
// account — this is what lets /_xdr/status/{ghost} stay a 404 forever.
func (l *Ledger) Status(agentID string) (Account, error) {
	s := l.shardFor(agentID)

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[agentID]
	if !ok {
		return Account{}, ErrNotFound
	}

	return toAccount(agentID, a), nil
}
