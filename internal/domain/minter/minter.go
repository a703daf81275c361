// Package minter produces challenge invoices and synthetic transaction
// hashes. Transaction hashes are a pure function of their inputs; invoices
// also depend on an internal monotonic counter and a random UUID nonce.
// Nothing here reads the wall clock or performs real cryptographic signing.
package minter

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Minter issues challenge invoices. Transaction hashes come from the
// package-level MintTxHash, which takes the chain id as an argument.
type Minter struct {
	counter atomic.Uint64
}

// New builds a Minter with its invoice counter starting at zero.
func New() *Minter {
	return &Minter{}
}

// MintInvoice returns an opaque challenge token for agentID requesting
// amountMicro. The token's internal structure (a random nonce plus a hash
// chaining agent_id, the invoice's monotonic sequence number, and amount) is
// opaque to the client but parseable by the pipeline's acceptance check,
// which — per documented existing behavior — accepts any non-empty token
// after the "L402 " prefix without verifying this structure.
func (m *Minter) MintInvoice(agentID string, amountMicro int64) string {
	seq := m.counter.Add(1)
	nonce := uuid.New().String()

	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%d", agentID, seq, amountMicro)

	chain := hex.EncodeToString(h.Sum(nil))[:32]

	return nonce + "." + chain
}

// MintTxHash returns a 0x-prefixed, 64-hex-digit string derived from
// hashing chainID, agentID, and nonce. Deterministic: identical inputs
// always produce the identical hash.
func MintTxHash(chainID uint32, agentID string, nonce uint64) string {
	h := sha256.New()
	fmt.Fprintf(h, "xdr-tx|%d|%s|%d", chainID, agentID, nonce)

	return "0x" + hex.EncodeToString(h.Sum(nil))
}
