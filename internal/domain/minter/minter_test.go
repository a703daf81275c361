package minter

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var txHashPattern = regexp.MustCompile(`^0x[0-9a-f]{64}$`)

func TestMintTxHash_MatchesChainHashShape(t *testing.T) {
	got := MintTxHash(338, "a1", 1)
	assert.Regexp(t, txHashPattern, got)
}

func TestMintTxHash_PureFunctionOfInputs(t *testing.T) {
	a := MintTxHash(338, "a1", 7)
	b := MintTxHash(338, "a1", 7)
	assert.Equal(t, a, b)

	c := MintTxHash(338, "a1", 8)
	assert.NotEqual(t, a, c)
}

func TestMintInvoice_ProducesDistinctTokensPerCall(t *testing.T) {
	m := New()

	i1 := m.MintInvoice("a1", 10_000)
	i2 := m.MintInvoice("a1", 10_000)

	assert.NotEmpty(t, i1)
	assert.NotEqual(t, i1, i2)
}
