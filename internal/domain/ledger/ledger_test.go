package ledger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsure_CreatesZeroBalanceAccountIdempotently(t *testing.T) {
	l := New(nil)

	a1 := l.Ensure("a1")
	assert.Equal(t, int64(0), a1.BalanceMicro)

	l.Fund("a1", 1_000_000)

	a2 := l.Ensure("a1")
	assert.Equal(t, int64(1_000_000), a2.BalanceMicro)
}

func TestSetBudget_ResetsSpendAndPaymentCount(t *testing.T) {
	l := New(nil)

	l.Fund("a1", 2_000_000)
	_, err := l.TryDebit("a1", 1_000_000)
	require.NoError(t, err)

	snap := l.SetBudget("a1", 500_000)
	assert.Equal(t, int64(500_000), snap.BalanceMicro)
	assert.Equal(t, int64(0), snap.SpendMicro)
	assert.Equal(t, int64(0), snap.PaymentCount)
}

func TestTryDebit_SucceedsThenFailsAtBoundary(t *testing.T) {
	l := New(nil)
	l.SetBudget("a1", 10_000) // == price

	receipt, err := l.TryDebit("a1", 10_000)
	require.NoError(t, err)
	assert.Equal(t, int64(0), receipt.Account.BalanceMicro)
	assert.Equal(t, int64(1), receipt.Account.PaymentCount)

	_, err = l.TryDebit("a1", 10_000)
	require.Error(t, err)

	var insufficient *ErrInsufficientFunds
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(0), insufficient.BalanceMicro)
	assert.Equal(t, int64(10_000), insufficient.RequiredMicro)
}

func TestTryDebit_NeverGoesNegative(t *testing.T) {
	l := New(nil)
	l.Fund("a1", 5)

	_, err := l.TryDebit("a1", 10)
	require.Error(t, err)

	snap, err := l.Status("a1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), snap.BalanceMicro)
	assert.Equal(t, int64(0), snap.PaymentCount)
}

func TestStatus_NotFoundNeverCreatesAnAccount(t *testing.T) {
	l := New(nil)

	_, err := l.Status("ghost")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = l.Status("ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestInvariant_BalancePlusSpendEqualsTotalFunded(t *testing.T) {
	l := New(nil)

	l.Fund("a1", 3_000_000)
	l.Fund("a1", 2_000_000)

	for i := 0; i < 4; i++ {
		_, err := l.TryDebit("a1", 1_000_000)
		require.NoError(t, err)
	}

	snap, err := l.Status("a1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), snap.PaymentCount)
	assert.Equal(t, int64(5_000_000), snap.BalanceMicro+snap.SpendMicro)
}

func TestTryDebit_LinearizableUnderConcurrency(t *testing.T) {
	l := New(nil)
	l.Fund("a1", 1_000_000)

	const workers = 100

	var wg sync.WaitGroup

	wg.Add(workers)

	successes := make([]bool, workers)

	for i := 0; i < workers; i++ {
		go func(idx int) {
			defer wg.Done()

			_, err := l.TryDebit("a1", 10_000)
			successes[idx] = err == nil
		}(i)
	}

	wg.Wait()

	var ok int

	for _, s := range successes {
		if s {
			ok++
		}
	}

	assert.Equal(t, 100, ok)

	snap, err := l.Status("a1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), snap.BalanceMicro)
	assert.Equal(t, int64(100), snap.PaymentCount)
}
