package models

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTransactionID(t *testing.T) {
	t.Run("prefix follows the type", func(t *testing.T) {
		for typ, prefix := range map[string]string{
			TransactionTypeDeposit:  "DEP",
			TransactionTypeWithdraw: "WDR",
			TransactionTypeTransfer: "TRF",
		} {
			tx := &Transaction{Type: typ}
			require.NoError(t, tx.GenerateTransactionID())
			assert.Regexp(t, "^"+prefix+`-[0-9A-F]{12}$`, tx.TransactionID)
		}
	})

	t.Run("unknown type is rejected", func(t *testing.T) {
		tx := &Transaction{Type: "refund"}
		assert.Error(t, tx.GenerateTransactionID())
	})

	t.Run("assigning twice fails", func(t *testing.T) {
		tx := &Transaction{Type: TransactionTypeDeposit}
		require.NoError(t, tx.GenerateTransactionID())
		first := tx.TransactionID
		assert.Error(t, tx.GenerateTransactionID())
		assert.Equal(t, first, tx.TransactionID)
	})

	t.Run("ids are unique across many generations", func(t *testing.T) {
		const n = 10000
		seen := make(map[string]bool, n)
		for i := 0; i < n; i++ {
			tx := &Transaction{Type: TransactionTypeDeposit}
			require.NoError(t, tx.GenerateTransactionID())
			require.False(t, seen[tx.TransactionID], "duplicate id %s", tx.TransactionID)
			seen[tx.TransactionID] = true
		}
	})

	t.Run("ids stay unique under concurrency", func(t *testing.T) {
		const workers = 10
		const perWorker = 1000

		var mu sync.Mutex
		seen := make(map[string]bool, workers*perWorker)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < perWorker; i++ {
					tx := &Transaction{Type: TransactionTypeTransfer}
					if err := tx.GenerateTransactionID(); err != nil {
						t.Error(err)
						return
					}
					mu.Lock()
					if seen[tx.TransactionID] {
						t.Errorf("duplicate id %s", tx.TransactionID)
					}
					seen[tx.TransactionID] = true
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
	})
}

func TestCanTransition(t *testing.T) {
	allowed := [][2]string{
		{StatusPending, StatusProcessing},
		{StatusPending, StatusFailed},
		{StatusProcessing, StatusCompleted},
		{StatusProcessing, StatusFailed},
	}
	for _, pair := range allowed {
		assert.True(t, CanTransition(pair[0], pair[1]), "%s -> %s should be allowed", pair[0], pair[1])
	}

	denied := [][2]string{
		{StatusPending, StatusCompleted},
		{StatusProcessing, StatusPending},
		{StatusCompleted, StatusProcessing},
		{StatusCompleted, StatusFailed},
		{StatusFailed, StatusPending},
		{StatusFailed, StatusCompleted},
		{StatusCompleted, StatusCompleted},
	}
	for _, pair := range denied {
		assert.False(t, CanTransition(pair[0], pair[1]), "%s -> %s should be denied", pair[0], pair[1])
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, (&Transaction{Status: StatusPending}).IsTerminal())
	assert.False(t, (&Transaction{Status: StatusProcessing}).IsTerminal())
	assert.True(t, (&Transaction{Status: StatusCompleted}).IsTerminal())
	assert.True(t, (&Transaction{Status: StatusFailed}).IsTerminal())
}
