package snowflake

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewNodeRange(t *testing.T) {
	_, err := NewNode(-1)
	require.ErrorIs(t, err, ErrNodeOutOfRange)

	_, err = NewNode(1024)
	require.ErrorIs(t, err, ErrNodeOutOfRange)

	_, err = NewNode(1023)
	require.NoError(t, err)
}

func TestGenerateUniqueUnderContention(t *testing.T) {
	node, err := NewNode(1)
	require.NoError(t, err)

	const workers = 8
	const perWorker = 2000

	var mu sync.Mutex
	seen := make(map[int64]bool, workers*perWorker)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := make([]int64, 0, perWorker)
			for range perWorker {
				ids = append(ids, node.Generate())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range ids {
				require.False(t, seen[id], "duplicate id %d", id)
				seen[id] = true
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, workers*perWorker)
}

func TestGenerateMonotonicPerNode(t *testing.T) {
	node, err := NewNode(2)
	require.NoError(t, err)

	prev := node.Generate()
	for range 5000 {
		next := node.Generate()
		require.Greater(t, next, prev)
		prev = next
	}
}
