package ids

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUniqueUnderConcurrency(t *testing.T) {
	const workers = 8
	const perWorker = 500

	var mu sync.Mutex
	seen := make(map[int64]struct{}, workers*perWorker)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]int64, 0, perWorker)
			for j := 0; j < perWorker; j++ {
				local = append(local, Generate())
			}
			mu.Lock()
			for _, id := range local {
				seen[id] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, seen, workers*perWorker, "ids must be unique")
}

func TestGenerateStringNotEmpty(t *testing.T) {
	a := GenerateString()
	b := GenerateString()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestSetNodeIDClampsRange(t *testing.T) {
	SetNodeID(9999) // out of range, falls back to 1
	assert.Positive(t, Generate())
	SetNodeID(100)
	assert.Positive(t, Generate())
}
