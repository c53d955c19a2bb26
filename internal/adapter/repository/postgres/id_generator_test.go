package postgres

import (
	"sync"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestULIDGeneratorIsMonotonic(t *testing.T) {
	gen := NewULIDGenerator()

	prev := gen.Generate()
	for range 1000 {
		next := gen.Generate()
		require.Less(t, prev, next)
		prev = next
	}

	_, err := ulid.ParseStrict(prev)
	assert.NoError(t, err)
}

func TestULIDGeneratorConcurrentUnique(t *testing.T) {
	gen := NewULIDGenerator()

	const workers, perWorker = 8, 200
	ids := make(chan string, workers*perWorker)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				ids <- gen.Generate()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]struct{}, workers*perWorker)
	for id := range ids {
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, workers*perWorker)
}
