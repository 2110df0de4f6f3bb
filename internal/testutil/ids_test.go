package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedRunIDs_ReturnsSameID(t *testing.T) {
	gen := NewFixedRunIDs("run-123")

	assert.Equal(t, "run-123", gen.Generate())
	assert.Equal(t, "run-123", gen.Generate())
}

func TestFixedRunIDs_EmptyDefault(t *testing.T) {
	assert.Equal(t, "test-run-default", NewFixedRunIDs("").Generate())
}

func TestFixedRunIDs_ThreadSafe(t *testing.T) {
	gen := NewFixedRunIDs("shared")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, "shared", gen.Generate())
			}
		}()
	}
	wg.Wait()
}
