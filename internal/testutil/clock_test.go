package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeterministicClock_Ticks(t *testing.T) {
	c := NewDeterministicClock()

	assert.Equal(t, Epoch.Add(time.Millisecond), c.Now())
	assert.Equal(t, Epoch.Add(2*time.Millisecond), c.Now())
	assert.Equal(t, int64(2), c.Ticks())
}

func TestDeterministicClock_Reset(t *testing.T) {
	c := NewDeterministicClock()
	first := c.Now()
	c.Now()

	c.Reset()
	assert.Equal(t, int64(0), c.Ticks())
	assert.Equal(t, first, c.Now())
}

func TestDeterministicClock_Concurrent(t *testing.T) {
	c := NewDeterministicClock()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Now()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1000), c.Ticks())
	assert.Equal(t, Epoch.Add(1001*time.Millisecond), c.Now())
}
