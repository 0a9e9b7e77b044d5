package goid

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrent_distinctPerGoroutine(t *testing.T) {
	self := Current()
	require.NotZero(t, self)
	assert.Equal(t, self, Current())

	var other uint64
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		other = Current()
	}()
	wg.Wait()
	assert.NotZero(t, other)
	assert.NotEqual(t, self, other)
}

func TestLive(t *testing.T) {
	release := make(chan struct{})
	started := make(chan uint64)
	go func() {
		started <- Current()
		<-release
	}()
	id := <-started

	live := Live()
	assert.Contains(t, live, Current())
	assert.Contains(t, live, id)

	close(release)
	assert.Eventually(t, func() bool {
		_, ok := Live()[id]
		return !ok
	}, testTimeout, testTick)
}

func TestParse(t *testing.T) {
	for _, tc := range [...]struct {
		in string
		id uint64
		ok bool
	}{
		{"goroutine 17 [running]:\n", 17, true},
		{"goroutine 1 [chan receive]:", 1, true},
		{"goroutine x", 0, false},
		{"created by main", 0, false},
		{"", 0, false},
	} {
		id, ok := parse([]byte(tc.in))
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.id, id, tc.in)
	}
}
