package scheduler

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPurger struct {
	removed int
	calls   atomic.Int32
}

func (p *countingPurger) Purge() int {
	p.calls.Add(1)
	return p.removed
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("@every 5m"))
	assert.NoError(t, ValidateSchedule("*/10 * * * *"))
	assert.NoError(t, ValidateSchedule("@hourly"))
	assert.Error(t, ValidateSchedule("every five minutes"))
	assert.Error(t, ValidateSchedule("* * * * * *"))
}

func TestCacheJanitorRunNow(t *testing.T) {
	search := &countingPurger{removed: 3}
	books := &countingPurger{removed: 1}
	j := NewCacheJanitor("", map[string]Purger{"search": search, "books": books})

	assert.Equal(t, 4, j.RunNow())
	assert.Equal(t, int32(1), search.calls.Load())
	assert.Equal(t, int32(1), books.calls.Load())
}

func TestCacheJanitorLifecycle(t *testing.T) {
	j := NewCacheJanitor("@every 1h", map[string]Purger{"search": &countingPurger{}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, j.Start(ctx))
	assert.True(t, j.IsRunning())
	require.NoError(t, j.Start(ctx), "second start is a no-op")
	assert.NotNil(t, j.GetNextRunTime())

	j.Stop()
	assert.False(t, j.IsRunning())
	assert.Nil(t, j.GetNextRunTime())
}

func TestCacheJanitorRejectsBadSchedule(t *testing.T) {
	j := NewCacheJanitor("not a schedule", nil)
	err := j.Start(context.Background())
	assert.Error(t, err)
	assert.False(t, j.IsRunning())
}
