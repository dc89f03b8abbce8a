package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type step struct {
	at      int64
	rate    int64
	counted int64
	time    int64
}

func runSteps(t *testing.T, steps []step) {
	t.Helper()
	c := NewByteCounter()
	for i, s := range steps {
		spent := c.updateTimeSpent(s.at)
		c.updateCounters(1024, spent)
		assert.Equal(t, s.rate, c.BytesPerSec(), "rate at step %d", i)
		assert.Equal(t, s.counted, c.BytesCounted(), "bytes at step %d", i)
		assert.Equal(t, s.time, c.TimeCounted(), "time at step %d", i)
	}
}

func TestByteCounterBoundaries(t *testing.T) {
	cases := []struct {
		name  string
		steps []step
	}{
		{"below one second", []step{{999, 0, 1024, 999}}},
		{"exactly one second", []step{{1000, 1024, 0, 0}}},
		{"three updates", []step{
			{300, 0, 1024, 300},
			{750, 0, 2048, 750},
			{1000, 3072, 0, 0},
		}},
		{"counters reset between seconds", []step{
			{500, 0, 1024, 500},
			{1000, 2048, 0, 0},
			{1500, 2048, 1024, 500},
			{2000, 2048, 0, 0},
		}},
		{"time left carried", []step{
			{300, 0, 1024, 300},
			{900, 0, 2048, 900},
			{1300, 2304, 768, 300},
			{2000, 1792, 0, 0},
		}},
		{"time left with larger update", []step{
			{500, 0, 1024, 500},
			{1500, 1536, 512, 500},
			{2000, 1536, 0, 0},
		}},
		{"long pause", []step{
			{200, 0, 1024, 200},
			{2500, 445, 0, 0},
		}},
		{"just over one second", []step{{1100, 930, 0, 0}}},
		{"two seconds", []step{{2000, 512, 0, 0}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runSteps(t, tc.steps)
		})
	}
}

func TestByteCounterSlowTransfers(t *testing.T) {
	for _, interval := range []int64{1, 4} {
		c := NewByteCounter()
		n := oneSecond / interval
		for i := int64(1); i <= n; i++ {
			spent := c.updateTimeSpent(i * interval)
			require.Equal(t, interval, spent)
			c.updateCounters(1024, spent)
			if i < n {
				require.Equal(t, 1024*i, c.BytesCounted())
				require.Equal(t, i*interval, c.TimeCounted())
			}
		}
		assert.Equal(t, 1024*n, c.BytesPerSec(), "interval %dms", interval)
		assert.Zero(t, c.BytesCounted())
		assert.Zero(t, c.TimeCounted())
	}
}

func TestByteCounterFastTransfers(t *testing.T) {
	cases := map[int]int64{
		10: 10240000,
		50: 51200000,
	}
	for perMilli, want := range cases {
		c := NewByteCounter()
		var now int64
		for i := 1; now < oneSecond; i++ {
			if i%perMilli == 0 {
				now++
			}
			c.updateCounters(1024, c.updateTimeSpent(now))
			if now < oneSecond {
				require.Equal(t, int64(1024*i), c.BytesCounted())
				require.Equal(t, now, c.TimeCounted())
			}
		}
		assert.Equal(t, want, c.BytesPerSec())
		assert.Zero(t, c.BytesCounted())
		assert.Zero(t, c.TimeCounted())
	}
}

func TestByteCounterPrepareAndAdd(t *testing.T) {
	var clock int64 = 5000
	c := NewByteCounter()
	c.now = func() int64 { return clock }

	assert.Zero(t, c.previousTime)

	c.Prepare()
	for c.BytesPerSec() == 0 {
		clock += 100
		c.AddBytes(512)
	}
	assert.Equal(t, int64(5120), c.BytesPerSec())
}
