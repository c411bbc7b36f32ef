package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimeframeMs(t *testing.T) {
	assert.Equal(t, int64(60000), TimeframeMs(1))
	assert.Equal(t, int64(300000), TimeframeMs(5))
	assert.Equal(t, int64(3600000), TimeframeMs(60))
}

func TestCandleIndexBoundaries(t *testing.T) {
	// Index i covers [i*period, (i+1)*period).
	assert.Equal(t, int64(0), CandleIndex(0, 1))
	assert.Equal(t, int64(0), CandleIndex(59999, 1))
	assert.Equal(t, int64(1), CandleIndex(60000, 1))
	assert.Equal(t, int64(1), CandleIndex(119999, 1))

	// 2024-01-01T00:00:00Z
	epoch := int64(1704067200000)
	assert.Equal(t, epoch/60000, CandleIndex(epoch, 1))
	assert.Equal(t, epoch/300000, CandleIndex(epoch, 5))
}

func TestCandleStartTimeInverse(t *testing.T) {
	for _, tf := range []int{1, 5, 15, 60} {
		for _, epoch := range []int64{0, 59999, 60000000000, 1704067200000, 1893456000000} {
			idx := CandleIndex(epoch, tf)
			start := CandleStartTime(idx, tf)

			assert.LessOrEqual(t, start, epoch)
			assert.Greater(t, start+TimeframeMs(tf), epoch)
			assert.Equal(t, idx, CandleIndex(start, tf))
		}
	}
}
