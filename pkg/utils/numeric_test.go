package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func f(v float64) *float64 { return &v }
func i(v int) *int         { return &v }

func TestValidMeasurement(t *testing.T) {
	assert.True(t, ValidMeasurement(nil)) // 缺省即有效
	assert.True(t, ValidMeasurement(f(18.5)))
	assert.True(t, ValidMeasurement(f(-2)))
	assert.False(t, ValidMeasurement(f(math.NaN())))
	assert.False(t, ValidMeasurement(f(math.Inf(1))))
	assert.False(t, ValidMeasurement(f(math.Inf(-1))))
}

func TestValidScore(t *testing.T) {
	assert.True(t, ValidScore(nil))
	assert.True(t, ValidScore(i(1)))
	assert.True(t, ValidScore(i(5)))
	assert.False(t, ValidScore(i(0)))
	assert.False(t, ValidScore(i(6)))
	assert.False(t, ValidScore(i(-3)))
}

func TestValidQuantity(t *testing.T) {
	assert.True(t, ValidQuantity(nil))
	assert.True(t, ValidQuantity(i(0)))
	assert.True(t, ValidQuantity(i(5000)))
	assert.False(t, ValidQuantity(i(-1)))
}
