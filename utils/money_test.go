package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "0.00", FormatCents(0))
	assert.Equal(t, "0.05", FormatCents(5))
	assert.Equal(t, "19.99", FormatCents(1999))
	assert.Equal(t, "1500.00", FormatCents(150000))
	assert.Equal(t, "-19.99", FormatCents(-1999))
}

func TestCentsFromParts(t *testing.T) {
	assert.Equal(t, int64(1999), CentsFromParts(19, 99))
	assert.Equal(t, int64(-1999), CentsFromParts(-19, 99))
	assert.Equal(t, int64(100), CentsFromParts(1, 0))
}

// Minor-unit arithmetic stays exact where floating point would drift.
func TestCentSummationIsExact(t *testing.T) {
	var total int64
	for i := 0; i < 10000; i++ {
		total += 1999
	}
	assert.Equal(t, int64(19990000), total)
	assert.Equal(t, "199900.00", FormatCents(total))
}
