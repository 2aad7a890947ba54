package order

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrderNumberDerivedFromRowID(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "ORD-20260901-00042", orderNumber(42, now))
	assert.Equal(t, "ORD-20260901-123456", orderNumber(123456, now))
}

func TestOrderNumbersDistinctForConcurrentPlacements(t *testing.T) {
	// two placements committing in the same instant still get distinct
	// numbers because their row IDs differ
	now := time.Now().UTC()

	assert.NotEqual(t, orderNumber(7, now), orderNumber(8, now))
}

func TestProvisionalOrderNumber(t *testing.T) {
	a := provisionalOrderNumber()
	b := provisionalOrderNumber()

	assert.True(t, strings.HasPrefix(a, "TMP-"))
	assert.NotEqual(t, a, b)
	assert.LessOrEqual(t, len(a), 50)
}
