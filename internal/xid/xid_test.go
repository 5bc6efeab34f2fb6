package xid

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsUniqueWithinSameTick(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seen := make(map[string]struct{}, 20000)
	for i := 0; i < 20000; i++ {
		id := newAt(at)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestNewStartsWithBase36Timestamp(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	id := newAt(at)

	parts := strings.SplitN(id, "-", 2)
	require.Len(t, parts, 2)
	ms, err := strconv.ParseInt(parts[0], 36, 64)
	require.NoError(t, err)
	assert.Equal(t, at.UnixMilli(), ms)
}
