package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 30, 0, 123, time.UTC)
	encoded := EncodeCursor(Cursor{CreatedAt: at, ID: 77})

	decoded, err := ParseCursor(encoded)
	require.NoError(t, err)
	require.NotNil(t, decoded)
	assert.True(t, decoded.CreatedAt.Equal(at))
	assert.Equal(t, int64(77), decoded.ID)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	cur, err := ParseCursor("")
	require.NoError(t, err)
	assert.Nil(t, cur)

	_, err = ParseCursor("not-base64!!")
	assert.Error(t, err)

	_, err = ParseCursor(EncodeCursor(Cursor{CreatedAt: time.Now(), ID: 0}))
	assert.Error(t, err)
}

func TestTrimBuildsNextCursor(t *testing.T) {
	rows := []int{1, 2, 3}
	page := Trim(rows, 2, func(v int) Cursor {
		return Cursor{CreatedAt: time.Unix(int64(v), 0), ID: int64(v)}
	})
	assert.Equal(t, []int{1, 2}, page.Items)
	require.NotEmpty(t, page.NextCursor)

	cur, err := ParseCursor(page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cur.ID)

	last := Trim([]int{}, 2, func(v int) Cursor { return Cursor{} })
	assert.Empty(t, last.NextCursor)
	assert.NotNil(t, last.Items)
}

func TestLimitsAndOffset(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, MaxLimit, NormalizeLimit(1000))
	assert.Equal(t, 11, LimitWithBuffer(10))

	o := Offset{Skip: -5, Limit: 0}.Normalize()
	assert.Equal(t, 0, o.Skip)
	assert.Equal(t, DefaultLimit, o.Limit)
}

func TestCursorIsQuerySafe(t *testing.T) {
	// Timestamps with many fraction digits produce '+' and '/' in std base64.
	for i := int64(1); i < 200; i++ {
		encoded := EncodeCursor(Cursor{CreatedAt: time.Unix(1700000000+i, i*7919), ID: i * 104729})
		assert.NotContains(t, encoded, "+")
		assert.NotContains(t, encoded, "/")
		assert.NotContains(t, encoded, "=")
	}
}
