package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageNormalize(t *testing.T) {
	assert.Equal(t, Page{Page: 1, PageSize: 20}, Page{}.Normalize(20, 100))
	assert.Equal(t, Page{Page: 3, PageSize: 100}, Page{Page: 3, PageSize: 500}.Normalize(20, 100))
	assert.Equal(t, Page{Page: 1, PageSize: 20}, Page{Page: -4, PageSize: -1}.Normalize(20, 100))
}

func TestPageOffsetAndMeta(t *testing.T) {
	p := Page{Page: 3, PageSize: 10}
	assert.Equal(t, 20, p.Offset())

	meta := NewMeta(p, 21)
	assert.Equal(t, 3, meta.TotalPages)
	assert.Equal(t, int64(21), meta.Total)

	assert.Equal(t, 0, NewMeta(Page{Page: 1, PageSize: 10}, 0).TotalPages)
}

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "42", CreatedAt: "2024-01-01T00:00:00Z"})
	require.NoError(t, err)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "42", cursor.ID)

	_, err = DecodeCursor("%%%")
	assert.Error(t, err)
}

func TestBuildCursorPageInfo(t *testing.T) {
	type row struct{ id string }
	rows := []*row{{"1"}, {"2"}, {"3"}}

	info := BuildCursorPageInfo(rows, 2, func(r *row) string { return r.id })
	assert.True(t, info.HasMore)
	assert.Equal(t, "2", info.NextPageToken)

	info = BuildCursorPageInfo(rows, 5, func(r *row) string { return r.id })
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}
