package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct{ id int64 }

func TestBuildCursorPageInfo(t *testing.T) {
	rows := []*row{{1}, {2}, {3}}

	page, info, err := BuildCursorPageInfo(rows, 2, func(r *row) Cursor { return Cursor{ID: r.id} })
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.True(t, info.HasMore)

	cursor, err := DecodeCursor(info.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cursor.ID)

	page, info, err = BuildCursorPageInfo(rows, 5, func(r *row) Cursor { return Cursor{ID: r.id} })
	require.NoError(t, err)
	assert.Len(t, page, 3)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}

func TestDecodeCursor(t *testing.T) {
	cursor, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, cursor)

	_, err = DecodeCursor("%%%")
	assert.ErrorIs(t, err, ErrInvalidPageToken)
}

func TestLimit(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Limit())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 5000}.Limit())
	assert.Equal(t, 7, Pagination{PageSize: 7}.Limit())
}
