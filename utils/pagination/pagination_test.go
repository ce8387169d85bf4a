package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePaginationParams(t *testing.T) {
	tests := []struct {
		name    string
		params  PaginationParams
		wantErr bool
	}{
		{"defaults", PaginationParams{Page: 1, PageSize: defaultPageSize}, false},
		{"max page size", PaginationParams{Page: 1, PageSize: maxPageSize}, false},
		{"zero page", PaginationParams{Page: 0, PageSize: 10}, true},
		{"zero page size", PaginationParams{Page: 1, PageSize: 0}, true},
		{"oversized page", PaginationParams{Page: 1, PageSize: maxPageSize + 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePaginationParams(tt.params)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewPaginatedResponse_SinglePage(t *testing.T) {
	params := PaginationParams{Page: 1, PageSize: 10}
	resp := NewPaginatedResponse(nil, []string{"a", "b"}, 2, params)

	require.Equal(t, 1, resp.Pagination.TotalPages)
	assert.Equal(t, int64(2), resp.Pagination.TotalItems)
	assert.Nil(t, resp.Pagination.NextPage)
	assert.Nil(t, resp.Pagination.PrevPage)
}
