package shared

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paycore/internal/domain/errs"
)

func TestValidatorErr(t *testing.T) {
	v := NewValidator()
	require.NoError(t, v.Err())

	v.Period(13, 1999)
	v.Required("payrollId", " ")
	err := v.Err()
	require.ErrorIs(t, err, errs.ErrValidation)

	var ve *errs.ValidationError
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve.Issues, 3)
	assert.Equal(t, "month", ve.Issues[0].Field)
	assert.Equal(t, "payrollId", ve.Issues[1].Field)
	assert.Equal(t, "year", ve.Issues[2].Field)
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Reason string `json:"reason"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reason":"duplicate"}`))
	require.NoError(t, DecodeJSON(req, &dst, false))
	assert.Equal(t, "duplicate", dst.Reason)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"unknown":1}`))
	assert.ErrorIs(t, DecodeJSON(req, &dst, false), errs.ErrValidation)

	req = httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	assert.NoError(t, DecodeJSON(req, &dst, true))
	req = httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	assert.Error(t, DecodeJSON(req, &dst, false))
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	page := Paginate(items, Pagination{Limit: 2, Offset: 3})
	assert.Equal(t, []int{4, 5}, page.Items)
	assert.Equal(t, 5, page.Total)

	empty := Paginate(items, Pagination{Limit: 2, Offset: 10})
	assert.Empty(t, empty.Items)
	assert.NotNil(t, empty.Items)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-05-31")
	require.NoError(t, err)
	assert.Equal(t, 31, d.Day())

	_, err = ParseDate("31/05/2024")
	assert.Error(t, err)
}
