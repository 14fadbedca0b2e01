package apperr

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindSentinels(t *testing.T) {
	err := errors.Wrap(Validation("create vendor", "name is required", nil), "handler")

	require.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrReference)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestStorage_PassesClassifiedErrors(t *testing.T) {
	ref := Reference("insert", "vendor does not exist", nil)

	assert.Same(t, ref, Storage("insert", ref))
	assert.Nil(t, Storage("insert", nil))

	wrapped := Storage("insert", errors.New("connection reset"))
	require.ErrorIs(t, wrapped, ErrStorage)
	assert.Equal(t, "store unavailable", MessageOf(wrapped))
	assert.Contains(t, wrapped.Error(), "connection reset")
}

func TestKindOf_Unclassified(t *testing.T) {
	err := errors.New("boom")

	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "internal error", MessageOf(err))
	assert.Nil(t, FieldsOf(err))
}

func TestFieldCheck(t *testing.T) {
	var c FieldCheck
	c.Add("vendor_id", nil)
	require.NoError(t, c.Err("noop"))

	c.Add("vendor_id", errors.New("required"))
	c.Add("quantity", errors.New("must be at least 1"))
	err := c.Err("create purchase order")

	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, map[string]string{
		"vendor_id": "required",
		"quantity":  "must be at least 1",
	}, FieldsOf(err))
	assert.Equal(t, "create purchase order: invalid input (quantity: must be at least 1, vendor_id: required)", err.Error())
}
