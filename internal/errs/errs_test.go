package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodedMatchesKind(t *testing.T) {
	notFound := New(ErrNotFound, "claim_not_found")
	wrapped := fmt.Errorf("load: %w", notFound)

	assert.ErrorIs(t, wrapped, ErrNotFound)
	assert.ErrorIs(t, wrapped, notFound)
	assert.NotErrorIs(t, wrapped, ErrConflict)
	assert.Equal(t, "claim_not_found", CodeOf(wrapped))
	assert.Equal(t, ErrNotFound, notFound.Kind())
}

func TestMerge(t *testing.T) {
	assert.NoError(t, Merge(nil, nil))

	err := Merge(Invalid("name", "invalid_name", "name is required"), nil, Invalid("email", "invalid_email", "bad email"))
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "validation_error: invalid_name,invalid_email", err.Error())

	vErr, ok := AsValidation(err)
	assert.True(t, ok)
	assert.Len(t, vErr.Fields, 2)
	// more than one field falls back to the kind
	assert.Equal(t, "validation_error", CodeOf(err))
}

func TestCodeOf(t *testing.T) {
	assert.Empty(t, CodeOf(nil))
	assert.Equal(t, "invalid_name", CodeOf(Invalid("name", "invalid_name", "")))
	assert.Equal(t, "forbidden", CodeOf(fmt.Errorf("x: %w", ErrForbidden)))
	assert.Equal(t, "internal_error", CodeOf(errors.New("boom")))
}
