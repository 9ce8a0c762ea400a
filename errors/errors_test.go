package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelWrapping(t *testing.T) {
	err := NewParseError("schedule %q does not match", "bogus")
	require.Error(t, err)
	assert.True(t, Is(err, ErrParse))
	assert.True(t, IsParseError(err))
	assert.Contains(t, err.Error(), "bogus")

	wrapped := Wrap(err, "rejecting job")
	assert.True(t, IsParseError(wrapped))
	assert.Contains(t, wrapped.Error(), "rejecting job")
}

func TestNotFound(t *testing.T) {
	err := NewNotFoundError("job %s", "backup")
	assert.True(t, IsNotFoundError(err))
	assert.False(t, IsParseError(err))
}

func TestNoMatchDistinct(t *testing.T) {
	err := Wrap(ErrNoMatch, "no instant within 4 years")
	assert.True(t, Is(err, ErrNoMatch))
	assert.False(t, Is(err, ErrParse))
}
