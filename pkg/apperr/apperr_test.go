package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromKeepsTypedError(t *testing.T) {
	base := New(NotFound, "Invalid zipcode. Please try another.")
	wrapped := fmt.Errorf("resolve: %w", base)

	got := From(wrapped)
	require.Same(t, base, got)
	require.Equal(t, NotFound, CodeOf(wrapped))
	require.Equal(t, "Invalid zipcode. Please try another.", MessageOf(wrapped))
	require.True(t, Is(wrapped, NotFound))
	require.False(t, Is(wrapped, Internal))
}

func TestFromWrapsUnknownAsInternal(t *testing.T) {
	cause := errors.New("boom")
	got := From(cause)
	require.Equal(t, Internal, got.Code)
	require.Equal(t, GenericMessage, got.Message)
	require.ErrorIs(t, got, cause)
	require.Nil(t, From(nil))
}

func TestErrorString(t *testing.T) {
	require.Equal(t, "not-found: gone", New(NotFound, "gone").Error())
	require.Equal(t, "internal: bad: x", Wrap(Internal, "bad", errors.New("x")).Error())
}
