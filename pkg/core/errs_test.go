package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKind(t *testing.T) {
	require.Nil(t, Kind(nil))
	require.Equal(t, ErrNotEntitled, Kind(NewUserError(ErrNotEntitled, "pro only")))
	require.Equal(t, ErrInvalidArgument, Kind(fmt.Errorf("commit: %w", ErrInsufficientFunds)))
	require.Equal(t, ErrProviderUnavailable, Kind(fmt.Errorf("resolve: %w", ErrProviderUnavailable)))
	require.Equal(t, ErrInternal, Kind(errors.New("nil map")))
}

func TestUserError(t *testing.T) {
	err := NewUserError(ErrInvalidArgument, "`%s` is not a valid argument.", "foo")
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.Equal(t, "`foo` is not a valid argument.", err.Title)
	require.Contains(t, err.Error(), "invalid argument")
}
