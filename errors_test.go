package relmodel

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBindingError(t *testing.T) {
	require := require.New(t)
	err := NewBindingError("Breed", "Dog", "Customer")
	require.EqualError(err, `relmodel: member "Breed" declared on "Dog" is unrelated to entity type "Customer"`)
	require.True(IsBindingError(err))
	require.ErrorIs(err, ErrBindingMismatch)

	wrapped := fmt.Errorf("compile projection: %w", err)
	require.True(IsBindingError(wrapped))
	require.ErrorIs(wrapped, ErrBindingMismatch)

	var be *BindingError
	require.True(errors.As(wrapped, &be))
	require.Equal("Breed", be.Member)
	require.Equal("Dog", be.Declaring)
	require.Equal("Customer", be.Target)

	require.False(IsBindingError(nil))
	require.False(IsBindingError(errors.New("other")))
}

func TestStateError(t *testing.T) {
	require := require.New(t)
	err := NewStateError("add table", "frozen")
	require.EqualError(err, `relmodel: cannot add table in state "frozen"`)
	require.True(IsStateError(err))
	require.True(IsStateError(fmt.Errorf("build: %w", err)))
	require.ErrorIs(err, ErrSchemaFrozen)
	require.NotErrorIs(NewStateError("finalize", "building"), ErrSchemaFrozen)
	require.False(IsStateError(ErrSchemaFrozen))
	require.False(IsStateError(nil))
}

func TestConfigurationError(t *testing.T) {
	require := require.New(t)
	cause := errors.New("delete behavior 42")
	err := NewConfigurationError("unmapped delete behavior", cause)
	require.EqualError(err, "relmodel: unsupported configuration: unmapped delete behavior")
	require.True(IsConfigurationError(err))
	require.ErrorIs(err, cause)
	require.False(IsConfigurationError(nil))
	require.False(IsConfigurationError(errors.New("other")))
}
