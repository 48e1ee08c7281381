package util

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShutdownFunction(t *testing.T) {
	orig := shutdownFuncs
	defer func() { shutdownFuncs = orig }()
	shutdownFuncs = nil

	var order []int
	RegisterShutdownFunc(func() error {
		order = append(order, 1)
		return nil
	})
	RegisterShutdownFunc(func() error {
		order = append(order, 2)
		return fmt.Errorf("failed")
	})
	err := ShutdownFunction()
	require.Error(t, err)
	require.Equal(t, []int{2, 1}, order)

	// Already run functions are not run again.
	require.NoError(t, ShutdownFunction())
	require.Equal(t, []int{2, 1}, order)
}
