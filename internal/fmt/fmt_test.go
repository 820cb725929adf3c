package fmt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSprintFloat(t *testing.T) {
	require.Equal(t, "1.5", SprintFloat(1.5, 4))
	require.Equal(t, "1", SprintFloat(1.0, 4))
	require.Equal(t, "0.0001", SprintFloat(0.0001, 4))
	require.Equal(t, "-2.25", SprintFloat(-2.25, 4))
	require.Equal(t, "100", SprintFloat(100.4, 0))
	require.Equal(t, "1.2", SprintFloat(1.23456, 1))
}
