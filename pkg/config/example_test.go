package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShippedConfigLoads(t *testing.T) {
	c, err := Load("../../config/config.yaml")
	require.NoError(t, err)
	require.Equal(t, Default().Engine, c.Engine)
}
