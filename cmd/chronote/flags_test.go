package main

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/chronote/pkg/config"
	"github.com/aretw0/chronote/pkg/core"
)

func newFlagCmd(s *storeFlags) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	s.register(cmd)
	return cmd
}

func TestStoreFlags_OnlyChangedFlagsOverride(t *testing.T) {
	var s storeFlags
	cmd := newFlagCmd(&s)
	require.NoError(t, cmd.Flags().Parse([]string{"--store", "setTimeoutByParts", "--work", "250ms"}))

	base := config.Default()
	base.Parts = 7
	got, err := s.apply(cmd, base)
	require.NoError(t, err)

	assert.Equal(t, core.KindSetTimeoutByParts, got.Store)
	assert.Equal(t, 250*time.Millisecond, got.Work)
	assert.Equal(t, 7, got.Parts, "unset flags keep the config value")
	assert.Equal(t, base.Overhead, got.Overhead)
}

func TestStoreFlags_RejectsNegativeParts(t *testing.T) {
	var s storeFlags
	cmd := newFlagCmd(&s)
	require.NoError(t, cmd.Flags().Parse([]string{"--parts", "-2"}))

	_, err := s.apply(cmd, config.Default())
	assert.ErrorIs(t, err, core.ErrInvalidParts)
}
