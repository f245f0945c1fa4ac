package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadCommandRejectsUnknownModel(t *testing.T) {
	err := downloadCmd.RunE(downloadCmd, []string{"does-not-exist"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown model")
}
