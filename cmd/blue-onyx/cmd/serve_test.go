package cmd

import (
	"testing"

	"github.com/blue-onyx-go/blueonyx/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyServeFlagOverrides(t *testing.T) {
	cmd := serveCmd
	require.NoError(t, cmd.Flags().Set("port", "9000"))
	require.NoError(t, cmd.Flags().Set("model", "models/yolov5n.onnx"))
	require.NoError(t, cmd.Flags().Set("force-cpu", "true"))
	require.NoError(t, cmd.Flags().Set("object-filter", "person,car"))

	base := config.DefaultConfig()
	out := applyServeFlagOverrides(cmd, &base)

	assert.Equal(t, 9000, out.Port)
	assert.Equal(t, "models/yolov5n.onnx", out.Model.Path)
	assert.True(t, out.GPU.ForceCPU)
	assert.Equal(t, []string{"person", "car"}, out.Model.ObjectFilter)
}

func TestRunServeRequiresModelPath(t *testing.T) {
	cmd := serveCmd
	require.NoError(t, cmd.Flags().Set("model", ""))
	globalConfig = nil
	cfgFile = ""

	err := runServe(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--model")
}
