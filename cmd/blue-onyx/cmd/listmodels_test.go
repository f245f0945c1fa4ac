package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListModelsCommandPrintsCatalog(t *testing.T) {
	buf := new(bytes.Buffer)
	listModelsCmd.SetOut(buf)
	listModelsCmd.SetArgs([]string{})

	require.NoError(t, listModelsCmd.RunE(listModelsCmd, nil))
	assert.Contains(t, buf.String(), "yolov5n")
	assert.Contains(t, buf.String(), "rt-detr-r18")
}
