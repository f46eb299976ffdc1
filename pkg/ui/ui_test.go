package ui

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSContainsIndex(t *testing.T) {
	data, err := fs.ReadFile(FS(), "index.html")
	require.NoError(t, err)
	assert.Contains(t, string(data), "<title>Cloud Run Demo</title>")
	assert.Contains(t, string(data), "/chat")
	assert.Contains(t, string(data), "/secrets")
}
