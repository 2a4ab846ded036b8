package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceOnlyWhenVerbose(t *testing.T) {
	var out, errOut bytes.Buffer
	SetOutput(&out, &errOut)
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stdout, os.Stderr)
	})

	SetVerbose(false)
	Trace("frame %d", 1)
	assert.Empty(t, out.String())

	SetVerbose(true)
	Trace("frame %d", 2)
	assert.Contains(t, out.String(), "frame 2")
	assert.Contains(t, out.String(), "logging_test.go")

	ErrorLogger.Printf("boom")
	assert.True(t, strings.HasPrefix(errOut.String(), "ERROR: "))
}

func TestRotate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, LogFileName)

	require.NoError(t, rotate(path, 4), "missing file")

	require.NoError(t, os.WriteFile(path, []byte("abc"), 0644))
	require.NoError(t, rotate(path, 4))
	assert.FileExists(t, path)
	assert.NoFileExists(t, path+".1")

	require.NoError(t, os.WriteFile(path, []byte("abcdef"), 0644))
	require.NoError(t, rotate(path, 4))
	assert.NoFileExists(t, path)
	old, err := os.ReadFile(path + ".1")
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(old))
}
