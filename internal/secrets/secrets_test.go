package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingDirectory(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestLoadReadsTrimmedValues(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, LLMAPIKey), []byte("sk-test-123\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, GraphPassword), []byte("  hunter2  "), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("skip"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty"), []byte("   \n"), 0o600))

	s, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "sk-test-123", s[LLMAPIKey])
	assert.Equal(t, "hunter2", s[GraphPassword])
	assert.NotContains(t, s, ".hidden")
	assert.NotContains(t, s, "empty")
}
