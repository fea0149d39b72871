package llm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPromptTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.txt")
	require.NoError(t, os.WriteFile(path, []byte("  extract the table rows  \n"), 0o644))

	prompt, err := LoadPromptTemplate(path)
	require.NoError(t, err)
	assert.Equal(t, "extract the table rows", prompt)
}

func TestLoadPromptTemplateMissing(t *testing.T) {
	_, err := LoadPromptTemplate(filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}

func TestLoadPromptTemplateEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.txt")
	require.NoError(t, os.WriteFile(path, []byte("   \n"), 0o644))
	_, err := LoadPromptTemplate(path)
	assert.Error(t, err)
}
