package raster

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freightdata/tariff-extractor/internal/common"
)

func TestRasterizeCorruptDocument(t *testing.T) {
	dir := t.TempDir()
	pdfPath := filepath.Join(dir, "broken.pdf")
	require.NoError(t, os.WriteFile(pdfPath, []byte("this is not a pdf"), 0o644))

	r := NewRasterizer(Config{}, nil)
	pages, err := r.Rasterize(context.Background(), pdfPath, dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrConversionFailed)
	assert.Empty(t, pages)
}

func TestRasterizeMissingDocument(t *testing.T) {
	dir := t.TempDir()
	r := NewRasterizer(Config{}, nil)
	_, err := r.Rasterize(context.Background(), filepath.Join(dir, "absent.pdf"), dir)
	assert.ErrorIs(t, err, common.ErrConversionFailed)
}

func TestCollectPagesOrdersNumerically(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "doc")

	// lexical order would put doc-10 before doc-2
	for _, name := range []string{"doc-1.png", "doc-2.png", "doc-10.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("png"), 0o644))
	}
	// unrelated files must not be picked up
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc-notes.png"), []byte("png"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other-1.png"), []byte("png"), 0o644))

	pages := collectPages(prefix, "doc")
	require.Len(t, pages, 3)
	assert.Equal(t, []int{1, 2, 10}, []int{pages[0].PageIndex, pages[1].PageIndex, pages[2].PageIndex})
	for _, p := range pages {
		assert.Equal(t, "doc", p.Source)
	}
}

func TestCollectPagesEmptyDir(t *testing.T) {
	pages := collectPages(filepath.Join(t.TempDir(), "doc"), "doc")
	assert.Empty(t, pages)
}
