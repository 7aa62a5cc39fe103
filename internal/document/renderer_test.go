package document_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbruckner/vinetrack/internal/document"
)

func TestFileRenderer_WritesReceipt(t *testing.T) {
	r := &document.FileRenderer{Dir: t.TempDir()}

	path, err := r.Render(context.Background(), "VINE-2024-0001", "Proformarechnung\n", nil)
	require.NoError(t, err)
	assert.Equal(t, "VINE-2024-0001.txt", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Proformarechnung\n", string(data))
}

func TestFileRenderer_RecordsAttachmentLinks(t *testing.T) {
	r := &document.FileRenderer{Dir: t.TempDir()}

	path, err := r.Render(context.Background(), "VINE-2024-0002", "Proformarechnung\n",
		[]string{"https://example.com/gutachten.pdf", "https://example.com/preisliste.pdf"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Contains(t, string(data), "Anlagen:\n")
	assert.Contains(t, string(data), "- https://example.com/gutachten.pdf\n")
	assert.Contains(t, string(data), "- https://example.com/preisliste.pdf\n")
}

func TestFileRenderer_SanitizesName(t *testing.T) {
	r := &document.FileRenderer{Dir: t.TempDir()}

	path, err := r.Render(context.Background(), "VINE/2024 0003", "x", nil)
	require.NoError(t, err)
	assert.Equal(t, "VINE_2024_0003.txt", filepath.Base(path))
}
