package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//go:generate mockgen -source=renderer.go -destination=mock_renderer.go -package=document

// Renderer persists a generated receipt outside the ledger, e.g. as a file
// in the archive directory. Attachments are links to externally hosted
// valuation documents that belong with the receipt.
type Renderer interface {
	Render(ctx context.Context, name, text string, attachments []string) (string, error)
}

// FileRenderer writes receipts as plain text files into a directory.
type FileRenderer struct {
	Dir string
}

// Render writes the receipt text to <dir>/<name>.txt and returns the path.
// Attachment links are recorded in an Anlagen section below the text.
func (r *FileRenderer) Render(_ context.Context, name, text string, attachments []string) (string, error) {
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	path := filepath.Join(r.Dir, sanitizeFilename(name)+".txt")

	if len(attachments) > 0 {
		var b strings.Builder

		b.WriteString(text)
		b.WriteString("\nAnlagen:\n")

		for _, a := range attachments {
			b.WriteString("- ")
			b.WriteString(a)
			b.WriteString("\n")
		}

		text = b.String()
	}

	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("writing receipt %s: %w", name, err)
	}

	return path, nil
}

func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "-", " ", "_")
	return replacer.Replace(name)
}
