package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// allowedExtensions maps the accepted image extensions to their MIME types
var allowedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tiff": "image/tiff",
}

// WorkItem is one invoice image slated for extraction
type WorkItem struct {
	Name        string // file name, the identifier recorded in the ledger
	Path        string // absolute path
	ContentType string
}

// Source defines the interface for reading input images
type Source interface {
	// List returns the eligible work items in a stable order
	List() ([]WorkItem, error)

	// Read returns the image bytes of an item
	Read(item WorkItem) ([]byte, error)
}

// DirSource implements the Source interface over a local directory
type DirSource struct {
	basePath string
}

// NewDirSource creates a new DirSource instance
func NewDirSource(basePath string) (*DirSource, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolving input directory: %w", err)
	}
	return &DirSource{basePath: abs}, nil
}

// List returns the image files directly inside the directory, sorted by name.
// Subdirectories and files with other extensions are ignored.
func (d *DirSource) List() ([]WorkItem, error) {
	entries, err := os.ReadDir(d.basePath)
	if err != nil {
		return nil, fmt.Errorf("reading input directory: %w", err)
	}

	items := make([]WorkItem, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		contentType, ok := allowedExtensions[strings.ToLower(filepath.Ext(entry.Name()))]
		if !ok {
			continue
		}
		items = append(items, WorkItem{
			Name:        entry.Name(),
			Path:        filepath.Join(d.basePath, entry.Name()),
			ContentType: contentType,
		})
	}
	return items, nil
}

// Read retrieves an image from the directory
func (d *DirSource) Read(item WorkItem) ([]byte, error) {
	data, err := os.ReadFile(item.Path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}
