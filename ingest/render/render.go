package render

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/poiesic/lectern/core"
)

// DefaultDPI is the rasterization resolution for PDF pages.
const DefaultDPI = 144

// Config controls rasterization.
type Config struct {
	// DPI is the PDF rasterization resolution. Zero means DefaultDPI.
	DPI int

	// PdftoppmBin overrides the pdftoppm binary, mainly for tests.
	PdftoppmBin string
}

// Renderer turns an asset's source file into ordered per-page PNG images
// named page_%04d.png under outDir. Pages are 1-based.
type Renderer interface {
	Render(ctx context.Context, assetID, sourcePath, outDir string) ([]core.PageImage, error)
}

// ForFile picks the renderer for a source file by extension.
func ForFile(path string, config Config) (Renderer, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return NewPDFRenderer(config), nil
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return NewImageRenderer(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func pageFilename(pageNum int) string {
	return fmt.Sprintf("page_%04d.png", pageNum)
}
