package render

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	// Decoder registrations for every intake format.
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/poiesic/lectern/core"
)

type imageRenderer struct{}

// NewImageRenderer returns a renderer that treats a standalone image as a
// one-page document: decode, re-encode as page_0001.png, measure.
func NewImageRenderer() Renderer {
	return &imageRenderer{}
}

func (r *imageRenderer) Render(ctx context.Context, assetID, sourcePath, outDir string) ([]core.PageImage, error) {
	f, err := os.Open(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrRenderFailed, filepath.Base(sourcePath), err)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create pages dir: %v", ErrRenderFailed, err)
	}
	target := filepath.Join(outDir, pageFilename(1))
	out, err := os.Create(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	if err := png.Encode(out, img); err != nil {
		_ = out.Close()
		return nil, fmt.Errorf("%w: encode png: %v", ErrRenderFailed, err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}

	bounds := img.Bounds()
	return []core.PageImage{{
		AssetId: assetID,
		PageNum: 1,
		Path:    target,
		Width:   bounds.Dx(),
		Height:  bounds.Dy(),
	}}, nil
}
