// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/poiesic/lectern/core"
)

type pdfRenderer struct {
	dpi    int
	bin    string
	logger *slog.Logger
}

// NewPDFRenderer returns a renderer that validates and counts pages with
// pdfcpu and rasterizes each page with pdftoppm.
func NewPDFRenderer(config Config) Renderer {
	dpi := config.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	bin := config.PdftoppmBin
	if bin == "" {
		bin = "pdftoppm"
	}
	return &pdfRenderer{
		dpi:    dpi,
		bin:    bin,
		logger: slog.Default().With("component", "pdf-renderer"),
	}
}

func (r *pdfRenderer) Render(ctx context.Context, assetID, sourcePath, outDir string) ([]core.PageImage, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(sourcePath, conf); err != nil {
		return nil, fmt.Errorf("%w: validate pdf: %v", ErrRenderFailed, err)
	}

	pageCount, err := api.PageCountFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("%w: page count: %v", ErrRenderFailed, err)
	}
	if pageCount == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPages, filepath.Base(sourcePath))
	}

	if _, err := exec.LookPath(r.bin); err != nil {
		return nil, fmt.Errorf("%w: %s not found: %v", ErrRenderFailed, r.bin, err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create pages dir: %v", ErrRenderFailed, err)
	}

	pages := make([]core.PageImage, 0, pageCount)
	for page := 1; page <= pageCount; page++ {
		path, err := r.rasterizePage(ctx, sourcePath, outDir, page)
		if err != nil {
			return nil, err
		}
		width, height, err := imageDimensions(path)
		if err != nil {
			return nil, fmt.Errorf("%w: measure %s: %v", ErrRenderFailed, filepath.Base(path), err)
		}
		pages = append(pages, core.PageImage{
			AssetId: assetID,
			PageNum: page,
			Path:    path,
			Width:   width,
			Height:  height,
		})
		r.logger.Debug("rendered page",
			"asset_id", assetID,
			"page", page,
			"width", width,
			"height", height)
	}
	return pages, nil
}

// rasterizePage runs pdftoppm for a single page and normalizes the output
// name to page_%04d.png. pdftoppm pads its page suffix by document length,
// so the produced file is located by glob.
func (r *pdfRenderer) rasterizePage(ctx context.Context, sourcePath, outDir string, page int) (string, error) {
	prefix := filepath.Join(outDir, fmt.Sprintf("raster_%04d", page))
	args := []string{
		"-png",
		"-r", strconv.Itoa(r.dpi),
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		sourcePath,
		prefix,
	}

	cmd := exec.CommandContext(ctx, r.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %s page %d: %v: %s",
			ErrRenderFailed, r.bin, page, err, strings.TrimSpace(stderr.String()))
	}

	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("%w: %s produced no output for page %d", ErrRenderFailed, r.bin, page)
	}

	target := filepath.Join(outDir, pageFilename(page))
	if err := os.Rename(matches[0], target); err != nil {
		return "", fmt.Errorf("%w: normalize page name: %v", ErrRenderFailed, err)
	}
	for _, extra := range matches[1:] {
		_ = os.Remove(extra)
	}
	return target, nil
}

// imageDimensions reads width and height from the image header.
func imageDimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
