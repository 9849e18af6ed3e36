package render

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeMinimalPDF writes a structurally valid empty-page PDF with a correct
// xref table, enough for pdfcpu validation and page counting.
func writeMinimalPDF(t *testing.T, path string, pageCount int) {
	t.Helper()

	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	kids := make([]string, pageCount)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", 3+i)
	}
	obj(fmt.Sprintf("2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n",
		strings.Join(kids, " "), pageCount))
	for i := 0; i < pageCount; i++ {
		obj(fmt.Sprintf("%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>\nendobj\n", 3+i))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, xref)

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

// writeFakePdftoppm installs a script that mimics pdftoppm's output naming:
// it copies a fixture PNG to <prefix>-<page>.png.
func writeFakePdftoppm(t *testing.T, dir string) string {
	t.Helper()

	fixture := filepath.Join(dir, "fixture.png")
	f, err := os.Create(fixture)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, makeTestImage(64, 48)))
	require.NoError(t, f.Close())

	bin := filepath.Join(dir, "pdftoppm")
	script := fmt.Sprintf("#!/bin/sh\ncp %q \"${9}-${5}.png\"\n", fixture)
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))
	return bin
}

func TestPDFRendererRender(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "lecture.pdf")
	writeMinimalPDF(t, source, 2)
	bin := writeFakePdftoppm(t, dir)

	renderer := NewPDFRenderer(Config{DPI: 120, PdftoppmBin: bin})
	pages, err := renderer.Render(context.Background(), "asset-9", source, filepath.Join(dir, "pages"))
	require.NoError(t, err)

	require.Len(t, pages, 2)
	for i, page := range pages {
		assert.Equal(t, "asset-9", page.AssetId)
		assert.Equal(t, i+1, page.PageNum)
		assert.Equal(t, fmt.Sprintf("page_%04d.png", i+1), filepath.Base(page.Path))
		assert.Equal(t, 64, page.Width)
		assert.Equal(t, 48, page.Height)
		assert.FileExists(t, page.Path)
	}

	// Raw pdftoppm names are gone after normalization.
	leftovers, err := filepath.Glob(filepath.Join(dir, "pages", "raster_*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestPDFRendererInvalidPDF(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "broken.pdf")
	require.NoError(t, os.WriteFile(source, []byte("this is not a pdf"), 0o644))

	renderer := NewPDFRenderer(Config{PdftoppmBin: writeFakePdftoppm(t, dir)})
	_, err := renderer.Render(context.Background(), "a", source, filepath.Join(dir, "pages"))
	assert.ErrorIs(t, err, ErrRenderFailed)
}

func TestPDFRendererMissingFile(t *testing.T) {
	dir := t.TempDir()
	renderer := NewPDFRenderer(Config{PdftoppmBin: writeFakePdftoppm(t, dir)})
	_, err := renderer.Render(context.Background(), "a", filepath.Join(dir, "absent.pdf"), dir)
	assert.ErrorIs(t, err, ErrRenderFailed)
}

func TestPDFRendererMissingBinary(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "lecture.pdf")
	writeMinimalPDF(t, source, 1)

	renderer := NewPDFRenderer(Config{PdftoppmBin: filepath.Join(dir, "no-such-binary")})
	_, err := renderer.Render(context.Background(), "a", source, filepath.Join(dir, "pages"))
	require.ErrorIs(t, err, ErrRenderFailed)
	assert.Contains(t, err.Error(), "not found")
}

func TestPDFRendererRasterFailure(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "lecture.pdf")
	writeMinimalPDF(t, source, 1)

	bin := filepath.Join(dir, "pdftoppm")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\necho 'raster boom' >&2\nexit 1\n"), 0o755))

	renderer := NewPDFRenderer(Config{PdftoppmBin: bin})
	_, err := renderer.Render(context.Background(), "a", source, filepath.Join(dir, "pages"))
	require.ErrorIs(t, err, ErrRenderFailed)
	assert.Contains(t, err.Error(), "raster boom")
}
