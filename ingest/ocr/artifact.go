package ocr

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/poiesic/lectern/core"
)

// SavePage writes a recognized page to dir as page_NNNN.json and returns
// the artifact path.
func SavePage(page *core.OCRPage, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create ocr artifact dir: %w", err)
	}
	data, err := json.MarshalIndent(page, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode ocr page: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("page_%04d.json", page.Page))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write ocr artifact: %w", err)
	}
	return path, nil
}

// LoadPage reads a page artifact written by SavePage.
func LoadPage(path string) (*core.OCRPage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ocr artifact: %w", err)
	}
	var page core.OCRPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("decode ocr artifact %s: %w", path, err)
	}
	return &page, nil
}
