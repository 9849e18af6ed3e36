package chunk

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/poiesic/lectern/core"
)

// WriteChunks persists an asset's ordered chunk list as a JSON artifact,
// creating parent directories as needed.
func WriteChunks(chunks []core.Chunk, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create chunk artifact dir: %w", err)
	}
	data, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return fmt.Errorf("encode chunks: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write chunk artifact: %w", err)
	}
	return nil
}

// ReadChunks loads a chunk artifact written by WriteChunks.
func ReadChunks(path string) ([]core.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chunk artifact: %w", err)
	}
	var chunks []core.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("decode chunk artifact %s: %w", path, err)
	}
	return chunks, nil
}
