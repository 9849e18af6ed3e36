package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Identity hashing lengths. The hash inputs and truncations below are part of
// the external vector-index contract: changing any of them orphans every
// previously indexed point.
const (
	AssetIDLen      = 16
	ChunkIDLen      = 20
	NotesChunkIDLen = 20
)

// AssetIDFromBytes derives an asset id from the raw file bytes.
func AssetIDFromBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:AssetIDLen]
}

// ContentHash returns the full sha256 hex of the raw file bytes.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ChunkID derives the deterministic id of a slide chunk from its block range.
// endBlock is exclusive.
func ChunkID(assetID string, pageNum, startBlock, endBlock int) string {
	return truncatedHash(fmt.Sprintf("%s:%d:%d:%d", assetID, pageNum, startBlock, endBlock), ChunkIDLen)
}

// NotesChunkID derives the deterministic id of a notes chunk.
func NotesChunkID(notesID, sectionTitle string, idx, startChar int) string {
	return truncatedHash(fmt.Sprintf("%s:%s:%d:%d", notesID, sectionTitle, idx, startChar), NotesChunkIDLen)
}

func truncatedHash(identity string, length int) string {
	sum := sha256.Sum256([]byte(identity))
	return hex.EncodeToString(sum[:])[:length]
}
