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


package qdrant

import (
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/poiesic/lectern/core"
)

// Source type payload values distinguishing slide chunks from notes chunks.
const (
	SourceTypeSlide = "slide"
	SourceTypeNotes = "notes"
)

// PreviewLen is the payload preview budget in bytes.
const PreviewLen = 240

// pointNamespace is the fixed UUIDv5 namespace for every point id. Changing
// it orphans all existing points, so it never changes.
var pointNamespace = uuid.MustParse("12345678-1234-5678-1234-567812345678")

// SlideIdentity is the stable identity string for a slide chunk point.
func SlideIdentity(subjectID, assetID string, pageNum int, chunkID string) string {
	return fmt.Sprintf("%s:%s:%d:%s", subjectID, assetID, pageNum, chunkID)
}

// NotesIdentity is the stable identity string for a notes chunk point.
func NotesIdentity(notesChunkID string) string {
	return "notes:" + notesChunkID
}

// PointID derives the deterministic point id for an identity string. The
// same identity always maps to the same id, so re-upserting a chunk
// overwrites its point instead of duplicating it.
func PointID(identity string) string {
	return uuid.NewSHA1(pointNamespace, []byte(identity)).String()
}

// Point is one vector index entry ready for upsert.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// ScoredPoint is one search hit with its similarity score.
type ScoredPoint struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// Preview truncates text to the payload preview budget on a rune boundary.
func Preview(text string) string {
	if len(text) <= PreviewLen {
		return text
	}
	cut := PreviewLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// NewSlidePoint builds the index point for one slide chunk. imagePath is the
// rendered page artifact and source is the display label (usually the
// original filename).
func NewSlidePoint(chunk core.Chunk, vector []float32, imagePath, source string) Point {
	identity := SlideIdentity(chunk.SubjectId, chunk.AssetId, chunk.PageNum, chunk.Id)
	return Point{
		ID:     PointID(identity),
		Vector: vector,
		Payload: map[string]any{
			"subject_id":  chunk.SubjectId,
			"asset_id":    chunk.AssetId,
			"page_num":    chunk.PageNum,
			"image_path":  imagePath,
			"source_type": SourceTypeSlide,
			"source":      source,
			"chunk_id":    chunk.Id,
			"text":        chunk.Text,
			"preview":     Preview(chunk.Text),
		},
	}
}

// NewNotesPoint builds the index point for one notes chunk. The notes row
// supplies the version and display label shared by all its chunks.
func NewNotesPoint(notes *core.Notes, chunk core.NotesChunk, vector []float32) Point {
	label := notes.SourceLabel()
	return Point{
		ID:     PointID(NotesIdentity(chunk.Id)),
		Vector: vector,
		Payload: map[string]any{
			"subject_id":     chunk.SubjectId,
			"asset_id":       chunk.AssetId,
			"page_num":       0,
			"image_path":     "",
			"source_type":    SourceTypeNotes,
			"source":         label,
			"chunk_id":       chunk.Id,
			"text":           chunk.Text,
			"preview":        Preview(chunk.Text),
			"notes_id":       chunk.NotesId,
			"version":        chunk.Version,
			"notes_chunk_id": chunk.Id,
			"section_title":  chunk.SectionTitle,
			"source_label":   label,
			"web_urls":       notes.WebURLs,
		},
	}
}
