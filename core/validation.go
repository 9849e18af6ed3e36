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


package core

import (
	"fmt"
	"strings"
)

// ValidateSubject validates a Subject according to domain rules.
//
// Validation rules:
//   - Name must not be empty or whitespace-only
//
// NOT validated:
//   - Id (assigned at creation time)
//   - Metadata (free-form)
func ValidateSubject(subject *Subject) error {
	if subject == nil {
		return fmt.Errorf("%w: subject is nil", ErrInvalidSubject)
	}

	if strings.TrimSpace(subject.Name) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSubject, ErrEmptySubjectName)
	}

	return nil
}

// ValidateAsset validates an Asset according to domain rules.
//
// Validation rules:
//   - Id and SubjectId must be set
//   - Filename must not be empty
//
// NOT validated (derived or filled at intake):
//   - StoragePath, ContentHash, SizeBytes, MimeType
func ValidateAsset(asset *Asset) error {
	if asset == nil {
		return fmt.Errorf("%w: asset is nil", ErrInvalidAsset)
	}

	if asset.Id == "" {
		return fmt.Errorf("%w: %w", ErrInvalidAsset, ErrEmptyAssetId)
	}

	if asset.SubjectId == "" {
		return fmt.Errorf("%w: %w", ErrInvalidAsset, ErrEmptySubjectId)
	}

	if asset.Filename == "" {
		return fmt.Errorf("%w: %w", ErrInvalidAsset, ErrEmptyFilename)
	}

	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - Id, AssetId and SubjectId must be set
//   - Block range must satisfy 0 <= StartBlock < EndBlock
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Id == "" {
		return fmt.Errorf("%w: chunk id cannot be empty", ErrInvalidChunk)
	}

	if chunk.AssetId == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyAssetId)
	}

	if chunk.SubjectId == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptySubjectId)
	}

	if chunk.StartBlock < 0 || chunk.EndBlock <= chunk.StartBlock {
		return fmt.Errorf("%w: %w: [%d,%d)", ErrInvalidChunk, ErrInvalidBlockRange, chunk.StartBlock, chunk.EndBlock)
	}

	return nil
}

// ValidateNotes validates a Notes record according to domain rules.
//
// Validation rules:
//   - SubjectId and AssetId must be set
//   - Title must not be empty or whitespace-only
//   - Version must be >= 1
func ValidateNotes(notes *Notes) error {
	if notes == nil {
		return fmt.Errorf("%w: notes is nil", ErrInvalidNotes)
	}

	if notes.SubjectId == "" {
		return fmt.Errorf("%w: %w", ErrInvalidNotes, ErrEmptySubjectId)
	}

	if notes.AssetId == "" {
		return fmt.Errorf("%w: %w", ErrInvalidNotes, ErrEmptyAssetId)
	}

	if strings.TrimSpace(notes.Title) == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrInvalidNotes)
	}

	if notes.Version < 1 {
		return fmt.Errorf("%w: version %d", ErrInvalidNotes, notes.Version)
	}

	return nil
}

// ValidateStage validates that a stage name is one of the known stages.
func ValidateStage(stage Stage) error {
	if !stage.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStage, string(stage))
	}
	return nil
}
