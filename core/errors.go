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

import "errors"

// Domain validation errors
var (
	// ErrInvalidSubject indicates a Subject failed validation.
	ErrInvalidSubject = errors.New("invalid subject")

	// ErrInvalidAsset indicates an Asset failed validation.
	ErrInvalidAsset = errors.New("invalid asset")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidNotes indicates a Notes record failed validation.
	ErrInvalidNotes = errors.New("invalid notes")

	// ErrInvalidStage indicates an unknown stage name.
	ErrInvalidStage = errors.New("invalid stage")

	// ErrEmptySubjectName indicates the subject Name field is empty.
	ErrEmptySubjectName = errors.New("subject name cannot be empty")

	// ErrEmptyFilename indicates the asset Filename field is empty.
	ErrEmptyFilename = errors.New("asset filename cannot be empty")

	// ErrEmptyAssetId indicates a record is missing its owning asset id.
	ErrEmptyAssetId = errors.New("asset id cannot be empty")

	// ErrEmptySubjectId indicates a record is missing its owning subject id.
	ErrEmptySubjectId = errors.New("subject id cannot be empty")

	// ErrInvalidChunkConfig indicates unusable chunking parameters.
	ErrInvalidChunkConfig = errors.New("invalid chunking config")

	// ErrInvalidBlockRange indicates a chunk block range that cannot exist.
	ErrInvalidBlockRange = errors.New("chunk block range is invalid")
)
