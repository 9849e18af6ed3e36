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


package notes

import "errors"

var (
	// ErrAssetRepositoryRequired indicates a nil asset repository.
	ErrAssetRepositoryRequired = errors.New("asset repository required")

	// ErrChunkRepositoryRequired indicates a nil chunk repository.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrNotesRepositoryRequired indicates a nil notes repository.
	ErrNotesRepositoryRequired = errors.New("notes repository required")

	// ErrVectorIndexRequired indicates a nil vector index client.
	ErrVectorIndexRequired = errors.New("vector index required")

	// ErrProviderRequired indicates a nil AI provider.
	ErrProviderRequired = errors.New("AI provider required")

	// ErrDataDirRequired indicates a missing artifact root directory.
	ErrDataDirRequired = errors.New("data dir required")

	// ErrNoChunks indicates the asset has no indexed chunks to build
	// notes from.
	ErrNoChunks = errors.New("no indexed chunks for asset")

	// ErrEmptyNotes indicates empty or whitespace-only notes markdown.
	ErrEmptyNotes = errors.New("notes markdown is empty")
)
